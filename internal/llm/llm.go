// Package llm abstracts the language model used for dataset quality
// judgement behind a single-method interface so metrics and their
// tests never depend on a live provider.
package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/trustreg-labs/trustreg-go/internal/platform/env"
)

// Generator produces a completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Supported providers.
const (
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
	ProviderAnthropic = "anthropic"
)

type Config struct {
	Provider        string
	Model           string
	OpenAIAPIKey    string
	AnthropicAPIKey string
	OllamaHost      string
}

// ConfigFromEnv reads the provider settings. An empty provider means
// no LLM is configured and callers fall back to the unavailable
// sentinel for LLM-backed metrics.
func ConfigFromEnv() Config {
	return Config{
		Provider:        env.String("TRUSTREG_LLM_PROVIDER", ""),
		Model:           env.String("TRUSTREG_LLM_MODEL", ""),
		OpenAIAPIKey:    env.String("OPENAI_API_KEY", ""),
		AnthropicAPIKey: env.String("ANTHROPIC_API_KEY", ""),
		OllamaHost:      env.String("TRUSTREG_OLLAMA_HOST", "http://localhost:11434"),
	}
}

// Model wraps a langchaingo model behind the Generator interface.
type Model struct {
	llm       llms.Model
	modelName string
}

// NewModel builds a Generator for the configured provider. Returns
// (nil, nil) when no provider is set.
func NewModel(cfg Config) (*Model, error) {
	if cfg.Provider == "" {
		return nil, nil
	}

	var model llms.Model
	var err error

	switch cfg.Provider {
	case ProviderOllama:
		model, err = ollama.New(
			ollama.WithModel(cfg.Model),
			ollama.WithServerURL(cfg.OllamaHost),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	case ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		model, err = openai.New(
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithModel(cfg.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}

	case ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("Anthropic API key required")
		}
		model, err = anthropic.New(
			anthropic.WithToken(cfg.AnthropicAPIKey),
			anthropic.WithModel(cfg.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}

	return &Model{llm: model, modelName: cfg.Model}, nil
}

func (m *Model) Generate(ctx context.Context, prompt string) (string, error) {
	response, err := llms.GenerateFromSinglePrompt(ctx, m.llm, prompt)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	return response, nil
}

// ModelName returns the configured model identifier.
func (m *Model) ModelName() string {
	return m.modelName
}
