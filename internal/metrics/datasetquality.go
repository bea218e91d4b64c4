package metrics

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/trustreg-labs/trustreg-go/internal/hub"
	"github.com/trustreg-labs/trustreg-go/internal/llm"
)

const datasetQualityPrompt = `You are a software engineer evaluating machine learning resources.
Judge whether the model's dataset and example code are sufficiently
documented for a new engineer to reuse them.

Dataset link: %s
Example code link: %s

Criteria:
- Is the dataset clearly described (purpose, size, usage)?
- Is there enough code to get started?
- Would a new engineer quickly reuse this resource?

Answer with only a numeric score between 0.0 (poor) and 1.0 (excellent).`

// DatasetQuality asks the injected generator to judge dataset and
// example code documentation. Reports Unavailable when no generator
// is configured or the dataset could not be resolved.
type DatasetQuality struct {
	Generator llm.Generator
}

func (DatasetQuality) Name() string { return "dataset_quality" }

func (m DatasetQuality) Compute(ctx context.Context, ev hub.Evidence) Sample {
	if m.Generator == nil || ev.DatasetURL == "" || ev.DatasetUnavailable {
		return Sample{Score: Unavailable}
	}

	prompt := fmt.Sprintf(datasetQualityPrompt, orNA(ev.DatasetURL), orNA(ev.CodeURL))
	reply, err := m.Generator.Generate(ctx, prompt)
	if err != nil {
		return Sample{Score: Unavailable}
	}

	score, err := strconv.ParseFloat(strings.TrimSpace(reply), 64)
	if err != nil {
		return Sample{Score: Unavailable}
	}
	return Sample{Score: clamp01(score)}
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
