package hub

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/trustreg-labs/trustreg-go/internal/ingest"
	"github.com/trustreg-labs/trustreg-go/internal/platform/env"
)

// Gatherer collects Evidence for one classified row. Implementations
// must treat every fetch as best effort: a row always yields an
// Evidence value, never an error.
type Gatherer interface {
	Gather(ctx context.Context, row ingest.Row) Evidence
}

// Config holds endpoints and credentials for the hub client. Base URLs
// are overridable so tests can point at local servers.
type Config struct {
	HFBaseURL     string
	GitHubBaseURL string
	HFToken       string
	GitHubToken   string
	Timeout       time.Duration
}

func ConfigFromEnv() (Config, error) {
	timeout, err := env.Duration("TRUSTREG_HUB_TIMEOUT", 10*time.Second)
	if err != nil {
		return Config{}, err
	}
	return Config{
		HFBaseURL:     env.String("TRUSTREG_HF_BASE_URL", "https://huggingface.co"),
		GitHubBaseURL: env.String("TRUSTREG_GITHUB_BASE_URL", "https://api.github.com"),
		HFToken:       env.String("HF_TOKEN", ""),
		GitHubToken:   env.String("GITHUB_TOKEN", ""),
		Timeout:       timeout,
	}, nil
}

// Client fetches model cards from the Hugging Face API and repository
// evidence from the GitHub REST API.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config, httpClient *http.Client, logger *slog.Logger) *Client {
	if cfg.HFBaseURL == "" {
		cfg.HFBaseURL = "https://huggingface.co"
	}
	if cfg.GitHubBaseURL == "" {
		cfg.GitHubBaseURL = "https://api.github.com"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{cfg: cfg, http: httpClient, logger: logger}
}

// Gather fetches everything the metrics need for one row. Failures of
// individual sources are recorded through the Unavailable flags.
func (c *Client) Gather(ctx context.Context, row ingest.Row) Evidence {
	ev := Evidence{
		Name:       row.Name,
		Category:   row.Category,
		ModelURL:   row.ModelURL,
		DatasetURL: row.DatasetURL,
		CodeURL:    row.CodeURL,
	}

	c.gatherModel(ctx, &ev)
	c.gatherDataset(ctx, &ev)
	c.gatherCode(ctx, &ev)

	return ev
}

type hfSibling struct {
	Rfilename string `json:"rfilename"`
	Size      int64  `json:"size"`
}

type hfCard struct {
	ID         string          `json:"id"`
	Downloads  int64           `json:"downloads"`
	Likes      int64           `json:"likes"`
	Tags       []string        `json:"tags"`
	CardData   map[string]any  `json:"cardData"`
	Siblings   []hfSibling     `json:"siblings"`
	WidgetData json.RawMessage `json:"widgetData"`
}

type hfDatasetSplit struct {
	NumExamples int64 `json:"num_examples"`
}

func (c *Client) gatherModel(ctx context.Context, ev *Evidence) {
	info := DetectURL(ev.ModelURL)
	if info.Kind != KindHuggingFace || info.Repo == "" {
		ev.ModelUnavailable = true
		return
	}

	var card hfCard
	url := fmt.Sprintf("%s/api/models/%s?blobs=true", c.cfg.HFBaseURL, info.HFRepoID())
	if err := c.getJSON(ctx, url, c.hfHeaders(), &card); err != nil {
		c.logger.Debug("model card fetch failed", "url", ev.ModelURL, "error", err)
		ev.ModelUnavailable = true
		return
	}

	ev.Tags = card.Tags
	ev.Downloads = card.Downloads
	ev.Likes = card.Likes
	ev.License = hfLicense(card)
	ev.HasWidget = len(card.WidgetData) > 0 && string(card.WidgetData) != "null"
	if card.CardData != nil {
		if _, ok := card.CardData["model-index"]; ok {
			ev.HasModelIndex = true
		}
	}
	for _, tag := range card.Tags {
		if strings.HasPrefix(tag, "arxiv:") || strings.Contains(tag, "paperswithcode") {
			ev.HasPaper = true
			break
		}
	}
	ev.WeightSizeMB = weightSizeMB(card.Siblings)

	readmeURL := fmt.Sprintf("%s/%s/raw/main/README.md", c.cfg.HFBaseURL, info.HFRepoID())
	if readme, err := c.getText(ctx, readmeURL, nil); err == nil {
		ev.Readme = readme
	}
}

func (c *Client) gatherDataset(ctx context.Context, ev *Evidence) {
	if ev.DatasetURL == "" {
		ev.DatasetUnavailable = true
		return
	}
	info := DetectURL(ev.DatasetURL)
	if info.Kind != KindHuggingFaceDataset || info.Repo == "" {
		// A non-hub dataset can still be judged by the LLM metric,
		// card fields just stay empty.
		return
	}

	var card hfCard
	url := fmt.Sprintf("%s/api/datasets/%s", c.cfg.HFBaseURL, info.HFRepoID())
	if err := c.getJSON(ctx, url, c.hfHeaders(), &card); err != nil {
		c.logger.Debug("dataset card fetch failed", "url", ev.DatasetURL, "error", err)
		ev.DatasetUnavailable = true
		return
	}

	ev.DatasetDownloads = card.Downloads
	ev.DatasetLikes = card.Likes
	ev.DatasetExamples = datasetExamples(card.CardData)
}

func (c *Client) gatherCode(ctx context.Context, ev *Evidence) {
	if ev.CodeURL == "" {
		ev.CodeUnavailable = true
		return
	}
	info := DetectURL(ev.CodeURL)
	if info.Kind != KindGitHub {
		ev.CodeUnavailable = true
		return
	}

	repo := info.Owner + "/" + info.Repo
	gotAny := false

	var commits []struct {
		Commit struct {
			Author struct {
				Name  string `json:"name"`
				Email string `json:"email"`
			} `json:"author"`
		} `json:"commit"`
	}
	commitsURL := fmt.Sprintf("%s/repos/%s/commits", c.cfg.GitHubBaseURL, repo)
	if err := c.getJSON(ctx, commitsURL, c.ghHeaders(), &commits); err == nil {
		gotAny = true
		authors := make(map[string]struct{})
		for _, cm := range commits {
			name := cm.Commit.Author.Name
			email := cm.Commit.Author.Email
			switch {
			case name != "" && name != "GitHub" && name != "github-actions[bot]":
				authors[name] = struct{}{}
			case email != "" && email != "noreply@github.com":
				authors[email] = struct{}{}
			}
		}
		ev.CommitAuthors = len(authors)
	}

	var tree struct {
		Tree []struct {
			Path string `json:"path"`
			Type string `json:"type"`
		} `json:"tree"`
	}
	treeURL := fmt.Sprintf("%s/repos/%s/git/trees/HEAD?recursive=1", c.cfg.GitHubBaseURL, repo)
	if err := c.getJSON(ctx, treeURL, c.ghHeaders(), &tree); err == nil {
		gotAny = true
		for _, entry := range tree.Tree {
			if entry.Type == "tree" {
				continue
			}
			inspectPath(&ev.Repo, strings.ToLower(entry.Path))
		}
	}

	var readme struct {
		Content string `json:"content"`
	}
	readmeURL := fmt.Sprintf("%s/repos/%s/readme", c.cfg.GitHubBaseURL, repo)
	if err := c.getJSON(ctx, readmeURL, c.ghHeaders(), &readme); err == nil {
		gotAny = true
		if decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(readme.Content, "\n", "")); err == nil {
			if ev.Readme != "" {
				ev.Readme += "\n"
			}
			ev.Readme += string(decoded)
		}
	}

	if !gotAny {
		ev.CodeUnavailable = true
	}
}

func inspectPath(inv *RepoInventory, p string) {
	base := path.Base(p)

	if strings.HasPrefix(p, "tests/") || strings.Contains(p, "/tests/") ||
		strings.HasPrefix(base, "test_") || strings.HasSuffix(base, "_test.go") ||
		strings.HasSuffix(base, ".test.js") || strings.HasSuffix(base, ".test.ts") {
		inv.HasTests = true
	}
	if strings.HasPrefix(p, ".github/workflows") || strings.HasSuffix(p, ".travis.yml") ||
		strings.HasSuffix(p, "circleci/config.yml") || strings.HasSuffix(p, "azure-pipelines.yml") {
		inv.HasCI = true
	}
	switch base {
	case ".flake8", "pyproject.toml", ".golangci.yml", ".golangci.yaml", ".eslintrc", ".eslintrc.json":
		inv.HasLint = true
	}
	switch base {
	case "readme.md", "readme.rst", "readme":
		if !strings.Contains(p, "/") {
			inv.HasReadme = true
		}
	}
	switch base {
	case "setup.py", "pyproject.toml", "package.json", "cargo.toml", "go.mod":
		if !strings.Contains(p, "/") {
			inv.HasPackaging = true
		}
	}
	switch path.Ext(base) {
	case ".py", ".go", ".js", ".ts", ".c", ".cc", ".cpp", ".rs", ".java":
		inv.SourceFiles++
	}
}

var weightExtensions = map[string]struct{}{
	".bin": {}, ".safetensors": {}, ".h5": {}, ".onnx": {},
	".pt": {}, ".pth": {}, ".ckpt": {}, ".gguf": {}, ".msgpack": {},
}

func weightSizeMB(siblings []hfSibling) float64 {
	var total int64
	for _, s := range siblings {
		if _, ok := weightExtensions[path.Ext(s.Rfilename)]; ok {
			total += s.Size
		}
	}
	return float64(total) / (1 << 20)
}

func hfLicense(card hfCard) string {
	if card.CardData != nil {
		switch v := card.CardData["license"].(type) {
		case string:
			return v
		case []any:
			parts := make([]string, 0, len(v))
			for _, item := range v {
				if s, ok := item.(string); ok {
					parts = append(parts, s)
				}
			}
			return strings.Join(parts, ", ")
		}
	}
	for _, tag := range card.Tags {
		if rest, ok := strings.CutPrefix(tag, "license:"); ok {
			return rest
		}
	}
	return ""
}

func datasetExamples(cardData map[string]any) int64 {
	if cardData == nil {
		return 0
	}
	var total int64
	var walk func(v any)
	walk = func(v any) {
		switch t := v.(type) {
		case map[string]any:
			if splits, ok := t["splits"].([]any); ok {
				for _, s := range splits {
					if m, ok := s.(map[string]any); ok {
						if n, ok := m["num_examples"].(float64); ok {
							total += int64(n)
						}
					}
				}
				return
			}
		case []any:
			for _, item := range t {
				walk(item)
			}
		}
	}
	walk(cardData["dataset_info"])
	return total
}

func (c *Client) hfHeaders() map[string]string {
	if c.cfg.HFToken == "" {
		return nil
	}
	return map[string]string{"Authorization": "Bearer " + c.cfg.HFToken}
}

func (c *Client) ghHeaders() map[string]string {
	h := map[string]string{"Accept": "application/vnd.github.v3+json"}
	if c.cfg.GitHubToken != "" {
		h["Authorization"] = "token " + c.cfg.GitHubToken
	}
	return h
}

func (c *Client) getJSON(ctx context.Context, url string, headers map[string]string, out any) error {
	body, err := c.get(ctx, url, headers)
	if err != nil {
		return err
	}
	defer body.Close()
	if err := json.NewDecoder(body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}

func (c *Client) getText(ctx context.Context, url string, headers map[string]string) (string, error) {
	body, err := c.get(ctx, url, headers)
	if err != nil {
		return "", err
	}
	defer body.Close()
	data, err := io.ReadAll(io.LimitReader(body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", url, err)
	}
	return string(data), nil
}

func (c *Client) get(ctx context.Context, url string, headers map[string]string) (io.ReadCloser, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		cancel()
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		cancel()
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}
	return &cancelReadCloser{ReadCloser: resp.Body, cancel: cancel}, nil
}

type cancelReadCloser struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelReadCloser) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

// Offline never touches the network; every source is reported
// unavailable. Used by the CLI --offline flag and in tests.
type Offline struct{}

func (Offline) Gather(_ context.Context, row ingest.Row) Evidence {
	return Evidence{
		Name:               row.Name,
		Category:           row.Category,
		ModelURL:           row.ModelURL,
		DatasetURL:         row.DatasetURL,
		CodeURL:            row.CodeURL,
		ModelUnavailable:   true,
		DatasetUnavailable: row.DatasetURL == "",
		CodeUnavailable:    true,
	}
}
