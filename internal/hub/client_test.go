package hub

import (
	"context"
	"encoding/base64"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/trustreg-labs/trustreg-go/internal/ingest"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		HFBaseURL:     srv.URL,
		GitHubBaseURL: srv.URL,
		Timeout:       2 * time.Second,
	}, srv.Client(), testLogger())
}

func TestGatherModelCard(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/models/openai/whisper-tiny", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"id": "openai/whisper-tiny",
			"downloads": 42000,
			"likes": 310,
			"tags": ["pytorch", "license:apache-2.0", "arxiv:2212.04356"],
			"cardData": {"license": "apache-2.0", "model-index": [{"name": "whisper"}]},
			"siblings": [
				{"rfilename": "model.safetensors", "size": 157286400},
				{"rfilename": "README.md", "size": 2048}
			],
			"widgetData": [{"example_title": "hello"}]
		}`))
	})
	mux.HandleFunc("GET /openai/whisper-tiny/raw/main/README.md", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("# Whisper\n\nInstall with pip install whisper."))
	})

	c := newTestClient(t, mux)
	ev := c.Gather(context.Background(), ingest.Row{
		ModelURL: "https://huggingface.co/openai/whisper-tiny",
		Name:     "whisper-tiny",
		Category: ingest.CategoryModel,
	})

	if ev.ModelUnavailable {
		t.Fatal("model marked unavailable")
	}
	if ev.License != "apache-2.0" {
		t.Errorf("license = %q", ev.License)
	}
	if !ev.HasModelIndex || !ev.HasPaper || !ev.HasWidget {
		t.Errorf("evidence flags = index=%v paper=%v widget=%v", ev.HasModelIndex, ev.HasPaper, ev.HasWidget)
	}
	if ev.WeightSizeMB != 150 {
		t.Errorf("weight size = %v MB, want 150", ev.WeightSizeMB)
	}
	if ev.Readme == "" {
		t.Error("readme not fetched")
	}
	if !ev.DatasetUnavailable {
		t.Error("empty dataset slot should be unavailable")
	}
	if !ev.CodeUnavailable {
		t.Error("empty code slot should be unavailable")
	}
}

func TestGatherModelFetchFailure(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	ev := c.Gather(context.Background(), ingest.Row{
		ModelURL: "https://huggingface.co/ghost/missing",
		Category: ingest.CategoryModel,
	})
	if !ev.ModelUnavailable {
		t.Error("failed fetch should mark model unavailable")
	}
}

func TestGatherGitHubEvidence(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/models/openai/whisper-tiny", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"openai/whisper-tiny"}`))
	})
	mux.HandleFunc("GET /repos/openai/whisper/commits", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"commit": {"author": {"name": "alice", "email": "alice@example.com"}}},
			{"commit": {"author": {"name": "bob", "email": "bob@example.com"}}},
			{"commit": {"author": {"name": "alice", "email": "alice@example.com"}}},
			{"commit": {"author": {"name": "github-actions[bot]", "email": ""}}}
		]`))
	})
	mux.HandleFunc("GET /repos/openai/whisper/git/trees/HEAD", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"tree": [
			{"path": "README.md", "type": "blob"},
			{"path": "pyproject.toml", "type": "blob"},
			{"path": ".github/workflows/ci.yml", "type": "blob"},
			{"path": "tests/test_model.py", "type": "blob"},
			{"path": "whisper/model.py", "type": "blob"},
			{"path": "whisper/audio.py", "type": "blob"}
		]}`))
	})
	mux.HandleFunc("GET /repos/openai/whisper/readme", func(w http.ResponseWriter, r *http.Request) {
		content := base64.StdEncoding.EncodeToString([]byte("# Whisper\n\n```python\nimport whisper\n```"))
		w.Write([]byte(`{"content": "` + content + `"}`))
	})

	c := newTestClient(t, mux)
	ev := c.Gather(context.Background(), ingest.Row{
		ModelURL: "https://huggingface.co/openai/whisper-tiny",
		CodeURL:  "https://github.com/openai/whisper",
		Category: ingest.CategoryModel,
	})

	if ev.CodeUnavailable {
		t.Fatal("code marked unavailable")
	}
	if ev.CommitAuthors != 2 {
		t.Errorf("commit authors = %d, want 2", ev.CommitAuthors)
	}
	inv := ev.Repo
	if !inv.HasTests || !inv.HasCI || !inv.HasLint || !inv.HasReadme || !inv.HasPackaging {
		t.Errorf("inventory = %+v", inv)
	}
	if inv.SourceFiles != 3 {
		t.Errorf("source files = %d, want 3", inv.SourceFiles)
	}
	if ev.Readme == "" {
		t.Error("github readme not merged")
	}
}

func TestGatherDatasetCard(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/models/openai/whisper-tiny", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"openai/whisper-tiny"}`))
	})
	mux.HandleFunc("GET /api/datasets/rajpurkar/squad", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"id": "rajpurkar/squad",
			"downloads": 9000,
			"likes": 120,
			"cardData": {"dataset_info": {"splits": [
				{"name": "train", "num_examples": 87599},
				{"name": "validation", "num_examples": 10570}
			]}}
		}`))
	})

	c := newTestClient(t, mux)
	ev := c.Gather(context.Background(), ingest.Row{
		ModelURL:   "https://huggingface.co/openai/whisper-tiny",
		DatasetURL: "https://huggingface.co/datasets/rajpurkar/squad",
		Category:   ingest.CategoryModel,
	})

	if ev.DatasetUnavailable {
		t.Fatal("dataset marked unavailable")
	}
	if ev.DatasetExamples != 98169 {
		t.Errorf("dataset examples = %d, want 98169", ev.DatasetExamples)
	}
	if ev.DatasetDownloads != 9000 || ev.DatasetLikes != 120 {
		t.Errorf("downloads/likes = %d/%d", ev.DatasetDownloads, ev.DatasetLikes)
	}
}

func TestGatherNonHubDatasetKeepsURL(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	ev := c.Gather(context.Background(), ingest.Row{
		ModelURL:   "https://huggingface.co/openai/whisper-tiny",
		DatasetURL: "https://data.example/ds1",
		Category:   ingest.CategoryModel,
	})
	if ev.DatasetUnavailable {
		t.Error("direct dataset URL should stay available for downstream judgement")
	}
	if ev.DatasetURL != "https://data.example/ds1" {
		t.Errorf("dataset url = %q", ev.DatasetURL)
	}
}

func TestOfflineGatherer(t *testing.T) {
	ev := Offline{}.Gather(context.Background(), ingest.Row{
		ModelURL:   "https://huggingface.co/openai/whisper-tiny",
		DatasetURL: "https://data.example/ds1",
		CodeURL:    "https://github.com/openai/whisper",
		Name:       "whisper-tiny",
		Category:   ingest.CategoryModel,
	})
	if !ev.ModelUnavailable || !ev.CodeUnavailable {
		t.Error("offline gatherer must mark remote sources unavailable")
	}
	if ev.Name != "whisper-tiny" || ev.DatasetURL != "https://data.example/ds1" {
		t.Errorf("row identity not carried: %+v", ev)
	}
}
