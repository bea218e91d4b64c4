package metrics

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/trustreg-labs/trustreg-go/internal/hub"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestLicense(t *testing.T) {
	cases := []struct {
		name string
		ev   hub.Evidence
		want float64
	}{
		{"unavailable", hub.Evidence{ModelUnavailable: true}, Unavailable},
		{"missing", hub.Evidence{}, 0.0},
		{"permissive", hub.Evidence{License: "apache-2.0"}, 1.0},
		{"permissive mixed case", hub.Evidence{License: "MIT"}, 1.0},
		{"copyleft", hub.Evidence{License: "gpl-3.0"}, 0.7},
		{"custom", hub.Evidence{License: "custom-openrail"}, 0.5},
		{"unrecognized", hub.Evidence{License: "llama2"}, 0.2},
		{"multi license", hub.Evidence{License: "cc-by-4.0, mit"}, 1.0},
	}
	for _, tc := range cases {
		got := License{}.Compute(context.Background(), tc.ev)
		if !almostEqual(got.Score, tc.want) {
			t.Errorf("%s: score = %v, want %v", tc.name, got.Score, tc.want)
		}
	}
}

func TestSize(t *testing.T) {
	s := Size{}.Compute(context.Background(), hub.Evidence{WeightSizeMB: 100})
	if s.Breakdown == nil {
		t.Fatal("size metric must carry a per-device breakdown")
	}
	// 100 MB: over the pi budget, under the rest.
	if got := s.Breakdown["raspberry_pi"]; !almostEqual(got, 0.5) {
		t.Errorf("raspberry_pi = %v, want 0.5", got)
	}
	if got := s.Breakdown["jetson_nano"]; !almostEqual(got, 0.75) {
		t.Errorf("jetson_nano = %v, want 0.75", got)
	}
	if got := s.Breakdown["desktop_pc"]; !almostEqual(got, 0.98) {
		t.Errorf("desktop_pc = %v, want 0.98", got)
	}
	if got := s.Breakdown["aws_server"]; !almostEqual(got, 1.0) {
		t.Errorf("aws_server = %v, want 1.0", got)
	}
	want := (0.5 + 0.75 + 0.98 + 1.0) / 4
	if !almostEqual(s.Score, want) {
		t.Errorf("overall = %v, want %v", s.Score, want)
	}

	// Far over every budget drops to zero.
	huge := Size{}.Compute(context.Background(), hub.Evidence{WeightSizeMB: 1e6})
	if huge.Breakdown["raspberry_pi"] != 0 {
		t.Errorf("oversize pi score = %v, want 0", huge.Breakdown["raspberry_pi"])
	}

	unavailable := Size{}.Compute(context.Background(), hub.Evidence{ModelUnavailable: true})
	if unavailable.Score != Unavailable {
		t.Errorf("unavailable score = %v", unavailable.Score)
	}
}

func TestBusFactor(t *testing.T) {
	cases := []struct {
		authors int
		want    float64
	}{
		{0, 0.0}, {1, 0.4}, {2, 0.7}, {3, 1.0}, {10, 1.0},
	}
	for _, tc := range cases {
		got := BusFactor{}.Compute(context.Background(), hub.Evidence{CommitAuthors: tc.authors})
		if !almostEqual(got.Score, tc.want) {
			t.Errorf("authors=%d: score = %v, want %v", tc.authors, got.Score, tc.want)
		}
	}
	got := BusFactor{}.Compute(context.Background(), hub.Evidence{CodeUnavailable: true, CommitAuthors: 5})
	if got.Score != Unavailable {
		t.Errorf("no code repo: score = %v, want sentinel", got.Score)
	}
}

func TestRampUpTime(t *testing.T) {
	readme := strings.Repeat("x", 2100) + "\n## Installation\npip install demo\n## Quick Start\n```python\nimport demo\n```"
	got := RampUpTime{}.Compute(context.Background(), hub.Evidence{Readme: readme})
	// 0.3 length + 0.25 examples + 0.2 install + 0.15 quickstart + 0.1 snippets, capped.
	if !almostEqual(got.Score, 1.0) {
		t.Errorf("rich readme score = %v, want 1.0", got.Score)
	}

	bare := RampUpTime{}.Compute(context.Background(), hub.Evidence{Readme: "short"})
	if !almostEqual(bare.Score, 0.0) {
		t.Errorf("bare readme score = %v, want 0", bare.Score)
	}

	widget := RampUpTime{}.Compute(context.Background(), hub.Evidence{HasWidget: true})
	if !almostEqual(widget.Score, 0.25) {
		t.Errorf("widget-only score = %v, want 0.25", widget.Score)
	}

	unavailable := RampUpTime{}.Compute(context.Background(), hub.Evidence{ModelUnavailable: true, CodeUnavailable: true})
	if unavailable.Score != Unavailable {
		t.Errorf("no sources: score = %v, want sentinel", unavailable.Score)
	}
}

func TestCodeQuality(t *testing.T) {
	full := CodeQuality{}.Compute(context.Background(), hub.Evidence{
		Repo: hub.RepoInventory{
			HasTests: true, HasCI: true, HasLint: true,
			HasReadme: true, HasPackaging: true, SourceFiles: 40,
		},
	})
	if !almostEqual(full.Score, 1.0) {
		t.Errorf("full inventory score = %v, want 1.0", full.Score)
	}

	partial := CodeQuality{}.Compute(context.Background(), hub.Evidence{
		Repo: hub.RepoInventory{HasTests: true, SourceFiles: 10},
	})
	want := 0.30 + 0.15*0.5
	if !almostEqual(partial.Score, want) {
		t.Errorf("partial score = %v, want %v", partial.Score, want)
	}

	unavailable := CodeQuality{}.Compute(context.Background(), hub.Evidence{CodeUnavailable: true})
	if unavailable.Score != Unavailable {
		t.Errorf("no code repo: score = %v, want sentinel", unavailable.Score)
	}
}

type fakeGenerator struct {
	reply string
	err   error
}

func (f fakeGenerator) Generate(context.Context, string) (string, error) {
	return f.reply, f.err
}

func TestDatasetQuality(t *testing.T) {
	ev := hub.Evidence{DatasetURL: "https://huggingface.co/datasets/squad"}

	got := DatasetQuality{Generator: fakeGenerator{reply: "0.8"}}.Compute(context.Background(), ev)
	if !almostEqual(got.Score, 0.8) {
		t.Errorf("score = %v, want 0.8", got.Score)
	}

	clamped := DatasetQuality{Generator: fakeGenerator{reply: "1.7"}}.Compute(context.Background(), ev)
	if !almostEqual(clamped.Score, 1.0) {
		t.Errorf("clamped score = %v, want 1.0", clamped.Score)
	}

	garbage := DatasetQuality{Generator: fakeGenerator{reply: "excellent"}}.Compute(context.Background(), ev)
	if garbage.Score != Unavailable {
		t.Errorf("unparseable reply: score = %v, want sentinel", garbage.Score)
	}

	failed := DatasetQuality{Generator: fakeGenerator{err: errors.New("boom")}}.Compute(context.Background(), ev)
	if failed.Score != Unavailable {
		t.Errorf("generator error: score = %v, want sentinel", failed.Score)
	}

	noGen := DatasetQuality{}.Compute(context.Background(), ev)
	if noGen.Score != Unavailable {
		t.Errorf("no generator: score = %v, want sentinel", noGen.Score)
	}

	noDataset := DatasetQuality{Generator: fakeGenerator{reply: "0.9"}}.Compute(context.Background(), hub.Evidence{})
	if noDataset.Score != Unavailable {
		t.Errorf("no dataset url: score = %v, want sentinel", noDataset.Score)
	}
}

func TestDatasetAndCode(t *testing.T) {
	rich := hub.Evidence{
		Readme:    strings.Repeat("docs ", 50) + "\n```python\nimport m\n```",
		Tags:      []string{"pytorch", "license:apache-2.0"},
		License:   "apache-2.0",
		Downloads: 100000,
		Likes:     1000,
	}
	got := DatasetAndCode{}.Compute(context.Background(), rich)
	// Components sum past 1.0 and are capped.
	if !almostEqual(got.Score, 1.0) {
		t.Errorf("rich score = %v, want 1.0", got.Score)
	}

	modest := hub.Evidence{
		Readme:  strings.Repeat("docs ", 50),
		License: "llama2",
	}
	gotModest := DatasetAndCode{}.Compute(context.Background(), modest)
	if !almostEqual(gotModest.Score, 0.30+0.08) {
		t.Errorf("modest score = %v, want 0.38", gotModest.Score)
	}

	empty := DatasetAndCode{}.Compute(context.Background(), hub.Evidence{})
	if !almostEqual(empty.Score, 0.0) {
		t.Errorf("empty score = %v, want 0", empty.Score)
	}

	unavailable := DatasetAndCode{}.Compute(context.Background(), hub.Evidence{ModelUnavailable: true})
	if unavailable.Score != Unavailable {
		t.Errorf("unavailable score = %v", unavailable.Score)
	}
}

func TestPerformanceClaims(t *testing.T) {
	all := PerformanceClaims{}.Compute(context.Background(), hub.Evidence{
		HasModelIndex: true, HasPaper: true, HasWidget: true,
	})
	if !almostEqual(all.Score, 1.0) {
		t.Errorf("full evidence score = %v, want 1.0", all.Score)
	}

	paperOnly := PerformanceClaims{}.Compute(context.Background(), hub.Evidence{HasPaper: true})
	if !almostEqual(paperOnly.Score, 0.4) {
		t.Errorf("paper-only score = %v, want 0.4", paperOnly.Score)
	}

	none := PerformanceClaims{}.Compute(context.Background(), hub.Evidence{})
	if !almostEqual(none.Score, 0.0) {
		t.Errorf("no evidence score = %v, want 0", none.Score)
	}

	unavailable := PerformanceClaims{}.Compute(context.Background(), hub.Evidence{ModelUnavailable: true})
	if unavailable.Score != Unavailable {
		t.Errorf("unavailable score = %v", unavailable.Score)
	}
}

func TestAllMetricNames(t *testing.T) {
	want := []string{
		"ramp_up_time", "bus_factor", "performance_claims", "license",
		"size_score", "dataset_and_code_score", "dataset_quality", "code_quality",
	}
	all := All(nil)
	if len(all) != len(want) {
		t.Fatalf("got %d metrics, want %d", len(all), len(want))
	}
	for i, m := range all {
		if m.Name() != want[i] {
			t.Errorf("metric %d = %q, want %q", i, m.Name(), want[i])
		}
	}
}
