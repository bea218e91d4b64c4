package metrics

import (
	"context"
	"math"

	"github.com/trustreg-labs/trustreg-go/internal/hub"
)

// CodeQuality scores the linked repository's hygiene from its file
// inventory: tests 0.30, CI 0.25, lint config 0.15, source file count
// 0.15 (full credit at 20 files), readme plus packaging 0.15.
type CodeQuality struct{}

func (CodeQuality) Name() string { return "code_quality" }

func (CodeQuality) Compute(_ context.Context, ev hub.Evidence) Sample {
	if ev.CodeUnavailable {
		return Sample{Score: Unavailable}
	}

	inv := ev.Repo
	var score float64
	if inv.HasTests {
		score += 0.30
	}
	if inv.HasCI {
		score += 0.25
	}
	if inv.HasLint {
		score += 0.15
	}
	if inv.SourceFiles > 0 {
		score += 0.15 * math.Min(1, float64(inv.SourceFiles)/20)
	}
	switch {
	case inv.HasReadme && inv.HasPackaging:
		score += 0.15
	case inv.HasReadme || inv.HasPackaging:
		score += 0.075
	}

	return Sample{Score: clamp01(score)}
}
