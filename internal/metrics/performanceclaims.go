package metrics

import (
	"context"

	"github.com/trustreg-labs/trustreg-go/internal/hub"
)

// PerformanceClaims scores published evidence of model performance:
// evaluation results in the model index 0.4, a linked paper 0.4,
// runnable benchmark widgets 0.2.
type PerformanceClaims struct{}

func (PerformanceClaims) Name() string { return "performance_claims" }

func (PerformanceClaims) Compute(_ context.Context, ev hub.Evidence) Sample {
	if ev.ModelUnavailable {
		return Sample{Score: Unavailable}
	}

	var score float64
	if ev.HasModelIndex {
		score += 0.4
	}
	if ev.HasPaper {
		score += 0.4
	}
	if ev.HasWidget {
		score += 0.2
	}
	return Sample{Score: clamp01(score)}
}
