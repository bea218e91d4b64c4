// Package metrics implements the heuristic trust metrics. Every metric
// is a pure function over gathered evidence; the only exception is the
// dataset quality judgement, which calls an injected text generator.
// Scores are in [0,1], or Unavailable when the backing URL or evidence
// could not be obtained.
package metrics

import (
	"context"

	"github.com/trustreg-labs/trustreg-go/internal/hub"
	"github.com/trustreg-labs/trustreg-go/internal/llm"
)

// Unavailable marks a metric that could not be computed because its
// source URL was absent or invalid. Distinct from a computed zero.
const Unavailable = -1.0

// Sample is one metric result. Breakdown carries per-component scores
// for metrics that have them (the size metric's per-device map).
type Sample struct {
	Score     float64
	Breakdown map[string]float64
}

// Metric computes one trust score from evidence.
type Metric interface {
	Name() string
	Compute(ctx context.Context, ev hub.Evidence) Sample
}

// All returns the full metric set in output order. gen may be nil, in
// which case the dataset quality metric reports Unavailable.
func All(gen llm.Generator) []Metric {
	return []Metric{
		RampUpTime{},
		BusFactor{},
		PerformanceClaims{},
		License{},
		Size{},
		DatasetAndCode{},
		DatasetQuality{Generator: gen},
		CodeQuality{},
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
