package metrics

import (
	"context"

	"github.com/trustreg-labs/trustreg-go/internal/hub"
)

// BusFactor scores contributor redundancy in the linked code repo.
type BusFactor struct{}

func (BusFactor) Name() string { return "bus_factor" }

func (BusFactor) Compute(_ context.Context, ev hub.Evidence) Sample {
	if ev.CodeUnavailable {
		return Sample{Score: Unavailable}
	}
	switch {
	case ev.CommitAuthors >= 3:
		return Sample{Score: 1.0}
	case ev.CommitAuthors == 2:
		return Sample{Score: 0.7}
	case ev.CommitAuthors == 1:
		return Sample{Score: 0.4}
	default:
		return Sample{Score: 0.0}
	}
}
