package metrics

import (
	"context"
	"math"

	"github.com/trustreg-labs/trustreg-go/internal/hub"
)

// Devices and their approximate model weight ceilings in MB.
var deviceThresholds = []struct {
	Device string
	MaxMB  float64
}{
	{"raspberry_pi", 50},
	{"jetson_nano", 200},
	{"desktop_pc", 2000},
	{"aws_server", 10000},
}

// Size scores how well the model's weight footprint fits each target
// device. The overall score is the average; Breakdown holds the
// per-device map for the output schema.
type Size struct{}

func (Size) Name() string { return "size_score" }

func (Size) Compute(_ context.Context, ev hub.Evidence) Sample {
	if ev.ModelUnavailable {
		return Sample{Score: Unavailable}
	}

	breakdown := make(map[string]float64, len(deviceThresholds))
	var sum float64
	for _, dt := range deviceThresholds {
		score := deviceScore(ev.WeightSizeMB, dt.MaxMB)
		breakdown[dt.Device] = score
		sum += score
	}
	return Sample{
		Score:     sum / float64(len(deviceThresholds)),
		Breakdown: breakdown,
	}
}

func deviceScore(sizeMB, maxMB float64) float64 {
	var score float64
	if sizeMB <= maxMB {
		// Smaller models score higher within the budget.
		score = 0.5 + 0.5*(1-sizeMB/maxMB)
	} else {
		score = math.Max(0, 1-(sizeMB-maxMB)/(2*maxMB))
	}
	return math.Round(score*100) / 100
}
