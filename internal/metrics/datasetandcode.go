package metrics

import (
	"context"
	"math"
	"strings"

	"github.com/trustreg-labs/trustreg-go/internal/hub"
)

var mlIntegrationTags = []string{
	"transformers", "pytorch", "tensorflow", "tf", "jax",
	"task_categories:", "task_ids:", "pipeline_tag",
}

// DatasetAndCode scores how reusable the model's documentation,
// dataset, and linked code are as a package: card documentation depth,
// code examples, framework integration, license presence, and
// community engagement.
type DatasetAndCode struct{}

func (DatasetAndCode) Name() string { return "dataset_and_code_score" }

func (DatasetAndCode) Compute(_ context.Context, ev hub.Evidence) Sample {
	if ev.ModelUnavailable {
		return Sample{Score: Unavailable}
	}

	var score float64

	switch n := len(ev.Readme); {
	case n > 200:
		score += 0.30
	case n > 100:
		score += 0.20
	case n > 50:
		score += 0.10
	}

	if strings.Contains(ev.Readme, "```") || strings.Contains(ev.Readme, "from ") {
		score += 0.25
	}

	if hasMLIntegration(ev.Tags) {
		score += 0.20
	}

	lic := strings.ToLower(ev.License)
	if lic != "" && lic != "unknown" && lic != "none" {
		if containsAny(lic, []string{"apache", "mit", "bsd", "gpl", "cc", "mozilla"}) {
			score += 0.15
		} else {
			score += 0.08
		}
	}

	score += math.Min(float64(ev.Downloads)/1000, 0.10)
	score += math.Min(float64(ev.Likes)/100, 0.05)

	return Sample{Score: clamp01(score)}
}

func hasMLIntegration(tags []string) bool {
	for _, tag := range tags {
		lower := strings.ToLower(tag)
		for _, indicator := range mlIntegrationTags {
			if strings.Contains(lower, indicator) {
				return true
			}
		}
	}
	return false
}
