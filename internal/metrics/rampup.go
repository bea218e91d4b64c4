package metrics

import (
	"context"
	"strings"

	"github.com/trustreg-labs/trustreg-go/internal/hub"
)

var exampleIndicators = []string{
	"example", "usage", "how to use", "quick start", "getting started",
	"tutorial", "demo", "```python", "```py",
}

var installIndicators = []string{
	"install", "pip install", "conda install", "npm install",
	"setup", "requirements", "dependencies",
}

var quickstartIndicators = []string{
	"quick start", "quickstart", "getting started", "basic usage",
	"simple example", "minimal example",
}

// RampUpTime scores how quickly an engineer could start using the
// model, from README length and the presence of examples, install
// instructions, a quick start, and code snippets.
type RampUpTime struct{}

func (RampUpTime) Name() string { return "ramp_up_time" }

func (RampUpTime) Compute(_ context.Context, ev hub.Evidence) Sample {
	if ev.ModelUnavailable && ev.CodeUnavailable {
		return Sample{Score: Unavailable}
	}

	score := docLengthScore(len(ev.Readme))

	readme := strings.ToLower(ev.Readme)
	if containsAny(readme, exampleIndicators) || ev.HasWidget {
		score += 0.25
	}
	if containsAny(readme, installIndicators) {
		score += 0.2
	}
	if containsAny(readme, quickstartIndicators) {
		score += 0.15
	}
	if strings.Contains(ev.Readme, "```") || strings.Contains(ev.Readme, "from ") {
		score += 0.1
	}

	return Sample{Score: clamp01(score)}
}

func docLengthScore(n int) float64 {
	switch {
	case n > 2000:
		return 0.3
	case n > 1000:
		return 0.25
	case n > 500:
		return 0.2
	case n > 200:
		return 0.15
	case n > 100:
		return 0.1
	default:
		return 0.0
	}
}

func containsAny(s string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(s, needle) {
			return true
		}
	}
	return false
}
