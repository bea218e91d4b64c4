package scoring

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Weights maps metric names to their contribution in the net score.
// Metrics missing from the map use weight 1.
type Weights map[string]float64

// DefaultWeights weighs every metric equally.
func DefaultWeights() Weights {
	return Weights{
		"ramp_up_time":           1,
		"bus_factor":             1,
		"performance_claims":     1,
		"license":                1,
		"size_score":             1,
		"dataset_and_code_score": 1,
		"dataset_quality":        1,
		"code_quality":           1,
	}
}

// LoadWeights reads a YAML file of metric-name to weight mappings.
func LoadWeights(path string) (Weights, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read weights: %w", err)
	}
	var w Weights
	if err := yaml.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("parse weights: %w", err)
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w Weights) Validate() error {
	known := DefaultWeights()
	for name, weight := range w {
		if _, ok := known[name]; !ok {
			return fmt.Errorf("unknown metric %q in weights", name)
		}
		if weight < 0 {
			return fmt.Errorf("metric %q has negative weight %v", name, weight)
		}
	}
	return nil
}

func (w Weights) of(name string) float64 {
	if w == nil {
		return 1
	}
	weight, ok := w[name]
	if !ok {
		return 1
	}
	return weight
}
