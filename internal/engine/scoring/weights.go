// # internal/engine/scoring/weights.go
package scoring

import (
	"math"
	"untangle/internal/core/errors"
)

// WeightTolerance is how far the weight sum may drift from 1.0.
const WeightTolerance = 0.001

// Weights sets how much each metric contributes to the final score.
type Weights struct {
	Coupling    float64 `toml:"coupling" json:"coupling"`
	Complexity  float64 `toml:"complexity" json:"complexity"`
	VersionDebt float64 `toml:"version_debt" json:"version_debt"`
	Exposure    float64 `toml:"exposure" json:"exposure"`
}

func DefaultWeights() Weights {
	return Weights{Coupling: 0.4, Complexity: 0.3, VersionDebt: 0.2, Exposure: 0.1}
}

func (w Weights) Sum() float64 {
	return w.Coupling + w.Complexity + w.VersionDebt + w.Exposure
}

func (w Weights) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"coupling", w.Coupling},
		{"complexity", w.Complexity},
		{"version_debt", w.VersionDebt},
		{"exposure", w.Exposure},
	}
	for _, f := range fields {
		if f.value < 0 || math.IsNaN(f.value) {
			err := errors.Newf(errors.CodeInvalidConfig, "weight %s must not be negative", f.name)
			return errors.AddContext(err, errors.CtxField, "scoring.weights."+f.name)
		}
	}
	if sum := w.Sum(); math.Abs(sum-1.0) > WeightTolerance {
		err := errors.Newf(errors.CodeInvalidConfig, "weights must sum to 1.0, got %.4f", sum)
		return errors.AddContext(err, errors.CtxField, "scoring.weights")
	}
	return nil
}
