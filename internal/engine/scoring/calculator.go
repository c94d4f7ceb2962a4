package scoring

import (
	"untangle/internal/engine/metrics"
)

// ExtractionScore is the weighted difficulty of extracting one module.
// Lower is easier.
type ExtractionScore struct {
	Module      string
	Path        string
	Collection  string
	Final       float64
	Band        Band
	Coupling    metrics.Result
	Complexity  metrics.Result
	VersionDebt metrics.Result
	Exposure    metrics.Result
}

// Fallbacks lists the metrics that degraded to their fallback values.
func (s ExtractionScore) Fallbacks() []metrics.Kind {
	var kinds []metrics.Kind
	for _, r := range []metrics.Result{s.Coupling, s.Complexity, s.VersionDebt, s.Exposure} {
		if r.Fallback {
			kinds = append(kinds, r.Kind)
		}
	}
	return kinds
}

type Calculator struct {
	weights Weights
}

// NewCalculator rejects invalid weights so that scoring itself never fails.
func NewCalculator(w Weights) (*Calculator, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &Calculator{weights: w}, nil
}

func (c *Calculator) Weights() Weights { return c.weights }

func (c *Calculator) Score(set metrics.Set) ExtractionScore {
	final := set.Coupling.Score*c.weights.Coupling +
		set.Complexity.Score*c.weights.Complexity +
		set.VersionDebt.Score*c.weights.VersionDebt +
		set.Exposure.Score*c.weights.Exposure
	final = clamp(final)

	return ExtractionScore{
		Module:      set.Node.Name,
		Path:        set.Node.Path,
		Collection:  set.Node.Collection,
		Final:       final,
		Band:        BandOf(final),
		Coupling:    set.Coupling,
		Complexity:  set.Complexity,
		VersionDebt: set.VersionDebt,
		Exposure:    set.Exposure,
	}
}

func (c *Calculator) ScoreAll(sets []metrics.Set) []ExtractionScore {
	scores := make([]ExtractionScore, len(sets))
	for i, set := range sets {
		scores[i] = c.Score(set)
	}
	return scores
}

func clamp(v float64) float64 {
	return max(0, min(100, v))
}
