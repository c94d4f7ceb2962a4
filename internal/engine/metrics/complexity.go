package metrics

import (
	"context"
	"time"
)

const (
	NeutralScore             = 50.0
	DefaultComplexityCeiling = 20.0
)

// ComplexityCalculator maps the average cyclomatic complexity of a
// module's units onto a fixed scale where Ceiling and above is 100.
type ComplexityCalculator struct {
	Ceiling float64
	Timeout time.Duration
}

func (c ComplexityCalculator) Kind() Kind { return KindComplexity }

func (c ComplexityCalculator) Calculate(ctx context.Context, in Input) Result {
	res := Result{Kind: KindComplexity, Module: in.Node.Name}
	fallback := func(reason string) Result {
		res.Score = NeutralScore
		res.Fallback = true
		res.Reason = reason
		return res
	}
	if in.Source == nil {
		return fallback("no source provider")
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	units, err := in.Source.Units(ctx, in.Node)
	if err != nil {
		return fallback(err.Error())
	}
	if len(units) == 0 {
		return fallback("no executable units")
	}

	total := 0
	for _, u := range units {
		total += u.Cyclomatic
	}
	ceiling := c.Ceiling
	if ceiling <= 0 {
		ceiling = DefaultComplexityCeiling
	}

	res.UnitCount = len(units)
	res.AverageComplexity = float64(total) / float64(len(units))
	res.Score = clampScore(res.AverageComplexity / ceiling * 100)
	return res
}
