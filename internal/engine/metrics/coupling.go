package metrics

import (
	"context"
)

// CouplingCalculator weighs incoming dependencies twice as heavily as
// outgoing ones and normalizes against the most coupled module of the run.
type CouplingCalculator struct{}

func (CouplingCalculator) Kind() Kind { return KindCoupling }

func (CouplingCalculator) Calculate(_ context.Context, in Input) Result {
	deps, dependents := in.Graph.Neighbors(in.Node.Name)
	raw := len(dependents)*2 + len(deps)
	return Result{
		Kind:        KindCoupling,
		Module:      in.Node.Name,
		Incoming:    len(dependents),
		Outgoing:    len(deps),
		RawCoupling: raw,
	}
}

func (CouplingCalculator) Finalize(results []*Result) {
	maxRaw := 0
	for _, r := range results {
		if c := min(100, r.RawCoupling); c > maxRaw {
			maxRaw = c
		}
	}
	for _, r := range results {
		if maxRaw == 0 {
			r.Score = 0
			continue
		}
		r.Score = clampScore(float64(min(100, r.RawCoupling)) / float64(maxRaw) * 100)
	}
}
