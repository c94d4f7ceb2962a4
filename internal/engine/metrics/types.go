// # internal/engine/metrics/types.go
package metrics

import (
	"context"
	"untangle/internal/core/ports"
	"untangle/internal/engine/graph"
)

type Kind string

const (
	KindCoupling    Kind = "coupling"
	KindComplexity  Kind = "complexity"
	KindVersionDebt Kind = "version_debt"
	KindExposure    Kind = "exposure"
)

// Kinds lists every metric in reporting order.
var Kinds = []Kind{KindCoupling, KindComplexity, KindVersionDebt, KindExposure}

// Result is one metric for one module. Score is always in [0,100]; the
// raw fields that apply depend on Kind.
type Result struct {
	Kind     Kind
	Module   string
	Score    float64
	Fallback bool
	Reason   string

	// coupling
	Incoming    int
	Outgoing    int
	RawCoupling int

	// complexity
	AverageComplexity float64
	UnitCount         int

	// version debt
	Platform string
	Version  string
	Timeline string

	// exposure
	Endpoints        int
	MarkerEndpoints  int
	OpenAPIEndpoints int
}

// Set holds the four results of one module.
type Set struct {
	Node        graph.Node
	Coupling    Result
	Complexity  Result
	VersionDebt Result
	Exposure    Result
}

func (s *Set) Get(k Kind) Result {
	switch k {
	case KindCoupling:
		return s.Coupling
	case KindComplexity:
		return s.Complexity
	case KindVersionDebt:
		return s.VersionDebt
	default:
		return s.Exposure
	}
}

func (s *Set) ref(k Kind) *Result {
	switch k {
	case KindCoupling:
		return &s.Coupling
	case KindComplexity:
		return &s.Complexity
	case KindVersionDebt:
		return &s.VersionDebt
	default:
		return &s.Exposure
	}
}

// Input is the read-only view a calculator gets for one module.
type Input struct {
	Node   graph.Node
	Graph  *graph.Graph
	Source ports.SourceProvider
}

// Calculator computes one metric for one module. Implementations must not
// fail: analysis problems resolve to the metric's fallback value.
type Calculator interface {
	Kind() Kind
	Calculate(ctx context.Context, in Input) Result
}

// Finalizer is implemented by calculators whose scores depend on the whole
// run. Finalize is called once after every module has been calculated.
type Finalizer interface {
	Finalize(results []*Result)
}

func clampScore(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
