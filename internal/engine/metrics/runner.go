// # internal/engine/metrics/runner.go
package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"
	"untangle/internal/core/ports"
	"untangle/internal/engine/graph"
	"untangle/internal/shared/observability"

	"golang.org/x/sync/errgroup"
)

// Results holds the metric sets of every module that completed, in graph
// insertion order. Excluded modules are never calculated; Skipped ones
// were not reached before cancellation.
type Results struct {
	Sets      []Set
	Excluded  []string
	Skipped   []string
	Fallbacks map[Kind]int
}

// Runner fans metric calculation out across modules. Every module owns one
// slot, so workers never share an accumulator.
type Runner struct {
	workers  int
	source   ports.SourceProvider
	excluded map[string]bool
}

func NewRunner(workers int, source ports.SourceProvider) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{workers: workers, source: source}
}

// Exclude leaves the named modules out of the run, such as framework
// modules the filter cut from the graph. Names match case-insensitively.
func (r *Runner) Exclude(names ...string) *Runner {
	if r.excluded == nil {
		r.excluded = make(map[string]bool, len(names))
	}
	for _, n := range names {
		r.excluded[graph.Key(n)] = true
	}
	return r
}

// Run calculates every metric for every module of g. Cancellation is
// checked before each module starts; modules already started run to
// completion and their results are kept. On cancellation the partial
// results are returned with the context error.
func (r *Runner) Run(ctx context.Context, g *graph.Graph, calculators []Calculator) (Results, error) {
	var excluded []string
	nodes := make([]graph.Node, 0, g.NodeCount())
	for _, n := range g.Nodes() {
		if r.excluded[n.Key()] {
			excluded = append(excluded, n.Name)
			continue
		}
		nodes = append(nodes, n)
	}
	slots := make([]Set, len(nodes))
	done := make([]bool, len(nodes))

	// Work inside a module is not interrupted by run cancellation.
	moduleCtx := context.WithoutCancel(ctx)

	var eg errgroup.Group
	eg.SetLimit(r.workers)
	for i, node := range nodes {
		if ctx.Err() != nil {
			break
		}
		eg.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			in := Input{Node: node, Graph: g, Source: r.source}
			slots[i].Node = node
			for _, calc := range calculators {
				res := safeCalculate(moduleCtx, calc, in)
				res.Kind = calc.Kind()
				res.Module = node.Name
				if res.Fallback {
					slog.Warn("metric fallback", "metric", res.Kind, "module", node.Name, "reason", res.Reason)
					observability.MetricFallbackTotal.WithLabelValues(string(res.Kind)).Inc()
				}
				*slots[i].ref(calc.Kind()) = res
			}
			done[i] = true
			return nil
		})
	}
	_ = eg.Wait()

	results := Results{Excluded: excluded, Fallbacks: make(map[Kind]int)}
	for i := range slots {
		if !done[i] {
			results.Skipped = append(results.Skipped, nodes[i].Name)
			continue
		}
		results.Sets = append(results.Sets, slots[i])
	}

	for _, calc := range calculators {
		fin, ok := calc.(Finalizer)
		if !ok {
			continue
		}
		refs := make([]*Result, 0, len(results.Sets))
		for i := range results.Sets {
			refs = append(refs, results.Sets[i].ref(calc.Kind()))
		}
		fin.Finalize(refs)
	}

	for _, set := range results.Sets {
		for _, k := range Kinds {
			if res := set.Get(k); res.Fallback {
				results.Fallbacks[k]++
			}
		}
	}

	if len(results.Skipped) > 0 {
		slog.Warn("metric run cancelled", "completed", len(results.Sets), "skipped", len(results.Skipped))
		return results, ctx.Err()
	}
	return results, nil
}

// safeCalculate turns a calculator panic into that metric's fallback so
// one bad module cannot abort the run.
func safeCalculate(ctx context.Context, calc Calculator, in Input) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("metric calculator panicked", "metric", calc.Kind(), "module", in.Node.Name,
				"panic", r, "stack", string(debug.Stack()))
			res = Result{
				Kind:     calc.Kind(),
				Module:   in.Node.Name,
				Score:    FallbackScore(calc.Kind()),
				Fallback: true,
				Reason:   fmt.Sprintf("calculator panicked: %v", r),
			}
		}
	}()
	return calc.Calculate(ctx, in)
}

// FallbackScore is the documented value a metric degrades to when its
// analysis is unavailable.
func FallbackScore(k Kind) float64 {
	switch k {
	case KindComplexity, KindVersionDebt:
		return NeutralScore
	default:
		return 0
	}
}

// DefaultCalculators returns the four standard calculators.
func DefaultCalculators(ceiling float64, timelines []Timeline, markers []string, opts ...CalculatorOption) []Calculator {
	cfg := calculatorConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	return []Calculator{
		CouplingCalculator{},
		ComplexityCalculator{Ceiling: ceiling, Timeout: cfg.timeout},
		VersionDebtCalculator{Timelines: timelines},
		NewExposureCalculator(markers, cfg.timeout),
	}
}

type calculatorConfig struct {
	timeout time.Duration
}

type CalculatorOption func(*calculatorConfig)

// WithUnitTimeout bounds the source analysis of one module.
func WithUnitTimeout(d time.Duration) CalculatorOption {
	return func(c *calculatorConfig) { c.timeout = d }
}
