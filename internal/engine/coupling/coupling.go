// # internal/engine/coupling/coupling.go
package coupling

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"untangle/internal/engine/graph"
	"untangle/internal/shared/observability"
)

// FallbackScore is used whenever call sites between two modules cannot be
// counted. Absence of evidence is treated as the weakest coupling.
const FallbackScore = 1

type Strength string

const (
	StrengthWeak   Strength = "weak"
	StrengthMedium Strength = "medium"
	StrengthStrong Strength = "strong"
)

// Classify buckets a coupling score for diagnostics. It plays no part in
// cycle breaking.
func Classify(score int) Strength {
	switch {
	case score >= 21:
		return StrengthStrong
	case score >= 6:
		return StrengthMedium
	default:
		return StrengthWeak
	}
}

// CallCounter counts concrete call sites in source that reach the public
// surface of target.
type CallCounter interface {
	CountCalls(ctx context.Context, source, target graph.Node) (int, error)
}

type EdgeCoupling struct {
	Edge     graph.EdgeID
	Source   string
	Target   string
	Score    int
	Strength Strength
	Fallback bool
	Provided bool // score came with the graph description
	Reason   string
}

type Report struct {
	Edges     []EdgeCoupling
	Measured  int
	Provided  int
	Fallbacks int
}

func (r Report) ByStrength() map[Strength]int {
	counts := make(map[Strength]int, 3)
	for _, e := range r.Edges {
		counts[e.Strength]++
	}
	return counts
}

type Analyzer struct {
	counter CallCounter
	timeout time.Duration
}

type Option func(*Analyzer)

// WithTimeout bounds each (source, target) count. A timed-out count falls
// back like any other failure.
func WithTimeout(d time.Duration) Option {
	return func(a *Analyzer) {
		a.timeout = d
	}
}

func NewAnalyzer(counter CallCounter, opts ...Option) *Analyzer {
	a := &Analyzer{counter: counter}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type pairResult struct {
	score    int
	fallback bool
	reason   string
}

// Analyze annotates every live edge with a coupling score. Counting
// failures never surface as errors; only cancellation does, in which case
// the edges annotated so far keep their scores.
func (a *Analyzer) Analyze(ctx context.Context, g *graph.Graph) (Report, error) {
	report := Report{}
	pairs := make(map[[2]string]pairResult)

	for _, e := range g.Edges() {
		if e.CouplingSet {
			report.Provided++
			report.Edges = append(report.Edges, EdgeCoupling{
				Edge:     e.ID,
				Source:   e.Source,
				Target:   e.Target,
				Score:    e.Coupling,
				Strength: Classify(e.Coupling),
				Fallback: e.Fallback,
				Provided: true,
			})
			continue
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}

		key := [2]string{graph.Key(e.Source), graph.Key(e.Target)}
		res, ok := pairs[key]
		if !ok {
			res = a.count(ctx, g, e)
			if res.fallback && ctx.Err() != nil {
				// Cancellation is not an analysis failure.
				return report, ctx.Err()
			}
			pairs[key] = res
			if res.fallback {
				observability.CouplingFallbackTotal.Inc()
				slog.Warn("coupling analysis unavailable, using fallback score",
					"source", e.Source, "target", e.Target, "score", FallbackScore, "reason", res.reason)
			}
		}

		g.SetCoupling(e.ID, res.score, res.fallback)
		if res.fallback {
			report.Fallbacks++
		} else {
			report.Measured++
		}
		report.Edges = append(report.Edges, EdgeCoupling{
			Edge:     e.ID,
			Source:   e.Source,
			Target:   e.Target,
			Score:    res.score,
			Strength: Classify(res.score),
			Fallback: res.fallback,
			Reason:   res.reason,
		})
	}
	return report, nil
}

func (a *Analyzer) count(ctx context.Context, g *graph.Graph, e graph.Edge) pairResult {
	if a.counter == nil {
		return pairResult{score: FallbackScore, fallback: true, reason: "no call counter configured"}
	}
	source, _ := g.Node(e.Source)
	target, _ := g.Node(e.Target)

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	n, err := a.counter.CountCalls(ctx, source, target)
	if err != nil {
		return pairResult{score: FallbackScore, fallback: true, reason: err.Error()}
	}
	if n < 0 {
		return pairResult{score: FallbackScore, fallback: true, reason: fmt.Sprintf("invalid call count %d", n)}
	}
	return pairResult{score: n}
}
