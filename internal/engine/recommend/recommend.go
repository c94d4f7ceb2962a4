// # internal/engine/recommend/recommend.go
package recommend

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"untangle/internal/core/errors"
	"untangle/internal/engine/graph"
)

type TieBreak string

const (
	TieBreakSource TieBreak = "source"
	TieBreakTarget TieBreak = "target"
	TieBreakCycle  TieBreak = "cycle"
)

func ParseTieBreak(s string) (TieBreak, error) {
	switch tb := TieBreak(strings.ToLower(strings.TrimSpace(s))); tb {
	case "":
		return TieBreakSource, nil
	case TieBreakSource, TieBreakTarget, TieBreakCycle:
		return tb, nil
	default:
		return "", errors.Newf(errors.CodeInvalidConfig, "unknown tie break %q (want source, target or cycle)", s)
	}
}

type Suggestion struct {
	CycleID   int
	Source    string
	Target    string
	Coupling  int
	CycleSize int
	Fallback  bool
	Rationale string
	Rank      int
}

type Options struct {
	TieBreak TieBreak
}

// Rationale explains why an edge is the recommended cut point.
func Rationale(cycleSize, coupling int) string {
	noun := "calls"
	if coupling == 1 {
		noun = "call"
	}
	return fmt.Sprintf("Weakest link in %d-project cycle, only %d method %s", cycleSize, coupling, noun)
}

// WeakEdges returns the cycle-internal edges tied at the lowest coupling
// score. Parallel edges between the same pair are reported once.
func WeakEdges(g *graph.Graph, cycle *graph.CycleInfo) []graph.Edge {
	internal := cycle.InternalEdges(g)
	if len(internal) == 0 {
		return nil
	}
	lowest := internal[0].Coupling
	for _, e := range internal[1:] {
		if e.Coupling < lowest {
			lowest = e.Coupling
		}
	}

	var weak []graph.Edge
	seen := make(map[[2]string]bool)
	for _, e := range internal {
		if e.Coupling != lowest {
			continue
		}
		key := [2]string{graph.Key(e.Source), graph.Key(e.Target)}
		if seen[key] {
			continue
		}
		seen[key] = true
		weak = append(weak, e)
	}
	return weak
}

// Recommend annotates each cycle with its weak edges and returns one
// suggestion per weak edge, ranked globally. Nothing is truncated here.
// When ctx is cancelled the suggestions built so far are still ranked and
// returned with the context error.
func Recommend(ctx context.Context, g *graph.Graph, cycles []*graph.CycleInfo, opts Options) ([]Suggestion, error) {
	var suggestions []Suggestion
	var err error
	for _, c := range cycles {
		if err = ctx.Err(); err != nil {
			break
		}
		weak, ok := c.WeakEdges()
		if !ok {
			weak = WeakEdges(g, c)
			c.SetWeakEdges(weak)
		}
		for _, e := range weak {
			suggestions = append(suggestions, Suggestion{
				CycleID:   c.ID,
				Source:    e.Source,
				Target:    e.Target,
				Coupling:  e.Coupling,
				CycleSize: c.Size(),
				Fallback:  e.Fallback,
				Rationale: Rationale(c.Size(), e.Coupling),
			})
		}
	}
	Rank(suggestions, opts.TieBreak)
	return suggestions, err
}

// Rank sorts suggestions by coupling ascending then cycle size descending,
// applies the tiebreak, and assigns ranks 1..N.
func Rank(suggestions []Suggestion, tb TieBreak) {
	sort.SliceStable(suggestions, func(i, j int) bool {
		a, b := suggestions[i], suggestions[j]
		if a.Coupling != b.Coupling {
			return a.Coupling < b.Coupling
		}
		if a.CycleSize != b.CycleSize {
			return a.CycleSize > b.CycleSize
		}
		return tieLess(a, b, tb)
	})
	for i := range suggestions {
		suggestions[i].Rank = i + 1
	}
}

func tieLess(a, b Suggestion, tb TieBreak) bool {
	as, bs := strings.ToLower(a.Source), strings.ToLower(b.Source)
	at, bt := strings.ToLower(a.Target), strings.ToLower(b.Target)
	switch tb {
	case TieBreakTarget:
		if at != bt {
			return at < bt
		}
	case TieBreakCycle:
		if a.CycleID != b.CycleID {
			return a.CycleID < b.CycleID
		}
	}
	if as != bs {
		return as < bs
	}
	if at != bt {
		return at < bt
	}
	return a.CycleID < b.CycleID
}

// Top returns at most n suggestions; n <= 0 returns all of them.
func Top(suggestions []Suggestion, n int) []Suggestion {
	if n <= 0 || n >= len(suggestions) {
		return suggestions
	}
	return suggestions[:n]
}

// BreakSet returns the (source, target) keys of the given suggestions, for
// diagram edge classification.
func BreakSet(suggestions []Suggestion) map[[2]string]bool {
	set := make(map[[2]string]bool, len(suggestions))
	for _, s := range suggestions {
		set[[2]string{graph.Key(s.Source), graph.Key(s.Target)}] = true
	}
	return set
}
