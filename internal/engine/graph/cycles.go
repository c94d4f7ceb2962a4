// # internal/engine/graph/cycles.go
package graph

import (
	"context"
	"math"
	"sort"
	"untangle/internal/shared/observability"
)

// CycleInfo is one strongly connected component with more than one member.
// Members are ordered by graph insertion order.
type CycleInfo struct {
	ID      int
	Members []Node

	keys map[string]bool

	weak    []Edge
	weakSet bool
}

func (c *CycleInfo) Size() int {
	return len(c.Members)
}

func (c *CycleInfo) Contains(name string) bool {
	return c.keys[Key(name)]
}

func (c *CycleInfo) MemberNames() []string {
	names := make([]string, len(c.Members))
	for i, m := range c.Members {
		names[i] = m.Name
	}
	return names
}

// InternalEdges returns the live edges whose endpoints both belong to the
// cycle, in graph insertion order. Self-loops are skipped.
func (c *CycleInfo) InternalEdges(g *Graph) []Edge {
	var internal []Edge
	for _, m := range c.Members {
		for _, e := range g.OutEdges(m.Name) {
			if e.SelfLoop() || !c.Contains(e.Target) {
				continue
			}
			internal = append(internal, e)
		}
	}
	sort.SliceStable(internal, func(i, j int) bool { return internal[i].ID < internal[j].ID })
	return internal
}

// SetWeakEdges stores the weak-edge annotation. It is the only mutation a
// CycleInfo accepts after detection.
func (c *CycleInfo) SetWeakEdges(edges []Edge) {
	c.weak = append([]Edge(nil), edges...)
	c.weakSet = true
}

// WeakEdges returns the annotation and whether it has been computed.
func (c *CycleInfo) WeakEdges() ([]Edge, bool) {
	return c.weak, c.weakSet
}

type CycleStats struct {
	TotalCycles          int
	NodesInCycles        int
	TotalNodes           int
	ParticipationPercent float64
	LargestCycle         int
}

type CycleReport struct {
	Cycles []*CycleInfo
	Stats  CycleStats
}

// CycleOf returns the cycle containing the named module, if any.
func (r CycleReport) CycleOf(name string) (*CycleInfo, bool) {
	for _, c := range r.Cycles {
		if c.Contains(name) {
			return c, true
		}
	}
	return nil, false
}

type tarjanFrame struct {
	node int
	next int
}

// DetectCycles runs an iterative Tarjan SCC pass over the live edges. Roots
// and out-edges are visited in insertion order, so cycle IDs are stable for
// a given input. The context is checked between roots; on cancellation the
// cycles completed so far are returned together with the context error.
func DetectCycles(ctx context.Context, g *Graph) (CycleReport, error) {
	n := len(g.nodes)
	index := make([]int, n) // 0 means unvisited
	low := make([]int, n)
	onStack := make([]bool, n)
	stack := make([]int, 0, n)
	counter := 0

	var cycles []*CycleInfo
	visit := func(v int) {
		counter++
		index[v] = counter
		low[v] = counter
		stack = append(stack, v)
		onStack[v] = true
	}

	var err error
	for root := 0; root < n; root++ {
		if index[root] != 0 {
			continue
		}
		if err = ctx.Err(); err != nil {
			break
		}

		visit(root)
		call := []tarjanFrame{{node: root}}
		for len(call) > 0 {
			top := &call[len(call)-1]
			v := top.node
			if top.next < len(g.out[v]) {
				id := g.out[v][top.next]
				top.next++
				if g.removed[id] {
					continue
				}
				w := g.ends[id][1]
				if w == v {
					continue
				}
				if index[w] == 0 {
					visit(w)
					call = append(call, tarjanFrame{node: w})
				} else if onStack[w] && index[w] < low[v] {
					low[v] = index[w]
				}
				continue
			}

			if low[v] == index[v] {
				var members []int
				for {
					w := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					onStack[w] = false
					members = append(members, w)
					if w == v {
						break
					}
				}
				if len(members) > 1 {
					cycles = append(cycles, g.newCycle(len(cycles)+1, members))
				}
			}
			call = call[:len(call)-1]
			if len(call) > 0 {
				parent := call[len(call)-1].node
				if low[v] < low[parent] {
					low[parent] = low[v]
				}
			}
		}
	}

	report := CycleReport{Cycles: cycles, Stats: computeStats(cycles, n)}
	observability.CyclesDetected.Set(float64(report.Stats.TotalCycles))
	observability.CycleParticipation.Set(report.Stats.ParticipationPercent)
	return report, err
}

func (g *Graph) newCycle(id int, members []int) *CycleInfo {
	sort.Ints(members)
	c := &CycleInfo{
		ID:      id,
		Members: make([]Node, len(members)),
		keys:    make(map[string]bool, len(members)),
	}
	for i, idx := range members {
		c.Members[i] = g.nodes[idx]
		c.keys[g.nodes[idx].Key()] = true
	}
	return c
}

func computeStats(cycles []*CycleInfo, totalNodes int) CycleStats {
	stats := CycleStats{TotalCycles: len(cycles), TotalNodes: totalNodes}
	distinct := make(map[string]bool)
	for _, c := range cycles {
		if c.Size() > stats.LargestCycle {
			stats.LargestCycle = c.Size()
		}
		for key := range c.keys {
			distinct[key] = true
		}
	}
	stats.NodesInCycles = len(distinct)
	if totalNodes > 0 {
		pct := float64(stats.NodesInCycles) / float64(totalNodes) * 100
		stats.ParticipationPercent = math.Round(pct*10) / 10
	}
	return stats
}
