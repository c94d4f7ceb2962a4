package graph

import (
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Depths returns, for every module, the length of the longest dependency
// chain below it. Modules in the same cycle are collapsed into one
// condensation vertex and share a depth; leaves have depth 0.
func (g *Graph) Depths() map[string]int {
	full := simple.NewDirectedGraph()
	for i := range g.nodes {
		full.AddNode(simple.Node(int64(i)))
	}
	for i, e := range g.ends {
		if g.removed[i] || e[0] == e[1] {
			continue
		}
		full.SetEdge(simple.Edge{F: simple.Node(int64(e[0])), T: simple.Node(int64(e[1]))})
	}

	component := make([]int64, len(g.nodes))
	condensed := simple.NewDirectedGraph()
	for c, scc := range topo.TarjanSCC(full) {
		condensed.AddNode(simple.Node(int64(c)))
		for _, n := range scc {
			component[n.ID()] = int64(c)
		}
	}
	for i, e := range g.ends {
		if g.removed[i] {
			continue
		}
		from, to := component[e[0]], component[e[1]]
		if from != to && !condensed.HasEdgeFromTo(from, to) {
			condensed.SetEdge(simple.Edge{F: simple.Node(from), T: simple.Node(to)})
		}
	}

	order, err := topo.Sort(condensed)
	if err != nil {
		// The condensation is acyclic by construction.
		return nil
	}
	depth := make(map[int64]int, len(order))
	for i := len(order) - 1; i >= 0; i-- {
		id := order[i].ID()
		best := 0
		succ := condensed.From(id)
		for succ.Next() {
			if d := depth[succ.Node().ID()] + 1; d > best {
				best = d
			}
		}
		depth[id] = best
	}

	result := make(map[string]int, len(g.nodes))
	for i, n := range g.nodes {
		result[n.Name] = depth[component[i]]
	}
	return result
}
