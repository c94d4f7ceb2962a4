// # internal/engine/graph/graph.go
package graph

import (
	"strings"
	"untangle/internal/core/errors"
	"untangle/internal/shared/observability"
)

type EdgeKind string

const (
	KindModuleReference EdgeKind = "module"
	KindBinaryReference EdgeKind = "binary"
)

// Node is one analyzable module. Nodes are value objects and never change
// after they are added to a graph.
type Node struct {
	Name       string
	Path       string
	Platform   string
	Collection string
}

func (n Node) Key() string {
	return Key(n.Name)
}

// Key returns the case-insensitive comparison key for a module name.
func Key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

type EdgeID int

type Edge struct {
	ID     EdgeID
	Source string
	Target string
	Kind   EdgeKind

	Coupling    int
	CouplingSet bool
	Fallback    bool // coupling came from the fallback policy

	// Collection marks the edge as owned by a specific collection when it
	// crosses collection boundaries.
	Collection string
}

func (e Edge) SelfLoop() bool {
	return Key(e.Source) == Key(e.Target)
}

// SamePair reports whether two edges connect the same (source, target)
// pair, ignoring kind.
func (e Edge) SamePair(other Edge) bool {
	return Key(e.Source) == Key(other.Source) && Key(e.Target) == Key(other.Target)
}

// Graph is a directed multigraph of modules stored in insertion-ordered
// arenas. Edge removal tombstones the arena slot and detaches it from the
// adjacency lists; node indexes stay valid for the lifetime of the graph.
//
// A Graph is owned by a single goroutine while it is being built and
// filtered. Concurrent readers are fine once mutation stops.
type Graph struct {
	nodes []Node
	index map[string]int // key -> arena index

	edges   []Edge
	ends    [][2]int // arena indexes of source and target
	removed []bool
	live    int

	out     [][]EdgeID
	in      [][]EdgeID
	deadOut []int
	deadIn  []int
}

func NewGraph() *Graph {
	return NewGraphWithCapacity(64)
}

func NewGraphWithCapacity(capacity int) *Graph {
	return &Graph{
		nodes:   make([]Node, 0, capacity),
		index:   make(map[string]int, capacity),
		out:     make([][]EdgeID, 0, capacity),
		in:      make([][]EdgeID, 0, capacity),
		deadOut: make([]int, 0, capacity),
		deadIn:  make([]int, 0, capacity),
	}
}

func (g *Graph) AddNode(n Node) error {
	key := n.Key()
	if key == "" {
		return errors.New(errors.CodeValidationError, "module name must not be empty")
	}
	if idx, ok := g.index[key]; ok {
		if g.nodes[idx] == n {
			return nil
		}
		return &DuplicateNodeError{Name: n.Name, Existing: g.nodes[idx]}
	}

	g.index[key] = len(g.nodes)
	g.nodes = append(g.nodes, n)
	g.out = append(g.out, nil)
	g.in = append(g.in, nil)
	g.deadOut = append(g.deadOut, 0)
	g.deadIn = append(g.deadIn, 0)
	observability.GraphNodes.Set(float64(len(g.nodes)))
	return nil
}

// AddEdge inserts a dependency between two existing nodes. Endpoint names
// are resolved case-insensitively and stored using the node's own spelling.
func (g *Graph) AddEdge(e Edge) (EdgeID, error) {
	src, srcOK := g.index[Key(e.Source)]
	dst, dstOK := g.index[Key(e.Target)]
	if !srcOK || !dstOK {
		missing := e.Source
		if srcOK {
			missing = e.Target
		}
		return -1, &DanglingEdgeError{Source: e.Source, Target: e.Target, Missing: missing}
	}
	if e.Kind == "" {
		e.Kind = KindModuleReference
	}
	if e.Coupling < 0 {
		e.Coupling = 0
	}

	id := EdgeID(len(g.edges))
	e.ID = id
	e.Source = g.nodes[src].Name
	e.Target = g.nodes[dst].Name
	g.edges = append(g.edges, e)
	g.ends = append(g.ends, [2]int{src, dst})
	g.removed = append(g.removed, false)
	g.out[src] = append(g.out[src], id)
	g.in[dst] = append(g.in[dst], id)
	g.live++
	observability.GraphEdges.Set(float64(g.live))
	return id, nil
}

// RemoveEdges removes every live edge matching pred and returns how many
// were removed. Nodes are never removed, so isolated modules still count
// toward node totals.
func (g *Graph) RemoveEdges(pred func(Edge) bool) int {
	count := 0
	for i := range g.edges {
		if g.removed[i] || !pred(g.edges[i]) {
			continue
		}
		g.removed[i] = true
		g.live--
		count++

		src, dst := g.ends[i][0], g.ends[i][1]
		g.deadOut[src]++
		g.deadIn[dst]++
		if g.deadOut[src]*2 > len(g.out[src]) {
			g.out[src] = g.compact(g.out[src])
			g.deadOut[src] = 0
		}
		if g.deadIn[dst]*2 > len(g.in[dst]) {
			g.in[dst] = g.compact(g.in[dst])
			g.deadIn[dst] = 0
		}
	}
	if count > 0 {
		observability.GraphEdges.Set(float64(g.live))
	}
	return count
}

func (g *Graph) compact(ids []EdgeID) []EdgeID {
	kept := ids[:0]
	for _, id := range ids {
		if !g.removed[id] {
			kept = append(kept, id)
		}
	}
	return kept
}

func (g *Graph) OutEdges(name string) []Edge {
	idx, ok := g.index[Key(name)]
	if !ok {
		return nil
	}
	return g.collect(g.out[idx])
}

func (g *Graph) InEdges(name string) []Edge {
	idx, ok := g.index[Key(name)]
	if !ok {
		return nil
	}
	return g.collect(g.in[idx])
}

func (g *Graph) collect(ids []EdgeID) []Edge {
	result := make([]Edge, 0, len(ids))
	for _, id := range ids {
		if !g.removed[id] {
			result = append(result, g.edges[id])
		}
	}
	return result
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []Node {
	return append([]Node(nil), g.nodes...)
}

// Edges returns all live edges in insertion order.
func (g *Graph) Edges() []Edge {
	result := make([]Edge, 0, g.live)
	for i, e := range g.edges {
		if !g.removed[i] {
			result = append(result, e)
		}
	}
	return result
}

func (g *Graph) Node(name string) (Node, bool) {
	idx, ok := g.index[Key(name)]
	if !ok {
		return Node{}, false
	}
	return g.nodes[idx], true
}

func (g *Graph) HasNode(name string) bool {
	_, ok := g.index[Key(name)]
	return ok
}

func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

func (g *Graph) EdgeCount() int {
	return g.live
}

// FindEdge returns the first live edge for the (source, target) pair,
// whatever its kind.
func (g *Graph) FindEdge(source, target string) (Edge, bool) {
	idx, ok := g.index[Key(source)]
	if !ok {
		return Edge{}, false
	}
	dst, ok := g.index[Key(target)]
	if !ok {
		return Edge{}, false
	}
	for _, id := range g.out[idx] {
		if !g.removed[id] && g.ends[id][1] == dst {
			return g.edges[id], true
		}
	}
	return Edge{}, false
}

func (g *Graph) Edge(id EdgeID) (Edge, bool) {
	if id < 0 || int(id) >= len(g.edges) || g.removed[id] {
		return Edge{}, false
	}
	return g.edges[id], true
}

// SetCoupling records the coupling score of a live edge. It reports false
// when the edge does not exist or was removed.
func (g *Graph) SetCoupling(id EdgeID, score int, fallback bool) bool {
	if id < 0 || int(id) >= len(g.edges) || g.removed[id] {
		return false
	}
	if score < 0 {
		score = 0
	}
	g.edges[id].Coupling = score
	g.edges[id].CouplingSet = true
	g.edges[id].Fallback = fallback
	return true
}

// Neighbors returns the distinct modules a node depends on and the distinct
// modules depending on it, excluding itself.
func (g *Graph) Neighbors(name string) (dependencies, dependents []string) {
	idx, ok := g.index[Key(name)]
	if !ok {
		return nil, nil
	}
	seen := make(map[string]bool)
	for _, id := range g.out[idx] {
		if g.removed[id] {
			continue
		}
		e := g.edges[id]
		k := Key(e.Target)
		if k == g.nodes[idx].Key() || seen[k] {
			continue
		}
		seen[k] = true
		dependencies = append(dependencies, e.Target)
	}
	clear(seen)
	for _, id := range g.in[idx] {
		if g.removed[id] {
			continue
		}
		e := g.edges[id]
		k := Key(e.Source)
		if k == g.nodes[idx].Key() || seen[k] {
			continue
		}
		seen[k] = true
		dependents = append(dependents, e.Source)
	}
	return dependencies, dependents
}
