package app

import (
	"strings"
	"untangle/internal/engine/graph"
	"untangle/internal/engine/scoring"
)

type EdgeClass string

const (
	EdgeDefault         EdgeClass = "default"
	EdgeCrossCollection EdgeClass = "cross-collection"
	EdgeCyclic          EdgeClass = "cyclic"
	EdgeSuggestedBreak  EdgeClass = "suggested-break"
)

type DiagramNode struct {
	Name       string
	Collection string
	Platform   string
	// Band is empty when the module has no score, e.g. after cancellation.
	Band    scoring.Band
	Score   float64
	CycleID int // 0 when the module is not in a cycle
	Depth   int
}

type DiagramEdge struct {
	Source   string
	Target   string
	Kind     graph.EdgeKind
	Coupling int
	Class    EdgeClass
	// BreakRank is the suggestion rank of a suggested-break edge.
	BreakRank int
}

// DiagramView is the filtered graph as renderers see it.
type DiagramView struct {
	Project string
	Nodes   []DiagramNode
	Edges   []DiagramEdge
}

// Diagram builds the render view of the result. Only the top suggestions
// are marked as breaks; top <= 0 marks all of them.
func (r *Result) Diagram(top int) DiagramView {
	view := DiagramView{Project: r.Project}
	if r.Graph == nil {
		return view
	}

	scores := make(map[string]scoring.ExtractionScore, len(r.Scores))
	for _, s := range r.Scores {
		scores[graph.Key(s.Module)] = s
	}
	cycleOf := make(map[string]int)
	for _, c := range r.Cycles.Cycles {
		for _, m := range c.Members {
			cycleOf[m.Key()] = c.ID
		}
	}
	depths := r.Graph.Depths()

	nodes := r.Graph.Nodes()
	byKey := make(map[string]graph.Node, len(nodes))
	for _, n := range nodes {
		byKey[n.Key()] = n
		dn := DiagramNode{
			Name:       n.Name,
			Collection: n.Collection,
			Platform:   n.Platform,
			CycleID:    cycleOf[n.Key()],
			Depth:      depths[n.Name],
		}
		if s, ok := scores[n.Key()]; ok {
			dn.Band = s.Band
			dn.Score = s.Final
		}
		view.Nodes = append(view.Nodes, dn)
	}

	breaks := make(map[[2]string]int)
	for _, s := range r.TopSuggestions(top) {
		key := [2]string{graph.Key(s.Source), graph.Key(s.Target)}
		if _, seen := breaks[key]; !seen {
			breaks[key] = s.Rank
		}
	}

	for _, e := range r.Graph.Edges() {
		de := DiagramEdge{
			Source:   e.Source,
			Target:   e.Target,
			Kind:     e.Kind,
			Coupling: e.Coupling,
		}
		de.Class, de.BreakRank = classifyEdge(e, byKey, cycleOf, breaks)
		view.Edges = append(view.Edges, de)
	}
	return view
}

// classifyEdge applies the precedence suggested-break, cyclic,
// cross-collection, default.
func classifyEdge(e graph.Edge, nodes map[string]graph.Node, cycleOf map[string]int, breaks map[[2]string]int) (EdgeClass, int) {
	src, tgt := graph.Key(e.Source), graph.Key(e.Target)
	if rank, ok := breaks[[2]string{src, tgt}]; ok {
		return EdgeSuggestedBreak, rank
	}
	if c := cycleOf[src]; c != 0 && c == cycleOf[tgt] {
		return EdgeCyclic, 0
	}
	if crossesCollections(e, nodes[src], nodes[tgt]) {
		return EdgeCrossCollection, 0
	}
	return EdgeDefault, 0
}

func crossesCollections(e graph.Edge, src, tgt graph.Node) bool {
	if e.Collection != "" {
		return true
	}
	a, b := strings.TrimSpace(src.Collection), strings.TrimSpace(tgt.Collection)
	return a != "" && b != "" && !strings.EqualFold(a, b)
}
