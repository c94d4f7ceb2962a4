package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"untangle/internal/core/config"
	"untangle/internal/engine/graph"
	"untangle/internal/engine/recommend"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func edgeClasses(view DiagramView) map[string]EdgeClass {
	classes := make(map[string]EdgeClass, len(view.Edges))
	for _, e := range view.Edges {
		classes[e.Source+"->"+e.Target] = e.Class
	}
	return classes
}

func TestDiagram_EdgeClassification(t *testing.T) {
	a, _ := newTestApp(t, false)
	res, err := a.Analyze(context.Background())
	require.NoError(t, err)

	view := res.Diagram(0)
	assert.Equal(t, "shop", view.Project)
	assert.Len(t, view.Nodes, 6)
	assert.Equal(t, map[string]EdgeClass{
		"A->B": EdgeCyclic,
		"B->C": EdgeSuggestedBreak,
		"C->A": EdgeCyclic,
		"D->A": EdgeCrossCollection,
		"E->D": EdgeDefault,
	}, edgeClasses(view))

	for _, e := range view.Edges {
		if e.Class == EdgeSuggestedBreak {
			assert.Equal(t, 1, e.BreakRank)
		} else {
			assert.Zero(t, e.BreakRank)
		}
	}
}

func TestDiagram_Nodes(t *testing.T) {
	a, _ := newTestApp(t, false)
	res, err := a.Analyze(context.Background())
	require.NoError(t, err)

	nodes := make(map[string]DiagramNode)
	for _, n := range res.Diagram(0).Nodes {
		nodes[n.Name] = n
	}
	cycleID := res.Cycles.Cycles[0].ID
	for _, name := range []string{"A", "B", "C"} {
		assert.Equal(t, cycleID, nodes[name].CycleID, name)
	}
	assert.Zero(t, nodes["D"].CycleID)
	assert.NotEmpty(t, nodes["D"].Band)
	assert.Equal(t, "tools", nodes["E"].Collection)

	// E -> D -> {A,B,C}; the cycle collapses to one level
	assert.Equal(t, 0, nodes["A"].Depth)
	assert.Equal(t, 1, nodes["D"].Depth)
	assert.Equal(t, 2, nodes["E"].Depth)
}

func TestDiagram_BreakOutranksCyclicOnlyForTopSuggestions(t *testing.T) {
	g := graph.NewGraph()
	for _, n := range []string{"X", "Y"} {
		require.NoError(t, g.AddNode(graph.Node{Name: n}))
	}
	_, err := g.AddEdge(graph.Edge{Source: "X", Target: "Y"})
	require.NoError(t, err)
	_, err = g.AddEdge(graph.Edge{Source: "Y", Target: "X"})
	require.NoError(t, err)
	cycles, err := graph.DetectCycles(context.Background(), g)
	require.NoError(t, err)

	res := &Result{
		Graph:  g,
		Cycles: cycles,
		Suggestions: []recommend.Suggestion{
			{Source: "X", Target: "Y", Rank: 1},
			{Source: "Y", Target: "X", Rank: 2},
		},
	}
	assert.Equal(t, map[string]EdgeClass{
		"X->Y": EdgeSuggestedBreak,
		"Y->X": EdgeCyclic,
	}, edgeClasses(res.Diagram(1)))
	assert.Equal(t, map[string]EdgeClass{
		"X->Y": EdgeSuggestedBreak,
		"Y->X": EdgeSuggestedBreak,
	}, edgeClasses(res.Diagram(0)))
}

func TestDiagram_EmptyResult(t *testing.T) {
	view := (&Result{Project: "p"}).Diagram(10)
	assert.Empty(t, view.Nodes)
	assert.Empty(t, view.Edges)
}

func TestHealthService_Check(t *testing.T) {
	a, dir := newTestApp(t, true)
	health := NewHealthService(a)

	status := health.Check(context.Background())
	assert.Equal(t, "up", status.Status)
	assert.Equal(t, "ok", status.Components["history"])
	assert.Equal(t, "pending", status.Components["last_run"])
	assert.Contains(t, status.Components["parser"], "go")

	_, err := a.Analyze(context.Background())
	require.NoError(t, err)
	status = health.Check(context.Background())
	assert.Equal(t, "up", status.Status)
	assert.Contains(t, status.Components["last_run"], "ok")

	require.NoError(t, os.Remove(filepath.Join(dir, "untangle.graph.json")))
	a.History = nil
	_, err = a.Analyze(context.Background())
	require.Error(t, err)
	status = health.Check(context.Background())
	assert.Equal(t, "degraded", status.Status)
	assert.Contains(t, status.Components["last_run"], "failed")
}

func TestReconfigure(t *testing.T) {
	a, _ := newTestApp(t, false)

	next := config.Default()
	next.Project.Name = "shop"
	next.Ranking.TopN = 2
	next.Scoring.TieBreak = "target"
	next.Project.Root = "elsewhere"
	require.NoError(t, a.Reconfigure(next))

	assert.Equal(t, 2, a.Config.Ranking.TopN)
	assert.Equal(t, recommend.TieBreakTarget, a.tieBreak)
	// restart-only settings keep their startup values
	assert.NotEqual(t, "elsewhere", a.Config.Project.Root)
	assert.Equal(t, []string{"go"}, a.Config.Analysis.Languages)

	bad := config.Default()
	bad.Scoring.Weights.Coupling = 0.9
	assert.Error(t, a.Reconfigure(bad))
	assert.Equal(t, 2, a.Config.Ranking.TopN)
}

func TestHandleChanges_DescriptionFiles(t *testing.T) {
	a, dir := newTestApp(t, false)
	assert.True(t, a.isDescriptionFile(filepath.Join(dir, "untangle.graph.json")))
	assert.True(t, a.isDescriptionFile(filepath.Join(dir, "nested", "UNTANGLE.GRAPH.YAML")))
	assert.False(t, a.isDescriptionFile(filepath.Join(dir, "a", "main.go")))

	extensions, names := a.watchFilters()
	assert.Contains(t, extensions, ".go")
	assert.Contains(t, names, "untangle.graph.toml")
	assert.Contains(t, names, "openapi.yaml")

	assert.Contains(t, a.excludedDirs(), "node_modules")
	assert.Contains(t, a.excludedDirs(), "untangle-report")

	// with no previous run every cached analysis is dropped
	a.HandleChanges([]string{filepath.Join(dir, "a", "main.go")})
}
