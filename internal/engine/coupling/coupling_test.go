package coupling

import (
	"context"
	"errors"
	"testing"
	"time"
	"untangle/internal/engine/graph"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCounter struct {
	counts map[string]int
	calls  int
	cancel context.CancelFunc
}

func (s *stubCounter) CountCalls(ctx context.Context, source, target graph.Node) (int, error) {
	s.calls++
	if s.cancel != nil {
		s.cancel()
		return 0, ctx.Err()
	}
	n, ok := s.counts[source.Name+"->"+target.Name]
	if !ok {
		return 0, errors.New("no source for module")
	}
	return n, nil
}

func buildGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.NewGraph()
	for _, n := range []string{"A", "B", "C"} {
		require.NoError(t, g.AddNode(graph.Node{Name: n}))
	}
	for _, e := range [][2]string{{"A", "B"}, {"B", "C"}, {"C", "A"}, {"A", "B"}} {
		_, err := g.AddEdge(graph.Edge{Source: e[0], Target: e[1]})
		require.NoError(t, err)
	}
	return g
}

func TestClassify(t *testing.T) {
	assert.Equal(t, StrengthWeak, Classify(0))
	assert.Equal(t, StrengthWeak, Classify(1))
	assert.Equal(t, StrengthWeak, Classify(5))
	assert.Equal(t, StrengthMedium, Classify(6))
	assert.Equal(t, StrengthMedium, Classify(20))
	assert.Equal(t, StrengthStrong, Classify(21))
}

func TestAnalyze_MeasuredAndFallback(t *testing.T) {
	g := buildGraph(t)
	counter := &stubCounter{counts: map[string]int{"A->B": 12, "B->C": 0}}

	report, err := NewAnalyzer(counter).Analyze(context.Background(), g)
	require.NoError(t, err)
	require.Len(t, report.Edges, 4)

	// The parallel A->B edge reuses the first count.
	assert.Equal(t, 3, counter.calls)
	assert.Equal(t, 3, report.Measured)
	assert.Equal(t, 1, report.Fallbacks)

	ab, _ := g.FindEdge("A", "B")
	assert.Equal(t, 12, ab.Coupling)
	assert.False(t, ab.Fallback)

	bc, _ := g.FindEdge("B", "C")
	assert.Equal(t, 0, bc.Coupling)
	assert.True(t, bc.CouplingSet)

	ca, _ := g.FindEdge("C", "A")
	assert.Equal(t, FallbackScore, ca.Coupling)
	assert.True(t, ca.Fallback)
	assert.Equal(t, "no source for module", report.Edges[2].Reason)

	assert.Equal(t, map[Strength]int{StrengthMedium: 2, StrengthWeak: 2}, report.ByStrength())
}

func TestAnalyze_NilCounterFallsBack(t *testing.T) {
	g := buildGraph(t)
	report, err := NewAnalyzer(nil).Analyze(context.Background(), g)
	require.NoError(t, err)
	assert.Equal(t, 4, report.Fallbacks)
	for _, e := range g.Edges() {
		assert.Equal(t, 1, e.Coupling)
		assert.True(t, e.Fallback)
	}
}

func TestAnalyze_KeepsProvidedScores(t *testing.T) {
	g := buildGraph(t)
	ab, _ := g.FindEdge("A", "B")
	g.SetCoupling(ab.ID, 9, false)

	counter := &stubCounter{counts: map[string]int{"A->B": 1, "B->C": 2, "C->A": 3}}
	report, err := NewAnalyzer(counter, WithTimeout(time.Second)).Analyze(context.Background(), g)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Provided)

	ab, _ = g.Edge(ab.ID)
	assert.Equal(t, 9, ab.Coupling)
}

func TestAnalyze_CancellationKeepsEarlierScores(t *testing.T) {
	g := buildGraph(t)
	ctx, cancel := context.WithCancel(context.Background())
	counter := &stubCounter{cancel: cancel}

	report, err := NewAnalyzer(counter).Analyze(ctx, g)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, report.Edges)
	for _, e := range g.Edges() {
		assert.False(t, e.CouplingSet)
	}
}
