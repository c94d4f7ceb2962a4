package graph

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectCycles_NoEdges(t *testing.T) {
	for _, n := range []int{0, 1, 5, 50} {
		t.Run(fmt.Sprintf("nodes=%d", n), func(t *testing.T) {
			g := NewGraph()
			for i := 0; i < n; i++ {
				require.NoError(t, g.AddNode(Node{Name: fmt.Sprintf("m%d", i)}))
			}
			report, err := DetectCycles(context.Background(), g)
			require.NoError(t, err)
			assert.Empty(t, report.Cycles)
			assert.Equal(t, 0, report.Stats.TotalCycles)
			assert.Equal(t, 0.0, report.Stats.ParticipationPercent)
			assert.Equal(t, n, report.Stats.TotalNodes)
		})
	}
}

func TestDetectCycles_SingleCycleOfSizeK(t *testing.T) {
	for _, k := range []int{2, 3, 7} {
		t.Run(fmt.Sprintf("k=%d", k), func(t *testing.T) {
			g := NewGraph()
			require.NoError(t, g.AddNode(Node{Name: "entry"}))
			names := make([]string, k)
			for i := range names {
				names[i] = fmt.Sprintf("c%d", i)
				require.NoError(t, g.AddNode(Node{Name: names[i]}))
			}
			_, err := g.AddEdge(Edge{Source: "entry", Target: names[0]})
			require.NoError(t, err)
			for i := range names {
				_, err := g.AddEdge(Edge{Source: names[i], Target: names[(i+1)%k]})
				require.NoError(t, err)
			}

			report, err := DetectCycles(context.Background(), g)
			require.NoError(t, err)
			require.Len(t, report.Cycles, 1)
			c := report.Cycles[0]
			assert.Equal(t, 1, c.ID)
			assert.Equal(t, k, c.Size())
			assert.ElementsMatch(t, names, c.MemberNames())
			assert.False(t, c.Contains("entry"))
		})
	}
}

func TestDetectCycles_SelfLoopIsNotACycle(t *testing.T) {
	g := mustGraph(t, []string{"A", "B"}, [2]string{"A", "A"}, [2]string{"A", "B"})
	report, err := DetectCycles(context.Background(), g)
	require.NoError(t, err)
	assert.Empty(t, report.Cycles)
}

func TestDetectCycles_StatsAndOrder(t *testing.T) {
	// Two disjoint cycles plus an acyclic tail.
	g := mustGraph(t, []string{"A", "B", "C", "D", "E", "F", "G"},
		[2]string{"A", "B"}, [2]string{"B", "A"},
		[2]string{"C", "D"}, [2]string{"D", "E"}, [2]string{"E", "C"},
		[2]string{"E", "F"},
	)

	report, err := DetectCycles(context.Background(), g)
	require.NoError(t, err)
	require.Len(t, report.Cycles, 2)
	assert.Equal(t, []string{"A", "B"}, report.Cycles[0].MemberNames())
	assert.Equal(t, []string{"C", "D", "E"}, report.Cycles[1].MemberNames())
	assert.Equal(t, 2, report.Cycles[1].ID)

	assert.Equal(t, CycleStats{
		TotalCycles:          2,
		NodesInCycles:        5,
		TotalNodes:           7,
		ParticipationPercent: 71.4,
		LargestCycle:         3,
	}, report.Stats)

	c, ok := report.CycleOf("d")
	require.True(t, ok)
	assert.Equal(t, 2, c.ID)
}

func TestDetectCycles_Deterministic(t *testing.T) {
	build := func() *Graph {
		return mustGraph(t, []string{"X", "Y", "Z", "W"},
			[2]string{"X", "Y"}, [2]string{"Y", "X"}, [2]string{"Z", "W"}, [2]string{"W", "Z"})
	}
	first, err := DetectCycles(context.Background(), build())
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := DetectCycles(context.Background(), build())
		require.NoError(t, err)
		require.Len(t, again.Cycles, len(first.Cycles))
		for j := range first.Cycles {
			assert.Equal(t, first.Cycles[j].MemberNames(), again.Cycles[j].MemberNames())
		}
	}
}

func TestDetectCycles_DeepChainDoesNotRecurse(t *testing.T) {
	const n = 20000
	g := NewGraphWithCapacity(n)
	for i := 0; i < n; i++ {
		require.NoError(t, g.AddNode(Node{Name: fmt.Sprintf("n%d", i)}))
	}
	for i := 0; i < n; i++ {
		_, err := g.AddEdge(Edge{Source: fmt.Sprintf("n%d", i), Target: fmt.Sprintf("n%d", (i+1)%n)})
		require.NoError(t, err)
	}

	report, err := DetectCycles(context.Background(), g)
	require.NoError(t, err)
	require.Len(t, report.Cycles, 1)
	assert.Equal(t, n, report.Cycles[0].Size())
	assert.Equal(t, 100.0, report.Stats.ParticipationPercent)
}

func TestDetectCycles_FilteredEdgesBreakCycles(t *testing.T) {
	g := mustGraph(t, []string{"A", "B"}, [2]string{"A", "B"}, [2]string{"B", "A"})
	g.RemoveEdges(func(e Edge) bool { return e.Source == "B" })

	report, err := DetectCycles(context.Background(), g)
	require.NoError(t, err)
	assert.Empty(t, report.Cycles)
}

func TestDetectCycles_Cancelled(t *testing.T) {
	g := mustGraph(t, []string{"A", "B"}, [2]string{"A", "B"}, [2]string{"B", "A"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := DetectCycles(ctx, g)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, report.Cycles)
	assert.Equal(t, 2, report.Stats.TotalNodes)
}

func TestCycleInfo_InternalEdgesAndWeakAnnotation(t *testing.T) {
	g := mustGraph(t, []string{"A", "B", "C"},
		[2]string{"A", "B"}, [2]string{"B", "A"}, [2]string{"B", "C"}, [2]string{"A", "A"})
	report, err := DetectCycles(context.Background(), g)
	require.NoError(t, err)
	require.Len(t, report.Cycles, 1)

	c := report.Cycles[0]
	internal := c.InternalEdges(g)
	require.Len(t, internal, 2)
	assert.Equal(t, "A", internal[0].Source)
	assert.Equal(t, "B", internal[1].Source)

	_, ok := c.WeakEdges()
	assert.False(t, ok)
	c.SetWeakEdges(internal[:1])
	weak, ok := c.WeakEdges()
	assert.True(t, ok)
	assert.Len(t, weak, 1)
}
