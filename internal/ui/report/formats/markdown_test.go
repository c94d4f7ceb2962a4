package formats

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"
	"untangle/internal/core/app"
	"untangle/internal/data/ingest"
	"untangle/internal/engine/graph"
	"untangle/internal/engine/metrics"
	"untangle/internal/engine/recommend"
	"untangle/internal/engine/scoring"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult(t *testing.T) *app.Result {
	t.Helper()
	g := graph.NewGraph()
	for _, n := range []string{"A", "B", "Tools"} {
		require.NoError(t, g.AddNode(graph.Node{Name: n}))
	}
	for _, e := range []graph.Edge{
		{Source: "A", Target: "B", Coupling: 3},
		{Source: "B", Target: "A", Coupling: 1},
		{Source: "Tools", Target: "A", Coupling: 2},
	} {
		_, err := g.AddEdge(e)
		require.NoError(t, err)
	}
	cycles, err := graph.DetectCycles(context.Background(), g)
	require.NoError(t, err)

	scores := []scoring.ExtractionScore{
		{Module: "Tools", Final: 10, Band: scoring.BandEasy,
			Complexity: metrics.Result{Kind: metrics.KindComplexity, Score: 50, Fallback: true, Reason: "no sources"}},
		{Module: "A", Final: 70, Band: scoring.BandHard},
		{Module: "B", Final: 40, Band: scoring.BandMedium},
	}
	return &app.Result{
		RunID:    "run-1",
		Project:  "shop",
		Duration: 1500 * time.Millisecond,
		Ingest: ingest.Result{
			Strategy: "discovery",
			Attempts: []ingest.Attempt{
				{Strategy: "manifest", Source: "graph.json", Err: fmt.Errorf("not found")},
				{Strategy: "discovery", Source: "untangle.graph.json"},
			},
		},
		Graph:  g,
		Cycles: cycles,
		Suggestions: []recommend.Suggestion{
			{CycleID: 1, CycleSize: 2, Source: "B", Target: "A", Coupling: 1, Rank: 1,
				Rationale: recommend.Rationale(2, 1)},
		},
		Scores:  scores,
		Ranking: scoring.Rank(scores, 2),
	}
}

func TestMarkdownGenerator_Generate(t *testing.T) {
	res := sampleResult(t)
	out, err := NewMarkdownGenerator().Generate(res, MarkdownReportOptions{
		Version:        "1.2.3",
		GeneratedAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		IncludeMermaid: true,
		MermaidDiagram: "flowchart LR\n  A --> B\n",
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "---\ntitle: Extraction Analysis Report\nproject: shop\n"))
	assert.Contains(t, out, "generated_at: 2026-01-02T03:04:05Z")
	assert.Contains(t, out, "version: 1.2.3")
	assert.Contains(t, out, "run_id: run-1")

	assert.Contains(t, out, "| Modules | 3 |")
	assert.Contains(t, out, "| Cycles | 1 |")
	assert.Contains(t, out, "| Easy Candidates | 1 |")
	assert.Contains(t, out, "| Duration | 1.5s |")

	assert.Contains(t, out, "| 1 | 2 | `A`, `B` |")
	assert.Contains(t, out, "| 1 | `B` | `A` | 1 | 1 | "+recommend.Rationale(2, 1)+" |")

	easiest := strings.Index(out, "## Easiest Extraction Candidates")
	hardest := strings.Index(out, "## Hardest Extraction Candidates")
	require.Positive(t, easiest)
	require.Greater(t, hardest, easiest)
	assert.Contains(t, out[easiest:hardest], "| `Tools` | 10.0 | easy | 0 | 50* | 0 | 0 |")
	assert.Contains(t, out[hardest:], "| `A` | 70.0 | hard |")

	assert.Contains(t, out, "## Fallbacks")
	assert.Contains(t, out, "| `Tools` | complexity | no sources |")

	assert.Contains(t, out, "| manifest | `graph.json` | not found |")
	assert.Contains(t, out, "| discovery | `untangle.graph.json` | loaded |")

	assert.Contains(t, out, "```mermaid\nflowchart LR\n  A --> B\n```")
	assert.NotContains(t, out, "Partial result")
}

func TestMarkdownGenerator_EmptyAndPartial(t *testing.T) {
	out, err := NewMarkdownGenerator().Generate(&app.Result{Partial: true}, MarkdownReportOptions{})
	require.NoError(t, err)

	assert.Contains(t, out, "project: unknown")
	assert.Contains(t, out, "Partial result")
	assert.Contains(t, out, "No cycles detected.")
	assert.Contains(t, out, "Nothing to break.")
	assert.NotContains(t, out, "## Fallbacks")
	assert.NotContains(t, out, "## Dependency Diagram")
}

func TestMarkdownGenerator_CollapsesLongTables(t *testing.T) {
	res := sampleResult(t)
	for i := 2; i <= 12; i++ {
		res.Suggestions = append(res.Suggestions, recommend.Suggestion{Source: "B", Target: "A", Rank: i})
	}

	out, err := NewMarkdownGenerator().Generate(res, MarkdownReportOptions{CollapsibleSections: true})
	require.NoError(t, err)
	assert.Contains(t, out, "<summary>Suggestions</summary>")

	out, err = NewMarkdownGenerator().Generate(res, MarkdownReportOptions{CollapsibleSections: true, SuggestionsTop: 3})
	require.NoError(t, err)
	assert.NotContains(t, out, "<details>")
	assert.NotContains(t, out, "| 4 | `B`")
}

func TestMarkdownGenerator_NilResult(t *testing.T) {
	_, err := NewMarkdownGenerator().Generate(nil, MarkdownReportOptions{})
	assert.Error(t, err)
}
