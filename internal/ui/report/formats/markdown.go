package formats

import (
	"fmt"
	"strings"
	"time"
	"untangle/internal/core/app"
	"untangle/internal/engine/metrics"
	"untangle/internal/engine/recommend"
	"untangle/internal/engine/scoring"
)

type MarkdownReportOptions struct {
	ProjectName         string
	Version             string
	GeneratedAt         time.Time
	SuggestionsTop      int
	CollapsibleSections bool
	IncludeMermaid      bool
	MermaidDiagram      string
}

type MarkdownGenerator struct{}

func NewMarkdownGenerator() *MarkdownGenerator {
	return &MarkdownGenerator{}
}

func (m *MarkdownGenerator) Generate(res *app.Result, opts MarkdownReportOptions) (string, error) {
	if res == nil {
		return "", fmt.Errorf("no analysis result to report")
	}
	if opts.GeneratedAt.IsZero() {
		opts.GeneratedAt = time.Now().UTC()
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.WriteString("title: Extraction Analysis Report\n")
	b.WriteString("project: " + nonEmpty(opts.ProjectName, nonEmpty(res.Project, "unknown")) + "\n")
	b.WriteString("generated_at: " + opts.GeneratedAt.UTC().Format(time.RFC3339) + "\n")
	b.WriteString("version: " + nonEmpty(opts.Version, "unknown") + "\n")
	b.WriteString("run_id: " + nonEmpty(res.RunID, "unknown") + "\n")
	b.WriteString("---\n\n")

	b.WriteString("# Extraction Analysis Report\n\n")
	if res.Partial {
		b.WriteString("> **Partial result:** the run was cancelled before every stage finished.\n\n")
	}

	m.writeSummary(&b, res)
	m.writeCycles(&b, res, opts.CollapsibleSections)
	m.writeSuggestions(&b, res.TopSuggestions(opts.SuggestionsTop), opts.CollapsibleSections)
	m.writeCandidates(&b, "Easiest Extraction Candidates", res.Ranking.Easiest)
	m.writeCandidates(&b, "Hardest Extraction Candidates", res.Ranking.Hardest)
	m.writeFallbacks(&b, res, opts.CollapsibleSections)
	m.writeIngestion(&b, res)

	if opts.IncludeMermaid && strings.TrimSpace(opts.MermaidDiagram) != "" {
		b.WriteString("## Dependency Diagram\n")
		b.WriteString("```mermaid\n")
		b.WriteString(strings.TrimSpace(opts.MermaidDiagram))
		b.WriteString("\n```\n")
	}

	return b.String(), nil
}

func (m *MarkdownGenerator) writeSummary(b *strings.Builder, res *app.Result) {
	modules, edges := 0, 0
	if res.Graph != nil {
		modules, edges = res.Graph.NodeCount(), res.Graph.EdgeCount()
	}
	stats := res.Cycles.Stats

	b.WriteString("## Executive Summary\n")
	b.WriteString("| Metric | Value |\n")
	b.WriteString("| --- | --- |\n")
	b.WriteString(fmt.Sprintf("| Modules | %d |\n", modules))
	b.WriteString(fmt.Sprintf("| Dependencies | %d |\n", edges))
	b.WriteString(fmt.Sprintf("| Framework Edges Removed | %d |\n", res.Filter.Removed))
	b.WriteString(fmt.Sprintf("| Cycles | %d |\n", stats.TotalCycles))
	b.WriteString(fmt.Sprintf("| Modules In Cycles | %d (%.1f%%) |\n", stats.NodesInCycles, stats.ParticipationPercent))
	b.WriteString(fmt.Sprintf("| Largest Cycle | %d |\n", stats.LargestCycle))
	b.WriteString(fmt.Sprintf("| Break Suggestions | %d |\n", len(res.Suggestions)))
	for _, band := range scoring.Bands {
		b.WriteString(fmt.Sprintf("| %s Candidates | %d |\n", titleCase(string(band)), res.Ranking.Counts[band]))
	}
	b.WriteString(fmt.Sprintf("| Fallback Values | %d |\n", res.FallbackCount()))
	b.WriteString(fmt.Sprintf("| Duration | %s |\n\n", res.Duration.Round(time.Millisecond)))
}

func (m *MarkdownGenerator) writeCycles(b *strings.Builder, res *app.Result, collapsible bool) {
	b.WriteString("## Cycles\n")
	if len(res.Cycles.Cycles) == 0 {
		b.WriteString("No cycles detected.\n\n")
		return
	}
	rows := make([]string, 0, len(res.Cycles.Cycles))
	for _, cycle := range res.Cycles.Cycles {
		rows = append(rows, fmt.Sprintf("| %d | %d | `%s` |\n",
			cycle.ID, cycle.Size(), strings.Join(cycle.MemberNames(), "`, `")))
	}
	m.writeTableWithCollapse(
		b,
		"Cycle details",
		collapsible,
		len(rows) > 10,
		[]string{"| # | Size | Members |\n", "| --- | --- | --- |\n"},
		rows,
	)
}

func (m *MarkdownGenerator) writeSuggestions(b *strings.Builder, suggestions []recommend.Suggestion, collapsible bool) {
	b.WriteString("## Cycle-Breaking Suggestions\n")
	if len(suggestions) == 0 {
		b.WriteString("Nothing to break.\n\n")
		return
	}
	rows := make([]string, 0, len(suggestions))
	for _, s := range suggestions {
		coupling := fmt.Sprintf("%d", s.Coupling)
		if s.Fallback {
			coupling += " (fallback)"
		}
		rows = append(rows, fmt.Sprintf("| %d | `%s` | `%s` | %s | %d | %s |\n",
			s.Rank, s.Source, s.Target, coupling, s.CycleID, s.Rationale))
	}
	m.writeTableWithCollapse(
		b,
		"Suggestions",
		collapsible,
		len(rows) > 10,
		[]string{"| Rank | Remove Dependency Of | On | Coupling | Cycle | Rationale |\n", "| --- | --- | --- | --- | --- | --- |\n"},
		rows,
	)
}

func (m *MarkdownGenerator) writeCandidates(b *strings.Builder, title string, scores []scoring.ExtractionScore) {
	b.WriteString("## " + title + "\n")
	if len(scores) == 0 {
		b.WriteString("No modules scored.\n\n")
		return
	}
	b.WriteString("| Module | Score | Band | Coupling | Complexity | Version Debt | Exposure |\n")
	b.WriteString("| --- | --- | --- | --- | --- | --- | --- |\n")
	for _, s := range scores {
		b.WriteString(fmt.Sprintf("| `%s` | %.1f | %s | %s | %s | %s | %s |\n",
			s.Module, s.Final, s.Band,
			metricCell(s.Coupling), metricCell(s.Complexity), metricCell(s.VersionDebt), metricCell(s.Exposure)))
	}
	b.WriteString("\n")
}

func (m *MarkdownGenerator) writeFallbacks(b *strings.Builder, res *app.Result, collapsible bool) {
	var rows []string
	for _, s := range res.Ranking.Sorted {
		for _, r := range []metrics.Result{s.Coupling, s.Complexity, s.VersionDebt, s.Exposure} {
			if r.Fallback {
				rows = append(rows, fmt.Sprintf("| `%s` | %s | %s |\n", s.Module, r.Kind, nonEmpty(r.Reason, "-")))
			}
		}
	}
	if len(rows) == 0 && res.Coupling.Fallbacks == 0 {
		return
	}
	b.WriteString("## Fallbacks\n")
	if res.Coupling.Fallbacks > 0 {
		b.WriteString(fmt.Sprintf("%d of %d edge couplings used the fallback score.\n\n",
			res.Coupling.Fallbacks, res.Coupling.Edges))
	}
	if len(rows) == 0 {
		return
	}
	m.writeTableWithCollapse(
		b,
		"Metric fallbacks",
		collapsible,
		len(rows) > 10,
		[]string{"| Module | Metric | Reason |\n", "| --- | --- | --- |\n"},
		rows,
	)
}

func (m *MarkdownGenerator) writeIngestion(b *strings.Builder, res *app.Result) {
	if len(res.Ingest.Attempts) == 0 {
		return
	}
	b.WriteString("## Ingestion\n")
	b.WriteString("| Strategy | Source | Outcome |\n")
	b.WriteString("| --- | --- | --- |\n")
	for _, a := range res.Ingest.Attempts {
		outcome := "loaded"
		if !a.OK() {
			outcome = strings.ReplaceAll(a.Err.Error(), "|", "\\|")
		}
		b.WriteString(fmt.Sprintf("| %s | `%s` | %s |\n", a.Strategy, nonEmpty(a.Source, "-"), outcome))
	}
	b.WriteString("\n")
}

func (m *MarkdownGenerator) writeTableWithCollapse(
	b *strings.Builder,
	summary string,
	collapsible bool,
	collapse bool,
	header []string,
	rows []string,
) {
	if collapsible && collapse {
		b.WriteString("<details>\n")
		b.WriteString("<summary>")
		b.WriteString(summary)
		b.WriteString("</summary>\n\n")
	}
	for _, line := range header {
		b.WriteString(line)
	}
	for _, line := range rows {
		b.WriteString(line)
	}
	b.WriteString("\n")
	if collapsible && collapse {
		b.WriteString("</details>\n\n")
	}
}

func metricCell(r metrics.Result) string {
	if r.Fallback {
		return fmt.Sprintf("%.0f*", r.Score)
	}
	return fmt.Sprintf("%.0f", r.Score)
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func nonEmpty(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
