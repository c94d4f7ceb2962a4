package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"
	coreapp "untangle/internal/core/app"
	"untangle/internal/data/history"
	"untangle/internal/engine/scoring"
)

func printSummary(out io.Writer, res *coreapp.Result, suggestionsTop int) {
	modules, edges := 0, 0
	if res.Graph != nil {
		modules, edges = res.Graph.NodeCount(), res.Graph.EdgeCount()
	}
	stats := res.Cycles.Stats

	fmt.Fprintf(out, "\n%s: %d modules, %d dependencies (%s from %s)\n",
		nonEmpty(res.Project, "project"), modules, edges, res.Ingest.Strategy, nonEmpty(res.Ingest.Source, "-"))
	if res.Filter.Removed > 0 {
		fmt.Fprintf(out, "  framework edges removed: %d\n", res.Filter.Removed)
	}
	fmt.Fprintf(out, "  cycles: %d (%d modules, %.1f%%, largest %d)\n",
		stats.TotalCycles, stats.NodesInCycles, stats.ParticipationPercent, stats.LargestCycle)

	if suggestions := res.TopSuggestions(suggestionsTop); len(suggestions) > 0 {
		fmt.Fprintln(out, "\nSuggested breaks:")
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		for _, s := range suggestions {
			fmt.Fprintf(tw, "  %d.\t%s -> %s\t%s\n", s.Rank, s.Source, s.Target, s.Rationale)
		}
		_ = tw.Flush()
	}

	writeCandidates(out, "Easiest to extract", res.Ranking.Easiest)
	writeCandidates(out, "Hardest to extract", res.Ranking.Hardest)

	bands := make([]string, 0, len(scoring.Bands))
	for _, b := range scoring.Bands {
		bands = append(bands, fmt.Sprintf("%s %d", b, res.Ranking.Counts[b]))
	}
	fmt.Fprintf(out, "\nBands: %s\n", strings.Join(bands, ", "))
	if n := res.FallbackCount(); n > 0 {
		fmt.Fprintf(out, "Fallback values used: %d\n", n)
	}
	status := "complete"
	if res.Partial {
		status = "partial"
	}
	fmt.Fprintf(out, "Run %s %s in %s\n", res.RunID, status, res.Duration.Round(time.Millisecond))
}

func writeCandidates(out io.Writer, title string, scores []scoring.ExtractionScore) {
	if len(scores) == 0 {
		return
	}
	fmt.Fprintf(out, "\n%s:\n", title)
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, s := range scores {
		fmt.Fprintf(tw, "  %s\t%.1f\t%s\n", s.Module, s.Final, s.Band)
	}
	_ = tw.Flush()
}

func printTrend(out io.Writer, trend history.TrendReport) {
	fmt.Fprintf(out, "%s: %d runs (window %s)\n", nonEmpty(trend.Project, "project"), trend.RunCount, trend.Window)
	if len(trend.Points) == 0 {
		return
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  timestamp\tmodules\tcycles\tin cycles\thard\tΔcycles\tavg cycles")
	for _, p := range trend.Points {
		fmt.Fprintf(tw, "  %s\t%d\t%d\t%.1f%%\t%d\t%+d\t%.2f\n",
			p.Timestamp.Format(time.RFC3339), p.ModuleCount, p.CycleCount, p.Participation,
			p.HardCount, p.DeltaCycles, p.AvgCycles)
	}
	_ = tw.Flush()

	if len(trend.Modules) == 0 {
		return
	}
	fmt.Fprintln(out, "\nScore changes since the previous run:")
	tw = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, m := range trend.Modules {
		note := ""
		if m.New {
			note = "new"
		}
		fmt.Fprintf(tw, "  %s\t%.1f -> %.1f\t%+.1f\t%s\n", m.Module, m.Previous, m.Current, m.Delta, note)
	}
	_ = tw.Flush()
}

func nonEmpty(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
