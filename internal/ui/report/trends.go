package report

import (
	"encoding/json"
	"fmt"
	"strings"
	"untangle/internal/data/history"
)

// RenderTrendTSV renders one row per run followed, when the report carries
// them, by the per-module score deltas between the last two runs.
func RenderTrendTSV(report history.TrendReport) ([]byte, error) {
	var buf strings.Builder

	buf.WriteString("Timestamp\tRun\tModules\tCycles\tParticipationPct\tHard\tDeltaModules\tDeltaCycles\tDeltaParticipationPct\tDeltaHard\tAvgCycles\tWindowHours\n")
	for _, point := range report.Points {
		buf.WriteString(fmt.Sprintf(
			"%s\t%s\t%d\t%d\t%.2f\t%d\t%d\t%d\t%.2f\t%d\t%.2f\t%.2f\n",
			point.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
			point.RunID,
			point.ModuleCount,
			point.CycleCount,
			point.Participation,
			point.HardCount,
			point.DeltaModules,
			point.DeltaCycles,
			point.DeltaParticipation,
			point.DeltaHard,
			point.AvgCycles,
			point.WindowHours,
		))
	}

	if len(report.Modules) > 0 {
		buf.WriteString("\nModule\tPrevious\tCurrent\tDelta\tNew\n")
		for _, m := range report.Modules {
			buf.WriteString(fmt.Sprintf("%s\t%.2f\t%.2f\t%+.2f\t%t\n", m.Module, m.Previous, m.Current, m.Delta, m.New))
		}
	}

	return []byte(buf.String()), nil
}

func RenderTrendJSON(report history.TrendReport) ([]byte, error) {
	return json.MarshalIndent(report, "", "  ")
}
