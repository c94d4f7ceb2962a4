package history

import (
	"fmt"
	"math"
	"slices"
	"time"
)

// BuildTrendReport turns runs, oldest first, into per-run deltas and
// compares module scores between the last two runs.
func BuildTrendReport(project string, runs []Run, window time.Duration) (TrendReport, error) {
	if len(runs) == 0 {
		return TrendReport{}, fmt.Errorf("no runs recorded for project %q", project)
	}

	points := make([]TrendPoint, 0, len(runs))
	for i, current := range runs {
		point := TrendPoint{
			RunID:         current.ID,
			Timestamp:     current.Timestamp,
			ModuleCount:   current.ModuleCount,
			CycleCount:    current.CycleCount,
			Participation: current.Participation,
			HardCount:     current.HardCount,
		}
		if i > 0 {
			prev := runs[i-1]
			point.DeltaModules = current.ModuleCount - prev.ModuleCount
			point.DeltaCycles = current.CycleCount - prev.CycleCount
			point.DeltaParticipation = round2(current.Participation - prev.Participation)
			point.DeltaHard = current.HardCount - prev.HardCount
		}
		point.AvgCycles = round2(movingAverageCycles(runs, i, window))
		point.WindowHours = round2(window.Hours())
		points = append(points, point)
	}

	report := TrendReport{
		Project:       project,
		SchemaVersion: SchemaVersion,
		Since:         runs[0].Timestamp,
		Until:         runs[len(runs)-1].Timestamp,
		Window:        window.String(),
		RunCount:      len(points),
		Points:        points,
	}
	if len(runs) > 1 {
		report.Modules = moduleDeltas(runs[len(runs)-2], runs[len(runs)-1])
	}
	return report, nil
}

func moduleDeltas(prev, current Run) []ModuleDelta {
	before := make(map[string]float64, len(prev.Scores))
	for _, s := range prev.Scores {
		before[s.Module] = s.Final
	}

	deltas := make([]ModuleDelta, 0, len(current.Scores))
	for _, s := range current.Scores {
		d := ModuleDelta{Module: s.Module, Current: s.Final}
		if p, ok := before[s.Module]; ok {
			d.Previous = p
			d.Delta = round2(s.Final - p)
		} else {
			d.New = true
		}
		deltas = append(deltas, d)
	}
	// Largest movement first.
	slices.SortStableFunc(deltas, func(a, b ModuleDelta) int {
		da, db := math.Abs(a.Delta), math.Abs(b.Delta)
		switch {
		case da > db:
			return -1
		case da < db:
			return 1
		default:
			return 0
		}
	})
	return deltas
}

func movingAverageCycles(runs []Run, index int, window time.Duration) float64 {
	if window <= 0 {
		return float64(runs[index].CycleCount)
	}

	cutoff := runs[index].Timestamp.Add(-window)
	total, count := 0, 0
	for i := index; i >= 0; i-- {
		if runs[i].Timestamp.Before(cutoff) {
			break
		}
		total += runs[i].CycleCount
		count++
	}
	if count == 0 {
		return 0
	}
	return float64(total) / float64(count)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
