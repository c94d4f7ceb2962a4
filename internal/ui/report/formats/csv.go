package formats

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"untangle/internal/engine/metrics"
	"untangle/internal/engine/recommend"
	"untangle/internal/engine/scoring"
)

var scoreHeader = []string{
	"rank", "module", "path", "collection", "score", "band",
	"coupling", "complexity", "version_debt", "exposure", "fallbacks",
}

var suggestionHeader = []string{
	"rank", "cycle_id", "cycle_size", "source", "target", "coupling", "fallback", "rationale",
}

// WriteScoresCSV writes one row per module in the order given, so callers
// pass the ranked slice to get easiest-first output.
func WriteScoresCSV(w io.Writer, scores []scoring.ExtractionScore) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(scoreHeader); err != nil {
		return err
	}
	for i, s := range scores {
		fallbacks := make([]string, 0, len(metrics.Kinds))
		for _, k := range s.Fallbacks() {
			fallbacks = append(fallbacks, string(k))
		}
		row := []string{
			strconv.Itoa(i + 1),
			s.Module,
			s.Path,
			s.Collection,
			formatScore(s.Final),
			string(s.Band),
			formatScore(s.Coupling.Score),
			formatScore(s.Complexity.Score),
			formatScore(s.VersionDebt.Score),
			formatScore(s.Exposure.Score),
			strings.Join(fallbacks, ";"),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteSuggestionsCSV(w io.Writer, suggestions []recommend.Suggestion) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(suggestionHeader); err != nil {
		return err
	}
	for _, s := range suggestions {
		row := []string{
			strconv.Itoa(s.Rank),
			strconv.Itoa(s.CycleID),
			strconv.Itoa(s.CycleSize),
			s.Source,
			s.Target,
			strconv.Itoa(s.Coupling),
			strconv.FormatBool(s.Fallback),
			s.Rationale,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
