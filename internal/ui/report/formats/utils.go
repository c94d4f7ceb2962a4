package formats

import (
	"fmt"
	"strings"
	"unicode"
	"untangle/internal/core/app"
	"untangle/internal/engine/scoring"
)

type palette struct {
	fill   string
	stroke string
}

var bandPalette = map[scoring.Band]palette{
	scoring.BandEasy:   {fill: "#dff5e1", stroke: "#2e7d32"},
	scoring.BandMedium: {fill: "#fff4cc", stroke: "#b38600"},
	scoring.BandHard:   {fill: "#ffe0db", stroke: "#c62828"},
}

var unscoredPalette = palette{fill: "#f2f2f2", stroke: "#808080"}

func colorsFor(band scoring.Band) palette {
	if p, ok := bandPalette[band]; ok {
		return p
	}
	return unscoredPalette
}

func nodeLabel(n app.DiagramNode) string {
	parts := []string{n.Name}
	if n.Band != "" {
		parts = append(parts, fmt.Sprintf("%s %.1f", n.Band, n.Score))
	}
	if n.CycleID != 0 {
		parts = append(parts, fmt.Sprintf("cycle #%d", n.CycleID))
	}
	return strings.Join(parts, "\\n")
}

func edgeLabel(e app.DiagramEdge) string {
	switch e.Class {
	case app.EdgeSuggestedBreak:
		return fmt.Sprintf("BREAK #%d (%d)", e.BreakRank, e.Coupling)
	case app.EdgeCyclic:
		return fmt.Sprintf("%d", e.Coupling)
	default:
		return ""
	}
}

func sanitizeID(module string) string {
	if module == "" {
		return "m"
	}
	var b strings.Builder
	for _, r := range module {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		b.WriteRune('_')
	}
	out := b.String()
	first := rune(out[0])
	if unicode.IsDigit(first) {
		return "m_" + out
	}
	return out
}

func makeIDs(names []string) map[string]string {
	ids := make(map[string]string, len(names))
	used := make(map[string]int, len(names))
	for _, name := range names {
		base := sanitizeID(name)
		idx := used[base]
		used[base] = idx + 1
		if idx == 0 {
			ids[name] = base
			continue
		}
		ids[name] = fmt.Sprintf("%s_%d", base, idx+1)
	}
	return ids
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func joinInts(v []int) string {
	parts := make([]string, 0, len(v))
	for _, n := range v {
		parts = append(parts, fmt.Sprintf("%d", n))
	}
	return strings.Join(parts, ",")
}

func nodeNames(view app.DiagramView) []string {
	names := make([]string, len(view.Nodes))
	for i, n := range view.Nodes {
		names[i] = n.Name
	}
	return names
}
