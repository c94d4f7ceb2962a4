package formats

import (
	"fmt"
	"strings"
	"untangle/internal/core/app"
	"untangle/internal/engine/scoring"
)

var linkStyles = map[app.EdgeClass]string{
	app.EdgeSuggestedBreak:  "stroke:#cc0000,stroke-width:3px,stroke-dasharray:6 3",
	app.EdgeCyclic:          "stroke:#b22222,stroke-width:2px",
	app.EdgeCrossCollection: "stroke:#4169e1,stroke-dasharray:4 3",
}

type MermaidGenerator struct {
	view app.DiagramView
}

func NewMermaidGenerator(view app.DiagramView) *MermaidGenerator {
	return &MermaidGenerator{view: view}
}

func (m *MermaidGenerator) Generate() (string, error) {
	var b strings.Builder
	b.WriteString("%%{init: {'theme': 'base', 'themeVariables': {'textColor': '#000000', 'primaryTextColor': '#000000', 'lineColor': '#333333'}, 'flowchart': {'nodeSpacing': 80, 'rankSpacing': 110, 'curve': 'basis'}}}%%\n")
	b.WriteString("flowchart LR\n")

	ids := makeIDs(nodeNames(m.view))
	byBand := make(map[scoring.Band][]string)
	var unscored, inCycle []string
	for _, n := range m.view.Nodes {
		label := strings.ReplaceAll(nodeLabel(n), "\\n", "<br/>")
		b.WriteString(fmt.Sprintf("  %s[\"%s\"]\n", ids[n.Name], escapeLabel(label)))
		if n.Band == "" {
			unscored = append(unscored, ids[n.Name])
		} else {
			byBand[n.Band] = append(byBand[n.Band], ids[n.Name])
		}
		if n.CycleID != 0 {
			inCycle = append(inCycle, ids[n.Name])
		}
	}

	b.WriteString("\n")
	for _, band := range scoring.Bands {
		if len(byBand[band]) == 0 {
			continue
		}
		p := bandPalette[band]
		b.WriteString(fmt.Sprintf("  classDef %sNode fill:%s,stroke:%s,stroke-width:1px,color:#000000;\n", band, p.fill, p.stroke))
		b.WriteString(fmt.Sprintf("  class %s %sNode;\n", strings.Join(byBand[band], ","), band))
	}
	if len(unscored) > 0 {
		b.WriteString(fmt.Sprintf("  classDef unscoredNode fill:%s,stroke:%s,stroke-dasharray:4 3,color:#000000;\n", unscoredPalette.fill, unscoredPalette.stroke))
		b.WriteString(fmt.Sprintf("  class %s unscoredNode;\n", strings.Join(unscored, ",")))
	}
	if len(inCycle) > 0 {
		b.WriteString("  classDef cycleNode stroke:#cc0000,stroke-width:2px;\n")
		b.WriteString(fmt.Sprintf("  class %s cycleNode;\n", strings.Join(inCycle, ",")))
	}

	b.WriteString("\n")
	indexes := make(map[app.EdgeClass][]int)
	for i, e := range m.view.Edges {
		label := ""
		if l := edgeLabel(e); l != "" {
			label = "|" + l + "|"
		}
		b.WriteString(fmt.Sprintf("  %s -->%s %s\n", ids[e.Source], label, ids[e.Target]))
		indexes[e.Class] = append(indexes[e.Class], i)
	}

	for _, class := range []app.EdgeClass{app.EdgeSuggestedBreak, app.EdgeCyclic, app.EdgeCrossCollection} {
		if len(indexes[class]) == 0 {
			continue
		}
		b.WriteString(fmt.Sprintf("  linkStyle %s %s;\n", joinInts(indexes[class]), linkStyles[class]))
	}
	return b.String(), nil
}
