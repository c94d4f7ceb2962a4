package formats

import (
	"fmt"
	"sort"
	"strings"
	"untangle/internal/core/app"
	"untangle/internal/engine/scoring"
)

var edgeStyles = map[app.EdgeClass]string{
	app.EdgeSuggestedBreak:  `color="red", style=dashed, penwidth=3.0, fontcolor="red"`,
	app.EdgeCyclic:          `color="firebrick", penwidth=2.0`,
	app.EdgeCrossCollection: `color="royalblue", style=dashed, penwidth=1.4`,
	app.EdgeDefault:         `color="grey40", penwidth=1.2`,
}

type DOTGenerator struct {
	view app.DiagramView
}

func NewDOTGenerator(view app.DiagramView) *DOTGenerator {
	return &DOTGenerator{view: view}
}

// Generate renders the view as a Graphviz digraph. Modules are clustered
// by collection and filled by difficulty band.
func (d *DOTGenerator) Generate() (string, error) {
	var buf strings.Builder

	buf.WriteString("digraph dependencies {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fontname=\"Helvetica\", fontsize=10];\n")
	buf.WriteString("  edge [fontname=\"Helvetica\", fontsize=8, penwidth=1.2];\n")
	buf.WriteString("  ranksep=1.5;\n")
	buf.WriteString("  nodesep=0.6;\n")
	buf.WriteString("  splines=polyline;\n")
	buf.WriteString("  overlap=false;\n")
	if d.view.Project != "" {
		buf.WriteString(fmt.Sprintf("  label=\"%s\";\n  labelloc=t;\n", escapeLabel(d.view.Project)))
	}
	buf.WriteString("\n")

	ids := makeIDs(nodeNames(d.view))

	groups := make(map[string][]app.DiagramNode)
	for _, n := range d.view.Nodes {
		groups[n.Collection] = append(groups[n.Collection], n)
	}
	collections := make([]string, 0, len(groups))
	for c := range groups {
		collections = append(collections, c)
	}
	sort.Strings(collections)

	for i, collection := range collections {
		indent := "  "
		if collection != "" {
			buf.WriteString(fmt.Sprintf("  subgraph cluster_%d {\n", i))
			buf.WriteString(fmt.Sprintf("    label=\"%s\";\n", escapeLabel(collection)))
			buf.WriteString("    style=filled;\n")
			buf.WriteString("    color=\"whitesmoke\";\n")
			indent = "    "
		}
		for _, n := range groups[collection] {
			buf.WriteString(indent + d.nodeLine(ids[n.Name], n))
		}
		if collection != "" {
			buf.WriteString("  }\n")
		}
	}
	buf.WriteString("\n")

	for _, e := range d.view.Edges {
		attrs := edgeStyles[e.Class]
		if label := edgeLabel(e); label != "" {
			attrs += fmt.Sprintf(", label=\"%s\"", label)
		}
		buf.WriteString(fmt.Sprintf("  %s -> %s [%s];\n", ids[e.Source], ids[e.Target], attrs))
	}

	buf.WriteString("\n  subgraph cluster_legend {\n")
	buf.WriteString("    label=\"Legend\";\n")
	buf.WriteString("    style=dashed;\n")
	for _, band := range scoring.Bands {
		p := bandPalette[band]
		buf.WriteString(fmt.Sprintf("    legend_%s [label=\"%s\", fillcolor=\"%s\", color=\"%s\"];\n", band, band, p.fill, p.stroke))
	}
	buf.WriteString("    legend_cycle [label=\"In cycle\", fillcolor=\"white\", color=\"red\", penwidth=2.0];\n")
	buf.WriteString("    legend_break [label=\"Dashed red edge: suggested break\", shape=plaintext, fontcolor=\"red\"];\n")
	buf.WriteString("    legend_cross [label=\"Dashed blue edge: crosses collections\", shape=plaintext, fontcolor=\"royalblue\"];\n")
	buf.WriteString("  }\n")

	buf.WriteString("}\n")
	return buf.String(), nil
}

func (d *DOTGenerator) nodeLine(id string, n app.DiagramNode) string {
	p := colorsFor(n.Band)
	stroke, width := p.stroke, "1.0"
	if n.CycleID != 0 {
		stroke, width = "red", "2.0"
	}
	attrs := fmt.Sprintf("label=\"%s\", fillcolor=\"%s\", color=\"%s\", penwidth=%s", escapeLabel(nodeLabel(n)), p.fill, stroke, width)
	return fmt.Sprintf("%s [%s];\n", id, attrs)
}
