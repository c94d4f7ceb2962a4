package parser

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// extract walks a parsed tree with the language's profile and fills file.
func extract(profile *languageProfile, root *sitter.Node, source []byte, file *File) {
	ctx := &ExtractionContext{Source: source, File: file, profile: profile}

	handlers := make(map[string]NodeHandler)
	for kind := range profile.units {
		handlers[kind] = extractUnit
	}
	for _, kind := range profile.types {
		handlers[kind] = extractType
	}
	for kind := range profile.calls {
		handlers[kind] = extractCall
	}
	NewExtractorEngine(handlers).Walk(ctx, root)
}

func extractUnit(ctx *ExtractionContext, node *sitter.Node) bool {
	name := unitName(ctx, node)
	if name == "" {
		// Anonymous callables stay part of their enclosing unit.
		return false
	}
	p := ctx.profile
	kind := p.units[node.Kind()]
	if p.unitKind != nil {
		kind = p.unitKind(ctx, node, name, kind)
	}
	unit := Unit{
		Name:       name,
		Kind:       kind,
		Exported:   p.exported(ctx, node, name),
		Cyclomatic: cyclomatic(ctx, node),
		Location:   ctx.Location(node),
	}
	if p.markers != nil {
		unit.Markers = p.markers(ctx, node)
	}
	ctx.File.Units = append(ctx.File.Units, unit)
	return false
}

// unitName returns the declared name, or the binding name for a function
// expression assigned to a variable. Other anonymous callables have none.
func unitName(ctx *ExtractionContext, node *sitter.Node) string {
	if nameNode := node.ChildByFieldName("name"); nameNode != nil {
		return ctx.Text(nameNode)
	}
	switch node.Kind() {
	case "arrow_function", "function_expression":
		if parent := node.Parent(); parent != nil && parent.Kind() == "variable_declarator" {
			return ctx.Text(parent.ChildByFieldName("name"))
		}
	}
	return ""
}

func isNamedUnit(ctx *ExtractionContext, node *sitter.Node) bool {
	if _, ok := ctx.profile.units[node.Kind()]; !ok {
		return false
	}
	return unitName(ctx, node) != ""
}

// cyclomatic counts decision points plus one. Nested named units are
// measured on their own; anonymous closures count toward the enclosing unit.
func cyclomatic(ctx *ExtractionContext, unit *sitter.Node) int {
	decisions := make(map[string]bool, len(ctx.profile.decisions))
	for _, kind := range ctx.profile.decisions {
		decisions[kind] = true
	}

	complexity := 1
	var walk func(node *sitter.Node)
	walk = func(node *sitter.Node) {
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			if child == nil || isNamedUnit(ctx, child) {
				continue
			}
			if decisions[child.Kind()] {
				if child.Kind() != "binary_expression" || isBooleanOperator(ctx, child) {
					complexity++
				}
			}
			walk(child)
		}
	}
	walk(unit)
	return complexity
}

func isBooleanOperator(ctx *ExtractionContext, node *sitter.Node) bool {
	if op := node.ChildByFieldName("operator"); op != nil {
		text := ctx.Text(op)
		return text == "&&" || text == "||"
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		switch ctx.Text(node.Child(i)) {
		case "&&", "||":
			return true
		}
	}
	return false
}

func extractType(ctx *ExtractionContext, node *sitter.Node) bool {
	name := ctx.Text(node.ChildByFieldName("name"))
	if name == "" {
		return false
	}
	ctx.File.Types = append(ctx.File.Types, Symbol{
		Name:     name,
		Exported: ctx.profile.exported(ctx, node, name),
		Location: ctx.Location(node),
	})
	return false
}

func extractCall(ctx *ExtractionContext, node *sitter.Node) bool {
	field := ctx.profile.calls[node.Kind()]
	callee := node.ChildByFieldName(field)
	if callee == nil {
		return false
	}

	var call Call
	if node.Kind() == "method_invocation" {
		call.Name = ctx.Text(callee)
		call.Qualifier = ctx.Text(node.ChildByFieldName("object"))
	} else {
		call.Qualifier, call.Name = splitCallee(ctx, callee)
	}
	call.Name = cleanName(call.Name)
	if call.Name == "" {
		return false
	}
	call.Location = ctx.Location(node)
	ctx.File.Calls = append(ctx.File.Calls, call)
	return false
}

var memberFields = map[string][2]string{
	"selector_expression": {"operand", "field"},
	"attribute":           {"object", "attribute"},
	"member_expression":   {"object", "property"},
	"field_expression":    {"value", "field"},
	"scoped_identifier":   {"path", "name"},
	// C#
	"member_access_expression": {"expression", "name"},
	"qualified_name":           {"qualifier", "name"},
}

func splitCallee(ctx *ExtractionContext, callee *sitter.Node) (qualifier, name string) {
	if fields, ok := memberFields[callee.Kind()]; ok {
		return ctx.Text(callee.ChildByFieldName(fields[0])), ctx.Text(callee.ChildByFieldName(fields[1]))
	}
	switch callee.Kind() {
	case "generic_function":
		if fn := callee.ChildByFieldName("function"); fn != nil {
			return splitCallee(ctx, fn)
		}
	case "generic_type", "scoped_type_identifier":
		text := ctx.Text(callee)
		if idx := strings.LastIndexAny(text, ".:"); idx >= 0 && !strings.Contains(text[:idx], "<") {
			return strings.TrimRight(text[:idx], ".:"), text[idx+1:]
		}
		return "", text
	}
	return "", ctx.Text(callee)
}

// cleanName drops generic arguments and surrounding punctuation.
func cleanName(name string) string {
	if idx := strings.IndexAny(name, "<("); idx >= 0 {
		name = name[:idx]
	}
	return strings.TrimSpace(strings.TrimPrefix(name, "#"))
}
