// # internal/engine/parser/profiles.go
package parser

import (
	"strings"
	"unicode"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// languageProfile is the table a language needs for unit extraction:
// which nodes are executable units and types, which nodes add a decision
// point, and how visibility and markers are spelled.
type languageProfile struct {
	units     map[string]UnitKind
	types     []string
	decisions []string
	calls     map[string]string // call node kind -> callee field
	exported  func(ctx *ExtractionContext, node *sitter.Node, name string) bool
	markers   func(ctx *ExtractionContext, node *sitter.Node) []string
	unitKind  func(ctx *ExtractionContext, node *sitter.Node, name string, base UnitKind) UnitKind
}

var profiles = map[string]*languageProfile{
	"csharp": {
		units: map[string]UnitKind{
			"method_declaration":       UnitMethod,
			"constructor_declaration":  UnitConstructor,
			"local_function_statement": UnitFunction,
		},
		types: []string{
			"class_declaration", "interface_declaration", "struct_declaration", "enum_declaration",
			"record_declaration",
		},
		decisions: []string{
			"if_statement", "for_statement", "foreach_statement", "while_statement", "do_statement",
			"switch_section", "switch_expression_arm", "catch_clause", "conditional_expression",
			"binary_expression",
		},
		calls: map[string]string{
			"invocation_expression":      "function",
			"object_creation_expression": "type",
		},
		exported: csharpExported,
		markers: func(ctx *ExtractionContext, node *sitter.Node) []string {
			return childrenOfKind(ctx, node, "attribute_list")
		},
	},
	"go": {
		units: map[string]UnitKind{
			"function_declaration": UnitFunction,
			"method_declaration":   UnitMethod,
		},
		types: []string{"type_spec"},
		decisions: []string{
			"if_statement", "for_statement", "expression_case", "type_case",
			"communication_case", "binary_expression",
		},
		calls:    map[string]string{"call_expression": "function"},
		exported: goExported,
		markers:  goMarkers,
	},
	"python": {
		units: map[string]UnitKind{
			"function_definition": UnitFunction,
		},
		types: []string{"class_definition"},
		decisions: []string{
			"if_statement", "elif_clause", "for_statement", "while_statement", "except_clause",
			"boolean_operator", "conditional_expression", "list_comprehension",
			"dictionary_comprehension", "set_comprehension", "generator_expression",
		},
		calls: map[string]string{"call": "function"},
		exported: func(_ *ExtractionContext, _ *sitter.Node, name string) bool {
			return !strings.HasPrefix(name, "_") || name == "__init__"
		},
		markers:  pythonMarkers,
		unitKind: pythonUnitKind,
	},
	"java": {
		units: map[string]UnitKind{
			"method_declaration":      UnitMethod,
			"constructor_declaration": UnitConstructor,
		},
		types: []string{"class_declaration", "interface_declaration", "enum_declaration", "record_declaration"},
		decisions: []string{
			"if_statement", "for_statement", "enhanced_for_statement", "while_statement", "do_statement",
			"switch_block_statement_group", "switch_rule", "catch_clause", "ternary_expression",
			"binary_expression",
		},
		calls: map[string]string{
			"method_invocation":          "name",
			"object_creation_expression": "type",
		},
		exported: javaExported,
		markers:  javaMarkers,
	},
	"javascript": scriptProfile(),
	"typescript": scriptProfile("interface_declaration", "type_alias_declaration", "enum_declaration"),
	"tsx":        scriptProfile("interface_declaration", "type_alias_declaration", "enum_declaration"),
	"rust": {
		units: map[string]UnitKind{
			"function_item": UnitFunction,
		},
		types: []string{"struct_item", "enum_item", "trait_item"},
		decisions: []string{
			"if_expression", "match_arm", "while_expression", "loop_expression", "for_expression",
			"binary_expression",
		},
		calls: map[string]string{"call_expression": "function"},
		exported: func(ctx *ExtractionContext, node *sitter.Node, _ string) bool {
			return ctx.ChildOfKind(node, "visibility_modifier") != nil
		},
		markers: func(ctx *ExtractionContext, node *sitter.Node) []string {
			return precedingSiblings(ctx, node, "attribute_item")
		},
		unitKind: func(ctx *ExtractionContext, node *sitter.Node, _ string, base UnitKind) UnitKind {
			if ctx.HasAncestor(node, "impl_item", 2) {
				return UnitMethod
			}
			return base
		},
	},
}

func scriptProfile(extraTypes ...string) *languageProfile {
	return &languageProfile{
		units: map[string]UnitKind{
			"function_declaration":           UnitFunction,
			"generator_function_declaration": UnitFunction,
			"method_definition":              UnitMethod,
			"arrow_function":                 UnitFunction,
			"function_expression":            UnitFunction,
		},
		types: append([]string{"class_declaration"}, extraTypes...),
		decisions: []string{
			"if_statement", "for_statement", "for_in_statement", "while_statement", "do_statement",
			"switch_case", "catch_clause", "ternary_expression", "binary_expression",
		},
		calls: map[string]string{
			"call_expression": "function",
			"new_expression":  "constructor",
		},
		exported: scriptExported,
		markers:  scriptMarkers,
		unitKind: func(_ *ExtractionContext, _ *sitter.Node, name string, base UnitKind) UnitKind {
			if base == UnitMethod && name == "constructor" {
				return UnitConstructor
			}
			return base
		},
	}
}

func goExported(_ *ExtractionContext, _ *sitter.Node, name string) bool {
	for _, r := range name {
		return unicode.IsUpper(r)
	}
	return false
}

var goHandlerParams = []string{"http.ResponseWriter", "*gin.Context", "echo.Context", "*fiber.Ctx"}

// goMarkers has no annotation syntax to read, so an HTTP handler signature
// is reported as a HandlerFunc marker.
func goMarkers(ctx *ExtractionContext, node *sitter.Node) []string {
	params := ctx.Text(node.ChildByFieldName("parameters"))
	for _, p := range goHandlerParams {
		if strings.Contains(params, p) {
			return []string{MarkerHandlerFunc}
		}
	}
	return nil
}

func pythonMarkers(ctx *ExtractionContext, node *sitter.Node) []string {
	parent := node.Parent()
	if parent == nil || parent.Kind() != "decorated_definition" {
		return nil
	}
	var markers []string
	for i := uint(0); i < parent.ChildCount(); i++ {
		child := parent.Child(i)
		if child != nil && child.Kind() == "decorator" {
			markers = append(markers, ctx.Text(child))
		}
	}
	return markers
}

func pythonUnitKind(ctx *ExtractionContext, node *sitter.Node, name string, base UnitKind) UnitKind {
	if !ctx.HasAncestor(node, "class_definition", 3) {
		return base
	}
	if name == "__init__" {
		return UnitConstructor
	}
	return UnitMethod
}

func javaExported(ctx *ExtractionContext, node *sitter.Node, _ string) bool {
	modifiers := ctx.ChildOfKind(node, "modifiers")
	if modifiers == nil {
		return false
	}
	for i := uint(0); i < modifiers.ChildCount(); i++ {
		if modifiers.Child(i).Kind() == "public" {
			return true
		}
	}
	return false
}

func javaMarkers(ctx *ExtractionContext, node *sitter.Node) []string {
	modifiers := ctx.ChildOfKind(node, "modifiers")
	if modifiers == nil {
		return nil
	}
	var markers []string
	for i := uint(0); i < modifiers.ChildCount(); i++ {
		child := modifiers.Child(i)
		switch child.Kind() {
		case "marker_annotation", "annotation":
			markers = append(markers, ctx.Text(child))
		}
	}
	return markers
}

// csharpExported treats public declarations as the module surface.
// Interface members without modifiers are implicitly public.
func csharpExported(ctx *ExtractionContext, node *sitter.Node, _ string) bool {
	modifiers := childrenOfKind(ctx, node, "modifier")
	for _, m := range modifiers {
		if m == "public" {
			return true
		}
	}
	return len(modifiers) == 0 && node.Kind() == "method_declaration" &&
		ctx.HasAncestor(node, "interface_declaration", 2)
}

func scriptExported(ctx *ExtractionContext, node *sitter.Node, name string) bool {
	if node.Kind() == "method_definition" {
		if strings.HasPrefix(name, "#") {
			return false
		}
		if mod := ctx.ChildOfKind(node, "accessibility_modifier"); mod != nil {
			return ctx.Text(mod) == "public"
		}
		return ctx.HasAncestor(node, "export_statement", 3)
	}
	return ctx.HasAncestor(node, "export_statement", 3)
}

func scriptMarkers(ctx *ExtractionContext, node *sitter.Node) []string {
	var markers []string
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child != nil && child.Kind() == "decorator" {
			markers = append(markers, ctx.Text(child))
		}
	}
	return append(markers, precedingSiblings(ctx, node, "decorator")...)
}

func childrenOfKind(ctx *ExtractionContext, node *sitter.Node, kind string) []string {
	var found []string
	for i := uint(0); i < node.ChildCount(); i++ {
		if child := node.Child(i); child != nil && child.Kind() == kind {
			found = append(found, ctx.Text(child))
		}
	}
	return found
}

// precedingSiblings collects the contiguous run of named siblings of the
// given kind directly before node, in source order.
func precedingSiblings(ctx *ExtractionContext, node *sitter.Node, kind string) []string {
	var found []string
	for s := node.PrevNamedSibling(); s != nil && s.Kind() == kind; s = s.PrevNamedSibling() {
		found = append([]string{ctx.Text(s)}, found...)
	}
	return found
}
