package metrics

import (
	"strings"
	"untangle/internal/engine/parser"
)

// DefaultMarkers names the annotations that expose a unit as an endpoint
// across the supported frameworks.
var DefaultMarkers = []string{
	// ASP.NET / WCF / Azure Functions
	"HttpGet", "HttpPost", "HttpPut", "HttpDelete", "HttpPatch", "Route",
	"ApiController", "WebMethod", "OperationContract", "FunctionName",
	// Spring / JAX-RS
	"GetMapping", "PostMapping", "PutMapping", "DeleteMapping", "PatchMapping",
	"RequestMapping", "RestController", "Path", "GET", "POST", "PUT", "DELETE",
	// Flask / FastAPI / Django REST
	"route", "get", "post", "put", "delete", "patch", "api_view",
	// NestJS
	"Controller",
	// Rust web frameworks
	"handler",
	// Go handlers are recognized by signature
	parser.MarkerHandlerFunc,
}

// MarkerSet matches unit markers against a normalized list of names.
type MarkerSet struct {
	names map[string]bool
}

func NewMarkerSet(markers []string) MarkerSet {
	set := MarkerSet{names: make(map[string]bool, len(markers))}
	for _, m := range markers {
		for _, name := range MarkerNames(m) {
			set.names[name] = true
		}
	}
	return set
}

func (s MarkerSet) Len() int { return len(s.names) }

// HasMarker reports whether any of the unit's markers is in the set.
func (s MarkerSet) HasMarker(unit parser.Unit) bool {
	for _, raw := range unit.Markers {
		for _, name := range MarkerNames(raw) {
			if s.names[name] {
				return true
			}
		}
	}
	return false
}

// MarkerNames normalizes raw annotation text to comparable names:
// "[HttpGet(\"x\"), Authorize]" yields "httpget" and "authorize",
// "@app.route('/')" yields "route" and "#[get(\"/\")]" yields "get".
func MarkerNames(raw string) []string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "#!")
	s = strings.TrimPrefix(s, "#")
	s = strings.TrimPrefix(s, "@")
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		s = s[1 : len(s)-1]
	}

	var names []string
	for _, part := range splitTopLevel(s) {
		if name := markerName(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func markerName(part string) string {
	part = strings.TrimSpace(part)
	part = strings.TrimPrefix(part, "@")
	if idx := strings.IndexAny(part, "(<"); idx >= 0 {
		part = part[:idx]
	}
	part = strings.TrimSpace(part)
	// attribute targets such as [return: Foo]
	if idx := strings.LastIndex(part, ": "); idx >= 0 {
		part = part[idx+2:]
	}
	if idx := strings.LastIndexAny(part, ".:"); idx >= 0 {
		part = part[idx+1:]
	}
	if len(part) > len("Attribute") && strings.HasSuffix(part, "Attribute") {
		part = strings.TrimSuffix(part, "Attribute")
	}
	return strings.ToLower(part)
}

// splitTopLevel splits on commas outside parentheses and quotes.
func splitTopLevel(s string) []string {
	var parts []string
	depth := 0
	var quote rune
	start := 0
	for i, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		case r == '(' || r == '[' || r == '{':
			depth++
		case r == ')' || r == ']' || r == '}':
			if depth > 0 {
				depth--
			}
		case r == ',' && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}
