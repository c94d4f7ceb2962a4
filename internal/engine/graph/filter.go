package graph

import (
	"fmt"
	"strings"
	"untangle/internal/core/errors"
	"untangle/internal/shared/observability"

	"github.com/gobwas/glob"
)

type pattern struct {
	raw  string
	glob glob.Glob
}

// FilterRules decides which modules are framework noise. Patterns are
// anchored on the full module name and compared case-insensitively; an
// allow match always wins over a block match.
type FilterRules struct {
	block []pattern
	allow []pattern
}

type FilterResult struct {
	Removed  int
	Retained int
	Excluded []string
}

func CompileFilter(block, allow []string) (*FilterRules, error) {
	rules := &FilterRules{}
	var err error
	if rules.block, err = compilePatterns("filter.block", block); err != nil {
		return nil, err
	}
	if rules.allow, err = compilePatterns("filter.allow", allow); err != nil {
		return nil, err
	}
	return rules, nil
}

func compilePatterns(field string, raw []string) ([]pattern, error) {
	compiled := make([]pattern, 0, len(raw))
	for i, p := range raw {
		trimmed := strings.TrimSpace(p)
		if trimmed == "" {
			return nil, errors.AddContext(
				errors.New(errors.CodeInvalidConfig, "empty filter pattern"),
				errors.CtxField, fmt.Sprintf("%s[%d]", field, i),
			)
		}
		g, err := glob.Compile(strings.ToLower(trimmed))
		if err != nil {
			return nil, errors.AddContext(
				errors.Wrap(err, errors.CodeInvalidConfig, fmt.Sprintf("invalid filter pattern %q", p)),
				errors.CtxField, fmt.Sprintf("%s[%d]", field, i),
			)
		}
		compiled = append(compiled, pattern{raw: trimmed, glob: g})
	}
	return compiled, nil
}

func (r *FilterRules) Excludes(name string) bool {
	if r == nil || len(r.block) == 0 {
		return false
	}
	key := Key(name)
	if !matchAny(r.block, key) {
		return false
	}
	return !matchAny(r.allow, key)
}

func matchAny(patterns []pattern, key string) bool {
	for _, p := range patterns {
		if p.glob.Match(key) {
			return true
		}
	}
	return false
}

// Filter removes every edge touching an excluded module. Nodes stay in the
// graph so node counts reflect the whole input.
func Filter(g *Graph, rules *FilterRules) FilterResult {
	excluded := make(map[string]bool)
	result := FilterResult{}
	for _, n := range g.nodes {
		if rules.Excludes(n.Name) {
			excluded[n.Key()] = true
			result.Excluded = append(result.Excluded, n.Name)
		}
	}
	if len(excluded) > 0 {
		result.Removed = g.RemoveEdges(func(e Edge) bool {
			return excluded[Key(e.Source)] || excluded[Key(e.Target)]
		})
		observability.FilteredEdgesTotal.Add(float64(result.Removed))
	}
	result.Retained = g.EdgeCount()
	return result
}
