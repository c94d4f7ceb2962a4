// # internal/engine/source/provider.go
package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"untangle/internal/core/ports"
	"untangle/internal/engine/graph"
	"untangle/internal/engine/parser"
	"untangle/internal/shared/util"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

const maxSourceFileBytes = 2 << 20 // 2 MiB

var (
	ErrNoSourcePath  = errors.New("module has no source path")
	ErrNoSourceFiles = ports.ErrNoSourceFiles
)

var skippedDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	".idea":        true,
	".vs":          true,
	".venv":        true,
	"__pycache__":  true,
	"bin":          true,
	"build":        true,
	"dist":         true,
	"node_modules": true,
	"obj":          true,
	"target":       true,
	"vendor":       true,
}

// SkippedDirs lists the directory names never scanned for sources.
func SkippedDirs() []string {
	return util.SortedStringKeys(skippedDirs)
}

// Analysis is everything the engine needs from one module's sources.
type Analysis struct {
	Module string
	Dir    string
	Files  int

	Units []parser.Unit
	Calls []parser.Call

	Declared map[string]bool // unit and type names defined in the module
	Exported map[string]bool // callable public surface

	OpenAPIOperations int
	OpenAPIFiles      []string
	Warnings          []string
}

type Options struct {
	// Root resolves relative module paths.
	Root      string
	CacheSize int
	// IORate caps file reads per second; 0 disables throttling.
	IORate  float64
	OpenAPI bool
}

// Provider reads and parses module sources on demand. Results are cached
// per module and concurrent requests for the same module share one parse.
type Provider struct {
	parser  *parser.Parser
	cache   *lru.Cache[string, *Analysis]
	group   singleflight.Group
	limiter *util.Limiter
	root    string
	openAPI bool
}

func NewProvider(p *parser.Parser, opts Options) (*Provider, error) {
	size := opts.CacheSize
	if size <= 0 {
		size = 512
	}
	cache, err := lru.New[string, *Analysis](size)
	if err != nil {
		return nil, fmt.Errorf("create source cache: %w", err)
	}
	provider := &Provider{
		parser:  p,
		cache:   cache,
		root:    opts.Root,
		openAPI: opts.OpenAPI,
		limiter: util.NewLimiter(opts.IORate),
	}
	return provider, nil
}

// Invalidate drops cached analyses for the given modules, or all of them
// when no name is given.
func (p *Provider) Invalidate(names ...string) {
	if len(names) == 0 {
		p.cache.Purge()
		return
	}
	for _, name := range names {
		p.cache.Remove(graph.Key(name))
	}
}

func (p *Provider) Analyze(ctx context.Context, node graph.Node) (*Analysis, error) {
	key := node.Key()
	if cached, ok := p.cache.Get(key); ok {
		return cached, nil
	}
	v, err, _ := p.group.Do(key, func() (any, error) {
		analysis, err := p.analyze(ctx, node)
		if err != nil {
			return nil, err
		}
		p.cache.Add(key, analysis)
		return analysis, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Analysis), nil
}

// Units implements the engine's source port.
func (p *Provider) Units(ctx context.Context, node graph.Node) ([]parser.Unit, error) {
	analysis, err := p.Analyze(ctx, node)
	if err != nil {
		return nil, err
	}
	if analysis.Files == 0 {
		return nil, ErrNoSourceFiles
	}
	return analysis.Units, nil
}

// OpenAPIOperations counts operations declared in OpenAPI documents under
// the module directory.
func (p *Provider) OpenAPIOperations(ctx context.Context, node graph.Node) (int, error) {
	analysis, err := p.Analyze(ctx, node)
	if err != nil {
		return 0, err
	}
	return analysis.OpenAPIOperations, nil
}

// CountCalls counts call sites in source that reach target: calls
// qualified by the target module's name, and unqualified or foreign-
// qualified calls naming target's public surface that source does not
// define itself.
func (p *Provider) CountCalls(ctx context.Context, source, target graph.Node) (int, error) {
	src, err := p.Analyze(ctx, source)
	if err != nil {
		return 0, err
	}
	if src.Files == 0 {
		return 0, fmt.Errorf("%s: %w", source.Name, ErrNoSourceFiles)
	}
	tgt, err := p.Analyze(ctx, target)
	if err != nil {
		return 0, err
	}
	if tgt.Files == 0 {
		return 0, fmt.Errorf("%s: %w", target.Name, ErrNoSourceFiles)
	}

	short := shortName(target.Name)
	count := 0
	for _, call := range src.Calls {
		switch {
		case call.Qualifier != "" && shortName(call.Qualifier) == short:
			count++
		case src.Declared[call.Name]:
		case tgt.Exported[call.Name]:
			count++
		}
	}
	return count, nil
}

func (p *Provider) analyze(ctx context.Context, node graph.Node) (*Analysis, error) {
	dir, err := p.moduleDir(node)
	if err != nil {
		return nil, err
	}

	analysis := &Analysis{
		Module:   node.Name,
		Dir:      dir,
		Declared: make(map[string]bool),
		Exported: make(map[string]bool),
	}
	loader := p.parser.Loader()

	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			analysis.Warnings = append(analysis.Warnings, err.Error())
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if path != dir && (skippedDirs[d.Name()] || strings.HasPrefix(d.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}

		if p.openAPI && IsOpenAPIFile(path) {
			n, err := CountOperations(ctx, path)
			if err != nil {
				analysis.Warnings = append(analysis.Warnings, err.Error())
				return nil
			}
			analysis.OpenAPIFiles = append(analysis.OpenAPIFiles, path)
			analysis.OpenAPIOperations += n
			return nil
		}
		if !p.parser.IsSupportedPath(path) || loader.IsTestFile(path) {
			return nil
		}
		return p.parseInto(ctx, analysis, path, d)
	})
	if walkErr != nil {
		return nil, walkErr
	}

	for _, w := range analysis.Warnings {
		slog.Debug("source analysis warning", "module", node.Name, "warning", w)
	}
	return analysis, nil
}

func (p *Provider) parseInto(ctx context.Context, analysis *Analysis, path string, d fs.DirEntry) error {
	info, err := d.Info()
	if err != nil {
		analysis.Warnings = append(analysis.Warnings, err.Error())
		return nil
	}
	if info.Size() > maxSourceFileBytes {
		analysis.Warnings = append(analysis.Warnings, fmt.Sprintf("%s: skipped, %d bytes", path, info.Size()))
		return nil
	}
	if err := p.limiter.Wait(ctx, 1); err != nil {
		return err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		analysis.Warnings = append(analysis.Warnings, err.Error())
		return nil
	}
	file, err := p.parser.ParseFile(path, content)
	if err != nil {
		analysis.Warnings = append(analysis.Warnings, err.Error())
		return nil
	}

	analysis.Files++
	analysis.Units = append(analysis.Units, file.Units...)
	analysis.Calls = append(analysis.Calls, file.Calls...)
	for _, u := range file.Units {
		analysis.Declared[u.Name] = true
		if u.Exported && u.Kind != parser.UnitConstructor {
			analysis.Exported[u.Name] = true
		}
	}
	for _, t := range file.Types {
		analysis.Declared[t.Name] = true
		if t.Exported {
			analysis.Exported[t.Name] = true
		}
	}
	return nil
}

// Affected returns the names of the nodes whose source directory contains
// one of the changed paths.
func (p *Provider) Affected(nodes []graph.Node, changed []string) []string {
	var names []string
	for _, n := range nodes {
		dir, err := p.moduleDir(n)
		if err != nil {
			continue
		}
		for _, path := range changed {
			if util.HasPathPrefix(path, dir) {
				names = append(names, n.Name)
				break
			}
		}
	}
	return names
}

// moduleDir resolves a module path to the directory holding its sources.
// A path naming a project file resolves to the file's directory.
func (p *Provider) moduleDir(node graph.Node) (string, error) {
	path := strings.TrimSpace(node.Path)
	if path == "" {
		return "", fmt.Errorf("%s: %w", node.Name, ErrNoSourcePath)
	}
	if !filepath.IsAbs(path) && p.root != "" {
		path = filepath.Join(p.root, path)
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("%s: %w", node.Name, err)
	}
	if !info.IsDir() {
		path = filepath.Dir(path)
	}
	return path, nil
}

// shortName returns the last segment of a dotted, scoped or slashed name,
// lowercased.
func shortName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if idx := strings.LastIndexAny(name, ".:/\\"); idx >= 0 {
		name = name[idx+1:]
	}
	return name
}
