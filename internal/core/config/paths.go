package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

type ResolvedPaths struct {
	ProjectRoot    string
	Manifest       string
	DBPath         string
	OutputDir      string
	DOT            string
	SVG            string
	ScoresCSV      string
	SuggestionsCSV string
	Markdown       string
}

// ResolvePaths anchors the project root at the directory of the config
// file (or cwd when there is none) and every other path at the project
// root, except outputs which live under the output directory.
func ResolvePaths(cfg *Config, base string) (ResolvedPaths, error) {
	if strings.TrimSpace(base) == "" {
		return ResolvedPaths{}, fmt.Errorf("base directory must not be empty")
	}

	root := ResolveRelative(base, cfg.Project.Root)
	outDir := ResolveRelative(root, cfg.Output.Dir)
	resolved := ResolvedPaths{
		ProjectRoot:    root,
		DBPath:         ResolveRelative(root, cfg.DB.Path),
		OutputDir:      outDir,
		DOT:            resolveOptional(outDir, cfg.Output.DOT),
		ScoresCSV:      resolveOptional(outDir, cfg.Output.ScoresCSV),
		SuggestionsCSV: resolveOptional(outDir, cfg.Output.SuggestionsCSV),
		Markdown:       resolveOptional(outDir, cfg.Output.Markdown),
	}
	if cfg.Project.Manifest != "" {
		resolved.Manifest = ResolveRelative(root, cfg.Project.Manifest)
	}
	if cfg.Output.SVG && resolved.DOT != "" {
		resolved.SVG = SVGPath(resolved.DOT)
	}
	return resolved, nil
}

func ResolveRelative(base, value string) string {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return filepath.Clean(base)
	}
	if filepath.IsAbs(raw) {
		return filepath.Clean(raw)
	}
	return filepath.Clean(filepath.Join(base, raw))
}

func resolveOptional(base, value string) string {
	if strings.TrimSpace(value) == "" || value == "-" {
		return ""
	}
	return ResolveRelative(base, value)
}
