package config

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"untangle/internal/engine/graph"
	"untangle/internal/engine/parser"
	"untangle/internal/engine/recommend"
)

func validateVersion(cfg *Config) error {
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validateProject(cfg *Config) error {
	if cfg.Project.Name == "" {
		return fmt.Errorf("project.name must not be empty")
	}
	if cfg.Project.Manifest != "" {
		switch strings.ToLower(filepath.Ext(cfg.Project.Manifest)) {
		case ".json", ".yaml", ".yml", ".toml":
		default:
			return fmt.Errorf("project.manifest must be a .json, .yaml, .yml or .toml file, got %q", cfg.Project.Manifest)
		}
	}
	return nil
}

func validateFilter(cfg *Config) error {
	_, err := graph.CompileFilter(cfg.Filter.BlockPatterns(), cfg.Filter.Allow)
	return err
}

func validateScoring(cfg *Config) error {
	if err := cfg.Scoring.Weights.Validate(); err != nil {
		return err
	}
	if cfg.Scoring.ComplexityCeiling <= 0 {
		return fmt.Errorf("scoring.complexity_ceiling must be > 0, got %v", cfg.Scoring.ComplexityCeiling)
	}
	if _, err := recommend.ParseTieBreak(cfg.Scoring.TieBreak); err != nil {
		return fmt.Errorf("scoring.tie_break: %w", err)
	}

	seen := make(map[string]bool, len(cfg.Scoring.Timelines))
	for i, tl := range cfg.Scoring.Timelines {
		ref := fmt.Sprintf("scoring.timelines[%d]", i)
		name := strings.ToLower(strings.TrimSpace(tl.Name))
		if name == "" {
			return fmt.Errorf("%s.name must not be empty", ref)
		}
		if seen[name] {
			return fmt.Errorf("duplicate timeline %q", tl.Name)
		}
		seen[name] = true
		if len(tl.Versions) == 0 {
			return fmt.Errorf("%s.versions must not be empty", ref)
		}
		versions := make(map[string]bool, len(tl.Versions))
		for _, v := range tl.Versions {
			v = strings.ToLower(strings.TrimSpace(v))
			if v == "" {
				return fmt.Errorf("%s.versions contains an empty entry", ref)
			}
			if versions[v] {
				return fmt.Errorf("%s.versions lists %q twice", ref, v)
			}
			versions[v] = true
		}
	}
	return nil
}

func validateAnalysis(cfg *Config) error {
	a := cfg.Analysis
	if a.Workers < 1 {
		return fmt.Errorf("analysis.workers must be >= 1, got %d", a.Workers)
	}
	if a.UnitTimeout < 0 {
		return fmt.Errorf("analysis.unit_timeout must not be negative")
	}
	if a.CouplingTimeout < 0 {
		return fmt.Errorf("analysis.coupling_timeout must not be negative")
	}
	if a.CacheSize < 1 {
		return fmt.Errorf("analysis.cache_size must be >= 1, got %d", a.CacheSize)
	}
	if a.IORate < 0 {
		return fmt.Errorf("analysis.io_rate must not be negative")
	}
	known := parser.KnownLanguages()
	for i, lang := range a.Languages {
		if !slices.Contains(known, lang) {
			return fmt.Errorf("analysis.languages[%d]: unknown language %q (known: %s)", i, lang, strings.Join(known, ", "))
		}
	}
	return nil
}

func validateRanking(cfg *Config) error {
	if cfg.Ranking.TopN < 1 {
		return fmt.Errorf("ranking.top_n must be >= 1, got %d", cfg.Ranking.TopN)
	}
	return nil
}

func validateOutput(cfg *Config) error {
	if strings.TrimSpace(cfg.Output.Dir) == "" {
		return fmt.Errorf("output.dir must not be empty")
	}
	if cfg.Output.SuggestionsTop < 0 {
		return fmt.Errorf("output.suggestions_top must not be negative")
	}

	outputs := make(map[string]string)
	checkConflict := func(path, name string) error {
		if path == "" {
			return nil
		}
		path = filepath.Clean(path)
		if owner, exists := outputs[path]; exists {
			return fmt.Errorf("output conflict: %s and %s share the same path %q", owner, name, path)
		}
		outputs[path] = name
		return nil
	}

	if err := checkConflict(cfg.Output.DOT, "output.dot"); err != nil {
		return err
	}
	if err := checkConflict(cfg.Output.ScoresCSV, "output.scores_csv"); err != nil {
		return err
	}
	if err := checkConflict(cfg.Output.SuggestionsCSV, "output.suggestions_csv"); err != nil {
		return err
	}
	if err := checkConflict(cfg.Output.Markdown, "output.markdown"); err != nil {
		return err
	}
	if cfg.Output.SVG && cfg.Output.DOT != "" {
		if err := checkConflict(SVGPath(cfg.Output.DOT), "output.svg"); err != nil {
			return err
		}
	}
	return nil
}

func validateDatabase(cfg *Config) error {
	if cfg.DB.IsEnabled() && strings.TrimSpace(cfg.DB.Path) == "" {
		return fmt.Errorf("db.path must not be empty when db.enabled is true")
	}
	return nil
}

func validateObservability(cfg *Config) error {
	o := cfg.Observability
	if o.Enabled && strings.TrimSpace(o.Address) == "" {
		return fmt.Errorf("observability.address must not be empty when observability.enabled is true")
	}
	if o.SampleRate < 0 || o.SampleRate > 1 {
		return fmt.Errorf("observability.sample_rate must be within [0,1], got %v", o.SampleRate)
	}
	return nil
}

func validateWatch(cfg *Config) error {
	if cfg.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative")
	}
	return nil
}

// Validate runs every check and returns all failures.
func Validate(cfg *Config) []error {
	checks := []func(*Config) error{
		validateVersion,
		validateProject,
		validateFilter,
		validateScoring,
		validateAnalysis,
		validateRanking,
		validateOutput,
		validateDatabase,
		validateObservability,
		validateWatch,
	}
	var errs []error
	for _, check := range checks {
		if err := check(cfg); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// SVGPath is where the rendered SVG of a DOT file is written.
func SVGPath(dotPath string) string {
	return strings.TrimSuffix(dotPath, filepath.Ext(dotPath)) + ".svg"
}
