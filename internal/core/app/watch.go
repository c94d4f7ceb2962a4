package app

import (
	"context"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"untangle/internal/core/config"
	"untangle/internal/core/watcher"
	"untangle/internal/data/ingest"
	"untangle/internal/engine/graph"
	"untangle/internal/engine/recommend"
	"untangle/internal/engine/scoring"
	"untangle/internal/engine/source"
)

type WatchOptions struct {
	// ConfigPath enables configuration reloads when set.
	ConfigPath string
	OnResult   func(*Result, error)
}

// Watch runs the analysis once and again after every debounced batch of
// source, description or configuration changes, until ctx is done.
func (a *App) Watch(ctx context.Context, opts WatchOptions) error {
	rerun := func() {
		res, err := a.Analyze(ctx)
		if opts.OnResult != nil {
			opts.OnResult(res, err)
		}
	}
	rerun()

	w, err := watcher.NewWatcher(a.Config.Watch.Debounce, a.excludedDirs(), func(paths []string) {
		if ctx.Err() != nil {
			return
		}
		a.HandleChanges(paths)
		rerun()
	})
	if err != nil {
		return err
	}
	defer w.Close()

	extensions, names := a.watchFilters()
	w.SetFilters(extensions, names, a.Parser.Loader().IsTestFile)
	if err := w.Watch([]string{a.Paths.ProjectRoot}); err != nil {
		return err
	}

	if opts.ConfigPath != "" {
		cw := config.NewWatcher(opts.ConfigPath, a.Config.Watch.Debounce, func(cfg *config.Config, changed []string) {
			slog.Debug("applying configuration change", "sections", changed)
			if err := a.Reconfigure(cfg); err != nil {
				slog.Error("reloaded configuration rejected", "error", err)
				return
			}
			rerun()
		})
		if err := cw.Start(ctx); err != nil {
			return err
		}
		defer cw.Stop()
	}

	slog.Info("watching for changes", "root", a.Paths.ProjectRoot, "debounce", a.Config.Watch.Debounce)
	<-ctx.Done()
	return nil
}

// HandleChanges drops cached source analyses made stale by the changed
// paths. A changed graph description purges everything, since module
// paths may have moved.
func (a *App) HandleChanges(paths []string) {
	slog.Info("detected changes", "count", len(paths))

	a.runMu.Lock()
	defer a.runMu.Unlock()

	last, _ := a.Last()
	if last == nil || last.Graph == nil || slices.ContainsFunc(paths, a.isDescriptionFile) {
		a.Provider.Invalidate()
		return
	}
	if affected := a.Provider.Affected(last.Graph.Nodes(), paths); len(affected) > 0 {
		slog.Debug("invalidating module analyses", "modules", affected)
		a.Provider.Invalidate(affected...)
	}
}

func (a *App) isDescriptionFile(path string) bool {
	if a.Paths.Manifest != "" && filepath.Clean(path) == filepath.Clean(a.Paths.Manifest) {
		return true
	}
	base := strings.ToLower(filepath.Base(path))
	return slices.Contains(ingest.DiscoveryNames, base)
}

func (a *App) watchFilters() (extensions, names []string) {
	extensions = a.Parser.Loader().SupportedExtensions()
	names = append(names, ingest.DiscoveryNames...)
	if a.Paths.Manifest != "" {
		names = append(names, filepath.Base(a.Paths.Manifest))
	}
	if a.Config.Scoring.Exposure.OpenAPIEnabled() {
		names = append(names, source.OpenAPIFileNames()...)
	}
	return extensions, names
}

func (a *App) excludedDirs() []string {
	dirs := source.SkippedDirs()
	dirs = append(dirs, ".untangle")
	if out := filepath.Base(a.Paths.OutputDir); out != "" && out != "." {
		dirs = append(dirs, out)
	}
	return dirs
}

// Reconfigure applies a reloaded configuration to the next run. Filter,
// scoring, ranking and output settings take effect immediately; the
// project root, languages, source cache and history store keep their
// startup values until a restart.
func (a *App) Reconfigure(cfg *config.Config) error {
	rules, err := graph.CompileFilter(cfg.Filter.BlockPatterns(), cfg.Filter.Allow)
	if err != nil {
		return err
	}
	scorer, err := scoring.NewCalculator(cfg.Scoring.Weights)
	if err != nil {
		return err
	}
	tieBreak, err := recommend.ParseTieBreak(cfg.Scoring.TieBreak)
	if err != nil {
		return err
	}

	a.runMu.Lock()
	defer a.runMu.Unlock()

	old := a.Config
	if cfg.Project.Root != old.Project.Root ||
		!slices.Equal(cfg.Analysis.Languages, old.Analysis.Languages) ||
		cfg.DB.IsEnabled() != old.DB.IsEnabled() || cfg.DB.Path != old.DB.Path ||
		cfg.Analysis.CacheSize != old.Analysis.CacheSize || cfg.Analysis.IORate != old.Analysis.IORate {
		slog.Warn("some configuration changes only apply after a restart",
			"sections", "project.root, analysis.languages, analysis.cache_size, analysis.io_rate, db")
	}
	cfg.Project.Root = old.Project.Root
	cfg.Analysis.Languages = old.Analysis.Languages
	cfg.Analysis.CacheSize = old.Analysis.CacheSize
	cfg.Analysis.IORate = old.Analysis.IORate
	cfg.DB = old.DB

	paths, err := config.ResolvePaths(cfg, a.base)
	if err != nil {
		return err
	}

	a.Config = cfg
	a.Paths = paths
	a.rules = rules
	a.scorer = scorer
	a.tieBreak = tieBreak
	a.calculators = calculatorsFor(cfg)
	slog.Info("configuration reloaded", "project", cfg.Project.Name)
	return nil
}
