package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"untangle/internal/core/config"
	"untangle/internal/core/ports"
	"untangle/internal/data/history"
	"untangle/internal/data/ingest"
	"untangle/internal/engine/graph"
	"untangle/internal/engine/metrics"
	"untangle/internal/engine/parser"
	"untangle/internal/engine/recommend"
	"untangle/internal/engine/scoring"
	"untangle/internal/engine/source"
)

type App struct {
	Config   *config.Config
	Paths    config.ResolvedPaths
	Parser   *parser.Parser
	Provider *source.Provider
	// History is nil when persistence is disabled.
	History ports.HistoryStore

	base        string
	store       *history.Store
	rules       *graph.FilterRules
	scorer      *scoring.Calculator
	tieBreak    recommend.TieBreak
	calculators []metrics.Calculator

	runMu   sync.Mutex
	lastMu  sync.RWMutex
	last    *Result
	lastErr error
}

// New wires the analysis pipeline for cfg. Relative paths in cfg resolve
// against base. Configuration problems surface here, before any run.
func New(cfg *config.Config, base string) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	paths, err := config.ResolvePaths(cfg, base)
	if err != nil {
		return nil, err
	}

	rules, err := graph.CompileFilter(cfg.Filter.BlockPatterns(), cfg.Filter.Allow)
	if err != nil {
		return nil, err
	}
	scorer, err := scoring.NewCalculator(cfg.Scoring.Weights)
	if err != nil {
		return nil, err
	}
	tieBreak, err := recommend.ParseTieBreak(cfg.Scoring.TieBreak)
	if err != nil {
		return nil, err
	}

	loader, err := parser.NewGrammarLoader(cfg.Analysis.Languages)
	if err != nil {
		return nil, err
	}
	p := parser.NewParser(loader)

	provider, err := source.NewProvider(p, source.Options{
		Root:      paths.ProjectRoot,
		CacheSize: cfg.Analysis.CacheSize,
		IORate:    cfg.Analysis.IORate,
		OpenAPI:   cfg.Scoring.Exposure.OpenAPIEnabled(),
	})
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:      cfg,
		Paths:       paths,
		Parser:      p,
		Provider:    provider,
		base:        base,
		rules:       rules,
		scorer:      scorer,
		tieBreak:    tieBreak,
		calculators: calculatorsFor(cfg),
	}

	if cfg.DB.IsEnabled() {
		store, err := history.Open(paths.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open history store: %w", err)
		}
		a.store = store
		a.History = store
	}

	slog.Debug("app initialized",
		"project", cfg.Project.Name,
		"root", paths.ProjectRoot,
		"languages", loader.Languages(),
		"history", cfg.DB.IsEnabled(),
	)
	return a, nil
}

func (a *App) Close() error {
	if a == nil || a.store == nil {
		return nil
	}
	return a.store.Close()
}

// Last returns the most recent run and its error, if any run happened.
func (a *App) Last() (*Result, error) {
	a.lastMu.RLock()
	defer a.lastMu.RUnlock()
	return a.last, a.lastErr
}

func (a *App) setLast(res *Result, err error) {
	a.lastMu.Lock()
	defer a.lastMu.Unlock()
	a.last = res
	a.lastErr = err
}

func calculatorsFor(cfg *config.Config) []metrics.Calculator {
	return metrics.DefaultCalculators(
		cfg.Scoring.ComplexityCeiling,
		cfg.Scoring.Timelines,
		cfg.Scoring.Exposure.Markers,
		metrics.WithUnitTimeout(cfg.Analysis.UnitTimeout),
	)
}

// strategies is the ingestion chain: explicit manifest, discovered
// description, then the description recorded by the last run.
func (a *App) strategies() []ingest.Strategy {
	var chain []ingest.Strategy
	if a.Paths.Manifest != "" {
		chain = append(chain, ingest.ManifestStrategy{Path: a.Paths.Manifest})
	}
	chain = append(chain, ingest.DiscoveryStrategy{Root: a.Paths.ProjectRoot})
	if a.History != nil {
		chain = append(chain, ingest.HistoryStrategy{Store: a.History, Project: a.Config.Project.Name})
	}
	return chain
}

// Trend summarizes the recorded runs of the project since the given time.
func (a *App) Trend(ctx context.Context, since time.Time, window time.Duration) (history.TrendReport, error) {
	if a.History == nil {
		return history.TrendReport{}, fmt.Errorf("history is disabled (db.enabled = false)")
	}
	runs, err := a.History.LoadRuns(ctx, a.Config.Project.Name, since)
	if err != nil {
		return history.TrendReport{}, err
	}
	return history.BuildTrendReport(a.Config.Project.Name, runs, window)
}
