package app

import (
	"context"
	"log/slog"
	"time"
	"untangle/internal/data/history"
	"untangle/internal/data/ingest"
	"untangle/internal/engine/coupling"
	"untangle/internal/engine/graph"
	"untangle/internal/engine/metrics"
	"untangle/internal/engine/recommend"
	"untangle/internal/engine/scoring"
	"untangle/internal/shared/observability"
	"untangle/internal/shared/util"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// Result is everything one analysis run produced. When the run is
// cancelled it holds whatever the stages completed and Partial is set.
type Result struct {
	RunID       string
	Project     string
	StartedAt   time.Time
	Duration    time.Duration
	Ingest      ingest.Result
	Graph       *graph.Graph
	Filter      graph.FilterResult
	Cycles      graph.CycleReport
	Coupling    coupling.Report
	Suggestions []recommend.Suggestion
	Metrics     metrics.Results
	Scores      []scoring.ExtractionScore
	Ranking     scoring.Ranking
	Partial     bool
}

// TopSuggestions returns the first n ranked suggestions, or all of them
// when n <= 0.
func (r *Result) TopSuggestions(n int) []recommend.Suggestion {
	return recommend.Top(r.Suggestions, n)
}

// FallbackCount is the number of metric and coupling values that came
// from fallback policies instead of source analysis.
func (r *Result) FallbackCount() int {
	total := r.Coupling.Fallbacks
	for _, n := range r.Metrics.Fallbacks {
		total += n
	}
	return total
}

// Analyze runs the whole pipeline once. Ingestion, structural and
// configuration errors abort the run. Cancellation does not: every stage
// keeps what it finished, the result is marked partial and returned
// together with the context error.
func (a *App) Analyze(ctx context.Context) (*Result, error) {
	a.runMu.Lock()
	defer a.runMu.Unlock()

	ctx, finish := observability.StartStage(ctx, "analyze",
		attribute.String("untangle.project", a.Config.Project.Name))
	res, err := a.run(ctx)
	finish(err)

	switch {
	case err == nil:
		observability.AnalysisRunsTotal.WithLabelValues("ok").Inc()
	case res != nil && res.Partial:
		observability.AnalysisRunsTotal.WithLabelValues("partial").Inc()
	default:
		observability.AnalysisRunsTotal.WithLabelValues("failed").Inc()
	}
	a.setLast(res, err)
	return res, err
}

func (a *App) run(ctx context.Context) (*Result, error) {
	res := &Result{
		RunID:     uuid.NewString(),
		Project:   a.Config.Project.Name,
		StartedAt: time.Now().UTC(),
	}

	err := stage(ctx, "ingest", func(ctx context.Context) error {
		var err error
		res.Ingest, err = ingest.NewLoader(a.strategies()...).Load(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	err = stage(ctx, "build", func(context.Context) error {
		var err error
		res.Graph, err = graph.FromDescription(res.Ingest.Description)
		return err
	})
	if err != nil {
		return nil, err
	}
	g := res.Graph

	_ = stage(ctx, "filter", func(context.Context) error {
		res.Filter = graph.Filter(g, a.rules)
		return nil
	})
	observability.GraphEdges.Set(float64(g.EdgeCount()))
	if len(res.Filter.Excluded) > 0 {
		slog.Debug("framework filter applied", "excluded", len(res.Filter.Excluded),
			"removed_edges", res.Filter.Removed, "retained_edges", res.Filter.Retained)
	}

	// Cancellation from here on only truncates the result.
	var runErr error
	keep := func(err error) {
		if err != nil && runErr == nil {
			runErr = err
			res.Partial = true
		}
	}

	keep(stage(ctx, "cycles", func(ctx context.Context) error {
		var err error
		res.Cycles, err = graph.DetectCycles(ctx, g)
		return err
	}))

	keep(stage(ctx, "coupling", func(ctx context.Context) error {
		analyzer := coupling.NewAnalyzer(a.Provider, coupling.WithTimeout(a.Config.Analysis.CouplingTimeout))
		var err error
		res.Coupling, err = analyzer.Analyze(ctx, g)
		return err
	}))

	keep(stage(ctx, "recommend", func(ctx context.Context) error {
		var err error
		res.Suggestions, err = recommend.Recommend(ctx, g, res.Cycles.Cycles, recommend.Options{TieBreak: a.tieBreak})
		return err
	}))

	keep(stage(ctx, "metrics", func(ctx context.Context) error {
		var err error
		runner := metrics.NewRunner(a.Config.Analysis.Workers, a.Provider).Exclude(res.Filter.Excluded...)
		res.Metrics, err = runner.Run(ctx, g, a.calculators)
		return err
	}))

	_ = stage(ctx, "score", func(context.Context) error {
		res.Scores = a.scorer.ScoreAll(res.Metrics.Sets)
		res.Ranking = scoring.Rank(res.Scores, a.Config.Ranking.TopN)
		return nil
	})
	for band, n := range res.Ranking.Counts {
		observability.CandidatesByBand.WithLabelValues(string(band)).Set(float64(n))
	}

	res.Duration = time.Since(res.StartedAt)

	if a.History != nil {
		a.persist(context.WithoutCancel(ctx), res)
	}

	slog.Info("analysis complete",
		"project", res.Project,
		"modules", g.NodeCount(),
		"edges", g.EdgeCount(),
		"cycles", res.Cycles.Stats.TotalCycles,
		"suggestions", len(res.Suggestions),
		"fallbacks", res.FallbackCount(),
		"partial", res.Partial,
		"duration", res.Duration,
	)
	slog.Debug("analysis memory", "heap_mb", util.GetHeapAllocMB())
	return res, runErr
}

func stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, finish := observability.StartStage(ctx, name)
	err := fn(ctx)
	finish(err)
	return err
}

// persist records the run and, unless it came from history, the ingested
// description. History is best effort: failures are logged, never fatal.
func (a *App) persist(ctx context.Context, res *Result) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := a.History.SaveRun(ctx, RunRecord(res)); err != nil {
		slog.Warn("failed to record run", "run", res.RunID, "error", err)
	}
	if res.Ingest.Strategy == (ingest.HistoryStrategy{}).Name() {
		return
	}
	if err := a.History.SaveDescription(ctx, res.Project, res.Ingest.Description); err != nil {
		slog.Warn("failed to record graph description", "project", res.Project, "error", err)
	}
}

// RunRecord converts a result into its persisted summary.
func RunRecord(res *Result) history.Run {
	run := history.Run{
		ID:            res.RunID,
		Project:       res.Project,
		Timestamp:     res.StartedAt,
		CycleCount:    res.Cycles.Stats.TotalCycles,
		NodesInCycles: res.Cycles.Stats.NodesInCycles,
		Participation: res.Cycles.Stats.ParticipationPercent,
		Suggestions:   len(res.Suggestions),
		EasyCount:     res.Ranking.Counts[scoring.BandEasy],
		MediumCount:   res.Ranking.Counts[scoring.BandMedium],
		HardCount:     res.Ranking.Counts[scoring.BandHard],
		Fallbacks:     res.FallbackCount(),
		Partial:       res.Partial,
		Scores:        make([]history.ModuleScore, 0, len(res.Scores)),
	}
	if res.Graph != nil {
		run.ModuleCount = res.Graph.NodeCount()
		run.EdgeCount = res.Graph.EdgeCount()
	}
	for _, s := range res.Scores {
		run.Scores = append(run.Scores, history.ModuleScore{
			Module:      s.Module,
			Final:       s.Final,
			Band:        string(s.Band),
			Coupling:    s.Coupling.Score,
			Complexity:  s.Complexity.Score,
			VersionDebt: s.VersionDebt.Score,
			Exposure:    s.Exposure.Score,
		})
	}
	return run
}
