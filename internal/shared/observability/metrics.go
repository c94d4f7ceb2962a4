package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	GraphNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "untangle_graph_nodes_total",
		Help: "Total number of module nodes in the dependency graph.",
	})

	GraphEdges = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "untangle_graph_edges_total",
		Help: "Total number of live dependency edges in the graph.",
	})

	FilteredEdgesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "untangle_filtered_edges_total",
		Help: "Total number of edges removed by the framework filter.",
	})

	CyclesDetected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "untangle_cycles_detected",
		Help: "Number of strongly connected components of size > 1 in the last run.",
	})

	CycleParticipation = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "untangle_cycle_participation_percent",
		Help: "Share of modules that belong to at least one cycle in the last run.",
	})

	AnalysisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "untangle_analysis_seconds",
		Help:    "Time spent on pipeline stages.",
		Buckets: prometheus.DefBuckets,
	}, []string{"task"})

	MetricFallbackTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "untangle_metric_fallback_total",
		Help: "Total number of metric results that degraded to their fallback value.",
	}, []string{"metric"})

	CouplingFallbackTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "untangle_coupling_fallback_total",
		Help: "Total number of edges whose coupling score came from the fallback policy.",
	})

	SourceFilesParsed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "untangle_source_files_parsed_total",
		Help: "Total number of source files parsed for semantic analysis.",
	}, []string{"language"})

	ParsingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "untangle_parsing_seconds",
		Help:    "Time spent parsing a source file.",
		Buckets: prometheus.DefBuckets,
	}, []string{"language"})

	CandidatesByBand = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "untangle_candidates_by_band",
		Help: "Number of modules per extraction difficulty band in the last run.",
	}, []string{"band"})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "untangle_watcher_events_total",
		Help: "Total number of file system events seen in watch mode.",
	})

	AnalysisRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "untangle_analysis_runs_total",
		Help: "Total number of analysis runs by outcome.",
	}, []string{"outcome"})
)
