package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: UNTANGLE_[SECTION]_[KEY] (e.g., UNTANGLE_ANALYSIS_WORKERS).
func ApplyEnvOverrides(cfg *Config) {
	// Project
	setEnvString(&cfg.Project.Name, "UNTANGLE_PROJECT_NAME")
	setEnvString(&cfg.Project.Root, "UNTANGLE_PROJECT_ROOT")
	setEnvString(&cfg.Project.Manifest, "UNTANGLE_PROJECT_MANIFEST")

	// Scoring
	setEnvFloat64(&cfg.Scoring.ComplexityCeiling, "UNTANGLE_SCORING_COMPLEXITY_CEILING")
	setEnvString(&cfg.Scoring.TieBreak, "UNTANGLE_SCORING_TIE_BREAK")

	// Analysis
	setEnvInt(&cfg.Analysis.Workers, "UNTANGLE_ANALYSIS_WORKERS")
	setEnvDuration(&cfg.Analysis.UnitTimeout, "UNTANGLE_ANALYSIS_UNIT_TIMEOUT")
	setEnvDuration(&cfg.Analysis.CouplingTimeout, "UNTANGLE_ANALYSIS_COUPLING_TIMEOUT")
	setEnvInt(&cfg.Analysis.CacheSize, "UNTANGLE_ANALYSIS_CACHE_SIZE")
	setEnvFloat64(&cfg.Analysis.IORate, "UNTANGLE_ANALYSIS_IO_RATE")

	// Ranking / output
	setEnvInt(&cfg.Ranking.TopN, "UNTANGLE_RANKING_TOP_N")
	setEnvString(&cfg.Output.Dir, "UNTANGLE_OUTPUT_DIR")
	setEnvBool(&cfg.Output.SVG, "UNTANGLE_OUTPUT_SVG")

	// Database
	setEnvBoolPtr(&cfg.DB.Enabled, "UNTANGLE_DB_ENABLED")
	setEnvString(&cfg.DB.Path, "UNTANGLE_DB_PATH")

	// Observability
	setEnvBool(&cfg.Observability.Enabled, "UNTANGLE_OBSERVABILITY_ENABLED")
	setEnvString(&cfg.Observability.Address, "UNTANGLE_OBSERVABILITY_ADDRESS")
	setEnvString(&cfg.Observability.OTLPEndpoint, "UNTANGLE_OBSERVABILITY_OTLP_ENDPOINT")
	setEnvFloat64(&cfg.Observability.SampleRate, "UNTANGLE_OBSERVABILITY_SAMPLE_RATE")

	// Watch
	setEnvDuration(&cfg.Watch.Debounce, "UNTANGLE_WATCH_DEBOUNCE")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = val
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = b
		}
	}
}

func setEnvBoolPtr(target **bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(strings.ToLower(val)); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = &b
		}
	}
}

func setEnvFloat64(target *float64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = f
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = d
		}
	}
}
