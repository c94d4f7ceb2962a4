package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
	"untangle/internal/core/errors"
	"untangle/internal/engine/metrics"
	"untangle/internal/engine/scoring"

	"github.com/BurntSushi/toml"
)

const DefaultFile = "untangle.toml"

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeInvalidConfig, "parse configuration"), errors.CtxPath, path)
	}
	for _, key := range md.Undecoded() {
		slog.Warn("unknown configuration key", "key", key.String(), "path", path)
	}

	ApplyEnvOverrides(&cfg)
	applyDefaults(&cfg)
	normalize(&cfg)

	if errs := Validate(&cfg); len(errs) > 0 {
		return nil, errors.AddContext(errors.Wrap(errs[0], errors.CodeInvalidConfig, "invalid configuration"), errors.CtxPath, path)
	}
	return &cfg, nil
}

// LoadOrDefault loads path when it exists. A missing default config file
// yields the built-in defaults; a missing explicit path is an error.
func LoadOrDefault(path string) (*Config, string, error) {
	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		path = DefaultFile
	}
	if _, err := os.Stat(path); err != nil {
		if explicit || !os.IsNotExist(err) {
			return nil, "", errors.AddContext(errors.Wrap(err, errors.CodeInvalidConfig, "read configuration"), errors.CtxPath, path)
		}
		cfg := Default()
		ApplyEnvOverrides(cfg)
		normalize(cfg)
		if errs := Validate(cfg); len(errs) > 0 {
			return nil, "", errors.Wrap(errs[0], errors.CodeInvalidConfig, "invalid configuration")
		}
		return cfg, "", nil
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}

	if strings.TrimSpace(cfg.Project.Root) == "" {
		cfg.Project.Root = "."
	}
	if strings.TrimSpace(cfg.Project.Name) == "" {
		if abs, err := filepath.Abs(cfg.Project.Root); err == nil {
			cfg.Project.Name = filepath.Base(abs)
		} else {
			cfg.Project.Name = "default"
		}
	}

	if cfg.Scoring.ComplexityCeiling == 0 {
		cfg.Scoring.ComplexityCeiling = metrics.DefaultComplexityCeiling
	}
	if strings.TrimSpace(cfg.Scoring.TieBreak) == "" {
		cfg.Scoring.TieBreak = "source"
	}
	if cfg.Scoring.Weights == (scoring.Weights{}) {
		cfg.Scoring.Weights = scoring.DefaultWeights()
	}
	if len(cfg.Scoring.Exposure.Markers) == 0 {
		cfg.Scoring.Exposure.Markers = append([]string(nil), metrics.DefaultMarkers...)
	}
	if len(cfg.Scoring.Timelines) == 0 {
		cfg.Scoring.Timelines = metrics.DefaultTimelines()
	}

	if cfg.Analysis.Workers == 0 {
		cfg.Analysis.Workers = min(runtime.NumCPU(), 8)
	}
	if cfg.Analysis.UnitTimeout == 0 {
		cfg.Analysis.UnitTimeout = 10 * time.Second
	}
	if cfg.Analysis.CouplingTimeout == 0 {
		cfg.Analysis.CouplingTimeout = 5 * time.Second
	}
	if cfg.Analysis.CacheSize == 0 {
		cfg.Analysis.CacheSize = 512
	}

	if cfg.Ranking.TopN == 0 {
		cfg.Ranking.TopN = scoring.DefaultTopN
	}

	if strings.TrimSpace(cfg.Output.Dir) == "" {
		cfg.Output.Dir = "untangle-report"
	}
	if strings.TrimSpace(cfg.Output.DOT) == "" {
		cfg.Output.DOT = "dependencies.dot"
	}
	if strings.TrimSpace(cfg.Output.ScoresCSV) == "" {
		cfg.Output.ScoresCSV = "extraction-scores.csv"
	}
	if strings.TrimSpace(cfg.Output.SuggestionsCSV) == "" {
		cfg.Output.SuggestionsCSV = "cycle-breaks.csv"
	}
	if strings.TrimSpace(cfg.Output.Markdown) == "" {
		cfg.Output.Markdown = "report.md"
	}
	if cfg.Output.SuggestionsTop == 0 {
		cfg.Output.SuggestionsTop = 20
	}

	if strings.TrimSpace(cfg.DB.Path) == "" {
		cfg.DB.Path = filepath.Join(".untangle", "history.db")
	}

	if strings.TrimSpace(cfg.Observability.Address) == "" {
		cfg.Observability.Address = "127.0.0.1:9464"
	}
	if strings.TrimSpace(cfg.Observability.ServiceName) == "" {
		cfg.Observability.ServiceName = "untangle"
	}
	if cfg.Observability.SampleRate == 0 {
		cfg.Observability.SampleRate = 1
	}

	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
}

func normalize(cfg *Config) {
	cfg.Project.Name = strings.TrimSpace(cfg.Project.Name)
	cfg.Project.Root = strings.TrimSpace(cfg.Project.Root)
	cfg.Project.Manifest = strings.TrimSpace(cfg.Project.Manifest)
	cfg.Scoring.TieBreak = strings.ToLower(strings.TrimSpace(cfg.Scoring.TieBreak))
	cfg.Filter.Block = trimAll(cfg.Filter.Block)
	cfg.Filter.Allow = trimAll(cfg.Filter.Allow)
	cfg.Analysis.Languages = trimAll(cfg.Analysis.Languages)
	for i := range cfg.Analysis.Languages {
		cfg.Analysis.Languages[i] = strings.ToLower(cfg.Analysis.Languages[i])
	}
}

func trimAll(values []string) []string {
	for i, v := range values {
		values[i] = strings.TrimSpace(v)
	}
	return values
}
