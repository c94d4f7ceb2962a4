package config

import (
	"time"
	"untangle/internal/engine/metrics"
	"untangle/internal/engine/scoring"
)

type Config struct {
	Version       int           `toml:"version"`
	Project       Project       `toml:"project"`
	Filter        Filter        `toml:"filter"`
	Scoring       Scoring       `toml:"scoring"`
	Analysis      Analysis      `toml:"analysis"`
	Ranking       Ranking       `toml:"ranking"`
	Output        Output        `toml:"output"`
	DB            Database      `toml:"db"`
	Observability Observability `toml:"observability"`
	Watch         Watch         `toml:"watch"`
}

type Project struct {
	Name     string `toml:"name"`
	Root     string `toml:"root"`
	Manifest string `toml:"manifest"`
}

type Filter struct {
	// Defaults adds DefaultBlockPatterns to Block.
	Defaults *bool    `toml:"defaults"`
	Block    []string `toml:"block"`
	Allow    []string `toml:"allow"`
}

// DefaultBlockPatterns hides framework and runtime references.
var DefaultBlockPatterns = []string{
	"System.*",
	"Microsoft.*",
	"mscorlib",
	"netstandard",
	"NETStandard.Library",
	"WindowsBase",
	"PresentationCore",
	"PresentationFramework",
}

type Scoring struct {
	ComplexityCeiling float64            `toml:"complexity_ceiling"`
	TieBreak          string             `toml:"tie_break"`
	Weights           scoring.Weights    `toml:"weights"`
	Exposure          Exposure           `toml:"exposure"`
	Timelines         []metrics.Timeline `toml:"timelines"`
}

type Exposure struct {
	Markers []string `toml:"markers"`
	OpenAPI *bool    `toml:"openapi"`
}

type Analysis struct {
	Workers         int           `toml:"workers"`
	UnitTimeout     time.Duration `toml:"unit_timeout"`
	CouplingTimeout time.Duration `toml:"coupling_timeout"`
	CacheSize       int           `toml:"cache_size"`
	IORate          float64       `toml:"io_rate"`
	Languages       []string      `toml:"languages"`
}

type Ranking struct {
	TopN int `toml:"top_n"`
}

type Output struct {
	Dir            string `toml:"dir"`
	DOT            string `toml:"dot"`
	SVG            bool   `toml:"svg"`
	ScoresCSV      string `toml:"scores_csv"`
	SuggestionsCSV string `toml:"suggestions_csv"`
	Markdown       string `toml:"markdown"`
	SuggestionsTop int    `toml:"suggestions_top"`
}

type Database struct {
	Enabled *bool  `toml:"enabled"`
	Path    string `toml:"path"`
}

type Observability struct {
	Enabled      bool    `toml:"enabled"`
	Address      string  `toml:"address"`
	OTLPEndpoint string  `toml:"otlp_endpoint"`
	ServiceName  string  `toml:"service_name"`
	SampleRate   float64 `toml:"sample_rate"`
}

type Watch struct {
	Debounce time.Duration `toml:"debounce"`
}

func (f Filter) DefaultsEnabled() bool {
	return f.Defaults == nil || *f.Defaults
}

// BlockPatterns returns the configured block list, preceded by the
// framework defaults unless they are disabled.
func (f Filter) BlockPatterns() []string {
	if !f.DefaultsEnabled() {
		return f.Block
	}
	out := make([]string, 0, len(DefaultBlockPatterns)+len(f.Block))
	out = append(out, DefaultBlockPatterns...)
	return append(out, f.Block...)
}

func (e Exposure) OpenAPIEnabled() bool {
	return e.OpenAPI == nil || *e.OpenAPI
}

func (d Database) IsEnabled() bool {
	return d.Enabled == nil || *d.Enabled
}

// Default returns a configuration with every default applied, used when no
// configuration file exists.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}
