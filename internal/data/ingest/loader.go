package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"untangle/internal/core/errors"
	"untangle/internal/engine/graph"
)

// DiscoveryNames are the description files looked up in the project root,
// in order.
var DiscoveryNames = []string{
	"untangle.graph.json",
	"untangle.graph.yaml",
	"untangle.graph.yml",
	"untangle.graph.toml",
}

// Strategy is one way of obtaining a graph description. Load returns an
// error describing why the strategy could not produce one.
type Strategy interface {
	Name() string
	Load(ctx context.Context) (graph.Description, string, error)
}

// Attempt records the outcome of one strategy.
type Attempt struct {
	Strategy string
	Source   string
	Err      error
}

func (a Attempt) OK() bool { return a.Err == nil }

type Result struct {
	Description graph.Description
	Strategy    string
	Source      string
	Attempts    []Attempt
}

// Loader tries strategies in order and keeps the first success.
type Loader struct {
	strategies []Strategy
}

func NewLoader(strategies ...Strategy) *Loader {
	return &Loader{strategies: strategies}
}

func (l *Loader) Load(ctx context.Context) (Result, error) {
	var res Result
	for _, s := range l.strategies {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		desc, source, err := s.Load(ctx)
		res.Attempts = append(res.Attempts, Attempt{Strategy: s.Name(), Source: source, Err: err})
		if err != nil {
			slog.Debug("graph ingestion strategy failed", "strategy", s.Name(), "error", err)
			continue
		}
		res.Description = desc
		res.Strategy = s.Name()
		res.Source = source
		slog.Info("graph description loaded", "strategy", s.Name(), "source", source,
			"modules", len(desc.Modules), "edges", len(desc.Edges))
		return res, nil
	}

	reasons := make([]string, 0, len(res.Attempts))
	for _, a := range res.Attempts {
		reasons = append(reasons, fmt.Sprintf("%s: %v", a.Strategy, a.Err))
	}
	if len(reasons) == 0 {
		reasons = append(reasons, "no strategies configured")
	}
	return res, errors.New(errors.CodeIngestFailed, "no graph description available ("+strings.Join(reasons, "; ")+")")
}

// ManifestStrategy reads an explicitly configured description file.
type ManifestStrategy struct {
	Path string
}

func (ManifestStrategy) Name() string { return "manifest" }

func (s ManifestStrategy) Load(_ context.Context) (graph.Description, string, error) {
	if strings.TrimSpace(s.Path) == "" {
		return graph.Description{}, "", fmt.Errorf("no manifest configured")
	}
	desc, err := readFile(s.Path)
	return desc, s.Path, err
}

// DiscoveryStrategy looks for a conventionally named description file in
// the project root.
type DiscoveryStrategy struct {
	Root string
}

func (DiscoveryStrategy) Name() string { return "discovery" }

func (s DiscoveryStrategy) Load(_ context.Context) (graph.Description, string, error) {
	root := s.Root
	if root == "" {
		root = "."
	}
	for _, name := range DiscoveryNames {
		path := filepath.Join(root, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		desc, err := readFile(path)
		return desc, path, err
	}
	return graph.Description{}, "", fmt.Errorf("no %s in %s", strings.Join(DiscoveryNames, ", "), root)
}

// DescriptionStore is the part of the history store ingestion reads from.
type DescriptionStore interface {
	LatestDescription(ctx context.Context, project string) (graph.Description, bool, error)
}

// HistoryStrategy reuses the description recorded by the last run.
type HistoryStrategy struct {
	Store   DescriptionStore
	Project string
}

func (HistoryStrategy) Name() string { return "history" }

func (s HistoryStrategy) Load(ctx context.Context) (graph.Description, string, error) {
	if s.Store == nil {
		return graph.Description{}, "", fmt.Errorf("history store disabled")
	}
	source := "history:" + s.Project
	desc, ok, err := s.Store.LatestDescription(ctx, s.Project)
	if err != nil {
		return graph.Description{}, source, err
	}
	if !ok {
		return graph.Description{}, source, fmt.Errorf("no recorded description for project %q", s.Project)
	}
	return desc, source, nil
}

func readFile(path string) (graph.Description, error) {
	format, ok := FormatOf(path)
	if !ok {
		return graph.Description{}, errors.AddContext(
			errors.Newf(errors.CodeNotSupported, "unsupported description extension %q", filepath.Ext(path)),
			errors.CtxPath, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return graph.Description{}, errors.AddContext(
			errors.Wrap(err, errors.CodeIngestFailed, "read description"), errors.CtxPath, path)
	}
	desc, err := Decode(data, format)
	if err != nil {
		return graph.Description{}, errors.AddContext(err, errors.CtxPath, path)
	}
	return desc, nil
}
