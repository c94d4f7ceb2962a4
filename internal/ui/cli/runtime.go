package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"
	coreapp "untangle/internal/core/app"
	"untangle/internal/core/config"
	"untangle/internal/shared/observability"
	"untangle/internal/shared/util"
	"untangle/internal/shared/version"
	"untangle/internal/ui/report"
)

// Run executes the command line and returns the process exit code.
func Run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return execute(ctx, args, os.Stdout, os.Stderr)
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var opts cliOptions
	root := newRootCommand(&opts, stdout, stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	var exit *exitError
	if errors.As(err, &exit) {
		if exit.err != nil {
			fmt.Fprintln(stderr, exit.err.Error())
		}
		return exit.code
	}
	fmt.Fprintln(stderr, err.Error())
	return 1
}

// loadConfig resolves the config file and the base directory relative
// paths in it are anchored at, then applies command-line overrides.
func loadConfig(opts *cliOptions) (*config.Config, string, string, error) {
	cfg, path, err := config.LoadOrDefault(opts.configPath)
	if err != nil {
		return nil, "", "", err
	}
	base, err := os.Getwd()
	if err != nil {
		return nil, "", "", fmt.Errorf("detect working directory: %w", err)
	}
	if path != "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, "", "", err
		}
		path = abs
		base = filepath.Dir(abs)
	}

	if m := strings.TrimSpace(opts.manifest); m != "" {
		if !filepath.IsAbs(m) {
			// Flags are relative to where the command runs, not to the config.
			cwd, _ := os.Getwd()
			m = filepath.Join(cwd, m)
		}
		cfg.Project.Manifest = m
	}
	if opts.top < 0 {
		return nil, "", "", fmt.Errorf("--top must be >= 1, got %d", opts.top)
	}
	if opts.top > 0 {
		cfg.Ranking.TopN = opts.top
	}
	return cfg, path, base, nil
}

func newApp(opts *cliOptions) (*coreapp.App, string, error) {
	cfg, path, base, err := loadConfig(opts)
	if err != nil {
		return nil, "", err
	}
	a, err := coreapp.New(cfg, base)
	if err != nil {
		return nil, "", err
	}
	return a, path, nil
}

func startTracing(ctx context.Context, cfg *config.Config) func() {
	tp, err := observability.InitTracing(ctx, observability.TracingConfig{
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: version.Version,
		OTLPEndpoint:   cfg.Observability.OTLPEndpoint,
		SampleRate:     cfg.Observability.SampleRate,
	})
	if err != nil {
		slog.Warn("tracing disabled", "error", err)
		return func() {}
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			slog.Warn("failed to flush traces", "error", err)
		}
	}
}

func runAnalyze(ctx context.Context, opts *cliOptions, out io.Writer) error {
	a, _, err := newApp(opts)
	if err != nil {
		return err
	}
	defer a.Close()
	defer startTracing(ctx, a.Config)()

	res, err := a.Analyze(ctx)
	if res == nil {
		return err
	}
	writeOutputs(ctx, a, res)
	printSummary(out, res, a.Config.Output.SuggestionsTop)
	if err != nil {
		// cancelled after ingestion: what finished was still reported
		return &exitError{code: 130, err: fmt.Errorf("analysis interrupted: %w", err)}
	}
	return nil
}

func runWatch(ctx context.Context, opts *cliOptions, out io.Writer) error {
	a, cfgPath, err := newApp(opts)
	if err != nil {
		return err
	}
	defer a.Close()
	defer startTracing(ctx, a.Config)()

	if a.Config.Observability.Enabled {
		server := NewObservabilityServer(a.Config.Observability.Address, coreapp.NewHealthService(a))
		if err := server.Start(ctx); err != nil {
			return err
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Stop(stopCtx)
		}()
	}

	return a.Watch(ctx, coreapp.WatchOptions{
		ConfigPath: cfgPath,
		OnResult: func(res *coreapp.Result, err error) {
			if res == nil {
				if err != nil && ctx.Err() == nil {
					slog.Error("analysis failed", "error", err)
				}
				return
			}
			writeOutputs(ctx, a, res)
			printSummary(out, res, a.Config.Output.SuggestionsTop)
		},
	})
}

func runHistory(ctx context.Context, opts *cliOptions, out io.Writer) error {
	since, err := parseSince(opts.since)
	if err != nil {
		return err
	}
	if opts.window <= 0 {
		return fmt.Errorf("--window must be > 0, got %s", opts.window)
	}

	a, _, err := newApp(opts)
	if err != nil {
		return err
	}
	defer a.Close()

	trend, err := a.Trend(ctx, since, opts.window)
	if err != nil {
		return err
	}

	if opts.historyTSV != "" {
		data, err := report.RenderTrendTSV(trend)
		if err != nil {
			return err
		}
		if err := util.WriteFileWithDirs(opts.historyTSV, data, 0o644); err != nil {
			return err
		}
	}
	if opts.historyJSON != "" {
		data, err := report.RenderTrendJSON(trend)
		if err != nil {
			return err
		}
		if err := util.WriteFileWithDirs(opts.historyJSON, data, 0o644); err != nil {
			return err
		}
	}

	printTrend(out, trend)
	return nil
}

func writeOutputs(ctx context.Context, a *coreapp.App, res *coreapp.Result) {
	w := report.NewWriter(a.Config, a.Paths, version.Version)
	written, err := w.Write(ctx, res)
	if err != nil {
		slog.Error("failed to generate outputs", "error", err)
	}
	if len(written) > 0 {
		slog.Info("outputs written", "count", len(written), "dir", a.Paths.OutputDir)
	}
}

func parseSince(value string) (time.Time, error) {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return time.Time{}, nil
	}

	rfc3339, err := time.Parse(time.RFC3339, raw)
	if err == nil {
		return rfc3339.UTC(), nil
	}

	dateOnly, err := time.Parse("2006-01-02", raw)
	if err == nil {
		return dateOnly.UTC(), nil
	}

	return time.Time{}, fmt.Errorf("--since must be RFC3339 or YYYY-MM-DD, got %q", value)
}

func configureLogging(w io.Writer, verbose bool) {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
}
