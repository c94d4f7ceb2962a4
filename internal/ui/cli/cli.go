package cli

import (
	"fmt"
	"io"
	"time"
	"untangle/internal/shared/version"

	"github.com/spf13/cobra"
)

type cliOptions struct {
	configPath string
	manifest   string
	verbose    bool
	top        int

	since       string
	window      time.Duration
	historyTSV  string
	historyJSON string
}

// exitError carries a process exit code through cobra's error return.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func newRootCommand(opts *cliOptions, stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "untangle",
		Short: "Find dependency cycles and rank modules by extraction difficulty",
		Long: `untangle loads a module dependency graph, detects cycles, suggests the
weakest dependency to break in each, and scores every module on how hard
it would be to extract.

The graph comes from a manifest (--manifest or project.manifest), from an
untangle.graph.{json,yaml,yml,toml} in the project root, or from the last
description recorded in the history database.

Examples:
  untangle analyze
  untangle analyze --config ./untangle.toml --top 5
  untangle watch --verbose
  untangle history --since 2026-01-01 --json trends.json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			configureLogging(stderr, opts.verbose)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "Path to config file (default ./untangle.toml when present)")
	pf.StringVar(&opts.manifest, "manifest", "", "Graph description to load instead of project.manifest")
	pf.BoolVar(&opts.verbose, "verbose", false, "Enable verbose logging")
	pf.IntVar(&opts.top, "top", 0, "Number of easiest and hardest candidates to report (overrides ranking.top_n)")

	root.AddCommand(
		newAnalyzeCommand(opts),
		newWatchCommand(opts),
		newHistoryCommand(opts),
		newVersionCommand(),
	)
	return root
}

func newAnalyzeCommand(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze",
		Short: "Run the analysis once and write the configured outputs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}
}

func newWatchCommand(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Re-run the analysis whenever sources, the graph description or the config change",
		Long: `watch runs the analysis once, then again after every debounced batch of
file changes under the project root. Hot configuration settings (filters,
weights, tie break, outputs) are reloaded without a restart. When
observability is enabled, /metrics and /health are served on
observability.address.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}
}

func newHistoryCommand(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Report trends across recorded runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&opts.since, "since", "", "Only include runs at/after this timestamp (RFC3339 or YYYY-MM-DD)")
	cmd.Flags().DurationVar(&opts.window, "window", 24*time.Hour, "Moving window for average cycle counts")
	cmd.Flags().StringVar(&opts.historyTSV, "tsv", "", "Write the trend report as TSV to this path")
	cmd.Flags().StringVar(&opts.historyJSON, "json", "", "Write the trend report as JSON to this path")
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "untangle %s\n", version.Version)
		},
	}
}
