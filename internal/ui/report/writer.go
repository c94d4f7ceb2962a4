package report

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"
	"untangle/internal/core/app"
	"untangle/internal/core/config"
	"untangle/internal/shared/util"
	"untangle/internal/ui/report/formats"
)

// svgTimeout bounds the Graphviz run, which no longer follows the
// caller's cancellation.
const svgTimeout = 30 * time.Second

// Writer renders every output enabled in the configuration for one result.
type Writer struct {
	Paths          config.ResolvedPaths
	ProjectName    string
	Version        string
	SuggestionsTop int
	// Now is overridable for tests.
	Now func() time.Time
}

func NewWriter(cfg *config.Config, paths config.ResolvedPaths, version string) *Writer {
	return &Writer{
		Paths:          paths,
		ProjectName:    cfg.Project.Name,
		Version:        version,
		SuggestionsTop: cfg.Output.SuggestionsTop,
		Now:            func() time.Time { return time.Now().UTC() },
	}
}

// Write produces the outputs and returns the paths written. A missing
// Graphviz install is logged and skipped; any other failure is returned
// after the remaining outputs have been attempted. Results of an
// interrupted run are still rendered in full, so ctx only carries values.
func (w *Writer) Write(ctx context.Context, res *app.Result) ([]string, error) {
	if res == nil {
		return nil, fmt.Errorf("no analysis result to write")
	}
	view := res.Diagram(w.SuggestionsTop)

	var written []string
	var errs []error
	emit := func(path string, render func() ([]byte, error)) bool {
		if path == "" {
			return false
		}
		data, err := render()
		if err == nil {
			err = util.WriteFileWithDirs(path, data, 0o644)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("write %s: %w", path, err))
			return false
		}
		written = append(written, path)
		return true
	}

	dotOK := emit(w.Paths.DOT, func() ([]byte, error) {
		out, err := formats.NewDOTGenerator(view).Generate()
		return []byte(out), err
	})
	if dotOK && w.Paths.SVG != "" {
		renderCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), svgTimeout)
		err := formats.RenderSVG(renderCtx, w.Paths.DOT, w.Paths.SVG)
		cancel()
		switch {
		case err == nil:
			written = append(written, w.Paths.SVG)
		case stderrors.Is(err, formats.ErrGraphvizMissing):
			slog.Warn("skipping svg output", "reason", err.Error(), "dot", w.Paths.DOT)
		default:
			errs = append(errs, fmt.Errorf("render %s: %w", w.Paths.SVG, err))
		}
	}

	emit(w.Paths.ScoresCSV, func() ([]byte, error) {
		var buf bytes.Buffer
		err := formats.WriteScoresCSV(&buf, res.Ranking.Sorted)
		return buf.Bytes(), err
	})
	emit(w.Paths.SuggestionsCSV, func() ([]byte, error) {
		var buf bytes.Buffer
		err := formats.WriteSuggestionsCSV(&buf, res.Suggestions)
		return buf.Bytes(), err
	})
	emit(w.Paths.Markdown, func() ([]byte, error) {
		mermaid, err := formats.NewMermaidGenerator(view).Generate()
		if err != nil {
			return nil, err
		}
		out, err := formats.NewMarkdownGenerator().Generate(res, formats.MarkdownReportOptions{
			ProjectName:         w.ProjectName,
			Version:             w.Version,
			GeneratedAt:         w.Now(),
			SuggestionsTop:      w.SuggestionsTop,
			CollapsibleSections: true,
			IncludeMermaid:      len(view.Nodes) > 0,
			MermaidDiagram:      mermaid,
		})
		return []byte(out), err
	})

	for _, path := range written {
		slog.Debug("output written", "path", path)
	}
	return written, stderrors.Join(errs...)
}
