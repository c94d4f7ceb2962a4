package formats

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"untangle/internal/core/errors"
)

// ErrGraphvizMissing is returned by RenderSVG when the dot binary is not
// on PATH. Callers treat it as a warning; the DOT file is still usable.
var ErrGraphvizMissing = errors.New(errors.CodeNotSupported, "graphviz dot binary not found on PATH")

// IsGraphvizAvailable reports whether the dot binary is accessible via PATH.
func IsGraphvizAvailable() bool {
	_, err := exec.LookPath("dot")
	return err == nil
}

// RenderSVG runs `dot -Tsvg` over an already written DOT file.
func RenderSVG(ctx context.Context, dotPath, svgPath string) error {
	bin, err := exec.LookPath("dot")
	if err != nil {
		return ErrGraphvizMissing
	}
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, "-Tsvg", dotPath, "-o", svgPath)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = "dot failed"
		}
		return errors.AddContext(errors.Wrap(err, errors.CodeInternal, msg), errors.CtxPath, dotPath)
	}
	return nil
}
