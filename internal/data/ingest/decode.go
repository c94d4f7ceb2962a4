// # internal/data/ingest/decode.go
package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"untangle/internal/core/errors"
	"untangle/internal/engine/graph"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatOf picks the decoder from the file extension.
func FormatOf(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, true
	case ".yaml", ".yml":
		return FormatYAML, true
	case ".toml":
		return FormatTOML, true
	default:
		return "", false
	}
}

// Decode parses a graph description. Unknown fields are rejected for JSON
// and YAML; TOML reports them as warnings.
func Decode(data []byte, format Format) (graph.Description, error) {
	var desc graph.Description
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&desc); err != nil {
			return graph.Description{}, errors.Wrap(err, errors.CodeIngestFailed, "decode json description")
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&desc); err != nil && err != io.EOF {
			return graph.Description{}, errors.Wrap(err, errors.CodeIngestFailed, "decode yaml description")
		}
	case FormatTOML:
		md, err := toml.Decode(string(data), &desc)
		if err != nil {
			return graph.Description{}, errors.Wrap(err, errors.CodeIngestFailed, "decode toml description")
		}
		for _, key := range md.Undecoded() {
			slog.Warn("unknown key in graph description", "key", key.String())
		}
	default:
		return graph.Description{}, errors.Newf(errors.CodeNotSupported, "unsupported description format %q", format)
	}

	if len(desc.Modules) == 0 {
		return graph.Description{}, errors.New(errors.CodeIngestFailed, "description declares no modules")
	}
	for i, m := range desc.Modules {
		if strings.TrimSpace(m.Name) == "" {
			return graph.Description{}, errors.AddContext(
				errors.Newf(errors.CodeIngestFailed, "module %d has no name", i),
				errors.CtxField, fmt.Sprintf("modules[%d].name", i))
		}
	}
	return desc, nil
}
