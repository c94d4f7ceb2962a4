package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"untangle/internal/core/errors"
	"untangle/internal/engine/graph"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jsonDesc = `{
  "modules": [
    {"name": "Shop.Api", "path": "src/api", "platform": "net8.0"},
    {"name": "Shop.Core", "path": "src/core"}
  ],
  "edges": [
    {"source": "Shop.Api", "target": "Shop.Core", "coupling": 7}
  ]
}`

const yamlDesc = `
modules:
  - name: Shop.Api
    path: src/api
    collection: Shop.sln
  - name: Shop.Core
edges:
  - source: Shop.Api
    target: Shop.Core
    kind: binary
`

const tomlDesc = `
[[modules]]
name = "Shop.Api"

[[modules]]
name = "Shop.Core"

[[edges]]
source = "Shop.Api"
target = "Shop.Core"
`

func TestDecode_Formats(t *testing.T) {
	desc, err := Decode([]byte(jsonDesc), FormatJSON)
	require.NoError(t, err)
	require.Len(t, desc.Modules, 2)
	assert.Equal(t, "net8.0", desc.Modules[0].Platform)
	require.NotNil(t, desc.Edges[0].Coupling)
	assert.Equal(t, 7, *desc.Edges[0].Coupling)

	desc, err = Decode([]byte(yamlDesc), FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, "Shop.sln", desc.Modules[0].Collection)
	assert.Equal(t, graph.KindBinaryReference, desc.Edges[0].Kind)
	assert.Nil(t, desc.Edges[0].Coupling)

	desc, err = Decode([]byte(tomlDesc), FormatTOML)
	require.NoError(t, err)
	assert.Len(t, desc.Modules, 2)
	assert.Len(t, desc.Edges, 1)
}

func TestDecode_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		format Format
	}{
		{"unknown json field", `{"modules":[{"name":"a","owner":"x"}]}`, FormatJSON},
		{"unknown yaml field", "modules:\n  - name: a\n    owner: x\n", FormatYAML},
		{"broken toml", "[[modules]\nname=", FormatTOML},
		{"no modules", `{"modules":[],"edges":[]}`, FormatJSON},
		{"empty yaml", "", FormatYAML},
		{"unnamed module", `{"modules":[{"path":"x"}]}`, FormatJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.data), tt.format)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.CodeIngestFailed))
		})
	}

	_, err := Decode([]byte(jsonDesc), Format("xml"))
	assert.True(t, errors.IsCode(err, errors.CodeNotSupported))
}

type fakeStore struct {
	desc graph.Description
	ok   bool
	err  error
}

func (f fakeStore) LatestDescription(context.Context, string) (graph.Description, bool, error) {
	return f.desc, f.ok, f.err
}

func TestLoader_FirstSuccessWins(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "untangle.graph.yaml"), []byte(yamlDesc), 0o644))

	loader := NewLoader(
		ManifestStrategy{},
		DiscoveryStrategy{Root: root},
		HistoryStrategy{Store: fakeStore{ok: true, desc: graph.Description{Modules: []graph.ModuleSpec{{Name: "old"}}}}},
	)
	res, err := loader.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "discovery", res.Strategy)
	assert.Equal(t, filepath.Join(root, "untangle.graph.yaml"), res.Source)
	require.Len(t, res.Attempts, 2)
	assert.False(t, res.Attempts[0].OK())
	assert.True(t, res.Attempts[1].OK())
	assert.Equal(t, "Shop.Api", res.Description.Modules[0].Name)
}

func TestLoader_FallsBackToHistory(t *testing.T) {
	manifest := filepath.Join(t.TempDir(), "graph.json")
	require.NoError(t, os.WriteFile(manifest, []byte("{not json"), 0o644))

	stored := graph.Description{Modules: []graph.ModuleSpec{{Name: "Shop.Core"}}}
	loader := NewLoader(
		ManifestStrategy{Path: manifest},
		DiscoveryStrategy{Root: t.TempDir()},
		HistoryStrategy{Store: fakeStore{ok: true, desc: stored}, Project: "shop"},
	)
	res, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "history", res.Strategy)
	assert.Equal(t, stored, res.Description)
	require.Len(t, res.Attempts, 3)
	assert.True(t, errors.IsCode(res.Attempts[0].Err, errors.CodeIngestFailed))
}

func TestLoader_AllFail(t *testing.T) {
	loader := NewLoader(
		ManifestStrategy{Path: filepath.Join(t.TempDir(), "missing.toml")},
		DiscoveryStrategy{Root: t.TempDir()},
		HistoryStrategy{Store: fakeStore{}},
	)
	res, err := loader.Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeIngestFailed))
	assert.Len(t, res.Attempts, 3)
	assert.Contains(t, err.Error(), "manifest:")
	assert.Contains(t, err.Error(), "discovery:")
	assert.Contains(t, err.Error(), "history:")
}

func TestLoader_UnsupportedManifestExtension(t *testing.T) {
	_, _, err := ManifestStrategy{Path: "graph.xml"}.Load(context.Background())
	assert.True(t, errors.IsCode(err, errors.CodeNotSupported))
}

func TestLoader_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewLoader(ManifestStrategy{Path: "x.json"}).Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
