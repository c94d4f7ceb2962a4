package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testGraph = `
modules:
  - {name: A, path: a}
  - {name: B, path: b}
  - {name: C, path: c}
edges:
  - {source: A, target: B, coupling: 4}
  - {source: B, target: A, coupling: 2}
  - {source: C, target: A, coupling: 1}
`

func writeProject(t *testing.T, dbEnabled bool) string {
	t.Helper()
	dir := t.TempDir()
	db := "false"
	if dbEnabled {
		db = "true"
	}
	cfg := `
version = 1

[project]
name = "shop"

[analysis]
workers = 2
languages = ["go"]

[db]
enabled = ` + db + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "untangle.toml"), []byte(cfg), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "untangle.graph.yaml"), []byte(testGraph), 0o644))
	return dir
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := execute(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestVersionCommand(t *testing.T) {
	code, out, _ := runCLI(t, "version")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "untangle ")
}

func TestUnknownFlag(t *testing.T) {
	code, _, stderr := runCLI(t, "analyze", "--nope")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "unknown flag")
}

func TestAnalyzeCommand(t *testing.T) {
	dir := writeProject(t, false)
	code, out, stderr := runCLI(t, "analyze", "--config", filepath.Join(dir, "untangle.toml"), "--top", "2")
	require.Equal(t, 0, code, stderr)

	assert.Contains(t, out, "shop: 3 modules, 3 dependencies (discovery from ")
	assert.Contains(t, out, "cycles: 1 (2 modules")
	assert.Contains(t, out, "Suggested breaks:")
	assert.Contains(t, out, "B -> A")
	assert.Contains(t, out, "Easiest to extract:")

	for _, name := range []string{"dependencies.dot", "extraction-scores.csv", "cycle-breaks.csv", "report.md"} {
		assert.FileExists(t, filepath.Join(dir, "untangle-report", name))
	}
}

func TestAnalyzeCommand_ManifestOverride(t *testing.T) {
	dir := writeProject(t, false)
	manifest := filepath.Join(t.TempDir(), "other.json")
	require.NoError(t, os.WriteFile(manifest, []byte(`{"modules": [{"name": "Solo"}], "edges": []}`), 0o644))

	code, out, stderr := runCLI(t, "analyze", "--config", filepath.Join(dir, "untangle.toml"), "--manifest", manifest)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, out, "shop: 1 modules, 0 dependencies (manifest from ")
	assert.NotContains(t, out, "Suggested breaks:")
}

func TestAnalyzeCommand_RejectsBadTop(t *testing.T) {
	dir := writeProject(t, false)
	code, _, stderr := runCLI(t, "analyze", "--config", filepath.Join(dir, "untangle.toml"), "--top", "-1")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "--top")
}

func TestAnalyzeCommand_MissingConfig(t *testing.T) {
	code, _, _ := runCLI(t, "analyze", "--config", filepath.Join(t.TempDir(), "missing.toml"))
	assert.Equal(t, 1, code)
}

func TestHistoryCommand(t *testing.T) {
	dir := writeProject(t, true)
	cfgPath := filepath.Join(dir, "untangle.toml")
	for i := 0; i < 2; i++ {
		code, _, stderr := runCLI(t, "analyze", "--config", cfgPath)
		require.Equal(t, 0, code, stderr)
	}

	jsonPath := filepath.Join(dir, "trends", "trend.json")
	tsvPath := filepath.Join(dir, "trends", "trend.tsv")
	code, out, stderr := runCLI(t, "history", "--config", cfgPath, "--json", jsonPath, "--tsv", tsvPath)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, out, "shop: 2 runs")

	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"run_count": 2`)
	assert.FileExists(t, tsvPath)
}

func TestHistoryCommand_Disabled(t *testing.T) {
	dir := writeProject(t, false)
	code, _, _ := runCLI(t, "history", "--config", filepath.Join(dir, "untangle.toml"))
	assert.Equal(t, 1, code)
}

func TestParseSince(t *testing.T) {
	got, err := parseSince("2026-02-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), got)

	got, err = parseSince("2026-02-01T10:00:00+02:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC), got)

	got, err = parseSince("  ")
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	_, err = parseSince("yesterday")
	assert.Error(t, err)
}
