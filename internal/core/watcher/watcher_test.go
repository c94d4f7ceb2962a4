// # internal/core/watcher/watcher_test.go
package watcher

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitFor(t *testing.T, ch <-chan []string, want string) {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case paths := <-ch:
			for _, p := range paths {
				if p == want {
					return
				}
			}
		case <-timeout:
			t.Fatalf("timed out waiting for change to %s", want)
		}
	}
}

func TestNewWatcher_RejectsNilCallback(t *testing.T) {
	w, err := NewWatcher(100*time.Millisecond, nil, nil)
	require.ErrorIs(t, err, os.ErrInvalid)
	assert.Nil(t, w)
}

func TestNewWatcher_RejectsBadGlob(t *testing.T) {
	_, err := NewWatcher(time.Millisecond, []string{"[bin"}, func([]string) {})
	assert.Error(t, err)
}

func TestWatcher_ReportsFilteredChanges(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "node_modules"), 0o755))

	changed := make(chan []string, 16)
	w, err := NewWatcher(50*time.Millisecond, []string{"node_modules"}, func(paths []string) {
		changed <- paths
	})
	require.NoError(t, err)
	defer w.Close()
	w.SetFilters([]string{".go"}, []string{"untangle.graph.json"}, func(p string) bool {
		return strings.HasSuffix(p, "_test.go")
	})
	require.NoError(t, w.Watch([]string{dir}))

	src := filepath.Join(dir, "main.go")
	require.NoError(t, os.WriteFile(src, []byte("package main"), 0o644))
	waitFor(t, changed, src)

	desc := filepath.Join(dir, "untangle.graph.json")
	require.NoError(t, os.WriteFile(desc, []byte("{}"), 0o644))
	waitFor(t, changed, desc)

	// New directories are watched recursively.
	sub := filepath.Join(dir, "pkg")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	nested := filepath.Join(sub, "nested.go")
	require.NoError(t, os.WriteFile(nested, []byte("package pkg"), 0o644))
	waitFor(t, changed, nested)
}

func TestWatcher_ShouldExcludeFile(t *testing.T) {
	w, err := NewWatcher(10*time.Millisecond, nil, func([]string) {})
	require.NoError(t, err)
	defer w.Close()

	assert.False(t, w.shouldExcludeFile("anything.txt"), "no filters accepts everything")

	w.SetFilters([]string{".GO", ".py"}, []string{"untangle.graph.yaml"}, func(p string) bool {
		return strings.HasSuffix(p, "_test.go")
	})
	assert.False(t, w.shouldExcludeFile("/src/main.go"))
	assert.False(t, w.shouldExcludeFile("/src/app.py"))
	assert.True(t, w.shouldExcludeFile("/src/readme.md"))
	assert.True(t, w.shouldExcludeFile("/src/main_test.go"))
	assert.False(t, w.shouldExcludeFile("/repo/untangle.graph.yaml"))
}

func TestWatcher_ExcludesDirectories(t *testing.T) {
	w, err := NewWatcher(10*time.Millisecond, []string{".*", "bin"}, func([]string) {})
	require.NoError(t, err)
	defer w.Close()

	assert.True(t, w.shouldExcludeDir("/repo/.git"))
	assert.True(t, w.shouldExcludeDir("/repo/bin"))
	assert.False(t, w.shouldExcludeDir("/repo/src"))
}
