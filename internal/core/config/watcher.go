package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"reflect"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Sections names the top-level tables of the configuration file in the
// order they are reported.
var Sections = []string{
	"version", "project", "filter", "scoring", "analysis", "ranking", "output", "db", "observability", "watch",
}

// ChangedSections lists the top-level tables that differ between two
// configurations. A nil old configuration differs in every section.
func ChangedSections(old, next *Config) []string {
	if old == nil {
		return append([]string(nil), Sections...)
	}
	if next == nil {
		return nil
	}
	pairs := map[string][2]any{
		"version":       {old.Version, next.Version},
		"project":       {old.Project, next.Project},
		"filter":        {old.Filter, next.Filter},
		"scoring":       {old.Scoring, next.Scoring},
		"analysis":      {old.Analysis, next.Analysis},
		"ranking":       {old.Ranking, next.Ranking},
		"output":        {old.Output, next.Output},
		"db":            {old.DB, next.DB},
		"observability": {old.Observability, next.Observability},
		"watch":         {old.Watch, next.Watch},
	}
	var changed []string
	for _, name := range Sections {
		p := pairs[name]
		if !reflect.DeepEqual(p[0], p[1]) {
			changed = append(changed, name)
		}
	}
	return changed
}

// Watcher reloads a configuration file when it changes. Edits that fail
// validation are logged and ignored, and saves that leave every section
// as it was do not reach the callback, so an editor touching the file
// does not trigger a new analysis.
type Watcher struct {
	path     string
	debounce time.Duration
	onChange func(cfg *Config, changed []string)

	mu      sync.Mutex
	current *Config
	timer   *time.Timer

	stop chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

func NewWatcher(path string, debounce time.Duration, onChange func(cfg *Config, changed []string)) *Watcher {
	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}
	return &Watcher{
		path:     path,
		debounce: debounce,
		onChange: onChange,
		stop:     make(chan struct{}),
	}
}

// Start records the file's current content as the baseline and watches
// its directory, which also catches atomic saves that replace the file.
func (w *Watcher) Start(ctx context.Context) error {
	if cfg, err := Load(w.path); err == nil {
		w.current = cfg
	} else {
		slog.Warn("config baseline unreadable, first valid edit reloads everything", "path", w.path, "error", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		fsw.Close()
		return err
	}

	w.wg.Add(1)
	go w.loop(ctx, fsw)
	slog.Debug("config watcher started", "path", w.path, "debounce", w.debounce)
	return nil
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher) {
	defer w.wg.Done()
	defer fsw.Close()

	target := filepath.Clean(w.path)
	for {
		select {
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.schedule()
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			slog.Warn("config watcher error", "error", err)
		case <-w.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) Stop() {
	w.once.Do(func() { close(w.stop) })
	w.wg.Wait()
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		slog.Error("config reload failed", "path", w.path, "error", err)
		return
	}

	w.mu.Lock()
	changed := ChangedSections(w.current, cfg)
	if len(changed) > 0 {
		w.current = cfg
	}
	w.mu.Unlock()

	if len(changed) == 0 {
		slog.Debug("config saved without changes", "path", w.path)
		return
	}
	slog.Info("config file changed, reloading", "path", w.path, "sections", changed)
	if w.onChange != nil {
		// The callback may adjust its copy; the baseline stays as loaded.
		next := *cfg
		w.onChange(&next, changed)
	}
}
