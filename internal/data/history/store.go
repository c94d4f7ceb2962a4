package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"untangle/internal/engine/graph"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	driverName     = "sqlite"
	maxAttempts    = 5
	defaultProject = "default"

	// Fixed-width so stored timestamps sort lexically.
	tsLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

func Open(path string) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("history path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("history path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory %q: %w", dir, err)
		}
	}

	// busy_timeout + WAL reduce lock conflicts during watch-mode churn.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cleanPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite history %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite history %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}

	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveRun stores a run and its module scores in one transaction. A run
// without an ID gets a fresh UUID; saving an existing ID replaces it.
func (s *Store) SaveRun(ctx context.Context, run Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run.Project = projectKey(run.Project)
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.Timestamp.IsZero() {
		run.Timestamp = time.Now().UTC()
	}
	if run.SchemaVersion == 0 {
		run.SchemaVersion = SchemaVersion
	}
	if run.SchemaVersion != SchemaVersion {
		return fmt.Errorf("unsupported run schema version %d", run.SchemaVersion)
	}

	return s.withRetry("save run", func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, `DELETE FROM module_scores WHERE run_id = ?`, run.ID); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
INSERT INTO runs (
  id, project_key, schema_version, ts_utc, module_count, edge_count, cycle_count, nodes_in_cycles,
  participation_pct, suggestion_count, easy_count, medium_count, hard_count, fallback_count, partial
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  project_key=excluded.project_key,
  schema_version=excluded.schema_version,
  ts_utc=excluded.ts_utc,
  module_count=excluded.module_count,
  edge_count=excluded.edge_count,
  cycle_count=excluded.cycle_count,
  nodes_in_cycles=excluded.nodes_in_cycles,
  participation_pct=excluded.participation_pct,
  suggestion_count=excluded.suggestion_count,
  easy_count=excluded.easy_count,
  medium_count=excluded.medium_count,
  hard_count=excluded.hard_count,
  fallback_count=excluded.fallback_count,
  partial=excluded.partial
`,
			run.ID,
			run.Project,
			run.SchemaVersion,
			formatTS(run.Timestamp),
			run.ModuleCount,
			run.EdgeCount,
			run.CycleCount,
			run.NodesInCycles,
			run.Participation,
			run.Suggestions,
			run.EasyCount,
			run.MediumCount,
			run.HardCount,
			run.Fallbacks,
			run.Partial,
		)
		if err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx, `
INSERT INTO module_scores (run_id, module, final, band, coupling, complexity, version_debt, exposure)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, score := range run.Scores {
			if _, err := stmt.ExecContext(ctx, run.ID, score.Module, score.Final, score.Band,
				score.Coupling, score.Complexity, score.VersionDebt, score.Exposure); err != nil {
				return fmt.Errorf("module %s: %w", score.Module, err)
			}
		}
		return tx.Commit()
	})
}

// LoadRuns returns the project's runs at or after since, oldest first,
// with their module scores.
func (s *Store) LoadRuns(ctx context.Context, project string, since time.Time) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	base := `
SELECT
  id, project_key, schema_version, ts_utc, module_count, edge_count, cycle_count, nodes_in_cycles,
  participation_pct, suggestion_count, easy_count, medium_count, hard_count, fallback_count, partial
FROM runs
WHERE project_key = ?`
	args := []any{projectKey(project)}
	if !since.IsZero() {
		base += " AND ts_utc >= ?"
		args = append(args, formatTS(since))
	}
	base += " ORDER BY ts_utc ASC, id ASC"

	var runs []Run
	err := s.withRetry("load runs", func() error {
		rows, err := s.db.QueryContext(ctx, base, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		runs = runs[:0]
		for rows.Next() {
			var (
				tsRaw string
				run   Run
			)
			if err := rows.Scan(
				&run.ID,
				&run.Project,
				&run.SchemaVersion,
				&tsRaw,
				&run.ModuleCount,
				&run.EdgeCount,
				&run.CycleCount,
				&run.NodesInCycles,
				&run.Participation,
				&run.Suggestions,
				&run.EasyCount,
				&run.MediumCount,
				&run.HardCount,
				&run.Fallbacks,
				&run.Partial,
			); err != nil {
				return fmt.Errorf("scan run row: %w", err)
			}
			ts, err := time.Parse(tsLayout, tsRaw)
			if err != nil {
				return fmt.Errorf("parse run timestamp %q: %w", tsRaw, err)
			}
			run.Timestamp = ts.UTC()
			runs = append(runs, run)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	for i := range runs {
		scores, err := s.loadScores(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Scores = scores
	}
	return runs, nil
}

func (s *Store) loadScores(ctx context.Context, runID string) ([]ModuleScore, error) {
	var scores []ModuleScore
	err := s.withRetry("load module scores", func() error {
		rows, err := s.db.QueryContext(ctx, `
SELECT module, final, band, coupling, complexity, version_debt, exposure
FROM module_scores WHERE run_id = ? ORDER BY final ASC, module ASC`, runID)
		if err != nil {
			return err
		}
		defer rows.Close()

		scores = scores[:0]
		for rows.Next() {
			var score ModuleScore
			if err := rows.Scan(&score.Module, &score.Final, &score.Band,
				&score.Coupling, &score.Complexity, &score.VersionDebt, &score.Exposure); err != nil {
				return fmt.Errorf("scan module score row: %w", err)
			}
			scores = append(scores, score)
		}
		return rows.Err()
	})
	return scores, err
}

// SaveDescription records the graph description a run was built from so
// a later run can fall back to it.
func (s *Store) SaveDescription(ctx context.Context, project string, desc graph.Description) error {
	body, err := json.Marshal(desc)
	if err != nil {
		return fmt.Errorf("encode description: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.withRetry("save description", func() error {
		_, err := s.db.ExecContext(ctx, `
INSERT INTO descriptions (project_key, ts_utc, body) VALUES (?, ?, ?)
ON CONFLICT(project_key, ts_utc) DO UPDATE SET body=excluded.body`,
			projectKey(project), formatTS(time.Now()), string(body))
		return err
	})
}

func (s *Store) LatestDescription(ctx context.Context, project string) (graph.Description, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var body string
	err := s.withRetry("load description", func() error {
		return s.db.QueryRowContext(ctx, `
SELECT body FROM descriptions WHERE project_key = ? ORDER BY ts_utc DESC LIMIT 1`,
			projectKey(project)).Scan(&body)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return graph.Description{}, false, nil
	}
	if err != nil {
		return graph.Description{}, false, err
	}

	var desc graph.Description
	if err := json.Unmarshal([]byte(body), &desc); err != nil {
		return graph.Description{}, false, fmt.Errorf("decode description: %w", err)
	}
	return desc, true, nil
}

// Trend loads the project's runs since the given time and builds a trend
// report over them.
func (s *Store) Trend(ctx context.Context, project string, since time.Time, window time.Duration) (TrendReport, error) {
	runs, err := s.LoadRuns(ctx, project, since)
	if err != nil {
		return TrendReport{}, err
	}
	return BuildTrendReport(projectKey(project), runs, window)
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	if errors.Is(lastErr, sql.ErrNoRows) {
		return lastErr
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

func IsCorruptError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "malformed") || strings.Contains(msg, "not a database") || errors.Is(err, os.ErrInvalid)
}

func projectKey(project string) string {
	project = strings.TrimSpace(project)
	if project == "" {
		return defaultProject
	}
	return project
}

func formatTS(t time.Time) string {
	return t.UTC().Format(tsLayout)
}
