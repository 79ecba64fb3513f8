// Package history persists run and per-step job-report records to a local
// SQLite database, so "gwftool history" can list and inspect past runs
// without re-reading every job-report JSON file under outdir.
package history

import (
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/kellrott/gwftool/internal/jobreport"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite connection holding run and job-report history.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the SQLite database at path and applies
// any pending migrations.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("history: create db directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite serializes writes; avoid SQLITE_BUSY

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("history: %s: %w", pragma, err)
		}
	}

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("sqlite3"); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: set dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: migrate: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error { return s.db.Close() }

// BeginRun inserts a new run row and returns its id.
func (s *Store) BeginRun(workflow, outdir string, startedAt time.Time) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO runs (workflow, outdir, started_at) VALUES (?, ?, ?)`,
		workflow, outdir, startedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("history: begin run: %w", err)
	}
	return res.LastInsertId()
}

// FinishRun records a run's completion time and overall success.
func (s *Store) FinishRun(runID int64, finishedAt time.Time, ok bool) error {
	_, err := s.db.Exec(
		`UPDATE runs SET finished_at = ?, ok = ? WHERE id = ?`,
		finishedAt.UTC().Format(time.RFC3339Nano), ok, runID,
	)
	if err != nil {
		return fmt.Errorf("history: finish run %d: %w", runID, err)
	}
	return nil
}

// RecordJob stores one step's job report against runID.
func (s *Store) RecordJob(runID int64, r jobreport.Report) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("history: marshal job report for step %d: %w", r.StepID, err)
	}
	_, err = s.db.Exec(
		`INSERT INTO job_reports (run_id, step_id, tool_id, image, exitcode, started_at, finished_at, wall_seconds, report_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, r.StepID, r.ToolID, r.Image, r.ExitCode, r.StartedAt, r.FinishedAt, r.WallSeconds, string(raw),
	)
	if err != nil {
		return fmt.Errorf("history: record job report for step %d: %w", r.StepID, err)
	}
	return nil
}

// RunSummary is one row of "gwftool history list".
type RunSummary struct {
	ID         int64
	Workflow   string
	Outdir     string
	StartedAt  string
	FinishedAt sql.NullString
	OK         sql.NullBool
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(limit int) ([]RunSummary, error) {
	rows, err := s.db.Query(
		`SELECT id, workflow, outdir, started_at, finished_at, ok
		 FROM runs ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("history: list runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.ID, &r.Workflow, &r.Outdir, &r.StartedAt, &r.FinishedAt, &r.OK); err != nil {
			return nil, fmt.Errorf("history: scan run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// JobReports returns every step's job report recorded against runID.
func (s *Store) JobReports(runID int64) ([]jobreport.Report, error) {
	rows, err := s.db.Query(
		`SELECT report_json FROM job_reports WHERE run_id = ? ORDER BY step_id`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("history: list job reports for run %d: %w", runID, err)
	}
	defer rows.Close()

	var out []jobreport.Report
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("history: scan job report: %w", err)
		}
		var r jobreport.Report
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			return nil, fmt.Errorf("history: unmarshal job report: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
