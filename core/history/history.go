// Package history keeps a SQLite ledger of batch runs and the per-file
// outcome of each.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ankit-chaubey/metadata-scrub/core"
	_ "github.com/mattn/go-sqlite3"
)

// ErrRunNotFound is returned by Files for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// Run is one recorded batch.
type Run struct {
	ID          string        `json:"id" yaml:"id"`
	Started     time.Time     `json:"started" yaml:"started"`
	Elapsed     time.Duration `json:"elapsed" yaml:"elapsed"`
	DryRun      bool          `json:"dry_run" yaml:"dry_run"`
	Total       int           `json:"total" yaml:"total"`
	Cleaned     int           `json:"cleaned" yaml:"cleaned"`
	Failed      int           `json:"failed" yaml:"failed"`
	Unsupported int           `json:"unsupported" yaml:"unsupported"`
	Skipped     int           `json:"skipped" yaml:"skipped"`
}

// File is the recorded outcome of one file in a run.
type File struct {
	Path     string        `json:"path" yaml:"path"`
	OutPath  string        `json:"out_path,omitempty" yaml:"out_path,omitempty"`
	Format   string        `json:"format" yaml:"format"`
	Status   string        `json:"status" yaml:"status"`
	Error    string        `json:"error,omitempty" yaml:"error,omitempty"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// Store wraps the ledger database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the ledger at path, creating parent directories
// and the schema as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at INTEGER NOT NULL,
			finished_at INTEGER NOT NULL,
			dry_run INTEGER NOT NULL DEFAULT 0,
			total INTEGER NOT NULL,
			cleaned INTEGER NOT NULL,
			failed INTEGER NOT NULL,
			unsupported INTEGER NOT NULL,
			skipped INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS files (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			path TEXT NOT NULL,
			out_path TEXT,
			format TEXT,
			status TEXT NOT NULL,
			error TEXT,
			duration_ns INTEGER,
			PRIMARY KEY (run_id, seq)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record stores a finished run and all of its results in one transaction.
func (s *Store) Record(ctx context.Context, sum *core.Summary) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, finished_at, dry_run, total, cleaned, failed, unsupported, skipped)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sum.RunID, sum.Started.UnixNano(), sum.Finished.UnixNano(), sum.DryRun, sum.Total(),
		sum.Count(core.StatusCleaned)+sum.Count(core.StatusPlanned), sum.Count(core.StatusFailed),
		sum.Count(core.StatusUnsupported), sum.Count(core.StatusSkipped),
	); err != nil {
		return fmt.Errorf("inserting run %s: %w", sum.RunID, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO files (run_id, seq, path, out_path, format, status, error, duration_ns)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing file insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range sum.Results {
		out := ""
		if r.OutPath != r.Path {
			out = r.OutPath
		}
		if _, err := stmt.ExecContext(ctx, sum.RunID, i, r.Path, out, string(r.Format),
			string(r.Status), r.Error(), int64(r.Duration)); err != nil {
			return fmt.Errorf("inserting file %s: %w", r.Path, err)
		}
	}

	return tx.Commit()
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, dry_run, total, cleaned, failed, unsupported, skipped
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r                 Run
			started, finished int64
		)
		if err := rows.Scan(&r.ID, &started, &finished, &r.DryRun, &r.Total,
			&r.Cleaned, &r.Failed, &r.Unsupported, &r.Skipped); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.Started = time.Unix(0, started)
		r.Elapsed = time.Duration(finished - started)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Files returns the per-file outcomes of a run in input order. A run ID
// prefix is accepted when it is unambiguous.
func (s *Store) Files(ctx context.Context, runID string) ([]File, error) {
	id, err := s.resolveID(ctx, runID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT path, COALESCE(out_path, ''), COALESCE(format, ''), status, COALESCE(error, ''), COALESCE(duration_ns, 0)
		 FROM files WHERE run_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("querying files: %w", err)
	}
	defer rows.Close()

	var files []File
	for rows.Next() {
		var (
			f  File
			ns int64
		)
		if err := rows.Scan(&f.Path, &f.OutPath, &f.Format, &f.Status, &f.Error, &ns); err != nil {
			return nil, fmt.Errorf("scanning file: %w", err)
		}
		f.Duration = time.Duration(ns)
		files = append(files, f)
	}
	return files, rows.Err()
}

func (s *Store) resolveID(ctx context.Context, prefix string) (string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM runs WHERE id LIKE ? || '%' LIMIT 2`, prefix)
	if err != nil {
		return "", fmt.Errorf("looking up run: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	switch len(ids) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrRunNotFound, prefix)
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("run id %q is ambiguous", prefix)
	}
}
