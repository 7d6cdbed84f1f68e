package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"tempsweep/internal/cleanup"
)

// HistoryDB manages the SQLite database of run summaries. It is an audit
// trail only; nothing in a run reads it back.
type HistoryDB struct {
	db *sql.DB
}

// RunRecord represents a single finished run
type RunRecord struct {
	ID              int64
	StartedAt       time.Time
	Root            string
	Mode            string // age_filtered or delete_all
	DryRun          bool
	Aborted         bool
	Parallelism     int
	Candidates      int
	FilesDeleted    int
	DirsDeleted     int
	DryRunSkipped   int
	FailedTransient int
	FailedFatal     int
	BytesFreed      int64
	ThrottleWaitMs  int64
	DurationMs      int64
	FreeBefore      *int64 // nil when free space was unavailable
	FreeAfter       *int64
}

// NewRunRecord converts a run summary into a history row.
func NewRunRecord(root string, started time.Time, s cleanup.Summary, aborted bool) RunRecord {
	return RunRecord{
		StartedAt:       started.UTC(),
		Root:            root,
		Mode:            s.Mode.String(),
		DryRun:          s.DryRun,
		Aborted:         aborted,
		Parallelism:     s.Parallelism,
		Candidates:      s.Candidates,
		FilesDeleted:    s.FilesDeleted,
		DirsDeleted:     s.DirsDeleted,
		DryRunSkipped:   s.DryRunSkipped,
		FailedTransient: s.FailedTransient,
		FailedFatal:     s.FailedFatal,
		BytesFreed:      s.BytesFreed,
		ThrottleWaitMs:  s.ThrottleWait.Milliseconds(),
		DurationMs:      s.Duration.Milliseconds(),
	}
}

// NewHistoryDB creates a new database connection and initializes schema
func NewHistoryDB(dbPath string) (*HistoryDB, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	// file: prefix with _loc=auto enables automatic DATETIME parsing
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?_loc=auto&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer per process; per-connection pragmas then apply everywhere
	db.SetMaxOpenConns(1)
	defer func() {
		if err != nil {
			db.Close()
		}
	}()

	// Ping does not create the file; a trivial query does
	if _, err = db.Exec("SELECT 1"); err != nil {
		return nil, fmt.Errorf("failed to initialize database (check permissions on %s): %w", dbPath, err)
	}

	// Enable WAL mode so the history command can read during a run
	if _, err = db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if _, err = db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}

	hdb := &HistoryDB{db: db}
	if err = hdb.initSchema(); err != nil {
		return nil, err
	}
	return hdb, nil
}

// initSchema creates tables and indexes if they don't exist
func (d *HistoryDB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at DATETIME NOT NULL,
		root TEXT NOT NULL,
		mode TEXT NOT NULL,
		dry_run INTEGER NOT NULL,
		aborted INTEGER NOT NULL DEFAULT 0,
		parallelism INTEGER NOT NULL,

		candidates INTEGER NOT NULL,
		files_deleted INTEGER NOT NULL,
		dirs_deleted INTEGER NOT NULL,
		dry_run_skipped INTEGER NOT NULL,
		failed_transient INTEGER NOT NULL,
		failed_fatal INTEGER NOT NULL,
		bytes_freed INTEGER NOT NULL,

		throttle_wait_ms INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		free_before INTEGER,
		free_after INTEGER,

		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_runs_root ON runs(root);

	-- Metadata table for schema versioning
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`

	_, err := d.db.Exec(schema)
	return err
}

// RecordRun inserts a run summary and returns its row id
func (d *HistoryDB) RecordRun(r RunRecord) (int64, error) {
	query := `
	INSERT INTO runs (
		started_at, root, mode, dry_run, aborted, parallelism,
		candidates, files_deleted, dirs_deleted, dry_run_skipped,
		failed_transient, failed_fatal, bytes_freed,
		throttle_wait_ms, duration_ms, free_before, free_after
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	res, err := d.db.Exec(
		query,
		r.StartedAt.UTC(),
		r.Root,
		r.Mode,
		r.DryRun,
		r.Aborted,
		r.Parallelism,
		r.Candidates,
		r.FilesDeleted,
		r.DirsDeleted,
		r.DryRunSkipped,
		r.FailedTransient,
		r.FailedFatal,
		r.BytesFreed,
		r.ThrottleWaitMs,
		r.DurationMs,
		r.FreeBefore,
		r.FreeAfter,
	)
	if err != nil {
		return 0, fmt.Errorf("record run: %w", err)
	}
	return res.LastInsertId()
}

// Close closes the database connection
func (d *HistoryDB) Close() error {
	return d.db.Close()
}
