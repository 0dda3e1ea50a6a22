// Package db provides the SQLite result store for scoring runs
package db

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the database connection
type DB struct {
	*sqlx.DB
	path string
}

// DefaultDBPath returns the default database path
func DefaultDBPath() string {
	// Try project-local first
	localPath := ".twindx/results.db"
	if _, err := os.Stat(".twindx"); err == nil {
		return localPath
	}

	// Fall back to home directory
	home, err := os.UserHomeDir()
	if err != nil {
		return localPath
	}
	return filepath.Join(home, ".twindx", "results.db")
}

// Open opens or creates the database
func Open(path string) (*DB, error) {
	if path == "" {
		path = DefaultDBPath()
	}

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sqlx.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	d := &DB{DB: db, path: path}

	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return d, nil
}

// Path returns the database file path
func (d *DB) Path() string {
	return d.path
}

// migrate runs database migrations
func (d *DB) migrate() error {
	migrations := []string{
		migrationRuns,
		migrationVignettes,
		migrationScores,
		migrationSkipped,
		migrationWarnings,
		migrationIndexes,
	}

	for _, m := range migrations {
		if _, err := d.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

const migrationRuns = `
CREATE TABLE IF NOT EXISTS runs (
    run_id TEXT PRIMARY KEY,
    start_time TIMESTAMP NOT NULL,
    end_time TIMESTAMP,
    propagation TEXT NOT NULL,
    normalized BOOLEAN NOT NULL DEFAULT 0,
    risk_boost REAL NOT NULL,
    scored INTEGER NOT NULL DEFAULT 0,
    skipped INTEGER NOT NULL DEFAULT 0,
    warnings INTEGER NOT NULL DEFAULT 0,
    notes TEXT
);
`

const migrationVignettes = `
CREATE TABLE IF NOT EXISTS vignette_results (
    run_id TEXT NOT NULL,
    vignette_id TEXT NOT NULL,
    network TEXT NOT NULL,
    position INTEGER NOT NULL,
    PRIMARY KEY (run_id, vignette_id),
    FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
);
`

const migrationScores = `
CREATE TABLE IF NOT EXISTS vignette_scores (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL,
    vignette_id TEXT NOT NULL,
    method TEXT NOT NULL,
    disease_id TEXT NOT NULL,
    score REAL NOT NULL,
    FOREIGN KEY (run_id, vignette_id) REFERENCES vignette_results(run_id, vignette_id) ON DELETE CASCADE
);
`

const migrationSkipped = `
CREATE TABLE IF NOT EXISTS skipped_vignettes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL,
    vignette_id TEXT NOT NULL,
    network TEXT NOT NULL,
    reason TEXT NOT NULL,
    FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
);
`

const migrationWarnings = `
CREATE TABLE IF NOT EXISTS data_warnings (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL,
    vignette_id TEXT NOT NULL,
    kind TEXT NOT NULL,
    method TEXT NOT NULL,
    disease_id TEXT NOT NULL DEFAULT '',
    FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
);
`

const migrationIndexes = `
CREATE INDEX IF NOT EXISTS idx_runs_start_time ON runs(start_time);
CREATE INDEX IF NOT EXISTS idx_scores_run_vignette ON vignette_scores(run_id, vignette_id);
CREATE INDEX IF NOT EXISTS idx_skipped_run_id ON skipped_vignettes(run_id);
CREATE INDEX IF NOT EXISTS idx_warnings_run_id ON data_warnings(run_id);
CREATE INDEX IF NOT EXISTS idx_warnings_kind ON data_warnings(kind);
`
