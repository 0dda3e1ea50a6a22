package db

import (
	"database/sql"
	"errors"

	"github.com/AbdouB/twindx/internal/models"
)

// RunRepository handles run database operations
type RunRepository struct {
	db *DB
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create creates a new run
func (r *RunRepository) Create(run *models.Run) error {
	query := `
		INSERT INTO runs (
			run_id, start_time, end_time, propagation, normalized,
			risk_boost, scored, skipped, warnings, notes
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query,
		run.RunID,
		run.StartTime,
		run.EndTime,
		run.Propagation,
		run.Normalized,
		run.RiskBoost,
		run.Scored,
		run.Skipped,
		run.Warnings,
		run.Notes,
	)
	return err
}

// Get retrieves a run by ID. A missing run is (nil, nil).
func (r *RunRepository) Get(runID string) (*models.Run, error) {
	var run models.Run
	query := `SELECT * FROM runs WHERE run_id = ?`
	err := r.db.Get(&run, query, runID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// List lists the most recent runs first
func (r *RunRepository) List(limit int) ([]*models.Run, error) {
	var runs []*models.Run
	query := `SELECT * FROM runs ORDER BY start_time DESC LIMIT ?`
	if err := r.db.Select(&runs, query, limit); err != nil {
		return nil, err
	}
	return runs, nil
}

// GetLatest gets the most recently started run
func (r *RunRepository) GetLatest() (*models.Run, error) {
	runs, err := r.List(1)
	if err != nil || len(runs) == 0 {
		return nil, err
	}
	return runs[0], nil
}

// Update stores the end time, counters and notes of a run
func (r *RunRepository) Update(run *models.Run) error {
	query := `
		UPDATE runs SET
			end_time = ?,
			scored = ?,
			skipped = ?,
			warnings = ?,
			notes = ?
		WHERE run_id = ?
	`
	res, err := r.db.Exec(query,
		run.EndTime,
		run.Scored,
		run.Skipped,
		run.Warnings,
		run.Notes,
		run.RunID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a run and, through cascading keys, everything recorded for it
func (r *RunRepository) Delete(runID string) error {
	_, err := r.db.Exec(`DELETE FROM runs WHERE run_id = ?`, runID)
	return err
}
