package db

import (
	"github.com/AbdouB/twindx/internal/models"
)

// WarningRepository handles data-quality warnings and skipped vignettes
type WarningRepository struct {
	db *DB
}

// NewWarningRepository creates a new warning repository
func NewWarningRepository(db *DB) *WarningRepository {
	return &WarningRepository{db: db}
}

// SaveWarnings stores warnings in one transaction
func (r *WarningRepository) SaveWarnings(warnings []models.DataWarning) error {
	if len(warnings) == 0 {
		return nil
	}
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO data_warnings (run_id, vignette_id, kind, method, disease_id)
		VALUES (:run_id, :vignette_id, :kind, :method, :disease_id)
	`
	for _, w := range warnings {
		if _, err := tx.NamedExec(query, w); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// SaveSkipped stores skipped vignettes in one transaction
func (r *WarningRepository) SaveSkipped(skipped []models.SkippedVignette) error {
	if len(skipped) == 0 {
		return nil
	}
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO skipped_vignettes (run_id, vignette_id, network, reason)
		VALUES (:run_id, :vignette_id, :network, :reason)
	`
	for _, s := range skipped {
		if _, err := tx.NamedExec(query, s); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListWarnings lists the warnings of a run, optionally filtered by kind
func (r *WarningRepository) ListWarnings(runID string, kind models.WarningKind) ([]models.DataWarning, error) {
	var warnings []models.DataWarning
	var query string
	var args []interface{}

	if kind != "" {
		query = `SELECT run_id, vignette_id, kind, method, disease_id FROM data_warnings WHERE run_id = ? AND kind = ? ORDER BY id ASC`
		args = []interface{}{runID, kind}
	} else {
		query = `SELECT run_id, vignette_id, kind, method, disease_id FROM data_warnings WHERE run_id = ? ORDER BY id ASC`
		args = []interface{}{runID}
	}

	if err := r.db.Select(&warnings, query, args...); err != nil {
		return nil, err
	}
	return warnings, nil
}

// ListSkipped lists the skipped vignettes of a run
func (r *WarningRepository) ListSkipped(runID string) ([]models.SkippedVignette, error) {
	var skipped []models.SkippedVignette
	query := `SELECT run_id, vignette_id, network, reason FROM skipped_vignettes WHERE run_id = ? ORDER BY id ASC`
	if err := r.db.Select(&skipped, query, runID); err != nil {
		return nil, err
	}
	return skipped, nil
}

// CountByKind returns warning counts per kind for a run
func (r *WarningRepository) CountByKind(runID string) (map[models.WarningKind]int, error) {
	rows, err := r.db.Query(`SELECT kind, COUNT(*) FROM data_warnings WHERE run_id = ? GROUP BY kind`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[models.WarningKind]int)
	for rows.Next() {
		var kind models.WarningKind
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		out[kind] = n
	}
	return out, rows.Err()
}
