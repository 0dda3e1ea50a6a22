package db

import (
	"fmt"

	"github.com/AbdouB/twindx/internal/models"
)

// ScoreRepository handles per-vignette score database operations
type ScoreRepository struct {
	db *DB
}

// NewScoreRepository creates a new score repository
func NewScoreRepository(db *DB) *ScoreRepository {
	return &ScoreRepository{db: db}
}

// SaveResults stores every result of a run in one transaction. Results keep
// their order through the position column.
func (r *ScoreRepository) SaveResults(runID string, results []models.VignetteResult) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	vignetteStmt, err := tx.Preparex(`
		INSERT INTO vignette_results (run_id, vignette_id, network, position)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer vignetteStmt.Close()

	scoreStmt, err := tx.Preparex(`
		INSERT INTO vignette_scores (run_id, vignette_id, method, disease_id, score)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer scoreStmt.Close()

	for i, res := range results {
		if _, err := vignetteStmt.Exec(runID, res.VignetteID, res.Network, i); err != nil {
			return fmt.Errorf("vignette %s: %w", res.VignetteID, err)
		}
		for _, m := range models.Methods {
			for disease, score := range res.Bundle.Scores(m) {
				if _, err := scoreStmt.Exec(runID, res.VignetteID, m, disease, score); err != nil {
					return fmt.Errorf("vignette %s: %w", res.VignetteID, err)
				}
			}
		}
	}

	return tx.Commit()
}

type scoreRow struct {
	VignetteID string        `db:"vignette_id"`
	Method     models.Method `db:"method"`
	DiseaseID  string        `db:"disease_id"`
	Score      float64       `db:"score"`
}

// LoadResults returns the results of a run in the order they were saved. Every
// method map is non-nil, even when the run stored no scores for it.
func (r *ScoreRepository) LoadResults(runID string) ([]models.VignetteResult, error) {
	var results []models.VignetteResult
	query := `
		SELECT vignette_id, network FROM vignette_results
		WHERE run_id = ? ORDER BY position ASC
	`
	rows, err := r.db.Queryx(query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	index := make(map[string]int)
	for rows.Next() {
		var res models.VignetteResult
		if err := rows.Scan(&res.VignetteID, &res.Network); err != nil {
			return nil, err
		}
		res.Bundle = models.Bundle{
			Posterior:   models.ScoreMap{},
			Disablement: models.ScoreMap{},
			Sufficiency: models.ScoreMap{},
		}
		index[res.VignetteID] = len(results)
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var scores []scoreRow
	err = r.db.Select(&scores, `
		SELECT vignette_id, method, disease_id, score FROM vignette_scores
		WHERE run_id = ?
	`, runID)
	if err != nil {
		return nil, err
	}
	for _, s := range scores {
		i, ok := index[s.VignetteID]
		if !ok {
			continue
		}
		if m := results[i].Bundle.Scores(s.Method); m != nil {
			m[s.DiseaseID] = s.Score
		}
	}
	return results, nil
}

// LoadBundles returns the results of a run keyed by vignette id
func (r *ScoreRepository) LoadBundles(runID string) (map[string]models.Bundle, error) {
	results, err := r.LoadResults(runID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]models.Bundle, len(results))
	for _, res := range results {
		out[res.VignetteID] = res.Bundle
	}
	return out, nil
}
