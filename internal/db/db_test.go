package db

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbdouB/twindx/internal/models"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := Open(filepath.Join(t.TempDir(), "nested", "results.db"))
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func createRun(t *testing.T, d *DB) *models.Run {
	t.Helper()
	run := models.NewRun()
	run.Propagation = "leaf"
	run.RiskBoost = 5
	require.NoError(t, NewRunRepository(d).Create(run))
	return run
}

func TestOpen_MigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.db")
	d, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, path, d.Path())
	require.NoError(t, d.Close())

	d, err = Open(path)
	require.NoError(t, err)
	require.NoError(t, d.Close())
}

func TestRunRepository(t *testing.T) {
	d := openTestDB(t)
	repo := NewRunRepository(d)

	missing, err := repo.Get("nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	run := createRun(t, d)
	got, err := repo.Get(run.RunID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "leaf", got.Propagation)
	assert.Equal(t, 5.0, got.RiskBoost)
	assert.Nil(t, got.EndTime)
	assert.WithinDuration(t, run.StartTime, got.StartTime, time.Millisecond)

	notes := "smoke"
	run.Notes = &notes
	run.Finish(3, 1, 2)
	require.NoError(t, repo.Update(run))

	got, err = repo.Get(run.RunID)
	require.NoError(t, err)
	require.NotNil(t, got.EndTime)
	assert.Equal(t, 3, got.Scored)
	assert.Equal(t, 1, got.Skipped)
	assert.Equal(t, 2, got.Warnings)
	require.NotNil(t, got.Notes)
	assert.Equal(t, "smoke", *got.Notes)

	err = repo.Update(&models.Run{RunID: "ghost"})
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestRunRepository_ListNewestFirst(t *testing.T) {
	d := openTestDB(t)
	repo := NewRunRepository(d)

	older := models.NewRun()
	older.StartTime = time.Now().Add(-time.Hour)
	older.Propagation = "leaf"
	require.NoError(t, repo.Create(older))
	newer := createRun(t, d)

	runs, err := repo.List(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, newer.RunID, runs[0].RunID)

	latest, err := repo.GetLatest()
	require.NoError(t, err)
	assert.Equal(t, newer.RunID, latest.RunID)
}

func TestScoreRepository_RoundTrip(t *testing.T) {
	d := openTestDB(t)
	run := createRun(t, d)
	repo := NewScoreRepository(d)

	results := []models.VignetteResult{
		{VignetteID: "v2", Network: "resp", Bundle: models.Bundle{
			Posterior:   models.ScoreMap{"flu": 0.4, "cold": 0.1},
			Disablement: models.ScoreMap{"flu": 0.3, "cold": 0},
			Sufficiency: models.ScoreMap{"flu": 0.2, "cold": 0.05},
		}},
		{VignetteID: "v1", Network: "empty", Bundle: models.Bundle{
			Posterior: models.ScoreMap{}, Disablement: models.ScoreMap{}, Sufficiency: models.ScoreMap{},
		}},
	}
	require.NoError(t, repo.SaveResults(run.RunID, results))

	got, err := repo.LoadResults(run.RunID)
	require.NoError(t, err)
	assert.Equal(t, results, got)

	bundles, err := repo.LoadBundles(run.RunID)
	require.NoError(t, err)
	assert.Equal(t, results[0].Bundle, bundles["v2"])

	other, err := repo.LoadResults("other-run")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestScoreRepository_DuplicateVignetteRollsBack(t *testing.T) {
	d := openTestDB(t)
	run := createRun(t, d)
	repo := NewScoreRepository(d)

	dup := models.VignetteResult{VignetteID: "v1", Network: "n", Bundle: models.Bundle{Posterior: models.ScoreMap{"d": 1}}}
	err := repo.SaveResults(run.RunID, []models.VignetteResult{dup, dup})
	require.Error(t, err)

	got, err := repo.LoadResults(run.RunID)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestWarningRepository(t *testing.T) {
	d := openTestDB(t)
	run := createRun(t, d)
	repo := NewWarningRepository(d)

	warnings := []models.DataWarning{
		{RunID: run.RunID, VignetteID: "v1", Kind: models.WarningMissingGroundTruth, Method: models.MethodPosterior, DiseaseID: "flu"},
		{RunID: run.RunID, VignetteID: "v2", Kind: models.WarningEmptyScores, Method: models.MethodSufficiency},
		{RunID: run.RunID, VignetteID: "v1", Kind: models.WarningMissingGroundTruth, Method: models.MethodDisablement, DiseaseID: "flu"},
	}
	require.NoError(t, repo.SaveWarnings(warnings))
	require.NoError(t, repo.SaveWarnings(nil))

	all, err := repo.ListWarnings(run.RunID, "")
	require.NoError(t, err)
	assert.Equal(t, warnings, all)

	missing, err := repo.ListWarnings(run.RunID, models.WarningMissingGroundTruth)
	require.NoError(t, err)
	assert.Len(t, missing, 2)

	counts, err := repo.CountByKind(run.RunID)
	require.NoError(t, err)
	assert.Equal(t, map[models.WarningKind]int{
		models.WarningMissingGroundTruth: 2,
		models.WarningEmptyScores:        1,
	}, counts)

	skipped := []models.SkippedVignette{{RunID: run.RunID, VignetteID: "v9", Network: "cardio", Reason: "not loaded"}}
	require.NoError(t, repo.SaveSkipped(skipped))
	gotSkipped, err := repo.ListSkipped(run.RunID)
	require.NoError(t, err)
	assert.Equal(t, skipped, gotSkipped)
}

func TestRunRepository_DeleteCascades(t *testing.T) {
	d := openTestDB(t)
	run := createRun(t, d)

	require.NoError(t, NewScoreRepository(d).SaveResults(run.RunID, []models.VignetteResult{
		{VignetteID: "v1", Network: "n", Bundle: models.Bundle{Posterior: models.ScoreMap{"d": 0.5}}},
	}))
	require.NoError(t, NewWarningRepository(d).SaveSkipped([]models.SkippedVignette{
		{RunID: run.RunID, VignetteID: "v2", Network: "x", Reason: "missing"},
	}))

	require.NoError(t, NewRunRepository(d).Delete(run.RunID))

	var n int
	require.NoError(t, d.Get(&n, `SELECT COUNT(*) FROM vignette_scores`))
	assert.Zero(t, n)
	require.NoError(t, d.Get(&n, `SELECT COUNT(*) FROM skipped_vignettes`))
	assert.Zero(t, n)
}
