package experiment

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbdouB/twindx/internal/dataset"
	"github.com/AbdouB/twindx/internal/evidence"
	"github.com/AbdouB/twindx/internal/inference"
	"github.com/AbdouB/twindx/internal/models"
	"github.com/AbdouB/twindx/internal/network"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testNetworks() *dataset.NetworkSet {
	resp := network.MustNew("resp", []network.Node{
		{ID: "flu", Label: network.LabelDisease, CPT: network.CPT{0.9, 0.1}},
		{ID: "cold", Label: network.LabelDisease, CPT: network.CPT{0.6, 0.4}},
		{ID: "fever", Label: network.LabelSymptom, Parents: []string{"flu"}, CPT: network.CPT{0.8, 0.2}},
		{ID: "cough", Label: network.LabelSymptom, Parents: []string{"flu", "cold"}, CPT: network.CPT{0.8, 0.2}},
	})
	return dataset.NewNetworkSet(resp)
}

func vignette(id, net, truth string, symptoms ...string) models.Vignette {
	card := models.CaseCard{NetworkName: net}
	for _, s := range symptoms {
		card.Symptoms = append(card.Symptoms, models.SymptomObservation{
			Concept:  models.Concept{ID: s},
			Severity: evidence.SeverityPresent,
		})
	}
	if truth != "" {
		card.Diseases = []models.DiseaseRef{{ID: truth}}
	}
	return models.Vignette{ID: id, Card: card}
}

func newRunner(opts Options) *Runner {
	scorer := inference.NewScorer(inference.Options{Workers: 2}, quietLogger())
	return NewRunner(scorer, evidence.Extractor{}, opts, quietLogger())
}

func TestRun_SkipsMissingNetwork(t *testing.T) {
	vs := []models.Vignette{
		vignette("v1", "resp", "flu", "flu"),
		vignette("v2", "cardio", "mi", "chest_pain"),
		vignette("v3", "resp", "cold", "cold"),
	}
	before := testutil.ToFloat64(vignettesTotal.WithLabelValues(outcomeSkipped))

	sum, err := newRunner(Options{Workers: 3}).Run(context.Background(), testNetworks(), vs)
	require.NoError(t, err)

	require.Len(t, sum.Results, 2)
	assert.Equal(t, "v1", sum.Results[0].VignetteID)
	assert.Equal(t, "v3", sum.Results[1].VignetteID)

	require.Len(t, sum.Skipped, 1)
	assert.Equal(t, "v2", sum.Skipped[0].VignetteID)
	assert.Equal(t, "cardio", sum.Skipped[0].Network)
	assert.Equal(t, sum.Run.RunID, sum.Skipped[0].RunID)
	assert.Contains(t, sum.Skipped[0].Reason, `"cardio"`)

	assert.Equal(t, 1.0, testutil.ToFloat64(vignettesTotal.WithLabelValues(outcomeSkipped))-before)
	assert.Equal(t, 2, sum.Run.Scored)
	assert.Equal(t, 1, sum.Run.Skipped)
	require.NotNil(t, sum.Run.EndTime)
}

func TestRun_ScoresMatchScorer(t *testing.T) {
	nets := testNetworks()
	vs := []models.Vignette{vignette("v1", "resp", "flu", "flu", "fever")}

	sum, err := newRunner(Options{}).Run(context.Background(), nets, vs)
	require.NoError(t, err)
	require.Len(t, sum.Results, 1)

	net, _ := nets.Get("resp")
	ev := evidence.Extractor{}.Extract(vs[0].Card)
	want, err := inference.NewScorer(inference.Options{}, quietLogger()).Evaluate(context.Background(), net, ev)
	require.NoError(t, err)

	assert.Equal(t, want, sum.Results[0].Bundle)
	assert.Greater(t, sum.Results[0].Bundle.Disablement["flu"], 0.0)
	assert.Equal(t, 0.0, sum.Results[0].Bundle.Disablement["cold"])
	assert.Equal(t, "resp", sum.Results[0].Network)
}

func TestRun_AnnotatesSeverity(t *testing.T) {
	vs := []models.Vignette{vignette("v1", "resp", "flu", "flu")}
	_, err := newRunner(Options{}).Run(context.Background(), testNetworks(), vs)
	require.NoError(t, err)

	require.NotNil(t, vs[0].Card.Symptoms[0].SeverityNumeric)
	assert.Equal(t, 1.0, *vs[0].Card.Symptoms[0].SeverityNumeric)
}

func TestRun_FirstN(t *testing.T) {
	vs := []models.Vignette{
		vignette("v1", "resp", "flu", "flu"),
		vignette("v2", "resp", "flu", "flu"),
		vignette("v3", "resp", "flu", "flu"),
	}
	sum, err := newRunner(Options{First: 2}).Run(context.Background(), testNetworks(), vs)
	require.NoError(t, err)
	require.Len(t, sum.Results, 2)
	assert.Equal(t, "v2", sum.Results[1].VignetteID)

	sum, err = newRunner(Options{First: 10}).Run(context.Background(), testNetworks(), vs)
	require.NoError(t, err)
	assert.Len(t, sum.Results, 3)
}

func TestRun_GroundTruthWarnings(t *testing.T) {
	vs := []models.Vignette{vignette("v1", "resp", "measles", "flu")}

	sum, err := newRunner(Options{}).Run(context.Background(), testNetworks(), vs)
	require.NoError(t, err)

	require.Len(t, sum.Warnings, len(models.Methods))
	for i, w := range sum.Warnings {
		assert.Equal(t, models.WarningMissingGroundTruth, w.Kind)
		assert.Equal(t, models.Methods[i], w.Method)
		assert.Equal(t, "measles", w.DiseaseID)
		assert.Equal(t, sum.Run.RunID, w.RunID)
	}
	assert.Equal(t, len(models.Methods), sum.Run.Warnings)
}

func TestRun_NoGroundTruthNoWarning(t *testing.T) {
	vs := []models.Vignette{vignette("v1", "resp", "", "flu")}

	sum, err := newRunner(Options{}).Run(context.Background(), testNetworks(), vs)
	require.NoError(t, err)
	assert.Empty(t, sum.Warnings)
}

func TestRun_OrderStableAcrossWorkers(t *testing.T) {
	var vs []models.Vignette
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		vs = append(vs, vignette(id, "resp", "flu", "flu", "cold"))
	}

	serial, err := newRunner(Options{Workers: 1}).Run(context.Background(), testNetworks(), vs)
	require.NoError(t, err)
	parallel, err := newRunner(Options{Workers: 8}).Run(context.Background(), testNetworks(), vs)
	require.NoError(t, err)

	assert.Equal(t, serial.Results, parallel.Results)
}

func TestRun_RecordsSettings(t *testing.T) {
	scorer := inference.NewScorer(inference.Options{Propagation: inference.PropagationFull, Normalize: true}, quietLogger())
	r := NewRunner(scorer, evidence.Extractor{RiskBoost: 3}, Options{}, quietLogger())

	sum, err := r.Run(context.Background(), testNetworks(), nil)
	require.NoError(t, err)
	assert.Equal(t, "propagate", sum.Run.Propagation)
	assert.True(t, sum.Run.Normalized)
	assert.Equal(t, 3.0, sum.Run.RiskBoost)
	assert.NotEmpty(t, sum.Run.RunID)
	assert.Empty(t, sum.Results)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newRunner(Options{}).Run(ctx, testNetworks(), []models.Vignette{vignette("v1", "resp", "flu", "flu")})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMissingNetworkError(t *testing.T) {
	var err error = &MissingNetworkError{VignetteID: "v9", Network: "gone"}
	assert.True(t, errors.Is(err, ErrMissingNetwork))
	assert.Equal(t, `vignette "v9": network "gone" not loaded`, err.Error())
}
