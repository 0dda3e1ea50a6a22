package models

import "fmt"

// Method names one of the three per-vignette scores.
type Method string

const (
	MethodPosterior   Method = "posterior"
	MethodDisablement Method = "disablement"
	MethodSufficiency Method = "sufficiency"
)

// Methods lists the score methods in reporting order.
var Methods = []Method{MethodPosterior, MethodDisablement, MethodSufficiency}

// ParseMethod validates a method name.
func ParseMethod(s string) (Method, error) {
	for _, m := range Methods {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown method %q (want posterior, disablement or sufficiency)", s)
}

// ScoreMap maps disease id to a score.
type ScoreMap map[string]float64

// Bundle is the per-vignette result triple.
type Bundle struct {
	Posterior   ScoreMap `json:"posterior"`
	Disablement ScoreMap `json:"disablement"`
	Sufficiency ScoreMap `json:"sufficiency"`
}

// Scores returns the map for method m.
func (b Bundle) Scores(m Method) ScoreMap {
	switch m {
	case MethodPosterior:
		return b.Posterior
	case MethodDisablement:
		return b.Disablement
	case MethodSufficiency:
		return b.Sufficiency
	}
	return nil
}

// VignetteResult is a scored vignette.
type VignetteResult struct {
	VignetteID string `json:"vignette_id" db:"vignette_id"`
	Network    string `json:"network" db:"network"`
	Bundle     Bundle `json:"bundle"`
}

// WarningKind classifies non-fatal data-quality signals.
type WarningKind string

const (
	WarningEmptyScores        WarningKind = "empty_scores"
	WarningMissingGroundTruth WarningKind = "missing_ground_truth"
)

// DataWarning is a data-quality signal raised while scoring a vignette.
type DataWarning struct {
	RunID      string      `json:"run_id,omitempty" db:"run_id"`
	VignetteID string      `json:"vignette_id" db:"vignette_id"`
	Kind       WarningKind `json:"kind" db:"kind"`
	Method     Method      `json:"method" db:"method"`
	DiseaseID  string      `json:"disease_id,omitempty" db:"disease_id"`
}

// SkippedVignette records a vignette that could not be scored.
type SkippedVignette struct {
	RunID      string `json:"run_id,omitempty" db:"run_id"`
	VignetteID string `json:"vignette_id" db:"vignette_id"`
	Network    string `json:"network" db:"network"`
	Reason     string `json:"reason" db:"reason"`
}
