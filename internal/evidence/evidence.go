// Package evidence turns a vignette's reported symptoms and risk factors into a
// sparse evidence vector keyed by network node id.
package evidence

import (
	"strings"

	"github.com/AbdouB/twindx/internal/models"
)

// DefaultRiskBoost is the evidence value assigned to a present risk factor.
const DefaultRiskBoost = 5.0

// Categorical severity labels.
const (
	SeverityNotPresent = "NOT_PRESENT"
	SeverityMild       = "MILD"
	SeverityModerate   = "MODERATE"
	SeverityPresent    = "PRESENT"
	SeveritySevere     = "SEVERE"
)

var severityValues = map[string]float64{
	SeverityNotPresent: 0.0,
	SeverityMild:       0.3,
	SeverityModerate:   0.6,
	SeverityPresent:    1.0,
	SeveritySevere:     1.2,
}

// SeverityValue maps a categorical severity label to its numeric value.
// Matching ignores case and surrounding space; unknown or empty labels count as
// present (1.0).
func SeverityValue(label string) float64 {
	if v, ok := severityValues[strings.ToUpper(strings.TrimSpace(label))]; ok {
		return v
	}
	return severityValues[SeverityPresent]
}

// Vector maps node id to an evidence value. A missing key means no evidence and
// reads as 0.
type Vector map[string]float64

// Get returns the evidence for id, 0 when absent.
func (v Vector) Get(id string) float64 { return v[id] }

// Lookup returns the evidence for id and whether it was observed.
func (v Vector) Lookup(id string) (float64, bool) {
	x, ok := v[id]
	return x, ok
}

// Extractor builds evidence vectors from case cards. It holds no state beyond
// its settings and is safe for concurrent use.
type Extractor struct {
	// RiskBoost is assigned to every present risk factor. Zero means DefaultRiskBoost.
	RiskBoost float64
}

func (e Extractor) boost() float64 {
	if e.RiskBoost == 0 {
		return DefaultRiskBoost
	}
	return e.RiskBoost
}

// Extract returns the evidence vector for card. Symptoms without a concept id or
// labelled "Super" are skipped. A precomputed numeric severity wins over the
// categorical label. Present risk factors get the risk boost and override any
// earlier value for the same id.
func (e Extractor) Extract(card models.CaseCard) Vector {
	ev := make(Vector, len(card.Symptoms)+len(card.RiskFactors))

	for _, sym := range card.Symptoms {
		if sym.Concept.ID == "" || sym.Label == models.SymptomLabelSuper {
			continue
		}
		if sym.SeverityNumeric != nil {
			ev[sym.Concept.ID] = *sym.SeverityNumeric
			continue
		}
		ev[sym.Concept.ID] = SeverityValue(sym.Severity)
	}

	for _, rf := range card.RiskFactors {
		if rf.Concept.ID == "" {
			continue
		}
		// An unlabelled risk factor is read as Risk.
		if rf.Label != "" && rf.Label != models.RiskLabel {
			continue
		}
		if strings.ToUpper(strings.TrimSpace(rf.Presence)) == models.PresencePresent {
			ev[rf.Concept.ID] = e.boost()
		}
	}

	return ev
}

// AnnotateSeverity fills SeverityNumeric on every symptom that lacks one, using
// the categorical table. Cards are modified in place.
func AnnotateSeverity(vignettes []models.Vignette) {
	for i := range vignettes {
		syms := vignettes[i].Card.Symptoms
		for j := range syms {
			if syms[j].SeverityNumeric != nil {
				continue
			}
			v := SeverityValue(syms[j].Severity)
			syms[j].SeverityNumeric = &v
		}
	}
}
