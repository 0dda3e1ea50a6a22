// Package models contains the data records exchanged between the loaders,
// the scoring engine, the result store and the reports.
package models

// SymptomLabelSuper marks a non-leaf grouping symptom that carries no evidence.
const SymptomLabelSuper = "Super"

// RiskLabel is the only label accepted on risk factor records.
const RiskLabel = "Risk"

// PresencePresent is the presence flag value that activates a risk factor.
const PresencePresent = "PRESENT"

// Concept identifies a network node referenced from a vignette.
type Concept struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// SymptomObservation is a reported symptom. SeverityNumeric, when set, takes
// precedence over the categorical Severity label.
type SymptomObservation struct {
	Concept         Concept  `json:"concept"`
	Severity        string   `json:"severity,omitempty"`
	SeverityNumeric *float64 `json:"severity_numeric,omitempty"`
	Label           string   `json:"label,omitempty"` // "Super" for grouping symptoms
}

// RiskFactorObservation is a reported risk factor with its presence flag.
type RiskFactorObservation struct {
	Concept  Concept `json:"concept"`
	Presence string  `json:"presence,omitempty"`
	Label    string  `json:"label,omitempty"`
}

// DiseaseRef is a ground-truth disease attached to a vignette.
type DiseaseRef struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Rareness string `json:"rareness,omitempty"`
}

// DoctorDiagnosis is one entry of a doctor's differential.
type DoctorDiagnosis struct {
	Concept Concept `json:"concept"`
}

// UserRef identifies the doctor who produced an outcome.
type UserRef struct {
	ID string `json:"id"`
}

// Outcome records one doctor's answer for a vignette.
type Outcome struct {
	User           UserRef           `json:"user"`
	DoctorDiseases []DoctorDiagnosis `json:"doctor_diseases,omitempty"`
}

// CaseCard is the clinical content of a vignette.
type CaseCard struct {
	NetworkName string                  `json:"network_name"`
	Symptoms    []SymptomObservation    `json:"symptoms"`
	RiskFactors []RiskFactorObservation `json:"risk_factors"`
	Diseases    []DiseaseRef            `json:"diseases"`
	Outcomes    []Outcome               `json:"outcomes,omitempty"`
}

// TrueDisease returns the first ground-truth disease of the card.
func (c CaseCard) TrueDisease() (DiseaseRef, bool) {
	if len(c.Diseases) == 0 || c.Diseases[0].ID == "" {
		return DiseaseRef{}, false
	}
	return c.Diseases[0], true
}

// DoctorDifferentials maps doctor user id to the disease ids in that doctor's
// differential. Outcomes without a differential are skipped.
func (c CaseCard) DoctorDifferentials() map[string][]string {
	out := make(map[string][]string)
	for _, o := range c.Outcomes {
		if o.DoctorDiseases == nil {
			continue
		}
		ids := make([]string, 0, len(o.DoctorDiseases))
		for _, d := range o.DoctorDiseases {
			if d.Concept.ID != "" {
				ids = append(ids, d.Concept.ID)
			}
		}
		out[o.User.ID] = ids
	}
	return out
}

// Vignette is a keyed case card as stored in the vignettes file.
type Vignette struct {
	ID   string   `json:"-"`
	Card CaseCard `json:"card"`
}
