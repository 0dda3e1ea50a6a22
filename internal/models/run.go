package models

import (
	"time"

	"github.com/google/uuid"
)

// Run is one batch scoring pass over a vignette set.
type Run struct {
	RunID       string     `json:"run_id" db:"run_id"`
	StartTime   time.Time  `json:"start_time" db:"start_time"`
	EndTime     *time.Time `json:"end_time,omitempty" db:"end_time"`
	Propagation string     `json:"propagation" db:"propagation"`
	Normalized  bool       `json:"normalized" db:"normalized"`
	RiskBoost   float64    `json:"risk_boost" db:"risk_boost"`
	Scored      int        `json:"scored" db:"scored"`
	Skipped     int        `json:"skipped" db:"skipped"`
	Warnings    int        `json:"warnings" db:"warnings"`
	Notes       *string    `json:"notes,omitempty" db:"notes"`
}

// NewRun creates a run record starting now.
func NewRun() *Run {
	return &Run{
		RunID:     uuid.New().String(),
		StartTime: time.Now(),
	}
}

// Finish stamps the end time and the outcome counters.
func (r *Run) Finish(scored, skipped, warnings int) {
	now := time.Now()
	r.EndTime = &now
	r.Scored = scored
	r.Skipped = skipped
	r.Warnings = warnings
}
