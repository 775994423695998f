package models

import (
	"time"

	"github.com/google/uuid"
)

// IndexStats summarizes a built value index. Used by onboarding's
// acceptance check and exposed through the stats tool.
type IndexStats struct {
	TotalEntries        int     `json:"total_entries"`
	TotalVariations     int     `json:"total_variations"`
	AvgVariationsPerKey float64 `json:"avg_variations_per_entry"`
}

// OnboardingResult reports the outcome of running the full pipeline for
// a datasource. When Success is false the previously active index, if
// any, keeps serving; a failed onboarding never partially activates.
type OnboardingResult struct {
	DatasourceID uuid.UUID `json:"datasource_id"`
	Label        string    `json:"label"`
	Success      bool      `json:"success"`

	// Errors holds descriptive failure reasons. Non-empty iff !Success.
	Errors []string `json:"errors,omitempty"`

	TablesProfiled     int        `json:"tables_profiled"`
	EntityColumns      int        `json:"entity_columns"`
	PrimaryEntities    int        `json:"primary_entities"`
	AbbreviationRules  int        `json:"abbreviation_rules"`
	IndexStats         IndexStats `json:"index_stats"`
	ValidationAccuracy float64    `json:"validation_accuracy"`
	ValidationSamples  int        `json:"validation_samples"`
	ProfilePartial     bool       `json:"profile_partial"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Duration returns how long the onboarding run took.
func (r *OnboardingResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
