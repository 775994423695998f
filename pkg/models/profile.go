package models

import (
	"time"

	"github.com/google/uuid"
)

// ValueCount is a sampled value with its observed row frequency.
type ValueCount struct {
	Value string `json:"value"`
	Count int64  `json:"count"`
}

// ColumnProfile holds the analysis results for a single textual column.
type ColumnProfile struct {
	ColumnName    string `json:"column_name"`
	DataType      string `json:"data_type"`
	DistinctCount int64  `json:"distinct_count"`

	// SampleValues holds up to the configured sample size of distinct
	// values, ordered by descending row frequency.
	SampleValues []ValueCount `json:"sample_values,omitempty"`

	// InferredType is the semantic category assigned by the profiler.
	InferredType EntityType `json:"inferred_type"`
}

// Frequency returns the observed row count for a sampled value,
// or zero if the value was not sampled.
func (p *ColumnProfile) Frequency(value string) int64 {
	for _, vc := range p.SampleValues {
		if vc.Value == value {
			return vc.Count
		}
	}
	return 0
}

// TableProfile holds profiling results for one table.
type TableProfile struct {
	SchemaName string `json:"schema_name,omitempty"`
	TableName  string `json:"table_name"`
	RowCount   int64  `json:"row_count"`

	// EntityColumns lists the columns that qualified as entity columns,
	// in the order they were analyzed.
	EntityColumns []ColumnProfile `json:"entity_columns,omitempty"`
}

// ColumnRef identifies a column within a profiled datasource.
type ColumnRef struct {
	TableName  string `json:"table_name"`
	ColumnName string `json:"column_name"`
}

// DatabaseProfile is the immutable output of a profiling run. It is the
// sole input to index construction; nothing downstream reaches back to
// the source connection except onboarding's validation pass.
type DatabaseProfile struct {
	ProfileID uuid.UUID `json:"profile_id"`

	Tables []TableProfile `json:"tables"`

	// PrimaryEntities are the (table, column) pairs selected as the
	// dataset's primary resolution targets.
	PrimaryEntities []ColumnRef `json:"primary_entities,omitempty"`

	// Partial is set when profiling was cut short by the caller's
	// deadline. Tables analyzed before the deadline are retained.
	Partial bool `json:"partial"`

	ProfiledAt time.Time `json:"profiled_at"`
}

// EntityColumnCount returns the total number of entity columns discovered
// across all tables.
func (p *DatabaseProfile) EntityColumnCount() int {
	count := 0
	for _, t := range p.Tables {
		count += len(t.EntityColumns)
	}
	return count
}
