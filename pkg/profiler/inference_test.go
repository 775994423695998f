package profiler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kestrel-data/resolve-engine/pkg/models"
)

func TestInferEntityTypeByName(t *testing.T) {
	tests := []struct {
		column string
		want   models.EntityType
	}{
		{"client_name", models.EntityTypeClient},
		{"account_holder", models.EntityTypeClient},
		{"CustomerName", models.EntityTypeClient},
		{"vendor", models.EntityTypeCompany},
		{"project_title", models.EntityTypeProject},
		{"campaign_name", models.EntityTypeProject},
		{"product_sku", models.EntityTypeProduct},
		{"employee_name", models.EntityTypePerson},
		// "account" outranks "manager": first fragment in table order wins.
		{"account_manager", models.EntityTypeClient},
		{"city", models.EntityTypeLocation},
		{"department", models.EntityTypeDepartment},
		{"notes", models.EntityTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.column, func(t *testing.T) {
			assert.Equal(t, tt.want, inferEntityType(tt.column, nil))
		})
	}
}

func TestInferFromSamplesLegalSuffixes(t *testing.T) {
	samples := []models.ValueCount{
		{Value: "Acme Corp"},
		{Value: "Globex LLC"},
		{Value: "Initech GmbH"},
	}

	assert.Equal(t, models.EntityTypeCompany, inferEntityType("col1", samples))
}

func TestInferFromSamplesPersonNames(t *testing.T) {
	samples := []models.ValueCount{
		{Value: "Jane Smith"},
		{Value: "Carlos Rivera"},
		{Value: "Mei Tanaka"},
	}

	assert.Equal(t, models.EntityTypePerson, inferEntityType("col1", samples))
}

func TestInferFromSamplesBelowThreshold(t *testing.T) {
	// One legal suffix in six samples is noise, not a signal.
	samples := []models.ValueCount{
		{Value: "Acme Corp"},
		{Value: "banana"},
		{Value: "cherry"},
		{Value: "dragonfruit"},
		{Value: "elderberry"},
		{Value: "fig"},
	}

	assert.Equal(t, models.EntityTypeUnknown, inferEntityType("col1", samples))
}

func TestInferNoSamples(t *testing.T) {
	assert.Equal(t, models.EntityTypeUnknown, inferEntityType("col1", nil))
}

func TestHasLegalSuffix(t *testing.T) {
	assert.True(t, hasLegalSuffix("Acme Corp"))
	assert.True(t, hasLegalSuffix("Acme Inc."))
	assert.False(t, hasLegalSuffix("Acme"))
	assert.False(t, hasLegalSuffix("Corporation"), "single token is never a suffix match")
}
