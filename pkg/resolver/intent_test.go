package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kestrel-data/resolve-engine/pkg/models"
)

func TestSuggestedTypesRevenue(t *testing.T) {
	a := NewIntentAnalyzer()

	suggested := a.SuggestedTypes("total revenue from acme last quarter")

	assert.True(t, suggested[models.EntityTypeClient])
	assert.True(t, suggested[models.EntityTypeCompany])
	assert.False(t, suggested[models.EntityTypeProject])
}

func TestSuggestedTypesPunctuation(t *testing.T) {
	a := NewIntentAnalyzer()

	suggested := a.SuggestedTypes("What's the deadline, roughly, for that campaign?")

	assert.True(t, suggested[models.EntityTypeProject],
		"keywords with trailing punctuation should still match")
}

func TestSuggestedTypesEmpty(t *testing.T) {
	a := NewIntentAnalyzer()

	assert.Empty(t, a.SuggestedTypes(""))
	assert.Empty(t, a.SuggestedTypes("hello there"))
}
