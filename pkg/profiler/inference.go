package profiler

import (
	"regexp"
	"strings"

	"github.com/kestrel-data/resolve-engine/pkg/models"
)

// nameKeyword maps a column-name fragment to the entity type it suggests.
// Checked in order; the first match wins, so more specific fragments come
// before generic ones.
type nameKeyword struct {
	fragment string
	entity   models.EntityType
}

// nameKeywords is the static column-name classification table,
// initialized once and never mutated at runtime.
var nameKeywords = []nameKeyword{
	{"client", models.EntityTypeClient},
	{"account", models.EntityTypeClient},
	{"customer", models.EntityTypeClient},
	{"company", models.EntityTypeCompany},
	{"vendor", models.EntityTypeCompany},
	{"supplier", models.EntityTypeCompany},
	{"organization", models.EntityTypeCompany},
	{"organisation", models.EntityTypeCompany},
	{"project", models.EntityTypeProject},
	{"campaign", models.EntityTypeProject},
	{"engagement", models.EntityTypeProject},
	{"product", models.EntityTypeProduct},
	{"sku", models.EntityTypeProduct},
	{"item", models.EntityTypeProduct},
	{"employee", models.EntityTypePerson},
	{"manager", models.EntityTypePerson},
	{"owner", models.EntityTypePerson},
	{"contact", models.EntityTypePerson},
	{"person", models.EntityTypePerson},
	{"city", models.EntityTypeLocation},
	{"country", models.EntityTypeLocation},
	{"region", models.EntityTypeLocation},
	{"location", models.EntityTypeLocation},
	{"department", models.EntityTypeDepartment},
	{"division", models.EntityTypeDepartment},
	{"team", models.EntityTypeDepartment},
}

// legalSuffixes are corporate-entity suffixes scanned for in sample
// values when column-name classification fails.
var legalSuffixes = []string{
	"inc", "inc.", "llc", "ltd", "ltd.", "limited", "corp", "corp.",
	"corporation", "incorporated", "gmbh", "plc", "ag", "sa", "nv",
	"co", "co.", "pty",
}

// personNamePattern matches a two-capitalized-word form like "Jane Smith".
var personNamePattern = regexp.MustCompile(`^[A-Z][a-z]+ [A-Z][a-z]+$`)

// likelyPKNames are column names that always indicate a primary key.
var likelyPKNames = map[string]bool{
	"id":   true,
	"uuid": true,
	"guid": true,
	"pk":   true,
}

// inferEntityType classifies a column by name first, then by scanning its
// sample values. Returns EntityTypeUnknown when nothing matches.
func inferEntityType(columnName string, samples []models.ValueCount) models.EntityType {
	lower := strings.ToLower(columnName)
	for _, kw := range nameKeywords {
		if strings.Contains(lower, kw.fragment) {
			return kw.entity
		}
	}
	return inferFromSamples(samples)
}

// inferFromSamples scans sample values for legal-entity suffixes (company)
// or two-capitalized-word person names. A type is assigned when at least
// a third of the samples agree; value data is noisier than column names,
// so a bare plurality is not enough.
func inferFromSamples(samples []models.ValueCount) models.EntityType {
	if len(samples) == 0 {
		return models.EntityTypeUnknown
	}

	companyHits := 0
	personHits := 0
	for _, vc := range samples {
		if hasLegalSuffix(vc.Value) {
			companyHits++
		} else if personNamePattern.MatchString(vc.Value) {
			personHits++
		}
	}

	threshold := (len(samples) + 2) / 3
	switch {
	case companyHits >= threshold:
		return models.EntityTypeCompany
	case personHits >= threshold:
		return models.EntityTypePerson
	default:
		return models.EntityTypeUnknown
	}
}

// hasLegalSuffix reports whether the value's final token is a corporate
// legal suffix like Inc or GmbH.
func hasLegalSuffix(value string) bool {
	tokens := strings.Fields(value)
	if len(tokens) < 2 {
		return false
	}
	last := strings.ToLower(strings.TrimSuffix(tokens[len(tokens)-1], ","))
	for _, suffix := range legalSuffixes {
		if last == suffix {
			return true
		}
	}
	return false
}
