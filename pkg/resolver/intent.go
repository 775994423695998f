package resolver

import (
	"strings"

	"github.com/kestrel-data/resolve-engine/pkg/models"
)

// intentKeywords maps query-text fragments to the entity types they make
// more plausible. A question about "revenue" is far more likely to mean
// a client or company than a project with a similar name.
var intentKeywords = map[string][]models.EntityType{
	"revenue":  {models.EntityTypeClient, models.EntityTypeCompany},
	"invoice":  {models.EntityTypeClient, models.EntityTypeCompany},
	"billing":  {models.EntityTypeClient, models.EntityTypeCompany},
	"billed":   {models.EntityTypeClient, models.EntityTypeCompany},
	"paid":     {models.EntityTypeClient, models.EntityTypeCompany},
	"spend":    {models.EntityTypeClient, models.EntityTypeCompany},
	"account":  {models.EntityTypeClient},
	"client":   {models.EntityTypeClient},
	"customer": {models.EntityTypeClient},
	"vendor":   {models.EntityTypeCompany},
	"supplier": {models.EntityTypeCompany},

	"project":     {models.EntityTypeProject},
	"campaign":    {models.EntityTypeProject},
	"milestone":   {models.EntityTypeProject},
	"deadline":    {models.EntityTypeProject},
	"launch":      {models.EntityTypeProject},
	"deliverable": {models.EntityTypeProject},

	"product":   {models.EntityTypeProduct},
	"sku":       {models.EntityTypeProduct},
	"inventory": {models.EntityTypeProduct},
	"stock":     {models.EntityTypeProduct},
	"sold":      {models.EntityTypeProduct},
	"units":     {models.EntityTypeProduct},

	"employee": {models.EntityTypePerson},
	"manager":  {models.EntityTypePerson},
	"salary":   {models.EntityTypePerson},
	"hired":    {models.EntityTypePerson},
	"works":    {models.EntityTypePerson},

	"office":   {models.EntityTypeLocation},
	"city":     {models.EntityTypeLocation},
	"country":  {models.EntityTypeLocation},
	"region":   {models.EntityTypeLocation},
	"shipped":  {models.EntityTypeLocation},
	"based":    {models.EntityTypeLocation},

	"department": {models.EntityTypeDepartment},
	"division":   {models.EntityTypeDepartment},
	"team":       {models.EntityTypeDepartment},
	"headcount":  {models.EntityTypeDepartment},
}

// IntentAnalyzer infers which entity types the surrounding query text
// points at. It is a cheap keyword scan, not an NLU model; its output
// only nudges candidate scores, never vetoes them.
type IntentAnalyzer struct{}

// NewIntentAnalyzer creates an intent analyzer.
func NewIntentAnalyzer() *IntentAnalyzer {
	return &IntentAnalyzer{}
}

// SuggestedTypes returns the set of entity types the query context
// suggests. Empty context yields an empty set.
func (a *IntentAnalyzer) SuggestedTypes(queryContext string) map[models.EntityType]bool {
	suggested := make(map[models.EntityType]bool)
	for _, token := range strings.Fields(strings.ToLower(queryContext)) {
		token = strings.Trim(token, ".,;:?!'\"()")
		for _, et := range intentKeywords[token] {
			suggested[et] = true
		}
	}
	return suggested
}
