package models

// MatchKind identifies how a candidate matched the mention.
type MatchKind string

const (
	MatchKindExact          MatchKind = "exact"
	MatchKindVariation      MatchKind = "variation"
	MatchKindFuzzy          MatchKind = "fuzzy"
	MatchKindAbbreviation   MatchKind = "abbreviation"
	MatchKindUserPreference MatchKind = "user_preference"
)

// ValueEntry is a canonical indexed value. Entries are owned by the index
// that created them and are immutable after construction; concurrent
// readers share them freely.
type ValueEntry struct {
	CanonicalValue string     `json:"canonical_value"`
	TableName      string     `json:"table_name"`
	ColumnName     string     `json:"column_name"`
	EntityType     EntityType `json:"entity_type"`

	// Frequency is the observed row count for this value. Always >= 1.
	Frequency int64 `json:"frequency"`

	// Variations holds alternate textual forms, bounded by the configured
	// variation cap.
	Variations []string `json:"variations,omitempty"`

	// Relationships links this entry to related entries in other scopes
	// (e.g. a project belonging to a client). Keyed by relation name.
	Relationships map[string]*ValueEntry `json:"-"`
}

// Scope returns the (table, column) scope the canonical value is unique in.
func (e *ValueEntry) Scope() ColumnRef {
	return ColumnRef{TableName: e.TableName, ColumnName: e.ColumnName}
}

// ValueMatch is a scored candidate produced by an index lookup.
type ValueMatch struct {
	Entry *ValueEntry `json:"entry"`

	// Score is the raw match score in [0, 1].
	Score float64 `json:"score"`

	Kind MatchKind `json:"kind"`

	// MatchedForm is the literal textual form that matched.
	MatchedForm string `json:"matched_form"`
}

// ResolutionResult is the outcome of resolving a mention. Exactly one of
// three branches holds:
//   - Match != nil: a confident, unambiguous resolution
//   - RequiresClarification: plausible candidates exist but none is safe
//     to accept silently; Candidates and Clarification are populated
//   - neither: no match at all
type ResolutionResult struct {
	Match      *ValueEntry `json:"match,omitempty"`
	Confidence float64     `json:"confidence"`

	// Source tags how the winning match was found: "exact", "variation",
	// "fuzzy", "abbreviation", or "user_preference".
	Source string `json:"source,omitempty"`

	RequiresClarification bool `json:"requires_clarification"`

	// Candidates holds the ranked candidate list. Populated whenever any
	// candidates were found, including on confident matches.
	Candidates []ValueMatch `json:"candidates,omitempty"`

	// Clarification is a generated question distinguishing the candidates
	// by their owning table and column. Set only when clarification is
	// required.
	Clarification string `json:"clarification,omitempty"`
}

// Matched reports whether the mention resolved to a single confident entry.
func (r *ResolutionResult) Matched() bool {
	return r.Match != nil && !r.RequiresClarification
}

// NoMatch reports whether resolution found nothing at all.
func (r *ResolutionResult) NoMatch() bool {
	return r.Match == nil && !r.RequiresClarification
}

// AbbreviationRule maps a learned short form to its canonical candidates.
type AbbreviationRule struct {
	ShortForm string `json:"short_form"`

	// Candidates holds every canonical entry that produces this short
	// form. When more than one does, the rule is ambiguous and the
	// resolver, not the learner, arbitrates.
	Candidates []*ValueEntry `json:"candidates"`

	Ambiguous bool `json:"ambiguous"`
}
