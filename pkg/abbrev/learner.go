// Package abbrev mines a built value index for short-form to canonical
// mappings, without supervision. It registers acronyms of multi-token
// canonical values and flags the ones shared by several distinct values
// as ambiguous; the resolver, not the learner, arbitrates those.
package abbrev

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/kestrel-data/resolve-engine/pkg/index"
	"github.com/kestrel-data/resolve-engine/pkg/models"
)

// commonWords is a stoplist of short English words that happen to look
// like acronyms. An acronym colliding with one of these would fire on
// ordinary query text far too often to be useful.
var commonWords = map[string]bool{
	"a": true, "an": true, "as": true, "at": true, "be": true,
	"by": true, "do": true, "go": true, "he": true, "if": true,
	"in": true, "is": true, "it": true, "me": true, "my": true,
	"no": true, "of": true, "on": true, "or": true, "so": true,
	"to": true, "up": true, "us": true, "we": true,
	"all": true, "and": true, "are": true, "but": true, "can": true,
	"for": true, "get": true, "has": true, "had": true, "how": true,
	"its": true, "not": true, "now": true, "one": true, "our": true,
	"out": true, "the": true, "top": true, "was": true, "who": true,
	"why": true, "you": true,
	"best": true, "data": true, "from": true, "last": true, "list": true,
	"most": true, "show": true, "that": true, "this": true, "what": true,
	"when": true, "with": true,
	"total": true, "where": true, "which": true,
}

// Learner discovers abbreviation rules from indexed canonical values.
type Learner struct {
	maxLen int
	logger *zap.Logger
}

// NewLearner creates a learner that registers acronyms up to maxLen
// characters. If logger is nil, a no-op logger is used.
func NewLearner(maxLen int, logger *zap.Logger) *Learner {
	if maxLen < 1 {
		maxLen = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Learner{maxLen: maxLen, logger: logger.Named("abbrev")}
}

// Discover builds the abbreviation table for an index. Every canonical
// value with at least two tokens contributes its acronym, and the
// acronyms of its suffix-stripped forms besides, so "Lloyds Banking
// Group Ltd" registers both "LBGL" and "LBG". Acronyms longer than the
// cap or colliding with common English words are discarded. When
// several distinct canonical values share an acronym the rule keeps all
// of them and is marked ambiguous.
func (l *Learner) Discover(idx *index.ValueIndex) map[string]*models.AbbreviationRule {
	rules := make(map[string]*models.AbbreviationRule)

	for _, entry := range idx.Entries() {
		for _, acronym := range index.Acronyms(entry.CanonicalValue) {
			if len(acronym) > l.maxLen {
				continue
			}
			if commonWords[strings.ToLower(acronym)] {
				continue
			}

			rule, ok := rules[acronym]
			if !ok {
				rules[acronym] = &models.AbbreviationRule{
					ShortForm:  acronym,
					Candidates: []*models.ValueEntry{entry},
				}
				continue
			}

			rule.Candidates = append(rule.Candidates, entry)
			if distinctCanonicals(rule.Candidates) > 1 {
				rule.Ambiguous = true
			}
		}
	}

	// Deterministic candidate order: frequency descending, then value.
	ambiguous := 0
	for _, rule := range rules {
		sort.SliceStable(rule.Candidates, func(i, j int) bool {
			if rule.Candidates[i].Frequency != rule.Candidates[j].Frequency {
				return rule.Candidates[i].Frequency > rule.Candidates[j].Frequency
			}
			return rule.Candidates[i].CanonicalValue < rule.Candidates[j].CanonicalValue
		})
		if rule.Ambiguous {
			ambiguous++
		}
	}

	l.logger.Info("Abbreviation discovery complete",
		zap.Int("rules", len(rules)),
		zap.Int("ambiguous", ambiguous))

	return rules
}

// distinctCanonicals counts distinct canonical values among candidates.
// Entries from different (table, column) scopes can share one canonical
// value; that alone does not make the short form ambiguous.
func distinctCanonicals(entries []*models.ValueEntry) int {
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		seen[e.CanonicalValue] = true
	}
	return len(seen)
}
