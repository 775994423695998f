// Package resolver turns free-text entity mentions into canonical
// database values. It layers an accept/clarify/no-match decision policy
// over raw index lookups: a match is accepted silently only when it is
// both strong and clearly separated from the runner-up, otherwise the
// caller gets a ranked candidate list and a clarification question.
package resolver

import (
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/kestrel-data/resolve-engine/pkg/apperrors"
	"github.com/kestrel-data/resolve-engine/pkg/config"
	"github.com/kestrel-data/resolve-engine/pkg/index"
	"github.com/kestrel-data/resolve-engine/pkg/models"
)

// abbreviationScore is the base score for a learned-abbreviation hit.
// Equal to the case-insensitive tier: an acronym is a literal form the
// user typed, not an approximation, but it is weaker evidence than the
// full value.
const abbreviationScore = 0.85

// snapshot pairs an index with its learned abbreviations. The two are
// built together during onboarding and must be swapped together.
type snapshot struct {
	index         *index.ValueIndex
	abbreviations map[string]*models.AbbreviationRule
}

// Resolver resolves mentions against the active index snapshot.
// Resolution is lock-free: the active snapshot is an atomic pointer,
// replaced wholesale when onboarding validates a new index, so in-flight
// lookups always see a consistent index/abbreviation pair.
type Resolver struct {
	cfg    config.ResolverConfig
	intent *IntentAnalyzer
	prefs  *UserPreferenceStore
	logger *zap.Logger

	active atomic.Pointer[snapshot]
}

// New creates a resolver with no active index. Resolve returns
// apperrors.ErrIndexNotReady until Activate is called.
func New(cfg config.ResolverConfig, prefs *UserPreferenceStore, logger *zap.Logger) *Resolver {
	if prefs == nil {
		prefs = NewUserPreferenceStore()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		cfg:    cfg,
		intent: NewIntentAnalyzer(),
		prefs:  prefs,
		logger: logger.Named("resolver"),
	}
}

// Activate atomically swaps in a new index and abbreviation table.
// Lookups already in flight finish against the old snapshot.
func (r *Resolver) Activate(idx *index.ValueIndex, abbreviations map[string]*models.AbbreviationRule) {
	r.active.Store(&snapshot{index: idx, abbreviations: abbreviations})
	r.logger.Info("Resolver index activated",
		zap.Int("entries", idx.Stats().TotalEntries),
		zap.Int("abbreviations", len(abbreviations)))
}

// Ready reports whether an index has been activated.
func (r *Resolver) Ready() bool {
	return r.active.Load() != nil
}

// Stats returns the active index's totals.
func (r *Resolver) Stats() (models.IndexStats, error) {
	snap := r.active.Load()
	if snap == nil {
		return models.IndexStats{}, apperrors.ErrIndexNotReady
	}
	return snap.index.Stats(), nil
}

// Resolve maps a mention to a canonical entity. queryContext is the full
// question the mention appeared in (may be empty); userID scopes stored
// preferences (may be empty for anonymous callers).
func (r *Resolver) Resolve(userID, mention, queryContext string) (*models.ResolutionResult, error) {
	snap := r.active.Load()
	if snap == nil {
		return nil, apperrors.ErrIndexNotReady
	}

	mention = index.NormalizeMention(mention)
	if mention == "" {
		return &models.ResolutionResult{}, nil
	}

	// A confirmed preference settles the question outright.
	if entry, ok := r.prefs.Lookup(userID, mention); ok {
		return &models.ResolutionResult{
			Match:      entry,
			Confidence: 1.0,
			Source:     string(models.MatchKindUserPreference),
			Candidates: []models.ValueMatch{{
				Entry:       entry,
				Score:       1.0,
				Kind:        models.MatchKindUserPreference,
				MatchedForm: mention,
			}},
		}, nil
	}

	candidates := r.gatherCandidates(snap, mention)
	if len(candidates) == 0 {
		return &models.ResolutionResult{}, nil
	}

	candidates = r.fuseScores(candidates, queryContext)
	return r.decide(mention, candidates), nil
}

// ConfirmPreference records a user's answer to a clarification: the
// mention resolves to the entry identified by canonical value and scope.
// The entry must exist in the active index.
func (r *Resolver) ConfirmPreference(userID, mention, canonical, tableName, columnName string) (*models.ValueEntry, error) {
	snap := r.active.Load()
	if snap == nil {
		return nil, apperrors.ErrIndexNotReady
	}

	for _, entry := range snap.index.Entries() {
		if entry.CanonicalValue == canonical &&
			entry.TableName == tableName &&
			entry.ColumnName == columnName {
			r.prefs.Confirm(userID, mention, entry)
			return entry, nil
		}
	}
	return nil, fmt.Errorf("no indexed value %q in %s.%s", canonical, tableName, columnName)
}

// gatherCandidates merges index lookups with abbreviation hits,
// deduplicating by entry. The merged candidate keeps the higher score,
// but a learned-abbreviation hit keeps its provenance: the acronym is
// usually also an indexed variation, and "the user typed a known short
// form" is the more specific account of what matched.
func (r *Resolver) gatherCandidates(snap *snapshot, mention string) []models.ValueMatch {
	matches := snap.index.Lookup(mention)

	if rule, ok := snap.abbreviations[strings.ToUpper(mention)]; ok {
		for _, entry := range rule.Candidates {
			matches = append(matches, models.ValueMatch{
				Entry:       entry,
				Score:       abbreviationScore,
				Kind:        models.MatchKindAbbreviation,
				MatchedForm: rule.ShortForm,
			})
		}
	}

	best := make(map[*models.ValueEntry]models.ValueMatch, len(matches))
	order := make([]*models.ValueEntry, 0, len(matches))
	for _, m := range matches {
		prev, seen := best[m.Entry]
		if !seen {
			order = append(order, m.Entry)
			best[m.Entry] = m
			continue
		}
		merged := prev
		if m.Score > merged.Score {
			merged.Score = m.Score
		}
		if m.Kind == models.MatchKindAbbreviation {
			merged.Kind = m.Kind
			merged.MatchedForm = m.MatchedForm
		}
		best[m.Entry] = merged
	}

	deduped := make([]models.ValueMatch, 0, len(order))
	for _, entry := range order {
		deduped = append(deduped, best[entry])
	}
	return deduped
}

// fuseScores combines each candidate's raw match score with a frequency
// prior and a query-context boost, then re-ranks. The prior nudges
// near-ties toward the entity the data mentions more often; the boost
// rewards candidates whose entity type the surrounding question
// suggests. Both are small relative to match-tier gaps so a literal
// match is never outranked by a popular approximate one.
func (r *Resolver) fuseScores(candidates []models.ValueMatch, queryContext string) []models.ValueMatch {
	var maxFreq int64
	for _, c := range candidates {
		if c.Entry.Frequency > maxFreq {
			maxFreq = c.Entry.Frequency
		}
	}

	suggested := r.intent.SuggestedTypes(queryContext)

	fused := make([]models.ValueMatch, len(candidates))
	for i, c := range candidates {
		score := c.Score
		if maxFreq > 0 {
			score += r.cfg.FrequencyPriorWeight * float64(c.Entry.Frequency) / float64(maxFreq)
		}
		if suggested[c.Entry.EntityType] {
			score += r.cfg.ContextBoost
		}
		// Fused scores are kept uncapped for ranking and the separation
		// test; capping here would flatten exactly the ties the boost
		// exists to break. Reported confidence is capped in decide.
		c.Score = score
		fused[i] = c
	}

	return rankCandidates(fused)
}

// decide applies the acceptance policy: the top candidate is accepted
// silently only when its score clears the threshold and leads the
// runner-up by the separation margin. Equal-scored candidates of
// different entity types always escalate, whatever the margin config
// says, because guessing between a client and a project is exactly the
// wrong-answer mode this subsystem exists to prevent.
func (r *Resolver) decide(mention string, candidates []models.ValueMatch) *models.ResolutionResult {
	top := candidates[0]

	accept := top.Score >= r.cfg.AcceptThreshold
	if accept && len(candidates) > 1 {
		second := candidates[1]
		if top.Score-second.Score < r.cfg.SeparationMargin {
			accept = false
		}
		if top.Score == second.Score && top.Entry.EntityType != second.Entry.EntityType {
			accept = false
		}
	}

	confidence := top.Score
	if confidence > 1.0 {
		confidence = 1.0
	}

	// Truncate only after the accept decision; the runner-up that makes a
	// mention ambiguous must be visible to the policy even when it falls
	// outside the reported top-K.
	if len(candidates) > r.cfg.MaxCandidates {
		candidates = candidates[:r.cfg.MaxCandidates]
	}

	if accept {
		return &models.ResolutionResult{
			Match:      top.Entry,
			Confidence: confidence,
			Source:     string(top.Kind),
			Candidates: candidates,
		}
	}

	r.logger.Debug("Mention requires clarification",
		zap.String("mention", mention),
		zap.Int("candidates", len(candidates)),
		zap.Float64("top_score", top.Score))

	return &models.ResolutionResult{
		Confidence:            confidence,
		RequiresClarification: true,
		Candidates:            candidates,
		Clarification:         clarificationQuestion(mention, candidates),
	}
}

// clarificationQuestion phrases the choice between candidates, naming
// each one's entity type and owning table/column so the user can tell
// identically-named values apart.
func clarificationQuestion(mention string, candidates []models.ValueMatch) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%q could mean more than one thing. Did you mean: ", mention)
	for i, c := range candidates {
		if i > 0 {
			b.WriteString(", or ")
		}
		fmt.Fprintf(&b, "the %s %q (%s.%s)",
			c.Entry.EntityType, c.Entry.CanonicalValue, c.Entry.TableName, c.Entry.ColumnName)
	}
	b.WriteString("?")
	return b.String()
}

// rankCandidates sorts by fused score descending, frequency descending,
// then canonical value.
func rankCandidates(candidates []models.ValueMatch) []models.ValueMatch {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		if candidates[i].Entry.Frequency != candidates[j].Entry.Frequency {
			return candidates[i].Entry.Frequency > candidates[j].Entry.Frequency
		}
		return candidates[i].Entry.CanonicalValue < candidates[j].Entry.CanonicalValue
	})
	return candidates
}
