package index

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"go.uber.org/zap"

	"github.com/kestrel-data/resolve-engine/pkg/apperrors"
	"github.com/kestrel-data/resolve-engine/pkg/config"
	"github.com/kestrel-data/resolve-engine/pkg/models"
)

// Match-kind base scores. Exact beats variation beats case-insensitive;
// fuzzy scores are scaled below all of them so a literal hit always
// outranks an approximate one.
const (
	exactScore           = 1.0
	variationScore       = 0.9
	caseInsensitiveScore = 0.85
	fuzzyScoreCeiling    = 0.8
)

// ValueIndex maps every plausible textual form of the sampled values to
// canonical entries. Once built it is read-only and safe to share across
// unlimited concurrent lookups; a refresh builds a brand-new index.
type ValueIndex struct {
	entries []*models.ValueEntry

	// byCanonical keys exact canonical forms. A canonical value is
	// unique within its (table, column) scope but may repeat across
	// scopes, so every key holds a slice.
	byCanonical map[string][]*models.ValueEntry

	// byVariation keys exact variation forms.
	byVariation map[string][]*models.ValueEntry

	// byFolded keys the lowercased canonical and variation forms for the
	// case-insensitive tier.
	byFolded map[string][]*models.ValueEntry

	minFuzzySimilarity float64
	stats              models.IndexStats
}

// Build creates a value index from a database profile: one immutable
// entry per distinct sampled value, keyed by every generated variation.
// Returns apperrors.ErrNoEntityColumns when the profile has nothing to
// index.
func Build(profile *models.DatabaseProfile, cfg config.IndexConfig, logger *zap.Logger) (*ValueIndex, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if profile == nil || profile.EntityColumnCount() == 0 {
		return nil, apperrors.ErrNoEntityColumns
	}

	gen := NewVariationGenerator(cfg.MaxVariations)
	idx := &ValueIndex{
		byCanonical:        make(map[string][]*models.ValueEntry),
		byVariation:        make(map[string][]*models.ValueEntry),
		byFolded:           make(map[string][]*models.ValueEntry),
		minFuzzySimilarity: cfg.MinFuzzySimilarity,
	}

	totalVariations := 0
	for _, tp := range profile.Tables {
		for _, cp := range tp.EntityColumns {
			for _, vc := range cp.SampleValues {
				canonical := NormalizeMention(vc.Value)
				if canonical == "" {
					continue
				}

				freq := vc.Count
				if freq < 1 {
					freq = 1
				}

				entry := &models.ValueEntry{
					CanonicalValue: canonical,
					TableName:      tp.TableName,
					ColumnName:     cp.ColumnName,
					EntityType:     cp.InferredType,
					Frequency:      freq,
					Variations:     gen.Generate(canonical),
				}

				idx.entries = append(idx.entries, entry)
				idx.byCanonical[canonical] = append(idx.byCanonical[canonical], entry)
				idx.byFolded[strings.ToLower(canonical)] = appendUnique(idx.byFolded[strings.ToLower(canonical)], entry)
				for _, v := range entry.Variations {
					idx.byVariation[v] = append(idx.byVariation[v], entry)
					folded := strings.ToLower(v)
					idx.byFolded[folded] = appendUnique(idx.byFolded[folded], entry)
				}
				totalVariations += len(entry.Variations)
			}
		}
	}

	if len(idx.entries) == 0 {
		return nil, apperrors.ErrNoEntityColumns
	}

	idx.stats = models.IndexStats{
		TotalEntries:        len(idx.entries),
		TotalVariations:     totalVariations,
		AvgVariationsPerKey: float64(totalVariations) / float64(len(idx.entries)),
	}

	logger.Info("Value index built",
		zap.Int("entries", idx.stats.TotalEntries),
		zap.Int("variations", idx.stats.TotalVariations),
		zap.Float64("avg_variations_per_entry", idx.stats.AvgVariationsPerKey))

	return idx, nil
}

// appendUnique appends entry unless it is already present for this key.
// Distinct variations of one entry frequently fold to the same lowercase
// form.
func appendUnique(entries []*models.ValueEntry, entry *models.ValueEntry) []*models.ValueEntry {
	for _, e := range entries {
		if e == entry {
			return entries
		}
	}
	return append(entries, entry)
}

// Lookup resolves a mention against the index. Tiers are attempted in
// order -- exact canonical, exact variation, case-insensitive, fuzzy --
// and the first tier with hits wins. Results are ranked by score
// descending, ties broken by entry frequency descending.
func (idx *ValueIndex) Lookup(mention string) []models.ValueMatch {
	mention = NormalizeMention(mention)
	if mention == "" {
		return nil
	}

	if entries, ok := idx.byCanonical[mention]; ok {
		return rankMatches(toMatches(entries, exactScore, models.MatchKindExact, mention))
	}

	if entries, ok := idx.byVariation[mention]; ok {
		return rankMatches(toMatches(entries, variationScore, models.MatchKindVariation, mention))
	}

	if entries, ok := idx.byFolded[strings.ToLower(mention)]; ok {
		return rankMatches(toMatches(entries, caseInsensitiveScore, models.MatchKindVariation, mention))
	}

	return rankMatches(idx.fuzzyMatches(mention))
}

// fuzzyMatches scans canonical values for edit-distance similarity above
// the configured floor. Similarity is normalized Levenshtein over the
// longer string, scaled under fuzzyScoreCeiling so literal matches
// always outrank approximate ones.
func (idx *ValueIndex) fuzzyMatches(mention string) []models.ValueMatch {
	folded := strings.ToLower(mention)

	var matches []models.ValueMatch
	for _, entry := range idx.entries {
		candidate := strings.ToLower(entry.CanonicalValue)
		longer := len([]rune(candidate))
		if l := len([]rune(folded)); l > longer {
			longer = l
		}
		if longer == 0 {
			continue
		}

		distance := fuzzy.LevenshteinDistance(folded, candidate)
		similarity := 1.0 - float64(distance)/float64(longer)
		if similarity < idx.minFuzzySimilarity {
			continue
		}

		matches = append(matches, models.ValueMatch{
			Entry:       entry,
			Score:       similarity * fuzzyScoreCeiling,
			Kind:        models.MatchKindFuzzy,
			MatchedForm: entry.CanonicalValue,
		})
	}
	return matches
}

// toMatches wraps entries in ValueMatch records with a fixed score.
func toMatches(entries []*models.ValueEntry, score float64, kind models.MatchKind, form string) []models.ValueMatch {
	matches := make([]models.ValueMatch, len(entries))
	for i, entry := range entries {
		matches[i] = models.ValueMatch{
			Entry:       entry,
			Score:       score,
			Kind:        kind,
			MatchedForm: form,
		}
	}
	return matches
}

// rankMatches sorts by score descending, ties broken by frequency
// descending, then canonical value for determinism.
func rankMatches(matches []models.ValueMatch) []models.ValueMatch {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		if matches[i].Entry.Frequency != matches[j].Entry.Frequency {
			return matches[i].Entry.Frequency > matches[j].Entry.Frequency
		}
		return matches[i].Entry.CanonicalValue < matches[j].Entry.CanonicalValue
	})
	return matches
}

// Entries returns the index's entries. The slice and entries are shared
// and must not be mutated.
func (idx *ValueIndex) Entries() []*models.ValueEntry {
	return idx.entries
}

// Stats reports index totals, used by onboarding's acceptance check.
func (idx *ValueIndex) Stats() models.IndexStats {
	return idx.stats
}
