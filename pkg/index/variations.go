package index

import (
	"strings"
	"unicode"

	"github.com/jinzhu/inflection"
)

// strippableSuffixes are corporate legal suffixes removed to produce the
// suffix-stripped variation. Matched against the final token,
// case-insensitively, with trailing punctuation ignored.
var strippableSuffixes = map[string]bool{
	"inc": true, "llc": true, "ltd": true, "limited": true,
	"corp": true, "corporation": true, "incorporated": true,
	"gmbh": true, "plc": true, "ag": true, "sa": true, "nv": true,
	"co": true, "pty": true,
}

// VariationGenerator produces the deterministic set of alternate textual
// forms for a canonical value.
type VariationGenerator struct {
	maxVariations int
}

// NewVariationGenerator creates a generator with the given per-value cap.
func NewVariationGenerator(maxVariations int) *VariationGenerator {
	if maxVariations < 1 {
		maxVariations = 1
	}
	return &VariationGenerator{maxVariations: maxVariations}
}

// Generate returns the variation set for a canonical value: lowercase,
// suffix-stripped, acronym, punctuation-normalized, and singular/plural
// forms, each with a lowercase counterpart, deduplicated and capped.
// Output order is deterministic for a given input.
func (g *VariationGenerator) Generate(canonical string) []string {
	canonical = strings.TrimSpace(canonical)
	if canonical == "" {
		return nil
	}

	var forms []string
	add := func(form string) {
		form = strings.TrimSpace(form)
		if form == "" {
			return
		}
		forms = append(forms, form, strings.ToLower(form))
	}

	add(canonical)

	// Each progressively stripped form is a variation in its own right:
	// "Acme Corp LLC" must answer to "Acme Corp" and to "Acme".
	for _, stripped := range stripLegalSuffixes(canonical) {
		add(stripped)
	}

	for _, acronym := range Acronyms(canonical) {
		add(acronym)
	}

	if normalized := normalizePunctuation(canonical); normalized != canonical {
		add(normalized)
	}

	// Singular and plural counterparts catch "campaigns" vs "campaign"
	// style mentions.
	if singular := inflection.Singular(canonical); singular != canonical {
		add(singular)
	}
	if plural := inflection.Plural(canonical); plural != canonical {
		add(plural)
	}

	// Dedup preserving first-seen order; the canonical itself is not a
	// variation of itself.
	seen := map[string]bool{canonical: true}
	var variations []string
	for _, form := range forms {
		if seen[form] {
			continue
		}
		seen[form] = true
		variations = append(variations, form)
		if len(variations) >= g.maxVariations {
			break
		}
	}

	return variations
}

// stripLegalSuffixes removes trailing corporate legal suffixes one at a
// time and returns every intermediate form, outermost first: "Acme Corp
// LLC" yields ["Acme Corp", "Acme"]. Stripping never consumes the last
// remaining token. Returns nil when the value carries no suffix.
func stripLegalSuffixes(value string) []string {
	var forms []string
	for {
		tokens := strings.Fields(value)
		if len(tokens) < 2 {
			return forms
		}
		last := strings.ToLower(strings.Trim(tokens[len(tokens)-1], ".,"))
		if !strippableSuffixes[last] {
			return forms
		}
		value = strings.Join(tokens[:len(tokens)-1], " ")
		forms = append(forms, value)
	}
}

// Acronyms returns the first-letter acronyms of a value and of each of
// its suffix-stripped forms, deduplicated, longest first: "Lloyds
// Banking Group Ltd" yields ["LBGL", "LBG"]. Users abbreviate the name
// they use, which rarely includes the legal suffix, so the stripped
// forms' acronyms matter as much as the full one.
func Acronyms(value string) []string {
	seen := make(map[string]bool)
	var acronyms []string
	add := func(form string) {
		if acronym := buildAcronym(form); acronym != "" && !seen[acronym] {
			seen[acronym] = true
			acronyms = append(acronyms, acronym)
		}
	}
	add(value)
	for _, stripped := range stripLegalSuffixes(value) {
		add(stripped)
	}
	return acronyms
}

// buildAcronym concatenates the uppercased first letter of each
// whitespace-separated token. Returns empty for single-token values,
// where the "acronym" would just be the first letter.
func buildAcronym(value string) string {
	tokens := strings.Fields(value)
	if len(tokens) < 2 {
		return ""
	}
	var b strings.Builder
	for _, token := range tokens {
		r := []rune(token)[0]
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	return b.String()
}

// normalizePunctuation strips punctuation and collapses runs of
// whitespace to single spaces.
func normalizePunctuation(value string) string {
	var b strings.Builder
	for _, r := range value {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
		// Punctuation is dropped entirely.
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// NormalizeMention applies the same normalization used at index time to
// an incoming mention: trimmed, with whitespace runs collapsed.
func NormalizeMention(mention string) string {
	return strings.Join(strings.Fields(mention), " ")
}
