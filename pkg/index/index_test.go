package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kestrel-data/resolve-engine/pkg/apperrors"
	"github.com/kestrel-data/resolve-engine/pkg/config"
	"github.com/kestrel-data/resolve-engine/pkg/models"
)

func testIndexConfig() config.IndexConfig {
	return config.IndexConfig{
		MaxVariations:      32,
		MinFuzzySimilarity: 0.6,
		MaxAbbreviationLen: 5,
	}
}

func testProfile() *models.DatabaseProfile {
	return &models.DatabaseProfile{
		Tables: []models.TableProfile{
			{
				SchemaName: "public",
				TableName:  "clients",
				RowCount:   500,
				EntityColumns: []models.ColumnProfile{
					{
						ColumnName:    "client_name",
						DataType:      "text",
						DistinctCount: 3,
						InferredType:  models.EntityTypeClient,
						SampleValues: []models.ValueCount{
							{Value: "Acme Corp", Count: 120},
							{Value: "Globex Corporation", Count: 80},
							{Value: "Initech LLC", Count: 40},
						},
					},
				},
			},
			{
				SchemaName: "public",
				TableName:  "projects",
				RowCount:   200,
				EntityColumns: []models.ColumnProfile{
					{
						ColumnName:    "project_name",
						DataType:      "text",
						DistinctCount: 2,
						InferredType:  models.EntityTypeProject,
						SampleValues: []models.ValueCount{
							{Value: "Acme Corp", Count: 15},
							{Value: "Apollo Launch", Count: 30},
						},
					},
				},
			},
		},
	}
}

func TestBuildEmptyProfile(t *testing.T) {
	_, err := Build(&models.DatabaseProfile{}, testIndexConfig(), zap.NewNop())
	assert.ErrorIs(t, err, apperrors.ErrNoEntityColumns)

	_, err = Build(nil, testIndexConfig(), zap.NewNop())
	assert.ErrorIs(t, err, apperrors.ErrNoEntityColumns)
}

func TestBuildStats(t *testing.T) {
	idx, err := Build(testProfile(), testIndexConfig(), zap.NewNop())
	require.NoError(t, err)

	stats := idx.Stats()
	assert.Equal(t, 5, stats.TotalEntries)
	assert.Greater(t, stats.TotalVariations, 0)
	assert.Greater(t, stats.AvgVariationsPerKey, 0.0)
}

func TestLookupExactCanonical(t *testing.T) {
	idx, err := Build(testProfile(), testIndexConfig(), zap.NewNop())
	require.NoError(t, err)

	matches := idx.Lookup("Globex Corporation")
	require.Len(t, matches, 1)
	assert.Equal(t, models.MatchKindExact, matches[0].Kind)
	assert.Equal(t, 1.0, matches[0].Score)
	assert.Equal(t, "Globex Corporation", matches[0].Entry.CanonicalValue)
}

func TestLookupExactAcrossScopes(t *testing.T) {
	idx, err := Build(testProfile(), testIndexConfig(), zap.NewNop())
	require.NoError(t, err)

	// "Acme Corp" exists in both clients and projects; both come back,
	// higher frequency first.
	matches := idx.Lookup("Acme Corp")
	require.Len(t, matches, 2)
	assert.Equal(t, "clients", matches[0].Entry.TableName)
	assert.Equal(t, "projects", matches[1].Entry.TableName)
	for _, m := range matches {
		assert.Equal(t, models.MatchKindExact, m.Kind)
	}
}

func TestLookupVariation(t *testing.T) {
	idx, err := Build(testProfile(), testIndexConfig(), zap.NewNop())
	require.NoError(t, err)

	// Suffix-stripped form of "Globex Corporation".
	matches := idx.Lookup("Globex")
	require.NotEmpty(t, matches)
	assert.Equal(t, models.MatchKindVariation, matches[0].Kind)
	assert.Equal(t, variationScore, matches[0].Score)
	assert.Equal(t, "Globex Corporation", matches[0].Entry.CanonicalValue)
}

func TestLookupCaseInsensitive(t *testing.T) {
	idx, err := Build(testProfile(), testIndexConfig(), zap.NewNop())
	require.NoError(t, err)

	matches := idx.Lookup("aCmE cOrP")
	require.NotEmpty(t, matches)
	assert.Equal(t, caseInsensitiveScore, matches[0].Score)
}

func TestLookupFuzzy(t *testing.T) {
	idx, err := Build(testProfile(), testIndexConfig(), zap.NewNop())
	require.NoError(t, err)

	// One transposition away from "Initech LLC"'s canonical; no literal
	// tier matches, so the fuzzy tier fires.
	matches := idx.Lookup("Initech LLD")
	require.NotEmpty(t, matches)
	assert.Equal(t, models.MatchKindFuzzy, matches[0].Kind)
	assert.Equal(t, "Initech LLC", matches[0].Entry.CanonicalValue)
	assert.Less(t, matches[0].Score, caseInsensitiveScore,
		"fuzzy matches score below every literal tier")
}

func TestLookupFuzzyFloor(t *testing.T) {
	idx, err := Build(testProfile(), testIndexConfig(), zap.NewNop())
	require.NoError(t, err)

	matches := idx.Lookup("Zzzzzzzz Qqqqq")
	assert.Empty(t, matches, "garbage below the similarity floor yields nothing")
}

func TestLookupBlank(t *testing.T) {
	idx, err := Build(testProfile(), testIndexConfig(), zap.NewNop())
	require.NoError(t, err)

	assert.Empty(t, idx.Lookup(""))
	assert.Empty(t, idx.Lookup("   "))
}

func TestLookupWhitespaceNormalized(t *testing.T) {
	idx, err := Build(testProfile(), testIndexConfig(), zap.NewNop())
	require.NoError(t, err)

	matches := idx.Lookup("  Acme    Corp ")
	require.NotEmpty(t, matches)
	assert.Equal(t, models.MatchKindExact, matches[0].Kind)
}

func TestBuildDeterministic(t *testing.T) {
	first, err := Build(testProfile(), testIndexConfig(), zap.NewNop())
	require.NoError(t, err)
	second, err := Build(testProfile(), testIndexConfig(), zap.NewNop())
	require.NoError(t, err)

	require.Equal(t, first.Stats(), second.Stats())
	firstEntries := first.Entries()
	secondEntries := second.Entries()
	require.Equal(t, len(firstEntries), len(secondEntries))
	for i := range firstEntries {
		assert.Equal(t, firstEntries[i].CanonicalValue, secondEntries[i].CanonicalValue)
		assert.Equal(t, firstEntries[i].Variations, secondEntries[i].Variations)
	}
}

func TestFoldedTierNoDuplicates(t *testing.T) {
	idx, err := Build(testProfile(), testIndexConfig(), zap.NewNop())
	require.NoError(t, err)

	// Several variations of one entry fold to the same lowercase form;
	// the entry must still appear only once per folded key.
	matches := idx.Lookup("ACME CORP")
	seen := make(map[*models.ValueEntry]bool)
	for _, m := range matches {
		assert.False(t, seen[m.Entry], "entry %q listed twice", m.Entry.CanonicalValue)
		seen[m.Entry] = true
	}
}
