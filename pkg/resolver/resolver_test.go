package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kestrel-data/resolve-engine/pkg/abbrev"
	"github.com/kestrel-data/resolve-engine/pkg/apperrors"
	"github.com/kestrel-data/resolve-engine/pkg/config"
	"github.com/kestrel-data/resolve-engine/pkg/index"
	"github.com/kestrel-data/resolve-engine/pkg/models"
)

func testResolverConfig() config.ResolverConfig {
	return config.ResolverConfig{
		AcceptThreshold:      0.75,
		SeparationMargin:     0.1,
		MaxCandidates:        5,
		FrequencyPriorWeight: 0.05,
		ContextBoost:         0.1,
	}
}

func testTables() []models.TableProfile {
	return []models.TableProfile{
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
						{Value: "International Business Machines", Count: 60},
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
	}
}

func newTestResolver(t *testing.T, cfg config.ResolverConfig, tables []models.TableProfile) *Resolver {
	t.Helper()

	idx, err := index.Build(
		&models.DatabaseProfile{Tables: tables},
		config.IndexConfig{MaxVariations: 32, MinFuzzySimilarity: 0.6},
		zap.NewNop(),
	)
	require.NoError(t, err)
	rules := abbrev.NewLearner(5, zap.NewNop()).Discover(idx)

	res := New(cfg, NewUserPreferenceStore(), zap.NewNop())
	res.Activate(idx, rules)
	return res
}

func TestResolveNotReady(t *testing.T) {
	res := New(testResolverConfig(), NewUserPreferenceStore(), zap.NewNop())

	assert.False(t, res.Ready())
	_, err := res.Resolve("", "Acme Corp", "")
	assert.ErrorIs(t, err, apperrors.ErrIndexNotReady)
	_, err = res.Stats()
	assert.ErrorIs(t, err, apperrors.ErrIndexNotReady)
}

func TestResolveUnambiguousExact(t *testing.T) {
	res := newTestResolver(t, testResolverConfig(), testTables())

	result, err := res.Resolve("", "Globex Corporation", "")
	require.NoError(t, err)

	require.True(t, result.Matched())
	assert.Equal(t, "Globex Corporation", result.Match.CanonicalValue)
	assert.Equal(t, "clients", result.Match.TableName)
	assert.Equal(t, string(models.MatchKindExact), result.Source)
	assert.InDelta(t, 1.0, result.Confidence, 0.001)
}

func TestResolveAmbiguousAcrossTables(t *testing.T) {
	res := newTestResolver(t, testResolverConfig(), testTables())

	// "Acme Corp" is both a client and a project; without context the
	// frequency prior alone must not pick one silently.
	result, err := res.Resolve("", "Acme Corp", "")
	require.NoError(t, err)

	assert.True(t, result.RequiresClarification)
	assert.Nil(t, result.Match)
	require.Len(t, result.Candidates, 2)
	assert.Equal(t, "clients", result.Candidates[0].Entry.TableName,
		"higher-frequency candidate ranked first")
	assert.Contains(t, result.Clarification, "clients.client_name")
	assert.Contains(t, result.Clarification, "projects.project_name")
}

func TestResolveContextDisambiguates(t *testing.T) {
	res := newTestResolver(t, testResolverConfig(), testTables())

	result, err := res.Resolve("", "Acme Corp", "total revenue from Acme Corp last quarter")
	require.NoError(t, err)

	require.True(t, result.Matched(), "revenue context should boost the client reading past the margin")
	assert.Equal(t, models.EntityTypeClient, result.Match.EntityType)
	assert.Equal(t, "clients", result.Match.TableName)
}

func TestResolveProjectContext(t *testing.T) {
	// The boost has to outweigh the separation margin plus the frequency
	// prior's lead for the boost to flip the less frequent reading.
	cfg := testResolverConfig()
	cfg.ContextBoost = 0.2

	res := newTestResolver(t, cfg, testTables())

	result, err := res.Resolve("", "Acme Corp", "what is the deadline for the Acme Corp project")
	require.NoError(t, err)

	require.True(t, result.Matched())
	assert.Equal(t, models.EntityTypeProject, result.Match.EntityType)
}

func TestResolveNoMatch(t *testing.T) {
	res := newTestResolver(t, testResolverConfig(), testTables())

	result, err := res.Resolve("", "Xyzzyplugh Qwerty", "")
	require.NoError(t, err)

	assert.True(t, result.NoMatch())
	assert.Empty(t, result.Candidates)
	assert.Empty(t, result.Clarification)
}

func TestResolveBlankMention(t *testing.T) {
	res := newTestResolver(t, testResolverConfig(), testTables())

	result, err := res.Resolve("", "   ", "")
	require.NoError(t, err)
	assert.True(t, result.NoMatch())
}

func TestResolveAbbreviation(t *testing.T) {
	res := newTestResolver(t, testResolverConfig(), testTables())

	result, err := res.Resolve("", "IBM", "")
	require.NoError(t, err)

	require.True(t, result.Matched())
	assert.Equal(t, "International Business Machines", result.Match.CanonicalValue)
	assert.Equal(t, string(models.MatchKindAbbreviation), result.Source,
		"a learned short form is reported as an abbreviation hit even when the acronym is also an indexed variation")
}

func TestResolveAcronymSpansStrippedForms(t *testing.T) {
	tables := []models.TableProfile{
		{
			TableName: "clients",
			EntityColumns: []models.ColumnProfile{
				{
					ColumnName:   "client_name",
					InferredType: models.EntityTypeClient,
					SampleValues: []models.ValueCount{
						{Value: "Lloyds Banking Group", Count: 90},
						{Value: "Lloyds Banking Group Ltd", Count: 70},
					},
				},
			},
		},
	}
	res := newTestResolver(t, testResolverConfig(), tables)

	// "LBG" is the acronym of the first value and of the second value's
	// suffix-stripped form; neither may be accepted silently.
	result, err := res.Resolve("", "LBG", "")
	require.NoError(t, err)

	assert.True(t, result.RequiresClarification)
	require.Len(t, result.Candidates, 2)
	values := []string{
		result.Candidates[0].Entry.CanonicalValue,
		result.Candidates[1].Entry.CanonicalValue,
	}
	assert.Contains(t, values, "Lloyds Banking Group")
	assert.Contains(t, values, "Lloyds Banking Group Ltd")
}

func TestResolveStrippedNameAmbiguous(t *testing.T) {
	tables := []models.TableProfile{
		{
			TableName: "clients",
			EntityColumns: []models.ColumnProfile{
				{
					ColumnName:   "client_name",
					InferredType: models.EntityTypeClient,
					SampleValues: []models.ValueCount{
						{Value: "Acme Corporation", Count: 80},
						{Value: "Acme Corp LLC", Count: 60},
					},
				},
			},
		},
	}
	res := newTestResolver(t, testResolverConfig(), tables)

	// Both values strip down to "Acme"; the bare name is ambiguous.
	result, err := res.Resolve("", "Acme", "")
	require.NoError(t, err)

	assert.True(t, result.RequiresClarification)
	assert.Nil(t, result.Match)
	require.Len(t, result.Candidates, 2)
	values := []string{
		result.Candidates[0].Entry.CanonicalValue,
		result.Candidates[1].Entry.CanonicalValue,
	}
	assert.Contains(t, values, "Acme Corporation")
	assert.Contains(t, values, "Acme Corp LLC")
}

func TestResolveAmbiguousAbbreviation(t *testing.T) {
	res := newTestResolver(t, testResolverConfig(), testTables())

	// "AC" abbreviates "Acme Corp" in both scopes.
	result, err := res.Resolve("", "AC", "")
	require.NoError(t, err)

	assert.True(t, result.RequiresClarification)
	require.Len(t, result.Candidates, 2)
}

func TestResolveFuzzyTypo(t *testing.T) {
	res := newTestResolver(t, testResolverConfig(), testTables())

	result, err := res.Resolve("", "Globex Corporaton", "")
	require.NoError(t, err)

	require.NotEmpty(t, result.Candidates)
	assert.Equal(t, "Globex Corporation", result.Candidates[0].Entry.CanonicalValue)
}

func TestResolveEqualScoresDifferentTypesEscalate(t *testing.T) {
	cfg := testResolverConfig()
	cfg.SeparationMargin = 0 // the type check must escalate on its own

	tables := []models.TableProfile{
		{
			TableName: "clients",
			EntityColumns: []models.ColumnProfile{
				{
					ColumnName:   "client_name",
					InferredType: models.EntityTypeClient,
					SampleValues: []models.ValueCount{{Value: "Orion", Count: 10}},
				},
			},
		},
		{
			TableName: "projects",
			EntityColumns: []models.ColumnProfile{
				{
					ColumnName:   "project_name",
					InferredType: models.EntityTypeProject,
					SampleValues: []models.ValueCount{{Value: "Orion", Count: 10}},
				},
			},
		},
	}
	res := newTestResolver(t, cfg, tables)

	result, err := res.Resolve("", "Orion", "")
	require.NoError(t, err)

	assert.True(t, result.RequiresClarification,
		"equal scores across entity types always escalate, whatever the margin")
}

func TestResolveMaxCandidates(t *testing.T) {
	cfg := testResolverConfig()
	cfg.MaxCandidates = 1

	res := newTestResolver(t, cfg, testTables())

	result, err := res.Resolve("", "Acme Corp", "")
	require.NoError(t, err)

	assert.True(t, result.RequiresClarification,
		"truncation must not hide the runner-up from the accept decision")
	assert.Len(t, result.Candidates, 1)
}

func TestResolvePreferenceOverride(t *testing.T) {
	res := newTestResolver(t, testResolverConfig(), testTables())

	entry, err := res.ConfirmPreference("user-1", "acme", "Acme Corp", "projects", "project_name")
	require.NoError(t, err)
	assert.Equal(t, "projects", entry.TableName)

	result, err := res.Resolve("user-1", "acme", "")
	require.NoError(t, err)
	require.True(t, result.Matched())
	assert.Equal(t, "projects", result.Match.TableName)
	assert.Equal(t, string(models.MatchKindUserPreference), result.Source)
	assert.Equal(t, 1.0, result.Confidence)

	// Another user is unaffected.
	other, err := res.Resolve("user-2", "acme", "")
	require.NoError(t, err)
	assert.True(t, other.RequiresClarification)
}

func TestConfirmPreferenceUnknownEntity(t *testing.T) {
	res := newTestResolver(t, testResolverConfig(), testTables())

	_, err := res.ConfirmPreference("user-1", "acme", "No Such Co", "clients", "client_name")
	assert.Error(t, err)
}

func TestActivateSwapsIndex(t *testing.T) {
	res := newTestResolver(t, testResolverConfig(), testTables())

	replacement := []models.TableProfile{
		{
			TableName: "vendors",
			EntityColumns: []models.ColumnProfile{
				{
					ColumnName:   "vendor_name",
					InferredType: models.EntityTypeCompany,
					SampleValues: []models.ValueCount{{Value: "Stark Industries", Count: 5}},
				},
			},
		},
	}
	idx, err := index.Build(
		&models.DatabaseProfile{Tables: replacement},
		config.IndexConfig{MaxVariations: 32, MinFuzzySimilarity: 0.6},
		zap.NewNop(),
	)
	require.NoError(t, err)
	res.Activate(idx, abbrev.NewLearner(5, zap.NewNop()).Discover(idx))

	result, err := res.Resolve("", "Stark Industries", "")
	require.NoError(t, err)
	assert.True(t, result.Matched())

	old, err := res.Resolve("", "Globex Corporation", "")
	require.NoError(t, err)
	assert.True(t, old.NoMatch(), "old index entries are gone after the swap")
}
