package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("1.2.3")
	require.NoError(t, err)

	assert.Equal(t, "1.2.3", cfg.Version)
	assert.Equal(t, "3585", cfg.Port)
	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, "postgres", cfg.Datasource.Type)

	assert.Equal(t, 100, cfg.Profiler.SampleSize)
	assert.Equal(t, int64(3), cfg.Profiler.MinDistinctValues)
	assert.Equal(t, int64(100), cfg.Profiler.PKRowThreshold)
	assert.Equal(t, 0.9, cfg.Profiler.PKCardinalityRatio)
	assert.Equal(t, 4, cfg.Profiler.TableWorkers)

	assert.Equal(t, 32, cfg.Index.MaxVariations)
	assert.Equal(t, 0.6, cfg.Index.MinFuzzySimilarity)
	assert.Equal(t, 5, cfg.Index.MaxAbbreviationLen)

	assert.Equal(t, 0.75, cfg.Resolver.AcceptThreshold)
	assert.Equal(t, 0.1, cfg.Resolver.SeparationMargin)
	assert.Equal(t, 5, cfg.Resolver.MaxCandidates)

	assert.Equal(t, 0.95, cfg.Onboarding.ValidationAccuracyFloor)
	assert.Equal(t, 50, cfg.Onboarding.ValidationSampleSize)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DATASOURCE_TYPE", "mssql")
	t.Setenv("DATASOURCE_PASSWORD", "from-env")
	t.Setenv("PROFILER_TABLE_WORKERS", "8")

	cfg, err := Load("dev")
	require.NoError(t, err)

	assert.Equal(t, "mssql", cfg.Datasource.Type)
	assert.Equal(t, "from-env", cfg.Datasource.Password)
	assert.Equal(t, 8, cfg.Profiler.TableWorkers)
}

func TestLoadRejectsUnknownDatasourceType(t *testing.T) {
	t.Setenv("DATASOURCE_TYPE", "oracle")

	_, err := Load("dev")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported datasource type")
}

func TestLoadRejectsBadRatio(t *testing.T) {
	t.Setenv("PROFILER_PK_CARDINALITY_RATIO", "1.5")

	_, err := Load("dev")
	require.Error(t, err)
}

func TestConnectionStringPostgres(t *testing.T) {
	c := DatasourceConfig{
		Type: "postgres", Host: "db", Port: 5432,
		User: "reader", Password: "pw", Database: "analytics", SSLMode: "disable",
	}

	got := c.ConnectionString()
	assert.Equal(t, "host=db port=5432 user=reader password=pw dbname=analytics sslmode=disable", got)
}

func TestConnectionStringMSSQL(t *testing.T) {
	c := DatasourceConfig{
		Type: "mssql", Host: "db", Port: 1433,
		User: "reader", Password: "p@ss word", Database: "analytics",
	}

	got := c.ConnectionString()
	assert.Contains(t, got, "sqlserver://reader:")
	assert.NotContains(t, got, "p@ss word", "password must be escaped")
	assert.Contains(t, got, "database=analytics")
}
