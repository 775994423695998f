package config

import (
	"fmt"
	"net/url"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for resolve-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"3585"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Source datasource connection
	Datasource DatasourceConfig `yaml:"datasource"`

	// Pipeline tuning
	Profiler   ProfilerConfig   `yaml:"profiler"`
	Index      IndexConfig      `yaml:"index"`
	Resolver   ResolverConfig   `yaml:"resolver"`
	Onboarding OnboardingConfig `yaml:"onboarding"`
}

// DatasourceConfig holds the read-only source database connection settings.
type DatasourceConfig struct {
	// Type selects the adapter: "postgres" or "mssql".
	Type     string `yaml:"type" env:"DATASOURCE_TYPE" env-default:"postgres"`
	Host     string `yaml:"host" env:"DATASOURCE_HOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"DATASOURCE_PORT" env-default:"5432"`
	User     string `yaml:"user" env:"DATASOURCE_USER" env-default:"readonly"`
	Password string `yaml:"-" env:"DATASOURCE_PASSWORD"` // Secret - not in YAML
	Database string `yaml:"database" env:"DATASOURCE_DATABASE" env-default:"analytics"`
	SSLMode  string `yaml:"ssl_mode" env:"DATASOURCE_SSLMODE" env-default:"disable"`

	// Schema restricts profiling to a single schema when set.
	Schema string `yaml:"schema" env:"DATASOURCE_SCHEMA" env-default:""`
}

// ProfilerConfig holds schema-profiling heuristics. The primary-key
// cardinality heuristic is undocumented in origin systems that use it;
// both knobs are therefore exposed rather than hardcoded.
type ProfilerConfig struct {
	// SampleSize is how many top values (by frequency) to sample per
	// entity column.
	SampleSize int `yaml:"sample_size" env:"PROFILER_SAMPLE_SIZE" env-default:"100"`

	// MinDistinctValues is the minimum distinct count for a column to
	// qualify as an entity column.
	MinDistinctValues int64 `yaml:"min_distinct_values" env:"PROFILER_MIN_DISTINCT" env-default:"3"`

	// PKRowThreshold: the cardinality-based PK heuristic only applies to
	// tables with more rows than this.
	PKRowThreshold int64 `yaml:"pk_row_threshold" env:"PROFILER_PK_ROW_THRESHOLD" env-default:"100"`

	// PKCardinalityRatio: a column with distinct_count above this fraction
	// of total rows is treated as a likely primary key and excluded.
	PKCardinalityRatio float64 `yaml:"pk_cardinality_ratio" env:"PROFILER_PK_CARDINALITY_RATIO" env-default:"0.9"`

	// PrimaryEntityMinDistinct is the minimum distinct count for a
	// client/company column to be selected as a primary entity.
	PrimaryEntityMinDistinct int64 `yaml:"primary_entity_min_distinct" env:"PROFILER_PRIMARY_MIN_DISTINCT" env-default:"10"`

	// TableWorkers bounds the parallel fan-out across tables. Column
	// analysis within one table always runs sequentially.
	TableWorkers int `yaml:"table_workers" env:"PROFILER_TABLE_WORKERS" env-default:"4"`
}

// IndexConfig holds value-index construction and lookup settings.
type IndexConfig struct {
	// MaxVariations caps the variation set per entry to bound memory.
	MaxVariations int `yaml:"max_variations" env:"INDEX_MAX_VARIATIONS" env-default:"32"`

	// MinFuzzySimilarity is the minimum normalized similarity (0-1) for
	// the fuzzy lookup tier to produce a candidate.
	MinFuzzySimilarity float64 `yaml:"min_fuzzy_similarity" env:"INDEX_MIN_FUZZY_SIMILARITY" env-default:"0.6"`

	// MaxAbbreviationLen is the longest acronym the learner will register.
	MaxAbbreviationLen int `yaml:"max_abbreviation_len" env:"INDEX_MAX_ABBREVIATION_LEN" env-default:"5"`
}

// ResolverConfig holds the accept/clarify decision policy.
type ResolverConfig struct {
	// AcceptThreshold is the minimum fused score for silent acceptance.
	AcceptThreshold float64 `yaml:"accept_threshold" env:"RESOLVER_ACCEPT_THRESHOLD" env-default:"0.75"`

	// SeparationMargin is the minimum lead over the second-best candidate
	// for silent acceptance.
	SeparationMargin float64 `yaml:"separation_margin" env:"RESOLVER_SEPARATION_MARGIN" env-default:"0.1"`

	// MaxCandidates is the top-K returned with a clarification request.
	MaxCandidates int `yaml:"max_candidates" env:"RESOLVER_MAX_CANDIDATES" env-default:"5"`

	// FrequencyPriorWeight scales the frequency-based prior used to break
	// near-ties toward more frequent canonical entities.
	FrequencyPriorWeight float64 `yaml:"frequency_prior_weight" env:"RESOLVER_FREQUENCY_PRIOR_WEIGHT" env-default:"0.05"`

	// ContextBoost is added when the intent analyzer finds the candidate's
	// entity type suggested by the surrounding query text.
	ContextBoost float64 `yaml:"context_boost" env:"RESOLVER_CONTEXT_BOOST" env-default:"0.1"`
}

// OnboardingConfig holds the self-validation acceptance criteria.
type OnboardingConfig struct {
	// ValidationAccuracyFloor is the minimum round-trip accuracy for a
	// new index to be activated.
	ValidationAccuracyFloor float64 `yaml:"validation_accuracy_floor" env:"ONBOARDING_VALIDATION_FLOOR" env-default:"0.95"`

	// ValidationSampleSize is how many canonical values are re-resolved
	// during the self-validation pass.
	ValidationSampleSize int `yaml:"validation_sample_size" env:"ONBOARDING_VALIDATION_SAMPLES" env-default:"50"`

	// TimeoutSeconds bounds a full onboarding run. Zero means no deadline.
	TimeoutSeconds int `yaml:"timeout_seconds" env:"ONBOARDING_TIMEOUT_SECONDS" env-default:"300"`
}

// Load reads configuration from config.yaml with environment variable
// overrides. If config.yaml does not exist, environment variables and
// defaults alone are used. The version parameter is injected at build time.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Datasource.Type {
	case "postgres", "mssql":
	default:
		return fmt.Errorf("unsupported datasource type %q", c.Datasource.Type)
	}
	if c.Profiler.TableWorkers < 1 {
		return fmt.Errorf("profiler.table_workers must be >= 1, got %d", c.Profiler.TableWorkers)
	}
	if c.Profiler.PKCardinalityRatio <= 0 || c.Profiler.PKCardinalityRatio > 1 {
		return fmt.Errorf("profiler.pk_cardinality_ratio must be in (0, 1], got %v", c.Profiler.PKCardinalityRatio)
	}
	if c.Index.MaxVariations < 1 {
		return fmt.Errorf("index.max_variations must be >= 1, got %d", c.Index.MaxVariations)
	}
	if c.Resolver.AcceptThreshold <= 0 || c.Resolver.AcceptThreshold > 1 {
		return fmt.Errorf("resolver.accept_threshold must be in (0, 1], got %v", c.Resolver.AcceptThreshold)
	}
	if c.Onboarding.ValidationAccuracyFloor < 0 || c.Onboarding.ValidationAccuracyFloor > 1 {
		return fmt.Errorf("onboarding.validation_accuracy_floor must be in [0, 1], got %v", c.Onboarding.ValidationAccuracyFloor)
	}
	return nil
}

// ConnectionString returns the connection string for the configured
// adapter type.
func (c *DatasourceConfig) ConnectionString() string {
	if c.Type == "mssql" {
		return fmt.Sprintf(
			"sqlserver://%s:%s@%s:%d?database=%s",
			url.QueryEscape(c.User), url.QueryEscape(c.Password), c.Host, c.Port, url.QueryEscape(c.Database),
		)
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
