package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kestrel-data/resolve-engine/pkg/abbrev"
	"github.com/kestrel-data/resolve-engine/pkg/adapters/datasource"
	"github.com/kestrel-data/resolve-engine/pkg/apperrors"
	"github.com/kestrel-data/resolve-engine/pkg/config"
	"github.com/kestrel-data/resolve-engine/pkg/index"
	"github.com/kestrel-data/resolve-engine/pkg/logging"
	"github.com/kestrel-data/resolve-engine/pkg/models"
	"github.com/kestrel-data/resolve-engine/pkg/profiler"
	"github.com/kestrel-data/resolve-engine/pkg/resolver"
)

// ReaderFactory opens a fresh schema reader for an onboarding run. The
// service closes the reader when the run finishes.
type ReaderFactory func(ctx context.Context) (datasource.SchemaReader, error)

// OnboardingService runs the full activation pipeline for a datasource:
// profile, index, learn abbreviations, self-validate, and only then swap
// the new index into the live resolver. A run that fails any stage
// leaves the previously active index serving; there is no partial
// activation state.
type OnboardingService struct {
	cfg      *config.Config
	resolver *resolver.Resolver
	readers  ReaderFactory
	logger   *zap.Logger
}

// NewOnboardingService creates the onboarding orchestrator.
func NewOnboardingService(cfg *config.Config, res *resolver.Resolver, readers ReaderFactory, logger *zap.Logger) *OnboardingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OnboardingService{
		cfg:      cfg,
		resolver: res,
		readers:  readers,
		logger:   logger.Named("onboarding"),
	}
}

// Onboard runs the pipeline end to end. The returned result always
// describes the run; errors that abort a stage are recorded in
// result.Errors rather than returned, so callers get the full report
// either way.
func (s *OnboardingService) Onboard(ctx context.Context, label string) *models.OnboardingResult {
	result := &models.OnboardingResult{
		DatasourceID: uuid.New(),
		Label:        label,
		StartedAt:    time.Now().UTC(),
	}
	defer func() { result.FinishedAt = time.Now().UTC() }()

	if s.cfg.Onboarding.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(s.cfg.Onboarding.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	s.logger.Info("Onboarding started", zap.String("label", label))

	reader, err := s.readers(ctx)
	if err != nil {
		return s.fail(result, fmt.Errorf("connect to datasource: %w", err))
	}
	defer reader.Close()

	profile, err := profiler.New(reader, s.cfg.Profiler, s.logger).Profile(ctx)
	if err != nil {
		return s.fail(result, fmt.Errorf("profile database: %w", err))
	}
	result.TablesProfiled = len(profile.Tables)
	result.EntityColumns = profile.EntityColumnCount()
	result.PrimaryEntities = len(profile.PrimaryEntities)
	result.ProfilePartial = profile.Partial

	idx, err := index.Build(profile, s.cfg.Index, s.logger)
	if err != nil {
		if errors.Is(err, apperrors.ErrNoEntityColumns) {
			return s.fail(result, fmt.Errorf("datasource has no resolvable entity columns: %w", err))
		}
		return s.fail(result, fmt.Errorf("build value index: %w", err))
	}
	result.IndexStats = idx.Stats()

	rules := abbrev.NewLearner(s.cfg.Index.MaxAbbreviationLen, s.logger).Discover(idx)
	result.AbbreviationRules = len(rules)

	accuracy, samples := s.validate(idx, rules)
	result.ValidationAccuracy = accuracy
	result.ValidationSamples = samples
	if accuracy < s.cfg.Onboarding.ValidationAccuracyFloor {
		return s.fail(result, fmt.Errorf("self-validation accuracy %.3f below floor %.3f: %w",
			accuracy, s.cfg.Onboarding.ValidationAccuracyFloor, apperrors.ErrValidationFailed))
	}

	// Every stage passed; only now does the new index become visible.
	s.resolver.Activate(idx, rules)
	result.Success = true

	s.logger.Info("Onboarding complete",
		zap.String("label", label),
		zap.Int("tables", result.TablesProfiled),
		zap.Int("entity_columns", result.EntityColumns),
		zap.Float64("validation_accuracy", accuracy),
		zap.Duration("duration", result.Duration()))

	return result
}

// validate re-resolves a deterministic sample of indexed canonical
// values through a throwaway resolver wired to the candidate index. A
// round trip counts as correct when the value resolves back to itself,
// or escalates to a clarification that includes itself; a canonical
// value that vanishes or resolves to something else is a miss.
func (s *OnboardingService) validate(idx *index.ValueIndex, rules map[string]*models.AbbreviationRule) (float64, int) {
	entries := idx.Entries()
	if len(entries) == 0 {
		return 0, 0
	}

	sampleSize := s.cfg.Onboarding.ValidationSampleSize
	if sampleSize < 1 || sampleSize > len(entries) {
		sampleSize = len(entries)
	}
	stride := len(entries) / sampleSize

	probe := resolver.New(s.cfg.Resolver, resolver.NewUserPreferenceStore(), zap.NewNop())
	probe.Activate(idx, rules)

	correct := 0
	for i := 0; i < sampleSize; i++ {
		entry := entries[i*stride]
		res, err := probe.Resolve("", entry.CanonicalValue, "")
		if err != nil {
			continue
		}
		if roundTripped(res, entry.CanonicalValue) {
			correct++
		}
	}

	return float64(correct) / float64(sampleSize), sampleSize
}

// roundTripped reports whether resolving a canonical value found that
// value again, either as the accepted match or among clarification
// candidates. Identical values in different table scopes legitimately
// clarify rather than match.
func roundTripped(res *models.ResolutionResult, canonical string) bool {
	if res.Matched() {
		return res.Match.CanonicalValue == canonical
	}
	if res.RequiresClarification {
		for _, c := range res.Candidates {
			if c.Entry.CanonicalValue == canonical {
				return true
			}
		}
	}
	return false
}

// fail marks the result unsuccessful and records the reason. Driver
// errors can echo the connection string, so the message is sanitized
// before it is stored or logged. The previously active index, if any,
// is untouched.
func (s *OnboardingService) fail(result *models.OnboardingResult, err error) *models.OnboardingResult {
	msg := logging.SanitizeError(err)
	result.Errors = append(result.Errors, msg)
	s.logger.Warn("Onboarding failed",
		zap.String("label", result.Label),
		zap.String("error", msg))
	return result
}
