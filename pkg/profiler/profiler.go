package profiler

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kestrel-data/resolve-engine/pkg/adapters/datasource"
	"github.com/kestrel-data/resolve-engine/pkg/config"
	"github.com/kestrel-data/resolve-engine/pkg/models"
	"github.com/kestrel-data/resolve-engine/pkg/workqueue"
)

// Profiler inspects a read-only source connection to discover which
// columns hold resolvable entity values, classify their semantic type,
// and sample their value-frequency distribution.
//
// Table-level profiling fans out across a bounded worker pool; column
// analysis within one table runs sequentially so a single table never
// receives a burst of heavy aggregate queries.
type Profiler struct {
	reader datasource.SchemaReader
	cfg    config.ProfilerConfig
	logger *zap.Logger
}

// New creates a profiler. If logger is nil, a no-op logger is used.
func New(reader datasource.SchemaReader, cfg config.ProfilerConfig, logger *zap.Logger) *Profiler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Profiler{
		reader: reader,
		cfg:    cfg,
		logger: logger.Named("profiler"),
	}
}

// Profile analyzes every user table in the source database. Per-column
// failures are logged and skipped so profiling degrades gracefully; only
// a failure to list tables at all is fatal. If the caller's deadline
// expires mid-run, the profile is returned with Partial set and whatever
// tables completed in time.
func (p *Profiler) Profile(ctx context.Context) (*models.DatabaseProfile, error) {
	tables, err := p.reader.ListTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	p.logger.Info("Starting database profiling",
		zap.Int("tables", len(tables)),
		zap.Int("workers", p.cfg.TableWorkers))

	var mu sync.Mutex
	profiles := make([]models.TableProfile, 0, len(tables))

	queue := workqueue.New(ctx, p.cfg.TableWorkers, p.logger)
	for _, table := range tables {
		queue.Enqueue(&tableProfileTask{
			BaseTask: workqueue.NewBaseTask(fmt.Sprintf("profile %s.%s", table.SchemaName, table.TableName)),
			profiler: p,
			table:    table,
			collect: func(tp models.TableProfile) {
				mu.Lock()
				defer mu.Unlock()
				profiles = append(profiles, tp)
			},
		})
	}

	partial := false
	if err := queue.Wait(ctx); err != nil {
		// Deadline or cancellation: keep what completed, mark partial.
		partial = true
		p.logger.Warn("Profiling cut short by deadline",
			zap.Int("completed_tables", queue.CompletedCount()),
			zap.Int("total_tables", queue.TaskCount()))
	}
	if queue.Cancelled() {
		partial = true
	}

	mu.Lock()
	defer mu.Unlock()

	// Worker completion order is nondeterministic; restore listing order
	// so rebuilds from unchanged data are identical.
	sort.Slice(profiles, func(i, j int) bool {
		if profiles[i].SchemaName != profiles[j].SchemaName {
			return profiles[i].SchemaName < profiles[j].SchemaName
		}
		return profiles[i].TableName < profiles[j].TableName
	})

	profile := &models.DatabaseProfile{
		ProfileID:  uuid.New(),
		Tables:     profiles,
		Partial:    partial,
		ProfiledAt: time.Now().UTC(),
	}
	profile.PrimaryEntities = p.identifyPrimaryEntities(profile)

	p.logger.Info("Database profiling complete",
		zap.Int("tables_profiled", len(profiles)),
		zap.Int("entity_columns", profile.EntityColumnCount()),
		zap.Int("primary_entities", len(profile.PrimaryEntities)),
		zap.Bool("partial", partial))

	return profile, nil
}

// tableProfileTask profiles one table's columns sequentially.
type tableProfileTask struct {
	workqueue.BaseTask
	profiler *Profiler
	table    datasource.TableInfo
	collect  func(models.TableProfile)
}

// Execute implements workqueue.Task.
func (t *tableProfileTask) Execute(ctx context.Context) error {
	tp, err := t.profiler.profileTable(ctx, t.table)
	if err != nil {
		return err
	}
	t.collect(tp)
	return nil
}

// profileTable analyzes a single table: row count plus sequential
// per-column analysis. A column whose queries fail is skipped.
func (p *Profiler) profileTable(ctx context.Context, table datasource.TableInfo) (models.TableProfile, error) {
	tp := models.TableProfile{
		SchemaName: table.SchemaName,
		TableName:  table.TableName,
	}

	rowCount, err := p.reader.CountRows(ctx, table)
	if err != nil {
		return tp, fmt.Errorf("count rows of %s: %w", table.TableName, err)
	}
	tp.RowCount = rowCount

	columns, err := p.reader.ListTextColumns(ctx, table)
	if err != nil {
		return tp, fmt.Errorf("list columns of %s: %w", table.TableName, err)
	}

	for _, col := range columns {
		cp, ok := p.analyzeColumn(ctx, table, col, rowCount)
		if !ok {
			continue
		}
		tp.EntityColumns = append(tp.EntityColumns, cp)
	}

	return tp, nil
}

// analyzeColumn classifies one column and samples its values. Returns
// ok=false when the column does not qualify as an entity column or its
// analysis queries failed.
func (p *Profiler) analyzeColumn(ctx context.Context, table datasource.TableInfo, col datasource.ColumnInfo, rowCount int64) (models.ColumnProfile, bool) {
	// Respect cancellation between heavy aggregate queries.
	if ctx.Err() != nil {
		return models.ColumnProfile{}, false
	}

	distinct, err := p.reader.CountDistinct(ctx, table, col.ColumnName)
	if err != nil {
		p.logger.Warn("Skipping column, distinct count failed",
			zap.String("table", table.TableName),
			zap.String("column", col.ColumnName),
			zap.Error(err))
		return models.ColumnProfile{}, false
	}

	if distinct < p.cfg.MinDistinctValues {
		return models.ColumnProfile{}, false
	}
	if p.isLikelyPrimaryKey(col.ColumnName, distinct, rowCount) {
		return models.ColumnProfile{}, false
	}

	values, err := p.reader.TopValues(ctx, table, col.ColumnName, p.cfg.SampleSize)
	if err != nil {
		p.logger.Warn("Skipping column, value sampling failed",
			zap.String("table", table.TableName),
			zap.String("column", col.ColumnName),
			zap.Error(err))
		return models.ColumnProfile{}, false
	}

	samples := make([]models.ValueCount, len(values))
	for i, vc := range values {
		samples[i] = models.ValueCount{Value: vc.Value, Count: vc.Count}
	}

	return models.ColumnProfile{
		ColumnName:    col.ColumnName,
		DataType:      col.DataType,
		DistinctCount: distinct,
		SampleValues:  samples,
		InferredType:  inferEntityType(col.ColumnName, samples),
	}, true
}

// isLikelyPrimaryKey applies the PK heuristic: well-known key names are
// always excluded; the cardinality test (distinct > ratio * rows) only
// applies above the configured row threshold, since small tables have
// legitimately near-unique entity columns.
func (p *Profiler) isLikelyPrimaryKey(columnName string, distinct, rowCount int64) bool {
	if likelyPKNames[strings.ToLower(columnName)] {
		return true
	}
	if rowCount > p.cfg.PKRowThreshold &&
		float64(distinct) > p.cfg.PKCardinalityRatio*float64(rowCount) {
		return true
	}
	return false
}

// identifyPrimaryEntities selects the (table, column) pairs that serve
// as the dataset's primary resolution targets: client/company columns
// with enough distinct values to be worth resolving against.
func (p *Profiler) identifyPrimaryEntities(profile *models.DatabaseProfile) []models.ColumnRef {
	var primaries []models.ColumnRef
	for _, tp := range profile.Tables {
		for _, cp := range tp.EntityColumns {
			if cp.InferredType.IsPrimaryCandidate() && cp.DistinctCount > p.cfg.PrimaryEntityMinDistinct {
				primaries = append(primaries, models.ColumnRef{
					TableName:  tp.TableName,
					ColumnName: cp.ColumnName,
				})
			}
		}
	}
	return primaries
}
