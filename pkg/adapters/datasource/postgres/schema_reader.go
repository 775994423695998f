package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/kestrel-data/resolve-engine/pkg/adapters/datasource"
)

// textDataTypes are the PostgreSQL column types considered textual for
// profiling purposes.
var textDataTypes = []string{"text", "character varying", "character", "name", "citext"}

// qualifiedTableName returns a properly quoted table reference.
// If schemaName is empty, returns just the quoted table name.
// Otherwise returns "schema"."table".
func qualifiedTableName(schemaName, tableName string) string {
	quotedTable := pgx.Identifier{tableName}.Sanitize()
	if schemaName == "" {
		return quotedTable
	}
	quotedSchema := pgx.Identifier{schemaName}.Sanitize()
	return quotedSchema + "." + quotedTable
}

// SchemaReader provides PostgreSQL schema introspection for profiling.
type SchemaReader struct {
	pool      *pgxpool.Pool
	schema    string // restrict to one schema when non-empty
	ownedPool bool
	logger    *zap.Logger
}

// NewSchemaReader creates a PostgreSQL schema reader from a connection
// string. If schema is non-empty, table listing is restricted to it.
// If logger is nil, a no-op logger is used.
func NewSchemaReader(ctx context.Context, connStr, schema string, logger *zap.Logger) (*SchemaReader, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	return &SchemaReader{
		pool:      pool,
		schema:    schema,
		ownedPool: true,
		logger:    logger,
	}, nil
}

// NewSchemaReaderFromPool wraps an existing pool. The pool is not closed
// by Close; its lifecycle belongs to the caller.
func NewSchemaReaderFromPool(pool *pgxpool.Pool, schema string, logger *zap.Logger) *SchemaReader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SchemaReader{pool: pool, schema: schema, logger: logger}
}

// Close releases the reader's pool if it owns one.
func (r *SchemaReader) Close() error {
	if r.ownedPool && r.pool != nil {
		r.pool.Close()
	}
	return nil
}

// ListTables returns all user tables (excludes system schemas).
func (r *SchemaReader) ListTables(ctx context.Context) ([]datasource.TableInfo, error) {
	query := `
		SELECT t.table_schema, t.table_name
		FROM information_schema.tables t
		WHERE t.table_type = 'BASE TABLE'
		  AND t.table_schema NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
	`
	args := []any{}
	if r.schema != "" {
		query += ` AND t.table_schema = $1`
		args = append(args, r.schema)
	}
	query += ` ORDER BY t.table_schema, t.table_name`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer rows.Close()

	var tables []datasource.TableInfo
	for rows.Next() {
		var t datasource.TableInfo
		if err := rows.Scan(&t.SchemaName, &t.TableName); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		tables = append(tables, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}

	return tables, nil
}

// ListTextColumns returns the textual columns of a table in ordinal order.
func (r *SchemaReader) ListTextColumns(ctx context.Context, table datasource.TableInfo) ([]datasource.ColumnInfo, error) {
	const query = `
		SELECT c.column_name, c.data_type
		FROM information_schema.columns c
		WHERE c.table_schema = $1
		  AND c.table_name = $2
		  AND c.data_type = ANY($3)
		ORDER BY c.ordinal_position
	`

	rows, err := r.pool.Query(ctx, query, table.SchemaName, table.TableName, textDataTypes)
	if err != nil {
		return nil, fmt.Errorf("query columns for %s.%s: %w", table.SchemaName, table.TableName, err)
	}
	defer rows.Close()

	var columns []datasource.ColumnInfo
	for rows.Next() {
		var c datasource.ColumnInfo
		if err := rows.Scan(&c.ColumnName, &c.DataType); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		columns = append(columns, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns: %w", err)
	}

	return columns, nil
}

// CountRows returns the total row count of a table.
func (r *SchemaReader) CountRows(ctx context.Context, table datasource.TableInfo) (int64, error) {
	tableRef := qualifiedTableName(table.SchemaName, table.TableName)

	var count int64
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, tableRef)
	if err := r.pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("count rows of %s: %w", tableRef, err)
	}
	return count, nil
}

// CountDistinct returns the distinct non-null value count of a column.
func (r *SchemaReader) CountDistinct(ctx context.Context, table datasource.TableInfo, column string) (int64, error) {
	tableRef := qualifiedTableName(table.SchemaName, table.TableName)
	quotedCol := pgx.Identifier{column}.Sanitize()

	var count int64
	query := fmt.Sprintf(`SELECT COUNT(DISTINCT %s) FROM %s WHERE %s IS NOT NULL`, quotedCol, tableRef, quotedCol)
	if err := r.pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("count distinct %s.%s: %w", tableRef, column, err)
	}
	return count, nil
}

// TopValues returns up to limit distinct non-null values ranked by
// descending row frequency via a grouped aggregate.
func (r *SchemaReader) TopValues(ctx context.Context, table datasource.TableInfo, column string, limit int) ([]datasource.ValueCount, error) {
	tableRef := qualifiedTableName(table.SchemaName, table.TableName)
	quotedCol := pgx.Identifier{column}.Sanitize()

	query := fmt.Sprintf(`
		SELECT %s::text AS value, COUNT(*) AS freq
		FROM %s
		WHERE %s IS NOT NULL
		GROUP BY %s
		ORDER BY freq DESC, value ASC
		LIMIT $1
	`, quotedCol, tableRef, quotedCol, quotedCol)

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("sample top values of %s.%s: %w", tableRef, column, err)
	}
	defer rows.Close()

	var values []datasource.ValueCount
	for rows.Next() {
		var vc datasource.ValueCount
		if err := rows.Scan(&vc.Value, &vc.Count); err != nil {
			return nil, fmt.Errorf("scan value count: %w", err)
		}
		values = append(values, vc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate value counts: %w", err)
	}

	return values, nil
}

// Ensure SchemaReader implements datasource.SchemaReader at compile time.
var _ datasource.SchemaReader = (*SchemaReader)(nil)
