package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/microsoft/go-mssqldb"
	"go.uber.org/zap"

	"github.com/kestrel-data/resolve-engine/pkg/adapters/datasource"
)

// textDataTypes are the SQL Server column types considered textual for
// profiling purposes.
var textDataTypes = []string{"varchar", "nvarchar", "char", "nchar", "text", "ntext"}

// quoteName returns a bracket-quoted SQL Server identifier, escaping
// any closing brackets the way QUOTENAME() does.
func quoteName(identifier string) string {
	escaped := strings.ReplaceAll(identifier, "]", "]]")
	return fmt.Sprintf("[%s]", escaped)
}

// qualifiedTableName builds a fully qualified table name: [schema].[table].
// Defaults to the dbo schema if none is given.
func qualifiedTableName(schemaName, tableName string) string {
	if schemaName == "" {
		schemaName = "dbo"
	}
	return quoteName(schemaName) + "." + quoteName(tableName)
}

// SchemaReader provides SQL Server schema introspection for profiling.
type SchemaReader struct {
	db     *sql.DB
	schema string
	logger *zap.Logger
}

// NewSchemaReader creates a SQL Server schema reader from a connection
// string. If schema is non-empty, table listing is restricted to it.
// If logger is nil, a no-op logger is used.
func NewSchemaReader(ctx context.Context, connStr, schema string, logger *zap.Logger) (*SchemaReader, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlserver", connStr)
	if err != nil {
		return nil, fmt.Errorf("open sqlserver connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlserver: %w", err)
	}

	return &SchemaReader{db: db, schema: schema, logger: logger}, nil
}

// Close releases the database connection.
func (r *SchemaReader) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ListTables returns all user tables (excludes system tables).
func (r *SchemaReader) ListTables(ctx context.Context) ([]datasource.TableInfo, error) {
	query := `
		SELECT SCHEMA_NAME(t.schema_id) AS table_schema, t.name AS table_name
		FROM sys.tables t
		WHERE t.is_ms_shipped = 0
	`
	args := []any{}
	if r.schema != "" {
		query += ` AND SCHEMA_NAME(t.schema_id) = @p1`
		args = append(args, r.schema)
	}
	query += ` ORDER BY table_schema, table_name`

	rows, err := r.db.QueryContext(ctx, query, args...)
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
	placeholders := make([]string, len(textDataTypes))
	args := []any{table.SchemaName, table.TableName}
	for i, dt := range textDataTypes {
		placeholders[i] = fmt.Sprintf("@p%d", i+3)
		args = append(args, dt)
	}

	query := fmt.Sprintf(`
		SELECT c.column_name, c.data_type
		FROM information_schema.columns c
		WHERE c.table_schema = @p1
		  AND c.table_name = @p2
		  AND c.data_type IN (%s)
		ORDER BY c.ordinal_position
	`, strings.Join(placeholders, ", "))

	rows, err := r.db.QueryContext(ctx, query, args...)
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
	query := fmt.Sprintf(`SELECT COUNT_BIG(*) FROM %s`, tableRef)
	if err := r.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("count rows of %s: %w", tableRef, err)
	}
	return count, nil
}

// CountDistinct returns the distinct non-null value count of a column.
func (r *SchemaReader) CountDistinct(ctx context.Context, table datasource.TableInfo, column string) (int64, error) {
	tableRef := qualifiedTableName(table.SchemaName, table.TableName)
	quotedCol := quoteName(column)

	var count int64
	query := fmt.Sprintf(`SELECT COUNT_BIG(DISTINCT %s) FROM %s WHERE %s IS NOT NULL`, quotedCol, tableRef, quotedCol)
	if err := r.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("count distinct %s.%s: %w", tableRef, column, err)
	}
	return count, nil
}

// TopValues returns up to limit distinct non-null values ranked by
// descending row frequency.
func (r *SchemaReader) TopValues(ctx context.Context, table datasource.TableInfo, column string, limit int) ([]datasource.ValueCount, error) {
	tableRef := qualifiedTableName(table.SchemaName, table.TableName)
	quotedCol := quoteName(column)

	query := fmt.Sprintf(`
		SELECT TOP (@p1) CAST(%s AS NVARCHAR(MAX)) AS value, COUNT_BIG(*) AS freq
		FROM %s
		WHERE %s IS NOT NULL
		GROUP BY %s
		ORDER BY freq DESC, value ASC
	`, quotedCol, tableRef, quotedCol, quotedCol)

	rows, err := r.db.QueryContext(ctx, query, limit)
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
