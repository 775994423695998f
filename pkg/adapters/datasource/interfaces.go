package datasource

import "context"

// TableInfo identifies a user table in the source database.
type TableInfo struct {
	SchemaName string `json:"schema_name,omitempty"`
	TableName  string `json:"table_name"`
}

// ColumnInfo describes a textual column eligible for profiling.
type ColumnInfo struct {
	ColumnName string `json:"column_name"`
	DataType   string `json:"data_type"`
}

// ValueCount is one row of a grouped-aggregate sample: a distinct value
// and how many rows hold it.
type ValueCount struct {
	Value string `json:"value"`
	Count int64  `json:"count"`
}

// SchemaReader provides read-only introspection of a source database for
// profiling. Implementations issue only SELECT/COUNT/grouped-aggregate
// queries and never mutate source data.
// Each implementation owns its connection and must be closed when done.
type SchemaReader interface {
	// ListTables returns all user tables (excludes system schemas).
	ListTables(ctx context.Context) ([]TableInfo, error)

	// ListTextColumns returns the textual columns of a table, in ordinal
	// position order. Non-text columns are filtered out by declared type.
	ListTextColumns(ctx context.Context, table TableInfo) ([]ColumnInfo, error)

	// CountRows returns the total row count of a table.
	CountRows(ctx context.Context, table TableInfo) (int64, error)

	// CountDistinct returns the distinct non-null value count of a column.
	CountDistinct(ctx context.Context, table TableInfo, column string) (int64, error)

	// TopValues returns up to limit distinct non-null values of a column
	// ranked by descending row frequency.
	TopValues(ctx context.Context, table TableInfo, column string, limit int) ([]ValueCount, error)

	// Close releases the database connection.
	Close() error
}
