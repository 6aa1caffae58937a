package dialect

import "db-refactor/internal/schema"

// InsertMode tells the store how to learn the key of an inserted row.
type InsertMode int

const (
	// InsertExec runs the statement without reading a key back.
	InsertExec InsertMode = iota
	// InsertLastID reads the key from sql.Result.LastInsertId.
	InsertLastID
	// InsertReturning scans the key from the single row the statement returns.
	InsertReturning
)

// Dialect abstracts database-specific operations.
type Dialect interface {
	Name() string

	// Metadata Queries (Schema Introspection)
	//
	// Columns rows: column_name, data_type, sql_type, char_length,
	// numeric_precision, numeric_scale, is_nullable (YES/NO), column_default,
	// column_key (PRI or empty).
	GetColumnsQuery(schema, table string) (string, []any)
	// Foreign key rows: constraint_name, column_name, referenced_table, referenced_column.
	GetForeignKeysQuery(schema, table string) (string, []any)

	// Structural Changes
	AddColumnQuery(table string, col *schema.ColumnDescriptor) string
	DropColumnQuery(table, column string) string

	// Query Generation
	SelectQuery(table string, cols []string, where string, orderBy string) string
	InsertQuery(table string, cols []string, primaryKey string) (string, InsertMode)
	UpdateQuery(table string, cols []string, keyColumn string) string
	CountQuery(table string) string
	Placeholder(index int) string // Returns ?, $1, @p1, etc.
	QuoteIdentifier(name string) string

	// Helpers
	NormalizeType(sqlType string) string
	GetSchemaName(input string) string
	GetLimitRowQuery(query string, limit int) string
	IsConstraintViolation(err error) bool
}

// Savepointer is implemented by dialects with SQL savepoints. On postgres a
// failed statement aborts the whole transaction unless it ran inside one.
type Savepointer interface {
	SavepointQuery(name string) string
	RollbackToSavepointQuery(name string) string
	ReleaseSavepointQuery(name string) string
}
