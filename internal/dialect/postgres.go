package dialect

import (
	"errors"
	"fmt"
	"strings"

	"db-refactor/internal/schema"

	"github.com/lib/pq"
)

type PostgresDialect struct{}

func (d *PostgresDialect) Name() string { return "postgres" }

func (d *PostgresDialect) GetColumnsQuery(schema, table string) (string, []any) {
	// data_type is the SQL standard name; enums and arrays only expose a
	// usable type through udt_name, so those are reported as sql_type.
	return `SELECT
    c.column_name,
    c.data_type,
    CASE WHEN c.data_type = 'USER-DEFINED' THEN c.udt_name
         WHEN c.data_type = 'ARRAY' THEN substr(c.udt_name, 2) || '[]'
         ELSE '' END AS sql_type,
    c.character_maximum_length,
    c.numeric_precision,
    c.numeric_scale,
    c.is_nullable,
    c.column_default,
    (SELECT 'PRI' FROM information_schema.table_constraints tc
     JOIN information_schema.key_column_usage kcu ON tc.constraint_name = kcu.constraint_name
     WHERE tc.constraint_type = 'PRIMARY KEY'
     AND kcu.table_schema = c.table_schema AND kcu.table_name = c.table_name AND kcu.column_name = c.column_name LIMIT 1) AS COLUMN_KEY
FROM information_schema.columns c
WHERE c.table_schema = $1 AND c.table_name = $2
ORDER BY c.ordinal_position`, []any{d.GetSchemaName(schema), table}
}

func (d *PostgresDialect) GetForeignKeysQuery(schema, table string) (string, []any) {
	return `SELECT kcu.constraint_name, kcu.column_name, ccu.table_name AS referenced_table_name, ccu.column_name AS referenced_column_name FROM information_schema.key_column_usage kcu JOIN information_schema.constraint_column_usage ccu ON kcu.constraint_name = ccu.constraint_name JOIN information_schema.table_constraints tc ON kcu.constraint_name = tc.constraint_name WHERE kcu.table_schema = $1 AND kcu.table_name = $2 AND tc.constraint_type = 'FOREIGN KEY'`,
		[]any{d.GetSchemaName(schema), table}
}

func (d *PostgresDialect) AddColumnQuery(table string, col *schema.ColumnDescriptor) string {
	typ := typeClause(col, isSizedType, isPostgresNumeric)
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", d.QuoteIdentifier(table), columnDefinition(d, col, typ, false))
}

func (d *PostgresDialect) DropColumnQuery(table, column string) string {
	return fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", d.QuoteIdentifier(table), d.QuoteIdentifier(column))
}

func (d *PostgresDialect) SelectQuery(table string, cols []string, where string, orderBy string) string {
	return defaultSelectQuery(d, table, cols, where, orderBy)
}

func (d *PostgresDialect) InsertQuery(table string, cols []string, primaryKey string) (string, InsertMode) {
	// Generate placeholders ($1, $2, ...)
	vals := GeneratePlaceholders(len(cols), d.Placeholder)
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", d.QuoteIdentifier(table), strings.Join(quoteAll(d, cols), ", "), vals)
	if primaryKey == "" {
		return query, InsertExec
	}
	return query + " RETURNING " + d.QuoteIdentifier(primaryKey), InsertReturning
}

func (d *PostgresDialect) UpdateQuery(table string, cols []string, keyColumn string) string {
	return defaultUpdateQuery(d, table, cols, keyColumn)
}

func (d *PostgresDialect) CountQuery(table string) string {
	return defaultCountQuery(d, table)
}

func (d *PostgresDialect) Placeholder(index int) string {
	return fmt.Sprintf("$%d", index+1)
}

func (d *PostgresDialect) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (d *PostgresDialect) NormalizeType(sqlType string) string {
	t := strings.ToLower(sqlType)
	switch t {
	case "int4", "int2":
		return "int"
	case "int8":
		return "bigint"
	case "float4":
		return "float"
	case "float8":
		return "double"
	case "bpchar":
		return "char"
	case "varchar":
		return "varchar"
	default:
		return t
	}
}

func (d *PostgresDialect) GetSchemaName(input string) string {
	if input == "" {
		return "public"
	}
	return input
}

func (d *PostgresDialect) GetLimitRowQuery(query string, limit int) string {
	return fmt.Sprintf("%s LIMIT %d", query, limit)
}

// IsConstraintViolation matches SQLSTATE class 23 (integrity constraint
// violation) and 22001 (string data right truncation).
func (d *PostgresDialect) IsConstraintViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code.Class() == "23" || pqErr.Code == "22001"
	}
	return false
}

func isPostgresNumeric(base string) bool {
	return base == "numeric" || base == "decimal"
}

func (d *PostgresDialect) SavepointQuery(name string) string {
	return "SAVEPOINT " + d.QuoteIdentifier(name)
}

func (d *PostgresDialect) RollbackToSavepointQuery(name string) string {
	return "ROLLBACK TO SAVEPOINT " + d.QuoteIdentifier(name)
}

func (d *PostgresDialect) ReleaseSavepointQuery(name string) string {
	return "RELEASE SAVEPOINT " + d.QuoteIdentifier(name)
}
