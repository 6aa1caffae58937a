package dialect

import (
	"errors"
	"fmt"
	"strings"

	"db-refactor/internal/schema"

	"modernc.org/sqlite"
)

// sqliteConstraint is SQLITE_CONSTRAINT; extended codes keep it in the low byte.
const sqliteConstraint = 19

type SqliteDialect struct{}

func (d *SqliteDialect) Name() string { return "sqlite" }

// GetColumnsQuery reports the declared type as sql_type; sizes are parsed
// from it by the caller since pragma_table_info has no separate fields.
func (d *SqliteDialect) GetColumnsQuery(schema, table string) (string, []any) {
	return `SELECT name, type, type, NULL, NULL, NULL, CASE WHEN "notnull" = 1 THEN 'NO' ELSE 'YES' END, dflt_value, CASE WHEN pk > 0 THEN 'PRI' ELSE '' END FROM pragma_table_info(?) ORDER BY cid`,
		[]any{table}
}

func (d *SqliteDialect) GetForeignKeysQuery(schema, table string) (string, []any) {
	return `SELECT 'fk_' || id, "from", "table", "to" FROM pragma_foreign_key_list(?) ORDER BY id, seq`,
		[]any{table}
}

func (d *SqliteDialect) AddColumnQuery(table string, col *schema.ColumnDescriptor) string {
	typ := typeClause(col, isSizedType, isNumericType)
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", d.QuoteIdentifier(table), columnDefinition(d, col, typ, false))
}

func (d *SqliteDialect) DropColumnQuery(table, column string) string {
	return fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", d.QuoteIdentifier(table), d.QuoteIdentifier(column))
}

func (d *SqliteDialect) SelectQuery(table string, cols []string, where string, orderBy string) string {
	return defaultSelectQuery(d, table, cols, where, orderBy)
}

func (d *SqliteDialect) InsertQuery(table string, cols []string, primaryKey string) (string, InsertMode) {
	vals := GeneratePlaceholders(len(cols), d.Placeholder)
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", d.QuoteIdentifier(table), strings.Join(quoteAll(d, cols), ", "), vals), InsertLastID
}

func (d *SqliteDialect) UpdateQuery(table string, cols []string, keyColumn string) string {
	return defaultUpdateQuery(d, table, cols, keyColumn)
}

func (d *SqliteDialect) CountQuery(table string) string {
	return defaultCountQuery(d, table)
}

func (d *SqliteDialect) Placeholder(index int) string {
	return "?"
}

func (d *SqliteDialect) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// NormalizeType returns the lowercased base name of a declared type.
func (d *SqliteDialect) NormalizeType(sqlType string) string {
	base, _, _, _ := ParseSQLType(sqlType)
	return base
}

func (d *SqliteDialect) GetSchemaName(input string) string {
	if input == "" {
		return "main"
	}
	return input
}

func (d *SqliteDialect) GetLimitRowQuery(query string, limit int) string {
	return fmt.Sprintf("%s LIMIT %d", query, limit)
}

func (d *SqliteDialect) IsConstraintViolation(err error) bool {
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code()&0xff == sqliteConstraint
	}
	return false
}

func (d *SqliteDialect) SavepointQuery(name string) string {
	return "SAVEPOINT " + d.QuoteIdentifier(name)
}

func (d *SqliteDialect) RollbackToSavepointQuery(name string) string {
	return "ROLLBACK TO SAVEPOINT " + d.QuoteIdentifier(name)
}

func (d *SqliteDialect) ReleaseSavepointQuery(name string) string {
	return "RELEASE SAVEPOINT " + d.QuoteIdentifier(name)
}
