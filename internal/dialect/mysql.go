package dialect

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"db-refactor/internal/schema"

	"github.com/go-sql-driver/mysql"
)

type MysqlDialect struct{}

func (d *MysqlDialect) Name() string { return "mysql" }

// GetColumnsQuery reports expression defaults (EXTRA DEFAULT_GENERATED, MySQL
// 8.0.13+) wrapped in parentheses, the only form ADD COLUMN accepts them in.
// CURRENT_TIMESTAMP is also flagged DEFAULT_GENERATED but is a literal default.
func (d *MysqlDialect) GetColumnsQuery(schema, table string) (string, []any) {
	return `SELECT COLUMN_NAME, DATA_TYPE, COLUMN_TYPE, CHARACTER_MAXIMUM_LENGTH, NUMERIC_PRECISION, NUMERIC_SCALE, IS_NULLABLE,
    CASE WHEN EXTRA LIKE '%DEFAULT_GENERATED%' AND UPPER(COLUMN_DEFAULT) NOT LIKE 'CURRENT_TIMESTAMP%'
         THEN CONCAT('(', COLUMN_DEFAULT, ')') ELSE COLUMN_DEFAULT END AS COLUMN_DEFAULT,
    COLUMN_KEY
FROM information_schema.COLUMNS WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ? ORDER BY ORDINAL_POSITION`,
		[]any{schema, table}
}

func (d *MysqlDialect) GetForeignKeysQuery(schema, table string) (string, []any) {
	return `SELECT CONSTRAINT_NAME, COLUMN_NAME, REFERENCED_TABLE_NAME, REFERENCED_COLUMN_NAME FROM information_schema.KEY_COLUMN_USAGE WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ? AND REFERENCED_TABLE_NAME IS NOT NULL`,
		[]any{schema, table}
}

func (d *MysqlDialect) AddColumnQuery(table string, col *schema.ColumnDescriptor) string {
	c := col.Clone()
	if c.Default != nil {
		quoted := mysqlDefault(*c.Default)
		c.Default = &quoted
	}
	typ := typeClause(c, isSizedType, isNumericType)
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", d.QuoteIdentifier(table), columnDefinition(d, c, typ, false))
}

func (d *MysqlDialect) DropColumnQuery(table, column string) string {
	return fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", d.QuoteIdentifier(table), d.QuoteIdentifier(column))
}

func (d *MysqlDialect) SelectQuery(table string, cols []string, where string, orderBy string) string {
	return defaultSelectQuery(d, table, cols, where, orderBy)
}

func (d *MysqlDialect) InsertQuery(table string, cols []string, primaryKey string) (string, InsertMode) {
	vals := GeneratePlaceholders(len(cols), d.Placeholder)
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", d.QuoteIdentifier(table), strings.Join(quoteAll(d, cols), ", "), vals), InsertLastID
}

func (d *MysqlDialect) UpdateQuery(table string, cols []string, keyColumn string) string {
	return defaultUpdateQuery(d, table, cols, keyColumn)
}

func (d *MysqlDialect) CountQuery(table string) string {
	return defaultCountQuery(d, table)
}

func (d *MysqlDialect) Placeholder(index int) string {
	return "?"
}

func (d *MysqlDialect) QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (d *MysqlDialect) NormalizeType(sqlType string) string {
	return DefaultNormalizeType(sqlType)
}

func (d *MysqlDialect) GetSchemaName(input string) string {
	return DefaultGetSchemaName(input)
}

func (d *MysqlDialect) GetLimitRowQuery(query string, limit int) string {
	return fmt.Sprintf("%s LIMIT %d", query, limit)
}

// mysqlConstraintErrors: not null, duplicate, too long, out of range, bad value, FK parent/child, check.
var mysqlConstraintErrors = map[uint16]bool{
	1048: true, 1062: true, 1406: true, 1264: true, 1366: true, 1451: true, 1452: true, 3819: true,
}

func (d *MysqlDialect) IsConstraintViolation(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return mysqlConstraintErrors[myErr.Number]
	}
	return false
}

// mysqlDefault quotes a COLUMN_DEFAULT value, which information_schema
// reports without quotes for string literals.
func mysqlDefault(v string) string {
	upper := strings.ToUpper(strings.TrimSpace(v))
	if _, err := strconv.ParseFloat(v, 64); err == nil {
		return v
	}
	if upper == "NULL" || strings.HasPrefix(upper, "CURRENT_TIMESTAMP") || strings.HasPrefix(upper, "NOW(") ||
		strings.HasPrefix(v, "(") || strings.HasPrefix(v, "'") || strings.HasPrefix(upper, "B'") {
		return v
	}
	return "'" + strings.ReplaceAll(v, "'", "''") + "'"
}

func isNumericType(base string) bool {
	switch base {
	case "decimal", "numeric", "number", "dec", "fixed", "float", "double", "real", "time", "datetime", "datetime2", "timestamp":
		return true
	}
	return false
}
