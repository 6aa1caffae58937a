package dialect

import (
	"errors"
	"fmt"
	"strings"

	"db-refactor/internal/schema"

	"github.com/sijms/go-ora/v2/network"
)

type OracleDialect struct{}

func (d *OracleDialect) Name() string { return "oracle" }

func (d *OracleDialect) GetColumnsQuery(schema, table string) (string, []any) {
	// USER_TAB_COLUMNS lists columns of tables owned by the current user, so
	// the schema argument is not bound. Oracle stores unquoted names upper case.
	return `
SELECT
    t.COLUMN_NAME,
    t.DATA_TYPE,
    '' AS SQL_TYPE,
    CASE WHEN t.CHAR_LENGTH > 0 THEN t.CHAR_LENGTH END,
    t.DATA_PRECISION,
    t.DATA_SCALE,
    CASE WHEN t.NULLABLE = 'Y' THEN 'YES' ELSE 'NO' END,
    t.DATA_DEFAULT,
    CASE WHEN p.CONSTRAINT_NAME IS NOT NULL THEN 'PRI' ELSE '' END
FROM USER_TAB_COLUMNS t
LEFT JOIN (
    SELECT cc.TABLE_NAME, cc.COLUMN_NAME, cc.CONSTRAINT_NAME
    FROM USER_CONS_COLUMNS cc
    JOIN USER_CONSTRAINTS uc ON cc.CONSTRAINT_NAME = uc.CONSTRAINT_NAME
    WHERE uc.CONSTRAINT_TYPE = 'P'
) p ON t.TABLE_NAME = p.TABLE_NAME AND t.COLUMN_NAME = p.COLUMN_NAME
WHERE t.TABLE_NAME = UPPER(:1)
ORDER BY t.COLUMN_ID`, []any{table}
}

func (d *OracleDialect) GetForeignKeysQuery(schema, table string) (string, []any) {
	return `
SELECT
    c.CONSTRAINT_NAME,
    cc.COLUMN_NAME,
    r.TABLE_NAME AS REF_TABLE,
    rcc.COLUMN_NAME AS REF_COLUMN
FROM USER_CONSTRAINTS c
JOIN USER_CONS_COLUMNS cc
    ON c.CONSTRAINT_NAME = cc.CONSTRAINT_NAME
    AND c.OWNER = cc.OWNER
JOIN USER_CONSTRAINTS r
    ON c.R_CONSTRAINT_NAME = r.CONSTRAINT_NAME
    AND c.R_OWNER = r.OWNER
JOIN USER_CONS_COLUMNS rcc
    ON r.CONSTRAINT_NAME = rcc.CONSTRAINT_NAME
    AND r.OWNER = rcc.OWNER
    AND cc.POSITION = rcc.POSITION
WHERE c.CONSTRAINT_TYPE = 'R'
AND c.TABLE_NAME = UPPER(:1)`, []any{table}
}

func (d *OracleDialect) AddColumnQuery(table string, col *schema.ColumnDescriptor) string {
	typ := typeClause(col, isSizedType, isOracleNumeric)
	return fmt.Sprintf("ALTER TABLE %s ADD (%s)", d.QuoteIdentifier(table), columnDefinition(d, col, typ, false))
}

func (d *OracleDialect) DropColumnQuery(table, column string) string {
	return fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", d.QuoteIdentifier(table), d.QuoteIdentifier(column))
}

func (d *OracleDialect) SelectQuery(table string, cols []string, where string, orderBy string) string {
	return defaultSelectQuery(d, table, cols, where, orderBy)
}

// InsertQuery never reads the key back: RETURNING INTO needs out binds.
func (d *OracleDialect) InsertQuery(table string, cols []string, primaryKey string) (string, InsertMode) {
	vals := GeneratePlaceholders(len(cols), d.Placeholder)
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table,
		strings.Join(cols, ", "),
		vals), InsertExec
}

func (d *OracleDialect) UpdateQuery(table string, cols []string, keyColumn string) string {
	return defaultUpdateQuery(d, table, cols, keyColumn)
}

func (d *OracleDialect) CountQuery(table string) string {
	return defaultCountQuery(d, table)
}

func (d *OracleDialect) Placeholder(index int) string {
	// Oracle uses :1, :2, etc. (1-based index)
	return fmt.Sprintf(":%d", index+1)
}

// QuoteIdentifier leaves names unquoted so Oracle keeps folding them to upper case.
func (d *OracleDialect) QuoteIdentifier(name string) string {
	return name
}

func (d *OracleDialect) NormalizeType(sqlType string) string {
	return DefaultNormalizeType(sqlType)
}

func (d *OracleDialect) GetSchemaName(input string) string {
	return input
}

func (d *OracleDialect) GetLimitRowQuery(query string, limit int) string {
	return fmt.Sprintf("SELECT * FROM (%s) WHERE ROWNUM <= %d", query, limit)
}

// oracleConstraintErrors: unique, not null, check, FK parent/child, too large, precision.
var oracleConstraintErrors = map[int]bool{
	1: true, 1400: true, 1407: true, 2290: true, 2291: true, 2292: true, 12899: true, 1438: true,
}

func (d *OracleDialect) IsConstraintViolation(err error) bool {
	var oraErr *network.OracleError
	if errors.As(err, &oraErr) {
		return oracleConstraintErrors[oraErr.ErrCode]
	}
	return false
}

func isOracleNumeric(base string) bool {
	return base == "number" || base == "decimal" || base == "numeric" || base == "float"
}
