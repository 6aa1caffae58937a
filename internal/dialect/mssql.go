package dialect

import (
	"errors"
	"fmt"
	"strings"

	"db-refactor/internal/schema"

	mssql "github.com/denisenkom/go-mssqldb" // SQL Server Driver
)

type MSSQLDialect struct{}

// Helper: MSSQL Driver (go-mssqldb) often prefers @p1, @p2 named parameters over ?
// especially when prepared statements are involved or simple Exec.

func (d *MSSQLDialect) Name() string { return "sqlserver" }

func (d *MSSQLDialect) GetColumnsQuery(schema, table string) (string, []any) {
	return `
		SELECT
			c.COLUMN_NAME,
			c.DATA_TYPE,
			'' AS SQL_TYPE,
			c.CHARACTER_MAXIMUM_LENGTH,
			c.NUMERIC_PRECISION,
			c.NUMERIC_SCALE,
			c.IS_NULLABLE,
			c.COLUMN_DEFAULT,
			CASE WHEN pk.COLUMN_NAME IS NOT NULL THEN 'PRI' ELSE '' END AS COLUMN_KEY
		FROM INFORMATION_SCHEMA.COLUMNS c
		LEFT JOIN (
			SELECT kcu.TABLE_NAME, kcu.COLUMN_NAME
			FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
			JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE kcu
				ON tc.CONSTRAINT_NAME = kcu.CONSTRAINT_NAME
			WHERE tc.CONSTRAINT_TYPE = 'PRIMARY KEY' AND tc.TABLE_SCHEMA = @p1
		) pk ON c.TABLE_NAME = pk.TABLE_NAME AND c.COLUMN_NAME = pk.COLUMN_NAME
		WHERE c.TABLE_SCHEMA = @p1 AND c.TABLE_NAME = @p2
		ORDER BY c.ORDINAL_POSITION
	`, []any{d.GetSchemaName(schema), table}
}

func (d *MSSQLDialect) GetForeignKeysQuery(schema, table string) (string, []any) {
	return `SELECT KCU1.CONSTRAINT_NAME, KCU1.COLUMN_NAME, KCU2.TABLE_NAME AS REF_TABLE, KCU2.COLUMN_NAME AS REF_COLUMN FROM INFORMATION_SCHEMA.REFERENTIAL_CONSTRAINTS RC JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE KCU1 ON RC.CONSTRAINT_NAME = KCU1.CONSTRAINT_NAME JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE KCU2 ON RC.UNIQUE_CONSTRAINT_NAME = KCU2.CONSTRAINT_NAME WHERE KCU1.TABLE_SCHEMA = @p1 AND KCU1.TABLE_NAME = @p2`,
		[]any{d.GetSchemaName(schema), table}
}

func (d *MSSQLDialect) AddColumnQuery(table string, col *schema.ColumnDescriptor) string {
	// T-SQL has no COLUMN keyword in ADD; NULL is spelled out because the
	// session default for ANSI_NULL_DFLT may be off.
	typ := typeClause(col, isSizedType, isMSSQLNumeric)
	return fmt.Sprintf("ALTER TABLE %s ADD %s", d.QuoteIdentifier(table), columnDefinition(d, col, typ, true))
}

func (d *MSSQLDialect) DropColumnQuery(table, column string) string {
	return fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", d.QuoteIdentifier(table), d.QuoteIdentifier(column))
}

func (d *MSSQLDialect) SelectQuery(table string, cols []string, where string, orderBy string) string {
	return defaultSelectQuery(d, table, cols, where, orderBy)
}

func (d *MSSQLDialect) InsertQuery(table string, cols []string, primaryKey string) (string, InsertMode) {
	vals := GeneratePlaceholders(len(cols), d.Placeholder)
	if primaryKey == "" {
		return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", d.QuoteIdentifier(table), strings.Join(quoteAll(d, cols), ", "), vals), InsertExec
	}
	return fmt.Sprintf("INSERT INTO %s (%s) OUTPUT INSERTED.%s VALUES (%s)",
		d.QuoteIdentifier(table), strings.Join(quoteAll(d, cols), ", "), d.QuoteIdentifier(primaryKey), vals), InsertReturning
}

func (d *MSSQLDialect) UpdateQuery(table string, cols []string, keyColumn string) string {
	return defaultUpdateQuery(d, table, cols, keyColumn)
}

func (d *MSSQLDialect) CountQuery(table string) string {
	return defaultCountQuery(d, table)
}

func (d *MSSQLDialect) Placeholder(index int) string {
	return fmt.Sprintf("@p%d", index+1)
}

func (d *MSSQLDialect) QuoteIdentifier(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

func (d *MSSQLDialect) NormalizeType(sqlType string) string {
	return DefaultNormalizeType(sqlType)
}

func (d *MSSQLDialect) GetSchemaName(input string) string {
	if input == "" {
		return "dbo"
	}
	return input
}

func (d *MSSQLDialect) GetLimitRowQuery(query string, limit int) string {
	// Simple T-SQL TOP injection
	trimmed := strings.TrimSpace(query)
	if strings.HasPrefix(strings.ToUpper(trimmed), "SELECT") {
		// Use Replace once. Note: this replaces the first occurrence.
		// If query is "SELECT ...", it becomes "SELECT TOP N ...".
		return strings.Replace(query, "SELECT", fmt.Sprintf("SELECT TOP %d", limit), 1)
	}
	return query
}

// mssqlConstraintErrors: not null, FK/check, duplicate key (constraint and index), truncation.
var mssqlConstraintErrors = map[int32]bool{
	515: true, 547: true, 2627: true, 2601: true, 8152: true, 2628: true,
}

func (d *MSSQLDialect) IsConstraintViolation(err error) bool {
	var msErr mssql.Error
	if errors.As(err, &msErr) {
		return mssqlConstraintErrors[msErr.Number]
	}
	var msErrPtr *mssql.Error
	if errors.As(err, &msErrPtr) {
		return mssqlConstraintErrors[msErrPtr.Number]
	}
	return false
}

func isMSSQLNumeric(base string) bool {
	return base == "decimal" || base == "numeric"
}
