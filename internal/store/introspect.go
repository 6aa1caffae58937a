package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"db-refactor/internal/dialect"
	"db-refactor/internal/refactor"
	"db-refactor/internal/schema"
)

// loadTable reads columns and foreign keys of one table.
func (s *Store) loadTable(ctx context.Context, q queryer, name string) (*schema.Table, error) {
	d := s.dialect
	t := &schema.Table{Name: name}

	// --- Step 1: Fetch Columns ---
	query, args := d.GetColumnsQuery(s.schemaName, name)
	colRows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, refactor.StorageError("query columns", name, err)
	}
	defer colRows.Close()

	var primaryKeys []string
	for colRows.Next() {
		var cName, dType, sqlType, cLen, cPrecision, cScale, isNull, cDefault, cKey sql.NullString
		if err := colRows.Scan(&cName, &dType, &sqlType, &cLen, &cPrecision, &cScale, &isNull, &cDefault, &cKey); err != nil {
			return nil, refactor.StorageError("scan column", name, err)
		}
		if !cName.Valid {
			continue // Skip invalid rows
		}

		col := &schema.ColumnDescriptor{
			Name:       cName.String,
			DataType:   d.NormalizeType(dType.String),
			SQLType:    sqlType.String,
			Limit:      parseSize(cLen),
			Precision:  parseSize(cPrecision),
			Scale:      parseSize(cScale),
			Nullable:   strings.EqualFold(isNull.String, "YES"),
			PrimaryKey: strings.Contains(cKey.String, "PRI"),
		}
		if cDefault.Valid {
			def := cDefault.String
			col.Default = &def
		}
		// Engines without separate size columns only report the declaration.
		if col.Limit == nil && col.Precision == nil && col.Scale == nil && col.SQLType != "" {
			_, col.Limit, col.Precision, col.Scale = dialect.ParseSQLType(col.SQLType)
		}
		if col.PrimaryKey {
			primaryKeys = append(primaryKeys, col.Name)
		}
		t.Columns = append(t.Columns, col)
	}
	if err := colRows.Err(); err != nil {
		return nil, refactor.StorageError("iterate columns", name, err)
	}
	if len(t.Columns) == 0 {
		return nil, refactor.SchemaError("describe table", name, "", errors.New("table does not exist"))
	}
	// Composite keys cannot be paged on a single column.
	if len(primaryKeys) == 1 {
		t.PrimaryKey = primaryKeys[0]
	}

	// --- Step 2: Fetch Foreign Keys ---
	query, args = d.GetForeignKeysQuery(s.schemaName, name)
	fkRows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, refactor.StorageError("query foreign keys", name, err)
	}
	defer fkRows.Close()

	for fkRows.Next() {
		var cConst, cName, rTable, rCol sql.NullString
		if err := fkRows.Scan(&cConst, &cName, &rTable, &rCol); err != nil {
			return nil, refactor.StorageError("scan foreign key", name, err)
		}
		if !cName.Valid || !rTable.Valid {
			continue
		}
		t.ForeignKeys = append(t.ForeignKeys, &schema.ForeignKey{
			Name:      cConst.String,
			Column:    cName.String,
			RefTable:  rTable.String,
			RefColumn: rCol.String,
		})
	}
	if err := fkRows.Err(); err != nil {
		return nil, refactor.StorageError("iterate foreign keys", name, err)
	}

	return t, nil
}

// parseSize reads an integer metadata value that drivers may report as
// "255", "255.0" or NULL.
func parseSize(v sql.NullString) *int64 {
	if !v.Valid || v.String == "" {
		return nil
	}
	var n int64
	if _, err := fmt.Sscanf(v.String, "%d", &n); err == nil {
		return &n
	}
	var f float64
	if _, err := fmt.Sscanf(v.String, "%f", &f); err == nil {
		n = int64(f)
		return &n
	}
	return nil
}
