package dialect

import (
	"fmt"
	"strconv"
	"strings"

	"db-refactor/internal/schema"
)

// GeneratePlaceholders is a helper function to create a slice of placeholder strings.
// It takes the number of placeholders needed and a function that returns the placeholder for a given index.
// It returns a comma-separated string of the generated placeholders.
func GeneratePlaceholders(count int, placeholderFunc func(int) string) string {
	placeholders := make([]string, count)
	for i := 0; i < count; i++ {
		placeholders[i] = placeholderFunc(i)
	}
	return strings.Join(placeholders, ", ")
}

// DefaultNormalizeType is a default implementation for type normalization (lowercase).
func DefaultNormalizeType(sqlType string) string {
	return strings.ToLower(strings.TrimSpace(sqlType))
}

// DefaultGetSchemaName is a default implementation for Getting Schema Name (identity).
func DefaultGetSchemaName(input string) string {
	return input
}

// ParseSQLType splits a declared type such as "DECIMAL(10, 2)" or
// "varchar(255)" into its base name and parameters. A single parameter is
// returned as limit for character/binary types and as precision otherwise.
func ParseSQLType(raw string) (base string, limit, precision, scale *int64) {
	raw = strings.TrimSpace(raw)
	open := strings.Index(raw, "(")
	if open < 0 || !strings.HasSuffix(raw, ")") {
		return strings.ToLower(raw), nil, nil, nil
	}
	base = strings.ToLower(strings.TrimSpace(raw[:open]))
	params := strings.Split(raw[open+1:len(raw)-1], ",")

	var nums []int64
	for _, p := range params {
		n, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return base, nil, nil, nil
		}
		nums = append(nums, n)
	}

	switch {
	case len(nums) == 1 && isSizedType(base):
		limit = &nums[0]
	case len(nums) == 1:
		precision = &nums[0]
	case len(nums) >= 2:
		precision, scale = &nums[0], &nums[1]
	}
	return base, limit, precision, scale
}

func isSizedType(base string) bool {
	return strings.Contains(base, "char") || strings.Contains(base, "binary") ||
		strings.Contains(base, "text") || strings.Contains(base, "blob") ||
		strings.Contains(base, "raw") || base == "bit" || base == "string"
}

// typeClause renders a column type from its parts when the engine did not
// report a full declaration.
func typeClause(col *schema.ColumnDescriptor, sized func(base string) bool, numeric func(base string) bool) string {
	if col.SQLType != "" {
		return col.SQLType
	}
	base := col.DataType
	switch {
	case col.Limit != nil && sized(base):
		if *col.Limit < 0 {
			return fmt.Sprintf("%s(max)", base)
		}
		return fmt.Sprintf("%s(%d)", base, *col.Limit)
	case col.Precision != nil && col.Scale != nil && numeric(base):
		return fmt.Sprintf("%s(%d,%d)", base, *col.Precision, *col.Scale)
	case col.Precision != nil && numeric(base):
		return fmt.Sprintf("%s(%d)", base, *col.Precision)
	}
	return base
}

// columnDefinition renders "<name> <type> [DEFAULT x] [NOT NULL|NULL]".
func columnDefinition(d Dialect, col *schema.ColumnDescriptor, typ string, explicitNull bool) string {
	var b strings.Builder
	b.WriteString(d.QuoteIdentifier(col.Name))
	b.WriteString(" ")
	b.WriteString(typ)
	if col.Default != nil {
		b.WriteString(" DEFAULT ")
		b.WriteString(*col.Default)
	}
	if !col.Nullable {
		b.WriteString(" NOT NULL")
	} else if explicitNull {
		b.WriteString(" NULL")
	}
	return b.String()
}

func quoteAll(d Dialect, cols []string) []string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = d.QuoteIdentifier(c)
	}
	return quoted
}

func defaultSelectQuery(d Dialect, table string, cols []string, where string, orderBy string) string {
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(quoteAll(d, cols), ", "), d.QuoteIdentifier(table))
	if where != "" {
		query += " WHERE " + where
	}
	if orderBy != "" {
		query += " ORDER BY " + d.QuoteIdentifier(orderBy)
	}
	return query
}

func defaultUpdateQuery(d Dialect, table string, cols []string, keyColumn string) string {
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = fmt.Sprintf("%s = %s", d.QuoteIdentifier(c), d.Placeholder(i))
	}
	return fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s",
		d.QuoteIdentifier(table), strings.Join(sets, ", "), d.QuoteIdentifier(keyColumn), d.Placeholder(len(cols)))
}

func defaultCountQuery(d Dialect, table string) string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s", d.QuoteIdentifier(table))
}
