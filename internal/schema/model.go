package schema

import "strings"

// Table is the cached structure of one database table.
type Table struct {
	Name        string
	PrimaryKey  string
	Columns     []*ColumnDescriptor
	ForeignKeys []*ForeignKey
}

// ColumnDescriptor is the storage definition of a column. It is copied
// field-for-field when a column is recreated on another table.
type ColumnDescriptor struct {
	Name       string  `yaml:"name" diff:"-"`
	DataType   string  `yaml:"type" diff:"type"`
	SQLType    string  `yaml:"sql_type,omitempty" diff:"sql_type"`
	Limit      *int64  `yaml:"limit,omitempty" diff:"limit"`
	Precision  *int64  `yaml:"precision,omitempty" diff:"precision"`
	Scale      *int64  `yaml:"scale,omitempty" diff:"scale"`
	Nullable   bool    `yaml:"null" diff:"null"`
	Default    *string `yaml:"default,omitempty" diff:"default"`
	PrimaryKey bool    `yaml:"primary,omitempty" diff:"-"`
}

type ForeignKey struct {
	Name      string
	Column    string
	RefTable  string
	RefColumn string
}

// Column looks up a column case-insensitively.
func (t *Table) Column(name string) (*ColumnDescriptor, bool) {
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return nil, false
}

// ColumnNames returns the column names in ordinal order.
func (t *Table) ColumnNames() []string {
	names := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		names = append(names, c.Name)
	}
	return names
}

// ForeignKeysTo returns the foreign keys of t that reference table.
func (t *Table) ForeignKeysTo(table string) []*ForeignKey {
	var fks []*ForeignKey
	for _, fk := range t.ForeignKeys {
		if strings.EqualFold(fk.RefTable, table) {
			fks = append(fks, fk)
		}
	}
	return fks
}

// Clone returns a copy that shares no pointers with d.
func (d *ColumnDescriptor) Clone() *ColumnDescriptor {
	c := *d
	c.Limit = cloneInt(d.Limit)
	c.Precision = cloneInt(d.Precision)
	c.Scale = cloneInt(d.Scale)
	if d.Default != nil {
		v := *d.Default
		c.Default = &v
	}
	return &c
}

// Equal reports whether both descriptors define the same storage shape.
// Name is compared case-insensitively; PrimaryKey is not part of the shape.
func (d *ColumnDescriptor) Equal(o *ColumnDescriptor) bool {
	if d == nil || o == nil {
		return d == o
	}
	return strings.EqualFold(d.Name, o.Name) &&
		d.DataType == o.DataType &&
		d.SQLType == o.SQLType &&
		equalInt(d.Limit, o.Limit) &&
		equalInt(d.Precision, o.Precision) &&
		equalInt(d.Scale, o.Scale) &&
		d.Nullable == o.Nullable &&
		equalString(d.Default, o.Default)
}

func cloneInt(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func equalInt(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalString(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Int64 returns a pointer to v, for building descriptors.
func Int64(v int64) *int64 { return &v }

// String returns a pointer to v, for building descriptors.
func String(v string) *string { return &v }
