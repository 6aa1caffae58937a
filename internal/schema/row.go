package schema

import "strings"

// AssociationKind tells on which side of a 1:1 association the foreign key lives.
type AssociationKind int

const (
	// HasOne keeps the foreign key on the associated (target) table.
	HasOne AssociationKind = iota
	// BelongsTo keeps the foreign key on the owning (source) table.
	BelongsTo
)

func (k AssociationKind) String() string {
	if k == BelongsTo {
		return "belongs_to"
	}
	return "has_one"
}

// Association navigates from a row of the owning table to its single
// associated row in Table.
//
// For HasOne, Table.ForeignKey = owner.OwnerKey.
// For BelongsTo, owner.ForeignKey = Table.OwnerKey.
type Association struct {
	Name       string
	Kind       AssociationKind
	Table      string
	ForeignKey string
	OwnerKey   string
}

// PageRequest describes one page of an ordered table walk.
type PageRequest struct {
	OrderBy  string
	After    any
	HasAfter bool
	Limit    int
	Include  *Association
}

// Row is one record of a table. Values are kept as scanned from the driver.
type Row struct {
	Table      string
	PrimaryKey string

	values    map[string]any
	order     []string
	changed   map[string]bool
	persisted bool

	associations map[string]*Row
	loaded       map[string]bool

	// owner is set on rows built through a BelongsTo association: after
	// insert, owner[ownerColumn] must be set to this row's key.
	owner       *Row
	ownerColumn string
}

// NewRow returns an unsaved row for table.
func NewRow(table, primaryKey string) *Row {
	return &Row{
		Table:      table,
		PrimaryKey: primaryKey,
		values:     make(map[string]any),
		changed:    make(map[string]bool),
	}
}

// LoadedRow returns a persisted row holding the given column values.
func LoadedRow(table, primaryKey string, columns []string, values []any) *Row {
	r := NewRow(table, primaryKey)
	for i, c := range columns {
		r.values[c] = values[i]
		r.order = append(r.order, c)
	}
	r.persisted = true
	return r
}

// ID returns the primary key value, or nil for an unsaved row.
func (r *Row) ID() any {
	v, _ := r.Get(r.PrimaryKey)
	return v
}

// Get returns the value of column, matching the name case-insensitively.
func (r *Row) Get(column string) (any, bool) {
	if v, ok := r.values[column]; ok {
		return v, true
	}
	for _, c := range r.order {
		if strings.EqualFold(c, column) {
			return r.values[c], true
		}
	}
	return nil, false
}

// Set assigns a value and marks the column changed.
func (r *Row) Set(column string, value any) {
	for _, c := range r.order {
		if strings.EqualFold(c, column) {
			column = c
			break
		}
	}
	if _, ok := r.values[column]; !ok {
		r.order = append(r.order, column)
	}
	r.values[column] = value
	r.changed[column] = true
}

// Columns returns the names of all columns present on the row.
func (r *Row) Columns() []string {
	return append([]string(nil), r.order...)
}

// Changed returns the columns assigned since the row was loaded or saved, in
// assignment order.
func (r *Row) Changed() []string {
	var cols []string
	for _, c := range r.order {
		if r.changed[c] {
			cols = append(cols, c)
		}
	}
	return cols
}

// Persisted reports whether the row exists in the database.
func (r *Row) Persisted() bool { return r.persisted }

// MarkSaved records a successful write; id is stored when the row had no key.
func (r *Row) MarkSaved(id any) {
	if id != nil && r.PrimaryKey != "" {
		if cur, _ := r.Get(r.PrimaryKey); cur == nil {
			r.Set(r.PrimaryKey, id)
		}
	}
	r.persisted = true
	r.changed = make(map[string]bool)
}

// Associated returns the cached associated row and whether the association
// has been loaded or built on this row.
func (r *Row) Associated(name string) (*Row, bool) {
	if !r.loaded[name] {
		return nil, false
	}
	return r.associations[name], true
}

// SetAssociated caches the associated row (nil for "none").
func (r *Row) SetAssociated(name string, row *Row) {
	if r.associations == nil {
		r.associations = make(map[string]*Row)
		r.loaded = make(map[string]bool)
	}
	r.associations[name] = row
	r.loaded[name] = true
}

// LinkOwner records that owner[column] must receive this row's key once it is inserted.
func (r *Row) LinkOwner(owner *Row, column string) {
	r.owner = owner
	r.ownerColumn = column
}

// Owner returns the pending owner link set by LinkOwner.
func (r *Row) Owner() (*Row, string) {
	return r.owner, r.ownerColumn
}

// ClearOwner drops the pending owner link.
func (r *Row) ClearOwner() {
	r.owner = nil
	r.ownerColumn = ""
}
