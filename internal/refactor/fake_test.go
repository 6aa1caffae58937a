package refactor_test

import (
	"context"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"db-refactor/internal/refactor"
	"db-refactor/internal/schema"
)

// memStore is an in-memory refactor.Storage that records what it was asked to do.
type memStore struct {
	tables map[string]*schema.Table
	data   map[string][]map[string]any
	nextID map[string]int64

	pages     []schema.PageRequest
	created   []string
	dropped   []string
	refreshed []string
	saves     int
	// failSave makes the n-th Save (1-based) fail.
	failSave int
	// failCreate and failDrop name a "table.column" whose DDL fails.
	failCreate string
	failDrop   string
}

func newMemStore() *memStore {
	return &memStore{
		tables: make(map[string]*schema.Table),
		data:   make(map[string][]map[string]any),
		nextID: make(map[string]int64),
	}
}

func (m *memStore) addTable(t *schema.Table) {
	m.tables[strings.ToLower(t.Name)] = t
}

func (m *memStore) insertRaw(table string, values map[string]any) {
	id := values["id"].(int64)
	if id > m.nextID[table] {
		m.nextID[table] = id
	}
	m.data[table] = append(m.data[table], values)
}

func (m *memStore) find(table string, column string, value any) []map[string]any {
	var out []map[string]any
	for _, r := range m.data[table] {
		if r[column] != nil && r[column] == value {
			out = append(out, r)
		}
	}
	return out
}

func (m *memStore) DescribeTable(ctx context.Context, table string) (*schema.Table, error) {
	t, ok := m.tables[strings.ToLower(table)]
	if !ok {
		return nil, refactor.SchemaError("describe table", table, "", errors.New("table does not exist"))
	}
	return t, nil
}

func (m *memStore) DescribeColumn(ctx context.Context, table, column string) (*schema.ColumnDescriptor, error) {
	t, err := m.DescribeTable(ctx, table)
	if err != nil {
		return nil, err
	}
	c, ok := t.Column(column)
	if !ok {
		return nil, refactor.SchemaError("describe column", table, column, errors.New("column does not exist"))
	}
	return c.Clone(), nil
}

func (m *memStore) CreateColumn(ctx context.Context, table string, col *schema.ColumnDescriptor) error {
	t, err := m.DescribeTable(ctx, table)
	if err != nil {
		return err
	}
	if strings.EqualFold(m.failCreate, table+"."+col.Name) {
		return errors.New("lock wait timeout exceeded")
	}
	t.Columns = append(t.Columns, col.Clone())
	m.created = append(m.created, table+"."+col.Name)
	return nil
}

func (m *memStore) DropColumn(ctx context.Context, table, column string) error {
	t, err := m.DescribeTable(ctx, table)
	if err != nil {
		return err
	}
	if strings.EqualFold(m.failDrop, table+"."+column) {
		return errors.New("lock wait timeout exceeded")
	}
	var kept []*schema.ColumnDescriptor
	for _, c := range t.Columns {
		if !strings.EqualFold(c.Name, column) {
			kept = append(kept, c)
		}
	}
	t.Columns = kept
	for _, r := range m.data[t.Name] {
		delete(r, column)
	}
	m.dropped = append(m.dropped, table+"."+column)
	return nil
}

func (m *memStore) RefreshSchemaCache(table string) {
	m.refreshed = append(m.refreshed, table)
}

func (m *memStore) CountRows(ctx context.Context, table string) (int, error) {
	return len(m.data[table]), nil
}

// Begin snapshots all rows; Commit swaps the snapshot in.
func (m *memStore) Begin(ctx context.Context) (refactor.Transaction, error) {
	snapshot := make(map[string][]map[string]any)
	for table, rows := range m.data {
		for _, r := range rows {
			cp := make(map[string]any, len(r))
			for k, v := range r {
				cp[k] = v
			}
			snapshot[table] = append(snapshot[table], cp)
		}
	}
	ids := make(map[string]int64)
	for k, v := range m.nextID {
		ids[k] = v
	}
	tx := &memTx{parent: m, view: newMemStore()}
	tx.view.tables = m.tables
	tx.view.data = snapshot
	tx.view.nextID = ids
	return tx, nil
}

type memTx struct {
	parent     *memStore
	view       *memStore
	done       bool
	rolledBack bool
}

func (tx *memTx) Commit() error {
	if tx.done {
		return errors.New("transaction already finished")
	}
	tx.done = true
	tx.parent.data = tx.view.data
	tx.parent.nextID = tx.view.nextID
	return nil
}

func (tx *memTx) Rollback() error {
	if tx.done {
		return errors.New("transaction already finished")
	}
	tx.done = true
	tx.rolledBack = true
	return nil
}

func (tx *memTx) load(t *schema.Table, r map[string]any) *schema.Row {
	names := t.ColumnNames()
	values := make([]any, len(names))
	for i, n := range names {
		values[i] = r[n]
	}
	return schema.LoadedRow(t.Name, t.PrimaryKey, names, values)
}

func (tx *memTx) FetchPage(ctx context.Context, table string, page schema.PageRequest) ([]*schema.Row, error) {
	tx.parent.pages = append(tx.parent.pages, page)
	t, err := tx.view.DescribeTable(ctx, table)
	if err != nil {
		return nil, err
	}

	rows := append([]map[string]any(nil), tx.view.data[t.Name]...)
	sort.Slice(rows, func(i, j int) bool {
		return rows[i][page.OrderBy].(int64) < rows[j][page.OrderBy].(int64)
	})

	var out []*schema.Row
	for _, r := range rows {
		if page.HasAfter && r[page.OrderBy].(int64) <= page.After.(int64) {
			continue
		}
		if page.Limit > 0 && len(out) == page.Limit {
			break
		}
		out = append(out, tx.load(t, r))
	}
	return out, nil
}

func (tx *memTx) LoadAssociation(ctx context.Context, row *schema.Row, assoc *schema.Association) (*schema.Row, error) {
	if cached, ok := row.Associated(assoc.Name); ok {
		return cached, nil
	}
	t, err := tx.view.DescribeTable(ctx, assoc.Table)
	if err != nil {
		return nil, err
	}

	column, key := assoc.ForeignKey, assoc.OwnerKey
	if assoc.Kind == schema.BelongsTo {
		column, key = assoc.OwnerKey, assoc.ForeignKey
	}
	value, _ := row.Get(key)
	found := tx.view.find(t.Name, column, value)
	if len(found) > 1 {
		return nil, refactor.AssociationError("load", t.Name, errors.New("more than one associated row"))
	}
	var referenced *schema.Row
	if len(found) == 1 {
		referenced = tx.load(t, found[0])
	}
	row.SetAssociated(assoc.Name, referenced)
	return referenced, nil
}

func (tx *memTx) BuildAssociated(row *schema.Row, assoc *schema.Association) *schema.Row {
	built := schema.NewRow(assoc.Table, "id")
	if assoc.Kind == schema.HasOne {
		v, _ := row.Get(assoc.OwnerKey)
		built.Set(assoc.ForeignKey, v)
	} else {
		built.LinkOwner(row, assoc.ForeignKey)
	}
	row.SetAssociated(assoc.Name, built)
	return built
}

func (tx *memTx) Save(ctx context.Context, row *schema.Row) error {
	tx.parent.saves++
	if tx.parent.failSave > 0 && tx.parent.saves == tx.parent.failSave {
		return refactor.ValidationError("save", row.Table, errors.New("value too long"))
	}
	t, err := tx.view.DescribeTable(ctx, row.Table)
	if err != nil {
		return err
	}
	for _, c := range row.Changed() {
		if _, ok := t.Column(c); !ok {
			return refactor.SchemaError("save", t.Name, c, errors.New("unknown attribute"))
		}
	}

	if row.Persisted() {
		id := row.ID()
		for _, r := range tx.view.data[t.Name] {
			if r["id"] == id {
				for _, c := range row.Changed() {
					r[c], _ = row.Get(c)
				}
			}
		}
		row.MarkSaved(nil)
		return nil
	}

	tx.view.nextID[t.Name]++
	id := tx.view.nextID[t.Name]
	values := map[string]any{"id": id}
	for _, c := range row.Changed() {
		values[c], _ = row.Get(c)
	}
	tx.view.data[t.Name] = append(tx.view.data[t.Name], values)
	row.MarkSaved(id)

	if owner, column := row.Owner(); owner != nil {
		tx.parent.saves--
		owner.Set(column, id)
		if err := tx.Save(ctx, owner); err != nil {
			return err
		}
		row.ClearOwner()
	}
	return nil
}
