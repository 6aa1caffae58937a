package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"db-refactor/internal/dialect"
	"db-refactor/internal/refactor"
	"db-refactor/internal/schema"
)

// session implements the row operations over either the pool or a transaction.
type session struct {
	store *Store
	q     queryer
}

// FetchPage returns up to page.Limit rows of table ordered by page.OrderBy,
// starting after page.After when page.HasAfter is set.
func (ss session) FetchPage(ctx context.Context, table string, page schema.PageRequest) ([]*schema.Row, error) {
	s := ss.store
	t, err := s.table(ctx, ss.q, table)
	if err != nil {
		return nil, err
	}

	orderBy := page.OrderBy
	if orderBy == "" {
		orderBy = t.PrimaryKey
	}
	if orderBy == "" {
		return nil, refactor.SchemaError("fetch page", t.Name, "", errors.New("no column to order by"))
	}

	var where string
	var args []any
	if page.HasAfter {
		where = s.dialect.QuoteIdentifier(orderBy) + " > " + s.dialect.Placeholder(0)
		args = append(args, page.After)
	}
	query := s.dialect.SelectQuery(t.Name, t.ColumnNames(), where, orderBy)
	if page.Limit > 0 {
		query = s.dialect.GetLimitRowQuery(query, page.Limit)
	}

	rows, err := ss.query(ctx, t, query, args...)
	if err != nil {
		return nil, refactor.StorageError("fetch page", t.Name, err)
	}

	if page.Include != nil && len(rows) > 0 {
		if err := ss.preload(ctx, rows, page.Include); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

// preload loads assoc for every row of a page in one query.
func (ss session) preload(ctx context.Context, rows []*schema.Row, assoc *schema.Association) error {
	s := ss.store
	t, err := s.table(ctx, ss.q, assoc.Table)
	if err != nil {
		return err
	}

	// ownerKey is read on the source rows, matchKey on the associated rows.
	ownerKey, matchKey := assoc.OwnerKey, assoc.ForeignKey
	if assoc.Kind == schema.BelongsTo {
		ownerKey, matchKey = assoc.ForeignKey, assoc.OwnerKey
	}

	var keys []any
	seen := make(map[string]bool)
	for _, r := range rows {
		v, _ := r.Get(ownerKey)
		if v == nil {
			continue
		}
		if seen[keyString(v)] {
			// Two owners naming the same row is not a 1:1 association.
			if assoc.Kind == schema.BelongsTo {
				return refactor.AssociationError("preload "+assoc.Name, t.Name,
					errors.Errorf("more than one %s row has %s = %v", r.Table, ownerKey, v))
			}
			continue
		}
		seen[keyString(v)] = true
		keys = append(keys, v)
	}

	matches := make(map[string]*schema.Row)
	if len(keys) > 0 {
		where := fmt.Sprintf("%s IN (%s)", s.dialect.QuoteIdentifier(matchKey),
			dialect.GeneratePlaceholders(len(keys), s.dialect.Placeholder))
		query := s.dialect.SelectQuery(t.Name, t.ColumnNames(), where, t.PrimaryKey)
		found, err := ss.query(ctx, t, query, keys...)
		if err != nil {
			return refactor.StorageError("preload "+assoc.Name, t.Name, err)
		}
		for _, r := range found {
			v, _ := r.Get(matchKey)
			k := keyString(v)
			if _, dup := matches[k]; dup {
				return refactor.AssociationError("preload "+assoc.Name, t.Name,
					errors.Errorf("more than one row has %s = %v", matchKey, v))
			}
			matches[k] = r
		}
	}

	for _, r := range rows {
		v, _ := r.Get(ownerKey)
		if v == nil {
			r.SetAssociated(assoc.Name, nil)
			continue
		}
		r.SetAssociated(assoc.Name, matches[keyString(v)])
	}
	return nil
}

// LoadAssociation returns the row associated with row, or nil when there is
// none. The result is cached on row.
func (ss session) LoadAssociation(ctx context.Context, row *schema.Row, assoc *schema.Association) (*schema.Row, error) {
	if cached, ok := row.Associated(assoc.Name); ok {
		return cached, nil
	}

	s := ss.store
	t, err := s.table(ctx, ss.q, assoc.Table)
	if err != nil {
		return nil, err
	}

	column, key := assoc.ForeignKey, assoc.OwnerKey
	if assoc.Kind == schema.BelongsTo {
		column, key = assoc.OwnerKey, assoc.ForeignKey
	}
	value, _ := row.Get(key)
	if value == nil {
		row.SetAssociated(assoc.Name, nil)
		return nil, nil
	}

	where := s.dialect.QuoteIdentifier(column) + " = " + s.dialect.Placeholder(0)
	query := s.dialect.GetLimitRowQuery(s.dialect.SelectQuery(t.Name, t.ColumnNames(), where, t.PrimaryKey), 2)
	found, err := ss.query(ctx, t, query, value)
	if err != nil {
		return nil, refactor.StorageError("load "+assoc.Name, t.Name, err)
	}
	if len(found) > 1 {
		return nil, refactor.AssociationError("load "+assoc.Name, t.Name,
			errors.Errorf("more than one row has %s = %v", column, value))
	}

	var referenced *schema.Row
	if len(found) == 1 {
		referenced = found[0]
	}
	row.SetAssociated(assoc.Name, referenced)
	return referenced, nil
}

// BuildAssociated returns a new, unsaved row of assoc.Table linked to row
// and caches it on row.
func (ss session) BuildAssociated(row *schema.Row, assoc *schema.Association) *schema.Row {
	var pk string
	if t, ok := ss.store.cache.Cached(assoc.Table); ok {
		pk = t.PrimaryKey
	}
	built := schema.NewRow(assoc.Table, pk)

	switch assoc.Kind {
	case schema.HasOne:
		v, _ := row.Get(assoc.OwnerKey)
		built.Set(assoc.ForeignKey, v)
	case schema.BelongsTo:
		built.LinkOwner(row, assoc.ForeignKey)
	}
	row.SetAssociated(assoc.Name, built)
	return built
}

// Save inserts an unsaved row or updates the changed columns of a persisted
// one. A row built through a belongs-to association also writes its key to
// the owner row.
func (ss session) Save(ctx context.Context, row *schema.Row) error {
	s := ss.store
	t, err := s.table(ctx, ss.q, row.Table)
	if err != nil {
		return err
	}
	if row.PrimaryKey == "" {
		row.PrimaryKey = t.PrimaryKey
	}

	changed := row.Changed()
	for i, c := range changed {
		col, ok := t.Column(c)
		if !ok {
			return refactor.SchemaError("save", t.Name, c, errors.New("unknown attribute"))
		}
		changed[i] = col.Name
	}

	if row.Persisted() {
		return ss.update(ctx, t, row, changed)
	}
	return ss.insert(ctx, t, row, changed)
}

func (ss session) insert(ctx context.Context, t *schema.Table, row *schema.Row, columns []string) error {
	s := ss.store

	var cols []string
	var args []any
	for _, c := range columns {
		v, _ := row.Get(c)
		if v == nil && strings.EqualFold(c, t.PrimaryKey) {
			continue
		}
		cols = append(cols, c)
		args = append(args, v)
	}
	if len(cols) == 0 {
		return refactor.ValidationError("insert", t.Name, errors.New("row has no values"))
	}

	query, mode := s.dialect.InsertQuery(t.Name, cols, t.PrimaryKey)
	s.logger.Debug("exec", zap.String("query", query), zap.Int("args", len(args)))

	var id any
	switch mode {
	case dialect.InsertReturning:
		if err := ss.q.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
			return ss.classify("insert", t.Name, err)
		}
	case dialect.InsertLastID:
		res, err := ss.q.ExecContext(ctx, query, args...)
		if err != nil {
			return ss.classify("insert", t.Name, err)
		}
		if t.PrimaryKey != "" {
			if last, err := res.LastInsertId(); err == nil {
				id = last
			}
		}
	default:
		if _, err := ss.q.ExecContext(ctx, query, args...); err != nil {
			return ss.classify("insert", t.Name, err)
		}
	}
	row.MarkSaved(id)

	owner, column := row.Owner()
	if owner == nil {
		return nil
	}
	key := row.ID()
	if key == nil {
		return refactor.StorageError("link owner", t.Name,
			errors.Errorf("%s does not report the key of inserted rows", s.dialect.Name()))
	}
	owner.Set(column, key)
	if err := ss.Save(ctx, owner); err != nil {
		return err
	}
	row.ClearOwner()
	return nil
}

func (ss session) update(ctx context.Context, t *schema.Table, row *schema.Row, columns []string) error {
	if len(columns) == 0 {
		return nil
	}
	s := ss.store
	if t.PrimaryKey == "" {
		return refactor.SchemaError("update", t.Name, "", errors.New("table has no primary key"))
	}
	id := row.ID()
	if id == nil {
		return refactor.StorageError("update", t.Name, errors.New("persisted row has no key"))
	}

	args := make([]any, 0, len(columns)+1)
	for _, c := range columns {
		v, _ := row.Get(c)
		args = append(args, v)
	}
	args = append(args, id)

	query := s.dialect.UpdateQuery(t.Name, columns, t.PrimaryKey)
	s.logger.Debug("exec", zap.String("query", query), zap.Int("args", len(args)))
	if _, err := ss.q.ExecContext(ctx, query, args...); err != nil {
		return ss.classify("update", t.Name, err)
	}
	row.MarkSaved(nil)
	return nil
}

// query runs a SELECT over all columns of t and returns the loaded rows.
func (ss session) query(ctx context.Context, t *schema.Table, query string, args ...any) ([]*schema.Row, error) {
	ss.store.logger.Debug("query", zap.String("query", query), zap.Int("args", len(args)))

	rs, err := ss.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rs.Close()

	names := t.ColumnNames()
	var rows []*schema.Row
	for rs.Next() {
		values := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rs.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = append([]byte(nil), b...)
			}
		}
		rows = append(rows, schema.LoadedRow(t.Name, t.PrimaryKey, names, values))
	}
	return rows, rs.Err()
}

// classify turns a driver error from a write into a validation or storage error.
func (ss session) classify(op, table string, err error) error {
	if ss.store.dialect.IsConstraintViolation(err) {
		return refactor.ValidationError(op, table, err)
	}
	return refactor.StorageError(op, table, err)
}

// keyString makes key values from different scans comparable.
func keyString(v any) string {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return fmt.Sprint(v)
}
