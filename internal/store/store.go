package store

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"db-refactor/internal/dialect"
	"db-refactor/internal/refactor"
	"db-refactor/internal/schema"
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Store runs refactoring operations against a database/sql connection. It
// owns the schema cache; nothing refreshes it except RefreshSchemaCache.
type Store struct {
	db         *sql.DB
	dialect    dialect.Dialect
	schemaName string
	cache      *schema.Cache
	logger     *zap.Logger

	session
}

// New returns a Store for db. schemaName is passed to the dialect's
// introspection queries (database name on MySQL, schema elsewhere).
func New(db *sql.DB, d dialect.Dialect, schemaName string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		db:         db,
		dialect:    d,
		schemaName: d.GetSchemaName(schemaName),
		cache:      schema.NewCache(),
		logger:     logger,
	}
	s.session = session{store: s, q: db}
	return s
}

var (
	_ refactor.Storage     = (*Store)(nil)
	_ refactor.Transaction = (*Tx)(nil)
)

// Dialect returns the dialect the store renders SQL with.
func (s *Store) Dialect() dialect.Dialect { return s.dialect }

func (s *Store) DescribeTable(ctx context.Context, table string) (*schema.Table, error) {
	return s.table(ctx, s.db, table)
}

func (s *Store) DescribeColumn(ctx context.Context, table, column string) (*schema.ColumnDescriptor, error) {
	t, err := s.table(ctx, s.db, table)
	if err != nil {
		return nil, err
	}
	col, ok := t.Column(column)
	if !ok {
		return nil, refactor.SchemaError("describe column", t.Name, column, errors.New("column does not exist"))
	}
	return col.Clone(), nil
}

// CreateColumn adds col to table. The schema cache is not refreshed.
func (s *Store) CreateColumn(ctx context.Context, table string, col *schema.ColumnDescriptor) error {
	t, err := s.table(ctx, s.db, table)
	if err != nil {
		return err
	}
	query := s.dialect.AddColumnQuery(t.Name, col)
	s.logger.Debug("exec", zap.String("query", query))
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return refactor.SchemaError("create column", t.Name, col.Name, err)
	}
	return nil
}

// DropColumn removes column from table. The schema cache is not refreshed.
func (s *Store) DropColumn(ctx context.Context, table, column string) error {
	query := s.dialect.DropColumnQuery(table, column)
	s.logger.Debug("exec", zap.String("query", query))
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return refactor.StorageError("drop column", table, err)
	}
	return nil
}

func (s *Store) RefreshSchemaCache(table string) {
	s.cache.Refresh(table)
}

func (s *Store) CountRows(ctx context.Context, table string) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, s.dialect.CountQuery(table)).Scan(&count); err != nil {
		return 0, refactor.StorageError("count rows", table, err)
	}
	return count, nil
}

// NewRow returns an unsaved row of table.
func (s *Store) NewRow(ctx context.Context, table string) (*schema.Row, error) {
	t, err := s.table(ctx, s.db, table)
	if err != nil {
		return nil, err
	}
	return schema.NewRow(t.Name, t.PrimaryKey), nil
}

// Begin starts the transaction row operations run in.
func (s *Store) Begin(ctx context.Context) (refactor.Transaction, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, refactor.StorageError("begin", "", err)
	}
	return &Tx{session: session{store: s, q: tx}, tx: tx}, nil
}

// Tx is a Store transaction. Schema metadata missing from the cache is
// loaded through the transaction's own connection.
type Tx struct {
	session
	tx *sql.Tx
}

func (t *Tx) Commit() error { return t.tx.Commit() }

func (t *Tx) Rollback() error { return t.tx.Rollback() }

// Savepoint runs fn inside a savepoint when the dialect has them. If fn
// fails, its writes are undone and the transaction stays usable.
func (t *Tx) Savepoint(ctx context.Context, name string, fn func() error) error {
	sp, ok := t.store.dialect.(dialect.Savepointer)
	if !ok {
		return fn()
	}
	if _, err := t.tx.ExecContext(ctx, sp.SavepointQuery(name)); err != nil {
		return refactor.StorageError("savepoint", name, err)
	}
	if err := fn(); err != nil {
		if _, rbErr := t.tx.ExecContext(ctx, sp.RollbackToSavepointQuery(name)); rbErr != nil {
			return refactor.StorageError("rollback to savepoint", name, rbErr)
		}
		if _, relErr := t.tx.ExecContext(ctx, sp.ReleaseSavepointQuery(name)); relErr != nil {
			return refactor.StorageError("release savepoint", name, relErr)
		}
		return err
	}
	if _, err := t.tx.ExecContext(ctx, sp.ReleaseSavepointQuery(name)); err != nil {
		return refactor.StorageError("release savepoint", name, err)
	}
	return nil
}

func (s *Store) table(ctx context.Context, q queryer, name string) (*schema.Table, error) {
	return s.cache.Table(ctx, name, func(ctx context.Context, name string) (*schema.Table, error) {
		return s.loadTable(ctx, q, name)
	})
}
