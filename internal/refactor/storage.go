package refactor

import (
	"context"

	"db-refactor/internal/schema"
)

// SchemaStore covers the structural operations. They are not transactional.
type SchemaStore interface {
	DescribeTable(ctx context.Context, table string) (*schema.Table, error)
	DescribeColumn(ctx context.Context, table, column string) (*schema.ColumnDescriptor, error)
	CreateColumn(ctx context.Context, table string, column *schema.ColumnDescriptor) error
	DropColumn(ctx context.Context, table, column string) error
	RefreshSchemaCache(table string)
	CountRows(ctx context.Context, table string) (int, error)
}

// RowStore reads and writes rows.
type RowStore interface {
	FetchPage(ctx context.Context, table string, page schema.PageRequest) ([]*schema.Row, error)
	LoadAssociation(ctx context.Context, row *schema.Row, assoc *schema.Association) (*schema.Row, error)
	BuildAssociated(row *schema.Row, assoc *schema.Association) *schema.Row
	Save(ctx context.Context, row *schema.Row) error
}

// Transaction is a RowStore whose writes become durable on Commit.
type Transaction interface {
	RowStore
	Commit() error
	Rollback() error
}

// Storage is the full adapter consumed by the Mover.
type Storage interface {
	SchemaStore
	Begin(ctx context.Context) (Transaction, error)
}
