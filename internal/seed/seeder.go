package seed

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"db-refactor/internal/refactor"
	"db-refactor/internal/schema"
)

// Target is the part of the store the seeder writes through.
type Target interface {
	DescribeTable(ctx context.Context, table string) (*schema.Table, error)
	NewRow(ctx context.Context, table string) (*schema.Row, error)
	Begin(ctx context.Context) (refactor.Transaction, error)
}

// Result reports one seeded table.
type Result struct {
	Table    string
	Inserted int
	Failed   int
}

// Seed inserts count generated rows into table in one transaction.
//
// Foreign key columns take the keys of the referenced table in order, so a
// table seeded with count <= len(referenced) gets a distinct parent per row,
// as a 1:1 child table needs.
func Seed(ctx context.Context, target Target, table string, count int, logger *zap.Logger, onProgress func()) (result *Result, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	t, err := target.DescribeTable(ctx, table)
	if err != nil {
		return nil, err
	}

	tx, err := target.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Warn("rollback failed", zap.Error(rbErr))
			}
		}
	}()

	pools := make(map[string][]any)
	for _, fk := range t.ForeignKeys {
		if pools[fk.Column], err = collectKeys(ctx, tx, fk); err != nil {
			return nil, err
		}
	}

	result = &Result{Table: t.Name}
	for i := 0; i < count; i++ {
		row, err := target.NewRow(ctx, t.Name)
		if err != nil {
			return nil, err
		}
		if err := fill(row, t, pools, i); err != nil {
			return nil, err
		}
		if err := saveRow(ctx, tx, row); err != nil {
			if errors.Is(err, refactor.ErrValidation) {
				// A generated value broke a constraint; drop just this row.
				result.Failed++
				if result.Failed <= 3 {
					logger.Debug("seed row rejected", zap.String("table", t.Name), zap.Error(err))
				}
				continue
			}
			return nil, err
		}
		result.Inserted++
		if onProgress != nil {
			onProgress()
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, refactor.StorageError("commit", t.Name, err)
	}
	logger.Info("seeded table",
		zap.String("table", t.Name),
		zap.Int("inserted", result.Inserted),
		zap.Int("failed", result.Failed))
	return result, nil
}

// savepointer lets a rejected row be undone without losing the transaction.
type savepointer interface {
	Savepoint(ctx context.Context, name string, fn func() error) error
}

func saveRow(ctx context.Context, tx refactor.Transaction, row *schema.Row) error {
	save := func() error { return tx.Save(ctx, row) }
	if sp, ok := tx.(savepointer); ok {
		return sp.Savepoint(ctx, "seed_row", save)
	}
	return save()
}

func fill(row *schema.Row, t *schema.Table, pools map[string][]any, index int) error {
	for _, col := range t.Columns {
		if col.PrimaryKey {
			continue
		}
		if pool, ok := pools[col.Name]; ok {
			switch {
			case len(pool) > 0:
				row.Set(col.Name, pool[index%len(pool)])
			case col.Nullable:
				row.Set(col.Name, nil)
			default:
				return refactor.ValidationError("seed", t.Name,
					errors.Errorf("column %s references an empty table", col.Name))
			}
			continue
		}
		if isForeignKeyName(col.Name) {
			// Undeclared reference: assume the parent keys are sequential from 1.
			row.Set(col.Name, index+1)
			continue
		}
		row.Set(col.Name, GenerateValue(col))
	}
	return nil
}

func isForeignKeyName(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), "_id")
}

// collectKeys walks the referenced table and returns its key values in order.
func collectKeys(ctx context.Context, rows refactor.RowStore, fk *schema.ForeignKey) ([]any, error) {
	var keys []any
	for row, err := range refactor.Walk(ctx, rows, fk.RefTable, refactor.WalkOptions{OrderBy: fk.RefColumn}) {
		if err != nil {
			return nil, err
		}
		v, _ := row.Get(fk.RefColumn)
		keys = append(keys, v)
	}
	return keys, nil
}
