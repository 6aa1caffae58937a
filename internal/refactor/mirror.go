package refactor

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/r3labs/diff/v2"
	"go.uber.org/zap"

	"db-refactor/internal/schema"
)

// MirrorColumn creates column of sourceTable on targetTable with the same
// type and attributes, then refreshes the target's schema cache.
//
// A target column that already exists with an identical definition is left
// alone so an interrupted move can be run again. Any other existing column
// of that name is a conflict.
func MirrorColumn(ctx context.Context, store SchemaStore, sourceTable, column, targetTable string, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	moving, err := store.DescribeColumn(ctx, sourceTable, column)
	if err != nil {
		return StorageError("describe source column", sourceTable, err)
	}
	if moving.PrimaryKey {
		return SchemaError("mirror", sourceTable, column, errors.New("cannot move a primary key column"))
	}

	target, err := store.DescribeTable(ctx, targetTable)
	if err != nil {
		return StorageError("describe target table", targetTable, err)
	}
	if existing, ok := target.Column(moving.Name); ok {
		if existing.Equal(moving) {
			logger.Info("target column already present, skipping create",
				zap.String("table", targetTable), zap.String("column", existing.Name))
			return nil
		}
		return SchemaError("mirror", targetTable, moving.Name,
			errors.Errorf("column already exists with a different definition (%s)", DescribeDifference(existing, moving)))
	}

	def := moving.Clone()
	def.PrimaryKey = false
	if err := store.CreateColumn(ctx, targetTable, def); err != nil {
		return StorageError("create column", targetTable, err)
	}
	store.RefreshSchemaCache(targetTable)

	logger.Info("created target column",
		zap.String("table", targetTable),
		zap.String("column", def.Name),
		zap.String("type", def.DataType))
	return nil
}

// DescribeDifference lists the attributes in which two descriptors differ,
// e.g. "limit: 255 -> 100, null: true -> false".
func DescribeDifference(from, to *schema.ColumnDescriptor) string {
	changes, err := diff.Diff(from, to)
	if err != nil {
		return err.Error()
	}
	if len(changes) == 0 {
		return "no attribute differences"
	}
	parts := make([]string, 0, len(changes))
	for _, c := range changes {
		parts = append(parts, fmt.Sprintf("%s: %v -> %v", strings.Join(c.Path, "."), deref(c.From), deref(c.To)))
	}
	return strings.Join(parts, ", ")
}

func deref(v any) any {
	switch p := v.(type) {
	case *int64:
		if p == nil {
			return nil
		}
		return *p
	case *string:
		if p == nil {
			return nil
		}
		return *p
	}
	return v
}

// PruneColumn drops column from table and refreshes its schema cache.
// It must only run once the copied values are committed.
func PruneColumn(ctx context.Context, store SchemaStore, table, column string, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := store.DropColumn(ctx, table, column); err != nil {
		return StorageError("drop column", table, err)
	}
	store.RefreshSchemaCache(table)
	logger.Info("dropped source column", zap.String("table", table), zap.String("column", column))
	return nil
}
