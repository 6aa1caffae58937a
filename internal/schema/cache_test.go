package schema_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"db-refactor/internal/schema"
)

func TestCacheLoadsOnceUntilRefresh(t *testing.T) {
	ctx := context.Background()
	cache := schema.NewCache()

	loads := 0
	load := func(ctx context.Context, name string) (*schema.Table, error) {
		loads++
		return &schema.Table{Name: name, PrimaryKey: "id"}, nil
	}

	first, err := cache.Table(ctx, "users", load)
	require.NoError(t, err)
	second, err := cache.Table(ctx, "USERS", load)
	require.NoError(t, err)
	require.Same(t, first, second)
	require.Equal(t, 1, loads)

	cached, ok := cache.Cached("Users")
	require.True(t, ok)
	require.Same(t, first, cached)

	cache.Refresh("users")
	cache.Refresh("users")
	_, ok = cache.Cached("users")
	require.False(t, ok)

	_, err = cache.Table(ctx, "users", load)
	require.NoError(t, err)
	require.Equal(t, 2, loads)
}

func TestCacheDoesNotKeepFailures(t *testing.T) {
	ctx := context.Background()
	cache := schema.NewCache()

	_, err := cache.Table(ctx, "missing", func(ctx context.Context, name string) (*schema.Table, error) {
		return nil, errors.New("table does not exist")
	})
	require.Error(t, err)
	_, ok := cache.Cached("missing")
	require.False(t, ok)
}

func TestColumnDescriptorEqual(t *testing.T) {
	a := &schema.ColumnDescriptor{
		Name: "favorite_color", DataType: "varchar", SQLType: "varchar(255)",
		Limit: schema.Int64(255), Nullable: true, Default: schema.String("'blue'"),
	}
	b := a.Clone()
	b.Name = "FAVORITE_COLOR"
	b.PrimaryKey = true
	require.True(t, a.Equal(b))

	b.Limit = schema.Int64(100)
	require.False(t, a.Equal(b))
	require.Equal(t, int64(255), *a.Limit, "clone must not share pointers")

	c := a.Clone()
	c.Default = nil
	require.False(t, a.Equal(c))

	d := a.Clone()
	d.Nullable = false
	require.False(t, a.Equal(d))
}

func TestTableLookups(t *testing.T) {
	tbl := &schema.Table{
		Name: "profiles",
		Columns: []*schema.ColumnDescriptor{
			{Name: "id", PrimaryKey: true},
			{Name: "user_id"},
		},
		ForeignKeys: []*schema.ForeignKey{{Column: "user_id", RefTable: "users", RefColumn: "id"}},
	}

	col, ok := tbl.Column("USER_ID")
	require.True(t, ok)
	require.Equal(t, "user_id", col.Name)
	_, ok = tbl.Column("favorite_color")
	require.False(t, ok)

	require.Equal(t, []string{"id", "user_id"}, tbl.ColumnNames())
	require.Len(t, tbl.ForeignKeysTo("Users"), 1)
	require.Empty(t, tbl.ForeignKeysTo("accounts"))
}
