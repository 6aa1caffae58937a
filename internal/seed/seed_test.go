package seed_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"db-refactor/internal/dialect"
	"db-refactor/internal/schema"
	"db-refactor/internal/seed"
	"db-refactor/internal/store"
)

func TestGenerateValueFitsDescriptor(t *testing.T) {
	short := &schema.ColumnDescriptor{Name: "favorite_color", DataType: "varchar", Limit: schema.Int64(3)}
	for i := 0; i < 50; i++ {
		v := seed.GenerateValue(short)
		s, ok := v.(string)
		require.True(t, ok)
		require.LessOrEqual(t, len([]rune(s)), 3)
	}

	small := &schema.ColumnDescriptor{Name: "rank", DataType: "int", Precision: schema.Int64(2)}
	for i := 0; i < 50; i++ {
		n, ok := seed.GenerateValue(small).(int)
		require.True(t, ok)
		require.LessOrEqual(t, n, 99)
	}

	date := &schema.ColumnDescriptor{Name: "born_on", DataType: "date"}
	require.Len(t, seed.GenerateValue(date).(string), len("2006-01-02"))

	blob := &schema.ColumnDescriptor{Name: "avatar", DataType: "blob"}
	require.IsType(t, []byte{}, seed.GenerateValue(blob))
}

func TestSeedParentThenChild(t *testing.T) {
	ctx := context.Background()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	for _, ddl := range []string{
		`CREATE TABLE users (id INTEGER PRIMARY KEY, name VARCHAR(60) NOT NULL, email VARCHAR(120) NOT NULL, favorite_color VARCHAR(20))`,
		`CREATE TABLE profiles (id INTEGER PRIMARY KEY, user_id INTEGER NOT NULL UNIQUE REFERENCES users(id), bio TEXT)`,
	} {
		_, err := db.Exec(ddl)
		require.NoError(t, err)
	}
	s := store.New(db, dialect.GetDialect("sqlite"), "", nil)

	progress := 0
	users, err := seed.Seed(ctx, s, "users", 12, nil, func() { progress++ })
	require.NoError(t, err)
	require.Equal(t, 12, users.Inserted)
	require.Equal(t, 12, progress)

	profiles, err := seed.Seed(ctx, s, "profiles", 12, nil, nil)
	require.NoError(t, err)
	require.Equal(t, 12, profiles.Inserted)

	var distinct int
	require.NoError(t, db.QueryRow(`SELECT COUNT(DISTINCT user_id) FROM profiles`).Scan(&distinct))
	require.Equal(t, 12, distinct, "every profile belongs to its own user")

	var orphans int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM profiles p LEFT JOIN users u ON u.id = p.user_id WHERE u.id IS NULL`).Scan(&orphans))
	require.Zero(t, orphans)
}

func TestSeedSkipsRejectedRows(t *testing.T) {
	ctx := context.Background()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	for _, ddl := range []string{
		`CREATE TABLE badges (id INTEGER PRIMARY KEY, owner_id INTEGER NOT NULL, label VARCHAR(30))`,
		`CREATE TRIGGER badges_every_third BEFORE INSERT ON badges WHEN NEW.owner_id % 3 = 0 BEGIN SELECT RAISE(ABORT, 'owner is banned'); END`,
	} {
		_, err := db.Exec(ddl)
		require.NoError(t, err)
	}
	s := store.New(db, dialect.GetDialect("sqlite"), "", nil)

	result, err := seed.Seed(ctx, s, "badges", 9, nil, nil)
	require.NoError(t, err)
	require.Equal(t, 6, result.Inserted)
	require.Equal(t, 3, result.Failed)

	var stored int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM badges WHERE owner_id % 3 <> 0`).Scan(&stored))
	require.Equal(t, 6, stored, "rows before and after a rejected one are committed")
}
