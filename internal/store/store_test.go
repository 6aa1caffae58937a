package store_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"db-refactor/internal/dialect"
	"db-refactor/internal/refactor"
	"db-refactor/internal/schema"
	"db-refactor/internal/store"
)

const fixture = `
CREATE TABLE users (
	id INTEGER PRIMARY KEY,
	name VARCHAR(255),
	favorite_color VARCHAR(255),
	favorite_number INTEGER DEFAULT 7
);
CREATE TABLE profiles (
	id INTEGER PRIMARY KEY,
	user_id INTEGER REFERENCES users(id),
	bio TEXT
);
CREATE TABLE accounts (
	id INTEGER PRIMARY KEY,
	login VARCHAR(20) NOT NULL
);
`

func openStore(t *testing.T, statements ...string) (*store.Store, *sql.DB) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	for _, s := range append([]string{fixture}, statements...) {
		_, err := db.Exec(s)
		require.NoError(t, err)
	}
	return store.New(db, dialect.GetDialect("sqlite"), "", nil), db
}

func TestDescribeTable(t *testing.T) {
	ctx := context.Background()
	s, _ := openStore(t)

	users, err := s.DescribeTable(ctx, "users")
	require.NoError(t, err)
	require.Equal(t, "id", users.PrimaryKey)
	require.Equal(t, []string{"id", "name", "favorite_color", "favorite_number"}, users.ColumnNames())

	name, ok := users.Column("name")
	require.True(t, ok)
	require.Equal(t, "varchar", name.DataType)
	require.Equal(t, "VARCHAR(255)", name.SQLType)
	require.Equal(t, int64(255), *name.Limit)
	require.True(t, name.Nullable)
	require.Nil(t, name.Default)

	number, err := s.DescribeColumn(ctx, "users", "favorite_number")
	require.NoError(t, err)
	require.Equal(t, "integer", number.DataType)
	require.Equal(t, "7", *number.Default)

	login, err := s.DescribeColumn(ctx, "accounts", "login")
	require.NoError(t, err)
	require.False(t, login.Nullable)

	profiles, err := s.DescribeTable(ctx, "profiles")
	require.NoError(t, err)
	require.Len(t, profiles.ForeignKeys, 1)
	require.Equal(t, "user_id", profiles.ForeignKeys[0].Column)
	require.Equal(t, "users", profiles.ForeignKeys[0].RefTable)
	require.Equal(t, "id", profiles.ForeignKeys[0].RefColumn)
}

func TestDescribeMissing(t *testing.T) {
	ctx := context.Background()
	s, _ := openStore(t)

	_, err := s.DescribeTable(ctx, "accounts_archive")
	require.True(t, errors.Is(err, refactor.ErrSchema))

	_, err = s.DescribeColumn(ctx, "users", "shoe_size")
	require.True(t, errors.Is(err, refactor.ErrSchema))
}

func TestSchemaCacheOnlyRefreshesOnRequest(t *testing.T) {
	ctx := context.Background()
	s, db := openStore(t)

	_, err := s.DescribeTable(ctx, "profiles")
	require.NoError(t, err)

	_, err = db.Exec(`ALTER TABLE profiles ADD COLUMN nickname VARCHAR(40)`)
	require.NoError(t, err)
	_, err = s.DescribeColumn(ctx, "profiles", "nickname")
	require.Error(t, err, "cached structure is kept until refreshed")

	s.RefreshSchemaCache("profiles")
	col, err := s.DescribeColumn(ctx, "profiles", "nickname")
	require.NoError(t, err)
	require.Equal(t, int64(40), *col.Limit)
}

func TestCreateAndDropColumn(t *testing.T) {
	ctx := context.Background()
	s, _ := openStore(t)

	source, err := s.DescribeColumn(ctx, "users", "favorite_number")
	require.NoError(t, err)
	require.NoError(t, s.CreateColumn(ctx, "profiles", source))
	s.RefreshSchemaCache("profiles")

	mirrored, err := s.DescribeColumn(ctx, "profiles", "favorite_number")
	require.NoError(t, err)
	require.True(t, source.Equal(mirrored), refactor.DescribeDifference(source, mirrored))

	err = s.CreateColumn(ctx, "profiles", source)
	require.True(t, errors.Is(err, refactor.ErrSchema), "duplicate column")

	require.NoError(t, s.DropColumn(ctx, "profiles", "favorite_number"))
	s.RefreshSchemaCache("profiles")
	_, err = s.DescribeColumn(ctx, "profiles", "favorite_number")
	require.True(t, errors.Is(err, refactor.ErrSchema))
}

func TestFetchPage(t *testing.T) {
	ctx := context.Background()
	s, _ := openStore(t,
		`INSERT INTO users (id, name) VALUES (1, 'a'), (2, 'b'), (3, 'c'), (5, 'e')`,
		`INSERT INTO profiles (id, user_id, bio) VALUES (10, 3, 'third')`)

	rows, err := s.FetchPage(ctx, "users", schema.PageRequest{OrderBy: "id", Limit: 2})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, int64(1), rows[0].ID())
	require.True(t, rows[0].Persisted())

	rows, err = s.FetchPage(ctx, "users", schema.PageRequest{OrderBy: "id", Limit: 2, After: int64(2), HasAfter: true})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, int64(3), rows[0].ID())
	require.Equal(t, int64(5), rows[1].ID())

	assoc := &schema.Association{Name: "profile", Kind: schema.HasOne, Table: "profiles", ForeignKey: "user_id", OwnerKey: "id"}
	rows, err = s.FetchPage(ctx, "users", schema.PageRequest{OrderBy: "id", Include: assoc})
	require.NoError(t, err)
	require.Len(t, rows, 4)
	for _, r := range rows {
		profile, loaded := r.Associated("profile")
		require.True(t, loaded)
		if r.ID() == int64(3) {
			require.NotNil(t, profile)
			bio, _ := profile.Get("bio")
			require.Equal(t, "third", bio)
		} else {
			require.Nil(t, profile)
		}
	}
}

func TestSaveInsertAndUpdate(t *testing.T) {
	ctx := context.Background()
	s, db := openStore(t, `INSERT INTO users (id, name) VALUES (1, 'Peter Griffin')`)

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	users, err := tx.FetchPage(ctx, "users", schema.PageRequest{OrderBy: "id"})
	require.NoError(t, err)
	require.Len(t, users, 1)

	assoc := &schema.Association{Name: "profile", Kind: schema.HasOne, Table: "profiles", ForeignKey: "user_id", OwnerKey: "id"}
	profile, err := tx.LoadAssociation(ctx, users[0], assoc)
	require.NoError(t, err)
	require.Nil(t, profile)

	profile = tx.BuildAssociated(users[0], assoc)
	profile.Set("bio", "husband")
	require.NoError(t, tx.Save(ctx, profile))
	require.True(t, profile.Persisted())
	require.NotNil(t, profile.ID())

	profile.Set("bio", "father")
	require.NoError(t, tx.Save(ctx, profile))
	require.NoError(t, tx.Commit())

	var bio string
	var userID int64
	require.NoError(t, db.QueryRow(`SELECT bio, user_id FROM profiles`).Scan(&bio, &userID))
	require.Equal(t, "father", bio)
	require.Equal(t, int64(1), userID)
}

func TestSaveRejectsUnknownColumn(t *testing.T) {
	ctx := context.Background()
	s, _ := openStore(t)

	row, err := s.NewRow(ctx, "users")
	require.NoError(t, err)
	row.Set("shoe_size", 11)
	err = s.Save(ctx, row)
	require.True(t, errors.Is(err, refactor.ErrSchema))
}

func TestSaveClassifiesConstraintViolation(t *testing.T) {
	ctx := context.Background()
	s, _ := openStore(t)

	row, err := s.NewRow(ctx, "accounts")
	require.NoError(t, err)
	row.Set("login", nil)
	err = s.Save(ctx, row)
	require.True(t, errors.Is(err, refactor.ErrValidation), "%v", err)
}

func TestLoadAssociationRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	s, _ := openStore(t,
		`INSERT INTO users (id) VALUES (1)`,
		`INSERT INTO profiles (id, user_id) VALUES (1, 1), (2, 1)`)

	users, err := s.FetchPage(ctx, "users", schema.PageRequest{OrderBy: "id"})
	require.NoError(t, err)
	assoc := &schema.Association{Name: "profile", Kind: schema.HasOne, Table: "profiles", ForeignKey: "user_id", OwnerKey: "id"}

	_, err = s.LoadAssociation(ctx, users[0], assoc)
	require.True(t, errors.Is(err, refactor.ErrAssociation))

	_, err = s.FetchPage(ctx, "users", schema.PageRequest{OrderBy: "id", Include: assoc})
	require.True(t, errors.Is(err, refactor.ErrAssociation))
}

func TestFetchPageRejectsSharedBelongsTo(t *testing.T) {
	ctx := context.Background()
	s, _ := openStore(t,
		`INSERT INTO users (id) VALUES (1)`,
		`INSERT INTO profiles (id, user_id) VALUES (1, 1), (2, 1), (3, NULL)`)

	assoc := &schema.Association{Name: "user", Kind: schema.BelongsTo, Table: "users", ForeignKey: "user_id", OwnerKey: "id"}
	_, err := s.FetchPage(ctx, "profiles", schema.PageRequest{OrderBy: "id", Include: assoc})
	require.True(t, errors.Is(err, refactor.ErrAssociation), "%v", err)

	rows, err := s.FetchPage(ctx, "profiles", schema.PageRequest{OrderBy: "id", Limit: 1, After: int64(1), HasAfter: true, Include: assoc})
	require.NoError(t, err)
	user, loaded := rows[0].Associated("user")
	require.True(t, loaded)
	require.Equal(t, int64(1), user.ID())
}

func TestSaveBelongsToLinksOwner(t *testing.T) {
	ctx := context.Background()
	s, db := openStore(t,
		`CREATE TABLE preferences (id INTEGER PRIMARY KEY, theme VARCHAR(20))`,
		`ALTER TABLE users ADD COLUMN preference_id INTEGER REFERENCES preferences(id)`,
		`INSERT INTO users (id, name) VALUES (1, 'Lois')`)

	users, err := s.FetchPage(ctx, "users", schema.PageRequest{OrderBy: "id"})
	require.NoError(t, err)
	assoc := &schema.Association{Name: "preference", Kind: schema.BelongsTo, Table: "preferences", ForeignKey: "preference_id", OwnerKey: "id"}

	pref, err := s.LoadAssociation(ctx, users[0], assoc)
	require.NoError(t, err)
	require.Nil(t, pref)

	pref = s.BuildAssociated(users[0], assoc)
	pref.Set("theme", "dark")
	require.NoError(t, s.Save(ctx, pref))

	var prefID int64
	require.NoError(t, db.QueryRow(`SELECT preference_id FROM users WHERE id = 1`).Scan(&prefID))
	require.Equal(t, pref.ID(), prefID)
	owner, _ := pref.Owner()
	require.Nil(t, owner)
}

func TestSavepointUndoesFailedWrites(t *testing.T) {
	ctx := context.Background()
	s, db := openStore(t)

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	sp := tx.(*store.Tx)

	kept, err := s.NewRow(ctx, "accounts")
	require.NoError(t, err)
	kept.Set("login", "meg")
	require.NoError(t, sp.Savepoint(ctx, "row", func() error { return tx.Save(ctx, kept) }))

	undone, err := s.NewRow(ctx, "accounts")
	require.NoError(t, err)
	undone.Set("login", "chris")
	err = sp.Savepoint(ctx, "row", func() error {
		if err := tx.Save(ctx, undone); err != nil {
			return err
		}
		return errors.New("rejected after insert")
	})
	require.EqualError(t, err, "rejected after insert")
	require.NoError(t, tx.Commit())

	var logins []string
	rows, err := db.Query(`SELECT login FROM accounts ORDER BY id`)
	require.NoError(t, err)
	defer rows.Close()
	for rows.Next() {
		var l string
		require.NoError(t, rows.Scan(&l))
		logins = append(logins, l)
	}
	require.NoError(t, rows.Err())
	require.Equal(t, []string{"meg"}, logins)
}

func TestCountRows(t *testing.T) {
	ctx := context.Background()
	s, _ := openStore(t, `INSERT INTO users (id) VALUES (1), (2), (3)`)

	n, err := s.CountRows(ctx, "users")
	require.NoError(t, err)
	require.Equal(t, 3, n)
}
