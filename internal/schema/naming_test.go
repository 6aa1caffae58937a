package schema_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"db-refactor/internal/schema"
)

func TestSingularize(t *testing.T) {
	var in *schema.Inflector

	cases := map[string]string{
		"users":       "user",
		"profiles":    "profile",
		"preferences": "preference",
		"fancy_users": "fancy_user",
		"categories":  "category",
		"boxes":       "box",
		"addresses":   "address",
		"people":      "person",
		"user_wolves": "user_wolf",
		"staff":       "staff",
		"Users":       "user",
	}
	for table, want := range cases {
		got, err := in.Singularize(table)
		require.NoError(t, err, table)
		require.Equal(t, want, got, table)
	}
}

func TestSingularizeAmbiguous(t *testing.T) {
	in := &schema.Inflector{}
	for _, table := range []string{"valves", "status", "user", "", "canvases"} {
		_, err := in.Singularize(table)
		var ambiguous *schema.AmbiguousNameError
		require.ErrorAs(t, err, &ambiguous, table)
	}
}

func TestSingularizeInflections(t *testing.T) {
	in := &schema.Inflector{Inflections: map[string]string{"valves": "valve", "canvases": "canvas"}}

	got, err := in.Singularize("valves")
	require.NoError(t, err)
	require.Equal(t, "valve", got)

	got, err = in.Singularize("user_canvases")
	require.NoError(t, err)
	require.Equal(t, "user_canvas", got)
}

func TestSingularTables(t *testing.T) {
	in := &schema.Inflector{SingularTables: true}
	got, err := in.Singularize("profile")
	require.NoError(t, err)
	require.Equal(t, "profile", got)
}

func TestForeignKeyName(t *testing.T) {
	require.Equal(t, "user_id", schema.ForeignKeyName("user"))
	require.Equal(t, "fancy_user_id", schema.ForeignKeyName("fancy_user"))
}
