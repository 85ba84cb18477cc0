package sql

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/kassett/relgraph"
	"github.com/kassett/relgraph/dialect"
	"github.com/kassett/relgraph/graph"
	"github.com/kassett/relgraph/registry"
)

// petStore returns the registry of users owning pets and joining groups.
func petStore(t *testing.T) *registry.Registry {
	t.Helper()
	r := registry.New()
	for _, e := range []*registry.Entity{
		{
			Name:  "User",
			Table: "users",
			Relationships: []*registry.Relationship{
				{Name: "pets", Target: "Pet", Rel: registry.O2M, Table: "pets", Columns: []string{"owner_id"}},
				{Name: "groups", Target: "Group", Rel: registry.M2M, Table: "user_groups", Columns: []string{"user_id", "group_id"}},
			},
		},
		{
			Name:  "Pet",
			Table: "pets",
			Relationships: []*registry.Relationship{
				{Name: "owner", Target: "User", Rel: registry.M2O, Inverse: true, RefName: "pets", Table: "pets", Columns: []string{"owner_id"}, OwnFK: true},
			},
		},
		{
			Name:  "Group",
			Table: "groups",
			Relationships: []*registry.Relationship{
				{Name: "users", Target: "User", Rel: registry.M2M, Inverse: true, RefName: "groups", Table: "user_groups", Columns: []string{"group_id", "user_id"}},
			},
		},
	} {
		require.NoError(t, r.Add(e))
	}
	return r
}

func mockLoader(t *testing.T, opts ...LoaderOption) (*Loader, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewLoader(OpenDB(dialect.Postgres, db), opts...), mock
}

func edgeOf(t *testing.T, g *graph.Graph, from, to string) *graph.Edge {
	t.Helper()
	edges, err := g.Edges(from, to)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	return edges[0]
}

// ids returns the normalized primary keys of a loaded result. Drivers
// scan integer columns as int64 regardless of the inserted type.
func ids(t *testing.T, v any) []string {
	t.Helper()
	var out []string
	switch v := v.(type) {
	case []any:
		for _, x := range v {
			out = append(out, key(x.(*Row).Get("id")))
		}
	case []*Row:
		for _, x := range v {
			out = append(out, key(x.Get("id")))
		}
	default:
		t.Fatalf("unexpected result %T", v)
	}
	return out
}

func TestLoaderFind(t *testing.T) {
	l, mock := mockLoader(t)
	user, _ := petStore(t).Entity("User")

	mock.ExpectQuery(`SELECT * FROM "users" WHERE "id" = $1`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(1, "a8m"))
	row, err := l.Find(context.Background(), user, 1)
	require.NoError(t, err)
	assert.Equal(t, "User", row.EntityName())
	assert.Equal(t, "a8m", row.Get("name"))

	mock.ExpectQuery(`SELECT * FROM "users" WHERE "id" = $1`).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))
	_, err = l.Find(context.Background(), user, 2)
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoaderRelatedBatch(t *testing.T) {
	ctx := context.Background()
	users := []any{
		&Row{Entity: "User", Values: map[string]any{"id": 1}},
		&Row{Entity: "User", Values: map[string]any{"id": 2}},
		&Row{Entity: "User", Values: map[string]any{"id": 3}},
	}

	t.Run("O2M", func(t *testing.T) {
		l, mock := mockLoader(t)
		g, err := graph.New(petStore(t))
		require.NoError(t, err)
		mock.ExpectQuery(`SELECT * FROM "pets" WHERE "owner_id" IN ($1, $2, $3) ORDER BY "id"`).
			WithArgs(1, 2, 3).
			WillReturnRows(sqlmock.NewRows([]string{"id", "owner_id"}).AddRow(1, 1).AddRow(2, 2).AddRow(3, 1))
		rs, err := l.RelatedBatch(ctx, users, edgeOf(t, g, "User", "Pet"))
		require.NoError(t, err)
		require.Len(t, rs, 3)
		assert.Equal(t, []string{"1", "3"}, ids(t, rs[0]))
		assert.Equal(t, []string{"2"}, ids(t, rs[1]))
		assert.Empty(t, rs[2])
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("M2O", func(t *testing.T) {
		l, mock := mockLoader(t)
		g, err := graph.New(petStore(t))
		require.NoError(t, err)
		pets := []any{
			&Row{Entity: "Pet", Values: map[string]any{"id": 1, "owner_id": 2}},
			&Row{Entity: "Pet", Values: map[string]any{"id": 2, "owner_id": nil}},
			&Row{Entity: "Pet", Values: map[string]any{"id": 3, "owner_id": 1}},
			&Row{Entity: "Pet", Values: map[string]any{"id": 4, "owner_id": 2}},
		}
		mock.ExpectQuery(`SELECT * FROM "users" WHERE "id" IN ($1, $2) ORDER BY "id"`).
			WithArgs(2, 1).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2))
		rs, err := l.RelatedBatch(ctx, pets, edgeOf(t, g, "Pet", "User"))
		require.NoError(t, err)
		require.Len(t, rs, 4)
		assert.EqualValues(t, 2, rs[0].(*Row).Get("id"))
		assert.Nil(t, rs[1])
		assert.EqualValues(t, 1, rs[2].(*Row).Get("id"))
		assert.Same(t, rs[0], rs[3])
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("M2M", func(t *testing.T) {
		l, mock := mockLoader(t)
		g, err := graph.New(petStore(t))
		require.NoError(t, err)
		mock.ExpectQuery(`SELECT "user_id", "group_id" FROM "user_groups" WHERE "user_id" IN ($1, $2, $3) ORDER BY "user_id", "group_id"`).
			WithArgs(1, 2, 3).
			WillReturnRows(sqlmock.NewRows([]string{"user_id", "group_id"}).AddRow(1, 10).AddRow(1, 20).AddRow(2, 20))
		mock.ExpectQuery(`SELECT * FROM "groups" WHERE "id" IN ($1, $2) ORDER BY "id"`).
			WithArgs(10, 20).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(10, "red").AddRow(20, "blue"))
		rs, err := l.RelatedBatch(ctx, users, edgeOf(t, g, "User", "Group"))
		require.NoError(t, err)
		require.Len(t, rs, 3)
		assert.Equal(t, []string{"10", "20"}, ids(t, rs[0]))
		assert.Equal(t, []string{"20"}, ids(t, rs[1]))
		assert.Empty(t, rs[2])
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("BatchSize", func(t *testing.T) {
		l, mock := mockLoader(t, WithBatchSize(2))
		g, err := graph.New(petStore(t))
		require.NoError(t, err)
		mock.ExpectQuery(`SELECT * FROM "pets" WHERE "owner_id" IN ($1, $2) ORDER BY "id"`).
			WithArgs(1, 2).
			WillReturnRows(sqlmock.NewRows([]string{"id", "owner_id"}).AddRow(1, 1))
		mock.ExpectQuery(`SELECT * FROM "pets" WHERE "owner_id" = $1 ORDER BY "id"`).
			WithArgs(3).
			WillReturnRows(sqlmock.NewRows([]string{"id", "owner_id"}).AddRow(2, 3))
		rs, err := l.RelatedBatch(ctx, users, edgeOf(t, g, "User", "Pet"))
		require.NoError(t, err)
		assert.Equal(t, []string{"1"}, ids(t, rs[0]))
		assert.Equal(t, []string{"2"}, ids(t, rs[2]))
		assert.EqualValues(t, 2, l.QueryStats().Stats().TotalQueries)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("UnexpectedInstance", func(t *testing.T) {
		l, _ := mockLoader(t)
		g, err := graph.New(petStore(t))
		require.NoError(t, err)
		_, err = l.RelatedBatch(ctx, []any{struct{}{}}, edgeOf(t, g, "User", "Pet"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unexpected instance")
	})
}

func TestLoaderTraverse(t *testing.T) {
	l, mock := mockLoader(t)
	g, err := graph.New(petStore(t), graph.WithLoader(l), graph.WithPlurality(true))
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT * FROM "users" WHERE "id" = $1 ORDER BY "id"`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(1, "a8m"))
	mock.ExpectQuery(`SELECT "user_id", "group_id" FROM "user_groups" WHERE "user_id" = $1 ORDER BY "user_id", "group_id"`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "group_id"}).AddRow(1, 10).AddRow(1, 20))
	mock.ExpectQuery(`SELECT * FROM "groups" WHERE "id" IN ($1, $2) ORDER BY "id"`).
		WithArgs(10, 20).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(10, "red").AddRow(20, "blue"))

	pet := &Row{Entity: "Pet", Values: map[string]any{"id": 1, "owner_id": 1}}
	groups, err := g.Traverse(context.Background(), pet, "Group")
	require.NoError(t, err)
	assert.Equal(t, []string{"10", "20"}, ids(t, groups))
	assert.EqualValues(t, 3, l.QueryStats().Stats().TotalQueries)
	require.NoError(t, mock.ExpectationsWereMet())

	mock.ExpectQuery(`SELECT * FROM "users" WHERE "id" = $1 ORDER BY "id"`).
		WithArgs(1).
		WillReturnError(assert.AnError)
	_, err = g.Traverse(context.Background(), pet, "Group")
	require.Error(t, err)
	assert.True(t, relgraph.IsLoadError(err))
	assert.ErrorIs(t, err, assert.AnError)
}

func TestLoaderSQLite(t *testing.T) {
	drv, err := Open(dialect.SQLite, ":memory:")
	require.NoError(t, err)
	drv.DB().SetMaxOpenConns(1)
	t.Cleanup(func() { drv.Close() })

	ctx := context.Background()
	for _, stmt := range []string{
		"CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT)",
		"CREATE TABLE pets (id INTEGER PRIMARY KEY, owner_id INTEGER REFERENCES users(id))",
		"CREATE TABLE teams (id INTEGER PRIMARY KEY, name TEXT)",
		"CREATE TABLE user_teams (user_id INTEGER NOT NULL REFERENCES users(id), team_id INTEGER NOT NULL REFERENCES teams(id), PRIMARY KEY (user_id, team_id))",
		"INSERT INTO users (id, name) VALUES (1, 'a8m'), (2, 'nati')",
		"INSERT INTO pets (id, owner_id) VALUES (1, 1), (2, 1), (3, 2), (4, NULL)",
		"INSERT INTO teams (id, name) VALUES (1, 'red'), (2, 'blue')",
		"INSERT INTO user_teams (user_id, team_id) VALUES (1, 1), (1, 2), (2, 2)",
	} {
		require.NoError(t, drv.Exec(ctx, stmt, []any{}, nil), stmt)
	}
	reg, err := registry.Inspect(ctx, drv.DB(), dialect.SQLite)
	require.NoError(t, err)
	l := NewLoader(drv)
	g, err := graph.New(reg, graph.WithLoader(l), graph.WithPlurality(true))
	require.NoError(t, err)

	find := func(entity string, id int) *Row {
		t.Helper()
		e, ok := reg.Entity(entity)
		require.True(t, ok, entity)
		row, err := l.Find(ctx, e, id)
		require.NoError(t, err)
		return row
	}
	user := find("User", 1)
	assert.Equal(t, "a8m", user.Get("name"))

	pets, err := g.Traverse(ctx, user, "Pet")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, ids(t, pets))

	pets, err = g.Traverse(ctx, find("Team", 2), "Pet")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, ids(t, pets))

	teams, err := g.Traverse(ctx, find("Pet", 3), "Team")
	require.NoError(t, err)
	require.Len(t, teams, 1)
	assert.Equal(t, "blue", teams.([]any)[0].(*Row).Get("name"))

	owners, err := g.Traverse(ctx, find("Pet", 4), "User")
	require.NoError(t, err)
	assert.Empty(t, owners)

	e, _ := reg.Entity("User")
	_, err = l.Find(ctx, e, 9)
	assert.ErrorIs(t, err, ErrNotFound)

	singular, err := graph.New(reg, graph.WithLoader(l))
	require.NoError(t, err)
	owner, err := singular.Traverse(ctx, find("Pet", 2), "User")
	require.NoError(t, err)
	assert.Equal(t, "a8m", owner.(*Row).Get("name"))
	_, err = singular.Traverse(ctx, user, "Team")
	assert.True(t, relgraph.IsNotSingular(err))
}
