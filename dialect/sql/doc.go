// Package sql loads entity relationships from SQL databases.
//
// Rows are read into Row values, which carry their entity name, so they can
// be traversed with a relationship graph. The Loader implements
// graph.BatchLoader: every traversal step loads the relationship of the
// whole working set with IN queries.
//
// # Usage
//
//	db, err := sql.Open(dialect.Postgres, dsn)
//	if err != nil {
//	    return err
//	}
//	reg, err := registry.Inspect(ctx, db.DB(), dialect.Postgres)
//	if err != nil {
//	    return err
//	}
//	loader := sql.NewLoader(db, sql.WithStats(sql.WithSlowThreshold(time.Second)))
//	g, err := graph.New(reg, graph.WithLoader(loader), graph.WithPlurality(true))
//	if err != nil {
//	    return err
//	}
//	user, _ := reg.Entity("User")
//	row, err := loader.Find(ctx, user, 42)
//	if err != nil {
//	    return err
//	}
//	teams, err := g.Traverse(ctx, row, "Team")
//
// # Dialect Support
//
// Queries adapt their identifier quoting and placeholders to the dialect:
//
//	sql.Dialect(dialect.Postgres).Select().From("users").Where(sql.In("id", 1, 2)).Query()
//	// SELECT * FROM "users" WHERE "id" IN ($1, $2)
//
//	sql.Dialect(dialect.MySQL).Select().From("users").Where(sql.In("id", 1, 2)).Query()
//	// SELECT * FROM `users` WHERE `id` IN (?, ?)
//
// # Statistics
//
// The loader records its queries with a StatsDriver. Queries slower than the
// threshold are logged with slog and passed to the slow query hook.
package sql
