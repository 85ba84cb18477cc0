package sql

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kassett/relgraph/contrib/dataloader"
	"github.com/kassett/relgraph/dialect"
	"github.com/kassett/relgraph/graph"
	"github.com/kassett/relgraph/registry"
)

// ErrNotFound is returned by Find when no row matches.
var ErrNotFound = errors.New("dialect/sql: row not found")

// Loader reads relationships of Row instances from a database. It
// implements graph.BatchLoader, so a traversal step issues one query per
// relationship (two for many-to-many) for the whole working set:
//
//   - many-to-one and owning one-to-one edges select the target rows by the
//     foreign-key values of the source rows.
//   - one-to-many and inverse one-to-one edges select the target rows whose
//     foreign key references the source rows.
//   - many-to-many edges read the join table, then select the target rows.
//
// Queries are recorded by a StatsDriver, and slow queries are logged.
type Loader struct {
	drv       *StatsDriver
	ids       map[string]string
	batchSize int
	log       *slog.Logger
	statsOpts []StatsOption
}

var _ graph.BatchLoader = (*Loader)(nil)

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithIDColumn overrides the primary-key column of the entity.
func WithIDColumn(entity, column string) LoaderOption {
	return func(l *Loader) {
		l.ids[entity] = column
	}
}

// WithBatchSize sets the maximum number of keys in a single IN clause.
// Larger working sets are split into several queries. Defaults to 500.
func WithBatchSize(n int) LoaderOption {
	return func(l *Loader) {
		l.batchSize = n
	}
}

// WithLogger sets the logger of the loader. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		if logger != nil {
			l.log = logger
		}
	}
}

// WithStats configures the statistics collection of the loader queries.
//
//	sql.NewLoader(drv, sql.WithStats(sql.WithSlowThreshold(time.Second)))
func WithStats(opts ...StatsOption) LoaderOption {
	return func(l *Loader) {
		l.statsOpts = append(l.statsOpts, opts...)
	}
}

// NewLoader returns a loader reading from drv.
func NewLoader(drv dialect.Driver, opts ...LoaderOption) *Loader {
	l := &Loader{
		ids:       make(map[string]string),
		batchSize: 500,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.drv = NewStatsDriver(drv, append([]StatsOption{WithSlowQueryLog(l.log)}, l.statsOpts...)...)
	return l
}

// QueryStats returns the statistics of the queries issued by the loader.
func (l *Loader) QueryStats() *QueryStats {
	return l.drv.QueryStats()
}

// Find returns the row of the entity with the given primary key.
func (l *Loader) Find(ctx context.Context, e *registry.Entity, id any) (*Row, error) {
	rows, err := l.query(ctx, e.Name, l.selectAll(e).Where(EQ(l.idColumn(e), id)))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s %s=%v", ErrNotFound, e.Name, l.idColumn(e), id)
	}
	return rows[0], nil
}

// Related implements the graph.Loader interface.
func (l *Loader) Related(ctx context.Context, instance any, e *graph.Edge) (any, error) {
	rs, err := l.RelatedBatch(ctx, []any{instance}, e)
	if err != nil {
		return nil, err
	}
	return rs[0], nil
}

// RelatedBatch implements the graph.BatchLoader interface. To-one edges
// yield a *Row or nil per instance, to-many edges a []*Row.
func (l *Loader) RelatedBatch(ctx context.Context, instances []any, e *graph.Edge) ([]any, error) {
	if e.Rel == nil {
		return nil, fmt.Errorf("dialect/sql: edge %s has no relationship metadata", e)
	}
	rows := make([]*Row, len(instances))
	for i, v := range instances {
		r, ok := v.(*Row)
		if !ok || r == nil {
			return nil, fmt.Errorf("dialect/sql: unexpected instance %T, want *sql.Row", v)
		}
		rows[i] = r
	}
	switch {
	case e.Rel.Rel == registry.M2M:
		return l.loadM2M(ctx, rows, e)
	case e.Rel.OwnFK:
		return l.loadOwner(ctx, rows, e)
	default:
		return l.loadByFK(ctx, rows, e)
	}
}

// loadOwner loads edges whose foreign key resides in the source rows.
func (l *Loader) loadOwner(ctx context.Context, rows []*Row, e *graph.Edge) ([]any, error) {
	var (
		col    = e.Rel.Column()
		target = e.To.Entity
		id     = l.idColumn(target)
		keys   = make([]string, len(rows))
		values []any
	)
	for i, r := range rows {
		if v := r.Get(col); v != nil {
			keys[i] = key(v)
			values = append(values, v)
		}
	}
	fetched, err := l.selectIn(ctx, target, id, distinct(values))
	if err != nil {
		return nil, err
	}
	ordered := dataloader.OrderByKeysNoError(keys, fetched, func(r *Row) string { return key(r.Get(id)) })
	out := make([]any, len(rows))
	for i, r := range ordered {
		if r != nil && rows[i].Get(col) != nil {
			out[i] = r
		}
	}
	return out, nil
}

// loadByFK loads edges whose foreign key resides in the target rows.
func (l *Loader) loadByFK(ctx context.Context, rows []*Row, e *graph.Edge) ([]any, error) {
	var (
		col          = e.Rel.Column()
		target       = e.To.Entity
		keys, values = l.sourceKeys(rows, e)
	)
	fetched, err := l.selectIn(ctx, target, col, values)
	if err != nil {
		return nil, err
	}
	groups := dataloader.OrderGroupsByKeys(keys, dataloader.GroupByKey(fetched, func(r *Row) string { return key(r.Get(col)) }))
	return results(groups, e.Plural), nil
}

// loadM2M loads edges through their join table.
func (l *Loader) loadM2M(ctx context.Context, rows []*Row, e *graph.Edge) ([]any, error) {
	if len(e.Rel.Columns) != 2 || e.Rel.Table == "" {
		return nil, fmt.Errorf("dialect/sql: many-to-many edge %s has no join table", e)
	}
	var (
		join         = e.Rel.Table
		src, dst     = e.Rel.Columns[0], e.Rel.Columns[1]
		target       = e.To.Entity
		id           = l.idColumn(target)
		keys, values = l.sourceKeys(rows, e)
		pairs        []*Row
	)
	for _, batch := range dataloader.Chunk(values, l.batchSize) {
		s := Dialect(l.drv.Dialect()).Select(src, dst).From(join).Where(In(src, batch...)).OrderBy(src, dst)
		rs, err := l.query(ctx, join, s)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, rs...)
	}
	targets := make([]any, 0, len(pairs))
	for _, p := range pairs {
		targets = append(targets, p.Get(dst))
	}
	fetched, err := l.selectIn(ctx, target, id, distinct(targets))
	if err != nil {
		return nil, err
	}
	byID := dataloader.GroupByKey(fetched, func(r *Row) string { return key(r.Get(id)) })
	linked := dataloader.OrderGroupsByKeys(keys, dataloader.GroupByKey(pairs, func(r *Row) string { return key(r.Get(src)) }))
	groups := make([][]*Row, len(linked))
	for i, ps := range linked {
		groups[i] = make([]*Row, 0, len(ps))
		for _, p := range ps {
			if t := byID[key(p.Get(dst))]; len(t) > 0 {
				groups[i] = append(groups[i], t[0])
			}
		}
	}
	return results(groups, e.Plural), nil
}

// sourceKeys returns the primary keys of the source rows, normalized and
// raw, the latter without duplicates.
func (l *Loader) sourceKeys(rows []*Row, e *graph.Edge) ([]string, []any) {
	id := l.idColumn(e.From.Entity)
	keys := make([]string, len(rows))
	values := make([]any, 0, len(rows))
	for i, r := range rows {
		v := r.Get(id)
		keys[i] = key(v)
		values = append(values, v)
	}
	return keys, distinct(values)
}

func results(groups [][]*Row, plural bool) []any {
	out := make([]any, len(groups))
	for i, g := range groups {
		switch {
		case plural:
			out[i] = g
		case len(g) > 0:
			out[i] = g[0]
		}
	}
	return out
}

// selectIn selects the rows of the entity whose column is one of values.
func (l *Loader) selectIn(ctx context.Context, e *registry.Entity, column string, values []any) ([]*Row, error) {
	var rows []*Row
	for _, batch := range dataloader.Chunk(values, l.batchSize) {
		rs, err := l.query(ctx, e.Name, l.selectAll(e).Where(In(column, batch...)).OrderBy(l.idColumn(e)))
		if err != nil {
			return nil, err
		}
		rows = append(rows, rs...)
	}
	return rows, nil
}

func (l *Loader) selectAll(e *registry.Entity) *Selector {
	table := e.Table
	if table == "" {
		table = e.Name
	}
	return Dialect(l.drv.Dialect()).Select().From(table)
}

func (l *Loader) query(ctx context.Context, entity string, s *Selector) ([]*Row, error) {
	query, args := s.Query()
	l.log.DebugContext(ctx, "loading rows", "entity", entity, "query", query, "args", len(args))
	rows := &Rows{}
	if err := l.drv.Query(ctx, query, args, rows); err != nil {
		return nil, err
	}
	return ScanRows(rows, entity)
}

func (l *Loader) idColumn(e *registry.Entity) string {
	if c, ok := l.ids[e.Name]; ok {
		return c
	}
	return e.IDColumn()
}

// distinct returns the non-nil values without duplicates, in order.
func distinct(values []any) []any {
	var (
		keys   = make([]string, 0, len(values))
		byKey  = make(map[string]any, len(values))
		result = make([]any, 0, len(values))
	)
	for _, v := range values {
		if v == nil {
			continue
		}
		k := key(v)
		if _, ok := byKey[k]; !ok {
			byKey[k] = v
		}
		keys = append(keys, k)
	}
	for _, k := range dataloader.Unique(keys) {
		result = append(result, byKey[k])
	}
	return result
}
