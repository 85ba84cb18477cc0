package sql

import (
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/kassett/relgraph/dialect"
)

// Builder is the base query builder. It writes identifiers quoted for its
// dialect and arguments as dialect placeholders.
type Builder struct {
	sb      strings.Builder
	args    []any
	dialect string
}

// Quote quotes the identifier for the dialect of the builder. Qualified
// identifiers ("t.c") are quoted per part.
func (b *Builder) Quote(ident string) string {
	if ident == "*" {
		return ident
	}
	parts := strings.Split(ident, ".")
	for i, p := range parts {
		switch b.dialect {
		case dialect.Postgres:
			parts[i] = pq.QuoteIdentifier(p)
		case dialect.MySQL:
			parts[i] = "`" + strings.ReplaceAll(p, "`", "``") + "`"
		default:
			parts[i] = `"` + strings.ReplaceAll(p, `"`, `""`) + `"`
		}
	}
	return strings.Join(parts, ".")
}

// Ident writes a quoted identifier.
func (b *Builder) Ident(s string) *Builder {
	b.sb.WriteString(b.Quote(s))
	return b
}

// WriteString writes s to the query as is.
func (b *Builder) WriteString(s string) *Builder {
	b.sb.WriteString(s)
	return b
}

// Arg writes a placeholder for a and records it.
func (b *Builder) Arg(a any) *Builder {
	b.args = append(b.args, a)
	if b.dialect == dialect.Postgres {
		b.sb.WriteString("$" + strconv.Itoa(len(b.args)))
	} else {
		b.sb.WriteByte('?')
	}
	return b
}

// Args writes comma-separated placeholders for as.
func (b *Builder) Args(as ...any) *Builder {
	for i, a := range as {
		if i > 0 {
			b.sb.WriteString(", ")
		}
		b.Arg(a)
	}
	return b
}

// Query returns the query and its arguments.
func (b *Builder) Query() (string, []any) {
	return b.sb.String(), b.args
}

// DialectBuilder prefixes all builders with the same dialect.
type DialectBuilder struct {
	dialect string
}

// Dialect creates a new DialectBuilder with the given dialect name.
func Dialect(name string) *DialectBuilder {
	return &DialectBuilder{dialect: name}
}

// Select returns a Selector of the given columns. No columns select all.
//
//	Dialect(dialect.Postgres).
//		Select().
//		From("users").
//		Where(In("id", 1, 2))
func (d *DialectBuilder) Select(columns ...string) *Selector {
	return &Selector{dialect: d.dialect, columns: columns}
}

// Predicate is a WHERE clause condition.
type Predicate func(*Builder)

// EQ returns a "column = value" predicate.
func EQ(column string, v any) Predicate {
	return func(b *Builder) {
		b.Ident(column).WriteString(" = ").Arg(v)
	}
}

// In returns a "column IN (values...)" predicate. A single value is written
// as an equality.
func In(column string, vs ...any) Predicate {
	if len(vs) == 1 {
		return EQ(column, vs[0])
	}
	return func(b *Builder) {
		if len(vs) == 0 {
			b.WriteString("FALSE")
			return
		}
		b.Ident(column).WriteString(" IN (").Args(vs...).WriteString(")")
	}
}

// NotNull returns a "column IS NOT NULL" predicate.
func NotNull(column string) Predicate {
	return func(b *Builder) {
		b.Ident(column).WriteString(" IS NOT NULL")
	}
}

// Selector is a builder for the SELECT statement.
type Selector struct {
	dialect string
	columns []string
	table   string
	where   []Predicate
	order   []string
}

// From sets the source table of the selector.
func (s *Selector) From(table string) *Selector {
	s.table = table
	return s
}

// Where appends predicates to the selector, joined with AND.
func (s *Selector) Where(ps ...Predicate) *Selector {
	s.where = append(s.where, ps...)
	return s
}

// OrderBy appends columns to the ORDER BY clause.
func (s *Selector) OrderBy(columns ...string) *Selector {
	s.order = append(s.order, columns...)
	return s
}

// Query returns the query and its arguments.
func (s *Selector) Query() (string, []any) {
	b := &Builder{dialect: s.dialect}
	b.WriteString("SELECT ")
	if len(s.columns) == 0 {
		b.WriteString("*")
	}
	for i, c := range s.columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.Ident(c)
	}
	b.WriteString(" FROM ").Ident(s.table)
	for i, p := range s.where {
		if i == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}
		p(b)
	}
	for i, c := range s.order {
		if i == 0 {
			b.WriteString(" ORDER BY ")
		} else {
			b.WriteString(", ")
		}
		b.Ident(c)
	}
	return b.Query()
}
