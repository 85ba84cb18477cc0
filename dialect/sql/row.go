package sql

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kassett/relgraph/registry"
)

// Row is one database row of an entity. It implements registry.Named, so
// graph traversals resolve it to its entity.
type Row struct {
	// Entity is the name of the entity the row belongs to.
	Entity string
	// Values maps column names to their values. Byte slices are stored as
	// strings.
	Values map[string]any
}

var _ registry.Named = (*Row)(nil)

// EntityName implements the registry.Named interface.
func (r *Row) EntityName() string { return r.Entity }

// Get returns the value of the column, or nil.
func (r *Row) Get(column string) any {
	if r == nil {
		return nil
	}
	return r.Values[column]
}

// String returns the row in the "Entity(column=value, ...)" form with
// columns sorted by name.
func (r *Row) String() string {
	cols := make([]string, 0, len(r.Values))
	for c := range r.Values {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	var sb strings.Builder
	sb.WriteString(r.Entity)
	sb.WriteByte('(')
	for i, c := range cols {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s=%v", c, r.Values[c])
	}
	sb.WriteByte(')')
	return sb.String()
}

// ScanRows scans all rows into Row values of the given entity and closes
// rows.
func ScanRows(rows ColumnScanner, entity string) (_ []*Row, err error) {
	defer func() {
		if cerr := rows.Close(); err == nil {
			err = cerr
		}
	}()
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: reading columns: %w", err)
	}
	var result []*Row
	for rows.Next() {
		values := make([]any, len(columns))
		dest := make([]any, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("dialect/sql: scanning %s row: %w", entity, err)
		}
		r := &Row{Entity: entity, Values: make(map[string]any, len(columns))}
		for i, c := range columns {
			if b, ok := values[i].([]byte); ok {
				values[i] = string(b)
			}
			r.Values[c] = values[i]
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// key normalizes a column value for comparisons across drivers, which may
// return the same key as int64, []byte or string.
func key(v any) string {
	switch v := v.(type) {
	case []byte:
		return string(v)
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
