package registry

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"ariga.io/atlas/sql/migrate"
	"ariga.io/atlas/sql/mysql"
	"ariga.io/atlas/sql/postgres"
	atlas "ariga.io/atlas/sql/schema"
	"ariga.io/atlas/sql/sqlite"

	"github.com/kassett/relgraph/dialect"
)

// Inspect reads the current schema of the database and builds a registry
// from its tables and foreign keys. See FromRealm for the mapping.
func Inspect(ctx context.Context, db *sql.DB, name string) (*Registry, error) {
	var (
		drv migrate.Driver
		err error
	)
	switch name {
	case dialect.SQLite:
		drv, err = sqlite.Open(db)
	case dialect.MySQL:
		drv, err = mysql.Open(db)
	case dialect.Postgres:
		drv, err = postgres.Open(db)
	default:
		return nil, fmt.Errorf("registry: unsupported dialect %q", name)
	}
	if err != nil {
		return nil, fmt.Errorf("registry: opening %s driver: %w", name, err)
	}
	s, err := drv.InspectSchema(ctx, "", nil)
	if err != nil {
		return nil, fmt.Errorf("registry: inspecting schema: %w", err)
	}
	return FromRealm(&atlas.Realm{Schemas: []*atlas.Schema{s}})
}

// FromRealm builds a registry from an inspected database realm.
//
// Every table is an entity named after its singular form ("user_groups"
// => "UserGroup"), except join tables: tables with exactly two foreign keys
// that cover all of their columns. A foreign-key column gives a to-one
// relationship on its table (O2O when the column is unique, M2O otherwise)
// and a reverse relationship on the referenced table. Join tables give a
// pair of M2M relationships.
func FromRealm(realm *atlas.Realm) (*Registry, error) {
	if realm == nil {
		return nil, fmt.Errorf("registry: nil realm")
	}
	var tables, joins []*atlas.Table
	for _, s := range realm.Schemas {
		for _, t := range s.Tables {
			if isJoinTable(t) {
				joins = append(joins, t)
			} else {
				tables = append(tables, t)
			}
		}
	}
	r := New()
	byTable := make(map[*atlas.Table]*Entity, len(tables))
	for _, t := range tables {
		e := &Entity{Name: pascal(rules.Singularize(t.Name)), Table: t.Name}
		if pk := t.PrimaryKey; pk != nil && len(pk.Parts) == 1 && pk.Parts[0].C != nil {
			e.ID = pk.Parts[0].C.Name
		}
		if err := r.Add(e); err != nil {
			return nil, err
		}
		byTable[t] = e
	}
	for _, t := range tables {
		src := byTable[t]
		for _, fk := range t.ForeignKeys {
			ref, ok := byTable[fk.RefTable]
			if !ok || len(fk.Columns) != 1 {
				continue
			}
			col := fk.Columns[0].Name
			unique := uniqueColumn(t, col)
			owner := &Relationship{
				Name:    uniqueName(src, fkName(col, ref), ref.Table),
				Target:  ref.Name,
				Rel:     M2O,
				Inverse: true,
				Table:   t.Name,
				Columns: []string{col},
				OwnFK:   true,
			}
			back := &Relationship{
				Target:  src.Name,
				Rel:     O2M,
				Table:   t.Name,
				Columns: []string{col},
			}
			if unique {
				owner.Rel, back.Rel = O2O, O2O
				back.Name = uniqueName(ref, snake(src.Name), t.Name)
			} else {
				back.Name = uniqueName(ref, rules.Pluralize(snake(src.Name)), t.Name)
			}
			if src == ref && back.Name == owner.Name {
				back.Name = uniqueName(ref, rules.Pluralize(owner.Name), t.Name)
			}
			owner.RefName = back.Name
			src.Relationships = append(src.Relationships, owner)
			ref.Relationships = append(ref.Relationships, back)
		}
	}
	for _, t := range joins {
		fa, fb := t.ForeignKeys[0], t.ForeignKeys[1]
		a, okA := byTable[fa.RefTable]
		b, okB := byTable[fb.RefTable]
		if !okA || !okB {
			continue
		}
		ca, cb := fa.Columns[0].Name, fb.Columns[0].Name
		nameA, nameB := rules.Pluralize(snake(b.Name)), rules.Pluralize(snake(a.Name))
		if a == b {
			nameA, nameB = rules.Pluralize(fkBase(cb)), rules.Pluralize(fkBase(ca))
		}
		assoc := &Relationship{
			Name:    uniqueName(a, nameA, t.Name),
			Target:  b.Name,
			Rel:     M2M,
			Table:   t.Name,
			Columns: []string{ca, cb},
		}
		a.Relationships = append(a.Relationships, assoc)
		b.Relationships = append(b.Relationships, &Relationship{
			Name:    uniqueName(b, nameB, t.Name),
			Target:  a.Name,
			Rel:     M2M,
			Inverse: true,
			RefName: assoc.Name,
			Table:   t.Name,
			Columns: []string{cb, ca},
		})
	}
	r.fillStorage()
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// isJoinTable reports if the table only links two other tables.
func isJoinTable(t *atlas.Table) bool {
	if len(t.ForeignKeys) != 2 {
		return false
	}
	covered := make(map[string]bool, 2)
	for _, fk := range t.ForeignKeys {
		if len(fk.Columns) != 1 {
			return false
		}
		covered[fk.Columns[0].Name] = true
	}
	for _, c := range t.Columns {
		if !covered[c.Name] {
			return false
		}
	}
	return true
}

// uniqueColumn reports if the column alone is unique in the table.
func uniqueColumn(t *atlas.Table, col string) bool {
	single := func(idx *atlas.Index) bool {
		return idx != nil && len(idx.Parts) == 1 && idx.Parts[0].C != nil && idx.Parts[0].C.Name == col
	}
	if single(t.PrimaryKey) {
		return true
	}
	for _, idx := range t.Indexes {
		if idx.Unique && single(idx) {
			return true
		}
	}
	return false
}

// fkBase strips the key suffix of a foreign-key column. "owner_id" => "owner".
func fkBase(col string) string {
	for _, suffix := range []string{"_id", "_key", "_fk"} {
		if base := strings.TrimSuffix(col, suffix); base != col && base != "" {
			return base
		}
	}
	return col
}

// fkName returns the relationship name of a foreign-key column. Columns
// without a key suffix are named after the referenced entity.
func fkName(col string, ref *Entity) string {
	if base := fkBase(col); base != col {
		return base
	}
	return snake(ref.Name)
}

// uniqueName returns name, or "<name>_<table>" when the entity already has
// a relationship with that name.
func uniqueName(e *Entity, name, table string) string {
	if _, ok := e.Relationship(name); !ok {
		return name
	}
	alt := name + "_" + table
	for i := 2; ; i++ {
		if _, ok := e.Relationship(alt); !ok {
			return alt
		}
		alt = fmt.Sprintf("%s_%s_%d", name, table, i)
	}
}
