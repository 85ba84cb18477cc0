package registry

import (
	"github.com/go-openapi/inflect"
)

var rules = inflect.NewDefaultRuleset()

// snake converts a Go or GraphQL name to snake case. "UserProfile" => "user_profile".
func snake(s string) string {
	return rules.Underscore(s)
}

// pascal converts a table or column name to a Go type name. "user_groups" => "UserGroups".
func pascal(s string) string {
	return rules.Camelize(s)
}

// fkColumn returns the default foreign-key column referencing name. "Pet" => "pet_id".
func fkColumn(name string) string {
	return rules.ForeignKey(name)
}

// counterpart returns the relationship on the target entity that describes
// the same association from the other side.
func (r *Registry) counterpart(src *Entity, rel *Relationship) (*Relationship, bool) {
	target, ok := r.byName[rel.Target]
	if !ok {
		return nil, false
	}
	if rel.Inverse {
		if ref, ok := target.Relationship(rel.RefName); ok && ref.Target == src.Name {
			return ref, true
		}
		return nil, false
	}
	for _, other := range target.Relationships {
		if other.Inverse && other.RefName == rel.Name && other.Target == src.Name && other != rel {
			return other, true
		}
	}
	return nil, false
}

// fillStorage sets default tables and relation columns for entities and
// relationships that do not declare them. Sides holding the foreign-key are
// resolved first, so the opposite side reuses their column.
func (r *Registry) fillStorage() {
	for _, e := range r.entities {
		if e.Table == "" {
			e.Table = rules.Tableize(e.Name)
		}
	}
	for _, e := range r.entities {
		for _, rel := range e.Relationships {
			switch {
			case rel.Rel == M2O, rel.Rel == O2O && rel.Inverse:
				rel.OwnFK = true
			case rel.Rel == O2O:
				if _, ok := r.counterpart(e, rel); !ok {
					rel.OwnFK = true
				}
			}
			if !rel.OwnFK {
				continue
			}
			if len(rel.Columns) == 0 {
				rel.Columns = []string{snake(rel.Name) + "_id"}
			}
			if rel.Table == "" {
				rel.Table = e.Table
			}
		}
	}
	for _, e := range r.entities {
		for _, rel := range e.Relationships {
			target, ok := r.byName[rel.Target]
			if !ok || rel.OwnFK {
				continue
			}
			if len(rel.Columns) == 0 {
				r.defaultStorage(e, target, rel)
			}
			if rel.Table == "" {
				rel.Table = target.Table
			}
		}
	}
}

func (r *Registry) defaultStorage(src, target *Entity, rel *Relationship) {
	ref, hasRef := r.counterpart(src, rel)
	switch rel.Rel {
	case O2M, O2O:
		if hasRef && ref.Column() != "" {
			rel.Columns = []string{ref.Column()}
		} else {
			rel.Columns = []string{fkColumn(src.Name)}
		}
	case M2M:
		if hasRef && ref.Table != "" && len(ref.Columns) == 2 {
			rel.Table, rel.Columns = ref.Table, []string{ref.Columns[1], ref.Columns[0]}
			return
		}
		if through, ok := r.byName[rel.Through]; ok && rel.Table == "" {
			rel.Table = through.Table
		}
		if rel.Table == "" {
			rel.Table = rules.Singularize(src.Table) + "_" + snake(rel.Name)
		}
		to := fkColumn(target.Name)
		if src == target {
			to = fkColumn(rel.Name)
		}
		rel.Columns = []string{fkColumn(src.Name), to}
	}
}
