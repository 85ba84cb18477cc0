package registry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
)

// FromSDL builds a registry from a GraphQL schema document. Object types
// become entities and object-typed fields become relationships: list
// fields are to-many and other fields are to-one. A field pointing back at
// its source type is paired with it as an inverse.
//
//	type User {
//	  id: ID!
//	  pets: [Pet!]!
//	}
//	type Pet {
//	  id: ID!
//	  owner: User
//	}
//
// Root operation types are ignored.
func FromSDL(name, sdl string) (*Registry, error) {
	s, err := gqlparser.LoadSchema(&ast.Source{Name: name, Input: sdl})
	if err != nil {
		return nil, fmt.Errorf("registry: parsing %s: %w", name, err)
	}
	roots := make(map[string]bool, 3)
	for _, d := range []*ast.Definition{s.Query, s.Mutation, s.Subscription} {
		if d != nil {
			roots[d.Name] = true
		}
	}
	var defs []*ast.Definition
	for _, d := range s.Types {
		if d.Kind == ast.Object && !d.BuiltIn && !roots[d.Name] && !strings.HasPrefix(d.Name, "__") {
			defs = append(defs, d)
		}
	}
	sort.Slice(defs, func(i, j int) bool {
		li, lj := line(defs[i].Position), line(defs[j].Position)
		if li != lj {
			return li < lj
		}
		return defs[i].Name < defs[j].Name
	})
	objects := make(map[string]*ast.Definition, len(defs))
	for _, d := range defs {
		objects[d.Name] = d
	}
	r := New()
	for _, d := range defs {
		e := &Entity{Name: d.Name, Comment: strings.TrimSpace(d.Description)}
		for _, f := range d.Fields {
			target, ok := objects[f.Type.Name()]
			if !ok {
				continue
			}
			e.Relationships = append(e.Relationships, &Relationship{
				Name:    f.Name,
				Target:  target.Name,
				Rel:     sdlRel(d, f, target),
				Comment: strings.TrimSpace(f.Description),
			})
		}
		if err := r.Add(e); err != nil {
			return nil, err
		}
	}
	r.pairInverses()
	r.fillStorage()
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

func line(p *ast.Position) int {
	if p == nil {
		return 0
	}
	return p.Line
}

// sdlRel derives the relation type of field f on src from its own
// cardinality and the cardinality of the first field on target pointing
// back at src.
func sdlRel(src *ast.Definition, f *ast.FieldDefinition, target *ast.Definition) Rel {
	many := f.Type.Elem != nil
	back := backField(target, src.Name, f)
	switch {
	case back == nil && many:
		return O2M
	case back == nil:
		return M2O
	case many && back.Type.Elem != nil:
		return M2M
	case many:
		return O2M
	case back.Type.Elem != nil:
		return M2O
	default:
		return O2O
	}
}

func backField(target *ast.Definition, src string, exclude *ast.FieldDefinition) *ast.FieldDefinition {
	for _, f := range target.Fields {
		if f != exclude && f.Type.Name() == src {
			return f
		}
	}
	return nil
}

// pairInverses marks the second relationship of every two-sided
// association as the inverse of the first one.
func (r *Registry) pairInverses() {
	claimed := make(map[*Relationship]bool)
	for _, e := range r.entities {
		for _, rel := range e.Relationships {
			if claimed[rel] || rel.Target == e.Name {
				continue
			}
			target := r.byName[rel.Target]
			for _, back := range target.Relationships {
				if back.Target == e.Name && !claimed[back] {
					back.Inverse, back.RefName = true, rel.Name
					claimed[rel], claimed[back] = true, true
					break
				}
			}
		}
	}
}
