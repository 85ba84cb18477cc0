package registry

import (
	"fmt"
	"reflect"

	"github.com/kassett/relgraph"
	"github.com/kassett/relgraph/schema"
	"github.com/kassett/relgraph/schema/edge"
)

// decl is a relationship together with the edge declaration it came from.
type decl struct {
	owner  *Entity
	rel    *Relationship
	unique bool
	paired bool
}

// definition is an entity together with its edge declarations, mixin
// edges first.
type definition struct {
	entity *Entity
	edges  []*edge.Descriptor
}

// FromSchemas builds a registry from Go schema definitions. Entities are
// registered in argument order and relationships in declaration order,
// mixin edges first. The Go type of each schema is bound to its entity.
//
//	r, err := registry.FromSchemas(User{}, Pet{}, Group{})
func FromSchemas(schemas ...relgraph.Interface) (*Registry, error) {
	defs := make([]definition, 0, len(schemas))
	for _, s := range schemas {
		if s == nil {
			return nil, fmt.Errorf("registry: nil schema")
		}
		t := indirect(reflect.TypeOf(s))
		def := definition{entity: &Entity{Name: t.Name(), Table: s.Config().Table, Type: t}}
		var ants []schema.Annotation
		for _, m := range s.Mixin() {
			for _, ed := range m.Edges() {
				def.edges = append(def.edges, ed.Descriptor())
			}
			ants = append(ants, m.Annotations()...)
		}
		for _, ed := range s.Edges() {
			def.edges = append(def.edges, ed.Descriptor())
		}
		// Schema annotations override mixed-in annotations.
		ants = append(ants, s.Annotations()...)
		if c, ok := schema.MergeAnnotations(ants...)["Comment"].(*schema.CommentAnnotation); ok && c != nil {
			def.entity.Comment = c.Text
		}
		defs = append(defs, def)
	}
	return fromDefinitions(defs)
}

func fromDefinitions(defs []definition) (*Registry, error) {
	r := New()
	var (
		errs  []error
		decls = make(map[string][]*decl, len(defs))
	)
	for _, def := range defs {
		e := def.entity
		if err := r.Add(e); err != nil {
			errs = append(errs, err)
			continue
		}
		for _, desc := range def.edges {
			if err := desc.Check(); err != nil {
				errs = append(errs, fmt.Errorf("registry: %s edge %q: %w", e.Name, desc.Name, err))
				continue
			}
			// Bidirectional declarations produce the assoc edge first.
			if desc.Ref != nil {
				decls[e.Name] = append(decls[e.Name], newDecl(e, desc.Ref))
			}
			decls[e.Name] = append(decls[e.Name], newDecl(e, desc))
		}
	}
	if err := relgraph.NewAggregateError(errs...); err != nil {
		return nil, err
	}
	if err := r.resolveRels(decls); err != nil {
		return nil, err
	}
	r.fillStorage()
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

func newDecl(owner *Entity, desc *edge.Descriptor) *decl {
	rel := &Relationship{
		Name:    desc.Name,
		Target:  desc.Type,
		Inverse: desc.Inverse,
		RefName: desc.RefName,
		Comment: desc.Comment,
	}
	if desc.Field != "" {
		rel.Columns = []string{desc.Field}
	}
	if key := desc.StorageKey; key != nil {
		rel.Table = key.Table
		if len(key.Columns) > 0 {
			rel.Columns = append([]string(nil), key.Columns...)
		}
	}
	if desc.Through != nil {
		rel.Through = desc.Through.T
	}
	switch ant := schema.MergeAnnotations(desc.Annotations...)[edge.Annotation{}.Name()].(type) {
	case edge.Annotation:
		rel.Skip, rel.StructField = ant.Skip, ant.StructField
	case *edge.Annotation:
		if ant != nil {
			rel.Skip, rel.StructField = ant.Skip, ant.StructField
		}
	}
	owner.Relationships = append(owner.Relationships, rel)
	return &decl{owner: owner, rel: rel, unique: desc.Unique}
}

// resolveRels sets the relation type of every declared relationship.
// Inverse edges are paired with the assoc edge they reference:
//
//	assoc.Unique  inverse.Unique  assoc  inverse
//	true          true            O2O    O2O
//	false         true            O2M    M2O
//	true          false           M2O    O2M
//	false         false           M2M    M2M
//
// Assoc edges without an inverse are M2O (O2O for a self reference) when
// unique, and O2M (M2M for a self reference) otherwise.
func (r *Registry) resolveRels(decls map[string][]*decl) error {
	var errs []error
	for _, e := range r.entities {
		for _, inv := range decls[e.Name] {
			if !inv.rel.Inverse {
				continue
			}
			assoc := findAssoc(decls[inv.rel.Target], inv.rel.RefName, e.Name)
			if assoc == nil {
				errs = append(errs, fmt.Errorf("registry: inverse edge %s.%s references missing edge %s.%s", e.Name, inv.rel.Name, inv.rel.Target, inv.rel.RefName))
				continue
			}
			assoc.paired = true
			switch a, b := assoc.unique, inv.unique; {
			case a && b:
				assoc.rel.Rel, inv.rel.Rel = O2O, O2O
			case !a && b:
				assoc.rel.Rel, inv.rel.Rel = O2M, M2O
			case a && !b:
				assoc.rel.Rel, inv.rel.Rel = M2O, O2M
			default:
				assoc.rel.Rel, inv.rel.Rel = M2M, M2M
			}
			shareStorage(assoc.rel, inv.rel)
		}
	}
	for _, e := range r.entities {
		for _, d := range decls[e.Name] {
			if d.rel.Inverse || d.paired {
				continue
			}
			self := d.rel.Target == e.Name
			switch {
			case d.unique && self:
				d.rel.Rel = O2O
			case d.unique:
				d.rel.Rel = M2O
			case self:
				d.rel.Rel = M2M
			default:
				d.rel.Rel = O2M
			}
		}
	}
	return relgraph.NewAggregateError(errs...)
}

func findAssoc(decls []*decl, name, target string) *decl {
	for _, d := range decls {
		if !d.rel.Inverse && d.rel.Name == name && d.rel.Target == target {
			return d
		}
	}
	return nil
}

// shareStorage copies the storage key declared on one side of a pair to the
// side that does not declare one.
func shareStorage(assoc, inv *Relationship) {
	src, dst := assoc, inv
	if len(assoc.Columns) == 0 && len(inv.Columns) > 0 {
		src, dst = inv, assoc
	}
	if len(dst.Columns) > 0 || len(src.Columns) == 0 {
		return
	}
	switch {
	case src.Rel == M2M && len(src.Columns) == 2:
		dst.Table, dst.Columns = src.Table, []string{src.Columns[1], src.Columns[0]}
	case src.Rel != M2M:
		dst.Columns = []string{src.Columns[0]}
	}
	if dst.Through == "" {
		dst.Through = src.Through
	}
}
