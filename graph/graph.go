package graph

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/google/uuid"

	"github.com/kassett/relgraph"
	"github.com/kassett/relgraph/registry"
)

// Source provides the entities a graph is built from. *registry.Registry
// implements it.
type Source interface {
	Entities() []*registry.Entity
}

type (
	// Node is one entity of the graph.
	Node struct {
		// ID is the registration index of the entity. It is stable for a
		// given source and survives Snapshot and Restore.
		ID int
		// Name is the entity name.
		Name string
		// Type is the Go model type bound to the entity, if any.
		Type reflect.Type
		// Entity holds the registry entry of the node.
		Entity *registry.Entity

		out []*Edge
	}

	// Edge is a relationship from one entity to another.
	Edge struct {
		From *Node
		To   *Node
		// Attribute is the accessor name of the relationship.
		Attribute string
		// Plural reports if the relationship leads to many instances.
		Plural bool
		// Rel holds the registry relationship of the edge.
		Rel *registry.Relationship
	}
)

// String returns the entity name.
func (n *Node) String() string { return n.Name }

// String returns the edge in the "From.attribute" form.
func (e *Edge) String() string { return e.From.Name + "." + e.Attribute }

// Graph is the relationship graph of a set of entities.
type Graph struct {
	id          uuid.UUID
	nodes       []*Node
	byName      map[string]*Node
	byType      map[reflect.Type]*Node
	models      map[string]reflect.Type
	edges       int
	plural      bool
	loader      Loader
	log         *slog.Logger
	concurrency int
}

// New builds the graph of the entities provided by src. A node is added per
// entity and an edge per relationship, parallel edges included. Relationships
// annotated with Skip are left out.
func New(src Source, opts ...Option) (*Graph, error) {
	if src == nil {
		return nil, errors.New("graph: nil source")
	}
	g := &Graph{
		id:          uuid.New(),
		byName:      make(map[string]*Node),
		byType:      make(map[reflect.Type]*Node),
		loader:      StructLoader{},
		log:         slog.Default(),
		concurrency: 1,
	}
	for _, opt := range opts {
		if err := opt(g); err != nil {
			return nil, err
		}
	}
	if err := g.build(src.Entities()); err != nil {
		return nil, err
	}
	g.log.Debug("relationship graph built", "graph", g.id, "nodes", len(g.nodes), "edges", g.edges)
	return g, nil
}

func (g *Graph) build(entities []*registry.Entity) error {
	for _, e := range entities {
		if e == nil {
			return errors.New("graph: nil entity")
		}
		if _, ok := g.byName[e.Name]; ok {
			return fmt.Errorf("graph: entity %q registered twice", e.Name)
		}
		n := &Node{ID: len(g.nodes), Name: e.Name, Type: e.Type, Entity: e}
		if t, ok := g.models[e.Name]; ok {
			n.Type = t
		}
		g.nodes = append(g.nodes, n)
		g.byName[n.Name] = n
		if n.Type != nil {
			g.byType[n.Type] = n
		}
	}
	var errs []error
	for name := range g.models {
		if _, ok := g.byName[name]; !ok {
			errs = append(errs, fmt.Errorf("graph: model binding: %w", relgraph.NewNodeNotFoundError(name)))
		}
	}
	for _, n := range g.nodes {
		for _, rel := range n.Entity.Relationships {
			if rel.Skip {
				continue
			}
			to, ok := g.byName[rel.Target]
			if !ok {
				errs = append(errs, fmt.Errorf("graph: relationship %s.%s: %w", n.Name, rel.Name, relgraph.NewNodeNotFoundError(rel.Target)))
				continue
			}
			n.out = append(n.out, &Edge{
				From:      n,
				To:        to,
				Attribute: rel.Name,
				Plural:    plural(rel.Rel),
				Rel:       rel,
			})
			g.edges++
		}
	}
	return relgraph.NewAggregateError(errs...)
}

// plural reports if the relation leads to many instances.
func plural(r registry.Rel) bool {
	return strings.HasSuffix(strings.ToLower(r.Direction()), "many")
}

// check fails for graphs that were not created by New or Restore.
func (g *Graph) check() error {
	if g == nil || g.byName == nil {
		return relgraph.ErrUninitialized
	}
	return nil
}

// ID returns the identifier of the graph.
func (g *Graph) ID() uuid.UUID {
	if g == nil {
		return uuid.Nil
	}
	return g.id
}

// Plural reports if traversals return all reached instances instead of a
// single one.
func (g *Graph) Plural() bool {
	return g != nil && g.plural
}

// Nodes returns the nodes of the graph ordered by ID.
func (g *Graph) Nodes() []*Node {
	if g.check() != nil {
		return nil
	}
	return append([]*Node(nil), g.nodes...)
}

// Node returns the node referenced by ref. See Path for the accepted
// references.
func (g *Graph) Node(ref any) (*Node, error) {
	return g.node(ref)
}

// Out returns the outgoing edges of the node referenced by ref, in
// declaration order.
func (g *Graph) Out(ref any) ([]*Edge, error) {
	n, err := g.node(ref)
	if err != nil {
		return nil, err
	}
	return append([]*Edge(nil), n.out...), nil
}

// node resolves a node reference: a *Node, an entity name, a reflect.Type,
// a registry.Named value or an instance of a model type. Model types that
// were not bound to an entity resolve by their type name.
func (g *Graph) node(ref any) (*Node, error) {
	if err := g.check(); err != nil {
		return nil, err
	}
	var (
		n    *Node
		ok   bool
		name string
	)
	switch v := ref.(type) {
	case nil:
		name = "<nil>"
	case *Node:
		if v == nil {
			name = "<nil>"
			break
		}
		name = v.Name
		n, ok = g.byName[v.Name]
	case string:
		name = v
		n, ok = g.byName[v]
	case reflect.Type:
		n, name, ok = g.typeNode(v)
	case registry.Named:
		name = v.EntityName()
		n, ok = g.byName[name]
	default:
		n, name, ok = g.typeNode(reflect.TypeOf(v))
	}
	if !ok {
		return nil, relgraph.NewNodeNotFoundError(name)
	}
	return n, nil
}

func (g *Graph) typeNode(t reflect.Type) (*Node, string, bool) {
	if t == nil {
		return nil, "<nil>", false
	}
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if n, ok := g.byType[t]; ok {
		return n, n.Name, true
	}
	n, ok := g.byName[t.Name()]
	if ok && n.Type != nil && n.Type != t {
		ok = false
	}
	return n, t.String(), ok
}
