// Package graph builds a directed multigraph over the entities of a
// registry and resolves the shortest attribute path between two of them.
//
// # Graph Structure
//
// Every registered entity becomes a Node and every declared relationship an
// Edge labelled with its attribute name and plurality:
//
//	type Edge struct {
//	    From, To  *Node
//	    Attribute string // accessor name, e.g. "parent"
//	    Plural    bool   // true for one-to-many and many-to-many
//	    Rel       *registry.Relationship
//	}
//
// Parallel edges between the same pair of entities are all kept. The graph
// is built once by New and cannot be modified afterwards, which makes it
// safe for concurrent readers.
//
// # Paths
//
// Path runs a breadth-first search and returns the attribute names of the
// shortest chain. Ties resolve to the relationship declared first:
//
//	g, err := graph.New(reg)
//	if err != nil {
//	    return err
//	}
//	path, err := g.Path("Child", "Grandparent")
//	// path == []string{"parent", "grandparent"}
//
// A missing path yields a nil slice, or a *relgraph.NoPathError with
// MustExist. SingularOnly restricts the search to to-one relationships.
//
// # Traversal
//
// Traverse executes a path against a live instance through a Loader:
//
//	grandparent, err := g.Traverse(ctx, child, "Grandparent")
//
// StructLoader, the default, reads relationships off Go structs. The SQL
// loader in dialect/sql reads them from a database. All and One wrap
// Traverse with typed results:
//
//	kids, err := graph.All[*Child](ctx, g, grandparent)
//
// # Snapshots
//
// Snapshot encodes the graph with msgpack and Restore rebuilds it with the
// same node IDs. WriteDOT exports the graph in the Graphviz format.
package graph
