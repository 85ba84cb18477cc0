// Package mixin provides the base mixin implementation for relgraph schemas.
//
// A mixin is a reusable set of edges that can be embedded in multiple
// schema definitions, for example an audit trail every entity links to:
//
//	type Audited struct {
//	    mixin.Schema
//	}
//
//	func (Audited) Edges() []relgraph.Edge {
//	    return []relgraph.Edge{
//	        edge.To("audit_log", AuditLog.Type).Unique(),
//	    }
//	}
//
//	func (User) Mixin() []relgraph.Mixin {
//	    return []relgraph.Mixin{
//	        Audited{},
//	    }
//	}
package mixin

import (
	"github.com/kassett/relgraph"
	"github.com/kassett/relgraph/schema"
)

// Schema is the default implementation for the relgraph.Mixin interface.
// It should be embedded in all custom mixin definitions.
type Schema struct{}

// Edges returns the edges of the mixin.
func (Schema) Edges() []relgraph.Edge { return nil }

// Annotations returns the annotations of the mixin.
func (Schema) Annotations() []schema.Annotation { return nil }

// schema mixin must implement `Mixin` interface.
var _ relgraph.Mixin = (*Schema)(nil)

// AnnotateEdges wraps a mixin and adds annotations to all its edges.
//
//	mixin.AnnotateEdges(
//	    Audited{},
//	    edge.Skip(),
//	)
func AnnotateEdges(m relgraph.Mixin, annotations ...schema.Annotation) relgraph.Mixin {
	return edgeAnnotator{Mixin: m, annotations: annotations}
}

type edgeAnnotator struct {
	relgraph.Mixin
	annotations []schema.Annotation
}

func (a edgeAnnotator) Edges() []relgraph.Edge {
	edges := a.Mixin.Edges()
	for i := range edges {
		desc := edges[i].Descriptor()
		desc.Annotations = append(desc.Annotations, a.annotations...)
	}
	return edges
}
