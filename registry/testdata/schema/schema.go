package schema

import (
	"github.com/kassett/relgraph"
	"github.com/kassett/relgraph/schema"
	"github.com/kassett/relgraph/schema/edge"
	"github.com/kassett/relgraph/schema/mixin"
)

// Grandparent holds the schema definition for the Grandparent entity.
type Grandparent struct {
	relgraph.Schema
}

// Edges of the Grandparent.
func (Grandparent) Edges() []relgraph.Edge {
	return []relgraph.Edge{
		edge.To("parents", Parent.Type),
	}
}

// Annotations of the Grandparent.
func (Grandparent) Annotations() []schema.Annotation {
	return []schema.Annotation{
		schema.Comment("Root of the family tree."),
	}
}

// Parent holds the schema definition for the Parent entity.
type Parent struct {
	relgraph.Schema
}

// Config of the Parent.
func (Parent) Config() relgraph.Config {
	return relgraph.Config{Table: "parent_nodes"}
}

// Mixin of the Parent.
func (Parent) Mixin() []relgraph.Mixin {
	return []relgraph.Mixin{
		mixin.AnnotateEdges(Audited{}, edge.Skip()),
	}
}

// Edges of the Parent.
func (Parent) Edges() []relgraph.Edge {
	return []relgraph.Edge{
		edge.From("grandparent", Grandparent.Type).
			Ref("parents").
			Unique(),
		edge.To("children", Child.Type).
			Annotations(edge.Annotation{StructField: "Kids"}),
		edge.To("friends", Parent.Type).
			StorageKey(edge.Table("parent_friends"), edge.Columns("parent_id", "friend_id")),
	}
}

// Child holds the schema definition for the Child entity.
type Child struct {
	relgraph.Schema
}

// Edges of the Child.
func (Child) Edges() []relgraph.Edge {
	return []relgraph.Edge{
		edge.From("parent", Parent.Type).Ref("children").Unique().Field("parent_node_id"),
		edge.To("next", Child.Type).Unique().From("prev").Unique(),
	}
}

// AuditLog holds the schema definition for the AuditLog entity.
type AuditLog struct {
	relgraph.Schema
}

// Audited links entities to the audit log.
type Audited struct {
	mixin.Schema
}

// Edges of the Audited mixin.
func (Audited) Edges() []relgraph.Edge {
	return []relgraph.Edge{
		edge.To("audit_log", AuditLog.Type).Unique(),
	}
}
