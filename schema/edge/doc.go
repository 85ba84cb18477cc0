// Package edge provides fluent builders for declaring entity relationships.
//
// Edges are the arcs of the relationship graph. Each edge names the
// attribute used to reach the related entities and its cardinality.
//
// # Edge Types
//
//   - edge.To: Defines the association (forward direction)
//   - edge.From: Defines the back-reference (inverse direction)
//
// # Relationship Cardinality
//
// Relationships are determined by the Unique() modifier:
//
//	// One-to-Many (default): User has many Posts
//	edge.To("posts", Post.Type)
//
//	// One-to-One: User has one Profile
//	edge.To("profile", Profile.Type).Unique()
//
//	// Many-to-One: Post belongs to User
//	edge.From("author", User.Type).Ref("posts").Unique()
//
//	// Many-to-Many: User has many Groups
//	edge.To("groups", Group.Type)
//
// A Unique edge is a to-one attribute; every other edge is to-many and
// yields a collection when traversed.
//
// # Bidirectional Edges
//
//	// User schema
//	func (User) Edges() []relgraph.Edge {
//	    return []relgraph.Edge{
//	        edge.To("posts", Post.Type),  // User -> Posts (O2M)
//	    }
//	}
//
//	// Post schema
//	func (Post) Edges() []relgraph.Edge {
//	    return []relgraph.Edge{
//	        edge.From("author", User.Type).  // Post -> User (M2O)
//	            Ref("posts").
//	            Unique(),
//	    }
//	}
//
// # Self-Referential Edges
//
//	edge.To("following", User.Type).From("followers")
//
// # Storage Keys
//
// The SQL loader reads related rows through the storage key of an edge:
//
//	edge.From("owner", User.Type).
//	    Ref("pets").
//	    Unique().
//	    StorageKey(edge.Column("user_id"))
//
//	edge.To("groups", Group.Type).
//	    StorageKey(
//	        edge.Table("user_groups"),
//	        edge.Columns("user_id", "group_id"),
//	    )
//
// # Traversal Annotations
//
//	edge.To("audit", Audit.Type).Annotations(edge.Skip())
//	edge.To("pets", Pet.Type).Annotations(edge.Annotation{StructField: "Animals"})
package edge
