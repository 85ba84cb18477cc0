// Package schema holds the annotation primitives shared by the entity
// schema builders.
//
// Entity schemas embed relgraph.Schema and declare their relationships with
// the builders of the [edge] package:
//
//	type User struct{ relgraph.Schema }
//
//	func (User) Edges() []relgraph.Edge {
//	    return []relgraph.Edge{
//	        edge.To("posts", Post.Type),               // O2M: User has many Posts
//	        edge.To("profile", Profile.Type).Unique(), // O2O: User has one Profile
//	    }
//	}
//
//	func (User) Annotations() []schema.Annotation {
//	    return []schema.Annotation{
//	        schema.Comment("User represents an account."),
//	    }
//	}
//
// Reusable edge sets live in the [mixin] package.
package schema
