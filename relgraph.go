// Package relgraph declares entity schemas and their relationships.
//
// Schemas embed Schema and list their relationships with the builders of the
// schema/edge package. The registry package turns them into mapped entities
// and the graph package resolves attribute paths between them.
package relgraph

import (
	"github.com/kassett/relgraph/schema"
	"github.com/kassett/relgraph/schema/edge"
)

type (
	// Interface is implemented by every entity schema. Embed Schema to get
	// the default implementation and override Edges.
	Interface interface {
		// Type is a dummy method used in edge declarations:
		//
		//	edge.To("posts", Post.Type)
		//
		Type()
		// Edges returns the relationships declared by the entity.
		Edges() []Edge
		// Mixin returns reusable schema parts mixed into the entity.
		Mixin() []Mixin
		// Config returns entity level configuration.
		Config() Config
		// Annotations returns entity annotations.
		Annotations() []schema.Annotation
	}

	// Edge is the interface implemented by the edge builders.
	Edge interface {
		Descriptor() *edge.Descriptor
	}

	// Mixin is a reusable set of edges mixed into a schema.
	Mixin interface {
		Edges() []Edge
		Annotations() []schema.Annotation
	}

	// Config holds entity configuration.
	Config struct {
		// Table overrides the storage table of the entity.
		Table string `json:"table,omitempty" yaml:"table,omitempty"`
	}

	// Schema is the default implementation of Interface.
	Schema struct {
		Interface
	}
)

// Type implements Interface.
func (Schema) Type() {}

// Edges of the schema.
func (Schema) Edges() []Edge { return nil }

// Mixin of the schema.
func (Schema) Mixin() []Mixin { return nil }

// Config of the schema.
func (Schema) Config() Config { return Config{} }

// Annotations of the schema.
func (Schema) Annotations() []schema.Annotation { return nil }

var _ Interface = (*Schema)(nil)
