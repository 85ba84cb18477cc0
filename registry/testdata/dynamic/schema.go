package dynamic

import (
	"github.com/kassett/relgraph"
	"github.com/kassett/relgraph/schema/edge"
)

// User computes its edges, which a static scan cannot follow.
type User struct {
	relgraph.Schema
}

// Edges of the User.
func (User) Edges() []relgraph.Edge {
	return []relgraph.Edge{
		friends(),
	}
}

func friends() relgraph.Edge {
	return edge.To("friends", User.Type)
}
