package registry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kassett/relgraph/registry"
)

const familySDL = `
"A family root."
type Grandparent {
  id: ID!
  parents: [Parent!]!
}

type Parent {
  id: ID!
  grandparent: Grandparent
  children: [Child!]!
  spouse: Parent
}

type Child {
  id: ID!
  name: String!
  parent: Parent!
  clubs: [Club!]!
  passport: Passport
}

type Club {
  members: [Child!]!
}

type Passport {
  holder: Child!
}

type Query {
  grandparents: [Grandparent!]!
}
`

func TestFromSDL(t *testing.T) {
	t.Parallel()

	r, err := registry.FromSDL("family.graphql", familySDL)
	require.NoError(t, err)

	var names []string
	for _, e := range r.Entities() {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"Grandparent", "Parent", "Child", "Club", "Passport"}, names)

	gp, _ := r.Entity("Grandparent")
	assert.Equal(t, "A family root.", gp.Comment)

	tests := []struct {
		entity, name string
		rel          registry.Rel
		inverse      bool
	}{
		{"Grandparent", "parents", registry.O2M, false},
		{"Parent", "grandparent", registry.M2O, true},
		{"Parent", "children", registry.O2M, false},
		{"Parent", "spouse", registry.M2O, false},
		{"Child", "parent", registry.M2O, true},
		{"Child", "clubs", registry.M2M, false},
		{"Club", "members", registry.M2M, true},
		{"Child", "passport", registry.O2O, false},
		{"Passport", "holder", registry.O2O, true},
	}
	for _, tt := range tests {
		rel := relOf(t, r, tt.entity, tt.name)
		assert.Equal(t, tt.rel, rel.Rel, "%s.%s", tt.entity, tt.name)
		assert.Equal(t, tt.inverse, rel.Inverse, "%s.%s", tt.entity, tt.name)
	}

	child, _ := r.Entity("Child")
	require.Len(t, child.Relationships, 3, "scalar fields are not relationships")

	parents := relOf(t, r, "Grandparent", "parents")
	grandparent := relOf(t, r, "Parent", "grandparent")
	assert.Equal(t, "parents", grandparent.RefName)
	assert.Equal(t, grandparent.Columns, parents.Columns)

	_, ok := r.Entity("Query")
	assert.False(t, ok)
}

func TestFromSDLErrors(t *testing.T) {
	t.Parallel()

	_, err := registry.FromSDL("broken.graphql", "type User {")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.graphql")

	_, err = registry.FromSDL("unknown.graphql", "type User { pets: [Pet] }")
	require.Error(t, err)
}
