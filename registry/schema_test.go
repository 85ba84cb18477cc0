package registry_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kassett/relgraph"
	"github.com/kassett/relgraph/registry"
	"github.com/kassett/relgraph/schema"
	"github.com/kassett/relgraph/schema/edge"
	"github.com/kassett/relgraph/schema/mixin"
)

type (
	User     struct{ relgraph.Schema }
	Pet      struct{ relgraph.Schema }
	Group    struct{ relgraph.Schema }
	Node     struct{ relgraph.Schema }
	AuditLog struct{ relgraph.Schema }
)

func (User) Edges() []relgraph.Edge {
	return []relgraph.Edge{
		edge.To("pets", Pet.Type),
		edge.To("spouse", User.Type).Unique(),
		edge.To("following", User.Type).From("followers"),
		edge.To("groups", Group.Type).
			StorageKey(edge.Table("memberships"), edge.Columns("member_id", "group_id")),
	}
}

func (Pet) Edges() []relgraph.Edge {
	return []relgraph.Edge{
		edge.From("owner", User.Type).Ref("pets").Unique().Field("owner_id"),
	}
}

func (Group) Edges() []relgraph.Edge {
	return []relgraph.Edge{
		edge.From("users", User.Type).Ref("groups"),
	}
}

func (Group) Config() relgraph.Config {
	return relgraph.Config{Table: "teams"}
}

func (Group) Annotations() []schema.Annotation {
	return []schema.Annotation{schema.Comment("A team of users.")}
}

func (Node) Edges() []relgraph.Edge {
	return []relgraph.Edge{
		edge.To("children", Node.Type).From("parent").Unique(),
		edge.To("next", Node.Type).Unique().From("prev").Unique(),
	}
}

// Audited links entities to their audit log.
type Audited struct{ mixin.Schema }

func (Audited) Edges() []relgraph.Edge {
	return []relgraph.Edge{
		edge.To("audit_log", AuditLog.Type).Unique(),
	}
}

func (Audited) Annotations() []schema.Annotation {
	return []schema.Annotation{schema.Comment("Audited entity.")}
}

// Invoice mixes in Audited with its edges left out of the graph.
type Invoice struct{ relgraph.Schema }

func (Invoice) Mixin() []relgraph.Mixin {
	return []relgraph.Mixin{
		mixin.AnnotateEdges(Audited{}, edge.Skip()),
	}
}

func (Invoice) Edges() []relgraph.Edge {
	return []relgraph.Edge{
		edge.To("payer", User.Type).Unique().
			Annotations(edge.Annotation{StructField: "BilledTo"}),
	}
}

func relOf(t *testing.T, r *registry.Registry, entity, name string) *registry.Relationship {
	t.Helper()
	e, ok := r.Entity(entity)
	require.True(t, ok, entity)
	rel, ok := e.Relationship(name)
	require.True(t, ok, "%s.%s", entity, name)
	return rel
}

func TestFromSchemas(t *testing.T) {
	t.Parallel()

	r, err := registry.FromSchemas(User{}, Pet{}, Group{}, Node{})
	require.NoError(t, err)

	t.Run("Order", func(t *testing.T) {
		t.Parallel()
		var names []string
		for _, e := range r.Entities() {
			names = append(names, e.Name)
		}
		assert.Equal(t, []string{"User", "Pet", "Group", "Node"}, names)

		user, _ := r.Entity("User")
		var attrs []string
		for _, rel := range user.Relationships {
			attrs = append(attrs, rel.Name)
		}
		assert.Equal(t, []string{"pets", "spouse", "following", "followers", "groups"}, attrs)
		assert.Equal(t, reflect.TypeOf(User{}), user.Type)
	})

	t.Run("Relations", func(t *testing.T) {
		t.Parallel()
		tests := []struct {
			entity, name string
			rel          registry.Rel
			inverse      bool
		}{
			{"User", "pets", registry.O2M, false},
			{"Pet", "owner", registry.M2O, true},
			{"User", "spouse", registry.O2O, false},
			{"User", "following", registry.M2M, false},
			{"User", "followers", registry.M2M, true},
			{"User", "groups", registry.M2M, false},
			{"Group", "users", registry.M2M, true},
			{"Node", "children", registry.O2M, false},
			{"Node", "parent", registry.M2O, true},
			{"Node", "next", registry.O2O, false},
			{"Node", "prev", registry.O2O, true},
		}
		for _, tt := range tests {
			rel := relOf(t, r, tt.entity, tt.name)
			assert.Equal(t, tt.rel, rel.Rel, "%s.%s", tt.entity, tt.name)
			assert.Equal(t, tt.inverse, rel.Inverse, "%s.%s", tt.entity, tt.name)
		}
		assert.Equal(t, "pets", relOf(t, r, "Pet", "owner").RefName)
		assert.Equal(t, "following", relOf(t, r, "User", "followers").RefName)
	})

	t.Run("Storage", func(t *testing.T) {
		t.Parallel()
		pets := relOf(t, r, "User", "pets")
		assert.Equal(t, "pets", pets.Table)
		assert.Equal(t, []string{"owner_id"}, pets.Columns)
		assert.False(t, pets.OwnFK)

		owner := relOf(t, r, "Pet", "owner")
		assert.Equal(t, "pets", owner.Table)
		assert.Equal(t, []string{"owner_id"}, owner.Columns)
		assert.True(t, owner.OwnFK)

		spouse := relOf(t, r, "User", "spouse")
		assert.Equal(t, "users", spouse.Table)
		assert.Equal(t, []string{"spouse_id"}, spouse.Columns)
		assert.True(t, spouse.OwnFK)

		groups := relOf(t, r, "User", "groups")
		assert.Equal(t, "memberships", groups.Table)
		assert.Equal(t, []string{"member_id", "group_id"}, groups.Columns)
		users := relOf(t, r, "Group", "users")
		assert.Equal(t, "memberships", users.Table)
		assert.Equal(t, []string{"group_id", "member_id"}, users.Columns)

		following := relOf(t, r, "User", "following")
		followers := relOf(t, r, "User", "followers")
		require.Len(t, following.Columns, 2)
		assert.Equal(t, following.Table, followers.Table)
		assert.Equal(t, []string{following.Columns[1], following.Columns[0]}, followers.Columns)

		parent := relOf(t, r, "Node", "parent")
		children := relOf(t, r, "Node", "children")
		assert.True(t, parent.OwnFK)
		assert.Equal(t, []string{"parent_id"}, parent.Columns)
		assert.Equal(t, parent.Columns, children.Columns)
		assert.Equal(t, "nodes", children.Table)
	})

	t.Run("Config", func(t *testing.T) {
		t.Parallel()
		group, _ := r.Entity("Group")
		assert.Equal(t, "teams", group.Table)
		assert.Equal(t, "A team of users.", group.Comment)
	})
}

func TestFromSchemasMixin(t *testing.T) {
	t.Parallel()

	r, err := registry.FromSchemas(Invoice{}, User{}, Pet{}, Group{}, AuditLog{})
	require.NoError(t, err)

	invoice, _ := r.Entity("Invoice")
	require.Len(t, invoice.Relationships, 2)
	audit := invoice.Relationships[0]
	assert.Equal(t, "audit_log", audit.Name)
	assert.Equal(t, registry.M2O, audit.Rel)
	assert.True(t, audit.Skip)
	assert.Equal(t, "Audited entity.", invoice.Comment)

	payer := invoice.Relationships[1]
	assert.False(t, payer.Skip)
	assert.Equal(t, "BilledTo", payer.StructField)
}

func TestFromSchemasErrors(t *testing.T) {
	t.Parallel()

	t.Run("UnknownTarget", func(t *testing.T) {
		t.Parallel()
		_, err := registry.FromSchemas(Pet{})
		require.Error(t, err)
	})

	t.Run("MissingRef", func(t *testing.T) {
		t.Parallel()
		_, err := registry.FromSchemas(Group{}, Pet{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "references missing edge User.groups")
	})

	t.Run("Duplicate", func(t *testing.T) {
		t.Parallel()
		_, err := registry.FromSchemas(Node{}, Node{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "registered twice")
	})

	t.Run("Nil", func(t *testing.T) {
		t.Parallel()
		_, err := registry.FromSchemas(nil)
		require.Error(t, err)
	})
}
