package registry_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kassett/relgraph"
	"github.com/kassett/relgraph/registry"
)

const familyYAML = `
entities:
  - name: Grandparent
    relationships:
      - name: parents
        target: Parent
        direction: one-to-many
  - name: Parent
    table: parent_nodes
    relationships:
      - name: grandparent
        target: Grandparent
        direction: many-to-one
        inverse: true
        ref: parents
      - name: children
        target: Child
        direction: O2M
  - name: Child
    comment: Leaf of the family tree.
    relationships:
      - name: parent
        target: Parent
        direction: M2O
        columns: [parent_node_id]
`

func TestParse(t *testing.T) {
	t.Parallel()

	r, err := registry.Parse([]byte(familyYAML))
	require.NoError(t, err)
	require.Equal(t, 3, r.Len())

	parent, ok := r.Entity("Parent")
	require.True(t, ok)
	assert.Equal(t, "parent_nodes", parent.Table)
	require.Len(t, parent.Relationships, 2)
	assert.Equal(t, registry.M2O, parent.Relationships[0].Rel)
	assert.Equal(t, registry.O2M, parent.Relationships[1].Rel)

	grandparent, _ := r.Entity("Grandparent")
	assert.Equal(t, "grandparents", grandparent.Table)
	parents := grandparent.Relationships[0]
	assert.Equal(t, "parent_nodes", parents.Table)
	assert.Equal(t, []string{"grandparent_id"}, parents.Columns)

	child, _ := r.Entity("Child")
	assert.Equal(t, "Leaf of the family tree.", child.Comment)
	assert.Equal(t, []string{"parent_node_id"}, child.Relationships[0].Columns)
	assert.True(t, child.Relationships[0].OwnFK)
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name, doc, contains string
	}{
		{
			name:     "unknown_key",
			doc:      "entities:\n  - name: User\n    tables: users\n",
			contains: "decoding yaml",
		},
		{
			name:     "missing_direction",
			doc:      "entities:\n  - name: User\n    relationships:\n      - name: friends\n        target: User\n",
			contains: "has no direction",
		},
		{
			name:     "bad_direction",
			doc:      "entities:\n  - name: User\n    relationships:\n      - name: friends\n        target: User\n        direction: sideways\n",
			contains: "unknown relation",
		},
		{
			name:     "unknown_target",
			doc:      "entities:\n  - name: User\n    relationships:\n      - name: pets\n        target: Pet\n        direction: O2M\n",
			contains: `"Pet"`,
		},
		{
			name:     "duplicate_entity",
			doc:      "entities:\n  - name: User\n  - name: User\n",
			contains: "registered twice",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := registry.Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}

	t.Run("empty", func(t *testing.T) {
		t.Parallel()
		r, err := registry.Parse(nil)
		require.NoError(t, err)
		assert.Zero(t, r.Len())
	})
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "registry.yaml")
	require.NoError(t, os.WriteFile(path, []byte(familyYAML), 0o600))
	r, err := registry.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 3, r.Len())

	_, err = registry.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestEncode(t *testing.T) {
	t.Parallel()

	r, err := registry.Parse([]byte(familyYAML))
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, r.Encode(&buf))
	assert.Contains(t, buf.String(), "direction: one-to-many")

	decoded, err := registry.Parse(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, r.Entities(), decoded.Entities())
}

func TestWatch(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "registry.yaml")
	require.NoError(t, os.WriteFile(path, []byte(familyYAML), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	type result struct {
		r   *registry.Registry
		err error
	}
	results := make(chan result, 16)
	done := make(chan error, 1)
	go func() {
		done <- registry.Watch(ctx, path, func(r *registry.Registry, err error) {
			results <- result{r, err}
		})
	}()

	next := func() result {
		select {
		case res := <-results:
			return res
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for a registry reload")
			return result{}
		}
	}
	first := next()
	require.NoError(t, first.err)
	assert.Equal(t, 3, first.r.Len())

	require.NoError(t, os.WriteFile(path, []byte("entities:\n  - name: Solo\n"), 0o600))
	second := next()
	require.NoError(t, second.err)
	_, ok := second.r.Entity("Solo")
	assert.True(t, ok)

	require.NoError(t, os.WriteFile(path, []byte("entities:\n  - name: Solo\n    relationships:\n      - name: x\n        target: Nope\n        direction: M2O\n"), 0o600))
	third := next()
	assert.True(t, relgraph.IsNodeNotFound(third.err))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}
