package graph

import (
	"bytes"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/kassett/relgraph/registry"
)

// snapshot is the encoded form of a graph.
type snapshot struct {
	ID       string             `msgpack:"id"`
	Plural   bool               `msgpack:"plural"`
	Entities []*registry.Entity `msgpack:"entities"`
}

// entities implements Source for restored snapshots.
type entities []*registry.Entity

func (e entities) Entities() []*registry.Entity { return e }

// Snapshot encodes the graph with msgpack. Skipped relationships and bound
// Go model types are not part of the snapshot. Models can be bound again
// with WithModel, or resolve by their type name.
func (g *Graph) Snapshot() ([]byte, error) {
	if err := g.check(); err != nil {
		return nil, err
	}
	s := snapshot{ID: g.id.String(), Plural: g.plural}
	for _, n := range g.nodes {
		e := *n.Entity
		e.Type = nil
		e.Relationships = make([]*registry.Relationship, 0, len(n.out))
		for _, edge := range n.out {
			e.Relationships = append(e.Relationships, edge.Rel)
		}
		s.Entities = append(s.Entities, &e)
	}
	var buf bytes.Buffer
	if err := msgpack.NewEncoder(&buf).Encode(&s); err != nil {
		return nil, fmt.Errorf("graph: encoding snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// Restore rebuilds a graph from a snapshot. Node IDs, the graph ID and the
// plurality setting are preserved. Options are applied after the snapshot
// settings.
func Restore(b []byte, opts ...Option) (*Graph, error) {
	var s snapshot
	if err := msgpack.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("graph: decoding snapshot: %w", err)
	}
	id, err := uuid.Parse(s.ID)
	if err != nil {
		return nil, fmt.Errorf("graph: snapshot id: %w", err)
	}
	opts = append([]Option{WithPlurality(s.Plural)}, opts...)
	g, err := New(entities(s.Entities), opts...)
	if err != nil {
		return nil, err
	}
	g.id = id
	return g, nil
}

// ReadSnapshot reads a snapshot from r and restores it.
func ReadSnapshot(r io.Reader, opts ...Option) (*Graph, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("graph: reading snapshot: %w", err)
	}
	return Restore(b, opts...)
}
