package graph

import "github.com/kassett/relgraph"

// Path returns the attributes to traverse from one entity to another, using
// the fewest relationships. Ties between paths of the same length resolve to
// the one declared first, so results are stable across calls.
//
// from and to may be a *Node, an entity name, a reflect.Type, a
// registry.Named value or an instance (value or pointer) of a model type.
//
// Path returns an empty path when from and to are the same node, and a nil
// path when no path exists, unless MustExist is given.
func (g *Graph) Path(from, to any, opts ...PathOption) ([]string, error) {
	edges, err := g.Edges(from, to, opts...)
	if err != nil || edges == nil {
		return nil, err
	}
	path := make([]string, len(edges))
	for i, e := range edges {
		path[i] = e.Attribute
	}
	return path, nil
}

// HasPath reports if a path exists from one entity to another.
func (g *Graph) HasPath(from, to any) (bool, error) {
	edges, err := g.Edges(from, to)
	if err != nil {
		return false, err
	}
	return edges != nil, nil
}

// Edges is like Path, but returns the edges of the path.
func (g *Graph) Edges(from, to any, opts ...PathOption) ([]*Edge, error) {
	_, _, edges, err := g.resolve(from, to, pathOptions(opts))
	return edges, err
}

func (g *Graph) resolve(from, to any, c pathConfig) (*Node, *Node, []*Edge, error) {
	src, err := g.node(from)
	if err != nil {
		return nil, nil, nil, err
	}
	dst, err := g.node(to)
	if err != nil {
		return nil, nil, nil, err
	}
	edges := g.shortest(src, dst, c.singular)
	if edges == nil {
		g.log.Debug("no relationship path", "graph", g.id, "from", src.Name, "to", dst.Name, "singular", c.singular)
		if c.mustExist {
			return src, dst, nil, relgraph.NewNoPathError(src.Name, dst.Name)
		}
	}
	return src, dst, edges, nil
}

// shortest runs a breadth-first search from src and returns the edges
// leading to dst, or nil if dst is unreachable. Edges are visited in
// declaration order.
func (g *Graph) shortest(src, dst *Node, singular bool) []*Edge {
	if src == dst {
		return []*Edge{}
	}
	var (
		via     = make([]*Edge, len(g.nodes))
		visited = make([]bool, len(g.nodes))
		queue   = []*Node{src}
	)
	visited[src.ID] = true
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, e := range n.out {
			if visited[e.To.ID] || (singular && e.Plural) {
				continue
			}
			visited[e.To.ID] = true
			via[e.To.ID] = e
			if e.To == dst {
				return trace(via, src, dst)
			}
			queue = append(queue, e.To)
		}
	}
	return nil
}

func trace(via []*Edge, src, dst *Node) []*Edge {
	var path []*Edge
	for n := dst; n != src; n = via[n.ID].From {
		path = append(path, via[n.ID])
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
