package graph

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"golang.org/x/sync/errgroup"

	"github.com/kassett/relgraph"
)

type (
	// Loader reads the instances related to an instance through an edge.
	// To-one relationships return the related instance or nil, to-many
	// relationships return a slice.
	Loader interface {
		Related(ctx context.Context, instance any, e *Edge) (any, error)
	}

	// BatchLoader is implemented by loaders that read a relationship of
	// several instances at once. The results are aligned with instances.
	// When the graph loader implements it, each traversal step issues one
	// RelatedBatch call instead of a Related call per instance.
	BatchLoader interface {
		Loader
		RelatedBatch(ctx context.Context, instances []any, e *Edge) ([]any, error)
	}
)

// ErrNotInstance is returned when a traversal starts from an entity
// reference (a *Node, an entity name or a reflect.Type) instead of an
// instance.
var ErrNotInstance = errors.New("graph: traversal must start from an instance")

// Instance names the entity of a value whose type does not identify it,
// such as a map[string]any. Traversals started from an Instance walk Value.
//
//	g.Traverse(ctx, graph.Instance{Entity: "User", Value: row}, "Pet")
type Instance struct {
	Entity string
	Value  any
}

// EntityName implements the registry.Named interface.
func (i Instance) EntityName() string { return i.Entity }

// Traverse follows the path from the entity of start to the entity to and
// returns the instances reached. With plurality enabled the result is a
// []any, possibly empty. Otherwise it is the single instance reached, and
// reaching zero or several instances fails with a NotSingularError.
//
// Traverse returns nil when no path exists, unless MustExist is given.
// Results are read live through the loader of the graph on every call.
func (g *Graph) Traverse(ctx context.Context, start, to any, opts ...PathOption) (any, error) {
	if err := g.check(); err != nil {
		return nil, err
	}
	return g.traverse(ctx, start, to, g.plural, pathOptions(opts))
}

func (g *Graph) traverse(ctx context.Context, start, to any, plural bool, c pathConfig) (any, error) {
	switch start.(type) {
	case *Node, string, reflect.Type:
		return nil, fmt.Errorf("%w: got %T", ErrNotInstance, start)
	}
	_, dst, edges, err := g.resolve(start, to, c)
	if err != nil || edges == nil {
		return nil, err
	}
	if i, ok := start.(Instance); ok {
		start = i.Value
	}
	set, err := g.walk(ctx, start, edges)
	if err != nil {
		return nil, err
	}
	if plural {
		return set, nil
	}
	if len(set) != 1 {
		return nil, relgraph.NewNotSingularErrorWithCount(dst.Name, len(set))
	}
	return set[0], nil
}

// walk runs the edges against the working set, starting from start.
func (g *Graph) walk(ctx context.Context, start any, edges []*Edge) ([]any, error) {
	set := []any{start}
	for _, e := range edges {
		if len(set) == 0 {
			break
		}
		var err error
		if set, err = g.step(ctx, set, e); err != nil {
			return nil, err
		}
	}
	return set, nil
}

// step loads the edge of every instance in the set and returns the
// flattened results in order.
func (g *Graph) step(ctx context.Context, set []any, e *Edge) ([]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var results []any
	if bl, ok := g.loader.(BatchLoader); ok {
		rs, err := bl.RelatedBatch(ctx, set, e)
		if err != nil {
			return nil, relgraph.NewLoadError(e.From.Name, e.Attribute, err)
		}
		if len(rs) != len(set) {
			return nil, relgraph.NewLoadError(e.From.Name, e.Attribute, fmt.Errorf("batch loader returned %d results for %d instances", len(rs), len(set)))
		}
		results = rs
	} else {
		results = make([]any, len(set))
		eg, ctx := errgroup.WithContext(ctx)
		eg.SetLimit(g.concurrency)
		for i, v := range set {
			eg.Go(func() error {
				r, err := g.loader.Related(ctx, v, e)
				if err != nil {
					return relgraph.NewLoadError(e.From.Name, e.Attribute, err)
				}
				results[i] = r
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return nil, err
		}
	}
	next := make([]any, 0, len(results))
	for _, r := range results {
		next = appendResult(next, r, e.Plural)
	}
	return next, nil
}

// appendResult appends a loaded value to the set. Values of to-many edges
// are flattened one level, values of to-one edges are appended whole.
// Absent values are dropped.
func appendResult(set []any, r any, plural bool) []any {
	if isNil(r) {
		return set
	}
	v := reflect.ValueOf(r)
	if !plural || (v.Kind() != reflect.Slice && v.Kind() != reflect.Array) {
		return append(set, r)
	}
	for i := 0; i < v.Len(); i++ {
		if x := v.Index(i).Interface(); !isNil(x) {
			set = append(set, x)
		}
	}
	return set
}

func isNil(x any) bool {
	if x == nil {
		return true
	}
	switch v := reflect.ValueOf(x); v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}

// All traverses from start to the entity of T and returns every instance
// reached, regardless of the plurality setting of the graph.
//
//	children, err := graph.All[*Child](ctx, g, grandparent)
func All[T any](ctx context.Context, g *Graph, start any, opts ...PathOption) ([]T, error) {
	if err := g.check(); err != nil {
		return nil, err
	}
	to := reflect.TypeOf((*T)(nil)).Elem()
	res, err := g.traverse(ctx, start, to, true, pathOptions(opts))
	if err != nil || res == nil {
		return nil, err
	}
	set := res.([]any)
	out := make([]T, 0, len(set))
	for _, x := range set {
		v, err := convert[T](x)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// One traverses from start to the entity of T and returns the single
// instance reached. It fails with a NotSingularError when the traversal
// reaches zero or several instances.
//
//	grandparent, err := graph.One[*Grandparent](ctx, g, child)
func One[T any](ctx context.Context, g *Graph, start any, opts ...PathOption) (T, error) {
	var zero T
	if err := g.check(); err != nil {
		return zero, err
	}
	to := reflect.TypeOf((*T)(nil)).Elem()
	res, err := g.traverse(ctx, start, to, false, pathOptions(opts))
	if err != nil || res == nil {
		return zero, err
	}
	return convert[T](res)
}

func convert[T any](x any) (T, error) {
	if v, ok := x.(T); ok {
		return v, nil
	}
	var zero T
	want := reflect.TypeOf((*T)(nil)).Elem()
	if v := reflect.ValueOf(x); v.Kind() == reflect.Ptr && !v.IsNil() && v.Elem().Type() == want {
		return v.Elem().Interface().(T), nil
	}
	return zero, fmt.Errorf("graph: unexpected instance type %T, want %s", x, want)
}
