package graph

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
)

// Option configures a graph.
type Option func(*Graph) error

// WithPlurality sets if Traverse returns every reached instance as a []any
// (true), or exactly one instance (false, the default). Non-plural
// traversals fail with a NotSingularError when they reach zero or several
// instances.
func WithPlurality(enabled bool) Option {
	return func(g *Graph) error {
		g.plural = enabled
		return nil
	}
}

// WithLoader sets the loader used by Traverse to read relationships off
// instances. Defaults to StructLoader.
func WithLoader(l Loader) Option {
	return func(g *Graph) error {
		if l == nil {
			return errors.New("graph: loader cannot be nil")
		}
		g.loader = l
		return nil
	}
}

// WithLogger sets the logger of the graph. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(g *Graph) error {
		if l == nil {
			return errors.New("graph: logger cannot be nil")
		}
		g.log = l
		return nil
	}
}

// WithConcurrency sets the number of instances a traversal step loads in
// parallel. Results keep the order of the working set. Defaults to 1.
func WithConcurrency(n int) Option {
	return func(g *Graph) error {
		if n < 1 {
			return errors.New("graph: concurrency must be at least 1")
		}
		g.concurrency = n
		return nil
	}
}

// WithModel binds the Go model type of model to the named entity, so that
// instances of it resolve to the entity node. model may be a value, a
// pointer or a reflect.Type. It overrides the type bound in the registry.
func WithModel(entity string, model any) Option {
	return func(g *Graph) error {
		t, ok := model.(reflect.Type)
		if !ok {
			t = reflect.TypeOf(model)
		}
		if t == nil {
			return fmt.Errorf("graph: cannot bind entity %q to a nil model", entity)
		}
		for t.Kind() == reflect.Ptr {
			t = t.Elem()
		}
		if g.models == nil {
			g.models = make(map[string]reflect.Type)
		}
		g.models[entity] = t
		return nil
	}
}

// PathOption configures a path resolution.
type PathOption func(*pathConfig)

type pathConfig struct {
	mustExist bool
	singular  bool
}

// MustExist makes path resolutions fail with a NoPathError instead of
// returning a nil path.
func MustExist() PathOption {
	return func(c *pathConfig) {
		c.mustExist = true
	}
}

// SingularOnly restricts the search to to-one edges, so the path never
// fans out to many instances.
func SingularOnly() PathOption {
	return func(c *pathConfig) {
		c.singular = true
	}
}

func pathOptions(opts []PathOption) pathConfig {
	var c pathConfig
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
