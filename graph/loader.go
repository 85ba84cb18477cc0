package graph

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/kassett/relgraph"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// StructLoader reads relationships off in-memory Go values. For an edge
// named "audit_log", it looks up, in order:
//
//   - a map[string]any key "audit_log"
//   - the AuditLogOrErr() method of the Edges struct of the instance, as
//     found on generated entities
//   - the AuditLog member of the Edges struct of the instance
//   - an AuditLog() or AuditLog() (T, error) method of the instance
//   - an exported AuditLog field of the instance
//
// The member name can be overridden with the StructField annotation of the
// relationship. A map does not identify its entity, so a traversal starting
// from one wraps it in an Instance.
type StructLoader struct{}

// Related implements the Loader interface.
func (StructLoader) Related(ctx context.Context, instance any, e *Edge) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if isNil(instance) {
		return nil, fmt.Errorf("graph: reading %s of a nil instance", e)
	}
	if m, ok := instance.(map[string]any); ok {
		v, ok := m[e.Attribute]
		if !ok {
			return nil, fmt.Errorf("graph: map instance has no key %q", e.Attribute)
		}
		return v, nil
	}
	var (
		name = MemberName(e)
		v    = reflect.ValueOf(instance)
		s    = reflect.Indirect(v)
	)
	if s.Kind() == reflect.Struct {
		if edges := s.FieldByName("Edges"); edges.IsValid() && edges.Kind() == reflect.Struct && edges.CanInterface() {
			if m := edges.MethodByName(name + "OrErr"); m.IsValid() {
				r, err := call(m)
				if err != nil {
					return nil, fmt.Errorf("%w: %w", relgraph.NewNotLoadedError(e.Attribute), err)
				}
				return r, nil
			}
			if f := edges.FieldByName(name); f.IsValid() && f.CanInterface() {
				return f.Interface(), nil
			}
		}
	}
	if m := v.MethodByName(name); m.IsValid() && m.Type().NumIn() == 0 {
		return call(m)
	}
	if s.Kind() == reflect.Struct {
		if f := s.FieldByName(name); f.IsValid() && f.CanInterface() {
			return f.Interface(), nil
		}
	}
	return nil, fmt.Errorf("graph: %T has no member %s for edge %s", instance, name, e)
}

// call invokes a niladic accessor returning T or (T, error).
func call(m reflect.Value) (any, error) {
	t := m.Type()
	switch {
	case t.NumIn() != 0:
	case t.NumOut() == 1:
		return m.Call(nil)[0].Interface(), nil
	case t.NumOut() == 2 && t.Out(1) == errorType:
		out := m.Call(nil)
		if err, _ := out[1].Interface().(error); err != nil {
			return nil, err
		}
		return out[0].Interface(), nil
	}
	return nil, fmt.Errorf("graph: unsupported accessor signature %s", t)
}

// MemberName returns the Go member name holding the relationship of e. It is
// the StructField annotation of the relationship, or the attribute name in
// pascal case ("audit_log" becomes "AuditLog").
func MemberName(e *Edge) string {
	if e.Rel != nil && e.Rel.StructField != "" {
		return e.Rel.StructField
	}
	parts := strings.FieldsFunc(e.Attribute, func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	})
	title := cases.Title(language.Und, cases.NoLower)
	for i, p := range parts {
		parts[i] = title.String(p)
	}
	return strings.Join(parts, "")
}
