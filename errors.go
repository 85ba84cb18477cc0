package relgraph

import (
	"errors"
	"fmt"
	"strings"
)

// Standard sentinel errors for graph operations.
var (
	// ErrUninitialized is returned when a graph is queried before it was built.
	ErrUninitialized = errors.New("relgraph: graph has not been built")

	// ErrNodeNotFound is returned when an entity is not a node of the graph.
	ErrNodeNotFound = errors.New("relgraph: node not found")

	// ErrNoPath is returned when no relationship chain connects two entities
	// and the caller asked for the path to exist.
	ErrNoPath = errors.New("relgraph: no path")

	// ErrNotSingular is returned when a traversal expected exactly one
	// result but produced zero or several.
	ErrNotSingular = errors.New("relgraph: result not singular")
)

// NodeNotFoundError represents an entity missing from the graph.
type NodeNotFoundError struct {
	node string
}

// Error returns the error string.
func (e *NodeNotFoundError) Error() string {
	return fmt.Sprintf("relgraph: node %q is not in the graph", e.node)
}

// Is reports whether the target error matches NodeNotFoundError.
// This allows errors.Is(err, ErrNodeNotFound) to return true.
func (e *NodeNotFoundError) Is(err error) bool {
	return err == ErrNodeNotFound
}

// Node returns the name (or type) of the missing node.
func (e *NodeNotFoundError) Node() string {
	return e.node
}

// NewNodeNotFoundError returns a new NodeNotFoundError for the given node.
func NewNodeNotFoundError(node string) *NodeNotFoundError {
	return &NodeNotFoundError{node: node}
}

// IsNodeNotFound returns true if the error is a NodeNotFoundError.
func IsNodeNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *NodeNotFoundError
	return errors.As(err, &e) || errors.Is(err, ErrNodeNotFound)
}

// NoPathError represents a missing relationship chain between two entities.
type NoPathError struct {
	From string
	To   string
}

// Error returns the error string.
func (e *NoPathError) Error() string {
	return fmt.Sprintf("relgraph: no path from %s to %s", e.From, e.To)
}

// Is reports whether the target error matches NoPathError.
func (e *NoPathError) Is(err error) bool {
	return err == ErrNoPath
}

// NewNoPathError returns a new NoPathError.
func NewNoPathError(from, to string) *NoPathError {
	return &NoPathError{From: from, To: to}
}

// IsNoPath returns true if the error is a NoPathError.
func IsNoPath(err error) bool {
	if err == nil {
		return false
	}
	var e *NoPathError
	return errors.As(err, &e) || errors.Is(err, ErrNoPath)
}

// NotSingularError represents a traversal that expected a singular result
// but reached zero or multiple instances.
type NotSingularError struct {
	label string
	count int // Number of instances reached (-1 if unknown)
}

// Error returns the error string.
func (e *NotSingularError) Error() string {
	if e.count >= 0 {
		return fmt.Sprintf("relgraph: %s not singular (got %d results, expected 1)", e.label, e.count)
	}
	return fmt.Sprintf("relgraph: %s not singular", e.label)
}

// Is reports whether the target error matches NotSingularError.
func (e *NotSingularError) Is(err error) bool {
	return err == ErrNotSingular
}

// Label returns the entity label.
func (e *NotSingularError) Label() string {
	return e.label
}

// Count returns the number of results, or -1 if unknown.
func (e *NotSingularError) Count() int {
	return e.count
}

// NewNotSingularError returns a new NotSingularError for the given entity.
func NewNotSingularError(label string) *NotSingularError {
	return &NotSingularError{label: label, count: -1}
}

// NewNotSingularErrorWithCount returns a new NotSingularError with the result count.
func NewNotSingularErrorWithCount(label string, count int) *NotSingularError {
	return &NotSingularError{label: label, count: count}
}

// IsNotSingular returns true if the error is a NotSingularError.
func IsNotSingular(err error) bool {
	if err == nil {
		return false
	}
	var e *NotSingularError
	return errors.As(err, &e) || errors.Is(err, ErrNotSingular)
}

// NotLoadedError represents an error when reading a relationship that was
// not eager-loaded on the instance.
type NotLoadedError struct {
	edge string
}

// Error returns the error string.
func (e *NotLoadedError) Error() string {
	return fmt.Sprintf("relgraph: edge %q was not loaded", e.edge)
}

// NewNotLoadedError returns a new NotLoadedError for the given edge name.
func NewNotLoadedError(edge string) *NotLoadedError {
	return &NotLoadedError{edge: edge}
}

// IsNotLoaded returns true if the error is a NotLoadedError.
func IsNotLoaded(err error) bool {
	if err == nil {
		return false
	}
	var e *NotLoadedError
	return errors.As(err, &e)
}

// LoadError wraps a failure to read a relationship off an instance.
type LoadError struct {
	Entity    string // Entity type of the instance
	Attribute string // Relationship attribute being read
	Err       error  // Underlying error
}

// Error returns the error string.
func (e *LoadError) Error() string {
	return fmt.Sprintf("relgraph: loading %s.%s: %v", e.Entity, e.Attribute, e.Err)
}

// Unwrap returns the underlying error.
func (e *LoadError) Unwrap() error {
	return e.Err
}

// NewLoadError returns a new LoadError.
func NewLoadError(entity, attribute string, err error) *LoadError {
	return &LoadError{Entity: entity, Attribute: attribute, Err: err}
}

// IsLoadError returns true if the error is a LoadError.
func IsLoadError(err error) bool {
	if err == nil {
		return false
	}
	var e *LoadError
	return errors.As(err, &e)
}

// AggregateError represents multiple errors collected during an operation.
type AggregateError struct {
	Errors []error
}

// Error returns the error string.
func (e *AggregateError) Error() string {
	if len(e.Errors) == 0 {
		return "relgraph: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var sb strings.Builder
	sb.WriteString("relgraph: multiple errors:")
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "\n  [%d] %v", i+1, err)
	}
	return sb.String()
}

// Unwrap returns the collected errors.
func (e *AggregateError) Unwrap() []error {
	return e.Errors
}

// NewAggregateError returns a new AggregateError if there are errors,
// otherwise returns nil.
func NewAggregateError(errs ...error) error {
	var filtered []error
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &AggregateError{Errors: filtered}
}
