package schema

// Annotation is used to attach arbitrary metadata to schema objects.
// Annotations are keyed by their Name and consumed by the registry
// when entities and relationships are resolved.
type Annotation interface {
	// Name defines the name of the annotation to be retrieved by the registry.
	Name() string
}

// Merger wraps the single Merge function allowing annotations to be
// merged when the same annotation is declared more than once, for example
// by a mixin and by the schema itself.
type Merger interface {
	Merge(Annotation) Annotation
}

// CommentAnnotation is a builtin schema annotation for describing
// an entity. The text is shown by the relgraph CLI.
type CommentAnnotation struct {
	Text string
}

// Name implements Annotation.
func (*CommentAnnotation) Name() string {
	return "Comment"
}

// Comment returns a new CommentAnnotation with the given text.
func Comment(text string) *CommentAnnotation {
	return &CommentAnnotation{Text: text}
}

// MergeAnnotations folds the annotations by name. Later annotations are
// merged into earlier ones when they implement Merger, and replace them
// otherwise.
func MergeAnnotations(ants ...Annotation) map[string]Annotation {
	merged := make(map[string]Annotation, len(ants))
	for _, at := range ants {
		if at == nil {
			continue
		}
		name := at.Name()
		prev, ok := merged[name]
		if !ok {
			merged[name] = at
			continue
		}
		if m, ok := prev.(Merger); ok {
			merged[name] = m.Merge(at)
		} else {
			merged[name] = at
		}
	}
	return merged
}
