package edge

import "github.com/kassett/relgraph/schema"

// Annotation is a builtin schema annotation for configuring how an edge
// takes part in path resolution and traversal.
type Annotation struct {
	// Skip leaves the edge out of the relationship graph. Paths never
	// cross a skipped edge.
	Skip bool

	// The StructField option overrides the member of the model that holds
	// the related instances. For example:
	//
	//	edge.Annotation{
	//		StructField: "Animals",
	//	}
	//
	StructField string
}

// Name describes the annotation name.
func (Annotation) Name() string {
	return "Traversal"
}

// Merge implements the schema.Merger interface.
func (a Annotation) Merge(other schema.Annotation) schema.Annotation {
	var ant Annotation
	switch other := other.(type) {
	case Annotation:
		ant = other
	case *Annotation:
		if other != nil {
			ant = *other
		}
	default:
		return a
	}
	if ant.Skip {
		a.Skip = true
	}
	if f := ant.StructField; f != "" {
		a.StructField = f
	}
	return a
}

// Skip returns an annotation that leaves the edge out of the graph.
func Skip() Annotation {
	return Annotation{Skip: true}
}

var (
	_ schema.Annotation = (*Annotation)(nil)
	_ schema.Merger     = (*Annotation)(nil)
)
