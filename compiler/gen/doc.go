// Package gen generates Go source holding the precomputed shortest paths
// of a relationship graph.
//
// The generated file declares one []string variable per ordered pair of
// connected entities and a Lookup function, so programs can resolve
// attribute paths without building a graph at runtime:
//
//	// PathPetToGroup is the path from Pet to Group.
//	var PathPetToGroup = []string{"owner", "groups"}
//
//	func Lookup(from, to string) []string
//
// # Usage
//
//	g, err := graph.New(reg)
//	if err != nil {
//	    return err
//	}
//	err = gen.WriteFile(g, "internal/paths/paths.go",
//	    gen.WithPackage("paths"),
//	    gen.WithPathOptions(graph.SingularOnly()),
//	)
//
// Output is formatted with goimports. When formatting fails, the
// unformatted source is written next to the target with an ".error" suffix.
package gen
