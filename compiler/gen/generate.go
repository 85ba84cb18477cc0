package gen

import (
	"bytes"
	"fmt"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/dave/jennifer/jen"
	"golang.org/x/tools/imports"

	"github.com/kassett/relgraph/graph"
)

// pair is a generated path between two entities.
type pair struct {
	from, to string
	name     string
	path     []string
}

// Generate renders the Go source of the paths of g.
func Generate(g *graph.Graph, opts ...Option) ([]byte, error) {
	c, err := NewConfig(opts...)
	if err != nil {
		return nil, err
	}
	pairs, err := paths(g, c)
	if err != nil {
		return nil, err
	}
	f := jen.NewFile(c.Package)
	if c.Header != "" {
		f.HeaderComment(c.Header)
	}
	names := make([]jen.Code, 0, len(g.Nodes()))
	for _, n := range g.Nodes() {
		names = append(names, jen.Lit(n.Name))
	}
	f.Comment("Entities holds the entity names of the graph, in declaration order.")
	f.Var().Id("Entities").Op("=").Index().String().Values(names...)
	for _, p := range pairs {
		steps := make([]jen.Code, len(p.path))
		for i, s := range p.path {
			steps[i] = jen.Lit(s)
		}
		f.Commentf("%s is the path from %s to %s.", p.name, p.from, p.to)
		f.Var().Id(p.name).Op("=").Index().String().Values(steps...)
	}
	f.Var().Id("paths").Op("=").Map(jen.Index(jen.Lit(2)).String()).Index().String().Values(jen.DictFunc(func(d jen.Dict) {
		for _, p := range pairs {
			d[jen.Values(jen.Lit(p.from), jen.Lit(p.to))] = jen.Id(p.name)
		}
	}))
	f.Comment("Lookup returns a copy of the attribute path from the entity from to the")
	f.Comment("entity to. It returns an empty path when from equals to, and nil when")
	f.Comment("no path exists.")
	f.Func().Id("Lookup").Params(jen.List(jen.Id("from"), jen.Id("to")).String()).Index().String().Block(
		jen.If(jen.Id("from").Op("==").Id("to")).Block(
			jen.Return(jen.Index().String().Values()),
		),
		jen.Return(jen.Qual("slices", "Clone").Call(
			jen.Id("paths").Index(jen.Index(jen.Lit(2)).String().Values(jen.Id("from"), jen.Id("to"))),
		)),
	)
	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return nil, NewGenerationError("render", "", "rendering paths", err)
	}
	formatted, err := imports.Process(c.Package+".go", buf.Bytes(), nil)
	if err != nil {
		return buf.Bytes(), NewGenerationError("format", "", "formatting paths", err)
	}
	return formatted, nil
}

// WriteFile generates the paths of g and writes them to path. On format
// errors the unformatted source is written to path+".error".
func WriteFile(g *graph.Graph, path string, opts ...Option) error {
	src, err := Generate(g, opts...)
	if err != nil {
		if IsGenerationError(err) && src != nil {
			// Errors intentionally ignored as we're already in error state.
			debugPath := path + ".error"
			_ = os.MkdirAll(filepath.Dir(debugPath), 0o755)
			_ = os.WriteFile(debugPath, src, 0o644)
			return fmt.Errorf("%w (unformatted written to %s)", err, debugPath)
		}
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return NewGenerationError("write", path, "creating directory", err)
	}
	if err := os.WriteFile(path, src, 0o644); err != nil {
		return NewGenerationError("write", path, "writing file", err)
	}
	return nil
}

// paths resolves the path of every ordered pair of distinct, connected
// entities in declaration order.
func paths(g *graph.Graph, c *Config) ([]pair, error) {
	var (
		pairs []pair
		seen  = make(map[string]string)
	)
	for _, from := range g.Nodes() {
		for _, to := range g.Nodes() {
			if from == to {
				continue
			}
			path, err := g.Path(from, to, c.PathOptions...)
			if err != nil {
				return nil, NewGenerationError("paths", "", fmt.Sprintf("resolving %s to %s", from, to), err)
			}
			if path == nil {
				continue
			}
			name := c.VarPrefix + ident(from.Name) + "To" + ident(to.Name)
			if !token.IsIdentifier(name) {
				return nil, NewGenerationError("paths", "", fmt.Sprintf("variable %q for %s->%s is not a valid Go identifier, set a VarPrefix", name, from, to), nil)
			}
			if prev, ok := seen[name]; ok {
				return nil, NewGenerationError("paths", "", fmt.Sprintf("variable %s declared for %s and %s->%s", name, prev, from, to), nil)
			}
			seen[name] = from.Name + "->" + to.Name
			pairs = append(pairs, pair{from: from.Name, to: to.Name, name: name, path: path})
		}
	}
	return pairs, nil
}

// ident converts an entity name to an exported Go identifier part.
func ident(name string) string {
	var b strings.Builder
	upper := true
	for _, r := range name {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if upper {
				r = unicode.ToUpper(r)
				upper = false
			}
			b.WriteRune(r)
		default:
			upper = true
		}
	}
	return b.String()
}
