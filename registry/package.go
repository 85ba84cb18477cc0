package registry

import (
	"fmt"
	"go/ast"
	"go/token"
	"path"
	"strconv"

	"golang.org/x/tools/go/packages"

	"github.com/kassett/relgraph/schema/edge"
)

// Import paths recognized by the package scanner.
const (
	rootPkg   = "github.com/kassett/relgraph"
	edgePkg   = rootPkg + "/schema/edge"
	schemaPkg = rootPkg + "/schema"
	mixinPkg  = rootPkg + "/schema/mixin"
)

// LoadPackage statically scans the Go schema package in dir and builds a
// registry from it, without compiling or running the package. Schemas are
// the struct types embedding relgraph.Schema, in source order. Only literal
// declarations are understood: Edges, Mixin, Config and Annotations must
// return composite literals of builder chains, and builder arguments must
// be string literals.
//
// Use FromSchemas for schemas that compute their edges.
func LoadPackage(dir string) (*Registry, error) {
	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedFiles | packages.NeedCompiledGoFiles | packages.NeedSyntax,
		Dir:  dir,
	}
	pkgs, err := packages.Load(cfg, ".")
	if err != nil {
		return nil, fmt.Errorf("registry: loading package %s: %w", dir, err)
	}
	if len(pkgs) != 1 {
		return nil, fmt.Errorf("registry: expected one package in %s, got %d", dir, len(pkgs))
	}
	pkg := pkgs[0]
	if len(pkg.Errors) > 0 {
		return nil, fmt.Errorf("registry: loading package %s: %v", dir, pkg.Errors[0])
	}
	sc := &scanner{
		fset:    pkg.Fset,
		types:   make(map[string]*ast.TypeSpec),
		methods: make(map[string]map[string]*ast.FuncDecl),
		aliases: make(map[*ast.File]map[string]string),
		files:   make(map[*ast.TypeSpec]*ast.File),
	}
	for _, f := range pkg.Syntax {
		sc.addFile(f)
	}
	defs, err := sc.definitions()
	if err != nil {
		return nil, err
	}
	return fromDefinitions(defs)
}

// scanner evaluates schema declarations from their syntax tree.
type scanner struct {
	fset    *token.FileSet
	order   []*ast.TypeSpec
	types   map[string]*ast.TypeSpec
	methods map[string]map[string]*ast.FuncDecl
	aliases map[*ast.File]map[string]string // local name => import path
	files   map[*ast.TypeSpec]*ast.File
}

func (sc *scanner) addFile(f *ast.File) {
	aliases := make(map[string]string, len(f.Imports))
	for _, imp := range f.Imports {
		p, err := strconv.Unquote(imp.Path.Value)
		if err != nil {
			continue
		}
		name := path.Base(p)
		if imp.Name != nil {
			name = imp.Name.Name
		}
		aliases[name] = p
	}
	sc.aliases[f] = aliases
	for _, decl := range f.Decls {
		switch decl := decl.(type) {
		case *ast.GenDecl:
			if decl.Tok != token.TYPE {
				continue
			}
			for _, spec := range decl.Specs {
				ts := spec.(*ast.TypeSpec)
				if _, ok := ts.Type.(*ast.StructType); ok {
					sc.order = append(sc.order, ts)
					sc.types[ts.Name.Name] = ts
					sc.files[ts] = f
				}
			}
		case *ast.FuncDecl:
			if decl.Recv == nil || len(decl.Recv.List) != 1 {
				continue
			}
			recv := decl.Recv.List[0].Type
			if star, ok := recv.(*ast.StarExpr); ok {
				recv = star.X
			}
			id, ok := recv.(*ast.Ident)
			if !ok {
				continue
			}
			if sc.methods[id.Name] == nil {
				sc.methods[id.Name] = make(map[string]*ast.FuncDecl)
			}
			sc.methods[id.Name][decl.Name.Name] = decl
		}
	}
}

// embeds reports if the struct type embeds <pkg>.Schema.
func (sc *scanner) embeds(ts *ast.TypeSpec, pkg string) bool {
	for _, field := range ts.Type.(*ast.StructType).Fields.List {
		if len(field.Names) > 0 {
			continue
		}
		if sc.qualified(sc.files[ts], field.Type, pkg, "Schema") {
			return true
		}
	}
	return false
}

// qualified reports if expr is the selector <pkg>.<name>.
func (sc *scanner) qualified(f *ast.File, expr ast.Expr, pkg, name string) bool {
	sel, ok := expr.(*ast.SelectorExpr)
	if !ok || sel.Sel.Name != name {
		return false
	}
	id, ok := sel.X.(*ast.Ident)
	return ok && sc.aliases[f][id.Name] == pkg
}

func (sc *scanner) definitions() ([]definition, error) {
	var defs []definition
	for _, ts := range sc.order {
		if !sc.embeds(ts, rootPkg) {
			continue
		}
		def, err := sc.definition(ts)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func (sc *scanner) definition(ts *ast.TypeSpec) (definition, error) {
	name := ts.Name.Name
	def := definition{entity: &Entity{Name: name}}
	if lit, _ := sc.returned(name, "Config"); lit != nil {
		for _, elt := range lit.Elts {
			if kv, ok := elt.(*ast.KeyValueExpr); ok && isIdent(kv.Key, "Table") {
				table, err := sc.str(kv.Value)
				if err != nil {
					return def, err
				}
				def.entity.Table = table
			}
		}
	}
	mixins, err := sc.mixinEdges(name)
	if err != nil {
		return def, err
	}
	def.edges = append(def.edges, mixins...)
	edges, err := sc.edges(name, nil)
	if err != nil {
		return def, err
	}
	def.edges = append(def.edges, edges...)
	if lit, f := sc.returned(name, "Annotations"); lit != nil {
		for _, elt := range lit.Elts {
			if call, ok := elt.(*ast.CallExpr); ok && sc.qualified(f, call.Fun, schemaPkg, "Comment") && len(call.Args) == 1 {
				text, err := sc.str(call.Args[0])
				if err != nil {
					return def, err
				}
				def.entity.Comment = text
			}
		}
	}
	return def, nil
}

// returned returns the composite literal returned by the method of typ.
func (sc *scanner) returned(typ, method string) (*ast.CompositeLit, *ast.File) {
	fn, ok := sc.methods[typ][method]
	if !ok || fn.Body == nil {
		return nil, nil
	}
	var lit *ast.CompositeLit
	for _, stmt := range fn.Body.List {
		ret, ok := stmt.(*ast.ReturnStmt)
		if !ok || len(ret.Results) != 1 {
			continue
		}
		lit, _ = unparen(ret.Results[0]).(*ast.CompositeLit)
	}
	if lit == nil {
		return nil, nil
	}
	return lit, sc.fileOf(fn)
}

func (sc *scanner) fileOf(n ast.Node) *ast.File {
	for f := range sc.aliases {
		if f.Pos() <= n.Pos() && n.End() <= f.End() {
			return f
		}
	}
	return nil
}

// mixinEdges returns the edges of the mixins of typ, in mixin order.
func (sc *scanner) mixinEdges(typ string) ([]*edge.Descriptor, error) {
	lit, f := sc.returned(typ, "Mixin")
	if lit == nil {
		return nil, nil
	}
	var descs []*edge.Descriptor
	for _, elt := range lit.Elts {
		var extra []ast.Expr
		if call, ok := elt.(*ast.CallExpr); ok && sc.qualified(f, call.Fun, mixinPkg, "AnnotateEdges") && len(call.Args) > 0 {
			elt, extra = call.Args[0], call.Args[1:]
		}
		name := typeName(elt)
		if _, ok := sc.types[name]; !ok {
			return nil, sc.errorf(elt, "%s.Mixin: unsupported mixin expression", typ)
		}
		ants, err := sc.annotations(f, extra)
		if err != nil {
			return nil, err
		}
		edges, err := sc.edges(name, ants)
		if err != nil {
			return nil, err
		}
		descs = append(descs, edges...)
	}
	return descs, nil
}

// edges evaluates the Edges method of typ. The extra annotations are added
// to every edge.
func (sc *scanner) edges(typ string, extra []edge.Annotation) ([]*edge.Descriptor, error) {
	lit, f := sc.returned(typ, "Edges")
	if lit == nil {
		return nil, nil
	}
	descs := make([]*edge.Descriptor, 0, len(lit.Elts))
	for _, elt := range lit.Elts {
		desc, err := sc.edge(f, typ, elt)
		if err != nil {
			return nil, err
		}
		for _, ant := range extra {
			desc.Annotations = append(desc.Annotations, ant)
		}
		descs = append(descs, desc)
	}
	return descs, nil
}

// edge replays a builder chain such as:
//
//	edge.To("children", Node.Type).From("parent").Unique()
func (sc *scanner) edge(f *ast.File, typ string, expr ast.Expr) (*edge.Descriptor, error) {
	var calls []*ast.CallExpr
	for {
		call, ok := unparen(expr).(*ast.CallExpr)
		if !ok {
			return nil, sc.errorf(expr, "%s.Edges: unsupported edge expression", typ)
		}
		calls = append(calls, call)
		sel, ok := call.Fun.(*ast.SelectorExpr)
		if !ok {
			return nil, sc.errorf(expr, "%s.Edges: unsupported edge expression", typ)
		}
		if sc.qualified(f, sel, edgePkg, sel.Sel.Name) {
			break
		}
		expr = sel.X
	}
	var desc *edge.Descriptor
	for i := len(calls) - 1; i >= 0; i-- {
		call := calls[i]
		method := call.Fun.(*ast.SelectorExpr).Sel.Name
		args, err := sc.strs(call.Args, method)
		if err != nil {
			return nil, err
		}
		switch {
		case desc == nil && (method == "To" || method == "From") && len(call.Args) == 2:
			desc = &edge.Descriptor{Name: args[0], Type: typeName(call.Args[1]), Inverse: method == "From"}
		case desc == nil:
			return nil, sc.errorf(call, "%s.Edges: unsupported edge constructor %q", typ, method)
		case method == "Unique":
			desc.Unique = true
		case method == "From" && len(args) == 1:
			desc = &edge.Descriptor{Name: args[0], Type: desc.Type, Inverse: true, Ref: desc}
		case method == "Ref" && len(args) == 1:
			desc.RefName = args[0]
		case method == "Field" && len(args) == 1:
			desc.Field = args[0]
		case method == "Comment" && len(args) == 1:
			desc.Comment = args[0]
		case method == "StructTag" && len(args) == 1:
			desc.Tag = args[0]
		case method == "Through" && len(call.Args) == 2:
			desc.Through = &struct{ N, T string }{N: args[0], T: typeName(call.Args[1])}
		case method == "StorageKey":
			key, err := sc.storageKey(f, call.Args)
			if err != nil {
				return nil, err
			}
			desc.StorageKey = key
		case method == "Annotations":
			ants, err := sc.annotations(f, call.Args)
			if err != nil {
				return nil, err
			}
			for _, ant := range ants {
				desc.Annotations = append(desc.Annotations, ant)
			}
		default:
			return nil, sc.errorf(call, "%s.Edges: unsupported builder method %q", typ, method)
		}
	}
	if desc.Ref != nil {
		desc.RefName = desc.Ref.Name
	}
	return desc, nil
}

func (sc *scanner) storageKey(f *ast.File, opts []ast.Expr) (*edge.StorageKey, error) {
	key := &edge.StorageKey{}
	for _, opt := range opts {
		call, ok := unparen(opt).(*ast.CallExpr)
		if !ok {
			return nil, sc.errorf(opt, "unsupported storage option")
		}
		sel, ok := call.Fun.(*ast.SelectorExpr)
		if !ok || !sc.qualified(f, sel, edgePkg, sel.Sel.Name) {
			return nil, sc.errorf(opt, "unsupported storage option")
		}
		args, err := sc.strs(call.Args, sel.Sel.Name)
		if err != nil {
			return nil, err
		}
		switch name := sel.Sel.Name; {
		case name == "Table" && len(args) == 1:
			edge.Table(args[0])(key)
		case name == "Column" && len(args) == 1:
			edge.Column(args[0])(key)
		case name == "Columns" && len(args) == 2:
			edge.Columns(args[0], args[1])(key)
		case name == "Symbol" && len(args) == 1:
			edge.Symbol(args[0])(key)
		default:
			return nil, sc.errorf(opt, "unsupported storage option %q", name)
		}
	}
	return key, nil
}

// annotations evaluates the traversal annotations among exprs. Other
// annotations are ignored.
func (sc *scanner) annotations(f *ast.File, exprs []ast.Expr) ([]edge.Annotation, error) {
	var ants []edge.Annotation
	for _, expr := range exprs {
		expr = unparen(expr)
		if u, ok := expr.(*ast.UnaryExpr); ok && u.Op == token.AND {
			expr = u.X
		}
		switch x := expr.(type) {
		case *ast.CallExpr:
			if sc.qualified(f, x.Fun, edgePkg, "Skip") {
				ants = append(ants, edge.Skip())
			}
		case *ast.CompositeLit:
			if !sc.qualified(f, x.Type, edgePkg, "Annotation") {
				continue
			}
			var ant edge.Annotation
			for _, elt := range x.Elts {
				kv, ok := elt.(*ast.KeyValueExpr)
				if !ok {
					return nil, sc.errorf(elt, "unsupported annotation field")
				}
				switch {
				case isIdent(kv.Key, "Skip"):
					ant.Skip = isIdent(kv.Value, "true")
				case isIdent(kv.Key, "StructField"):
					s, err := sc.str(kv.Value)
					if err != nil {
						return nil, err
					}
					ant.StructField = s
				}
			}
			ants = append(ants, ant)
		}
	}
	return ants, nil
}

// strs evaluates the string literal arguments of a builder call. Non-string
// arguments are returned as empty strings.
func (sc *scanner) strs(args []ast.Expr, method string) ([]string, error) {
	out := make([]string, len(args))
	for i, arg := range args {
		lit, ok := unparen(arg).(*ast.BasicLit)
		if !ok || lit.Kind != token.STRING {
			continue
		}
		s, err := strconv.Unquote(lit.Value)
		if err != nil {
			return nil, sc.errorf(arg, "%s: %v", method, err)
		}
		out[i] = s
	}
	return out, nil
}

func (sc *scanner) str(expr ast.Expr) (string, error) {
	lit, ok := unparen(expr).(*ast.BasicLit)
	if !ok || lit.Kind != token.STRING {
		return "", sc.errorf(expr, "expected a string literal")
	}
	return strconv.Unquote(lit.Value)
}

func (sc *scanner) errorf(n ast.Node, format string, args ...any) error {
	return fmt.Errorf("registry: %s: %s", sc.fset.Position(n.Pos()), fmt.Sprintf(format, args...))
}

// typeName returns the schema name of a type argument: Post.Type, Post{},
// &Post{} or Post.
func typeName(expr ast.Expr) string {
	switch x := unparen(expr).(type) {
	case *ast.SelectorExpr:
		if id, ok := x.X.(*ast.Ident); ok && x.Sel.Name == "Type" {
			return id.Name
		}
	case *ast.CompositeLit:
		return typeName(x.Type)
	case *ast.UnaryExpr:
		return typeName(x.X)
	case *ast.Ident:
		if x.Name != "nil" {
			return x.Name
		}
	}
	return ""
}

func isIdent(expr ast.Expr, name string) bool {
	id, ok := expr.(*ast.Ident)
	return ok && id.Name == name
}

func unparen(expr ast.Expr) ast.Expr {
	for {
		p, ok := expr.(*ast.ParenExpr)
		if !ok {
			return expr
		}
		expr = p.X
	}
}
