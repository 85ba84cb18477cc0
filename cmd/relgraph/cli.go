package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"

	"github.com/kassett/relgraph/compiler/gen"
	"github.com/kassett/relgraph/dialect"
	"github.com/kassett/relgraph/dialect/sql"
	"github.com/kassett/relgraph/graph"
	"github.com/kassett/relgraph/registry"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Globals holds the flags shared by all commands.
type Globals struct {
	Schema   string `help:"YAML registry file." type:"path" group:"source"`
	SDL      string `name:"sdl" help:"GraphQL SDL file." type:"path" group:"source"`
	DSN      string `name:"dsn" help:"Database connection string." env:"RELGRAPH_DSN" group:"source"`
	Dialect  string `help:"Database dialect of --dsn." env:"RELGRAPH_DIALECT" enum:"mysql,postgres,sqlite" default:"postgres" group:"source"`
	Dir      string `help:"Go package holding relgraph schemas." type:"path" group:"source"`
	Snapshot string `name:"snapshot" help:"Graph snapshot file." type:"path" group:"source"`
	Plural   bool   `help:"Enable plurality: paths may cross to-many relationships when traversing."`
	Verbose  bool   `short:"v" help:"Enable debug logging."`

	out io.Writer
	log *slog.Logger
}

// sources returns the names of the source flags that are set.
func (g *Globals) sources() []string {
	var set []string
	for name, v := range map[string]string{
		"--schema":   g.Schema,
		"--sdl":      g.SDL,
		"--dsn":      g.DSN,
		"--dir":      g.Dir,
		"--snapshot": g.Snapshot,
	} {
		if v != "" {
			set = append(set, name)
		}
	}
	return set
}

// loadRegistry reads the registry from the source flag.
func (g *Globals) loadRegistry(ctx context.Context) (*registry.Registry, error) {
	switch {
	case g.Schema != "":
		return registry.LoadFile(g.Schema)
	case g.SDL != "":
		b, err := os.ReadFile(g.SDL)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", g.SDL, err)
		}
		return registry.FromSDL(filepath.Base(g.SDL), string(b))
	case g.DSN != "":
		if !dialect.Valid(g.Dialect) {
			return nil, fmt.Errorf("unsupported dialect %q", g.Dialect)
		}
		drv, err := sql.Open(g.Dialect, g.DSN)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		defer drv.Close()
		return registry.Inspect(ctx, drv.DB(), g.Dialect)
	case g.Dir != "":
		return registry.LoadPackage(g.Dir)
	default:
		return nil, errors.New("no source given: use --schema, --sdl, --dsn, --dir or --snapshot")
	}
}

// loadGraph builds the relationship graph from the source flag.
func (g *Globals) loadGraph(ctx context.Context) (*graph.Graph, error) {
	if set := g.sources(); len(set) > 1 {
		return nil, fmt.Errorf("only one source allowed, got %d", len(set))
	}
	opts := []graph.Option{graph.WithLogger(g.log)}
	if g.Snapshot != "" {
		f, err := os.Open(g.Snapshot)
		if err != nil {
			return nil, fmt.Errorf("opening snapshot: %w", err)
		}
		defer f.Close()
		if g.Plural {
			opts = append(opts, graph.WithPlurality(true))
		}
		return graph.ReadSnapshot(f, opts...)
	}
	reg, err := g.loadRegistry(ctx)
	if err != nil {
		return nil, err
	}
	return graph.New(reg, append(opts, graph.WithPlurality(g.Plural))...)
}

// PathCmd prints the shortest attribute path between two entities.
type PathCmd struct {
	From     string `arg:"" help:"Source entity."`
	To       string `arg:"" help:"Target entity."`
	Must     bool   `help:"Fail when no path exists."`
	Singular bool   `help:"Only follow to-one relationships."`
}

// Run executes the path command.
func (c *PathCmd) Run(g *Globals) error {
	gr, err := g.loadGraph(context.Background())
	if err != nil {
		return err
	}
	var opts []graph.PathOption
	if c.Must {
		opts = append(opts, graph.MustExist())
	}
	if c.Singular {
		opts = append(opts, graph.SingularOnly())
	}
	path, err := gr.Path(c.From, c.To, opts...)
	switch {
	case err != nil:
		return err
	case path == nil:
		color.New(color.FgYellow).Fprintf(g.out, "%s -> %s: no path\n", c.From, c.To)
	case len(path) == 0:
		fmt.Fprintf(g.out, "%s -> %s: (same entity)\n", c.From, c.To)
	default:
		fmt.Fprintf(g.out, "%s -> %s: %s\n", c.From, c.To, color.GreenString(strings.Join(path, ".")))
	}
	return nil
}

// EdgesCmd lists the edges of the graph.
type EdgesCmd struct {
	Entity string `arg:"" optional:"" help:"List the edges of this entity only."`
}

// Run executes the edges command.
func (c *EdgesCmd) Run(g *Globals) error {
	gr, err := g.loadGraph(context.Background())
	if err != nil {
		return err
	}
	nodes := gr.Nodes()
	if c.Entity != "" {
		n, err := gr.Node(c.Entity)
		if err != nil {
			return err
		}
		nodes = []*graph.Node{n}
	}
	for _, n := range nodes {
		out, err := gr.Out(n)
		if err != nil {
			return err
		}
		for _, e := range out {
			dir := "to-one"
			if e.Plural {
				dir = "to-many"
			}
			if e.Rel != nil {
				dir = e.Rel.Rel.Direction()
			}
			fmt.Fprintf(g.out, "%s -> %s (%s)\n", color.CyanString(e.String()), e.To.Name, dir)
		}
	}
	return nil
}

// DotCmd writes the graph in the Graphviz DOT format.
type DotCmd struct {
	Out string `short:"o" help:"Output file. Defaults to stdout." type:"path"`
}

// Run executes the dot command.
func (c *DotCmd) Run(g *Globals) error {
	gr, err := g.loadGraph(context.Background())
	if err != nil {
		return err
	}
	if c.Out == "" {
		return gr.WriteDOT(g.out)
	}
	f, err := os.Create(c.Out)
	if err != nil {
		return fmt.Errorf("creating %s: %w", c.Out, err)
	}
	if err := gr.WriteDOT(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	color.New(color.FgGreen).Fprintf(g.out, "✓ Wrote %s\n", c.Out)
	return nil
}

// GenCmd generates a Go file holding the paths of the graph.
type GenCmd struct {
	Out      string `short:"o" required:"" help:"Output Go file." type:"path"`
	Package  string `default:"paths" help:"Package name of the generated file."`
	Singular bool   `help:"Only generate paths over to-one relationships."`
}

// Run executes the gen command.
func (c *GenCmd) Run(g *Globals) error {
	gr, err := g.loadGraph(context.Background())
	if err != nil {
		return err
	}
	opts := []gen.Option{gen.WithPackage(c.Package)}
	if c.Singular {
		opts = append(opts, gen.WithPathOptions(graph.SingularOnly()))
	}
	if err := gen.WriteFile(gr, c.Out, opts...); err != nil {
		return err
	}
	color.New(color.FgGreen).Fprintf(g.out, "✓ Generated %s\n", c.Out)
	return nil
}

// SnapshotCmd writes a snapshot of the graph.
type SnapshotCmd struct {
	Out string `short:"o" required:"" help:"Output snapshot file." type:"path"`
}

// Run executes the snapshot command.
func (c *SnapshotCmd) Run(g *Globals) error {
	gr, err := g.loadGraph(context.Background())
	if err != nil {
		return err
	}
	b, err := gr.Snapshot()
	if err != nil {
		return err
	}
	if err := os.WriteFile(c.Out, b, 0o644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	color.New(color.FgGreen).Fprintf(g.out, "✓ Wrote snapshot %s (graph %s)\n", c.Out, gr.ID())
	return nil
}

// WatchCmd rebuilds the graph each time the --schema file changes.
type WatchCmd struct {
	From string `arg:"" optional:"" help:"Print the path from this entity on every rebuild."`
	To   string `arg:"" optional:"" help:"Target entity of the printed path."`
}

// Run executes the watch command.
func (c *WatchCmd) Run(g *Globals) error {
	if g.Schema == "" {
		return errors.New("watch requires --schema")
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	fmt.Fprintf(g.out, "Watching %s for changes (Ctrl+C to stop)\n", g.Schema)
	return c.watch(ctx, g)
}

func (c *WatchCmd) watch(ctx context.Context, g *Globals) error {
	return registry.Watch(ctx, g.Schema, func(reg *registry.Registry, err error) {
		if err != nil {
			color.New(color.FgRed).Fprintf(g.out, "✗ %v\n", err)
			return
		}
		gr, err := graph.New(reg, graph.WithPlurality(g.Plural), graph.WithLogger(g.log))
		if err != nil {
			color.New(color.FgRed).Fprintf(g.out, "✗ %v\n", err)
			return
		}
		g.log.InfoContext(ctx, "graph rebuilt", "graph", gr.ID(), "entities", len(gr.Nodes()))
		color.New(color.FgGreen).Fprintf(g.out, "✓ Loaded %d entities\n", len(gr.Nodes()))
		if c.From == "" || c.To == "" {
			return
		}
		path, err := gr.Path(c.From, c.To)
		switch {
		case err != nil:
			color.New(color.FgRed).Fprintf(g.out, "✗ %v\n", err)
		case path == nil:
			color.New(color.FgYellow).Fprintf(g.out, "%s -> %s: no path\n", c.From, c.To)
		default:
			fmt.Fprintf(g.out, "%s -> %s: %s\n", c.From, c.To, strings.Join(path, "."))
		}
	})
}

// CLI is the root Kong command structure.
type CLI struct {
	Globals

	Version kong.VersionFlag `help:"Show version information."`

	Path  PathCmd     `cmd:"" help:"Print the shortest attribute path between two entities."`
	Edges EdgesCmd    `cmd:"" help:"List the relationships of the graph."`
	DOT   DotCmd      `cmd:"" name:"dot" help:"Write the graph in the Graphviz DOT format."`
	Gen   GenCmd      `cmd:"" help:"Generate a Go file holding the paths of the graph."`
	Snap  SnapshotCmd `cmd:"" name:"snapshot" help:"Write a snapshot of the graph."`
	Watch WatchCmd    `cmd:"" help:"Rebuild the graph each time the --schema file changes."`
}

// run parses args and executes the selected command.
func run(args []string, stdout, stderr io.Writer, exit func(int)) error {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("relgraph"),
		kong.Description("Relationship graph explorer for data models."),
		kong.UsageOnError(),
		kong.Writers(stdout, stderr),
		kong.Exit(exit),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version": Version,
		},
	)
	if err != nil {
		return err
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	level := slog.LevelWarn
	if cli.Verbose {
		level = slog.LevelDebug
	}
	cli.out = stdout
	cli.log = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	return kctx.Run(&cli.Globals)
}
