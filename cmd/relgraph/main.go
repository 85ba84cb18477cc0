// relgraph inspects the relationship graph of a data model: shortest
// attribute paths between entities, edge listings, DOT export, code
// generation and snapshots.
//
// The model is read from one source: a YAML registry file (--schema), a
// GraphQL SDL file (--sdl), a live database (--dsn), a Go schema package
// (--dir) or a graph snapshot (--snapshot).
package main

import (
	"fmt"
	"os"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr, os.Exit); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
