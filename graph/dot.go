package graph

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
)

// WriteDOT writes the graph in the Graphviz DOT format. Nodes are written
// in ID order and edges in declaration order. To-many edges are dashed.
func (g *Graph) WriteDOT(w io.Writer) error {
	if err := g.check(); err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "digraph relgraph {")
	fmt.Fprintln(bw, "\tnode [shape=box];")
	for _, n := range g.nodes {
		fmt.Fprintf(bw, "\tn%d [label=%s];\n", n.ID, strconv.Quote(n.Name))
	}
	for _, n := range g.nodes {
		for _, e := range n.out {
			style := ""
			if e.Plural {
				style = ", style=dashed"
			}
			fmt.Fprintf(bw, "\tn%d -> n%d [label=%s%s];\n", e.From.ID, e.To.ID, strconv.Quote(e.Attribute), style)
		}
	}
	fmt.Fprintln(bw, "}")
	return bw.Flush()
}
