// Package dotgraph renders an interned search tree as a Graphviz dot
// graph: one labelled node, carrying its assignment tuple, value, visits
// and UCT relative to its parent, for the root and every node reachable
// from it through visited children. Edges point only to children that
// were actually visited; unvisited children are left out of the graph.
package dotgraph

import (
	"fmt"
	"os"
	"strings"

	"github.com/yourorg/paramsearch/internal/errors"
	"github.com/yourorg/paramsearch/internal/mctstree"
)

// Render returns the full "digraph paramMCTS { ... }" document for the
// subtree rooted at root.
func Render(root *mctstree.Node) string {
	var b strings.Builder
	b.WriteString("digraph \"paramMCTS\" {\n")
	b.WriteString("node [shape=box];\n")
	writeNode(&b, root, nil)
	b.WriteString("}\n")
	return b.String()
}

// WriteFile renders the subtree rooted at root and writes it to path.
func WriteFile(path string, root *mctstree.Node) error {
	if err := os.WriteFile(path, []byte(Render(root)), 0o644); err != nil {
		return errors.Wrap(errors.CodeSave, "failed to write dot graph", err).WithDetail("path", path)
	}
	return nil
}

func writeNode(b *strings.Builder, n *mctstree.Node, parent *mctstree.Node) {
	uct := 0.0
	if parent != nil {
		uct = mctstree.UCT(parent, n)
	}

	name := nodeName(n)
	label := nodeLabel(n)
	fmt.Fprintf(b, "%s [label=\"%s\\nvalue:%g  visits:%d  uct:%.3f\"];\n",
		name, label, n.Value, n.Visits, uct)

	if !n.Expanded() {
		return
	}

	var visited []*mctstree.Node
	for _, c := range n.Children {
		if c.Visits > 0 {
			visited = append(visited, c)
		}
	}
	if len(visited) == 0 {
		return
	}

	childNames := make([]string, len(visited))
	for i, c := range visited {
		childNames[i] = nodeName(c)
	}
	fmt.Fprintf(b, "%s -> {%s};\n", name, strings.Join(childNames, " "))

	for _, c := range visited {
		writeNode(b, c, n)
	}
}

// nodeName returns a dot-safe identifier for n, derived from its
// interning key: the assignment-set key is already unique per node.
func nodeName(n *mctstree.Node) string {
	return fmt.Sprintf("\"%s\"", n.Key())
}

func nodeLabel(n *mctstree.Node) string {
	if len(n.Assignments) == 0 {
		return "root"
	}
	return strings.ReplaceAll(n.AssignmentString(), `"`, `\"`)
}
