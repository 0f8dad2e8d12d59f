package tui

import "github.com/idelchi/dirsweep/internal/tree"

// row is one visible line of the browser.
type row struct {
	node  *tree.Node
	depth int
	open  bool
}

// flatten lists the visible nodes depth first. The children of a node are
// shown when it is marked open and has been expanded.
func flatten(roots []*tree.Node, open map[string]bool) []row {
	var rows []row

	var visit func(n *tree.Node, depth int)

	visit = func(n *tree.Node, depth int) {
		isOpen := open[n.ID] && n.Expanded()
		rows = append(rows, row{node: n, depth: depth, open: isOpen})

		if !isOpen {
			return
		}

		for _, child := range n.Children() {
			visit(child, depth+1)
		}
	}

	for _, root := range roots {
		visit(root, 0)
	}

	return rows
}

// parentRow returns the index of the row holding the parent of rows[i], or -1.
func parentRow(rows []row, i int) int {
	parent := rows[i].node.Parent()
	if parent == nil {
		return -1
	}

	for j := i - 1; j >= 0; j-- {
		if rows[j].node == parent {
			return j
		}
	}

	return -1
}
