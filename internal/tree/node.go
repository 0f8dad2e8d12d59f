package tree

import (
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/idelchi/dirsweep/internal/catalog"
)

// DirMarker is appended to the display name of directories.
const DirMarker = "/"

// Node is one materialized filesystem entry: either a catalog label (a root)
// or an entry below one. Nodes are owned by the Tree that created them.
type Node struct {
	// ID is stable across expansions and unique within the tree.
	ID string
	// Label is the catalog label the node belongs to.
	Label catalog.Label
	// Name is the label for roots and the entry name otherwise.
	Name string
	// IsDir reports whether the entry is a directory.
	IsDir bool
	// Size is the aggregate size in bytes, computed when the node was created.
	Size int64

	tree        *Tree
	parent      *Node // Non-owning, used for path reconstruction only
	generation  uint64
	expanded    bool
	hasChildren bool
	children    []*Node
}

// Parent returns the parent node, or nil for roots.
func (n *Node) Parent() *Node {
	return n.parent
}

// IsRoot reports whether the node represents a catalog label.
func (n *Node) IsRoot() bool {
	return n.parent == nil
}

// Depth returns the number of ancestors.
func (n *Node) Depth() int {
	depth := 0
	for cur := n.parent; cur != nil; cur = cur.parent {
		depth++
	}

	return depth
}

// DisplayName returns the name decorated with DirMarker for non-root directories.
func (n *Node) DisplayName() string {
	if n.IsDir && !n.IsRoot() {
		return n.Name + DirMarker
	}

	return n.Name
}

// Expanded reports whether the node's children have been materialized.
func (n *Node) Expanded() bool {
	n.tree.mu.RLock()
	defer n.tree.mu.RUnlock()

	return n.expanded
}

// HasChildren reports whether the node can be expanded into at least one
// child. Before expansion this is the "unexpanded placeholder".
func (n *Node) HasChildren() bool {
	n.tree.mu.RLock()
	defer n.tree.mu.RUnlock()

	return n.hasChildren
}

// Children returns the materialized children; empty until the node is expanded.
func (n *Node) Children() []*Node {
	n.tree.mu.RLock()
	defer n.tree.mu.RUnlock()

	return append([]*Node(nil), n.children...)
}

// cached returns the children if the node has already been expanded.
func (n *Node) cached() ([]*Node, bool) {
	n.tree.mu.RLock()
	defer n.tree.mu.RUnlock()

	if !n.expanded {
		return nil, false
	}

	return append([]*Node(nil), n.children...), true
}

// childID derives the ID of the entry name below parentID.
func childID(parentID, name string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(parentID+"\x00"+name))
}
