package tree

import (
	"path/filepath"
	"slices"
	"strings"

	"github.com/idelchi/dirsweep/internal/catalog"
)

// Resolver reconstructs absolute paths from a node's ancestry.
type Resolver struct {
	Catalog *catalog.Catalog
}

// Resolve walks from n up to its root, collects the entry names and joins
// them onto the root label's base path. Only the first path of a multi-path
// label is used as the base.
//
// It returns false if the root label is not part of the catalog.
func (r Resolver) Resolve(n *Node) (string, bool) {
	if n == nil || r.Catalog == nil {
		return "", false
	}

	var names []string

	root := n
	for root.parent != nil {
		names = append(names, strings.TrimSuffix(root.DisplayName(), DirMarker))
		root = root.parent
	}

	base, ok := r.Catalog.Base(root.Label)
	if !ok {
		return "", false
	}

	slices.Reverse(names)

	return filepath.Join(append([]string{base}, names...)...), true
}
