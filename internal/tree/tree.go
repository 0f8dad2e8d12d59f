// Package tree materializes catalog labels and their contents lazily.
//
// A scan creates one root node per label carrying the label's aggregate
// size. Directories are only listed when expanded, one level at a time, and
// every child is created with its own aggregate size. Expansion results are
// cached until the next scan discards the whole tree.
package tree

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/idelchi/dirsweep/internal/catalog"
	"github.com/idelchi/dirsweep/internal/dirstat"
)

// Errors returned by Expand and Descend.
var (
	ErrNotFound     = errors.New("node not found")
	ErrUnresolvable = errors.New("node path cannot be resolved")
)

// Tree is the node cache for one catalog.
type Tree struct {
	catalog  *catalog.Catalog
	resolver Resolver
	opt      dirstat.Options

	mu         sync.RWMutex // Protect roots, nodes and node expansion state
	roots      []*Node
	nodes      map[string]*Node
	generation uint64

	group singleflight.Group
}

// New creates an empty tree over c. Sizes are computed with opt.
func New(c *catalog.Catalog, opt dirstat.Options) *Tree {
	return &Tree{
		catalog:  c,
		resolver: Resolver{Catalog: c},
		opt:      opt,
		nodes:    make(map[string]*Node),
	}
}

// Catalog returns the catalog the tree is built from.
func (t *Tree) Catalog() *catalog.Catalog {
	return t.catalog
}

// Reset discards every cached node.
func (t *Tree) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.generation++
	t.roots = nil
	t.nodes = make(map[string]*Node)
}

// ScanRoots discards the current tree and creates one root node per label,
// in catalog order. Labels are sized one at a time; yield, if not nil, is
// called after each with the number of labels done so far.
//
// If ctx is cancelled between labels the roots created so far are returned
// together with the context error.
func (t *Tree) ScanRoots(ctx context.Context, yield func(done, total int, root *Node)) ([]*Node, error) {
	t.Reset()

	t.mu.RLock()
	generation := t.generation
	t.mu.RUnlock()

	specs := t.catalog.Specs()
	roots := make([]*Node, 0, len(specs))

	for i, spec := range specs {
		if err := ctx.Err(); err != nil {
			return roots, err
		}

		root := &Node{
			ID:         string(spec.Label),
			Label:      spec.Label,
			Name:       string(spec.Label),
			Size:       dirstat.Aggregate(ctx, t.opt, spec.Paths...),
			tree:       t,
			generation: generation,
		}

		if base, ok := spec.Base(); ok {
			root.IsDir, root.hasChildren = probe(base)
		}

		t.opt.Log.Printf("label %q: %d bytes", spec.Label, root.Size)

		t.mu.Lock()
		if t.generation == generation {
			t.roots = append(t.roots, root)
			t.nodes[root.ID] = root
		}
		t.mu.Unlock()

		roots = append(roots, root)

		if yield != nil {
			yield(i+1, len(specs), root)
		}
	}

	return roots, nil
}

// Roots returns the roots of the current scan.
func (t *Tree) Roots() []*Node {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return append([]*Node(nil), t.roots...)
}

// Node looks up a node of the current scan by ID.
func (t *Tree) Node(id string) (*Node, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	node, ok := t.nodes[id]

	return node, ok
}

// Resolve returns the absolute path of the node with the given ID.
func (t *Tree) Resolve(id string) (string, error) {
	node, ok := t.Node(id)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	path, ok := t.resolver.Resolve(node)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnresolvable, id)
	}

	return path, nil
}

// Expand returns the children of the node with the given ID, listing its
// directory the first time and serving the cached children afterwards.
//
// Entries whose metadata cannot be read are omitted, and a directory that
// cannot be listed expands to no children. Concurrent expansions of the same
// node share a single listing.
func (t *Tree) Expand(ctx context.Context, id string) ([]*Node, error) {
	node, ok := t.Node(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	if children, ok := node.cached(); ok {
		return children, nil
	}

	key := strconv.FormatUint(node.generation, 10) + ":" + id

	result, err, _ := t.group.Do(key, func() (any, error) {
		if children, ok := node.cached(); ok {
			return children, nil
		}

		path, ok := t.resolver.Resolve(node)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnresolvable, id)
		}

		children := t.list(ctx, node, path)

		// A partially sized listing must not be cached.
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		t.mu.Lock()
		defer t.mu.Unlock()

		node.children = children
		node.expanded = true
		node.hasChildren = len(children) > 0

		if node.generation == t.generation {
			for _, child := range children {
				t.nodes[child.ID] = child
			}
		}

		return children, nil
	})
	if err != nil {
		return nil, err
	}

	return append([]*Node(nil), result.([]*Node)...), nil //nolint:forcetypeassert // Only []*Node is stored
}

// Descend expands the nodes along names below label and returns the node
// that names leads to. With no names it returns the label's root.
func (t *Tree) Descend(ctx context.Context, label catalog.Label, names ...string) (*Node, error) {
	node, ok := t.Node(string(label))
	if !ok {
		return nil, fmt.Errorf("%w: label %q", ErrNotFound, label)
	}

	for _, name := range names {
		children, err := t.Expand(ctx, node.ID)
		if err != nil {
			return nil, err
		}

		var next *Node

		for _, child := range children {
			if child.Name == name {
				next = child

				break
			}
		}

		if next == nil {
			path, _ := t.resolver.Resolve(node)

			return nil, fmt.Errorf("%w: %q in %s", ErrNotFound, name, path)
		}

		node = next
	}

	return node, nil
}

// list creates the children of parent from one level of dir.
func (t *Tree) list(ctx context.Context, parent *Node, dir string) []*Node {
	log := t.opt.Log

	// os.ReadDir returns the entries sorted by name, which fixes child order.
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Printf("listing %s: %v", dir, err)
	}

	children := make([]*Node, 0, len(entries))

	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			log.Printf("omitting %s: %v", filepath.Join(dir, entry.Name()), err)

			continue
		}

		child := &Node{
			ID:         childID(parent.ID, entry.Name()),
			Label:      parent.Label,
			Name:       entry.Name(),
			tree:       t,
			parent:     parent,
			generation: parent.generation,
		}

		switch {
		case info.IsDir():
			full := filepath.Join(dir, entry.Name())
			child.IsDir = true
			child.Size = dirstat.Aggregate(ctx, t.opt, full)
			_, child.hasChildren = probe(full)
		case info.Mode().IsRegular():
			child.Size = info.Size()
		}

		children = append(children, child)
	}

	return children
}

// probe reports whether path is a directory and whether it has at least one entry.
func probe(path string) (bool, bool) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return false, false
	}

	dir, err := os.Open(path)
	if err != nil {
		return true, false
	}
	defer dir.Close()

	entries, err := dir.ReadDir(1)
	if err != nil && !errors.Is(err, io.EOF) {
		return true, false
	}

	return true, len(entries) > 0
}
