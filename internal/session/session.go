// Package session ties the lazy tree and the cleaner together behind a
// single operation lock.
//
// Scanning and cleaning hold the lock exclusively. Expansions share it, so
// distinct nodes can be expanded concurrently while no clean can remove a
// directory that is being listed. Cleaning discards the tree; callers rescan.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/idelchi/dirsweep/internal/catalog"
	"github.com/idelchi/dirsweep/internal/clean"
	"github.com/idelchi/dirsweep/internal/debug"
	"github.com/idelchi/dirsweep/internal/dirstat"
	"github.com/idelchi/dirsweep/internal/tree"
	"github.com/idelchi/dirsweep/internal/volume"
)

// Options configures a Session.
type Options struct {
	// Walk configures size aggregation.
	Walk dirstat.Options
	// Clean configures the cleaner. Its Walk field is replaced by the
	// session's, its Log defaults to the session's.
	Clean clean.Options
	// Log receives debug output.
	Log debug.Logger
}

// Session owns the tree and the cleaner for one catalog.
type Session struct {
	mu       sync.RWMutex // Operation lock: exclusive for scan and clean
	catalog  *catalog.Catalog
	tree     *tree.Tree
	executor *clean.Executor
}

// New creates a session over c. Nothing is scanned yet.
func New(c *catalog.Catalog, opt Options) *Session {
	if !opt.Walk.Log.Enabled() {
		opt.Walk.Log = opt.Log
	}

	if !opt.Clean.Log.Enabled() {
		opt.Clean.Log = opt.Log
	}

	opt.Clean.Walk = opt.Walk

	return &Session{
		catalog:  c,
		tree:     tree.New(c, opt.Walk),
		executor: clean.New(c, opt.Clean),
	}
}

// Catalog returns the session's catalog.
func (s *Session) Catalog() *catalog.Catalog {
	return s.catalog
}

// Scan rebuilds the tree roots. See tree.Tree.ScanRoots.
func (s *Session) Scan(ctx context.Context, yield func(done, total int, root *tree.Node)) ([]*tree.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.tree.ScanRoots(ctx, yield)
}

// Roots returns the roots of the last scan.
func (s *Session) Roots() []*tree.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.tree.Roots()
}

// Expand returns the children of the node with the given ID.
func (s *Session) Expand(ctx context.Context, id string) ([]*tree.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.tree.Expand(ctx, id)
}

// Descend expands along names below label and returns the node reached.
func (s *Session) Descend(ctx context.Context, label catalog.Label, names ...string) (*tree.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.tree.Descend(ctx, label, names...)
}

// Resolve returns the absolute path of the node with the given ID.
func (s *Session) Resolve(id string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.tree.Resolve(id)
}

// Clean cleans the given labels and discards the tree.
func (s *Session) Clean(ctx context.Context, labels []catalog.Label) []clean.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	results := s.executor.DeleteSelected(ctx, labels)
	s.tree.Reset()

	return results
}

// CleanAndRescan cleans the given labels and scans again without releasing
// the operation lock in between.
func (s *Session) CleanAndRescan(
	ctx context.Context,
	labels []catalog.Label,
	yield func(done, total int, root *tree.Node),
) ([]clean.Result, []*tree.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	results := s.executor.DeleteSelected(ctx, labels)

	roots, err := s.tree.ScanRoots(ctx, yield)
	if err != nil {
		return results, roots, fmt.Errorf("rescanning after clean: %w", err)
	}

	return results, roots, nil
}

// Volume returns the capacity of the filesystem holding label's base path.
func (s *Session) Volume(label catalog.Label) (volume.Usage, error) {
	base, ok := s.catalog.Base(label)
	if !ok {
		return volume.Usage{}, fmt.Errorf("%w: label %q", tree.ErrNotFound, label)
	}

	return volume.Of(base)
}
