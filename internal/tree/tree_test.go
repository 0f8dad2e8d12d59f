package tree_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"github.com/idelchi/dirsweep/internal/catalog"
	"github.com/idelchi/dirsweep/internal/dirstat"
	"github.com/idelchi/dirsweep/internal/tree"
)

func writeFile(t *testing.T, path string, size int) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(path, make([]byte, size), 0o600); err != nil {
		t.Fatal(err)
	}
}

// fixture builds a catalog with:
//
//	Docs   -> <base>/docs     (a.txt 10, sub/b.txt 20, sub/deep/c.txt 30, empty/)
//	Multi  -> <base>/m1, <base>/m2
//	Gone   -> <base>/missing  (does not exist)
func fixture(t *testing.T) (*catalog.Catalog, string) {
	t.Helper()

	base := t.TempDir()

	writeFile(t, filepath.Join(base, "docs", "a.txt"), 10)
	writeFile(t, filepath.Join(base, "docs", "sub", "b.txt"), 20)
	writeFile(t, filepath.Join(base, "docs", "sub", "deep", "c.txt"), 30)

	if err := os.Mkdir(filepath.Join(base, "docs", "empty"), 0o755); err != nil {
		t.Fatal(err)
	}

	writeFile(t, filepath.Join(base, "m1", "one"), 100)
	writeFile(t, filepath.Join(base, "m2", "two"), 200)

	c, err := catalog.New([]catalog.RootSpec{
		{Label: "Docs", Paths: []string{filepath.Join(base, "docs")}},
		{Label: "Multi", Paths: []string{filepath.Join(base, "m1"), filepath.Join(base, "m2")}},
		{Label: "Gone", Paths: []string{filepath.Join(base, "missing")}},
	}, "Multi")
	if err != nil {
		t.Fatal(err)
	}

	return c, base
}

func names(nodes []*tree.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.DisplayName()
	}

	return out
}

func TestScanRoots(t *testing.T) {
	t.Parallel()

	c, _ := fixture(t)
	tr := tree.New(c, dirstat.Options{})

	var yields []int

	roots, err := tr.ScanRoots(context.Background(), func(done, total int, root *tree.Node) {
		if total != 3 {
			t.Errorf("total = %d, want 3", total)
		}

		yields = append(yields, done)
	})
	if err != nil {
		t.Fatal(err)
	}

	if !slices.Equal(yields, []int{1, 2, 3}) {
		t.Fatalf("yields = %v", yields)
	}

	if got := names(roots); !slices.Equal(got, []string{"Docs", "Multi", "Gone"}) {
		t.Fatalf("roots = %v", got)
	}

	tests := []struct {
		size        int64
		hasChildren bool
	}{
		{size: 60, hasChildren: true},
		{size: 300, hasChildren: true},
		{size: 0, hasChildren: false},
	}

	for i, tt := range tests {
		root := roots[i]

		if root.Size != tt.size {
			t.Errorf("%s size = %d, want %d", root.Name, root.Size, tt.size)
		}

		if root.HasChildren() != tt.hasChildren {
			t.Errorf("%s HasChildren = %v, want %v", root.Name, root.HasChildren(), tt.hasChildren)
		}

		if root.Expanded() || len(root.Children()) != 0 {
			t.Errorf("%s should start unexpanded", root.Name)
		}

		if !root.IsRoot() || root.ID != root.Name {
			t.Errorf("%s: unexpected root identity %q", root.Name, root.ID)
		}
	}

	if got := tr.Roots(); len(got) != 3 {
		t.Fatalf("Roots() returned %d nodes", len(got))
	}
}

func TestScanRootsDiscardsPreviousTree(t *testing.T) {
	t.Parallel()

	c, _ := fixture(t)
	tr := tree.New(c, dirstat.Options{})
	ctx := context.Background()

	if _, err := tr.ScanRoots(ctx, nil); err != nil {
		t.Fatal(err)
	}

	children, err := tr.Expand(ctx, "Docs")
	if err != nil {
		t.Fatal(err)
	}

	childID := children[0].ID

	if _, ok := tr.Node(childID); !ok {
		t.Fatal("expanded child is not cached")
	}

	if _, err := tr.ScanRoots(ctx, nil); err != nil {
		t.Fatal(err)
	}

	if _, ok := tr.Node(childID); ok {
		t.Fatal("rescan kept a child of the previous tree")
	}

	root, _ := tr.Node("Docs")
	if root.Expanded() {
		t.Fatal("rescanned root should be unexpanded")
	}
}

func TestExpand(t *testing.T) {
	t.Parallel()

	c, _ := fixture(t)
	tr := tree.New(c, dirstat.Options{})
	ctx := context.Background()

	if _, err := tr.ScanRoots(ctx, nil); err != nil {
		t.Fatal(err)
	}

	children, err := tr.Expand(ctx, "Docs")
	if err != nil {
		t.Fatal(err)
	}

	if got := names(children); !slices.Equal(got, []string{"a.txt", "empty/", "sub/"}) {
		t.Fatalf("children = %v", got)
	}

	byName := map[string]*tree.Node{}
	for _, child := range children {
		byName[child.Name] = child
	}

	if n := byName["a.txt"]; n.IsDir || n.Size != 10 || n.HasChildren() {
		t.Errorf("a.txt: dir=%v size=%d children=%v", n.IsDir, n.Size, n.HasChildren())
	}

	if n := byName["empty"]; !n.IsDir || n.Size != 0 || n.HasChildren() {
		t.Errorf("empty: dir=%v size=%d children=%v", n.IsDir, n.Size, n.HasChildren())
	}

	// Sizes of children cover their whole subtree, not just one level.
	if n := byName["sub"]; !n.IsDir || n.Size != 50 || !n.HasChildren() {
		t.Errorf("sub: dir=%v size=%d children=%v", n.IsDir, n.Size, n.HasChildren())
	}

	for _, child := range children {
		if child.Parent() == nil || child.Parent().ID != "Docs" || child.Label != "Docs" || child.Depth() != 1 {
			t.Errorf("%s: wrong ancestry", child.Name)
		}
	}

	root, _ := tr.Node("Docs")
	if !root.Expanded() || len(root.Children()) != 3 {
		t.Fatal("root not marked expanded")
	}

	grandchildren, err := tr.Expand(ctx, byName["sub"].ID)
	if err != nil {
		t.Fatal(err)
	}

	if got := names(grandchildren); !slices.Equal(got, []string{"b.txt", "deep/"}) {
		t.Fatalf("grandchildren = %v", got)
	}
}

func TestExpandIsCached(t *testing.T) {
	t.Parallel()

	c, base := fixture(t)
	tr := tree.New(c, dirstat.Options{})
	ctx := context.Background()

	if _, err := tr.ScanRoots(ctx, nil); err != nil {
		t.Fatal(err)
	}

	first, err := tr.Expand(ctx, "Docs")
	if err != nil {
		t.Fatal(err)
	}

	// A second expansion must not look at the filesystem again.
	writeFile(t, filepath.Join(base, "docs", "later.txt"), 5)

	second, err := tr.Expand(ctx, "Docs")
	if err != nil {
		t.Fatal(err)
	}

	if len(first) != len(second) {
		t.Fatalf("second expansion returned %d children, want %d", len(second), len(first))
	}

	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("child %d differs between expansions", i)
		}
	}
}

func TestExpandConcurrentSameNode(t *testing.T) {
	t.Parallel()

	c, _ := fixture(t)
	tr := tree.New(c, dirstat.Options{})
	ctx := context.Background()

	if _, err := tr.ScanRoots(ctx, nil); err != nil {
		t.Fatal(err)
	}

	const callers = 8

	results := make([][]*tree.Node, callers)

	var wg sync.WaitGroup

	for i := range callers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			children, err := tr.Expand(ctx, "Docs")
			if err != nil {
				t.Error(err)

				return
			}

			results[i] = children
		}()
	}

	wg.Wait()

	for i := 1; i < callers; i++ {
		if len(results[i]) != len(results[0]) {
			t.Fatalf("caller %d saw %d children", i, len(results[i]))
		}

		for j := range results[0] {
			if results[i][j] != results[0][j] {
				t.Fatalf("caller %d got a different node instance at %d", i, j)
			}
		}
	}
}

func TestExpandErrors(t *testing.T) {
	t.Parallel()

	c, _ := fixture(t)
	tr := tree.New(c, dirstat.Options{})
	ctx := context.Background()

	if _, err := tr.Expand(ctx, "Docs"); !errors.Is(err, tree.ErrNotFound) {
		t.Fatalf("expanding before a scan: %v", err)
	}

	if _, err := tr.ScanRoots(ctx, nil); err != nil {
		t.Fatal(err)
	}

	if _, err := tr.Expand(ctx, "nope"); !errors.Is(err, tree.ErrNotFound) {
		t.Fatalf("expanding unknown id: %v", err)
	}

	children, err := tr.Expand(ctx, "Gone")
	if err != nil {
		t.Fatalf("expanding a missing directory should degrade, got %v", err)
	}

	if len(children) != 0 {
		t.Fatalf("missing directory expanded to %v", names(children))
	}
}

func TestExpandCancelledIsNotCached(t *testing.T) {
	t.Parallel()

	c, _ := fixture(t)
	tr := tree.New(c, dirstat.Options{})

	if _, err := tr.ScanRoots(context.Background(), nil); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := tr.Expand(ctx, "Docs"); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}

	root, _ := tr.Node("Docs")
	if root.Expanded() {
		t.Fatal("cancelled expansion was cached")
	}
}

func TestScanRootsCancelled(t *testing.T) {
	t.Parallel()

	c, _ := fixture(t)
	tr := tree.New(c, dirstat.Options{})

	ctx, cancel := context.WithCancel(context.Background())

	roots, err := tr.ScanRoots(ctx, func(done, _ int, _ *tree.Node) {
		if done == 1 {
			cancel()
		}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}

	if len(roots) != 1 {
		t.Fatalf("got %d roots, want 1", len(roots))
	}
}

func TestDescend(t *testing.T) {
	t.Parallel()

	c, base := fixture(t)
	tr := tree.New(c, dirstat.Options{})
	ctx := context.Background()

	if _, err := tr.ScanRoots(ctx, nil); err != nil {
		t.Fatal(err)
	}

	node, err := tr.Descend(ctx, "Docs", "sub", "deep")
	if err != nil {
		t.Fatal(err)
	}

	if node.Size != 30 || node.Depth() != 2 {
		t.Fatalf("deep: size=%d depth=%d", node.Size, node.Depth())
	}

	path, err := tr.Resolve(node.ID)
	if err != nil {
		t.Fatal(err)
	}

	if want := filepath.Join(base, "docs", "sub", "deep"); path != want {
		t.Fatalf("Resolve = %q, want %q", path, want)
	}

	if _, err := tr.Descend(ctx, "Docs", "nope"); !errors.Is(err, tree.ErrNotFound) {
		t.Fatalf("descending into a missing entry: %v", err)
	}

	if _, err := tr.Descend(ctx, "Unknown"); !errors.Is(err, tree.ErrNotFound) {
		t.Fatalf("descending into an unknown label: %v", err)
	}
}
