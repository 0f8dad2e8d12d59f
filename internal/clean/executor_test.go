package clean_test

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/idelchi/dirsweep/internal/catalog"
	"github.com/idelchi/dirsweep/internal/clean"
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

func entries(t *testing.T, dir string) []string {
	t.Helper()

	list, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}

	names := make([]string, len(list))
	for i, entry := range list {
		names[i] = entry.Name()
	}

	return names
}

type fixtureDirs struct {
	a, b, p, missing string
}

func fixture(t *testing.T) (*catalog.Catalog, fixtureDirs) {
	t.Helper()

	// Results carry symlink-resolved paths; resolve the temp dir up front.
	base, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	dirs := fixtureDirs{
		a:       filepath.Join(base, "a"),
		b:       filepath.Join(base, "b"),
		p:       filepath.Join(base, "p"),
		missing: filepath.Join(base, "missing"),
	}

	writeFile(t, filepath.Join(dirs.a, "file"), 2048)
	writeFile(t, filepath.Join(dirs.a, "nested", "more"), 10)
	writeFile(t, filepath.Join(dirs.b, "file"), 1)
	writeFile(t, filepath.Join(dirs.p, "keep"), 1024)

	c, err := catalog.New([]catalog.RootSpec{
		{Label: "A", Paths: []string{dirs.a}},
		{Label: "B", Paths: []string{dirs.b, dirs.p}},
		{Label: "Protected", Paths: []string{dirs.p}},
		{Label: "Missing", Paths: []string{dirs.missing}},
	}, "Protected")
	if err != nil {
		t.Fatal(err)
	}

	return c, dirs
}

func kinds(results []clean.Result) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = string(r.Label) + ":" + r.Kind.String()
	}

	return out
}

func TestDeleteSelected(t *testing.T) {
	t.Parallel()

	c, dirs := fixture(t)
	executor := clean.New(c, clean.Options{Measure: true})

	results := executor.DeleteSelected(context.Background(), []catalog.Label{"Protected", "A", "Missing", "A", "Nope"})

	want := []string{"A:success", "Protected:protected", "Missing:skipped", "Nope:skipped"}
	if got := kinds(results); !slices.Equal(got, want) {
		t.Fatalf("results = %v, want %v", got, want)
	}

	if results[0].Freed != 2058 || results[0].Files != 2 {
		t.Errorf("Freed = %d, Files = %d, want 2058 and 2", results[0].Freed, results[0].Files)
	}

	if results[0].Err != nil || results[0].Path != dirs.a {
		t.Errorf("unexpected success result %+v", results[0])
	}

	if results[1].Err != nil || results[1].Reason == "" {
		t.Errorf("protected result should carry a reason and no error: %+v", results[1])
	}

	info, err := os.Stat(dirs.a)
	if err != nil || !info.IsDir() {
		t.Fatalf("cleaned directory was not recreated: %v", err)
	}

	if got := entries(t, dirs.a); len(got) != 0 {
		t.Fatalf("cleaned directory still holds %v", got)
	}

	if got := entries(t, dirs.p); !slices.Equal(got, []string{"keep"}) {
		t.Fatalf("protected directory changed: %v", got)
	}

	if _, err := os.Stat(dirs.missing); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("missing directory must not be created: %v", err)
	}

	if len(clean.Failures(results)) != 0 {
		t.Fatalf("unexpected failures %v", clean.Failures(results))
	}
}

func TestDeleteSelectedMultiPathCleansFirstOnly(t *testing.T) {
	t.Parallel()

	c, dirs := fixture(t)

	results := clean.New(c, clean.Options{}).DeleteSelected(context.Background(), []catalog.Label{"B"})
	if got := kinds(results); !slices.Equal(got, []string{"B:success"}) {
		t.Fatalf("results = %v", got)
	}

	if got := entries(t, dirs.b); len(got) != 0 {
		t.Fatalf("first path not cleaned: %v", got)
	}

	if got := entries(t, dirs.p); !slices.Equal(got, []string{"keep"}) {
		t.Fatalf("second path was touched: %v", got)
	}
}

func TestDeleteSelectedDryRun(t *testing.T) {
	t.Parallel()

	c, dirs := fixture(t)

	results := clean.New(c, clean.Options{DryRun: true}).DeleteSelected(context.Background(), []catalog.Label{"A"})

	if len(results) != 1 || results[0].Kind != clean.Success || !results[0].DryRun || results[0].Freed != 2058 {
		t.Fatalf("unexpected dry-run result %+v", results)
	}

	if got := entries(t, dirs.a); !slices.Equal(got, []string{"file", "nested"}) {
		t.Fatalf("dry run modified the directory: %v", got)
	}
}

// failingDeleter fails on the configured path.
type failingDeleter struct {
	clean.OS

	failRemove string
	failMkdir  string
}

var errInjected = errors.New("injected failure")

func (d failingDeleter) RemoveAll(path string) error {
	if path == d.failRemove {
		return errInjected
	}

	return d.OS.RemoveAll(path)
}

func (d failingDeleter) MkdirAll(path string, perm fs.FileMode) error {
	if path == d.failMkdir {
		return errInjected
	}

	return d.OS.MkdirAll(path, perm)
}

func TestDeleteSelectedFailureDoesNotAbortBatch(t *testing.T) {
	t.Parallel()

	c, dirs := fixture(t)

	executor := clean.New(c, clean.Options{Deleter: failingDeleter{failRemove: dirs.a}})
	results := executor.DeleteSelected(context.Background(), []catalog.Label{"A", "B"})

	if got := kinds(results); !slices.Equal(got, []string{"A:failed", "B:success"}) {
		t.Fatalf("results = %v", got)
	}

	if !errors.Is(results[0].Err, errInjected) || results[0].Reason == "" {
		t.Fatalf("failure does not carry its cause: %+v", results[0])
	}

	if failures := clean.Failures(results); len(failures) != 1 || failures[0].Label != "A" {
		t.Fatalf("Failures() = %v", failures)
	}

	if got := entries(t, dirs.b); len(got) != 0 {
		t.Fatalf("B was not cleaned after A failed: %v", got)
	}
}

func TestDeleteSelectedRecreateFailure(t *testing.T) {
	t.Parallel()

	c, dirs := fixture(t)

	executor := clean.New(c, clean.Options{Deleter: failingDeleter{failMkdir: dirs.a}})
	results := executor.DeleteSelected(context.Background(), []catalog.Label{"A"})

	if len(results) != 1 || results[0].Kind != clean.Failed || !errors.Is(results[0].Err, errInjected) {
		t.Fatalf("unexpected results %+v", results)
	}
}

func TestDeleteSelectedNotADirectory(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "file")
	writeFile(t, file, 3)

	c, err := catalog.New([]catalog.RootSpec{{Label: "F", Paths: []string{file}}}, "")
	if err != nil {
		t.Fatal(err)
	}

	results := clean.New(c, clean.Options{}).DeleteSelected(context.Background(), []catalog.Label{"F"})
	if len(results) != 1 || !errors.Is(results[0].Err, clean.ErrNotDir) {
		t.Fatalf("unexpected results %+v", results)
	}

	if _, err := os.Stat(file); err != nil {
		t.Fatalf("file was removed: %v", err)
	}
}

func TestDeleteSelectedRefusesFilesystemRoot(t *testing.T) {
	t.Parallel()

	root := string(filepath.Separator)
	if vol := filepath.VolumeName(os.TempDir()); vol != "" {
		root = vol + root
	}

	c, err := catalog.New([]catalog.RootSpec{{Label: "Root", Paths: []string{root}}}, "")
	if err != nil {
		t.Fatal(err)
	}

	// Every call would fail loudly if it reached the deleter.
	deleter := failingDeleter{failRemove: root, failMkdir: root}

	results := clean.New(c, clean.Options{Deleter: deleter}).DeleteSelected(context.Background(), []catalog.Label{"Root"})
	if len(results) != 1 || !errors.Is(results[0].Err, clean.ErrUnsafePath) {
		t.Fatalf("unexpected results %+v", results)
	}
}

func TestKindString(t *testing.T) {
	t.Parallel()

	for kind, want := range map[clean.Kind]string{
		clean.Success:   "success",
		clean.Failed:    "failed",
		clean.Protected: "protected",
		clean.Skipped:   "skipped",
		clean.Kind(42):  "kind(42)",
	} {
		if got := kind.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", int(kind), got, want)
		}

		text, err := kind.MarshalText()
		if err != nil || string(text) != want {
			t.Errorf("%d.MarshalText() = %q, %v", int(kind), text, err)
		}
	}
}
