package catalog_test

import (
	"bytes"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/idelchi/dirsweep/internal/catalog"
)

func TestParse(t *testing.T) {
	t.Parallel()

	data := []byte(`
protected = "Caches"

[[location]]
label = "Downloads"
paths = ["~/Downloads"]

[[location]]
label = "Caches"
paths = ["~/Library/Caches", "/Library/Caches"]
`)

	c, err := catalog.Parse(data, "/home/me")
	if err != nil {
		t.Fatal(err)
	}

	if got := c.Labels(); !slices.Equal(got, []catalog.Label{"Downloads", "Caches"}) {
		t.Fatalf("Labels() = %v", got)
	}

	if base, _ := c.Base("Downloads"); base != "/home/me/Downloads" {
		t.Fatalf("Base(Downloads) = %q", base)
	}

	if got := c.Paths("Caches"); !slices.Equal(got, []string{"/home/me/Library/Caches", "/Library/Caches"}) {
		t.Fatalf("Paths(Caches) = %v", got)
	}

	if !c.IsProtected("Caches") {
		t.Fatal("Caches should be protected")
	}
}

func TestParseWithoutLocationsKeepsDefaults(t *testing.T) {
	t.Parallel()

	c, err := catalog.Parse([]byte(""), "/home/me")
	if err != nil {
		t.Fatal(err)
	}

	if c.Len() != 4 || c.Protected() != catalog.DefaultProtected {
		t.Fatalf("unexpected catalog: %v protected=%q", c.Labels(), c.Protected())
	}
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data string
	}{
		{name: "invalid toml", data: `protected = `},
		{name: "unknown key", data: "colour = \"blue\"\n"},
		{name: "relative path", data: "[[location]]\nlabel = \"A\"\npaths = [\"rel\"]\n"},
		{name: "unknown protected", data: "protected = \"B\"\n[[location]]\nlabel = \"A\"\npaths = [\"/a\"]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if _, err := catalog.Parse([]byte(tt.data), "/home/me"); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	t.Parallel()

	original, err := catalog.New([]catalog.RootSpec{
		{Label: "A", Paths: []string{"/a"}},
		{Label: "B", Paths: []string{"/b1", "/b2"}},
	}, "B")
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := catalog.Encode(&buf, original); err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(buf.String(), `protected = 'B'`) && !strings.Contains(buf.String(), `protected = "B"`) {
		t.Fatalf("encoded catalog lacks protected key:\n%s", buf.String())
	}

	decoded, err := catalog.Parse(buf.Bytes(), "/unused")
	if err != nil {
		t.Fatalf("re-parsing encoded catalog: %v\n%s", err, buf.String())
	}

	if !slices.Equal(decoded.Labels(), original.Labels()) || decoded.Protected() != "B" {
		t.Fatalf("round trip mismatch: %v / %q", decoded.Labels(), decoded.Protected())
	}

	if !slices.Equal(decoded.Paths("B"), []string{"/b1", "/b2"}) {
		t.Fatalf("Paths(B) = %v", decoded.Paths("B"))
	}
}

func TestExpandPath(t *testing.T) {
	t.Setenv("DIRSWEEP_TEST_DIR", "/opt/data")

	tests := []struct {
		in, want string
	}{
		{in: "~", want: "/home/me"},
		{in: "~/Documents", want: "/home/me/Documents"},
		{in: "$DIRSWEEP_TEST_DIR/cache", want: "/opt/data/cache"},
		{in: "/absolute", want: "/absolute"},
		{in: "~other/x", want: "~other/x"},
	}

	for _, tt := range tests {
		if got := catalog.ExpandPath(tt.in, "/home/me"); got != tt.want {
			t.Errorf("ExpandPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestResolve(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	t.Setenv("HOME", t.TempDir())

	if path, ok := catalog.Resolve("/explicit.toml"); !ok || path != "/explicit.toml" {
		t.Fatalf("Resolve(explicit) = %q, %v", path, ok)
	}

	if _, ok := catalog.Resolve(""); ok {
		t.Fatal("no config file exists yet")
	}

	file := filepath.Join(xdg, "dirsweep", "config.toml")
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(file, []byte("[[location]]\nlabel = \"X\"\npaths = [\"/x\"]\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	path, ok := catalog.Resolve("")
	if !ok || path != file {
		t.Fatalf("Resolve() = %q, %v; want %q", path, ok, file)
	}

	c, err := catalog.Open("")
	if err != nil {
		t.Fatal(err)
	}

	if !slices.Equal(c.Labels(), []catalog.Label{"X"}) {
		t.Fatalf("Open() labels = %v", c.Labels())
	}
}
