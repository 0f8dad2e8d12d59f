package catalog

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// File is the on-disk TOML layout of a catalog:
//
//	protected = "System Data"
//
//	[[location]]
//	label = "Documents"
//	paths = ["~/Documents"]
type File struct {
	Protected string     `toml:"protected"          json:"protected"`
	Locations []Location `toml:"location,omitempty" json:"location"`
}

// Location is one [[location]] table.
type Location struct {
	Label string   `toml:"label" json:"label"`
	Paths []string `toml:"paths" json:"paths"`
}

// Load reads the TOML file at path, layers it on top of the built-in table
// and validates the result.
//
// A file without any [[location]] tables keeps the built-in locations; its
// protected key then defaults to DefaultProtected. A file that lists
// locations replaces the built-in ones entirely.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolving home directory: %w", err)
	}

	catalog, err := Parse(data, home)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	return catalog, nil
}

// Parse decodes TOML data into a Catalog, expanding "~" against home.
// Unknown keys are rejected.
func Parse(data []byte, home string) (*Catalog, error) {
	var file File

	decoder := toml.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(&file); err != nil {
		return nil, fmt.Errorf("parsing TOML: %w", err)
	}

	if len(file.Locations) == 0 {
		protected := Label(file.Protected)
		if protected == "" {
			protected = DefaultProtected
		}

		return New(DefaultSpecs(home), protected)
	}

	specs := make([]RootSpec, 0, len(file.Locations))

	for _, location := range file.Locations {
		paths := make([]string, 0, len(location.Paths))
		for _, path := range location.Paths {
			paths = append(paths, ExpandPath(path, home))
		}

		specs = append(specs, RootSpec{Label: Label(location.Label), Paths: paths})
	}

	return New(specs, Label(file.Protected))
}

// Encode writes c as TOML in the layout accepted by Parse.
func Encode(w io.Writer, c *Catalog) error {
	file := File{Protected: string(c.Protected())}

	for _, spec := range c.specs {
		file.Locations = append(file.Locations, Location{Label: string(spec.Label), Paths: spec.Paths})
	}

	encoder := toml.NewEncoder(w)
	encoder.SetIndentTables(true)

	if err := encoder.Encode(file); err != nil {
		return fmt.Errorf("encoding TOML: %w", err)
	}

	return nil
}

// ExpandPath replaces a leading "~" with home and expands environment variables.
func ExpandPath(path, home string) string {
	switch {
	case path == "~":
		path = home
	case strings.HasPrefix(path, "~/"):
		path = filepath.Join(home, path[2:])
	}

	return os.ExpandEnv(path)
}

// Resolve returns the configuration file to load, if any.
// An explicit path always wins; otherwise the first existing file among
// $XDG_CONFIG_HOME/dirsweep/config.toml and ~/.config/dirsweep/config.toml
// is used.
func Resolve(explicit string) (string, bool) {
	if explicit != "" {
		return explicit, true
	}

	for _, candidate := range defaultConfigPaths() {
		if fileExists(candidate) {
			return candidate, true
		}
	}

	return "", false
}

// Open loads the catalog from the resolved configuration file, or returns
// the built-in catalog when there is none.
func Open(explicit string) (*Catalog, error) {
	path, ok := Resolve(explicit)
	if !ok {
		return Default()
	}

	return Load(path)
}

func defaultConfigPaths() []string {
	paths := []string{}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, "dirsweep", "config.toml"))
	}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "dirsweep", "config.toml"))
	}

	return paths
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}

	return !info.IsDir()
}
