package catalog

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultProtected is the label protected by the built-in table.
const DefaultProtected Label = "System Data"

// DefaultSpecs returns the built-in table rooted at the given home directory.
func DefaultSpecs(home string) []RootSpec {
	return []RootSpec{
		{Label: "Documents", Paths: []string{filepath.Join(home, "Documents")}},
		{Label: "Applications", Paths: []string{"/Applications"}},
		{Label: "Developer", Paths: []string{filepath.Join(home, "Developer")}},
		{Label: DefaultProtected, Paths: []string{
			filepath.Join(home, "Library", "Caches"),
			filepath.Join(home, "Library", "Logs"),
			filepath.Join(home, "Library", "Application Support"),
			"/Library/Logs",
			"/Library/Caches",
			"/private/var/log",
			"/private/var/folders",
		}},
	}
}

// Default builds the built-in catalog for the current user.
func Default() (*Catalog, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolving home directory: %w", err)
	}

	return New(DefaultSpecs(home), DefaultProtected)
}
