// Package volume reports the capacity of the filesystem holding a path.
package volume

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/shirou/gopsutil/v3/disk"
)

// Usage describes the filesystem a path lives on.
type Usage struct {
	// Path is the path that was queried.
	Path string `json:"path"`
	// Filesystem is the filesystem type, e.g. "apfs" or "ext4".
	Filesystem string `json:"filesystem"`
	// Total is the capacity in bytes.
	Total uint64 `json:"total"`
	// Used is the used space in bytes.
	Used uint64 `json:"used"`
	// Free is the space available in bytes.
	Free uint64 `json:"free"`
	// UsedPercent is Used relative to Total.
	UsedPercent float64 `json:"used_percent"`
}

// Of returns the usage of the filesystem holding path. A path that does not
// exist is looked up through its nearest existing ancestor.
func Of(path string) (Usage, error) {
	existing, err := nearestExisting(path)
	if err != nil {
		return Usage{}, err
	}

	usage, err := disk.Usage(existing)
	if err != nil {
		return Usage{}, fmt.Errorf("querying disk usage of %s: %w", existing, err)
	}

	return Usage{
		Path:        path,
		Filesystem:  usage.Fstype,
		Total:       usage.Total,
		Used:        usage.Used,
		Free:        usage.Free,
		UsedPercent: usage.UsedPercent,
	}, nil
}

// nearestExisting climbs from path to the first ancestor that exists.
func nearestExisting(path string) (string, error) {
	current := filepath.Clean(path)

	for {
		_, err := os.Stat(current)
		if err == nil {
			return current, nil
		}

		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("accessing path %q: %w", current, err)
		}

		parent := filepath.Dir(current)
		if parent == current {
			return "", fmt.Errorf("accessing path %q: %w", path, err)
		}

		current = parent
	}
}
