package dirstat

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/charlievieth/fastwalk"

	"github.com/idelchi/dirsweep/internal/debug"
)

// DefaultProgressInterval is the default interval for progress updates.
const DefaultProgressInterval = 500 * time.Millisecond

// Options configures a walk.
type Options struct {
	// Workers is the number of fastwalk goroutines (0 = fastwalk default).
	Workers int
	// ProgressInterval controls progress callback cadence.
	ProgressInterval time.Duration
	// Log receives debug output about skipped entries.
	Log debug.Logger
}

// startProgressReporter invokes hook(files, bytes) on each tick until ctx is done.
//
//nolint:varnamelen // c is idiomatic for collector
func startProgressReporter(ctx context.Context, c *collector, hook func(int64, int64), interval time.Duration) {
	if hook == nil {
		return
	}

	if interval <= 0 {
		interval = DefaultProgressInterval
	}

	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				hook(c.snapshot())
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Aggregate returns the total size in bytes of all regular files reachable
// from paths. Missing paths contribute zero, and so does every entry that
// cannot be read. It never fails.
func Aggregate(ctx context.Context, opt Options, paths ...string) int64 {
	return Walk(ctx, opt, nil, paths...).TotalBytes
}

// Walk traverses every path in turn and returns the collected statistics.
//
// Progress updates are sent to progressHook if provided. If ctx is cancelled
// the walk stops early and the partial statistics are returned.
func Walk(ctx context.Context, opt Options, progressHook func(int64, int64), paths ...string) *Stats {
	collector := &collector{}

	// Create child context to ensure progress reporter cleanup
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	startProgressReporter(ctx, collector, progressHook, opt.ProgressInterval)

	start := time.Now()

	for _, path := range paths {
		if ctx.Err() != nil {
			break
		}

		walkRoot(ctx, opt, collector, path)
	}

	stats := collector.finalize()
	stats.Elapsed = time.Since(start)

	return stats
}

// walkRoot adds everything below root to the collector.
//
//nolint:varnamelen // c is idiomatic for collector
func walkRoot(ctx context.Context, opt Options, c *collector, root string) {
	log := opt.Log

	if root == "" {
		return
	}

	root = filepath.Clean(root)

	info, err := os.Lstat(root)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			c.addError()
		}

		log.Printf("skipping root %s: %v", root, err)

		return
	}

	// A configured root may itself be a link (e.g. /tmp -> /private/tmp).
	// Resolve it once; links below the root are never followed.
	if info.Mode()&fs.ModeSymlink != 0 {
		resolved, err := filepath.EvalSymlinks(root)
		if err != nil {
			log.Printf("skipping dangling root %s: %v", root, err)

			return
		}

		if info, err = os.Stat(resolved); err != nil {
			c.addError()
			log.Printf("skipping root %s: %v", resolved, err)

			return
		}

		root = resolved
	}

	switch {
	case info.Mode().IsRegular():
		c.add(info.Size())

		return
	case !info.IsDir():
		return
	}

	conf := &fastwalk.Config{
		Follow:     false, // Don't follow symlinks
		NumWorkers: opt.Workers,
	}

	//nolint:varnamelen // d is standard for DirEntry
	walkErr := fastwalk.Walk(conf, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			c.addError()
			log.Printf("error accessing path %s: %v", path, err)

			return nil // Silently skip errors
		}

		// Check cancellation periodically
		select {
		case <-ctx.Done():
			return context.Canceled
		default:
		}

		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		fileInfo, err := d.Info()
		if err != nil {
			c.addError()
			log.Printf("error reading size of %s: %v", path, err)

			return nil //nolint:nilerr // Intentionally skip errors during walk
		}

		c.add(fileInfo.Size())

		return nil
	})
	if walkErr != nil && !errors.Is(walkErr, context.Canceled) {
		c.addError()
		log.Printf("walk of %s stopped: %v", root, walkErr)
	}
}
