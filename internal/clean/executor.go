// Package clean empties the directories behind catalog labels.
//
// Cleaning a label removes its base directory with everything below it and
// immediately recreates it empty, so the label stays a valid scan target.
// The protected label is never touched. Each label is handled on its own:
// a failure is recorded in the label's Result and the batch carries on.
//
// Cleaning is irreversible. Callers are responsible for obtaining the user's
// confirmation first.
package clean

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/idelchi/dirsweep/internal/catalog"
	"github.com/idelchi/dirsweep/internal/debug"
	"github.com/idelchi/dirsweep/internal/dirstat"
)

// Errors recorded in Failed results.
var (
	ErrNotDir     = errors.New("not a directory")
	ErrUnsafePath = errors.New("refusing to clean a filesystem root or the home directory")
)

// Deleter abstracts the filesystem operations used for cleaning.
type Deleter interface {
	RemoveAll(path string) error
	MkdirAll(path string, perm fs.FileMode) error
}

// OS is the Deleter backed by the os package.
type OS struct{}

// RemoveAll calls os.RemoveAll.
func (OS) RemoveAll(path string) error { return os.RemoveAll(path) }

// MkdirAll calls os.MkdirAll.
func (OS) MkdirAll(path string, perm fs.FileMode) error { return os.MkdirAll(path, perm) }

// Options configures an Executor.
type Options struct {
	// DryRun reports what would be cleaned without touching the filesystem.
	DryRun bool
	// Measure records the size of each directory before it is cleaned.
	// Dry runs always measure.
	Measure bool
	// Deleter performs the removal (nil = OS).
	Deleter Deleter
	// Walk configures size measurement.
	Walk dirstat.Options
	// Log receives debug output.
	Log debug.Logger
}

// Executor cleans catalog labels.
type Executor struct {
	catalog *catalog.Catalog
	opt     Options
}

// New returns an Executor for c.
func New(c *catalog.Catalog, opt Options) *Executor {
	if opt.Deleter == nil {
		opt.Deleter = OS{}
	}

	return &Executor{catalog: c, opt: opt}
}

// DeleteSelected cleans every requested label and returns one Result per
// distinct label, in catalog order followed by labels the catalog does not
// know. Only the first path of a multi-path label is cleaned.
func (e *Executor) DeleteSelected(ctx context.Context, labels []catalog.Label) []Result {
	requested := make(map[catalog.Label]bool, len(labels))
	for _, label := range labels {
		requested[label] = true
	}

	results := make([]Result, 0, len(requested))

	for _, label := range e.catalog.Labels() {
		if requested[label] {
			results = append(results, e.clean(ctx, label))
			delete(requested, label)
		}
	}

	for _, label := range labels {
		if requested[label] {
			results = append(results, Result{Label: label, Kind: Skipped, Reason: "unknown label"})
			delete(requested, label)
		}
	}

	return results
}

// clean handles a single known label.
func (e *Executor) clean(ctx context.Context, label catalog.Label) Result {
	log := e.opt.Log
	result := Result{Label: label, DryRun: e.opt.DryRun}

	if e.catalog.IsProtected(label) {
		result.Kind = Protected
		result.Reason = fmt.Sprintf("%s cannot be cleaned by this tool", label)
		log.Printf("label %q is protected, skipping", label)

		return result
	}

	if err := ctx.Err(); err != nil {
		return failed(result, err)
	}

	base, ok := e.catalog.Base(label)
	if !ok {
		result.Kind = Skipped
		result.Reason = "no path configured"

		return result
	}

	result.Path = base

	target, info, err := resolveTarget(base)

	switch {
	case errors.Is(err, fs.ErrNotExist):
		result.Kind = Skipped
		result.Reason = "path does not exist"

		return result
	case err != nil:
		return failed(result, err)
	case !info.IsDir():
		return failed(result, fmt.Errorf("%s: %w", base, ErrNotDir))
	case isUnsafe(target):
		return failed(result, fmt.Errorf("%s: %w", target, ErrUnsafePath))
	}

	result.Path = target

	if e.opt.Measure || e.opt.DryRun {
		stats := dirstat.Walk(ctx, e.opt.Walk, nil, target)
		result.Freed = stats.TotalBytes
		result.Files = stats.FileCount
	}

	if e.opt.DryRun {
		log.Printf("dry run: would clean %s (%d bytes)", target, result.Freed)

		result.Kind = Success

		return result
	}

	log.Printf("cleaning %s", target)

	if err := e.opt.Deleter.RemoveAll(target); err != nil {
		return failed(result, fmt.Errorf("removing %s: %w", target, err))
	}

	if err := e.opt.Deleter.MkdirAll(target, info.Mode().Perm()); err != nil {
		return failed(result, fmt.Errorf("recreating %s: %w", target, err))
	}

	result.Kind = Success

	return result
}

// resolveTarget follows a symlinked base so that the linked directory is
// emptied rather than the link replaced.
func resolveTarget(base string) (string, fs.FileInfo, error) {
	target, err := filepath.EvalSymlinks(base)
	if err != nil {
		return "", nil, err
	}

	info, err := os.Stat(target)
	if err != nil {
		return "", nil, err
	}

	return target, info, nil
}

// isUnsafe reports whether path is a filesystem root or the user's home directory.
func isUnsafe(path string) bool {
	path = filepath.Clean(path)

	if filepath.Dir(path) == path {
		return true
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return false
	}

	if resolved, err := filepath.EvalSymlinks(home); err == nil {
		home = resolved
	}

	return path == filepath.Clean(home)
}

func failed(result Result, err error) Result {
	result.Kind = Failed
	result.Err = err
	result.Reason = err.Error()

	return result
}
