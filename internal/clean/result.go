package clean

import (
	"fmt"

	"github.com/idelchi/dirsweep/internal/catalog"
)

// Kind classifies the outcome for one label.
type Kind int

const (
	// Success means the label's directory was emptied and recreated.
	Success Kind = iota
	// Failed means removal or recreation failed; Result.Err holds the cause.
	Failed
	// Protected means the label is exempt from cleaning. It is not an error.
	Protected
	// Skipped means there was nothing to clean: unknown label or missing path.
	Skipped
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case Failed:
		return "failed"
	case Protected:
		return "protected"
	case Skipped:
		return "skipped"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Result is the outcome of cleaning one label.
type Result struct {
	// Label is the label the result is for.
	Label catalog.Label `json:"label"`
	// Path is the directory that was (or would have been) cleaned.
	Path string `json:"path,omitempty"`
	// Kind is the outcome.
	Kind Kind `json:"kind"`
	// Freed is the size of the removed contents, when measured.
	Freed int64 `json:"freed"`
	// Files is the number of regular files below Path, when measured.
	Files int64 `json:"files"`
	// DryRun reports that nothing was actually removed.
	DryRun bool `json:"dry_run,omitempty"`
	// Reason explains Failed, Protected and Skipped results.
	Reason string `json:"reason,omitempty"`
	// Err is the underlying cause of a Failed result.
	Err error `json:"-"`
}

// Failures returns the Failed results.
func Failures(results []Result) []Result {
	var failed []Result

	for _, result := range results {
		if result.Kind == Failed {
			failed = append(failed, result)
		}
	}

	return failed
}
