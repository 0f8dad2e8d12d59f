// Package debug provides the conditional debug output shared by all packages.
package debug

import (
	"fmt"
	"io"
	"os"
)

// Logger prints debug output when enabled.
// The zero value is a disabled logger.
type Logger struct {
	enabled bool
	out     io.Writer
}

// New returns a Logger writing to stderr when enabled is true.
func New(enabled bool) Logger {
	return Logger{enabled: enabled, out: os.Stderr}
}

// To returns a copy of the logger writing to w.
func (l Logger) To(w io.Writer) Logger {
	l.out = w

	return l
}

// Enabled reports whether debug output is printed.
func (l Logger) Enabled() bool {
	return l.enabled
}

// Printf prints debug output if logging is enabled.
// Every line is prefixed with "[debug]: " and terminated with a newline.
func (l Logger) Printf(format string, args ...any) {
	if !l.enabled || l.out == nil {
		return
	}

	fmt.Fprintf(l.out, "[debug]: "+format+"\n", args...)
}
