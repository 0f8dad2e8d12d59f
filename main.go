// Command dirsweep sizes and cleans a catalog of storage locations.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/idelchi/dirsweep/internal/cli"
)

// Global variable for CI stamping.
var version = "unknown - unofficial build"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.New(version).Execute(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)

		stop()
		os.Exit(1)
	}
}
