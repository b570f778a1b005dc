package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	// Set up context with signal handling so an interrupt stops the run
	// between sources
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	os.Exit(run(ctx, os.Stderr))
}

// run executes the root command and maps its outcome to an exit code. The
// command silences cobra's own error printing, so every fatal error is
// surfaced here, including ones raised before the logger exists.
func run(ctx context.Context, stderr io.Writer) int {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	return 0
}
