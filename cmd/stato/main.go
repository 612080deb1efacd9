package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/statokit/stato/internal/cli"
)

// main is the entrypoint for the stato application.
func main() {
	// Use a minimal logger until the flag-configured one takes over.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))

	if err := run(); err != nil {
		if exitErr, ok := err.(*cli.ExitError); ok {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run executes the command tree with a background context so commands can
// carry the configured logger and cancellation.
func run() error {
	return cli.NewRootCommand().ExecuteContext(context.Background())
}
