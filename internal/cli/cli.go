// Package cli wires every stato operation into a cobra command tree.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/statokit/stato/internal/ctxlog"
	"github.com/statokit/stato/internal/version"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// NewRootCommand creates the root command for the stato application.
func NewRootCommand() *cobra.Command {
	var logLevel, logFormat string

	cmd := &cobra.Command{
		Use:           "stato",
		Short:         "Structured expertise management for coding agents",
		Long:          "Stato validates, stores, and ships small expertise modules:\nskills, plans, memory, context, and protocols.",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(logLevel, logFormat)
			if err != nil {
				return &ExitError{Code: 2, Message: err.Error()}
			}
			cmd.SetContext(ctxlog.WithLogger(cmd.Context(), logger))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn",
		"Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	cmd.PersistentFlags().StringVar(&logFormat, "log-format", "text",
		"Log output format. Options: 'text' or 'json'.")

	cmd.AddCommand(
		NewValidateCommand(),
		NewInitCommand(),
		NewWriteCommand(),
		NewHistoryCommand(),
		NewRollbackCommand(),
		NewDiffCommand(),
		NewSnapshotCommand(),
		NewImportCommand(),
		NewInspectCommand(),
		NewMergeCommand(),
		NewScanCommand(),
		NewConvertCommand(),
		NewBundleCommand(),
		NewRegistryCommand(),
		NewBridgeCommand(),
		NewResumeCommand(),
		NewDecompileCommand(),
	)
	return cmd
}

// newLogger builds the process logger from the persistent flags.
func newLogger(level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		return nil, fmt.Errorf("invalid log-level: must be 'debug', 'info', 'warn', or 'error'")
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	switch strings.ToLower(format) {
	case "text":
		handler = slog.NewTextHandler(os.Stderr, opts)
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		return nil, fmt.Errorf("invalid log-format: must be 'text' or 'json'")
	}
	return slog.New(handler), nil
}
