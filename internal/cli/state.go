package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/statokit/stato/internal/state"
)

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init [DIR]",
		Short: "Scaffold the .stato/ layout in a project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectDir := "."
			if len(args) == 1 {
				projectDir = args[0]
			}
			if err := state.Init(projectDir); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized %s\n", state.Dir)
			return nil
		},
	}
}

// NewWriteCommand creates the write command.
func NewWriteCommand() *cobra.Command {
	var sourceFile, projectDir string

	cmd := &cobra.Command{
		Use:   "write MODULE_PATH",
		Short: "Validate a module source and persist it, backing up any previous version",
		Long: "Writes a module under .stato/. The source comes from --file or stdin.\n" +
			"The write is refused when validation reports hard errors.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := readSource(cmd.InOrStdin(), sourceFile)
			if err != nil {
				return err
			}

			manager := state.NewManager(projectDir)
			result, err := manager.Write(cmd.Context(), args[0], source)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printResult(out, args[0], result)
			if !result.Success {
				return &ExitError{Code: 1, Message: "write refused: module failed validation"}
			}
			if result.CorrectedSource != "" {
				fmt.Fprintln(out, "auto-corrected source persisted")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&sourceFile, "file", "f", "", "Read the module source from this file instead of stdin.")
	cmd.Flags().StringVar(&projectDir, "project", ".", "Project directory holding .stato/.")
	return cmd
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	var limit int
	var projectDir string

	cmd := &cobra.Command{
		Use:   "history MODULE_PATH",
		Short: "List backed-up versions of a module, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backups, err := state.NewManager(projectDir).History(args[0], limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(backups) == 0 {
				fmt.Fprintf(out, "no history for %s\n", args[0])
				return nil
			}
			for _, b := range backups {
				fmt.Fprintf(out, "%s  %s\n", b.Timestamp, b.Path)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum entries to show (0 for all).")
	cmd.Flags().StringVar(&projectDir, "project", ".", "Project directory holding .stato/.")
	return cmd
}

// NewRollbackCommand creates the rollback command.
func NewRollbackCommand() *cobra.Command {
	var projectDir string

	cmd := &cobra.Command{
		Use:   "rollback MODULE_PATH",
		Short: "Restore the most recent backup of a module",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			restored, err := state.NewManager(projectDir).Rollback(args[0])
			if err != nil {
				return err
			}
			if !restored {
				return &ExitError{Code: 1, Message: fmt.Sprintf("no backup to roll %s back to", args[0])}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "restored %s from its latest backup\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&projectDir, "project", ".", "Project directory holding .stato/.")
	return cmd
}

// NewDiffCommand creates the diff command, covering both module history
// diffs and snapshot-to-snapshot diffs (see archive.go for the latter).
func NewDiffCommand() *cobra.Command {
	var projectDir string

	cmd := &cobra.Command{
		Use:   "diff MODULE_PATH | diff ARCHIVE_A ARCHIVE_B",
		Short: "Diff a module against its latest backup, or two snapshot archives",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 2 {
				return runSnapshotDiff(cmd.OutOrStdout(), args[0], args[1])
			}

			text, err := state.NewManager(projectDir).Diff(args[0])
			if err != nil {
				return err
			}
			if text == "" {
				fmt.Fprintf(cmd.OutOrStdout(), "no changes in %s\n", args[0])
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), text)
			return nil
		},
	}

	cmd.Flags().StringVar(&projectDir, "project", ".", "Project directory holding .stato/.")
	return cmd
}

// readSource pulls a module source from a file or stdin.
func readSource(stdin io.Reader, sourceFile string) (string, error) {
	if sourceFile != "" {
		data, err := os.ReadFile(sourceFile)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("reading source from stdin: %w", err)
	}
	return string(data), nil
}
