package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/statokit/stato/internal/archive"
	"github.com/statokit/stato/internal/differ"
	"github.com/statokit/stato/internal/merger"
)

// NewSnapshotCommand creates the snapshot command.
func NewSnapshotCommand() *cobra.Command {
	var projectDir string
	var opts archive.SnapshotOptions

	cmd := &cobra.Command{
		Use:   "snapshot NAME",
		Short: "Pack the project's modules into a shareable archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := archive.Snapshot(cmd.Context(), projectDir, args[0], opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "snapshot written to %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&projectDir, "project", ".", "Project directory holding .stato/.")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "Archive output path (default NAME.stato).")
	cmd.Flags().StringVar(&opts.Description, "description", "", "Human description stored in the manifest.")
	cmd.Flags().StringSliceVar(&opts.Modules, "modules", nil, "Only include these module paths.")
	cmd.Flags().StringSliceVar(&opts.Types, "types", nil, "Only include these module kinds.")
	cmd.Flags().StringSliceVar(&opts.Exclude, "exclude", nil, "Drop these module kinds or paths.")
	cmd.Flags().BoolVar(&opts.Sanitize, "sanitize", false, "Replace detected secrets before packing.")
	return cmd
}

// NewImportCommand creates the import command.
func NewImportCommand() *cobra.Command {
	var projectDir string
	var force bool

	cmd := &cobra.Command{
		Use:   "import ARCHIVE",
		Short: "Extract an archive's modules into the project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := archive.Import(cmd.Context(), args[0], projectDir, force)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, member := range result.Imported {
				fmt.Fprintf(out, "imported %s\n", member)
			}
			for _, warning := range result.Warnings {
				fmt.Fprintf(out, "skipped: %s\n", warning)
			}
			fmt.Fprintf(out, "%d imported, %d skipped\n", len(result.Imported), len(result.Skipped))
			return nil
		},
	}

	cmd.Flags().StringVar(&projectDir, "project", ".", "Project directory holding .stato/.")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite modules that already exist.")
	return cmd
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect ARCHIVE",
		Short: "Show an archive's manifest without extracting it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manifest, err := archive.Inspect(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Name:        %s\n", manifest.Name)
			fmt.Fprintf(out, "ID:          %s\n", manifest.ID)
			if manifest.Description != "" {
				fmt.Fprintf(out, "Description: %s\n", manifest.Description)
			}
			if manifest.Author != "" {
				fmt.Fprintf(out, "Author:      %s\n", manifest.Author)
			}
			fmt.Fprintf(out, "Created:     %s\n", manifest.Created)
			fmt.Fprintf(out, "Version:     %s\n", manifest.StatoVersion)
			if manifest.Partial {
				fmt.Fprintln(out, "Partial:     yes")
			}
			fmt.Fprintf(out, "Modules (%d):\n", len(manifest.IncludedModules))
			for _, member := range manifest.IncludedModules {
				fmt.Fprintf(out, "  %s\n", member)
			}
			return nil
		},
	}
}

// NewMergeCommand creates the merge command.
func NewMergeCommand() *cobra.Command {
	var strategyName, name, output string

	cmd := &cobra.Command{
		Use:   "merge LEFT_ARCHIVE RIGHT_ARCHIVE",
		Short: "Combine two snapshot archives into one",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			strategy, err := merger.ParseStrategy(strategyName)
			if err != nil {
				return &ExitError{Code: 2, Message: err.Error()}
			}

			result, err := merger.Merge(cmd.Context(), args[0], args[1], strategy)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "merged %d modules (%d left-only, %d right-only, %d shared)\n",
				len(result.Modules), len(result.LeftOnly), len(result.RightOnly), len(result.Merged))
			for _, c := range result.Conflicts {
				fmt.Fprintf(out, "conflict %s.%s: %s vs %s (%s)\n",
					c.ModulePath, c.Field, c.LeftValue, c.RightValue, c.Resolution)
			}

			if err := merger.WriteArchive(result, name, output); err != nil {
				return err
			}
			fmt.Fprintf(out, "merged archive written to %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVar(&strategyName, "strategy", "union",
		"Conflict resolution: union, prefer-left, or prefer-right.")
	cmd.Flags().StringVar(&name, "name", "merged", "Name stored in the merged manifest.")
	cmd.Flags().StringVarP(&output, "output", "o", "merged.stato", "Merged archive output path.")
	return cmd
}

// runSnapshotDiff prints a module-level comparison of two archives.
func runSnapshotDiff(out io.Writer, archiveA, archiveB string) error {
	diff, err := differ.Snapshots(archiveA, archiveB)
	if err != nil {
		return err
	}
	if len(diff.Added)+len(diff.Removed)+len(diff.Changed) == 0 {
		fmt.Fprintln(out, "archives contain identical modules")
		return nil
	}
	printPaths(out, "added", diff.Added)
	printPaths(out, "removed", diff.Removed)
	printPaths(out, "changed", diff.Changed)
	return nil
}

func printPaths(out io.Writer, label string, paths []string) {
	if len(paths) == 0 {
		return
	}
	fmt.Fprintf(out, "%s:\n  %s\n", label, strings.Join(paths, "\n  "))
}
