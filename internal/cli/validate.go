package cli

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/statokit/stato/internal/compiler"
	"github.com/statokit/stato/internal/module"
	"github.com/statokit/stato/internal/state"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	var expectedKind string
	var writeCorrected bool

	cmd := &cobra.Command{
		Use:   "validate PATH",
		Short: "Validate a module file or a directory of modules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := modulePaths(args[0])
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				return fmt.Errorf("no module files under %s", args[0])
			}

			out := cmd.OutOrStdout()
			failures := 0
			for _, p := range paths {
				data, err := os.ReadFile(p)
				if err != nil {
					return err
				}

				result := compiler.Validate(cmd.Context(), string(data), expectedKind)
				printResult(out, p, result)
				if !result.Success {
					failures++
					continue
				}
				if writeCorrected && result.CorrectedSource != "" {
					if err := os.WriteFile(p, []byte(result.CorrectedSource), 0o644); err != nil {
						return err
					}
					fmt.Fprintf(out, "  corrected source written back to %s\n", p)
				}
			}

			if failures > 0 {
				return &ExitError{Code: 1,
					Message: fmt.Sprintf("%d of %d modules failed validation", failures, len(paths))}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&expectedKind, "type", "",
		"Expected module kind (skill, plan, memory, context, protocol).")
	cmd.Flags().BoolVar(&writeCorrected, "fix", false,
		"Write auto-corrected source back to the file.")
	return cmd
}

// printResult renders one validation result in the fixed report layout.
func printResult(out io.Writer, path string, result *module.ValidationResult) {
	status := "ok"
	if !result.Success {
		status = "FAIL"
	}
	kind := string(result.Kind)
	if kind == "" {
		kind = "?"
	}
	fmt.Fprintf(out, "%s: %s (%s)\n", path, status, kind)

	printDiagnostics(out, result.HardErrors)
	printDiagnostics(out, result.AutoCorrections)
	printDiagnostics(out, result.Advice)
}

func printDiagnostics(out io.Writer, diags []module.Diagnostic) {
	for _, d := range diags {
		location := ""
		if d.Line > 0 {
			location = fmt.Sprintf(" (line %d)", d.Line)
		}
		fmt.Fprintf(out, "  [%s] %s: %s%s\n", d.Code, d.Severity, d.Message, location)
	}
}

// modulePaths expands a file or directory argument into module file paths.
func modulePaths(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var paths []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".history" || d.Name() == "prompts" {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(p, state.Ext) {
			paths = append(paths, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}
