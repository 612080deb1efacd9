package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/statokit/stato/internal/bridge"
	"github.com/statokit/stato/internal/bundle"
	"github.com/statokit/stato/internal/compiler"
	"github.com/statokit/stato/internal/convert"
	"github.com/statokit/stato/internal/privacy"
	"github.com/statokit/stato/internal/registry"
	"github.com/statokit/stato/internal/resume"
	"github.com/statokit/stato/internal/state"
)

// NewScanCommand creates the scan command.
func NewScanCommand() *cobra.Command {
	var projectDir string
	var fix bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan the project's modules for secrets and sensitive data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scanner := privacy.NewScanner(nil)
			ignorePath := filepath.Join(projectDir, ".statoignore")
			if _, err := os.Stat(ignorePath); err == nil {
				if err := scanner.LoadIgnoreFile(ignorePath); err != nil {
					return err
				}
			}

			statoDir := filepath.Join(projectDir, state.Dir)
			findings, err := scanner.ScanDir(statoDir)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(findings) == 0 {
				fmt.Fprintln(out, "no sensitive data found")
				return nil
			}

			for _, f := range findings {
				fmt.Fprintf(out, "%s:%d [%s] %s: %s\n",
					f.File, f.Line, f.Category, f.Description, f.MatchedText)
			}

			if fix {
				fixed, err := sanitizeDir(scanner, statoDir, findings)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "sanitized %d files\n", fixed)
				return nil
			}
			return &ExitError{Code: 1, Message: fmt.Sprintf("%d findings", len(findings))}
		},
	}

	cmd.Flags().StringVar(&projectDir, "project", ".", "Project directory holding .stato/.")
	cmd.Flags().BoolVar(&fix, "fix", false, "Rewrite flagged values with placeholders in place.")
	return cmd
}

// sanitizeDir rewrites every file that produced a finding.
func sanitizeDir(scanner *privacy.Scanner, statoDir string, findings []privacy.Finding) (int, error) {
	files := make(map[string]bool)
	for _, f := range findings {
		files[f.File] = true
	}
	for file := range files {
		path := filepath.Join(statoDir, filepath.FromSlash(file))
		data, err := os.ReadFile(path)
		if err != nil {
			return 0, err
		}
		if err := os.WriteFile(path, []byte(scanner.Sanitize(string(data))), 0o644); err != nil {
			return 0, err
		}
	}
	return len(files), nil
}

// NewConvertCommand creates the convert command.
func NewConvertCommand() *cobra.Command {
	var format, outputDir string

	cmd := &cobra.Command{
		Use:   "convert FILE",
		Short: "Convert CLAUDE.md, .cursorrules, AGENTS.md, or SKILL.md into modules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := convert.File(args[0], convert.Format(format))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "detected format: %s\n", result.Format)
			for _, warning := range result.Warnings {
				fmt.Fprintf(out, "warning: %s\n", warning)
			}

			written, err := writeConverted(outputDir, result.Skills, result.Context)
			if err != nil {
				return err
			}
			for _, path := range written {
				fmt.Fprintf(out, "wrote %s\n", path)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "", "Source format; detected from the filename when empty.")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", state.Dir, "Directory to write module files into.")
	return cmd
}

func writeConverted(outputDir string, skills map[string]string, contextSource string) ([]string, error) {
	var written []string

	if len(skills) > 0 {
		skillsDir := filepath.Join(outputDir, "skills")
		if err := os.MkdirAll(skillsDir, 0o755); err != nil {
			return nil, err
		}
		for name, source := range skills {
			path := filepath.Join(skillsDir, name+state.Ext)
			if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
				return nil, err
			}
			written = append(written, path)
		}
	}

	if contextSource != "" {
		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			return nil, err
		}
		path := filepath.Join(outputDir, "context"+state.Ext)
		if err := os.WriteFile(path, []byte(contextSource), 0o644); err != nil {
			return nil, err
		}
		written = append(written, path)
	}
	return written, nil
}

// NewBundleCommand creates the bundle command.
func NewBundleCommand() *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "bundle FILE",
		Short: "Split a multi-entity bundle file into individual modules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			result := bundle.Parse(string(data))
			out := cmd.OutOrStdout()
			for _, msg := range result.Errors {
				fmt.Fprintf(out, "error: %s\n", msg)
			}
			if len(result.Errors) > 0 {
				return &ExitError{Code: 1, Message: "bundle failed to parse"}
			}

			singles := map[string]string{
				"plan":    result.Plan,
				"memory":  result.Memory,
				"context": result.Context,
			}
			for name, source := range singles {
				if source == "" {
					continue
				}
				path := filepath.Join(outputDir, name+state.Ext)
				if err := os.MkdirAll(outputDir, 0o755); err != nil {
					return err
				}
				if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
					return err
				}
				fmt.Fprintf(out, "wrote %s\n", path)
			}

			if len(result.Skills) > 0 {
				skillsDir := filepath.Join(outputDir, "skills")
				if err := os.MkdirAll(skillsDir, 0o755); err != nil {
					return err
				}
				for name, source := range result.Skills {
					path := filepath.Join(skillsDir, name+state.Ext)
					if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
						return err
					}
					fmt.Fprintf(out, "wrote %s\n", path)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", state.Dir, "Directory to write module files into.")
	return cmd
}

// NewRegistryCommand creates the registry command and its subcommands.
func NewRegistryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Search and install published expertise packages",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}
	cmd.AddCommand(newRegistrySearchCommand(), newRegistryInstallCommand())
	return cmd
}

func newRegistrySearchCommand() *cobra.Command {
	var indexURL string

	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Search the package index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := registry.NewClient(indexURL)
			packages, err := client.FetchIndex(cmd.Context())
			if err != nil {
				return err
			}

			matches := registry.Search(args[0], packages)
			out := cmd.OutOrStdout()
			if len(matches) == 0 {
				fmt.Fprintf(out, "no packages match %q\n", args[0])
				return nil
			}
			for _, pkg := range matches {
				fmt.Fprintf(out, "%s v%s by %s - %s\n",
					pkg.Name, pkg.Version, pkg.Author, pkg.Description)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&indexURL, "index", "", "Override the package index URL.")
	return cmd
}

func newRegistryInstallCommand() *cobra.Command {
	var indexURL, outputDir string

	cmd := &cobra.Command{
		Use:   "install NAME",
		Short: "Download a package archive by exact name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := registry.NewClient(indexURL)
			packages, err := client.FetchIndex(cmd.Context())
			if err != nil {
				return err
			}

			for _, pkg := range packages {
				if pkg.Name != args[0] {
					continue
				}
				path, err := client.Download(cmd.Context(), pkg, outputDir)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "downloaded %s to %s\n", pkg.Name, path)
				fmt.Fprintln(cmd.OutOrStdout(), "run 'stato import' to add its modules")
				return nil
			}
			return &ExitError{Code: 1, Message: fmt.Sprintf("package %q not found in index", args[0])}
		},
	}

	cmd.Flags().StringVar(&indexURL, "index", "", "Override the package index URL.")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", ".", "Directory to save the archive into.")
	return cmd
}

// NewBridgeCommand creates the bridge command.
func NewBridgeCommand() *cobra.Command {
	var projectDir string
	var force bool

	cmd := &cobra.Command{
		Use:   "bridge",
		Short: "Generate a README.stato.md recap at the project root",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := bridge.Write(cmd.Context(), projectDir, force)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&projectDir, "project", ".", "Project directory holding .stato/.")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing recap file.")
	return cmd
}

// NewResumeCommand creates the resume command.
func NewResumeCommand() *cobra.Command {
	var projectDir string
	var brief bool

	cmd := &cobra.Command{
		Use:   "resume",
		Short: "Print a structured recap of the project state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			statoDir := filepath.Join(projectDir, state.Dir)
			recap, err := resume.Generate(cmd.Context(), statoDir, brief)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), recap)
			return nil
		},
	}

	cmd.Flags().StringVar(&projectDir, "project", ".", "Project directory holding .stato/.")
	cmd.Flags().BoolVar(&brief, "brief", false, "Compress the recap to one paragraph.")
	return cmd
}

// NewDecompileCommand creates the decompile command.
func NewDecompileCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "decompile FILE",
		Short: "Render a module as readable markdown that can be compiled back",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			markdown := compiler.Decompile(cmd.Context(), string(data))
			if output == "" {
				fmt.Fprint(cmd.OutOrStdout(), markdown)
				return nil
			}
			if err := os.WriteFile(output, []byte(markdown), 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the markdown here instead of stdout.")
	return cmd
}
