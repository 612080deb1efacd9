// Package bridge renders a project recap file for agent platforms that read
// repository-level instruction documents.
package bridge

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/statokit/stato/internal/archive"
	"github.com/statokit/stato/internal/ctxlog"
	"github.com/statokit/stato/internal/module"
	"github.com/statokit/stato/internal/state"
)

// OutputFilename is where the generic bridge lands in the project root.
const OutputFilename = "README.stato.md"

// Generate builds the recap document from the project's modules.
func Generate(ctx context.Context, projectDir string) (string, error) {
	statoDir := filepath.Join(projectDir, state.Dir)
	modules, err := archive.Discover(ctx, statoDir)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("# Stato Project\n\n")
	sb.WriteString("This project uses Stato for structured expertise management.\n")
	sb.WriteString("Agent state modules live in `.stato/` as validated module files.\n\n")
	sb.WriteString("## Modules\n\n")

	for _, mod := range modules {
		fmt.Fprintf(&sb, "- **%s** (%s) - `.stato/%s`\n", mod.EntityName, mod.Kind, mod.RelPath)
	}
	sb.WriteString("\n")

	for _, mod := range modules {
		if mod.Kind != module.KindPlan || mod.Entity == nil {
			continue
		}
		done, total := planProgress(mod.Entity.Steps)
		fmt.Fprintf(&sb, "## Plan: %s\n", mod.EntityName)
		fmt.Fprintf(&sb, "Progress: %d/%d complete.\n", done, total)
		fmt.Fprintf(&sb, "See `.stato/%s` for details.\n\n", mod.RelPath)
	}

	sb.WriteString("## Usage\n```bash\nstato validate .stato/\nstato resume\n```\n")
	return sb.String(), nil
}

// Write renders the recap and saves it at the project root. An existing file
// is left alone unless force is set.
func Write(ctx context.Context, projectDir string, force bool) (string, error) {
	outputPath := filepath.Join(projectDir, OutputFilename)
	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return "", fmt.Errorf("%s already exists (use force to overwrite)", OutputFilename)
		}
	}

	content, err := Generate(ctx, projectDir)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(outputPath, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", outputPath, err)
	}

	ctxlog.FromContext(ctx).Debug("bridge: recap written", "path", outputPath)
	return outputPath, nil
}

func planProgress(steps []*module.Step) (done, total int) {
	for _, s := range steps {
		if s.Status == "complete" {
			done++
		}
	}
	return done, len(steps)
}
