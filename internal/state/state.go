// Package state persists module sources under a project's .stato/ directory.
// Every write is gated on validation, and the previous version of a module
// is backed up to .stato/.history/ before being replaced.
package state

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/statokit/stato/internal/compiler"
	"github.com/statokit/stato/internal/ctxlog"
	"github.com/statokit/stato/internal/module"
)

// Dir is the project-relative directory holding module sources.
const Dir = ".stato"

// Ext is the file extension of module sources.
const Ext = ".hcl"

// Backup is one history entry for a module, newest first in listings.
type Backup struct {
	Timestamp string
	Path      string
}

// Manager reads and writes modules for one project.
type Manager struct {
	projectDir string
	statoDir   string
	historyDir string
}

// NewManager returns a manager rooted at projectDir. It does not create any
// directories; use Init for that.
func NewManager(projectDir string) *Manager {
	statoDir := filepath.Join(projectDir, Dir)
	return &Manager{
		projectDir: projectDir,
		statoDir:   statoDir,
		historyDir: filepath.Join(statoDir, ".history"),
	}
}

// StatoDir returns the project's module directory.
func (m *Manager) StatoDir() string { return m.statoDir }

// Init scaffolds the .stato/ layout and a .statoignore template. Existing
// files are left alone.
func Init(projectDir string) error {
	statoDir := filepath.Join(projectDir, Dir)
	for _, dir := range []string{
		statoDir,
		filepath.Join(statoDir, "skills"),
		filepath.Join(statoDir, ".history"),
		filepath.Join(statoDir, "prompts"),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	// The crystallize prompt is tool-owned and always refreshed.
	promptPath := filepath.Join(statoDir, "prompts", "crystallize.md")
	if err := os.WriteFile(promptPath, []byte(crystallizePrompt), 0o644); err != nil {
		return fmt.Errorf("writing crystallize prompt: %w", err)
	}

	ignorePath := filepath.Join(projectDir, ".statoignore")
	if _, err := os.Stat(ignorePath); os.IsNotExist(err) {
		template := "# .statoignore - patterns to suppress in privacy scan\n" +
			"# One pattern per line, supports * wildcards\n" +
			"# Lines starting with # are comments\n"
		if err := os.WriteFile(ignorePath, []byte(template), 0o644); err != nil {
			return fmt.Errorf("writing .statoignore: %w", err)
		}
	}

	return nil
}

// Write validates the source and, only on success, backs up any existing
// version and persists it. When the validator applied auto-corrections the
// corrected text is what lands on disk.
func (m *Manager) Write(ctx context.Context, relPath, source string) (*module.ValidationResult, error) {
	logger := ctxlog.FromContext(ctx)

	result := compiler.Validate(ctx, source, "")
	if !result.Success {
		logger.Debug("state: write refused by validation", "path", relPath, "errors", len(result.HardErrors))
		return result, nil
	}

	target := filepath.Join(m.statoDir, relPath)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return result, fmt.Errorf("creating module directory: %w", err)
	}

	if _, err := os.Stat(target); err == nil {
		if err := m.backup(relPath, target); err != nil {
			return result, err
		}
	}

	writeSource := source
	if result.CorrectedSource != "" {
		writeSource = result.CorrectedSource
	}
	if err := os.WriteFile(target, []byte(writeSource), 0o644); err != nil {
		return result, fmt.Errorf("writing module: %w", err)
	}

	logger.Debug("state: module written", "path", relPath, "corrected", result.CorrectedSource != "")
	return result, nil
}

// Read returns the stored source of a module.
func (m *Manager) Read(relPath string) (string, error) {
	data, err := os.ReadFile(filepath.Join(m.statoDir, relPath))
	if err != nil {
		return "", fmt.Errorf("reading module %s: %w", relPath, err)
	}
	return string(data), nil
}

// History lists up to n backups of a module, newest first.
func (m *Manager) History(relPath string, n int) ([]Backup, error) {
	stem := moduleStem(relPath)
	pattern := filepath.Join(m.historyDir, stem+".*"+Ext)
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("listing history: %w", err)
	}

	// Backup filenames embed a UTC timestamp, so name order is time order.
	sort.Sort(sort.Reverse(sort.StringSlice(matches)))
	if n > 0 && len(matches) > n {
		matches = matches[:n]
	}

	backups := make([]Backup, 0, len(matches))
	for _, match := range matches {
		backups = append(backups, Backup{
			Timestamp: backupTimestamp(match),
			Path:      match,
		})
	}
	return backups, nil
}

// Diff returns a unified diff between the most recent backup and the current
// version, or "" when no backup exists.
func (m *Manager) Diff(relPath string) (string, error) {
	current, err := m.Read(relPath)
	if err != nil {
		return "", err
	}
	history, err := m.History(relPath, 1)
	if err != nil {
		return "", err
	}
	if len(history) == 0 {
		return "", nil
	}
	previous, err := os.ReadFile(history[0].Path)
	if err != nil {
		return "", fmt.Errorf("reading backup: %w", err)
	}

	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(previous)),
		B:        difflib.SplitLines(current),
		FromFile: relPath + " (previous)",
		ToFile:   relPath + " (current)",
		Context:  3,
	})
}

// Rollback restores the most recent backup, backing up the current version
// first. It reports false when there is nothing to roll back to.
func (m *Manager) Rollback(relPath string) (bool, error) {
	history, err := m.History(relPath, 1)
	if err != nil {
		return false, err
	}
	if len(history) == 0 {
		return false, nil
	}

	target := filepath.Join(m.statoDir, relPath)
	if _, err := os.Stat(target); err == nil {
		if err := m.backup(relPath, target); err != nil {
			return false, err
		}
	}

	previous, err := os.ReadFile(history[0].Path)
	if err != nil {
		return false, fmt.Errorf("reading backup: %w", err)
	}
	if err := os.WriteFile(target, previous, 0o644); err != nil {
		return false, fmt.Errorf("restoring module: %w", err)
	}
	return true, nil
}

func (m *Manager) backup(relPath, target string) error {
	if err := os.MkdirAll(m.historyDir, 0o755); err != nil {
		return fmt.Errorf("creating history directory: %w", err)
	}
	current, err := os.ReadFile(target)
	if err != nil {
		return fmt.Errorf("reading module for backup: %w", err)
	}

	now := time.Now().UTC()
	ts := now.Format("20060102T150405") + fmt.Sprintf("%06d", now.Nanosecond()/1000)
	backupPath := filepath.Join(m.historyDir, moduleStem(relPath)+"."+ts+Ext)
	if err := os.WriteFile(backupPath, current, 0o644); err != nil {
		return fmt.Errorf("writing backup: %w", err)
	}
	return nil
}

// moduleStem strips directories and the extension: "skills/qc.hcl" -> "qc".
func moduleStem(relPath string) string {
	return strings.TrimSuffix(filepath.Base(relPath), Ext)
}

// backupTimestamp extracts the timestamp from a backup filename like
// qc.20260213T120000123456.hcl.
func backupTimestamp(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), Ext)
	if i := strings.Index(stem, "."); i >= 0 {
		return stem[i+1:]
	}
	return ""
}
