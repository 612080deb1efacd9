// Package archive packs validated modules into .stato snapshot archives and
// unpacks them again. An archive is a zip file with a manifest.toml listing
// the included module paths.
package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"

	"github.com/statokit/stato/internal/compiler"
	"github.com/statokit/stato/internal/ctxlog"
	"github.com/statokit/stato/internal/module"
	"github.com/statokit/stato/internal/privacy"
	"github.com/statokit/stato/internal/state"
	"github.com/statokit/stato/internal/version"
)

// ManifestName is the well-known manifest member inside an archive.
const ManifestName = "manifest.toml"

// Manifest describes an archive's contents.
type Manifest struct {
	Name            string   `toml:"name"`
	ID              string   `toml:"id"`
	Description     string   `toml:"description"`
	Author          string   `toml:"author"`
	Created         string   `toml:"created"`
	StatoVersion    string   `toml:"stato_version"`
	Partial         bool     `toml:"partial"`
	Template        bool     `toml:"template"`
	IncludedModules []string `toml:"included_modules"`
}

// ModuleInfo is one discovered, validated module in a project.
type ModuleInfo struct {
	RelPath    string
	Kind       module.Kind
	EntityName string
	Entity     *module.Entity
	Source     string
}

// SnapshotOptions narrow and shape what goes into an archive.
type SnapshotOptions struct {
	Output      string
	Description string
	Modules     []string // module paths (extension optional); nil means all
	Types       []string // kinds to include; nil means all
	Exclude     []string // kinds or module paths to drop
	Sanitize    bool     // replace detected secrets before packing
}

// Discover walks a project's .stato/ directory and returns every module that
// validates, in path order. Invalid modules are skipped.
func Discover(ctx context.Context, statoDir string) ([]*ModuleInfo, error) {
	logger := ctxlog.FromContext(ctx)
	var modules []*ModuleInfo

	err := filepath.WalkDir(statoDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".history" || d.Name() == "prompts" {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(p, state.Ext) {
			return nil
		}

		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("reading %s: %w", p, err)
		}
		rel, err := filepath.Rel(statoDir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		result := compiler.Validate(ctx, string(data), "")
		if !result.Success || result.Kind == "" {
			logger.Debug("archive: skipping invalid module", "path", rel)
			return nil
		}

		modules = append(modules, &ModuleInfo{
			RelPath:    rel,
			Kind:       result.Kind,
			EntityName: result.EntityName,
			Entity:     result.Evaluated,
			Source:     string(data),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", statoDir, err)
	}
	return modules, nil
}

// Snapshot packs a project's modules into an archive and returns its path.
func Snapshot(ctx context.Context, projectDir, name string, opts SnapshotOptions) (string, error) {
	statoDir := filepath.Join(projectDir, state.Dir)
	all, err := Discover(ctx, statoDir)
	if err != nil {
		return "", err
	}

	selected := filterModules(all, opts)
	if len(selected) == 0 {
		return "", fmt.Errorf("no modules selected for snapshot")
	}

	output := opts.Output
	if output == "" {
		output = filepath.Join(projectDir, name+".stato")
	}

	partial := opts.Modules != nil || opts.Types != nil || opts.Exclude != nil
	manifest := &Manifest{
		Name:            name,
		ID:              uuid.NewString(),
		Description:     opts.Description,
		Created:         time.Now().UTC().Format(time.RFC3339),
		StatoVersion:    version.Version,
		Partial:         partial,
		IncludedModules: modulePaths(selected),
	}

	scanner := privacy.NewScanner(nil)

	f, err := os.Create(output)
	if err != nil {
		return "", fmt.Errorf("creating archive: %w", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	if err := writeManifest(zw, manifest); err != nil {
		return "", err
	}
	for _, mod := range selected {
		source := mod.Source
		if opts.Sanitize {
			source = scanner.Sanitize(source)
		}
		w, err := zw.Create(mod.RelPath)
		if err != nil {
			return "", fmt.Errorf("adding %s: %w", mod.RelPath, err)
		}
		if _, err := io.WriteString(w, source); err != nil {
			return "", fmt.Errorf("writing %s: %w", mod.RelPath, err)
		}
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("finalizing archive: %w", err)
	}

	ctxlog.FromContext(ctx).Debug("archive: snapshot written",
		"path", output, "modules", len(selected), "partial", partial)
	return output, nil
}

// Inspect reads an archive's manifest without extracting it.
func Inspect(archivePath string) (*Manifest, error) {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	defer zr.Close()
	return readManifest(&zr.Reader)
}

// ReadModules returns the manifest plus every included module's source.
func ReadModules(archivePath string) (*Manifest, map[string]string, error) {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening archive: %w", err)
	}
	defer zr.Close()

	manifest, err := readManifest(&zr.Reader)
	if err != nil {
		return nil, nil, err
	}

	modules := make(map[string]string, len(manifest.IncludedModules))
	for _, member := range manifest.IncludedModules {
		data, err := readMember(&zr.Reader, member)
		if err != nil {
			return nil, nil, err
		}
		modules[member] = string(data)
	}
	return manifest, modules, nil
}

// ImportResult reports what an archive import did.
type ImportResult struct {
	Imported []string
	Skipped  []string
	Warnings []string
}

// Import extracts an archive's modules into a project, validating each one
// and skipping any that fail. Existing files are only overwritten when force
// is set.
func Import(ctx context.Context, archivePath, projectDir string, force bool) (*ImportResult, error) {
	_, modules, err := ReadModules(archivePath)
	if err != nil {
		return nil, err
	}

	statoDir := filepath.Join(projectDir, state.Dir)
	result := &ImportResult{}

	for _, member := range sortedKeys(modules) {
		source := modules[member]
		validation := compiler.Validate(ctx, source, "")
		if !validation.Success {
			result.Skipped = append(result.Skipped, member)
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("%s: failed validation, skipped", member))
			continue
		}

		target := filepath.Join(statoDir, filepath.FromSlash(member))
		if _, err := os.Stat(target); err == nil && !force {
			result.Skipped = append(result.Skipped, member)
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("%s: already exists, use force to overwrite", member))
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return nil, fmt.Errorf("creating directory for %s: %w", member, err)
		}
		if err := os.WriteFile(target, []byte(source), 0o644); err != nil {
			return nil, fmt.Errorf("writing %s: %w", member, err)
		}
		result.Imported = append(result.Imported, member)
	}

	ctxlog.FromContext(ctx).Debug("archive: import finished",
		"imported", len(result.Imported), "skipped", len(result.Skipped))
	return result, nil
}

func filterModules(all []*ModuleInfo, opts SnapshotOptions) []*ModuleInfo {
	selected := all

	if opts.Modules != nil {
		want := make(map[string]bool, len(opts.Modules))
		for _, m := range opts.Modules {
			want[strings.TrimSuffix(m, state.Ext)] = true
		}
		selected = keep(selected, func(m *ModuleInfo) bool {
			return want[strings.TrimSuffix(m.RelPath, state.Ext)]
		})
	}

	if opts.Types != nil {
		want := make(map[string]bool, len(opts.Types))
		for _, t := range opts.Types {
			want[strings.ToLower(t)] = true
		}
		selected = keep(selected, func(m *ModuleInfo) bool {
			return want[string(m.Kind)]
		})
	}

	if opts.Exclude != nil {
		drop := make(map[string]bool, len(opts.Exclude))
		for _, e := range opts.Exclude {
			drop[strings.ToLower(strings.TrimSuffix(e, state.Ext))] = true
		}
		selected = keep(selected, func(m *ModuleInfo) bool {
			return !drop[string(m.Kind)] && !drop[strings.TrimSuffix(m.RelPath, state.Ext)]
		})
	}

	return selected
}

func keep(mods []*ModuleInfo, pred func(*ModuleInfo) bool) []*ModuleInfo {
	out := mods[:0:0]
	for _, m := range mods {
		if pred(m) {
			out = append(out, m)
		}
	}
	return out
}

func modulePaths(mods []*ModuleInfo) []string {
	paths := make([]string, 0, len(mods))
	for _, m := range mods {
		paths = append(paths, m.RelPath)
	}
	return paths
}

func writeManifest(zw *zip.Writer, manifest *Manifest) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(manifest); err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	w, err := zw.Create(ManifestName)
	if err != nil {
		return fmt.Errorf("adding manifest: %w", err)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}

func readManifest(zr *zip.Reader) (*Manifest, error) {
	data, err := readMember(zr, ManifestName)
	if err != nil {
		return nil, fmt.Errorf("archive has no readable manifest: %w", err)
	}
	var manifest Manifest
	if err := toml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	return &manifest, nil
}

func readMember(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if path.Clean(f.Name) != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", name, err)
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("member %s not found", name)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// Path order keeps imports deterministic.
	sort.Strings(keys)
	return keys
}
