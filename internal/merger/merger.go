// Package merger combines two snapshot archives into one, resolving
// conflicting modules according to a chosen strategy.
package merger

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"

	"github.com/statokit/stato/internal/archive"
	"github.com/statokit/stato/internal/ctxlog"
	"github.com/statokit/stato/internal/differ"
	"github.com/statokit/stato/internal/version"
)

// Strategy selects how conflicting modules are resolved.
type Strategy string

const (
	StrategyUnion       Strategy = "union"
	StrategyPreferLeft  Strategy = "prefer-left"
	StrategyPreferRight Strategy = "prefer-right"
)

// ParseStrategy validates a strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyUnion, StrategyPreferLeft, StrategyPreferRight:
		return Strategy(s), nil
	}
	return "", fmt.Errorf("unknown merge strategy %q (want union, prefer-left, or prefer-right)", s)
}

// Conflict records one field that differed between the two sides of a
// module present in both archives.
type Conflict struct {
	ModulePath string
	Field      string
	LeftValue  string
	RightValue string
	Resolution string
}

// Result is the outcome of a merge.
type Result struct {
	Modules   map[string]string
	Conflicts []Conflict
	LeftOnly  []string
	RightOnly []string
	Merged    []string
}

// Merge combines two archives. Modules present on one side only are always
// carried over; modules present on both sides with identical sources merge
// silently; differing sources produce field-level conflict records resolved
// by the strategy (union keeps the left source but reports every conflict).
func Merge(ctx context.Context, leftPath, rightPath string, strategy Strategy) (*Result, error) {
	logger := ctxlog.FromContext(ctx)

	_, left, err := archive.ReadModules(leftPath)
	if err != nil {
		return nil, fmt.Errorf("reading left archive: %w", err)
	}
	_, right, err := archive.ReadModules(rightPath)
	if err != nil {
		return nil, fmt.Errorf("reading right archive: %w", err)
	}

	result := &Result{Modules: make(map[string]string)}

	for path, source := range left {
		if _, ok := right[path]; !ok {
			result.Modules[path] = source
			result.LeftOnly = append(result.LeftOnly, path)
		}
	}
	for path, source := range right {
		if _, ok := left[path]; !ok {
			result.Modules[path] = source
			result.RightOnly = append(result.RightOnly, path)
		}
	}

	var shared []string
	for path := range left {
		if _, ok := right[path]; ok {
			shared = append(shared, path)
		}
	}
	sort.Strings(shared)

	for _, path := range shared {
		leftSource, rightSource := left[path], right[path]
		if leftSource == rightSource {
			result.Modules[path] = leftSource
			result.Merged = append(result.Merged, path)
			continue
		}

		resolution := "kept left"
		chosen := leftSource
		if strategy == StrategyPreferRight {
			resolution = "kept right"
			chosen = rightSource
		}
		result.Modules[path] = chosen
		result.Merged = append(result.Merged, path)

		for _, fd := range differ.Modules(ctx, leftSource, rightSource) {
			if !fd.Changed {
				continue
			}
			result.Conflicts = append(result.Conflicts, Conflict{
				ModulePath: path,
				Field:      fd.Field,
				LeftValue:  fd.ValueA,
				RightValue: fd.ValueB,
				Resolution: resolution,
			})
		}
	}

	sort.Strings(result.LeftOnly)
	sort.Strings(result.RightOnly)
	logger.Debug("merge: finished",
		"modules", len(result.Modules), "conflicts", len(result.Conflicts))
	return result, nil
}

// WriteArchive packs a merge result into a new archive at outputPath.
func WriteArchive(result *Result, name, outputPath string) error {
	paths := make([]string, 0, len(result.Modules))
	for path := range result.Modules {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	manifest := &archive.Manifest{
		Name:            name,
		ID:              uuid.NewString(),
		Description:     "Merged archive",
		Created:         time.Now().UTC().Format(time.RFC3339),
		StatoVersion:    version.Version,
		IncludedModules: paths,
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("creating merged archive: %w", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(manifest); err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	w, err := zw.Create(archive.ManifestName)
	if err != nil {
		return fmt.Errorf("adding manifest: %w", err)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}

	for _, path := range paths {
		w, err := zw.Create(path)
		if err != nil {
			return fmt.Errorf("adding %s: %w", path, err)
		}
		if _, err := io.WriteString(w, result.Modules[path]); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}
	return zw.Close()
}
