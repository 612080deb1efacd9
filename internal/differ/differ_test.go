package differ

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statokit/stato/internal/archive"
	"github.com/statokit/stato/internal/state"
)

func skillSource(version, lessons string) string {
	return `skill "CsvCleaner" {
  name            = "csv_cleaner"
  version         = "` + version + `"
  lessons_learned = "` + lessons + `"

  method "run" {
    params  = ["input_path"]
    returns = "string"
  }
}
`
}

func TestModules_FieldLevelDiff(t *testing.T) {
	ctx := context.Background()

	diffs := Modules(ctx,
		skillSource("1.0.0", "Sniff the delimiter."),
		skillSource("2.0.0", "Sniff the delimiter."))

	byField := make(map[string]FieldDiff, len(diffs))
	for _, d := range diffs {
		byField[d.Field] = d
	}

	require.Contains(t, byField, "version")
	assert.True(t, byField["version"].Changed)
	assert.Equal(t, `"1.0.0"`, byField["version"].ValueA)
	assert.Equal(t, `"2.0.0"`, byField["version"].ValueB)

	assert.False(t, byField["name"].Changed)
	assert.False(t, byField["lessons_learned"].Changed)
}

func TestModules_MissingFieldOnOneSide(t *testing.T) {
	ctx := context.Background()

	withTags := `skill "Tagger" {
  name = "tagger"
  tags = ["csv", "etl"]

  method "run" {
    params  = ["input"]
    returns = "string"
  }
}
`
	withoutTags := `skill "Tagger" {
  name = "tagger"

  method "run" {
    params  = ["input"]
    returns = "string"
  }
}
`
	diffs := Modules(ctx, withTags, withoutTags)

	var tagsDiff *FieldDiff
	for i := range diffs {
		if diffs[i].Field == "tags" {
			tagsDiff = &diffs[i]
		}
	}
	require.NotNil(t, tagsDiff)
	assert.True(t, tagsDiff.Changed)
	assert.Equal(t, Missing, tagsDiff.ValueB)
	assert.NotEqual(t, Missing, tagsDiff.ValueA)
}

func TestModules_UnparsableSideActsEmpty(t *testing.T) {
	ctx := context.Background()

	diffs := Modules(ctx, skillSource("1.0.0", "x"), `skill "Broken" {`)
	require.NotEmpty(t, diffs)
	for _, d := range diffs {
		assert.Equal(t, Missing, d.ValueB, d.Field)
		assert.True(t, d.Changed, d.Field)
	}
}

func TestSnapshots_ModuleLevelComparison(t *testing.T) {
	ctx := context.Background()

	projectA := newProject(t, map[string]string{
		"skills/cleaner.hcl": skillSource("1.0.0", "x"),
		"skills/old.hcl":     renamed("OldSkill", "old_skill"),
	})
	projectB := newProject(t, map[string]string{
		"skills/cleaner.hcl": skillSource("2.0.0", "x"),
		"skills/new.hcl":     renamed("NewSkill", "new_skill"),
	})

	archiveA, err := archive.Snapshot(ctx, projectA, "a", archive.SnapshotOptions{})
	require.NoError(t, err)
	archiveB, err := archive.Snapshot(ctx, projectB, "b", archive.SnapshotOptions{})
	require.NoError(t, err)

	diff, err := Snapshots(archiveA, archiveB)
	require.NoError(t, err)
	assert.Equal(t, []string{"skills/new.hcl"}, diff.Added)
	assert.Equal(t, []string{"skills/old.hcl"}, diff.Removed)
	assert.Equal(t, []string{"skills/cleaner.hcl"}, diff.Changed)
}

func renamed(entity, name string) string {
	return `skill "` + entity + `" {
  name = "` + name + `"

  method "run" {
    params  = ["input"]
    returns = "string"
  }
}
`
}

func newProject(t *testing.T, modules map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, state.Init(dir))
	for relPath, source := range modules {
		path := filepath.Join(dir, state.Dir, filepath.FromSlash(relPath))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(source), 0o644))
	}
	return dir
}
