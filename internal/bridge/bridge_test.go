package bridge

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statokit/stato/internal/state"
)

const skillSource = `skill "CsvCleaner" {
  name = "csv_cleaner"

  method "run" {
    params  = ["input_path"]
    returns = "string"
  }
}
`

const planSource = `plan "EtlPipeline" {
  name      = "etl_pipeline"
  objective = "Ship the ETL pipeline."
  steps = [
    { id = 1, action = "Extract", status = "complete" },
    { id = 2, action = "Transform", status = "complete" },
    { id = 3, action = "Load", status = "pending" },
  ]
}
`

func newProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, state.Init(dir))

	statoDir := filepath.Join(dir, state.Dir)
	require.NoError(t, os.WriteFile(filepath.Join(statoDir, "plan.hcl"), []byte(planSource), 0o644))
	require.NoError(t, os.WriteFile(
		filepath.Join(statoDir, "skills", "cleaner.hcl"), []byte(skillSource), 0o644))
	return dir
}

func TestGenerate_ListsModulesAndPlanProgress(t *testing.T) {
	dir := newProject(t)

	content, err := Generate(context.Background(), dir)
	require.NoError(t, err)

	assert.Contains(t, content, "# Stato Project")
	assert.Contains(t, content, "- **EtlPipeline** (plan) - `.stato/plan.hcl`")
	assert.Contains(t, content, "- **CsvCleaner** (skill) - `.stato/skills/cleaner.hcl`")
	assert.Contains(t, content, "## Plan: EtlPipeline")
	assert.Contains(t, content, "Progress: 2/3 complete.")
	assert.Contains(t, content, "stato resume")
}

func TestWrite_CreatesRecapFile(t *testing.T) {
	dir := newProject(t)

	path, err := Write(context.Background(), dir, false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, OutputFilename), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "## Modules")
}

func TestWrite_RefusesOverwriteWithoutForce(t *testing.T) {
	dir := newProject(t)
	ctx := context.Background()

	_, err := Write(ctx, dir, false)
	require.NoError(t, err)

	_, err = Write(ctx, dir, false)
	assert.ErrorContains(t, err, "already exists")

	_, err = Write(ctx, dir, true)
	assert.NoError(t, err)
}
