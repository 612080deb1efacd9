package resume

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const contextSource = `context "ProjectContext" {
  project     = "etl"
  description = "Warehouse ingestion project"
  environment = {
    python = "3.12"
    duckdb = "0.10"
  }
}
`

const planSource = `plan "EtlPipeline" {
  name      = "etl_pipeline"
  objective = "Ship the ETL pipeline."
  steps = [
    { id = 1, action = "Extract source data", status = "complete", output = "raw.csv" },
    { id = 2, action = "Load into warehouse", status = "pending", depends_on = [1] },
  ]
  decision_log = "Chose DuckDB over SQLite for columnar scans."
}
`

const memorySource = `memory "BuildState" {
  phase = "testing"
  known_issues = {
    flaky_loader = "retry once before failing"
  }
  reflection = "Loader throughput is the bottleneck. Profile before optimizing."
}
`

const skillSource = `skill "CsvCleaner" {
  name            = "csv_cleaner"
  version         = "1.2.0"
  lessons_learned = "- Sniff the delimiter first\n- Normalize encodings"

  method "run" {
    params  = ["input_path"]
    returns = "string"
  }
}
`

func newStatoDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "skills"), 0o755))
	write := func(relPath, source string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, relPath), []byte(source), 0o644))
	}
	write("context.hcl", contextSource)
	write("plan.hcl", planSource)
	write("memory.hcl", memorySource)
	write(filepath.Join("skills", "cleaner.hcl"), skillSource)
	return dir
}

func TestGenerate_FullRecap(t *testing.T) {
	dir := newStatoDir(t)

	recap, err := Generate(context.Background(), dir, false)
	require.NoError(t, err)

	assert.Contains(t, recap, "Project: etl")
	assert.Contains(t, recap, "Description: Warehouse ingestion project")
	assert.Contains(t, recap, "duckdb: 0.10")

	assert.Contains(t, recap, "Plan: etl_pipeline")
	assert.Contains(t, recap, "Objective: Ship the ETL pipeline.")
	assert.Contains(t, recap, "Progress: 1/2 steps complete")
	assert.Contains(t, recap, "Step 1: Extract source data -> raw.csv")
	assert.Contains(t, recap, "Next: Step 2 - Load into warehouse")
	assert.Contains(t, recap, "Chose DuckDB over SQLite")

	assert.Contains(t, recap, "Available expertise:")
	assert.Contains(t, recap, "csv_cleaner v1.2.0")
	assert.Contains(t, recap, "2 lessons")

	assert.Contains(t, recap, "Current phase: testing")
	assert.Contains(t, recap, "flaky_loader: retry once before failing")
	assert.Contains(t, recap, "Loader throughput is the bottleneck.")
}

func TestGenerate_BriefRecap(t *testing.T) {
	dir := newStatoDir(t)

	recap, err := Generate(context.Background(), dir, true)
	require.NoError(t, err)

	assert.Contains(t, recap, "etl: Warehouse ingestion project.")
	assert.Contains(t, recap, "Progress: 1/2 steps complete.")
	assert.Contains(t, recap, "Next: Load into warehouse.")
	assert.Contains(t, recap, "Loader throughput is the bottleneck.")

	// Brief mode is one paragraph, no newlines.
	assert.NotContains(t, recap, "\n")
}

func TestGenerate_EmptyProject(t *testing.T) {
	recap, err := Generate(context.Background(), t.TempDir(), false)
	require.NoError(t, err)
	assert.Empty(t, recap)
}

func TestGenerate_SkipsInvalidModules(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "context.hcl"),
		[]byte(`context "Broken" {`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "memory.hcl"),
		[]byte(memorySource), 0o644))

	recap, err := Generate(context.Background(), dir, false)
	require.NoError(t, err)
	assert.NotContains(t, recap, "Project:")
	assert.Contains(t, recap, "Current phase: testing")
}
