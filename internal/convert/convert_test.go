package convert

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statokit/stato/internal/compiler"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDetectFormat_ByFilename(t *testing.T) {
	cases := map[string]Format{
		"CLAUDE.md":    FormatClaude,
		"claude.md":    FormatClaude,
		".cursorrules": FormatCursor,
		"AGENTS.md":    FormatCodex,
		"SKILL.md":     FormatSkillkit,
		"notes.md":     FormatGeneric,
	}
	for name, want := range cases {
		assert.Equal(t, want, DetectFormat(name, ""), name)
	}
}

func TestDetectFormat_ByContent(t *testing.T) {
	skillkit := "# My Skill\n\n## Steps\n\n- do the thing\n"
	assert.Equal(t, FormatSkillkit, DetectFormat("whatever.md", skillkit))
	assert.Equal(t, FormatGeneric, DetectFormat("whatever.md", "plain prose\n"))
}

func TestFile_ClaudeDocToSkillsAndContext(t *testing.T) {
	doc := `Always run the linter before committing.
Prefer small commits.

## Data Cleaning

- Sniff the delimiter first
- Normalize encodings to UTF-8

## Release Process

- Tag before publishing
`
	path := writeTemp(t, "CLAUDE.md", doc)

	result, err := File(path, "")
	require.NoError(t, err)
	assert.Equal(t, FormatClaude, result.Format)

	require.Contains(t, result.Skills, "data_cleaning")
	require.Contains(t, result.Skills, "release_process")
	assert.Contains(t, result.Skills["data_cleaning"], "Sniff the delimiter first")

	require.NotEmpty(t, result.Context)
	assert.Contains(t, result.Context, "Always run the linter before committing.")
}

func TestFile_GeneratedSourcesValidate(t *testing.T) {
	doc := "Team convention: tabs over spaces.\n\n## Data Cleaning\n\n- Sniff the delimiter\n"
	path := writeTemp(t, "CLAUDE.md", doc)

	result, err := File(path, "")
	require.NoError(t, err)

	ctx := context.Background()
	for name, source := range result.Skills {
		validation := compiler.Validate(ctx, source, "skill")
		assert.True(t, validation.Success, "skill %s: %v", name, validation.HardErrors)
	}
	validation := compiler.Validate(ctx, result.Context, "context")
	assert.True(t, validation.Success, "context: %v", validation.HardErrors)
}

func TestFile_CursorRules(t *testing.T) {
	rules := "# style\n- use early returns\nprefer table tests\n"
	path := writeTemp(t, ".cursorrules", rules)

	result, err := File(path, "")
	require.NoError(t, err)
	assert.Equal(t, FormatCursor, result.Format)
	assert.Empty(t, result.Skills)
	assert.Contains(t, result.Context, "use early returns")
	assert.Contains(t, result.Context, "prefer table tests")
	assert.NotContains(t, result.Context, "# style")
}

func TestFile_SkillkitFrontMatter(t *testing.T) {
	doc := `---
name: csv-cleaner
description: Cleans CSV exports before ingestion
version: 1.2.0
---

# CSV Cleaner

## Steps

- Sniff the delimiter
- Normalize encodings
`
	path := writeTemp(t, "SKILL.md", doc)

	result, err := File(path, "")
	require.NoError(t, err)
	require.Contains(t, result.Skills, "csv_cleaner")

	source := result.Skills["csv_cleaner"]
	assert.Contains(t, source, `"csv_cleaner"`)
	assert.Contains(t, source, "Cleans CSV exports before ingestion")
	assert.Contains(t, source, `version     = "1.2.0"`)
	assert.Contains(t, source, "Sniff the delimiter")

	validation := compiler.Validate(context.Background(), source, "skill")
	assert.True(t, validation.Success, "%v", validation.HardErrors)
}

func TestFile_SkillkitWithoutFrontMatterFallsBackToHeading(t *testing.T) {
	doc := "# Web Scraper\n\n## Steps\n\n- fetch pages\n"
	path := writeTemp(t, "SKILL.md", doc)

	result, err := File(path, "")
	require.NoError(t, err)
	assert.Contains(t, result.Skills, "web_scraper")
}

func TestFile_BadFrontMatter(t *testing.T) {
	doc := "---\nname: [unclosed\n---\n\n# X\n"
	path := writeTemp(t, "SKILL.md", doc)

	_, err := File(path, "")
	assert.Error(t, err)
}

func TestFile_ExplicitFormatOverridesDetection(t *testing.T) {
	path := writeTemp(t, "notes.md", "- rule one\n")

	result, err := File(path, FormatCursor)
	require.NoError(t, err)
	assert.Equal(t, FormatCursor, result.Format)
	assert.Contains(t, result.Context, "rule one")
}
