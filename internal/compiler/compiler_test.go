package compiler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/statokit/stato/internal/module"
)

func validateSrc(t *testing.T, source string) *module.ValidationResult {
	t.Helper()
	return Validate(context.Background(), source, "")
}

func codes(diags []module.Diagnostic) []string {
	out := make([]string, 0, len(diags))
	for _, d := range diags {
		out = append(out, d.Code)
	}
	return out
}

const validSkill = `skill "CsvCleaner" {
  doc             = "Cleans CSV exports before ingestion."
  name            = "csv_cleaner"
  version         = "1.2.0"
  lessons_learned = "Always sniff the delimiter first."

  method "run" {
    params  = ["input_path"]
    returns = "string"
  }
}
`

func TestValidate_ValidSkill(t *testing.T) {
	result := validateSrc(t, validSkill)

	require.True(t, result.Success)
	assert.Equal(t, module.KindSkill, result.Kind)
	assert.Equal(t, "CsvCleaner", result.EntityName)
	assert.Empty(t, result.HardErrors)
	assert.Empty(t, result.AutoCorrections)
	assert.Empty(t, result.CorrectedSource)

	require.NotNil(t, result.Evaluated)
	name, ok := result.Evaluated.Field("name")
	require.True(t, ok)
	assert.Equal(t, "csv_cleaner", name.AsString())
	require.Contains(t, result.Evaluated.Methods, "run")
	assert.Equal(t, []string{"input_path"}, result.Evaluated.Methods["run"].Params)
}

func TestValidate_SyntaxError(t *testing.T) {
	result := validateSrc(t, "skill \"Broken\" {\n  name = \n}\n")

	require.False(t, result.Success)
	require.Len(t, result.HardErrors, 1)
	assert.Equal(t, "E001", result.HardErrors[0].Code)
	assert.NotZero(t, result.HardErrors[0].Line)
	assert.Empty(t, result.AutoCorrections)
	assert.Empty(t, result.Advice)
}

func TestValidate_NoEntity(t *testing.T) {
	result := validateSrc(t, "orphan = true\n")

	require.False(t, result.Success)
	require.Len(t, result.HardErrors, 1)
	assert.Equal(t, "E002", result.HardErrors[0].Code)
}

func TestValidate_MultipleEntitiesUsesFirst(t *testing.T) {
	source := validSkill + `skill "Second" {
  name = "second"
  method "run" {}
}
`
	result := validateSrc(t, source)

	require.True(t, result.Success)
	assert.Equal(t, "CsvCleaner", result.EntityName)
	assert.Contains(t, codes(result.AutoCorrections), "W005")
}

func TestValidate_MissingFieldAndMethodBothReported(t *testing.T) {
	// No name field, no run method: inference falls back to skill and the
	// schema pass must report both gaps in one call.
	result := validateSrc(t, `skill "Mystery" {
  description = "no identifying members"
}
`)

	require.False(t, result.Success)
	assert.Contains(t, codes(result.HardErrors), "E003")
	assert.Contains(t, codes(result.HardErrors), "E004")
	assert.Contains(t, codes(result.AutoCorrections), "W006")
	// The pipeline halted before evaluation.
	assert.Nil(t, result.Evaluated)
}

func TestValidate_MissingFieldSuggestsNearMiss(t *testing.T) {
	result := validateSrc(t, `skill "Typo" {
  nmae = "typo"
  method "run" {}
}
`)

	require.False(t, result.Success)
	require.Contains(t, codes(result.HardErrors), "E003")
	for _, d := range result.HardErrors {
		if d.Code == "E003" {
			assert.Contains(t, d.Message, "did you mean 'nmae'")
		}
	}
}

func TestValidate_AdvisoriesDoNotBlock(t *testing.T) {
	result := validateSrc(t, `skill "Quiet" {
  name = "quiet"
  method "run" {}
}
`)

	require.True(t, result.Success)
	advice := codes(result.Advice)
	assert.Contains(t, advice, "I002")
	assert.Contains(t, advice, "I003")
	assert.Contains(t, advice, "I006")
}

func TestValidate_DependsOnStringAutoWrapped(t *testing.T) {
	result := validateSrc(t, `skill "Wrappy" {
  name       = "wrappy"
  depends_on = "ripgrep"
  method "run" {}
}
`)

	require.True(t, result.Success)
	assert.Contains(t, codes(result.AutoCorrections), "W001")
	assert.Contains(t, result.CorrectedSource, `["ripgrep"]`)

	require.NotNil(t, result.Evaluated)
	deps, ok := result.Evaluated.Field("depends_on")
	require.True(t, ok)
	require.Equal(t, 1, deps.LengthInt())
	first := deps.Index(cty.NumberIntVal(0))
	assert.Equal(t, "ripgrep", first.AsString())
}

func TestValidate_DependsOnNumberAutoWrapped(t *testing.T) {
	result := validateSrc(t, `skill "Wrappy" {
  name       = "wrappy"
  depends_on = 7
  method "run" {}
}
`)

	require.True(t, result.Success)
	assert.Contains(t, codes(result.AutoCorrections), "W002")
	assert.Contains(t, result.CorrectedSource, "[7]")
}

func TestValidate_VersionPatchAutoAdded(t *testing.T) {
	result := validateSrc(t, `skill "Versioned" {
  name    = "versioned"
  version = "1.0"
  method "run" {}
}
`)

	require.True(t, result.Success)
	assert.Contains(t, codes(result.AutoCorrections), "W003")

	require.NotNil(t, result.Evaluated)
	version, ok := result.Evaluated.Field("version")
	require.True(t, ok)
	assert.Equal(t, "1.0.0", version.AsString())
}

func TestValidate_CorrectionsAreIdempotent(t *testing.T) {
	first := validateSrc(t, `skill "Wrappy" {
  name       = "wrappy"
  version    = "2.1"
  depends_on = "ripgrep"
  method "run" {}
}
`)
	require.True(t, first.Success)
	require.NotEmpty(t, first.CorrectedSource)

	second := validateSrc(t, first.CorrectedSource)
	require.True(t, second.Success)
	assert.Empty(t, second.AutoCorrections)
	assert.Empty(t, second.CorrectedSource)
}

func TestValidate_FieldTypeMismatch(t *testing.T) {
	result := validateSrc(t, `skill "Mistyped" {
  name = 42
  tags = "not-a-list"
  method "run" {}
}
`)

	require.False(t, result.Success)
	errCodes := codes(result.HardErrors)
	// Both mismatches are reported in the same pass.
	assert.Equal(t, []string{"E007", "E007"}, errCodes)
	assert.Nil(t, result.Evaluated)

	messages := make([]string, 0, len(result.HardErrors))
	for _, d := range result.HardErrors {
		messages = append(messages, d.Message)
	}
	assert.Contains(t, messages, "Field 'name' expects string, got number")
	assert.Contains(t, messages, "Field 'tags' expects list, got string")
}

func TestValidate_ExpectedKindOverridesInference(t *testing.T) {
	// Infers skill, but the caller insists on plan: the plan schema applies.
	result := Validate(context.Background(), `skill "Disguised" {
  name = "disguised"
  method "run" {}
}
`, "plan")

	require.False(t, result.Success)
	assert.Equal(t, module.KindPlan, result.Kind)
	assert.Contains(t, codes(result.HardErrors), "E003")
}

func TestValidate_InvalidExpectedKindIgnored(t *testing.T) {
	result := Validate(context.Background(), validSkill, "wizardry")

	require.True(t, result.Success)
	assert.Equal(t, module.KindSkill, result.Kind)
}

func TestValidate_UnresolvedReferenceTolerated(t *testing.T) {
	result := validateSrc(t, `skill "Deferred" {
  name       = "deferred"
  depends_on = installed_tools
  method "run" {}
}
`)

	require.True(t, result.Success)
	require.NotNil(t, result.Evaluated)
	_, ok := result.Evaluated.Field("depends_on")
	assert.False(t, ok, "unresolvable field must be omitted, not fatal")
}

func TestValidate_EvaluationError(t *testing.T) {
	result := validateSrc(t, `skill "Exploder" {
  name  = "exploder"
  extra = [1, 2][5]
  method "run" {}
}
`)

	require.False(t, result.Success)
	assert.Contains(t, codes(result.HardErrors), "E005")
}

func TestValidate_BrokenRequiredMethodSignature(t *testing.T) {
	result := validateSrc(t, `skill "BadSig" {
  name = "badsig"
  method "run" {
    params = 5
  }
}
`)

	require.False(t, result.Success)
	assert.Contains(t, codes(result.HardErrors), "E006")
}

func TestValidate_NamingConventionAdvice(t *testing.T) {
	result := validateSrc(t, `memory "ProjectBrain" {
  doc   = "Working memory."
  phase = "exploration"
}
`)

	require.True(t, result.Success)
	assert.Equal(t, module.KindMemory, result.Kind)
	assert.Contains(t, codes(result.Advice), "I001")
}

func TestValidate_ResultPartialOnEarlyHalt(t *testing.T) {
	result := validateSrc(t, `protocol "HandoffProtocol" {
  doc  = "Agent handoff contract."
  name = "handoff"
}
`)

	// handoff_schema missing: E003, but kind and entity name are still set.
	require.False(t, result.Success)
	assert.Equal(t, module.KindProtocol, result.Kind)
	assert.Equal(t, "HandoffProtocol", result.EntityName)
}
