package module

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func set(names ...string) map[string]bool {
	s := make(map[string]bool, len(names))
	for _, n := range names {
		s[n] = true
	}
	return s
}

func TestInferKind(t *testing.T) {
	tests := []struct {
		name      string
		entity    string
		fields    map[string]bool
		methods   map[string]bool
		want      Kind
		confident bool
	}{
		{"context suffix wins", "ScRNAPipelineContext", set(), set(), KindContext, true},
		{"state suffix wins", "ProjectState", set(), set(), KindMemory, true},
		{"protocol suffix wins", "HandoffProtocol", set(), set(), KindProtocol, true},
		{"suffix beats fields", "AnalysisContext", set("steps", "objective"), set(), KindContext, true},
		{"steps and objective", "Release", set("steps", "objective"), set(), KindPlan, true},
		{"handoff schema", "Exchange", set("handoff_schema"), set(), KindProtocol, true},
		{"phase without run", "Brain", set("phase"), set(), KindMemory, true},
		{"phase with run is not memory", "Brain", set("phase"), set("run"), KindSkill, true},
		{"project and description without run", "Workspace", set("project", "description"), set(), KindContext, true},
		{"run method", "Cleaner", set("name"), set("run"), KindSkill, true},
		{"fallback is unconfident skill", "Mystery", set("description"), set(), KindSkill, false},
		{"suffix match is case-insensitive", "projectSTATE", set(), set(), KindMemory, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, confident := InferKind(tt.entity, tt.fields, tt.methods)
			assert.Equal(t, tt.want, kind)
			assert.Equal(t, tt.confident, confident)
		})
	}
}

func TestParseKind(t *testing.T) {
	for _, valid := range []string{"skill", "plan", "memory", "context", "protocol"} {
		kind, ok := ParseKind(valid)
		assert.True(t, ok)
		assert.Equal(t, Kind(valid), kind)
	}

	_, ok := ParseKind("wizardry")
	assert.False(t, ok)
}

func TestSchemasCoverEveryKind(t *testing.T) {
	for _, kind := range []Kind{KindSkill, KindPlan, KindMemory, KindContext, KindProtocol} {
		schema, ok := Schemas[kind]
		assert.True(t, ok, "missing schema for %s", kind)
		assert.NotNil(t, schema)
		for _, required := range schema.RequiredFields {
			_, typed := schema.FieldTypes[required]
			assert.True(t, typed, "%s: required field %q has no declared type", kind, required)
		}
	}
}

func TestIsAllowedStepStatus(t *testing.T) {
	for _, s := range AllowedStepStatuses {
		assert.True(t, IsAllowedStepStatus(s))
	}
	assert.False(t, IsAllowedStepStatus("vibing"))
	assert.False(t, IsAllowedStepStatus(""))
}
