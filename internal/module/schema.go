package module

import "github.com/zclconf/go-cty/cty"

// FieldType is the coarse type a schema expects for a field literal. It is
// deliberately coarser than cty.Type: HCL list literals evaluate to tuples
// and object literals to object types, and the schema does not care about
// element types.
type FieldType int

const (
	StringType FieldType = iota
	ListType
	MapType
)

// String returns the name used in diagnostics.
func (t FieldType) String() string {
	switch t {
	case StringType:
		return "string"
	case ListType:
		return "list"
	case MapType:
		return "map"
	}
	return "unknown"
}

// Matches reports whether a concrete cty type satisfies the expected kind.
func (t FieldType) Matches(ct cty.Type) bool {
	switch t {
	case StringType:
		return ct == cty.String
	case ListType:
		return ct.IsTupleType() || ct.IsListType() || ct.IsSetType()
	case MapType:
		return ct.IsObjectType() || ct.IsMapType()
	}
	return false
}

// TypeName returns the diagnostic name for a concrete cty type, matching the
// coarse vocabulary used in expected-type names.
func TypeName(ct cty.Type) string {
	switch {
	case ct == cty.String:
		return "string"
	case ct == cty.Number:
		return "number"
	case ct == cty.Bool:
		return "bool"
	case ct.IsTupleType() || ct.IsListType() || ct.IsSetType():
		return "list"
	case ct.IsObjectType() || ct.IsMapType():
		return "map"
	}
	return ct.FriendlyName()
}

// Schema is the required-members and field-type contract for one kind.
// The tables below are defined once and never mutated.
type Schema struct {
	RequiredFields  []string
	RequiredMethods []string
	FieldTypes      map[string]FieldType
}

var skillSchema = &Schema{
	RequiredFields:  []string{"name"},
	RequiredMethods: []string{"run"},
	FieldTypes: map[string]FieldType{
		"name":             StringType,
		"description":      StringType,
		"version":          StringType,
		"depends_on":       ListType,
		"input_schema":     MapType,
		"output_schema":    MapType,
		"default_params":   MapType,
		"lessons_learned":  StringType,
		"tags":             ListType,
		"context_requires": ListType,
	},
}

var planSchema = &Schema{
	RequiredFields:  []string{"name", "objective", "steps"},
	RequiredMethods: nil,
	FieldTypes: map[string]FieldType{
		"name":         StringType,
		"objective":    StringType,
		"steps":        ListType,
		"version":      StringType,
		"decision_log": StringType,
		"constraints":  ListType,
		"created_by":   StringType,
	},
}

var memorySchema = &Schema{
	RequiredFields:  []string{"phase"},
	RequiredMethods: nil,
	FieldTypes: map[string]FieldType{
		"phase":         StringType,
		"tasks":         ListType,
		"known_issues":  MapType,
		"reflection":    StringType,
		"error_history": ListType,
		"decisions":     ListType,
		"metadata":      MapType,
		"last_updated":  StringType,
	},
}

var contextSchema = &Schema{
	RequiredFields:  []string{"project", "description"},
	RequiredMethods: nil,
	FieldTypes: map[string]FieldType{
		"project":         StringType,
		"description":     StringType,
		"datasets":        ListType,
		"environment":     MapType,
		"conventions":     ListType,
		"tools":           ListType,
		"pending_tasks":   ListType,
		"completed_tasks": ListType,
		"team":            ListType,
		"notes":           StringType,
	},
}

var protocolSchema = &Schema{
	RequiredFields:  []string{"name", "handoff_schema"},
	RequiredMethods: nil,
	FieldTypes: map[string]FieldType{
		"name":             StringType,
		"handoff_schema":   MapType,
		"description":      StringType,
		"validation_rules": ListType,
		"error_handling":   StringType,
	},
}

// Schemas maps every kind to its schema.
var Schemas = map[Kind]*Schema{
	KindSkill:    skillSchema,
	KindPlan:     planSchema,
	KindMemory:   memorySchema,
	KindContext:  contextSchema,
	KindProtocol: protocolSchema,
}

// AllowedStepStatuses is the single source of truth for legal plan step
// status values, in the order they are reported.
var AllowedStepStatuses = []string{"blocked", "complete", "failed", "pending", "running"}

// IsAllowedStepStatus reports membership in AllowedStepStatuses.
func IsAllowedStepStatus(s string) bool {
	for _, allowed := range AllowedStepStatuses {
		if s == allowed {
			return true
		}
	}
	return false
}
