// Package module defines the core data model shared by the compiler and its
// consumers: module kinds, diagnostics, validation results, and the static
// per-kind schemas.
package module

import (
	"github.com/zclconf/go-cty/cty"
)

// Kind identifies which of the five module kinds an entity is.
type Kind string

const (
	KindSkill    Kind = "skill"
	KindPlan     Kind = "plan"
	KindMemory   Kind = "memory"
	KindContext  Kind = "context"
	KindProtocol Kind = "protocol"
)

// ParseKind maps a user-supplied kind string to a Kind. The second return
// value is false for anything outside the closed catalogue.
func ParseKind(s string) (Kind, bool) {
	switch Kind(s) {
	case KindSkill, KindPlan, KindMemory, KindContext, KindProtocol:
		return Kind(s), true
	}
	return "", false
}

// Severity classifies a diagnostic.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Diagnostic is one finding produced by the validation pipeline. Line is
// 1-based; zero means the finding has no useful source position.
type Diagnostic struct {
	Code     string
	Message  string
	Severity Severity
	Line     int
}

// Method is the structural signature of one method block on an entity.
// Params is nil and Returns empty when the definition declares no signature.
type Method struct {
	Name    string
	Params  []string
	Returns string
}

// Step is one entry of a plan's steps list after evaluation.
type Step struct {
	ID        int
	Action    string
	Status    string
	DependsOn []int
	Output    string
}

// Entity holds the evaluated form of a module's primary entity: concrete
// field values, method signatures, and (for plans) the decoded steps.
type Entity struct {
	Name    string
	Doc     string
	Fields  map[string]cty.Value
	Methods map[string]*Method

	// Steps is populated by the semantic pass for plan modules only.
	Steps []*Step
}

// Field returns the evaluated value of a field, with ok=false when the field
// is absent or could not be resolved during evaluation.
func (e *Entity) Field(name string) (cty.Value, bool) {
	if e == nil {
		return cty.NilVal, false
	}
	v, ok := e.Fields[name]
	return v, ok
}

// ValidationResult is the immutable outcome of one validate call. Success is
// true iff HardErrors is empty. CorrectedSource is empty when no textual
// auto-correction was applied.
type ValidationResult struct {
	Success         bool
	Kind            Kind
	EntityName      string
	HardErrors      []Diagnostic
	AutoCorrections []Diagnostic
	Advice          []Diagnostic
	CorrectedSource string
	Evaluated       *Entity
}

// HasCode reports whether any diagnostic in the result carries the code.
func (r *ValidationResult) HasCode(code string) bool {
	for _, list := range [][]Diagnostic{r.HardErrors, r.AutoCorrections, r.Advice} {
		for _, d := range list {
			if d.Code == code {
				return true
			}
		}
	}
	return false
}
