package compiler

import (
	"context"
	"fmt"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/statokit/stato/internal/ctxlog"
	"github.com/statokit/stato/internal/module"
)

// validateSemantics runs the kind-specific deep checks. Only plans and
// skills have any; every other kind passes through untouched.
func validateSemantics(ctx context.Context, kind module.Kind, entity *module.Entity, b *resultBuilder) {
	if entity == nil {
		return
	}
	switch kind {
	case module.KindPlan:
		validatePlanSemantics(ctx, entity, b)
	case module.KindSkill:
		validateSkillSemantics(entity, b)
	}
}

// stepRecord wraps a decoded step with the presence flags the checks need.
// badDeps holds depends_on entries that are not numbers; they can never name
// an existing step ID and must surface as dangling references.
type stepRecord struct {
	step      *module.Step
	hasStatus bool
	badDeps   []string
}

func validatePlanSemantics(ctx context.Context, entity *module.Entity, b *resultBuilder) {
	logger := ctxlog.FromContext(ctx)

	stepsVal, ok := entity.Field("steps")
	if !ok || stepsVal.IsNull() || !module.ListType.Matches(stepsVal.Type()) {
		return
	}

	records := decodeSteps(stepsVal)
	steps := make([]*module.Step, 0, len(records))
	for _, rec := range records {
		steps = append(steps, rec.step)
	}
	entity.Steps = steps

	// Step ID uniqueness.
	seen := make(map[int]bool)
	for _, rec := range records {
		if seen[rec.step.ID] {
			b.addError(module.Diagnostic{
				Code:     "E008",
				Message:  fmt.Sprintf("Duplicate step ID: %d", rec.step.ID),
				Severity: module.SeverityError,
			})
		}
		seen[rec.step.ID] = true
	}

	// Every depends_on entry must reference an existing step.
	for _, rec := range records {
		for _, dep := range rec.step.DependsOn {
			if !seen[dep] {
				b.addError(module.Diagnostic{
					Code:     "E008",
					Message:  fmt.Sprintf("Step %d: depends_on references nonexistent step %d", rec.step.ID, dep),
					Severity: module.SeverityError,
				})
			}
		}
		for _, dep := range rec.badDeps {
			b.addError(module.Diagnostic{
				Code:     "E008",
				Message:  fmt.Sprintf("Step %d: depends_on references nonexistent step %s", rec.step.ID, dep),
				Severity: module.SeverityError,
			})
		}
	}

	// Status legality. A missing status is repaired in the evaluated record,
	// not in the source text.
	for _, rec := range records {
		if !rec.hasStatus {
			rec.step.Status = "pending"
			b.addWarning(module.Diagnostic{
				Code:     "W004",
				Message:  fmt.Sprintf("Step %d: missing status, auto-set to 'pending'", rec.step.ID),
				Severity: module.SeverityWarning,
			})
			continue
		}
		if !module.IsAllowedStepStatus(rec.step.Status) {
			b.addError(module.Diagnostic{
				Code:     "E010",
				Message: fmt.Sprintf("Step %d: invalid status '%s'. Allowed: %s",
					rec.step.ID, rec.step.Status, strings.Join(module.AllowedStepStatuses, ", ")),
				Severity: module.SeverityError,
			})
		}
	}

	if !b.failed() {
		if cycle := detectCycle(steps); cycle != nil {
			logger.Debug("semantic: cycle detected in step DAG", "cycle", cycle)
			b.addError(module.Diagnostic{
				Code:     "E009",
				Message:  fmt.Sprintf("Circular dependency in plan step DAG: %s", formatCycle(cycle)),
				Severity: module.SeverityError,
			})
		}
	}

	if !fieldNonEmpty(entity, "decision_log") {
		b.addAdvice(module.Diagnostic{
			Code:     "I004",
			Message:  "No decision_log on plan",
			Severity: module.SeverityInfo,
		})
	}
}

func validateSkillSemantics(entity *module.Entity, b *resultBuilder) {
	if !fieldNonEmpty(entity, "lessons_learned") {
		b.addAdvice(module.Diagnostic{
			Code:     "I003",
			Message:  "No lessons_learned on skill",
			Severity: module.SeverityInfo,
		})
	}

	if run, ok := entity.Methods["run"]; ok {
		if run.Params == nil && run.Returns == "" {
			b.addAdvice(module.Diagnostic{
				Code:     "I006",
				Message:  "run() has no type hints",
				Severity: module.SeverityInfo,
			})
		}
	}
}

// decodeSteps converts the evaluated steps value into step records. Elements
// that are not objects are skipped, a missing id defaults to zero, and a
// scalar depends_on is tolerated the same way the type checker tolerates it
// on skills.
func decodeSteps(stepsVal cty.Value) []*stepRecord {
	var records []*stepRecord
	for it := stepsVal.ElementIterator(); it.Next(); {
		_, elem := it.Element()
		if elem.IsNull() || !module.MapType.Matches(elem.Type()) {
			continue
		}

		step := &module.Step{}
		rec := &stepRecord{step: step}

		if v, ok := stepAttr(elem, "id"); ok && v.Type() == cty.Number {
			_ = gocty.FromCtyValue(v, &step.ID)
		}
		if v, ok := stepAttr(elem, "action"); ok && v.Type() == cty.String {
			step.Action = v.AsString()
		}
		if v, ok := stepAttr(elem, "status"); ok {
			// A status of the wrong type is still a present status: it must
			// fail the legality check, not be repaired to "pending".
			step.Status = scalarText(v)
			rec.hasStatus = true
		}
		if v, ok := stepAttr(elem, "output"); ok && v.Type() == cty.String {
			step.Output = v.AsString()
		}
		if v, ok := stepAttr(elem, "depends_on"); ok {
			step.DependsOn, rec.badDeps = decodeDependsOn(v)
		}

		records = append(records, rec)
	}
	return records
}

// decodeDependsOn splits a depends_on value into resolvable numeric step IDs
// and entries that can never match an ID (wrong type, null, or a number that
// does not fit an int). The latter are reported as dangling references.
func decodeDependsOn(v cty.Value) (deps []int, bad []string) {
	deps = []int{}
	appendDep := func(elem cty.Value) {
		if !elem.IsNull() && elem.Type() == cty.Number {
			var id int
			if err := gocty.FromCtyValue(elem, &id); err == nil {
				deps = append(deps, id)
				return
			}
		}
		bad = append(bad, scalarText(elem))
	}

	if module.ListType.Matches(v.Type()) {
		for it := v.ElementIterator(); it.Next(); {
			_, elem := it.Element()
			appendDep(elem)
		}
	} else {
		appendDep(v)
	}
	return deps, bad
}

// scalarText renders a step attribute value for a diagnostic message.
func scalarText(v cty.Value) string {
	if v.IsNull() {
		return "null"
	}
	switch {
	case v.Type() == cty.String:
		return v.AsString()
	case v.Type() == cty.Number:
		return v.AsBigFloat().Text('g', -1)
	case v.Type() == cty.Bool:
		if v.True() {
			return "true"
		}
		return "false"
	}
	return v.Type().FriendlyName()
}

// stepAttr looks up one attribute of a step object, treating a null value
// the same as an absent one.
func stepAttr(obj cty.Value, name string) (cty.Value, bool) {
	ty := obj.Type()
	switch {
	case ty.IsObjectType():
		if !ty.HasAttribute(name) {
			return cty.NilVal, false
		}
		if v := obj.GetAttr(name); !v.IsNull() {
			return v, true
		}
	case ty.IsMapType():
		key := cty.StringVal(name)
		if obj.HasIndex(key).True() {
			if v := obj.Index(key); !v.IsNull() {
				return v, true
			}
		}
	}
	return cty.NilVal, false
}

// fieldNonEmpty reports whether the entity has the field with a usable,
// non-empty value.
func fieldNonEmpty(entity *module.Entity, name string) bool {
	v, ok := entity.Field(name)
	if !ok || v.IsNull() {
		return false
	}
	switch {
	case v.Type() == cty.String:
		return v.AsString() != ""
	case module.ListType.Matches(v.Type()) || module.MapType.Matches(v.Type()):
		return v.LengthInt() > 0
	}
	return true
}
