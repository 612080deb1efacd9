package compiler

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/agext/levenshtein"
	"github.com/zclconf/go-cty/cty"

	"github.com/statokit/stato/internal/module"
)

// checkSchema verifies every required field and method of the resolved
// kind's schema, collecting one E003/E004 per missing member before the
// pipeline halts.
func checkSchema(schema *module.Schema, fields, methods map[string]bool, b *resultBuilder) {
	for _, required := range schema.RequiredFields {
		if fields[required] {
			continue
		}
		msg := fmt.Sprintf("Missing required field: '%s'", required)
		if hint := nearestName(required, fields); hint != "" {
			msg += fmt.Sprintf(" (did you mean '%s'?)", hint)
		}
		b.addError(module.Diagnostic{
			Code:     "E003",
			Message:  msg,
			Severity: module.SeverityError,
		})
	}

	for _, required := range schema.RequiredMethods {
		if methods[required] {
			continue
		}
		b.addError(module.Diagnostic{
			Code:     "E004",
			Message:  fmt.Sprintf("Missing required method: '%s()'", required),
			Severity: module.SeverityError,
		})
	}
}

// nearestName returns the present member name closest to want, when the edit
// distance is small enough to suggest a typo.
func nearestName(want string, present map[string]bool) string {
	names := make([]string, 0, len(present))
	for name := range present {
		names = append(names, name)
	}
	sort.Strings(names)

	best := ""
	bestDist := 3 // only distances 1 and 2 are worth suggesting
	for _, name := range names {
		if d := levenshtein.Distance(want, name, nil); d < bestDist {
			best, bestDist = name, d
		}
	}
	return best
}

var shortVersionRe = regexp.MustCompile(`^\d+\.\d+$`)

// correction is one pending textual repair, anchored at the byte offset of
// the expression it rewrites.
type correction struct {
	old   string
	new   string
	start int
	end   int
}

// typeCheck statically evaluates literal field values against the schema's
// field types. A fixed set of mistakes is repaired in the source text
// (W001/W002/W003); every other mismatch is an E007. It returns the
// corrected source, or "" when no correction was applied.
func typeCheck(source string, ent *entity, schema *module.Schema, b *resultBuilder) string {
	var corrections []correction

	for fieldName, attr := range ent.fields {
		expected, ok := schema.FieldTypes[fieldName]
		if !ok {
			continue
		}

		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			// Not statically evaluable; leave it to the evaluation pass.
			continue
		}

		rng := attr.Expr.Range()
		line := attr.SrcRange.Start.Line
		segment := source[rng.Start.Byte:rng.End.Byte]

		if fieldName == "depends_on" && val.Type() == cty.String {
			corrections = append(corrections, correction{
				old:   segment,
				new:   "[" + segment + "]",
				start: rng.Start.Byte,
				end:   rng.End.Byte,
			})
			b.addWarning(module.Diagnostic{
				Code:     "W001",
				Message:  "depends_on is string, auto-wrapping in list",
				Severity: module.SeverityWarning,
				Line:     line,
			})
			continue
		}

		if fieldName == "depends_on" && val.Type() == cty.Number {
			corrections = append(corrections, correction{
				old:   segment,
				new:   "[" + segment + "]",
				start: rng.Start.Byte,
				end:   rng.End.Byte,
			})
			b.addWarning(module.Diagnostic{
				Code:     "W002",
				Message:  "depends_on is number, auto-wrapping in list",
				Severity: module.SeverityWarning,
				Line:     line,
			})
			continue
		}

		if fieldName == "version" && val.Type() == cty.String {
			if v := val.AsString(); shortVersionRe.MatchString(v) {
				corrections = append(corrections, correction{
					old:   segment,
					new:   strings.Replace(segment, v, v+".0", 1),
					start: rng.Start.Byte,
					end:   rng.End.Byte,
				})
				b.addWarning(module.Diagnostic{
					Code:     "W003",
					Message:  fmt.Sprintf("Version missing patch number, auto-fixing: '%s' -> '%s.0'", v, v),
					Severity: module.SeverityWarning,
					Line:     line,
				})
			}
			continue
		}

		if !expected.Matches(val.Type()) {
			b.addError(module.Diagnostic{
				Code:     "E007",
				Message:  fmt.Sprintf("Field '%s' expects %s, got %s", fieldName, expected, module.TypeName(val.Type())),
				Severity: module.SeverityError,
				Line:     line,
			})
		}
	}

	if len(corrections) == 0 || b.failed() {
		return ""
	}
	return applyCorrections(source, corrections)
}

// applyCorrections rewrites the source with every pending correction,
// working from the highest byte offset down so that earlier offsets stay
// valid while later segments are replaced.
func applyCorrections(source string, corrections []correction) string {
	sort.Slice(corrections, func(i, j int) bool {
		return corrections[i].start > corrections[j].start
	})
	corrected := source
	for _, c := range corrections {
		corrected = corrected[:c.start] + c.new + corrected[c.end:]
	}
	return corrected
}
