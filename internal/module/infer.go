package module

import "strings"

// InferKind classifies an entity into a module kind from its name, field
// set, and method set. The second return value is false when the fallback
// was taken, which downstream reports as a low-confidence warning.
//
// Decision order, first match wins:
//  1. name suffix "context"   -> context
//  2. name suffix "state"     -> memory
//  3. name suffix "protocol"  -> protocol
//  4. fields steps+objective  -> plan
//  5. field handoff_schema    -> protocol
//  6. field phase, no run()   -> memory
//  7. fields project+description, no run() -> context
//  8. method run()            -> skill
func InferKind(entityName string, fields, methods map[string]bool) (Kind, bool) {
	nameLower := strings.ToLower(entityName)

	switch {
	case strings.HasSuffix(nameLower, "context"):
		return KindContext, true
	case strings.HasSuffix(nameLower, "state"):
		return KindMemory, true
	case strings.HasSuffix(nameLower, "protocol"):
		return KindProtocol, true
	}

	if fields["steps"] && fields["objective"] {
		return KindPlan, true
	}
	if fields["handoff_schema"] {
		return KindProtocol, true
	}
	if fields["phase"] && !methods["run"] {
		return KindMemory, true
	}
	if fields["project"] && fields["description"] && !methods["run"] {
		return KindContext, true
	}
	if methods["run"] {
		return KindSkill, true
	}

	return KindSkill, false
}
