// Package differ compares modules field by field and snapshot archives
// member by member.
package differ

import (
	"context"
	"sort"

	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"

	"github.com/statokit/stato/internal/archive"
	"github.com/statokit/stato/internal/compiler"
)

// Missing is the placeholder value for a field present on only one side.
const Missing = "<missing>"

// FieldDiff is one field's values on both sides.
type FieldDiff struct {
	Field   string
	ValueA  string
	ValueB  string
	Changed bool
}

// Modules compares two module sources field by field over their evaluated
// values. Sources that fail to parse or evaluate contribute no fields, the
// same as an empty module.
func Modules(ctx context.Context, sourceA, sourceB string) []FieldDiff {
	fieldsA := evaluatedFields(ctx, sourceA)
	fieldsB := evaluatedFields(ctx, sourceB)

	names := make(map[string]bool, len(fieldsA)+len(fieldsB))
	for name := range fieldsA {
		names[name] = true
	}
	for name := range fieldsB {
		names[name] = true
	}
	ordered := make([]string, 0, len(names))
	for name := range names {
		ordered = append(ordered, name)
	}
	sort.Strings(ordered)

	diffs := make([]FieldDiff, 0, len(ordered))
	for _, name := range ordered {
		valA, okA := fieldsA[name]
		valB, okB := fieldsB[name]
		a, b := Missing, Missing
		if okA {
			a = renderField(valA)
		}
		if okB {
			b = renderField(valB)
		}
		diffs = append(diffs, FieldDiff{Field: name, ValueA: a, ValueB: b, Changed: a != b})
	}
	return diffs
}

// SnapshotDiff summarizes how two archives differ at the module level.
type SnapshotDiff struct {
	Added   []string
	Removed []string
	Changed []string
}

// Snapshots compares two archives by their included module sources.
func Snapshots(archiveA, archiveB string) (*SnapshotDiff, error) {
	_, modsA, err := archive.ReadModules(archiveA)
	if err != nil {
		return nil, err
	}
	_, modsB, err := archive.ReadModules(archiveB)
	if err != nil {
		return nil, err
	}

	diff := &SnapshotDiff{}
	for path := range modsB {
		if _, ok := modsA[path]; !ok {
			diff.Added = append(diff.Added, path)
		}
	}
	for path, sourceA := range modsA {
		sourceB, ok := modsB[path]
		switch {
		case !ok:
			diff.Removed = append(diff.Removed, path)
		case sourceA != sourceB:
			diff.Changed = append(diff.Changed, path)
		}
	}
	sort.Strings(diff.Added)
	sort.Strings(diff.Removed)
	sort.Strings(diff.Changed)
	return diff, nil
}

// evaluatedFields extracts a module's concrete field values without caring
// whether the module fully validates: syntax and structure must hold, the
// rest is best-effort.
func evaluatedFields(ctx context.Context, source string) map[string]cty.Value {
	result := compiler.Validate(ctx, source, "")
	if result.Evaluated == nil {
		return nil
	}
	return result.Evaluated.Fields
}

// renderField gives a stable, comparable rendering of a field value.
func renderField(v cty.Value) string {
	data, err := ctyjson.Marshal(v, v.Type())
	if err != nil {
		return v.GoString()
	}
	return string(data)
}
