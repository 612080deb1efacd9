// Package resume produces a structured recap of a project's module state,
// meant to be pasted into a fresh agent session to restore context.
package resume

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/statokit/stato/internal/compiler"
	"github.com/statokit/stato/internal/module"
	"github.com/statokit/stato/internal/state"
)

// Generate reads the well-known modules under statoDir and renders the recap.
// Brief mode compresses everything into one paragraph.
func Generate(ctx context.Context, statoDir string, brief bool) (string, error) {
	contextEnt := loadEntity(ctx, filepath.Join(statoDir, "context"+state.Ext))
	planEnt := loadEntity(ctx, filepath.Join(statoDir, "plan"+state.Ext))
	memoryEnt := loadEntity(ctx, filepath.Join(statoDir, "memory"+state.Ext))

	if brief {
		return generateBrief(contextEnt, planEnt, memoryEnt), nil
	}

	var sections []string

	if contextEnt != nil {
		sections = append(sections,
			"Project: "+stringField(contextEnt, "project"),
			"Description: "+stringField(contextEnt, "description"))
		if env := mapFieldItems(contextEnt, "environment"); len(env) > 0 {
			sections = append(sections, "Environment: "+strings.Join(env, ", "))
		}
	}

	if planEnt != nil {
		done, total := planProgress(planEnt.Steps)
		sections = append(sections,
			"\nPlan: "+stringField(planEnt, "name"),
			"Objective: "+stringField(planEnt, "objective"),
			fmt.Sprintf("Progress: %d/%d steps complete", done, total))

		var completed []string
		for _, s := range planEnt.Steps {
			if s.Status != "complete" {
				continue
			}
			line := fmt.Sprintf("  Step %d: %s", s.ID, s.Action)
			if s.Output != "" {
				line += " -> " + s.Output
			}
			completed = append(completed, line)
		}
		if len(completed) > 0 {
			sections = append(sections, "Completed:")
			sections = append(sections, completed...)
		}

		if current := nextStep(planEnt.Steps); current != nil {
			sections = append(sections,
				fmt.Sprintf("Next: Step %d - %s", current.ID, current.Action))
		}
		if log := stringField(planEnt, "decision_log"); strings.TrimSpace(log) != "" {
			sections = append(sections, "\nKey decisions:\n"+strings.TrimSpace(log))
		}
	}

	if skills := skillEntries(ctx, filepath.Join(statoDir, "skills")); len(skills) > 0 {
		sections = append(sections, "\nAvailable expertise:")
		sections = append(sections, skills...)
	}

	if memoryEnt != nil {
		sections = append(sections, "\nCurrent phase: "+stringField(memoryEnt, "phase"))
		if issues := mapFieldItems(memoryEnt, "known_issues"); len(issues) > 0 {
			sections = append(sections, "Known issues:")
			for _, issue := range issues {
				sections = append(sections, "  "+issue)
			}
		}
		if reflection := stringField(memoryEnt, "reflection"); strings.TrimSpace(reflection) != "" {
			sections = append(sections, "\nReflection:\n"+strings.TrimSpace(reflection))
		}
	}

	return strings.Join(sections, "\n"), nil
}

// generateBrief compresses the recap into one paragraph.
func generateBrief(contextEnt, planEnt, memoryEnt *module.Entity) string {
	var parts []string

	if contextEnt != nil {
		parts = append(parts, fmt.Sprintf("%s: %s.",
			stringField(contextEnt, "project"), stringField(contextEnt, "description")))
	}
	if planEnt != nil {
		done, total := planProgress(planEnt.Steps)
		parts = append(parts, fmt.Sprintf("Progress: %d/%d steps complete.", done, total))
		if current := nextStep(planEnt.Steps); current != nil {
			parts = append(parts, fmt.Sprintf("Next: %s.", current.Action))
		}
	}
	if memoryEnt != nil {
		if reflection := strings.TrimSpace(stringField(memoryEnt, "reflection")); reflection != "" {
			first, _, _ := strings.Cut(reflection, ".")
			parts = append(parts, first+".")
		}
	}

	return strings.Join(parts, " ")
}

// skillEntries summarizes each skill module under skillsDir: name, version,
// a few default params, and a lesson count.
func skillEntries(ctx context.Context, skillsDir string) []string {
	paths, err := filepath.Glob(filepath.Join(skillsDir, "*"+state.Ext))
	if err != nil {
		return nil
	}
	sort.Strings(paths)

	var entries []string
	for _, p := range paths {
		ent := loadEntity(ctx, p)
		if ent == nil {
			continue
		}

		version := stringField(ent, "version")
		if version == "" {
			version = "?"
		}

		paramsStr := ""
		if params := mapFieldItems(ent, "default_params"); len(params) > 0 {
			if len(params) > 3 {
				params = params[:3]
			}
			paramsStr = " | " + strings.Join(params, ", ")
		}

		lessonsStr := ""
		if lessons := stringField(ent, "lessons_learned"); lessons != "" {
			count := 0
			for _, line := range strings.Split(strings.TrimSpace(lessons), "\n") {
				if strings.HasPrefix(strings.TrimSpace(line), "-") {
					count++
				}
			}
			lessonsStr = fmt.Sprintf(" | %d lessons", count)
		}

		entries = append(entries, fmt.Sprintf("  %s v%s%s%s",
			stringField(ent, "name"), version, paramsStr, lessonsStr))
	}
	return entries
}

// loadEntity validates a module file and returns its evaluated entity, or
// nil when the file is missing or does not validate.
func loadEntity(ctx context.Context, path string) *module.Entity {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	result := compiler.Validate(ctx, string(data), "")
	if !result.Success {
		return nil
	}
	return result.Evaluated
}

// nextStep returns the first running or pending step, matching execution
// order as authored.
func nextStep(steps []*module.Step) *module.Step {
	for _, s := range steps {
		if s.Status == "running" || s.Status == "pending" {
			return s
		}
	}
	return nil
}

func planProgress(steps []*module.Step) (done, total int) {
	for _, s := range steps {
		if s.Status == "complete" {
			done++
		}
	}
	return done, len(steps)
}

// stringField extracts a field as text; non-string values are converted,
// absent or unconvertible values come back empty.
func stringField(ent *module.Entity, name string) string {
	v, ok := ent.Field(name)
	if !ok || v.IsNull() {
		return ""
	}
	return valueText(v)
}

// mapFieldItems renders a map-shaped field as sorted "key: value" items.
func mapFieldItems(ent *module.Entity, name string) []string {
	v, ok := ent.Field(name)
	if !ok || v.IsNull() {
		return nil
	}
	ty := v.Type()
	if !ty.IsObjectType() && !ty.IsMapType() {
		return nil
	}
	if v.LengthInt() == 0 {
		return nil
	}

	pairs := v.AsValueMap()
	keys := make([]string, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	items := make([]string, 0, len(keys))
	for _, k := range keys {
		items = append(items, k+": "+valueText(pairs[k]))
	}
	return items
}

func valueText(v cty.Value) string {
	converted, err := convert.Convert(v, cty.String)
	if err != nil || converted.IsNull() {
		return v.GoString()
	}
	return converted.AsString()
}
