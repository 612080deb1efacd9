package compiler

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"

	"github.com/statokit/stato/internal/module"
)

// narrativeFields are rendered as their own markdown sections when long
// enough to read as prose.
var narrativeFields = []string{"lessons_learned", "decision_log", "reflection", "notes"}

// Decompile renders a module source as readable markdown: entity heading,
// doc string, field table, method list, narrative sections, and the verbatim
// source.
func Decompile(ctx context.Context, source string) string {
	file, diags := hclsyntax.ParseConfig([]byte(source), "module.hcl", hcl.InitialPos)
	if diags.HasErrors() {
		return fmt.Sprintf("# Invalid Module\n\nSource has syntax errors.\n\n## Source\n\n```hcl\n%s\n```\n", source)
	}
	body, ok := file.Body.(*hclsyntax.Body)
	if !ok || len(body.Blocks) == 0 {
		return fmt.Sprintf("# No Entity Found\n\n## Source\n\n```hcl\n%s\n```\n", source)
	}

	scratch := newResultBuilder()
	ent := extractEntity(body, scratch)
	evaluated := evaluate(ctx, source, &module.Schema{}, newResultBuilder())

	var lines []string
	lines = append(lines, "# "+ent.name, "")
	if ent.hasDoc {
		lines = append(lines, strings.TrimSpace(ent.doc), "")
	}

	if evaluated != nil && len(evaluated.Fields) > 0 {
		names := make([]string, 0, len(evaluated.Fields))
		for name := range evaluated.Fields {
			names = append(names, name)
		}
		sort.Strings(names)

		lines = append(lines, "## Fields", "", "| Field | Value |", "|---|---|")
		for _, name := range names {
			val := renderValue(evaluated.Fields[name])
			if len(val) > 60 {
				val = val[:57] + "..."
			}
			lines = append(lines, fmt.Sprintf("| %s | %s |", name, val))
		}
		lines = append(lines, "")
	}

	if evaluated != nil && len(evaluated.Methods) > 0 {
		names := make([]string, 0, len(evaluated.Methods))
		for name := range evaluated.Methods {
			names = append(names, name)
		}
		sort.Strings(names)

		lines = append(lines, "## Methods", "")
		for _, name := range names {
			m := evaluated.Methods[name]
			lines = append(lines, fmt.Sprintf("- `%s(%s)`", name, strings.Join(m.Params, ", ")))
		}
		lines = append(lines, "")
	}

	if evaluated != nil {
		for _, name := range narrativeFields {
			v, ok := evaluated.Field(name)
			if !ok || v.IsNull() || v.Type() != cty.String {
				continue
			}
			text := v.AsString()
			if len(text) <= 40 {
				continue
			}
			lines = append(lines, "## "+titleCase(name), "", strings.TrimSpace(text), "")
		}
	}

	lines = append(lines, "## Source", "", "```hcl", strings.TrimSpace(source), "```")
	return strings.Join(lines, "\n") + "\n"
}

var markdownSourceRe = regexp.MustCompile("(?s)## Source\\s*\n+```hcl\\s*\n(.*?)```")
var markdownHeadingRe = regexp.MustCompile(`(?m)^# (.+)$`)

// CompileFromMarkdown converts a markdown document back to module source.
// A "## Source" code block is used verbatim; otherwise a bare entity is
// reconstructed from the top-level heading. The reconstructed source is
// validated before being returned.
func CompileFromMarkdown(ctx context.Context, markdown string) (string, *module.ValidationResult) {
	var source string
	if m := markdownSourceRe.FindStringSubmatch(markdown); m != nil {
		source = strings.TrimSpace(m[1]) + "\n"
	} else {
		name := "GeneratedModule"
		if m := markdownHeadingRe.FindStringSubmatch(markdown); m != nil {
			name = strings.TrimSpace(m[1])
		}
		source = fmt.Sprintf("module %q {\n}\n", name)
	}

	result := Validate(ctx, source, "")
	return source, result
}

// titleCase turns a snake_case field name into a section heading, e.g.
// "lessons_learned" -> "Lessons Learned".
func titleCase(name string) string {
	words := strings.Split(name, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// renderValue gives a compact single-line rendering of an evaluated value
// for the field table.
func renderValue(v cty.Value) string {
	if v.IsNull() {
		return "null"
	}
	switch {
	case v.Type() == cty.String:
		return fmt.Sprintf("%q", v.AsString())
	case v.Type() == cty.Number:
		return v.AsBigFloat().Text('g', -1)
	case v.Type() == cty.Bool:
		if v.True() {
			return "true"
		}
		return "false"
	case v.Type().IsTupleType() || v.Type().IsListType() || v.Type().IsSetType():
		var parts []string
		for it := v.ElementIterator(); it.Next(); {
			_, elem := it.Element()
			parts = append(parts, renderValue(elem))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case v.Type().IsObjectType() || v.Type().IsMapType():
		var keys []string
		attrs := v.AsValueMap()
		for k := range attrs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var parts []string
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s = %s", k, renderValue(attrs[k])))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return v.Type().FriendlyName()
}
