// Package convert imports expertise from other agent-instruction formats
// (CLAUDE.md, .cursorrules, AGENTS.md, SKILL.md) into module sources.
package convert

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format identifies the source file layout.
type Format string

const (
	FormatClaude   Format = "claude"
	FormatCursor   Format = "cursor"
	FormatCodex    Format = "codex"
	FormatSkillkit Format = "skillkit"
	FormatGeneric  Format = "generic"
)

// Result holds the module sources produced from one external file.
type Result struct {
	Skills   map[string]string
	Context  string
	Warnings []string
	Format   Format
}

// DetectFormat decides the source format from filename first, content second.
func DetectFormat(path, content string) Format {
	switch strings.ToLower(filepath.Base(path)) {
	case "claude.md":
		return FormatClaude
	case ".cursorrules":
		return FormatCursor
	case "agents.md":
		return FormatCodex
	case "skill.md":
		return FormatSkillkit
	}

	lines := strings.Split(content, "\n")
	hasSteps := false
	hasRules := false
	for _, l := range lines {
		trimmed := strings.TrimSpace(l)
		if strings.HasPrefix(trimmed, "## Steps") {
			hasSteps = true
		}
		if strings.HasPrefix(trimmed, "## Rules") {
			hasRules = true
		}
	}
	if (hasSteps || hasRules) && len(lines) > 0 && strings.HasPrefix(strings.TrimSpace(lines[0]), "# ") {
		return FormatSkillkit
	}
	return FormatGeneric
}

// File reads and converts one external file. A nil format means detect.
func File(path string, format Format) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	content := string(data)
	if format == "" {
		format = DetectFormat(path, content)
	}

	switch format {
	case FormatClaude, FormatCodex:
		return convertInstructionDoc(content, format), nil
	case FormatCursor:
		return convertCursorRules(content), nil
	case FormatSkillkit:
		return convertSkillkit(content)
	default:
		return convertInstructionDoc(content, FormatGeneric), nil
	}
}

// section is one markdown heading with its body text.
type section struct {
	heading string
	body    string
}

// convertInstructionDoc turns a CLAUDE.md/AGENTS.md-style document into one
// skill per section plus a context module from the headingless preamble.
func convertInstructionDoc(content string, format Format) *Result {
	result := &Result{Skills: make(map[string]string), Format: format}

	var conventions []string
	for _, sec := range splitSections(content) {
		if sec.heading == "" {
			conventions = append(conventions, bulletLines(sec.body)...)
			continue
		}

		name := slugify(sec.heading)
		if name == "" {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("section %q produced no usable skill name, skipped", sec.heading))
			continue
		}
		result.Skills[name] = skillSource(name, sec.heading, bulletLines(sec.body))
	}

	if len(conventions) > 0 {
		result.Context = contextSource("imported", "Imported agent instructions", conventions)
	}
	return result
}

// convertCursorRules treats the whole file as one conventions list.
func convertCursorRules(content string) *Result {
	var conventions []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		conventions = append(conventions, strings.TrimLeft(line, "-* "))
	}
	return &Result{
		Skills:  make(map[string]string),
		Context: contextSource("imported", "Imported cursor rules", conventions),
		Format:  FormatCursor,
	}
}

// skillkitFrontMatter is the YAML header of a SKILL.md file.
type skillkitFrontMatter struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Version     string `yaml:"version"`
}

var frontMatterRe = regexp.MustCompile(`(?s)\A---\s*\n(.*?)\n---\s*\n`)

// convertSkillkit converts a SKILL.md document: YAML front matter supplies
// the identity, the markdown body supplies the lesson text.
func convertSkillkit(content string) (*Result, error) {
	result := &Result{Skills: make(map[string]string), Format: FormatSkillkit}

	var fm skillkitFrontMatter
	body := content
	if m := frontMatterRe.FindStringSubmatch(content); m != nil {
		if err := yaml.Unmarshal([]byte(m[1]), &fm); err != nil {
			return nil, fmt.Errorf("parsing SKILL.md front matter: %w", err)
		}
		body = content[len(m[0]):]
	}

	name := slugify(fm.Name)
	if name == "" {
		if m := regexp.MustCompile(`(?m)^# (.+)$`).FindStringSubmatch(body); m != nil {
			name = slugify(m[1])
		}
	}
	if name == "" {
		name = "imported_skill"
	}

	description := fm.Description
	if description == "" {
		description = "Imported from SKILL.md"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "skill %q {\n", exportName(name))
	fmt.Fprintf(&sb, "  doc         = %q\n", description)
	fmt.Fprintf(&sb, "  name        = %q\n", name)
	fmt.Fprintf(&sb, "  description = %q\n", description)
	if fm.Version != "" {
		fmt.Fprintf(&sb, "  version     = %q\n", fm.Version)
	}
	if steps := bulletLines(sectionBody(body, "Steps")); len(steps) > 0 {
		fmt.Fprintf(&sb, "  lessons_learned = %q\n", strings.Join(steps, " "))
	}
	sb.WriteString("\n  method \"run\" {\n    params  = [\"input\"]\n    returns = \"string\"\n  }\n}\n")

	result.Skills[name] = sb.String()
	return result, nil
}

// splitSections breaks markdown into heading-delimited sections; text before
// the first heading lands in a section with an empty heading.
func splitSections(content string) []section {
	var sections []section
	current := section{}
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "## ") || strings.HasPrefix(trimmed, "# ") {
			if current.heading != "" || strings.TrimSpace(current.body) != "" {
				sections = append(sections, current)
			}
			current = section{heading: strings.TrimLeft(trimmed, "# ")}
			continue
		}
		current.body += line + "\n"
	}
	if current.heading != "" || strings.TrimSpace(current.body) != "" {
		sections = append(sections, current)
	}
	return sections
}

// sectionBody returns the body of the first section whose heading starts
// with the given title.
func sectionBody(content, title string) string {
	for _, sec := range splitSections(content) {
		if strings.HasPrefix(sec.heading, title) {
			return sec.body
		}
	}
	return ""
}

// bulletLines extracts list items and bare non-empty lines from a body.
func bulletLines(body string) []string {
	var lines []string
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "```") {
			continue
		}
		lines = append(lines, strings.TrimLeft(line, "-* "))
	}
	return lines
}

var nonSlugRe = regexp.MustCompile(`[^a-z0-9]+`)

// slugify turns a heading into a field-safe identifier.
func slugify(heading string) string {
	slug := nonSlugRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(heading)), "_")
	return strings.Trim(slug, "_")
}

// exportName renders a slug as an entity name: "clean_data" -> "CleanData".
func exportName(slug string) string {
	var sb strings.Builder
	for _, word := range strings.Split(slug, "_") {
		if word == "" {
			continue
		}
		sb.WriteString(strings.ToUpper(word[:1]) + word[1:])
	}
	return sb.String()
}

// skillSource renders a minimal valid skill module.
func skillSource(name, heading string, lessons []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "skill %q {\n", exportName(name))
	fmt.Fprintf(&sb, "  doc  = %q\n", strings.TrimSpace(heading))
	fmt.Fprintf(&sb, "  name = %q\n", name)
	if len(lessons) > 0 {
		fmt.Fprintf(&sb, "  lessons_learned = %q\n", strings.Join(lessons, " "))
	}
	sb.WriteString("\n  method \"run\" {\n    params  = [\"input\"]\n    returns = \"string\"\n  }\n}\n")
	return sb.String()
}

// contextSource renders a context module from imported conventions.
func contextSource(project, description string, conventions []string) string {
	var sb strings.Builder
	sb.WriteString("context \"ImportedContext\" {\n")
	fmt.Fprintf(&sb, "  doc         = %q\n", description)
	fmt.Fprintf(&sb, "  project     = %q\n", project)
	fmt.Fprintf(&sb, "  description = %q\n", description)
	sb.WriteString("  conventions = [\n")
	for _, c := range conventions {
		fmt.Fprintf(&sb, "    %q,\n", c)
	}
	sb.WriteString("  ]\n}\n")
	return sb.String()
}
