package compiler

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"

	"github.com/statokit/stato/internal/module"
)

// entity is the primary block of a module source, split into the pieces the
// later passes need: the doc string, field attributes, and method blocks.
type entity struct {
	block   *hclsyntax.Block
	name    string
	doc     string
	hasDoc  bool
	fields  map[string]*hclsyntax.Attribute
	methods map[string][]*hclsyntax.Block
}

// parseSource runs the syntax pass. On failure it records a single E001
// carrying the line of the first parse diagnostic and returns nil.
func parseSource(source string, b *resultBuilder) *hclsyntax.Body {
	file, diags := hclsyntax.ParseConfig([]byte(source), "module.hcl", hcl.InitialPos)
	if diags.HasErrors() {
		first := diags.Errs()[0].(*hcl.Diagnostic)
		line := 0
		if first.Subject != nil {
			line = first.Subject.Start.Line
		}
		b.addError(module.Diagnostic{
			Code:     "E001",
			Message:  fmt.Sprintf("Syntax error: %s", first.Summary),
			Severity: module.SeverityError,
			Line:     line,
		})
		return nil
	}
	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		// ParseConfig always yields a *hclsyntax.Body for native syntax.
		b.addError(module.Diagnostic{
			Code:     "E001",
			Message:  "Syntax error: unsupported body representation",
			Severity: module.SeverityError,
		})
		return nil
	}
	return body
}

// extractEntity runs the structure pass: it picks the first top-level block
// as the primary entity (E002 when there is none, W005 when there are
// several) and partitions its body into doc, fields, and methods.
func extractEntity(body *hclsyntax.Body, b *resultBuilder) *entity {
	if len(body.Blocks) == 0 {
		b.addError(module.Diagnostic{
			Code:     "E002",
			Message:  "No entity block found",
			Severity: module.SeverityError,
		})
		return nil
	}

	block := body.Blocks[0]
	name := block.Type
	if len(block.Labels) > 0 {
		name = block.Labels[0]
	}

	if len(body.Blocks) > 1 {
		b.addWarning(module.Diagnostic{
			Code:     "W005",
			Message:  fmt.Sprintf("Multiple entities found, using first: %s", name),
			Severity: module.SeverityWarning,
			Line:     block.TypeRange.Start.Line,
		})
	}

	ent := &entity{
		block:   block,
		name:    name,
		fields:  make(map[string]*hclsyntax.Attribute),
		methods: make(map[string][]*hclsyntax.Block),
	}

	for attrName, attr := range block.Body.Attributes {
		if attrName == "doc" {
			if doc, ok := literalString(attr.Expr); ok {
				ent.doc = doc
				ent.hasDoc = doc != ""
			}
			continue
		}
		ent.fields[attrName] = attr
	}

	for _, inner := range block.Body.Blocks {
		if inner.Type != "method" || len(inner.Labels) == 0 {
			continue
		}
		methodName := inner.Labels[0]
		ent.methods[methodName] = append(ent.methods[methodName], inner)
	}

	return ent
}

// memberSets returns the field and method name sets used by inference and
// schema checking. This pass cannot fail.
func (e *entity) memberSets() (fields, methods map[string]bool) {
	fields = make(map[string]bool, len(e.fields))
	for name := range e.fields {
		fields[name] = true
	}
	methods = make(map[string]bool, len(e.methods))
	for name := range e.methods {
		methods[name] = true
	}
	return fields, methods
}

// literalString evaluates an expression with no variables or functions in
// scope and returns its value when it is a string literal.
func literalString(expr hclsyntax.Expression) (string, bool) {
	val, diags := expr.Value(nil)
	if diags.HasErrors() || val.IsNull() || val.Type() != cty.String {
		return "", false
	}
	return val.AsString(), true
}
