package compiler

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"

	"github.com/statokit/stato/internal/ctxlog"
	"github.com/statokit/stato/internal/module"
)

// evaluate materializes the entity from the (possibly corrected) source:
// every field expression is resolved to a concrete value and every required
// method definition is checked for a structurally sound signature.
//
// A field expression that references a variable or calls a function cannot
// be resolved here, because the module may lean on expertise that is not
// installed in the validating environment. That is tolerated: the field is left out of
// the evaluated record and the method signature checks are skipped, exactly
// as a missing import is tolerated at this stage. Any other evaluation
// failure is a hard E005.
func evaluate(ctx context.Context, source string, schema *module.Schema, b *resultBuilder) *module.Entity {
	logger := ctxlog.FromContext(ctx)

	// The source already passed the syntax and structure passes; the
	// corrected variant only rewrites literal segments, so both parse.
	file, _ := hclsyntax.ParseConfig([]byte(source), "module.hcl", hcl.InitialPos)
	body, ok := file.Body.(*hclsyntax.Body)
	if !ok || len(body.Blocks) == 0 {
		return nil
	}

	scratch := newResultBuilder()
	ent := extractEntity(body, scratch)
	if ent == nil {
		return nil
	}

	evaluated := &module.Entity{
		Name:    ent.name,
		Doc:     ent.doc,
		Fields:  make(map[string]cty.Value, len(ent.fields)),
		Methods: make(map[string]*module.Method, len(ent.methods)),
	}

	unresolved := false
	for fieldName, attr := range ent.fields {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			if allUnresolvedReferences(diags) {
				logger.Debug("evaluate: field references unavailable expertise, skipping",
					"field", fieldName)
				unresolved = true
				continue
			}
			first := diags.Errs()[0].(*hcl.Diagnostic)
			b.addError(module.Diagnostic{
				Code:     "E005",
				Message:  fmt.Sprintf("Evaluation error: %s: %s", first.Summary, first.Detail),
				Severity: module.SeverityError,
				Line:     attr.SrcRange.Start.Line,
			})
			continue
		}
		evaluated.Fields[fieldName] = val
	}
	if b.failed() {
		return evaluated
	}

	for methodName, defs := range ent.methods {
		method, err := decodeMethod(methodName, defs)
		if err == nil {
			evaluated.Methods[methodName] = method
			continue
		}
		// Only required methods must be sound; stray methods with broken
		// signatures are simply absent from the evaluated record.
		if !unresolved && isRequiredMethod(schema, methodName) {
			b.addError(module.Diagnostic{
				Code:     "E006",
				Message:  fmt.Sprintf("Required method '%s()' is not callable: %v", methodName, err),
				Severity: module.SeverityError,
				Line:     defs[0].TypeRange.Start.Line,
			})
		}
	}

	return evaluated
}

func isRequiredMethod(schema *module.Schema, name string) bool {
	for _, required := range schema.RequiredMethods {
		if name == required {
			return true
		}
	}
	return false
}

// decodeMethod turns one method block into a structural signature. Multiple
// blocks with the same name, a params attribute that is not a list of
// strings, or a returns attribute that is not a string all make the method
// definition unsound.
func decodeMethod(name string, defs []*hclsyntax.Block) (*module.Method, error) {
	if len(defs) > 1 {
		return nil, fmt.Errorf("defined %d times", len(defs))
	}
	def := defs[0]
	method := &module.Method{Name: name}

	if attr, ok := def.Body.Attributes["params"]; ok {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() || !(val.Type().IsTupleType() || val.Type().IsListType()) {
			return nil, fmt.Errorf("params is not a list of strings")
		}
		params := []string{}
		for it := val.ElementIterator(); it.Next(); {
			_, elem := it.Element()
			if elem.IsNull() || elem.Type() != cty.String {
				return nil, fmt.Errorf("params is not a list of strings")
			}
			params = append(params, elem.AsString())
		}
		method.Params = params
	}

	if attr, ok := def.Body.Attributes["returns"]; ok {
		ret, ok := literalString(attr.Expr)
		if !ok {
			return nil, fmt.Errorf("returns is not a string")
		}
		method.Returns = ret
	}

	return method, nil
}

// allUnresolvedReferences reports whether every error in the set comes from
// an expression needing a variable or function that is not in scope.
func allUnresolvedReferences(diags hcl.Diagnostics) bool {
	sawError := false
	for _, d := range diags {
		if d.Severity != hcl.DiagError {
			continue
		}
		sawError = true
		if d.Summary != "Variables not allowed" && d.Summary != "Function calls not allowed" {
			return false
		}
	}
	return sawError
}
