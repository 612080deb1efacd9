// Package compiler implements the multi-pass validation pipeline for stato
// modules: syntax, structure, member extraction, kind inference, schema
// checking, literal type checking with textual auto-correction, literal
// evaluation, and kind-specific semantic validation.
//
// The single entry point is Validate. It is pure: the only process-wide
// state it touches are the read-only schema tables in the module package, so
// concurrent calls need no synchronization.
package compiler

import (
	"context"
	"fmt"
	"strings"

	"github.com/statokit/stato/internal/ctxlog"
	"github.com/statokit/stato/internal/module"
)

// Validate runs the full validation pipeline on a module source. The
// expectedKind argument, when it names one of the five kinds, overrides the
// inferred kind for schema and semantic checking; any other value is
// ignored. The pipeline halts at the first pass that records a hard error,
// but each pass collects every error it can find before the halt.
func Validate(ctx context.Context, source string, expectedKind string) *module.ValidationResult {
	logger := ctxlog.FromContext(ctx)
	b := newResultBuilder()

	body := parseSource(source, b)
	if body == nil {
		return b.build()
	}

	ent := extractEntity(body, b)
	if ent == nil {
		return b.build()
	}
	b.entityName = ent.name
	logger.Debug("validate: entity extracted", "entity", ent.name)

	fields, methods := ent.memberSets()
	kind := resolveKind(ent, fields, methods, expectedKind, b)
	b.kind = kind
	logger.Debug("validate: kind resolved", "kind", kind)

	schema := module.Schemas[kind]
	checkSchema(schema, fields, methods, b)
	if b.failed() {
		return b.build()
	}

	corrected := typeCheck(source, ent, schema, b)
	if b.failed() {
		return b.build()
	}

	evalSource := source
	if corrected != "" {
		evalSource = corrected
		b.correctedSource = corrected
		logger.Debug("validate: auto-corrections applied", "count", len(b.autoCorrections))
	}

	b.evaluated = evaluate(ctx, evalSource, schema, b)
	if b.failed() {
		return b.build()
	}

	validateSemantics(ctx, kind, b.evaluated, b)
	return b.build()
}

// resolveKind runs kind inference, applies a caller-supplied override, and
// records the W006/I001/I002 findings that belong to this pass.
func resolveKind(ent *entity, fields, methods map[string]bool, expectedKind string, b *resultBuilder) module.Kind {
	inferred, confident := module.InferKind(ent.name, fields, methods)

	kind := inferred
	if expectedKind != "" {
		if override, ok := module.ParseKind(strings.ToLower(expectedKind)); ok {
			kind = override
		}
	}

	// An override steers the downstream checks but does not hide that the
	// source itself gave no confident signal.
	if !confident {
		b.addWarning(module.Diagnostic{
			Code:     "W006",
			Message:  fmt.Sprintf("Cannot confidently infer module kind, defaulting to '%s'", inferred),
			Severity: module.SeverityWarning,
		})
	}

	nameLower := strings.ToLower(ent.name)
	switch {
	case kind == module.KindMemory && !strings.HasSuffix(nameLower, "state"):
		b.addAdvice(module.Diagnostic{
			Code:     "I001",
			Message:  fmt.Sprintf("Memory module entity '%s' should end with 'State'", ent.name),
			Severity: module.SeverityInfo,
		})
	case kind == module.KindContext && !strings.HasSuffix(nameLower, "context"):
		b.addAdvice(module.Diagnostic{
			Code:     "I001",
			Message:  fmt.Sprintf("Context module entity '%s' should end with 'Context'", ent.name),
			Severity: module.SeverityInfo,
		})
	case kind == module.KindProtocol && !strings.HasSuffix(nameLower, "protocol"):
		b.addAdvice(module.Diagnostic{
			Code:     "I001",
			Message:  fmt.Sprintf("Protocol module entity '%s' should end with 'Protocol'", ent.name),
			Severity: module.SeverityInfo,
		})
	}

	if !ent.hasDoc {
		b.addAdvice(module.Diagnostic{
			Code:     "I002",
			Message:  "No doc string on entity",
			Severity: module.SeverityInfo,
		})
	}

	return kind
}

// resultBuilder accumulates diagnostics and intermediate values across
// passes so that partial information survives an early halt.
type resultBuilder struct {
	kind            module.Kind
	entityName      string
	hardErrors      []module.Diagnostic
	autoCorrections []module.Diagnostic
	advice          []module.Diagnostic
	correctedSource string
	evaluated       *module.Entity
}

func newResultBuilder() *resultBuilder {
	return &resultBuilder{}
}

func (b *resultBuilder) addError(d module.Diagnostic)   { b.hardErrors = append(b.hardErrors, d) }
func (b *resultBuilder) addWarning(d module.Diagnostic) { b.autoCorrections = append(b.autoCorrections, d) }
func (b *resultBuilder) addAdvice(d module.Diagnostic)  { b.advice = append(b.advice, d) }

func (b *resultBuilder) failed() bool { return len(b.hardErrors) > 0 }

func (b *resultBuilder) build() *module.ValidationResult {
	return &module.ValidationResult{
		Success:         len(b.hardErrors) == 0,
		Kind:            b.kind,
		EntityName:      b.entityName,
		HardErrors:      b.hardErrors,
		AutoCorrections: b.autoCorrections,
		Advice:          b.advice,
		CorrectedSource: b.correctedSource,
		Evaluated:       b.evaluated,
	}
}
