// Package bundle splits a single file holding several top-level entity
// blocks into individual module sources. Bundles are how whole projects
// travel through chat: one paste, many modules.
package bundle

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"

	"github.com/statokit/stato/internal/module"
)

// ParseResult is the outcome of slicing a bundle into module sources. Skills
// are keyed by entity name; at most one plan, memory, and context are kept
// (first wins, matching single-entity module layout).
type ParseResult struct {
	Skills  map[string]string
	Plan    string
	Memory  string
	Context string
	Errors  []string
}

// Parse slices a bundle source into per-module sources by block ranges.
// The blocks are classified with the same kind inference the validator uses,
// but nothing is validated here; callers feed each slice through validation
// on import.
func Parse(source string) *ParseResult {
	result := &ParseResult{Skills: make(map[string]string)}

	file, diags := hclsyntax.ParseConfig([]byte(source), "bundle.hcl", hcl.InitialPos)
	if diags.HasErrors() {
		result.Errors = append(result.Errors,
			fmt.Sprintf("Bundle syntax error: %s", diags.Errs()[0].(*hcl.Diagnostic).Summary))
		return result
	}
	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return result
	}

	for _, block := range body.Blocks {
		name := block.Type
		if len(block.Labels) > 0 {
			name = block.Labels[0]
		}

		blockSource := sliceBlock(source, block)
		kind := classifyBlock(name, block)

		switch kind {
		case module.KindSkill:
			result.Skills[name] = blockSource
		case module.KindPlan:
			if result.Plan == "" {
				result.Plan = blockSource
			}
		case module.KindMemory:
			if result.Memory == "" {
				result.Memory = blockSource
			}
		case module.KindContext:
			if result.Context == "" {
				result.Context = blockSource
			}
		default:
			// Protocols ride along with skills in a bundle.
			result.Skills[name] = blockSource
		}
	}

	return result
}

// classifyBlock runs kind inference over one block's members.
func classifyBlock(name string, block *hclsyntax.Block) module.Kind {
	fields := make(map[string]bool)
	for attrName := range block.Body.Attributes {
		if attrName != "doc" {
			fields[attrName] = true
		}
	}
	methods := make(map[string]bool)
	for _, inner := range block.Body.Blocks {
		if inner.Type == "method" && len(inner.Labels) > 0 {
			methods[inner.Labels[0]] = true
		}
	}

	kind, _ := module.InferKind(name, fields, methods)
	return kind
}

// sliceBlock cuts one block's text out of the bundle source.
func sliceBlock(source string, block *hclsyntax.Block) string {
	rng := block.Range()
	return source[rng.Start.Byte:rng.End.Byte] + "\n"
}
