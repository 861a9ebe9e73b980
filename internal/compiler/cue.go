package compiler

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"

	"github.com/roach88/shopsched/internal/ir"
)

//go:embed schema.cue
var schemaSource []byte

const schemaFilename = "schema.cue"

// Schema definition names.
const (
	InstanceSchema = "#Instance"
	LineSchema     = "#Line"
)

// CompileInstance parses a CUE value into an ir.Instance.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The value is unified with the #Instance schema, so unknown fields and
// out-of-range numbers fail with their source position:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`name: "shop", machines: [0], jobs: [...]`)
//	inst, err := CompileInstance(v)
func CompileInstance(v cue.Value) (*ir.Instance, error) {
	var d InstanceDef
	if err := decode(v, InstanceSchema, &d); err != nil {
		return nil, err
	}
	return CompileInstanceDef(d)
}

// CompileLine parses a CUE value into an ir.ProductionLine.
func CompileLine(v cue.Value) (*ir.ProductionLine, error) {
	var d LineDef
	if err := decode(v, LineSchema, &d); err != nil {
		return nil, err
	}
	return CompileLineDef(d)
}

// CompileInstanceDef validates d and converts it.
func CompileInstanceDef(d InstanceDef) (*ir.Instance, error) {
	if errs := Validate(&d); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}
	return d.Instance(), nil
}

// CompileLineDef validates d and converts it.
func CompileLineDef(d LineDef) (*ir.ProductionLine, error) {
	if errs := Validate(&d); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}
	line, err := d.Line()
	if err != nil {
		return nil, err
	}
	if err := line.Validate(); err != nil {
		return nil, fmt.Errorf("production line %q: %w", line.Name, err)
	}
	return line, nil
}

// decode unifies v with the named schema definition and decodes the
// concrete result into out.
func decode(v cue.Value, def string, out any) error {
	if err := v.Err(); err != nil {
		return formatCUEError(err)
	}

	schema := v.Context().CompileBytes(schemaSource, cue.Filename(schemaFilename))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	unified := schema.LookupPath(cue.ParsePath(def)).Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(err)
	}
	if err := unified.Decode(out); err != nil {
		return formatCUEError(err)
	}
	return nil
}
