package compiler

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/shopsched/internal/ir"
)

// Format is a definition file format.
type Format string

const (
	FormatCUE  Format = "cue"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		return FormatCUE, nil
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", &CompileError{
		Field:   "file",
		Message: fmt.Sprintf("unsupported definition format %q (want .cue, .json, .yaml or .yml)", filepath.Ext(path)),
	}
}

// LoadInstance reads and compiles an instance definition file.
func LoadInstance(path string) (*ir.Instance, error) {
	data, format, err := read(path)
	if err != nil {
		return nil, err
	}
	return ParseInstance(data, format, path)
}

// LoadLine reads and compiles a production-line definition file.
func LoadLine(path string) (*ir.ProductionLine, error) {
	data, format, err := read(path)
	if err != nil {
		return nil, err
	}
	return ParseLine(data, format, path)
}

// ParseInstance compiles an instance definition held in memory. name is
// used for error positions.
func ParseInstance(data []byte, format Format, name string) (*ir.Instance, error) {
	if format == FormatYAML {
		d, err := DecodeInstanceYAML(data)
		if err != nil {
			return nil, err
		}
		return CompileInstanceDef(d)
	}
	return CompileInstance(compileSource(data, name))
}

// ParseLine compiles a production-line definition held in memory.
func ParseLine(data []byte, format Format, name string) (*ir.ProductionLine, error) {
	if format == FormatYAML {
		d, err := DecodeLineYAML(data)
		if err != nil {
			return nil, err
		}
		return CompileLineDef(d)
	}
	return CompileLine(compileSource(data, name))
}

// compileSource builds CUE (or JSON, which CUE accepts as is) in a fresh
// context.
func compileSource(data []byte, name string) cue.Value {
	ctx := cuecontext.New()
	return ctx.CompileBytes(data, cue.Filename(name))
}

func read(path string) ([]byte, Format, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read definition: %w", err)
	}
	return data, format, nil
}
