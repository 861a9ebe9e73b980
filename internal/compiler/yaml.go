package compiler

import (
	"bytes"
	"errors"
	"io"

	"gopkg.in/yaml.v3"
)

// DecodeInstanceYAML reads an instance definition. Unknown fields are
// rejected.
func DecodeInstanceYAML(data []byte) (InstanceDef, error) {
	var d InstanceDef
	if err := decodeYAML(data, &d); err != nil {
		return InstanceDef{}, err
	}
	return d, nil
}

// DecodeLineYAML reads a production-line definition. Unknown fields are
// rejected.
func DecodeLineYAML(data []byte) (LineDef, error) {
	var d LineDef
	if err := decodeYAML(data, &d); err != nil {
		return LineDef{}, err
	}
	return d, nil
}

func decodeYAML(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return &CompileError{Field: "yaml", Message: "empty document"}
		}
		return &CompileError{Field: "yaml", Message: err.Error()}
	}
	return nil
}
