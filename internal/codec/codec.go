// Package codec encodes exported schedules, bound snapshots and solver
// states for storage and transport.
//
// JSON output is indented and stable for humans and golden files. CBOR
// output uses core deterministic encoding, so equal values always produce
// equal bytes and can be compared or hashed directly.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// Encoding names a wire format.
type Encoding string

const (
	JSON Encoding = "json"
	CBOR Encoding = "cbor"
)

// Encodings lists the supported formats.
var Encodings = []Encoding{JSON, CBOR}

// ParseEncoding parses an encoding name.
func ParseEncoding(s string) (Encoding, error) {
	switch Encoding(strings.ToLower(strings.TrimSpace(s))) {
	case JSON:
		return JSON, nil
	case CBOR:
		return CBOR, nil
	}
	return "", fmt.Errorf("unknown encoding %q (want json or cbor)", s)
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("codec: cbor encoder: %v", err))
	}
	decMode, err = cbor.DecOptions{
		DupMapKey:       cbor.DupMapKeyEnforcedAPF,
		MaxNestedLevels: 64,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("codec: cbor decoder: %v", err))
	}
}

// Marshal encodes v.
func Marshal(enc Encoding, v any) ([]byte, error) {
	switch enc {
	case JSON:
		var buf bytes.Buffer
		e := json.NewEncoder(&buf)
		e.SetEscapeHTML(false)
		e.SetIndent("", "  ")
		if err := e.Encode(v); err != nil {
			return nil, fmt.Errorf("encode json: %w", err)
		}
		return buf.Bytes(), nil
	case CBOR:
		data, err := encMode.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode cbor: %w", err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("unknown encoding %q", enc)
}

// Unmarshal decodes data into v. JSON input rejects unknown fields.
func Unmarshal(enc Encoding, data []byte, v any) error {
	switch enc {
	case JSON:
		d := json.NewDecoder(bytes.NewReader(data))
		d.DisallowUnknownFields()
		if err := d.Decode(v); err != nil {
			return fmt.Errorf("decode json: %w", err)
		}
		return nil
	case CBOR:
		if err := decMode.Unmarshal(data, v); err != nil {
			return fmt.Errorf("decode cbor: %w", err)
		}
		return nil
	}
	return fmt.Errorf("unknown encoding %q", enc)
}

// Sniff guesses the encoding of data: JSON documents start with '{' or
// '[' after optional whitespace, anything else is taken as CBOR.
func Sniff(data []byte) Encoding {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return JSON
	}
	return CBOR
}
