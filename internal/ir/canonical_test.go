package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical_SortsKeysAndSkipsHTMLEscaping(t *testing.T) {
	got, err := MarshalCanonical(map[string]any{
		"b": int64(2),
		"a": []any{"<x>", true},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"a":["<x>",true],"b":2}`, string(got))
}

func TestMarshalCanonical_RejectsFloatsAndNull(t *testing.T) {
	_, err := MarshalCanonical(map[string]any{"f": 1.5})
	assert.Error(t, err)

	_, err = MarshalCanonical(map[string]any{"n": nil})
	assert.Error(t, err)
}

func TestMarshalCanonical_LineSeparators(t *testing.T) {
	got, err := MarshalCanonical("a\u2028b")
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\"", string(got))

	// A literal backslash followed by "u2028" is text, not an escape.
	got, err = MarshalCanonical(`a\u2028`)
	require.NoError(t, err)
	assert.Equal(t, `"a\\u2028"`, string(got))
}

func TestInstanceHash_StableAndSensitive(t *testing.T) {
	inst := &Instance{
		Name:     "h",
		Machines: []MachineID{0},
		Jobs: []Job{
			{ID: 1, Operations: []Operation{{Machine: 0, ProcessingTime: 3}}},
		},
	}
	h1, err := InstanceHash(inst)
	require.NoError(t, err)
	h2, err := InstanceHash(inst)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)

	inst.Jobs[0].Operations[0].ProcessingTime = 4
	h3, err := InstanceHash(inst)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)
}
