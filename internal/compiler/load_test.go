package compiler

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/roach88/shopsched/internal/ir"
	"github.com/roach88/shopsched/internal/testutil"
)

const lineYAML = `
name: line
modules:
  - name: print
    instance:
      name: print
      machines: [0]
      jobs:
        - id: 1
          operations: [{machine: 0, processing: 3}]
        - id: 2
          operations: [{machine: 0, processing: 2}]
      lags:
        - from: {job: 1, op: 0}
          to: {job: 2, op: 0}
          min: 3
          max: 6
  - name: finish
    instance:
      name: finish
      machines: [0]
      jobs:
        - id: 1
          operations: [{machine: 0, processing: 2}]
        - id: 2
          operations: [{machine: 0, processing: 2}]
transfers:
  - from: 0
    to: 1
    setup: {"1": 1, "2": 1}
    due: {"1": 4, "2": 4}
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadInstance_AllFormats(t *testing.T) {
	want := testutil.Duplex()

	data, err := json.Marshal(FromInstance(want))
	require.NoError(t, err)
	fromJSON, err := LoadInstance(writeFile(t, "duplex.json", string(data)))
	require.NoError(t, err)
	assert.Equal(t, want, fromJSON)

	data, err = yaml.Marshal(FromInstance(want))
	require.NoError(t, err)
	fromYAML, err := LoadInstance(writeFile(t, "duplex.yaml", string(data)))
	require.NoError(t, err)
	assert.Equal(t, want, fromYAML)

	fromCUE, err := LoadInstance(writeFile(t, "two.cue", twoJobsCUE))
	require.NoError(t, err)
	assert.Equal(t, testutil.TwoJobs(), fromCUE)
}

func TestLoadLine_YAMLAndCUEAgree(t *testing.T) {
	fromYAML, err := LoadLine(writeFile(t, "line.yml", lineYAML))
	require.NoError(t, err)
	fromCUE, err := LoadLine(writeFile(t, "line.cue", lineCUE))
	require.NoError(t, err)

	assert.Equal(t, testutil.Line(), fromYAML)
	assert.Equal(t, fromYAML, fromCUE)
}

func TestLoadInstance_CUEPositions(t *testing.T) {
	path := writeFile(t, "bad.cue", `name: "x"
machines: [0]
jobs: [{id: 1, operations: [{machine: 0, processing: -4}]}]
`)
	_, err := LoadInstance(path)
	require.Error(t, err)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, path, ce.Pos.Filename())
	assert.Equal(t, 3, ce.Pos.Line())
}

func TestLoadInstance_YAMLUnknownField(t *testing.T) {
	path := writeFile(t, "bad.yaml", "name: x\nmachines: [0]\nwidgets: 3\n")
	_, err := LoadInstance(path)
	require.Error(t, err)
	assert.True(t, IsCompileError(err))
	assert.Contains(t, err.Error(), "widgets")
}

func TestLoadInstance_EmptyYAML(t *testing.T) {
	_, err := LoadInstance(writeFile(t, "empty.yaml", ""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty document")
}

func TestLoadInstance_UnsupportedExtension(t *testing.T) {
	_, err := LoadInstance(writeFile(t, "shop.toml", "name = 'x'"))
	require.Error(t, err)
	assert.True(t, IsCompileError(err))
}

func TestLoadInstance_MissingFile(t *testing.T) {
	_, err := LoadInstance(filepath.Join(t.TempDir(), "nope.cue"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFromInstance_RoundTrip(t *testing.T) {
	for _, want := range []*ir.Instance{testutil.FlowShop(3), testutil.Duplex(), testutil.TwoJobs()} {
		got, err := CompileInstanceDef(FromInstance(want))
		require.NoError(t, err)
		assert.Equal(t, want, got, want.Name)
	}
}
