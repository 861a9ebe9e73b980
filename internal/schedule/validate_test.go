package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/shopsched/internal/ir"
	"github.com/roach88/shopsched/internal/testutil"
)

func TestValidate_Feasible(t *testing.T) {
	inst := testutil.TwoJobs()
	g := build(t, inst)

	v := Validate(inst, g, map[ir.OpRef]int64{
		ref(1, 0): 0,
		ref(1, 1): 3,
		ref(2, 0): 4,
	})
	assert.Empty(t, v)
}

func TestValidate_Missing(t *testing.T) {
	inst := testutil.TwoJobs()
	g := build(t, inst)

	v := Validate(inst, g, map[ir.OpRef]int64{ref(1, 0): 0})
	require.Len(t, v, 2)
	assert.Equal(t, ViolationMissing, v[0].Kind)
}

func TestValidate_Overlap(t *testing.T) {
	inst := testutil.TwoJobs()
	g := build(t, inst)

	v := Validate(inst, g, map[ir.OpRef]int64{
		ref(1, 0): 3,
		ref(1, 1): 6,
		ref(2, 0): 4,
	})
	require.Len(t, v, 1)
	assert.Equal(t, ViolationOverlap, v[0].Kind)
	assert.Equal(t, ref(1, 0), v[0].A)
	assert.Equal(t, ref(2, 0), v[0].B)
}

func TestValidate_TouchingIsNotOverlap(t *testing.T) {
	inst := testutil.TwoJobs()
	g := build(t, inst)

	v := Validate(inst, g, map[ir.OpRef]int64{
		ref(1, 0): 1,
		ref(1, 1): 4,
		ref(2, 0): 4,
	})
	assert.Empty(t, v)
}

func TestValidate_EdgeViolation(t *testing.T) {
	inst := testutil.TwoJobs()
	g := build(t, inst)

	v := Validate(inst, g, map[ir.OpRef]int64{
		ref(1, 0): 0,
		ref(1, 1): 2,
		ref(2, 0): 4,
	})
	require.Len(t, v, 1)
	assert.Equal(t, ViolationEdge, v[0].Kind)
	assert.Equal(t, ref(1, 0), v[0].A)
	assert.Equal(t, ref(1, 1), v[0].B)
	assert.Contains(t, v[0].String(), "at least 3")
}

func TestValidate_Setup(t *testing.T) {
	inst := testutil.TwoJobs()
	inst.Setups = []ir.SetupTime{{Machine: 0, FromJob: 1, ToJob: 2, Duration: 2}}
	g := build(t, inst)

	v := Validate(inst, g, map[ir.OpRef]int64{
		ref(1, 0): 0,
		ref(1, 1): 3,
		ref(2, 0): 4,
	})
	require.Len(t, v, 1)
	assert.Equal(t, ViolationSetup, v[0].Kind)
}
