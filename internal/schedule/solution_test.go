package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/shopsched/internal/graph"
	"github.com/roach88/shopsched/internal/ir"
	"github.com/roach88/shopsched/internal/testutil"
)

func ref(j ir.JobID, o ir.OperationID) ir.OpRef { return ir.OpRef{Job: j, Op: o} }

func build(t *testing.T, inst *ir.Instance) *graph.Graph {
	t.Helper()
	g, err := graph.Build(inst)
	require.NoError(t, err)
	return g
}

func TestNew_CompleteSolution(t *testing.T) {
	inst := testutil.TwoJobs()
	g := build(t, inst)

	ps, err := New(inst, g, map[ir.MachineID][]ir.OpRef{
		0: {ref(1, 0), ref(2, 0)},
		1: {ref(1, 1)},
	})
	require.NoError(t, err)

	assert.True(t, ps.Complete())
	assert.Equal(t, int64(6), ps.Makespan())
	require.Len(t, ps.Edges(), 1)
	assert.Equal(t, int64(3), ps.Edges()[0].Weight)

	start, ok := ps.Start(ref(2, 0))
	require.True(t, ok)
	assert.Equal(t, int64(4), start)
	assert.Empty(t, ps.Validate())
}

func TestNew_OrderChangesMakespan(t *testing.T) {
	inst := testutil.TwoJobs()
	g := build(t, inst)

	ps, err := New(inst, g, map[ir.MachineID][]ir.OpRef{
		0: {ref(2, 0), ref(1, 0)},
		1: {ref(1, 1)},
	})
	require.NoError(t, err)

	s, _ := ps.Start(ref(1, 1))
	assert.Equal(t, int64(9), s)
	assert.Equal(t, int64(11), ps.Makespan())
}

func TestNew_PartialSolution(t *testing.T) {
	inst := testutil.TwoJobs()
	g := build(t, inst)

	ps, err := New(inst, g, map[ir.MachineID][]ir.OpRef{0: {ref(2, 0)}})
	require.NoError(t, err)
	assert.False(t, ps.Complete())
	assert.Empty(t, ps.Edges())
	assert.Equal(t, []ir.OpRef{ref(2, 0)}, ps.Sequence(0))
	assert.Empty(t, ps.Sequence(1))
}

func TestNew_InfeasibleSequence(t *testing.T) {
	inst := testutil.TwoJobs()
	inst.Jobs[0].DueDate, inst.Jobs[0].HasDue = 8, true
	g := build(t, inst)

	_, err := New(inst, g, map[ir.MachineID][]ir.OpRef{
		0: {ref(2, 0), ref(1, 0)},
	})
	require.Error(t, err)
	assert.True(t, graph.IsInfeasible(err))
}

func TestNew_RejectsBadSequences(t *testing.T) {
	inst := testutil.TwoJobs()
	g := build(t, inst)

	tests := []struct {
		name string
		seqs map[ir.MachineID][]ir.OpRef
	}{
		{"unknown operation", map[ir.MachineID][]ir.OpRef{0: {ref(9, 0)}}},
		{"wrong machine", map[ir.MachineID][]ir.OpRef{1: {ref(1, 0)}}},
		{"twice", map[ir.MachineID][]ir.OpRef{0: {ref(1, 0), ref(1, 0)}}},
		{"unknown machine", map[ir.MachineID][]ir.OpRef{7: {ref(1, 0)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(inst, g, tt.seqs)
			require.Error(t, err)
			assert.True(t, IsSequenceError(err), "got %v", err)
		})
	}
}

func TestSequences_AreCopies(t *testing.T) {
	inst := testutil.TwoJobs()
	g := build(t, inst)
	in := map[ir.MachineID][]ir.OpRef{0: {ref(1, 0), ref(2, 0)}}

	ps, err := New(inst, g, in)
	require.NoError(t, err)

	in[0][0] = ref(2, 0)
	got := ps.Sequences()
	got[0][1] = ref(1, 0)
	assert.Equal(t, []ir.OpRef{ref(1, 0), ref(2, 0)}, ps.Sequence(0))
}

func TestApply_AddsSequencingEdges(t *testing.T) {
	inst := testutil.TwoJobs()
	g := build(t, inst)

	ps, err := New(inst, g, map[ir.MachineID][]ir.OpRef{0: {ref(2, 0), ref(1, 0)}})
	require.NoError(t, err)

	applied, err := ps.Apply()
	require.NoError(t, err)

	a, _ := g.OperationVertex(ref(2, 0))
	b, _ := g.OperationVertex(ref(1, 0))
	assert.True(t, applied.HasEdge(a, b))
	assert.False(t, g.HasEdge(a, b))

	res := graph.ComputeASAPST(applied)
	require.True(t, res.Feasible())
	assert.Equal(t, ps.Times(), res.Times)
}

func TestExport_PlainRecords(t *testing.T) {
	inst := testutil.TwoJobs()
	g := build(t, inst)

	ps, err := New(inst, g, map[ir.MachineID][]ir.OpRef{
		0: {ref(1, 0), ref(2, 0)},
		1: {ref(1, 1)},
	})
	require.NoError(t, err)

	want := Export{
		Instance: "two-jobs",
		Makespan: 6,
		Complete: true,
		Machines: []MachineExport{
			{Machine: 0, Operations: []OperationExport{{Job: 1, Op: 0, Start: 0, End: 3}, {Job: 2, Op: 0, Start: 4, End: 6}}},
			{Machine: 1, Operations: []OperationExport{{Job: 1, Op: 1, Start: 3, End: 5}}},
		},
	}
	assert.Equal(t, want, ps.Export())
}

func TestImport_RebuildsAgainstFreshGraph(t *testing.T) {
	inst := testutil.Duplex()
	g := build(t, inst)

	ps, err := New(inst, g, map[ir.MachineID][]ir.OpRef{
		0: {ref(1, 0), ref(2, 0), ref(1, 2), ref(3, 0), ref(2, 2), ref(3, 2)},
		1: {ref(1, 1), ref(2, 1), ref(3, 1)},
	})
	require.NoError(t, err)
	exported := ps.Export()

	// Reverse the record order; Import orders by start time.
	for _, m := range exported.Machines {
		for i, j := 0, len(m.Operations)-1; i < j; i, j = i+1, j-1 {
			m.Operations[i], m.Operations[j] = m.Operations[j], m.Operations[i]
		}
	}

	fresh := build(t, inst)
	back, err := Import(inst, fresh, exported)
	require.NoError(t, err)
	assert.Equal(t, ps.Sequences(), back.Sequences())
	assert.Equal(t, ps.Makespan(), back.Makespan())
	assert.Empty(t, back.Validate())
}
