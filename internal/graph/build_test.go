package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/shopsched/internal/ir"
)

// twoJobs: job 1 runs m0 (3) then m1 (2); job 2 runs m0 (2) released at 4.
func twoJobs() *ir.Instance {
	inst := &ir.Instance{
		Name:     "two-jobs",
		Machines: []ir.MachineID{0, 1},
		Jobs: []ir.Job{
			{ID: 1, Operations: []ir.Operation{{Machine: 0, ProcessingTime: 3}, {Machine: 1, ProcessingTime: 2}}},
			{ID: 2, ReleaseDate: 4, Operations: []ir.Operation{{Machine: 0, ProcessingTime: 2}}},
		},
	}
	inst.Normalize()
	return inst
}

func ref(j ir.JobID, o ir.OperationID) ir.OpRef { return ir.OpRef{Job: j, Op: o} }

func asap(t *testing.T, g *Graph, r ir.OpRef, times PathTimes) int64 {
	t.Helper()
	v, ok := g.OperationVertex(r)
	require.True(t, ok, "missing %s", r)
	return times[v]
}

func TestBuild_Layout(t *testing.T) {
	g, err := Build(twoJobs())
	require.NoError(t, err)

	// 2 sources + 3 operations + sink
	assert.Equal(t, 6, g.NumVertices())
	assert.Len(t, g.Sources(), 2)
	assert.Equal(t, KindSink, g.Vertex(g.Sink()).Kind)

	s0, _ := g.MachineSource(0)
	s1, _ := g.MachineSource(1)
	assert.True(t, g.HasEdge(s0, s1))
	assert.True(t, g.HasEdge(s1, s0))

	v, _ := g.OperationVertex(ref(2, 0))
	e, ok := g.EdgeBetween(s0, v)
	require.True(t, ok)
	assert.Equal(t, int64(4), e.Weight, "release merges into the source edge")
}

func TestBuild_ASAPAndMakespan(t *testing.T) {
	g, err := Build(twoJobs())
	require.NoError(t, err)

	res := ComputeASAPST(g)
	require.True(t, res.Feasible())
	assert.Equal(t, int64(0), asap(t, g, ref(1, 0), res.Times))
	assert.Equal(t, int64(3), asap(t, g, ref(1, 1), res.Times))
	assert.Equal(t, int64(4), asap(t, g, ref(2, 0), res.Times))
	assert.Equal(t, int64(6), Makespan(g, res.Times))
	assert.Equal(t, int64(6), res.Times[g.Sink()])
}

func TestBuild_TimeLagWindow(t *testing.T) {
	inst := twoJobs()
	inst.Lags = []ir.TimeLag{{From: ref(1, 0), To: ref(2, 0), Min: 1, Max: 2, HasMax: true}}

	g, err := Build(inst)
	require.NoError(t, err)

	res := ComputeASAPST(g)
	require.True(t, res.Feasible())
	// Job 2 cannot start before 4, so job 1 is pushed to 2.
	assert.Equal(t, int64(2), asap(t, g, ref(1, 0), res.Times))
	assert.Equal(t, int64(4), asap(t, g, ref(2, 0), res.Times))
	assert.Equal(t, int64(7), Makespan(g, res.Times))
}

func TestBuild_DueDate(t *testing.T) {
	tests := []struct {
		name     string
		due      int64
		feasible bool
	}{
		{"slack", 9, true},
		{"tight", 5, true},
		{"missed", 4, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst := twoJobs()
			inst.Jobs[0].DueDate = tt.due
			inst.Jobs[0].HasDue = true

			g, err := Build(inst)
			require.NoError(t, err)
			assert.Equal(t, tt.feasible, ComputeASAPST(g).Feasible())
		})
	}
}

func TestBuild_SequenceEdgeWithSetup(t *testing.T) {
	inst := twoJobs()
	inst.Setups = []ir.SetupTime{{Machine: 0, FromJob: 1, ToJob: 2, Duration: 3}}

	g, err := Build(inst)
	require.NoError(t, err)

	a, _ := g.OperationVertex(ref(1, 0))
	b, _ := g.OperationVertex(ref(2, 0))
	assert.Equal(t, Edge{Src: a, Dst: b, Weight: 6}, g.SequenceEdge(inst, a, b))
	assert.Equal(t, Edge{Src: b, Dst: a, Weight: 2}, g.SequenceEdge(inst, b, a))

	res := ComputeASAPST(NewOverlay(g, []Edge{g.SequenceEdge(inst, a, b)}))
	require.True(t, res.Feasible())
	assert.Equal(t, int64(6), asap(t, g, ref(2, 0), res.Times))
}

func TestBuild_InvalidInstances(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ir.Instance)
		code   StructuralErrorCode
	}{
		{"no machines", func(i *ir.Instance) { i.Machines = nil }, ErrCodeInvalidInstance},
		{"duplicate machine", func(i *ir.Instance) { i.Machines = []ir.MachineID{0, 1, 0} }, ErrCodeInvalidInstance},
		{"duplicate job", func(i *ir.Instance) { i.Jobs[1].ID = 1; i.Normalize() }, ErrCodeDuplicateVertex},
		{"empty job", func(i *ir.Instance) { i.Jobs[1].Operations = nil }, ErrCodeInvalidInstance},
		{"unknown machine", func(i *ir.Instance) { i.Jobs[0].Operations[1].Machine = 9 }, ErrCodeInvalidInstance},
		{"negative processing", func(i *ir.Instance) { i.Jobs[0].Operations[0].ProcessingTime = -1 }, ErrCodeInvalidInstance},
		{"mislabelled operation", func(i *ir.Instance) { i.Jobs[0].Operations[1].ID = 5 }, ErrCodeInvalidInstance},
		{"unknown lag operation", func(i *ir.Instance) {
			i.Lags = []ir.TimeLag{{From: ref(1, 0), To: ref(3, 0)}}
		}, ErrCodeUnknownVertex},
		{"negative setup", func(i *ir.Instance) {
			i.Setups = []ir.SetupTime{{Machine: 0, FromJob: 1, ToJob: 2, Duration: -1}}
		}, ErrCodeInvalidInstance},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst := twoJobs()
			tt.mutate(inst)

			_, err := Build(inst)
			require.Error(t, err)
			assert.True(t, IsStructuralError(err))
			assert.True(t, HasCode(err, tt.code), "got %v", err)
		})
	}

	_, err := Build(nil)
	assert.True(t, HasCode(err, ErrCodeInvalidInstance))
}
