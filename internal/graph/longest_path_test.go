package graph

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/shopsched/internal/ir"
)

// bare builds a source-free graph of n unit operations with the given
// edges, so every vertex is a seed.
func bare(t *testing.T, n int, edges []Edge) *Graph {
	t.Helper()
	g := New(WithDuplicatePolicy(DuplicateKeepTightest))
	for i := 0; i < n; i++ {
		_, err := g.AddVertex(op(ir.JobID(i), 0, 0, 1))
		require.NoError(t, err)
	}
	for _, e := range edges {
		require.NoError(t, g.AddEdge(e.Src, e.Dst, e.Weight))
	}
	return g
}

func assertCycle(t *testing.T, cycle []Edge, positive bool) {
	t.Helper()
	require.NotEmpty(t, cycle)
	var total int64
	for i, e := range cycle {
		next := cycle[(i+1)%len(cycle)]
		assert.Equal(t, e.Dst, next.Src, "cycle must be in forward order")
		total += e.Weight
	}
	if positive {
		assert.Positive(t, total)
	} else {
		assert.Negative(t, total)
	}
}

func TestFindNegativeCycle_TwoVertexCycle(t *testing.T) {
	g := bare(t, 2, []Edge{{0, 1, -1}, {1, 0, -1}})

	cycle := FindNegativeCycle(g)
	assertCycle(t, cycle, false)
	assert.ElementsMatch(t, []Edge{{0, 1, -1}, {1, 0, -1}}, cycle)
}

func TestFindNegativeCycle_PositiveWeightsNoCycle(t *testing.T) {
	g := bare(t, 2, []Edge{{0, 1, 1}, {1, 0, 1}})
	assert.Nil(t, FindNegativeCycle(g))
}

func TestFindNegativeCycle_ZeroCycleIsFine(t *testing.T) {
	g := bare(t, 3, []Edge{{0, 1, 2}, {1, 2, -1}, {2, 0, -1}})
	assert.Nil(t, FindNegativeCycle(g))
}

func TestComputeASAPST_SmallGraph(t *testing.T) {
	g := New()
	s := g.AddSource(0)
	a, _ := g.AddVertex(op(1, 0, 0, 3))
	b, _ := g.AddVertex(op(1, 1, 0, 2))
	c, _ := g.AddVertex(op(2, 0, 0, 1))
	require.NoError(t, g.AddEdge(s, a, 0))
	require.NoError(t, g.AddEdge(a, b, 3))
	require.NoError(t, g.AddEdge(a, c, 1))
	require.NoError(t, g.AddEdge(c, b, 4))
	require.NoError(t, g.AddEdge(b, c, -10))

	res := ComputeASAPST(g)
	require.True(t, res.Feasible())
	assert.Equal(t, PathTimes{0, 0, 5, 1}, res.Times)
	assert.Equal(t, int64(7), Makespan(g, res.Times))
	assert.NoError(t, res.Err())
}

func TestComputeASAPST_UnreachedStaysNegInf(t *testing.T) {
	g := New()
	s := g.AddSource(0)
	a, _ := g.AddVertex(op(1, 0, 0, 3))
	b, _ := g.AddVertex(op(1, 1, 0, 2))
	require.NoError(t, g.AddEdge(s, a, 0))

	res := ComputeASAPST(g)
	require.True(t, res.Feasible())
	assert.Equal(t, int64(0), res.Times[a])
	assert.Equal(t, NegInf, res.Times[b])
	assert.Equal(t, int64(3), Makespan(g, res.Times))
}

func TestComputeASAPST_ContradictoryCycle(t *testing.T) {
	g := New()
	s := g.AddSource(0)
	a, _ := g.AddVertex(op(1, 0, 0, 3))
	b, _ := g.AddVertex(op(1, 1, 0, 2))
	require.NoError(t, g.AddEdge(s, a, 0))
	require.NoError(t, g.AddEdge(a, b, 3))
	// b at most 2 after a, but at least 3.
	require.NoError(t, g.AddEdge(b, a, -2))

	res := ComputeASAPST(g)
	require.False(t, res.Feasible())
	assertCycle(t, res.Cycle, true)
	assert.True(t, IsInfeasible(res.Err()))
	assert.Contains(t, res.Err().Error(), "weight 1")
}

// randomDAG only adds edges from lower to higher ids so it is acyclic for
// any weights.
func randomDAG(t *testing.T, r *rand.Rand, n int) *Graph {
	t.Helper()
	var edges []Edge
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if r.IntN(3) == 0 {
				edges = append(edges, Edge{VertexID(i), VertexID(j), int64(r.IntN(21) - 5)})
			}
		}
	}
	return bare(t, n, edges)
}

func TestComputeASAPST_MatchesDynamicProgram(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))
	for round := 0; round < 50; round++ {
		g := randomDAG(t, r, 2+r.IntN(12))

		// Every vertex is a zero seed; vertex order is topological.
		want := make(PathTimes, g.NumVertices())
		for v := 0; v < g.NumVertices(); v++ {
			in, err := g.InEdges(VertexID(v))
			require.NoError(t, err)
			for _, e := range in {
				if d := want[e.Src] + e.Weight; d > want[v] {
					want[v] = d
				}
			}
		}

		res := ComputeASAPST(g)
		require.True(t, res.Feasible())
		assert.Equal(t, want, res.Times, "round %d", round)
	}
}

func TestComputeASAPST_EdgeInequalityAndIdempotence(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 5))
	for round := 0; round < 50; round++ {
		g := randomDAG(t, r, 2+r.IntN(12))
		res := ComputeASAPST(g)
		require.True(t, res.Feasible())

		for _, e := range g.Edges() {
			assert.GreaterOrEqual(t, res.Times[e.Dst], res.Times[e.Src]+e.Weight)
		}

		again := ComputeASAPSTFrom(g, res.Times)
		require.True(t, again.Feasible())
		assert.Equal(t, res.Times, again.Times)
	}
}

func TestComputeASAPSTFrom_WarmStartMatchesColdStart(t *testing.T) {
	r := rand.New(rand.NewPCG(13, 17))
	for round := 0; round < 30; round++ {
		g := randomDAG(t, r, 3+r.IntN(10))
		parent := ComputeASAPST(g)
		require.True(t, parent.Feasible())

		// Adding an edge only raises times, so the parent vector is a valid
		// warm start for the child.
		n := g.NumVertices()
		src := VertexID(r.IntN(n - 1))
		dst := src + 1 + VertexID(r.IntN(n-int(src)-1))
		o := NewOverlay(g, nil).Extend(Edge{Src: src, Dst: dst, Weight: int64(r.IntN(8))})

		cold := ComputeASAPST(o)
		warm := ComputeASAPSTFrom(o, parent.Times)
		require.True(t, cold.Feasible())
		assert.Equal(t, cold.Times, warm.Times)
		assert.Equal(t, parent.Times, ComputeASAPST(g).Times, "warm start must not modify init")
	}
}

func TestDistanceView_AgreesWithASAPFeasibility(t *testing.T) {
	r := rand.New(rand.NewPCG(21, 34))
	infeasible := 0
	for round := 0; round < 100; round++ {
		n := 2 + r.IntN(6)
		var edges []Edge
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				if i != j && r.IntN(3) == 0 {
					edges = append(edges, Edge{VertexID(i), VertexID(j), int64(r.IntN(9) - 5)})
				}
			}
		}
		g := bare(t, n, edges)

		res := ComputeASAPST(g)
		cycle := FindNegativeCycle(DistanceView(g))
		assert.Equal(t, res.Feasible(), cycle == nil, "round %d", round)
		if !res.Feasible() {
			infeasible++
			assertCycle(t, res.Cycle, true)
			assertCycle(t, cycle, false)
		}
	}
	assert.Positive(t, infeasible, "generator should produce some contradictory graphs")
}

func TestLongestPathsFrom(t *testing.T) {
	g := bare(t, 3, []Edge{{0, 1, 4}, {1, 2, -1}, {2, 0, -5}})

	res := LongestPathsFrom(g, 1)
	require.True(t, res.Feasible())
	assert.Equal(t, PathTimes{-6, 0, -1}, res.Times)

	res = LongestPathsFrom(g, 0)
	require.True(t, res.Feasible())
	assert.Equal(t, PathTimes{0, 4, 3}, res.Times)
}

func TestComputeALAPST(t *testing.T) {
	g := New()
	s := g.AddSource(0)
	a, _ := g.AddVertex(op(1, 0, 0, 2))
	b, _ := g.AddVertex(op(1, 1, 0, 3))
	require.NoError(t, g.AddEdge(s, a, 0))
	require.NoError(t, g.AddEdge(a, b, 2))

	res := ComputeALAPST(g, 10)
	require.True(t, res.Feasible())
	assert.Equal(t, int64(7), res.Times[b])
	assert.Equal(t, int64(5), res.Times[a])
	assert.Equal(t, int64(5), res.Times[s])

	asap := ComputeASAPST(g)
	for v := range asap.Times {
		assert.LessOrEqual(t, asap.Times[v], res.Times[v])
	}
}

func TestComputeALAPST_UnboundedHorizon(t *testing.T) {
	g := bare(t, 2, []Edge{{0, 1, 1}})
	res := ComputeALAPST(g, PosInf)
	require.True(t, res.Feasible())
	assert.Equal(t, PathTimes{PosInf, PosInf}, res.Times)
}
