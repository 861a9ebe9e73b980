package graph

import (
	"github.com/roach88/shopsched/internal/ir"
)

// Sentinels used in PathTimes.
const (
	NegInf = ir.NegInf
	PosInf = ir.PosInf
)

// PathTimes is indexed by VertexID. Unreached vertices hold NegInf (ASAP)
// or PosInf (ALAP).
type PathTimes []int64

// Clone returns an independent copy.
func (p PathTimes) Clone() PathTimes {
	return append(PathTimes(nil), p...)
}

// LongestPathResult is the outcome of one relaxation.
//
// Cycle is nil for a feasible graph. Otherwise it holds a contradictory
// cycle in forward order and Times must not be trusted.
type LongestPathResult struct {
	Times PathTimes
	Cycle []Edge
}

// Feasible reports whether no contradictory cycle was found.
func (r LongestPathResult) Feasible() bool {
	return r.Cycle == nil
}

// Err returns an InfeasibleError for an infeasible result, nil otherwise.
func (r LongestPathResult) Err() error {
	if r.Cycle == nil {
		return nil
	}
	return &InfeasibleError{Cycle: r.Cycle}
}

// edgeFunc yields the i-th edge as seen by one relaxation.
type edgeFunc func(i int) Edge

func forward(v View) edgeFunc {
	return v.EdgeAt
}

// negated is the distance view: every weight negated.
func negated(v View) edgeFunc {
	return func(i int) Edge {
		e := v.EdgeAt(i)
		e.Weight = -e.Weight
		return e
	}
}

// reversed flips every edge, keeping weights.
func reversed(v View) edgeFunc {
	return func(i int) Edge {
		e := v.EdgeAt(i)
		e.Src, e.Dst = e.Dst, e.Src
		return e
	}
}

// relax runs the label-correcting longest-path relaxation in place on
// times. It makes at most n full passes, stopping early once a pass changes
// nothing; then one extra full pass decides whether a cycle of positive
// weight (in the edge view given) is still pumping labels. The returned
// cycle holds edge indexes in forward order.
func relax(n, m int, edge edgeFunc, times []int64) []int {
	pred := make([]int, n)
	for i := range pred {
		pred[i] = -1
	}

	for pass := 0; pass < n; pass++ {
		changed := false
		for i := 0; i < m; i++ {
			e := edge(i)
			if times[e.Src] == NegInf {
				continue
			}
			if c := ir.AddSat(times[e.Src], e.Weight); c > times[e.Dst] {
				times[e.Dst] = c
				pred[e.Dst] = i
				changed = true
			}
		}
		if !changed {
			return nil
		}
	}

	// Extra pass: any edge still relaxable proves a cycle.
	for i := 0; i < m; i++ {
		e := edge(i)
		if times[e.Src] == NegInf {
			continue
		}
		if ir.AddSat(times[e.Src], e.Weight) > times[e.Dst] {
			pred[e.Dst] = i
			if cycle := traceCycle(n, edge, pred, e.Dst); cycle != nil {
				return cycle
			}
			return scanCycle(n, edge, pred)
		}
	}
	return nil
}

// traceCycle follows predecessor pointers from start until a vertex
// repeats and returns the repeated loop in forward order.
func traceCycle(n int, edge edgeFunc, pred []int, start VertexID) []int {
	seen := make(map[VertexID]bool, n)
	v := start
	for !seen[v] {
		seen[v] = true
		if pred[v] < 0 {
			return nil
		}
		v = edge(pred[v]).Src
	}

	var cycle []int
	u := v
	for {
		idx := pred[u]
		cycle = append(cycle, idx)
		u = edge(idx).Src
		if u == v {
			break
		}
	}
	for i, j := 0, len(cycle)-1; i < j; i, j = i+1, j-1 {
		cycle[i], cycle[j] = cycle[j], cycle[i]
	}
	return cycle
}

// scanCycle looks for any loop in the predecessor graph. Used when the walk
// from the re-relaxed vertex ends at a seed.
func scanCycle(n int, edge edgeFunc, pred []int) []int {
	for v := 0; v < n; v++ {
		if cycle := traceCycle(n, edge, pred, VertexID(v)); cycle != nil {
			return cycle
		}
	}
	return nil
}

func cycleEdges(v View, idxs []int) []Edge {
	if idxs == nil {
		return nil
	}
	edges := make([]Edge, len(idxs))
	for i, idx := range idxs {
		edges[i] = v.EdgeAt(idx)
	}
	return edges
}

func seeds(v View) []VertexID {
	if src := v.Sources(); len(src) > 0 {
		return src
	}
	all := make([]VertexID, v.NumVertices())
	for i := range all {
		all[i] = VertexID(i)
	}
	return all
}

// ComputeASAPST computes earliest start times: longest paths seeded at zero
// at every source vertex. A graph without sources seeds every vertex.
func ComputeASAPST(v View) LongestPathResult {
	times := make(PathTimes, v.NumVertices())
	for i := range times {
		times[i] = NegInf
	}
	return ComputeASAPSTFrom(v, times)
}

// ComputeASAPSTFrom warm-starts the relaxation from init, which must hold
// lower bounds that are realised by paths of v (e.g. the ASAP vector of a
// subgraph). init is not modified.
func ComputeASAPSTFrom(v View, init PathTimes) LongestPathResult {
	times := init.Clone()
	for _, s := range seeds(v) {
		if times[s] < 0 {
			times[s] = 0
		}
	}
	cycle := relax(v.NumVertices(), v.NumEdges(), forward(v), times)
	return LongestPathResult{Times: times, Cycle: cycleEdges(v, cycle)}
}

// LongestPathsFrom computes longest paths from a single vertex; every other
// vertex starts unreached. The propagator uses it for pairwise windows.
func LongestPathsFrom(v View, src VertexID) LongestPathResult {
	times := make(PathTimes, v.NumVertices())
	for i := range times {
		times[i] = NegInf
	}
	times[src] = 0
	cycle := relax(v.NumVertices(), v.NumEdges(), forward(v), times)
	return LongestPathResult{Times: times, Cycle: cycleEdges(v, cycle)}
}

// ComputeALAPST computes latest start times such that every vertex
// finishes by horizon: the same relaxation on the reversed graph, run on
// negated labels. Vertices not constrained by the horizon stay at PosInf.
func ComputeALAPST(v View, horizon int64) LongestPathResult {
	n := v.NumVertices()
	labels := make([]int64, n)
	for i := range labels {
		labels[i] = NegInf
		if horizon != PosInf {
			labels[i] = -(horizon - v.Vertex(VertexID(i)).Duration)
		}
	}
	cycle := relax(n, v.NumEdges(), reversed(v), labels)

	times := make(PathTimes, n)
	for i, l := range labels {
		if l == NegInf {
			times[i] = PosInf
		} else {
			times[i] = -l
		}
	}
	return LongestPathResult{Times: times, Cycle: cycleEdges(v, cycle)}
}

// FindNegativeCycle treats v as a distance graph (weights are shortest-path
// lengths) and returns a negative cycle in forward order, or nil. Every
// vertex starts at zero, as if joined to a virtual super-source.
//
// A constraint graph is infeasible exactly when its negated view has a
// negative cycle; see DistanceView.
func FindNegativeCycle(v View) []Edge {
	n := v.NumVertices()
	labels := make([]int64, n)
	cycle := relax(n, v.NumEdges(), negated(v), labels)
	return cycleEdges(v, cycle)
}

// Makespan returns the completion time of a feasible ASAP vector: the
// latest operation finish, or the sink value when that is larger.
func Makespan(v View, times PathTimes) int64 {
	var best int64
	for i := 0; i < v.NumVertices(); i++ {
		if times[i] == NegInf {
			continue
		}
		vx := v.Vertex(VertexID(i))
		var f int64
		switch vx.Kind {
		case KindSink:
			f = times[i]
		case KindOperation:
			f = times[i] + vx.Duration
		default:
			continue
		}
		if f > best {
			best = f
		}
	}
	return best
}
