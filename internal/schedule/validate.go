package schedule

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/tidwall/rtree"

	"github.com/roach88/shopsched/internal/graph"
	"github.com/roach88/shopsched/internal/ir"
)

// ViolationKind classifies a schedule defect.
type ViolationKind string

const (
	// ViolationMissing: an operation of the instance has no start time.
	ViolationMissing ViolationKind = "missing"
	// ViolationEdge: a constraint edge of the graph is not satisfied.
	ViolationEdge ViolationKind = "edge"
	// ViolationOverlap: two operations occupy a machine at the same time.
	ViolationOverlap ViolationKind = "overlap"
	// ViolationSetup: consecutive operations on a machine leave less than
	// the setup time between them.
	ViolationSetup ViolationKind = "setup"
)

// Violation is one defect found by Validate.
type Violation struct {
	Kind   ViolationKind `json:"kind"`
	A      ir.OpRef      `json:"a"`
	B      ir.OpRef      `json:"b"`
	Detail string        `json:"detail"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Kind, v.Detail)
}

// Validate checks a timed schedule against the instance's constraint graph
// g and its machines. Sources are taken to be at time zero and the sink at
// the latest finish. Violations are returned in a stable order; an empty
// result means the schedule is feasible.
func Validate(inst *ir.Instance, g *graph.Graph, starts map[ir.OpRef]int64) []Violation {
	var out []Violation

	times := make(graph.PathTimes, g.NumVertices())
	var finish int64
	for _, vx := range g.Vertices() {
		if vx.Kind != graph.KindOperation {
			continue
		}
		s, ok := starts[vx.Op]
		if !ok {
			out = append(out, Violation{Kind: ViolationMissing, A: vx.Op, Detail: fmt.Sprintf("operation %s has no start", vx.Op)})
			continue
		}
		times[vx.ID] = s
		finish = max(finish, s+vx.Duration)
	}
	if len(out) > 0 {
		return out
	}
	if sink := g.Sink(); sink != graph.NoVertex {
		times[sink] = finish
	}

	for _, e := range g.Edges() {
		if times[e.Dst] < times[e.Src]+e.Weight {
			a, b := g.Vertex(e.Src), g.Vertex(e.Dst)
			out = append(out, Violation{
				Kind:   ViolationEdge,
				A:      a.Op,
				B:      b.Op,
				Detail: fmt.Sprintf("%s at %d must start at least %d after %s at %d", label(b), times[e.Dst], e.Weight, label(a), times[e.Src]),
			})
		}
	}

	out = append(out, machineViolations(inst, g, starts)...)
	return out
}

func label(v graph.Vertex) string {
	if v.Kind == graph.KindOperation {
		return v.Op.String()
	}
	return v.Label
}

type slot struct {
	ref        ir.OpRef
	start, end int64
}

// machineViolations indexes every operation as a segment [start, end] on
// the line y = machine and reports pairs whose open intervals intersect,
// then checks setup gaps between neighbours in start order.
func machineViolations(inst *ir.Instance, g *graph.Graph, starts map[ir.OpRef]int64) []Violation {
	var out []Violation
	var tr rtree.RTreeG[slot]
	perMachine := make(map[ir.MachineID][]slot)

	for _, vx := range g.Vertices() {
		if vx.Kind != graph.KindOperation {
			continue
		}
		s := slot{ref: vx.Op, start: starts[vx.Op], end: starts[vx.Op] + vx.Duration}
		perMachine[vx.Machine] = append(perMachine[vx.Machine], s)
		if s.end == s.start {
			continue
		}

		lo := [2]float64{float64(s.start), float64(vx.Machine)}
		hi := [2]float64{float64(s.end), float64(vx.Machine)}
		tr.Search(lo, hi, func(_, _ [2]float64, other slot) bool {
			if other.start < s.end && s.start < other.end {
				out = append(out, Violation{
					Kind:   ViolationOverlap,
					A:      other.ref,
					B:      s.ref,
					Detail: fmt.Sprintf("%s [%d,%d) overlaps %s [%d,%d) on machine %d", other.ref, other.start, other.end, s.ref, s.start, s.end, vx.Machine),
				})
			}
			return true
		})
		tr.Insert(lo, hi, s)
	}
	slices.SortFunc(out, func(a, b Violation) int {
		return cmp.Or(compareRef(a.A, b.A), compareRef(a.B, b.B))
	})

	for _, m := range inst.Machines {
		slots := perMachine[m]
		slices.SortStableFunc(slots, func(a, b slot) int { return cmp.Compare(a.start, b.start) })
		for i := 1; i < len(slots); i++ {
			prev, cur := slots[i-1], slots[i]
			setup := inst.Setup(m, prev.ref.Job, cur.ref.Job)
			if setup > 0 && cur.start < prev.end+setup {
				out = append(out, Violation{
					Kind:   ViolationSetup,
					A:      prev.ref,
					B:      cur.ref,
					Detail: fmt.Sprintf("%s starts at %d, before setup %d after %s ends at %d", cur.ref, cur.start, setup, prev.ref, prev.end),
				})
			}
		}
	}
	return out
}

func compareRef(a, b ir.OpRef) int {
	return cmp.Or(cmp.Compare(a.Job, b.Job), cmp.Compare(a.Op, b.Op))
}

// Validate checks the solution's own earliest schedule.
func (ps *PartialSolution) Validate() []Violation {
	return Validate(ps.inst, ps.graph, ps.Export().Starts())
}
