package schedule

import (
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/shopsched/internal/graph"
	"github.com/roach88/shopsched/internal/ir"
)

// SequenceError reports a machine sequence that does not fit the instance.
type SequenceError struct {
	Machine ir.MachineID
	Op      ir.OpRef
	Reason  string
}

// Error implements the error interface.
func (e *SequenceError) Error() string {
	return fmt.Sprintf("machine %d: operation %s %s", e.Machine, e.Op, e.Reason)
}

// IsSequenceError reports whether err is a SequenceError.
// Uses errors.As to handle wrapped errors.
func IsSequenceError(err error) bool {
	var se *SequenceError
	return errors.As(err, &se)
}

// PartialSolution is a set of per-machine operation sequences applied to a
// constraint graph. It is complete when every operation is sequenced.
type PartialSolution struct {
	inst      *ir.Instance
	graph     *graph.Graph
	sequences map[ir.MachineID][]ir.OpRef
	edges     []graph.Edge
	times     graph.PathTimes
	makespan  int64
	complete  bool
}

// New derives the sequencing edges for sequences, computes the earliest
// start times of g extended by them, and returns the resulting solution.
// It fails with a SequenceError for sequences that do not match the
// instance and with a graph.InfeasibleError when the sequences contradict
// the timing constraints.
func New(inst *ir.Instance, g *graph.Graph, sequences map[ir.MachineID][]ir.OpRef) (*PartialSolution, error) {
	edges, seqs, err := sequenceEdges(inst, g, sequences)
	if err != nil {
		return nil, err
	}

	res := graph.ComputeASAPST(graph.NewOverlay(g, edges))
	if !res.Feasible() {
		return nil, res.Err()
	}
	return assemble(inst, g, seqs, edges, res.Times), nil
}

// NewWithTimes is New for callers that already ran the relaxation over g
// plus the sequencing edges, such as the solver. times is trusted.
func NewWithTimes(inst *ir.Instance, g *graph.Graph, sequences map[ir.MachineID][]ir.OpRef, times graph.PathTimes) (*PartialSolution, error) {
	edges, seqs, err := sequenceEdges(inst, g, sequences)
	if err != nil {
		return nil, err
	}
	return assemble(inst, g, seqs, edges, times.Clone()), nil
}

func assemble(inst *ir.Instance, g *graph.Graph, seqs map[ir.MachineID][]ir.OpRef, edges []graph.Edge, times graph.PathTimes) *PartialSolution {
	n := 0
	for _, seq := range seqs {
		n += len(seq)
	}
	return &PartialSolution{
		inst:      inst,
		graph:     g,
		sequences: seqs,
		edges:     edges,
		times:     times,
		makespan:  graph.Makespan(g, times),
		complete:  n == inst.NumOperations(),
	}
}

func sequenceEdges(inst *ir.Instance, g *graph.Graph, sequences map[ir.MachineID][]ir.OpRef) ([]graph.Edge, map[ir.MachineID][]ir.OpRef, error) {
	seqs := make(map[ir.MachineID][]ir.OpRef, len(inst.Machines))
	var edges []graph.Edge
	seen := make(map[ir.OpRef]bool)

	for _, m := range inst.Machines {
		seq := sequences[m]
		prev := graph.NoVertex
		for _, ref := range seq {
			op, ok := inst.Operation(ref)
			if !ok {
				return nil, nil, &SequenceError{Machine: m, Op: ref, Reason: "does not exist"}
			}
			if op.Machine != m {
				return nil, nil, &SequenceError{Machine: m, Op: ref, Reason: fmt.Sprintf("runs on machine %d", op.Machine)}
			}
			if seen[ref] {
				return nil, nil, &SequenceError{Machine: m, Op: ref, Reason: "is sequenced twice"}
			}
			seen[ref] = true

			v, _ := g.OperationVertex(ref)
			if prev != graph.NoVertex {
				edges = append(edges, g.SequenceEdge(inst, prev, v))
			}
			prev = v
		}
		seqs[m] = slices.Clone(seq)
	}

	for m, seq := range sequences {
		if len(seq) > 0 && !slices.Contains(inst.Machines, m) {
			return nil, nil, &SequenceError{Machine: m, Op: seq[0], Reason: "is on an unknown machine"}
		}
	}
	return edges, seqs, nil
}

// Instance returns the instance the solution belongs to.
func (ps *PartialSolution) Instance() *ir.Instance { return ps.inst }

// Graph returns the base graph the solution was derived on.
func (ps *PartialSolution) Graph() *graph.Graph { return ps.graph }

// Sequence returns a copy of the operation order on machine m.
func (ps *PartialSolution) Sequence(m ir.MachineID) []ir.OpRef {
	return slices.Clone(ps.sequences[m])
}

// Sequences returns a copy of all machine sequences.
func (ps *PartialSolution) Sequences() map[ir.MachineID][]ir.OpRef {
	out := make(map[ir.MachineID][]ir.OpRef, len(ps.sequences))
	for m, seq := range ps.sequences {
		out[m] = slices.Clone(seq)
	}
	return out
}

// Edges returns the sequencing edges the solution adds to its graph.
func (ps *PartialSolution) Edges() []graph.Edge {
	return slices.Clone(ps.edges)
}

// Times returns a copy of the earliest start vector.
func (ps *PartialSolution) Times() graph.PathTimes {
	return ps.times.Clone()
}

// Start returns the earliest start of an operation.
func (ps *PartialSolution) Start(ref ir.OpRef) (int64, bool) {
	v, ok := ps.graph.OperationVertex(ref)
	if !ok {
		return 0, false
	}
	return ps.times[v], true
}

// Makespan returns the completion time of the solution.
func (ps *PartialSolution) Makespan() int64 { return ps.makespan }

// Complete reports whether every operation is sequenced.
func (ps *PartialSolution) Complete() bool { return ps.complete }

// Apply returns a standalone copy of the base graph with the sequencing
// edges added, for output or further solving.
func (ps *PartialSolution) Apply() (*graph.Graph, error) {
	return graph.NewOverlay(ps.graph, ps.edges).Materialize()
}
