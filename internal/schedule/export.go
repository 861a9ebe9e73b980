package schedule

import (
	"cmp"
	"slices"

	"github.com/roach88/shopsched/internal/graph"
	"github.com/roach88/shopsched/internal/ir"
)

// Export is the session-independent form of a PartialSolution. It names
// operations by (job, operation) only, so it can be stored, sent and read
// back against a freshly built graph.
type Export struct {
	Instance string          `json:"instance"`
	Makespan int64           `json:"makespan"`
	Complete bool            `json:"complete"`
	Machines []MachineExport `json:"machines"`
}

// MachineExport is one machine's sequence in execution order.
type MachineExport struct {
	Machine    ir.MachineID      `json:"machine"`
	Operations []OperationExport `json:"operations"`
}

// OperationExport is one sequenced operation and its time window.
type OperationExport struct {
	Job   ir.JobID       `json:"job"`
	Op    ir.OperationID `json:"op"`
	Start int64          `json:"start"`
	End   int64          `json:"end"`
}

// Ref returns the operation reference.
func (o OperationExport) Ref() ir.OpRef {
	return ir.OpRef{Job: o.Job, Op: o.Op}
}

// Export converts the solution to plain records. Machines follow the
// instance's declaration order.
func (ps *PartialSolution) Export() Export {
	e := Export{
		Instance: ps.inst.Name,
		Makespan: ps.makespan,
		Complete: ps.complete,
	}
	for _, m := range ps.inst.Machines {
		me := MachineExport{Machine: m, Operations: []OperationExport{}}
		for _, ref := range ps.sequences[m] {
			v, _ := ps.graph.OperationVertex(ref)
			start := ps.times[v]
			me.Operations = append(me.Operations, OperationExport{
				Job:   ref.Job,
				Op:    ref.Op,
				Start: start,
				End:   start + ps.graph.Vertex(v).Duration,
			})
		}
		e.Machines = append(e.Machines, me)
	}
	return e
}

// Starts returns the exported start time of every operation.
func (e Export) Starts() map[ir.OpRef]int64 {
	out := make(map[ir.OpRef]int64)
	for _, m := range e.Machines {
		for _, op := range m.Operations {
			out[op.Ref()] = op.Start
		}
	}
	return out
}

// Import rebuilds a PartialSolution from exported records against g. Only
// the machine orders are taken from e; start times are recomputed, so an
// edited export yields the earliest schedule for its sequences.
func Import(inst *ir.Instance, g *graph.Graph, e Export) (*PartialSolution, error) {
	seqs := make(map[ir.MachineID][]ir.OpRef, len(e.Machines))
	for _, m := range e.Machines {
		ops := slices.Clone(m.Operations)
		slices.SortStableFunc(ops, func(a, b OperationExport) int {
			return cmp.Compare(a.Start, b.Start)
		})
		for _, op := range ops {
			seqs[m.Machine] = append(seqs[m.Machine], op.Ref())
		}
	}
	return New(inst, g, seqs)
}
