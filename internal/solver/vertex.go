package solver

import (
	"strconv"
	"strings"

	"github.com/roach88/shopsched/internal/ir"
)

// VertexState is the lifecycle stage of a search vertex:
// Unexpanded -> Expanded, or Unexpanded -> Pruned | Completed.
type VertexState string

const (
	StateUnexpanded VertexState = "unexpanded"
	StateExpanded   VertexState = "expanded"
	StatePruned     VertexState = "pruned"
	StateCompleted  VertexState = "completed"
)

// PruneReason says why a vertex was cut.
type PruneReason string

const (
	PruneNone PruneReason = ""
	// PruneInfeasible: the sequencing decisions close a contradictory cycle.
	PruneInfeasible PruneReason = "infeasible"
	// PruneBound: the lower bound cannot beat the incumbent.
	PruneBound PruneReason = "bound"
)

// Vertex is one node of the decision diagram.
//
// Sequences is indexed by machine position in the instance. Without
// history it is released once the vertex leaves the frontier, except for
// the incumbent; Key always identifies the state.
type Vertex struct {
	ID         int          `json:"id"`
	Parent     int          `json:"parent"`
	Depth      int          `json:"depth"`
	Key        string       `json:"key"`
	Sequences  [][]ir.OpRef `json:"sequences,omitempty"`
	LowerBound int64        `json:"lower_bound"`
	UpperBound int64        `json:"upper_bound"`
	State      VertexState  `json:"state"`
	Reason     PruneReason  `json:"reason,omitempty"`
}

// IsRoot reports whether v is the root (its own parent).
func (v Vertex) IsRoot() bool { return v.Parent == v.ID }

// HistoryEdge links a vertex to a child it generated or re-reached.
type HistoryEdge struct {
	Parent int `json:"parent"`
	Child  int `json:"child"`
}

// stateKey encodes per-machine sequences as "j.o,j.o|j.o|...".
func stateKey(seqs [][]ir.OpRef) string {
	var b strings.Builder
	for mi, seq := range seqs {
		if mi > 0 {
			b.WriteByte('|')
		}
		for i, r := range seq {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Itoa(int(r.Job)))
			b.WriteByte('.')
			b.WriteString(strconv.Itoa(int(r.Op)))
		}
	}
	return b.String()
}

// appendOp returns a copy of seqs with ref appended on machine mi. Only the
// changed machine's slice is copied; the others are shared, which is safe
// because sequences are never mutated after creation.
func appendOp(seqs [][]ir.OpRef, mi int, ref ir.OpRef) [][]ir.OpRef {
	out := make([][]ir.OpRef, len(seqs))
	copy(out, seqs)
	row := make([]ir.OpRef, len(seqs[mi]), len(seqs[mi])+1)
	copy(row, seqs[mi])
	out[mi] = append(row, ref)
	return out
}

func sequenced(seqs [][]ir.OpRef) map[ir.OpRef]bool {
	set := make(map[ir.OpRef]bool)
	for _, seq := range seqs {
		for _, r := range seq {
			set[r] = true
		}
	}
	return set
}
