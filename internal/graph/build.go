package graph

import (
	"github.com/roach88/shopsched/internal/ir"
)

// Build creates the constraint graph of an instance.
//
// Vertices: one source per machine (in declaration order), one vertex per
// operation (in job order), and a completion sink. All sources are tied to
// the first one with zero-weight edges in both directions so every source
// means "time zero" and absolute due dates stay absolute.
//
// Edges (added with the keep-tightest policy, so overlapping constraints
// between the same pair merge into the strongest):
//   - source(m) -> op on m, weight 0 (machine available from zero)
//   - source(first machine of job) -> first op, weight release date
//   - op k -> op k+1, weight p(k)
//   - last op -> sink, weight p(last)
//   - last op -> origin, weight -(due - p(last)) when the job has a due date
//   - lag from -> to, weight min; to -> from, weight -max
//
// The graph's own duplicate policy (opts) applies to later AddEdge calls.
func Build(inst *ir.Instance, opts ...Option) (*Graph, error) {
	if err := validateInstance(inst); err != nil {
		return nil, err
	}

	g := New(opts...)

	origin := g.AddSource(inst.Machines[0])
	for _, m := range inst.Machines[1:] {
		src := g.AddSource(m)
		if err := g.addEdge(origin, src, 0, DuplicateKeepTightest); err != nil {
			return nil, err
		}
		if err := g.addEdge(src, origin, 0, DuplicateKeepTightest); err != nil {
			return nil, err
		}
	}

	for _, job := range inst.Jobs {
		for _, op := range job.Operations {
			if _, err := g.AddVertex(op); err != nil {
				return nil, err
			}
		}
	}
	sink := g.AddSink()

	add := func(src, dst VertexID, w int64) error {
		return g.addEdge(src, dst, w, DuplicateKeepTightest)
	}

	for _, job := range inst.Jobs {
		ops := job.Operations
		for k, op := range ops {
			v, _ := g.OperationVertex(op.Ref())
			src, _ := g.MachineSource(op.Machine)
			if err := add(src, v, 0); err != nil {
				return nil, err
			}
			if k == 0 && job.ReleaseDate > 0 {
				if err := add(src, v, job.ReleaseDate); err != nil {
					return nil, err
				}
			}
			if k+1 < len(ops) {
				next, _ := g.OperationVertex(ops[k+1].Ref())
				if err := add(v, next, op.ProcessingTime); err != nil {
					return nil, err
				}
			}
		}

		last := ops[len(ops)-1]
		lv, _ := g.OperationVertex(last.Ref())
		if err := add(lv, sink, last.ProcessingTime); err != nil {
			return nil, err
		}
		if job.HasDue {
			if err := add(lv, origin, -(job.DueDate - last.ProcessingTime)); err != nil {
				return nil, err
			}
		}
	}

	for _, lag := range inst.Lags {
		from, _ := g.OperationVertex(lag.From)
		to, _ := g.OperationVertex(lag.To)
		if err := add(from, to, lag.Min); err != nil {
			return nil, err
		}
		if lag.HasMax {
			if err := add(to, from, -lag.Max); err != nil {
				return nil, err
			}
		}
	}

	return g, nil
}

// SequenceEdge returns the edge that puts b directly after a on their
// shared machine: weight p(a) + setup(job(a), job(b)).
func (g *Graph) SequenceEdge(inst *ir.Instance, a, b VertexID) Edge {
	va, vb := g.vertices[a], g.vertices[b]
	return Edge{
		Src:    a,
		Dst:    b,
		Weight: va.Duration + inst.Setup(va.Machine, va.Op.Job, vb.Op.Job),
	}
}

func validateInstance(inst *ir.Instance) error {
	if inst == nil {
		return structural(ErrCodeInvalidInstance, "instance is nil")
	}
	if len(inst.Machines) == 0 {
		return structural(ErrCodeInvalidInstance, "instance %q has no machines", inst.Name)
	}
	machines := make(map[ir.MachineID]bool, len(inst.Machines))
	for _, m := range inst.Machines {
		if machines[m] {
			return structural(ErrCodeInvalidInstance, "machine %d declared twice", m)
		}
		machines[m] = true
	}

	jobs := make(map[ir.JobID]bool, len(inst.Jobs))
	for _, job := range inst.Jobs {
		if jobs[job.ID] {
			return structural(ErrCodeDuplicateVertex, "job %d declared twice", job.ID)
		}
		jobs[job.ID] = true
		if len(job.Operations) == 0 {
			return structural(ErrCodeInvalidInstance, "job %d has no operations", job.ID)
		}
		if job.ReleaseDate < 0 {
			return structural(ErrCodeInvalidInstance, "job %d has a negative release date", job.ID)
		}
		for k, op := range job.Operations {
			if op.Job != job.ID || int(op.ID) != k {
				return structural(ErrCodeInvalidInstance, "operation %d of job %d is mislabelled as %s", k, job.ID, op.Ref())
			}
			if !machines[op.Machine] {
				return structural(ErrCodeInvalidInstance, "operation %s uses unknown machine %d", op.Ref(), op.Machine)
			}
			if op.ProcessingTime < 0 {
				return structural(ErrCodeInvalidInstance, "operation %s has a negative processing time", op.Ref())
			}
		}
	}

	for _, lag := range inst.Lags {
		if _, ok := inst.Operation(lag.From); !ok {
			return structural(ErrCodeUnknownVertex, "lag references unknown operation %s", lag.From)
		}
		if _, ok := inst.Operation(lag.To); !ok {
			return structural(ErrCodeUnknownVertex, "lag references unknown operation %s", lag.To)
		}
	}
	for _, s := range inst.Setups {
		if !machines[s.Machine] {
			return structural(ErrCodeInvalidInstance, "setup uses unknown machine %d", s.Machine)
		}
		if s.Duration < 0 {
			return structural(ErrCodeInvalidInstance, "setup %d->%d on machine %d is negative", s.FromJob, s.ToJob, s.Machine)
		}
	}
	return nil
}
