package modular

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/shopsched/internal/graph"
	"github.com/roach88/shopsched/internal/ir"
	"github.com/roach88/shopsched/internal/schedule"
)

// module is the static part of one line stage: its constraint graph with
// an exit vertex per job.
type module struct {
	index int
	name  string
	inst  *ir.Instance
	base  *graph.Graph
	jobs  []ir.JobID // ascending
	pairs []ir.JobPair
	entry map[ir.JobID]graph.VertexID
	exit  map[ir.JobID]graph.VertexID
}

func newModule(index int, m *ir.Module) (*module, error) {
	inst := &m.Instance
	g, err := graph.Build(inst, graph.WithDuplicatePolicy(graph.DuplicateKeepTightest))
	if err != nil {
		return nil, fmt.Errorf("module %d (%s): %w", index, m.Name, err)
	}

	mod := &module{
		index: index,
		name:  m.Name,
		inst:  inst,
		base:  g,
		entry: make(map[ir.JobID]graph.VertexID, len(inst.Jobs)),
		exit:  make(map[ir.JobID]graph.VertexID, len(inst.Jobs)),
	}
	for _, job := range inst.Jobs {
		first, _ := g.OperationVertex(job.Operations[0].Ref())
		lastOp := job.Operations[len(job.Operations)-1]
		last, _ := g.OperationVertex(lastOp.Ref())

		// The exit vertex sits exactly at the finish of the last operation.
		exit := g.AddAux(fmt.Sprintf("exit %d", job.ID))
		if err := g.AddEdge(last, exit, lastOp.ProcessingTime); err != nil {
			return nil, err
		}
		if err := g.AddEdge(exit, last, -lastOp.ProcessingTime); err != nil {
			return nil, err
		}

		mod.entry[job.ID] = first
		mod.exit[job.ID] = exit
		mod.jobs = append(mod.jobs, job.ID)
	}
	slices.Sort(mod.jobs)
	mod.pairs = pairsOf(mod.jobs)
	return mod, nil
}

// pairsOf lists (j, k) for j < k.
func pairsOf(jobs []ir.JobID) []ir.JobPair {
	var out []ir.JobPair
	for i := range jobs {
		for k := i + 1; k < len(jobs); k++ {
			out = append(out, ir.JobPair{First: jobs[i], Second: jobs[k]})
		}
	}
	return out
}

func (m *module) has(j ir.JobID) bool {
	_, ok := m.entry[j]
	return ok
}

// derived is one module's view of its windows after a derivation.
type derived struct {
	input    ir.IntervalSpec
	output   ir.IntervalSpec
	solution *schedule.PartialSolution
}

// derive computes the tightest windows implied by the module graph plus
// the current tables. It works on a copy of the base graph and never
// mutates the tables.
func (m *module) derive(ctx context.Context, in, out ir.IntervalSpec, seq Sequencer) (derived, error) {
	g := m.base.Clone()
	if err := addWindowEdges(g, in, m.entry); err != nil {
		return derived{}, err
	}
	if err := addWindowEdges(g, out, m.exit); err != nil {
		return derived{}, err
	}

	if res := graph.ComputeASAPST(g); !res.Feasible() {
		return derived{}, &InfeasibleError{Module: m.index, Cycle: res.Cycle}
	}

	var d derived
	var view graph.View = g
	if seq != nil {
		ps, err := seq(ctx, m.index, m.inst, g)
		if err != nil {
			return derived{}, fmt.Errorf("sequence: %w", err)
		}
		applied, err := ps.Apply()
		if err != nil {
			return derived{}, err
		}
		view = applied
		d.solution = ps
	}

	var err error
	if d.input, err = windows(view, m.jobs, m.pairs, m.entry); err != nil {
		return derived{}, m.infeasible(err)
	}
	if d.output, err = windows(view, m.jobs, m.pairs, m.exit); err != nil {
		return derived{}, m.infeasible(err)
	}
	return d, nil
}

func (m *module) infeasible(err error) error {
	var ge *graph.InfeasibleError
	if errors.As(err, &ge) {
		return &InfeasibleError{Module: m.index, Cycle: ge.Cycle}
	}
	return err
}

// addWindowEdges encodes t_k - t_j in [min, max] as j->k (min) and
// k->j (-max), skipping unbounded ends.
func addWindowEdges(g *graph.Graph, spec ir.IntervalSpec, at map[ir.JobID]graph.VertexID) error {
	for _, p := range spec.Pairs() {
		iv := spec[p]
		j, okj := at[p.First]
		k, okk := at[p.Second]
		if !okj || !okk {
			continue
		}
		if iv.Min != ir.NegInf {
			if err := g.AddEdge(j, k, iv.Min); err != nil {
				return err
			}
		}
		if iv.Max != ir.PosInf {
			if err := g.AddEdge(k, j, -iv.Max); err != nil {
				return err
			}
		}
	}
	return nil
}

// windows derives [LP(j->k), -LP(k->j)] for every pair with one
// single-source relaxation per job.
func windows(v graph.View, jobs []ir.JobID, pairs []ir.JobPair, at map[ir.JobID]graph.VertexID) (ir.IntervalSpec, error) {
	from := make(map[ir.JobID]graph.PathTimes, len(jobs))
	for _, j := range jobs {
		res := graph.LongestPathsFrom(v, at[j])
		if !res.Feasible() {
			return nil, res.Err()
		}
		from[j] = res.Times
	}

	spec := make(ir.IntervalSpec, len(pairs))
	for _, p := range pairs {
		iv := ir.Interval{
			Min: from[p.First][at[p.Second]],
			Max: ir.PosInf,
		}
		if back := from[p.Second][at[p.First]]; back != ir.NegInf {
			iv.Max = -back
		}
		spec[p] = iv
	}
	return spec, nil
}
