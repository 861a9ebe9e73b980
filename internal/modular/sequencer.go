package modular

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/shopsched/internal/graph"
	"github.com/roach88/shopsched/internal/ir"
	"github.com/roach88/shopsched/internal/schedule"
	"github.com/roach88/shopsched/internal/solver"
)

// Sequencer fixes machine sequences inside one module before windows are
// derived. g already carries the module's current table edges; the
// returned solution must be built on g.
type Sequencer func(ctx context.Context, module int, inst *ir.Instance, g *graph.Graph) (*schedule.PartialSolution, error)

// ErrNoSequence is returned by SolverSequencer when the search ends
// without a feasible schedule.
var ErrNoSequence = errors.New("no feasible sequence")

// SolverSequencer returns a Sequencer that runs a branch-and-bound search
// on each module and keeps the best schedule it finds.
func SolverSequencer(policy solver.Policy, budget solver.Budget) Sequencer {
	return func(ctx context.Context, module int, inst *ir.Instance, g *graph.Graph) (*schedule.PartialSolution, error) {
		s, err := solver.New(inst, g, solver.WithPolicy(policy), solver.WithKeepSolutions(1))
		if err != nil {
			return nil, err
		}
		res, err := s.Run(ctx, budget)
		if err != nil {
			return nil, err
		}
		best := res.Best()
		if best == nil {
			return nil, fmt.Errorf("%w (stop: %s)", ErrNoSequence, res.Diagnostics.StopReason)
		}
		return best, nil
	}
}
