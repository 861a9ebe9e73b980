package solver

import (
	"context"
	"fmt"

	"github.com/roach88/shopsched/internal/graph"
	"github.com/roach88/shopsched/internal/ir"
)

// Solve builds the constraint graph of inst and searches it with policy
// until budget is spent. An instance whose constraints contradict each
// other yields a result with StopInfeasible and the offending cycle, not an
// error; malformed instances return a graph.StructuralError.
func Solve(ctx context.Context, inst *ir.Instance, policy Policy, budget Budget, opts ...Option) (Result, error) {
	g, err := graph.Build(inst)
	if err != nil {
		return Result{}, fmt.Errorf("build graph: %w", err)
	}
	s, err := New(inst, g, append([]Option{WithPolicy(policy)}, opts...)...)
	if err != nil {
		return Result{}, err
	}
	return s.Run(ctx, budget)
}
