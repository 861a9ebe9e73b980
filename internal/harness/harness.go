package harness

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/shopsched/internal/codec"
	"github.com/roach88/shopsched/internal/compiler"
	"github.com/roach88/shopsched/internal/graph"
	"github.com/roach88/shopsched/internal/ir"
	"github.com/roach88/shopsched/internal/modular"
	"github.com/roach88/shopsched/internal/solver"
	"github.com/roach88/shopsched/internal/store"
	"github.com/roach88/shopsched/internal/testutil"
)

// clockStep is how far the deterministic clock moves per reading.
const clockStep = time.Millisecond

// Harness runs one scenario against a private store.
type Harness struct {
	store *store.Store
	clock *testutil.DeterministicClock

	// Set by solve scenarios for solution_valid.
	inst  *ir.Instance
	graph *graph.Graph
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database with a deterministic
// clock, so runs are reproducible and golden files are stable. Execution:
//  1. Load the definition (CUE, JSON or YAML)
//  2. Solve or propagate, recording the session in the store
//  3. Check the expect clause and the assertions
//
// A returned error means the scenario could not run at all; failed checks
// are reported in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	result, _, err := run(scenario)
	return result, err
}

func run(scenario *Scenario) (*Result, *modular.Snapshot, error) {
	st, err := store.Open(store.MemoryPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store: st,
		clock: testutil.NewDeterministicClock(clockStep),
	}
	ctx := context.Background()

	result := NewResult()
	var final *modular.Snapshot
	if scenario.IsSolve() {
		err = h.solve(ctx, scenario, result)
	} else {
		final, err = h.propagate(ctx, scenario, result)
	}
	if err != nil {
		return nil, nil, err
	}

	for _, msg := range checkExpect(result.Outcome, scenario.Expect) {
		result.AddError(msg)
	}
	actx := &AssertionContext{
		Store:     st,
		Ctx:       ctx,
		SessionID: result.SessionID,
		Instance:  h.inst,
		Graph:     h.graph,
		Final:     final,
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, final, nil
}

// solve runs the solver to the scenario's budget and records every
// improving schedule and the final state.
func (h *Harness) solve(ctx context.Context, s *Scenario, result *Result) error {
	inst, err := compiler.LoadInstance(s.Instance)
	if err != nil {
		return fmt.Errorf("load instance: %w", err)
	}
	policy, err := s.Policy.policy()
	if err != nil {
		return err
	}
	g, err := graph.Build(inst)
	if err != nil {
		return fmt.Errorf("build graph: %w", err)
	}
	h.inst, h.graph = inst, g

	sess, err := h.store.CreateSolveSession(ctx, inst, policy)
	if err != nil {
		return err
	}
	result.SessionID = sess.ID

	sv, err := solver.New(inst, g,
		solver.WithPolicy(policy),
		solver.WithClock(h.clock),
		solver.WithObserver(func(ev solver.Event) {
			switch ev.Kind {
			case solver.EventImproved:
				result.Trace = append(result.Trace, TraceEvent{Type: EventImproved, Iteration: ev.Iteration, UpperBound: ev.UpperBound})
			case solver.EventFinished:
				result.Trace = append(result.Trace, TraceEvent{Type: EventFinished, Iteration: ev.Iteration, UpperBound: ev.UpperBound, StopReason: string(ev.StopReason)})
			}
		}),
	)
	if err != nil {
		return fmt.Errorf("create solver: %w", err)
	}
	res, err := sv.Run(ctx, solver.Budget{MaxIterations: s.Budget.MaxIterations})
	if err != nil {
		return fmt.Errorf("solve: %w", err)
	}

	for _, ps := range res.Solutions {
		if _, err := h.store.WriteSolution(ctx, sess.ID, ps.Export()); err != nil {
			return err
		}
	}
	state, err := sv.State()
	if err != nil {
		return err
	}
	if _, err := h.store.WriteState(ctx, sess.ID, state, res.Diagnostics, codec.CBOR); err != nil {
		return err
	}

	d := res.Diagnostics
	result.Outcome = Outcome{
		Feasible:   d.Feasible,
		Optimal:    d.Optimal,
		StopReason: string(d.StopReason),
	}
	if best := res.Best(); best != nil {
		e := best.Export()
		result.Outcome.Makespan = e.Makespan
		result.Outcome.Best = &e
	}
	return nil
}

// propagate runs the bounds propagator and records every snapshot. An
// infeasible line or a failed module is an outcome, not an error.
func (h *Harness) propagate(ctx context.Context, s *Scenario, result *Result) (*modular.Snapshot, error) {
	line, err := compiler.LoadLine(s.Line)
	if err != nil {
		return nil, fmt.Errorf("load line: %w", err)
	}

	settings := store.PropagateSettings{
		Strategy:      modular.StrategyBroadcast,
		MaxIterations: s.Propagation.MaxIterations,
		Sequenced:     s.Propagation.Sequenced,
	}
	if s.Propagation.Strategy != "" {
		if settings.Strategy, err = modular.ParseStrategy(s.Propagation.Strategy); err != nil {
			return nil, err
		}
	}
	opts := []modular.Option{modular.WithStrategy(settings.Strategy)}
	if settings.MaxIterations > 0 {
		opts = append(opts, modular.WithMaxIterations(settings.MaxIterations))
	}
	if settings.Sequenced {
		opts = append(opts, modular.WithSequencer(modular.SolverSequencer(solver.DefaultPolicy(), solver.Budget{})))
	}
	if s.Propagation.FailurePolicy != "" {
		opts = append(opts, modular.WithFailurePolicy(modular.FailurePolicy(s.Propagation.FailurePolicy)))
	}

	sess, err := h.store.CreatePropagateSession(ctx, line, settings)
	if err != nil {
		return nil, err
	}
	result.SessionID = sess.ID

	p, err := modular.New(line, opts...)
	if err != nil {
		return nil, fmt.Errorf("create propagator: %w", err)
	}
	res, runErr := p.Run(ctx)
	if runErr != nil && !modular.IsInfeasible(runErr) && !modular.IsModuleError(runErr) {
		return nil, fmt.Errorf("propagate: %w", runErr)
	}

	for _, snap := range res.Snapshots {
		if _, err := h.store.WriteSnapshot(ctx, sess.ID, snap); err != nil {
			return nil, err
		}
		result.Trace = append(result.Trace, TraceEvent{Type: EventSnapshot, Iteration: snap.Iteration, Changed: snap.Changed})
	}

	result.Outcome = Outcome{
		Feasible:   runErr == nil,
		Converged:  res.Converged,
		Iterations: res.Iterations,
	}
	if runErr != nil {
		result.Outcome.StopReason = runErr.Error()
	}
	final := res.Final
	return &final, nil
}

// policy converts the YAML form into a solver policy.
func (p PolicySpec) policy() (solver.Policy, error) {
	policy := solver.DefaultPolicy()
	if p.Kind != "" {
		kind, err := solver.ParsePolicyKind(p.Kind)
		if err != nil {
			return solver.Policy{}, err
		}
		policy.Kind = kind
	}
	policy.RankFactor = p.RankFactor
	policy.Seed = p.Seed
	if err := policy.Validate(); err != nil {
		return solver.Policy{}, fmt.Errorf("policy: %w", err)
	}
	return policy, nil
}

// checkExpect compares the outcome with the expect clause.
func checkExpect(o Outcome, e *ExpectClause) []string {
	if e == nil {
		return nil
	}
	var errs []string
	mismatch := func(field string, want, got any) {
		errs = append(errs, fmt.Sprintf("expect %s: want %v, got %v", field, want, got))
	}
	if e.Feasible != nil && *e.Feasible != o.Feasible {
		mismatch("feasible", *e.Feasible, o.Feasible)
	}
	if e.Optimal != nil && *e.Optimal != o.Optimal {
		mismatch("optimal", *e.Optimal, o.Optimal)
	}
	if e.Makespan != nil && *e.Makespan != o.Makespan {
		mismatch("makespan", *e.Makespan, o.Makespan)
	}
	if e.StopReason != "" && e.StopReason != o.StopReason {
		mismatch("stop_reason", e.StopReason, o.StopReason)
	}
	if e.Converged != nil && *e.Converged != o.Converged {
		mismatch("converged", *e.Converged, o.Converged)
	}
	if e.Iterations != nil && *e.Iterations != o.Iterations {
		mismatch("iterations", *e.Iterations, o.Iterations)
	}
	return errs
}
