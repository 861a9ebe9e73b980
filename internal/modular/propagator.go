package modular

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/shopsched/internal/ir"
	"github.com/roach88/shopsched/internal/schedule"
)

// Strategy selects the order in which modules are derived and exchange
// windows within one iteration.
type Strategy string

const (
	// StrategyBroadcast derives every module from the same tables, then
	// merges all results. Modules derive concurrently.
	StrategyBroadcast Strategy = "broadcast"
	// StrategyCocktail sweeps the line forward then backward, so a module
	// already sees what its predecessor learned in the same iteration.
	StrategyCocktail Strategy = "cocktail"
)

// ParseStrategy parses a strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case StrategyBroadcast:
		return StrategyBroadcast, nil
	case StrategyCocktail:
		return StrategyCocktail, nil
	}
	return "", fmt.Errorf("unknown strategy %q (want broadcast or cocktail)", s)
}

// FailurePolicy decides what a module failure does to the run.
type FailurePolicy string

const (
	// FailAbort stops the run with the ModuleError.
	FailAbort FailurePolicy = "abort"
	// FailContinue marks the module failed, freezes its tables and keeps
	// propagating between the remaining modules.
	FailContinue FailurePolicy = "continue"
)

// DefaultMaxIterations caps a run when no limit is configured.
const DefaultMaxIterations = 100

// Propagator runs bound propagation over a production line. It is not safe
// for concurrent use; each Run starts from unbounded tables.
type Propagator struct {
	line        *ir.ProductionLine
	modules     []*module
	strategy    Strategy
	maxIter     int
	sequencer   Sequencer
	failure     FailurePolicy
	parallelism int
}

// Option configures a Propagator.
type Option func(*Propagator)

// WithStrategy sets the iteration strategy. Default: broadcast.
func WithStrategy(s Strategy) Option {
	return func(p *Propagator) {
		p.strategy = s
	}
}

// WithMaxIterations caps the number of iterations.
func WithMaxIterations(n int) Option {
	return func(p *Propagator) {
		if n > 0 {
			p.maxIter = n
		}
	}
}

// WithSequencer fixes machine sequences inside every module before its
// windows are derived.
func WithSequencer(s Sequencer) Option {
	return func(p *Propagator) {
		p.sequencer = s
	}
}

// WithFailurePolicy sets what a module failure does. Default: abort.
func WithFailurePolicy(f FailurePolicy) Option {
	return func(p *Propagator) {
		p.failure = f
	}
}

// WithParallelism bounds concurrent module derivations under broadcast.
// Zero or less means one goroutine per module.
func WithParallelism(n int) Option {
	return func(p *Propagator) {
		p.parallelism = n
	}
}

// New validates line and prepares one constraint graph per module.
func New(line *ir.ProductionLine, opts ...Option) (*Propagator, error) {
	if line == nil {
		return nil, fmt.Errorf("nil production line")
	}
	if err := line.Validate(); err != nil {
		return nil, err
	}
	p := &Propagator{
		line:     line,
		strategy: StrategyBroadcast,
		maxIter:  DefaultMaxIterations,
		failure:  FailAbort,
	}
	for _, opt := range opts {
		opt(p)
	}
	switch p.strategy {
	case StrategyBroadcast, StrategyCocktail:
	default:
		return nil, fmt.Errorf("unknown strategy %q", p.strategy)
	}
	switch p.failure {
	case FailAbort, FailContinue:
	default:
		return nil, fmt.Errorf("unknown failure policy %q", p.failure)
	}

	for i := range line.Modules {
		m, err := newModule(i, &line.Modules[i])
		if err != nil {
			return nil, err
		}
		p.modules = append(p.modules, m)
	}
	return p, nil
}

// run holds the mutable tables of one propagation.
type run struct {
	p         *Propagator
	iteration int
	inputs    []ir.IntervalSpec
	outputs   []ir.IntervalSpec
	solutions []*schedule.PartialSolution
	failed    []error
	changed   bool
}

// Run propagates until no table changes or the iteration cap is hit.
// It returns an InfeasibleError when a window becomes empty and a
// ModuleError when a module fails under FailAbort. Snapshots of the
// iterations completed so far are returned alongside either error.
func (p *Propagator) Run(ctx context.Context) (Result, error) {
	r := &run{
		p:         p,
		inputs:    make([]ir.IntervalSpec, len(p.modules)),
		outputs:   make([]ir.IntervalSpec, len(p.modules)),
		solutions: make([]*schedule.PartialSolution, len(p.modules)),
		failed:    make([]error, len(p.modules)),
	}
	for i, m := range p.modules {
		r.inputs[i] = unbounded(m.pairs)
		r.outputs[i] = unbounded(m.pairs)
	}

	slog.Info("propagation starting",
		"line", p.line.Name,
		"modules", len(p.modules),
		"strategy", p.strategy,
		"max_iterations", p.maxIter,
	)

	var res Result
	for r.iteration < p.maxIter {
		if err := ctx.Err(); err != nil {
			return r.finish(res, false), err
		}
		r.iteration++
		r.changed = false

		var err error
		switch p.strategy {
		case StrategyCocktail:
			err = r.cocktail(ctx)
		default:
			err = r.broadcast(ctx)
		}
		if err != nil {
			slog.Info("propagation stopped",
				"line", p.line.Name,
				"iteration", r.iteration,
				"error", err,
			)
			return r.finish(res, false), err
		}

		res.Snapshots = append(res.Snapshots, r.snapshot())
		slog.Debug("propagation iteration",
			"iteration", r.iteration,
			"changed", r.changed,
		)
		if !r.changed {
			res = r.finish(res, true)
			slog.Info("propagation converged",
				"line", p.line.Name,
				"iterations", r.iteration,
			)
			return res, nil
		}
	}

	slog.Info("propagation hit iteration cap",
		"line", p.line.Name,
		"iterations", r.iteration,
	)
	return r.finish(res, false), nil
}

func unbounded(pairs []ir.JobPair) ir.IntervalSpec {
	spec := make(ir.IntervalSpec, len(pairs))
	for _, pr := range pairs {
		spec[pr] = ir.Unbounded()
	}
	return spec
}

func (r *run) finish(res Result, converged bool) Result {
	res.Converged = converged
	res.Iterations = r.iteration
	res.Final = r.snapshot()
	res.Final.Changed = r.changed
	res.Failed = nil
	for i, err := range r.failed {
		if err != nil {
			res.Failed = append(res.Failed, i)
		}
	}
	return res
}

func (r *run) active(i int) bool {
	return i >= 0 && i < len(r.p.modules) && r.failed[i] == nil
}

// broadcast derives every active module from the tables as they stood at
// the start of the iteration, then merges in module order.
func (r *run) broadcast(ctx context.Context) error {
	n := len(r.p.modules)
	ds := make([]derived, n)
	errs := make([]error, n)

	var g errgroup.Group
	if r.p.parallelism > 0 {
		g.SetLimit(r.p.parallelism)
	}
	for i, m := range r.p.modules {
		if !r.active(i) {
			continue
		}
		g.Go(func() error {
			ds[i], errs[i] = m.derive(ctx, r.inputs[i], r.outputs[i], r.p.sequencer)
			return nil
		})
	}
	_ = g.Wait()

	for i, err := range errs {
		if err == nil {
			continue
		}
		if err := r.fail(i, err); err != nil {
			return err
		}
	}

	for i := range ds {
		if !r.active(i) {
			continue
		}
		if err := r.mergeOwn(i, ds[i]); err != nil {
			return err
		}
	}
	for i := range ds {
		if !r.active(i) {
			continue
		}
		if err := r.sendRight(i, ds[i].output); err != nil {
			return err
		}
		if err := r.sendLeft(i, ds[i].input); err != nil {
			return err
		}
	}
	return nil
}

// cocktail sweeps forward pushing outputs right, then backward pushing
// inputs left. Every module derives from the freshest tables.
func (r *run) cocktail(ctx context.Context) error {
	for i := range r.p.modules {
		d, ok, err := r.deriveOne(ctx, i)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := r.mergeOwn(i, d); err != nil {
			return err
		}
		if err := r.sendRight(i, d.output); err != nil {
			return err
		}
	}
	for i := len(r.p.modules) - 1; i >= 0; i-- {
		d, ok, err := r.deriveOne(ctx, i)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := r.mergeOwn(i, d); err != nil {
			return err
		}
		if err := r.sendLeft(i, d.input); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) deriveOne(ctx context.Context, i int) (derived, bool, error) {
	if !r.active(i) {
		return derived{}, false, nil
	}
	d, err := r.p.modules[i].derive(ctx, r.inputs[i], r.outputs[i], r.p.sequencer)
	if err != nil {
		return derived{}, false, r.fail(i, err)
	}
	return d, true, nil
}

// fail records a module failure. Under FailAbort it returns the
// ModuleError; under FailContinue it returns nil. Infeasibility always
// stops the run.
func (r *run) fail(i int, err error) error {
	var ie *InfeasibleError
	if errors.As(err, &ie) {
		ie.Iteration = r.iteration
		return ie
	}
	m := r.p.modules[i]
	merr := &ModuleError{Iteration: r.iteration, Module: i, Name: m.name, Err: err}
	if r.p.failure == FailAbort {
		return merr
	}
	slog.Warn("module failed, continuing without it",
		"module", m.name,
		"iteration", r.iteration,
		"error", err,
	)
	r.failed[i] = merr
	r.solutions[i] = nil
	return nil
}

func (r *run) mergeOwn(i int, d derived) error {
	if d.solution != nil {
		r.solutions[i] = d.solution
	}
	if err := r.merge(i, "input", r.inputs[i], d.input); err != nil {
		return err
	}
	return r.merge(i, "output", r.outputs[i], d.output)
}

func (r *run) merge(i int, table string, dst, incoming ir.IntervalSpec) error {
	changed, conflicts := dst.Merge(incoming)
	if changed {
		r.changed = true
	}
	if len(conflicts) > 0 {
		return &InfeasibleError{
			Iteration: r.iteration,
			Module:    i,
			Table:     table,
			Conflicts: conflicts,
		}
	}
	return nil
}

// sendRight translates module i's exit windows into entry windows of
// module i+1.
func (r *run) sendRight(i int, output ir.IntervalSpec) error {
	j := i + 1
	if !r.active(j) {
		return nil
	}
	t, _ := r.p.line.Transfer(i)
	dst := r.p.modules[j]
	in := make(ir.IntervalSpec)
	for _, pr := range output.Pairs() {
		if !dst.has(pr.First) || !dst.has(pr.Second) {
			continue
		}
		in[pr] = t.BoundaryFor(pr.First, pr.Second).TranslateToDestination(output[pr])
	}
	return r.merge(j, "input", r.inputs[j], in)
}

// sendLeft translates module i's entry windows into exit windows of
// module i-1.
func (r *run) sendLeft(i int, input ir.IntervalSpec) error {
	j := i - 1
	if !r.active(j) {
		return nil
	}
	t, _ := r.p.line.Transfer(j)
	dst := r.p.modules[j]
	out := make(ir.IntervalSpec)
	for _, pr := range input.Pairs() {
		if !dst.has(pr.First) || !dst.has(pr.Second) {
			continue
		}
		out[pr] = t.BoundaryFor(pr.First, pr.Second).TranslateToSource(input[pr])
	}
	return r.merge(j, "output", r.outputs[j], out)
}

func (r *run) snapshot() Snapshot {
	s := Snapshot{Iteration: r.iteration, Changed: r.changed}
	for i, m := range r.p.modules {
		mb := ModuleBounds{
			Index:  i,
			Name:   m.name,
			Input:  ExportSpec(r.inputs[i]),
			Output: ExportSpec(r.outputs[i]),
		}
		if ps := r.solutions[i]; ps != nil {
			e := ps.Export()
			mb.Sequence = &e
		}
		if err := r.failed[i]; err != nil {
			mb.Failed = err.Error()
		}
		s.Modules = append(s.Modules, mb)
	}
	return s
}
