package solver

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"

	"github.com/roach88/shopsched/internal/graph"
	"github.com/roach88/shopsched/internal/ir"
	"github.com/roach88/shopsched/internal/schedule"
)

// Defaults for the solver options.
const (
	DefaultProgressEvery = 1000
	DefaultEventBuffer   = 64

	// alphaStep is how far the adaptive rank factor must move before the
	// frontier is re-ordered.
	alphaStep = 0.05
)

type opInfo struct {
	ref    ir.OpRef
	vertex graph.VertexID
	job    int // declaration index
	stage  ir.OperationID
	p      int64
}

type machineInfo struct {
	id  ir.MachineID
	ops []opInfo // job order, then stage
}

// Solver is one branch-and-bound search over an instance.
type Solver struct {
	inst  *ir.Instance
	graph *graph.Graph
	hash  string

	policy        Policy
	history       bool
	progressEvery int
	eventBuffer   int
	keep          int
	observer      Observer
	clock         Clock

	machines []machineInfo
	vertexOf map[ir.OpRef]graph.VertexID
	total    int

	vertices  []Vertex
	index     map[string]int
	times     map[int]graph.PathTimes
	edges     []HistoryEdge
	frontier  *frontier
	seq       *sequence
	pcg       *rand.PCG
	rng       *rand.Rand
	alpha     float64
	rootCycle []graph.Edge

	incumbent  int
	upper      int64
	solutions  []*schedule.PartialSolution
	iterations int
	stats      Stats

	sink func(Event)
}

// Option configures a Solver.
type Option func(*Solver)

// WithPolicy sets the exploration policy.
//
// Default: DefaultPolicy() (best-first).
func WithPolicy(p Policy) Option {
	return func(s *Solver) {
		s.policy = p
	}
}

// WithHistory keeps every vertex's sequences and every diagram edge so the
// whole expansion can be inspected afterwards. Costs memory.
func WithHistory(enabled bool) Option {
	return func(s *Solver) {
		s.history = enabled
	}
}

// WithProgressEvery sets how many iterations pass between progress events.
//
// Default: 1000 (DefaultProgressEvery)
func WithProgressEvery(n int) Option {
	return func(s *Solver) {
		s.progressEvery = n
	}
}

// WithEventBuffer sets the capacity of the channel returned by
// Run.Events. One slot is held for the finished event.
//
// Default: 64 (DefaultEventBuffer)
func WithEventBuffer(n int) Option {
	return func(s *Solver) {
		s.eventBuffer = n
	}
}

// WithKeepSolutions bounds how many improving solutions are retained, most
// recent first to go last. Zero keeps all of them.
func WithKeepSolutions(n int) Option {
	return func(s *Solver) {
		s.keep = n
	}
}

// WithObserver registers a synchronous event callback.
func WithObserver(o Observer) Option {
	return func(s *Solver) {
		s.observer = o
	}
}

// WithClock replaces the wall clock used for timeouts and elapsed times.
func WithClock(c Clock) Option {
	return func(s *Solver) {
		s.clock = c
	}
}

func newSolver(inst *ir.Instance, g *graph.Graph, opts []Option) (*Solver, error) {
	hash, err := ir.InstanceHash(inst)
	if err != nil {
		return nil, fmt.Errorf("hash instance: %w", err)
	}

	s := &Solver{
		inst:          inst,
		graph:         g,
		hash:          hash,
		policy:        DefaultPolicy(),
		progressEvery: DefaultProgressEvery,
		eventBuffer:   DefaultEventBuffer,
		clock:         systemClock{},
		vertexOf:      make(map[ir.OpRef]graph.VertexID),
		index:         make(map[string]int),
		times:         make(map[int]graph.PathTimes),
		incumbent:     -1,
		upper:         ir.PosInf,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.policy.Validate(); err != nil {
		return nil, err
	}
	if s.progressEvery <= 0 {
		s.progressEvery = DefaultProgressEvery
	}
	if s.eventBuffer <= 0 {
		s.eventBuffer = DefaultEventBuffer
	}

	for _, m := range inst.Machines {
		s.machines = append(s.machines, machineInfo{id: m})
	}
	machineIdx := make(map[ir.MachineID]int, len(inst.Machines))
	for i, m := range inst.Machines {
		machineIdx[m] = i
	}
	for ji, job := range inst.Jobs {
		for _, op := range job.Operations {
			v, ok := g.OperationVertex(op.Ref())
			if !ok {
				return nil, fmt.Errorf("operation %s missing from graph", op.Ref())
			}
			s.vertexOf[op.Ref()] = v
			mi := machineIdx[op.Machine]
			s.machines[mi].ops = append(s.machines[mi].ops, opInfo{
				ref: op.Ref(), vertex: v, job: ji, stage: op.ID, p: op.ProcessingTime,
			})
			s.total++
		}
	}

	s.frontier = newFrontier(s.less)
	s.pcg = rand.NewPCG(s.policy.Seed, s.policy.Seed^0x9e3779b97f4a7c15)
	s.rng = rand.New(s.pcg)
	s.alpha = s.policy.alpha(0)
	return s, nil
}

// New creates a search rooted at the empty schedule of inst. g must be the
// graph built from inst.
func New(inst *ir.Instance, g *graph.Graph, opts ...Option) (*Solver, error) {
	s, err := newSolver(inst, g, opts)
	if err != nil {
		return nil, err
	}
	s.seq = newSequenceAt(0)

	root := Vertex{
		ID:         0,
		Parent:     0,
		Sequences:  make([][]ir.OpRef, len(s.machines)),
		UpperBound: ir.PosInf,
		State:      StateUnexpanded,
	}
	root.Key = stateKey(root.Sequences)
	s.vertices = append(s.vertices, root)
	s.index[root.Key] = 0
	s.stats.Created++

	res := graph.ComputeASAPST(g)
	if !res.Feasible() {
		s.rootCycle = res.Cycle
		s.prune(0, PruneInfeasible)
		return s, nil
	}
	s.vertices[0].LowerBound = s.lowerBound(root.Sequences, g, res.Times)
	if s.total == 0 {
		if err := s.complete(0, res.Times); err != nil {
			return nil, err
		}
		return s, nil
	}
	s.times[0] = res.Times
	s.push(0)
	return s, nil
}

// less orders the frontier under the configured policy.
func (s *Solver) less(a, b FrontierEntry) bool {
	switch s.policy.Kind {
	case PolicyBreadth:
		return a.Seq < b.Seq
	case PolicyDepth:
		return a.Seq > b.Seq
	case PolicyRandom:
		if a.Key != b.Key {
			return a.Key < b.Key
		}
		return a.Seq < b.Seq
	}

	va, vb := &s.vertices[a.Vertex], &s.vertices[b.Vertex]
	if s.policy.ranked() {
		ra := rank(s.alpha, va.Depth, s.total, va.LowerBound, s.upper)
		rb := rank(s.alpha, vb.Depth, s.total, vb.LowerBound, s.upper)
		if ra != rb {
			return ra < rb
		}
	} else if va.LowerBound != vb.LowerBound {
		return va.LowerBound < vb.LowerBound
	}
	if va.Depth != vb.Depth {
		return va.Depth > vb.Depth
	}
	return a.Seq < b.Seq
}

func (s *Solver) push(id int) {
	e := FrontierEntry{Vertex: id, Seq: s.seq.Next()}
	if s.policy.Kind == PolicyRandom {
		e.Key = s.rng.Uint64()
	}
	s.frontier.Push(e)
}

// Run searches until the frontier is empty or the budget is spent. Budget
// exhaustion is not an error: the result carries the incumbent and
// Diagnostics.Optimal is false.
func (s *Solver) Run(ctx context.Context, b Budget) (Result, error) {
	return s.run(ctx, b)
}

// Start runs the search on its own goroutine.
func (s *Solver) Start(ctx context.Context, b Budget) *Run {
	r := &Run{
		events: make(chan Event, s.eventBuffer),
		done:   make(chan struct{}),
	}
	// The sink is the only sender, so a slot kept free for the finished
	// event is never taken by anyone else.
	s.sink = func(ev Event) {
		if ev.Kind != EventFinished && len(r.events) >= cap(r.events)-1 {
			return
		}
		select {
		case r.events <- ev:
		default:
		}
	}
	go func() {
		defer close(r.done)
		defer close(r.events)
		r.result, r.err = s.run(ctx, b)
		s.sink = nil
	}()
	return r
}

func (s *Solver) run(ctx context.Context, b Budget) (Result, error) {
	enf := newBudgetEnforcer(b, s.clock)
	slog.Info("solver starting",
		"instance", s.inst.Name,
		"policy", s.policy.Kind,
		"operations", s.total,
		"frontier", s.frontier.Len(),
		"iterations", s.iterations,
	)

	reason := StopExhausted
	if s.rootCycle != nil {
		reason = StopInfeasible
	}
	for s.frontier.Len() > 0 {
		if r := enf.Check(ctx); r != stopNone {
			reason = r
			break
		}

		id := s.frontier.Pop().Vertex
		if s.vertices[id].LowerBound >= s.upper {
			s.prune(id, PruneBound)
			continue
		}
		if err := s.expand(id); err != nil {
			return Result{}, fmt.Errorf("expand vertex %d: %w", id, err)
		}
		enf.Step()
		s.iterations++

		if s.iterations%s.progressEvery == 0 {
			slog.Debug("solver progress",
				"iteration", s.iterations,
				"frontier", s.frontier.Len(),
				"upper_bound", s.upper,
			)
			s.notify(Event{Kind: EventProgress, Iteration: s.iterations, Elapsed: enf.Elapsed(), Frontier: s.frontier.Len(), UpperBound: s.upper})
		}
		if s.policy.Kind == PolicyAdaptiveRank {
			if a := s.policy.alpha(s.iterations); math.Abs(a-s.alpha) >= alphaStep {
				s.alpha = a
				s.frontier.Reheap()
			}
		}
	}

	res := s.result(reason, enf.Elapsed())
	slog.Info("solver stopped",
		"reason", reason,
		"iterations", s.iterations,
		"run_iterations", enf.Current(),
		"upper_bound", s.upper,
		"optimal", res.Diagnostics.Optimal,
	)
	s.notify(Event{Kind: EventFinished, Iteration: s.iterations, Elapsed: enf.Elapsed(), Frontier: s.frontier.Len(), UpperBound: s.upper, StopReason: reason})
	return res, nil
}

func (s *Solver) notify(ev Event) {
	if s.observer != nil {
		s.observer(ev)
	}
	if s.sink != nil {
		s.sink(ev)
	}
}

// overlay is the base graph plus the sequencing edges of seqs.
func (s *Solver) overlay(seqs [][]ir.OpRef) *graph.Overlay {
	var edges []graph.Edge
	for _, seq := range seqs {
		for i := 1; i < len(seq); i++ {
			edges = append(edges, s.graph.SequenceEdge(s.inst, s.vertexOf[seq[i-1]], s.vertexOf[seq[i]]))
		}
	}
	return graph.NewOverlay(s.graph, edges)
}

// eligible lists the unsequenced operations of machine mi that may be
// appended next: earlier operations of the same job on this machine are
// already sequenced and, under a fixed job order, so are the same-stage
// operations of earlier jobs.
func (s *Solver) eligible(mi int, done map[ir.OpRef]bool) []opInfo {
	var out []opInfo
	ops := s.machines[mi].ops
	for _, op := range ops {
		if done[op.ref] {
			continue
		}
		ok := true
		for _, other := range ops {
			if other.ref == op.ref || done[other.ref] {
				continue
			}
			if other.ref.Job == op.ref.Job && other.stage < op.stage {
				ok = false
				break
			}
			if s.inst.FixedJobOrder && other.stage == op.stage && other.job < op.job {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, op)
		}
	}
	return out
}

// lowerBound combines the longest-path makespan with a machine-load bound:
// the unsequenced work of a machine cannot start before its last sequenced
// operation finishes, nor before the earliest of those operations can
// start.
func (s *Solver) lowerBound(seqs [][]ir.OpRef, v graph.View, times graph.PathTimes) int64 {
	lb := graph.Makespan(v, times)
	done := sequenced(seqs)
	for mi, m := range s.machines {
		var ready int64
		if seq := seqs[mi]; len(seq) > 0 {
			last := s.vertexOf[seq[len(seq)-1]]
			ready = times[last] + s.graph.Vertex(last).Duration
		}
		earliest := ir.PosInf
		var work int64
		for _, op := range m.ops {
			if done[op.ref] {
				continue
			}
			work += op.p
			earliest = min(earliest, times[op.vertex])
		}
		if earliest == ir.PosInf {
			continue
		}
		lb = max(lb, max(ready, earliest)+work)
	}
	return lb
}

func (s *Solver) expand(id int) error {
	parent := s.vertices[id]
	times, ok := s.times[id]
	if !ok {
		res := graph.ComputeASAPST(s.overlay(parent.Sequences))
		if !res.Feasible() {
			return corrupt("frontier vertex %d is infeasible", id)
		}
		times = res.Times
	}
	delete(s.times, id)

	done := sequenced(parent.Sequences)
	for mi := range s.machines {
		for _, op := range s.eligible(mi, done) {
			seqs := appendOp(parent.Sequences, mi, op.ref)
			key := stateKey(seqs)
			if existing, ok := s.index[key]; ok {
				s.stats.Deduplicated++
				s.record(id, existing)
				continue
			}
			if err := s.createChild(id, parent.Depth+1, seqs, key, times); err != nil {
				return err
			}
		}
	}

	s.vertices[id].State = StateExpanded
	s.stats.Expanded++
	s.release(id)
	return nil
}

func (s *Solver) createChild(parent, depth int, seqs [][]ir.OpRef, key string, parentTimes graph.PathTimes) error {
	id := len(s.vertices)
	s.vertices = append(s.vertices, Vertex{
		ID:         id,
		Parent:     parent,
		Depth:      depth,
		Key:        key,
		Sequences:  seqs,
		UpperBound: ir.PosInf,
		State:      StateUnexpanded,
	})
	s.index[key] = id
	s.stats.Created++
	s.record(parent, id)

	ov := s.overlay(seqs)
	res := graph.ComputeASAPSTFrom(ov, parentTimes)
	if !res.Feasible() {
		s.prune(id, PruneInfeasible)
		return nil
	}

	lb := s.lowerBound(seqs, ov, res.Times)
	s.vertices[id].LowerBound = lb
	if depth == s.total {
		return s.complete(id, res.Times)
	}
	if lb >= s.upper {
		s.prune(id, PruneBound)
		return nil
	}
	s.times[id] = res.Times
	s.push(id)
	return nil
}

// complete turns a vertex with every operation sequenced into a candidate
// solution. Its lower bound is its makespan.
func (s *Solver) complete(id int, times graph.PathTimes) error {
	v := &s.vertices[id]
	v.State = StateCompleted
	v.UpperBound = v.LowerBound
	s.stats.Completed++

	if v.UpperBound < s.upper {
		ps, err := schedule.NewWithTimes(s.inst, s.graph, s.sequenceMap(v.Sequences), times)
		if err != nil {
			return err
		}
		prev := s.incumbent
		s.incumbent = id
		s.upper = v.UpperBound
		s.solutions = append(s.solutions, ps)
		if s.keep > 0 && len(s.solutions) > s.keep {
			s.solutions = s.solutions[len(s.solutions)-s.keep:]
		}
		if prev >= 0 {
			s.release(prev)
		}

		slog.Info("solution improved",
			"iteration", s.iterations,
			"makespan", s.upper,
			"vertex", id,
		)
		s.notify(Event{Kind: EventImproved, Iteration: s.iterations, Frontier: s.frontier.Len(), UpperBound: s.upper})
		if s.policy.ranked() {
			s.frontier.Reheap()
		}
	}
	s.release(id)
	return nil
}

func (s *Solver) prune(id int, reason PruneReason) {
	v := &s.vertices[id]
	v.State = StatePruned
	v.Reason = reason
	switch reason {
	case PruneBound:
		s.stats.PrunedBound++
	case PruneInfeasible:
		s.stats.PrunedInfeasible++
	}
	delete(s.times, id)
	s.release(id)
}

// release drops a vertex's sequences once nothing needs them.
func (s *Solver) release(id int) {
	if s.history || id == s.incumbent {
		return
	}
	s.vertices[id].Sequences = nil
}

func (s *Solver) record(parent, child int) {
	if s.history {
		s.edges = append(s.edges, HistoryEdge{Parent: parent, Child: child})
	}
}

func (s *Solver) sequenceMap(seqs [][]ir.OpRef) map[ir.MachineID][]ir.OpRef {
	out := make(map[ir.MachineID][]ir.OpRef, len(seqs))
	for mi, seq := range seqs {
		out[s.machines[mi].id] = seq
	}
	return out
}

// Solutions returns the improving solutions found so far, best last.
func (s *Solver) Solutions() []*schedule.PartialSolution {
	return append([]*schedule.PartialSolution(nil), s.solutions...)
}

// Vertices returns a copy of the arena.
func (s *Solver) Vertices() []Vertex {
	return append([]Vertex(nil), s.vertices...)
}

// HistoryEdges returns the recorded diagram edges; empty without history.
func (s *Solver) HistoryEdges() []HistoryEdge {
	return append([]HistoryEdge(nil), s.edges...)
}

// UpperBound returns the incumbent makespan, or ir.PosInf.
func (s *Solver) UpperBound() int64 { return s.upper }

// Iterations returns the expansions across all runs of this search.
func (s *Solver) Iterations() int { return s.iterations }
