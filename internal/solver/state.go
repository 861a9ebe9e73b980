package solver

import (
	"fmt"

	"github.com/roach88/shopsched/internal/graph"
	"github.com/roach88/shopsched/internal/ir"
	"github.com/roach88/shopsched/internal/schedule"
)

// StateVersion is bumped when State changes incompatibly.
const StateVersion = 1

// State is a paused search: the whole arena, the frontier and the
// incumbent. It holds no vertex ids of the constraint graph, only
// operation references, so it can be serialized and resumed against a
// freshly built graph of the same instance.
type State struct {
	Version      int             `json:"version"`
	InstanceHash string          `json:"instance_hash"`
	Policy       Policy          `json:"policy"`
	History      bool            `json:"history,omitempty"`
	Vertices     []Vertex        `json:"vertices"`
	Frontier     []FrontierEntry `json:"frontier"`
	Edges        []HistoryEdge   `json:"edges,omitempty"`
	Incumbent    int             `json:"incumbent"`
	UpperBound   int64           `json:"upper_bound"`
	Iterations   int             `json:"iterations"`
	Seq          uint64          `json:"seq"`
	Alpha        float64         `json:"alpha,omitempty"`
	Stats        Stats           `json:"stats"`
	RandState    []byte          `json:"rand_state,omitempty"`
	RootCycle    []graph.Edge    `json:"root_cycle,omitempty"`
}

// State captures the search for a later Resume. The solver stays usable.
func (s *Solver) State() (State, error) {
	rs, err := s.pcg.MarshalBinary()
	if err != nil {
		return State{}, fmt.Errorf("marshal random state: %w", err)
	}
	return State{
		Version:      StateVersion,
		InstanceHash: s.hash,
		Policy:       s.policy,
		History:      s.history,
		Vertices:     s.Vertices(),
		Frontier:     s.frontier.Entries(),
		Edges:        s.HistoryEdges(),
		Incumbent:    s.incumbent,
		UpperBound:   s.upper,
		Iterations:   s.iterations,
		Seq:          s.seq.Current(),
		Alpha:        s.alpha,
		Stats:        s.stats,
		RandState:    rs,
		RootCycle:    append([]graph.Edge(nil), s.rootCycle...),
	}, nil
}

// Resume continues a paused search. The state's policy and history setting
// apply unless opts override them. It fails with a StateError when st was
// produced for another instance or is inconsistent.
func Resume(inst *ir.Instance, g *graph.Graph, st State, opts ...Option) (*Solver, error) {
	if st.Version != StateVersion {
		return nil, &StateError{Code: ErrCodeVersion, Message: fmt.Sprintf("state version %d, want %d", st.Version, StateVersion)}
	}

	base := []Option{WithPolicy(st.Policy), WithHistory(st.History)}
	s, err := newSolver(inst, g, append(base, opts...))
	if err != nil {
		return nil, err
	}
	if st.InstanceHash != s.hash {
		return nil, &StateError{Code: ErrCodeInstanceMismatch, Message: fmt.Sprintf("state is for instance %s, not %s", st.InstanceHash, s.hash)}
	}
	if err := s.checkState(st); err != nil {
		return nil, err
	}

	s.vertices = append([]Vertex(nil), st.Vertices...)
	for _, v := range s.vertices {
		s.index[v.Key] = v.ID
	}
	s.edges = append([]HistoryEdge(nil), st.Edges...)
	s.incumbent = st.Incumbent
	s.upper = st.UpperBound
	s.iterations = st.Iterations
	s.stats = st.Stats
	s.seq = newSequenceAt(st.Seq)
	s.rootCycle = append([]graph.Edge(nil), st.RootCycle...)
	s.alpha = s.policy.alpha(s.iterations)
	if st.Policy.Kind == s.policy.Kind && s.policy.ranked() && st.Alpha > 0 {
		s.alpha = st.Alpha
	}
	if len(st.RandState) > 0 && st.Policy.Seed == s.policy.Seed {
		if err := s.pcg.UnmarshalBinary(st.RandState); err != nil {
			return nil, corrupt("random state: %v", err)
		}
	}

	s.frontier.items = append(s.frontier.items, st.Frontier...)
	if s.policy.Kind == PolicyRandom {
		for i := range s.frontier.items {
			if s.frontier.items[i].Key == 0 {
				s.frontier.items[i].Key = s.rng.Uint64()
			}
		}
	}
	s.frontier.Reheap()

	if s.incumbent >= 0 {
		ps, err := schedule.New(inst, g, s.sequenceMap(s.vertices[s.incumbent].Sequences))
		if err != nil {
			return nil, corrupt("incumbent: %v", err)
		}
		if ps.Makespan() != s.upper {
			return nil, corrupt("incumbent makespan %d, state says %d", ps.Makespan(), s.upper)
		}
		s.solutions = []*schedule.PartialSolution{ps}
	}
	return s, nil
}

func (s *Solver) checkState(st State) error {
	n := len(st.Vertices)
	if n == 0 {
		return corrupt("no vertices")
	}
	for i, v := range st.Vertices {
		if v.ID != i {
			return corrupt("vertex %d stored at %d", v.ID, i)
		}
		if v.Parent < 0 || v.Parent >= n {
			return corrupt("vertex %d has parent %d", i, v.Parent)
		}
	}
	for _, e := range st.Frontier {
		if e.Vertex < 0 || e.Vertex >= n {
			return corrupt("frontier references vertex %d", e.Vertex)
		}
		v := st.Vertices[e.Vertex]
		if v.State != StateUnexpanded {
			return corrupt("frontier vertex %d is %s", v.ID, v.State)
		}
		if err := s.checkSequences(v); err != nil {
			return err
		}
	}
	if st.Incumbent >= 0 {
		if st.Incumbent >= n {
			return corrupt("incumbent %d out of range", st.Incumbent)
		}
		v := st.Vertices[st.Incumbent]
		if v.State != StateCompleted {
			return corrupt("incumbent vertex %d is %s", v.ID, v.State)
		}
		if err := s.checkSequences(v); err != nil {
			return err
		}
	}
	return nil
}

func (s *Solver) checkSequences(v Vertex) error {
	if len(v.Sequences) != len(s.machines) {
		return corrupt("vertex %d has %d machine sequences, want %d", v.ID, len(v.Sequences), len(s.machines))
	}
	for mi, seq := range v.Sequences {
		for _, ref := range seq {
			op, ok := s.inst.Operation(ref)
			if !ok || op.Machine != s.machines[mi].id {
				return corrupt("vertex %d sequences %s on machine %d", v.ID, ref, s.machines[mi].id)
			}
		}
	}
	if stateKey(v.Sequences) != v.Key {
		return corrupt("vertex %d key does not match its sequences", v.ID)
	}
	return nil
}
