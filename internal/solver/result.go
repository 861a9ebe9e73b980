package solver

import (
	"time"

	"github.com/roach88/shopsched/internal/graph"
	"github.com/roach88/shopsched/internal/schedule"
)

// Stats counts vertex outcomes over the whole search.
type Stats struct {
	Created          int `json:"created"`
	Expanded         int `json:"expanded"`
	Completed        int `json:"completed"`
	PrunedBound      int `json:"pruned_bound"`
	PrunedInfeasible int `json:"pruned_infeasible"`
	Deduplicated     int `json:"deduplicated"`
}

// Diagnostics describes how a run ended.
//
// Optimal means the result is proven: either the best schedule is optimal
// or, with Feasible false, no feasible schedule exists. LowerBound is the
// smallest bound left on the frontier (the upper bound once exhausted).
type Diagnostics struct {
	Feasible   bool          `json:"feasible"`
	Optimal    bool          `json:"optimal"`
	StopReason StopReason    `json:"stop_reason"`
	Iterations int           `json:"iterations"`
	Elapsed    time.Duration `json:"elapsed"`
	UpperBound int64         `json:"upper_bound"`
	LowerBound int64         `json:"lower_bound"`
	Frontier   int           `json:"frontier"`
	Stats      Stats         `json:"stats"`
	Cycle      []graph.Edge  `json:"cycle,omitempty"`
}

// Result is the outcome of a run.
type Result struct {
	// Solutions holds the improving schedules in the order found.
	Solutions   []*schedule.PartialSolution
	Diagnostics Diagnostics
}

// Best returns the best schedule found, or nil.
func (r Result) Best() *schedule.PartialSolution {
	if len(r.Solutions) == 0 {
		return nil
	}
	return r.Solutions[len(r.Solutions)-1]
}

func (s *Solver) result(reason StopReason, elapsed time.Duration) Result {
	lb := s.upper
	for _, e := range s.frontier.items {
		lb = min(lb, s.vertices[e.Vertex].LowerBound)
	}

	return Result{
		Solutions: s.Solutions(),
		Diagnostics: Diagnostics{
			Feasible:   s.incumbent >= 0,
			Optimal:    reason == StopExhausted || reason == StopInfeasible,
			StopReason: reason,
			Iterations: s.iterations,
			Elapsed:    elapsed,
			UpperBound: s.upper,
			LowerBound: lb,
			Frontier:   s.frontier.Len(),
			Stats:      s.stats,
			Cycle:      append([]graph.Edge(nil), s.rootCycle...),
		},
	}
}
