package harness

import "github.com/roach88/shopsched/internal/schedule"

// Trace event types.
const (
	EventImproved = "improved"
	EventFinished = "finished"
	EventSnapshot = "snapshot"
)

// TraceEvent is one solver notification or one propagation iteration.
type TraceEvent struct {
	Type       string `json:"type"`
	Iteration  int    `json:"iteration"`
	UpperBound int64  `json:"upper_bound,omitempty"`
	Changed    bool   `json:"changed,omitempty"`
	StopReason string `json:"stop_reason,omitempty"`
}

// Outcome is what a scenario produced, independent of how it was checked.
type Outcome struct {
	// Solve scenarios.
	Feasible   bool             `json:"feasible"`
	Optimal    bool             `json:"optimal"`
	StopReason string           `json:"stop_reason,omitempty"`
	Makespan   int64            `json:"makespan,omitempty"`
	Best       *schedule.Export `json:"best,omitempty"`

	// Propagate scenarios.
	Converged  bool `json:"converged"`
	Iterations int  `json:"iterations,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace holds solver improvements and the finish event, or one event
	// per propagation iteration.
	Trace []TraceEvent `json:"trace"`

	// Errors holds one message per failed check.
	Errors []string `json:"errors,omitempty"`

	Outcome Outcome `json:"outcome"`

	// SessionID names the session the run was recorded under in the
	// scenario's store.
	SessionID string `json:"session_id"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
