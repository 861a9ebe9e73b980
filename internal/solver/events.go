package solver

import "time"

// EventKind distinguishes solver notifications.
type EventKind string

const (
	// EventProgress is emitted every WithProgressEvery iterations.
	EventProgress EventKind = "progress"
	// EventImproved is emitted when a better complete schedule is found.
	EventImproved EventKind = "improved"
	// EventFinished is emitted once when a run ends.
	EventFinished EventKind = "finished"
)

// Event is a progress value. The solver only emits them; rendering is up
// to the consumer.
type Event struct {
	Kind       EventKind     `json:"kind"`
	Iteration  int           `json:"iteration"`
	Elapsed    time.Duration `json:"elapsed"`
	Frontier   int           `json:"frontier"`
	UpperBound int64         `json:"upper_bound"`
	StopReason StopReason    `json:"stop_reason,omitempty"`
}

// Observer receives events synchronously on the solver goroutine.
type Observer func(Event)

// Run is a search running on its own goroutine.
type Run struct {
	events chan Event
	done   chan struct{}
	result Result
	err    error
}

// Events delivers the run's events and is closed when the run ends.
// Delivery never blocks the search: progress and improvement events are
// dropped when the buffer is full, but the last slot is held for the
// finished event, which is always delivered.
func (r *Run) Events() <-chan Event { return r.events }

// Done is closed when the run has ended.
func (r *Run) Done() <-chan struct{} { return r.done }

// Wait blocks until the run ends and returns its result.
func (r *Run) Wait() (Result, error) {
	<-r.done
	return r.result, r.err
}
