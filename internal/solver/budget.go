package solver

import (
	"context"
	"time"
)

// Budget limits one run. Zero fields are unlimited.
type Budget struct {
	MaxIterations int           `json:"max_iterations,omitempty"`
	Timeout       time.Duration `json:"timeout,omitempty"`
}

// StopReason says why a run ended.
type StopReason string

const (
	stopNone StopReason = ""
	// StopExhausted: the frontier is empty; the result is proven.
	StopExhausted StopReason = "exhausted"
	// StopIterations: the iteration cap was reached.
	StopIterations StopReason = "iterations"
	// StopTimeout: the wall-clock budget elapsed.
	StopTimeout StopReason = "timeout"
	// StopCancelled: the context was cancelled.
	StopCancelled StopReason = "cancelled"
	// StopInfeasible: the constraint graph itself has a contradictory cycle.
	StopInfeasible StopReason = "infeasible"
)

// Clock supplies wall time. Tests inject a deterministic one.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// budgetEnforcer counts expansions of one run and checks the limits before
// each one. It reads the clock once per check so runs against a stepping
// test clock stop at a predictable iteration.
type budgetEnforcer struct {
	budget  Budget
	clock   Clock
	start   time.Time
	last    time.Time
	current int
}

func newBudgetEnforcer(b Budget, clock Clock) *budgetEnforcer {
	now := clock.Now()
	return &budgetEnforcer{budget: b, clock: clock, start: now, last: now}
}

// Check returns the reason to stop before the next expansion, or stopNone.
func (e *budgetEnforcer) Check(ctx context.Context) StopReason {
	if ctx.Err() != nil {
		return StopCancelled
	}
	if e.budget.MaxIterations > 0 && e.current >= e.budget.MaxIterations {
		return StopIterations
	}
	e.last = e.clock.Now()
	if e.budget.Timeout > 0 && e.last.Sub(e.start) >= e.budget.Timeout {
		return StopTimeout
	}
	return stopNone
}

// Step records one expansion.
func (e *budgetEnforcer) Step() { e.current++ }

// Current returns the expansions of this run.
func (e *budgetEnforcer) Current() int { return e.current }

// Elapsed is measured at the last check.
func (e *budgetEnforcer) Elapsed() time.Duration { return e.last.Sub(e.start) }
