package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/shopsched/internal/graph"
	"github.com/roach88/shopsched/internal/ir"
	"github.com/roach88/shopsched/internal/modular"
	"github.com/roach88/shopsched/internal/schedule"
	"github.com/roach88/shopsched/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for i, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s iteration=%d", i+1, event.Type, event.Iteration)
			switch event.Type {
			case EventSnapshot:
				fmt.Fprintf(&buf, " changed=%t\n", event.Changed)
			default:
				fmt.Fprintf(&buf, " upper_bound=%d\n", event.UpperBound)
			}
		}
	}

	return buf.String()
}

// assertMakespanAtMost checks the best schedule against an upper limit.
func assertMakespanAtMost(result *Result, assertion Assertion) error {
	if result.Outcome.Best == nil {
		return &AssertionError{
			Type:     AssertMakespanAtMost,
			Expected: fmt.Sprintf("a schedule with makespan <= %d", *assertion.Value),
			Actual:   "no schedule found",
			Trace:    result.Trace,
		}
	}
	if result.Outcome.Makespan > *assertion.Value {
		return &AssertionError{
			Type:     AssertMakespanAtMost,
			Expected: fmt.Sprintf("makespan <= %d", *assertion.Value),
			Actual:   fmt.Sprintf("makespan %d", result.Outcome.Makespan),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertSolutionValid replays the best schedule's start times against the
// constraint graph.
func assertSolutionValid(result *Result, inst *ir.Instance, g *graph.Graph) error {
	if result.Outcome.Best == nil {
		return &AssertionError{
			Type:     AssertSolutionValid,
			Expected: "a valid schedule",
			Actual:   "no schedule found",
			Trace:    result.Trace,
		}
	}
	violations := schedule.Validate(inst, g, result.Outcome.Best.Starts())
	if len(violations) == 0 {
		return nil
	}
	msgs := make([]string, len(violations))
	for i, v := range violations {
		msgs[i] = v.String()
	}
	return &AssertionError{
		Type:     AssertSolutionValid,
		Expected: "no violations",
		Actual:   strings.Join(msgs, "; "),
	}
}

// assertBoundsDecreasing checks that every improvement strictly lowers the
// upper bound.
func assertBoundsDecreasing(result *Result) error {
	var prev *TraceEvent
	for i := range result.Trace {
		ev := &result.Trace[i]
		if ev.Type != EventImproved {
			continue
		}
		if prev != nil && ev.UpperBound >= prev.UpperBound {
			return &AssertionError{
				Type:     AssertBoundsDecreasing,
				Expected: fmt.Sprintf("upper bound below %d after iteration %d", prev.UpperBound, prev.Iteration),
				Actual:   fmt.Sprintf("upper bound %d at iteration %d", ev.UpperBound, ev.Iteration),
				Trace:    result.Trace,
			}
		}
		prev = ev
	}
	return nil
}

// assertTraceCount checks that an event type appears exactly Count times.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Type == assertion.Event {
			count++
		}
	}
	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d %s events", assertion.Count, assertion.Event),
			Actual:   fmt.Sprintf("%d events", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertWindow checks one window of the final propagation tables.
func assertWindow(final *modular.Snapshot, assertion Assertion) error {
	if assertion.Module < 0 || assertion.Module >= len(final.Modules) {
		return fmt.Errorf("window: module %d out of range", assertion.Module)
	}
	mb := final.Modules[assertion.Module]
	windows := mb.Input
	if assertion.Table == "output" {
		windows = mb.Output
	}
	spec, err := modular.ImportSpec(windows)
	if err != nil {
		return fmt.Errorf("window: %w", err)
	}

	pair := ir.JobPair{First: ir.JobID(assertion.First), Second: ir.JobID(assertion.Second)}
	want := modular.PairWindow{Min: assertion.Min, Max: assertion.Max}.Interval()
	got, ok := spec[pair]
	if !ok {
		return &AssertionError{
			Type:     AssertWindow,
			Expected: fmt.Sprintf("%s %s %s = %s", mb.Name, assertion.Table, pair, want),
			Actual:   "pair not in table",
		}
	}
	if got != want {
		return &AssertionError{
			Type:     AssertWindow,
			Expected: fmt.Sprintf("%s %s %s = %s", mb.Name, assertion.Table, pair, want),
			Actual:   got.String(),
		}
	}
	return nil
}

// assertHistoryCount checks how many entries of a kind the session stored.
func assertHistoryCount(ctx context.Context, st *store.Store, sessionID string, assertion Assertion) error {
	entries, err := st.History(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("history_count: %w", err)
	}
	count := 0
	for _, e := range entries {
		if string(e.Kind) == assertion.Kind {
			count++
		}
	}
	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertHistoryCount,
			Expected: fmt.Sprintf("%d %s entries", assertion.Count, assertion.Kind),
			Actual:   fmt.Sprintf("%d entries", count),
		}
	}
	return nil
}

// AssertionContext provides what assertions need beyond the result.
type AssertionContext struct {
	Store     *store.Store
	Ctx       context.Context
	SessionID string

	// Solve scenarios.
	Instance *ir.Instance
	Graph    *graph.Graph

	// Propagate scenarios.
	Final *modular.Snapshot
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string
	if actx == nil {
		actx = &AssertionContext{}
	}

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertMakespanAtMost:
			err = assertMakespanAtMost(result, assertion)
		case AssertSolutionValid:
			if actx.Instance == nil || actx.Graph == nil {
				err = fmt.Errorf("assertion[%d]: solution_valid requires the instance", i)
			} else {
				err = assertSolutionValid(result, actx.Instance, actx.Graph)
			}
		case AssertBoundsDecreasing:
			err = assertBoundsDecreasing(result)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertWindow:
			if actx.Final == nil {
				err = fmt.Errorf("assertion[%d]: window requires a propagation result", i)
			} else {
				err = assertWindow(actx.Final, assertion)
			}
		case AssertHistoryCount:
			if actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: history_count requires database context", i)
			} else {
				err = assertHistoryCount(actx.Ctx, actx.Store, actx.SessionID, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
