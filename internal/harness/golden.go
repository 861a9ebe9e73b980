package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/shopsched/internal/ir"
	"github.com/roach88/shopsched/internal/modular"
	"github.com/roach88/shopsched/internal/schedule"
)

// OutcomeSnapshot is what a golden file records for one scenario.
type OutcomeSnapshot struct {
	ScenarioName string
	Solve        bool
	Outcome      Outcome
	Trace        []TraceEvent
	Final        *modular.Snapshot
}

// toCanonicalMap converts the snapshot for ir.MarshalCanonical, which only
// accepts maps, slices and primitives. Solver events are left out; their
// order depends on the policy and they are checked by assertions instead.
func (s *OutcomeSnapshot) toCanonicalMap() map[string]any {
	o := s.Outcome
	result := map[string]any{
		"scenario_name": s.ScenarioName,
		"feasible":      o.Feasible,
	}

	if s.Solve {
		result["kind"] = "solve"
		result["optimal"] = o.Optimal
		result["stop_reason"] = o.StopReason
		if o.Best != nil {
			result["makespan"] = o.Makespan
			result["schedule"] = canonicalSchedule(*o.Best)
		}
		return result
	}

	result["kind"] = "propagate"
	result["converged"] = o.Converged
	result["iterations"] = o.Iterations
	if o.StopReason != "" {
		result["error"] = o.StopReason
	}
	trace := []any{}
	for _, ev := range s.Trace {
		if ev.Type == EventSnapshot {
			trace = append(trace, map[string]any{
				"type":      ev.Type,
				"iteration": ev.Iteration,
				"changed":   ev.Changed,
			})
		}
	}
	result["trace"] = trace
	if s.Final != nil {
		modules := make([]any, len(s.Final.Modules))
		for i, mb := range s.Final.Modules {
			m := map[string]any{
				"index":  mb.Index,
				"name":   mb.Name,
				"input":  canonicalWindows(mb.Input),
				"output": canonicalWindows(mb.Output),
			}
			if mb.Sequence != nil {
				m["makespan"] = mb.Sequence.Makespan
			}
			if mb.Failed != "" {
				m["failed"] = mb.Failed
			}
			modules[i] = m
		}
		result["modules"] = modules
	}
	return result
}

func canonicalSchedule(e schedule.Export) []any {
	machines := make([]any, len(e.Machines))
	for i, me := range e.Machines {
		ops := make([]any, len(me.Operations))
		for k, op := range me.Operations {
			ops[k] = map[string]any{
				"job":   int64(op.Job),
				"op":    int64(op.Op),
				"start": op.Start,
				"end":   op.End,
			}
		}
		machines[i] = map[string]any{
			"machine":    int64(me.Machine),
			"operations": ops,
		}
	}
	return machines
}

func canonicalWindows(ws []modular.PairWindow) []any {
	out := make([]any, len(ws))
	for i, w := range ws {
		m := map[string]any{
			"first":  int64(w.First),
			"second": int64(w.Second),
		}
		if w.Min != nil {
			m["min"] = *w.Min
		}
		if w.Max != nil {
			m["max"] = *w.Max
		}
		out[i] = m
	}
	return out
}

// RunWithGolden executes a scenario and compares its outcome against a
// golden file in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails. A mismatch fails t via goldie.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, snapshot, err := RunSnapshot(scenario)
	if err != nil {
		return nil, err
	}
	if err := assertSnapshot(t, scenario.Name, snapshot); err != nil {
		return nil, err
	}
	return result, nil
}

// RunSnapshot executes a scenario and returns its result together with the
// snapshot a golden file would record.
func RunSnapshot(scenario *Scenario) (*Result, *OutcomeSnapshot, error) {
	result, final, err := run(scenario)
	if err != nil {
		return nil, nil, err
	}
	return result, &OutcomeSnapshot{
		ScenarioName: scenario.Name,
		Solve:        scenario.IsSolve(),
		Outcome:      result.Outcome,
		Trace:        result.Trace,
		Final:        final,
	}, nil
}

// Canonical returns the golden file bytes for the snapshot.
func (s *OutcomeSnapshot) Canonical() ([]byte, error) {
	return ir.MarshalCanonical(s.toCanonicalMap())
}

// AssertGolden compares an already computed snapshot against a golden file.
func AssertGolden(t *testing.T, snapshot *OutcomeSnapshot) error {
	t.Helper()
	return assertSnapshot(t, snapshot.ScenarioName, snapshot)
}

func assertSnapshot(t *testing.T, name string, snapshot *OutcomeSnapshot) error {
	t.Helper()

	data, err := snapshot.Canonical()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
