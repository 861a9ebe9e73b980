package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/shopsched/internal/modular"
	"github.com/roach88/shopsched/internal/solver"
)

// Scenario defines a conformance scenario: one definition file, how to run
// it, and what the run must produce.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Instance is the path of an instance definition to solve. Exactly one
	// of Instance and Line is set. Relative paths are resolved against the
	// scenario file's directory.
	Instance string `yaml:"instance,omitempty"`

	// Line is the path of a production line definition to propagate.
	Line string `yaml:"line,omitempty"`

	// Policy and Budget configure a solve.
	Policy PolicySpec `yaml:"policy,omitempty"`
	Budget BudgetSpec `yaml:"budget,omitempty"`

	// Propagation configures a propagate run.
	Propagation PropagationSpec `yaml:"propagation,omitempty"`

	// Expect checks the headline outcome.
	Expect *ExpectClause `yaml:"expect,omitempty"`

	// Assertions check the trace, the schedule and the recorded session.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// PolicySpec selects the exploration policy. An empty Kind means best-first.
type PolicySpec struct {
	Kind       string   `yaml:"kind,omitempty"`
	RankFactor *float64 `yaml:"rank_factor,omitempty"`
	Seed       uint64   `yaml:"seed,omitempty"`
}

// BudgetSpec caps the solve. Zero is unlimited.
type BudgetSpec struct {
	MaxIterations int `yaml:"max_iterations,omitempty"`
}

// PropagationSpec configures the propagator.
type PropagationSpec struct {
	Strategy      string `yaml:"strategy,omitempty"`
	MaxIterations int    `yaml:"max_iterations,omitempty"`
	Sequenced     bool   `yaml:"sequenced,omitempty"`
	FailurePolicy string `yaml:"failure_policy,omitempty"`
}

// ExpectClause holds the expected outcome. Unset fields are not checked.
type ExpectClause struct {
	Feasible   *bool  `yaml:"feasible,omitempty"`
	Optimal    *bool  `yaml:"optimal,omitempty"`
	Makespan   *int64 `yaml:"makespan,omitempty"`
	StopReason string `yaml:"stop_reason,omitempty"`
	Converged  *bool  `yaml:"converged,omitempty"`
	Iterations *int   `yaml:"iterations,omitempty"`
}

// Assertion validates the trace, the best schedule, a propagated window or
// the stored session.
type Assertion struct {
	// Type specifies the assertion type:
	// - "makespan_at_most": best makespan is at most Value
	// - "solution_valid": best schedule satisfies every constraint
	// - "bounds_decreasing": improvements strictly lower the upper bound
	// - "trace_count": Event appears exactly Count times in the trace
	// - "window": a final propagated window equals Min/Max
	// - "history_count": the session stored Count entries of Kind
	Type string `yaml:"type"`

	// Value is the bound for makespan_at_most.
	Value *int64 `yaml:"value,omitempty"`

	// Event is the trace event type for trace_count.
	Event string `yaml:"event,omitempty"`

	// Count is the expected number for trace_count and history_count.
	Count int `yaml:"count,omitempty"`

	// Module, Table, First and Second select a window. Table is "input"
	// or "output". Nil Min or Max expects an unbounded end.
	Module int    `yaml:"module,omitempty"`
	Table  string `yaml:"table,omitempty"`
	First  int    `yaml:"first,omitempty"`
	Second int    `yaml:"second,omitempty"`
	Min    *int64 `yaml:"min,omitempty"`
	Max    *int64 `yaml:"max,omitempty"`

	// Kind is the history entry kind for history_count.
	Kind string `yaml:"kind,omitempty"`
}

// Assertion type constants.
const (
	AssertMakespanAtMost   = "makespan_at_most"
	AssertSolutionValid    = "solution_valid"
	AssertBoundsDecreasing = "bounds_decreasing"
	AssertTraceCount       = "trace_count"
	AssertWindow           = "window"
	AssertHistoryCount     = "history_count"
)

// IsSolve reports whether the scenario solves an instance.
func (s *Scenario) IsSolve() bool { return s.Instance != "" }

// LoadScenario reads a scenario YAML file, resolving definition paths
// against the file's directory.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving definition paths relative to basePath. Unknown fields are
// rejected so typos fail loudly.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Resolve before validation so existence checks see real paths.
	for _, p := range []*string{&scenario.Instance, &scenario.Line} {
		if *p != "" && !filepath.IsAbs(*p) && basePath != "" {
			*p = filepath.Join(basePath, *p)
		}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch {
	case s.Instance == "" && s.Line == "":
		return fmt.Errorf("one of instance or line is required")
	case s.Instance != "" && s.Line != "":
		return fmt.Errorf("instance and line are mutually exclusive")
	}
	for _, p := range []string{s.Instance, s.Line} {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return fmt.Errorf("definition file not found: %s", p)
		}
	}

	if s.Policy.Kind != "" {
		if _, err := solver.ParsePolicyKind(s.Policy.Kind); err != nil {
			return fmt.Errorf("policy: %w", err)
		}
	}
	if s.Budget.MaxIterations < 0 {
		return fmt.Errorf("budget.max_iterations must be non-negative")
	}
	if s.Propagation.Strategy != "" {
		if _, err := modular.ParseStrategy(s.Propagation.Strategy); err != nil {
			return fmt.Errorf("propagation: %w", err)
		}
	}
	switch modular.FailurePolicy(s.Propagation.FailurePolicy) {
	case "", modular.FailAbort, modular.FailContinue:
	default:
		return fmt.Errorf("propagation: unknown failure policy %q", s.Propagation.FailurePolicy)
	}

	if s.Expect == nil && len(s.Assertions) == 0 {
		return fmt.Errorf("expect or assertions is required")
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a, s.IsSolve()); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, solve bool) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertMakespanAtMost:
		if a.Value == nil {
			return fmt.Errorf("assertions[%d]: value is required for makespan_at_most", index)
		}
	case AssertSolutionValid, AssertBoundsDecreasing:
	case AssertTraceCount:
		switch a.Event {
		case EventImproved, EventFinished, EventSnapshot:
		default:
			return fmt.Errorf("assertions[%d]: unknown event %q for trace_count", index, a.Event)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertWindow:
		if a.Table != "input" && a.Table != "output" {
			return fmt.Errorf("assertions[%d]: table must be input or output for window", index)
		}
		if a.First >= a.Second {
			return fmt.Errorf("assertions[%d]: first must be below second for window", index)
		}
	case AssertHistoryCount:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for history_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for history_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	solveOnly := a.Type == AssertMakespanAtMost || a.Type == AssertSolutionValid || a.Type == AssertBoundsDecreasing
	if solveOnly && !solve {
		return fmt.Errorf("assertions[%d]: %s applies to instance scenarios only", index, a.Type)
	}
	if a.Type == AssertWindow && solve {
		return fmt.Errorf("assertions[%d]: window applies to line scenarios only", index)
	}
	return nil
}
