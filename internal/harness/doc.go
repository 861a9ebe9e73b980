// Package harness runs conformance scenarios against the solver and the
// bounds propagator.
//
// # Scenario Format
//
// Scenarios are YAML files. A solve scenario names an instance:
//
//	name: two_jobs_best
//	description: "Best-first proves the hand-computed optimum"
//	instance: ../instances/two_jobs.yaml
//	policy: { kind: best }
//	budget: { max_iterations: 1000 }
//	expect: { feasible: true, optimal: true, makespan: 6 }
//	assertions:
//	  - type: solution_valid
//	  - type: history_count
//	    kind: state
//	    count: 1
//
// A propagate scenario names a production line instead:
//
//	name: line_broadcast
//	description: "Broadcast converges in three rounds"
//	line: ../lines/line.yaml
//	propagation: { strategy: broadcast }
//	expect: { converged: true, iterations: 3 }
//	assertions:
//	  - type: window
//	    module: 0
//	    table: input
//	    first: 1
//	    second: 2
//	    min: 3
//	    max: 6
//
// # Assertion Types
//
//   - makespan_at_most: the best makespan is at most value
//   - solution_valid: the best schedule satisfies every constraint
//   - bounds_decreasing: each improvement lowers the upper bound
//   - trace_count: an event type appears exactly count times
//   - window: a final propagated window equals [min, max]
//   - history_count: the recorded session holds count entries of kind
//
// # Deterministic Testing
//
// Every scenario runs against a fresh in-memory SQLite store with a
// deterministic wall clock, so traces and golden snapshots are identical
// across runs. Golden files live in testdata/golden and are compared with
// goldie; regenerate them with -update.
package harness
