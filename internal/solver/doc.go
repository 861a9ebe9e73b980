// Package solver implements a branch-and-bound search over a decision
// diagram of machine sequencing decisions.
//
// Each search vertex holds the operation sequences chosen so far on every
// machine. Expanding a vertex appends one eligible operation to one
// machine; the child's lower bound comes from the longest-path relaxation
// of the constraint graph extended by its sequencing edges, warm-started
// from the parent's times. Vertices whose bound cannot beat the incumbent
// are pruned, and identical states reached through different decision
// orders share one vertex, so the diagram is a DAG.
//
// Vertices live in an arena addressed by index. The root is its own
// parent. A search can be paused with State, serialized, and continued
// with Resume under a fresh budget.
//
// Thread-safety: a Solver is driven by one goroutine at a time. Start runs
// the loop on its own goroutine; State and Solutions may only be read after
// Wait returns.
package solver
