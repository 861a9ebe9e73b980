// Package store provides SQLite-backed persistence for solver and
// propagation sessions.
//
// A session records the definition it ran on (as JSON, with its content
// hash) and the settings it ran with. Three append-only logs hang off it:
//   - States: paused solver searches, resumable later
//   - Solutions: every improving schedule, as plain exports
//   - Snapshots: per-iteration bound tables of a propagation
//
// # Ordering
//
// Every row carries seq, a per-session logical clock advanced inside the
// writing transaction. Queries order by seq ASC (sessions by creation seq,
// then id COLLATE BINARY), never by wall time, so histories read back
// identically.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
