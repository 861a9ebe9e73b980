// Package ir provides the shared data model for shopsched.
//
// This package contains type definitions and their pure helpers only. All
// other internal packages import ir; ir imports nothing internal, so the
// model stays the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - NO float types in the model - times and durations are int64
//   - "Infinite" is represented by the sentinels NegInf and PosInf, never
//     by a separate type or a pointer
//   - Jobs keep their declaration order; that order is the job order used by
//     fixed-order flow shops and by the pairwise bound tables
//   - All JSON tags use snake_case
package ir
