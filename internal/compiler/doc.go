// Package compiler turns instance and production-line definitions into ir
// values.
//
// Definitions are read from CUE (and JSON, which is valid CUE) or from
// YAML. CUE sources are unified with an embedded schema first, so type and
// range errors carry a file position. Both paths then decode into the same
// definition structs, run Validate, and convert into ir.
//
// The compiler checks shape and references only. Whether the constraints
// admit a schedule is the graph's business.
package compiler
