package modular

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/shopsched/internal/graph"
	"github.com/roach88/shopsched/internal/ir"
)

// InfeasibleError reports that the production line admits no global
// schedule: either windows became empty while merging (Conflicts), or a
// module's graph contradicts its own tables (Cycle, in module vertex ids).
type InfeasibleError struct {
	Iteration int
	Module    int
	Table     string // "input" or "output"; empty for a cycle
	Conflicts []ir.MergeConflict
	Cycle     []graph.Edge
}

// Error implements the error interface.
func (e *InfeasibleError) Error() string {
	if len(e.Conflicts) == 0 {
		cycle := &graph.InfeasibleError{Cycle: e.Cycle}
		return fmt.Sprintf("iteration %d: module %d: %s", e.Iteration, e.Module, cycle.Error())
	}
	parts := make([]string, len(e.Conflicts))
	for i, c := range e.Conflicts {
		parts[i] = fmt.Sprintf("%s: %s meets %s", c.Pair, c.Current, c.Incoming)
	}
	return fmt.Sprintf("iteration %d: module %d %s windows empty: %s", e.Iteration, e.Module, e.Table, strings.Join(parts, "; "))
}

// IsInfeasible reports whether err is an InfeasibleError.
// Uses errors.As to handle wrapped errors.
func IsInfeasible(err error) bool {
	var ie *InfeasibleError
	return errors.As(err, &ie)
}

// ModuleError reports a failure inside one module that says nothing about
// the line as a whole, such as a sequencer error. Sibling modules' tables
// are untouched.
type ModuleError struct {
	Iteration int
	Module    int
	Name      string
	Err       error
}

// Error implements the error interface.
func (e *ModuleError) Error() string {
	return fmt.Sprintf("iteration %d: module %d (%s): %v", e.Iteration, e.Module, e.Name, e.Err)
}

// Unwrap returns the underlying error.
func (e *ModuleError) Unwrap() error { return e.Err }

// IsModuleError reports whether err is a ModuleError.
// Uses errors.As to handle wrapped errors.
func IsModuleError(err error) bool {
	var me *ModuleError
	return errors.As(err, &me)
}
