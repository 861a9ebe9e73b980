package graph

import (
	"errors"
	"fmt"
	"strings"
)

// StructuralErrorCode categorizes malformed graph operations.
type StructuralErrorCode string

const (
	// ErrCodeDuplicateVertex indicates an operation was added twice.
	ErrCodeDuplicateVertex StructuralErrorCode = "DUPLICATE_VERTEX"

	// ErrCodeUnknownVertex indicates an edge or query referenced a vertex
	// that does not exist.
	ErrCodeUnknownVertex StructuralErrorCode = "UNKNOWN_VERTEX"

	// ErrCodeUnknownEdge indicates an update referenced an edge that does
	// not exist between two known vertices.
	ErrCodeUnknownEdge StructuralErrorCode = "UNKNOWN_EDGE"

	// ErrCodeDuplicateEdge indicates an edge was added twice under the
	// reject policy.
	ErrCodeDuplicateEdge StructuralErrorCode = "DUPLICATE_EDGE"

	// ErrCodeInvalidInstance indicates the instance definition cannot be
	// turned into a graph.
	ErrCodeInvalidInstance StructuralErrorCode = "INVALID_INSTANCE"
)

// StructuralError is fatal to the current build; it is never ignored.
type StructuralError struct {
	Code    StructuralErrorCode
	Message string
}

// Error implements the error interface.
func (e *StructuralError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsStructuralError reports whether err is a StructuralError.
// Uses errors.As to handle wrapped errors.
func IsStructuralError(err error) bool {
	var se *StructuralError
	return errors.As(err, &se)
}

// HasCode reports whether err is a StructuralError with the given code.
func HasCode(err error, code StructuralErrorCode) bool {
	var se *StructuralError
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

func structural(code StructuralErrorCode, format string, args ...any) *StructuralError {
	return &StructuralError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// InfeasibleError carries a contradictory constraint cycle for callers that
// need an error value. The core reports cycles as result fields; this type
// exists for the outer layers.
type InfeasibleError struct {
	Cycle []Edge
}

// Error implements the error interface.
func (e *InfeasibleError) Error() string {
	parts := make([]string, len(e.Cycle))
	var total int64
	for i, edge := range e.Cycle {
		parts[i] = fmt.Sprintf("%d->%d(%d)", edge.Src, edge.Dst, edge.Weight)
		total += edge.Weight
	}
	return fmt.Sprintf("infeasible constraint cycle of weight %d: %s", total, strings.Join(parts, " "))
}

// IsInfeasible reports whether err is an InfeasibleError.
func IsInfeasible(err error) bool {
	var ie *InfeasibleError
	return errors.As(err, &ie)
}
