// Package schedule holds partial solutions: the machine sequences chosen by
// the solver, the sequencing edges they add to a constraint graph, and the
// earliest start times that follow from them.
//
// A PartialSolution is immutable once produced. Vertex ids inside it are
// only meaningful against the graph that produced it; Export converts it to
// plain (job, operation, start) records that can leave the session.
package schedule
