// Package modular propagates timing bounds along a production line.
//
// Every module keeps two tables of pairwise windows: Input bounds the
// difference of the entry times of two jobs (start of their first
// operation), Output the difference of their exit times (finish of their
// last operation). Each round, a module derives the tightest windows its
// own constraint graph implies given its current tables, translates them
// across its boundaries with the transfer offsets, and the neighbours
// intersect what they receive. Rounds repeat until nothing changes or the
// iteration cap is hit.
//
// Windows only ever shrink. An empty window means the line has no
// feasible schedule and is reported as an InfeasibleError. A round that
// hits the cap is reported as Converged == false, never as an error.
package modular
