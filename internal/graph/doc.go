// Package graph implements the constraint graph over operations and the
// longest-path engine that derives earliest (ASAP) and latest (ALAP) start
// times from it.
//
// # Weight convention
//
// An edge src->dst with weight w encodes start(dst) >= start(src) + w.
// Positive weights are minimum separations (processing times, setups,
// minimum lags); negative weights are upper bounds written as reversed
// inequalities (maximum lags, due dates).
//
// The relaxation is label-correcting (Bellman-Ford style, O(V*E)) and
// tolerates negative weights. Contradictory constraints show up as a cycle
// of positive total weight. In the distance view of the same system (every
// weight negated, shortest paths instead of longest) that cycle is a
// negative cycle; FindNegativeCycle works in that view.
//
// # Identity
//
// Vertex ids are dense and stable within one build and double as indexes
// into PathTimes. They are meaningless outside the graph that produced
// them; exported documents refer to operations by (job, operation) instead.
package graph
