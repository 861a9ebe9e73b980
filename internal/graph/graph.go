package graph

import (
	"github.com/roach88/shopsched/internal/ir"
)

// VertexID is a dense index into a graph's vertex array.
type VertexID int

// NoVertex marks an absent vertex.
const NoVertex VertexID = -1

// VertexKind distinguishes real operations from bookkeeping vertices.
type VertexKind int

const (
	// KindOperation wraps one operation.
	KindOperation VertexKind = iota + 1
	// KindSource is a machine source ("not yet started").
	KindSource
	// KindSink collects job completions; its ASAP value is the makespan.
	KindSink
	// KindAux is any other bookkeeping vertex (e.g. a job exit point).
	KindAux
)

// Vertex is one node of the constraint graph.
type Vertex struct {
	ID       VertexID
	Kind     VertexKind
	Op       ir.OpRef     // valid for KindOperation
	Machine  ir.MachineID // operation machine, or the machine of a source
	Duration int64        // processing time; 0 for bookkeeping vertices
	Visible  bool
	Label    string
}

// Edge is a weighted constraint start(Dst) >= start(Src) + Weight.
type Edge struct {
	Src    VertexID `json:"src"`
	Dst    VertexID `json:"dst"`
	Weight int64    `json:"weight"`
}

// DuplicatePolicy decides what AddEdge does when the (src, dst) pair
// already has an edge.
type DuplicatePolicy int

const (
	// DuplicateReject returns a DUPLICATE_EDGE StructuralError. Callers are
	// responsible for only adding genuinely new constraints.
	DuplicateReject DuplicatePolicy = iota
	// DuplicateOverwrite replaces the stored weight.
	DuplicateOverwrite
	// DuplicateKeepTightest keeps the larger weight, which is the stronger
	// constraint under the min-separation convention.
	DuplicateKeepTightest
)

// View is the read surface the longest-path engine runs on. Both Graph and
// Overlay implement it.
type View interface {
	NumVertices() int
	NumEdges() int
	EdgeAt(i int) Edge
	Vertex(id VertexID) Vertex
	Sources() []VertexID
}

type edgeKey struct {
	src, dst VertexID
}

// Graph is a directed weighted graph over operations.
//
// Edge existence and direction never change once added; weights may be
// updated in place with SetWeight.
type Graph struct {
	vertices []Vertex
	edges    []Edge
	out      [][]int
	in       [][]int
	index    map[edgeKey]int
	byOp     map[ir.OpRef]VertexID
	sources  []VertexID
	machine  map[ir.MachineID]VertexID
	sink     VertexID
	policy   DuplicatePolicy
}

// Option configures a Graph.
type Option func(*Graph)

// WithDuplicatePolicy sets how AddEdge treats an existing (src, dst) pair.
//
// Default: DuplicateReject.
func WithDuplicatePolicy(p DuplicatePolicy) Option {
	return func(g *Graph) {
		g.policy = p
	}
}

// New creates an empty graph.
func New(opts ...Option) *Graph {
	g := &Graph{
		index:   make(map[edgeKey]int),
		byOp:    make(map[ir.OpRef]VertexID),
		machine: make(map[ir.MachineID]VertexID),
		sink:    NoVertex,
		policy:  DuplicateReject,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Policy returns the configured duplicate-edge policy.
func (g *Graph) Policy() DuplicatePolicy {
	return g.policy
}

func (g *Graph) push(v Vertex) VertexID {
	v.ID = VertexID(len(g.vertices))
	g.vertices = append(g.vertices, v)
	g.out = append(g.out, nil)
	g.in = append(g.in, nil)
	return v.ID
}

// AddVertex adds a visible vertex for op. It fails if the operation
// already has a vertex.
func (g *Graph) AddVertex(op ir.Operation) (VertexID, error) {
	ref := op.Ref()
	if _, ok := g.byOp[ref]; ok {
		return NoVertex, structural(ErrCodeDuplicateVertex, "operation %s already exists", ref)
	}
	id := g.push(Vertex{
		Kind:     KindOperation,
		Op:       ref,
		Machine:  op.Machine,
		Duration: op.ProcessingTime,
		Visible:  true,
	})
	g.byOp[ref] = id
	return id, nil
}

// AddSource adds the synthetic source vertex of machine m. Sources are
// seeded at zero by the relaxation. Adding a second source for the same
// machine returns the existing one.
func (g *Graph) AddSource(m ir.MachineID) VertexID {
	if id, ok := g.machine[m]; ok {
		return id
	}
	id := g.push(Vertex{Kind: KindSource, Machine: m, Label: "source"})
	g.machine[m] = id
	g.sources = append(g.sources, id)
	return id
}

// AddSink adds the completion sink. Only one sink exists per graph.
func (g *Graph) AddSink() VertexID {
	if g.sink != NoVertex {
		return g.sink
	}
	g.sink = g.push(Vertex{Kind: KindSink, Label: "sink"})
	return g.sink
}

// AddAux adds an invisible bookkeeping vertex.
func (g *Graph) AddAux(label string) VertexID {
	return g.push(Vertex{Kind: KindAux, Label: label})
}

// AddEdge adds src->dst with weight w, following the duplicate policy.
func (g *Graph) AddEdge(src, dst VertexID, w int64) error {
	return g.addEdge(src, dst, w, g.policy)
}

func (g *Graph) addEdge(src, dst VertexID, w int64, policy DuplicatePolicy) error {
	if !g.HasVertex(src) {
		return structural(ErrCodeUnknownVertex, "edge source %d does not exist", src)
	}
	if !g.HasVertex(dst) {
		return structural(ErrCodeUnknownVertex, "edge destination %d does not exist", dst)
	}
	key := edgeKey{src, dst}
	if idx, ok := g.index[key]; ok {
		switch policy {
		case DuplicateOverwrite:
			g.edges[idx].Weight = w
		case DuplicateKeepTightest:
			if w > g.edges[idx].Weight {
				g.edges[idx].Weight = w
			}
		default:
			return structural(ErrCodeDuplicateEdge, "edge %d->%d already exists", src, dst)
		}
		return nil
	}
	idx := len(g.edges)
	g.edges = append(g.edges, Edge{Src: src, Dst: dst, Weight: w})
	g.index[key] = idx
	g.out[src] = append(g.out[src], idx)
	g.in[dst] = append(g.in[dst], idx)
	return nil
}

// SetWeight updates the weight of an existing edge in place.
func (g *Graph) SetWeight(src, dst VertexID, w int64) error {
	if !g.HasVertex(src) || !g.HasVertex(dst) {
		return structural(ErrCodeUnknownVertex, "edge %d->%d references unknown vertex", src, dst)
	}
	idx, ok := g.index[edgeKey{src, dst}]
	if !ok {
		return structural(ErrCodeUnknownEdge, "edge %d->%d does not exist", src, dst)
	}
	g.edges[idx].Weight = w
	return nil
}

// HasVertex reports whether id is a vertex of g.
func (g *Graph) HasVertex(id VertexID) bool {
	return id >= 0 && int(id) < len(g.vertices)
}

// HasOperation reports whether op already has a vertex.
func (g *Graph) HasOperation(op ir.OpRef) bool {
	_, ok := g.byOp[op]
	return ok
}

// OperationVertex returns the vertex of op.
func (g *Graph) OperationVertex(op ir.OpRef) (VertexID, bool) {
	id, ok := g.byOp[op]
	return id, ok
}

// MachineSource returns the source vertex of machine m.
func (g *Graph) MachineSource(m ir.MachineID) (VertexID, bool) {
	id, ok := g.machine[m]
	return id, ok
}

// Sink returns the completion sink, or NoVertex.
func (g *Graph) Sink() VertexID {
	return g.sink
}

// HasEdge reports whether src->dst exists.
func (g *Graph) HasEdge(src, dst VertexID) bool {
	_, ok := g.index[edgeKey{src, dst}]
	return ok
}

// EdgeBetween returns the edge src->dst.
func (g *Graph) EdgeBetween(src, dst VertexID) (Edge, bool) {
	idx, ok := g.index[edgeKey{src, dst}]
	if !ok {
		return Edge{}, false
	}
	return g.edges[idx], true
}

// OutEdges returns the outgoing edges of v in insertion order.
func (g *Graph) OutEdges(v VertexID) ([]Edge, error) {
	if !g.HasVertex(v) {
		return nil, structural(ErrCodeUnknownVertex, "vertex %d does not exist", v)
	}
	return g.collect(g.out[v]), nil
}

// InEdges returns the incoming edges of v in insertion order.
func (g *Graph) InEdges(v VertexID) ([]Edge, error) {
	if !g.HasVertex(v) {
		return nil, structural(ErrCodeUnknownVertex, "vertex %d does not exist", v)
	}
	return g.collect(g.in[v]), nil
}

func (g *Graph) collect(idxs []int) []Edge {
	edges := make([]Edge, len(idxs))
	for i, idx := range idxs {
		edges[i] = g.edges[idx]
	}
	return edges
}

// Edges returns a copy of all edges in insertion order.
func (g *Graph) Edges() []Edge {
	return append([]Edge(nil), g.edges...)
}

// Vertices returns a copy of all vertices in id order.
func (g *Graph) Vertices() []Vertex {
	return append([]Vertex(nil), g.vertices...)
}

// NumVertices implements View.
func (g *Graph) NumVertices() int { return len(g.vertices) }

// NumEdges implements View.
func (g *Graph) NumEdges() int { return len(g.edges) }

// EdgeAt implements View.
func (g *Graph) EdgeAt(i int) Edge { return g.edges[i] }

// Vertex implements View.
func (g *Graph) Vertex(id VertexID) Vertex { return g.vertices[id] }

// Sources implements View.
func (g *Graph) Sources() []VertexID { return g.sources }

// Clone returns a deep copy that can be extended independently.
func (g *Graph) Clone() *Graph {
	c := &Graph{
		vertices: append([]Vertex(nil), g.vertices...),
		edges:    append([]Edge(nil), g.edges...),
		out:      make([][]int, len(g.out)),
		in:       make([][]int, len(g.in)),
		index:    make(map[edgeKey]int, len(g.index)),
		byOp:     make(map[ir.OpRef]VertexID, len(g.byOp)),
		sources:  append([]VertexID(nil), g.sources...),
		machine:  make(map[ir.MachineID]VertexID, len(g.machine)),
		sink:     g.sink,
		policy:   g.policy,
	}
	for i := range g.out {
		c.out[i] = append([]int(nil), g.out[i]...)
		c.in[i] = append([]int(nil), g.in[i]...)
	}
	for k, v := range g.index {
		c.index[k] = v
	}
	for k, v := range g.byOp {
		c.byOp[k] = v
	}
	for k, v := range g.machine {
		c.machine[k] = v
	}
	return c
}

// Absorb copies every vertex and edge of other into g and returns the new
// id of each of other's vertices, indexed by their old id. Copied vertices
// keep kind, operation and duration, get prefix prepended to their label,
// and are not indexed: operation, source and sink lookups on g keep
// referring to g's own vertices.
func (g *Graph) Absorb(other *Graph, prefix string) []VertexID {
	ids := make([]VertexID, len(other.vertices))
	for i, v := range other.vertices {
		label := v.Label
		if v.Kind == KindOperation {
			label = v.Op.String()
		}
		v.Label = prefix + label
		ids[i] = g.push(v)
	}
	for _, e := range other.edges {
		// Fresh vertices cannot collide with existing edges.
		_ = g.addEdge(ids[e.Src], ids[e.Dst], e.Weight, DuplicateKeepTightest)
	}
	return ids
}
