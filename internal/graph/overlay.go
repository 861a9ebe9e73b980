package graph

// Overlay is a working copy of a base graph extended with extra edges. The
// base graph is shared and never modified; vertices cannot be added.
//
// The solver materializes a search vertex's sequencing decisions as an
// Overlay instead of cloning the whole graph per child.
type Overlay struct {
	base  *Graph
	extra []Edge
}

// NewOverlay creates an overlay of base with the given extra edges.
// The slice is copied.
func NewOverlay(base *Graph, extra []Edge) *Overlay {
	return &Overlay{base: base, extra: append([]Edge(nil), extra...)}
}

// Extend returns a new overlay with one more edge.
func (o *Overlay) Extend(e Edge) *Overlay {
	extra := make([]Edge, len(o.extra), len(o.extra)+1)
	copy(extra, o.extra)
	return &Overlay{base: o.base, extra: append(extra, e)}
}

// Extra returns the overlay's own edges.
func (o *Overlay) Extra() []Edge {
	return append([]Edge(nil), o.extra...)
}

// Base returns the shared base graph.
func (o *Overlay) Base() *Graph { return o.base }

// NumVertices implements View.
func (o *Overlay) NumVertices() int { return o.base.NumVertices() }

// NumEdges implements View.
func (o *Overlay) NumEdges() int { return o.base.NumEdges() + len(o.extra) }

// EdgeAt implements View.
func (o *Overlay) EdgeAt(i int) Edge {
	if n := o.base.NumEdges(); i >= n {
		return o.extra[i-n]
	}
	return o.base.EdgeAt(i)
}

// Vertex implements View.
func (o *Overlay) Vertex(id VertexID) Vertex { return o.base.Vertex(id) }

// Sources implements View.
func (o *Overlay) Sources() []VertexID { return o.base.Sources() }

// Materialize copies the base and adds the extra edges under the
// keep-tightest policy, producing a standalone graph.
func (o *Overlay) Materialize() (*Graph, error) {
	g := o.base.Clone()
	for _, e := range o.extra {
		if err := g.addEdge(e.Src, e.Dst, e.Weight, DuplicateKeepTightest); err != nil {
			return nil, err
		}
	}
	return g, nil
}
