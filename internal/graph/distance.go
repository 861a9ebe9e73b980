package graph

// distanceView presents a constraint graph with every weight negated, the
// shortest-path form of the same difference constraints.
type distanceView struct {
	View
}

// DistanceView wraps v so that FindNegativeCycle reports exactly the
// contradictory cycles of the constraint graph.
func DistanceView(v View) View {
	return distanceView{v}
}

func (d distanceView) EdgeAt(i int) Edge {
	e := d.View.EdgeAt(i)
	e.Weight = -e.Weight
	return e
}
