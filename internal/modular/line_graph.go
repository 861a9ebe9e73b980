package modular

import (
	"fmt"

	"github.com/roach88/shopsched/internal/graph"
	"github.com/roach88/shopsched/internal/ir"
)

// LineGraph is the whole production line as one constraint graph: every
// module graph copied side by side, joined by transfer edges between a
// job's exit in one module and its entry in the next.
//
// Its pairwise windows are exact for the relaxed (unsequenced) line and
// serve as the reference that propagated tables must contain.
type LineGraph struct {
	Graph   *graph.Graph
	Entry   []map[ir.JobID]graph.VertexID
	Exit    []map[ir.JobID]graph.VertexID
	modules []*module
}

// BuildLineGraph assembles the global graph of line.
func BuildLineGraph(line *ir.ProductionLine) (*LineGraph, error) {
	if line == nil {
		return nil, fmt.Errorf("nil production line")
	}
	if err := line.Validate(); err != nil {
		return nil, err
	}

	lg := &LineGraph{Graph: graph.New(graph.WithDuplicatePolicy(graph.DuplicateKeepTightest))}
	for i := range line.Modules {
		m, err := newModule(i, &line.Modules[i])
		if err != nil {
			return nil, err
		}
		ids := lg.Graph.Absorb(m.base, m.name+"/")
		entry := make(map[ir.JobID]graph.VertexID, len(m.jobs))
		exit := make(map[ir.JobID]graph.VertexID, len(m.jobs))
		for _, j := range m.jobs {
			entry[j] = ids[m.entry[j]]
			exit[j] = ids[m.exit[j]]
		}
		lg.Entry = append(lg.Entry, entry)
		lg.Exit = append(lg.Exit, exit)
		lg.modules = append(lg.modules, m)
	}

	for i := 0; i+1 < len(line.Modules); i++ {
		t, _ := line.Transfer(i)
		for _, j := range lg.modules[i].jobs {
			dst, ok := lg.Entry[i+1][j]
			if !ok {
				continue
			}
			src := lg.Exit[i][j]
			w := t.Window(j)
			if err := lg.Graph.AddEdge(src, dst, w.Min); err != nil {
				return nil, err
			}
			if w.Max != ir.PosInf {
				if err := lg.Graph.AddEdge(dst, src, -w.Max); err != nil {
					return nil, err
				}
			}
		}
	}
	return lg, nil
}

// Windows returns the exact input and output tables of module i.
func (lg *LineGraph) Windows(i int) (input, output ir.IntervalSpec, err error) {
	if i < 0 || i >= len(lg.modules) {
		return nil, nil, fmt.Errorf("module %d out of range", i)
	}
	m := lg.modules[i]
	if input, err = windows(lg.Graph, m.jobs, m.pairs, lg.Entry[i]); err != nil {
		return nil, nil, err
	}
	if output, err = windows(lg.Graph, m.jobs, m.pairs, lg.Exit[i]); err != nil {
		return nil, nil, err
	}
	return input, output, nil
}
