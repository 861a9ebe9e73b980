package modular

import (
	"fmt"

	"github.com/roach88/shopsched/internal/ir"
	"github.com/roach88/shopsched/internal/schedule"
)

// PairWindow is the serialized form of one table entry. Nil bounds are
// unbounded.
type PairWindow struct {
	First  ir.JobID `json:"first" yaml:"first"`
	Second ir.JobID `json:"second" yaml:"second"`
	Min    *int64   `json:"min,omitempty" yaml:"min,omitempty"`
	Max    *int64   `json:"max,omitempty" yaml:"max,omitempty"`
}

// Interval returns the window as an ir.Interval.
func (w PairWindow) Interval() ir.Interval {
	iv := ir.Unbounded()
	if w.Min != nil {
		iv.Min = *w.Min
	}
	if w.Max != nil {
		iv.Max = *w.Max
	}
	return iv
}

// ExportSpec flattens a table in canonical pair order.
func ExportSpec(spec ir.IntervalSpec) []PairWindow {
	pairs := spec.Pairs()
	out := make([]PairWindow, 0, len(pairs))
	for _, p := range pairs {
		iv := spec[p]
		w := PairWindow{First: p.First, Second: p.Second}
		if iv.Min != ir.NegInf {
			lo := iv.Min
			w.Min = &lo
		}
		if iv.Max != ir.PosInf {
			hi := iv.Max
			w.Max = &hi
		}
		out = append(out, w)
	}
	return out
}

// ImportSpec rebuilds a table. Pairs must be ordered (First < Second) and
// unique.
func ImportSpec(windows []PairWindow) (ir.IntervalSpec, error) {
	spec := make(ir.IntervalSpec, len(windows))
	for _, w := range windows {
		if w.First >= w.Second {
			return nil, fmt.Errorf("pair (%d,%d) is not ordered", w.First, w.Second)
		}
		p := ir.JobPair{First: w.First, Second: w.Second}
		if _, dup := spec[p]; dup {
			return nil, fmt.Errorf("duplicate pair %s", p)
		}
		spec[p] = w.Interval()
	}
	return spec, nil
}

// ModuleBounds is one module's tables at the end of an iteration.
type ModuleBounds struct {
	Index    int              `json:"index" yaml:"index"`
	Name     string           `json:"name" yaml:"name"`
	Input    []PairWindow     `json:"input" yaml:"input"`
	Output   []PairWindow     `json:"output" yaml:"output"`
	Sequence *schedule.Export `json:"sequence,omitempty" yaml:"sequence,omitempty"`
	Failed   string           `json:"failed,omitempty" yaml:"failed,omitempty"`
}

// Snapshot records every module's tables after one iteration.
type Snapshot struct {
	Iteration int            `json:"iteration" yaml:"iteration"`
	Changed   bool           `json:"changed" yaml:"changed"`
	Modules   []ModuleBounds `json:"modules" yaml:"modules"`
}

// Result is the outcome of a propagation run.
//
// Final holds the last snapshot. Converged is false when the iteration cap
// was hit while tables were still shrinking.
type Result struct {
	Snapshots  []Snapshot `json:"snapshots"`
	Final      Snapshot   `json:"final"`
	Converged  bool       `json:"converged"`
	Iterations int        `json:"iterations"`
	Failed     []int      `json:"failed,omitempty"`
}

// Input returns module i's final input table.
func (r Result) Input(i int) (ir.IntervalSpec, error) {
	if i < 0 || i >= len(r.Final.Modules) {
		return nil, fmt.Errorf("module %d out of range", i)
	}
	return ImportSpec(r.Final.Modules[i].Input)
}

// Output returns module i's final output table.
func (r Result) Output(i int) (ir.IntervalSpec, error) {
	if i < 0 || i >= len(r.Final.Modules) {
		return nil, fmt.Errorf("module %d out of range", i)
	}
	return ImportSpec(r.Final.Modules[i].Output)
}
