package ir

import "fmt"

// Module is one independently schedulable sub-shop of a production line.
type Module struct {
	Name     string   `json:"name"`
	Instance Instance `json:"instance"`
}

// TransferConstraint links two adjacent modules. For every job j present in
// both, entry_To(j) - exit_From(j) lies in [Setup[j], Due[j]]. Jobs missing
// from Setup transfer instantly at minimum; jobs missing from Due have no
// upper limit.
type TransferConstraint struct {
	From  int             `json:"from"`
	To    int             `json:"to"`
	Setup map[JobID]int64 `json:"setup,omitempty"`
	Due   map[JobID]int64 `json:"due,omitempty"`
}

// Window returns the transfer window of job j.
func (t TransferConstraint) Window(j JobID) Interval {
	iv := Interval{Min: t.Setup[j], Max: PosInf}
	if d, ok := t.Due[j]; ok {
		iv.Max = d
	}
	return iv
}

// BoundaryFor derives the offsets for the pair (j, k). With transfer
// windows [s_j, d_j] and [s_k, d_k]:
//
//	entry(k)-entry(j) = exit(k)-exit(j) + (delta_k - delta_j)
//
// so the destination window widens by [s_k - d_j, d_k - s_j] and the
// source window by the mirrored offsets.
func (t TransferConstraint) BoundaryFor(j, k JobID) Boundary {
	wj, wk := t.Window(j), t.Window(k)
	return Boundary{
		ToDstMin: subSat(wk.Min, wj.Max),
		ToDstMax: subSat(wk.Max, wj.Min),
		ToSrcMin: subSat(wj.Min, wk.Max),
		ToSrcMax: subSat(wj.Max, wk.Min),
	}
}

// subSat returns a - b where an infinite operand dominates in the direction
// that widens the window.
func subSat(a, b int64) int64 {
	switch {
	case a == PosInf || b == NegInf:
		return PosInf
	case a == NegInf || b == PosInf:
		return NegInf
	default:
		return a - b
	}
}

// ProductionLine is an ordered chain of modules with one transfer record per
// adjacent pair.
type ProductionLine struct {
	Name      string               `json:"name"`
	Modules   []Module             `json:"modules"`
	Transfers []TransferConstraint `json:"transfers"`
}

// Transfer returns the record linking module i to module i+1.
func (l *ProductionLine) Transfer(i int) (TransferConstraint, bool) {
	for _, t := range l.Transfers {
		if t.From == i && t.To == i+1 {
			return t, true
		}
	}
	return TransferConstraint{}, false
}

// Validate checks the path topology: every transfer links adjacent modules
// in line order and every adjacent pair has exactly one transfer.
func (l *ProductionLine) Validate() error {
	if len(l.Modules) == 0 {
		return fmt.Errorf("production line %q has no modules", l.Name)
	}
	seen := make(map[int]bool)
	for _, t := range l.Transfers {
		if t.From < 0 || t.To >= len(l.Modules) || t.To != t.From+1 {
			return fmt.Errorf("transfer %d->%d does not link adjacent modules", t.From, t.To)
		}
		if seen[t.From] {
			return fmt.Errorf("duplicate transfer %d->%d", t.From, t.To)
		}
		seen[t.From] = true
	}
	for i := 0; i+1 < len(l.Modules); i++ {
		if !seen[i] {
			return fmt.Errorf("missing transfer %d->%d", i, i+1)
		}
	}
	return nil
}
