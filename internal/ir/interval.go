package ir

import (
	"cmp"
	"fmt"
	"slices"
)

// Interval is a closed time window [Min, Max]. NegInf / PosInf mark an
// absent bound in that direction.
type Interval struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

// Unbounded returns (-inf, +inf).
func Unbounded() Interval {
	return Interval{Min: NegInf, Max: PosInf}
}

// Between returns [lo, hi].
func Between(lo, hi int64) Interval {
	return Interval{Min: lo, Max: hi}
}

// Empty reports whether the window admits no value (Min > Max).
func (i Interval) Empty() bool {
	return i.Min > i.Max
}

// IsUnbounded reports whether neither end is bounded.
func (i Interval) IsUnbounded() bool {
	return i.Min == NegInf && i.Max == PosInf
}

// Intersect applies the merge rule: new min = max of mins, new max = min of
// maxes. The result may be Empty; callers decide how to report that.
func (i Interval) Intersect(o Interval) Interval {
	return Interval{Min: max(i.Min, o.Min), Max: min(i.Max, o.Max)}
}

// Contains reports whether o lies within i.
func (i Interval) Contains(o Interval) bool {
	return i.Min <= o.Min && o.Max <= i.Max
}

// Shift translates both ends, keeping sentinels.
func (i Interval) Shift(dMin, dMax int64) Interval {
	return Interval{Min: AddSat(i.Min, dMin), Max: AddSat(i.Max, dMax)}
}

// Neg mirrors the window: if t_k - t_j is in i then t_j - t_k is in i.Neg().
func (i Interval) Neg() Interval {
	return Interval{Min: negSat(i.Max), Max: negSat(i.Min)}
}

func (i Interval) String() string {
	lo, hi := "-inf", "+inf"
	if i.Min != NegInf {
		lo = fmt.Sprintf("%d", i.Min)
	}
	if i.Max != PosInf {
		hi = fmt.Sprintf("%d", i.Max)
	}
	return "[" + lo + ", " + hi + "]"
}

func negSat(t int64) int64 {
	switch t {
	case NegInf:
		return PosInf
	case PosInf:
		return NegInf
	default:
		return -t
	}
}

// JobPair keys a bound table: the window constrains
// time(Second) - time(First).
type JobPair struct {
	First  JobID `json:"first"`
	Second JobID `json:"second"`
}

func (p JobPair) String() string {
	return fmt.Sprintf("%d:%d", p.First, p.Second)
}

// IntervalSpec maps job pairs to their feasible transfer-time window.
// Pairs that are absent are unbounded.
type IntervalSpec map[JobPair]Interval

// Get returns the window for p (Unbounded when absent).
func (s IntervalSpec) Get(p JobPair) Interval {
	if iv, ok := s[p]; ok {
		return iv
	}
	return Unbounded()
}

// Clone returns an independent copy.
func (s IntervalSpec) Clone() IntervalSpec {
	out := make(IntervalSpec, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Pairs returns the keys sorted by (First, Second).
func (s IntervalSpec) Pairs() []JobPair {
	pairs := make([]JobPair, 0, len(s))
	for p := range s {
		pairs = append(pairs, p)
	}
	slices.SortFunc(pairs, func(a, b JobPair) int {
		if c := cmp.Compare(a.First, b.First); c != 0 {
			return c
		}
		return cmp.Compare(a.Second, b.Second)
	})
	return pairs
}

// Equal reports whether both tables bound the same pairs identically.
// Unbounded entries are treated as absent.
func (s IntervalSpec) Equal(o IntervalSpec) bool {
	for p, iv := range s {
		if o.Get(p) != iv {
			return false
		}
	}
	for p, iv := range o {
		if s.Get(p) != iv {
			return false
		}
	}
	return true
}

// MergeConflict describes a pair whose merged window became empty.
type MergeConflict struct {
	Pair     JobPair
	Current  Interval
	Incoming Interval
}

// Merge intersects incoming windows into s in place. It reports whether
// any window tightened and every pair whose window became empty. Empty
// results are still stored so the conflict stays visible to callers.
func (s IntervalSpec) Merge(incoming IntervalSpec) (changed bool, conflicts []MergeConflict) {
	for _, p := range incoming.Pairs() {
		in := incoming[p]
		cur := s.Get(p)
		merged := cur.Intersect(in)
		if merged.Empty() {
			conflicts = append(conflicts, MergeConflict{Pair: p, Current: cur, Incoming: in})
		}
		if merged != cur {
			changed = true
			s[p] = merged
		}
	}
	return changed, conflicts
}

// Boundary holds the offsets applied to a window crossing from one module's
// time frame to its neighbour's. ToDst* apply in the line direction
// (source module to destination module), ToSrc* in the reverse direction.
type Boundary struct {
	ToDstMin int64 `json:"to_dst_min"`
	ToDstMax int64 `json:"to_dst_max"`
	ToSrcMin int64 `json:"to_src_min"`
	ToSrcMax int64 `json:"to_src_max"`
}

// TranslateToDestination maps a window from the source frame.
func (b Boundary) TranslateToDestination(i Interval) Interval {
	return i.Shift(b.ToDstMin, b.ToDstMax)
}

// TranslateToSource maps a window from the destination frame.
func (b Boundary) TranslateToSource(i Interval) Interval {
	return i.Shift(b.ToSrcMin, b.ToSrcMax)
}
