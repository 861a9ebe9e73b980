package solver

import "sync/atomic"

// sequence is a monotonic logical counter that stamps frontier entries so
// insertion order breaks ties deterministically.
//
// It can be restarted at a saved position when a search is resumed.
type sequence struct {
	n atomic.Uint64
}

func newSequenceAt(start uint64) *sequence {
	s := &sequence{}
	s.n.Store(start)
	return s
}

// Next returns the next value; the first call on a fresh counter returns 1.
func (s *sequence) Next() uint64 {
	return s.n.Add(1)
}

// Current returns the last value handed out.
func (s *sequence) Current() uint64 {
	return s.n.Load()
}
