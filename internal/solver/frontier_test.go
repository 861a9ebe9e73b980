package solver

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrontier_PopsInComparatorOrder(t *testing.T) {
	f := newFrontier(func(a, b FrontierEntry) bool { return a.Key < b.Key })
	r := rand.New(rand.NewPCG(1, 2))

	var keys []uint64
	for i := 0; i < 200; i++ {
		k := r.Uint64N(1000)
		keys = append(keys, k)
		f.Push(FrontierEntry{Vertex: i, Seq: uint64(i), Key: k})
	}
	slices.Sort(keys)

	var got []uint64
	for f.Len() > 0 {
		got = append(got, f.Pop().Key)
	}
	assert.Equal(t, keys, got)
}

func TestFrontier_ReheapAfterComparatorChange(t *testing.T) {
	desc := false
	f := newFrontier(func(a, b FrontierEntry) bool {
		if desc {
			return a.Seq > b.Seq
		}
		return a.Seq < b.Seq
	})
	for i := 1; i <= 5; i++ {
		f.Push(FrontierEntry{Vertex: i, Seq: uint64(i)})
	}
	require.Equal(t, uint64(1), f.Pop().Seq)

	desc = true
	f.Reheap()
	assert.Equal(t, uint64(5), f.Pop().Seq)
	assert.Equal(t, uint64(4), f.Pop().Seq)
	assert.Len(t, f.Entries(), 2)
}

func TestSequence_ResumesAtPosition(t *testing.T) {
	s := newSequenceAt(0)
	assert.Equal(t, uint64(1), s.Next())
	assert.Equal(t, uint64(2), s.Next())

	r := newSequenceAt(s.Current())
	assert.Equal(t, uint64(3), r.Next())
}
