package solver

// FrontierEntry is one vertex waiting for expansion. Seq is its insertion
// stamp; Key is the random priority under the random policy.
type FrontierEntry struct {
	Vertex int    `json:"vertex"`
	Seq    uint64 `json:"seq"`
	Key    uint64 `json:"key,omitempty"`
}

// frontier is a binary heap ordered by a policy comparator: the entry for
// which less reports true against every other is popped first.
type frontier struct {
	items []FrontierEntry
	less  func(a, b FrontierEntry) bool
}

func newFrontier(less func(a, b FrontierEntry) bool) *frontier {
	return &frontier{items: make([]FrontierEntry, 0, 256), less: less}
}

func (f *frontier) Len() int { return len(f.items) }

func (f *frontier) Push(e FrontierEntry) {
	f.items = append(f.items, e)
	f.siftUp(len(f.items) - 1)
}

func (f *frontier) Pop() FrontierEntry {
	n := len(f.items)
	item := f.items[0]
	f.items[0] = f.items[n-1]
	f.items = f.items[:n-1]
	if len(f.items) > 0 {
		f.siftDown(0)
	}
	return item
}

// Reheap restores the heap order after the comparator's inputs changed.
func (f *frontier) Reheap() {
	for i := len(f.items)/2 - 1; i >= 0; i-- {
		f.siftDown(i)
	}
}

// Entries returns a copy of the heap contents in storage order.
func (f *frontier) Entries() []FrontierEntry {
	return append([]FrontierEntry(nil), f.items...)
}

func (f *frontier) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !f.less(f.items[i], f.items[parent]) {
			break
		}
		f.items[i], f.items[parent] = f.items[parent], f.items[i]
		i = parent
	}
}

func (f *frontier) siftDown(i int) {
	n := len(f.items)
	for {
		first := i
		left := 2*i + 1
		right := 2*i + 2
		if left < n && f.less(f.items[left], f.items[first]) {
			first = left
		}
		if right < n && f.less(f.items[right], f.items[first]) {
			first = right
		}
		if first == i {
			break
		}
		f.items[i], f.items[first] = f.items[first], f.items[i]
		i = first
	}
}
