package index

import "container/heap"

// Posting records where a term appears inside one snapshot record.
type Posting struct {
	Position  int
	Frequency int
}

// PostingList is kept sorted by Position; Rebuild appends in record order.
type PostingList []Posting

// TermEntry pairs a term with its postings, for introspection.
type TermEntry struct {
	Term     string
	Postings PostingList
}

// cursor walks one posting list during a merge.
type cursor struct {
	list PostingList
	next int
}

type cursorHeap []*cursor

func (h cursorHeap) Len() int { return len(h) }
func (h cursorHeap) Less(i, j int) bool {
	return h[i].list[h[i].next].Position < h[j].list[h[j].next].Position
}
func (h cursorHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *cursorHeap) Push(x any)   { *h = append(*h, x.(*cursor)) }
func (h *cursorHeap) Pop() any {
	old := *h
	n := len(old)
	c := old[n-1]
	*h = old[:n-1]
	return c
}

// union merges sorted posting lists into the ascending, de-duplicated
// positions they cover.
func union(lists ...PostingList) []int {
	h := make(cursorHeap, 0, len(lists))
	total := 0
	for _, pl := range lists {
		if len(pl) > 0 {
			h = append(h, &cursor{list: pl})
			total += len(pl)
		}
	}
	heap.Init(&h)

	out := make([]int, 0, total)
	for h.Len() > 0 {
		c := h[0]
		pos := c.list[c.next].Position
		if len(out) == 0 || out[len(out)-1] != pos {
			out = append(out, pos)
		}
		c.next++
		if c.next == len(c.list) {
			heap.Pop(&h)
		} else {
			heap.Fix(&h, 0)
		}
	}
	return out
}
