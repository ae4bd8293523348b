// Package queue provides value-based binary heaps ordered by similarity score.
//
// Two orderings are offered: a "best" queue whose top element is the most
// similar candidate (used as the search frontier), and a "worst" queue whose
// top element is the least similar candidate (used as a bounded result set
// that evicts its worst element when full).
//
// Ties on score are broken by record reference: the lower reference wins.
// This makes every search that uses these queues fully deterministic.
package queue

// Item is a candidate in a similarity search.
type Item struct {
	Ref   uint32  // record reference
	Score float32 // similarity score, higher is better
}

// Better reports whether a ranks strictly ahead of b.
func Better(a, b Item) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.Ref < b.Ref
}

// Queue is a value-based binary heap of Items.
type Queue struct {
	bestOnTop bool
	items     []Item
}

// NewBest returns a queue whose top element is the best (highest score) item.
func NewBest(capacity int) *Queue {
	return &Queue{
		bestOnTop: true,
		items:     make([]Item, 0, capacity),
	}
}

// NewWorst returns a queue whose top element is the worst (lowest score) item.
func NewWorst(capacity int) *Queue {
	return &Queue{
		bestOnTop: false,
		items:     make([]Item, 0, capacity),
	}
}

// Len returns the number of items in the queue.
func (q *Queue) Len() int { return len(q.items) }

// Top returns the top element without removing it.
func (q *Queue) Top() (Item, bool) {
	if len(q.items) == 0 {
		return Item{}, false
	}
	return q.items[0], true
}

// Push inserts an item while maintaining the heap invariant.
func (q *Queue) Push(item Item) {
	q.items = append(q.items, item)
	q.siftUp(len(q.items) - 1)
}

// Pop removes and returns the top element while maintaining the heap invariant.
func (q *Queue) Pop() (Item, bool) {
	n := len(q.items)
	if n == 0 {
		return Item{}, false
	}
	root := q.items[0]
	last := q.items[n-1]
	q.items[n-1] = Item{}
	q.items = q.items[:n-1]
	if n-1 > 0 {
		q.items[0] = last
		q.siftDown(0)
	}
	return root, true
}

// Reset clears the queue for reuse, keeping the backing slice.
func (q *Queue) Reset() {
	q.items = q.items[:0]
}

// Items returns the backing slice in heap order. Callers must not mutate it.
func (q *Queue) Items() []Item { return q.items }

func (q *Queue) less(i, j int) bool {
	if q.bestOnTop {
		return Better(q.items[i], q.items[j])
	}
	return Better(q.items[j], q.items[i])
}

func (q *Queue) siftUp(i int) {
	for i > 0 {
		p := (i - 1) / 2
		if !q.less(i, p) {
			return
		}
		q.items[i], q.items[p] = q.items[p], q.items[i]
		i = p
	}
}

func (q *Queue) siftDown(i int) {
	n := len(q.items)
	for {
		l := 2*i + 1
		if l >= n {
			return
		}
		best := l
		if r := l + 1; r < n && q.less(r, l) {
			best = r
		}
		if !q.less(best, i) {
			return
		}
		q.items[i], q.items[best] = q.items[best], q.items[i]
		i = best
	}
}
