package manager

import (
	"container/heap"
	"sync"

	mapset "github.com/deckarep/golang-set"
)

// item is one queued partition stamped with its last issue tick.
type item struct {
	a      uint32
	issued uint64
}

type itemHeap []item

func (h itemHeap) Len() int            { return len(h) }
func (h itemHeap) Less(i, j int) bool  { return h[i].issued < h[j].issued }
func (h itemHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *itemHeap) Push(x interface{}) { *h = append(*h, x.(item)) }
func (h *itemHeap) Pop() interface{} {
	old := *h
	n := len(old)
	it := old[n-1]
	*h = old[:n-1]
	return it
}

// Queue hands out partitions oldest-issue-first and keeps re-issuing a
// partition until some worker completes it, so a crashed worker only delays
// its partition instead of losing it.
type Queue struct {
	mu        sync.Mutex
	pending   itemHeap
	completed mapset.Set
	tick      uint64 // logical issue clock, collision-free
}

// NewQueue returns an empty partition queue.
func NewQueue() *Queue {
	return &Queue{completed: mapset.NewSet()}
}

// Add registers partition a.
func (q *Queue) Add(a uint32) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tick++
	heap.Push(&q.pending, item{a: a, issued: q.tick})
}

// Work returns the oldest incomplete partition and re-queues it with a
// fresh issue stamp. ok is false when nothing incomplete remains.
func (q *Queue) Work() (uint32, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.pending.Len() > 0 {
		it := heap.Pop(&q.pending).(item)
		if q.completed.Contains(it.a) {
			continue // completed while a stale copy sat in the heap
		}
		q.tick++
		it.issued = q.tick
		heap.Push(&q.pending, it)
		return it.a, true
	}
	return 0, false
}

// Complete marks partition a done, reporting whether it already was.
func (q *Queue) Complete(a uint32) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.completed.Contains(a) {
		return true
	}
	q.completed.Add(a)
	return false
}

// Stats returns the completed and pending partition counts. Pending counts
// queue entries, so a partition completed out-of-band may linger until the
// next Work call pops its stale entry.
func (q *Queue) Stats() (completed, pending int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.completed.Cardinality(), q.pending.Len()
}
