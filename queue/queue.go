package queue

import (
	"container/heap"
	"sync"
	"time"

	"github.com/pranabesh-official/camelot-downloader/job"
)

// Pending is the ordered store of downloads waiting for admission.
// Ordering is priority descending, then sequence ascending (earlier
// submissions win ties). Push and Pop are O(log n).
//
// Pending is safe for concurrent use. Cancelled downloads are not removed
// in place; the dispatch loop discards them when popped (lazy deletion).
type Pending struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  downloadHeap
	closed bool
}

// NewPending creates an empty pending queue.
func NewPending() *Pending {
	q := &Pending{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push inserts a download and wakes one blocked Pop.
func (q *Pending) Push(d *job.Download) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	heap.Push(&q.items, d)
	q.cond.Signal()
}

// Pop removes and returns the download with the numerically highest
// priority, ties broken by earliest sequence. If the queue is empty it
// blocks up to timeout, then returns (nil, false) rather than blocking
// forever. A closed queue also returns (nil, false) once drained.
func (q *Pending) Pop(timeout time.Duration) (*job.Download, bool) {
	deadline := time.Now().Add(timeout)

	q.mu.Lock()
	defer q.mu.Unlock()

	for q.items.Len() == 0 && !q.closed {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, false
		}
		// sync.Cond has no timed wait; a timer broadcast bounds it.
		wakeup := time.AfterFunc(remaining, q.cond.Broadcast)
		q.cond.Wait()
		wakeup.Stop()
	}

	if q.items.Len() == 0 {
		return nil, false
	}

	d := heap.Pop(&q.items).(*job.Download)
	return d, true
}

// Len returns the current pending count.
func (q *Pending) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}

// Close wakes all blocked Pops. Pushed items already in the queue remain
// poppable; new pushes are dropped.
func (q *Pending) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}

// downloadHeap implements container/heap ordered by (priority desc,
// sequence asc).
type downloadHeap []*job.Download

func (h downloadHeap) Len() int { return len(h) }

func (h downloadHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority > h[j].Priority
	}
	return h[i].Sequence < h[j].Sequence
}

func (h downloadHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *downloadHeap) Push(x any) { *h = append(*h, x.(*job.Download)) }

func (h *downloadHeap) Pop() any {
	old := *h
	n := len(old)
	d := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return d
}
