package lockfree

import (
	"sync"
	"sync/atomic"
)

type qnode[T any] struct {
	item T
	next atomic.Pointer[qnode[T]]
}

// Queue is a Michael-Scott lock-free FIFO queue. It always contains at
// least one node, the sentinel, so head is never nil; tail may lag the
// true last node by at most one link and is advanced cooperatively by any
// operation that observes the lag.
type Queue[T any] struct {
	head    atomic.Pointer[qnode[T]]
	tail    atomic.Pointer[qnode[T]]
	rec     *Reclaimer
	pool    sync.Pool
	metrics *Metrics
}

// NewQueue returns an empty queue holding only the sentinel.
func NewQueue[T any]() *Queue[T] {
	q := &Queue[T]{
		rec:     NewReclaimer(),
		metrics: newMetrics(newRNG()),
	}
	q.pool.New = func() any { return new(qnode[T]) }
	sentinel := q.pool.Get().(*qnode[T])
	q.head.Store(sentinel)
	q.tail.Store(sentinel)
	return q
}

// Enqueue appends item at the tail. It never fails.
func (q *Queue[T]) Enqueue(item T) {
	n := q.pool.Get().(*qnode[T])
	n.item = item
	n.next.Store(nil)

	g := q.rec.Enter()
	for {
		tail := q.tail.Load()
		next := tail.next.Load()
		if tail != q.tail.Load() {
			q.metrics.IncCASRetry()
			continue
		}
		if next != nil {
			// Tail is lagging; help advance it and retry without
			// allocating a new node.
			q.tail.CompareAndSwap(tail, next)
			continue
		}
		if tail.next.CompareAndSwap(nil, n) {
			// Best effort; a failure here is repaired by the next
			// operation's help-advance step.
			q.tail.CompareAndSwap(tail, n)
			q.metrics.IncCASSuccess()
			q.metrics.AddLen(1)
			g.Exit()
			return
		}
		q.metrics.IncCASRetry()
	}
}

// Dequeue unlinks and returns the oldest element. The boolean is false
// when the queue was observed empty.
func (q *Queue[T]) Dequeue() (T, bool) {
	var zero T
	g := q.rec.Enter()
	for {
		head := q.head.Load()
		tail := q.tail.Load()
		next := head.next.Load()
		if head != q.head.Load() {
			continue
		}
		if head == tail {
			if next == nil {
				g.Exit()
				return zero, false
			}
			q.tail.CompareAndSwap(tail, next)
			continue
		}
		if next == nil {
			// head moved between the loads above.
			continue
		}
		// The payload travels with the node being advanced to; read it
		// before the CAS, after which the old sentinel is retired.
		item := next.item
		if q.head.CompareAndSwap(head, next) {
			q.metrics.IncCASSuccess()
			q.metrics.AddLen(-1)
			g.Retire(func() { q.releaseNode(head) })
			g.Exit()
			return item, true
		}
		q.metrics.IncCASRetry()
	}
}

// Len reports the advisory element count. It may be stale the instant it
// returns and must not gate correctness decisions.
func (q *Queue[T]) Len() int64 {
	return q.metrics.Len()
}

// CASStats reports the queue's CAS retry and success counters.
func (q *Queue[T]) CASStats() (retries, successes int64) {
	return q.metrics.CASStats()
}

func (q *Queue[T]) releaseNode(n *qnode[T]) {
	var zero T
	n.item = zero
	n.next.Store(nil)
	q.pool.Put(n)
}
