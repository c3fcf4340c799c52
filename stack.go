package lockfree

import (
	"sync"
	"sync/atomic"
)

// snode holds one stack element. next is written before the node is
// published by the top CAS and never mutated afterwards, so readers that
// obtained the node through an atomic load of top observe a stable value.
type snode[T any] struct {
	item T
	next *snode[T]
}

// Stack is a Treiber lock-free stack. Push and Pop are linearizable at the
// point of the winning CAS on top.
type Stack[T any] struct {
	top     atomic.Pointer[snode[T]]
	rec     *Reclaimer
	pool    sync.Pool
	metrics *Metrics
}

// NewStack returns an empty stack.
func NewStack[T any]() *Stack[T] {
	s := &Stack[T]{
		rec:     NewReclaimer(),
		metrics: newMetrics(newRNG()),
	}
	s.pool.New = func() any { return new(snode[T]) }
	return s
}

// Push links item on top of the stack. It never fails.
func (s *Stack[T]) Push(item T) {
	n := s.pool.Get().(*snode[T])
	n.item = item
	for {
		top := s.top.Load()
		n.next = top
		if s.top.CompareAndSwap(top, n) {
			s.metrics.IncCASSuccess()
			s.metrics.AddLen(1)
			return
		}
		s.metrics.IncCASRetry()
	}
}

// Pop unlinks and returns the top element. The boolean is false when the
// stack was observed empty, which is an expected outcome, not an error.
func (s *Stack[T]) Pop() (T, bool) {
	var zero T
	g := s.rec.Enter()
	for {
		top := s.top.Load()
		if top == nil {
			g.Exit()
			return zero, false
		}
		next := top.next
		if s.top.CompareAndSwap(top, next) {
			s.metrics.IncCASSuccess()
			s.metrics.AddLen(-1)
			item := top.item
			g.Retire(func() { s.releaseNode(top) })
			g.Exit()
			return item, true
		}
		s.metrics.IncCASRetry()
	}
}

// Len reports the advisory element count. It may be stale the instant it
// returns and must not gate correctness decisions.
func (s *Stack[T]) Len() int64 {
	return s.metrics.Len()
}

// CASStats reports the stack's CAS retry and success counters.
func (s *Stack[T]) CASStats() (retries, successes int64) {
	return s.metrics.CASStats()
}

func (s *Stack[T]) releaseNode(n *snode[T]) {
	var zero T
	n.item = zero
	n.next = nil
	s.pool.Put(n)
}
