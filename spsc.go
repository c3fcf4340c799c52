package lockfree

import "sync/atomic"

// SPSCRing is a bounded ring buffer restricted to exactly one producer
// and one consumer goroutine. Each index is written by a single
// goroutine, so plain monotonic stores suffice; the atomic store of tail
// publishes the slot write to the consumer and the atomic store of head
// returns the slot to the producer.
//
// Like Ring, one slot is sacrificed to disambiguate full from empty.
type SPSCRing[T any] struct {
	capacity uint64
	data     []T
	_        [64]byte
	tail     atomic.Uint64 // written by the producer only
	_        [64]byte
	head     atomic.Uint64 // written by the consumer only
	_        [64]byte
}

// NewSPSCRing creates a single-producer single-consumer ring with the
// given number of slots. At most capacity-1 elements are held at once.
func NewSPSCRing[T any](capacity uint64) *SPSCRing[T] {
	if capacity < 2 {
		panic("capacity must be >= 2")
	}
	return &SPSCRing[T]{
		capacity: capacity,
		data:     make([]T, capacity),
	}
}

// Offer stores item and returns true, or false when the buffer is full.
// Must be called from the single producer goroutine.
func (r *SPSCRing[T]) Offer(item T) bool {
	tail := r.tail.Load()
	head := r.head.Load()
	if tail-head >= r.capacity-1 {
		return false
	}
	r.data[tail%r.capacity] = item
	r.tail.Store(tail + 1)
	return true
}

// Poll removes and returns the oldest element; false when empty. Must be
// called from the single consumer goroutine.
func (r *SPSCRing[T]) Poll() (T, bool) {
	var zero T
	head := r.head.Load()
	tail := r.tail.Load()
	if head >= tail {
		return zero, false
	}
	item := r.data[head%r.capacity]
	r.data[head%r.capacity] = zero
	r.head.Store(head + 1)
	return item, true
}

// IsEmpty reports whether the buffer was observed empty.
func (r *SPSCRing[T]) IsEmpty() bool {
	return r.head.Load() >= r.tail.Load()
}

// IsFull reports whether the buffer was observed full.
func (r *SPSCRing[T]) IsFull() bool {
	return r.tail.Load()-r.head.Load() >= r.capacity-1
}

// Size reports the observed element count, in [0, capacity-1].
func (r *SPSCRing[T]) Size() int {
	head := r.head.Load()
	tail := r.tail.Load()
	if tail <= head {
		return 0
	}
	n := tail - head
	if n > r.capacity-1 {
		n = r.capacity - 1
	}
	return int(n)
}

// Cap returns the fixed slot count. Usable capacity is Cap()-1.
func (r *SPSCRing[T]) Cap() int {
	return int(r.capacity)
}
