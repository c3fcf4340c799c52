package lockfree

import (
	"runtime"
	"sync/atomic"
)

const goschedEvery = 64 // reduce runtime.Gosched() frequency in hot loops

type rslot[T any] struct {
	// seq controls slot ownership: seq == pos means free for the producer
	// at position pos, seq == pos+1 means published for the consumer at
	// position pos.
	seq atomic.Uint64
	val T
}

// Ring is a bounded multi-producer multi-consumer ring buffer. Head and
// tail are monotonically increasing and advanced only by CAS; the slot
// index is the position modulo capacity, so indices never suffer
// wrap-around ABA. Slots carry sequence numbers so a producer publishes a
// value only after owning the slot.
//
// At most capacity-1 slots are ever occupied: one slot is sacrificed to
// disambiguate full from empty.
type Ring[T any] struct {
	_        [64]byte
	capacity uint64
	slots    []rslot[T]
	_        [64]byte
	tail     atomic.Uint64 // next position to produce
	_        [64]byte
	head     atomic.Uint64 // next position to consume
	_        [64]byte
	metrics  *Metrics
}

// NewRing creates a ring buffer with the given number of slots. At most
// capacity-1 elements are held at once. Capacity below 2 is a programming
// error.
func NewRing[T any](capacity uint64) *Ring[T] {
	if capacity < 2 {
		panic("capacity must be >= 2")
	}
	slots := make([]rslot[T], capacity)
	for i := uint64(0); i < capacity; i++ {
		slots[i].seq.Store(i)
	}
	return &Ring[T]{
		capacity: capacity,
		slots:    slots,
		metrics:  newMetrics(newRNG()),
	}
}

// Offer stores item and returns true, or returns false when the buffer is
// full. Fullness is re-checked against a freshly read head on every
// attempt. Safe for any number of concurrent producers.
func (r *Ring[T]) Offer(item T) bool {
	var spins uint32
	for {
		pos := r.tail.Load()
		head := r.head.Load()
		if pos-head >= r.capacity-1 {
			return false
		}

		s := &r.slots[pos%r.capacity]
		seq := s.seq.Load()
		diff := int64(seq) - int64(pos)

		if diff == 0 {
			// Slot is free for this position; try to reserve it.
			if r.tail.CompareAndSwap(pos, pos+1) {
				s.val = item
				// Publish the value: seq = pos+1.
				s.seq.Store(pos + 1)
				r.metrics.IncCASSuccess()
				r.metrics.AddLen(1)
				return true
			}
			r.metrics.IncCASRetry()
		} else if diff < 0 {
			// The consumer has not freed this slot yet.
			return false
		}
		// diff > 0: the slot still belongs to a previous cycle; retry
		// with a fresh pos.
		spins++
		if spins%goschedEvery == 0 {
			runtime.Gosched()
		}
	}
}

// Poll removes and returns the oldest element. The boolean is false when
// the buffer was observed empty. Safe for any number of concurrent
// consumers.
func (r *Ring[T]) Poll() (T, bool) {
	var zero T
	var spins uint32
	for {
		pos := r.head.Load()
		tail := r.tail.Load()
		if pos >= tail {
			return zero, false
		}

		s := &r.slots[pos%r.capacity]
		seq := s.seq.Load()
		diff := int64(seq) - int64(pos+1)

		if diff == 0 {
			// Element is published for this position; try to claim it.
			if r.head.CompareAndSwap(pos, pos+1) {
				item := s.val
				var zv T
				s.val = zv
				// Free the slot for the next cycle.
				s.seq.Store(pos + r.capacity)
				r.metrics.IncCASSuccess()
				r.metrics.AddLen(-1)
				return item, true
			}
			r.metrics.IncCASRetry()
		} else if diff < 0 {
			// The producer at this position has not published yet.
			return zero, false
		}
		spins++
		if spins%goschedEvery == 0 {
			runtime.Gosched()
		}
	}
}

// IsEmpty reports whether the buffer was observed empty. Advisory under
// concurrent mutation.
func (r *Ring[T]) IsEmpty() bool {
	return r.head.Load() >= r.tail.Load()
}

// IsFull reports whether the buffer was observed full. Advisory under
// concurrent mutation.
func (r *Ring[T]) IsFull() bool {
	return r.tail.Load()-r.head.Load() >= r.capacity-1
}

// Size reports the observed element count, in [0, capacity-1]. It may be
// stale the instant it returns and must never gate correctness decisions.
func (r *Ring[T]) Size() int {
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
func (r *Ring[T]) Cap() int {
	return int(r.capacity)
}

// CASStats reports the ring's CAS retry and success counters.
func (r *Ring[T]) CASStats() (retries, successes int64) {
	return r.metrics.CASStats()
}
