package lockfree

import "sync/atomic"

// node holds key/value and per-level next pointers.
type node[K, V any] struct {
	key K
	// val is a pointer to the value. A nil value indicates that the node is
	// logically deleted; the nil-ing CAS is the deletion's linearization
	// point.
	val    atomic.Pointer[V]
	next   []atomic.Pointer[*node[K, V]]
	marker bool
}

const (
	// MaxLevel is the fixed ceiling on skip-list levels.
	MaxLevel = 32

	// P is the promotion probability per additional level.
	P = 1.0 / 2.0
)

func newSentinels[K, V any]() (*node[K, V], *node[K, V]) {
	head := &node[K, V]{next: make([]atomic.Pointer[*node[K, V]], MaxLevel)}
	tail := &node[K, V]{}
	for i := range head.next {
		head.next[i].Store(&tail)
	}
	return head, tail
}
