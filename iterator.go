package lockfree

// Iterator provides a forward-only view over the skip list. It holds no
// node references between calls: the position is remembered by key and
// re-sought under a fresh epoch guard on every advance, so recycled nodes
// are never dereferenced.
type Iterator[K comparable, V any] struct {
	m       *SkipListMap[K, V]
	key     K
	value   V
	valid   bool
	started bool
}

// Iterator returns a new iterator positioned before the first element.
func (m *SkipListMap[K, V]) Iterator() *Iterator[K, V] {
	return &Iterator[K, V]{m: m}
}

// Valid reports whether the iterator currently points at an element.
func (it *Iterator[K, V]) Valid() bool {
	if it == nil {
		return false
	}
	return it.valid
}

// Key returns the key at the iterator's current position.
// It should only be called when Valid reports true.
func (it *Iterator[K, V]) Key() K {
	var zero K
	if it == nil || !it.valid {
		return zero
	}
	return it.key
}

// Value returns the value at the iterator's current position.
// It should only be called when Valid reports true.
func (it *Iterator[K, V]) Value() V {
	var zero V
	if it == nil || !it.valid {
		return zero
	}
	return it.value
}

// SeekGE positions the iterator at the first element whose key is
// greater than or equal to the provided key. It returns true if such an
// element exists.
func (it *Iterator[K, V]) SeekGE(key K) bool {
	if it == nil || it.m == nil {
		return false
	}

	g := it.m.rec.Enter()
	defer g.Exit()

	it.valid = false
	it.started = true
	it.key = key

	_, succs, _ := it.m.find(key)
	return it.settle(succs[0])
}

// Next advances the iterator to the next element and reports whether it
// successfully moved forward. If the iterator has not been positioned
// yet, it advances to the first element.
func (it *Iterator[K, V]) Next() bool {
	if it == nil || it.m == nil {
		return false
	}

	g := it.m.rec.Enter()
	defer g.Exit()

	if !it.started {
		it.started = true
		return it.settle(it.m.advanceFrom(nil))
	}

	_, succs, _ := it.m.find(it.key)
	cand := succs[0]
	if cand != nil && cand != it.m.tail && cand.key == it.key {
		// Still present; step past it.
		cand = it.m.advanceFrom(cand)
	}
	return it.settle(cand)
}

// settle lands the iterator on the first live node at or after current,
// skipping nodes that were logically deleted before their value could be
// observed. The caller must hold an epoch guard.
func (it *Iterator[K, V]) settle(current *node[K, V]) bool {
	for {
		if current == nil || current == it.m.tail {
			it.valid = false
			var zero V
			it.value = zero
			return false
		}

		valPtr := current.val.Load()
		if valPtr != nil {
			it.key = current.key
			it.value = *valPtr
			it.valid = true
			return true
		}

		current = it.m.advanceFrom(current)
	}
}
