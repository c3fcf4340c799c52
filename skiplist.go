package lockfree

// SkipListMap is a concurrent lock-free skip list map. At every level the
// list reachable through unmarked references is sorted by key and holds
// each key at most once. Concurrent writers to different keys never block
// each other; a CAS failure at one level retries the splice from the last
// valid predecessor, not the whole operation.
type SkipListMap[K comparable, V any] struct {
	less    Less[K]
	head    *node[K, V]
	tail    *node[K, V]
	rng     *RNG
	metrics *Metrics
	rec     *Reclaimer
	pools   nodePools[K, V]
	mutator mutatorImpl[K, V]
}

// NewMap returns a new SkipListMap ordered by less.
func NewMap[K comparable, V any](less Less[K]) *SkipListMap[K, V] {
	head, tail := newSentinels[K, V]()
	rng := newRNG()
	m := &SkipListMap[K, V]{
		less:    less,
		head:    head,
		tail:    tail,
		rng:     rng,
		metrics: newMetrics(rng),
		rec:     NewReclaimer(),
	}
	m.pools.init()
	m.mutator = mutatorImpl[K, V]{m: m}
	return m
}

// find returns the predecessors and successors of the given key at each
// level, helping unlink markers and logically deleted nodes along the
// way. The returned found is true if the key is present and not logically
// deleted. The caller must hold an epoch guard.
func (m *SkipListMap[K, V]) find(key K) (preds, succs []*node[K, V], found bool) {
	preds = make([]*node[K, V], MaxLevel)
	succs = make([]*node[K, V], MaxLevel)

	x := m.head
	for i := MaxLevel - 1; i >= 0; i-- {
		for {
			nextPtr := x.next[i].Load()
			var next *node[K, V]
			if nextPtr != nil {
				next = *nextPtr
			}
			if next == nil {
				next = m.tail
			}

			// Skip markers and logically deleted nodes (help unlinking).
			if next != m.tail {
				if next.marker || next.val.Load() == nil {
					succPtr := m.loadNextPtr(next, i)
					if !x.next[i].CompareAndSwap(nextPtr, succPtr) {
						continue
					}
					continue
				}
			}

			if next == m.tail || !m.less(next.key, key) {
				preds[i] = x
				succs[i] = next
				break
			}

			x = next
		}
	}

	// The candidate node is the successor of the predecessor at the bottom
	// level; it matches only if its key compares equal and it is not
	// logically deleted.
	candidate := succs[0]
	if candidate != nil && candidate != m.tail && candidate.key == key {
		if candidate.val.Load() != nil {
			found = true
		}
	}

	return preds, succs, found
}

// loadNextPtr returns the pointer to the next node at the specified level,
// skipping over marker nodes if necessary.
func (m *SkipListMap[K, V]) loadNextPtr(n *node[K, V], level int) **node[K, V] {
	if n == nil || level >= len(n.next) {
		return &m.tail
	}
	succ := n.next[level].Load()
	if succ == nil {
		return &m.tail
	}
	next := *succ
	if next == nil || !next.marker {
		return succ
	}
	// next is a marker
	if level >= len(next.next) {
		return &m.tail
	}
	markerSucc := next.next[level].Load()
	if markerSucc != nil {
		return markerSucc
	}
	return &m.tail
}

// Len reports the advisory element count.
func (m *SkipListMap[K, V]) Len() int64 {
	return m.metrics.Len()
}

// Get returns the value for a key.
// The boolean is true if the key exists, false otherwise.
func (m *SkipListMap[K, V]) Get(key K) (V, bool) {
	g := m.rec.Enter()
	defer g.Exit()

	_, succs, found := m.find(key)
	if !found {
		var v V
		return v, false
	}
	valPtr := succs[0].val.Load()
	if getAfterFindHook != nil && getAfterFindHook(succs[0]) {
		valPtr = succs[0].val.Load()
	}
	if valPtr == nil {
		var v V
		return v, false
	}
	return *valPtr, true
}

// Contains returns true if the key exists in the skip list.
func (m *SkipListMap[K, V]) Contains(key K) bool {
	g := m.rec.Enter()
	defer g.Exit()

	_, _, found := m.find(key)
	return found
}

// Put inserts or updates the value for the given key. It returns the
// previous value and a flag indicating whether an existing entry was
// replaced.
func (m *SkipListMap[K, V]) Put(key K, value V) (V, bool) {
	g := m.rec.Enter()
	defer g.Exit()

	return m.mutator.put(g, key, value)
}

// Delete removes the value associated with the given key. The removal is
// performed in two phases: logical deletion followed by physical
// unlinking of the node from each level.
func (m *SkipListMap[K, V]) Delete(key K) (V, bool) {
	g := m.rec.Enter()
	defer g.Exit()

	return m.mutator.delete(g, key)
}

// advanceFrom returns the first live node after start (after head when
// start is nil), helping unlink markers and dead nodes on the way. The
// caller must hold an epoch guard.
func (m *SkipListMap[K, V]) advanceFrom(start *node[K, V]) *node[K, V] {
	base := start
	for {
		if base == nil {
			base = m.head
		}
		if len(base.next) == 0 {
			return nil
		}

		nextPtr := base.next[0].Load()
		if nextPtr == nil {
			return nil
		}

		next := *nextPtr
		if next == nil {
			base.next[0].CompareAndSwap(nextPtr, &m.tail)
			continue
		}

		if next == m.tail {
			return nil
		}

		if next.marker {
			succPtr := next.next[0].Load()
			if succPtr == nil {
				succPtr = &m.tail
			}
			base.next[0].CompareAndSwap(nextPtr, succPtr)
			continue
		}

		if next.val.Load() == nil {
			m.find(next.key)
			continue
		}

		return next
	}
}

// SeekGE returns an iterator positioned at the first element whose key is
// greater than or equal to the provided key. The returned iterator is
// valid if and only if such an element exists.
func (m *SkipListMap[K, V]) SeekGE(key K) *Iterator[K, V] {
	it := m.Iterator()
	it.SeekGE(key)
	return it
}

// CASStats reports the total number of CAS retries and successful
// insertions observed at the skip list's bottom level. These counters
// enable contention analysis in benchmarks.
func (m *SkipListMap[K, V]) CASStats() (retries, successes int64) {
	return m.metrics.CASStats()
}
