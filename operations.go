package lockfree

// mutatorImpl groups the mutating skip list algorithms.
type mutatorImpl[K comparable, V any] struct {
	m *SkipListMap[K, V]
}

// put inserts or updates the value for the given key in the skiplist.
// It returns the previous value and true if the key existed, otherwise
// zero value and false. The caller must hold the guard g.
func (u *mutatorImpl[K, V]) put(g Guard, key K, value V) (V, bool) {
	var pendingPtr **node[K, V]
	nextLevel := 1

	for {
		preds, succs, found := u.m.find(key)

		if pendingPtr != nil {
			pending := *pendingPtr

			if succs[0] != pending {
				var zero V
				return zero, false
			}

			done, resumeLevel := u.finishLevels(preds, succs, pendingPtr, nextLevel)
			if done {
				var zero V
				return zero, false
			}

			nextLevel = resumeLevel
			continue
		}

		if found {
			node := succs[0]
			for {
				oldPtr := node.val.Load()
				if oldPtr == nil {
					// A concurrent delete won; help finish the unlink
					// before retrying the insert.
					markerPtr := u.ensureMarker(node)
					u.physicalDelete(preds, node, markerPtr)
					break
				}
				if node.val.CompareAndSwap(oldPtr, &value) {
					return *oldPtr, true
				}
			}
			continue
		}

		height := u.m.rng.RandomLevel()
		valCopy := value
		newNode := u.m.acquireNode(key, &valCopy, height)
		pendingPtr = &newNode
		nextLevel = 1

		pred0 := preds[0]
		if pred0 == nil || len(pred0.next) == 0 {
			pred0 = u.m.head
		}

		expected0 := pred0.next[0].Load()
		succNode0 := succs[0]
		succPtr0 := expected0
		if succPtr0 == nil {
			succPtr0 = &u.m.tail
		}

		if succNode0 != nil && succNode0 != u.m.tail {
			if expected0 == nil || *expected0 != succNode0 {
				u.m.metrics.IncCASRetry()
				pendingPtr = nil
				u.m.releaseNode(newNode)
				continue
			}
		} else {
			if expected0 != nil && *expected0 != u.m.tail {
				u.m.metrics.IncCASRetry()
				pendingPtr = nil
				u.m.releaseNode(newNode)
				continue
			}
		}

		newNode.next[0].Store(succPtr0)

		if !pred0.next[0].CompareAndSwap(expected0, pendingPtr) {
			u.m.metrics.IncCASRetry()
			pendingPtr = nil
			u.m.releaseNode(newNode)
			continue
		}

		u.m.metrics.IncCASSuccess()
		u.m.metrics.AddLen(1)

		if height == 1 {
			var zero V
			return zero, false
		}

		done, resumeLevel := u.finishLevels(preds, succs, pendingPtr, nextLevel)
		if done {
			var zero V
			return zero, false
		}

		nextLevel = resumeLevel
	}
}

// finishLevels links a pending node at higher levels (above 0) using CAS.
// Returns true on success, or false with the level to resume from after a
// CAS failure or a stale snapshot.
func (u *mutatorImpl[K, V]) finishLevels(preds, succs []*node[K, V], pendingPtr **node[K, V], nextLevel int) (bool, int) {
	if pendingPtr == nil {
		return true, 0
	}

	pending := *pendingPtr

	height := len(pending.next)
	for level := nextLevel; level < height; level++ {
		pred := preds[level]
		if pred == nil {
			pred = u.m.head
		}
		if level >= len(pred.next) {
			// The predecessor we observed no longer has this level; retry.
			u.m.metrics.IncCASRetry()
			return false, level
		}

		expected := pred.next[level].Load()
		succNode := succs[level]
		succPtr := expected
		if succPtr == nil {
			succPtr = &u.m.tail
		}

		if succNode != nil && succNode != u.m.tail {
			if expected == nil || *expected != succNode {
				// The snapshot at this level is stale; retry the insertion.
				u.m.metrics.IncCASRetry()
				return false, level
			}
		} else {
			if expected != nil && *expected != u.m.tail {
				u.m.metrics.IncCASRetry()
				return false, level
			}
		}

		pending.next[level].Store(succPtr)

		if putLevelCASHook != nil {
			putLevelCASHook(level, pred, expected, pendingPtr)
		}

		if !pred.next[level].CompareAndSwap(expected, pendingPtr) {
			u.m.metrics.IncCASRetry()
			return false, level
		}
	}

	return true, len(pending.next)
}

// logicalDelete marks the value of the target node as deleted.
// The nil-ing CAS is the deletion's linearization point and picks a
// single winner among racing deleters.
func (u *mutatorImpl[K, V]) logicalDelete(target *node[K, V]) (V, bool) {
	var zero V
	if target == nil {
		return zero, false
	}
	for {
		cur := target.val.Load()
		if cur == nil {
			return zero, false
		}
		if target.val.CompareAndSwap(cur, nil) {
			u.m.metrics.AddLen(-1)
			return *cur, true
		}
	}
}

// ensureMarker ensures a marker node is placed after the target node so
// the unlink below can be a single CAS per level. It returns a pointer to
// the marker node.
func (u *mutatorImpl[K, V]) ensureMarker(target *node[K, V]) **node[K, V] {
	for {
		nextPtr := target.next[0].Load()
		succPtr := nextPtr
		if succPtr == nil {
			succPtr = &u.m.tail
		}
		nextNode := *succPtr
		if nextNode.marker {
			return nextPtr
		}
		marker := u.m.acquireMarker(target.key)
		marker.next[0].Store(succPtr)
		markerPtr := &marker
		if target.next[0].CompareAndSwap(nextPtr, markerPtr) {
			if ensureMarkerHook != nil {
				ensureMarkerHook(target)
			}
			return markerPtr
		}
		marker.next[0].Store(nil)
		u.m.releaseMarkerNode(marker)
	}
}

// physicalDelete unlinks the target node at every level it was spliced
// into. It returns true when the target is still reachable somewhere and
// the unlink must be retried with fresh predecessors: a racing insert
// that validated its splice before the logical delete can relink the
// target at an upper level, and retiring a node while any level still
// links it would hand it to the pool within reach of future traversals.
func (u *mutatorImpl[K, V]) physicalDelete(preds []*node[K, V], target *node[K, V], markerPtr **node[K, V]) bool {
	succPtr0 := &u.m.tail
	if markerPtr != nil {
		if marker := *markerPtr; marker != nil && marker.marker {
			if next := marker.next[0].Load(); next != nil {
				succPtr0 = next
			}
		}
	}

	topLevel := len(target.next) - 1
	for level := topLevel; level >= 0; level-- {
		succPtr := succPtr0
		if level > 0 {
			if next := target.next[level].Load(); next != nil {
				succPtr = next
			} else {
				succPtr = &u.m.tail
			}
		}

		pred := preds[level]
		if pred == nil {
			pred = u.m.head
		}

		for {
			if level >= len(pred.next) {
				break
			}

			current := pred.next[level].Load()

			var expectedNode *node[K, V]
			if current == nil {
				expectedNode = u.m.tail
			} else {
				expectedNode = *current
			}

			if expectedNode == target || (level == 0 && expectedNode != nil && expectedNode.marker) {
				if pred.next[level].CompareAndSwap(current, succPtr) {
					break
				}
				continue
			}

			break
		}
	}

	return u.linkedAnyLevel(target)
}

// linkedAnyLevel reports whether target can still be reached from the
// head chain at any of its levels. The walk follows raw links, counting
// markers and logically deleted nodes, because traversals dereference
// those while helping unlink them.
func (u *mutatorImpl[K, V]) linkedAnyLevel(target *node[K, V]) bool {
	for level := len(target.next) - 1; level >= 0; level-- {
		x := u.m.head
		for level < len(x.next) {
			cell := x.next[level].Load()
			if cell == nil {
				break
			}
			next := *cell
			if next == nil || next == u.m.tail {
				break
			}
			if next == target {
				return true
			}
			if !next.marker && u.m.less(target.key, next.key) {
				break
			}
			x = next
		}
	}
	return false
}

// delete removes the key-value pair for the given key from the skiplist.
// It returns the old value and true if the key existed, otherwise zero
// value and false. The caller must hold the guard g.
func (u *mutatorImpl[K, V]) delete(g Guard, key K) (V, bool) {
	preds, succs, found := u.m.find(key)
	if !found {
		var zero V
		return zero, false
	}

	target := succs[0]
	oldVal, ok := u.logicalDelete(target)
	if !ok {
		// Another deleter won the logical deletion; it owns the unlink
		// and the retirement.
		var zero V
		return zero, false
	}
	markerPtr := u.ensureMarker(target)

	for u.physicalDelete(preds, target, markerPtr) {
		// The target is still linked at some level, either through stale
		// predecessors or because a racing insert relinked it; find
		// refreshes the predecessors and helps unlink it wherever it is
		// still reachable.
		preds, _, _ = u.m.find(key)
	}

	// The node and its marker are unlinked but may still be visible to
	// in-flight readers; recycling is deferred past the grace period.
	g.Retire(func() { u.m.releaseMarkerPtr(markerPtr) })
	g.Retire(func() { u.m.releaseNode(target) })

	return oldVal, true
}
