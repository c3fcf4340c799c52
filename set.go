package lockfree

// Set is an ordered concurrent set backed by a SkipListMap. Duplicate
// adds are membership-idempotent: adding a key that is already present
// leaves the set of keys unchanged.
type Set[K comparable] struct {
	m *SkipListMap[K, struct{}]
}

// NewSet returns a new Set ordered by less.
func NewSet[K comparable](less Less[K]) *Set[K] {
	return &Set[K]{m: NewMap[K, struct{}](less)}
}

// Add inserts key and reports whether it was newly added.
func (s *Set[K]) Add(key K) bool {
	_, replaced := s.m.Put(key, struct{}{})
	return !replaced
}

// Contains reports whether key is a member.
func (s *Set[K]) Contains(key K) bool {
	return s.m.Contains(key)
}

// Delete removes key and reports whether it was present.
func (s *Set[K]) Delete(key K) bool {
	_, ok := s.m.Delete(key)
	return ok
}

// Len reports the advisory member count.
func (s *Set[K]) Len() int64 {
	return s.m.Len()
}

// Keys returns a snapshot of the members in ascending order. The snapshot
// is consistent only in the absence of concurrent mutation.
func (s *Set[K]) Keys() []K {
	var keys []K
	it := s.m.Iterator()
	for it.Next() {
		keys = append(keys, it.Key())
	}
	return keys
}
