package utils

import "sync"

// OrderedSet is an append-only set which remembers first-seen order.
// It is safe for concurrent use; readers always get a copy.
type OrderedSet[K comparable] struct {
	mu    sync.RWMutex
	index map[K]struct{}
	items []K
}

func NewOrderedSet[K comparable]() *OrderedSet[K] {
	return &OrderedSet[K]{index: make(map[K]struct{})}
}

// Add appends v unless it was seen before, and reports whether it was new.
func (s *OrderedSet[K]) Add(v K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.index[v]; exists {
		return false
	}
	s.index[v] = struct{}{}
	s.items = append(s.items, v)
	return true
}

func (s *OrderedSet[K]) Contains(v K) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.index[v]
	return exists
}

func (s *OrderedSet[K]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.items)
}

// Last returns the most recently added element.
func (s *OrderedSet[K]) Last() (K, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var zero K
	if len(s.items) == 0 {
		return zero, false
	}
	return s.items[len(s.items)-1], true
}

func (s *OrderedSet[K]) Snapshot() []K {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make([]K, len(s.items))
	copy(snapshot, s.items)
	return snapshot
}
