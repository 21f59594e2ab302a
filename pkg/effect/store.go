package effect

import "sync"

// Store is a reactive value owned by whoever calls Set. Readers take the
// current value with Get; watchers are notified after every Set.
type Store[T any] struct {
	mu       sync.RWMutex
	value    T
	nextID   uint64
	watchers map[uint64]func(T)
}

// NewStore creates a store holding initial.
func NewStore[T any](initial T) *Store[T] {
	return &Store[T]{value: initial, watchers: make(map[uint64]func(T))}
}

// Get returns the current value.
func (s *Store[T]) Get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Set replaces the value and notifies watchers on the calling goroutine.
func (s *Store[T]) Set(v T) {
	s.mu.Lock()
	s.value = v
	watchers := make([]func(T), 0, len(s.watchers))
	for _, fn := range s.watchers {
		watchers = append(watchers, fn)
	}
	s.mu.Unlock()

	for _, fn := range watchers {
		fn(v)
	}
}

// Watch subscribes fn to updates. The returned func unsubscribes.
func (s *Store[T]) Watch(fn func(T)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.watchers, id)
		s.mu.Unlock()
	}
}
