// Package oneshot provides a signal that resolves at most once.
package oneshot

import "sync"

type Signal[T any] struct {
	mu        sync.Mutex
	value     T
	resolved  bool
	flushing  bool
	callbacks []func(T)
}

func New[T any]() *Signal[T] {
	return &Signal[T]{}
}

// Resolve sets the value and runs pending callbacks in registration order.
// Only the first call has an effect; it reports whether it was that call.
func (s *Signal[T]) Resolve(v T) bool {
	s.mu.Lock()
	if s.resolved {
		s.mu.Unlock()
		return false
	}
	s.resolved = true
	s.value = v
	s.flushing = true

	for {
		callbacks := s.callbacks
		s.callbacks = nil
		if len(callbacks) == 0 {
			s.flushing = false
			s.mu.Unlock()
			return true
		}
		s.mu.Unlock()

		for _, fn := range callbacks {
			fn(v)
		}

		s.mu.Lock()
	}
}

// Then runs fn with the resolved value. Before resolution fn is queued
// behind every earlier Then.
func (s *Signal[T]) Then(fn func(T)) {
	s.mu.Lock()
	if !s.resolved || s.flushing {
		s.callbacks = append(s.callbacks, fn)
		s.mu.Unlock()
		return
	}
	v := s.value
	s.mu.Unlock()

	fn(v)
}
