package oneshot

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func (s *Signal[T]) isResolved() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.resolved
}

func TestResolveOnce(t *testing.T) {
	s := New[int]()
	assert.False(t, s.isResolved())

	assert.True(t, s.Resolve(1))
	assert.False(t, s.Resolve(2))
	assert.True(t, s.isResolved())

	var got int
	s.Then(func(v int) { got = v })
	assert.Equal(t, 1, got)
}

func TestThenKeepsOrder(t *testing.T) {
	s := New[struct{}]()

	var got []int
	for i := range 5 {
		s.Then(func(struct{}) { got = append(got, i) })
	}
	assert.Empty(t, got)

	s.Resolve(struct{}{})
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)

	s.Then(func(struct{}) { got = append(got, 5) })
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, got)
}

func TestThenFromCallbackRunsAfterQueue(t *testing.T) {
	s := New[string]()

	var got []string
	s.Then(func(v string) {
		got = append(got, "first:"+v)
		s.Then(func(v string) { got = append(got, "nested:"+v) })
	})
	s.Then(func(v string) { got = append(got, "second:"+v) })

	s.Resolve("x")
	assert.Equal(t, []string{"first:x", "second:x", "nested:x"}, got)
}

func TestConcurrentResolveRunsCallbacksOnce(t *testing.T) {
	s := New[int]()

	var mu sync.Mutex
	calls := 0
	s.Then(func(int) {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Resolve(i)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, calls)
}
