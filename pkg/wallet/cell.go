package wallet

import "sync"

// Cell is a read-mostly reactive container. The engine stores new values as
// requests progress; the embedding application reads with Load or registers a
// Watch callback to drive its UI.
type Cell[T any] struct {
	mu       sync.RWMutex
	value    T
	watchers []func(T)
}

func NewCell[T any](initial T) *Cell[T] {
	return &Cell[T]{value: initial}
}

func (c *Cell[T]) Load() T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

// Store replaces the value and notifies watchers in registration order.
func (c *Cell[T]) Store(value T) {
	c.mu.Lock()
	c.value = value
	watchers := make([]func(T), len(c.watchers))
	copy(watchers, c.watchers)
	c.mu.Unlock()

	for _, watch := range watchers {
		watch(value)
	}
}

// Watch registers a callback invoked after every Store. Callbacks run on the
// storing goroutine and must not block or call back into the engine.
func (c *Cell[T]) Watch(fn func(T)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.watchers = append(c.watchers, fn)
}
