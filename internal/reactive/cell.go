package reactive

import "sync"

// Cell is a single-writer, many-reader observable value.
type Cell[T any] struct {
	dep Dependency
	mu  sync.RWMutex
	v   T
}

// NewCell creates a cell holding v.
func NewCell[T any](v T) *Cell[T] {
	return &Cell[T]{v: v}
}

// Get returns the current value without registering anything.
func (c *Cell[T]) Get() T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.v
}

// Track returns the current value and registers comp as a dependent.
// With a nil comp it behaves like Get.
func (c *Cell[T]) Track(comp *Computation) T {
	c.dep.Depend(comp)
	return c.Get()
}

// Set stores v and notifies dependents. Notification happens on every
// call, whether or not v differs from the previous value.
func (c *Cell[T]) Set(v T) {
	c.mu.Lock()
	c.v = v
	c.mu.Unlock()
	c.dep.Changed()
}

// Subscribe calls fn with the new value after every Set.
func (c *Cell[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	return c.dep.Subscribe(func() {
		fn(c.Get())
	})
}

// Dependency exposes the cell's change source, for callers that want to
// depend on a change without reading the value.
func (c *Cell[T]) Dependency() *Dependency {
	return &c.dep
}
