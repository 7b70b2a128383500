// Package reactive provides the change-propagation primitives the wizard
// engine publishes its state through.
//
// A Dependency is a source of change. Computations created with Autorun
// record which dependencies they read and are re-executed, synchronously,
// each time one of them signals Changed. Plain callbacks can be attached
// with Subscribe, which returns an unsubscribe func.
//
// Cell is a Dependency holding a value. Set always signals, even when the
// new value equals the old one; coalescing is the writer's job.
//
// Thread-safety: all types are safe for concurrent use. Callbacks and
// reruns are invoked without holding internal locks, so they may read and
// write cells freely. The engine built on top is single-threaded.
package reactive

import (
	"maps"
	"slices"
	"sync"
)

// Dependency tracks the computations and subscribers interested in one
// source of change.
type Dependency struct {
	mu         sync.Mutex
	dependents map[*Computation]struct{}
	subs       map[int]func()
	nextSub    int
}

// Depend registers c as dependent on d. A nil computation is a plain read
// and registers nothing. Returns true if c was newly registered.
func (d *Dependency) Depend(c *Computation) bool {
	if c == nil || c.Stopped() {
		return false
	}
	d.mu.Lock()
	if d.dependents == nil {
		d.dependents = make(map[*Computation]struct{})
	}
	_, seen := d.dependents[c]
	d.dependents[c] = struct{}{}
	d.mu.Unlock()

	if !seen {
		c.track(d)
	}
	return !seen
}

// Changed invalidates every dependent computation and calls every
// subscriber, in that order. Subscribers run in subscription order.
func (d *Dependency) Changed() {
	d.mu.Lock()
	comps := make([]*Computation, 0, len(d.dependents))
	for c := range d.dependents {
		comps = append(comps, c)
	}
	subs := make([]func(), 0, len(d.subs))
	for _, id := range slices.Sorted(maps.Keys(d.subs)) {
		subs = append(subs, d.subs[id])
	}
	d.mu.Unlock()

	for _, c := range comps {
		c.Invalidate()
	}
	for _, fn := range subs {
		fn()
	}
}

// Subscribe calls fn after every Changed. The returned func removes the
// subscription; calling it more than once is harmless.
func (d *Dependency) Subscribe(fn func()) (unsubscribe func()) {
	d.mu.Lock()
	if d.subs == nil {
		d.subs = make(map[int]func())
	}
	id := d.nextSub
	d.nextSub++
	d.subs[id] = fn
	d.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			delete(d.subs, id)
			d.mu.Unlock()
		})
	}
}

// HasDependents reports whether any computation currently depends on d.
func (d *Dependency) HasDependents() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.dependents) > 0
}

func (d *Dependency) forget(c *Computation) {
	d.mu.Lock()
	delete(d.dependents, c)
	d.mu.Unlock()
}
