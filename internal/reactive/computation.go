package reactive

import "sync"

// Computation is a function re-run whenever a dependency it read changes.
//
// Dependencies are collected afresh on every run: before rerunning, the
// computation detaches from everything it read last time.
type Computation struct {
	fn func(*Computation)

	mu       sync.Mutex
	deps     []*Dependency
	running  bool
	pending  bool
	stopped  bool
	firstRun bool
	runs     int
}

// Autorun runs fn immediately and again after each change of a dependency
// fn read through the computation it receives.
func Autorun(fn func(c *Computation)) *Computation {
	c := &Computation{fn: fn, firstRun: true}
	c.run()
	return c
}

// FirstRun reports whether the current execution is the initial one.
func (c *Computation) FirstRun() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.firstRun
}

// Runs returns how many times the computation has executed.
func (c *Computation) Runs() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runs
}

// Stopped reports whether Stop has been called.
func (c *Computation) Stopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}

// Invalidate schedules a rerun. If the computation is executing right now
// (it wrote to something it reads) the rerun happens once the current
// execution returns.
func (c *Computation) Invalidate() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	if c.running {
		c.pending = true
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	c.run()
}

// Stop detaches the computation from all dependencies. It will not run again.
func (c *Computation) Stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	deps := c.deps
	c.deps = nil
	c.mu.Unlock()

	for _, d := range deps {
		d.forget(c)
	}
}

func (c *Computation) track(d *Dependency) {
	c.mu.Lock()
	c.deps = append(c.deps, d)
	c.mu.Unlock()
}

func (c *Computation) run() {
	for {
		c.mu.Lock()
		if c.stopped {
			c.mu.Unlock()
			return
		}
		deps := c.deps
		c.deps = nil
		c.running = true
		c.pending = false
		c.mu.Unlock()

		for _, d := range deps {
			d.forget(c)
		}

		c.fn(c)

		c.mu.Lock()
		c.running = false
		c.firstRun = false
		c.runs++
		again := c.pending && !c.stopped
		c.mu.Unlock()

		if !again {
			return
		}
	}
}
