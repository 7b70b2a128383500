package engine

import "sync"

// opQueue is a thread-safe FIFO queue of persistence operations.
//
// The queue is unbounded so that engine calls never block on a slow store.
// Callers enqueue from the UI goroutine while Run dequeues.
//
// The queue uses a channel for signaling to enable context-aware waiting
// in the Run loop.
type opQueue struct {
	mu     sync.Mutex
	ops    []*Op
	closed bool
	signal chan struct{} // Signals op availability (buffered, size 1)
}

func newOpQueue() *opQueue {
	return &opQueue{
		ops:    make([]*Op, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an op to the back of the queue.
// Returns false if the queue is closed.
func (q *opQueue) Enqueue(op *Op) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.ops = append(q.ops, op)

	// Non-blocking: the buffer of 1 coalesces multiple signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes and returns the front op without blocking.
func (q *opQueue) TryDequeue() (*Op, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.ops) == 0 {
		return nil, false
	}

	op := q.ops[0]
	q.ops[0] = nil // release for GC

	if len(q.ops) == 1 {
		q.ops = q.ops[:0]
	} else {
		q.ops = q.ops[1:]
	}
	return op, true
}

// Wait returns a channel that signals when ops may be available.
// It is closed when the queue is closed.
func (q *opQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *opQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ops)
}

// Close stops accepting ops. Ops already queued stay queued.
// Wakes any blocked waiters by closing the signal channel.
func (q *opQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}

// Closed reports whether Close has been called.
func (q *opQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Drain closes the queue and removes every op still queued.
func (q *opQueue) Drain() []*Op {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.signal)
	}
	rest := q.ops
	q.ops = nil
	return rest
}
