package engine

import (
	"sync"
	"sync/atomic"

	"github.com/roach88/nimbus/internal/wheel"
)

// DefaultQueueCapacity bounds the impulse queue between the OS callback and
// the tick loop. A full second of a fast spin is well under this.
const DefaultQueueCapacity = 256

// ImpulseQueue is a bounded FIFO between the event source and the loop.
//
// The producer is the OS callback context, which must never block: Offer
// fails immediately when the queue is full so the caller can let the native
// event through instead.
//
// The queue uses a channel for signaling to enable context-aware waiting
// in the Run loop (prevents goroutine hangs on context cancellation).
type ImpulseQueue struct {
	mu      sync.Mutex
	buf     []wheel.Impulse
	head    int
	size    int
	closed  bool
	signal  chan struct{} // Signals impulse availability (buffered, size 1)
	dropped atomic.Int64
}

// NewImpulseQueue creates an empty queue holding at most capacity impulses.
func NewImpulseQueue(capacity int) *ImpulseQueue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &ImpulseQueue{
		buf:    make([]wheel.Impulse, capacity),
		signal: make(chan struct{}, 1),
	}
}

// Offer adds an impulse to the back of the queue without blocking.
// Returns false if the queue is full or closed; the impulse is dropped.
func (q *ImpulseQueue) Offer(imp wheel.Impulse) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed || q.size == len(q.buf) {
		q.dropped.Add(1)
		return false
	}

	q.buf[(q.head+q.size)%len(q.buf)] = imp
	q.size++

	// Non-blocking - buffer of 1 coalesces multiple signals
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue removes the front impulse without blocking.
// Returns (wheel.Impulse{}, false) if the queue is empty.
func (q *ImpulseQueue) TryDequeue() (wheel.Impulse, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.size == 0 {
		return wheel.Impulse{}, false
	}

	imp := q.buf[q.head]
	q.buf[q.head] = wheel.Impulse{}
	q.head = (q.head + 1) % len(q.buf)
	q.size--

	return imp, true
}

// Wait returns a channel that signals when impulses may be available.
// The channel is closed by Close.
func (q *ImpulseQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *ImpulseQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

// Cap returns the queue capacity.
func (q *ImpulseQueue) Cap() int {
	return len(q.buf)
}

// Dropped returns how many offers were rejected.
func (q *ImpulseQueue) Dropped() int64 {
	return q.dropped.Load()
}

// Close rejects further offers, discards queued impulses and wakes waiters.
func (q *ImpulseQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	for i := range q.buf {
		q.buf[i] = wheel.Impulse{}
	}
	q.head, q.size = 0, 0
	close(q.signal)
}
