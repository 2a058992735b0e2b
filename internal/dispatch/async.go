package dispatch

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/roach88/nimbus/internal/wheel"
)

// DefaultAsyncBuffer bounds ticks waiting for the OS submission worker.
const DefaultAsyncBuffer = 64

// Async moves submission off the tick loop onto a worker goroutine.
//
// Dispatch never blocks: a full buffer drops the tick with ErrQueueFull.
// Errors from the wrapped dispatcher are logged and counted on the worker;
// the tick loop never sees them.
type Async struct {
	next    Dispatcher
	ch      chan wheel.OutputTick
	done    chan struct{}
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
	sent    atomic.Int64
}

// NewAsync starts a worker that feeds next. buffer <= 0 uses
// DefaultAsyncBuffer. Call Close to stop the worker.
func NewAsync(next Dispatcher, buffer int) *Async {
	if buffer <= 0 {
		buffer = DefaultAsyncBuffer
	}
	a := &Async{
		next: next,
		ch:   make(chan wheel.OutputTick, buffer),
		done: make(chan struct{}),
	}
	go a.work()
	return a
}

// Dispatch queues t for submission.
func (a *Async) Dispatch(t wheel.OutputTick) error {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		return &Failure{Tick: t, Err: ErrClosed}
	}

	select {
	case a.ch <- t:
		return nil
	default:
		a.dropped.Add(1)
		return &Failure{Tick: t, Err: ErrQueueFull}
	}
}

// Close stops accepting ticks, drains what is queued and waits for the
// worker to exit.
func (a *Async) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		<-a.done
		return
	}
	a.closed = true
	close(a.ch)
	a.mu.Unlock()
	<-a.done
}

// Dropped returns how many ticks were dropped, by a full buffer or a failed
// submission.
func (a *Async) Dropped() int64 {
	return a.dropped.Load()
}

// Sent returns how many ticks were submitted successfully.
func (a *Async) Sent() int64 {
	return a.sent.Load()
}

func (a *Async) work() {
	defer close(a.done)
	for t := range a.ch {
		if err := a.next.Dispatch(t); err != nil {
			a.dropped.Add(1)
			slog.Warn("dispatch failed, tick dropped",
				"axis", t.Axis,
				"delta", t.Delta,
				"error", err,
			)
			continue
		}
		a.sent.Add(1)
	}
}
