// Package dispatch turns output ticks into scroll input for a target.
//
// Every Dispatcher is fire-and-forget from the engine's point of view:
// the OS-backed dispatchers are wrapped in Async so submission never blocks
// the tick loop, and a failed submission is logged and dropped, never
// retried.
package dispatch

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/roach88/nimbus/internal/wheel"
)

// Dispatcher submits one output tick.
type Dispatcher interface {
	Dispatch(wheel.OutputTick) error
}

// DispatcherFunc adapts a function literal to the Dispatcher interface.
type DispatcherFunc func(wheel.OutputTick) error

// Dispatch calls the underlying function.
func (f DispatcherFunc) Dispatch(t wheel.OutputTick) error {
	return f(t)
}

var (
	// ErrQueueFull means the async buffer was full and the tick was dropped.
	ErrQueueFull = errors.New("dispatch queue full")
	// ErrClosed means the dispatcher has been closed.
	ErrClosed = errors.New("dispatcher closed")
	// ErrUnsupported means the platform cannot synthesize wheel input.
	ErrUnsupported = errors.New("synthetic wheel input not supported on this platform")
)

// Failure reports a tick that could not be delivered. It is recoverable:
// the tick is dropped and the caller carries on.
type Failure struct {
	Tick wheel.OutputTick
	Err  error
}

func (e *Failure) Error() string {
	return fmt.Sprintf("DISPATCH_FAILURE: %s delta=%d: %v", e.Tick.Axis, e.Tick.Delta, e.Err)
}

func (e *Failure) Unwrap() error {
	return e.Err
}

// IsFailure returns true if err is a dispatch failure.
// Uses errors.As to handle wrapped errors.
func IsFailure(err error) bool {
	var f *Failure
	return errors.As(err, &f)
}

// chunks splits delta into pieces that each fit the signed 32-bit wheel
// field of one native event.
func chunks(delta int64) []int32 {
	var out []int32
	for delta > math.MaxInt32 {
		out = append(out, math.MaxInt32)
		delta -= math.MaxInt32
	}
	for delta < -math.MaxInt32 {
		out = append(out, -math.MaxInt32)
		delta += math.MaxInt32
	}
	return append(out, int32(delta))
}

// Fanout sends each tick to every dispatcher in order and joins the errors.
type Fanout []Dispatcher

// Dispatch implements Dispatcher.
func (f Fanout) Dispatch(t wheel.OutputTick) error {
	var errs []error
	for _, d := range f {
		if err := d.Dispatch(t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops every tick. Used when output is handled elsewhere, e.g.
// replay only needs frames.
type Discard struct{}

// Dispatch implements Dispatcher.
func (Discard) Dispatch(wheel.OutputTick) error { return nil }

// Collector keeps every tick it receives. Safe for concurrent use.
type Collector struct {
	mu    sync.Mutex
	ticks []wheel.OutputTick
}

// Dispatch implements Dispatcher.
func (c *Collector) Dispatch(t wheel.OutputTick) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks = append(c.ticks, t)
	return nil
}

// Ticks returns a copy of the collected ticks.
func (c *Collector) Ticks() []wheel.OutputTick {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]wheel.OutputTick, len(c.ticks))
	copy(out, c.ticks)
	return out
}

// Sum returns the total delta dispatched on axis a.
func (c *Collector) Sum(a wheel.Axis) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	sum := 0
	for _, t := range c.ticks {
		if t.Axis == a {
			sum += t.Delta
		}
	}
	return sum
}

// Reset discards collected ticks.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks = nil
}
