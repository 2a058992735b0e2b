// Package source captures wheel input and turns it into impulses.
//
// A Source runs until its context is cancelled or its underlying event
// stream ends. Every impulse is offered to a Sink without blocking; the
// Sink's answer decides whether the platform event was consumed. Sources
// consult the Gate so a paused session leaves native scrolling untouched.
//
// Wheel deltas and middle-button drag motion are both read from the
// WH_MOUSE_LL hook callback. No raw-input listener is registered, so one
// hook both observes and suppresses an event.
//
// Implementations:
//   - Hook: the Windows low-level mouse hook (hook_windows.go)
//   - Terminal: wheel events and middle drags from a tcell screen, used by `nimbus preview`
//   - Scripted: a fixed impulse list replayed against a clock
package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/nimbus/internal/wheel"
)

// Sink accepts impulses. Offer must not block and reports whether the
// impulse was accepted.
type Sink interface {
	Offer(imp wheel.Impulse) bool
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(wheel.Impulse) bool

// Offer calls f(imp).
func (f SinkFunc) Offer(imp wheel.Impulse) bool { return f(imp) }

// Gate reports whether the session is paused.
type Gate interface {
	Paused() bool
}

// Running is a Gate that is never paused.
type Running struct{}

// Paused always returns false.
func (Running) Paused() bool { return false }

// Source produces impulses until ctx is done.
type Source interface {
	Run(ctx context.Context, sink Sink, gate Gate) error
}

// Func adapts a function to Source.
type Func func(ctx context.Context, sink Sink, gate Gate) error

// Run calls f.
func (f Func) Run(ctx context.Context, sink Sink, gate Gate) error { return f(ctx, sink, gate) }

// ErrUnsupportedPlatform is wrapped by HookRegistrationError on platforms
// without a global wheel hook.
var ErrUnsupportedPlatform = errors.New("global wheel capture is not supported on this platform")

// HookRegistrationError is returned when the OS refuses the wheel hook.
// Native scrolling is unmodified when this happens.
type HookRegistrationError struct {
	Hook string
	Err  error
}

func (e *HookRegistrationError) Error() string {
	return fmt.Sprintf("HOOK_REGISTRATION_FAILED: %s: %v", e.Hook, e.Err)
}

func (e *HookRegistrationError) Unwrap() error {
	return e.Err
}

// IsHookRegistrationError reports whether err is or wraps a
// HookRegistrationError.
func IsHookRegistrationError(err error) bool {
	var target *HookRegistrationError
	return errors.As(err, &target)
}

// Clock supplies impulse timestamps.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Option configures a source.
type Option func(*options)

type options struct {
	clock Clock
}

// WithClock sets the timestamp source. The default is the system clock.
func WithClock(c Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

func buildOptions(opts []Option) options {
	o := options{clock: systemClock{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
