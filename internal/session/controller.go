// Package session implements the pause/resume and live-reload controller
// that sits between the hotkey/tray layer and the tick loop.
package session

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/roach88/nimbus/internal/wheel"
)

// ErrNoSaver is returned by Handle(SignalSave) when no persistence
// collaborator was configured.
var ErrNoSaver = errors.New("no config saver configured")

// Saver persists a configuration snapshot. The core never writes files;
// SaveRequest is forwarded here.
type Saver interface {
	Save(wheel.Config) error
}

// SaverFunc adapts a function literal to the Saver interface.
type SaverFunc func(wheel.Config) error

// Save calls the underlying function.
func (f SaverFunc) Save(cfg wheel.Config) error {
	return f(cfg)
}

// Controller owns the process-wide SessionState.
//
// Writers (hotkeys, tray, reload) serialize on one mutex; readers get an
// immutable snapshot through an atomic pointer, so the tick loop never
// waits on the UI context.
type Controller struct {
	mu          sync.Mutex
	state       atomic.Pointer[wheel.SessionState]
	saver       Saver
	subscribers []func(wheel.SessionState)
}

// Option configures a Controller.
type Option func(*Controller)

// WithSaver sets the persistence collaborator for SignalSave.
func WithSaver(s Saver) Option {
	return func(c *Controller) {
		c.saver = s
	}
}

// StartPaused starts the session paused.
func StartPaused() Option {
	return func(c *Controller) {
		st := *c.state.Load()
		st.Paused = true
		c.state.Store(&st)
	}
}

// NewController creates a running (unpaused) session with cfg.
func NewController(cfg wheel.Config, opts ...Option) *Controller {
	c := &Controller{}
	c.state.Store(&wheel.SessionState{Config: cfg})
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot returns the current state. The returned value is a copy.
func (c *Controller) Snapshot() wheel.SessionState {
	return *c.state.Load()
}

// Paused reports whether output is silenced.
func (c *Controller) Paused() bool {
	return c.state.Load().Paused
}

// Config returns the active configuration.
func (c *Controller) Config() wheel.Config {
	return c.state.Load().Config
}

// Pause silences output. Impulses are dropped until Resume.
func (c *Controller) Pause() {
	c.update(func(st *wheel.SessionState) { st.Paused = true })
}

// Resume re-enables output.
func (c *Controller) Resume() {
	c.update(func(st *wheel.SessionState) { st.Paused = false })
}

// TogglePause flips the paused flag and returns the new value.
func (c *Controller) TogglePause() bool {
	var paused bool
	c.update(func(st *wheel.SessionState) {
		st.Paused = !st.Paused
		paused = st.Paused
	})
	return paused
}

// Reload replaces the configuration. The loop picks it up at the next
// tick boundary without resetting in-flight velocity.
func (c *Controller) Reload(cfg wheel.Config) {
	c.update(func(st *wheel.SessionState) { st.Config = cfg })
}

// Handle processes an edge-triggered hotkey signal.
func (c *Controller) Handle(sig wheel.Signal) error {
	switch sig {
	case wheel.SignalTogglePause:
		paused := c.TogglePause()
		slog.Info("pause toggled", "paused", paused)
		return nil
	case wheel.SignalSave:
		c.mu.Lock()
		saver := c.saver
		c.mu.Unlock()
		if saver == nil {
			return ErrNoSaver
		}
		return saver.Save(c.Config())
	default:
		slog.Debug("ignoring unknown signal", "signal", sig)
		return nil
	}
}

// Subscribe registers fn to be called with every new state. fn runs on the
// caller of the mutating method, after the mutex is released.
func (c *Controller) Subscribe(fn func(wheel.SessionState)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribers = append(c.subscribers, fn)
}

func (c *Controller) update(mutate func(*wheel.SessionState)) {
	c.mu.Lock()
	next := *c.state.Load()
	mutate(&next)
	c.state.Store(&next)
	subs := make([]func(wheel.SessionState), len(c.subscribers))
	copy(subs, c.subscribers)
	c.mu.Unlock()

	for _, fn := range subs {
		fn(next)
	}
}
