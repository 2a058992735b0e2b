package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/roach88/nimbus/internal/wheel"
)

// ErrLoopRunning is returned when Run is called on a loop that is already
// running.
var ErrLoopRunning = errors.New("engine loop already running")

// Session supplies the pause flag and configuration. Implemented by
// session.Controller.
type Session interface {
	Snapshot() wheel.SessionState
}

// Dispatcher receives output ticks. Implementations must not block; see
// dispatch.Async.
type Dispatcher interface {
	Dispatch(wheel.OutputTick) error
}

// Frame describes one tick of the loop. Observers receive every frame.
type Frame struct {
	Seq       int64
	At        time.Time
	Paused    bool
	Impulses  []wheel.Impulse    // applied since the previous frame
	Dropped   int                // impulses discarded because the session was paused
	Ticks     []wheel.OutputTick // dispatched, in emission order
	Muted     []wheel.OutputTick // produced while paused and never dispatched
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithClock overrides the wall clock (tests use a manual clock).
func WithClock(c Clock) LoopOption {
	return func(l *Loop) {
		l.clock = c
	}
}

// WithQueueCapacity sets the impulse queue bound.
func WithQueueCapacity(n int) LoopOption {
	return func(l *Loop) {
		l.queue = NewImpulseQueue(n)
	}
}

// WithObserver registers a callback invoked on the loop goroutine after
// every frame. Observers must return quickly.
func WithObserver(fn func(Frame)) LoopOption {
	return func(l *Loop) {
		l.observers = append(l.observers, fn)
	}
}

// WithSequence sets the frame sequence (replay continues numbering).
func WithSequence(s *Sequence) LoopOption {
	return func(l *Loop) {
		l.seq = s
	}
}

// Loop is the single-writer tick context around an Engine.
//
// Thread-safety model:
//   - Offer(), Paused(): safe from any goroutine (the OS callback uses them)
//   - Run(), Step(): must be called from exactly one goroutine
type Loop struct {
	engine     *Engine
	queue      *ImpulseQueue
	session    Session
	dispatcher Dispatcher
	clock      Clock
	seq        *Sequence
	observers  []func(Frame)

	cfg     wheel.Config
	applied []wheel.Impulse
	flicked []wheel.OutputTick
	dropped int
	running atomic.Bool
}

// NewLoop creates a loop reading session state from s and sending output
// to d.
func NewLoop(s Session, d Dispatcher, opts ...LoopOption) *Loop {
	snap := s.Snapshot()
	l := &Loop{
		engine:     New(snap.Config),
		queue:      NewImpulseQueue(DefaultQueueCapacity),
		session:    s,
		dispatcher: d,
		clock:      SystemClock{},
		seq:        NewSequence(),
		cfg:        snap.Config,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Engine exposes the underlying engine for inspection.
// Only safe while the loop is not running.
func (l *Loop) Engine() *Engine {
	return l.engine
}

// Queue returns the impulse queue.
func (l *Loop) Queue() *ImpulseQueue {
	return l.queue
}

// Offer hands an impulse to the loop without blocking.
// Returns false if the queue is full or the loop has stopped.
func (l *Loop) Offer(imp wheel.Impulse) bool {
	return l.queue.Offer(imp)
}

// Running reports whether Run is active.
func (l *Loop) Running() bool {
	return l.running.Load()
}

// Paused reports the current session pause flag.
func (l *Loop) Paused() bool {
	return l.session.Snapshot().Paused
}

// Run ticks the engine every TickInterval until ctx is cancelled or Stop
// is called. Impulses are applied as soon as they are queued; decay and
// regular output happen on ticks. A tick that fires late integrates over
// the longer interval.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrLoopRunning
	}
	defer l.running.Store(false)

	l.syncConfig(l.session.Snapshot().Config)
	interval := l.engine.Config().TickInterval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("engine loop starting", "tick_interval", interval)

	for {
		select {
		case <-ctx.Done():
			slog.Info("engine loop stopping: context cancelled")
			l.queue.Close()
			return ctx.Err()

		case _, ok := <-l.queue.Wait():
			if !ok {
				slog.Info("engine loop stopping: queue closed")
				return nil
			}
			l.Drain()

		case <-ticker.C:
			l.Step(l.clock.Now())
			if iv := l.engine.Config().TickInterval; iv != interval {
				interval = iv
				ticker.Reset(iv)
				slog.Debug("tick interval changed", "tick_interval", iv)
			}
		}
	}
}

// Stop closes the queue, which makes Run return. Queued impulses are
// dropped.
func (l *Loop) Stop() {
	l.queue.Close()
}

// Step runs one tick at instant now: it reads one session snapshot,
// applies queued impulses in arrival order, decays both axes and dispatches
// the output unless paused.
func (l *Loop) Step(now time.Time) Frame {
	snap := l.session.Snapshot()
	l.syncConfig(snap.Config)
	l.drain(snap)

	ticks := l.engine.Tick(now)

	f := Frame{
		Seq:      l.seq.Next(),
		At:       now,
		Paused:   snap.Paused,
		Impulses: l.applied,
		Dropped:  l.dropped,
		Ticks:    l.flicked,
	}
	if snap.Paused {
		f.Muted = ticks
	} else {
		for _, t := range ticks {
			l.dispatch(t)
		}
		f.Ticks = append(f.Ticks, ticks...)
	}

	l.applied, l.flicked, l.dropped = nil, nil, 0

	for _, fn := range l.observers {
		fn(f)
	}
	return f
}

// Drain applies queued impulses now instead of waiting for the next tick.
// It honours the current pause flag but keeps the engine's configuration:
// a reload only takes effect at the next Step. Must be called from the
// goroutine that calls Step.
func (l *Loop) Drain() {
	l.drain(l.session.Snapshot())
}

// drain applies every queued impulse. While paused, impulses are dropped
// rather than kept, so resuming never replays a backlog.
func (l *Loop) drain(snap wheel.SessionState) {
	for {
		imp, ok := l.queue.TryDequeue()
		if !ok {
			return
		}
		if snap.Paused {
			l.dropped++
			continue
		}
		l.applied = append(l.applied, imp)
		if t, ok := l.engine.Impulse(imp); ok {
			l.dispatch(t)
			l.flicked = append(l.flicked, t)
		}
	}
}

// syncConfig applies a reloaded configuration at a tick boundary.
func (l *Loop) syncConfig(cfg wheel.Config) {
	if cfg == l.cfg {
		return
	}
	l.cfg = cfg
	l.engine.SetConfig(cfg)
	slog.Info("configuration reloaded")
}

// dispatch hands a tick to the dispatcher. Failures are logged and the
// tick dropped; stale deltas are never retried.
func (l *Loop) dispatch(t wheel.OutputTick) {
	if err := l.dispatcher.Dispatch(t); err != nil {
		slog.Warn("dropping output tick",
			"axis", t.Axis,
			"delta", t.Delta,
			"error", err,
		)
	}
}
