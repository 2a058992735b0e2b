package store

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roach88/nimbus/internal/engine"
	"github.com/roach88/nimbus/internal/wheel"
)

// DefaultRecorderBuffer bounds frames waiting to be written.
const DefaultRecorderBuffer = 1024

// Recorder writes loop frames into one session on a background goroutine.
// Pass Observe to engine.WithObserver; it never blocks the tick loop. When
// the buffer is full the frame is dropped and counted.
type Recorder struct {
	store *Store
	id    string
	start time.Time

	ch      chan engine.Frame
	done    chan struct{}
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
	written atomic.Int64
	cur     cursor
}

// RecorderOption configures a Recorder.
type RecorderOption func(*recorderOptions)

type recorderOptions struct {
	ids    IDGenerator
	label  string
	buffer int
}

// WithIDGenerator sets the session id source. The default is UUIDv7.
func WithIDGenerator(g IDGenerator) RecorderOption {
	return func(o *recorderOptions) { o.ids = g }
}

// WithLabel sets a human-readable session label.
func WithLabel(label string) RecorderOption {
	return func(o *recorderOptions) { o.label = label }
}

// WithBuffer sets the frame buffer size.
func WithBuffer(n int) RecorderOption {
	return func(o *recorderOptions) { o.buffer = n }
}

// NewRecorder creates a session started at start under cfg and begins
// accepting frames.
func (s *Store) NewRecorder(ctx context.Context, start time.Time, cfg wheel.Config, opts ...RecorderOption) (*Recorder, error) {
	o := recorderOptions{ids: UUIDv7Generator{}, buffer: DefaultRecorderBuffer}
	for _, opt := range opts {
		opt(&o)
	}
	if o.buffer <= 0 {
		o.buffer = DefaultRecorderBuffer
	}

	id := o.ids.Generate()
	if err := s.CreateSession(ctx, Session{ID: id, Label: o.label, StartedAt: start, Config: cfg}); err != nil {
		return nil, err
	}

	r := &Recorder{
		store: s,
		id:    id,
		start: start,
		ch:    make(chan engine.Frame, o.buffer),
		done:  make(chan struct{}),
	}
	go r.work()
	slog.Info("recording session", "id", id, "label", o.label)
	return r, nil
}

// ID returns the session id.
func (r *Recorder) ID() string {
	return r.id
}

// Observe queues a frame for writing. Frames without impulses or ticks
// are skipped.
func (r *Recorder) Observe(f engine.Frame) {
	if len(f.Impulses) == 0 && len(f.Ticks) == 0 && len(f.Muted) == 0 {
		return
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	select {
	case r.ch <- f:
	default:
		r.dropped.Add(1)
	}
}

// Close writes every queued frame, stamps the session end time and stops
// the worker.
func (r *Recorder) Close(end time.Time) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		<-r.done
		return nil
	}
	r.closed = true
	close(r.ch)
	r.mu.Unlock()
	<-r.done

	if n := r.dropped.Load(); n > 0 {
		slog.Warn("recorder dropped frames", "id", r.id, "dropped", n)
	}
	return r.store.EndSession(context.Background(), r.id, end)
}

// Written returns how many frames were stored.
func (r *Recorder) Written() int64 {
	return r.written.Load()
}

// Dropped returns how many frames were lost to a full buffer or a failed
// write.
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

func (r *Recorder) work() {
	defer close(r.done)
	ctx := context.Background()
	for f := range r.ch {
		if err := r.store.writeFrame(ctx, r.id, r.start, f, &r.cur); err != nil {
			r.dropped.Add(1)
			slog.Warn("recording frame failed", "id", r.id, "frame", f.Seq, "error", err)
			continue
		}
		r.written.Add(1)
	}
}
