package cli

import (
	"context"
	"log/slog"
	"time"

	"github.com/roach88/nimbus/internal/engine"
	"github.com/roach88/nimbus/internal/store"
	"github.com/roach88/nimbus/internal/wheel"
)

// recording wires a Recorder into a loop and closes both on finish.
type recording struct {
	st  *store.Store
	rec *store.Recorder
}

// startRecording opens the database at path and starts a session. A nil
// recording with nil error means recording is off.
func startRecording(ctx context.Context, path, label string, cfg wheel.Config) (*recording, error) {
	if path == "" {
		return nil, nil
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	rec, err := st.NewRecorder(ctx, time.Now(), cfg, store.WithLabel(label))
	if err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to start recording", err)
	}
	return &recording{st: st, rec: rec}, nil
}

// loopOptions returns the observer option for the loop, if recording.
func (r *recording) loopOptions() []engine.LoopOption {
	if r == nil {
		return nil
	}
	return []engine.LoopOption{engine.WithObserver(r.rec.Observe)}
}

// finish flushes the session and closes the database.
func (r *recording) finish() {
	if r == nil {
		return
	}
	if err := r.rec.Close(time.Now()); err != nil {
		slog.Error("failed to close recording", "id", r.rec.ID(), "error", err)
	}
	slog.Info("recording saved", "id", r.rec.ID(), "frames", r.rec.Written())
	if err := r.st.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}
