package engine

import (
	"log/slog"
	"time"

	"github.com/roach88/nimbus/internal/wheel"
)

// Engine owns the velocity state of both axes.
//
// Engine is not safe for concurrent use. Loop serializes every call into
// one goroutine; tests and the scenario harness call it directly with a
// manual clock.
//
// INVARIANTS:
//   - |velocity| strictly decreases between impulses and never changes sign
//     on its own
//   - carry lies in [-1, 1) after every emission
//   - SetConfig never touches velocity or carry
type Engine struct {
	cfg  wheel.Config
	axes [len(wheel.Axes)]axis
}

// New creates an engine with cfg clamped into range.
func New(cfg wheel.Config) *Engine {
	e := &Engine{}
	for i, id := range wheel.Axes {
		e.axes[i].id = id
	}
	e.SetConfig(cfg)
	return e
}

// SetConfig swaps the coefficients used by subsequent impulses and ticks.
// In-flight velocity and carry are kept so live tuning never jumps.
// Out-of-range values are clamped and returned for reporting.
func (e *Engine) SetConfig(cfg wheel.Config) []*wheel.OutOfRangeError {
	clamped, errs := cfg.Clamp()
	for _, err := range errs {
		slog.Warn("config value clamped",
			"field", err.Field,
			"value", err.Value,
			"clamped", err.Clamped,
		)
	}
	e.cfg = clamped
	return errs
}

// Config returns the active (clamped) coefficients.
func (e *Engine) Config() wheel.Config {
	return e.cfg
}

// Impulse applies one impulse to its axis.
//
// Within ThinkTime of the previous impulse the contribution is added to
// the current velocity directly; otherwise the velocity is first aged to
// the impulse timestamp. An instant flick returns its single tick here,
// whether triggered by a fast spin or by releasing a drag.
func (e *Engine) Impulse(imp wheel.Impulse) (wheel.OutputTick, bool) {
	if !imp.Axis.Valid() || (imp.Delta == 0 && imp.Kind != wheel.KindRelease) {
		return wheel.OutputTick{}, false
	}
	a := &e.axes[imp.Axis]
	tick, ok := a.impulse(imp, e.cfg)

	slog.Debug("impulse applied",
		"axis", imp.Axis,
		"kind", imp.Kind,
		"delta", imp.Delta,
		"velocity", a.Velocity,
		"phase", a.Phase,
	)
	return tick, ok
}

// Tick decays both axes to now and returns the non-zero output, vertical
// first.
func (e *Engine) Tick(now time.Time) []wheel.OutputTick {
	var out []wheel.OutputTick
	for i := range e.axes {
		if t, ok := e.axes[i].tick(now, e.cfg); ok {
			out = append(out, t)
		}
	}
	return out
}

// State returns a copy of the state of axis a.
func (e *Engine) State(a wheel.Axis) AxisState {
	return e.axes[a].AxisState
}

// LastTravel returns the continuous (pre-quantization) travel of axis a
// during the most recent tick.
func (e *Engine) LastTravel(a wheel.Axis) float64 {
	return e.axes[a].lastTravel
}

// Quiescent reports whether both axes are at rest with nothing pending.
func (e *Engine) Quiescent() bool {
	for i := range e.axes {
		if e.axes[i].Velocity != 0 || e.axes[i].pending != 0 {
			return false
		}
	}
	return true
}
