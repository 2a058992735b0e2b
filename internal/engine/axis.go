package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/roach88/nimbus/internal/wheel"
)

// Mode is the per-gesture mode of an axis.
type Mode int

const (
	ModeNormal Mode = iota
	ModeFlick
)

func (m Mode) String() string {
	if m == ModeFlick {
		return "flick"
	}
	return "normal"
}

// Phase tracks where an axis is in its motion lifecycle:
//
//	Idle -> Accumulating (impulse) -> Decaying (tick) -> Idle (snap to zero)
//
// Accumulating and Decaying move to FlickSettle when the flick threshold is
// crossed, returning to Idle on settle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAccumulating
	PhaseDecaying
	PhaseFlickSettle
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAccumulating:
		return "accumulating"
	case PhaseDecaying:
		return "decaying"
	case PhaseFlickSettle:
		return "flick_settle"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// StopTravel is the remaining travel, in scroll units, below which an axis
// snaps to rest. The matching velocity threshold is StopTravel*rate.
const StopTravel = 0.05

// quantEpsilon absorbs floating point residue so 17.999999999999 emits 18.
const quantEpsilon = 1e-9

// AxisState is a read-only view of one axis.
type AxisState struct {
	Velocity      float64   // scroll units per second, signed
	Carry         float64   // sub-unit remainder, in [-1, 1) after each emission
	LastImpulseAt time.Time // zero until the first impulse
	Mode          Mode
	Phase         Phase
	Dragging      bool // a middle-button drag is feeding this axis
}

// axis holds the mutable state of one axis. Only the loop goroutine
// touches it.
type axis struct {
	AxisState
	id wheel.Axis

	// agedAt is the instant velocity has been integrated up to.
	agedAt time.Time
	// pending is travel integrated at impulse time, emitted on the next tick.
	pending float64
	// lastTravel is the continuous travel of the most recent tick.
	lastTravel float64
}

// rate returns the effective decay rate for the axis under cfg.
func (a *axis) rate(cfg wheel.Config) float64 {
	if a.Mode == ModeFlick && cfg.FlickMode == wheel.FlickBoost {
		return cfg.Decay * cfg.FlickBoost
	}
	return cfg.Decay
}

// integrate ages velocity to instant to and returns the travel covered.
// Travel over dt is v*(1-e^(-rate*dt))/rate, the exact integral of the
// exponential decay, so the result does not depend on how dt is sliced.
func (a *axis) integrate(to time.Time, rate float64) float64 {
	dt := to.Sub(a.agedAt).Seconds()
	if dt <= 0 {
		return 0
	}
	a.agedAt = to
	if a.Velocity == 0 {
		return 0
	}
	f := math.Exp(-rate * dt)
	travel := a.Velocity * (1 - f) / rate
	a.Velocity *= f
	return travel
}

// impulse applies one impulse. It returns a tick only for an instant
// flick.
func (a *axis) impulse(imp wheel.Impulse, cfg wheel.Config) (wheel.OutputTick, bool) {
	if imp.Kind == wheel.KindRelease {
		return a.release(imp.At, cfg)
	}

	at := imp.At
	if at.Before(a.agedAt) {
		at = a.agedAt
	}

	rate := a.rate(cfg)
	within := cfg.ThinkTime > 0 && !a.LastImpulseAt.IsZero() &&
		imp.At.Sub(a.LastImpulseAt) < cfg.ThinkTime

	switch {
	case a.Velocity == 0:
		a.agedAt = at
	case !within:
		a.pending += a.integrate(at, rate)
	}

	a.Velocity += cfg.Travel(imp) * rate
	a.LastImpulseAt = imp.At
	if a.Phase != PhaseFlickSettle {
		a.Phase = PhaseAccumulating
	}

	// A drag follows the hand; whether it flicks is decided on release.
	if imp.Kind == wheel.KindDrag {
		a.Dragging = true
		return wheel.OutputTick{}, false
	}
	if !cfg.FlickEnabled() || math.Abs(a.Velocity) <= cfg.FlickThreshold {
		return wheel.OutputTick{}, false
	}
	return a.flick(rate, cfg)
}

// release ends a middle-button drag at instant at. With flick detection
// off the axis stops where it is; otherwise the remaining motion carries
// on as a flick. Travel covered before the release is still emitted.
func (a *axis) release(at time.Time, cfg wheel.Config) (wheel.OutputTick, bool) {
	if !a.Dragging {
		return wheel.OutputTick{}, false
	}
	a.Dragging = false
	if a.Velocity == 0 {
		return wheel.OutputTick{}, false
	}

	rate := a.rate(cfg)
	a.pending += a.integrate(at, rate)
	if !cfg.FlickEnabled() {
		a.Velocity = 0
		a.Mode = ModeNormal
		a.Phase = PhaseIdle
		return wheel.OutputTick{}, false
	}
	return a.flick(rate, cfg)
}

// flick applies the configured flick mode to the current velocity. An
// axis already in a boosted flick is left alone.
func (a *axis) flick(rate float64, cfg wheel.Config) (wheel.OutputTick, bool) {
	if a.Mode == ModeFlick {
		return wheel.OutputTick{}, false
	}
	switch cfg.FlickMode {
	case wheel.FlickInstant:
		remaining := a.pending + a.Velocity/rate
		a.pending = 0
		a.Velocity = 0
		a.Mode = ModeNormal
		a.Phase = PhaseIdle
		return a.emit(remaining)
	default:
		// Same remaining distance, covered boost times faster.
		a.Mode = ModeFlick
		a.Phase = PhaseFlickSettle
		a.Velocity *= cfg.FlickBoost
		return wheel.OutputTick{}, false
	}
}

// tick decays the axis to now and returns the quantized output, if any.
func (a *axis) tick(now time.Time, cfg wheel.Config) (wheel.OutputTick, bool) {
	rate := a.rate(cfg)
	travel := a.pending
	a.pending = 0

	if a.Velocity == 0 {
		if now.After(a.agedAt) {
			a.agedAt = now
		}
		a.Mode = ModeNormal
		a.Phase = PhaseIdle
	} else {
		travel += a.integrate(now, rate)
		if math.Abs(a.Velocity) < StopTravel*rate {
			// Flush the residue so a gesture's travel is conserved.
			travel += a.Velocity / rate
			a.Velocity = 0
			a.Mode = ModeNormal
			a.Phase = PhaseIdle
		} else if a.Phase == PhaseAccumulating {
			a.Phase = PhaseDecaying
		}
	}

	a.lastTravel = travel
	if travel == 0 {
		return wheel.OutputTick{}, false
	}
	return a.emit(travel)
}

// emit folds travel into the carry and extracts the integral part.
func (a *axis) emit(travel float64) (wheel.OutputTick, bool) {
	total := travel + a.Carry
	q := truncateTowardZero(total)
	a.Carry = total - q
	if q == 0 {
		return wheel.OutputTick{}, false
	}
	// Whole units beyond one tick's range go out on the following ticks.
	if math.Abs(q) > wheel.MaxTickDelta {
		limited := math.Copysign(wheel.MaxTickDelta, q)
		a.pending += q - limited
		q = limited
	}
	return wheel.OutputTick{Axis: a.id, Delta: int(q)}, true
}

// truncateTowardZero drops the fractional part of x, treating values within
// quantEpsilon of the next integer away from zero as that integer.
func truncateTowardZero(x float64) float64 {
	if x == 0 {
		return 0
	}
	return math.Trunc(x + math.Copysign(quantEpsilon, x))
}
