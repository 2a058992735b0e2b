package wheel

import (
	"fmt"
	"math"
	"time"
)

// Axis identifies a scroll axis.
type Axis int

const (
	// Vertical is the primary wheel axis.
	Vertical Axis = iota
	// Horizontal is the tilt wheel axis.
	Horizontal
)

// Axes lists every axis in processing order.
var Axes = [...]Axis{Vertical, Horizontal}

// String returns the axis name used in logs, traces and the store.
func (a Axis) String() string {
	switch a {
	case Vertical:
		return "vertical"
	case Horizontal:
		return "horizontal"
	default:
		return fmt.Sprintf("axis(%d)", int(a))
	}
}

// ParseAxis is the inverse of Axis.String. It also accepts "y" and "x".
func ParseAxis(s string) (Axis, error) {
	switch s {
	case "vertical", "y":
		return Vertical, nil
	case "horizontal", "x":
		return Horizontal, nil
	default:
		return 0, fmt.Errorf("unknown axis %q", s)
	}
}

// Valid reports whether a names a known axis.
func (a Axis) Valid() bool {
	return a == Vertical || a == Horizontal
}

// ImpulseKind distinguishes wheel notches from middle-button drag input.
type ImpulseKind int

const (
	// KindNotch is a wheel notch; Delta counts notches.
	KindNotch ImpulseKind = iota
	// KindDrag is pointer motion while the middle button is held; Delta
	// is in mouse counts, down and right positive.
	KindDrag
	// KindRelease ends a drag on its axis. Delta is ignored.
	KindRelease
)

func (k ImpulseKind) String() string {
	switch k {
	case KindNotch:
		return "notch"
	case KindDrag:
		return "drag"
	case KindRelease:
		return "release"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseImpulseKind is the inverse of ImpulseKind.String. The empty string
// is a notch.
func ParseImpulseKind(s string) (ImpulseKind, error) {
	switch s {
	case "", "notch":
		return KindNotch, nil
	case "drag":
		return KindDrag, nil
	case "release":
		return KindRelease, nil
	default:
		return 0, fmt.Errorf("unknown impulse kind %q", s)
	}
}

// Impulse is one discrete input notification.
//
// For a notch, Delta is the signed notch count reported by the platform;
// fast physical spins can produce |Delta| > 1. At is the receipt time on
// the monotonic clock.
type Impulse struct {
	Axis  Axis        `json:"axis"`
	Delta int         `json:"delta"`
	At    time.Time   `json:"at"`
	Kind  ImpulseKind `json:"kind,omitempty"`
}

// OutputTick is one quantized scroll emission.
//
// Delta is never zero for a tick that reaches a dispatcher. The unit is
// the host's native wheel unit.
type OutputTick struct {
	Axis  Axis `json:"axis"`
	Delta int  `json:"delta"`
}

// SessionState is the process-wide pause flag and active configuration,
// read by the tick loop as one consistent snapshot per tick.
type SessionState struct {
	Paused bool   `json:"paused"`
	Config Config `json:"config"`
}

// Signal is an edge-triggered request from the hotkey layer.
type Signal int

const (
	// SignalTogglePause flips the paused flag.
	SignalTogglePause Signal = iota + 1
	// SignalSave asks the persistence collaborator to store the active config.
	SignalSave
)

func (s Signal) String() string {
	switch s {
	case SignalTogglePause:
		return "toggle_pause"
	case SignalSave:
		return "save"
	default:
		return fmt.Sprintf("signal(%d)", int(s))
	}
}

// InjectionMarker tags synthetic wheel events sent by this process so the
// capture hook can let them through instead of capturing its own output.
const InjectionMarker uintptr = 0x4E494D42

// NativeNotch is the platform wheel delta of one physical notch.
const NativeNotch = 120

// MaxTickDelta bounds the delta of one OutputTick so it fits the signed
// 32-bit field of a synthesized wheel event. Larger travel is spread over
// several ticks.
const MaxTickDelta = math.MaxInt32

// DragCountsPerNotch is the pointer motion, in mouse counts, that scrolls
// as far as one wheel notch during a middle-button drag.
const DragCountsPerNotch = 10
