package wheel

import (
	"fmt"
	"math"
	"time"
)

// FlickMode selects what happens when an axis crosses FlickThreshold.
type FlickMode string

const (
	// FlickBoost multiplies the decay rate so the axis settles faster
	// while covering the same remaining distance.
	FlickBoost FlickMode = "boost"
	// FlickInstant emits the whole remaining distance as one tick.
	FlickInstant FlickMode = "instant"
)

// Valid reports whether m is a known flick mode.
func (m FlickMode) Valid() bool {
	return m == FlickBoost || m == FlickInstant
}

// Config is an immutable snapshot of the smoothing coefficients.
//
// Decay is the exponential rate per second: velocity is multiplied by
// e^(-Decay*dt). FlickThreshold is in scroll units per second; zero
// disables flick detection.
type Config struct {
	SensitivityX   float64       `yaml:"sensitivity_x" json:"sensitivity_x" env:"SENSITIVITY_X"`
	SensitivityY   float64       `yaml:"sensitivity_y" json:"sensitivity_y" env:"SENSITIVITY_Y"`
	Decay          float64       `yaml:"decay" json:"decay" env:"DECAY"`
	ScrollStepX    float64       `yaml:"scroll_step_x" json:"scroll_step_x" env:"SCROLL_STEP_X"`
	ScrollStepY    float64       `yaml:"scroll_step_y" json:"scroll_step_y" env:"SCROLL_STEP_Y"`
	FlickThreshold float64       `yaml:"flick_threshold" json:"flick_threshold" env:"FLICK_THRESHOLD"`
	FlickMode      FlickMode     `yaml:"flick_mode" json:"flick_mode" env:"FLICK_MODE"`
	FlickBoost     float64       `yaml:"flick_boost" json:"flick_boost" env:"FLICK_BOOST"`
	ThinkTime      time.Duration `yaml:"think_time" json:"think_time" env:"THINK_TIME"`
	TickInterval   time.Duration `yaml:"tick_interval" json:"tick_interval" env:"TICK_INTERVAL"`
}

// Bounds used by Clamp.
const (
	MinDecay       = 0.05
	MaxDecay       = 1000.0
	MaxSensitivity = 1000.0
	MaxScrollStep  = 12000.0
	MinFlickBoost  = 1.0
	MaxFlickBoost  = 100.0
	MaxThinkTime   = 2 * time.Second
	MinTick        = time.Millisecond
	MaxTick        = 100 * time.Millisecond
)

// DefaultConfig returns the coefficients used when no options file exists.
func DefaultConfig() Config {
	return Config{
		SensitivityX:   1,
		SensitivityY:   1,
		Decay:          8,
		ScrollStepX:    120,
		ScrollStepY:    120,
		FlickThreshold: 0,
		FlickMode:      FlickBoost,
		FlickBoost:     3,
		ThinkTime:      60 * time.Millisecond,
		TickInterval:   4 * time.Millisecond,
	}
}

// Sensitivity returns the sensitivity for axis a.
func (c Config) Sensitivity(a Axis) float64 {
	if a == Horizontal {
		return c.SensitivityX
	}
	return c.SensitivityY
}

// Step returns the native units one notch is worth on axis a.
func (c Config) Step(a Axis) float64 {
	if a == Horizontal {
		return c.ScrollStepX
	}
	return c.ScrollStepY
}

// Travel returns the scroll distance, in native units, that imp adds to
// its axis. Releases carry no travel.
func (c Config) Travel(imp Impulse) float64 {
	travel := float64(imp.Delta) * c.Sensitivity(imp.Axis) * c.Step(imp.Axis)
	switch imp.Kind {
	case KindDrag:
		return travel / DragCountsPerNotch
	case KindRelease:
		return 0
	}
	return travel
}

// FlickEnabled reports whether flick detection is active.
func (c Config) FlickEnabled() bool {
	return c.FlickThreshold > 0
}

// DecayRate converts "shed this fraction of velocity per window" into the
// per-second rate stored in Config.Decay. DecayRate(0.9, 100*time.Millisecond)
// loses 90% of the velocity every 100ms.
func DecayRate(shed float64, window time.Duration) float64 {
	if shed <= 0 || shed >= 1 || window <= 0 {
		return 0
	}
	return -math.Log(1-shed) / window.Seconds()
}

// OutOfRangeError reports a configuration value outside its valid bounds.
// It is recovered by clamping and never stops the engine.
type OutOfRangeError struct {
	Field   string
	Value   float64
	Clamped float64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("CONFIG_OUT_OF_RANGE: %s=%g clamped to %g", e.Field, e.Value, e.Clamped)
}

// Clamp returns a copy of c with every field forced into its valid range,
// plus one OutOfRangeError per adjusted field.
func (c Config) Clamp() (Config, []*OutOfRangeError) {
	var errs []*OutOfRangeError
	fix := func(field string, v *float64, lo, hi, fallback float64) {
		orig := *v
		switch {
		case math.IsNaN(orig) || math.IsInf(orig, 0):
			*v = fallback
		case orig < lo:
			*v = lo
		case orig > hi:
			*v = hi
		default:
			return
		}
		errs = append(errs, &OutOfRangeError{Field: field, Value: orig, Clamped: *v})
	}
	def := DefaultConfig()

	fix("sensitivity_x", &c.SensitivityX, -MaxSensitivity, MaxSensitivity, def.SensitivityX)
	fix("sensitivity_y", &c.SensitivityY, -MaxSensitivity, MaxSensitivity, def.SensitivityY)
	fix("decay", &c.Decay, MinDecay, MaxDecay, def.Decay)
	fix("scroll_step_x", &c.ScrollStepX, 0, MaxScrollStep, def.ScrollStepX)
	fix("scroll_step_y", &c.ScrollStepY, 0, MaxScrollStep, def.ScrollStepY)
	fix("flick_threshold", &c.FlickThreshold, 0, math.MaxFloat64, 0)
	fix("flick_boost", &c.FlickBoost, MinFlickBoost, MaxFlickBoost, def.FlickBoost)

	think := float64(c.ThinkTime)
	fix("think_time", &think, 0, float64(MaxThinkTime), float64(def.ThinkTime))
	c.ThinkTime = time.Duration(think)

	tick := float64(c.TickInterval)
	fix("tick_interval", &tick, float64(MinTick), float64(MaxTick), float64(def.TickInterval))
	c.TickInterval = time.Duration(tick)

	if !c.FlickMode.Valid() {
		c.FlickMode = def.FlickMode
	}
	return c, errs
}
