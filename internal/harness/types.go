package harness

import (
	"github.com/roach88/nimbus/internal/engine"
	"github.com/roach88/nimbus/internal/wheel"
)

// FrameRecord is one loop frame plus what the harness saw around it.
type FrameRecord struct {
	engine.Frame

	// Events lists session actions applied since the previous frame.
	Events []string
	// Travel is the continuous travel of each axis during this frame.
	Travel [len(wheel.Axes)]float64
}

// Result is the outcome of a scenario run.
type Result struct {
	Pass   bool
	Errors []string

	// Config is the effective (clamped) configuration at the start.
	Config wheel.Config
	Frames []FrameRecord
	Totals [len(wheel.Axes)]int
	Muted  [len(wheel.Axes)]int

	// Settled is the number of frames from the last scripted step until
	// the engine came to rest, or -1 if it never did.
	Settled int
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{Pass: true, Errors: []string{}, Settled: -1}
}

// AddError records a failure.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Ticks returns the dispatched ticks on axis a in order.
func (r *Result) Ticks(a wheel.Axis) []wheel.OutputTick {
	var out []wheel.OutputTick
	for _, f := range r.Frames {
		for _, t := range f.Ticks {
			if t.Axis == a {
				out = append(out, t)
			}
		}
	}
	return out
}
