// Package harness runs wheel scenarios against the real tick loop on a
// manual clock.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: single_notch
//	description: "One notch glides 18 units and settles"
//	config:
//	  sensitivity_y: 18
//	  scroll_step_x: 1
//	  scroll_step_y: 1
//	  tick_interval: 4ms
//	decay_shed: { fraction: 0.9, window: 100ms }
//	impulses:
//	  - at: 0ms
//	    axis: vertical
//	    delta: 1
//	  - at: 30ms
//	    delta: 1
//	    repeat: 3
//	    every: 20ms
//	  - at: 120ms
//	    delta: 25
//	    kind: drag
//	  - at: 150ms
//	    delta: 0
//	    kind: release
//	events:
//	  - at: 50ms
//	    action: pause
//	  - at: 90ms
//	    action: reload
//	    config: { decay: 4 }
//	assertions:
//	  - type: total
//	    axis: vertical
//	    equals: 18
//	  - type: settles_within
//	    ticks: 200
//
// Config fields not given keep their defaults. An impulse kind is notch
// unless given: drag deltas are middle-button motion counts, and release
// ends a drag. Impulses and events are
// applied in time order, events first when they share an instant. The run
// ends at duration, or once every step is applied and the engine is at
// rest.
//
// # Assertion Types
//
//   - total: dispatched output on an axis equals a value
//   - total_near: as total, within tolerance (default 1)
//   - settles_within: the engine rests within N ticks of the last step
//   - single_tick: exactly one tick was dispatched on the axis
//   - no_reversal: every dispatched tick on the axis has the same sign
//   - decreasing_travel: continuous travel shrinks every tick between steps
//   - max_ticks: at most N ticks were dispatched on the axis
//   - paused_silent: paused frames dispatch nothing but keep decaying
//
// # Determinism
//
// Runs use testutil.ManualClock starting at testutil.Epoch, so the same
// scenario always yields the same trace. Traces are compared against
// golden files in a golden/ directory beside the scenarios, with goldie.
package harness
