// Package engine implements the scroll smoothing engine.
//
// The engine turns discrete wheel impulses into a continuous, decaying
// velocity per axis and emits integral output ticks from it.
//
// ARCHITECTURE:
//
// Single-Writer Tick Loop:
// All axis state is owned by one goroutine (Loop.Run). This ensures:
//   - No locking on the hot path
//   - Impulses applied in arrival order within an axis
//   - Deterministic output for a given impulse/tick schedule
//
// Event Processing Flow:
//  1. The event source offers impulses to a bounded queue and returns
//  2. Loop.Run drains the queue as soon as it is signalled
//  3. Every tick interval, Engine.Tick decays each axis by elapsed wall time
//  4. Non-zero quantized deltas go to the dispatcher (fire-and-forget)
//
// NUMERICS:
//
// Velocity is stored in scroll units per second. A tick emits the exact
// integral of the decaying velocity over the elapsed interval, so the
// total travel of an impulse is delta*sensitivity*step whatever the tick
// period, and a late tick simply integrates over a longer interval.
// Fractional travel is carried between ticks and truncated toward zero so
// output never overshoots the direction of motion.
package engine
