// Package wheel provides the value types shared by every stage of the
// scroll pipeline.
//
// This package contains type definitions only. All other internal packages
// import wheel; wheel imports nothing internal. This keeps the impulse,
// output and configuration types the foundational layer with no circular
// dependencies.
//
// Key design constraints:
//   - Impulse and OutputTick are immutable values, consumed exactly once
//   - Deltas crossing the OS boundary are signed integers
//   - Config is a snapshot: replaced as a whole, never mutated in place
//   - All JSON/YAML tags use snake_case
package wheel
