// Package store records wheel gestures in SQLite.
//
// A recording is one session of `nimbus run --record` or `nimbus preview
// --record`:
//   - sessions: id, label, start time and the configuration in force
//   - impulses: every accepted impulse and its kind, offset from the session start
//   - ticks: every emitted (or, while paused, discarded) output tick
//
// Rows are ordered by a per-session seq column, never by timestamp, so a
// recording reads back in exactly the order it was produced. Recorded
// impulses can be replayed through a fresh engine under a different
// configuration; see harness.FromRecording.
//
// # Database Configuration
//
//   - WAL mode: the recorder writes while `nimbus sessions` reads
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - foreign_keys=ON: deleting a session removes its rows
package store
