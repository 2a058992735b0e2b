package engine

import (
	"sync/atomic"
	"time"
)

// Clock supplies wall-clock instants to the tick loop.
// Implemented by SystemClock (production) and testutil.ManualClock (tests).
type Clock interface {
	Now() time.Time
}

// SystemClock reads time.Now, which carries a monotonic reading.
type SystemClock struct{}

// Now returns the current instant.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// Sequence is a monotonic logical counter used to number loop frames.
//
// Frames are stamped with a strictly increasing seq so recordings keep
// their order even when two frames share a wall-clock instant.
//
// Thread-safety: Sequence is safe for concurrent use (atomic operations).
type Sequence struct {
	seq atomic.Int64
}

// NewSequence creates a sequence starting at 0.
func NewSequence() *Sequence {
	return &Sequence{}
}

// NewSequenceAt creates a sequence starting at a specific value.
// Used by replay to continue numbering after recorded frames.
func NewSequenceAt(start int64) *Sequence {
	s := &Sequence{}
	s.seq.Store(start)
	return s
}

// Next returns the next value and increments the sequence.
func (s *Sequence) Next() int64 {
	return s.seq.Add(1)
}

// Current returns the current value without incrementing.
func (s *Sequence) Current() int64 {
	return s.seq.Load()
}
