package source

import (
	"context"
	"time"

	"github.com/roach88/nimbus/internal/wheel"
)

// Step is one scripted wheel report.
type Step struct {
	After time.Duration `yaml:"after" json:"after"`
	Axis  wheel.Axis    `yaml:"axis" json:"axis"`
	Delta int           `yaml:"delta" json:"delta"`
}

// Scripted replays Steps in real time. Each step waits After since the
// previous one. Steps offered while the gate is paused are skipped.
type Scripted struct {
	Steps []Step
	clock Clock
}

// NewScripted creates a scripted source.
func NewScripted(steps []Step, opts ...Option) *Scripted {
	o := buildOptions(opts)
	return &Scripted{Steps: steps, clock: o.clock}
}

// Run plays every step and returns nil, or ctx.Err() if cancelled first.
func (s *Scripted) Run(ctx context.Context, sink Sink, gate Gate) error {
	for _, step := range s.Steps {
		if step.After > 0 {
			timer := time.NewTimer(step.After)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
		if gate.Paused() || step.Delta == 0 {
			continue
		}
		sink.Offer(wheel.Impulse{Axis: step.Axis, Delta: step.Delta, At: s.clock.Now()})
	}
	return nil
}

// Flick returns steps for n notches in one direction spaced by gap, a
// quick demo of the coasting behaviour.
func Flick(axis wheel.Axis, n, dir int, gap time.Duration) []Step {
	steps := make([]Step, n)
	for i := range steps {
		steps[i] = Step{After: gap, Axis: axis, Delta: dir}
	}
	if n > 0 {
		steps[0].After = 0
	}
	return steps
}
