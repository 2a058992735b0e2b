package harness

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/roach88/nimbus/internal/dispatch"
	"github.com/roach88/nimbus/internal/engine"
	"github.com/roach88/nimbus/internal/session"
	"github.com/roach88/nimbus/internal/testutil"
	"github.com/roach88/nimbus/internal/wheel"
)

// step is one scheduled impulse or event.
type step struct {
	at      time.Duration
	order   int // events before impulses at the same instant, then file order
	impulse *wheel.Impulse
	event   *EventStep
}

// Run executes a scenario on a manual clock and evaluates its assertions.
//
// Each impulse is offered and drained at its own instant, as the live loop
// does when the hook wakes it. Ticks fire every TickInterval of the active
// configuration; a step scheduled exactly on a tick is applied before it.
func Run(s *Scenario) (*Result, error) {
	clock := testutil.NewManualClock()
	ctl := session.NewController(s.Config)
	out := &dispatch.Collector{}
	loop := engine.NewLoop(ctl, out, engine.WithClock(clock))

	start := clock.Now()
	steps, err := schedule(s, start)
	if err != nil {
		return nil, err
	}
	maxTicks := s.MaxTicks
	if maxTicks <= 0 {
		maxTicks = DefaultMaxTicks
	}

	result := NewResult()
	result.Config = loop.Engine().Config()

	var pending []string
	lastStep := 0
	next := start.Add(loop.Engine().Config().TickInterval)

	for len(result.Frames) < maxTicks {
		for len(steps) > 0 && !start.Add(steps[0].at).After(next) {
			st := steps[0]
			steps = steps[1:]
			clock.Advance(start.Add(st.at).Sub(clock.Now()))

			if st.impulse != nil {
				if !loop.Offer(*st.impulse) {
					return nil, fmt.Errorf("impulse queue full at %s", st.at)
				}
				loop.Drain()
			} else {
				if err := apply(ctl, st.event); err != nil {
					return nil, err
				}
				pending = append(pending, st.event.Action)
			}
			lastStep = len(result.Frames)
		}

		clock.Advance(next.Sub(clock.Now()))
		f := loop.Step(next)
		rec := FrameRecord{Frame: f, Events: pending}
		for _, a := range wheel.Axes {
			rec.Travel[a] = loop.Engine().LastTravel(a)
		}
		pending = nil
		result.Frames = append(result.Frames, rec)
		next = next.Add(loop.Engine().Config().TickInterval)

		if s.Duration > 0 {
			if next.Sub(start) > s.Duration {
				break
			}
			continue
		}
		if len(steps) == 0 && loop.Engine().Quiescent() {
			break
		}
	}

	for _, a := range wheel.Axes {
		result.Totals[a] = out.Sum(a)
	}
	for _, f := range result.Frames {
		for _, t := range f.Muted {
			result.Muted[t.Axis] += t.Delta
		}
	}
	if loop.Engine().Quiescent() {
		result.Settled = lastActive(result.Frames) - lastStep + 1
		if result.Settled < 0 {
			result.Settled = 0
		}
	}

	for _, msg := range EvaluateAssertions(result, s.Assertions) {
		result.AddError(msg)
	}
	slog.Debug("scenario finished",
		"name", s.Name,
		"frames", len(result.Frames),
		"pass", result.Pass,
	)
	return result, nil
}

// lastActive returns the index of the last frame that moved, or -1.
func lastActive(frames []FrameRecord) int {
	for i := len(frames) - 1; i >= 0; i-- {
		f := frames[i]
		if len(f.Ticks) > 0 || len(f.Muted) > 0 || f.Travel != [len(wheel.Axes)]float64{} {
			return i
		}
	}
	return -1
}

func schedule(s *Scenario, start time.Time) ([]step, error) {
	var steps []step
	for i := range s.Events {
		steps = append(steps, step{at: s.Events[i].At, order: i, event: &s.Events[i]})
	}
	base := len(s.Events)
	for i, imp := range s.Impulses {
		axis := wheel.Vertical
		if imp.Axis != "" {
			a, err := wheel.ParseAxis(imp.Axis)
			if err != nil {
				return nil, err
			}
			axis = a
		}
		kind, err := wheel.ParseImpulseKind(imp.Kind)
		if err != nil {
			return nil, err
		}
		for r := 0; r <= imp.Repeat; r++ {
			at := imp.At + time.Duration(r)*imp.Every
			steps = append(steps, step{
				at:      at,
				order:   base + i,
				impulse: &wheel.Impulse{Axis: axis, Delta: imp.Delta, At: start.Add(at), Kind: kind},
			})
		}
	}
	sort.SliceStable(steps, func(i, j int) bool {
		if steps[i].at != steps[j].at {
			return steps[i].at < steps[j].at
		}
		return steps[i].order < steps[j].order
	})
	return steps, nil
}

func apply(ctl *session.Controller, ev *EventStep) error {
	switch ev.Action {
	case ActionPause:
		ctl.Pause()
	case ActionResume:
		ctl.Resume()
	case ActionToggle:
		ctl.TogglePause()
	case ActionReload:
		cfg := ctl.Config()
		if err := ev.Config.Decode(&cfg); err != nil {
			return fmt.Errorf("reload at %s: %w", ev.At, err)
		}
		ctl.Reload(cfg)
	}
	return nil
}
