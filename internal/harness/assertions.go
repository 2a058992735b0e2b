package harness

import (
	"fmt"
	"math"

	"github.com/roach88/nimbus/internal/wheel"
)

// travelEpsilon ignores floating point noise when comparing travel.
const travelEpsilon = 1e-9

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Axis     wheel.Axis
	Expected string
	Actual   string
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("assertion %s (%s) failed: expected %s, got %s", e.Type, e.Axis, e.Expected, e.Actual)
}

// EvaluateAssertions checks every assertion against result and returns
// the failure messages in assertion order.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var failures []string
	for _, a := range assertions {
		if err := evaluate(result, a); err != nil {
			failures = append(failures, err.Error())
		}
	}
	return failures
}

func evaluate(r *Result, a Assertion) error {
	axis := wheel.Vertical
	if a.Axis != "" {
		parsed, err := wheel.ParseAxis(a.Axis)
		if err != nil {
			return err
		}
		axis = parsed
	}

	switch a.Type {
	case AssertTotal:
		return assertTotal(r, axis, a, 0)
	case AssertTotalNear:
		tolerance := a.Tolerance
		if tolerance <= 0 {
			tolerance = 1
		}
		return assertTotal(r, axis, a, tolerance)
	case AssertSettlesWithin:
		return assertSettlesWithin(r, a)
	case AssertSingleTick:
		return assertSingleTick(r, axis)
	case AssertNoReversal:
		return assertNoReversal(r, axis)
	case AssertDecreasingTravel:
		return assertDecreasingTravel(r, axis)
	case AssertMaxTicks:
		return assertMaxTicks(r, axis, a)
	case AssertPausedSilent:
		return assertPausedSilent(r)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertTotal(r *Result, axis wheel.Axis, a Assertion, tolerance int) error {
	if a.Equals == nil {
		return &AssertionError{Type: a.Type, Axis: axis, Expected: "an equals value", Actual: "none"}
	}
	got := r.Totals[axis]
	diff := got - *a.Equals
	if diff < 0 {
		diff = -diff
	}
	if diff > tolerance {
		expected := fmt.Sprint(*a.Equals)
		if tolerance > 0 {
			expected = fmt.Sprintf("%d±%d", *a.Equals, tolerance)
		}
		return &AssertionError{Type: a.Type, Axis: axis, Expected: expected, Actual: fmt.Sprint(got)}
	}
	return nil
}

func assertSettlesWithin(r *Result, a Assertion) error {
	if r.Settled < 0 {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("rest within %d ticks", a.Ticks),
			Actual:   fmt.Sprintf("still moving after %d ticks", len(r.Frames)),
		}
	}
	if r.Settled > a.Ticks {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("rest within %d ticks", a.Ticks),
			Actual:   fmt.Sprintf("rest after %d ticks", r.Settled),
		}
	}
	return nil
}

func assertSingleTick(r *Result, axis wheel.Axis) error {
	ticks := r.Ticks(axis)
	if len(ticks) != 1 {
		return &AssertionError{
			Type:     AssertSingleTick,
			Axis:     axis,
			Expected: "exactly one tick",
			Actual:   fmt.Sprintf("%d ticks", len(ticks)),
		}
	}
	return nil
}

func assertNoReversal(r *Result, axis wheel.Axis) error {
	sign := 0
	for i, t := range r.Ticks(axis) {
		s := 1
		if t.Delta < 0 {
			s = -1
		}
		if sign != 0 && s != sign {
			return &AssertionError{
				Type:     AssertNoReversal,
				Axis:     axis,
				Expected: "ticks of one sign",
				Actual:   fmt.Sprintf("tick %d has delta %d", i, t.Delta),
			}
		}
		sign = s
	}
	return nil
}

// assertDecreasingTravel checks that continuous travel shrinks from tick to
// tick between inputs. A frame that follows an impulse or event starts a
// new segment, and the last moving frame of a segment is exempt because it
// flushes the residue.
func assertDecreasingTravel(r *Result, axis wheel.Axis) error {
	prev := math.Inf(1)
	for i, f := range r.Frames {
		travel := math.Abs(f.Travel[axis])
		if len(f.Impulses) > 0 || len(f.Events) > 0 || f.Dropped > 0 {
			prev = math.Inf(1)
		}
		if travel == 0 {
			prev = math.Inf(1)
			continue
		}
		terminal := i+1 >= len(r.Frames) || r.Frames[i+1].Travel[axis] == 0
		if terminal {
			continue
		}
		if travel >= prev-travelEpsilon && !math.IsInf(prev, 1) {
			return &AssertionError{
				Type:     AssertDecreasingTravel,
				Axis:     axis,
				Expected: fmt.Sprintf("travel below %.6f at frame %d", prev, i),
				Actual:   fmt.Sprintf("%.6f", travel),
			}
		}
		prev = travel
	}
	return nil
}

func assertMaxTicks(r *Result, axis wheel.Axis, a Assertion) error {
	if n := len(r.Ticks(axis)); n > a.Ticks {
		return &AssertionError{
			Type:     a.Type,
			Axis:     axis,
			Expected: fmt.Sprintf("at most %d ticks", a.Ticks),
			Actual:   fmt.Sprintf("%d ticks", n),
		}
	}
	return nil
}

func assertPausedSilent(r *Result) error {
	for _, f := range r.Frames {
		if f.Paused && len(f.Ticks) > 0 {
			return &AssertionError{
				Type:     AssertPausedSilent,
				Expected: "no dispatched ticks while paused",
				Actual:   fmt.Sprintf("%d ticks at frame %d", len(f.Ticks), f.Seq),
			}
		}
	}
	return nil
}
