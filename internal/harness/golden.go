package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/nimbus/internal/testutil"
	"github.com/roach88/nimbus/internal/wheel"
)

// TraceSnapshot is the stable JSON form of a run. Only frames where
// something happened are kept, so idle stretches do not bloat the file.
type TraceSnapshot struct {
	Scenario string       `json:"scenario"`
	Frames   []TraceFrame `json:"frames"`
	Totals   TraceTotals  `json:"totals"`
	Ticks    int          `json:"ticks"`
}

// TraceFrame is one eventful frame. AtMicros is relative to the run start.
type TraceFrame struct {
	Seq      int64         `json:"seq"`
	AtMicros int64         `json:"at_us"`
	Paused   bool          `json:"paused,omitempty"`
	Events   []string      `json:"events,omitempty"`
	Impulses []TraceMotion `json:"impulses,omitempty"`
	Dropped  int           `json:"dropped,omitempty"`
	Ticks    []TraceMotion `json:"ticks,omitempty"`
	Muted    []TraceMotion `json:"muted,omitempty"`
}

// TraceMotion is an impulse or tick on one axis. Kind is set for drag
// and release impulses only.
type TraceMotion struct {
	Axis  string `json:"axis"`
	Delta int    `json:"delta"`
	Kind  string `json:"kind,omitempty"`
}

// TraceTotals sums the dispatched ticks per axis.
type TraceTotals struct {
	Vertical   int `json:"vertical"`
	Horizontal int `json:"horizontal"`
}

// Snapshot builds the trace of a finished run.
func Snapshot(name string, r *Result) TraceSnapshot {
	snap := TraceSnapshot{
		Scenario: name,
		Frames:   []TraceFrame{},
		Totals: TraceTotals{
			Vertical:   r.Totals[wheel.Vertical],
			Horizontal: r.Totals[wheel.Horizontal],
		},
	}
	for _, f := range r.Frames {
		snap.Ticks += len(f.Ticks)
		if len(f.Events) == 0 && len(f.Impulses) == 0 && f.Dropped == 0 &&
			len(f.Ticks) == 0 && len(f.Muted) == 0 {
			continue
		}
		tf := TraceFrame{
			Seq:      f.Seq,
			AtMicros: f.At.Sub(testutil.Epoch).Microseconds(),
			Paused:   f.Paused,
			Events:   f.Events,
			Dropped:  f.Dropped,
			Ticks:    ticksToMotion(f.Ticks),
			Muted:    ticksToMotion(f.Muted),
		}
		for _, imp := range f.Impulses {
			m := TraceMotion{Axis: imp.Axis.String(), Delta: imp.Delta}
			if imp.Kind != wheel.KindNotch {
				m.Kind = imp.Kind.String()
			}
			tf.Impulses = append(tf.Impulses, m)
		}
		snap.Frames = append(snap.Frames, tf)
	}
	return snap
}

func ticksToMotion(ticks []wheel.OutputTick) []TraceMotion {
	var out []TraceMotion
	for _, t := range ticks {
		out = append(out, TraceMotion{Axis: t.Axis.String(), Delta: t.Delta})
	}
	return out
}

// MarshalTrace renders a snapshot as indented JSON with a trailing newline.
func MarshalTrace(snap TraceSnapshot) ([]byte, error) {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// RunWithGolden executes a scenario and compares its trace against
// testdata/scenarios/golden/{name}.golden. Regenerate with:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, s *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(s)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, s.Name, result)
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := MarshalTrace(Snapshot(name, result))
	if err != nil {
		return err
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/scenarios/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
