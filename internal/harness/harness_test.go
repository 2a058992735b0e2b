package harness

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nimbus/internal/engine"
	"github.com/roach88/nimbus/internal/store"
	"github.com/roach88/nimbus/internal/wheel"
)

func TestScenarios_Golden(t *testing.T) {
	scenarios, err := LoadDir("testdata/scenarios")
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)

	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			result, err := RunWithGolden(t, s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "assertion failures: %v", result.Errors)
		})
	}
}

func TestRun_SingleNotch(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/single_notch.yaml")
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)

	assert.True(t, result.Pass, result.Errors)
	assert.Equal(t, 18, result.Totals[wheel.Vertical])
	assert.Equal(t, 0, result.Totals[wheel.Horizontal])
	assert.Len(t, result.Frames, 64)
	assert.Equal(t, 64, result.Settled)
	assert.InDelta(t, wheel.DecayRate(0.9, 100*time.Millisecond), result.Config.Decay, 1e-12)

	ticks := result.Ticks(wheel.Vertical)
	require.NotEmpty(t, ticks)
	assert.Equal(t, 1, ticks[0].Delta)
	assert.Equal(t, 2, ticks[1].Delta)
}

func TestRun_Duration(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: bounded
duration: 100ms
impulses:
  - at: 0ms
    delta: 1
assertions: []
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)

	assert.Len(t, result.Frames, 25)
	assert.Equal(t, -1, result.Settled, "default decay is still gliding at 100ms")
}

func TestRun_MaxTicks(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: capped
max_ticks: 3
impulses:
  - at: 0ms
    delta: 1
assertions:
  - type: settles_within
    ticks: 100
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)

	assert.Len(t, result.Frames, 3)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "still moving")
}

func TestRun_PauseMutesAndDrops(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/pause_resume.yaml")
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	require.True(t, result.Pass, result.Errors)

	dropped := 0
	for _, f := range result.Frames {
		dropped += f.Dropped
		if f.Paused {
			assert.Empty(t, f.Ticks)
		}
	}
	assert.Equal(t, 1, dropped, "the notch at 60ms lands while paused")
	assert.NotZero(t, result.Muted[wheel.Vertical], "decay continues while paused")
}

func TestRun_DragRelease(t *testing.T) {
	tests := []struct {
		name  string
		flick string
		total int
	}{
		{"stops without flick", "flick_threshold: 0", 4},
		{"instant flick keeps distance", "flick_threshold: 1000000\n  flick_mode: instant", 18},
		{"boost flick keeps distance", "flick_threshold: 1000000\n  flick_mode: boost", 18},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := ParseScenario([]byte(`
name: drag
decay_shed: {fraction: 0.9, window: 100ms}
config:
  sensitivity_y: 18
  scroll_step_y: 1
  ` + tt.flick + `
impulses:
  - at: 0ms
    delta: 10
    kind: drag
  - at: 12ms
    delta: 0
    kind: release
assertions: []
`))
			require.NoError(t, err)

			result, err := Run(s)
			require.NoError(t, err)
			assert.Equal(t, tt.total, result.Totals[wheel.Vertical])

			snap := Snapshot(s.Name, result)
			require.NotEmpty(t, snap.Frames)
			assert.Equal(t, []TraceMotion{{Axis: "vertical", Delta: 10, Kind: "drag"}}, snap.Frames[0].Impulses)
		})
	}
}

func TestRun_FailingAssertions(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: wrong
config:
  sensitivity_y: 18
  scroll_step_x: 1
  scroll_step_y: 1
decay_shed: { fraction: 0.9, window: 100ms }
impulses:
  - at: 0ms
    delta: 1
assertions:
  - type: total
    equals: 17
  - type: total_near
    equals: 20
  - type: total_near
    equals: 19
  - type: single_tick
  - type: max_ticks
    ticks: 5
  - type: settles_within
    ticks: 10
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 5)
	assert.Contains(t, result.Errors[0], "expected 17, got 18")
	assert.Contains(t, result.Errors[1], "expected 20±1, got 18")
	assert.Contains(t, result.Errors[2], "single_tick")
	assert.Contains(t, result.Errors[3], "at most 5 ticks")
	assert.Contains(t, result.Errors[4], "rest after 64 ticks")
}

func TestAssertNoReversal(t *testing.T) {
	r := NewResult()
	r.Frames = []FrameRecord{
		{Frame: frameWithTicks(wheel.OutputTick{Axis: wheel.Vertical, Delta: 2})},
		{Frame: frameWithTicks(wheel.OutputTick{Axis: wheel.Vertical, Delta: -1})},
	}

	msgs := EvaluateAssertions(r, []Assertion{{Type: AssertNoReversal}})
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "tick 1 has delta -1")

	msgs = EvaluateAssertions(r, []Assertion{{Type: AssertNoReversal, Axis: "horizontal"}})
	assert.Empty(t, msgs)
}

func TestAssertDecreasingTravel(t *testing.T) {
	r := NewResult()
	travel := []float64{5, 4, 4.5, 0.2, 0}
	for _, v := range travel {
		var f FrameRecord
		f.Travel[wheel.Vertical] = v
		r.Frames = append(r.Frames, f)
	}

	msgs := EvaluateAssertions(r, []Assertion{{Type: AssertDecreasingTravel}})
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "4.500000")

	// An event starts a new segment.
	r.Frames[2].Events = []string{ActionReload}
	assert.Empty(t, EvaluateAssertions(r, []Assertion{{Type: AssertDecreasingTravel}}))
}

func TestParseScenario_Defaults(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: defaults
impulses:
  - at: 0ms
    delta: 1
assertions: []
`))
	require.NoError(t, err)

	assert.Equal(t, wheel.DefaultConfig(), s.Config)
	assert.Nil(t, s.DecayShed)
}

func TestParseScenario_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing name",
			yaml: "impulses: [{at: 0ms, delta: 1}]\nassertions: []",
			want: "name is required",
		},
		{
			name: "no impulses",
			yaml: "name: x\nassertions: []",
			want: "impulses list is required",
		},
		{
			name: "unknown field",
			yaml: "name: x\nimpulses: [{at: 0ms, delta: 1}]\nassertion: []",
			want: "failed to parse YAML",
		},
		{
			name: "unknown assertion",
			yaml: "name: x\nimpulses: [{at: 0ms, delta: 1}]\nassertions: [{type: bogus}]",
			want: `unknown assertion type "bogus"`,
		},
		{
			name: "bad axis",
			yaml: "name: x\nimpulses: [{at: 0ms, axis: z, delta: 1}]",
			want: `unknown axis "z"`,
		},
		{
			name: "repeat without every",
			yaml: "name: x\nimpulses: [{at: 0ms, delta: 1, repeat: 2}]",
			want: "repeat needs a positive every",
		},
		{
			name: "negative offset",
			yaml: "name: x\nimpulses: [{at: -5ms, delta: 1}]",
			want: "at must not be negative",
		},
		{
			name: "unknown action",
			yaml: "name: x\nimpulses: [{at: 0ms, delta: 1}]\nevents: [{at: 0ms, action: jump}]",
			want: `unknown action "jump"`,
		},
		{
			name: "reload without config",
			yaml: "name: x\nimpulses: [{at: 0ms, delta: 1}]\nevents: [{at: 0ms, action: reload}]",
			want: "reload needs a config",
		},
		{
			name: "bad kind",
			yaml: "name: x\nimpulses: [{at: 0ms, delta: 1, kind: shove}]",
			want: `unknown impulse kind "shove"`,
		},
		{
			name: "oversized delta",
			yaml: "name: x\nimpulses: [{at: 0ms, delta: 2000000}]",
			want: "delta 2000000 exceeds",
		},
		{
			name: "bad decay shed",
			yaml: "name: x\ndecay_shed: {fraction: 1.5, window: 100ms}\nimpulses: [{at: 0ms, delta: 1}]",
			want: "decay_shed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenario_Missing(t *testing.T) {
	_, err := LoadScenario("testdata/scenarios/does_not_exist.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestFromRecording(t *testing.T) {
	cfg := wheel.DefaultConfig()
	cfg.SensitivityY = 18
	cfg.ScrollStepX, cfg.ScrollStepY = 1, 1
	cfg.Decay = wheel.DecayRate(0.9, 100*time.Millisecond)

	sess := store.Session{ID: "abc", Label: "desk", Config: cfg}
	impulses := []store.RecordedImpulse{
		{Seq: 1, Offset: 0, Axis: wheel.Vertical, Delta: 1},
		{Seq: 2, Offset: 8 * time.Millisecond, Axis: wheel.Horizontal, Delta: -2},
	}

	s, err := FromRecording(sess, impulses, nil)
	require.NoError(t, err)
	assert.Equal(t, "replay-abc", s.Name)
	assert.Equal(t, "desk", s.Description)
	require.Len(t, s.Impulses, 2)
	assert.Equal(t, "horizontal", s.Impulses[1].Axis)

	result, err := Run(s)
	require.NoError(t, err)
	assert.Equal(t, 18, result.Totals[wheel.Vertical])
	assert.Equal(t, -2*18, result.Totals[wheel.Horizontal])

	drag, err := FromRecording(sess, []store.RecordedImpulse{
		{Seq: 1, Axis: wheel.Vertical, Delta: 4, Kind: wheel.KindDrag},
		{Seq: 2, Offset: time.Millisecond, Axis: wheel.Vertical, Kind: wheel.KindRelease},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "drag", drag.Impulses[0].Kind)
	assert.Equal(t, "release", drag.Impulses[1].Kind)

	// Override the recorded tuning.
	alt := cfg
	alt.SensitivityY = 36
	s, err = FromRecording(sess, impulses[:1], &alt)
	require.NoError(t, err)
	result, err = Run(s)
	require.NoError(t, err)
	assert.Equal(t, 36, result.Totals[wheel.Vertical])
}

func TestFromRecording_Empty(t *testing.T) {
	_, err := FromRecording(store.Session{ID: "empty"}, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no impulses")
}

func TestMarshalTrace_TrailingNewline(t *testing.T) {
	r := NewResult()
	data, err := MarshalTrace(Snapshot("empty", r))
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"scenario\": \"empty\",\n  \"frames\": [],\n  \"totals\": {\n    \"vertical\": 0,\n    \"horizontal\": 0\n  },\n  \"ticks\": 0\n}\n", string(data))
}

func frameWithTicks(ticks ...wheel.OutputTick) engine.Frame {
	return engine.Frame{Ticks: ticks}
}
