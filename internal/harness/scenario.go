package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/nimbus/internal/wheel"
)

// Scenario is one scripted wheel gesture with expectations.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// Config starts from wheel.DefaultConfig; only given fields change.
	Config wheel.Config `yaml:"config"`

	// DecayShed sets Config.Decay from a shed fraction per window.
	DecayShed *DecayShed `yaml:"decay_shed,omitempty"`

	// Duration bounds the run. Zero runs until the engine rests.
	Duration time.Duration `yaml:"duration,omitempty"`

	// MaxTicks stops a scenario that never settles. Default 10000.
	MaxTicks int `yaml:"max_ticks,omitempty"`

	Impulses   []ImpulseStep `yaml:"impulses"`
	Events     []EventStep   `yaml:"events,omitempty"`
	Assertions []Assertion   `yaml:"assertions"`
}

// DefaultMaxTicks bounds scenarios that do not set MaxTicks.
const DefaultMaxTicks = 10000

// MaxStepDelta bounds the delta of one impulse step. With the largest
// sensitivity and step, travel stays exactly representable.
const MaxStepDelta = 1 << 20

// DecayShed describes decay as "lose Fraction of velocity every Window".
type DecayShed struct {
	Fraction float64       `yaml:"fraction"`
	Window   time.Duration `yaml:"window"`
}

// ImpulseStep is one or more wheel notches, or middle-button drag counts,
// at an offset from the start.
type ImpulseStep struct {
	At    time.Duration `yaml:"at"`
	Axis  string        `yaml:"axis,omitempty"` // default vertical
	Delta int           `yaml:"delta"`
	Kind  string        `yaml:"kind,omitempty"` // notch (default), drag or release

	// Repeat emits the step again Repeat more times, Every apart.
	Repeat int           `yaml:"repeat,omitempty"`
	Every  time.Duration `yaml:"every,omitempty"`
}

// EventStep changes the session at an offset from the start.
type EventStep struct {
	At     time.Duration `yaml:"at"`
	Action string        `yaml:"action"`

	// Config is overlaid on the active configuration by reload.
	Config yaml.Node `yaml:"config,omitempty"`
}

// Event actions.
const (
	ActionPause  = "pause"
	ActionResume = "resume"
	ActionToggle = "toggle"
	ActionReload = "reload"
)

// Assertion checks the outcome of a run.
type Assertion struct {
	Type      string `yaml:"type"`
	Axis      string `yaml:"axis,omitempty"`
	Equals    *int   `yaml:"equals,omitempty"`
	Tolerance int    `yaml:"tolerance,omitempty"`
	Ticks     int    `yaml:"ticks,omitempty"`
}

// Assertion type constants.
const (
	AssertTotal            = "total"
	AssertTotalNear        = "total_near"
	AssertSettlesWithin    = "settles_within"
	AssertSingleTick       = "single_tick"
	AssertNoReversal       = "no_reversal"
	AssertDecreasingTravel = "decreasing_travel"
	AssertMaxTicks         = "max_ticks"
	AssertPausedSilent     = "paused_silent"
)

var assertionTypes = map[string]bool{
	AssertTotal:            true,
	AssertTotalNear:        true,
	AssertSettlesWithin:    true,
	AssertSingleTick:       true,
	AssertNoReversal:       true,
	AssertDecreasingTravel: true,
	AssertMaxTicks:         true,
	AssertPausedSilent:     true,
}

// LoadScenario reads and validates a scenario file. Unknown fields are
// errors, which catches typos like "assertion:".
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	s := Scenario{Config: wheel.DefaultConfig()}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if s.DecayShed != nil {
		s.Config.Decay = wheel.DecayRate(s.DecayShed.Fraction, s.DecayShed.Window)
	}
	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

// LoadDir loads every *.yaml scenario in dir, sorted by file name.
func LoadDir(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	out := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		out = append(out, s)
	}
	return out, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Impulses) == 0 {
		return fmt.Errorf("impulses list is required and must be non-empty")
	}
	if s.DecayShed != nil && s.Config.Decay == 0 {
		return fmt.Errorf("decay_shed: fraction must be in (0, 1) and window positive")
	}
	for i, imp := range s.Impulses {
		if imp.At < 0 {
			return fmt.Errorf("impulses[%d]: at must not be negative", i)
		}
		if imp.Axis != "" {
			if _, err := wheel.ParseAxis(imp.Axis); err != nil {
				return fmt.Errorf("impulses[%d]: %w", i, err)
			}
		}
		if imp.Delta > MaxStepDelta || imp.Delta < -MaxStepDelta {
			return fmt.Errorf("impulses[%d]: delta %d exceeds %d", i, imp.Delta, MaxStepDelta)
		}
		if _, err := wheel.ParseImpulseKind(imp.Kind); err != nil {
			return fmt.Errorf("impulses[%d]: %w", i, err)
		}
		if imp.Repeat < 0 || (imp.Repeat > 0 && imp.Every <= 0) {
			return fmt.Errorf("impulses[%d]: repeat needs a positive every", i)
		}
	}
	for i, ev := range s.Events {
		switch ev.Action {
		case ActionPause, ActionResume, ActionToggle:
		case ActionReload:
			if ev.Config.IsZero() {
				return fmt.Errorf("events[%d]: reload needs a config", i)
			}
		default:
			return fmt.Errorf("events[%d]: unknown action %q", i, ev.Action)
		}
	}
	for i, a := range s.Assertions {
		if !assertionTypes[a.Type] {
			return fmt.Errorf("assertions[%d]: unknown assertion type %q", i, a.Type)
		}
		if a.Axis != "" {
			if _, err := wheel.ParseAxis(a.Axis); err != nil {
				return fmt.Errorf("assertions[%d]: %w", i, err)
			}
		}
	}
	return nil
}
