package harness

import (
	"fmt"

	"github.com/roach88/nimbus/internal/store"
	"github.com/roach88/nimbus/internal/wheel"
)

// FromRecording turns a recorded session back into a scenario. The
// recorded configuration is used unless cfg is given, which lets a capture
// be replayed under different tuning.
//
// Pause toggles are not recorded; impulses dropped while paused never
// reached the store, so replaying them is equivalent.
func FromRecording(sess store.Session, impulses []store.RecordedImpulse, cfg *wheel.Config) (*Scenario, error) {
	if len(impulses) == 0 {
		return nil, fmt.Errorf("session %s has no impulses", sess.ID)
	}
	s := &Scenario{
		Name:        "replay-" + sess.ID,
		Description: sess.Label,
		Config:      sess.Config,
		Impulses:    make([]ImpulseStep, 0, len(impulses)),
	}
	if cfg != nil {
		s.Config = *cfg
	}
	for _, imp := range impulses {
		if imp.Offset < 0 {
			return nil, fmt.Errorf("impulse %d: negative offset %s", imp.Seq, imp.Offset)
		}
		s.Impulses = append(s.Impulses, ImpulseStep{
			At:    imp.Offset,
			Axis:  imp.Axis.String(),
			Delta: imp.Delta,
			Kind:  imp.Kind.String(),
		})
	}
	if err := validateScenario(s); err != nil {
		return nil, err
	}
	return s, nil
}
