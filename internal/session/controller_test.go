package session

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nimbus/internal/wheel"
)

func TestController_StartsRunning(t *testing.T) {
	cfg := wheel.DefaultConfig()
	c := NewController(cfg)

	assert.False(t, c.Paused())
	assert.Equal(t, cfg, c.Config())
	assert.Equal(t, wheel.SessionState{Config: cfg}, c.Snapshot())
}

func TestController_StartPaused(t *testing.T) {
	c := NewController(wheel.DefaultConfig(), StartPaused())
	assert.True(t, c.Paused())
}

func TestController_PauseResumeToggle(t *testing.T) {
	c := NewController(wheel.DefaultConfig())

	c.Pause()
	assert.True(t, c.Paused())
	c.Pause()
	assert.True(t, c.Paused(), "pause is idempotent")

	c.Resume()
	assert.False(t, c.Paused())

	assert.True(t, c.TogglePause())
	assert.False(t, c.TogglePause())
}

func TestController_ReloadKeepsPauseFlag(t *testing.T) {
	c := NewController(wheel.DefaultConfig())
	c.Pause()

	next := wheel.DefaultConfig()
	next.Decay = 3
	c.Reload(next)

	snap := c.Snapshot()
	assert.True(t, snap.Paused)
	assert.Equal(t, 3.0, snap.Config.Decay)
}

func TestController_SnapshotIsACopy(t *testing.T) {
	c := NewController(wheel.DefaultConfig())
	snap := c.Snapshot()
	snap.Paused = true
	snap.Config.Decay = 99

	assert.False(t, c.Paused())
	assert.Equal(t, wheel.DefaultConfig().Decay, c.Config().Decay)
}

func TestController_HandleToggle(t *testing.T) {
	c := NewController(wheel.DefaultConfig())

	require.NoError(t, c.Handle(wheel.SignalTogglePause))
	assert.True(t, c.Paused())
	require.NoError(t, c.Handle(wheel.SignalTogglePause))
	assert.False(t, c.Paused())
}

func TestController_HandleSaveForwardsToSaver(t *testing.T) {
	cfg := wheel.DefaultConfig()
	cfg.Decay = 12

	var saved []wheel.Config
	c := NewController(cfg, WithSaver(SaverFunc(func(cfg wheel.Config) error {
		saved = append(saved, cfg)
		return nil
	})))

	require.NoError(t, c.Handle(wheel.SignalSave))
	require.Len(t, saved, 1)
	assert.Equal(t, cfg, saved[0])
	assert.False(t, c.Paused(), "save never touches the pause flag")
}

func TestController_HandleSaveErrors(t *testing.T) {
	assert.ErrorIs(t, NewController(wheel.DefaultConfig()).Handle(wheel.SignalSave), ErrNoSaver)

	disk := errors.New("disk full")
	c := NewController(wheel.DefaultConfig(), WithSaver(SaverFunc(func(wheel.Config) error { return disk })))
	assert.ErrorIs(t, c.Handle(wheel.SignalSave), disk)
}

func TestController_HandleUnknownSignal(t *testing.T) {
	c := NewController(wheel.DefaultConfig())
	assert.NoError(t, c.Handle(wheel.Signal(42)))
	assert.False(t, c.Paused())
}

func TestController_Subscribe(t *testing.T) {
	c := NewController(wheel.DefaultConfig())

	var states []wheel.SessionState
	c.Subscribe(func(st wheel.SessionState) {
		states = append(states, st)
		// Subscribers may read the controller without deadlocking.
		_ = c.Snapshot()
	})

	c.Pause()
	c.Resume()

	require.Len(t, states, 2)
	assert.True(t, states[0].Paused)
	assert.False(t, states[1].Paused)
}

func TestController_ConcurrentToggles(t *testing.T) {
	c := NewController(wheel.DefaultConfig())

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.TogglePause()
			_ = c.Snapshot()
		}()
	}
	wg.Wait()

	assert.False(t, c.Paused(), "an even number of toggles leaves the session running")
}
