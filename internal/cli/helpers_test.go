package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nimbus/internal/engine"
	"github.com/roach88/nimbus/internal/store"
	"github.com/roach88/nimbus/internal/wheel"
)

// notchOptions is an options file where one notch glides 18 units and
// settles in about a quarter second.
const notchOptions = `sensitivity_y: 18
sensitivity_x: 18
scroll_step_x: 1
scroll_step_y: 1
decay: 23.025850929940457
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// execute runs the root command with args and returns its stdout. Logs
// and diagnostics go to stderr, which is dropped.
func execute(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	return executeCmd(t, ctx, cmd, args...)
}

func executeCmd(t *testing.T, ctx context.Context, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	if ctx == nil {
		ctx = context.Background()
	}
	err := cmd.ExecuteContext(ctx)
	return buf.String(), err
}

// recordSession writes a session with one vertical notch and its 18-unit
// output.
func recordSession(t *testing.T, dbPath, id string) {
	t.Helper()
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	cfg := wheel.DefaultConfig()
	cfg.SensitivityY = 18
	cfg.ScrollStepX, cfg.ScrollStepY = 1, 1
	cfg.Decay = wheel.DecayRate(0.9, 100*time.Millisecond)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rec, err := st.NewRecorder(context.Background(), start, cfg,
		store.WithIDGenerator(store.NewFixedGenerator(id)),
		store.WithLabel("desk mouse"),
	)
	require.NoError(t, err)

	rec.Observe(engine.Frame{
		Seq:      1,
		At:       start.Add(4 * time.Millisecond),
		Impulses: []wheel.Impulse{{Axis: wheel.Vertical, Delta: 1, At: start}},
		Ticks:    []wheel.OutputTick{{Axis: wheel.Vertical, Delta: 10}},
	})
	rec.Observe(engine.Frame{
		Seq:   2,
		At:    start.Add(8 * time.Millisecond),
		Ticks: []wheel.OutputTick{{Axis: wheel.Vertical, Delta: 8}},
	})
	require.NoError(t, rec.Close(start.Add(time.Second)))
}
