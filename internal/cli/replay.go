package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/nimbus/internal/config"
	"github.com/roach88/nimbus/internal/harness"
	"github.com/roach88/nimbus/internal/store"
	"github.com/roach88/nimbus/internal/wheel"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	With     string // options file to replay under instead of the recorded one
	Check    bool   // fail when totals differ from the recording
}

// ReplayResult compares a replay against its recording.
type ReplayResult struct {
	Session  string `json:"session"`
	Label    string `json:"label,omitempty"`
	Impulses int    `json:"impulses"`
	Ticks    int    `json:"ticks"`
	Settled  int    `json:"settled"`

	Recorded AxisTotals `json:"recorded"`
	Replayed AxisTotals `json:"replayed"`
	Match    bool       `json:"match"`
}

// AxisTotals is the dispatched output per axis.
type AxisTotals struct {
	Vertical   int `json:"vertical"`
	Horizontal int `json:"horizontal"`
}

// RenderText implements TextRenderer.
func (r ReplayResult) RenderText(w io.Writer) error {
	fmt.Fprintf(w, "Session %s", r.Session)
	if r.Label != "" {
		fmt.Fprintf(w, " (%s)", r.Label)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  impulses: %d, replayed ticks: %d, settled after %d ticks\n", r.Impulses, r.Ticks, r.Settled)
	fmt.Fprintf(w, "  recorded: vertical %d, horizontal %d\n", r.Recorded.Vertical, r.Recorded.Horizontal)
	fmt.Fprintf(w, "  replayed: vertical %d, horizontal %d\n", r.Replayed.Vertical, r.Replayed.Horizontal)
	if r.Match {
		fmt.Fprintln(w, "✓ totals match")
	} else {
		fmt.Fprintln(w, "✗ totals differ")
	}
	return nil
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <session-id>",
		Short: "Replay a recorded gesture through the engine",
		Long: `Replay the impulses of a recorded session through the tick loop on a
simulated clock and compare the output with what was recorded.

By default the session is replayed under the options it was recorded with;
--with replays it under another options file, to compare tunings on the
same physical gesture.

Exit codes:
  0 - Replay finished (and totals match, with --check)
  1 - Totals differ from the recording (with --check)
  2 - Command error (database or session not found, etc.)

Examples:
  nimbus replay --db ./gestures.db 0190c6b2-...
  nimbus replay --db ./gestures.db 0190c6b2-... --with ./slow.yaml
  nimbus replay --db ./gestures.db 0190c6b2-... --check --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.With, "with", "", "replay under this options file")
	cmd.Flags().BoolVar(&opts.Check, "check", false, "exit 1 when totals differ from the recording")

	return cmd
}

func runReplay(opts *ReplayOptions, id string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := openExisting(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	sess, err := st.ReadSession(ctx, id)
	if errors.Is(err, store.ErrSessionNotFound) {
		return NewExitError(ExitCommandError, fmt.Sprintf("session not found: %s", id))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read session", err)
	}
	impulses, err := st.ReadImpulses(ctx, id)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read impulses", err)
	}
	ticks, err := st.ReadTicks(ctx, id)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read ticks", err)
	}

	var override *wheel.Config
	if opts.With != "" {
		cfg, err := config.Load(opts.With)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load options", err)
		}
		override = &cfg
	}

	scenario, err := harness.FromRecording(sess, impulses, override)
	if err != nil {
		return WrapExitError(ExitCommandError, "cannot replay session", err)
	}
	formatter.VerboseLog("Replaying %d impulse(s) from %s", len(impulses), id)

	run, err := harness.Run(scenario)
	if err != nil {
		return WrapExitError(ExitFailure, "replay failed", err)
	}

	result := ReplayResult{
		Session:  sess.ID,
		Label:    sess.Label,
		Impulses: len(impulses),
		Settled:  run.Settled,
		Replayed: AxisTotals{
			Vertical:   run.Totals[wheel.Vertical],
			Horizontal: run.Totals[wheel.Horizontal],
		},
	}
	for _, t := range ticks {
		if t.Discarded {
			continue
		}
		switch t.Axis {
		case wheel.Vertical:
			result.Recorded.Vertical += t.Delta
		case wheel.Horizontal:
			result.Recorded.Horizontal += t.Delta
		}
	}
	for _, f := range run.Frames {
		result.Ticks += len(f.Ticks)
	}
	result.Match = result.Recorded == result.Replayed

	if opts.Check && !result.Match {
		_ = formatter.Error(ErrCodeMismatch, "replayed totals differ from the recording", result)
		return NewExitError(ExitFailure, "replayed totals differ from the recording")
	}
	return formatter.Success(result)
}

// openExisting opens a database that must already exist.
func openExisting(path string) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", path))
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}
