package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"

	"github.com/roach88/nimbus/internal/config"
	"github.com/roach88/nimbus/internal/dispatch"
	"github.com/roach88/nimbus/internal/engine"
	"github.com/roach88/nimbus/internal/session"
	"github.com/roach88/nimbus/internal/source"
	"github.com/roach88/nimbus/internal/wheel"
)

// PreviewOptions holds flags for the preview command.
type PreviewOptions struct {
	*RootOptions
	Lines  int
	Demo   bool
	Record string
	Label  string

	// NewScreen overrides the terminal (for testing).
	NewScreen func() (tcell.Screen, error)
}

// NewPreviewCommand creates the preview command.
func NewPreviewCommand(rootOpts *RootOptions) *cobra.Command {
	return newPreviewCommand(&PreviewOptions{RootOptions: rootOpts})
}

func newPreviewCommand(opts *PreviewOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Try the current options in the terminal",
		Long: `Scroll a sample document in the terminal with the smoothing engine,
without installing the system wheel hook. Works on every platform.

Keys:
  p      toggle pause
  s      save the active options
  q/Esc  quit

Examples:
  nimbus preview
  nimbus preview --demo
  nimbus preview --config ./fast.yaml --record ./gestures.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreview(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Lines, "lines", 500, "length of the sample document")
	cmd.Flags().BoolVar(&opts.Demo, "demo", false, "play a scripted flick on start")
	cmd.Flags().StringVar(&opts.Record, "record", "", "record gestures to this SQLite database")
	cmd.Flags().StringVar(&opts.Label, "label", "preview", "label for the recorded session")

	return cmd
}

func runPreview(opts *PreviewOptions, cmd *cobra.Command) error {
	cfg, path, err := loadOptions(opts.RootOptions)
	if err != nil {
		return err
	}

	newScreen := opts.NewScreen
	if newScreen == nil {
		newScreen = tcell.NewScreen
	}
	screen, err := newScreen()
	if err != nil {
		return WrapExitError(ExitCommandError, "cannot open terminal", err)
	}
	if err := screen.Init(); err != nil {
		return WrapExitError(ExitCommandError, "cannot open terminal", err)
	}
	defer screen.Fini()
	screen.EnableMouse()

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	view := dispatch.NewTerminal(screen, dispatch.SampleDocument(opts.Lines), 0)
	ctl := session.NewController(cfg, session.WithSaver(config.FileSaver{Path: path}))
	ctl.Subscribe(func(st wheel.SessionState) { view.SetStatus(statusLine(st, "")) })
	view.SetStatus(statusLine(ctl.Snapshot(), ""))

	rec, err := startRecording(ctx, opts.Record, opts.Label, cfg)
	if err != nil {
		return err
	}
	defer rec.finish()

	loop := engine.NewLoop(ctl, view, rec.loopOptions()...)
	loopErr := make(chan error, 1)
	go func() { loopErr <- loop.Run(ctx) }()

	keys := func(ev *tcell.EventKey) bool {
		if source.QuitKeys(ev) {
			return true
		}
		if ev.Key() != tcell.KeyRune {
			return false
		}
		switch ev.Rune() {
		case 'p':
			_ = ctl.Handle(wheel.SignalTogglePause)
		case 's':
			msg := "saved " + path
			if err := ctl.Handle(wheel.SignalSave); err != nil {
				slog.Error("save failed", "error", err)
				msg = "save failed"
			}
			view.SetStatus(statusLine(ctl.Snapshot(), msg))
		}
		return false
	}
	term := source.NewTerminal(screen, keys)
	term.OnResize(view.Redraw)

	if opts.Demo {
		demo := source.NewScripted(source.Flick(wheel.Vertical, 6, -1, 30*time.Millisecond))
		go func() {
			if err := demo.Run(ctx, loop, ctl); err != nil && !errors.Is(err, context.Canceled) {
				slog.Warn("demo stopped", "error", err)
			}
		}()
	}

	srcErr := term.Run(ctx, loop, ctl)
	cancel()
	if err := <-loopErr; err != nil && !errors.Is(err, context.Canceled) {
		return WrapExitError(ExitFailure, "engine error", err)
	}
	if srcErr != nil && !errors.Is(srcErr, context.Canceled) {
		return WrapExitError(ExitFailure, "terminal input stopped", srcErr)
	}
	return nil
}

// statusLine renders the bottom bar of the preview.
func statusLine(st wheel.SessionState, msg string) string {
	state := "smoothing"
	if st.Paused {
		state = "PAUSED"
	}
	line := fmt.Sprintf(" nimbus preview | %s | decay %.1f/s step %g/%g | [p] pause [s] save [q] quit",
		state, st.Config.Decay, st.Config.ScrollStepY, st.Config.ScrollStepX)
	if msg != "" {
		line += " | " + msg
	}
	return line
}
