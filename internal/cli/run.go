package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/nimbus/internal/config"
	"github.com/roach88/nimbus/internal/dispatch"
	"github.com/roach88/nimbus/internal/engine"
	"github.com/roach88/nimbus/internal/session"
	"github.com/roach88/nimbus/internal/source"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Record           string
	Label            string
	AllowPassthrough bool
	StartPaused      bool

	// NewSource and NewDispatcher override the platform hook and
	// SendInput (for testing). Nil uses the system implementations.
	NewSource     func() (source.Source, error)
	NewDispatcher func() (dispatch.Dispatcher, error)
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Capture the wheel and smooth it system-wide",
		Long: `Install the low-level wheel hook and replace native wheel notches with
a smooth glide of small scroll events.

Options are read from the options file and NIMBUS_* environment variables.
Send SIGHUP to reload the options file without restarting.

If the hook cannot be installed the command exits with code 2, unless
--allow-passthrough is given, in which case it keeps running and native
scrolling stays unmodified.

Examples:
  nimbus run
  nimbus run --config ./nimbus.yaml --verbose
  nimbus run --record ./gestures.db --label "trackpad test"`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEngine(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Record, "record", "", "record gestures to this SQLite database")
	cmd.Flags().StringVar(&opts.Label, "label", "", "label for the recorded session")
	cmd.Flags().BoolVar(&opts.AllowPassthrough, "allow-passthrough", false, "keep running with native scrolling if the hook is unavailable")
	cmd.Flags().BoolVar(&opts.StartPaused, "paused", false, "start with smoothing paused")

	return cmd
}

func runEngine(opts *RunOptions, cmd *cobra.Command) error {
	cfg, path, err := loadOptions(opts.RootOptions)
	if err != nil {
		return err
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	newSource := opts.NewSource
	if newSource == nil {
		newSource = func() (source.Source, error) { return source.NewSystem() }
	}
	src, err := newSource()
	if err != nil {
		if !source.IsHookRegistrationError(err) || !opts.AllowPassthrough {
			return WrapExitError(ExitCommandError, "wheel hook unavailable, scrolling is unmodified", err)
		}
		slog.Warn("wheel hook unavailable, scrolling is unmodified", "error", err)
		fmt.Fprintln(cmd.OutOrStdout(), "Wheel hook unavailable: native scrolling is unmodified. Press Ctrl-C to stop.")
		waitForSignal(ctx, cancel)
		<-ctx.Done()
		return nil
	}

	newDispatcher := opts.NewDispatcher
	if newDispatcher == nil {
		newDispatcher = dispatch.NewSystem
	}
	out, err := newDispatcher()
	if err != nil {
		return WrapExitError(ExitCommandError, "cannot inject scroll events", err)
	}
	async := dispatch.NewAsync(out, 0)
	defer async.Close()

	var ctlOpts []session.Option
	ctlOpts = append(ctlOpts, session.WithSaver(config.FileSaver{Path: path}))
	if opts.StartPaused {
		ctlOpts = append(ctlOpts, session.StartPaused())
	}
	ctl := session.NewController(cfg, ctlOpts...)

	rec, err := startRecording(ctx, opts.Record, opts.Label, cfg)
	if err != nil {
		return err
	}
	defer rec.finish()

	loop := engine.NewLoop(ctl, async, rec.loopOptions()...)

	waitForSignal(ctx, cancel)
	watchReload(ctx, path, ctl)

	loopErr := make(chan error, 1)
	go func() { loopErr <- loop.Run(ctx) }()

	slog.Info("nimbus running", "options", path, "paused", ctl.Paused())
	fmt.Fprintln(cmd.OutOrStdout(), "Smoothing active. Press Ctrl-C to stop.")

	srcErr := src.Run(ctx, loop, ctl)
	cancel()
	if err := <-loopErr; err != nil && !errors.Is(err, context.Canceled) {
		return WrapExitError(ExitFailure, "engine error", err)
	}
	if srcErr != nil && !errors.Is(srcErr, context.Canceled) {
		if source.IsHookRegistrationError(srcErr) {
			return WrapExitError(ExitCommandError, "wheel hook unavailable, scrolling is unmodified", srcErr)
		}
		return WrapExitError(ExitFailure, "wheel source stopped", srcErr)
	}

	slog.Info("nimbus stopped", "sent", async.Sent(), "dropped", async.Dropped())
	return nil
}

// waitForSignal cancels ctx on Ctrl-C or SIGTERM.
func waitForSignal(ctx context.Context, cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()
}

// watchReload re-reads the options file on SIGHUP.
func watchReload(ctx context.Context, path string, ctl *session.Controller) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)

	go func() {
		defer signal.Stop(hup)
		for {
			select {
			case <-hup:
				cfg, err := config.Resolve(path)
				if err != nil {
					slog.Error("reload failed, keeping current options", "error", err)
					continue
				}
				ctl.Reload(cfg)
				slog.Info("options reloaded", "path", path)
			case <-ctx.Done():
				return
			}
		}
	}()
}
