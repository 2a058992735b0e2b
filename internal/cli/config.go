package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/nimbus/internal/config"
	"github.com/roach88/nimbus/internal/wheel"
)

// NewConfigCommand creates the config command group.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create or inspect the options file",
	}
	cmd.AddCommand(newConfigInitCommand(rootOpts))
	cmd.AddCommand(newConfigShowCommand(rootOpts))
	return cmd
}

func newConfigInitCommand(rootOpts *RootOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default options file",
		Long: `Write the default options to the options file (--config, or the
per-user default location). An existing file is kept unless --force is
given.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := rootOpts.configPath()
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return NewExitError(ExitCommandError, fmt.Sprintf("options file already exists: %s (use --force to overwrite)", path))
			}
			if err := config.Save(path, wheel.DefaultConfig()); err != nil {
				return WrapExitError(ExitCommandError, "failed to write options", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing options file")
	return cmd
}

func newConfigShowCommand(rootOpts *RootOptions) *cobra.Command {
	var clamped bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the options the engine would use",
		Long: `Print the options file merged with NIMBUS_* environment overrides, on
top of the defaults. --clamped shows the values after range clamping, as
the engine applies them.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadOptions(rootOpts)
			if err != nil {
				return err
			}
			if clamped {
				cfg, _ = cfg.Clamp()
			}

			if rootOpts.Format == "json" {
				return newFormatter(rootOpts, cmd).Success(cfg)
			}
			data, err := config.Marshal(cfg)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to encode options", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().BoolVar(&clamped, "clamped", false, "show values after range clamping")
	return cmd
}
