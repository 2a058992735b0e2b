package cli

import (
	"errors"
	"log/slog"

	"github.com/roach88/nimbus/internal/config"
	"github.com/roach88/nimbus/internal/wheel"
)

// loadOptions resolves the options file plus environment overrides. A
// missing file is not an error: defaults apply. Schema violations are
// logged; the engine clamps them when the config is applied.
func loadOptions(opts *RootOptions) (wheel.Config, string, error) {
	path, err := opts.configPath()
	if err != nil {
		return wheel.Config{}, "", err
	}

	cfg, err := config.Resolve(path)
	if err != nil {
		return cfg, path, WrapExitError(ExitCommandError, "failed to load options", err)
	}

	for _, verr := range config.Validate(cfg) {
		var ce *config.Error
		if errors.As(verr, &ce) {
			slog.Warn("option out of range, will be clamped", "field", ce.Path, "reason", ce.Msg)
			continue
		}
		slog.Warn("option check failed", "error", verr)
	}
	slog.Debug("options loaded", "path", path)
	return cfg, path, nil
}
