package config

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/roach88/nimbus/internal/wheel"
)

// Save writes cfg to path atomically: a temp file in the same directory is
// renamed over the target.
func Save(path string, cfg wheel.Config) error {
	data, err := Marshal(cfg)
	if err != nil {
		return &Error{Code: CodeWrite, Path: path, Msg: err.Error(), Cause: err}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &Error{Code: CodeWrite, Path: path, Msg: err.Error(), Cause: err}
	}
	tmp, err := os.CreateTemp(dir, ".nimbus-*.yaml")
	if err != nil {
		return &Error{Code: CodeWrite, Path: path, Msg: err.Error(), Cause: err}
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return &Error{Code: CodeWrite, Path: path, Msg: err.Error(), Cause: err}
	}
	if err := tmp.Close(); err != nil {
		return &Error{Code: CodeWrite, Path: path, Msg: err.Error(), Cause: err}
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return &Error{Code: CodeWrite, Path: path, Msg: err.Error(), Cause: err}
	}
	return nil
}

// FileSaver persists configurations to one path. It satisfies
// session.Saver.
type FileSaver struct {
	Path string
}

// Save writes cfg to s.Path.
func (s FileSaver) Save(cfg wheel.Config) error {
	if err := Save(s.Path, cfg); err != nil {
		return err
	}
	slog.Info("configuration saved", "path", s.Path)
	return nil
}
