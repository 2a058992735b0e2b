// Package config loads, validates and saves the options file.
//
// The file is YAML with the snake_case field names of wheel.Config.
// Missing fields keep their defaults. Environment variables prefixed with
// NIMBUS_ override the file (NIMBUS_DECAY, NIMBUS_THINK_TIME, ...).
// Validation against the embedded CUE schema reports every out-of-range
// field; the engine clamps them regardless.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/roach88/nimbus/internal/wheel"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "NIMBUS_"

// Error codes.
const (
	CodeNotFound   = "CONFIG_NOT_FOUND"
	CodeRead       = "CONFIG_READ_FAILED"
	CodeParse      = "CONFIG_PARSE_FAILED"
	CodeEnv        = "CONFIG_ENV_INVALID"
	CodeOutOfRange = "CONFIG_OUT_OF_RANGE"
	CodeWrite      = "CONFIG_WRITE_FAILED"
)

// Error describes a failure to load, validate or save options.
type Error struct {
	Code  string
	Path  string // file path, or field path for validation errors
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Path, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// IsNotFound reports whether err means the options file does not exist.
func IsNotFound(err error) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Code == CodeNotFound
}

// DefaultPath returns the per-user options file location.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "nimbus", "config.yaml"), nil
}

// Load reads path on top of the defaults. A missing file is reported with
// CodeNotFound together with the defaults, so callers can choose to carry
// on.
func Load(path string) (wheel.Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return wheel.DefaultConfig(), &Error{Code: CodeNotFound, Path: path, Msg: "options file does not exist", Cause: err}
	}
	if err != nil {
		return wheel.DefaultConfig(), &Error{Code: CodeRead, Path: path, Msg: err.Error(), Cause: err}
	}
	cfg, err := Parse(bytes.NewReader(data))
	if err != nil {
		var ce *Error
		if errors.As(err, &ce) {
			ce.Path = path
		}
		return wheel.DefaultConfig(), err
	}
	return cfg, nil
}

// Parse decodes YAML on top of the defaults. Unknown keys are errors.
func Parse(r io.Reader) (wheel.Config, error) {
	cfg := wheel.DefaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return wheel.DefaultConfig(), &Error{Code: CodeParse, Msg: err.Error(), Cause: err}
	}
	return cfg, nil
}

// ApplyEnv overrides fields of cfg from NIMBUS_* variables. Unset
// variables leave fields untouched.
func ApplyEnv(cfg wheel.Config) (wheel.Config, error) {
	return applyEnv(cfg, nil)
}

func applyEnv(cfg wheel.Config, environ map[string]string) (wheel.Config, error) {
	opts := env.Options{Prefix: EnvPrefix}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return cfg, &Error{Code: CodeEnv, Msg: err.Error(), Cause: err}
	}
	return cfg, nil
}

// Resolve is Load followed by ApplyEnv. A missing file is not an error
// here.
func Resolve(path string) (wheel.Config, error) {
	cfg, err := Load(path)
	if err != nil && !IsNotFound(err) {
		return cfg, err
	}
	return ApplyEnv(cfg)
}

// Marshal encodes cfg as YAML.
func Marshal(cfg wheel.Config) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
