package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/nimbus/internal/config"
)

// ValidationError is one rejected option.
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Path   string            `json:"path"`
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [options-file]",
		Short: "Check an options file against the schema",
		Long: `Check an options file for unknown fields, parse errors and values
outside their valid range. Without an argument the file given by --config,
or the default options file, is checked. Environment overrides are not
applied.

Out-of-range values never stop the engine (they are clamped when applied),
but validate reports them so a typo does not go unnoticed.

Exit codes:
  0 - Valid
  1 - One or more values rejected
  2 - File missing or unreadable`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := rootOpts.ConfigPath
			if len(args) == 1 {
				path = args[0]
			}
			return runValidate(rootOpts, path, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	if path == "" {
		p, err := opts.configPath()
		if err != nil {
			return err
		}
		path = p
	}
	formatter.VerboseLog("Validating %s", path)

	cfg, err := config.Load(path)
	if err != nil {
		var ce *config.Error
		if errors.As(err, &ce) && ce.Code == config.CodeParse {
			return outputValidationErrors(formatter, path, []ValidationError{{
				Field:   "file",
				Code:    ce.Code,
				Message: ce.Msg,
			}})
		}
		_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "cannot read options", err)
	}

	var errs []ValidationError
	for _, verr := range config.Validate(cfg) {
		var ce *config.Error
		if errors.As(verr, &ce) {
			errs = append(errs, ValidationError{Field: ce.Path, Code: ce.Code, Message: ce.Msg})
			continue
		}
		errs = append(errs, ValidationError{Code: ErrCodeInvalid, Message: verr.Error()})
	}
	if len(errs) > 0 {
		return outputValidationErrors(formatter, path, errs)
	}

	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Path: path, Valid: true})
	}
	fmt.Fprintf(formatter.Writer, "✓ %s is valid\n", path)
	return nil
}

// outputValidationErrors reports rejected options and returns exit code 1.
func outputValidationErrors(formatter *OutputFormatter, path string, errs []ValidationError) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Path: path, Valid: false, Errors: errs},
			Error: &CLIError{
				Code:    ErrCodeInvalid,
				Message: fmt.Sprintf("%d option(s) rejected", len(errs)),
			},
		}
		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintf(formatter.Writer, "✗ %s is invalid\n\n", path)
	for _, e := range errs {
		fmt.Fprintf(formatter.Writer, "  %s: %s (%s)\n", e.Field, e.Message, e.Code)
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
