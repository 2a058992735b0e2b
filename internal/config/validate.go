package config

import (
	_ "embed"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/roach88/nimbus/internal/wheel"
)

//go:embed schema.cue
var schemaSource []byte

var (
	schemaOnce sync.Once
	schemaCtx  *cue.Context
	schema     cue.Value
	schemaErr  error
)

func loadSchema() (*cue.Context, cue.Value, error) {
	schemaOnce.Do(func() {
		schemaCtx = cuecontext.New()
		v := schemaCtx.CompileBytes(schemaSource, cue.Filename("schema.cue"))
		if err := v.Err(); err != nil {
			schemaErr = fmt.Errorf("compiling schema: %w", err)
			return
		}
		schema = v.LookupPath(cue.ParsePath("#Config"))
	})
	return schemaCtx, schema, schemaErr
}

// Validate checks cfg against the schema and returns one *Error per
// violating field, sorted by field name. A nil result means cfg is valid.
func Validate(cfg wheel.Config) []error {
	ctx, def, err := loadSchema()
	if err != nil {
		return []error{err}
	}

	var errs []error
	for _, f := range nonFinite(cfg) {
		errs = append(errs, &Error{Code: CodeOutOfRange, Path: f, Msg: "value must be finite"})
	}
	if len(errs) > 0 {
		return errs
	}

	v := ctx.Encode(cfg)
	if err := v.Err(); err != nil {
		return []error{&Error{Code: CodeParse, Msg: err.Error(), Cause: err}}
	}

	unified := def.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		seen := map[string]bool{}
		for _, e := range cueerrors.Errors(err) {
			path := e.Path()
			if len(path) > 0 && path[0] == "#Config" {
				path = path[1:]
			}
			field := strings.Join(path, ".")
			if seen[field] {
				continue
			}
			seen[field] = true
			errs = append(errs, &Error{
				Code:  CodeOutOfRange,
				Path:  field,
				Msg:   describe(e),
				Cause: e,
			})
		}
		sort.Slice(errs, func(i, j int) bool {
			return errs[i].(*Error).Path < errs[j].(*Error).Path
		})
	}
	return errs
}

func describe(e cueerrors.Error) string {
	format, args := e.Msg()
	return fmt.Sprintf(format, args...)
}

func nonFinite(cfg wheel.Config) []string {
	var out []string
	check := func(name string, v float64) {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			out = append(out, name)
		}
	}
	check("sensitivity_x", cfg.SensitivityX)
	check("sensitivity_y", cfg.SensitivityY)
	check("decay", cfg.Decay)
	check("scroll_step_x", cfg.ScrollStepX)
	check("scroll_step_y", cfg.ScrollStepY)
	check("flick_threshold", cfg.FlickThreshold)
	check("flick_boost", cfg.FlickBoost)
	return out
}
