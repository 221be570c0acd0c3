package config

import (
	_ "embed"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaCUE string

// Error codes for validation failures.
const (
	ErrCodeSchema     = "E_SCHEMA"
	ErrCodeThresholds = "E_THRESHOLDS"
	ErrCodeInternal   = "E_INTERNAL"
)

// ValidationError describes one invalid configuration value.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// ValidationErrors collects every problem found in one document.
type ValidationErrors struct {
	Errors []ValidationError
}

func (e *ValidationErrors) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, ve := range e.Errors {
		msgs[i] = ve.Error()
	}
	return "config: invalid: " + strings.Join(msgs, "; ")
}

// validateSchema unifies cfg with #Config and reports every violation.
func validateSchema(cfg Config) []ValidationError {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue")).LookupPath(cue.ParsePath("#Config"))
	if err := schema.Err(); err != nil {
		return []ValidationError{{Field: "schema", Message: err.Error(), Code: ErrCodeInternal}}
	}

	value := ctx.Encode(cfg)
	if err := value.Err(); err != nil {
		return []ValidationError{{Field: "config", Message: err.Error(), Code: ErrCodeInternal}}
	}

	err := schema.Unify(value).Validate(cue.Concrete(true))
	if err == nil {
		return nil
	}

	var out []ValidationError
	for _, e := range cueerrors.Errors(err) {
		format, args := e.Msg()
		out = append(out, ValidationError{
			Field:   strings.Join(e.Path(), "."),
			Message: fmt.Sprintf(format, args...),
			Code:    ErrCodeSchema,
		})
	}
	if len(out) == 0 {
		out = append(out, ValidationError{Field: "config", Message: err.Error(), Code: ErrCodeSchema})
	}
	return out
}
