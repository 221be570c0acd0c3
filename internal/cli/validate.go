package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/guardloop/internal/config"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool                     `json:"valid"`
	Path   string                   `json:"path"`
	Errors []config.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <config>",
		Short: "Validate a configuration file",
		Long: `Validate a guardloop configuration file without running it.

Checks YAML syntax, unknown keys, the CUE schema and the controller's
threshold rules. Environment references are expanded first.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
	formatter.VerboseLog("Validating %s", path)

	cfg, err := config.Load(path)
	if err == nil {
		formatter.VerboseLog("Thresholds: %+v", cfg.ControllerThresholds())
		return outputValidateSuccess(formatter, path)
	}

	var verrs *config.ValidationErrors
	if errors.As(err, &verrs) {
		return outputValidationErrors(formatter, path, verrs.Errors)
	}

	// Unreadable or malformed files are command-level errors (exit code 2)
	_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
	return WrapExitError(ExitCommandError, "failed to load config", err)
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, path string) error {
	if formatter.IsJSON() {
		return formatter.Success(ValidationResult{Valid: true, Path: path})
	}

	fmt.Fprintf(formatter.Writer, "✓ %s is valid\n", path)
	return nil
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, path string, errs []config.ValidationError) error {
	if formatter.IsJSON() {
		if err := formatter.encode(CLIResponse{
			Status: "error",
			Data: ValidationResult{
				Valid:  false,
				Path:   path,
				Errors: errs,
			},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}); err != nil {
			return err
		}

		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, e := range errs {
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n", e.Code, e.Field, e.Message)
	}

	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
