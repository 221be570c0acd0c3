package engine

import (
	"errors"
	"fmt"
)

// Sentinel errors. Both are returned wrapped; test with errors.Is.
var (
	// ErrInvalidPointer reports a nil engine or a missing required argument.
	ErrInvalidPointer = errors.New("invalid pointer")

	// ErrInvalidConfiguration reports an empty state table, one that
	// references state ids absent from the state set, or an unusable
	// initial state.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// Legacy status codes, kept for callers that report integers (journal,
// CLI JSON output).
const (
	StatusOK                   int32 = 0
	StatusInvalidPointer       int32 = -1
	StatusInvalidConfiguration int32 = -2
	StatusHookFailed           int32 = -3
)

// ConfigErrorCode categorizes configuration errors.
type ConfigErrorCode string

const (
	ErrCodeDuplicateState ConfigErrorCode = "DUPLICATE_STATE"
	ErrCodeUnknownSource  ConfigErrorCode = "UNKNOWN_SOURCE"
	ErrCodeUnknownTarget  ConfigErrorCode = "UNKNOWN_TARGET"
	ErrCodeUnknownInitial ConfigErrorCode = "UNKNOWN_INITIAL"
	ErrCodeNoStates       ConfigErrorCode = "NO_STATES"
	ErrCodeNoTransitions  ConfigErrorCode = "NO_TRANSITIONS"
)

// ConfigError describes one invalid entry in a state table.
//
// ConfigError unwraps to ErrInvalidConfiguration.
type ConfigError struct {
	Code ConfigErrorCode

	// Index is the offending position in the states or transitions slice,
	// or -1 when the error is about the initial state or an empty slice.
	Index int

	// State is the state id that could not be resolved (or was duplicated).
	State StateID
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	switch {
	case e.Code == ErrCodeNoStates || e.Code == ErrCodeNoTransitions:
		return fmt.Sprintf("%s: %s", ErrInvalidConfiguration, e.Code)
	case e.Index >= 0:
		return fmt.Sprintf("%s: %s (index=%d, state=%d)", ErrInvalidConfiguration, e.Code, e.Index, e.State)
	default:
		return fmt.Sprintf("%s: %s (state=%d)", ErrInvalidConfiguration, e.Code, e.State)
	}
}

// Unwrap lets errors.Is match ErrInvalidConfiguration.
func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfiguration
}

// HookError wraps an error returned by a state hook.
type HookError struct {
	State StateID
	Hook  HookKind
	Err   error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("%s hook of state %d: %v", e.Hook, e.State, e.Err)
}

func (e *HookError) Unwrap() error {
	return e.Err
}

// IsConfigError returns true if err is, or wraps, an invalid configuration.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration)
}

// IsHookError returns true if err carries a hook failure.
// Uses errors.As to handle wrapped and joined errors.
func IsHookError(err error) bool {
	var he *HookError
	return errors.As(err, &he)
}

// Status maps an error returned by the engine to its legacy status code.
func Status(err error) int32 {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, ErrInvalidPointer):
		return StatusInvalidPointer
	case errors.Is(err, ErrInvalidConfiguration):
		return StatusInvalidConfiguration
	default:
		return StatusHookFailed
	}
}
