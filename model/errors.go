package model

import (
	"errors"
	"fmt"
)

var (
	// ErrFormat is returned for a malformed matrix file or manifest row.
	ErrFormat = errors.New("format error")

	// ErrConfig is returned for an invalid feature dimension or parameter range.
	ErrConfig = errors.New("config error")

	// ErrDegenerateInput is returned for a zero-sized matrix.
	ErrDegenerateInput = errors.New("degenerate input")

	// ErrNotFound is returned when a manifest or artifact path does not exist.
	ErrNotFound = errors.New("not found")

	// ErrGeneration is returned when the external generator fails a trial.
	ErrGeneration = errors.New("generation failed")
)

// FormatError describes malformed input at a specific location.
//
// Line is 1-based; 0 means the location is unknown.
type FormatError struct {
	Source string
	Line   int
	Reason string
	cause  error
}

// NewFormatError creates a FormatError wrapping cause (which may be nil).
func NewFormatError(source string, line int, reason string, cause error) *FormatError {
	return &FormatError{Source: source, Line: line, Reason: reason, cause: cause}
}

func (e *FormatError) Error() string {
	loc := e.Source
	if loc == "" {
		loc = "input"
	}
	if e.Line > 0 {
		loc = fmt.Sprintf("%s:%d", loc, e.Line)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %s: %v", ErrFormat, loc, e.Reason, e.cause)
	}
	return fmt.Sprintf("%s: %s: %s", ErrFormat, loc, e.Reason)
}

func (e *FormatError) Unwrap() error { return e.cause }

// Is reports whether target is ErrFormat.
func (e *FormatError) Is(target error) bool { return target == ErrFormat }

// ConfigError describes an invalid configuration value.
type ConfigError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s=%v: %s", ErrConfig, e.Field, e.Value, e.Reason)
}

// Is reports whether target is ErrConfig.
func (e *ConfigError) Is(target error) bool { return target == ErrConfig }

// GenerationError wraps a failed trial of the external generator.
//
// The original underlying error can be accessed via errors.Unwrap.
type GenerationError struct {
	Trial int
	ID    string
	cause error
}

// NewGenerationError creates a GenerationError for the given trial.
func NewGenerationError(trial int, id string, cause error) *GenerationError {
	return &GenerationError{Trial: trial, ID: id, cause: cause}
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s: trial %d (%s): %v", ErrGeneration, e.Trial, e.ID, e.cause)
}

func (e *GenerationError) Unwrap() error { return e.cause }

// Is reports whether target is ErrGeneration.
func (e *GenerationError) Is(target error) bool { return target == ErrGeneration }
