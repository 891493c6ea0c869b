package spdata

import (
	"github.com/hupe1980/spdata/model"
)

var (
	// ErrFormat is returned for a malformed matrix file or manifest row.
	ErrFormat = model.ErrFormat

	// ErrConfig is returned for an invalid option or parameter.
	ErrConfig = model.ErrConfig

	// ErrDegenerateInput is returned for a zero-sized matrix.
	ErrDegenerateInput = model.ErrDegenerateInput

	// ErrNotFound is returned when a manifest, matrix file or entry does not exist.
	ErrNotFound = model.ErrNotFound

	// ErrGeneration is returned for a failed generator trial.
	ErrGeneration = model.ErrGeneration
)

// FormatError describes malformed input at a specific location.
type FormatError = model.FormatError

// ConfigError describes an invalid configuration value.
type ConfigError = model.ConfigError

// GenerationError wraps a failed generator trial.
type GenerationError = model.GenerationError
