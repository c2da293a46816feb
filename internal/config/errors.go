package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and LoadConfigFile and can be
// checked with errors.Is().
var (
	// ErrNoInputFile is returned when no URL list file is given by flag,
	// config file or prompt.
	ErrNoInputFile = errors.New("no input file specified: provide a URL list with --list")

	// ErrInvalidTimeout is returned when the navigation timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidDelay is returned when the delay between sites is negative.
	// Use 0 for no delay.
	ErrInvalidDelay = errors.New("invalid delay: must be non-negative")

	// ErrUnknownEngine is returned when the browser engine is neither rod nor static.
	ErrUnknownEngine = errors.New("unknown engine: must be rod or static")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrNoResultsFile is returned when the results log path is empty.
	ErrNoResultsFile = errors.New("no results file specified")

	// ErrConfigNotFound is returned when the configuration file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")
)
