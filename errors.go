package tokenwatch

import "errors"

var (
	// ErrInvalidInterval is returned when the interval is outside 1..24 hours.
	ErrInvalidInterval = errors.New("invalid interval")

	// ErrInvalidURL is returned for a profile URL without an http(s) scheme.
	ErrInvalidURL = errors.New("invalid profile url")

	// ErrInvalidTimeout is returned for a non-positive probe timeout.
	ErrInvalidTimeout = errors.New("invalid timeout")

	// ErrMissingPath is returned when the template or output path is empty.
	ErrMissingPath = errors.New("missing path")

	// ErrInvalidSchedule is returned for a schedule cron cannot parse.
	ErrInvalidSchedule = errors.New("invalid schedule")
)
