package config

import "errors"

var (
	// ErrInvalidInterval is returned for an interval outside 1..24 hours or
	// a non-numeric CHECK_INTERVAL_HOURS.
	ErrInvalidInterval = errors.New("invalid interval")

	// ErrInvalidSchedule is returned for a schedule cron cannot parse.
	ErrInvalidSchedule = errors.New("invalid schedule")

	// ErrInvalidURL is returned for a profile_url that is not http(s).
	ErrInvalidURL = errors.New("invalid profile url")

	// ErrInvalidTimeout is returned for a timeout below one second.
	ErrInvalidTimeout = errors.New("invalid timeout")

	// ErrInvalidPrefix is returned for a blank token_prefix.
	ErrInvalidPrefix = errors.New("invalid token prefix")

	// ErrInvalidPublish is returned for publish settings git would
	// misread as flags.
	ErrInvalidPublish = errors.New("invalid publish settings")

	// ErrUnsetVariable is returned when ${VAR} references an unset
	// variable without a default.
	ErrUnsetVariable = errors.New("environment variable not set")
)
