package settings

import "errors"

var (
	// ErrInvalidTimezone is returned alongside the UTC fallback when a
	// configured timezone name cannot be loaded.
	ErrInvalidTimezone = errors.New("settings: invalid timezone")
)
