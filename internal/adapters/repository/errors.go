package repository

import "errors"

// Sentinel kinds for zone store errors.
var (
	ErrNotFound    = errors.New("zone not found")
	ErrInvalidZone = errors.New("invalid zone")
)
