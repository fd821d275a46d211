package model

import "errors"

// Sentinel kinds for model errors.
var (
	ErrUnknownLevel = errors.New("unknown danger level")
)
