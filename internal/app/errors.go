package service

import "errors"

// Sentinel errors returned by the service.
var (
	ErrNotStarted = errors.New("service not started")
	ErrDuplicate  = errors.New("duplicate reading event")
)
