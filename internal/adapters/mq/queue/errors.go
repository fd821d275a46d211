package queue

import "errors"

// Sentinel errors callers use to tell backpressure apart from shutdown.
var (
	ErrFull   = errors.New("queue is full")
	ErrClosed = errors.New("queue is closed")
)
