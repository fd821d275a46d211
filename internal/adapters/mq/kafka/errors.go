package kafka

import "errors"

// Sentinel errors for the stream reader.
var (
	ErrNoBrokers      = errors.New("no kafka brokers configured")
	ErrInvalidMessage = errors.New("invalid reading message")
)
