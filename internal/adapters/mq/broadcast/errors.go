package broadcast

import "errors"

// Sentinel kinds for hub errors.
var (
	ErrClosed = errors.New("broadcast hub closed")
)
