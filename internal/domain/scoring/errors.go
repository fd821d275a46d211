package scoring

import "errors"

// Sentinel kinds for scoring errors.
var (
	ErrInvalidReading = errors.New("invalid reading")
)
