package history

import "errors"

// Sentinel kinds for dataset errors.
var (
	ErrCorruptFile = errors.New("corrupt historical file")
)
