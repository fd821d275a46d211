package broadcast

import "github.com/okian/emberwatch/pkg/logger"

// Option applies a configuration option to the Hub.
type Option func(*Hub)

// WithBufferSize sets how many undelivered snapshots a subscriber may queue
// before it is dropped.
func WithBufferSize(size int) Option {
	return func(h *Hub) {
		if size > 0 {
			h.bufferSize = size
		}
	}
}

// WithLogger sets a custom logger for the hub.
func WithLogger(l logger.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}
