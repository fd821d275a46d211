package kafka

import (
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/okian/emberwatch/pkg/logger"
)

// Option configures a Reader.
type Option func(*Reader)

// WithLogger sets the reader logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Reader) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithClock overrides the clock used for receive times and backoff pauses.
func WithClock(c clockwork.Clock) Option {
	return func(r *Reader) {
		if c != nil {
			r.clock = c
		}
	}
}

// WithBackoff sets how long the reader waits before retrying a message the
// queue had no room for.
func WithBackoff(d time.Duration) Option {
	return func(r *Reader) {
		if d > 0 {
			r.backoff = d
		}
	}
}
