// Package queue buffers sensor readings between stream consumers and the
// ingest workers.
package queue

import (
	"context"
	"sync"

	"github.com/okian/emberwatch/internal/domain/model"
	"github.com/okian/emberwatch/pkg/metrics"
)

const defaultCapacity = 10_000

// Queue is a bounded FIFO of reading events. Enqueue never blocks: a full
// queue is reported as ErrFull so stream consumers can apply backpressure.
type Queue interface {
	Enqueue(ctx context.Context, e model.ReadingEvent) error

	// Dequeue streams events until the queue is closed and drained or ctx
	// ends.
	Dequeue(ctx context.Context) <-chan model.ReadingEvent

	Len(ctx context.Context) int
	Close() error
}

// InMemoryQueue is a Queue over a buffered channel.
type InMemoryQueue struct {
	readings chan model.ReadingEvent
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a queue holding up to WithCapacity readings.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.readings = make(chan model.ReadingEvent, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	q.observe()
	return q
}

// Enqueue appends e. It returns ErrClosed after Close, the context error when
// ctx is already done and ErrFull when no slot is free.
func (q *InMemoryQueue) Enqueue(ctx context.Context, e model.ReadingEvent) error { //nolint:gocritic // hugeParam: sent by value over the channel
	q.mu.RLock()
	defer q.mu.RUnlock()

	var reason string
	err := ctx.Err()
	switch {
	case q.closed:
		err, reason = ErrClosed, "closed"
	case err != nil:
		reason = "context_cancelled"
	default:
		select {
		case q.readings <- e:
			metrics.RecordQueueEnqueue()
			q.observe()
			return nil
		default:
			err, reason = ErrFull, "queue_full"
		}
	}

	metrics.RecordQueueEnqueueError()
	metrics.RecordErrorByComponent("queue", reason)
	return err
}

// Dequeue forwards buffered readings to the returned channel, which is closed
// once the queue is closed and empty or ctx is done.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan model.ReadingEvent {
	out := make(chan model.ReadingEvent)
	go func() {
		defer close(out)
		for {
			var (
				e  model.ReadingEvent
				ok bool
			)
			select {
			case <-ctx.Done():
				return
			case e, ok = <-q.readings:
				if !ok {
					return
				}
			}

			select {
			case out <- e:
				metrics.RecordQueueDequeue()
				q.observe()
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len reports the number of buffered readings.
func (q *InMemoryQueue) Len(_ context.Context) int {
	q.observe()
	return len(q.readings)
}

// Capacity reports the configured bound.
func (q *InMemoryQueue) Capacity() int { return q.capacity }

// observe publishes the depth gauges.
func (q *InMemoryQueue) observe() {
	depth := len(q.readings)
	metrics.UpdateQueueSize(depth)
	metrics.UpdateQueueUtilization(float64(depth) / float64(q.capacity))
}

// Close stops accepting readings; buffered ones remain readable through
// Dequeue. Closing twice is a no-op.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.readings)
	}
	return nil
}

// Closed reports whether Close has been called.
func (q *InMemoryQueue) Closed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
