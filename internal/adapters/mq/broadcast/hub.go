// Package broadcast fans danger zone snapshots out to live subscribers.
//
// Every payload is the complete zone list. Snapshot capture and delivery
// happen under one lock, so each subscriber receives snapshots in the order
// the store was mutated. Delivery never blocks: a subscriber whose buffer is
// full is dropped and its channel closed.
package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/okian/emberwatch/internal/domain/model"
	"github.com/okian/emberwatch/pkg/logger"
	"github.com/okian/emberwatch/pkg/metrics"
)

const defaultBufferSize = 16

// SnapshotFunc returns the current zones, newest first.
type SnapshotFunc func(ctx context.Context) []model.DangerZone

// Subscription is one registered consumer.
type Subscription struct {
	id      string
	ch      chan []byte
	removed chan struct{}
}

// ID returns the subscription handle.
func (s *Subscription) ID() string { return s.id }

// Updates yields encoded snapshots. The channel is closed when the
// subscription is removed for any reason.
func (s *Subscription) Updates() <-chan []byte { return s.ch }

// Hub tracks subscribers and delivers snapshots to them.
type Hub struct {
	mu         sync.Mutex
	subs       map[string]*Subscription
	snapshot   SnapshotFunc
	bufferSize int
	closed     bool
	logger     logger.Logger
}

// New creates a hub reading state through snapshot.
func New(snapshot SnapshotFunc, opts ...Option) *Hub {
	h := &Hub{
		subs:       make(map[string]*Subscription),
		snapshot:   snapshot,
		bufferSize: defaultBufferSize,
		logger:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Subscribe registers a consumer and queues the current snapshot as its
// first payload. The subscription is removed when ctx is done.
func (h *Hub) Subscribe(ctx context.Context) (*Subscription, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrClosed
	}
	payload, err := h.encodeLocked(ctx)
	if err != nil {
		return nil, err
	}

	sub := &Subscription{
		id:      uuid.NewString(),
		ch:      make(chan []byte, h.bufferSize),
		removed: make(chan struct{}),
	}
	sub.ch <- payload
	h.subs[sub.id] = sub
	metrics.UpdateSubscriberCount(len(h.subs))

	go func() {
		select {
		case <-ctx.Done():
			h.Unsubscribe(sub.id)
		case <-sub.removed:
		}
	}()

	h.logger.Debug(ctx, "subscriber added",
		logger.String("subscription", sub.id),
		logger.Int("subscribers", len(h.subs)),
	)
	return sub, nil
}

// Unsubscribe removes a subscription. Unknown or already removed ids are a
// no-op; the return value reports whether anything was removed.
func (h *Hub) Unsubscribe(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.removeLocked(id)
}

func (h *Hub) removeLocked(id string) bool {
	sub, ok := h.subs[id]
	if !ok {
		return false
	}
	delete(h.subs, id)
	close(sub.ch)
	close(sub.removed)
	metrics.UpdateSubscriberCount(len(h.subs))
	return true
}

// Notify encodes the current snapshot once and offers it to every
// subscriber.
func (h *Hub) Notify(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed || len(h.subs) == 0 {
		return nil
	}
	payload, err := h.encodeLocked(ctx)
	if err != nil {
		return err
	}

	for id, sub := range h.subs {
		select {
		case sub.ch <- payload:
		default:
			h.removeLocked(id)
			metrics.RecordSubscriberDropped()
			h.logger.Warn(ctx, "dropping slow subscriber", logger.String("subscription", id))
		}
	}
	metrics.RecordBroadcast()
	return nil
}

// Count returns the number of live subscribers.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close removes every subscriber and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id := range h.subs {
		h.removeLocked(id)
	}
}

// Must be called with h.mu held.
func (h *Hub) encodeLocked(ctx context.Context) ([]byte, error) {
	zones := h.snapshot(ctx)
	if zones == nil {
		zones = []model.DangerZone{}
	}
	b, err := json.Marshal(model.Snapshot{DangerZones: zones})
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return b, nil
}
