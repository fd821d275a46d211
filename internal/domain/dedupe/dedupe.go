// Package dedupe tracks reading event ids so redelivered stream messages are
// ingested at most once.
package dedupe

import (
	"context"
	"sync"
)

const defaultMaxSize = 50_000

// Deduper records seen event IDs.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets an id so a reading rejected by backpressure can be
	// retried.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

type slot struct {
	id  string
	seq uint64
}

// inMemoryDeduper keeps at most maxSize ids and evicts the oldest first.
// A maxSize of zero or less disables eviction.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]uint64 // id -> sequence of its live ring slot
	ring    []slot
	head    int // next slot to overwrite once the ring is full
	nextSeq uint64
	maxSize int
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]uint64)
	if d.maxSize > 0 {
		d.ring = make([]slot, 0, d.maxSize)
	}
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(ctx context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return true
	}

	d.nextSeq++
	d.seen[id] = d.nextSeq
	if d.maxSize <= 0 {
		return false
	}

	s := slot{id: id, seq: d.nextSeq}
	if len(d.ring) < d.maxSize {
		d.ring = append(d.ring, s)
		return false
	}

	// Evict the oldest slot unless its id was unrecorded and recorded again.
	old := d.ring[d.head]
	if seq, ok := d.seen[old.id]; ok && seq == old.seq {
		delete(d.seen, old.id)
	}
	d.ring[d.head] = s
	d.head = (d.head + 1) % d.maxSize
	return false
}

func (d *inMemoryDeduper) Unrecord(ctx context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, id)
}

func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}
