package repository

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/emberwatch/internal/domain/geo"
	"github.com/okian/emberwatch/internal/domain/model"
	"github.com/okian/emberwatch/pkg/metrics"
)

// Default zone store configuration constants.
const (
	DefaultCapacity      = 50
	DefaultMergeRadiusKm = 5.0
)

// ZoneStore keeps up to capacity zones ordered newest first. No two zones
// are ever closer than the merge radius because a closer candidate is
// merged instead of inserted.
type ZoneStore struct {
	mu            sync.RWMutex
	zones         []model.DangerZone
	capacity      int
	mergeRadiusKm float64
}

// NewZoneStore creates an empty store.
func NewZoneStore(opts ...Option) *ZoneStore {
	s := &ZoneStore{
		capacity:      DefaultCapacity,
		mergeRadiusKm: DefaultMergeRadiusKm,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.zones = make([]model.DangerZone, 0, s.capacity+1)
	metrics.UpdateZoneCount(0)
	return s
}

// Upsert implements Store.Upsert.
func (s *ZoneStore) Upsert(ctx context.Context, candidate model.DangerZone) (model.DangerZone, bool, error) {
	if err := geo.Validate(candidate.Location); err != nil {
		metrics.RecordErrorByComponent("repository", "invalid_zone")
		return model.DangerZone{}, false, fmt.Errorf("%w: %v", ErrInvalidZone, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if idx, dist := s.nearestLocked(candidate.Location); idx >= 0 && dist < s.mergeRadiusKm {
		s.zones[idx].MergeFrom(candidate)
		metrics.RecordZoneMerged()
		return s.zones[idx], true, nil
	}

	if candidate.ID == "" {
		candidate.ID = uuid.NewString()
	}
	if candidate.Timestamp.IsZero() {
		candidate.Timestamp = time.Now().UTC()
	}

	s.zones = append(s.zones, model.DangerZone{})
	copy(s.zones[1:], s.zones)
	s.zones[0] = candidate

	evicted := 0
	if len(s.zones) > s.capacity {
		evicted = len(s.zones) - s.capacity
		for i := s.capacity; i < len(s.zones); i++ {
			s.zones[i] = model.DangerZone{}
		}
		s.zones = s.zones[:s.capacity]
	}

	metrics.RecordZoneCreated()
	metrics.RecordZonesEvicted(evicted)
	metrics.UpdateZoneCount(len(s.zones))
	return candidate, false, nil
}

// nearestLocked returns the index of the zone closest to loc, or -1.
// Must be called with s.mu held.
func (s *ZoneStore) nearestLocked(loc model.Location) (int, float64) {
	best, bestDist := -1, math.Inf(1)
	for i := range s.zones {
		if d := geo.DistanceKm(s.zones[i].Location, loc); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, bestDist
}

// Snapshot implements Store.Snapshot.
func (s *ZoneStore) Snapshot(ctx context.Context) []model.DangerZone {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.DangerZone, len(s.zones))
	copy(out, s.zones)
	return out
}

// Count implements Store.Count.
func (s *ZoneStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.zones)
}

// Nearest implements Store.Nearest.
func (s *ZoneStore) Nearest(ctx context.Context, loc model.Location) (model.DangerZone, float64, error) {
	if err := geo.Validate(loc); err != nil {
		return model.DangerZone{}, 0, fmt.Errorf("%w: %v", ErrInvalidZone, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, dist := s.nearestLocked(loc)
	if idx < 0 {
		return model.DangerZone{}, 0, ErrNotFound
	}
	return s.zones[idx], dist, nil
}

// Filter implements Store.Filter.
func (s *ZoneStore) Filter(ctx context.Context, level model.Level) []model.DangerZone {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.DangerZone, 0)
	for _, z := range s.zones {
		if z.DangerLevel == level {
			out = append(out, z)
		}
	}
	return out
}
