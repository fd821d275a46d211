// Package repository holds the in-memory danger zone store.
package repository

import (
	"context"

	"github.com/okian/emberwatch/internal/domain/model"
)

// Store provides read/write access to the active danger zones.
type Store interface {
	// Upsert merges candidate into the nearest zone within the merge radius,
	// or prepends it as a new zone. The boolean reports a merge.
	Upsert(ctx context.Context, candidate model.DangerZone) (model.DangerZone, bool, error)

	// Snapshot returns a copy of all zones, newest first.
	Snapshot(ctx context.Context) []model.DangerZone

	// Count returns the number of zones.
	Count(ctx context.Context) int

	// Nearest returns the zone closest to loc and its distance in km.
	// Returns ErrNotFound when the store is empty.
	Nearest(ctx context.Context, loc model.Location) (model.DangerZone, float64, error)

	// Filter returns the zones at the given level, newest first.
	Filter(ctx context.Context, level model.Level) []model.DangerZone
}
