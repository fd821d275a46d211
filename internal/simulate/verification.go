package simulate

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/emberwatch/internal/domain/geo"
	"github.com/okian/emberwatch/internal/domain/model"
	"github.com/okian/emberwatch/internal/domain/types"
	"github.com/okian/emberwatch/pkg/logger"
)

// ErrVerification is returned when the observed zones break a store invariant.
var ErrVerification = errors.New("zone verification failed")

// checkServiceHealth verifies the service is up and has finished starting.
func checkServiceHealth(ctx context.Context, client *httpClient) (types.HealthResponse, error) {
	var health types.HealthResponse
	status, err := client.getJSON(ctx, "/healthz", &health)
	if err != nil {
		return health, fmt.Errorf("failed to connect to service: %w", err)
	}
	if status != http.StatusOK {
		return health, fmt.Errorf("service health check failed with status: %d", status)
	}
	return health, nil
}

// fetchZones returns the current zone snapshot.
func fetchZones(ctx context.Context, client *httpClient) ([]model.DangerZone, error) {
	var snap model.Snapshot
	status, err := client.getJSON(ctx, "/zones", &snap)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("zones request failed with status: %d", status)
	}
	return snap.DangerZones, nil
}

// verifyZones checks capacity, id uniqueness and zone separation. It reports
// every violation found, not just the first.
func verifyZones(zones []model.DangerZone, maxZones int, mergeRadiusKm float64) error {
	var errs []error

	if len(zones) > maxZones {
		errs = append(errs, fmt.Errorf("%d zones exceed capacity %d", len(zones), maxZones))
	}

	seen := make(map[string]struct{}, len(zones))
	for i, z := range zones {
		if z.ID == "" {
			errs = append(errs, fmt.Errorf("zone %d has no id", i))
		} else if _, dup := seen[z.ID]; dup {
			errs = append(errs, fmt.Errorf("zone id %s appears twice", z.ID))
		}
		seen[z.ID] = struct{}{}

		if err := geo.Validate(z.Location); err != nil {
			errs = append(errs, fmt.Errorf("zone %s: %w", z.ID, err))
		}
		if z.DangerDescription == "" {
			errs = append(errs, fmt.Errorf("zone %s has no description", z.ID))
		}
	}

	for i := range zones {
		for j := i + 1; j < len(zones); j++ {
			if d := geo.DistanceKm(zones[i].Location, zones[j].Location); d < mergeRadiusKm {
				errs = append(errs, fmt.Errorf("zones %s and %s are %.2f km apart", zones[i].ID, zones[j].ID, d))
			}
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrVerification, errors.Join(errs...))
}

// levelCounts tallies zones per danger level for the final report.
func levelCounts(zones []model.DangerZone) map[string]int {
	counts := make(map[string]int)
	for _, z := range zones {
		counts[z.DangerLevel.String()]++
	}
	return counts
}

func verifyResults(ctx context.Context, cfg *Config, client *httpClient, stats *Stats) error {
	log := logger.Get().Named("simulate")

	zones, err := fetchZones(ctx, client)
	if err != nil {
		return fmt.Errorf("failed to fetch zones: %w", err)
	}
	stats.ZonesObserved = len(zones)

	if err := verifyZones(zones, cfg.MaxZones, cfg.MergeRadiusKm); err != nil {
		return err
	}

	log.Info(ctx, "zones verified",
		logger.Int("zones", len(zones)),
		logger.Any("levels", levelCounts(zones)))
	return nil
}
