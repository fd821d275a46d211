package simulate

import (
	"context"
	"crypto/rand"
	"fmt"
	"math"
	"math/big"

	"github.com/google/uuid"

	"github.com/okian/emberwatch/internal/domain/geo"
	"github.com/okian/emberwatch/internal/domain/model"
	"github.com/okian/emberwatch/pkg/logger"
)

const randomFloatDivisor = 1000000

// profile is the weather band a hotspot's sensors report in.
type profile struct {
	name                   string
	tempMin, tempRange     float64
	aqMin, aqRange         float64
	humidMin, humidRange   float64
	windMin, windRange     float64
	dryMin, dryRange       float64
	withoutAirQualityRatio float64
}

// Weighted toward calm conditions; blaze hotspots are rare.
var profiles = []profile{
	{name: "calm", tempMin: 8, tempRange: 17, aqMin: 0, aqRange: 50, humidMin: 50, humidRange: 40, windMin: 0, windRange: 10, dryMin: 0, dryRange: 30, withoutAirQualityRatio: 0.1},
	{name: "calm", tempMin: 8, tempRange: 17, aqMin: 0, aqRange: 50, humidMin: 50, humidRange: 40, windMin: 0, windRange: 10, dryMin: 0, dryRange: 30, withoutAirQualityRatio: 0.1},
	{name: "warm", tempMin: 25, tempRange: 10, aqMin: 40, aqRange: 110, humidMin: 25, humidRange: 30, windMin: 2, windRange: 15, dryMin: 20, dryRange: 40},
	{name: "warm", tempMin: 25, tempRange: 10, aqMin: 40, aqRange: 110, humidMin: 25, humidRange: 30, windMin: 2, windRange: 15, dryMin: 20, dryRange: 40},
	{name: "hot", tempMin: 35, tempRange: 10, aqMin: 100, aqRange: 150, humidMin: 10, humidRange: 20, windMin: 5, windRange: 20, dryMin: 50, dryRange: 35},
	{name: "blaze", tempMin: 45, tempRange: 10, aqMin: 200, aqRange: 200, humidMin: 3, humidRange: 12, windMin: 10, windRange: 25, dryMin: 80, dryRange: 20},
}

type hotspot struct {
	center  model.Location
	profile profile
}

// getRandomFloat returns a random float64 in [0, 1) using crypto/rand.
func getRandomFloat() float64 {
	n, err := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	if err != nil {
		return 0
	}
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

func getRandomInt(n int) int {
	if n <= 1 {
		return 0
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0
	}
	return int(v.Int64())
}

func between(lo, span float64) float64 {
	return lo + getRandomFloat()*span
}

// round keeps generated values to two decimals so saved files stay readable.
func round(v float64) float64 {
	return math.Round(v*100) / 100
}

func newHotspots(n int) []hotspot {
	spots := make([]hotspot, n)
	for i := range spots {
		spots[i] = hotspot{
			center: model.Location{
				Lat: between(regionMinLat, regionMaxLat-regionMinLat),
				Lng: between(regionMinLng, regionMaxLng-regionMinLng),
			},
			profile: profiles[getRandomInt(len(profiles))],
		}
	}
	return spots
}

// scatter returns a point at most spreadKm from center, uniform over the disc.
func scatter(center model.Location, spreadKm float64) model.Location {
	dist := spreadKm * math.Sqrt(getRandomFloat())
	bearing := 2 * math.Pi * getRandomFloat()

	dLat := geo.LatSpan(dist * math.Cos(bearing))
	dLng := geo.LatSpan(dist*math.Sin(bearing)) / math.Cos(center.Lat*math.Pi/180)
	return model.Location{Lat: center.Lat + dLat, Lng: center.Lng + dLng}
}

func generateReading(h hotspot, spreadKm float64) model.Reading {
	p := h.profile
	loc := scatter(h.center, spreadKm)
	hour := getRandomInt(24)

	r := model.Reading{
		Temperature:  round(between(p.tempMin, p.tempRange)),
		WindSpeed:    model.Float(round(between(p.windMin, p.windRange))),
		Humidity:     model.Float(round(between(p.humidMin, p.humidRange))),
		DrynessIndex: model.Float(round(between(p.dryMin, p.dryRange))),
		TimeOfDay:    &hour,
		Location:     &loc,
	}
	if getRandomFloat() >= p.withoutAirQualityRatio {
		r.AirQuality = model.Float(round(between(p.aqMin, p.aqRange)))
	}
	return r
}

// generateSamples creates cfg.Readings samples spread over cfg.Hotspots clusters.
func generateSamples(ctx context.Context, cfg *Config, stats *Stats) ([]Sample, error) {
	log := logger.Get().Named("simulate")
	log.Info(ctx, "generating sensor readings",
		logger.Int("readings", cfg.Readings),
		logger.Int("hotspots", cfg.Hotspots),
		logger.Float64("spreadKm", cfg.SpreadKm))

	spots := newHotspots(cfg.Hotspots)
	for _, h := range spots {
		log.Debug(ctx, "hotspot",
			logger.String("profile", h.profile.name),
			logger.Float64("lat", h.center.Lat),
			logger.Float64("lng", h.center.Lng))
	}
	samples := make([]Sample, cfg.Readings)
	for i := range samples {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("generation cancelled after %d readings: %w", i, err)
		}
		samples[i] = Sample{
			ID:      uuid.New().String(),
			Reading: generateReading(spots[i%len(spots)], cfg.SpreadKm),
		}
	}

	stats.ReadingsGenerated = len(samples)
	log.Debug(ctx, "generated sensor readings", logger.Int("count", len(samples)))
	return samples, nil
}
