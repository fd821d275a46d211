// Package scoring computes wildfire danger levels from sensor readings and
// nearby historical fires.
package scoring

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/jonboulle/clockwork"

	"github.com/okian/emberwatch/internal/domain/geo"
	"github.com/okian/emberwatch/internal/domain/history"
	"github.com/okian/emberwatch/internal/domain/model"
)

// Default scoring configuration constants.
const (
	DefaultRadiusKm      = 50.0
	DefaultMaxCandidates = 15
)

// FireSource finds historical fires near a point, nearest first.
type FireSource interface {
	Within(center model.Location, radiusKm float64) []history.Candidate
}

// Breakdown carries every component of a composite score.
type Breakdown struct {
	Candidates         int     `json:"candidates"`
	HistoricalScore    float64 `json:"historicalScore"`
	FrequencyScore     float64 `json:"frequencyScore"`
	ConsecutivePenalty float64 `json:"consecutivePenalty"`
	OverlapPenalty     float64 `json:"overlapPenalty"`
	RealTimeScore      float64 `json:"realTimeScore"`
	Total              float64 `json:"total"`
}

// Assessment is the outcome of scoring a reading.
type Assessment struct {
	Level       model.Level
	Explanation string
	// Historical is true when the location-aware path produced the result.
	Historical bool
	Breakdown  *Breakdown
}

// Option applies a configuration option to the RiskScorer.
type Option func(*RiskScorer)

// WithRadius sets the historical search radius in kilometres.
func WithRadius(km float64) Option {
	return func(s *RiskScorer) {
		if km > 0 {
			s.radiusKm = km
		}
	}
}

// WithMaxCandidates caps how many of the nearest fires are scored.
func WithMaxCandidates(n int) Option {
	return func(s *RiskScorer) {
		if n > 0 {
			s.maxCandidates = n
		}
	}
}

// WithClock sets the clock used for fire age and season.
func WithClock(c clockwork.Clock) Option {
	return func(s *RiskScorer) {
		if c != nil {
			s.clock = c
		}
	}
}

// RiskScorer combines nearby historical fires with live conditions.
// It holds no mutable state and is safe for concurrent use.
type RiskScorer struct {
	fires         FireSource
	radiusKm      float64
	maxCandidates int
	clock         clockwork.Clock
}

// NewRiskScorer creates a scorer over the given fire source. A nil source
// behaves as an empty dataset.
func NewRiskScorer(fires FireSource, opts ...Option) *RiskScorer {
	s := &RiskScorer{
		fires:         fires,
		radiusKm:      DefaultRadiusKm,
		maxCandidates: DefaultMaxCandidates,
		clock:         clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RadiusKm returns the configured search radius.
func (s *RiskScorer) RadiusKm() float64 { return s.radiusKm }

// Assess scores a reading. Readings without a location use the threshold
// fallback; all others use the historical path.
func (s *RiskScorer) Assess(ctx context.Context, r model.Reading) (Assessment, error) {
	if err := ctx.Err(); err != nil {
		return Assessment{}, err
	}
	if err := ValidateReading(r); err != nil {
		return Assessment{}, err
	}
	if !r.HasLocation() {
		return Fallback(r), nil
	}
	return s.historical(r), nil
}

func (s *RiskScorer) historical(r model.Reading) Assessment {
	var candidates []history.Candidate
	if s.fires != nil {
		candidates = s.fires.Within(*r.Location, s.radiusKm)
	}
	if len(candidates) > s.maxCandidates {
		candidates = candidates[:s.maxCandidates]
	}

	realTime := RealTimeScore(r)
	radius := strconv.FormatFloat(s.radiusKm, 'f', -1, 64)

	if len(candidates) == 0 {
		return Assessment{
			Level: model.LevelLow,
			Explanation: fmt.Sprintf("No historical fires found within %s km. Using real-time only. RealTime: %.2f",
				radius, realTime),
			Historical: true,
			Breakdown:  &Breakdown{RealTimeScore: realTime, Total: realTime},
		}
	}

	now := s.clock.Now().UTC()
	years := make([]int, 0, len(candidates))
	historicalScore := 0.0
	for _, c := range candidates {
		when := c.Record.When()
		years = append(years, when.Year())
		historicalScore += SeverityValue(c.Record.Severity) *
			AreaFactor(c.Record.AreaBurned) *
			RecencyFactor(AgeYears(when, now)) *
			SeasonalityFactor(when.Month(), now.Month()) *
			CauseFactor(c.Record.Cause) *
			DistanceFactor(c.DistanceKm, s.radiusKm)
	}

	b := &Breakdown{
		Candidates:         len(candidates),
		HistoricalScore:    historicalScore,
		FrequencyScore:     FrequencyScore(len(candidates)),
		ConsecutivePenalty: ConsecutiveYearPenalty(years),
		OverlapPenalty:     OverlapPenalty(years),
		RealTimeScore:      realTime,
	}
	b.Total = b.HistoricalScore + b.FrequencyScore + b.ConsecutivePenalty + b.OverlapPenalty + b.RealTimeScore

	return Assessment{
		Level: LevelForTotal(b.Total),
		Explanation: fmt.Sprintf("Found %d fires within %s km. Historical Score: %.2f, Frequency: %.2f, "+
			"ConsecutivePenalty: %.2f, OverlapPenalty: %.2f, RealTime: %.2f, Total => %.2f",
			b.Candidates, radius, b.HistoricalScore, b.FrequencyScore,
			b.ConsecutivePenalty, b.OverlapPenalty, b.RealTimeScore, b.Total),
		Historical: true,
		Breakdown:  b,
	}
}

// Accepted ranges for bounded reading fields.
const (
	MaxDrynessIndex = 100
	MaxHour         = 23
)

// ValidateReading rejects non-finite values, out-of-range dryness or hour
// values and out-of-range coordinates.
func ValidateReading(r model.Reading) error {
	if !finite(r.Temperature) {
		return fmt.Errorf("%w: temperature is not a finite number", ErrInvalidReading)
	}
	optional := []struct {
		name string
		v    *float64
	}{
		{"airQuality", r.AirQuality},
		{"windSpeed", r.WindSpeed},
		{"humidity", r.Humidity},
		{"drynessIndex", r.DrynessIndex},
	}
	for _, o := range optional {
		if o.v != nil && !finite(*o.v) {
			return fmt.Errorf("%w: %s is not a finite number", ErrInvalidReading, o.name)
		}
	}
	if r.DrynessIndex != nil && (*r.DrynessIndex < 0 || *r.DrynessIndex > MaxDrynessIndex) {
		return fmt.Errorf("%w: drynessIndex must be between 0 and %d", ErrInvalidReading, MaxDrynessIndex)
	}
	if r.TimeOfDay != nil && (*r.TimeOfDay < 0 || *r.TimeOfDay > MaxHour) {
		return fmt.Errorf("%w: timeOfDay must be an hour between 0 and %d", ErrInvalidReading, MaxHour)
	}
	if r.Location != nil {
		if err := geo.Validate(*r.Location); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidReading, err)
		}
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
