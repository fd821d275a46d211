// Package model contains domain models passed between layers.
package model

import "time"

// Location is a WGS84 coordinate in decimal degrees.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Reading is a single environmental sensor sample. Optional measurements are
// nil when the sensor did not report them. A nil Location selects the
// threshold-only assessment path.
type Reading struct {
	Temperature  float64   `json:"temperature"`
	AirQuality   *float64  `json:"airQuality,omitempty"`
	WindSpeed    *float64  `json:"windSpeed,omitempty"`
	Humidity     *float64  `json:"humidity,omitempty"`
	DrynessIndex *float64  `json:"drynessIndex,omitempty"`
	TimeOfDay    *int      `json:"timeOfDay,omitempty"`
	Location     *Location `json:"location,omitempty"`
}

// HasLocation reports whether the reading carries coordinates.
func (r Reading) HasLocation() bool {
	return r.Location != nil
}

// ReadingEvent wraps a reading received from an asynchronous source.
type ReadingEvent struct {
	EventID    string    // unique id for idempotency
	Source     string    // e.g. "kafka", "http"
	Reading    Reading   // the sample itself
	ReceivedAt time.Time // when the source handed it over
}

// Float returns a pointer to v. Handy for building optional readings.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }
