package model

import "time"

// DangerZone is the current assessment anchored at one location. The
// location and ID never change once the zone is created; every other field
// is replaced when a nearby reading is merged into it.
type DangerZone struct {
	ID                string    `json:"id"`
	Temperature       float64   `json:"temperature"`
	AirQuality        *float64  `json:"airQuality"`
	WindSpeed         *float64  `json:"windSpeed"`
	Humidity          *float64  `json:"humidity"`
	Location          Location  `json:"location"`
	DangerLevel       Level     `json:"dangerLevel"`
	DangerDescription string    `json:"dangerDescription"`
	Timestamp         time.Time `json:"timestamp"`
}

// MergeFrom copies the mutable fields of src into z.
func (z *DangerZone) MergeFrom(src DangerZone) {
	z.Temperature = src.Temperature
	z.AirQuality = src.AirQuality
	z.WindSpeed = src.WindSpeed
	z.Humidity = src.Humidity
	z.DangerLevel = src.DangerLevel
	z.DangerDescription = src.DangerDescription
	z.Timestamp = src.Timestamp
}

// Snapshot is the payload broadcast to subscribers and returned by plain
// zone queries.
type Snapshot struct {
	DangerZones []DangerZone `json:"dangerZones"`
}
