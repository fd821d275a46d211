// Package types contains common types used across the application
package types

import "github.com/okian/emberwatch/internal/domain/model"

// IngestResponse is returned after a reading has been merged into the store.
type IngestResponse struct {
	Success bool             `json:"success"`
	Updated bool             `json:"updated"`
	Data    model.DangerZone `json:"data"`
}

// NearestResponse reports the closest zone to a requested point.
type NearestResponse struct {
	Zone       model.DangerZone `json:"zone"`
	DistanceKm float64          `json:"distanceKm"`
}

// AssessmentResponse is the dry-run result of scoring a reading.
type AssessmentResponse struct {
	Level       model.Level `json:"level"`
	Description string      `json:"description"`
	Historical  bool        `json:"historical"`
	Breakdown   any         `json:"breakdown,omitempty"`
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status            string `json:"status"`
	HistoricalRecords int    `json:"historicalRecords"`
	Zones             int    `json:"zones"`
	Subscribers       int    `json:"subscribers"`
}
