package simulate

import (
	"time"

	"github.com/okian/emberwatch/internal/domain/model"
)

// Submission modes.
const (
	ModeHTTP  = "http"
	ModeKafka = "kafka"
)

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL  string        // Base URL of the service
	Mode     string        // ModeHTTP or ModeKafka
	Brokers  []string      // Kafka brokers for ModeKafka
	Topic    string        // Kafka topic for ModeKafka
	Readings int           // Number of readings to generate
	Hotspots int           // Number of clusters readings are scattered around
	SpreadKm float64       // Max distance of a reading from its hotspot
	Workers  int           // Number of concurrent submitters
	Timeout  time.Duration // HTTP request timeout
	Settle   time.Duration // Wait before verifying in ModeKafka

	MaxZones      int     // Store capacity the service is expected to honor
	MergeRadiusKm float64 // Minimum distance expected between any two zones

	OutputFile string // Generated readings are saved here when set
	LogFile    string // Log file for run output
	Verbose    bool   // Enable debug logging
}

// Sample is one generated reading and the id it is submitted under.
type Sample struct {
	ID      string        `json:"id"`
	Reading model.Reading `json:"reading"`
}

// Stats holds run statistics.
type Stats struct {
	ReadingsGenerated int
	Submitted         int
	Created           int
	Merged            int
	Rejected          int
	Failed            int
	ZonesObserved     int
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}
