// Package config defines service configuration structures and loading hooks.
package config

import (
	"runtime"

	"github.com/okian/emberwatch/internal/domain/history"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DatasetDir is prepended to relative dataset file names.
	DatasetDir string `koanf:"dataset_dir"`

	// DatasetFiles lists the historical fire files to load at startup.
	DatasetFiles []string `koanf:"dataset_files"`

	// SearchRadiusKm bounds the historical fire search around a reading.
	SearchRadiusKm float64 `koanf:"search_radius_km"`

	// MaxCandidates caps how many nearby fires contribute to a score.
	MaxCandidates int `koanf:"max_candidates"`

	// MergeRadiusKm is the distance under which readings update an existing zone.
	MergeRadiusKm float64 `koanf:"merge_radius_km"`

	// ZoneCapacity bounds the active zone list.
	ZoneCapacity int `koanf:"zone_capacity"`

	// SubscriberBuffer is the per-subscriber snapshot backlog before a drop.
	SubscriberBuffer int `koanf:"subscriber_buffer"`

	// StreamKeepaliveMS is the SSE comment interval.
	StreamKeepaliveMS int `koanf:"stream_keepalive_ms"`

	// EventQueueSize bounds the in-memory reading queue.
	EventQueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of ingest workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the size of the reading id cache.
	DedupeSize int `koanf:"dedupe_size"`

	// KafkaBrokers is a comma separated broker list. Empty disables the stream reader.
	KafkaBrokers string `koanf:"kafka_brokers"`
	KafkaTopic   string `koanf:"kafka_topic"`
	KafkaGroupID string `koanf:"kafka_group_id"`
}

// New creates a Config populated with defaults.
func New() *Config {
	files := make([]string, len(history.DefaultFiles))
	copy(files, history.DefaultFiles)

	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":9080",
		DatasetDir:        "data",
		DatasetFiles:      files,
		SearchRadiusKm:    50,
		MaxCandidates:     15,
		MergeRadiusKm:     5,
		ZoneCapacity:      50,
		SubscriberBuffer:  16,
		StreamKeepaliveMS: 15_000,
		EventQueueSize:    10_000,
		WorkerCount:       runtime.NumCPU(),
		DedupeSize:        50_000,
		KafkaTopic:        "sensor-readings",
		KafkaGroupID:      "emberwatch",
	}
}
