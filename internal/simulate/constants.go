package simulate

import "time"

// Defaults applied by normalize.
const (
	DefaultBaseURL       = "http://localhost:9080"
	DefaultTopic         = "sensor-readings"
	DefaultReadings      = 1000
	DefaultHotspots      = 12
	DefaultSpreadKm      = 8.0
	DefaultTimeout       = 10 * time.Second
	DefaultSettle        = 3 * time.Second
	DefaultMaxZones      = 50
	DefaultMergeRadiusKm = 5.0

	// Source stamped on readings published to Kafka.
	SimulatorSource = "sensor-sim"

	publishBatchSize     = 100
	progressInterval     = time.Second
	percentageMultiplier = 100
)

// Region the hotspots are placed in (roughly California).
const (
	regionMinLat = 32.5
	regionMaxLat = 42.0
	regionMinLng = -124.0
	regionMaxLng = -114.5
)
