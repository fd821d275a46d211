package simulate

import (
	"fmt"
	"io"
	"os"

	"github.com/okian/emberwatch/pkg/logger"
)

const logFilePermission = 0o600

// SetupLogging configures the global logger. With a logFile, output goes to
// both stdout and the file; the returned closer releases the file.
func SetupLogging(logFile string, verbose bool) (io.Closer, error) {
	level := "info"
	if verbose {
		level = "debug"
	}

	if logFile == "" {
		if err := logger.Configure(level, logger.FormatText); err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
		return io.NopCloser(nil), nil
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}
	if err := logger.ConfigureWriter(io.MultiWriter(os.Stdout, file), level, logger.FormatText); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return file, nil
}

// ShowHelp prints usage information for the sensor simulator.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`Emberwatch Sensor Simulator
===========================

Generates clustered sensor readings, feeds them to a running emberwatch
service and verifies the resulting danger zones.

Usage:
  go run ./cmd/sensor-sim [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -mode string
        Submission path: http or kafka (default "http")
  -brokers string
        Comma separated Kafka brokers (kafka mode)
  -topic string
        Kafka topic (default "sensor-readings")
  -readings int
        Number of readings to generate (default 1000)
  -hotspots int
        Number of clusters readings are scattered around (default 12)
  -spread float
        Max distance in km of a reading from its hotspot (default 8)
  -workers int
        Number of concurrent HTTP submitters (default CPU cores)
  -timeout duration
        HTTP request timeout (default 10s)
  -settle duration
        Wait before verifying in kafka mode (default 3s)
  -max-zones int
        Zone capacity the service is expected to honor (default 50)
  -merge-radius float
        Minimum km expected between zones (default 5)
  -output string
        Save generated readings to this file
  -log string
        Also write logs to this file
  -verbose
        Enable debug logging
  -help
        Show this help message

Examples:
  # Feed 1000 readings over HTTP
  go run ./cmd/sensor-sim

  # Publish to Kafka and verify after the consumer catches up
  go run ./cmd/sensor-sim -mode kafka -brokers localhost:9092 -readings 5000
`)
}
