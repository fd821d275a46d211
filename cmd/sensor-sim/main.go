package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/okian/emberwatch/internal/simulate"
)

const defaultRunTimeout = 10 * time.Minute

func main() {
	var (
		baseURL     = flag.String("url", simulate.DefaultBaseURL, "Base URL of the service")
		mode        = flag.String("mode", simulate.ModeHTTP, "Submission path: http or kafka")
		brokers     = flag.String("brokers", "", "Comma separated Kafka brokers (kafka mode)")
		topic       = flag.String("topic", simulate.DefaultTopic, "Kafka topic")
		readings    = flag.Int("readings", simulate.DefaultReadings, "Number of readings to generate")
		hotspots    = flag.Int("hotspots", simulate.DefaultHotspots, "Number of clusters readings are scattered around")
		spread      = flag.Float64("spread", simulate.DefaultSpreadKm, "Max distance in km of a reading from its hotspot")
		workers     = flag.Int("workers", runtime.NumCPU(), "Number of concurrent HTTP submitters")
		timeout     = flag.Duration("timeout", simulate.DefaultTimeout, "HTTP request timeout")
		settle      = flag.Duration("settle", simulate.DefaultSettle, "Wait before verifying in kafka mode")
		maxZones    = flag.Int("max-zones", simulate.DefaultMaxZones, "Zone capacity the service is expected to honor")
		mergeRadius = flag.Float64("merge-radius", simulate.DefaultMergeRadiusKm, "Minimum km expected between zones")
		outputFile  = flag.String("output", "", "Save generated readings to this file")
		logFile     = flag.String("log", "", "Also write logs to this file")
		verbose     = flag.Bool("verbose", false, "Enable debug logging")
		help        = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		simulate.ShowHelp()
		return
	}

	closer, err := simulate.SetupLogging(*logFile, *verbose)
	if err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = closer.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultRunTimeout)
	defer cancel()

	config := &simulate.Config{
		BaseURL:       *baseURL,
		Mode:          *mode,
		Brokers:       splitList(*brokers),
		Topic:         *topic,
		Readings:      *readings,
		Hotspots:      *hotspots,
		SpreadKm:      *spread,
		Workers:       *workers,
		Timeout:       *timeout,
		Settle:        *settle,
		MaxZones:      *maxZones,
		MergeRadiusKm: *mergeRadius,
		OutputFile:    *outputFile,
		LogFile:       *logFile,
		Verbose:       *verbose,
	}

	if err := simulate.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Simulation failed: " + err.Error() + "\n")
		cancel()
		stop()
		os.Exit(1)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
