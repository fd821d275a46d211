package simulate

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/okian/emberwatch/pkg/logger"
)

const directoryPermission = 0o750

// normalize fills unset fields with defaults and rejects impossible ones.
func (c *Config) normalize() error {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Mode == "" {
		c.Mode = ModeHTTP
	}
	if c.Readings <= 0 {
		c.Readings = DefaultReadings
	}
	if c.Hotspots <= 0 {
		c.Hotspots = DefaultHotspots
	}
	if c.SpreadKm <= 0 {
		c.SpreadKm = DefaultSpreadKm
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Settle <= 0 {
		c.Settle = DefaultSettle
	}
	if c.MaxZones <= 0 {
		c.MaxZones = DefaultMaxZones
	}
	if c.MergeRadiusKm <= 0 {
		c.MergeRadiusKm = DefaultMergeRadiusKm
	}
	if c.Topic == "" {
		c.Topic = DefaultTopic
	}

	switch c.Mode {
	case ModeHTTP:
	case ModeKafka:
		if len(c.Brokers) == 0 {
			return fmt.Errorf("mode %q needs at least one broker", c.Mode)
		}
	default:
		return fmt.Errorf("unknown mode %q", c.Mode)
	}
	return nil
}

// Run executes a complete simulation: health check, generation, submission
// and verification of the resulting zones.
func Run(ctx context.Context, cfg *Config) error {
	return run(ctx, cfg, newKafkaPublisher)
}

func run(ctx context.Context, cfg *Config, openPublisher func(*Config) (Publisher, error)) error {
	if err := cfg.normalize(); err != nil {
		return err
	}

	log := logger.Get().Named("simulate")
	stats := &Stats{StartTime: time.Now()}

	log.Info(ctx, "starting sensor simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.String("mode", cfg.Mode),
		logger.Int("readings", cfg.Readings),
		logger.Int("hotspots", cfg.Hotspots),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout))

	client := newHTTPClient(cfg.BaseURL, cfg.Timeout)

	health, err := checkServiceHealth(ctx, client)
	if err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}
	log.Info(ctx, "service is healthy",
		logger.Int("historicalRecords", health.HistoricalRecords),
		logger.Int("zones", health.Zones))

	samples, err := generateSamples(ctx, cfg, stats)
	if err != nil {
		return fmt.Errorf("reading generation failed: %w", err)
	}

	switch cfg.Mode {
	case ModeKafka:
		pub, err := openPublisher(cfg)
		if err != nil {
			return fmt.Errorf("failed to open publisher: %w", err)
		}
		err = publishSamples(ctx, pub, samples, stats)
		if cerr := pub.Close(); cerr != nil {
			log.Warn(ctx, "failed to close publisher", logger.Error(cerr))
		}
		if err != nil {
			return fmt.Errorf("publishing failed: %w", err)
		}

		log.Info(ctx, "waiting for the service to consume readings", logger.Duration("settle", cfg.Settle))
		select {
		case <-ctx.Done():
			return fmt.Errorf("interrupted while settling: %w", ctx.Err())
		case <-time.After(cfg.Settle):
		}
	default:
		if err := submitSamples(ctx, cfg, samples, stats); err != nil {
			return fmt.Errorf("submission failed: %w", err)
		}
	}

	if err := verifyResults(ctx, cfg, client, stats); err != nil {
		return fmt.Errorf("result verification failed: %w", err)
	}

	if cfg.OutputFile != "" {
		if err := saveSamples(cfg.OutputFile, samples); err != nil {
			log.Warn(ctx, "failed to save readings", logger.Error(err))
		} else {
			log.Info(ctx, "readings saved", logger.String("file", cfg.OutputFile))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	log.Info(ctx, "simulation completed successfully")
	return nil
}

// saveSamples writes samples as an indented JSON array.
func saveSamples(filename string, samples []Sample) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(samples, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal readings: %w", err)
	}
	return os.WriteFile(filename, append(data, '\n'), 0o600)
}

func displayFinalStats(ctx context.Context, stats *Stats) {
	var successRate, readingsPerSecond float64
	if stats.Submitted > 0 {
		ok := stats.Submitted - stats.Failed - stats.Rejected
		successRate = float64(ok) / float64(stats.Submitted) * percentageMultiplier
	}
	if stats.Duration > 0 {
		readingsPerSecond = float64(stats.Submitted) / stats.Duration.Seconds()
	}

	logger.Get().Named("simulate").Info(ctx, "final statistics",
		logger.Int("readingsGenerated", stats.ReadingsGenerated),
		logger.Int("submitted", stats.Submitted),
		logger.Int("created", stats.Created),
		logger.Int("merged", stats.Merged),
		logger.Int("rejected", stats.Rejected),
		logger.Int("failed", stats.Failed),
		logger.Int("zonesObserved", stats.ZonesObserved),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("readingsPerSecond", readingsPerSecond))
}
