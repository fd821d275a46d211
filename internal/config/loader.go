package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment variable names and prefix.
const (
	EnvPrefix     = "EMBER_"
	EnvConfigFile = "EMBER_CONFIG"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New)
//  2. file (YAML) if EMBER_CONFIG is set
//  3. env (prefix EMBER_), including values from a .env file when present
func Load(_ context.Context) (*Config, error) {
	// A missing .env is the normal case outside local development.
	_ = godotenv.Load()

	base := New()

	k := koanf.New(".")

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLoadConfig, path, err)
		}
	}

	// EMBER_QUEUE_SIZE -> queue_size (flat keys, underscores kept).
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %v", ErrLoadConfig, err)
	}
	k.Delete("config")

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the invariants the service depends on.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.SearchRadiusKm <= 0:
		return fmt.Errorf("%w: search_radius_km must be positive", ErrInvalidConfig)
	case c.MergeRadiusKm <= 0:
		return fmt.Errorf("%w: merge_radius_km must be positive", ErrInvalidConfig)
	case c.MaxCandidates < 1:
		return fmt.Errorf("%w: max_candidates must be at least 1", ErrInvalidConfig)
	case c.ZoneCapacity < 1:
		return fmt.Errorf("%w: zone_capacity must be at least 1", ErrInvalidConfig)
	case c.SubscriberBuffer < 1:
		return fmt.Errorf("%w: subscriber_buffer must be at least 1", ErrInvalidConfig)
	case c.StreamKeepaliveMS < 1:
		return fmt.Errorf("%w: stream_keepalive_ms must be positive", ErrInvalidConfig)
	case c.EventQueueSize < 1:
		return fmt.Errorf("%w: queue_size must be at least 1", ErrInvalidConfig)
	case c.WorkerCount < 1:
		return fmt.Errorf("%w: worker_count must be at least 1", ErrInvalidConfig)
	case c.DedupeSize < 1:
		return fmt.Errorf("%w: dedupe_size must be at least 1", ErrInvalidConfig)
	}
	return nil
}

// Brokers splits KafkaBrokers into a list, dropping empty entries.
func (c *Config) Brokers() []string {
	var out []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
