package simulate

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/emberwatch/internal/adapters/mq/kafka"
	"github.com/okian/emberwatch/internal/domain/model"
	"github.com/okian/emberwatch/pkg/logger"
)

// Publisher sends reading events to the stream ingest path.
type Publisher interface {
	Publish(ctx context.Context, events ...model.ReadingEvent) error
	Close() error
}

// newKafkaPublisher opens a writer on cfg.Topic.
func newKafkaPublisher(cfg *Config) (Publisher, error) {
	return kafka.NewWriter(cfg.Brokers, cfg.Topic, SimulatorSource)
}

// publishSamples writes samples in batches. Outcomes are unknown until the
// service has consumed them, so every published sample counts as submitted.
func publishSamples(ctx context.Context, pub Publisher, samples []Sample, stats *Stats) error {
	log := logger.Get().Named("simulate")
	log.Info(ctx, "publishing readings to kafka", logger.Int("readings", len(samples)))

	now := time.Now().UTC()
	for start := 0; start < len(samples); start += publishBatchSize {
		end := min(start+publishBatchSize, len(samples))
		batch := make([]model.ReadingEvent, 0, end-start)
		for _, s := range samples[start:end] {
			batch = append(batch, model.ReadingEvent{
				EventID:    s.ID,
				Source:     SimulatorSource,
				Reading:    s.Reading,
				ReceivedAt: now,
			})
		}
		if err := pub.Publish(ctx, batch...); err != nil {
			stats.Failed += len(batch)
			return fmt.Errorf("publish batch at %d: %w", start, err)
		}
		stats.Submitted += len(batch)
		log.Debug(ctx, "published batch", logger.Int("from", start), logger.Int("to", end))
	}

	log.Info(ctx, "publishing completed", logger.Int("published", stats.Submitted))
	return nil
}
