package service

import (
	"github.com/jonboulle/clockwork"

	"github.com/okian/emberwatch/internal/domain/history"
	"github.com/okian/emberwatch/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of stream ingest workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of queued stream readings.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many stream event ids are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the clock used for zone timestamps and scoring.
func WithClock(c clockwork.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithDataset supplies an already loaded historical dataset. Start skips
// reading files when one is set.
func WithDataset(d *history.Dataset) Option {
	return func(s *Service) {
		s.dataset = d
	}
}

// WithDatasetFiles sets the historical files loaded by Start. Relative names
// are resolved against dir.
func WithDatasetFiles(dir string, files []string) Option {
	return func(s *Service) {
		s.datasetFiles = history.Resolve(dir, files)
	}
}

// WithSearchRadius sets the historical fire search radius in kilometres.
func WithSearchRadius(km float64) Option {
	return func(s *Service) {
		if km > 0 {
			s.searchRadiusKm = km
		}
	}
}

// WithMaxCandidates caps how many nearby fires feed one assessment.
func WithMaxCandidates(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxCandidates = n
		}
	}
}

// WithMergeRadius sets the distance under which readings merge into a zone.
func WithMergeRadius(km float64) Option {
	return func(s *Service) {
		if km > 0 {
			s.mergeRadiusKm = km
		}
	}
}

// WithZoneCapacity sets how many zones the store retains.
func WithZoneCapacity(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.zoneCapacity = n
		}
	}
}

// WithSubscriberBuffer sets the per-subscriber snapshot buffer.
func WithSubscriberBuffer(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.subscriberBuffer = n
		}
	}
}

// WithKafka enables the stream reader. An empty broker list leaves it off.
func WithKafka(brokers []string, topic, groupID string) Option {
	return func(s *Service) {
		s.kafkaBrokers = brokers
		if topic != "" {
			s.kafkaTopic = topic
		}
		if groupID != "" {
			s.kafkaGroupID = groupID
		}
	}
}
