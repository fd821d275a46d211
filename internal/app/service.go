// Package service wires the risk scorer, zone store and broadcast hub into the
// single ingest pipeline used by the HTTP API and the stream workers.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/okian/emberwatch/internal/adapters/mq/broadcast"
	"github.com/okian/emberwatch/internal/adapters/mq/kafka"
	eventqueue "github.com/okian/emberwatch/internal/adapters/mq/queue"
	workerpool "github.com/okian/emberwatch/internal/adapters/mq/worker"
	repository "github.com/okian/emberwatch/internal/adapters/repository"
	"github.com/okian/emberwatch/internal/domain/dedupe"
	"github.com/okian/emberwatch/internal/domain/history"
	"github.com/okian/emberwatch/internal/domain/model"
	"github.com/okian/emberwatch/internal/domain/scoring"
	"github.com/okian/emberwatch/internal/domain/types"
	"github.com/okian/emberwatch/pkg/logger"
	"github.com/okian/emberwatch/pkg/metrics"
)

const stopTimeout = 10 * time.Second

const (
	pathHistorical = "historical"
	pathFallback   = "fallback"
)

// ingestAdapter adapts Service.Ingest to worker.Ingester.
type ingestAdapter struct {
	svc *Service
}

func (a ingestAdapter) Ingest(ctx context.Context, r model.Reading) (model.DangerZone, error) {
	zone, _, err := a.svc.Ingest(ctx, r)
	return zone, err
}

// Service implements the API dependencies for the danger zone map.
type Service struct {
	// guards lifecycle state; never held while ingesting
	mu sync.RWMutex
	// serializes assess, upsert and notify
	ingestMu sync.Mutex

	zones   *repository.ZoneStore
	hub     *broadcast.Hub
	deduper dedupe.Deduper
	loader  *history.Loader
	dataset *history.Dataset
	scorer  *scoring.RiskScorer

	eventQueue *eventqueue.InMemoryQueue
	workerPool *workerpool.Pool
	reader     *kafka.Reader
	cancel     context.CancelFunc

	// Configuration
	datasetFiles     []string
	searchRadiusKm   float64
	maxCandidates    int
	mergeRadiusKm    float64
	zoneCapacity     int
	subscriberBuffer int
	workerCount      int
	queueSize        int
	dedupeSize       int
	kafkaBrokers     []string
	kafkaTopic       string
	kafkaGroupID     string

	clock   clockwork.Clock
	started bool
	logger  logger.Logger
}

// New constructs a Service. The zone store and hub are usable immediately;
// assessments need Start.
func New(opts ...Option) *Service {
	s := &Service{
		datasetFiles:     history.Resolve("data", history.DefaultFiles),
		searchRadiusKm:   scoring.DefaultRadiusKm,
		maxCandidates:    scoring.DefaultMaxCandidates,
		mergeRadiusKm:    repository.DefaultMergeRadiusKm,
		zoneCapacity:     repository.DefaultCapacity,
		subscriberBuffer: 16,
		workerCount:      runtime.NumCPU(),
		queueSize:        10_000,
		dedupeSize:       50_000,
		kafkaTopic:       "sensor-readings",
		kafkaGroupID:     "emberwatch",
		clock:            clockwork.NewRealClock(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.zones = repository.NewZoneStore(
		repository.WithCapacity(s.zoneCapacity),
		repository.WithMergeRadius(s.mergeRadiusKm),
	)
	s.hub = broadcast.New(s.zones.Snapshot,
		broadcast.WithBufferSize(s.subscriberBuffer),
		broadcast.WithLogger(s.logger.Named("hub")),
	)
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.loader = history.NewLoader(s.datasetFiles, s.logger.Named("history"))

	return s
}

// Start loads the historical dataset (once per Service) and starts the
// stream ingest path.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting danger zone service...")

	if s.dataset == nil {
		s.dataset, _ = s.loader.Load(ctx)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	s.scorer = scoring.NewRiskScorer(s.dataset,
		scoring.WithRadius(s.searchRadiusKm),
		scoring.WithMaxCandidates(s.maxCandidates),
		scoring.WithClock(s.clock),
	)

	// Workers outlive the startup context; Stop ends them.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel

	s.eventQueue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.workerPool = workerpool.NewPool(s.workerCount, s.eventQueue, ingestAdapter{svc: s},
		workerpool.WithLogger(s.logger.Named("worker")),
	)
	s.workerPool.Start(runCtx)

	if len(s.kafkaBrokers) > 0 {
		reader, err := kafka.NewReader(s.kafkaBrokers, s.kafkaTopic, s.kafkaGroupID, s,
			kafka.WithLogger(s.logger.Named("kafka")),
			kafka.WithClock(s.clock),
		)
		if err != nil {
			cancel()
			return fmt.Errorf("start stream reader: %w", err)
		}
		s.reader = reader
		go func() {
			if err := reader.Run(runCtx); err != nil {
				s.logger.Error(runCtx, "stream reader stopped", logger.Error(err))
			}
		}()
	}

	s.started = true
	s.logger.Info(ctx, "danger zone service started",
		logger.Int("historicalRecords", s.dataset.Len()),
		logger.Int("workers", s.workerPool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Bool("stream", s.reader != nil),
	)

	return nil
}

// Stop shuts down the stream path, drains queued readings and disconnects
// every subscriber.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	reader, pool, cancel := s.reader, s.workerPool, s.cancel
	s.reader = nil
	s.mu.Unlock()

	ctx, done := context.WithTimeout(context.Background(), stopTimeout)
	defer done()

	s.logger.Info(ctx, "stopping danger zone service...")

	if reader != nil {
		if err := reader.Close(); err != nil {
			s.logger.Warn(ctx, "closing stream reader", logger.Error(err))
		}
	}
	// Workers call Ingest, so the lifecycle lock must be released here.
	if err := pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool did not drain", logger.Error(err))
	}
	cancel()
	s.hub.Close()

	s.logger.Info(ctx, "danger zone service stopped")
}

func (s *Service) currentScorer() (*scoring.RiskScorer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.scorer == nil {
		return nil, ErrNotStarted
	}
	return s.scorer, nil
}

// Ingest assesses r, merges the result into the zone store and pushes the
// new snapshot to subscribers. Concurrent calls are applied one at a time.
func (s *Service) Ingest(ctx context.Context, r model.Reading) (model.DangerZone, bool, error) {
	scorer, err := s.currentScorer()
	if err != nil {
		return model.DangerZone{}, false, err
	}

	s.ingestMu.Lock()
	defer s.ingestMu.Unlock()

	start := time.Now()
	assessment, err := scorer.Assess(ctx, r)
	metrics.RecordAssessmentLatency(float64(time.Since(start).Microseconds()) / 1000)
	if err != nil {
		metrics.RecordAssessmentError()
		metrics.RecordErrorByComponent("service", "assessment")
		return model.DangerZone{}, false, fmt.Errorf("assess reading: %w", err)
	}

	// Readings without coordinates are anchored at the origin.
	var loc model.Location
	if r.Location != nil {
		loc = *r.Location
	}
	candidate := model.DangerZone{
		ID:                uuid.NewString(),
		Temperature:       r.Temperature,
		AirQuality:        r.AirQuality,
		WindSpeed:         r.WindSpeed,
		Humidity:          r.Humidity,
		Location:          loc,
		DangerLevel:       assessment.Level,
		DangerDescription: assessment.Explanation,
		Timestamp:         s.clock.Now().UTC(),
	}

	zone, updated, err := s.zones.Upsert(ctx, candidate)
	if err != nil {
		metrics.RecordErrorByComponent("service", "upsert")
		return model.DangerZone{}, false, fmt.Errorf("store zone: %w", err)
	}

	path := pathFallback
	if assessment.Historical {
		path = pathHistorical
	}
	metrics.RecordReadingIngested(path)
	metrics.RecordAssessment(assessment.Level.String())

	if err := s.hub.Notify(ctx); err != nil {
		s.logger.Warn(ctx, "broadcast failed", logger.Error(err))
	}

	s.logger.Debug(ctx, "reading ingested",
		logger.String("zoneID", zone.ID),
		logger.String("level", zone.DangerLevel.String()),
		logger.Bool("updated", updated),
	)
	return zone, updated, nil
}

// Assess scores r without touching the zone store.
func (s *Service) Assess(ctx context.Context, r model.Reading) (scoring.Assessment, error) {
	scorer, err := s.currentScorer()
	if err != nil {
		return scoring.Assessment{}, err
	}
	a, err := scorer.Assess(ctx, r)
	if err != nil {
		return scoring.Assessment{}, fmt.Errorf("assess reading: %w", err)
	}
	return a, nil
}

// Snapshot returns every zone, newest first.
func (s *Service) Snapshot(ctx context.Context) []model.DangerZone {
	return s.zones.Snapshot(ctx)
}

// Nearest returns the zone closest to loc.
func (s *Service) Nearest(ctx context.Context, loc model.Location) (model.DangerZone, float64, error) {
	return s.zones.Nearest(ctx, loc)
}

// ZonesByLevel returns the zones currently at level.
func (s *Service) ZonesByLevel(ctx context.Context, level model.Level) []model.DangerZone {
	return s.zones.Filter(ctx, level)
}

// Subscribe registers a snapshot subscriber bound to ctx.
func (s *Service) Subscribe(ctx context.Context) (*broadcast.Subscription, error) {
	return s.hub.Subscribe(ctx)
}

// Unsubscribe removes a subscriber.
func (s *Service) Unsubscribe(id string) bool {
	return s.hub.Unsubscribe(id)
}

// Enqueue hands a stream reading to the workers. It returns ErrDuplicate for
// an id seen recently, eventqueue.ErrFull when the caller should retry and
// eventqueue.ErrClosed once the service is stopped.
func (s *Service) Enqueue(ctx context.Context, e model.ReadingEvent) error {
	s.mu.RLock()
	q := s.eventQueue
	s.mu.RUnlock()
	if q == nil {
		return eventqueue.ErrClosed
	}

	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	if e.ReceivedAt.IsZero() {
		e.ReceivedAt = s.clock.Now()
	}

	if s.deduper.SeenAndRecord(ctx, e.EventID) {
		metrics.RecordEventDuplicate()
		return fmt.Errorf("%w: %s", ErrDuplicate, e.EventID)
	}

	if err := q.Enqueue(ctx, e); err != nil {
		// Not queued, so a redelivery must not look like a duplicate.
		s.deduper.Unrecord(ctx, e.EventID)
		return err
	}
	return nil
}

// DatasetSize returns the number of historical fire records loaded.
func (s *Service) DatasetSize() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dataset.Len()
}

// Ready reports whether Start has completed.
func (s *Service) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// Health summarizes readiness for the health endpoint.
func (s *Service) Health(ctx context.Context) types.HealthResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := "starting"
	if s.started {
		status = "ok"
	}
	return types.HealthResponse{
		Status:            status,
		HistoricalRecords: s.dataset.Len(),
		Zones:             s.zones.Count(ctx),
		Subscribers:       s.hub.Count(),
	}
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":           s.started,
		"workerCount":       s.workerCount,
		"queueSize":         s.queueSize,
		"dedupeSize":        s.dedupeSize,
		"zones":             s.zones.Count(ctx),
		"zoneCapacity":      s.zoneCapacity,
		"subscribers":       s.hub.Count(),
		"historicalRecords": s.dataset.Len(),
		"dedupeEntries":     s.deduper.Size(),
		"streamEnabled":     s.reader != nil,
	}

	if s.eventQueue != nil {
		stats["queueLength"] = s.eventQueue.Len(ctx)
	}

	return stats
}
