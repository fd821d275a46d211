// Package kafka consumes sensor readings from a Kafka topic and hands them to
// the ingest queue.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/okian/emberwatch/internal/adapters/mq/queue"
	"github.com/okian/emberwatch/internal/domain/model"
	"github.com/okian/emberwatch/internal/domain/scoring"
	"github.com/okian/emberwatch/pkg/logger"
	"github.com/okian/emberwatch/pkg/metrics"
)

const (
	// SourceKafka tags events that arrived through this reader.
	SourceKafka = "kafka"

	defaultBackoff = 100 * time.Millisecond

	outcomeEnqueued  = "enqueued"
	outcomeInvalid   = "invalid"
	outcomeRejected  = "rejected"
	outcomeRetry     = "backpressure"
	outcomeCommitErr = "commit_error"
)

// Enqueuer accepts reading events. It returns queue.ErrFull when the caller
// should retry later and queue.ErrClosed when ingestion has stopped.
type Enqueuer interface {
	Enqueue(ctx context.Context, e model.ReadingEvent) error
}

// messageSource is the subset of *kafkago.Reader the consumer loop needs.
type messageSource interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Reader is a consumer-group reader feeding an Enqueuer.
type Reader struct {
	source  messageSource
	sink    Enqueuer
	clock   clockwork.Clock
	backoff time.Duration
	logger  logger.Logger
}

// NewReader joins the consumer group on topic. It returns ErrNoBrokers when
// brokers is empty so callers can treat the stream path as disabled.
func NewReader(brokers []string, topic, groupID string, sink Enqueuer, opts ...Option) (*Reader, error) {
	if len(brokers) == 0 {
		return nil, ErrNoBrokers
	}
	src := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return newReader(src, sink, opts...), nil
}

func newReader(src messageSource, sink Enqueuer, opts ...Option) *Reader {
	r := &Reader{
		source:  src,
		sink:    sink,
		clock:   clockwork.NewRealClock(),
		backoff: defaultBackoff,
		logger:  logger.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run fetches messages until ctx is cancelled, the source closes or the sink
// reports queue.ErrClosed.
func (r *Reader) Run(ctx context.Context) error {
	r.logger.Info(ctx, "stream reader started")
	defer r.logger.Info(ctx, "stream reader stopped")

	for {
		msg, err := r.source.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			metrics.RecordErrorByComponent("kafka", "fetch_error")
			return fmt.Errorf("fetch message: %w", err)
		}

		if err := r.handle(ctx, msg); err != nil {
			if errors.Is(err, queue.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

// handle delivers one message and commits it unless delivery must be retried
// by a later consumer.
func (r *Reader) handle(ctx context.Context, msg kafkago.Message) error { //nolint:gocritic // hugeParam: kafkago.Message is passed by value throughout kafka-go
	event, err := decodeMessage(msg, r.clock.Now())
	if err != nil {
		metrics.RecordStreamMessage(outcomeInvalid)
		r.logger.Warn(ctx, "skipping invalid message",
			logger.String("topic", msg.Topic),
			logger.Int("partition", msg.Partition),
			logger.Any("offset", msg.Offset),
			logger.Error(err),
		)
		return r.commit(ctx, msg)
	}

	for {
		err := r.sink.Enqueue(ctx, event)
		switch {
		case err == nil:
			metrics.RecordStreamMessage(outcomeEnqueued)
			return r.commit(ctx, msg)
		case errors.Is(err, queue.ErrFull):
			metrics.RecordStreamMessage(outcomeRetry)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-r.clock.After(r.backoff):
			}
		case errors.Is(err, queue.ErrClosed):
			return err
		default:
			metrics.RecordStreamMessage(outcomeRejected)
			r.logger.Debug(ctx, "message not enqueued",
				logger.String("eventID", event.EventID),
				logger.Error(err),
			)
			return r.commit(ctx, msg)
		}
	}
}

func (r *Reader) commit(ctx context.Context, msg kafkago.Message) error { //nolint:gocritic // hugeParam: see handle
	if err := r.source.CommitMessages(ctx, msg); err != nil {
		metrics.RecordStreamMessage(outcomeCommitErr)
		return fmt.Errorf("commit offset %d: %w", msg.Offset, err)
	}
	return nil
}

// Close leaves the consumer group.
func (r *Reader) Close() error {
	return r.source.Close()
}

// readingMessage is the JSON payload published by sensors.
type readingMessage struct {
	ID           string           `json:"id"`
	Source       string           `json:"source"`
	Temperature  *float64         `json:"temperature"`
	AirQuality   *float64         `json:"airQuality"`
	WindSpeed    *float64         `json:"windSpeed"`
	Humidity     *float64         `json:"humidity"`
	DrynessIndex *float64         `json:"drynessIndex"`
	TimeOfDay    *int             `json:"timeOfDay"`
	Location     *messageLocation `json:"location"`
}

// messageLocation keeps each coordinate optional so a lone one is detectable.
type messageLocation struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

func newMessageLocation(loc *model.Location) *messageLocation {
	if loc == nil {
		return nil
	}
	lat, lng := loc.Lat, loc.Lng
	return &messageLocation{Lat: &lat, Lng: &lng}
}

// location needs both coordinates; a lone coordinate counts as absent.
func (l *messageLocation) location() *model.Location {
	if l == nil || l.Lat == nil || l.Lng == nil {
		return nil
	}
	return &model.Location{Lat: *l.Lat, Lng: *l.Lng}
}

// decodeMessage maps a Kafka message onto a ReadingEvent. The event id comes
// from the payload, then the message key, then the message coordinates.
// Readings that fail validation are reported as ErrInvalidMessage.
func decodeMessage(msg kafkago.Message, receivedAt time.Time) (model.ReadingEvent, error) { //nolint:gocritic // hugeParam: see handle
	var payload readingMessage
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		return model.ReadingEvent{}, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	if payload.Temperature == nil {
		return model.ReadingEvent{}, fmt.Errorf("%w: temperature is required", ErrInvalidMessage)
	}

	id := strings.TrimSpace(payload.ID)
	if id == "" {
		id = strings.TrimSpace(string(msg.Key))
	}
	if id == "" {
		id = fmt.Sprintf("%s/%d/%d", msg.Topic, msg.Partition, msg.Offset)
	}

	source := SourceKafka
	if payload.Source != "" {
		source = SourceKafka + ":" + payload.Source
	}

	reading := model.Reading{
		Temperature:  *payload.Temperature,
		AirQuality:   payload.AirQuality,
		WindSpeed:    payload.WindSpeed,
		Humidity:     payload.Humidity,
		DrynessIndex: payload.DrynessIndex,
		TimeOfDay:    payload.TimeOfDay,
		Location:     payload.Location.location(),
	}
	if err := scoring.ValidateReading(reading); err != nil {
		return model.ReadingEvent{}, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}

	return model.ReadingEvent{
		EventID:    id,
		Source:     source,
		Reading:    reading,
		ReceivedAt: receivedAt,
	}, nil
}
