package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/okian/emberwatch/internal/domain/model"
)

// messageSink is the subset of *kafkago.Writer the publisher needs.
type messageSink interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes sensor readings in the payload format Reader consumes.
type Writer struct {
	sink   messageSink
	source string
}

// NewWriter creates a producer for topic. source is stamped on every payload
// so consumers can tell simulated traffic apart.
func NewWriter(brokers []string, topic, source string) (*Writer, error) {
	if len(brokers) == 0 {
		return nil, ErrNoBrokers
	}
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return newWriter(w, source), nil
}

func newWriter(sink messageSink, source string) *Writer {
	return &Writer{sink: sink, source: source}
}

// Publish writes events in a single batch.
func (w *Writer) Publish(ctx context.Context, events ...model.ReadingEvent) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(events))
	for i := range events {
		msg, err := encodeMessage(events[i], w.source)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return w.sink.WriteMessages(ctx, msgs...)
}

// Close flushes pending writes.
func (w *Writer) Close() error {
	return w.sink.Close()
}

func encodeMessage(e model.ReadingEvent, source string) (kafkago.Message, error) { //nolint:gocritic // hugeParam: mirrors decodeMessage
	temp := e.Reading.Temperature
	payload := readingMessage{
		ID:           e.EventID,
		Source:       source,
		Temperature:  &temp,
		AirQuality:   e.Reading.AirQuality,
		WindSpeed:    e.Reading.WindSpeed,
		Humidity:     e.Reading.Humidity,
		DrynessIndex: e.Reading.DrynessIndex,
		TimeOfDay:    e.Reading.TimeOfDay,
		Location:     newMessageLocation(e.Reading.Location),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize reading %s: %w", e.EventID, err)
	}

	sentAt := e.ReceivedAt
	if sentAt.IsZero() {
		sentAt = time.Now().UTC()
	}
	return kafkago.Message{
		Key:   []byte(e.EventID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "source", Value: []byte(source)},
			{Key: "sent_at", Value: []byte(sentAt.Format(time.RFC3339))},
		},
	}, nil
}
