package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/emberwatch/internal/domain/model"
)

type fakeProducer struct {
	written []kafkago.Message
	err     error
	closed  bool
}

func (f *fakeProducer) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if f.err != nil {
		return f.err
	}
	f.written = append(f.written, msgs...)
	return nil
}

func (f *fakeProducer) Close() error {
	f.closed = true
	return nil
}

func TestWriter(t *testing.T) {
	Convey("NewWriter without brokers is rejected", t, func() {
		w, err := NewWriter(nil, "sensor-readings", "sim")
		So(w, ShouldBeNil)
		So(errors.Is(err, ErrNoBrokers), ShouldBeTrue)
	})

	Convey("Given a writer over a fake producer", t, func() {
		prod := &fakeProducer{}
		w := newWriter(prod, "sim")
		ctx := context.Background()
		sent := time.Date(2025, 7, 15, 12, 0, 0, 0, time.UTC)
		hour := 14
		event := model.ReadingEvent{
			EventID:    "r-1",
			ReceivedAt: sent,
			Reading: model.Reading{
				Temperature: 41.5,
				AirQuality:  model.Float(180),
				TimeOfDay:   &hour,
				Location:    &model.Location{Lat: 38.5, Lng: -121.4},
			},
		}

		Convey("Published messages decode back to the same reading", func() {
			So(w.Publish(ctx, event), ShouldBeNil)
			So(prod.written, ShouldHaveLength, 1)

			msg := prod.written[0]
			So(string(msg.Key), ShouldEqual, "r-1")
			So(msg.Headers, ShouldContain, kafkago.Header{Key: "sent_at", Value: []byte("2025-07-15T12:00:00Z")})

			got, err := decodeMessage(msg, sent)
			So(err, ShouldBeNil)
			So(got.EventID, ShouldEqual, "r-1")
			So(got.Source, ShouldEqual, "kafka:sim")
			So(got.Reading, ShouldResemble, event.Reading)
		})

		Convey("An empty batch writes nothing", func() {
			So(w.Publish(ctx), ShouldBeNil)
			So(prod.written, ShouldBeEmpty)
		})

		Convey("Producer errors are returned", func() {
			prod.err = errors.New("broker down")
			So(w.Publish(ctx, event), ShouldNotBeNil)
		})

		Convey("Close closes the producer", func() {
			So(w.Close(), ShouldBeNil)
			So(prod.closed, ShouldBeTrue)
		})
	})
}
