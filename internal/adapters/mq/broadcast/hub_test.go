package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/okian/emberwatch/internal/adapters/repository"
	"github.com/okian/emberwatch/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func decode(b []byte) model.Snapshot {
	var s model.Snapshot
	if err := json.Unmarshal(b, &s); err != nil {
		panic(err)
	}
	return s
}

func receive(t *testing.T, sub *Subscription) ([]byte, bool) {
	t.Helper()
	select {
	case b, ok := <-sub.Updates():
		return b, ok
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a snapshot")
		return nil, false
	}
}

func addZone(ctx context.Context, store *repository.ZoneStore, i int) {
	_, _, err := store.Upsert(ctx, model.DangerZone{
		Location: model.Location{Lat: float64(i), Lng: 0},
	})
	if err != nil {
		panic(err)
	}
}

func TestHub_Subscribe(t *testing.T) {
	Convey("Given a hub over a store holding one zone", t, func() {
		ctx := context.Background()
		store := repository.NewZoneStore()
		addZone(ctx, store, 1)
		hub := New(store.Snapshot)

		Convey("When a subscriber connects", func() {
			sub, err := hub.Subscribe(ctx)
			So(err, ShouldBeNil)
			defer hub.Unsubscribe(sub.ID())

			Convey("Then its first payload equals the current snapshot", func() {
				b, ok := receive(t, sub)
				So(ok, ShouldBeTrue)
				So(decode(b).DangerZones, ShouldResemble, store.Snapshot(ctx))
				So(hub.Count(), ShouldEqual, 1)
			})
		})

		Convey("When the store is empty", func() {
			empty := New(repository.NewZoneStore().Snapshot)
			sub, err := empty.Subscribe(ctx)
			So(err, ShouldBeNil)

			Convey("Then the initial payload is an empty list, not null", func() {
				b, _ := receive(t, sub)
				So(string(b), ShouldEqual, `{"dangerZones":[]}`)
			})
		})
	})
}

func TestHub_Notify(t *testing.T) {
	Convey("Given two subscribers", t, func() {
		ctx := context.Background()
		store := repository.NewZoneStore()
		hub := New(store.Snapshot, WithBufferSize(8))
		a, _ := hub.Subscribe(ctx)
		b, _ := hub.Subscribe(ctx)
		receive(t, a)
		receive(t, b)

		Convey("When the store mutates several times", func() {
			for i := 0; i < 3; i++ {
				addZone(ctx, store, i)
				So(hub.Notify(ctx), ShouldBeNil)
			}

			Convey("Then both observe every snapshot in mutation order with identical bytes", func() {
				for want := 1; want <= 3; want++ {
					pa, _ := receive(t, a)
					pb, _ := receive(t, b)
					So(string(pa), ShouldEqual, string(pb))
					So(decode(pa).DangerZones, ShouldHaveLength, want)
				}
			})
		})
	})

	Convey("Given a subscriber that never reads", t, func() {
		ctx := context.Background()
		store := repository.NewZoneStore()
		hub := New(store.Snapshot, WithBufferSize(1))
		slow, _ := hub.Subscribe(ctx)
		fast, _ := hub.Subscribe(ctx)
		receive(t, fast)

		Convey("When a notification finds its buffer full", func() {
			addZone(ctx, store, 1)
			So(hub.Notify(ctx), ShouldBeNil)

			Convey("Then only the slow subscriber is dropped", func() {
				So(hub.Count(), ShouldEqual, 1)

				_, ok := receive(t, slow)
				So(ok, ShouldBeTrue)
				_, ok = receive(t, slow)
				So(ok, ShouldBeFalse)

				p, ok := receive(t, fast)
				So(ok, ShouldBeTrue)
				So(decode(p).DangerZones, ShouldHaveLength, 1)
			})
		})
	})

	Convey("Given no subscribers", t, func() {
		hub := New(repository.NewZoneStore().Snapshot)
		So(hub.Notify(context.Background()), ShouldBeNil)
	})
}

func TestHub_Lifecycle(t *testing.T) {
	Convey("Given a subscription bound to a context", t, func() {
		hub := New(repository.NewZoneStore().Snapshot)
		ctx, cancel := context.WithCancel(context.Background())
		sub, err := hub.Subscribe(ctx)
		So(err, ShouldBeNil)
		receive(t, sub)

		Convey("When the context is cancelled", func() {
			cancel()

			Convey("Then the subscription is removed without an explicit call", func() {
				_, ok := receive(t, sub)
				So(ok, ShouldBeFalse)
				So(hub.Count(), ShouldEqual, 0)
			})
		})

		Convey("When it is unsubscribed twice", func() {
			first := hub.Unsubscribe(sub.ID())
			second := hub.Unsubscribe(sub.ID())
			cancel()

			Convey("Then the second call is a no-op", func() {
				So(first, ShouldBeTrue)
				So(second, ShouldBeFalse)
				So(hub.Count(), ShouldEqual, 0)
			})
		})

		Convey("When the hub is closed", func() {
			hub.Close()
			hub.Close()
			_, err := hub.Subscribe(context.Background())
			cancel()

			Convey("Then everyone is dropped and new subscribers are refused", func() {
				_, ok := receive(t, sub)
				So(ok, ShouldBeFalse)
				So(errors.Is(err, ErrClosed), ShouldBeTrue)
				So(hub.Notify(context.Background()), ShouldBeNil)
			})
		})
	})
}
