package api_test

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/okian/emberwatch/internal/adapters/http/api"
	service "github.com/okian/emberwatch/internal/app"
	"github.com/okian/emberwatch/internal/domain/history"
	"github.com/okian/emberwatch/internal/domain/model"
	"github.com/okian/emberwatch/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

// failingDeps breaks ingestion while keeping every other call real.
type failingDeps struct {
	*service.Service
}

func (failingDeps) Ingest(ctx context.Context, r model.Reading) (model.DangerZone, bool, error) {
	return model.DangerZone{}, false, errors.New("disk on fire")
}

func newService(start bool) *service.Service {
	svc := service.New(
		service.WithLogger(logger.Nop()),
		service.WithDataset(history.NewDataset(nil)),
		service.WithWorkerCount(1),
	)
	if start {
		So(svc.Start(context.Background()), ShouldBeNil)
	}
	return svc
}

func newMux(deps api.Dependencies, stats api.StatsProvider, opts ...api.Option) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, stats, opts...).Register(context.Background(), mux)
	return mux
}

func do(mux http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decodeBody(w *httptest.ResponseRecorder) map[string]any {
	var body map[string]any
	So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
	return body
}

func TestInputData(t *testing.T) {
	Convey("Given a running API", t, func() {
		svc := newService(true)
		defer svc.Stop()
		mux := newMux(svc, svc)
		ctx := context.Background()

		Convey("When no Temperature is sent", func() {
			w := do(mux, httptest.NewRequest(http.MethodGet, "/inputData", http.NoBody))

			Convey("Then the current zones are returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(strings.TrimSpace(w.Body.String()), ShouldEqual, `{"dangerZones":[]}`)
			})
		})

		Convey("When a reading is sent in the query string", func() {
			w := do(mux, httptest.NewRequest(http.MethodGet,
				"/inputData?Temperature=50&AirQuality=210&LocationLat=49&LocationLong=-123", http.NoBody))

			Convey("Then a zone is created", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decodeBody(w)
				So(body["success"], ShouldEqual, true)
				So(body["updated"], ShouldEqual, false)
				data := body["data"].(map[string]any)
				So(data["dangerLevel"], ShouldEqual, "low")
				So(data["airQuality"], ShouldEqual, 210.0)
				So(data["windSpeed"], ShouldBeNil)
				So(len(svc.Snapshot(ctx)), ShouldEqual, 1)
			})

			Convey("And a second reading 1 km away updates it", func() {
				w := do(mux, httptest.NewRequest(http.MethodGet,
					"/inputData?Temperature=20&LocationLat=49.009&LocationLong=-123", http.NoBody))
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decodeBody(w)["updated"], ShouldEqual, true)
				So(len(svc.Snapshot(ctx)), ShouldEqual, 1)
			})
		})

		Convey("When a reading is posted as a form", func() {
			form := url.Values{"Temperature": {"30"}, "LocationLat": {"10"}, "LocationLong": {"10"}, "TimeOfDay": {"14"}}
			req := httptest.NewRequest(http.MethodPost, "/inputData", strings.NewReader(form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			w := do(mux, req)

			Convey("Then it is ingested", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(len(svc.Snapshot(ctx)), ShouldEqual, 1)
			})
		})

		Convey("When a reading is posted as JSON", func() {
			req := httptest.NewRequest(http.MethodPost, "/inputData",
				strings.NewReader(`{"Temperature": 61, "AirQuality": null, "WindSpeed": "12.5"}`))
			req.Header.Set("Content-Type", "application/json")
			w := do(mux, req)

			Convey("Then the threshold path classifies it", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				data := decodeBody(w)["data"].(map[string]any)
				So(data["dangerLevel"], ShouldEqual, "extreme")
				So(data["windSpeed"], ShouldEqual, 12.5)
			})
		})

		Convey("When the input is malformed", func() {
			cases := []string{
				"/inputData?Temperature=abc",
				"/inputData?Temperature=NaN",
				"/inputData?Temperature=20&LocationLat=91&LocationLong=0",
				"/inputData?Temperature=20&AirQuality=lots",
				"/inputData?Temperature=20&TimeOfDay=24",
				"/inputData?Temperature=20&DrynessIndex=101",
			}

			Convey("Then each is rejected with 400 and nothing is stored", func() {
				for _, target := range cases {
					w := do(mux, httptest.NewRequest(http.MethodGet, target, http.NoBody))
					So(w.Code, ShouldEqual, http.StatusBadRequest)
					body := decodeBody(w)
					So(body["error"], ShouldNotBeEmpty)
					So(body["code"], ShouldEqual, "bad_request")
				}
				So(len(svc.Snapshot(ctx)), ShouldEqual, 0)
			})
		})

		Convey("When the JSON body is broken", func() {
			req := httptest.NewRequest(http.MethodPost, "/inputData", strings.NewReader(`{"Temperature":`))
			req.Header.Set("Content-Type", "application/json")

			So(do(mux, req).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When ingestion fails", func() {
			mux := newMux(failingDeps{svc}, svc)
			w := do(mux, httptest.NewRequest(http.MethodGet, "/inputData?Temperature=20", http.NoBody))

			Convey("Then a 500 hides the cause", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				So(decodeBody(w)["error"], ShouldEqual, "failed to process environmental data")
				So(decodeBody(w)["code"], ShouldEqual, "internal")
			})
		})

		Convey("When an unsupported method is used", func() {
			w := do(mux, httptest.NewRequest(http.MethodDelete, "/inputData", http.NoBody))
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestZones(t *testing.T) {
	Convey("Given an API with two zones", t, func() {
		svc := newService(true)
		defer svc.Stop()
		mux := newMux(svc, svc)

		Convey("When the store is empty", func() {
			w := do(mux, httptest.NewRequest(http.MethodGet, "/zones/nearest?lat=1&lng=1", http.NoBody))
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(decodeBody(w)["code"], ShouldEqual, "not_found")
		})

		Convey("When zones exist", func() {
			ctx := context.Background()
			_, _, err := svc.Ingest(ctx, model.Reading{Temperature: 20, Location: &model.Location{Lat: 1, Lng: 1}})
			So(err, ShouldBeNil)
			_, _, err = svc.Ingest(ctx, model.Reading{Temperature: 20})
			So(err, ShouldBeNil)

			Convey("Then /zones and /dangerZones list them", func() {
				for _, target := range []string{"/zones", "/dangerZones"} {
					w := do(mux, httptest.NewRequest(http.MethodGet, target, http.NoBody))
					So(w.Code, ShouldEqual, http.StatusOK)
					So(len(decodeBody(w)["dangerZones"].([]any)), ShouldEqual, 2)
				}
			})

			Convey("Then level filters apply", func() {
				w := do(mux, httptest.NewRequest(http.MethodGet, "/zones?level=very_high", http.NoBody))
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decodeBody(w)["dangerZones"], ShouldBeEmpty)

				w = do(mux, httptest.NewRequest(http.MethodGet, "/zones?level=low", http.NoBody))
				So(len(decodeBody(w)["dangerZones"].([]any)), ShouldEqual, 2)

				w = do(mux, httptest.NewRequest(http.MethodGet, "/zones?level=scorching", http.NoBody))
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})

			Convey("Then the nearest zone is found", func() {
				w := do(mux, httptest.NewRequest(http.MethodGet, "/zones/nearest?lat=1.01&lng=1", http.NoBody))
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decodeBody(w)
				zone := body["zone"].(map[string]any)
				So(zone["location"], ShouldResemble, map[string]any{"lat": 1.0, "lng": 1.0})
				So(body["distanceKm"], ShouldAlmostEqual, 1.11, 0.01)
			})

			Convey("Then nearest needs both coordinates", func() {
				w := do(mux, httptest.NewRequest(http.MethodGet, "/zones/nearest?lat=1", http.NoBody))
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestRisk(t *testing.T) {
	Convey("Given a running API", t, func() {
		svc := newService(true)
		defer svc.Stop()
		mux := newMux(svc, svc)

		Convey("When assessing a located reading", func() {
			w := do(mux, httptest.NewRequest(http.MethodGet,
				"/risk?Temperature=50&AirQuality=210&LocationLat=49&LocationLong=-123", http.NoBody))

			Convey("Then the breakdown is returned and nothing is stored", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decodeBody(w)
				So(body["level"], ShouldEqual, "low")
				So(body["historical"], ShouldEqual, true)
				So(body["breakdown"].(map[string]any)["realTimeScore"], ShouldEqual, 5.0)
				So(len(svc.Snapshot(context.Background())), ShouldEqual, 0)
			})
		})

		Convey("When assessing without a location", func() {
			w := do(mux, httptest.NewRequest(http.MethodGet, "/risk?Temperature=0", http.NoBody))
			body := decodeBody(w)
			So(body["level"], ShouldEqual, "no risk")
			So(body["description"], ShouldEqual, "No significant environmental concerns detected.")
			So(body, ShouldNotContainKey, "breakdown")
		})

		Convey("When Temperature is missing", func() {
			w := do(mux, httptest.NewRequest(http.MethodGet, "/risk", http.NoBody))
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestOperationalEndpoints(t *testing.T) {
	Convey("Given an API", t, func() {
		Convey("When the service has not started", func() {
			svc := newService(false)
			w := do(newMux(svc, svc), httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody))

			Convey("Then health reports unavailable", func() {
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
				So(decodeBody(w)["status"], ShouldEqual, "starting")
			})
		})

		Convey("When the service is running", func() {
			svc := newService(true)
			defer svc.Stop()
			mux := newMux(svc, svc)

			Convey("Then health is ok", func() {
				w := do(mux, httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody))
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decodeBody(w)
				So(body["status"], ShouldEqual, "ok")
				So(body["historicalRecords"], ShouldEqual, 0.0)
			})

			Convey("Then stats are served", func() {
				w := do(mux, httptest.NewRequest(http.MethodGet, "/stats", http.NoBody))
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decodeBody(w)["started"], ShouldEqual, true)
			})

			Convey("Then Prometheus metrics are served", func() {
				do(mux, httptest.NewRequest(http.MethodGet, "/zones", http.NoBody))
				w := do(mux, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, "ember_risk_http_requests_total")
			})

			Convey("Then CORS preflight is answered", func() {
				w := do(mux, httptest.NewRequest(http.MethodOptions, "/inputData", http.NoBody))
				So(w.Code, ShouldEqual, http.StatusNoContent)
				So(w.Header().Get("Access-Control-Allow-Origin"), ShouldEqual, "*")

				w = do(mux, httptest.NewRequest(http.MethodGet, "/zones", http.NoBody))
				So(w.Header().Get("Access-Control-Allow-Origin"), ShouldEqual, "*")
			})
		})
	})
}

// nextEvent returns the next SSE data payload, skipping comments.
func nextEvent(r *bufio.Reader) (string, error) {
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return "", err
		}
		if data, ok := strings.CutPrefix(strings.TrimRight(line, "\n"), "data: "); ok {
			return data, nil
		}
	}
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestZoneStream(t *testing.T) {
	Convey("Given a served API", t, func() {
		svc := newService(true)
		defer svc.Stop()
		ctx := context.Background()
		_, _, err := svc.Ingest(ctx, model.Reading{Temperature: 20, Location: &model.Location{Lat: 1, Lng: 1}})
		So(err, ShouldBeNil)

		srv := httptest.NewServer(newMux(svc, svc, api.WithKeepAlive(time.Minute)))
		defer srv.Close()

		for _, path := range []string{"/zones/stream", "/inputData?subscribe=true"} {
			Convey("When a client subscribes on "+path, func() {
				resp, err := http.Get(srv.URL + path)
				So(err, ShouldBeNil)
				defer resp.Body.Close()
				reader := bufio.NewReader(resp.Body)

				Convey("Then it receives the current snapshot, then every mutation", func() {
					So(resp.Header.Get("Content-Type"), ShouldEqual, "text/event-stream")

					first, err := nextEvent(reader)
					So(err, ShouldBeNil)
					var snap model.Snapshot
					So(json.Unmarshal([]byte(first), &snap), ShouldBeNil)
					So(len(snap.DangerZones), ShouldEqual, 1)

					_, _, err = svc.Ingest(ctx, model.Reading{Temperature: 20, Location: &model.Location{Lat: 20, Lng: 20}})
					So(err, ShouldBeNil)

					second, err := nextEvent(reader)
					So(err, ShouldBeNil)
					So(json.Unmarshal([]byte(second), &snap), ShouldBeNil)
					So(len(snap.DangerZones), ShouldEqual, 2)
				})

				Convey("Then disconnecting deregisters the subscriber", func() {
					_, err := nextEvent(reader)
					So(err, ShouldBeNil)
					So(svc.Health(ctx).Subscribers, ShouldEqual, 1)

					resp.Body.Close()
					So(waitFor(func() bool { return svc.Health(ctx).Subscribers == 0 }), ShouldBeTrue)
				})
			})
		}
	})
}

func TestZoneStreamKeepAlive(t *testing.T) {
	Convey("Given a stream with a short keepalive", t, func() {
		svc := newService(true)
		defer svc.Stop()
		srv := httptest.NewServer(newMux(svc, svc, api.WithKeepAlive(10*time.Millisecond)))
		defer srv.Close()

		resp, err := http.Get(srv.URL + "/zones/stream")
		So(err, ShouldBeNil)
		defer resp.Body.Close()

		Convey("Then idle connections receive keepalive comments", func() {
			buf := make([]byte, 256)
			var got strings.Builder
			for !strings.Contains(got.String(), ": keepalive") {
				n, err := resp.Body.Read(buf)
				got.Write(buf[:n])
				if errors.Is(err, io.EOF) {
					break
				}
				So(err, ShouldBeNil)
			}
			So(got.String(), ShouldContainSubstring, ": keepalive\n\n")
		})
	})
}
