package types_test

import (
	"encoding/json"
	"testing"

	"github.com/okian/emberwatch/internal/domain/model"
	types "github.com/okian/emberwatch/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestIngestResponse(t *testing.T) {
	Convey("Given an ingest response", t, func() {
		resp := types.IngestResponse{
			Success: true,
			Data: model.DangerZone{
				ID:          "zone-1",
				Temperature: 30,
				Location:    model.Location{Lat: 1, Lng: 2},
				DangerLevel: model.LevelMedium,
			},
		}

		Convey("When encoding it", func() {
			b, err := json.Marshal(resp)
			So(err, ShouldBeNil)

			var decoded map[string]any
			So(json.Unmarshal(b, &decoded), ShouldBeNil)

			Convey("Then the wire shape should expose success and data", func() {
				So(decoded["success"], ShouldEqual, true)
				data, ok := decoded["data"].(map[string]any)
				So(ok, ShouldBeTrue)
				So(data["dangerLevel"], ShouldEqual, "medium")
				So(data["airQuality"], ShouldBeNil)
			})
		})
	})
}

func TestErrorResponse(t *testing.T) {
	Convey("Given an error response without a code", t, func() {
		b, err := json.Marshal(types.ErrorResponse{Error: "Failed to process data"})

		Convey("Then only the error field should be encoded", func() {
			So(err, ShouldBeNil)
			So(string(b), ShouldEqual, `{"error":"Failed to process data"}`)
		})
	})
}
