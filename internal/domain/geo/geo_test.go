package geo_test

import (
	"errors"
	"math"
	"testing"

	"github.com/okian/emberwatch/internal/domain/geo"
	"github.com/okian/emberwatch/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDistanceKm(t *testing.T) {
	Convey("Given two locations", t, func() {
		vancouver := model.Location{Lat: 49.2827, Lng: -123.1207}

		Convey("When they are the same point", func() {
			Convey("Then the distance should be zero", func() {
				So(geo.DistanceKm(vancouver, vancouver), ShouldEqual, 0)
			})
		})

		Convey("When they are one degree of latitude apart", func() {
			north := model.Location{Lat: vancouver.Lat + 1, Lng: vancouver.Lng}

			Convey("Then the distance should be about 111 km", func() {
				So(geo.DistanceKm(vancouver, north), ShouldAlmostEqual, 111.19, 0.01)
			})
		})

		Convey("When measuring a known city pair", func() {
			calgary := model.Location{Lat: 51.0447, Lng: -114.0719}

			Convey("Then it should match the published great-circle distance", func() {
				So(geo.DistanceKm(vancouver, calgary), ShouldAlmostEqual, 675, 5)
			})

			Convey("And it should be symmetric", func() {
				So(geo.DistanceKm(vancouver, calgary), ShouldAlmostEqual, geo.DistanceKm(calgary, vancouver), 1e-9)
			})
		})
	})
}

func TestLatSpan(t *testing.T) {
	Convey("Given a 50 km radius", t, func() {
		Convey("Then the latitude span should be roughly 0.45 degrees", func() {
			So(geo.LatSpan(50), ShouldAlmostEqual, 0.4497, 0.001)
		})
	})
}

func TestValidate(t *testing.T) {
	Convey("Given coordinates to validate", t, func() {
		Convey("Then in-range values should pass", func() {
			So(geo.Validate(model.Location{Lat: 90, Lng: -180}), ShouldBeNil)
		})

		Convey("Then out of range latitude should fail", func() {
			err := geo.Validate(model.Location{Lat: 91, Lng: 0})
			So(errors.Is(err, geo.ErrInvalidLocation), ShouldBeTrue)
		})

		Convey("Then out of range longitude should fail", func() {
			err := geo.Validate(model.Location{Lat: 0, Lng: 180.5})
			So(errors.Is(err, geo.ErrInvalidLocation), ShouldBeTrue)
		})

		Convey("Then non-finite values should fail", func() {
			So(geo.Validate(model.Location{Lat: math.NaN(), Lng: 0}), ShouldNotBeNil)
			So(geo.Validate(model.Location{Lat: 0, Lng: math.Inf(1)}), ShouldNotBeNil)
		})
	})
}
