package scoring_test

import (
	"context"
	"errors"
	"math"
	"strconv"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/okian/emberwatch/internal/domain/history"
	"github.com/okian/emberwatch/internal/domain/model"
	"github.com/okian/emberwatch/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

var origin = model.Location{Lat: 49.0, Lng: -123.0}

func fire(id, date, severity, cause string, area float64, loc model.Location) model.FireRecord {
	return model.FireRecord{
		FireID:     id,
		Date:       date,
		Cause:      cause,
		AreaBurned: area,
		Severity:   severity,
		Location:   loc,
	}
}

func TestRiskScorer_Assess(t *testing.T) {
	Convey("Given a scorer with a fixed clock in July 2025", t, func() {
		ctx := context.Background()
		clock := clockwork.NewFakeClockAt(time.Date(2025, time.July, 15, 12, 0, 0, 0, time.UTC))

		Convey("When no historical fire is within the radius", func() {
			far := model.Location{Lat: 50.0, Lng: -123.0}
			ds := history.NewDataset([]model.FireRecord{
				fire("f1", "2024-07-01", "extreme", model.CauseLightning, 1000, far),
			})
			scorer := scoring.NewRiskScorer(ds, scoring.WithClock(clock))

			reading := model.Reading{Temperature: 50, AirQuality: model.Float(210), Location: &origin}
			a, err := scorer.Assess(ctx, reading)

			Convey("Then the level is low and only the real-time score is reported", func() {
				So(err, ShouldBeNil)
				So(a.Level, ShouldEqual, model.LevelLow)
				So(a.Historical, ShouldBeTrue)
				So(a.Breakdown.RealTimeScore, ShouldEqual, 5)
				So(a.Breakdown.HistoricalScore, ShouldEqual, 0)
				So(a.Breakdown.Candidates, ShouldEqual, 0)
				So(a.Explanation, ShouldContainSubstring, "No historical fires found within 50 km")
				So(a.Explanation, ShouldContainSubstring, "RealTime: 5.00")
			})
		})

		Convey("When a single recent large lightning fire sits at the reading", func() {
			ds := history.NewDataset([]model.FireRecord{
				fire("f1", "2024-07-01", "extreme", model.CauseLightning, 1000, origin),
			})
			scorer := scoring.NewRiskScorer(ds, scoring.WithClock(clock))

			a, err := scorer.Assess(ctx, model.Reading{Temperature: 20, Location: &origin})

			Convey("Then every factor contributes to the total", func() {
				fireScore := 3 * 1.5 * 1.0 * (1.15 * 1.10) * 1.2 * 1.0
				So(err, ShouldBeNil)
				So(a.Breakdown.Candidates, ShouldEqual, 1)
				So(a.Breakdown.HistoricalScore, ShouldAlmostEqual, fireScore, 1e-9)
				So(a.Breakdown.FrequencyScore, ShouldEqual, 1)
				So(a.Breakdown.ConsecutivePenalty, ShouldEqual, 0)
				So(a.Breakdown.OverlapPenalty, ShouldEqual, 0)
				So(a.Breakdown.Total, ShouldAlmostEqual, fireScore+1, 1e-9)
				So(a.Level, ShouldEqual, model.LevelMedium)
			})

			Convey("And the explanation reports each component with two decimals", func() {
				So(a.Explanation, ShouldStartWith, "Found 1 fires within 50 km.")
				So(a.Explanation, ShouldContainSubstring, "Historical Score: 6.83")
				So(a.Explanation, ShouldContainSubstring, "Frequency: 1.00")
				So(a.Explanation, ShouldContainSubstring, "ConsecutivePenalty: 0.00")
				So(a.Explanation, ShouldContainSubstring, "OverlapPenalty: 0.00")
				So(a.Explanation, ShouldContainSubstring, "RealTime: 0.00")
				So(a.Explanation, ShouldContainSubstring, "Total => 7.83")
			})
		})

		Convey("When more fires than the candidate cap are nearby", func() {
			var records []model.FireRecord
			for i := 0; i < 20; i++ {
				records = append(records, fire("f"+strconv.Itoa(i), "2020-01-10", "low", model.CauseUnknown, 10, origin))
			}
			scorer := scoring.NewRiskScorer(history.NewDataset(records), scoring.WithClock(clock))

			a, err := scorer.Assess(ctx, model.Reading{Temperature: 10, Location: &origin})

			Convey("Then only the nearest fifteen are scored", func() {
				So(err, ShouldBeNil)
				So(a.Breakdown.Candidates, ShouldEqual, scoring.DefaultMaxCandidates)
				So(a.Breakdown.FrequencyScore, ShouldEqual, 5)
				So(a.Breakdown.OverlapPenalty, ShouldAlmostEqual, 1.4, 1e-9)
				So(a.Breakdown.Total, ShouldAlmostEqual, 6.4, 1e-9)
				So(a.Level, ShouldEqual, model.LevelMedium)
			})
		})

		Convey("When the nearest fires are selected", func() {
			near := model.Location{Lat: 49.01, Lng: -123.0}
			farther := model.Location{Lat: 49.2, Lng: -123.0}
			ds := history.NewDataset([]model.FireRecord{
				fire("far", "2024-07-01", "high", model.CauseHuman, 10, farther),
				fire("near", "2024-07-01", "high", model.CauseHuman, 10, near),
			})
			scorer := scoring.NewRiskScorer(ds, scoring.WithClock(clock), scoring.WithMaxCandidates(1))

			a, err := scorer.Assess(ctx, model.Reading{Temperature: 10, Location: &origin})

			Convey("Then the closer fire wins", func() {
				So(err, ShouldBeNil)
				So(a.Breakdown.Candidates, ShouldEqual, 1)
				So(a.Breakdown.HistoricalScore, ShouldBeGreaterThan, 2*1.1*1.265*0.95)
			})
		})

		Convey("When the search radius is narrowed", func() {
			ds := history.NewDataset([]model.FireRecord{
				fire("f1", "2024-07-01", "extreme", model.CauseLightning, 1000, model.Location{Lat: 49.1, Lng: -123.0}),
			})
			scorer := scoring.NewRiskScorer(ds, scoring.WithClock(clock), scoring.WithRadius(10))

			a, err := scorer.Assess(ctx, model.Reading{Temperature: 10, Location: &origin})

			Convey("Then fires outside it are ignored", func() {
				So(err, ShouldBeNil)
				So(scorer.RadiusKm(), ShouldEqual, 10)
				So(a.Breakdown.Candidates, ShouldEqual, 0)
				So(a.Explanation, ShouldContainSubstring, "within 10 km")
			})
		})

		Convey("When the reading has no location", func() {
			scorer := scoring.NewRiskScorer(nil, scoring.WithClock(clock))

			a, err := scorer.Assess(ctx, model.Reading{Temperature: 50, AirQuality: model.Float(210)})

			Convey("Then the threshold fallback is used", func() {
				So(err, ShouldBeNil)
				So(a.Historical, ShouldBeFalse)
				So(a.Breakdown, ShouldBeNil)
				So(a.Level, ShouldEqual, model.LevelVeryHigh)
			})
		})

		Convey("When the reading is malformed", func() {
			scorer := scoring.NewRiskScorer(nil)

			_, errNaN := scorer.Assess(ctx, model.Reading{Temperature: math.NaN()})
			_, errInf := scorer.Assess(ctx, model.Reading{Temperature: 20, Humidity: model.Float(math.Inf(1))})
			_, errLat := scorer.Assess(ctx, model.Reading{Temperature: 20, Location: &model.Location{Lat: 95, Lng: 0}})

			Convey("Then it is rejected as invalid", func() {
				So(errors.Is(errNaN, scoring.ErrInvalidReading), ShouldBeTrue)
				So(errors.Is(errInf, scoring.ErrInvalidReading), ShouldBeTrue)
				So(errInf.Error(), ShouldContainSubstring, "humidity")
				So(errors.Is(errLat, scoring.ErrInvalidReading), ShouldBeTrue)
			})
		})

		Convey("When dryness or hour fall outside their ranges", func() {
			scorer := scoring.NewRiskScorer(nil, scoring.WithClock(clock))
			hour := 99
			_, errDry := scorer.Assess(ctx, model.Reading{Temperature: 20, DrynessIndex: model.Float(500), Location: &origin})
			_, errNegDry := scorer.Assess(ctx, model.Reading{Temperature: 20, DrynessIndex: model.Float(-5)})
			_, errHour := scorer.Assess(ctx, model.Reading{Temperature: 20, TimeOfDay: &hour, Location: &origin})

			Convey("Then the reading is rejected before scoring", func() {
				So(errors.Is(errDry, scoring.ErrInvalidReading), ShouldBeTrue)
				So(errDry.Error(), ShouldContainSubstring, "drynessIndex")
				So(errors.Is(errNegDry, scoring.ErrInvalidReading), ShouldBeTrue)
				So(errors.Is(errHour, scoring.ErrInvalidReading), ShouldBeTrue)
				So(errHour.Error(), ShouldContainSubstring, "timeOfDay")
			})

			Convey("And the range bounds themselves are accepted", func() {
				last := scoring.MaxHour
				So(scoring.ValidateReading(model.Reading{Temperature: 20, DrynessIndex: model.Float(0), TimeOfDay: &last}), ShouldBeNil)
				So(scoring.ValidateReading(model.Reading{Temperature: 20, DrynessIndex: model.Float(scoring.MaxDrynessIndex)}), ShouldBeNil)
			})
		})

		Convey("When the context is already cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := scoring.NewRiskScorer(nil).Assess(cctx, model.Reading{Temperature: 20})

			Convey("Then the cancellation is returned", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})
		})
	})
}

func TestFallback(t *testing.T) {
	Convey("Given the threshold-only assessor", t, func() {
		Convey("The higher of the two ranks wins", func() {
			a := scoring.Fallback(model.Reading{Temperature: 10, AirQuality: model.Float(320)})
			So(a.Level, ShouldEqual, model.LevelExtreme)
			So(a.Explanation, ShouldEqual, "Temperature classification: normal. AQI classification: extreme.")

			b := scoring.Fallback(model.Reading{Temperature: 50})
			So(b.Level, ShouldEqual, model.LevelVeryHigh)
			So(b.Explanation, ShouldEqual, "Temperature classification: very high. AQI classification: no risk.")
		})

		Convey("A present but clean AQI is normal, not no risk", func() {
			a := scoring.Fallback(model.Reading{Temperature: 0, AirQuality: model.Float(20)})
			So(a.Level, ShouldEqual, model.LevelNormal)
		})

		Convey("Nothing notable yields the no concerns description", func() {
			a := scoring.Fallback(model.Reading{Temperature: 0})
			So(a.Level, ShouldEqual, model.LevelNoRisk)
			So(a.Explanation, ShouldEqual, "No significant environmental concerns detected.")
		})

		Convey("Temperature buckets follow their thresholds", func() {
			So(scoring.TemperatureLevel(60), ShouldEqual, model.LevelExtreme)
			So(scoring.TemperatureLevel(45), ShouldEqual, model.LevelVeryHigh)
			So(scoring.TemperatureLevel(35), ShouldEqual, model.LevelHigh)
			So(scoring.TemperatureLevel(25), ShouldEqual, model.LevelMedium)
			So(scoring.TemperatureLevel(15), ShouldEqual, model.LevelLow)
			So(scoring.TemperatureLevel(5), ShouldEqual, model.LevelNormal)
			So(scoring.TemperatureLevel(4.9), ShouldEqual, model.LevelNoRisk)
		})

		Convey("AQI buckets follow their thresholds", func() {
			So(scoring.AirQualityLevel(nil), ShouldEqual, model.LevelNoRisk)
			So(scoring.AirQualityLevel(model.Float(300)), ShouldEqual, model.LevelExtreme)
			So(scoring.AirQualityLevel(model.Float(200)), ShouldEqual, model.LevelVeryHigh)
			So(scoring.AirQualityLevel(model.Float(150)), ShouldEqual, model.LevelHigh)
			So(scoring.AirQualityLevel(model.Float(100)), ShouldEqual, model.LevelMedium)
			So(scoring.AirQualityLevel(model.Float(50)), ShouldEqual, model.LevelLow)
			So(scoring.AirQualityLevel(model.Float(49)), ShouldEqual, model.LevelNormal)
		})
	})
}
