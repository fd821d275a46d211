package scoring_test

import (
	"testing"
	"time"

	"github.com/okian/emberwatch/internal/domain/model"
	"github.com/okian/emberwatch/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func TestFireFactors(t *testing.T) {
	Convey("Given the per-fire factors", t, func() {
		Convey("Severity buckets are weighted by keyword", func() {
			So(scoring.SeverityValue("extreme"), ShouldEqual, 3)
			So(scoring.SeverityValue("Very High"), ShouldEqual, 3)
			So(scoring.SeverityValue("high"), ShouldEqual, 2)
			So(scoring.SeverityValue("medium"), ShouldEqual, 1)
			So(scoring.SeverityValue("low"), ShouldEqual, 0)
			So(scoring.SeverityValue(""), ShouldEqual, 0)
		})

		Convey("Only fires above 500 area get the area boost", func() {
			So(scoring.AreaFactor(500), ShouldEqual, 1.0)
			So(scoring.AreaFactor(500.1), ShouldEqual, 1.5)
			So(scoring.AreaFactor(0), ShouldEqual, 1.0)
		})

		Convey("Recency never increases with age", func() {
			ages := []float64{0, 1, 2, 2.1, 5, 5.1, 10, 10.1, 40}
			prev := scoring.RecencyFactor(ages[0])
			for _, age := range ages[1:] {
				f := scoring.RecencyFactor(age)
				So(f, ShouldBeLessThanOrEqualTo, prev)
				prev = f
			}
			So(scoring.RecencyFactor(2), ShouldEqual, 1.0)
			So(scoring.RecencyFactor(5), ShouldEqual, 0.8)
			So(scoring.RecencyFactor(10), ShouldEqual, 0.5)
			So(scoring.RecencyFactor(10.01), ShouldEqual, 0.2)
		})

		Convey("Age is measured in 365-day years", func() {
			fire := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
			So(scoring.AgeYears(fire, fire.AddDate(0, 0, 730)), ShouldAlmostEqual, 2.0, 1e-9)
		})

		Convey("Seasonality multipliers stack", func() {
			So(scoring.SeasonalityFactor(time.July, time.July), ShouldAlmostEqual, 1.15*1.10, 1e-9)
			So(scoring.SeasonalityFactor(time.January, time.January), ShouldAlmostEqual, 1.15, 1e-9)
			So(scoring.SeasonalityFactor(time.May, time.January), ShouldAlmostEqual, 1.10, 1e-9)
			So(scoring.SeasonalityFactor(time.September, time.March), ShouldAlmostEqual, 1.10, 1e-9)
			So(scoring.SeasonalityFactor(time.October, time.July), ShouldEqual, 1.0)
			So(scoring.SeasonalityFactor(time.April, time.July), ShouldEqual, 1.0)
		})

		Convey("Cause weights are case-insensitive", func() {
			So(scoring.CauseFactor(model.CauseLightning), ShouldEqual, 1.2)
			So(scoring.CauseFactor("LIGHTNING"), ShouldEqual, 1.2)
			So(scoring.CauseFactor(model.CauseHuman), ShouldEqual, 1.1)
			So(scoring.CauseFactor(model.CauseUnknown), ShouldEqual, 1.0)
			So(scoring.CauseFactor("REN"), ShouldEqual, 1.0)
		})

		Convey("Distance falls from 1 at the reading to 0 at the radius", func() {
			So(scoring.DistanceFactor(0, 50), ShouldEqual, 1.0)
			So(scoring.DistanceFactor(25, 50), ShouldEqual, 0.5)
			So(scoring.DistanceFactor(50, 50), ShouldEqual, 0.0)
			So(scoring.DistanceFactor(80, 50), ShouldEqual, 0.0)

			prev := scoring.DistanceFactor(0, 50)
			for d := 1.0; d <= 50; d++ {
				f := scoring.DistanceFactor(d, 50)
				So(f, ShouldBeLessThan, prev)
				prev = f
			}
		})
	})
}

func TestAggregateFactors(t *testing.T) {
	Convey("Given the aggregate components", t, func() {
		Convey("Frequency is capped at five", func() {
			So(scoring.FrequencyScore(0), ShouldEqual, 0)
			So(scoring.FrequencyScore(3), ShouldEqual, 3)
			So(scoring.FrequencyScore(15), ShouldEqual, 5)
		})

		Convey("Consecutive runs are penalized by length", func() {
			So(scoring.ConsecutiveYearPenalty(nil), ShouldEqual, 0)
			So(scoring.ConsecutiveYearPenalty([]int{2020}), ShouldEqual, 0)
			So(scoring.ConsecutiveYearPenalty([]int{2021, 2020}), ShouldAlmostEqual, 0.2, 1e-9)
			So(scoring.ConsecutiveYearPenalty([]int{2019, 2020, 2021}), ShouldAlmostEqual, 0.5, 1e-9)
			So(scoring.ConsecutiveYearPenalty([]int{2018, 2019, 2020, 2021}), ShouldAlmostEqual, 0.8, 1e-9)
			So(scoring.ConsecutiveYearPenalty([]int{2015, 2016, 2017, 2018, 2019, 2020}), ShouldAlmostEqual, 1.0, 1e-9)
			So(scoring.ConsecutiveYearPenalty([]int{2010, 2011, 2015, 2016, 2017}), ShouldAlmostEqual, 0.7, 1e-9)
			So(scoring.ConsecutiveYearPenalty([]int{2000, 2005, 2010}), ShouldEqual, 0)
		})

		Convey("A repeated year breaks a run", func() {
			So(scoring.ConsecutiveYearPenalty([]int{2019, 2020, 2020, 2021}), ShouldAlmostEqual, 0.4, 1e-9)
		})

		Convey("Overlap adds 0.1 per extra fire in a year", func() {
			So(scoring.OverlapPenalty([]int{2020, 2021}), ShouldEqual, 0)
			So(scoring.OverlapPenalty([]int{2020, 2020, 2020, 2021, 2021}), ShouldAlmostEqual, 0.3, 1e-9)
		})

		Convey("Real-time terms are additive", func() {
			So(scoring.RealTimeScore(model.Reading{Temperature: 50, AirQuality: model.Float(210)}), ShouldEqual, 5)
			So(scoring.RealTimeScore(model.Reading{Temperature: 10}), ShouldEqual, 0)
			So(scoring.RealTimeScore(model.Reading{Temperature: 35, AirQuality: model.Float(150)}), ShouldEqual, 3.5)
			So(scoring.RealTimeScore(model.Reading{Temperature: 25, AirQuality: model.Float(100)}), ShouldEqual, 2)

			all := model.Reading{
				Temperature:  45,
				AirQuality:   model.Float(200),
				DrynessIndex: model.Float(80),
				Humidity:     model.Float(19.9),
				WindSpeed:    model.Float(40.1),
				TimeOfDay:    model.Int(13),
			}
			So(scoring.RealTimeScore(all), ShouldEqual, 9.5)

			edges := model.Reading{
				Temperature:  0,
				DrynessIndex: model.Float(60),
				Humidity:     model.Float(20),
				WindSpeed:    model.Float(40),
				TimeOfDay:    model.Int(18),
			}
			So(scoring.RealTimeScore(edges), ShouldEqual, 1)
		})

		Convey("Totals map to levels at exact boundaries", func() {
			So(scoring.LevelForTotal(35), ShouldEqual, model.LevelExtreme)
			So(scoring.LevelForTotal(34.99), ShouldEqual, model.LevelVeryHigh)
			So(scoring.LevelForTotal(20), ShouldEqual, model.LevelVeryHigh)
			So(scoring.LevelForTotal(12), ShouldEqual, model.LevelHigh)
			So(scoring.LevelForTotal(6), ShouldEqual, model.LevelMedium)
			So(scoring.LevelForTotal(5), ShouldEqual, model.LevelLow)
			So(scoring.LevelForTotal(2), ShouldEqual, model.LevelLow)
			So(scoring.LevelForTotal(1.99), ShouldEqual, model.LevelNoRisk)
		})
	})
}
