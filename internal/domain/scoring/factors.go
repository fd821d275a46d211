package scoring

import (
	"sort"
	"strings"
	"time"

	"github.com/okian/emberwatch/internal/domain/model"
)

const (
	largeFireAreaThreshold = 500.0
	maxFrequencyScore      = 5
	overlapPenaltyPerFire  = 0.1
	sameMonthMultiplier    = 1.15
	fireSeasonMultiplier   = 1.10
	daysPerYear            = 365
)

// SeverityValue weights a severity bucket: extreme and very high 3, high 2,
// medium 1, anything else 0.
func SeverityValue(severity string) float64 {
	s := strings.ToLower(severity)
	switch {
	case strings.Contains(s, "extreme"), strings.Contains(s, "very high"):
		return 3
	case strings.Contains(s, "high"):
		return 2
	case strings.Contains(s, "medium"):
		return 1
	}
	return 0
}

// AreaFactor boosts fires that burned more than 500 units of area.
func AreaFactor(areaBurned float64) float64 {
	if areaBurned > largeFireAreaThreshold {
		return 1.5
	}
	return 1.0
}

// AgeYears is the age of a fire in 365-day years at now.
func AgeYears(fire, now time.Time) float64 {
	return now.Sub(fire).Hours() / 24 / daysPerYear
}

// RecencyFactor buckets fire age in years.
func RecencyFactor(ageYears float64) float64 {
	switch {
	case ageYears <= 2:
		return 1.0
	case ageYears <= 5:
		return 0.8
	case ageYears <= 10:
		return 0.5
	}
	return 0.2
}

// SeasonalityFactor applies the same-month multiplier and, independently,
// the May to September fire season multiplier. Both may stack.
func SeasonalityFactor(fireMonth, currentMonth time.Month) float64 {
	factor := 1.0
	if fireMonth == currentMonth {
		factor = sameMonthMultiplier
	}
	if fireMonth >= time.May && fireMonth <= time.September {
		factor *= fireSeasonMultiplier
	}
	return factor
}

// CauseFactor weights lightning 1.2 and human 1.1, case-insensitively.
func CauseFactor(cause string) float64 {
	switch strings.ToLower(cause) {
	case "lightning":
		return 1.2
	case "human":
		return 1.1
	}
	return 1.0
}

// DistanceFactor falls off linearly from 1 at the reading to 0 at the radius.
func DistanceFactor(distanceKm, radiusKm float64) float64 {
	remainder := radiusKm - distanceKm
	if remainder <= 0 || radiusKm <= 0 {
		return 0
	}
	return remainder / radiusKm
}

// FrequencyScore counts nearby fires, capped at 5.
func FrequencyScore(count int) float64 {
	if count > maxFrequencyScore {
		return maxFrequencyScore
	}
	return float64(count)
}

// ConsecutiveYearPenalty sums a penalty for every run of consecutive years.
// Years are sorted with duplicates kept, so a repeated year ends a run.
func ConsecutiveYearPenalty(years []int) float64 {
	if len(years) < 2 {
		return 0
	}
	sorted := make([]int, len(years))
	copy(sorted, years)
	sort.Ints(sorted)

	total := 0.0
	run := 1
	for i := 0; i < len(sorted)-1; i++ {
		if sorted[i+1] == sorted[i]+1 {
			run++
			continue
		}
		total += runPenalty(run)
		run = 1
	}
	return total + runPenalty(run)
}

func runPenalty(run int) float64 {
	switch {
	case run < 2:
		return 0
	case run == 2:
		return 0.2
	case run == 3:
		return 0.5
	case run == 4:
		return 0.8
	}
	return 1.0
}

// OverlapPenalty adds 0.1 for every fire beyond the first in the same year.
func OverlapPenalty(years []int) float64 {
	counts := make(map[int]int, len(years))
	for _, y := range years {
		counts[y]++
	}
	extra := 0
	for _, c := range counts {
		if c > 1 {
			extra += c - 1
		}
	}
	return float64(extra) * overlapPenaltyPerFire
}

// RealTimeScore scores the live conditions of a reading. Every term is
// additive and independent.
func RealTimeScore(r model.Reading) float64 {
	score := 0.0

	switch {
	case r.Temperature >= 45:
		score += 3
	case r.Temperature >= 35:
		score += 2
	case r.Temperature >= 25:
		score++
	}

	if r.AirQuality != nil {
		switch aq := *r.AirQuality; {
		case aq >= 200:
			score += 2
		case aq >= 150:
			score += 1.5
		case aq >= 100:
			score++
		}
	}

	if r.DrynessIndex != nil {
		switch d := *r.DrynessIndex; {
		case d >= 80:
			score += 2
		case d >= 60:
			score++
		}
	}

	if r.Humidity != nil && *r.Humidity < 20 {
		score++
	}
	if r.WindSpeed != nil && *r.WindSpeed > 40 {
		score++
	}
	if r.TimeOfDay != nil && *r.TimeOfDay >= 13 && *r.TimeOfDay <= 17 {
		score += 0.5
	}
	return score
}

// LevelForTotal maps a composite score to a danger level.
func LevelForTotal(total float64) model.Level {
	switch {
	case total >= 35:
		return model.LevelExtreme
	case total >= 20:
		return model.LevelVeryHigh
	case total >= 12:
		return model.LevelHigh
	case total >= 6:
		return model.LevelMedium
	case total >= 2:
		return model.LevelLow
	}
	return model.LevelNoRisk
}
