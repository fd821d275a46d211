package scoring

import (
	"fmt"

	"github.com/okian/emberwatch/internal/domain/model"
)

const noConcernsDescription = "No significant environmental concerns detected."

// TemperatureLevel buckets a temperature in degrees Celsius.
func TemperatureLevel(celsius float64) model.Level {
	switch {
	case celsius >= 60:
		return model.LevelExtreme
	case celsius >= 45:
		return model.LevelVeryHigh
	case celsius >= 35:
		return model.LevelHigh
	case celsius >= 25:
		return model.LevelMedium
	case celsius >= 15:
		return model.LevelLow
	case celsius >= 5:
		return model.LevelNormal
	}
	return model.LevelNoRisk
}

// AirQualityLevel buckets an air quality index. A missing index carries no risk.
func AirQualityLevel(aqi *float64) model.Level {
	if aqi == nil {
		return model.LevelNoRisk
	}
	switch v := *aqi; {
	case v >= 300:
		return model.LevelExtreme
	case v >= 200:
		return model.LevelVeryHigh
	case v >= 150:
		return model.LevelHigh
	case v >= 100:
		return model.LevelMedium
	case v >= 50:
		return model.LevelLow
	}
	return model.LevelNormal
}

// Fallback assesses a reading from thresholds alone, without location or
// history. The result is the higher of the temperature and air quality levels.
func Fallback(r model.Reading) Assessment {
	temp := TemperatureLevel(r.Temperature)
	aqi := AirQualityLevel(r.AirQuality)
	level := model.MaxLevel(temp, aqi)

	desc := noConcernsDescription
	if level != model.LevelNoRisk {
		desc = fmt.Sprintf("Temperature classification: %s. AQI classification: %s.", temp, aqi)
	}
	return Assessment{Level: level, Explanation: desc}
}
