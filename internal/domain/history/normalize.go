// Package history turns the heterogeneous historical wildfire files into a
// single read-only dataset of canonical fire records.
//
// Two source dialects exist: one encodes the fire date as integer
// Year/Month/Day fields, the other as an ISO "date" string. Cause codes and
// severity spellings also vary between sources.
package history

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/okian/emberwatch/internal/domain/geo"
	"github.com/okian/emberwatch/internal/domain/model"
)

const unknownFireID = "unknown-id"

// Raw is one undecoded source object.
type Raw map[string]any

// dateLayouts are the accepted spellings of the "date" field.
var dateLayouts = []string{
	model.DateLayout,
	time.RFC3339,
	"2006/01/02",
}

// Normalize converts a raw record into canonical form. The boolean is false
// when the record has no usable location and must be dropped.
func Normalize(raw Raw) (model.FireRecord, bool) {
	loc, ok := normalizeLocation(raw["location"])
	if !ok {
		return model.FireRecord{}, false
	}

	rec := model.FireRecord{
		FireID:     normalizeFireID(raw["fire_id"]),
		Date:       normalizeDate(raw),
		Cause:      NormalizeCause(raw["cause"]),
		AreaBurned: normalizeArea(raw["area_burned"]),
		Severity:   NormalizeSeverity(raw["severity"]),
		Location:   loc,
	}
	if name, ok := raw["incident_name"].(string); ok {
		rec.IncidentName = &name
	}
	return rec, true
}

// normalizeDate builds YYYY-MM-DD from the Year/Month/Day dialect, falls back
// to the ISO date string, and finally to the unknown-date sentinel.
func normalizeDate(raw Raw) string {
	if _, present := raw["Year"]; present {
		if year, ok := intValue(raw["Year"]); ok && year > 0 && year <= 9999 {
			month, ok := intValue(raw["Month"])
			if !ok || month < 1 || month > 12 {
				month = 1
			}
			day, ok := intValue(raw["Day"])
			if !ok || day < 1 || day > 31 {
				day = 1
			}
			return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
		}
	}

	if s, ok := raw["date"].(string); ok {
		s = strings.TrimSpace(s)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.Format(model.DateLayout)
			}
		}
	}
	return model.UnknownDate
}

// NormalizeCause maps source cause codes onto the canonical vocabulary.
func NormalizeCause(v any) string {
	s, ok := v.(string)
	if !ok {
		return model.CauseUnknown
	}
	c := strings.ToUpper(strings.TrimSpace(s))
	switch c {
	case "":
		return model.CauseUnknown
	case "LTG":
		return model.CauseLightning
	case "MAN", "PERSON":
		return model.CauseHuman
	}
	return c
}

// NormalizeSeverity lowercases severity buckets and folds the spellings the
// sources disagree on.
func NormalizeSeverity(v any) string {
	s, ok := v.(string)
	if !ok {
		return model.SeverityLow
	}
	sev := strings.ToLower(strings.TrimSpace(s))
	switch {
	case sev == "":
		return model.SeverityLow
	case strings.Contains(sev, "very low"):
		return "low"
	case strings.Contains(sev, "extreme"):
		return "extreme"
	case strings.Contains(sev, "very high"):
		return "very high"
	}
	return sev
}

func normalizeArea(v any) float64 {
	f, ok := floatValue(v)
	if !ok || f < 0 {
		return 0
	}
	return f
}

func normalizeFireID(v any) string {
	switch id := v.(type) {
	case string:
		if strings.TrimSpace(id) != "" {
			return id
		}
	case json.Number:
		return id.String()
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	}
	return unknownFireID
}

func normalizeLocation(v any) (model.Location, bool) {
	obj, ok := v.(map[string]any)
	if !ok {
		return model.Location{}, false
	}
	lat, ok := floatValue(obj["latitude"])
	if !ok {
		return model.Location{}, false
	}
	lng, ok := floatValue(obj["longitude"])
	if !ok {
		return model.Location{}, false
	}
	loc := model.Location{Lat: lat, Lng: lng}
	if geo.Validate(loc) != nil {
		return model.Location{}, false
	}
	return loc, true
}

// floatValue accepts JSON numbers only. Numeric strings are not coerced.
func floatValue(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// intValue accepts numbers and numeric strings, truncating fractions.
func intValue(v any) (int, bool) {
	switch n := v.(type) {
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		f, ok := floatValue(v)
		if !ok {
			return 0, false
		}
		return int(f), true
	}
}
