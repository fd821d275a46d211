package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/okian/emberwatch/internal/domain/geo"
	"github.com/okian/emberwatch/internal/domain/model"
	"github.com/okian/emberwatch/internal/domain/scoring"
)

// Reading parameter names accepted from query strings, forms and JSON bodies.
const (
	paramTemperature  = "Temperature"
	paramAirQuality   = "AirQuality"
	paramLat          = "LocationLat"
	paramLng          = "LocationLong"
	paramWindSpeed    = "WindSpeed"
	paramHumidity     = "Humidity"
	paramDrynessIndex = "DrynessIndex"
	paramTimeOfDay    = "TimeOfDay"

	maxBodyBytes = 1 << 20
)

var errMissingTemperature = errors.New("missing Temperature")

// readParams merges the query string with a form or JSON body.
func readParams(w http.ResponseWriter, r *http.Request) (url.Values, error) {
	values := url.Values{}
	for k, vs := range r.URL.Query() {
		values[k] = append(values[k], vs...)
	}
	if r.Method != http.MethodPost || r.Body == nil || r.Body == http.NoBody {
		return values, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := decodeJSONParams(r.Body, values); err != nil {
			return nil, err
		}
		return values, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("invalid form body: %w", err)
	}
	for k, vs := range r.PostForm {
		values[k] = append(vs, values[k]...)
	}
	return values, nil
}

// decodeJSONParams flattens a JSON object of scalars into values. Body
// fields take precedence over the query string.
func decodeJSONParams(body io.Reader, values url.Values) error {
	dec := json.NewDecoder(body)
	dec.UseNumber()

	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	for k, v := range fields {
		switch val := v.(type) {
		case nil:
		case json.Number:
			values.Set(k, val.String())
		case string:
			values.Set(k, val)
		default:
			return fmt.Errorf("invalid JSON body: %s must be a number", k)
		}
	}
	return nil
}

// parseReading builds a reading from request parameters. It returns
// errMissingTemperature when no temperature was sent; any other error means
// a parameter was present but malformed.
func parseReading(values url.Values) (model.Reading, error) {
	raw := strings.TrimSpace(values.Get(paramTemperature))
	if raw == "" {
		return model.Reading{}, errMissingTemperature
	}
	temp, err := parseFloat(paramTemperature, raw)
	if err != nil {
		return model.Reading{}, err
	}

	reading := model.Reading{Temperature: temp}
	optional := []struct {
		name string
		dst  **float64
	}{
		{paramAirQuality, &reading.AirQuality},
		{paramWindSpeed, &reading.WindSpeed},
		{paramHumidity, &reading.Humidity},
		{paramDrynessIndex, &reading.DrynessIndex},
	}
	for _, p := range optional {
		v, ok, err := optionalFloat(values, p.name)
		if err != nil {
			return model.Reading{}, err
		}
		if ok {
			*p.dst = &v
		}
	}
	if reading.DrynessIndex != nil && (*reading.DrynessIndex < 0 || *reading.DrynessIndex > scoring.MaxDrynessIndex) {
		return model.Reading{}, fmt.Errorf("%s must be between 0 and %d", paramDrynessIndex, scoring.MaxDrynessIndex)
	}

	if raw := strings.TrimSpace(values.Get(paramTimeOfDay)); raw != "" {
		hour, err := strconv.Atoi(raw)
		if err != nil || hour < 0 || hour > scoring.MaxHour {
			return model.Reading{}, fmt.Errorf("%s must be an hour between 0 and %d", paramTimeOfDay, scoring.MaxHour)
		}
		reading.TimeOfDay = &hour
	}

	loc, ok, err := parseLocation(values, paramLat, paramLng)
	if err != nil {
		return model.Reading{}, err
	}
	if ok {
		reading.Location = &loc
	}
	return reading, nil
}

// parseLocation needs both coordinates; a lone coordinate counts as absent.
func parseLocation(values url.Values, latKey, lngKey string) (model.Location, bool, error) {
	lat, hasLat, err := optionalFloat(values, latKey)
	if err != nil {
		return model.Location{}, false, err
	}
	lng, hasLng, err := optionalFloat(values, lngKey)
	if err != nil {
		return model.Location{}, false, err
	}
	if !hasLat || !hasLng {
		return model.Location{}, false, nil
	}
	loc := model.Location{Lat: lat, Lng: lng}
	if err := geo.Validate(loc); err != nil {
		return model.Location{}, false, err
	}
	return loc, true, nil
}

func optionalFloat(values url.Values, name string) (float64, bool, error) {
	raw := strings.TrimSpace(values.Get(name))
	if raw == "" {
		return 0, false, nil
	}
	v, err := parseFloat(name, raw)
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}

func parseFloat(name, raw string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%s must be a finite number, got %q", name, raw)
	}
	return v, nil
}
