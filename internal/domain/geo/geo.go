// Package geo holds the great-circle math shared by the scorer and the zone store.
package geo

import (
	"errors"
	"fmt"
	"math"

	"github.com/okian/emberwatch/internal/domain/model"
)

// EarthRadiusKm is the mean earth radius used by DistanceKm.
const EarthRadiusKm = 6371.0

// kmPerDegreeLat is the length of one degree of latitude, used for cheap
// bounding-box pre-filters.
const kmPerDegreeLat = math.Pi * EarthRadiusKm / 180

// ErrInvalidLocation is returned by Validate.
var ErrInvalidLocation = errors.New("invalid location")

func toRad(d float64) float64 { return d * math.Pi / 180 }

// DistanceKm returns the Haversine distance between a and b in kilometres.
func DistanceKm(a, b model.Location) float64 {
	dLat := toRad(b.Lat - a.Lat)
	dLng := toRad(b.Lng - a.Lng)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * EarthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// LatSpan returns how many degrees of latitude cover radiusKm. Any point
// farther than that in latitude alone is outside the radius.
func LatSpan(radiusKm float64) float64 {
	return radiusKm / kmPerDegreeLat
}

// Validate checks that loc is finite and inside WGS84 bounds.
func Validate(loc model.Location) error {
	switch {
	case math.IsNaN(loc.Lat) || math.IsInf(loc.Lat, 0):
		return fmt.Errorf("%w: latitude is not finite", ErrInvalidLocation)
	case math.IsNaN(loc.Lng) || math.IsInf(loc.Lng, 0):
		return fmt.Errorf("%w: longitude is not finite", ErrInvalidLocation)
	case loc.Lat < -90 || loc.Lat > 90:
		return fmt.Errorf("%w: latitude %v out of range", ErrInvalidLocation, loc.Lat)
	case loc.Lng < -180 || loc.Lng > 180:
		return fmt.Errorf("%w: longitude %v out of range", ErrInvalidLocation, loc.Lng)
	}
	return nil
}
