package geo

import (
	"encoding/json"
	"fmt"
	"math"
)

// EarthRadiusMeters is the mean radius of Earth used for Haversine distance.
const EarthRadiusMeters = 6_371_000.0

// Point is a WGS84 coordinate. It serializes as [longitude, latitude].
type Point struct {
	Lng float64
	Lat float64
}

// NewPoint creates a validated point.
func NewPoint(lng, lat float64) (Point, error) {
	if !ValidateCoordinates(lat, lng) {
		return Point{}, fmt.Errorf("coordinate [%v,%v] out of range", lng, lat)
	}
	return Point{Lng: lng, Lat: lat}, nil
}

// DistanceTo returns the great-circle distance to other in meters.
func (p Point) DistanceTo(other Point) float64 {
	return Haversine(p.Lat, p.Lng, other.Lat, other.Lng)
}

// MarshalJSON encodes the point as [lng, lat].
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.Lng, p.Lat})
}

// UnmarshalJSON decodes a [lng, lat] pair.
func (p *Point) UnmarshalJSON(data []byte) error {
	var pair []float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("decode point: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("point must have 2 components, got %d", len(pair))
	}
	pt, err := NewPoint(pair[0], pair[1])
	if err != nil {
		return err
	}
	*p = pt
	return nil
}

// Haversine returns the great-circle distance in meters between two points
// specified by latitude and longitude in degrees.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	lat1r := lat1 * math.Pi / 180
	lat2r := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1r)*math.Cos(lat2r)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMeters * c
}

// ValidateCoordinates checks that latitude is in [-90,90] and longitude in [-180,180].
// NaN fails every comparison and is rejected.
func ValidateCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
