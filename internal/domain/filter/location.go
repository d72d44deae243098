package filter

import (
	"math"
	"strconv"
	"strings"

	"github.com/kailas-cloud/directory/internal/domain"
	"github.com/kailas-cloud/directory/internal/domain/geo"
)

// PostalLookup resolves postal codes to coordinates.
type PostalLookup interface {
	Lookup(code string) (geo.Point, bool)
}

// ResolveLocation parses "lng,lat,maxDistance" or "postalCode,maxDistance"
// into a proximity predicate.
func ResolveLocation(raw string, postal PostalLookup) (Location, error) {
	parts := strings.Split(raw, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	switch len(parts) {
	case 3:
		lng, err := strconv.ParseFloat(parts[0], 64)
		if err != nil || math.IsNaN(lng) {
			return Location{}, &domain.LocationError{Raw: raw, Reason: "longitude is not a number"}
		}
		lat, err := strconv.ParseFloat(parts[1], 64)
		if err != nil || math.IsNaN(lat) {
			return Location{}, &domain.LocationError{Raw: raw, Reason: "latitude is not a number"}
		}
		if !geo.ValidateCoordinates(lat, lng) {
			return Location{}, &domain.LocationError{Raw: raw, Reason: "coordinate out of range"}
		}
		radius, err := parseRadius(raw, parts[2])
		if err != nil {
			return Location{}, err
		}
		return Location{Coordinate: &geo.Point{Lng: lng, Lat: lat}, MaxDistanceMeters: radius}, nil

	case 2:
		radius, err := parseRadius(raw, parts[1])
		if err != nil {
			return Location{}, err
		}
		if parts[0] == "" {
			return Location{}, &domain.LocationError{Raw: raw, Reason: "postal code is empty"}
		}
		if postal == nil {
			return Location{}, &domain.PostalCodeError{Code: parts[0]}
		}
		p, ok := postal.Lookup(parts[0])
		if !ok {
			return Location{}, &domain.PostalCodeError{Code: parts[0]}
		}
		return Location{Coordinate: &p, MaxDistanceMeters: radius}, nil

	default:
		return Location{}, &domain.LocationError{
			Raw:    raw,
			Reason: "expected lng,lat,maxDistance or postalCode,maxDistance",
		}
	}
}

func parseRadius(raw, s string) (float64, error) {
	r, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(r) || math.IsInf(r, 0) || r < 0 {
		return 0, &domain.LocationError{Raw: raw, Reason: "max distance must be a non-negative number"}
	}
	return r, nil
}
