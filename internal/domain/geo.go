package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

// EarthRadiusMeters is the mean radius used for all great-circle distances.
const EarthRadiusMeters = 6371000.0

// Coordinate is a WGS84 point in degrees
type Coordinate struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

// Validate reports whether the coordinate is finite and inside the lat/lng ranges.
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Lat) || math.IsInf(c.Lat, 0) || math.IsNaN(c.Lng) || math.IsInf(c.Lng, 0) {
		return fmt.Errorf("%w: coordinates must be finite", ErrInvalidCoordinate)
	}
	if c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("%w: latitude must be between -90 and 90", ErrInvalidCoordinate)
	}
	if c.Lng < -180 || c.Lng > 180 {
		return fmt.Errorf("%w: longitude must be between -180 and 180", ErrInvalidCoordinate)
	}
	return nil
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lng)
}

// Distance returns the great-circle distance between a and b in meters.
func Distance(a, b Coordinate) float64 {
	pa := s2.PointFromLatLng(s2.LatLngFromDegrees(a.Lat, a.Lng))
	pb := s2.PointFromLatLng(s2.LatLngFromDegrees(b.Lat, b.Lng))

	angle := s1.Angle(s2.ChordAngleBetweenPoints(pa, pb).Angle())
	return angle.Radians() * EarthRadiusMeters
}

// ParseCoordinate parses free-form destination input such as "41.1189, 1.2445",
// "41.1189 1.2445" or "[41.1189; 1.2445]". Any failure wraps ErrInvalidDestinationInput.
func ParseCoordinate(text string) (Coordinate, error) {
	trimmed := strings.TrimSpace(text)
	trimmed = strings.Trim(trimmed, "[]()")
	if trimmed == "" {
		return Coordinate{}, fmt.Errorf("%w: empty input", ErrInvalidDestinationInput)
	}

	fields := strings.FieldsFunc(trimmed, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\t'
	})
	if len(fields) != 2 {
		return Coordinate{}, fmt.Errorf("%w: expected \"lat, lng\", got %q", ErrInvalidDestinationInput, text)
	}

	lat, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return Coordinate{}, fmt.Errorf("%w: latitude %q is not a number", ErrInvalidDestinationInput, fields[0])
	}
	lng, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return Coordinate{}, fmt.Errorf("%w: longitude %q is not a number", ErrInvalidDestinationInput, fields[1])
	}

	c := Coordinate{Lat: lat, Lng: lng}
	if err := c.Validate(); err != nil {
		return Coordinate{}, fmt.Errorf("%w: %v", ErrInvalidDestinationInput, err)
	}
	return c, nil
}
