package domain

import (
	"strconv"
	"time"

	"github.com/roadwatch/backend/pkg/utils"
)

// RouteSummary is replaced wholesale on every successful computation.
type RouteSummary struct {
	Origin      Coordinate   `json:"origin"`
	Destination Coordinate   `json:"destination"`
	DistanceKm  float64      `json:"distance_km"`
	DurationMin int          `json:"duration_min"`
	Path        []Coordinate `json:"path"`
	ComputedAt  time.Time    `json:"computed_at"`
}

// NewRouteSummary converts provider units (meters, seconds) into the summary units.
func NewRouteSummary(origin, destination Coordinate, distanceMeters, durationSeconds float64, path []Coordinate) RouteSummary {
	p := make([]Coordinate, len(path))
	copy(p, path)
	return RouteSummary{
		Origin:      origin,
		Destination: destination,
		DistanceKm:  utils.RoundTo(distanceMeters/1000, 1),
		DurationMin: int(utils.RoundTo(durationSeconds/60, 0)),
		Path:        p,
		ComputedAt:  time.Now(),
	}
}

// DistanceLabel renders the distance with one decimal, e.g. "4.2".
func (r RouteSummary) DistanceLabel() string {
	return strconv.FormatFloat(r.DistanceKm, 'f', 1, 64)
}

// Clone returns a deep copy so callers cannot mutate the committed path.
func (r RouteSummary) Clone() RouteSummary {
	out := r
	out.Path = make([]Coordinate, len(r.Path))
	copy(out.Path, r.Path)
	return out
}
