package domain

import (
	"context"
)

// HazardProvider is the read-only source of hazard data.
// Every method may fail independently of the others.
type HazardProvider interface {
	// Zones returns the accident clusters with their severity
	Zones(ctx context.Context) ([]HazardZone, error)

	// FixedHazards returns speed-enforcement points
	FixedHazards(ctx context.Context) ([]FixedHazard, error)

	// FatalityPercent returns the share of fatal accidents
	FatalityPercent(ctx context.Context) (float64, error)

	// DeathCount returns (deaths, accidents)
	DeathCount(ctx context.Context) (int, int, error)
}

// LocationProvider is the device-location boundary.
type LocationProvider interface {
	// Current returns a single fix or ErrLocationUnavailable
	Current(ctx context.Context) (Coordinate, error)

	// Watch streams fixes until ctx is done. The channel is closed on exit.
	Watch(ctx context.Context) (<-chan Coordinate, error)
}

// RoutingProvider computes a single route between two points.
type RoutingProvider interface {
	Route(ctx context.Context, origin, destination Coordinate) (RouteSummary, error)
}

// CooldownStore rate-limits alerts per hazard. Acquire reports true when the
// caller may emit and starts a new cooldown window.
type CooldownStore interface {
	Acquire(ctx context.Context, hazardID string) (bool, error)
}

// AlertPublisher fans alert events out to external consumers.
type AlertPublisher interface {
	PublishAlert(ctx context.Context, event AlertEvent) error
	Close() error
}
