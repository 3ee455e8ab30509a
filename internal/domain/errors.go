package domain

import "errors"

// None of these are fatal: callers degrade to a fallback or to the last known good state.
var (
	ErrLocationUnavailable     = errors.New("location unavailable")
	ErrCatalogUnavailable      = errors.New("hazard catalog unavailable")
	ErrRouteComputationFailed  = errors.New("route computation failed")
	ErrInvalidDestinationInput = errors.New("invalid destination input")
	ErrInvalidCoordinate       = errors.New("invalid coordinate")
	ErrNoRoute                 = errors.New("routing provider returned no routes")
	ErrNoHazards               = errors.New("no hazard zones available")
	ErrEmptyPath               = errors.New("path has no points")
)
