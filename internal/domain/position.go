package domain

import "time"

// Provenance tells where the authoritative position came from
type Provenance string

const (
	ProvenanceReal      Provenance = "REAL"
	ProvenanceSimulated Provenance = "SIMULATED"
)

// AgentPosition is the single authoritative position of the agent.
type AgentPosition struct {
	Coordinate Coordinate `json:"coordinate"`
	Provenance Provenance `json:"provenance"`
	Fallback   bool       `json:"fallback"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// DefaultLat and DefaultLng are used when no device location is available (Tarragona).
const (
	DefaultLat = 41.1189
	DefaultLng = 1.2445
)

// DefaultCoordinate returns the built-in fallback position.
func DefaultCoordinate() Coordinate {
	return Coordinate{Lat: DefaultLat, Lng: DefaultLng}
}
