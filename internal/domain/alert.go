package domain

import (
	"time"

	"github.com/google/uuid"
)

// AlertEvent is emitted when the agent is inside a hazard's alert radius. Not persisted.
type AlertEvent struct {
	ID             string      `json:"id"`
	Hazard         Hazard      `json:"hazard"`
	Class          HazardClass `json:"class"`
	DistanceMeters float64     `json:"distance_meters"`
	Position       Coordinate  `json:"position"`
	Timestamp      time.Time   `json:"timestamp"`
}

func NewAlertEvent(h Hazard, position Coordinate, distance float64, at time.Time) AlertEvent {
	return AlertEvent{
		ID:             uuid.NewString(),
		Hazard:         h,
		Class:          h.Class,
		DistanceMeters: distance,
		Position:       position,
		Timestamp:      at,
	}
}
