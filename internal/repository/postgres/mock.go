package postgres

import (
	"context"

	"github.com/roadwatch/backend/internal/domain"
)

// MockRepository implements domain.HazardProvider with built-in Tarragona demo data
type MockRepository struct{}

// NewMockRepository creates a new mock repository
func NewMockRepository() *MockRepository {
	return &MockRepository{}
}

// Zones returns demo accident clusters around Tarragona and Reus
func (r *MockRepository) Zones(ctx context.Context) ([]domain.HazardZone, error) {
	return []domain.HazardZone{
		{Location: domain.Coordinate{Lat: 41.1189, Lng: 1.2445}, Severity: 14},
		{Location: domain.Coordinate{Lat: 41.1250, Lng: 1.2580}, Severity: 6},
		{Location: domain.Coordinate{Lat: 41.1561, Lng: 1.1069}, Severity: 22},
		{Location: domain.Coordinate{Lat: 41.0763, Lng: 1.1295}, Severity: 9},
		{Location: domain.Coordinate{Lat: 41.1386, Lng: 1.3942}, Severity: 11},
	}, nil
}

// FixedHazards returns demo speed cameras on the A-7 and N-340
func (r *MockRepository) FixedHazards(ctx context.Context) ([]domain.FixedHazard, error) {
	return []domain.FixedHazard{
		{Location: domain.Coordinate{Lat: 41.1302, Lng: 1.2201}},
		{Location: domain.Coordinate{Lat: 41.1094, Lng: 1.1803}},
		{Location: domain.Coordinate{Lat: 41.1447, Lng: 1.3103}},
	}, nil
}

// FatalityPercent returns a fixed demo figure
func (r *MockRepository) FatalityPercent(ctx context.Context) (float64, error) {
	return 1.8, nil
}

// DeathCount returns fixed demo figures
func (r *MockRepository) DeathCount(ctx context.Context) (int, int, error) {
	return 23, 1274, nil
}

// Health always returns nil in mock mode
func (r *MockRepository) Health(ctx context.Context) error {
	return nil
}
