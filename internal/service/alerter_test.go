package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roadwatch/backend/internal/domain"
)

func scenarioCatalog() *domain.Catalog {
	return domain.NewCatalog(
		[]domain.HazardZone{{Location: domain.Coordinate{Lat: 41.10, Lng: 1.20}, Severity: 15}},
		nil,
		time.Now(),
	)
}

func TestAlerterEmitsRiskAlertInsideRadius(t *testing.T) {
	a := NewProximityAlerter(1000, nil, quietLogger())
	var delivered []domain.AlertEvent
	a.Subscribe(func(ev domain.AlertEvent) { delivered = append(delivered, ev) })

	pos := domain.Coordinate{Lat: 41.103, Lng: 1.20}
	events := a.Evaluate(context.Background(), pos, scenarioCatalog())

	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, domain.ClassRisk, ev.Class)
	assert.Equal(t, "zone:41.100000,1.200000", ev.Hazard.ID())
	assert.Equal(t, pos, ev.Position)
	assert.InDelta(t, 333, ev.DistanceMeters, 2)
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, events, delivered)
}

func TestAlerterAtHazardPoint(t *testing.T) {
	a := NewProximityAlerter(1000, nil, quietLogger())

	events := a.Evaluate(context.Background(), domain.Coordinate{Lat: 41.10, Lng: 1.20}, scenarioCatalog())

	require.Len(t, events, 1)
	assert.InDelta(t, 0, events[0].DistanceMeters, 1e-6)
}

func TestAlerterSilentFiftyKilometersAway(t *testing.T) {
	a := NewProximityAlerter(1000, nil, quietLogger())

	events := a.Evaluate(context.Background(), domain.Coordinate{Lat: 41.55, Lng: 1.20}, scenarioCatalog())

	assert.Empty(t, events)
	assert.Empty(t, a.Recent(10))
}

func TestAlerterClassifiesEveryHazard(t *testing.T) {
	catalog := domain.NewCatalog(
		[]domain.HazardZone{
			{Location: domain.Coordinate{Lat: 41.100, Lng: 1.200}, Severity: 3},
			{Location: domain.Coordinate{Lat: 41.101, Lng: 1.201}, Severity: 10},
		},
		[]domain.FixedHazard{{Location: domain.Coordinate{Lat: 41.102, Lng: 1.200}}},
		time.Now(),
	)
	a := NewProximityAlerter(1000, nil, quietLogger())

	events := a.Evaluate(context.Background(), domain.Coordinate{Lat: 41.1005, Lng: 1.2005}, catalog)

	require.Len(t, events, 3)
	assert.Equal(t, domain.ClassAlert, events[0].Class)
	assert.Equal(t, domain.ClassRisk, events[1].Class)
	assert.Equal(t, domain.ClassFixed, events[2].Class)
}

func TestAlerterEmptyCatalog(t *testing.T) {
	a := NewProximityAlerter(1000, nil, quietLogger())

	assert.Empty(t, a.Evaluate(context.Background(), domain.DefaultCoordinate(), domain.EmptyCatalog()))
	assert.Empty(t, a.Evaluate(context.Background(), domain.DefaultCoordinate(), nil))
}

func TestAlerterCooldown(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	cooldown := NewMemoryCooldown(30 * time.Second)
	cooldown.now = func() time.Time { return now }

	a := NewProximityAlerter(1000, cooldown, quietLogger())
	pos := domain.Coordinate{Lat: 41.10, Lng: 1.20}

	assert.Len(t, a.Evaluate(context.Background(), pos, scenarioCatalog()), 1)
	assert.Empty(t, a.Evaluate(context.Background(), pos, scenarioCatalog()))

	now = now.Add(29 * time.Second)
	assert.Empty(t, a.Evaluate(context.Background(), pos, scenarioCatalog()))

	now = now.Add(time.Second)
	assert.Len(t, a.Evaluate(context.Background(), pos, scenarioCatalog()), 1)
}

func TestAlerterCooldownFollowsHazardAcrossReorder(t *testing.T) {
	a := NewProximityAlerter(1000, NewMemoryCooldown(30*time.Second), quietLogger())
	zoneA := domain.HazardZone{Location: domain.Coordinate{Lat: 41.10, Lng: 1.20}, Severity: 15}
	zoneB := domain.HazardZone{Location: domain.Coordinate{Lat: 41.20, Lng: 1.30}, Severity: 4}

	first := domain.NewCatalog([]domain.HazardZone{zoneA, zoneB}, nil, time.Now())
	assert.Len(t, a.Evaluate(context.Background(), zoneA.Location, first), 1)

	reordered := domain.NewCatalog([]domain.HazardZone{zoneB, zoneA}, nil, time.Now())
	events := a.Evaluate(context.Background(), zoneB.Location, reordered)
	require.Len(t, events, 1)
	assert.Equal(t, zoneB.Location, events[0].Hazard.Location)

	// A is still cooling down at its new index
	assert.Empty(t, a.Evaluate(context.Background(), zoneA.Location, reordered))
}

func TestAlerterZeroCooldownEmitsEveryEvaluation(t *testing.T) {
	a := NewProximityAlerter(1000, NewMemoryCooldown(0), quietLogger())
	pos := domain.Coordinate{Lat: 41.10, Lng: 1.20}

	for i := 0; i < 3; i++ {
		assert.Len(t, a.Evaluate(context.Background(), pos, scenarioCatalog()), 1)
	}
	assert.Len(t, a.Recent(0), 3)
}

func TestAlerterCooldownStoreFailureFailsOpen(t *testing.T) {
	a := NewProximityAlerter(1000, failingCooldown{}, quietLogger())

	events := a.Evaluate(context.Background(), domain.Coordinate{Lat: 41.10, Lng: 1.20}, scenarioCatalog())
	assert.Len(t, events, 1)
}

func TestAlerterPublishes(t *testing.T) {
	ok := &recordingPublisher{}
	broken := &recordingPublisher{err: errBoom}
	a := NewProximityAlerter(1000, nil, quietLogger(), ok, broken)

	events := a.Evaluate(context.Background(), domain.Coordinate{Lat: 41.10, Lng: 1.20}, scenarioCatalog())
	require.Len(t, events, 1)

	require.NoError(t, a.Close())
	assert.Equal(t, events, ok.published())
	assert.Len(t, broken.published(), 1)
	assert.True(t, ok.closed)
	assert.True(t, broken.closed)
}

func TestAlerterRecentNewestFirst(t *testing.T) {
	a := NewProximityAlerter(1000, nil, quietLogger())
	first := a.Evaluate(context.Background(), domain.Coordinate{Lat: 41.10, Lng: 1.20}, scenarioCatalog())
	second := a.Evaluate(context.Background(), domain.Coordinate{Lat: 41.101, Lng: 1.20}, scenarioCatalog())

	recent := a.Recent(10)
	require.Len(t, recent, 2)
	assert.Equal(t, second[0].ID, recent[0].ID)
	assert.Equal(t, first[0].ID, recent[1].ID)

	assert.Len(t, a.Recent(1), 1)
}
