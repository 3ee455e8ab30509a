package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roadwatch/backend/internal/domain"
)

func TestPositionSourceFallsBackWhenLocationUnavailable(t *testing.T) {
	provider := StaticLocationProvider{Err: domain.ErrLocationUnavailable}
	src := NewPositionSource(provider, domain.DefaultCoordinate(), quietLogger())

	src.StartTracking(context.Background())
	defer src.Stop()

	pos, ok := src.Current()
	require.True(t, ok)
	assert.Equal(t, domain.Coordinate{Lat: 41.1189, Lng: 1.2445}, pos.Coordinate)
	assert.Equal(t, domain.ProvenanceReal, pos.Provenance)
	assert.True(t, pos.Fallback)
}

func TestPositionSourceGetPositionOnce(t *testing.T) {
	src := NewPositionSource(StaticLocationProvider{Err: errBoom}, domain.DefaultCoordinate(), quietLogger())

	_, err := src.GetPositionOnce(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrLocationUnavailable))

	c, fallback := src.PositionOrFallback(context.Background())
	assert.True(t, fallback)
	assert.Equal(t, domain.DefaultCoordinate(), c)

	fix := domain.Coordinate{Lat: 40.4168, Lng: -3.7038}
	src = NewPositionSource(StaticLocationProvider{Coord: fix}, domain.DefaultCoordinate(), quietLogger())
	c, fallback = src.PositionOrFallback(context.Background())
	assert.False(t, fallback)
	assert.Equal(t, fix, c)
}

func TestPositionSourceRealFixReplacesFallback(t *testing.T) {
	provider := NewPushLocationProvider()
	src := NewPositionSource(provider, domain.DefaultCoordinate(), quietLogger())
	rec := &positionRecorder{}
	src.Subscribe(rec.record)

	src.StartTracking(context.Background())
	defer src.Stop()

	pos, ok := src.Current()
	require.True(t, ok)
	assert.True(t, pos.Fallback)

	fix := domain.Coordinate{Lat: 41.15, Lng: 1.11}
	require.NoError(t, provider.Push(fix))

	require.Eventually(t, func() bool {
		p, _ := src.Current()
		return p.Coordinate == fix
	}, time.Second, 5*time.Millisecond)

	pos, _ = src.Current()
	assert.Equal(t, domain.ProvenanceReal, pos.Provenance)
	assert.False(t, pos.Fallback)

	got := rec.all()
	require.Len(t, got, 2)
	assert.True(t, got[0].Fallback)
	assert.Equal(t, fix, got[1].Coordinate)
}

func TestPositionSourceSimulationOverridesReal(t *testing.T) {
	provider := NewPushLocationProvider()
	src := NewPositionSource(provider, domain.DefaultCoordinate(), quietLogger())
	src.StartTracking(context.Background())
	defer src.Stop()

	sim := domain.Coordinate{Lat: 41.10, Lng: 1.20}
	require.NoError(t, src.SetSimulatedPosition(sim))
	assert.True(t, src.IsSimulated())

	fix := domain.Coordinate{Lat: 41.20, Lng: 1.30}
	require.NoError(t, provider.Push(fix))

	// the real fix is recorded but never applied while simulated
	require.Eventually(t, func() bool {
		src.mu.Lock()
		defer src.mu.Unlock()
		return src.lastReal != nil && *src.lastReal == fix
	}, time.Second, 5*time.Millisecond)
	pos, _ := src.Current()
	assert.Equal(t, sim, pos.Coordinate)
	assert.Equal(t, domain.ProvenanceSimulated, pos.Provenance)

	src.ClearSimulation()
	assert.False(t, src.IsSimulated())

	pos, _ = src.Current()
	assert.Equal(t, fix, pos.Coordinate)
	assert.Equal(t, domain.ProvenanceReal, pos.Provenance)
}

func TestPositionSourceClearSimulationWithoutRealFix(t *testing.T) {
	src := NewPositionSource(StaticLocationProvider{Err: domain.ErrLocationUnavailable}, domain.DefaultCoordinate(), quietLogger())

	require.NoError(t, src.SetSimulatedPosition(domain.Coordinate{Lat: 10, Lng: 10}))
	src.ClearSimulation()

	pos, ok := src.Current()
	require.True(t, ok)
	assert.Equal(t, domain.DefaultCoordinate(), pos.Coordinate)
	assert.True(t, pos.Fallback)
}

func TestPositionSourceNotifiesOnlyOnChange(t *testing.T) {
	src := NewPositionSource(StaticLocationProvider{Err: domain.ErrLocationUnavailable}, domain.DefaultCoordinate(), quietLogger())
	rec := &positionRecorder{}
	unsubscribe := src.Subscribe(rec.record)

	c := domain.Coordinate{Lat: 41.10, Lng: 1.20}
	require.NoError(t, src.SetSimulatedPosition(c))
	require.NoError(t, src.SetSimulatedPosition(c))
	assert.Len(t, rec.all(), 1)

	unsubscribe()
	require.NoError(t, src.SetSimulatedPosition(domain.Coordinate{Lat: 41.11, Lng: 1.21}))
	assert.Len(t, rec.all(), 1)
}

func TestPositionSourceRejectsInvalidSimulatedPosition(t *testing.T) {
	src := NewPositionSource(StaticLocationProvider{}, domain.DefaultCoordinate(), quietLogger())

	err := src.SetSimulatedPosition(domain.Coordinate{Lat: 95, Lng: 0})
	assert.True(t, errors.Is(err, domain.ErrInvalidCoordinate))
	assert.False(t, src.IsSimulated())
}

func TestPushLocationProviderDeny(t *testing.T) {
	p := NewPushLocationProvider()

	_, err := p.Current(context.Background())
	assert.True(t, errors.Is(err, domain.ErrLocationUnavailable))

	require.NoError(t, p.Push(domain.Coordinate{Lat: 1, Lng: 2}))
	c, err := p.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.Coordinate{Lat: 1, Lng: 2}, c)

	p.Deny()
	_, err = p.Current(context.Background())
	assert.True(t, errors.Is(err, domain.ErrLocationUnavailable))

	assert.Error(t, p.Push(domain.Coordinate{Lat: 100, Lng: 0}))
}
