package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roadwatch/backend/internal/domain"
)

func hazardAPI(t *testing.T, routes map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := routes[r.URL.Path]
		if !ok {
			http.Error(w, "not found", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPHazardProvider(t *testing.T) {
	srv := hazardAPI(t, map[string]string{
		"/hotZones":        `[[[41.10, 1.20], 15], [[41.12, 1.25], 3]]`,
		"/radarList":       `[[41.13, 1.22], [41.14, 1.23]]`,
		"/percentFatality": `2.5`,
		"/deathCount":      `[12, 480]`,
	})
	p := NewHTTPHazardProvider(srv.URL+"/", time.Second)
	ctx := context.Background()

	zones, err := p.Zones(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.HazardZone{
		{Location: domain.Coordinate{Lat: 41.10, Lng: 1.20}, Severity: 15},
		{Location: domain.Coordinate{Lat: 41.12, Lng: 1.25}, Severity: 3},
	}, zones)

	fixed, err := p.FixedHazards(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.FixedHazard{
		{Location: domain.Coordinate{Lat: 41.13, Lng: 1.22}},
		{Location: domain.Coordinate{Lat: 41.14, Lng: 1.23}},
	}, fixed)

	pct, err := p.FatalityPercent(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2.5, pct)

	deaths, accidents, err := p.DeathCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 12, deaths)
	assert.Equal(t, 480, accidents)
}

func TestHTTPHazardProviderErrors(t *testing.T) {
	srv := hazardAPI(t, map[string]string{
		"/hotZones":   `[[[41.10, 1.20]]]`,
		"/radarList":  `{"not": "a list"}`,
		"/deathCount": `[12]`,
	})
	p := NewHTTPHazardProvider(srv.URL, time.Second)
	ctx := context.Background()

	_, err := p.Zones(ctx)
	assert.Error(t, err)

	_, err = p.FixedHazards(ctx)
	assert.Error(t, err)

	_, err = p.FatalityPercent(ctx)
	assert.ErrorContains(t, err, "status 500")

	_, _, err = p.DeathCount(ctx)
	assert.ErrorContains(t, err, "expected 2")
}

func TestHTTPHazardProviderFeedsCatalog(t *testing.T) {
	srv := hazardAPI(t, map[string]string{
		"/hotZones": `[[[41.10, 1.20], 15], [[123.0, 1.25], 3]]`,
	})
	c := NewHazardCatalog(NewHTTPHazardProvider(srv.URL, time.Second), time.Second, quietLogger())

	err := c.Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrCatalogUnavailable)

	// the invalid zone is skipped, the failed radar list contributes nothing
	assert.Equal(t, 1, c.Snapshot().ZoneCount())
	assert.Equal(t, 0, c.Snapshot().FixedCount())
}
