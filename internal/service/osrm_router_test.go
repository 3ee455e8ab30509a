package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roadwatch/backend/internal/domain"
)

func TestOSRMRouterRoute(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"code": "Ok",
			"routes": [
				{"distance": 4200, "duration": 600, "geometry": "_p~iF~ps|U_ulLnnqC_mqNvxq` + "`" + `@"},
				{"distance": 9999, "duration": 9999, "geometry": ""}
			]
		}`))
	}))
	defer srv.Close()

	origin := domain.Coordinate{Lat: 41.1189, Lng: 1.2445}
	dest := domain.Coordinate{Lat: 41.1561, Lng: 1.1069}

	r, err := NewOSRMRouter(srv.URL, time.Second).Route(context.Background(), origin, dest)
	require.NoError(t, err)

	assert.Equal(t, "/route/v1/driving/1.244500,41.118900;1.106900,41.156100", gotPath)
	assert.Contains(t, gotQuery, "overview=full")
	assert.Contains(t, gotQuery, "geometries=polyline")
	assert.Contains(t, gotQuery, "alternatives=false")

	assert.Equal(t, "4.2", r.DistanceLabel())
	assert.Equal(t, 10, r.DurationMin)
	assert.Equal(t, origin, r.Origin)
	assert.Equal(t, dest, r.Destination)
	require.Len(t, r.Path, 3)
	assert.InDelta(t, 38.5, r.Path[0].Lat, 1e-9)
	assert.InDelta(t, -120.2, r.Path[0].Lng, 1e-9)
}

func TestOSRMRouterNoRoute(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"no route code", http.StatusBadRequest, `{"code": "NoRoute", "message": "Impossible route"}`},
		{"empty routes", http.StatusOK, `{"code": "Ok", "routes": []}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewOSRMRouter(srv.URL, time.Second).Route(context.Background(), home, reus)
			assert.True(t, errors.Is(err, domain.ErrNoRoute))
		})
	}
}

func TestOSRMRouterFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewOSRMRouter(srv.URL, time.Second).Route(context.Background(), home, reus)
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrNoRoute))
}

func TestOSRMRouterTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	_, err := NewOSRMRouter(srv.URL, 50*time.Millisecond).Route(context.Background(), home, reus)
	assert.Error(t, err)
}

func TestOSRMRouterHealth(t *testing.T) {
	var gotPath string
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"code": "Ok"}`))
	}))
	defer healthy.Close()

	require.NoError(t, NewOSRMRouter(healthy.URL, time.Second).Health(context.Background()))
	assert.Equal(t, "/nearest/v1/driving/1.244500,41.118900", gotPath)

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()

	assert.ErrorContains(t, NewOSRMRouter(down.URL, time.Second).Health(context.Background()), "status 503")
}
