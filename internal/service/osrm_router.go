package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/roadwatch/backend/internal/domain"
	"github.com/roadwatch/backend/pkg/utils"
)

const DefaultOSRMURL = "https://router.project-osrm.org"

// OSRMRouter computes driving routes through the OSRM HTTP API v1.
type OSRMRouter struct {
	baseURL    string
	httpClient *http.Client
}

// NewOSRMRouter creates a router for the OSRM server at baseURL
func NewOSRMRouter(baseURL string, timeout time.Duration) *OSRMRouter {
	if baseURL == "" {
		baseURL = DefaultOSRMURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &OSRMRouter{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// osrmResponse is the subset of the /route response we read
type osrmResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
		Geometry string  `json:"geometry"`
	} `json:"routes"`
}

// Route requests a single route with full geometry. Only the first route is used.
func (r *OSRMRouter) Route(ctx context.Context, origin, destination domain.Coordinate) (domain.RouteSummary, error) {
	url := fmt.Sprintf(
		"%s/route/v1/driving/%f,%f;%f,%f?overview=full&geometries=polyline&alternatives=false&steps=false",
		r.baseURL, origin.Lng, origin.Lat, destination.Lng, destination.Lat,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.RouteSummary{}, fmt.Errorf("osrm: failed to create request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return domain.RouteSummary{}, fmt.Errorf("osrm: request failed: %w", err)
	}
	defer resp.Body.Close()

	var body osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.RouteSummary{}, fmt.Errorf("osrm: failed to decode response (status %d): %w", resp.StatusCode, err)
	}

	// OSRM answers NoRoute with a 400 and a JSON body
	if body.Code == "NoRoute" || (body.Code == "Ok" && len(body.Routes) == 0) {
		return domain.RouteSummary{}, fmt.Errorf("osrm: %w", domain.ErrNoRoute)
	}
	if resp.StatusCode != http.StatusOK || body.Code != "Ok" {
		return domain.RouteSummary{}, fmt.Errorf("osrm: status %d code %q: %s", resp.StatusCode, body.Code, body.Message)
	}

	route := body.Routes[0]
	points, err := utils.DecodePolyline(route.Geometry)
	if err != nil {
		return domain.RouteSummary{}, fmt.Errorf("osrm: failed to decode geometry: %w", err)
	}

	path := make([]domain.Coordinate, 0, len(points))
	for _, p := range points {
		path = append(path, domain.Coordinate{Lat: p[0], Lng: p[1]})
	}

	return domain.NewRouteSummary(origin, destination, route.Distance, route.Duration, path), nil
}

// Health checks OSRM connectivity with a nearest-road query at the default position.
func (r *OSRMRouter) Health(ctx context.Context) error {
	c := domain.DefaultCoordinate()
	url := fmt.Sprintf("%s/nearest/v1/driving/%f,%f", r.baseURL, c.Lng, c.Lat)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("osrm: failed to create health request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("osrm: health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("osrm: health check returned status %d", resp.StatusCode)
	}
	return nil
}
