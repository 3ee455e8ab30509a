package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/roadwatch/backend/internal/domain"
)

// HTTPHazardProvider reads the hazard catalog from the accident statistics API.
type HTTPHazardProvider struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPHazardProvider creates a provider for the API rooted at baseURL
func NewHTTPHazardProvider(baseURL string, timeout time.Duration) *HTTPHazardProvider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPHazardProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// hotZone is one [[lat, lon], count] entry of /hotZones
type hotZone struct {
	Location [2]float64
	Count    int
}

func (z *hotZone) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return fmt.Errorf("expected [location, count], got %d elements", len(raw))
	}
	if err := json.Unmarshal(raw[0], &z.Location); err != nil {
		return fmt.Errorf("location: %w", err)
	}
	var count float64
	if err := json.Unmarshal(raw[1], &count); err != nil {
		return fmt.Errorf("count: %w", err)
	}
	z.Count = int(count)
	return nil
}

// Zones fetches accident hot zones.
func (p *HTTPHazardProvider) Zones(ctx context.Context) ([]domain.HazardZone, error) {
	var raw []hotZone
	if err := p.getJSON(ctx, "/hotZones", &raw); err != nil {
		return nil, err
	}

	zones := make([]domain.HazardZone, 0, len(raw))
	for _, z := range raw {
		zones = append(zones, domain.HazardZone{
			Location: domain.Coordinate{Lat: z.Location[0], Lng: z.Location[1]},
			Severity: z.Count,
		})
	}
	return zones, nil
}

// FixedHazards fetches speed camera locations.
func (p *HTTPHazardProvider) FixedHazards(ctx context.Context) ([]domain.FixedHazard, error) {
	var raw [][2]float64
	if err := p.getJSON(ctx, "/radarList", &raw); err != nil {
		return nil, err
	}

	fixed := make([]domain.FixedHazard, 0, len(raw))
	for _, r := range raw {
		fixed = append(fixed, domain.FixedHazard{
			Location: domain.Coordinate{Lat: r[0], Lng: r[1]},
		})
	}
	return fixed, nil
}

func (p *HTTPHazardProvider) FatalityPercent(ctx context.Context) (float64, error) {
	var pct float64
	if err := p.getJSON(ctx, "/percentFatality", &pct); err != nil {
		return 0, err
	}
	return pct, nil
}

// DeathCount returns (deaths, accidents).
func (p *HTTPHazardProvider) DeathCount(ctx context.Context) (int, int, error) {
	var pair []float64
	if err := p.getJSON(ctx, "/deathCount", &pair); err != nil {
		return 0, 0, err
	}
	if len(pair) != 2 {
		return 0, 0, fmt.Errorf("hazard_api: /deathCount returned %d values, expected 2", len(pair))
	}
	return int(pair[0]), int(pair[1]), nil
}

func (p *HTTPHazardProvider) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("hazard_api: failed to create request for %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("hazard_api: %s request failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("hazard_api: %s returned status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("hazard_api: failed to decode %s: %w", path, err)
	}
	return nil
}
