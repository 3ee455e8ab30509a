package http

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/roadwatch/backend/internal/domain"
	"github.com/roadwatch/backend/internal/metrics"
	"github.com/roadwatch/backend/internal/service"
	"github.com/roadwatch/backend/pkg/utils"
)

const (
	sseHeartbeat  = 15 * time.Second
	healthTimeout = 2 * time.Second
)

// HealthChecker is an external dependency reported by /health
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Handler contains all HTTP handlers
type Handler struct {
	nav      *service.Navigator
	location *service.PushLocationProvider
	log      logrus.FieldLogger
	deps     map[string]HealthChecker
}

// NewHandler creates a new handler. location may be nil when the position is
// not pushed by the client.
func NewHandler(nav *service.Navigator, location *service.PushLocationProvider, log logrus.FieldLogger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{
		nav:      nav,
		location: location,
		log:      log.WithField("component", "http"),
		deps:     make(map[string]HealthChecker),
	}
}

// WithDependency adds a dependency to the health report.
func (h *Handler) WithDependency(name string, dep HealthChecker) *Handler {
	h.deps[name] = dep
	return h
}

type locationRequest struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

type destinationRequest struct {
	Text string   `json:"text"`
	Lat  *float64 `json:"lat"`
	Lng  *float64 `json:"lng"`
}

type replayRequest struct {
	Path []domain.Coordinate `json:"path"`
}

// HealthCheck returns service health status. A failing dependency degrades
// the status but the engine keeps serving on its fallbacks.
func (h *Handler) HealthCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), healthTimeout)
	defer cancel()

	status := "ok"
	deps := make(fiber.Map, len(h.deps))
	for name, dep := range h.deps {
		if err := dep.Health(ctx); err != nil {
			h.log.WithError(err).WithField("dependency", name).Warn("Health check failed")
			deps[name] = err.Error()
			status = "degraded"
			continue
		}
		deps[name] = "ok"
	}

	return c.JSON(fiber.Map{
		"status":       status,
		"service":      "roadwatch-navigator",
		"version":      "1.0.0",
		"dependencies": deps,
	})
}

// GetState returns the full session snapshot
func (h *Handler) GetState(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    h.nav.State(),
	})
}

// GetPosition returns the authoritative position
func (h *Handler) GetPosition(c *fiber.Ctx) error {
	pos, ok := h.nav.Position()
	if !ok {
		return c.JSON(fiber.Map{"success": true, "data": nil})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    pos,
	})
}

// PushLocation receives a device fix
func (h *Handler) PushLocation(c *fiber.Ctx) error {
	if h.location == nil {
		return fiber.NewError(fiber.StatusNotImplemented, "Location push is not enabled")
	}

	var req locationRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if req.Lat == nil || req.Lng == nil {
		return fiber.NewError(fiber.StatusBadRequest, "lat and lng are required")
	}

	coord := domain.Coordinate{Lat: *req.Lat, Lng: *req.Lng}
	if err := h.location.Push(coord); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    coord,
	})
}

// LocationUnavailable records that the device refused or lost location
func (h *Handler) LocationUnavailable(c *fiber.Ctx) error {
	if h.location == nil {
		return fiber.NewError(fiber.StatusNotImplemented, "Location push is not enabled")
	}
	h.location.Deny()
	return c.JSON(fiber.Map{"success": true})
}

// GetHazards returns the catalog with the class of every hazard
func (h *Handler) GetHazards(c *fiber.Ctx) error {
	catalog := h.nav.Catalog()
	return c.JSON(fiber.Map{
		"success":        true,
		"data":           catalog.Hazards(),
		"risk_threshold": domain.RiskThreshold,
		"alert_radius_m": h.nav.AlertRadius(),
		"loaded_at":      catalog.LoadedAt(),
	})
}

// GetHazardsGeoJSON returns the catalog as a FeatureCollection
func (h *Handler) GetHazardsGeoJSON(c *fiber.Ctx) error {
	return c.JSON(hazardsFeatureCollection(h.nav.Catalog()))
}

// ReloadHazards reloads the catalog. Partial failures are reported but the
// partial catalog stays in use.
func (h *Handler) ReloadHazards(c *fiber.Ctx) error {
	err := h.nav.ReloadCatalog(c.UserContext())
	catalog := h.nav.Catalog()

	resp := fiber.Map{
		"success": err == nil,
		"data": fiber.Map{
			"zones": catalog.ZoneCount(),
			"fixed": catalog.FixedCount(),
		},
	}
	if err != nil {
		resp["error"] = err.Error()
	}
	return c.JSON(resp)
}

// GetStats returns the summary figures of the hazard provider
func (h *Handler) GetStats(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    h.nav.Stats(c.UserContext()),
	})
}

// SetDestination accepts {"text": "lat, lng"} or {"lat": .., "lng": ..}
func (h *Handler) SetDestination(c *fiber.Ctx) error {
	var req destinationRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	var (
		dest domain.Coordinate
		err  error
	)
	switch {
	case req.Text != "":
		dest, err = h.nav.SetDestinationText(req.Text)
	case req.Lat != nil && req.Lng != nil:
		dest = domain.Coordinate{Lat: *req.Lat, Lng: *req.Lng}
		err = h.nav.SetDestination(dest)
	default:
		return fiber.NewError(fiber.StatusBadRequest, "Enter a destination as \"lat, lng\"")
	}

	if errors.Is(err, domain.ErrInvalidDestinationInput) {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid destination, expected \"lat, lng\" with lat in [-90, 90] and lng in [-180, 180]")
	}
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    dest,
	})
}

// ClearDestination drops the active route
func (h *Handler) ClearDestination(c *fiber.Ctx) error {
	h.nav.ClearDestination()
	return c.JSON(fiber.Map{"success": true})
}

// GetRoute returns the committed route, null while none is available
func (h *Handler) GetRoute(c *fiber.Ctx) error {
	r, ok := h.nav.Route()

	resp := fiber.Map{"success": true, "data": nil}
	if ok {
		resp["data"] = fiber.Map{
			"summary":  r,
			"distance": r.DistanceLabel(),
			"duration": r.DurationMin,
		}
	}
	if routeErr := h.nav.RouteError(); routeErr != nil {
		resp["route_error"] = routeErr.Error()
	}
	return c.JSON(resp)
}

// GetRouteGeoJSON returns the route as a FeatureCollection
func (h *Handler) GetRouteGeoJSON(c *fiber.Ctx) error {
	r, ok := h.nav.Route()
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "No route available")
	}
	return c.JSON(routeFeatureCollection(r))
}

// StartReplay replays the given path, or the current route when none is given
func (h *Handler) StartReplay(c *fiber.Ctx) error {
	var req replayRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
	}

	var err error
	if len(req.Path) > 0 {
		err = h.nav.Replay(req.Path)
	} else {
		err = h.nav.ReplayRoute()
	}

	switch {
	case errors.Is(err, domain.ErrNoRoute):
		return fiber.NewError(fiber.StatusConflict, "No route to replay")
	case errors.Is(err, domain.ErrInvalidCoordinate), errors.Is(err, domain.ErrEmptyPath):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case err != nil:
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    fiber.Map{"mode": service.ModeReplay},
	})
}

// Teleport jumps to a random hazard zone
func (h *Handler) Teleport(c *fiber.Ctx) error {
	target, err := h.nav.Teleport()
	if errors.Is(err, domain.ErrNoHazards) {
		return fiber.NewError(fiber.StatusConflict, "No hazard zones to teleport to")
	}
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    target,
	})
}

// StopSimulation ends replay or teleport
func (h *Handler) StopSimulation(c *fiber.Ctx) error {
	h.nav.StopSimulation()
	return c.JSON(fiber.Map{"success": true})
}

// GetAlerts returns the latest alerts, newest first
func (h *Handler) GetAlerts(c *fiber.Ctx) error {
	limit := int(utils.Clamp(float64(c.QueryInt("limit", 20)), 1, 100))
	data := h.nav.Alerts(limit)

	return c.JSON(fiber.Map{
		"success": true,
		"data":    data,
		"count":   len(data),
	})
}

// StreamEvents streams session events as Server-Sent Events
func (h *Handler) StreamEvents(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	events, unsubscribe := h.nav.Events().Listen()
	log := h.log

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer unsubscribe()

		heartbeat := time.NewTicker(sseHeartbeat)
		defer heartbeat.Stop()

		fmt.Fprint(w, ": connected\n\n")
		if err := w.Flush(); err != nil {
			return
		}

		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				data, err := json.Marshal(ev.Data)
				if err != nil {
					log.WithError(err).WithField("type", ev.Type).Warn("Failed to encode event")
					continue
				}
				fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", ev.ID, ev.Type, data)
			case <-heartbeat.C:
				fmt.Fprint(w, ": ping\n\n")
			}

			// flush fails once the client is gone
			if err := w.Flush(); err != nil {
				return
			}
		}
	})
	return nil
}

// Metrics renders the counters in the Prometheus text format
func (h *Handler) Metrics(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "text/plain; version=0.0.4")
	metrics.Write(c)
	return nil
}
