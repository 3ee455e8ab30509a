package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/roadwatch/backend/internal/config"
	"github.com/roadwatch/backend/internal/domain"
)

const evaluationTimeout = 2 * time.Second

// Deps are the external boundaries of a navigation session.
type Deps struct {
	Hazards    HazardProvider
	Location   LocationProvider
	Router     RoutingProvider
	Cooldown   CooldownStore // nil: in-memory cooldown from config
	Publishers []AlertPublisher
	Rand       *rand.Rand
	Logger     logrus.FieldLogger
}

// Navigator owns one navigation session and wires its components:
// simulator -> position -> {alerter, planner} -> events.
type Navigator struct {
	position  *PositionSource
	catalog   *HazardCatalog
	alerter   *ProximityAlerter
	planner   *RoutePlanner
	simulator *Simulator
	events    *EventHub

	cfg config.Config
	log logrus.FieldLogger

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	unsubs []func()
}

// NavigatorState is the snapshot served to the presentation layer.
type NavigatorState struct {
	Position    *domain.AgentPosition `json:"position"`
	Destination *domain.Coordinate    `json:"destination"`
	Route       *domain.RouteSummary  `json:"route"`
	RouteError  string                `json:"route_error,omitempty"`
	Simulation  SimulationMode        `json:"simulation"`
	Hazards     CatalogCounts         `json:"hazards"`
}

type CatalogCounts struct {
	Zones    int       `json:"zones"`
	Fixed    int       `json:"fixed"`
	LoadedAt time.Time `json:"loaded_at"`
}

// NewNavigator builds the session components. Nothing runs until Start.
func NewNavigator(cfg config.Config, deps Deps) *Navigator {
	log := loggerOrDefault(deps.Logger)

	cooldown := deps.Cooldown
	if cooldown == nil {
		cooldown = NewMemoryCooldown(cfg.AlertCooldown)
	}

	n := &Navigator{
		cfg:    cfg,
		log:    log.WithField("component", "navigator"),
		events: NewEventHub(cfg.EventBufferSize),
	}
	n.position = NewPositionSource(deps.Location, cfg.DefaultPosition, log)
	n.catalog = NewHazardCatalog(deps.Hazards, cfg.ProviderTimeout, log)
	n.alerter = NewProximityAlerter(cfg.AlertRadiusMeters, cooldown, log, deps.Publishers...)
	n.planner = NewRoutePlanner(deps.Router, n.currentCoordinate, cfg.RouteRefreshInterval, cfg.RouteMoveEpsilon, log)
	n.simulator = NewSimulator(n.position, cfg.ReplayStepInterval, deps.Rand, log)
	return n
}

// Start loads the catalog and starts tracking, the route worker and the
// optional catalog refresh. It does not fail: every degraded dependency
// falls back as documented on the component.
func (n *Navigator) Start(ctx context.Context) {
	n.mu.Lock()
	if n.cancel != nil {
		n.mu.Unlock()
		return
	}
	n.ctx, n.cancel = context.WithCancel(ctx)
	runCtx := n.ctx
	n.unsubs = append(n.unsubs,
		n.position.Subscribe(n.onPosition),
		n.alerter.Subscribe(func(ev domain.AlertEvent) { n.events.Publish(EventAlert, ev) }),
		n.planner.Subscribe(func(r *domain.RouteSummary) { n.events.Publish(EventRoute, r) }),
		n.planner.SubscribeFailures(func(err error) { n.events.Publish(EventRouteError, err.Error()) }),
		n.catalog.Subscribe(func(c *domain.Catalog) { n.events.Publish(EventCatalog, countsOf(c)) }),
	)
	n.mu.Unlock()

	// catalog first so the first position is evaluated against real data
	_ = n.catalog.Load(runCtx)
	n.catalog.StartRefresh(runCtx, n.cfg.CatalogRefreshInterval)
	n.planner.Start(runCtx)
	n.position.StartTracking(runCtx)

	n.log.Info("Navigation session started")
}

// Close stops every timer and in-flight request of the session.
func (n *Navigator) Close() error {
	n.mu.Lock()
	cancel := n.cancel
	unsubs := n.unsubs
	n.cancel = nil
	n.unsubs = nil
	n.mu.Unlock()

	if cancel == nil {
		return nil
	}

	n.simulator.halt()
	n.planner.Stop()
	n.position.Stop()
	cancel()
	for _, u := range unsubs {
		u()
	}
	err := n.alerter.Close()
	n.events.Close()

	n.log.Info("Navigation session closed")
	return err
}

// SetDestinationText parses free-form input such as "41.1, 1.2". On error the
// destination is unchanged and the error wraps ErrInvalidDestinationInput.
func (n *Navigator) SetDestinationText(text string) (domain.Coordinate, error) {
	c, err := domain.ParseCoordinate(text)
	if err != nil {
		return domain.Coordinate{}, err
	}
	if err := n.planner.SetDestination(&c); err != nil {
		return domain.Coordinate{}, errors.Join(domain.ErrInvalidDestinationInput, err)
	}
	return c, nil
}

// SetDestination sets a structured destination.
func (n *Navigator) SetDestination(c domain.Coordinate) error {
	if err := n.planner.SetDestination(&c); err != nil {
		return errors.Join(domain.ErrInvalidDestinationInput, err)
	}
	return nil
}

// ClearDestination drops the active route.
func (n *Navigator) ClearDestination() {
	_ = n.planner.SetDestination(nil)
}

// State returns a consistent-enough snapshot of every component.
func (n *Navigator) State() NavigatorState {
	st := NavigatorState{
		Destination: n.planner.Destination(),
		Simulation:  n.simulator.Mode(),
		Hazards:     countsOf(n.catalog.Snapshot()),
	}
	if pos, ok := n.position.Current(); ok {
		st.Position = &pos
	}
	if r, ok := n.planner.Summary(); ok {
		st.Route = &r
	}
	if err := n.planner.LastError(); err != nil {
		st.RouteError = err.Error()
	}
	return st
}

// Position returns the authoritative position, if any.
func (n *Navigator) Position() (domain.AgentPosition, bool) {
	return n.position.Current()
}

// Catalog returns the current hazard snapshot.
func (n *Navigator) Catalog() *domain.Catalog {
	return n.catalog.Snapshot()
}

// Route returns the committed route for the active destination.
func (n *Navigator) Route() (domain.RouteSummary, bool) {
	return n.planner.Summary()
}

// RouteError returns the last route failure for the active destination.
func (n *Navigator) RouteError() error {
	return n.planner.LastError()
}

// ReloadCatalog fetches the catalog again.
func (n *Navigator) ReloadCatalog(ctx context.Context) error {
	return n.catalog.Load(ctx)
}

// Stats fetches the summary figures of the hazard provider.
func (n *Navigator) Stats(ctx context.Context) domain.HazardStats {
	return n.catalog.Stats(ctx)
}

// Alerts returns up to limit recent alerts, newest first.
func (n *Navigator) Alerts(limit int) []domain.AlertEvent {
	return n.alerter.Recent(limit)
}

// AlertRadius returns the proximity alert radius in meters.
func (n *Navigator) AlertRadius() float64 {
	return n.alerter.Radius()
}

// Events returns the session event hub.
func (n *Navigator) Events() *EventHub {
	return n.events
}

// ReplayRoute replays the path of the current route.
func (n *Navigator) ReplayRoute() error {
	r, ok := n.planner.Summary()
	if !ok || len(r.Path) == 0 {
		return fmt.Errorf("navigator: nothing to replay: %w", domain.ErrNoRoute)
	}
	return n.Replay(r.Path)
}

// Replay replays an explicit path. The replay outlives the calling request
// and ends with the session.
func (n *Navigator) Replay(path []domain.Coordinate) error {
	return n.simulator.StartReplay(n.sessionContext(), path)
}

// Teleport jumps to a random hazard zone.
func (n *Navigator) Teleport() (domain.Coordinate, error) {
	return n.simulator.Teleport(n.catalog.Snapshot())
}

// StopSimulation ends replay or teleport.
func (n *Navigator) StopSimulation() {
	n.simulator.Stop()
}

func (n *Navigator) sessionContext() context.Context {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.ctx == nil {
		return context.Background()
	}
	return n.ctx
}

func (n *Navigator) currentCoordinate() (domain.Coordinate, bool) {
	pos, ok := n.position.Current()
	return pos.Coordinate, ok
}

// onPosition runs for every change of the authoritative position.
func (n *Navigator) onPosition(pos domain.AgentPosition) {
	n.events.Publish(EventPosition, pos)

	ctx, cancel := context.WithTimeout(n.sessionContext(), evaluationTimeout)
	defer cancel()
	n.alerter.Evaluate(ctx, pos.Coordinate, n.catalog.Snapshot())

	n.planner.PositionChanged(pos.Coordinate)
}

func countsOf(c *domain.Catalog) CatalogCounts {
	return CatalogCounts{
		Zones:    c.ZoneCount(),
		Fixed:    c.FixedCount(),
		LoadedAt: c.LoadedAt(),
	}
}
