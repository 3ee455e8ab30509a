package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/roadwatch/backend/internal/domain"
	"github.com/roadwatch/backend/internal/metrics"
)

// ErrRouteSuperseded is returned by ComputeRoute when the result arrived for a
// destination that is no longer active. The result is discarded.
var ErrRouteSuperseded = errors.New("route superseded by a newer request")

const (
	DefaultRouteRefreshInterval = 2 * time.Second
	DefaultRouteMoveEpsilon     = 10.0
)

// RoutePlanner keeps a RouteSummary for the active destination fresh. All
// automatic recomputation runs on a single worker goroutine; triggers that
// arrive while it is busy collapse into one pending run. At most one provider
// request is outstanding at any time, including direct ComputeRoute calls.
type RoutePlanner struct {
	router  RoutingProvider
	origin  func() (domain.Coordinate, bool)
	refresh time.Duration
	epsilon float64
	log     logrus.FieldLogger

	mu             sync.Mutex
	destination    *domain.Coordinate
	generation     uint64 // bumped on every destination change
	seq            uint64 // bumped on every request
	committedSeq   uint64
	summary        *domain.RouteSummary
	lastErr        error
	lastOrigin     *domain.Coordinate
	inflightCancel context.CancelFunc
	subs           map[int]func(*domain.RouteSummary)
	failSubs       map[int]func(error)
	nextSub        int
	cancel         context.CancelFunc
	done           chan struct{}

	deliverMu sync.Mutex
	trigger   chan struct{}
	slot      chan struct{} // held for the duration of a provider request
}

// NewRoutePlanner creates a planner. origin reports the current authoritative
// position used as the route start.
func NewRoutePlanner(router RoutingProvider, origin func() (domain.Coordinate, bool), refresh time.Duration, epsilonMeters float64, log logrus.FieldLogger) *RoutePlanner {
	if epsilonMeters < 0 {
		epsilonMeters = DefaultRouteMoveEpsilon
	}
	return &RoutePlanner{
		router:   router,
		origin:   origin,
		refresh:  refresh,
		epsilon:  epsilonMeters,
		log:      loggerOrDefault(log).WithField("component", "planner"),
		subs:     make(map[int]func(*domain.RouteSummary)),
		failSubs: make(map[int]func(error)),
		trigger:  make(chan struct{}, 1),
		slot:     make(chan struct{}, 1),
	}
}

// Start runs the worker until ctx is done or Stop is called.
func (p *RoutePlanner) Start(ctx context.Context) {
	p.mu.Lock()
	if p.cancel != nil {
		p.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	done := p.done
	p.mu.Unlock()

	go p.loop(runCtx, done)
}

// Stop cancels any in-flight request and waits for the worker to exit.
func (p *RoutePlanner) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel = nil
	if p.inflightCancel != nil {
		p.inflightCancel()
		p.inflightCancel = nil
	}
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// SetDestination replaces the active destination. A non-nil destination
// schedules an immediate computation; nil clears the route. Either way the
// request in flight for the previous destination is cancelled.
func (p *RoutePlanner) SetDestination(dest *domain.Coordinate) error {
	if dest != nil {
		if err := dest.Validate(); err != nil {
			return fmt.Errorf("planner: %w", err)
		}
	}

	p.deliverMu.Lock()
	defer p.deliverMu.Unlock()

	p.mu.Lock()
	if sameDestination(p.destination, dest) {
		p.mu.Unlock()
		if dest != nil {
			p.kick()
		}
		return nil
	}
	p.generation++
	if p.inflightCancel != nil {
		p.inflightCancel()
		p.inflightCancel = nil
	}
	hadSummary := p.summary != nil
	p.summary = nil
	p.lastErr = nil
	p.lastOrigin = nil
	if dest == nil {
		p.destination = nil
	} else {
		d := *dest
		p.destination = &d
	}
	subs := p.routeSubscribers()
	p.mu.Unlock()

	if dest != nil {
		p.log.WithField("destination", dest.String()).Info("Destination set")
		p.kick()
	} else {
		p.log.Info("Destination cleared")
	}

	if hadSummary {
		for _, fn := range subs {
			fn(nil)
		}
	}
	return nil
}

// Destination returns a copy of the active destination, nil when none.
func (p *RoutePlanner) Destination() *domain.Coordinate {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.destination == nil {
		return nil
	}
	d := *p.destination
	return &d
}

// Summary returns the committed route for the active destination.
func (p *RoutePlanner) Summary() (domain.RouteSummary, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.summary == nil {
		return domain.RouteSummary{}, false
	}
	return p.summary.Clone(), true
}

// LastError returns the most recent failure for the active destination, nil
// once a route has been committed.
func (p *RoutePlanner) LastError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

// PositionChanged schedules a recomputation once the agent moved more than
// the configured epsilon since the origin of the last request.
func (p *RoutePlanner) PositionChanged(c domain.Coordinate) {
	p.mu.Lock()
	if p.destination == nil {
		p.mu.Unlock()
		return
	}
	moved := p.lastOrigin == nil || domain.Distance(*p.lastOrigin, c) > p.epsilon
	p.mu.Unlock()

	if moved {
		p.kick()
	}
}

// ComputeRoute asks the routing provider for a route and commits it only if
// destination is still the active one and no newer request has committed.
// It waits while another request is outstanding and gives up with
// ErrRouteSuperseded if the destination changed in the meantime.
func (p *RoutePlanner) ComputeRoute(ctx context.Context, origin, destination domain.Coordinate) (domain.RouteSummary, error) {
	p.mu.Lock()
	gen := p.generation
	p.seq++
	seq := p.seq
	p.mu.Unlock()

	return p.compute(ctx, gen, seq, origin, destination)
}

// Subscribe registers fn for every committed route. fn receives nil when the
// route is cleared.
func (p *RoutePlanner) Subscribe(fn func(*domain.RouteSummary)) (unsubscribe func()) {
	p.mu.Lock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.subs, id)
		p.mu.Unlock()
	}
}

// SubscribeFailures registers fn for route computation failures. The error
// wraps ErrRouteComputationFailed.
func (p *RoutePlanner) SubscribeFailures(fn func(error)) (unsubscribe func()) {
	p.mu.Lock()
	id := p.nextSub
	p.nextSub++
	p.failSubs[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.failSubs, id)
		p.mu.Unlock()
	}
}

func (p *RoutePlanner) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	var tick <-chan time.Time
	if p.refresh > 0 {
		ticker := time.NewTicker(p.refresh)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.trigger:
			p.runOnce(ctx)
		case <-tick:
			p.runOnce(ctx)
		}
	}
}

func (p *RoutePlanner) runOnce(ctx context.Context) {
	origin, ok := p.origin()
	if !ok {
		p.log.Debug("No position yet, postponing route computation")
		return
	}

	p.mu.Lock()
	if p.destination == nil {
		p.mu.Unlock()
		return
	}
	dest := *p.destination
	gen := p.generation
	p.seq++
	seq := p.seq
	reqCtx, cancel := context.WithCancel(ctx)
	p.inflightCancel = cancel
	p.lastOrigin = &origin
	p.mu.Unlock()

	_, _ = p.compute(reqCtx, gen, seq, origin, dest)

	p.mu.Lock()
	p.inflightCancel = nil
	p.mu.Unlock()
	cancel()
}

func (p *RoutePlanner) compute(ctx context.Context, gen, seq uint64, origin, dest domain.Coordinate) (domain.RouteSummary, error) {
	select {
	case p.slot <- struct{}{}:
	case <-ctx.Done():
		return domain.RouteSummary{}, fmt.Errorf("planner: %w", ctx.Err())
	}
	defer func() { <-p.slot }()

	p.mu.Lock()
	stale := p.isStale(gen, seq, dest)
	p.mu.Unlock()
	if stale {
		metrics.RouteStaleDiscarded.Add(1)
		return domain.RouteSummary{}, ErrRouteSuperseded
	}

	metrics.RouteRequests.Add(1)
	summary, err := p.router.Route(ctx, origin, dest)

	p.deliverMu.Lock()
	defer p.deliverMu.Unlock()

	p.mu.Lock()
	if p.isStale(gen, seq, dest) {
		p.mu.Unlock()
		metrics.RouteStaleDiscarded.Add(1)
		p.log.WithField("destination", dest.String()).Debug("Discarding route for superseded request")
		return domain.RouteSummary{}, ErrRouteSuperseded
	}

	if err != nil && ctx.Err() != nil {
		p.mu.Unlock()
		return domain.RouteSummary{}, fmt.Errorf("planner: %w", ctx.Err())
	}

	if err != nil {
		metrics.RouteFailures.Add(1)
		err = fmt.Errorf("planner: %w: %w", domain.ErrRouteComputationFailed, err)
		p.lastErr = err
		subs := make([]func(error), 0, len(p.failSubs))
		for _, fn := range p.failSubs {
			subs = append(subs, fn)
		}
		p.mu.Unlock()

		p.log.WithError(err).WithField("destination", dest.String()).Warn("Route computation failed, keeping previous route")
		for _, fn := range subs {
			fn(err)
		}
		return domain.RouteSummary{}, err
	}

	committed := summary.Clone()
	committed.Origin = origin
	committed.Destination = dest
	p.summary = &committed
	p.committedSeq = seq
	p.lastErr = nil
	subs := p.routeSubscribers()
	p.mu.Unlock()

	p.log.WithFields(logrus.Fields{
		"distance_km":  committed.DistanceLabel(),
		"duration_min": committed.DurationMin,
	}).Debug("Route updated")
	for _, fn := range subs {
		out := committed.Clone()
		fn(&out)
	}
	return committed.Clone(), nil
}

// isStale must be called with p.mu held.
func (p *RoutePlanner) isStale(gen, seq uint64, dest domain.Coordinate) bool {
	return p.destination == nil || *p.destination != dest || p.generation != gen || seq < p.committedSeq
}

// routeSubscribers must be called with p.mu held.
func (p *RoutePlanner) routeSubscribers() []func(*domain.RouteSummary) {
	subs := make([]func(*domain.RouteSummary), 0, len(p.subs))
	for _, fn := range p.subs {
		subs = append(subs, fn)
	}
	return subs
}

func (p *RoutePlanner) kick() {
	select {
	case p.trigger <- struct{}{}:
	default:
	}
}

func sameDestination(a, b *domain.Coordinate) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
