package service

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/roadwatch/backend/internal/domain"
)

var errBoom = errors.New("boom")

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type fakeHazards struct {
	zones     []domain.HazardZone
	fixed     []domain.FixedHazard
	zonesErr  error
	fixedErr  error
	pct       float64
	pctErr    error
	deaths    int
	accidents int
	deathErr  error
}

func (f *fakeHazards) Zones(ctx context.Context) ([]domain.HazardZone, error) {
	return f.zones, f.zonesErr
}

func (f *fakeHazards) FixedHazards(ctx context.Context) ([]domain.FixedHazard, error) {
	return f.fixed, f.fixedErr
}

func (f *fakeHazards) FatalityPercent(ctx context.Context) (float64, error) {
	return f.pct, f.pctErr
}

func (f *fakeHazards) DeathCount(ctx context.Context) (int, int, error) {
	return f.deaths, f.accidents, f.deathErr
}

// routeCall is one request observed by fakeRouter
type routeCall struct {
	origin, destination domain.Coordinate
}

// fakeRouter answers through respond; a nil respond returns a fixed route.
type fakeRouter struct {
	mu      sync.Mutex
	calls   []routeCall
	respond func(ctx context.Context, origin, dest domain.Coordinate) (domain.RouteSummary, error)
}

func (f *fakeRouter) Route(ctx context.Context, origin, dest domain.Coordinate) (domain.RouteSummary, error) {
	f.mu.Lock()
	f.calls = append(f.calls, routeCall{origin, dest})
	respond := f.respond
	f.mu.Unlock()

	if respond == nil {
		return domain.NewRouteSummary(origin, dest, 4200, 600, []domain.Coordinate{origin, dest}), nil
	}
	return respond(ctx, origin, dest)
}

func (f *fakeRouter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.AlertEvent
	err    error
	closed bool
}

func (p *recordingPublisher) PublishAlert(ctx context.Context, ev domain.AlertEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *recordingPublisher) published() []domain.AlertEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.AlertEvent, len(p.events))
	copy(out, p.events)
	return out
}

type failingCooldown struct{}

func (failingCooldown) Acquire(ctx context.Context, hazardID string) (bool, error) {
	return false, errBoom
}

// positionRecorder collects positions delivered to a subscriber
type positionRecorder struct {
	mu        sync.Mutex
	positions []domain.AgentPosition
}

func (r *positionRecorder) record(p domain.AgentPosition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.positions = append(r.positions, p)
}

func (r *positionRecorder) all() []domain.AgentPosition {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.AgentPosition, len(r.positions))
	copy(out, r.positions)
	return out
}

func (f *fakeRouter) setRespond(respond func(ctx context.Context, origin, dest domain.Coordinate) (domain.RouteSummary, error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.respond = respond
}

// movableOrigin is a concurrency-safe origin for the planner
type movableOrigin struct {
	mu sync.Mutex
	c  domain.Coordinate
}

func (o *movableOrigin) get() (domain.Coordinate, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.c, true
}

func (o *movableOrigin) set(c domain.Coordinate) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.c = c
}
