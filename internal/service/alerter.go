package service

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/roadwatch/backend/internal/domain"
	"github.com/roadwatch/backend/internal/metrics"
)

const (
	DefaultAlertRadiusMeters = 1000.0
	recentAlertsCapacity     = 100
	publishTimeout           = 5 * time.Second
)

// ProximityAlerter emits an AlertEvent for every hazard strictly inside the
// alert radius of an evaluated position.
type ProximityAlerter struct {
	radius     float64
	cooldown   CooldownStore
	publishers []AlertPublisher
	log        logrus.FieldLogger
	now        func() time.Time

	mu      sync.Mutex
	subs    map[int]func(domain.AlertEvent)
	nextSub int
	recent  []domain.AlertEvent

	wgBg sync.WaitGroup // in-flight publishes
}

// NewProximityAlerter creates an alerter. cooldown may be nil, in which case
// every evaluation inside the radius emits.
func NewProximityAlerter(radiusMeters float64, cooldown CooldownStore, log logrus.FieldLogger, publishers ...AlertPublisher) *ProximityAlerter {
	if radiusMeters <= 0 {
		radiusMeters = DefaultAlertRadiusMeters
	}
	return &ProximityAlerter{
		radius:     radiusMeters,
		cooldown:   cooldown,
		publishers: publishers,
		log:        loggerOrDefault(log).WithField("component", "alerter"),
		now:        time.Now,
		subs:       make(map[int]func(domain.AlertEvent)),
	}
}

// Radius returns the alert radius in meters.
func (a *ProximityAlerter) Radius() float64 { return a.radius }

// Evaluate checks position against every zone and fixed hazard in catalog.
// Emitted events are returned, delivered to subscribers and handed to the
// publishers in the background.
func (a *ProximityAlerter) Evaluate(ctx context.Context, position domain.Coordinate, catalog *domain.Catalog) []domain.AlertEvent {
	if catalog == nil || catalog.IsEmpty() {
		return nil
	}

	var events []domain.AlertEvent
	at := a.now()
	for _, h := range catalog.Hazards() {
		d := domain.Distance(position, h.Location)
		if d >= a.radius {
			continue
		}
		if !a.acquire(ctx, h) {
			metrics.AlertsSuppressed.Add(1)
			continue
		}
		events = append(events, domain.NewAlertEvent(h, position, d, at))
	}
	if len(events) == 0 {
		return nil
	}

	metrics.AlertsEmitted.Add(int64(len(events)))
	a.deliver(events)
	a.publish(events)
	return events
}

// Subscribe registers fn for every emitted alert.
func (a *ProximityAlerter) Subscribe(fn func(domain.AlertEvent)) (unsubscribe func()) {
	a.mu.Lock()
	id := a.nextSub
	a.nextSub++
	a.subs[id] = fn
	a.mu.Unlock()

	return func() {
		a.mu.Lock()
		delete(a.subs, id)
		a.mu.Unlock()
	}
}

// Recent returns up to n of the latest alerts, newest first.
func (a *ProximityAlerter) Recent(n int) []domain.AlertEvent {
	a.mu.Lock()
	defer a.mu.Unlock()

	if n <= 0 || n > len(a.recent) {
		n = len(a.recent)
	}
	out := make([]domain.AlertEvent, 0, n)
	for i := len(a.recent) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, a.recent[i])
	}
	return out
}

// Close waits for pending publishes and closes every publisher.
func (a *ProximityAlerter) Close() error {
	a.wgBg.Wait()
	var firstErr error
	for _, p := range a.publishers {
		if err := p.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// acquire fails open: a broken cooldown store never hides an alert.
func (a *ProximityAlerter) acquire(ctx context.Context, h domain.Hazard) bool {
	if a.cooldown == nil {
		return true
	}
	ok, err := a.cooldown.Acquire(ctx, h.ID())
	if err != nil {
		a.log.WithError(err).WithField("hazard", h.ID()).Warn("Cooldown store failed, emitting alert")
		return true
	}
	return ok
}

func (a *ProximityAlerter) deliver(events []domain.AlertEvent) {
	a.mu.Lock()
	a.recent = append(a.recent, events...)
	if over := len(a.recent) - recentAlertsCapacity; over > 0 {
		a.recent = append(a.recent[:0:0], a.recent[over:]...)
	}
	subs := make([]func(domain.AlertEvent), 0, len(a.subs))
	for _, fn := range a.subs {
		subs = append(subs, fn)
	}
	a.mu.Unlock()

	for _, ev := range events {
		a.log.WithFields(logrus.Fields{
			"hazard":   ev.Hazard.ID(),
			"class":    ev.Class,
			"distance": int(ev.DistanceMeters),
		}).Info("Hazard alert")
		for _, fn := range subs {
			fn(ev)
		}
	}
}

func (a *ProximityAlerter) publish(events []domain.AlertEvent) {
	if len(a.publishers) == 0 {
		return
	}

	a.wgBg.Add(1)
	go func() {
		defer a.wgBg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		for _, ev := range events {
			for _, p := range a.publishers {
				if err := p.PublishAlert(ctx, ev); err != nil {
					metrics.AlertPublishErrors.Add(1)
					a.log.WithError(err).WithField("alert", ev.ID).Warn("Failed to publish alert")
				}
			}
		}
	}()
}

// MemoryCooldown is an in-process CooldownStore.
type MemoryCooldown struct {
	ttl time.Duration
	now func() time.Time

	mu    sync.Mutex
	until map[string]time.Time
}

// NewMemoryCooldown creates a store with the given window. ttl <= 0 disables the cooldown.
func NewMemoryCooldown(ttl time.Duration) *MemoryCooldown {
	return &MemoryCooldown{
		ttl:   ttl,
		now:   time.Now,
		until: make(map[string]time.Time),
	}
}

func (m *MemoryCooldown) Acquire(ctx context.Context, hazardID string) (bool, error) {
	if m.ttl <= 0 {
		return true, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if until, ok := m.until[hazardID]; ok && now.Before(until) {
		return false, nil
	}
	m.until[hazardID] = now.Add(m.ttl)

	// drop expired windows so the map stays bounded by the hazards nearby
	for id, until := range m.until {
		if !now.Before(until) {
			delete(m.until, id)
		}
	}
	return true, nil
}
