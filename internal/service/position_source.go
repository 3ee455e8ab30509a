package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/roadwatch/backend/internal/domain"
	"github.com/roadwatch/backend/internal/metrics"
)

// PositionSource owns the authoritative AgentPosition. A simulated position
// overrides the real stream; real fixes keep being recorded underneath so
// clearing the simulation can restore the newest one immediately.
type PositionSource struct {
	provider LocationProvider
	fallback domain.Coordinate
	log      logrus.FieldLogger
	now      func() time.Time

	mu        sync.Mutex
	current   *domain.AgentPosition
	lastReal  *domain.Coordinate
	simulated *domain.Coordinate
	subs      map[int]func(domain.AgentPosition)
	nextSub   int
	cancel    context.CancelFunc
	done      chan struct{}

	// serializes state change + delivery so subscribers see updates in order
	deliverMu sync.Mutex
}

// NewPositionSource creates a source that falls back to fallback whenever the
// device cannot provide a location.
func NewPositionSource(provider LocationProvider, fallback domain.Coordinate, log logrus.FieldLogger) *PositionSource {
	return &PositionSource{
		provider: provider,
		fallback: fallback,
		log:      loggerOrDefault(log).WithField("component", "position"),
		now:      time.Now,
		subs:     make(map[int]func(domain.AgentPosition)),
	}
}

// StartTracking begins continuous acquisition. It never fails: when the device
// location is unavailable the fallback coordinate becomes authoritative and
// tracking keeps listening for later fixes.
func (s *PositionSource) StartTracking(ctx context.Context) {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return
	}
	trackCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.mu.Unlock()

	if c, err := s.GetPositionOnce(trackCtx); err != nil {
		s.log.WithError(err).Warn("Initial location unavailable, using fallback position")
		s.applyFallback()
	} else {
		s.recordReal(c)
	}

	ch, err := s.provider.Watch(trackCtx)
	if err != nil {
		s.log.WithError(err).Warn("Continuous tracking unavailable, keeping last known position")
		s.applyFallback()
		close(s.done)
		return
	}

	go func() {
		defer close(s.done)
		for c := range ch {
			s.recordReal(c)
		}
	}()
}

// Stop tears down the tracking goroutine.
func (s *PositionSource) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// GetPositionOnce queries the provider directly. It fails with
// ErrLocationUnavailable when the device denies or lacks location.
func (s *PositionSource) GetPositionOnce(ctx context.Context) (domain.Coordinate, error) {
	c, err := s.provider.Current(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrLocationUnavailable) {
			err = errors.Join(domain.ErrLocationUnavailable, err)
		}
		return domain.Coordinate{}, err
	}
	return c, nil
}

// PositionOrFallback never fails. The bool reports whether the fallback was used.
func (s *PositionSource) PositionOrFallback(ctx context.Context) (domain.Coordinate, bool) {
	c, err := s.GetPositionOnce(ctx)
	if err != nil {
		return s.fallback, true
	}
	return c, false
}

// Current returns a snapshot of the authoritative position.
func (s *PositionSource) Current() (domain.AgentPosition, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return domain.AgentPosition{}, false
	}
	return *s.current, true
}

// IsSimulated reports whether a simulated position currently overrides the real stream.
func (s *PositionSource) IsSimulated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.simulated != nil
}

// SetSimulatedPosition overrides the real stream until ClearSimulation.
func (s *PositionSource) SetSimulatedPosition(c domain.Coordinate) error {
	if err := c.Validate(); err != nil {
		return err
	}
	metrics.SimulatedUpdates.Add(1)

	s.update(func() *domain.AgentPosition {
		s.simulated = &c
		return &domain.AgentPosition{Coordinate: c, Provenance: domain.ProvenanceSimulated}
	})
	return nil
}

// ClearSimulation hands control back to the real stream, applying the newest
// real fix (or the fallback) right away.
func (s *PositionSource) ClearSimulation() {
	s.update(func() *domain.AgentPosition {
		if s.simulated == nil {
			return nil
		}
		s.simulated = nil
		if s.lastReal != nil {
			return &domain.AgentPosition{Coordinate: *s.lastReal, Provenance: domain.ProvenanceReal}
		}
		return &domain.AgentPosition{Coordinate: s.fallback, Provenance: domain.ProvenanceReal, Fallback: true}
	})
}

// Subscribe registers fn for every change of the authoritative position.
// fn must not call back into the source synchronously.
func (s *PositionSource) Subscribe(fn func(domain.AgentPosition)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *PositionSource) recordReal(c domain.Coordinate) {
	if err := c.Validate(); err != nil {
		s.log.WithError(err).Warn("Ignoring invalid location fix")
		return
	}
	metrics.PositionUpdates.Add(1)

	s.update(func() *domain.AgentPosition {
		s.lastReal = &c
		if s.simulated != nil {
			return nil
		}
		return &domain.AgentPosition{Coordinate: c, Provenance: domain.ProvenanceReal}
	})
}

func (s *PositionSource) applyFallback() {
	metrics.LocationFallbacks.Add(1)

	s.update(func() *domain.AgentPosition {
		if s.current != nil {
			return nil
		}
		return &domain.AgentPosition{Coordinate: s.fallback, Provenance: domain.ProvenanceReal, Fallback: true}
	})
}

// update applies mutate under the state lock and notifies subscribers if the
// position actually changed. mutate returns nil for "no new position".
func (s *PositionSource) update(mutate func() *domain.AgentPosition) {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	s.mu.Lock()
	next := mutate()
	if next == nil || sameAgentPosition(s.current, next) {
		s.mu.Unlock()
		return
	}
	next.UpdatedAt = s.now()
	s.current = next
	pos := *next
	subs := make([]func(domain.AgentPosition), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(pos)
	}
}

func sameAgentPosition(a, b *domain.AgentPosition) bool {
	if a == nil || b == nil {
		return false
	}
	return a.Coordinate == b.Coordinate && a.Provenance == b.Provenance && a.Fallback == b.Fallback
}
