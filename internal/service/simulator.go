package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/roadwatch/backend/internal/domain"
)

// SimulationMode reports what the simulator is driving
type SimulationMode string

const (
	ModeIdle     SimulationMode = "idle"
	ModeReplay   SimulationMode = "replay"
	ModeTeleport SimulationMode = "teleport"
)

const DefaultReplayStepInterval = time.Second

// simulationTarget is the part of PositionSource the simulator drives.
type simulationTarget interface {
	SetSimulatedPosition(c domain.Coordinate) error
	ClearSimulation()
}

// Simulator substitutes a synthetic trajectory for the real position stream.
// Replay and teleport are mutually exclusive; starting one stops the other.
type Simulator struct {
	target simulationTarget
	step   time.Duration
	log    logrus.FieldLogger

	mu     sync.Mutex
	rng    *rand.Rand
	mode   SimulationMode
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSimulator creates a simulator. A nil rng is seeded from the clock.
func NewSimulator(target simulationTarget, step time.Duration, rng *rand.Rand, log logrus.FieldLogger) *Simulator {
	if step <= 0 {
		step = DefaultReplayStepInterval
	}
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1))
	}
	return &Simulator{
		target: target,
		step:   step,
		rng:    rng,
		log:    loggerOrDefault(log).WithField("component", "simulator"),
		mode:   ModeIdle,
	}
}

// Mode returns the active simulation mode.
func (s *Simulator) Mode() SimulationMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// StartReplay walks path one point per step, the first point immediately.
// When the last point has been applied the real position takes over again.
func (s *Simulator) StartReplay(ctx context.Context, path []domain.Coordinate) error {
	if len(path) == 0 {
		return fmt.Errorf("simulator: %w", domain.ErrEmptyPath)
	}
	for i, c := range path {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("simulator: point %d: %w", i, err)
		}
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("simulator: %w", err)
	}
	points := make([]domain.Coordinate, len(path))
	copy(points, path)

	s.halt()

	s.mu.Lock()
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.mode = ModeReplay
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	s.log.WithField("points", len(points)).Info("Replay started")
	go s.replay(runCtx, points, done)
	return nil
}

// Teleport moves the agent to a uniformly chosen hazard zone and keeps it
// there until Stop.
func (s *Simulator) Teleport(catalog *domain.Catalog) (domain.Coordinate, error) {
	if catalog == nil || catalog.ZoneCount() == 0 {
		return domain.Coordinate{}, fmt.Errorf("simulator: %w", domain.ErrNoHazards)
	}
	zones := catalog.Zones()

	s.halt()

	s.mu.Lock()
	target := zones[s.rng.IntN(len(zones))].Location
	s.mode = ModeTeleport
	s.mu.Unlock()

	if err := s.target.SetSimulatedPosition(target); err != nil {
		s.mu.Lock()
		s.mode = ModeIdle
		s.mu.Unlock()
		return domain.Coordinate{}, fmt.Errorf("simulator: %w", err)
	}

	s.log.WithField("position", target.String()).Info("Teleported to hazard zone")
	return target, nil
}

// Stop ends any simulation and hands control back to the real position.
func (s *Simulator) Stop() {
	s.halt()
	s.target.ClearSimulation()
}

// halt cancels a running replay and waits for it, leaving the simulated
// position in place.
func (s *Simulator) halt() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.done = nil
	s.mode = ModeIdle
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (s *Simulator) replay(ctx context.Context, path []domain.Coordinate, done chan struct{}) {
	defer close(done)

	// the session may have ended before the goroutine ran
	if ctx.Err() != nil {
		s.release(done)
		return
	}
	if err := s.target.SetSimulatedPosition(path[0]); err != nil {
		s.log.WithError(err).Warn("Replay point rejected")
	}

	ticker := time.NewTicker(s.step)
	defer ticker.Stop()

	for i := 1; i < len(path); i++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		// a cancel racing the tick must win
		if ctx.Err() != nil {
			return
		}
		if err := s.target.SetSimulatedPosition(path[i]); err != nil {
			s.log.WithError(err).Warn("Replay point rejected")
		}
	}

	select {
	case <-ctx.Done():
		return
	case <-ticker.C:
	}

	if s.release(done) {
		s.target.ClearSimulation()
		s.log.Info("Replay finished")
	}
}

// release returns the simulator to idle if the run identified by done still
// owns it.
func (s *Simulator) release(done chan struct{}) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done != done {
		return false
	}
	s.cancel()
	s.cancel = nil
	s.done = nil
	s.mode = ModeIdle
	return true
}
