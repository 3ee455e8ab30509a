package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/roadwatch/backend/internal/domain"
)

// PushLocationProvider receives fixes pushed by the client device over HTTP.
// Until the first fix arrives, or after the device reports that location is
// denied, Current fails with ErrLocationUnavailable.
type PushLocationProvider struct {
	mu       sync.Mutex
	latest   *domain.Coordinate
	denied   bool
	watchers map[chan domain.Coordinate]struct{}
}

func NewPushLocationProvider() *PushLocationProvider {
	return &PushLocationProvider{
		watchers: make(map[chan domain.Coordinate]struct{}),
	}
}

// Push records a new fix and forwards it to every watcher. A slow watcher only
// ever sees the newest fix.
func (p *PushLocationProvider) Push(c domain.Coordinate) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("location: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.latest = &c
	p.denied = false
	for ch := range p.watchers {
		select {
		case <-ch:
		default:
		}
		ch <- c
	}
	return nil
}

// Deny marks the capability as refused by the device.
func (p *PushLocationProvider) Deny() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.denied = true
	p.latest = nil
}

func (p *PushLocationProvider) Current(ctx context.Context) (domain.Coordinate, error) {
	if err := ctx.Err(); err != nil {
		return domain.Coordinate{}, fmt.Errorf("location: %w: %v", domain.ErrLocationUnavailable, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.denied {
		return domain.Coordinate{}, fmt.Errorf("location: %w: permission denied", domain.ErrLocationUnavailable)
	}
	if p.latest == nil {
		return domain.Coordinate{}, fmt.Errorf("location: %w: no fix yet", domain.ErrLocationUnavailable)
	}
	return *p.latest, nil
}

func (p *PushLocationProvider) Watch(ctx context.Context) (<-chan domain.Coordinate, error) {
	ch := make(chan domain.Coordinate, 1)

	p.mu.Lock()
	p.watchers[ch] = struct{}{}
	p.mu.Unlock()

	go func() {
		<-ctx.Done()
		p.mu.Lock()
		delete(p.watchers, ch)
		close(ch)
		p.mu.Unlock()
	}()

	return ch, nil
}

// StaticLocationProvider always reports the same fix or the same error.
type StaticLocationProvider struct {
	Coord domain.Coordinate
	Err   error
}

func (s StaticLocationProvider) Current(ctx context.Context) (domain.Coordinate, error) {
	if s.Err != nil {
		return domain.Coordinate{}, s.Err
	}
	return s.Coord, nil
}

func (s StaticLocationProvider) Watch(ctx context.Context) (<-chan domain.Coordinate, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	ch := make(chan domain.Coordinate, 1)
	ch <- s.Coord
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}
