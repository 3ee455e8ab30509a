package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/roadwatch/backend/internal/domain"
)

const (
	AlertChannel     = "navigation:alerts"
	recentAlertsKey  = "navigation:alerts:recent"
	recentAlertsSize = 100
)

// CooldownKey is the key holding the cooldown window of one hazard.
func CooldownKey(hazardID string) string {
	return fmt.Sprintf("alert:%s", hazardID)
}

// AlertStore keeps per-hazard alert cooldowns in Redis and publishes alerts
// on a pub/sub channel. It implements domain.CooldownStore and domain.AlertPublisher.
type AlertStore struct {
	client   *redis.Client
	cooldown time.Duration
}

// NewAlertStore connects to the Redis server at url (redis://host:port/db).
func NewAlertStore(ctx context.Context, url string, cooldown time.Duration) (*AlertStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: invalid url: %w", err)
	}
	opts.PoolSize = 10
	opts.MinIdleConns = 2

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &AlertStore{client: client, cooldown: cooldown}, nil
}

// Acquire starts a cooldown window for hazardID with SET NX; false means a
// window is still open.
func (s *AlertStore) Acquire(ctx context.Context, hazardID string) (bool, error) {
	if s.cooldown <= 0 {
		return true, nil
	}
	ok, err := s.client.SetNX(ctx, CooldownKey(hazardID), time.Now().Unix(), s.cooldown).Result()
	if err != nil {
		return false, fmt.Errorf("redis: cooldown for %s: %w", hazardID, err)
	}
	return ok, nil
}

// PublishAlert publishes the alert and keeps it in a capped recent list.
func (s *AlertStore) PublishAlert(ctx context.Context, event domain.AlertEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Publish(ctx, AlertChannel, payload)
	pipe.LPush(ctx, recentAlertsKey, payload)
	pipe.LTrim(ctx, recentAlertsKey, 0, recentAlertsSize-1)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline failed: %w", err)
	}
	return nil
}

// Health pings the server.
func (s *AlertStore) Health(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *AlertStore) Close() error {
	return s.client.Close()
}
