// Package ratelimit provides Redis-backed fixed-window rate limiting
// for the HTTP surface.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Manager provides Redis-backed per-client rate limiting
type Manager struct {
	redis *redis.Client
}

// NewManager connects to Redis and verifies the connection
func NewManager(redisURL string) (*Manager, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Manager{redis: client}, nil
}

func (m *Manager) Close() error { return m.redis.Close() }

// Allow returns allowed=false when the client exhausted its per-minute
// budget; resetSec is the time until the window rolls over.
func (m *Manager) Allow(ctx context.Context, clientID string, perMinute int) (allowed bool, resetSec int, err error) {
	now := time.Now().UTC()
	window := now.Unix() / 60 // minute window
	rk := fmt.Sprintf("rl:%s:%d", clientID, window)

	// INCR and set TTL if first time
	pipe := m.redis.TxPipeline()
	incr := pipe.Incr(ctx, rk)
	pipe.Expire(ctx, rk, time.Minute)
	if _, err = pipe.Exec(ctx); err != nil {
		return false, 0, err
	}

	count := int(incr.Val())
	if count > perMinute {
		secPassed := int(now.Unix() % 60)
		return false, 60 - secPassed, nil
	}
	return true, 0, nil
}
