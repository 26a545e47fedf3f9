// Package health provides readiness checks for the server's dependencies.
package health

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Pinger is the part of a Redis client the checker needs.
type Pinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

// RedisChecker checks the forecast cache and rate limit store.
type RedisChecker struct {
	client Pinger
}

// NewRedisChecker creates a new Redis health checker.
func NewRedisChecker(client Pinger) *RedisChecker {
	return &RedisChecker{client: client}
}

// HealthCheck sends a PING command.
func (r *RedisChecker) HealthCheck(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
