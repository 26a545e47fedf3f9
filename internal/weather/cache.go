// Package weather turns an hourly forecast into a sky visibility chance and
// provides forecast providers and caching.
package weather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/redis/go-redis/v9"
)

// ErrInvalidCBOR is returned when a cached value cannot be decoded.
var ErrInvalidCBOR = errors.New("invalid CBOR forecast")

// DefaultCacheTTL is how long a forecast stays cached.
const DefaultCacheTTL = 30 * time.Minute

// CacheRecorder counts cache lookups.
type CacheRecorder interface {
	IncWeatherCacheHit()
	IncWeatherCacheMiss()
}

// EncodeForecast serializes a forecast for the cache.
func EncodeForecast(f *Forecast) ([]byte, error) {
	data, err := cbor.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("failed to encode forecast: %w", err)
	}
	return data, nil
}

// DecodeForecast parses a cached forecast.
func DecodeForecast(data []byte) (*Forecast, error) {
	if len(data) == 0 {
		return nil, ErrInvalidCBOR
	}
	var f Forecast
	if err := cbor.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCBOR, err)
	}
	return &f, nil
}

// RedisCache is a read-through forecast cache in front of another Provider.
// Redis failures are logged and bypassed; they never fail a lookup.
type RedisCache struct {
	client  redis.Cmdable
	next    Provider
	ttl     time.Duration
	logger  *slog.Logger
	metrics CacheRecorder
}

// RedisCacheConfig configures a RedisCache.
type RedisCacheConfig struct {
	TTL     time.Duration
	Logger  *slog.Logger
	Metrics CacheRecorder
}

// NewRedisCache wraps next with a Redis-backed cache.
func NewRedisCache(client redis.Cmdable, next Provider, cfg RedisCacheConfig) *RedisCache {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultCacheTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &RedisCache{
		client:  client,
		next:    next,
		ttl:     cfg.TTL,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}
}

// CacheKey buckets lookups by ~1km grid cell and UTC hour.
func CacheKey(lat, lon float64, t time.Time) string {
	return fmt.Sprintf("skyrank:forecast:%.2f:%.2f:%s", lat, lon, t.UTC().Truncate(time.Hour).Format("2006010215"))
}

// Forecast returns the cached forecast or fetches and stores a fresh one.
func (c *RedisCache) Forecast(ctx context.Context, lat, lon float64, t time.Time) (*Forecast, error) {
	key := CacheKey(lat, lon, t)

	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		f, decodeErr := DecodeForecast(data)
		if decodeErr == nil {
			if c.metrics != nil {
				c.metrics.IncWeatherCacheHit()
			}
			return f, nil
		}
		c.logger.Warn("discarding undecodable cached forecast", "key", key, "error", decodeErr)
	case errors.Is(err, redis.Nil):
	default:
		c.logger.Warn("forecast cache read failed", "key", key, "error", err)
	}

	if c.metrics != nil {
		c.metrics.IncWeatherCacheMiss()
	}

	f, err := c.next.Forecast(ctx, lat, lon, t)
	if err != nil {
		return nil, err
	}

	if encoded, encErr := EncodeForecast(f); encErr == nil {
		if setErr := c.client.Set(ctx, key, encoded, c.ttl).Err(); setErr != nil {
			c.logger.Warn("forecast cache write failed", "key", key, "error", setErr)
		}
	}
	return f, nil
}
