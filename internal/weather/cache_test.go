package weather

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestForecastCodec(t *testing.T) {
	in := &Forecast{
		CloudCover:    []float64{0, 55.5, 100},
		Precipitation: []float64{0, 0.2, 9},
	}

	data, err := EncodeForecast(in)
	if err != nil {
		t.Fatalf("EncodeForecast() error = %v", err)
	}
	out, err := DecodeForecast(data)
	if err != nil {
		t.Fatalf("DecodeForecast() error = %v", err)
	}
	if len(out.CloudCover) != 3 || out.CloudCover[1] != 55.5 || out.Precipitation[2] != 9 {
		t.Errorf("decoded = %+v", out)
	}
	if len(out.WindSpeed) != 0 {
		t.Errorf("wind = %v, want empty", out.WindSpeed)
	}

	for name, bad := range map[string][]byte{
		"empty":     nil,
		"truncated": data[:len(data)/2],
		"not cbor":  []byte{0xff, 0xff, 0xff},
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := DecodeForecast(bad); !errors.Is(err, ErrInvalidCBOR) {
				t.Errorf("DecodeForecast() error = %v, want ErrInvalidCBOR", err)
			}
		})
	}
}

func TestCacheKey(t *testing.T) {
	at := time.Date(2024, 3, 1, 21, 45, 0, 0, time.FixedZone("CET", 3600))
	got := CacheKey(51.0161, 4.24222, at)
	want := "skyrank:forecast:51.02:4.24:2024030120"
	if got != want {
		t.Errorf("CacheKey() = %q, want %q", got, want)
	}
}

type countingProvider struct {
	calls atomic.Int32
	f     Forecast
}

func (p *countingProvider) Forecast(context.Context, float64, float64, time.Time) (*Forecast, error) {
	p.calls.Add(1)
	f := p.f
	return &f, nil
}

type cacheCounter struct {
	hits, misses int
}

func (c *cacheCounter) IncWeatherCacheHit()  { c.hits++ }
func (c *cacheCounter) IncWeatherCacheMiss() { c.misses++ }

// TestRedisCache_ReadThrough requires a Redis instance on localhost:6379.
func TestRedisCache_ReadThrough(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skip("Redis not available, skipping integration test")
	}
	defer client.Close()

	quiet := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	inner := &countingProvider{f: Forecast{CloudCover: []float64{10}, Precipitation: []float64{0}}}
	counter := &cacheCounter{}
	cache := NewRedisCache(client, inner, RedisCacheConfig{TTL: time.Minute, Logger: quiet, Metrics: counter})

	// Unique coordinates keep the key isolated between runs.
	lat := float64(time.Now().UnixNano()%8000) / 100
	at := time.Now()
	defer client.Del(context.Background(), CacheKey(lat, 0, at))

	for i := 0; i < 3; i++ {
		f, err := cache.Forecast(context.Background(), lat, 0, at)
		if err != nil {
			t.Fatalf("Forecast() call %d error = %v", i, err)
		}
		if len(f.CloudCover) != 1 || f.CloudCover[0] != 10 {
			t.Fatalf("Forecast() call %d = %+v", i, f)
		}
	}

	if got := inner.calls.Load(); got != 1 {
		t.Errorf("provider calls = %d, want 1", got)
	}
	if counter.misses != 1 || counter.hits != 2 {
		t.Errorf("hits/misses = %d/%d, want 2/1", counter.hits, counter.misses)
	}
}

// TestRedisCache_UnreachableRedis verifies lookups bypass a dead cache.
func TestRedisCache_UnreachableRedis(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	quiet := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	inner := &countingProvider{f: Forecast{CloudCover: []float64{70}, Precipitation: []float64{1}}}
	cache := NewRedisCache(client, inner, RedisCacheConfig{Logger: quiet})

	for i := 0; i < 2; i++ {
		if _, err := cache.Forecast(context.Background(), 1, 2, time.Now()); err != nil {
			t.Fatalf("Forecast() error = %v", err)
		}
	}
	if got := inner.calls.Load(); got != 2 {
		t.Errorf("provider calls = %d, want 2 (every lookup misses)", got)
	}
}
