// Package weather turns an hourly forecast into a sky visibility chance and
// provides forecast providers and caching.
package weather

import (
	"context"
	"log/slog"
	"time"
)

// Provider fetches the hourly forecast for a location starting at t.
type Provider interface {
	Forecast(ctx context.Context, lat, lon float64, t time.Time) (*Forecast, error)
}

// FallbackRecorder counts assessments that fell back to the neutral chance.
type FallbackRecorder interface {
	IncWeatherFallback()
}

// Assessor combines a Provider with the chance heuristic. Any provider
// failure degrades to the neutral assessment.
type Assessor struct {
	Provider       Provider
	Timeout        time.Duration
	Hours          int
	CloudThreshold float64
	Logger         *slog.Logger
	Metrics        FallbackRecorder
}

// DefaultTimeout bounds a single forecast lookup.
const DefaultTimeout = 3 * time.Second

// Assess returns the visibility assessment for the observer location.
// It never fails: a nil provider, a timeout or a bad payload all yield
// Neutral().
func (a *Assessor) Assess(ctx context.Context, lat, lon float64, t time.Time) Assessment {
	logger := a.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if a.Provider == nil {
		return Neutral()
	}

	timeout := a.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	hours := a.Hours
	if hours <= 0 {
		hours = DefaultHours
	}
	threshold := a.CloudThreshold
	if threshold <= 0 {
		threshold = DefaultCloudThreshold
	}

	fctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	f, err := a.Provider.Forecast(fctx, lat, lon, t)
	if err != nil || f == nil {
		logger.Warn("weather forecast unavailable, using neutral chance",
			"latitude", lat,
			"longitude", lon,
			"error", err)
		if a.Metrics != nil {
			a.Metrics.IncWeatherFallback()
		}
		return Neutral()
	}

	return Chance(*f, hours, threshold)
}

// StaticProvider always returns the same forecast. Useful for offline runs.
type StaticProvider struct {
	F Forecast
}

// Forecast returns a copy of the fixed forecast.
func (s StaticProvider) Forecast(ctx context.Context, _, _ float64, _ time.Time) (*Forecast, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f := s.F
	return &f, nil
}
