// Package jobs runs the server's periodic background work and records
// centralized job metrics.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/onnwee/skyrank/internal/catalog"
)

// DefaultRefreshInterval is the default interval between catalog reloads.
const DefaultRefreshInterval = 15 * time.Minute

// DefaultRefreshTimeout bounds a single reload.
const DefaultRefreshTimeout = 30 * time.Second

// RefreshJobConfig configures the catalog refresh job.
type RefreshJobConfig struct {
	// Interval is the duration between reloads.
	Interval time.Duration
	// Timeout bounds each reload.
	Timeout time.Duration
	Logger  *slog.Logger
	// Metrics receives one sample per cycle. Optional.
	Metrics Reporter
}

// RefreshJob periodically reloads the catalog from its source and publishes
// it through a Holder. A failed or empty load keeps the current catalog.
type RefreshJob struct {
	config RefreshJobConfig
	source catalog.Source
	holder *catalog.Holder

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewRefreshJob creates a refresh job for source publishing into holder.
func NewRefreshJob(config RefreshJobConfig, source catalog.Source, holder *catalog.Holder) *RefreshJob {
	if config.Interval <= 0 {
		config.Interval = DefaultRefreshInterval
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultRefreshTimeout
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &RefreshJob{config: config, source: source, holder: holder}
}

// Start begins the periodic refresh in a background goroutine. Calling Start
// on a running job is a no-op.
func (j *RefreshJob) Start(ctx context.Context) {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		return
	}
	j.running = true
	j.stopCh = make(chan struct{})
	j.doneCh = make(chan struct{})
	j.mu.Unlock()

	go j.run(ctx)
}

// Stop signals the job to stop and waits for the current cycle to finish.
func (j *RefreshJob) Stop() {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return
	}
	stopCh, doneCh := j.stopCh, j.doneCh
	j.mu.Unlock()

	close(stopCh)
	<-doneCh

	j.mu.Lock()
	j.running = false
	j.mu.Unlock()
}

// IsRunning returns whether the job loop is active.
func (j *RefreshJob) IsRunning() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.running
}

func (j *RefreshJob) run(ctx context.Context) {
	defer close(j.doneCh)

	ticker := time.NewTicker(j.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.config.Logger.Info("catalog refresh job stopping due to context cancellation")
			return
		case <-j.stopCh:
			j.config.Logger.Info("catalog refresh job stopping due to stop signal")
			return
		case <-ticker.C:
			_ = j.RefreshNow(ctx)
		}
	}
}

// RefreshNow performs one reload immediately and returns its error.
func (j *RefreshJob) RefreshNow(parent context.Context) error {
	ctx, cancel := context.WithTimeout(parent, j.config.Timeout)
	defer cancel()

	start := time.Now()
	c, err := j.source.Load(ctx)
	if err == nil && (c == nil || c.Empty()) {
		err = catalog.ErrEmptyCatalog
	}
	duration := time.Since(start).Seconds()

	if err != nil {
		errorType := ErrorTypeLoad
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			errorType = ErrorTypeTimeout
		case errors.Is(err, catalog.ErrEmptyCatalog):
			errorType = ErrorTypeEmptyCatalog
		}
		j.report(StatusFailure, duration)
		if j.config.Metrics != nil {
			j.config.Metrics.IncJobErrors(JobTypeCatalogRefresh, errorType)
		}
		j.config.Logger.Error("catalog refresh failed, keeping current catalog",
			"source", j.source.Name(),
			"error_type", errorType,
			"error", err)
		return fmt.Errorf("refresh catalog from %s: %w", j.source.Name(), err)
	}

	j.holder.Set(c, j.source.Name())
	j.report(StatusSuccess, duration)

	counts := c.Counts()
	j.config.Logger.Info("catalog refreshed",
		"source", j.source.Name(),
		"duration_seconds", duration,
		"stars", counts[catalog.CategoryStar],
		"planets", counts[catalog.CategoryPlanet],
		"moons", counts[catalog.CategoryMoon])
	return nil
}

func (j *RefreshJob) report(status string, duration float64) {
	if j.config.Metrics == nil {
		return
	}
	j.config.Metrics.IncJobsTotal(JobTypeCatalogRefresh, status)
	j.config.Metrics.ObserveJobDuration(JobTypeCatalogRefresh, duration)
}
