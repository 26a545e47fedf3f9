// Package pipeline runs the layered ranking of one observation request:
// visibility scoring, the three boosters and rank fusion.
package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/onnwee/skyrank/internal/catalog"
)

// Metrics names as constants for consistency.
const (
	MetricPipelineRunsTotal      = "pipeline_runs_total"
	MetricPipelineStageDuration  = "pipeline_stage_duration_seconds"
	MetricPipelineObjectsVisible = "pipeline_objects_visible"
	MetricFusionBestFitness      = "fusion_best_fitness"
	MetricFusionGenerationsTotal = "fusion_generations_total"
	MetricWeatherFallbackTotal   = "weather_fallback_total"
	MetricWeatherCacheHitsTotal  = "weather_cache_hits_total"
	MetricWeatherCacheMissTotal  = "weather_cache_misses_total"
)

// Run status label values.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Metrics contains Prometheus metrics for pipeline runs.
// All operations are thread-safe, and every method is a no-op on a nil
// receiver.
type Metrics struct {
	runsTotal        *prometheus.CounterVec
	stageDuration    *prometheus.HistogramVec
	objectsVisible   *prometheus.GaugeVec
	bestFitness      *prometheus.GaugeVec
	generationsTotal *prometheus.CounterVec
	weatherFallback  prometheus.Counter
	weatherCacheHit  prometheus.Counter
	weatherCacheMiss prometheus.Counter
}

// NewMetrics creates and returns a new Metrics instance with all collectors initialized.
// The metrics are not registered; call Register to register them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricPipelineRunsTotal,
				Help: "Total number of ranking pipeline runs by status",
			},
			[]string{"status"},
		),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricPipelineStageDuration,
				Help:    "Histogram of ranking pipeline stage duration in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
			},
			[]string{"stage"},
		),
		objectsVisible: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: MetricPipelineObjectsVisible,
				Help: "Number of objects above the horizon in the last run by category",
			},
			[]string{"category"},
		),
		bestFitness: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: MetricFusionBestFitness,
				Help: "Best rank fusion fitness of the last run by category",
			},
			[]string{"category"},
		),
		generationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricFusionGenerationsTotal,
				Help: "Total number of rank fusion generations evaluated by category",
			},
			[]string{"category"},
		),
		weatherFallback: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricWeatherFallbackTotal,
			Help: "Total number of runs that used the neutral visibility chance",
		}),
		weatherCacheHit: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricWeatherCacheHitsTotal,
			Help: "Total number of forecast cache hits",
		}),
		weatherCacheMiss: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricWeatherCacheMissTotal,
			Help: "Total number of forecast cache misses",
		}),
	}
}

// Register registers all metrics with the given registry.
// Returns an error if registration fails.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Collectors returns all Prometheus collectors for testing.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.runsTotal,
		m.stageDuration,
		m.objectsVisible,
		m.bestFitness,
		m.generationsTotal,
		m.weatherFallback,
		m.weatherCacheHit,
		m.weatherCacheMiss,
	}
}

// IncRun counts a finished run with the given status.
func (m *Metrics) IncRun(status string) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(status).Inc()
}

// ObserveStage records a stage duration sample.
func (m *Metrics) ObserveStage(stage string, seconds float64) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(seconds)
}

// SetVisible records how many objects of category passed the horizon cut.
func (m *Metrics) SetVisible(category catalog.Category, n int) {
	if m == nil {
		return
	}
	m.objectsVisible.WithLabelValues(string(category)).Set(float64(n))
}

// SetBestFitness records the fused fitness of category.
func (m *Metrics) SetBestFitness(category catalog.Category, fitness float64) {
	if m == nil {
		return
	}
	m.bestFitness.WithLabelValues(string(category)).Set(fitness)
}

// AddGenerations counts evaluated fusion generations.
func (m *Metrics) AddGenerations(category catalog.Category, n int) {
	if m == nil {
		return
	}
	m.generationsTotal.WithLabelValues(string(category)).Add(float64(n))
}

// IncWeatherFallback counts a run that fell back to the neutral chance.
func (m *Metrics) IncWeatherFallback() {
	if m == nil {
		return
	}
	m.weatherFallback.Inc()
}

// IncWeatherCacheHit counts a forecast cache hit.
func (m *Metrics) IncWeatherCacheHit() {
	if m == nil {
		return
	}
	m.weatherCacheHit.Inc()
}

// IncWeatherCacheMiss counts a forecast cache miss.
func (m *Metrics) IncWeatherCacheMiss() {
	if m == nil {
		return
	}
	m.weatherCacheMiss.Inc()
}
