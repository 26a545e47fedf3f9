package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/onnwee/skyrank/internal/boost"
	"github.com/onnwee/skyrank/internal/catalog"
	"github.com/onnwee/skyrank/internal/ranking"
	"github.com/onnwee/skyrank/internal/weather"
)

var observedAt = time.Date(2024, 3, 1, 21, 0, 0, 0, time.UTC)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// testPolicy keeps every object above the horizon and shrinks the search.
func testPolicy() *ranking.Policy {
	p := ranking.DefaultPolicy()
	p.MinAltitude = -90
	p.Fusion.Population = 20
	p.Fusion.Generations = 10
	return p
}

func sampleRequest() Request {
	return Request{
		Catalog:      catalog.SampleCatalog(),
		Observer:     catalog.SampleObserver(observedAt),
		Interactions: catalog.SampleInteractions(),
		Matrix:       catalog.SampleMatrixPreferences(),
		Learned:      catalog.SampleLearnedPreferences(),
		Layers:       AllLayers(),
		Seed:         42,
	}
}

// getCounterValue extracts the value of a counter with the given labels.
func getCounterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if labelsMatch(m, labels) {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func labelsMatch(m *dto.Metric, labels map[string]string) bool {
	if len(m.GetLabel()) != len(labels) {
		return false
	}
	for _, lp := range m.GetLabel() {
		if labels[lp.GetName()] != lp.GetValue() {
			return false
		}
	}
	return true
}

func TestMetrics_Register(t *testing.T) {
	m := NewMetrics()
	reg := prometheus.NewRegistry()
	if err := m.Register(reg); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := m.Register(reg); err == nil {
		t.Error("expected error on duplicate registration")
	}
	if got := len(m.Collectors()); got != 8 {
		t.Errorf("Collectors() returned %d collectors, want 8", got)
	}

	m.IncWeatherCacheHit()
	m.IncWeatherCacheMiss()
	m.IncWeatherFallback()
	if v := getCounterValue(t, reg, MetricWeatherCacheHitsTotal, nil); v != 1 {
		t.Errorf("%s = %v, want 1", MetricWeatherCacheHitsTotal, v)
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.IncRun(StatusSuccess)
	m.ObserveStage(StageFusion, 0.1)
	m.SetVisible(catalog.CategoryStar, 3)
	m.SetBestFitness(catalog.CategoryStar, 0.5)
	m.AddGenerations(catalog.CategoryStar, 10)
	m.IncWeatherFallback()
	m.IncWeatherCacheHit()
	m.IncWeatherCacheMiss()
}

func TestRun_AllLayers(t *testing.T) {
	metrics := NewMetrics()
	reg := prometheus.NewRegistry()
	if err := metrics.Register(reg); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	policy := testPolicy()
	p := New(Config{Policy: policy, Metrics: metrics, Logger: quietLogger()})

	var progressCalls atomic.Int64
	req := sampleRequest()
	req.Progress = func(catalog.Category, int, float64) { progressCalls.Add(1) }

	res, err := p.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if res.RunID == "" {
		t.Error("RunID is empty")
	}
	if !res.ObservedAt.Equal(observedAt) {
		t.Errorf("ObservedAt = %v, want %v", res.ObservedAt, observedAt)
	}
	if !res.Weather.Fallback || res.Weather.Chance != weather.NeutralChance {
		t.Errorf("Weather = %+v, want neutral fallback", res.Weather)
	}
	if len(res.Categories) != len(catalog.Categories) {
		t.Fatalf("got %d categories, want %d", len(res.Categories), len(catalog.Categories))
	}

	fusedCategories := 0
	for _, cr := range res.Categories {
		if len(cr.Views) > policy.TopN {
			t.Errorf("%s: %d views, want at most %d", cr.Category, len(cr.Views), policy.TopN)
		}
		for i := 1; i < len(cr.Views); i++ {
			if cr.Views[i].Score > cr.Views[i-1].Score {
				t.Errorf("%s: views not ordered by score at %d", cr.Category, i)
			}
		}
		for _, v := range cr.Views {
			if v.Category != cr.Category {
				t.Errorf("%s: view %q has category %s", cr.Category, v.Name, v.Category)
			}
			if v.BoostDescription == "" || v.BoostDescription == boost.DescriptionNone {
				t.Errorf("%s: view %q description = %q", cr.Category, v.Name, v.BoostDescription)
			}
		}
		if cr.Visible == 0 {
			continue
		}
		fusedCategories++
		if cr.Weights == nil {
			t.Fatalf("%s: no fused weights", cr.Category)
		}
		if sum := cr.Weights.Sum(); math.Abs(sum-1) > 1e-9 {
			t.Errorf("%s: weights sum to %v", cr.Category, sum)
		}
		if len(cr.Fused) != cr.Visible {
			t.Errorf("%s: %d fused candidates, want %d", cr.Category, len(cr.Fused), cr.Visible)
		}
	}

	if len(res.Combined) == 0 || len(res.Combined) > policy.CombinedTopN {
		t.Errorf("combined list has %d entries", len(res.Combined))
	}
	for i := 1; i < len(res.Combined); i++ {
		if res.Combined[i].Score > res.Combined[i-1].Score {
			t.Errorf("combined list not ordered by score at %d", i)
		}
	}

	if want := int64(fusedCategories * policy.Fusion.Generations); progressCalls.Load() != want {
		t.Errorf("progress called %d times, want %d", progressCalls.Load(), want)
	}
	if v := getCounterValue(t, reg, MetricPipelineRunsTotal, map[string]string{"status": StatusSuccess}); v != 1 {
		t.Errorf("%s{success} = %v, want 1", MetricPipelineRunsTotal, v)
	}
}

func TestRun_LayersDisabled(t *testing.T) {
	policy := testPolicy()
	policy.Star.Jitter = 0
	policy.Planet.Jitter = 0
	policy.Moon.Jitter = 0
	p := New(Config{Policy: policy, Logger: quietLogger()})

	req := sampleRequest()
	req.Layers = Layers{}
	req.TopN = 2

	res, err := p.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	for _, cr := range res.Categories {
		if len(cr.Views) > 2 {
			t.Errorf("%s: %d views, want at most 2", cr.Category, len(cr.Views))
		}
		if cr.Fused != nil || cr.Weights != nil {
			t.Errorf("%s: fusion output present with fusion disabled", cr.Category)
		}
		for _, v := range cr.Views {
			if v.BoostDescription != "" {
				t.Errorf("%s: view %q boosted with boosters disabled", cr.Category, v.Name)
			}
			if v.Score != v.BaseScore {
				t.Errorf("%s: view %q score %v != base %v", cr.Category, v.Name, v.Score, v.BaseScore)
			}
		}
	}
}

func TestRun_Deterministic(t *testing.T) {
	p := New(Config{Policy: testPolicy(), Logger: quietLogger()})

	a, err := p.Run(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	b, err := p.Run(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if a.RunID == b.RunID {
		t.Error("runs share a run id")
	}
	if len(a.Combined) != len(b.Combined) {
		t.Fatalf("combined lengths differ: %d vs %d", len(a.Combined), len(b.Combined))
	}
	for i := range a.Combined {
		if a.Combined[i].Name != b.Combined[i].Name || a.Combined[i].Score != b.Combined[i].Score {
			t.Errorf("combined[%d] = %s %.2f, then %s %.2f", i,
				a.Combined[i].Name, a.Combined[i].Score, b.Combined[i].Name, b.Combined[i].Score)
		}
	}
	for _, c := range catalog.Categories {
		wa, wb := a.Category(c).Weights, b.Category(c).Weights
		if (wa == nil) != (wb == nil) {
			t.Fatalf("%s: weights present in only one run", c)
		}
		if wa != nil && wa.Weights != wb.Weights {
			t.Errorf("%s: weights %v vs %v", c, wa.Weights, wb.Weights)
		}
	}
}

func TestRun_Weather(t *testing.T) {
	sky := weather.Forecast{
		CloudCover:    make([]float64, 12),
		Precipitation: make([]float64, 12),
	}
	p := New(Config{
		Policy:  testPolicy(),
		Weather: &weather.Assessor{Provider: weather.StaticProvider{F: sky}, Logger: quietLogger()},
		Logger:  quietLogger(),
	})
	req := sampleRequest()
	req.Layers = Layers{}

	res, err := p.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Weather.Fallback {
		t.Error("clear forecast reported as fallback")
	}
	if res.Weather.Chance <= weather.NeutralChance {
		t.Errorf("clear sky chance = %v, want above %v", res.Weather.Chance, weather.NeutralChance)
	}
	for _, v := range res.Combined {
		if v.VisibilityChance != ranking.Round2(res.Weather.Chance) {
			t.Errorf("%s chance = %v, want %v", v.Name, v.VisibilityChance, res.Weather.Chance)
		}
	}
}

func TestRun_Errors(t *testing.T) {
	metrics := NewMetrics()
	reg := prometheus.NewRegistry()
	if err := metrics.Register(reg); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	p := New(Config{Policy: testPolicy(), Metrics: metrics, Logger: quietLogger()})

	t.Run("invalid observer", func(t *testing.T) {
		req := sampleRequest()
		req.Observer.Latitude = 91
		_, err := p.Run(context.Background(), req)
		if !errors.Is(err, ErrInvalidRequest) {
			t.Errorf("error = %v, want ErrInvalidRequest", err)
		}
		if !errors.Is(err, catalog.ErrInvalidLatitude) {
			t.Errorf("error = %v, want ErrInvalidLatitude", err)
		}
	})

	t.Run("no catalog", func(t *testing.T) {
		req := sampleRequest()
		req.Catalog = &catalog.Catalog{}
		if _, err := p.Run(context.Background(), req); !errors.Is(err, ErrNoCatalog) {
			t.Errorf("error = %v, want ErrNoCatalog", err)
		}
	})

	t.Run("cancelled during fusion", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := p.Run(ctx, sampleRequest()); !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", err)
		}
	})

	if v := getCounterValue(t, reg, MetricPipelineRunsTotal, map[string]string{"status": StatusFailure}); v != 3 {
		t.Errorf("%s{failure} = %v, want 3", MetricPipelineRunsTotal, v)
	}
}
