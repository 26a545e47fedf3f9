package jobs

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func getCounterVecValue(t *testing.T, vec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	c, err := vec.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues(%v) failed: %v", labels, err)
	}
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("Write() failed: %v", err)
	}
	return m.GetCounter().GetValue()
}

func getHistogramVecSample(t *testing.T, vec *prometheus.HistogramVec, labels ...string) (uint64, float64) {
	t.Helper()
	o, err := vec.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues(%v) failed: %v", labels, err)
	}
	var m dto.Metric
	if err := o.(prometheus.Metric).Write(&m); err != nil {
		t.Fatalf("Write() failed: %v", err)
	}
	return m.GetHistogram().GetSampleCount(), m.GetHistogram().GetSampleSum()
}

func TestMetrics_Register(t *testing.T) {
	t.Run("successful registration", func(t *testing.T) {
		m := NewMetrics()
		reg := prometheus.NewRegistry()
		if err := m.Register(reg); err != nil {
			t.Fatalf("Register() returned error: %v", err)
		}

		m.IncJobsTotal(JobTypeCatalogRefresh, StatusSuccess)
		m.ObserveJobDuration(JobTypeCatalogRefresh, 0.2)
		m.IncJobErrors(JobTypeCatalogRefresh, ErrorTypeLoad)

		families, err := reg.Gather()
		if err != nil {
			t.Fatalf("Gather() returned error: %v", err)
		}
		found := map[string]bool{}
		for _, f := range families {
			found[f.GetName()] = true
		}
		for _, name := range []string{MetricBackgroundJobsTotal, MetricBackgroundJobsDuration, MetricBackgroundJobErrorsTotal} {
			if !found[name] {
				t.Errorf("metric %s not found in gathered metrics", name)
			}
		}
	})

	t.Run("duplicate registration fails", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		if err := NewMetrics().Register(reg); err != nil {
			t.Fatalf("first Register() returned error: %v", err)
		}
		if err := NewMetrics().Register(reg); err == nil {
			t.Error("second Register() should have returned an error")
		}
	})
}

func TestMetrics_Values(t *testing.T) {
	m := NewMetrics()

	for i := 0; i < 3; i++ {
		m.IncJobsTotal(JobTypeCatalogRefresh, StatusSuccess)
	}
	m.IncJobsTotal(JobTypeCatalogRefresh, StatusFailure)
	m.IncJobErrors(JobTypeCatalogRefresh, ErrorTypeTimeout)
	m.ObserveJobDuration(JobTypeCatalogRefresh, 0.5)
	m.ObserveJobDuration(JobTypeCatalogRefresh, 1.25)

	if got := getCounterVecValue(t, m.jobsTotal, JobTypeCatalogRefresh, StatusSuccess); got != 3 {
		t.Errorf("success count = %v, want 3", got)
	}
	if got := getCounterVecValue(t, m.jobsTotal, JobTypeCatalogRefresh, StatusFailure); got != 1 {
		t.Errorf("failure count = %v, want 1", got)
	}
	if got := getCounterVecValue(t, m.jobErrors, JobTypeCatalogRefresh, ErrorTypeTimeout); got != 1 {
		t.Errorf("timeout errors = %v, want 1", got)
	}
	count, sum := getHistogramVecSample(t, m.jobsDuration, JobTypeCatalogRefresh)
	if count != 2 || sum != 1.75 {
		t.Errorf("duration count=%d sum=%v, want 2 and 1.75", count, sum)
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.IncJobsTotal(JobTypeCatalogRefresh, StatusSuccess)
	m.ObserveJobDuration(JobTypeCatalogRefresh, 1)
	m.IncJobErrors(JobTypeCatalogRefresh, ErrorTypeLoad)
}
