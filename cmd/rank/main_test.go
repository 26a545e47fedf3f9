package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// smallPolicy keeps every object above the horizon and the search short.
func smallPolicy(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "calibration.json")
	body := `{"policy":{"min_altitude":-89,"fusion":{"population":20,"generations":20}}}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("failed to write calibration: %v", err)
	}
	return path
}

func TestRun_Table(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{
		"--no-weather", "--seed", "7", "--time", "2024-03-01T21:00:00Z",
		"--calibration", smallPolicy(t), "--progress",
	}, &stdout, &stderr)

	if code != 0 {
		t.Fatalf("exit code = %d, stderr: %s", code, stderr.String())
	}
	out := stdout.String()
	for _, want := range []string{"seed 7", "visibility chance 50%", "star (", "planet (", "moon (", "fused (weights", "Tonight's top picks"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if !strings.Contains(stderr.String(), "generation   20") {
		t.Errorf("expected progress for generation 20 on stderr, got: %s", stderr.String())
	}
}

func TestRun_JSONIsReproducible(t *testing.T) {
	args := []string{"--no-weather", "--json", "--seed", "11", "--time", "2024-03-01T21:00:00Z", "--calibration", smallPolicy(t)}

	decode := func() map[string]any {
		var stdout, stderr bytes.Buffer
		if code := run(context.Background(), args, &stdout, &stderr); code != 0 {
			t.Fatalf("exit code = %d, stderr: %s", code, stderr.String())
		}
		var res map[string]any
		if err := json.Unmarshal(stdout.Bytes(), &res); err != nil {
			t.Fatalf("output is not JSON: %v", err)
		}
		delete(res, "run_id")
		return res
	}

	first, second := decode(), decode()
	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if !bytes.Equal(a, b) {
		t.Error("two runs with the same seed produced different rankings")
	}
}

func TestRun_LayerToggles(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{
		"--no-weather", "--no-fusion", "--no-trend", "--json", "--calibration", smallPolicy(t),
	}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit code = %d, stderr: %s", code, stderr.String())
	}
	var res struct {
		Layers struct {
			Trend, Matrix, Learned, Fusion bool
		} `json:"layers"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &res); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if res.Layers.Trend || res.Layers.Fusion || !res.Layers.Matrix || !res.Layers.Learned {
		t.Errorf("layers = %+v, want only matrix and learned", res.Layers)
	}
}

func TestRun_WeatherFromForecastServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"--weather-url", srv.URL, "--no-fusion", "--calibration", smallPolicy(t)}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit code = %d, stderr: %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "visibility chance 50%") {
		t.Errorf("a failing forecast should fall back to the neutral chance:\n%s", stdout.String())
	}
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantCode int
	}{
		{"help", []string{"--help"}, 0},
		{"unknown flag", []string{"--colour"}, 2},
		{"positional argument", []string{"vega"}, 2},
		{"bad time", []string{"--no-weather", "--time", "tonight"}, 1},
		{"bad latitude", []string{"--no-weather", "--lat", "95"}, 1},
		{"missing catalog", []string{"--no-weather", "--catalog", "/nonexistent/catalog.yaml"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if code := run(context.Background(), tt.args, &stdout, &stderr); code != tt.wantCode {
				t.Errorf("exit code = %d, want %d, stderr: %s", code, tt.wantCode, stderr.String())
			}
		})
	}
}

func TestRun_CatalogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	doc := `stars:
  - id: 1
    name: Vega
    ra_hours: 18.6156
    dec: 38.7837
    g_mag: 0.03
    spectral_type: A
planets: []
moons: []
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("failed to write catalog: %v", err)
	}

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"--no-weather", "--catalog", path, "--calibration", smallPolicy(t)}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit code = %d, stderr: %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "Vega") {
		t.Errorf("output does not list the catalog star:\n%s", stdout.String())
	}
}

func TestRun_Version(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run(context.Background(), []string{"--version"}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit code = %d, stderr: %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), version) {
		t.Errorf("version output = %q, want it to contain %q", stdout.String(), version)
	}
}
