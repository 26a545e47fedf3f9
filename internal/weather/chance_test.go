package weather

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"os"
	"testing"
	"time"
)

func repeat(v float64, n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = v
	}
	return s
}

func TestChance_Bands(t *testing.T) {
	tests := []struct {
		name       string
		forecast   Forecast
		wantChance float64
		wantReason string
	}{
		{
			name:       "clear skies",
			forecast:   Forecast{CloudCover: repeat(0, 12), Precipitation: repeat(0, 12)},
			wantChance: 100,
			wantReason: "Exceptional viewing conditions! Crystal clear skies expected.",
		},
		{
			name:       "light cloud all night",
			forecast:   Forecast{CloudCover: repeat(40, 12), Precipitation: repeat(0, 12)},
			wantChance: 80,
			wantReason: "Good conditions overall, though some clouds (12h) may pass through.",
		},
		{
			name:       "partly cloudy",
			forecast:   Forecast{CloudCover: repeat(60, 12), Precipitation: repeat(0, 12)},
			wantChance: 66,
			wantReason: "Partly cloudy skies (12h) will create variable viewing conditions.",
		},
		{
			name: "early showers then clear",
			forecast: Forecast{
				CloudCover:    repeat(0, 12),
				Precipitation: append(repeat(8, 4), repeat(0, 8)...),
			},
			wantChance: 5.235 / 8.75 * 100,
			wantReason: "Fair conditions, but expect some rain (4h) that will temporarily reduce visibility.",
		},
		{
			name: "half night of storms",
			forecast: Forecast{
				CloudCover:    repeat(0, 12),
				Precipitation: append(repeat(8, 6), repeat(0, 6)...),
			},
			wantChance: 3.7625 / 8.75 * 100,
			wantReason: "Challenging conditions with 6h of heavy rain (up to 8.0mm/h). Visibility will be significantly reduced.",
		},
		{
			name:       "storm all night",
			forecast:   Forecast{CloudCover: repeat(90, 12), Precipitation: repeat(10, 12)},
			wantChance: 0.05 * 0.355 * 0.85 * 100,
			wantReason: "Very poor conditions. Heavy rain expected for 12h with storms possible (max 10.0mm/h). Visibility will be minimal.",
		},
		{
			name:       "overcast and dry",
			forecast:   Forecast{CloudCover: repeat(100, 12), Precipitation: repeat(0, 12)},
			wantChance: 32.5,
			wantReason: "Difficult viewing conditions with extensive cloud cover (12h) and some precipitation.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Chance(tt.forecast, DefaultHours, DefaultCloudThreshold)
			if math.Abs(got.Chance-tt.wantChance) > 1e-9 {
				t.Errorf("Chance = %v, want %v", got.Chance, tt.wantChance)
			}
			if got.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", got.Reason, tt.wantReason)
			}
			if got.Fallback {
				t.Error("Fallback set on a computed assessment")
			}
		})
	}
}

func TestChance_NoData(t *testing.T) {
	got := Chance(Forecast{}, DefaultHours, DefaultCloudThreshold)
	if got.Chance != 0 {
		t.Errorf("Chance of empty forecast = %v, want 0", got.Chance)
	}
	if got.Reason == "" {
		t.Error("empty forecast produced no reason")
	}
}

func TestChance_MissingWindIsCalm(t *testing.T) {
	base := Forecast{CloudCover: repeat(45, 12), Precipitation: repeat(0.3, 12)}

	withoutWind := Chance(base, DefaultHours, DefaultCloudThreshold)

	calm := base
	calm.WindSpeed = repeat(0, 12)
	withCalm := Chance(calm, DefaultHours, DefaultCloudThreshold)

	short := base
	short.WindSpeed = repeat(0, 3)
	withShort := Chance(short, DefaultHours, DefaultCloudThreshold)

	if withoutWind != withCalm || withoutWind != withShort {
		t.Errorf("missing wind changed the result: %+v / %+v / %+v", withoutWind, withCalm, withShort)
	}
}

func TestChance_HighWindPenalty(t *testing.T) {
	calm := Chance(Forecast{CloudCover: repeat(0, 12), Precipitation: repeat(0, 12)}, DefaultHours, DefaultCloudThreshold)
	windy := Chance(Forecast{
		CloudCover:    repeat(0, 12),
		Precipitation: repeat(0, 12),
		WindSpeed:     repeat(40, 12),
	}, DefaultHours, DefaultCloudThreshold)

	if math.Abs(windy.Chance-90) > 1e-9 {
		t.Errorf("windy chance = %v, want 90", windy.Chance)
	}
	if windy.Chance >= calm.Chance {
		t.Errorf("wind did not reduce the chance: %v >= %v", windy.Chance, calm.Chance)
	}

	gale := Chance(Forecast{
		CloudCover:    repeat(0, 12),
		Precipitation: repeat(0, 12),
		WindSpeed:     repeat(200, 12),
	}, DefaultHours, DefaultCloudThreshold)
	if math.Abs(gale.Chance-85) > 1e-9 {
		t.Errorf("wind penalty floor: chance = %v, want 85", gale.Chance)
	}
}

func TestChance_UsesShortestSeries(t *testing.T) {
	got := Chance(Forecast{CloudCover: repeat(0, 2), Precipitation: repeat(0, 12)}, DefaultHours, DefaultCloudThreshold)
	if got.Chance != 100 {
		t.Errorf("Chance = %v, want 100", got.Chance)
	}
}

func TestHourScore_StaysInUnitRange(t *testing.T) {
	for _, cloud := range []float64{0, 30, 49, 50, 74, 75, 100, 150} {
		for _, precip := range []float64{0, 0.4, 2, 5, 20} {
			for _, wind := range []float64{0, 31, 500} {
				s := hourScore(cloud, precip, wind, DefaultCloudThreshold)
				if s < 0 || s > 1 {
					t.Fatalf("hourScore(%v, %v, %v) = %v", cloud, precip, wind, s)
				}
			}
		}
	}
}

type countingRecorder struct{ fallbacks int }

func (c *countingRecorder) IncWeatherFallback() { c.fallbacks++ }

type failingProvider struct{}

func (failingProvider) Forecast(context.Context, float64, float64, time.Time) (*Forecast, error) {
	return nil, errors.New("upstream down")
}

type blockingProvider struct{}

func (blockingProvider) Forecast(ctx context.Context, _, _ float64, _ time.Time) (*Forecast, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestAssessor_Assess(t *testing.T) {
	quiet := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	now := time.Date(2024, 3, 1, 21, 0, 0, 0, time.UTC)

	t.Run("nil provider is neutral", func(t *testing.T) {
		a := &Assessor{Logger: quiet}
		if got := a.Assess(context.Background(), 51, 4, now); got != Neutral() {
			t.Errorf("Assess() = %+v, want neutral", got)
		}
	})

	t.Run("provider error falls back and counts", func(t *testing.T) {
		rec := &countingRecorder{}
		a := &Assessor{Provider: failingProvider{}, Logger: quiet, Metrics: rec}
		got := a.Assess(context.Background(), 51, 4, now)
		if got.Chance != NeutralChance || got.Reason != NeutralReason || !got.Fallback {
			t.Errorf("Assess() = %+v, want neutral", got)
		}
		if rec.fallbacks != 1 {
			t.Errorf("fallbacks = %d, want 1", rec.fallbacks)
		}
	})

	t.Run("timeout falls back", func(t *testing.T) {
		a := &Assessor{Provider: blockingProvider{}, Timeout: 20 * time.Millisecond, Logger: quiet}
		start := time.Now()
		got := a.Assess(context.Background(), 51, 4, now)
		if !got.Fallback {
			t.Errorf("Assess() = %+v, want fallback", got)
		}
		if time.Since(start) > time.Second {
			t.Error("Assess() did not honor the timeout")
		}
	})

	t.Run("static forecast", func(t *testing.T) {
		a := &Assessor{
			Provider: StaticProvider{F: Forecast{CloudCover: repeat(0, 12), Precipitation: repeat(0, 12)}},
			Logger:   quiet,
		}
		got := a.Assess(context.Background(), 51, 4, now)
		if got.Chance != 100 || got.Fallback {
			t.Errorf("Assess() = %+v, want clear skies", got)
		}
	})
}
