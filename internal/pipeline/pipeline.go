// Package pipeline runs the layered ranking of one observation request:
// visibility scoring, the three boosters and rank fusion.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/onnwee/skyrank/internal/boost"
	"github.com/onnwee/skyrank/internal/catalog"
	"github.com/onnwee/skyrank/internal/fusion"
	"github.com/onnwee/skyrank/internal/ranking"
	"github.com/onnwee/skyrank/internal/tracing"
	"github.com/onnwee/skyrank/internal/visibility"
	"github.com/onnwee/skyrank/internal/weather"
)

// Pipeline errors.
var (
	ErrNoCatalog      = errors.New("no catalog loaded")
	ErrInvalidRequest = errors.New("invalid ranking request")
)

// Stage names used for metrics and spans.
const (
	StageWeather    = "weather"
	StageVisibility = "visibility"
	StageTrend      = "trend"
	StageMatrix     = "matrix"
	StageLearned    = "learned"
	StageFusion     = "fusion"
)

// Layers toggles the optional stages. Visibility scoring always runs.
type Layers struct {
	Trend   bool `json:"trend"`
	Matrix  bool `json:"matrix"`
	Learned bool `json:"learned"`
	Fusion  bool `json:"fusion"`
}

// AllLayers enables every stage.
func AllLayers() Layers {
	return Layers{Trend: true, Matrix: true, Learned: true, Fusion: true}
}

// Request is one ranking run.
type Request struct {
	Catalog  *catalog.Catalog
	Observer catalog.Observer

	// Interactions feed the trend booster; nil means no trend data.
	Interactions []catalog.InteractionRecord
	// Matrix and Learned are the preference vectors for the two affinity
	// boosters; nil vectors are neutral.
	Matrix  *catalog.PreferenceVector
	Learned *catalog.PreferenceVector

	Layers Layers
	// TopN overrides the policy's per-category cut when positive.
	TopN int
	// Seed drives every random draw of the run. Zero selects
	// fusion.DefaultSeed.
	Seed int64

	// Progress, when set, observes rank fusion generations.
	Progress fusion.ProgressFunc
}

// CategoryResult is the outcome for one category.
type CategoryResult struct {
	Category catalog.Category `json:"category"`
	// Visible is the number of objects that passed the horizon cut.
	Visible int `json:"visible"`
	// Views is the output of the last executed booster.
	Views []*visibility.View `json:"views"`
	// Fused is the rank fusion output when fusion ran.
	Fused   []fusion.Candidate `json:"fused,omitempty"`
	Weights *fusion.Chromosome `json:"weights,omitempty"`
}

// Result is the outcome of one run.
type Result struct {
	RunID      string             `json:"run_id"`
	ObservedAt time.Time          `json:"observed_at"`
	Seed       int64              `json:"seed"`
	Layers     Layers             `json:"layers"`
	Weather    weather.Assessment `json:"weather"`
	Categories []*CategoryResult  `json:"categories"`
	// Combined is the cross-category list ordered by final score.
	Combined []*visibility.View `json:"combined"`
}

// Category returns the result for c, or nil.
func (r *Result) Category(c catalog.Category) *CategoryResult {
	for _, cr := range r.Categories {
		if cr.Category == c {
			return cr
		}
	}
	return nil
}

// Config configures a Pipeline.
type Config struct {
	Policy  *ranking.Policy
	Weather *weather.Assessor
	Metrics *Metrics
	Logger  *slog.Logger
}

// Pipeline orchestrates the ranking stages. It holds no per-request state
// and is safe for concurrent use.
type Pipeline struct {
	policy  *ranking.Policy
	weather *weather.Assessor
	metrics *Metrics
	logger  *slog.Logger
}

// New creates a Pipeline. A nil policy selects ranking.DefaultPolicy and a
// nil Weather assessor reports the neutral chance.
func New(cfg Config) *Pipeline {
	if cfg.Policy == nil {
		cfg.Policy = ranking.DefaultPolicy()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Pipeline{
		policy:  cfg.Policy,
		weather: cfg.Weather,
		metrics: cfg.Metrics,
		logger:  cfg.Logger,
	}
}

// Policy returns the scoring policy in use.
func (p *Pipeline) Policy() *ranking.Policy {
	return p.policy
}

var viewAccessor = boost.Accessor[*visibility.View]{
	ID:    func(v *visibility.View) int { return v.ID },
	Key:   func(v *visibility.View) string { return v.Key },
	Score: func(v *visibility.View) float64 { return v.Score },
	Match: func(v *visibility.View) float64 { return v.MatchPercentage },
	SetScore: func(v *visibility.View, score, match float64) {
		v.Score = score
		v.MatchPercentage = match
	},
	SetDescription: func(v *visibility.View, d string) { v.BoostDescription = d },
}

// Run executes every enabled stage for req.
func (p *Pipeline) Run(ctx context.Context, req Request) (res *Result, err error) {
	runID := uuid.NewString()
	start := time.Now()

	ctx, endSpan := tracing.StartSpan(ctx, "pipeline.run")
	defer func() {
		endSpan(err)
		status := StatusSuccess
		if err != nil {
			status = StatusFailure
		}
		p.metrics.IncRun(status)
	}()

	if req.Catalog == nil || req.Catalog.Empty() {
		return nil, ErrNoCatalog
	}
	if err := req.Observer.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	obs := req.Observer
	if obs.Time.IsZero() {
		obs.Time = time.Now().UTC()
	}
	seed := req.Seed
	if seed == 0 {
		seed = fusion.DefaultSeed
	}
	topN := p.policy.TopN
	if req.TopN > 0 {
		topN = req.TopN
	}

	logger := p.logger.With("run_id", runID)
	tracing.SetAttributes(ctx,
		attribute.String("run_id", runID),
		attribute.Int64("seed", seed),
		attribute.Float64("latitude", obs.Latitude),
		attribute.Float64("longitude", obs.Longitude),
	)

	res = &Result{
		RunID:      runID,
		ObservedAt: obs.Time,
		Seed:       seed,
		Layers:     req.Layers,
	}

	_ = p.stage(ctx, StageWeather, func(ctx context.Context) error {
		res.Weather = p.assessWeather(ctx, obs)
		return nil
	})

	var layer1 visibility.Result
	_ = p.stage(ctx, StageVisibility, func(context.Context) error {
		scorer := visibility.NewScorer(p.policy, logger)
		layer1 = scorer.Score(req.Catalog, obs, res.Weather, stageRand(seed, StageVisibility))
		return nil
	})

	// layers[i] holds each category's output of stage i+1.
	type stack struct {
		category catalog.Category
		layers   [fusion.Layers][]*visibility.View
	}
	stacks := make([]*stack, 0, len(catalog.Categories))
	for _, c := range catalog.Categories {
		views := layer1.ByCategory(c)
		p.metrics.SetVisible(c, len(views))
		s := &stack{category: c}
		for i := range s.layers {
			s.layers[i] = views
		}
		stacks = append(stacks, s)
	}

	if req.Layers.Trend {
		rng := stageRand(seed, StageTrend)
		_ = p.stage(ctx, StageTrend, func(context.Context) error {
			for _, s := range stacks {
				records := boost.FilterInteractions(req.Interactions, s.category)
				fn := boost.Trend(viewAccessor, records, p.policy.Trend, rng)
				s.layers[1] = boost.Apply(visibility.CloneAll(s.layers[0]), viewAccessor, fn, boost.Options{TopN: topN})
				s.layers[2], s.layers[3] = s.layers[1], s.layers[1]
			}
			return nil
		})
	}

	if req.Layers.Matrix {
		_ = p.stage(ctx, StageMatrix, func(context.Context) error {
			for _, s := range stacks {
				fn := boost.Affinity(viewAccessor, req.Matrix, s.category, p.policy.Matrix)
				s.layers[2] = boost.Apply(visibility.CloneAll(s.layers[1]), viewAccessor, fn, boost.Options{TopN: topN, Label: boost.LabelMatrix})
				s.layers[3] = s.layers[2]
			}
			return nil
		})
	}

	if req.Layers.Learned {
		_ = p.stage(ctx, StageLearned, func(context.Context) error {
			for _, s := range stacks {
				fn := boost.Affinity(viewAccessor, req.Learned, s.category, p.policy.Learned)
				s.layers[3] = boost.Apply(visibility.CloneAll(s.layers[2]), viewAccessor, fn, boost.Options{TopN: topN, Label: boost.LabelLearned})
			}
			return nil
		})
	}

	for _, s := range stacks {
		final := s.layers[3]
		if len(final) > topN {
			final = final[:topN]
		}
		res.Categories = append(res.Categories, &CategoryResult{
			Category: s.category,
			Visible:  len(s.layers[0]),
			Views:    final,
		})
	}

	if req.Layers.Fusion {
		err = p.stage(ctx, StageFusion, func(ctx context.Context) error {
			candidates := make(map[catalog.Category][]fusion.Candidate)
			for _, s := range stacks {
				if len(s.layers[0]) == 0 {
					continue
				}
				candidates[s.category] = fusion.BuildCandidates(s.layers[0], s.layers[1], s.layers[2], s.layers[3])
			}
			if len(candidates) == 0 {
				return nil
			}

			engine := fusion.NewEngine(fusion.ConfigFromPolicy(p.policy.Fusion), seed, logger)
			engine.Progress = req.Progress

			fused, err := engine.OptimizeAll(ctx, candidates)
			if err != nil {
				return err
			}
			for category, cr := range fused.Categories {
				weights := cr.BestWeights
				out := res.Category(category)
				out.Fused = cr.Candidates
				out.Weights = &weights
				p.metrics.SetBestFitness(category, weights.Fitness)
				p.metrics.AddGenerations(category, cr.Generations)
			}
			return nil
		})
		if err != nil {
			logger.Warn("rank fusion aborted", "error", err)
			return nil, fmt.Errorf("rank fusion failed: %w", err)
		}
	}

	res.Combined = combine(res.Categories, p.policy.CombinedTopN)

	logger.Info("ranking complete",
		"stars", len(layer1.Stars),
		"planets", len(layer1.Planets),
		"moons", len(layer1.Moons),
		"visibility_chance", res.Weather.Chance,
		"weather_fallback", res.Weather.Fallback,
		"duration_ms", time.Since(start).Milliseconds())

	return res, nil
}

// assessWeather returns the shared visibility outlook, or the neutral one
// when no assessor is configured.
func (p *Pipeline) assessWeather(ctx context.Context, obs catalog.Observer) weather.Assessment {
	if p.weather == nil {
		return weather.Neutral()
	}
	a := p.weather.Assess(ctx, obs.Latitude, obs.Longitude, obs.Time)
	if a.Fallback {
		tracing.AddEvent(ctx, "weather.fallback", attribute.String("reason", a.Reason))
	}
	return a
}

// stage times fn under a span named after the stage.
func (p *Pipeline) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, endSpan := tracing.StartSpan(ctx, "pipeline."+name)
	start := time.Now()
	err := fn(ctx)
	p.metrics.ObserveStage(name, time.Since(start).Seconds())
	endSpan(err)
	return err
}

// combine merges every category's final views into one list by score.
func combine(categories []*CategoryResult, n int) []*visibility.View {
	var all []*visibility.View
	for _, c := range categories {
		all = append(all, c.Views...)
	}
	visibility.SortByScore(all)
	if n > 0 && len(all) > n {
		all = all[:n]
	}
	return all
}

// stageRand returns a generator for one stage, derived from the run seed so
// stages stay reproducible when others are toggled off.
func stageRand(seed int64, stage string) *rand.Rand {
	h := fnv.New64a()
	_, _ = h.Write([]byte(stage))
	return rand.New(rand.NewSource(seed ^ int64(h.Sum64())))
}
