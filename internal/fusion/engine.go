// Package fusion combines the four upstream rankings of each category into a
// single consensus ranking by evolving per-request layer weights with a
// genetic algorithm.
package fusion

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/onnwee/skyrank/internal/catalog"
	"github.com/onnwee/skyrank/internal/ranking"
)

// ErrNoCandidates is returned when a category has nothing to rank.
var ErrNoCandidates = errors.New("no candidates to fuse")

// DefaultSeed seeds the search when the caller does not choose one.
const DefaultSeed int64 = 42

// Config holds the search parameters.
type Config struct {
	Population       int
	Generations      int
	EliteRate        float64
	CrossoverRate    float64
	MutationRate     float64
	MutationStrength float64
	TournamentSize   int
}

// ConfigFromPolicy copies the fusion section of a scoring policy.
func ConfigFromPolicy(p ranking.FusionPolicy) Config {
	return Config{
		Population:       p.Population,
		Generations:      p.Generations,
		EliteRate:        p.EliteRate,
		CrossoverRate:    p.CrossoverRate,
		MutationRate:     p.MutationRate,
		MutationStrength: p.MutationStrength,
		TournamentSize:   p.TournamentSize,
	}
}

// DefaultConfig returns the stock search parameters.
func DefaultConfig() Config {
	return ConfigFromPolicy(ranking.DefaultPolicy().Fusion)
}

// eliteCount is ceil(EliteRate*Population), at least 1 and at most the
// population.
func (c Config) eliteCount() int {
	n := int(math.Ceil(c.EliteRate * float64(c.Population)))
	if n < 1 {
		n = 1
	}
	if n > c.Population {
		n = c.Population
	}
	return n
}

func (c Config) validate() error {
	if c.Population < 2 {
		return fmt.Errorf("population %d must be at least 2", c.Population)
	}
	if c.Generations < 1 {
		return fmt.Errorf("generations %d must be at least 1", c.Generations)
	}
	if c.TournamentSize < 1 {
		return fmt.Errorf("tournament size %d must be at least 1", c.TournamentSize)
	}
	return nil
}

// ProgressFunc observes the best fitness after each generation. It may be
// called from several goroutines at once when categories run concurrently.
type ProgressFunc func(category catalog.Category, generation int, bestFitness float64)

// CategoryResult is the outcome of one category's search.
type CategoryResult struct {
	Category catalog.Category `json:"category"`

	// Candidates are ordered by FinalRank.
	Candidates []Candidate `json:"candidates"`

	BestWeights        Chromosome `json:"best_weights"`
	InitialBestFitness float64    `json:"initial_best_fitness"`
	Generations        int        `json:"generations"`
}

// Result holds every optimized category.
type Result struct {
	Categories map[catalog.Category]*CategoryResult `json:"categories"`
}

// Engine runs the genetic search.
type Engine struct {
	Config   Config
	Seed     int64
	Progress ProgressFunc
	Logger   *slog.Logger
}

// NewEngine creates an engine with the given parameters and seed.
func NewEngine(cfg Config, seed int64, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{Config: cfg, Seed: seed, Logger: logger}
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

// CategorySeed derives an independent seed for category from seed, so each
// category's search is reproducible regardless of scheduling.
func CategorySeed(seed int64, category catalog.Category) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(category))
	return seed ^ int64(h.Sum64())
}

// OptimizeAll runs one search per category concurrently. Each category draws
// from its own generator derived from the engine seed. The first failure
// cancels the remaining searches.
func (e *Engine) OptimizeAll(ctx context.Context, candidates map[catalog.Category][]Candidate) (*Result, error) {
	categories := make([]catalog.Category, 0, len(candidates))
	for c := range candidates {
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i] < categories[j] })

	result := &Result{Categories: make(map[catalog.Category]*CategoryResult, len(categories))}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, category := range categories {
		cands := candidates[category]
		g.Go(func() error {
			rng := rand.New(rand.NewSource(CategorySeed(e.Seed, category)))
			res, err := e.Optimize(gctx, category, cands, rng)
			if err != nil {
				return fmt.Errorf("failed to fuse %s rankings: %w", category, err)
			}
			mu.Lock()
			result.Categories[category] = res
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

// Optimize evolves layer weights for one category and ranks its candidates
// with the best weights found. The context is checked at every generation
// boundary.
func (e *Engine) Optimize(ctx context.Context, category catalog.Category, candidates []Candidate, rng *rand.Rand) (*CategoryResult, error) {
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}
	if rng == nil {
		return nil, errors.New("random source is required")
	}
	cfg := e.Config
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	start := time.Now()

	population := make([]Chromosome, cfg.Population)
	for i := range population {
		population[i] = RandomChromosome(rng)
		population[i].Fitness = fitness(population[i], candidates)
	}
	sortByFitness(population)

	best := population[0]
	initialBest := best.Fitness

	for gen := 0; gen < cfg.Generations; gen++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		population = e.nextGeneration(population, candidates, rng)
		sortByFitness(population)
		if population[0].Fitness > best.Fitness {
			best = population[0]
		}

		if e.Progress != nil {
			e.Progress(category, gen, best.Fitness)
		}
	}

	e.logger().Debug("rank fusion complete",
		"category", category,
		"candidates", len(candidates),
		"generations", cfg.Generations,
		"initial_best_fitness", initialBest,
		"best_fitness", best.Fitness,
		"best", best.String(),
		"duration_ms", time.Since(start).Milliseconds())

	return &CategoryResult{
		Category:           category,
		Candidates:         rankCandidates(candidates, best),
		BestWeights:        best,
		InitialBestFitness: initialBest,
		Generations:        cfg.Generations,
	}, nil
}

// nextGeneration keeps the elites and fills the rest with offspring of
// tournament-selected parents. population must be sorted by fitness.
func (e *Engine) nextGeneration(population []Chromosome, candidates []Candidate, rng *rand.Rand) []Chromosome {
	cfg := e.Config
	next := make([]Chromosome, 0, cfg.Population)
	next = append(next, population[:cfg.eliteCount()]...)

	for len(next) < cfg.Population {
		p1 := tournament(population, cfg.TournamentSize, rng)
		p2 := tournament(population, cfg.TournamentSize, rng)

		var c1, c2 Chromosome
		if rng.Float64() < cfg.CrossoverRate {
			c1, c2 = Crossover(p1, p2, rng)
		} else {
			c1, c2 = p1, p2
		}

		if rng.Float64() < cfg.MutationRate {
			c1.Mutate(rng, cfg.MutationStrength)
		}
		if rng.Float64() < cfg.MutationRate {
			c2.Mutate(rng, cfg.MutationStrength)
		}

		c1.Fitness = fitness(c1, candidates)
		next = append(next, c1)
		if len(next) < cfg.Population {
			c2.Fitness = fitness(c2, candidates)
			next = append(next, c2)
		}
	}
	return next
}

// tournament samples size individuals with replacement and returns the
// fittest; the first sampled wins ties.
func tournament(population []Chromosome, size int, rng *rand.Rand) Chromosome {
	best := population[rng.Intn(len(population))]
	for i := 1; i < size; i++ {
		c := population[rng.Intn(len(population))]
		if c.Fitness > best.Fitness {
			best = c
		}
	}
	return best
}

// fitness rewards weights whose estimate agrees with every layer:
//
//	fitness = 1 / (1 + mean_over_candidates(sum_i (estimate - rank_i)^2))
func fitness(c Chromosome, candidates []Candidate) float64 {
	if len(candidates) == 0 {
		return 0
	}
	total := 0.0
	for _, cand := range candidates {
		est := c.Estimate(cand.Ranks)
		for _, r := range cand.Ranks {
			d := est - float64(r)
			total += d * d
		}
	}
	return 1 / (1 + total/float64(len(candidates)))
}

func sortByFitness(population []Chromosome) {
	sort.SliceStable(population, func(i, j int) bool {
		return population[i].Fitness > population[j].Fitness
	})
}
