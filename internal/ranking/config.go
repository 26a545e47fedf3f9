package ranking

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
)

// StarWeights are the Layer 1 coefficients for stars.
type StarWeights struct {
	Liked      float64 `json:"liked"`      // 5 points when liked (default: 0.5)
	Spectral   float64 `json:"spectral"`   // 5 points on a favorite spectral class (default: 0.4)
	Brightness float64 `json:"brightness"` // max(0, 5-Gmag)^1.5 (default: 0.75)
	Synergy    float64 `json:"synergy"`    // bonus when liked and spectral both hit (default: 2)
	Jitter     float64 `json:"jitter"`     // upper bound of the tie-break nudge (default: 0.5)
	MaxScore   float64 `json:"max_score"`  // theoretical maximum for match % (default: 10.25)
}

// PlanetWeights are the Layer 1 coefficients for planets.
type PlanetWeights struct {
	Liked       float64 `json:"liked"`       // 3 points when liked (default: 0.5)
	Rings       float64 `json:"rings"`       // 2 points with rings (default: 0.2)
	Temperature float64 `json:"temperature"` // 3 points inside (-50, 60) C (default: 0.3)
	Distance    float64 `json:"distance"`    // 2/(dSun+1) (default: 0.2)
	Magnitude   float64 `json:"magnitude"`   // brightness term, up to 5^1.2 (default: 1)
	Synergy     float64 `json:"synergy"`     // bonus when liked and temperate (default: 2)
	Jitter      float64 `json:"jitter"`      // default: 0.5
	MaxScore    float64 `json:"max_score"`   // default: 10.2
}

// MoonWeights are the Layer 1 coefficients for moons.
type MoonWeights struct {
	LikedParent float64 `json:"liked_parent"` // 1 point (default: 0.3)
	LikedMoon   float64 `json:"liked_moon"`   // 2 points (default: 0.5)
	Composition float64 `json:"composition"`  // 2 points when known (default: 0.2)
	Surface     float64 `json:"surface"`      // 2 points when known (default: 0.2)
	Distance    float64 `json:"distance"`     // min(3, (1000/(d+1))^1.2) (default: 0.3)
	Magnitude   float64 `json:"magnitude"`    // clamp((2-mag/10)^1.2, 0, 2) (default: 0.75)
	Synergy     float64 `json:"synergy"`      // bonus when moon and parent are liked (default: 1)
	Jitter      float64 `json:"jitter"`       // default: 0.3
	MaxScore    float64 `json:"max_score"`    // default: 5.5
}

// TrendPolicy configures the Layer 2 trend booster.
type TrendPolicy struct {
	CapRatio       float64 `json:"cap_ratio"`        // boost cap as a share of max score (default: 0.35)
	VolumeWeight   float64 `json:"volume_weight"`    // weight of total/maxTotal (default: 0.6)
	TrendWeight    float64 `json:"trend_weight"`     // weight of trending score/100 (default: 0.4)
	HaloMultiplier float64 `json:"halo_multiplier"`  // scale of the halo factor (default: 0.45)
	HaloBaseWeight float64 `json:"halo_base_weight"` // weight of base/max in the halo (default: 0.05)
	HaloJitterMin  float64 `json:"halo_jitter_min"`  // default: 0.9
	HaloJitterMax  float64 `json:"halo_jitter_max"`  // default: 1.1
}

// AffinityPolicy configures the matrix and learned boosters.
type AffinityPolicy struct {
	CapRatio float64 `json:"cap_ratio"` // boost cap as a share of max score
	Power    float64 `json:"power"`     // exponent applied to the normalized affinity
}

// FusionPolicy configures the genetic rank fusion.
type FusionPolicy struct {
	Population       int     `json:"population"`        // default: 150
	Generations      int     `json:"generations"`       // default: 100
	EliteRate        float64 `json:"elite_rate"`        // default: 0.15
	CrossoverRate    float64 `json:"crossover_rate"`    // default: 0.75
	MutationRate     float64 `json:"mutation_rate"`     // default: 0.20
	MutationStrength float64 `json:"mutation_strength"` // default: 0.08
	TournamentSize   int     `json:"tournament_size"`   // default: 5
}

// Policy holds every tunable of the ranking pipeline.
type Policy struct {
	MinAltitude  float64        `json:"min_altitude"`   // degrees above the horizon (default: 7.5)
	Star         StarWeights    `json:"star"`
	Planet       PlanetWeights  `json:"planet"`
	Moon         MoonWeights    `json:"moon"`
	Trend        TrendPolicy    `json:"trend"`
	Matrix       AffinityPolicy `json:"matrix"`
	Learned      AffinityPolicy `json:"learned"`
	Fusion       FusionPolicy   `json:"fusion"`
	TopN         int            `json:"top_n"`          // per category after each booster (default: 5)
	CombinedTopN int            `json:"combined_top_n"` // cross-category list (default: 15)
}

// CalibrationConfig represents the JSON structure of the calibration file.
type CalibrationConfig struct {
	Version string `json:"version"`
	Policy  Policy `json:"policy"`
}

// ErrInvalidPolicy is wrapped by Validate failures.
var ErrInvalidPolicy = errors.New("invalid ranking policy")

// DefaultPolicy returns the stock scoring policy.
//
// Theoretical maxima used for match percentages:
//   - star: 0.5*5 + 0.4*5 + 0.75*5 + 2 = 10.25
//   - planet: 0.5*3 + 0.2*2 + 0.3*3 + 0.2*2 + 5 + 2 = 10.2
//   - moon: 0.3 + 1.0 + 0.4 + 0.4 + 0.9 + 1.5 + 1 = 5.5
func DefaultPolicy() *Policy {
	return &Policy{
		MinAltitude: 7.5,
		Star: StarWeights{
			Liked:      0.5,
			Spectral:   0.4,
			Brightness: 0.75,
			Synergy:    2,
			Jitter:     0.5,
			MaxScore:   10.25,
		},
		Planet: PlanetWeights{
			Liked:       0.5,
			Rings:       0.2,
			Temperature: 0.3,
			Distance:    0.2,
			Magnitude:   1,
			Synergy:     2,
			Jitter:      0.5,
			MaxScore:    10.2,
		},
		Moon: MoonWeights{
			LikedParent: 0.3,
			LikedMoon:   0.5,
			Composition: 0.2,
			Surface:     0.2,
			Distance:    0.3,
			Magnitude:   0.75,
			Synergy:     1,
			Jitter:      0.3,
			MaxScore:    5.5,
		},
		Trend: TrendPolicy{
			CapRatio:       0.35,
			VolumeWeight:   0.6,
			TrendWeight:    0.4,
			HaloMultiplier: 0.45,
			HaloBaseWeight: 0.05,
			HaloJitterMin:  0.9,
			HaloJitterMax:  1.1,
		},
		Matrix:  AffinityPolicy{CapRatio: 0.5, Power: 1},
		Learned: AffinityPolicy{CapRatio: 0.75, Power: 1.2},
		Fusion: FusionPolicy{
			Population:       150,
			Generations:      100,
			EliteRate:        0.15,
			CrossoverRate:    0.75,
			MutationRate:     0.20,
			MutationStrength: 0.08,
			TournamentSize:   5,
		},
		TopN:         5,
		CombinedTopN: 15,
	}
}

// Validate checks ranges that would otherwise produce NaN scores or a
// degenerate search.
func (p *Policy) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidPolicy}, args...)...))
		}
	}

	check(p.MinAltitude >= -90 && p.MinAltitude <= 90, "min_altitude %.2f out of range", p.MinAltitude)
	check(p.Star.MaxScore > 0, "star.max_score must be positive")
	check(p.Planet.MaxScore > 0, "planet.max_score must be positive")
	check(p.Moon.MaxScore > 0, "moon.max_score must be positive")
	check(p.Trend.HaloJitterMin <= p.Trend.HaloJitterMax, "trend halo jitter min %.2f exceeds max %.2f",
		p.Trend.HaloJitterMin, p.Trend.HaloJitterMax)
	check(p.Matrix.Power > 0 && p.Learned.Power > 0, "affinity power must be positive")
	check(p.Fusion.Population >= 2, "fusion.population %d must be at least 2", p.Fusion.Population)
	check(p.Fusion.Generations >= 1, "fusion.generations %d must be at least 1", p.Fusion.Generations)
	check(p.Fusion.TournamentSize >= 1, "fusion.tournament_size %d must be at least 1", p.Fusion.TournamentSize)
	for name, rate := range map[string]float64{
		"fusion.elite_rate":     p.Fusion.EliteRate,
		"fusion.crossover_rate": p.Fusion.CrossoverRate,
		"fusion.mutation_rate":  p.Fusion.MutationRate,
	} {
		check(rate >= 0 && rate <= 1, "%s %.2f must be within [0, 1]", name, rate)
	}
	check(p.TopN >= 1, "top_n %d must be at least 1", p.TopN)
	check(p.CombinedTopN >= 1, "combined_top_n %d must be at least 1", p.CombinedTopN)

	return errors.Join(errs...)
}

// LoadCalibration loads a scoring policy from a JSON calibration file.
// If the file doesn't exist or can't be parsed, returns the default policy
// with an error. Partial configurations are merged with defaults.
func LoadCalibration(filePath string) (*Policy, error) {
	if filePath == "" {
		return DefaultPolicy(), nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		slog.Warn("failed to read calibration file, using defaults",
			"path", filePath,
			"error", err)
		return DefaultPolicy(), fmt.Errorf("failed to read calibration file: %w", err)
	}

	var config CalibrationConfig
	if err := json.Unmarshal(data, &config); err != nil {
		slog.Warn("failed to parse calibration file, using defaults",
			"path", filePath,
			"error", err)
		return DefaultPolicy(), fmt.Errorf("failed to parse calibration file: %w", err)
	}

	defaults := DefaultPolicy()
	merged := MergeCalibration(defaults, &config.Policy)
	if err := merged.Validate(); err != nil {
		slog.Warn("calibration file produced an invalid policy, using defaults",
			"path", filePath,
			"error", err)
		return defaults, err
	}
	logCalibrationOverrides(defaults, merged)

	return merged, nil
}

// MergeCalibration merges override values into base. Only non-zero values
// from the override are applied, so a calibration file may be partial.
func MergeCalibration(base *Policy, override *Policy) *Policy {
	if base == nil {
		return DefaultPolicy()
	}

	result := *base
	if override == nil {
		return &result
	}

	dst := result.knobs()
	src := override.knobs()
	for i := range dst {
		switch {
		case dst[i].f != nil && *src[i].f != 0:
			*dst[i].f = *src[i].f
		case dst[i].i != nil && *src[i].i != 0:
			*dst[i].i = *src[i].i
		}
	}

	return &result
}

// knob names one tunable and points at its storage.
type knob struct {
	name string
	f    *float64
	i    *int
}

// knobs lists every tunable in a fixed order so two policies can be walked
// side by side.
func (p *Policy) knobs() []knob {
	f := func(name string, v *float64) knob { return knob{name: name, f: v} }
	i := func(name string, v *int) knob { return knob{name: name, i: v} }

	return []knob{
		f("min_altitude", &p.MinAltitude),

		f("star.liked", &p.Star.Liked),
		f("star.spectral", &p.Star.Spectral),
		f("star.brightness", &p.Star.Brightness),
		f("star.synergy", &p.Star.Synergy),
		f("star.jitter", &p.Star.Jitter),
		f("star.max_score", &p.Star.MaxScore),

		f("planet.liked", &p.Planet.Liked),
		f("planet.rings", &p.Planet.Rings),
		f("planet.temperature", &p.Planet.Temperature),
		f("planet.distance", &p.Planet.Distance),
		f("planet.magnitude", &p.Planet.Magnitude),
		f("planet.synergy", &p.Planet.Synergy),
		f("planet.jitter", &p.Planet.Jitter),
		f("planet.max_score", &p.Planet.MaxScore),

		f("moon.liked_parent", &p.Moon.LikedParent),
		f("moon.liked_moon", &p.Moon.LikedMoon),
		f("moon.composition", &p.Moon.Composition),
		f("moon.surface", &p.Moon.Surface),
		f("moon.distance", &p.Moon.Distance),
		f("moon.magnitude", &p.Moon.Magnitude),
		f("moon.synergy", &p.Moon.Synergy),
		f("moon.jitter", &p.Moon.Jitter),
		f("moon.max_score", &p.Moon.MaxScore),

		f("trend.cap_ratio", &p.Trend.CapRatio),
		f("trend.volume_weight", &p.Trend.VolumeWeight),
		f("trend.trend_weight", &p.Trend.TrendWeight),
		f("trend.halo_multiplier", &p.Trend.HaloMultiplier),
		f("trend.halo_base_weight", &p.Trend.HaloBaseWeight),
		f("trend.halo_jitter_min", &p.Trend.HaloJitterMin),
		f("trend.halo_jitter_max", &p.Trend.HaloJitterMax),

		f("matrix.cap_ratio", &p.Matrix.CapRatio),
		f("matrix.power", &p.Matrix.Power),
		f("learned.cap_ratio", &p.Learned.CapRatio),
		f("learned.power", &p.Learned.Power),

		i("fusion.population", &p.Fusion.Population),
		i("fusion.generations", &p.Fusion.Generations),
		f("fusion.elite_rate", &p.Fusion.EliteRate),
		f("fusion.crossover_rate", &p.Fusion.CrossoverRate),
		f("fusion.mutation_rate", &p.Fusion.MutationRate),
		f("fusion.mutation_strength", &p.Fusion.MutationStrength),
		i("fusion.tournament_size", &p.Fusion.TournamentSize),

		i("top_n", &p.TopN),
		i("combined_top_n", &p.CombinedTopN),
	}
}

// logCalibrationOverrides logs which values differ from the defaults.
func logCalibrationOverrides(defaults *Policy, loaded *Policy) {
	var overrides []string

	before := defaults.knobs()
	after := loaded.knobs()
	for i := range before {
		switch {
		case before[i].f != nil && *before[i].f != *after[i].f:
			overrides = append(overrides, fmt.Sprintf("%s: %.2f -> %.2f", before[i].name, *before[i].f, *after[i].f))
		case before[i].i != nil && *before[i].i != *after[i].i:
			overrides = append(overrides, fmt.Sprintf("%s: %d -> %d", before[i].name, *before[i].i, *after[i].i))
		}
	}

	if len(overrides) > 0 {
		slog.Info("loaded ranking calibration with overrides",
			"overrides", overrides)
	} else {
		slog.Info("loaded ranking calibration (using all defaults)")
	}
}
