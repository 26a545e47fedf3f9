// Package visibility places catalog objects in an observer's sky and scores
// the visible ones against the observer's stated preferences.
package visibility

import (
	"errors"
	"log/slog"
	"math"
	"math/rand"
	"strings"

	"github.com/onnwee/skyrank/internal/catalog"
	"github.com/onnwee/skyrank/internal/ephemeris"
	"github.com/onnwee/skyrank/internal/ranking"
	"github.com/onnwee/skyrank/internal/weather"
)

// homePlanet is the observer's own planet. It sits at the geocentric origin
// and is never ranked, so its moons never find a visible parent either.
const homePlanet = "earth"

// Scorer computes Layer 1 views for each category.
type Scorer struct {
	policy *ranking.Policy
	logger *slog.Logger
}

// NewScorer creates a Scorer. A nil policy selects ranking.DefaultPolicy and
// a nil logger selects slog.Default.
func NewScorer(policy *ranking.Policy, logger *slog.Logger) *Scorer {
	if policy == nil {
		policy = ranking.DefaultPolicy()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scorer{policy: policy, logger: logger}
}

// Result holds the ranked visible views of every category.
type Result struct {
	Stars   []*View
	Planets []*View
	Moons   []*View
}

// ByCategory returns the views for one category.
func (r Result) ByCategory(c catalog.Category) []*View {
	switch c {
	case catalog.CategoryStar:
		return r.Stars
	case catalog.CategoryPlanet:
		return r.Planets
	case catalog.CategoryMoon:
		return r.Moons
	}
	return nil
}

// Score runs all three category scorers. Random nudges are drawn from rng in
// star, planet, moon order, so a fixed seed yields identical results.
func (s *Scorer) Score(c *catalog.Catalog, obs catalog.Observer, w weather.Assessment, rng *rand.Rand) Result {
	if c == nil {
		return Result{}
	}
	stars := s.ScoreStars(c.Stars, obs, w, rng)
	planets := s.ScorePlanets(c.Planets, obs, w, rng)
	return Result{
		Stars:   stars,
		Planets: planets,
		Moons:   s.ScoreMoons(c.Moons, planets, obs, w, rng),
	}
}

// ScoreStars positions every star and scores those above the minimum
// altitude.
//
// Terms:
//   - liked: 5 when the observer likes the star
//   - spectral: 5 when the spectral class is a favorite
//   - brightness: max(0, 5-Gmag)^1.5
//   - synergy: flat bonus when liked and spectral both hit
func (s *Scorer) ScoreStars(stars []catalog.Star, obs catalog.Observer, w weather.Assessment, rng *rand.Rand) []*View {
	weights := s.policy.Star
	views := make([]*View, 0, len(stars))

	for _, star := range stars {
		ra := ephemeris.HoursToDegrees(star.RA)
		alt, az := ephemeris.Horizontal(ra, star.Dec, obs.Latitude, obs.Longitude, obs.Time)
		if alt < s.policy.MinAltitude {
			continue
		}

		class := star.SpectralClass()

		var liked, spectral, synergy float64
		if obs.LikesStar(star.Name) {
			liked = 5
		}
		if class != "" && obs.FavorsSpectralClass(class) {
			spectral = 5
		}
		if liked > 0 && spectral > 0 {
			synergy = weights.Synergy
		}
		brightness := math.Pow(math.Max(0, 5-star.GMag), 1.5)

		score := weights.Liked*liked +
			weights.Spectral*spectral +
			weights.Brightness*brightness +
			synergy +
			rng.Float64()*weights.Jitter

		v := &View{
			Category:       catalog.CategoryStar,
			ID:             star.ID,
			Name:           star.Name,
			Key:            class,
			Altitude:       alt,
			Azimuth:        az,
			RightAscension: ra,
			Declination:    star.Dec,
			Visible:        true,
			MaxScore:       weights.MaxScore,
		}
		finish(v, score, w)
		views = append(views, v)
	}

	SortByScore(views)
	return views
}

// ScorePlanets positions every planet and scores those above the minimum
// altitude. Bodies without orbital elements are skipped, as is the home
// planet.
//
// Terms:
//   - liked: 3 when the observer likes the planet
//   - rings: 2 with rings
//   - temperature: 3 when the mean temperature is within (-50, 60) C
//   - distance: 2/(dSun+1)
//   - magnitude: clamp(5 - (mag + 5*log10(sunAU*earthAU)), 0, 5)^1.2
//   - synergy: flat bonus when liked and temperate
func (s *Scorer) ScorePlanets(planets []catalog.Planet, obs catalog.Observer, w weather.Assessment, rng *rand.Rand) []*View {
	weights := s.policy.Planet
	views := make([]*View, 0, len(planets))

	for _, planet := range planets {
		if strings.EqualFold(strings.TrimSpace(planet.Name), homePlanet) {
			continue
		}

		geo, err := ephemeris.Geocentric(planet.Name, obs.Time)
		if err != nil {
			if errors.Is(err, ephemeris.ErrUnknownBody) {
				s.logger.Debug("skipping body without orbital elements",
					"category", catalog.CategoryPlanet,
					"name", planet.Name)
				continue
			}
			s.logger.Warn("failed to position planet", "name", planet.Name, "error", err)
			continue
		}

		ra, dec := ephemeris.ToEquatorial(geo)
		alt, az := ephemeris.Horizontal(ra, dec, obs.Latitude, obs.Longitude, obs.Time)
		if alt < s.policy.MinAltitude {
			continue
		}

		var liked, rings, temperate, synergy float64
		if obs.LikesPlanet(planet.Name) {
			liked = 3
		}
		if planet.HasRings {
			rings = 2
		}
		if planet.MeanTemperature > -50 && planet.MeanTemperature < 60 {
			temperate = 3
		}
		if liked > 0 && temperate > 0 {
			synergy = weights.Synergy
		}
		distance := 2 / (planet.DistanceFromSun + 1)

		score := weights.Liked*liked +
			weights.Rings*rings +
			weights.Temperature*temperate +
			weights.Distance*distance +
			weights.Magnitude*planetMagnitudeTerm(planet) +
			synergy +
			rng.Float64()*weights.Jitter

		v := &View{
			Category:       catalog.CategoryPlanet,
			ID:             planet.ID,
			Name:           planet.Name,
			Key:            planet.Type,
			Altitude:       alt,
			Azimuth:        az,
			RightAscension: ra,
			Declination:    dec,
			Geocentric:     &geo,
			Visible:        true,
			MaxScore:       weights.MaxScore,
		}
		finish(v, score, w)
		views = append(views, v)
	}

	SortByScore(views)
	return views
}

// planetMagnitudeTerm scores apparent brightness from the catalog magnitude
// and distances (millions of km).
func planetMagnitudeTerm(p catalog.Planet) float64 {
	const kmPerAU = 149.6

	sunAU := math.Max(p.DistanceFromSun/kmPerAU, 1e-6)
	earthAU := math.Max(p.DistanceFromEarth/kmPerAU, 1e-6)
	raw := 5 - (p.Magnitude + 5*math.Log10(sunAU*earthAU))
	return math.Pow(ranking.Clamp(raw, 0, 5), 1.2)
}

// parentPosition is a resolved parent body for moon placement.
type parentPosition struct {
	geo     ephemeris.Vector
	visible bool
}

// ScoreMoons positions the moons of visible planets and scores those above
// the minimum altitude. visiblePlanets is the output of ScorePlanets; moons
// whose parent is not in it are skipped.
//
// Terms:
//   - liked parent: 1 when the observer likes the parent planet
//   - liked moon: 2 when the observer likes the moon
//   - composition, surface: 2 each when known
//   - distance: min(3, (1000/(d+1))^1.2) when the distance is known
//   - magnitude: clamp((2-mag/10)^1.2, 0, 2) when the magnitude is known
//   - synergy: flat bonus when moon and parent are both liked
func (s *Scorer) ScoreMoons(moons []catalog.Moon, visiblePlanets []*View, obs catalog.Observer, w weather.Assessment, rng *rand.Rand) []*View {
	weights := s.policy.Moon

	parents := make(map[string]parentPosition, len(visiblePlanets))
	for _, p := range visiblePlanets {
		if p.Geocentric == nil {
			continue
		}
		parents[strings.ToLower(strings.TrimSpace(p.Name))] = parentPosition{geo: *p.Geocentric, visible: p.Visible}
	}

	views := make([]*View, 0, len(moons))
	for _, moon := range moons {
		parent, ok := parents[strings.ToLower(strings.TrimSpace(moon.Parent))]
		if !ok || !parent.visible {
			s.logger.Debug("skipping moon without a visible parent",
				"name", moon.Name,
				"parent", moon.Parent)
			continue
		}

		geo := ephemeris.MoonGeocentric(moon.Orbit(), parent.geo, obs.Time)
		ra, dec := ephemeris.ToEquatorial(geo)
		alt, az := ephemeris.Horizontal(ra, dec, obs.Latitude, obs.Longitude, obs.Time)
		if alt < s.policy.MinAltitude {
			continue
		}

		var likedParent, likedMoon, composition, surface, distance, magnitude, synergy float64
		if obs.LikesPlanet(moon.Parent) {
			likedParent = 1
		}
		if obs.LikesMoon(moon.Name) {
			likedMoon = 2
		}
		if strings.TrimSpace(moon.Composition) != "" {
			composition = 2
		}
		if strings.TrimSpace(moon.SurfaceFeatures) != "" {
			surface = 2
		}
		if moon.DistanceFromEarth > 0 {
			distance = math.Min(3, math.Pow(1000/(moon.DistanceFromEarth+1), 1.2))
		}
		if moon.Magnitude > 0 {
			magnitude = ranking.Clamp(math.Pow(2-moon.Magnitude/10, 1.2), 0, 2)
		}
		if likedParent > 0 && likedMoon > 0 {
			synergy = weights.Synergy
		}

		score := weights.LikedParent*likedParent +
			weights.LikedMoon*likedMoon +
			weights.Composition*composition +
			weights.Surface*surface +
			weights.Distance*distance +
			weights.Magnitude*magnitude +
			synergy +
			rng.Float64()*weights.Jitter

		v := &View{
			Category:       catalog.CategoryMoon,
			ID:             moon.ID,
			Name:           moon.Name,
			Key:            moon.Parent,
			Altitude:       alt,
			Azimuth:        az,
			RightAscension: ra,
			Declination:    dec,
			Geocentric:     &geo,
			Visible:        true,
			MaxScore:       weights.MaxScore,
		}
		finish(v, score, w)
		views = append(views, v)
	}

	SortByScore(views)
	return views
}

// finish records the Layer 1 score and attaches the shared weather outlook.
func finish(v *View, score float64, w weather.Assessment) {
	v.SetScore(score)
	v.BaseScore = v.Score
	v.VisibilityChance = ranking.Round2(w.Chance)
	v.ChanceReason = w.Reason
}
