// Package catalog defines the celestial object catalog, the observer profile,
// and the sources a catalog can be loaded from.
package catalog

import (
	"errors"
	"strings"
	"time"
)

// Observer validation errors.
var (
	ErrInvalidLatitude  = errors.New("latitude must be between -90 and 90")
	ErrInvalidLongitude = errors.New("longitude must be between -180 and 180")
)

// Observer describes who is looking at the sky, from where and when.
type Observer struct {
	UserID    string    `json:"user_id,omitempty"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Time      time.Time `json:"time"`

	LikedStars   []string `json:"liked_stars,omitempty"`
	LikedPlanets []string `json:"liked_planets,omitempty"`
	LikedMoons   []string `json:"liked_moons,omitempty"`

	FavoriteSpectralTypes    []string `json:"favorite_spectral_types,omitempty"`
	FavoritePlanetColors     []string `json:"favorite_planet_colors,omitempty"`
	FavoriteMoonCompositions []string `json:"favorite_moon_compositions,omitempty"`
}

// Validate checks the observer coordinates.
func (o Observer) Validate() error {
	var errs []error
	if o.Latitude < -90 || o.Latitude > 90 {
		errs = append(errs, ErrInvalidLatitude)
	}
	if o.Longitude < -180 || o.Longitude > 180 {
		errs = append(errs, ErrInvalidLongitude)
	}
	return errors.Join(errs...)
}

// LikesStar reports whether the star name is in the liked list.
func (o Observer) LikesStar(name string) bool { return containsFold(o.LikedStars, name) }

// LikesPlanet reports whether the planet name is in the liked list.
func (o Observer) LikesPlanet(name string) bool { return containsFold(o.LikedPlanets, name) }

// LikesMoon reports whether the moon name is in the liked list.
func (o Observer) LikesMoon(name string) bool { return containsFold(o.LikedMoons, name) }

// FavorsSpectralClass reports whether any favorite spectral type shares the
// leading class letter with class.
func (o Observer) FavorsSpectralClass(class string) bool {
	if class == "" {
		return false
	}
	for _, fav := range o.FavoriteSpectralTypes {
		fav = strings.TrimSpace(fav)
		if fav != "" && strings.EqualFold(fav[:1], class[:1]) {
			return true
		}
	}
	return false
}

func containsFold(list []string, name string) bool {
	name = strings.TrimSpace(name)
	for _, item := range list {
		if strings.EqualFold(strings.TrimSpace(item), name) {
			return true
		}
	}
	return false
}

// InteractionRecord carries aggregate engagement for one object.
// TrendingScore is on a 0-100 scale.
type InteractionRecord struct {
	Category          Category `json:"category"`
	ObjectID          int      `json:"object_id"`
	Views             float64  `json:"views"`
	Clicks            float64  `json:"clicks"`
	Favorites         float64  `json:"favorites"`
	TotalInteractions float64  `json:"total_interactions"`
	TrendingScore     float64  `json:"trending_score"`
}

// NeutralAffinity is used for any preference key a vector does not carry.
const NeutralAffinity = 5.0

// PreferenceVector holds per-category affinities on a 0-10 scale. Stars are
// keyed by spectral class, planets by type, moons by parent body.
type PreferenceVector struct {
	UserID  string             `json:"user_id,omitempty"`
	Stars   map[string]float64 `json:"stars,omitempty"`
	Planets map[string]float64 `json:"planets,omitempty"`
	Moons   map[string]float64 `json:"moons,omitempty"`
}

// Affinity returns the raw affinity for key within category, or
// NeutralAffinity when the key is unknown. Keys match case-insensitively
// and ignore spaces, so "Gas Giant" and "GasGiant" are the same key.
func (p *PreferenceVector) Affinity(category Category, key string) float64 {
	if p == nil {
		return NeutralAffinity
	}
	var m map[string]float64
	switch category {
	case CategoryStar:
		m = p.Stars
	case CategoryPlanet:
		m = p.Planets
	case CategoryMoon:
		m = p.Moons
	}
	want := normalizeKey(key)
	if want == "" {
		return NeutralAffinity
	}
	for k, v := range m {
		if normalizeKey(k) == want {
			return v
		}
	}
	return NeutralAffinity
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
}
