// Package catalog defines the celestial object catalog, the observer profile,
// and the sources a catalog can be loaded from.
package catalog

import (
	"fmt"
	"strings"

	"github.com/onnwee/skyrank/internal/ephemeris"
)

// Category groups objects that are scored and ranked together.
type Category string

const (
	CategoryStar   Category = "star"
	CategoryPlanet Category = "planet"
	CategoryMoon   Category = "moon"
)

// Categories lists every category in pipeline order.
var Categories = []Category{CategoryStar, CategoryPlanet, CategoryMoon}

// ParseCategory converts a case-insensitive name into a Category.
func ParseCategory(s string) (Category, error) {
	switch Category(strings.ToLower(strings.TrimSpace(s))) {
	case CategoryStar, "stars":
		return CategoryStar, nil
	case CategoryPlanet, "planets":
		return CategoryPlanet, nil
	case CategoryMoon, "moons":
		return CategoryMoon, nil
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// Star is a catalog star. RA is in hours, Dec in degrees.
type Star struct {
	ID           int     `json:"id" koanf:"id"`
	Name         string  `json:"name" koanf:"name"`
	RA           float64 `json:"ra_hours" koanf:"ra_hours"`
	Dec          float64 `json:"dec" koanf:"dec"`
	GMag         float64 `json:"g_mag" koanf:"g_mag"`
	BPMag        float64 `json:"bp_mag,omitempty" koanf:"bp_mag"`
	RPMag        float64 `json:"rp_mag,omitempty" koanf:"rp_mag"`
	Parallax     float64 `json:"parallax_mas,omitempty" koanf:"parallax_mas"`
	SpectralType string  `json:"spectral_type" koanf:"spectral_type"`
	Temperature  float64 `json:"temperature_k,omitempty" koanf:"temperature_k"`
	Luminosity   float64 `json:"luminosity,omitempty" koanf:"luminosity"`
	Mass         float64 `json:"mass,omitempty" koanf:"mass"`
}

// ColorIndex returns BP - RP.
func (s Star) ColorIndex() float64 {
	return s.BPMag - s.RPMag
}

// DistanceParsecs converts the parallax into a distance.
// Reports false when the parallax is not positive.
func (s Star) DistanceParsecs() (float64, bool) {
	if s.Parallax <= 0 {
		return 0, false
	}
	return 1000.0 / s.Parallax, true
}

// SpectralClass returns the upper-case leading letter of the spectral type.
func (s Star) SpectralClass() string {
	t := strings.TrimSpace(s.SpectralType)
	if t == "" {
		return ""
	}
	return strings.ToUpper(t[:1])
}

// Planet is a catalog planet or dwarf planet. Distances are in millions of
// kilometers, temperature in degrees Celsius.
type Planet struct {
	ID                int     `json:"id" koanf:"id"`
	Name              string  `json:"name" koanf:"name"`
	Type              string  `json:"type" koanf:"type"`
	Color             string  `json:"color,omitempty" koanf:"color"`
	DistanceFromSun   float64 `json:"distance_from_sun" koanf:"distance_from_sun"`
	DistanceFromEarth float64 `json:"distance_from_earth" koanf:"distance_from_earth"`
	Diameter          float64 `json:"diameter,omitempty" koanf:"diameter"`
	Mass              float64 `json:"mass,omitempty" koanf:"mass"`
	MeanTemperature   float64 `json:"mean_temperature" koanf:"mean_temperature"`
	NumberOfMoons     int     `json:"number_of_moons" koanf:"number_of_moons"`
	HasRings          bool    `json:"has_rings" koanf:"has_rings"`
	HasMagneticField  bool    `json:"has_magnetic_field" koanf:"has_magnetic_field"`
	Magnitude         float64 `json:"magnitude" koanf:"magnitude"`
}

// Moon is a natural satellite. Orbital elements are relative to Parent.
type Moon struct {
	ID                       int     `json:"id" koanf:"id"`
	Name                     string  `json:"name" koanf:"name"`
	Parent                   string  `json:"parent" koanf:"parent"`
	Color                    string  `json:"color,omitempty" koanf:"color"`
	Diameter                 float64 `json:"diameter,omitempty" koanf:"diameter"`
	Mass                     float64 `json:"mass,omitempty" koanf:"mass"`
	Composition              string  `json:"composition,omitempty" koanf:"composition"`
	SurfaceFeatures          string  `json:"surface_features,omitempty" koanf:"surface_features"`
	Magnitude                float64 `json:"magnitude" koanf:"magnitude"`
	DistanceFromEarth        float64 `json:"distance_from_earth" koanf:"distance_from_earth"`
	SemiMajorAxisKm          float64 `json:"semi_major_axis_km" koanf:"semi_major_axis_km"`
	Eccentricity             float64 `json:"eccentricity" koanf:"eccentricity"`
	Inclination              float64 `json:"inclination" koanf:"inclination"`
	LongitudeOfAscendingNode float64 `json:"longitude_of_ascending_node" koanf:"longitude_of_ascending_node"`
	ArgumentOfPeriapsis      float64 `json:"argument_of_periapsis" koanf:"argument_of_periapsis"`
	MeanAnomalyAtEpoch       float64 `json:"mean_anomaly_at_epoch" koanf:"mean_anomaly_at_epoch"`
	MeanMotion               float64 `json:"mean_motion,omitempty" koanf:"mean_motion"`
	OrbitalPeriod            float64 `json:"orbital_period,omitempty" koanf:"orbital_period"`
}

// Orbit returns the moon's elements in the form the ephemeris expects.
func (m Moon) Orbit() ephemeris.MoonOrbit {
	return ephemeris.MoonOrbit{
		SemiMajorAxisKm:          m.SemiMajorAxisKm,
		Eccentricity:             m.Eccentricity,
		Inclination:              m.Inclination,
		LongitudeOfAscendingNode: m.LongitudeOfAscendingNode,
		ArgumentOfPeriapsis:      m.ArgumentOfPeriapsis,
		MeanAnomalyAtEpoch:       m.MeanAnomalyAtEpoch,
		MeanMotion:               m.MeanMotion,
		OrbitalPeriod:            m.OrbitalPeriod,
	}
}

// Catalog is the full set of rankable objects. A loaded catalog is treated
// as immutable and may be shared between requests.
type Catalog struct {
	Stars   []Star   `json:"stars" koanf:"stars"`
	Planets []Planet `json:"planets" koanf:"planets"`
	Moons   []Moon   `json:"moons" koanf:"moons"`
}

// Counts returns the number of objects per category.
func (c *Catalog) Counts() map[Category]int {
	return map[Category]int{
		CategoryStar:   len(c.Stars),
		CategoryPlanet: len(c.Planets),
		CategoryMoon:   len(c.Moons),
	}
}

// Empty reports whether the catalog holds no objects at all.
func (c *Catalog) Empty() bool {
	return c == nil || len(c.Stars)+len(c.Planets)+len(c.Moons) == 0
}

// Has reports whether the catalog holds an object of category with id.
func (c *Catalog) Has(category Category, id int) bool {
	if c == nil {
		return false
	}
	switch category {
	case CategoryStar:
		for _, s := range c.Stars {
			if s.ID == id {
				return true
			}
		}
	case CategoryPlanet:
		for _, p := range c.Planets {
			if p.ID == id {
				return true
			}
		}
	case CategoryMoon:
		for _, m := range c.Moons {
			if m.ID == id {
				return true
			}
		}
	}
	return false
}
