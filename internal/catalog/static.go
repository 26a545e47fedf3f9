// Package catalog defines the celestial object catalog, the observer profile,
// and the sources a catalog can be loaded from.
package catalog

import (
	"context"
	"time"
)

// StaticSource serves the built-in sample catalog.
type StaticSource struct{}

// Load returns a fresh copy of the sample catalog.
func (StaticSource) Load(ctx context.Context) (*Catalog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return SampleCatalog(), nil
}

// Name identifies the source in logs and metrics.
func (StaticSource) Name() string { return "static" }

// SampleCatalog returns 20 bright stars, the Sun and the eight planets, and
// twelve well-known moons.
func SampleCatalog() *Catalog {
	return &Catalog{
		Stars: []Star{
			{ID: 1, Name: "Sirius", RA: 6.752, Dec: -16.716, GMag: -1.46, SpectralType: "A"},
			{ID: 2, Name: "Betelgeuse", RA: 5.9195, Dec: 7.4071, GMag: 0.42, SpectralType: "M"},
			{ID: 3, Name: "Rigel", RA: 5.242, Dec: -8.201, GMag: 0.18, SpectralType: "B"},
			{ID: 4, Name: "Procyon", RA: 7.655, Dec: 5.225, GMag: 0.38, SpectralType: "F"},
			{ID: 5, Name: "Achernar", RA: 1.6286, Dec: -57.2368, GMag: 0.46, SpectralType: "B"},
			{ID: 6, Name: "Altair", RA: 19.8464, Dec: 8.8683, GMag: 0.77, SpectralType: "A"},
			{ID: 7, Name: "Aldebaran", RA: 4.5987, Dec: 16.5093, GMag: 0.87, SpectralType: "K"},
			{ID: 8, Name: "Spica", RA: 13.4199, Dec: -11.1614, GMag: 0.97, SpectralType: "B"},
			{ID: 9, Name: "Antares", RA: 16.4901, Dec: -26.4319, GMag: 1.06, SpectralType: "M"},
			{ID: 10, Name: "Pollux", RA: 7.7553, Dec: 28.0262, GMag: 1.14, SpectralType: "K"},
			{ID: 11, Name: "Fomalhaut", RA: 22.9608, Dec: -29.6222, GMag: 1.16, SpectralType: "A"},
			{ID: 12, Name: "Deneb", RA: 20.6905, Dec: 45.2803, GMag: 1.25, SpectralType: "A"},
			{ID: 13, Name: "Regulus", RA: 10.1395, Dec: 11.9672, GMag: 1.35, SpectralType: "B"},
			{ID: 14, Name: "Castor", RA: 7.5767, Dec: 31.8883, GMag: 1.58, SpectralType: "A"},
			{ID: 15, Name: "Adhara", RA: 6.9771, Dec: -28.9721, GMag: 1.50, SpectralType: "B"},
			{ID: 16, Name: "Shaula", RA: 17.5601, Dec: -37.1038, GMag: 1.62, SpectralType: "B"},
			{ID: 17, Name: "Bellatrix", RA: 5.4189, Dec: 6.3497, GMag: 1.64, SpectralType: "B"},
			{ID: 18, Name: "Elnath", RA: 5.4382, Dec: 28.6075, GMag: 1.65, SpectralType: "B"},
			{ID: 19, Name: "Miaplacidus", RA: 9.2190, Dec: -69.7172, GMag: 1.67, SpectralType: "A"},
			{ID: 20, Name: "Alnilam", RA: 5.6036, Dec: -1.2019, GMag: 1.69, SpectralType: "B"},
		},
		Planets: []Planet{
			{ID: 1, Name: "Sun", Type: "Star", Color: "Yellow-White", DistanceFromSun: 0, DistanceFromEarth: 149.6, Diameter: 1391016, Mass: 1989000, MeanTemperature: 5505, HasMagneticField: true, Magnitude: 4.83},
			{ID: 2, Name: "Mercury", Type: "Terrestrial", Color: "Gray", DistanceFromSun: 57.9, DistanceFromEarth: 91.7, Diameter: 4879, Mass: 0.330, MeanTemperature: 167, HasMagneticField: true, Magnitude: 5.73},
			{ID: 3, Name: "Venus", Type: "Terrestrial", Color: "Yellow", DistanceFromSun: 108.2, DistanceFromEarth: 41.4, Diameter: 12104, Mass: 4.87, MeanTemperature: 464, Magnitude: 4.38},
			{ID: 4, Name: "Earth", Type: "Terrestrial", Color: "Blue", DistanceFromSun: 149.6, DistanceFromEarth: 83.0, Diameter: 12742, Mass: 5.97, MeanTemperature: 15, NumberOfMoons: 1, HasMagneticField: true, Magnitude: 4.83},
			{ID: 5, Name: "Mars", Type: "Terrestrial", Color: "Red", DistanceFromSun: 227.9, DistanceFromEarth: 78.3, Diameter: 6792, Mass: 0.642, MeanTemperature: -60, NumberOfMoons: 2, Magnitude: 6.40},
			{ID: 6, Name: "Jupiter", Type: "Gas Giant", Color: "Orange", DistanceFromSun: 778.5, DistanceFromEarth: 628.7, Diameter: 139820, Mass: 1898, MeanTemperature: -110, NumberOfMoons: 79, HasRings: true, HasMagneticField: true, Magnitude: 2.70},
			{ID: 7, Name: "Saturn", Type: "Gas Giant", Color: "Yellow", DistanceFromSun: 1427, DistanceFromEarth: 1275, Diameter: 120536, Mass: 568, MeanTemperature: -140, NumberOfMoons: 82, HasRings: true, HasMagneticField: true, Magnitude: 1.47},
			{ID: 8, Name: "Uranus", Type: "Ice Giant", Color: "LightBlue", DistanceFromSun: 2871, DistanceFromEarth: 2721, Diameter: 51118, Mass: 86.8, MeanTemperature: -195, NumberOfMoons: 27, HasRings: true, HasMagneticField: true, Magnitude: 5.52},
			{ID: 9, Name: "Neptune", Type: "Ice Giant", Color: "Blue", DistanceFromSun: 4495, DistanceFromEarth: 4351, Diameter: 49528, Mass: 102, MeanTemperature: -200, NumberOfMoons: 14, HasRings: true, HasMagneticField: true, Magnitude: 7.05},
		},
		Moons: []Moon{
			{ID: 1, Name: "Moon", Parent: "Earth", Color: "Gray", Diameter: 3475, Mass: 0.073, OrbitalPeriod: 27.3, SemiMajorAxisKm: 384400, Inclination: 5.145, Composition: "Rock/Ice", SurfaceFeatures: "Craters"},
			{ID: 2, Name: "Phobos", Parent: "Mars", Color: "Gray", Diameter: 22.4, Mass: 1.065e-8, OrbitalPeriod: 0.319, SemiMajorAxisKm: 9376, Inclination: 1.093, Composition: "Rock", SurfaceFeatures: "Craters", DistanceFromEarth: 78.4},
			{ID: 3, Name: "Deimos", Parent: "Mars", Color: "Gray", Diameter: 12.4, Mass: 1.476e-9, OrbitalPeriod: 1.263, SemiMajorAxisKm: 23460, Inclination: 0.93, Composition: "Rock", SurfaceFeatures: "Craters", DistanceFromEarth: 78.4},
			{ID: 4, Name: "Io", Parent: "Jupiter", Color: "Yellow", Diameter: 3643, Mass: 0.089, OrbitalPeriod: 1.769, SemiMajorAxisKm: 421700, Inclination: 0.04, Composition: "Rock/Ice", SurfaceFeatures: "Volcanoes", DistanceFromEarth: 628.5},
			{ID: 5, Name: "Europa", Parent: "Jupiter", Color: "Gray", Diameter: 3122, Mass: 0.008, OrbitalPeriod: 3.551, SemiMajorAxisKm: 671000, Inclination: 0.47, Composition: "Ice/Rock", SurfaceFeatures: "Cracks", DistanceFromEarth: 628.5},
			{ID: 6, Name: "Ganymede", Parent: "Jupiter", Color: "Gray", Diameter: 5268, Mass: 0.148, OrbitalPeriod: 7.154, SemiMajorAxisKm: 1070400, Inclination: 0.20, Composition: "Ice/Rock", SurfaceFeatures: "Cratered terrain", DistanceFromEarth: 628.5},
			{ID: 7, Name: "Callisto", Parent: "Jupiter", Color: "Gray", Diameter: 4821, Mass: 0.107, OrbitalPeriod: 16.689, SemiMajorAxisKm: 1882700, Inclination: 0.19, Composition: "Ice/Rock", SurfaceFeatures: "Craters", DistanceFromEarth: 628.5},
			{ID: 8, Name: "Titan", Parent: "Saturn", Color: "Orange", Diameter: 5150, Mass: 0.1345, OrbitalPeriod: 15.945, SemiMajorAxisKm: 1221870, Inclination: 0.33, Composition: "Nitrogen/Methane", SurfaceFeatures: "Lakes, dunes", DistanceFromEarth: 1272},
			{ID: 9, Name: "Enceladus", Parent: "Saturn", Color: "White", Diameter: 504, Mass: 1.08e-4, OrbitalPeriod: 1.370, SemiMajorAxisKm: 238000, Inclination: 0.0, Composition: "Ice/Rock", SurfaceFeatures: "Geysers", DistanceFromEarth: 1272},
			{ID: 10, Name: "Miranda", Parent: "Uranus", Color: "Gray", Diameter: 471, Mass: 6.59e-5, OrbitalPeriod: 1.413, SemiMajorAxisKm: 129900, Inclination: 4.338, Composition: "Ice/Rock", SurfaceFeatures: "Cliffs, craters", DistanceFromEarth: 2718},
			{ID: 11, Name: "Titania", Parent: "Uranus", Color: "Gray", Diameter: 1580, Mass: 0.035, OrbitalPeriod: 8.706, SemiMajorAxisKm: 436300, Inclination: 0.079, Composition: "Ice/Rock", SurfaceFeatures: "Craters", DistanceFromEarth: 2718},
			{ID: 12, Name: "Triton", Parent: "Neptune", Color: "LightBlue", Diameter: 2706, Mass: 0.022, OrbitalPeriod: -5.877, SemiMajorAxisKm: 354800, Inclination: 156.865, Composition: "Ice/Rock", SurfaceFeatures: "Craters, geysers", DistanceFromEarth: 4300},
		},
	}
}

// SampleObserver returns the demo observer in Flanders with a few liked
// objects per category.
func SampleObserver(at time.Time) Observer {
	return Observer{
		UserID:       "1",
		Latitude:     51.016,
		Longitude:    4.24222,
		Time:         at.UTC(),
		LikedStars:   []string{"Sirius", "Procyon", "Deneb"},
		LikedPlanets: []string{"Sun", "Mars", "Venus", "Mercury"},
		LikedMoons:   []string{"Europa", "Moon"},
	}
}

// SampleInteractions returns demo engagement data for a handful of objects.
func SampleInteractions() []InteractionRecord {
	rec := func(c Category, id int, total, views, clicks, favs, trend float64) InteractionRecord {
		return InteractionRecord{
			Category: c, ObjectID: id, TotalInteractions: total,
			Views: views, Clicks: clicks, Favorites: favs, TrendingScore: trend,
		}
	}
	return []InteractionRecord{
		rec(CategoryStar, 12, 50, 12.5, 10.3, 8.2, 45.1),
		rec(CategoryStar, 2, 45, 11.0, 9.1, 7.8, 42.5),
		rec(CategoryStar, 3, 40, 10.0, 8.0, 6.5, 39.8),
		rec(CategoryStar, 4, 35, 9.5, 7.5, 6.0, 37.2),
		rec(CategoryPlanet, 1, 100, 25, 20, 15, 80),
		rec(CategoryPlanet, 2, 75, 18, 14, 10, 65),
		rec(CategoryPlanet, 3, 80, 20, 16, 12, 70),
		rec(CategoryPlanet, 4, 90, 22, 18, 14, 75),
		rec(CategoryPlanet, 5, 70, 17, 13, 9, 60),
		rec(CategoryMoon, 1, 30, 8, 6, 5, 28),
		rec(CategoryMoon, 2, 15, 4, 3, 2.5, 14),
		rec(CategoryMoon, 3, 12, 3, 2.5, 2, 11),
		rec(CategoryMoon, 4, 25, 7, 5.5, 4.5, 22),
		rec(CategoryMoon, 9, 20, 6, 4.5, 3.5, 19),
	}
}

// SampleMatrixPreferences returns the demo matrix affinity vector.
func SampleMatrixPreferences() *PreferenceVector {
	return &PreferenceVector{
		UserID: "1",
		Stars:  map[string]float64{"A": 7.5, "B": 3.2, "F": 6.8, "G": 9.1, "K": 5.4, "M": 8.0, "O": 2.1},
		Planets: map[string]float64{
			"Dwarf Planet": 4.5, "Gas Giant": 8.5, "Ice Giant": 7.2, "Terrestrial": 9.0,
		},
		Moons: map[string]float64{
			"Earth": 8.8, "Eris": 3.0, "Haumea": 2.5, "Jupiter": 9.5, "Makemake": 2.0,
			"Mars": 7.0, "Neptune": 6.5, "Pluto": 5.5, "Saturn": 8.0, "Uranus": 6.0,
		},
	}
}

// SampleLearnedPreferences returns the demo learned affinity vector.
func SampleLearnedPreferences() *PreferenceVector {
	return &PreferenceVector{
		UserID: "1",
		Stars:  map[string]float64{"A": 6.3, "B": 4.7, "F": 7.5, "G": 8.2, "K": 5.9, "M": 7.8, "O": 3.0},
		Planets: map[string]float64{
			"Dwarf Planet": 5.2, "Gas Giant": 7.9, "Ice Giant": 6.8, "Terrestrial": 8.7,
		},
		Moons: map[string]float64{
			"Earth": 9.0, "Eris": 2.8, "Haumea": 3.1, "Jupiter": 9.2, "Makemake": 1.9,
			"Mars": 6.5, "Neptune": 7.1, "Pluto": 5.8, "Saturn": 8.3, "Uranus": 6.7,
		},
	}
}
