// Package ephemeris computes positions of solar system bodies and converts
// equatorial coordinates into an observer's horizon frame.
package ephemeris

import (
	"math"
	"time"
)

const (
	// KilometersPerAU converts kilometers to astronomical units.
	KilometersPerAU = 149597870.7

	lunarSemiMajorAxisKm = 384400.0
	lunarPeriodDays      = 27.3
)

// MoonOrbit holds a moon's elements relative to its parent body.
// Angles are in degrees, MeanMotion in degrees per day, OrbitalPeriod in days.
type MoonOrbit struct {
	SemiMajorAxisKm          float64
	Eccentricity             float64
	Inclination              float64
	LongitudeOfAscendingNode float64
	ArgumentOfPeriapsis      float64
	MeanAnomalyAtEpoch       float64
	MeanMotion               float64
	OrbitalPeriod            float64
}

// meanMotion returns radians per day, preferring the explicit mean motion,
// then the orbital period, then a Kepler third law estimate scaled from the
// Earth-Moon system.
func (o MoonOrbit) meanMotion() float64 {
	if o.MeanMotion > 0 {
		return o.MeanMotion * degToRad
	}
	if o.OrbitalPeriod > 0 {
		return 2 * math.Pi / o.OrbitalPeriod
	}
	period := math.Sqrt(math.Pow(o.SemiMajorAxisKm/lunarSemiMajorAxisKm, 3)) * lunarPeriodDays
	if period <= 0 {
		return 0
	}
	return 2 * math.Pi / period
}

// MoonGeocentric returns the geocentric ecliptic position of a moon given its
// parent's geocentric position at the same instant.
func MoonGeocentric(orbit MoonOrbit, parent Vector, t time.Time) Vector {
	days := DaysSinceJ2000(JulianDate(t))

	a := orbit.SemiMajorAxisKm / KilometersPerAU
	e := orbit.Eccentricity

	M := normalizeRadians(orbit.MeanAnomalyAtEpoch*degToRad + orbit.meanMotion()*days)
	E := SolveKepler(M, e)
	nu := trueAnomaly(E, e)
	r := radiusVector(a, e, E)

	rel := orbitToEcliptic(r, nu,
		orbit.Inclination*degToRad,
		orbit.ArgumentOfPeriapsis*degToRad,
		orbit.LongitudeOfAscendingNode*degToRad,
	)
	return parent.Add(rel)
}
