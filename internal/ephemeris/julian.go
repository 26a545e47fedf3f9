// Package ephemeris computes positions of solar system bodies and converts
// equatorial coordinates into an observer's horizon frame.
package ephemeris

import (
	"math"
	"time"
)

const (
	// J2000 is the Julian Date of the J2000.0 epoch (2000-01-01 12:00 UTC).
	J2000 = 2451545.0

	// DaysPerCentury is the length of a Julian century.
	DaysPerCentury = 36525.0

	// unixEpochJD is the Julian Date of 1970-01-01 00:00 UTC.
	unixEpochJD = 2440587.5

	degToRad = math.Pi / 180.0
	radToDeg = 180.0 / math.Pi
)

// JulianDate converts an instant to a Julian Date.
func JulianDate(t time.Time) float64 {
	t = t.UTC()
	seconds := float64(t.Unix()) + float64(t.Nanosecond())/1e9
	return unixEpochJD + seconds/86400.0
}

// DaysSinceJ2000 returns the number of days between jd and the J2000.0 epoch.
func DaysSinceJ2000(jd float64) float64 {
	return jd - J2000
}

// CenturiesSinceJ2000 returns Julian centuries elapsed since J2000.0.
func CenturiesSinceJ2000(jd float64) float64 {
	return (jd - J2000) / DaysPerCentury
}

// normalizeDegrees maps an angle into [0, 360).
func normalizeDegrees(deg float64) float64 {
	deg = math.Mod(deg, 360.0)
	if deg < 0 {
		deg += 360.0
	}
	return deg
}

// normalizeRadians maps an angle into [0, 2π).
func normalizeRadians(rad float64) float64 {
	rad = math.Mod(rad, 2*math.Pi)
	if rad < 0 {
		rad += 2 * math.Pi
	}
	return rad
}

// clampUnit limits v to [-1, 1] so inverse trig never sees drifted inputs.
func clampUnit(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
