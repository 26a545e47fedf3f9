// Package ephemeris computes positions of solar system bodies and converts
// equatorial coordinates into an observer's horizon frame.
package ephemeris

import (
	"math"
	"time"
)

// LocalSiderealTime returns the local sidereal time in degrees [0, 360) for
// an observer at longitude lon (degrees, east positive).
func LocalSiderealTime(t time.Time, lon float64) float64 {
	d := DaysSinceJ2000(JulianDate(t))
	gmst := 280.46061837 + 360.98564736629*d
	return normalizeDegrees(gmst + lon)
}

// Horizontal converts equatorial coordinates to altitude and azimuth.
//
// Parameters:
//   - ra: right ascension in degrees
//   - dec: declination in degrees
//   - lat, lon: observer location in degrees
//   - t: observation instant
//
// Returns altitude in [-90, 90] and azimuth in [0, 360), in degrees.
// Azimuth is measured from north through east.
func Horizontal(ra, dec, lat, lon float64, t time.Time) (alt, az float64) {
	ha := (LocalSiderealTime(t, lon) - ra) * degToRad
	decRad := dec * degToRad
	latRad := lat * degToRad

	sinAlt := clampUnit(math.Sin(decRad)*math.Sin(latRad) + math.Cos(decRad)*math.Cos(latRad)*math.Cos(ha))
	altRad := math.Asin(sinAlt)

	denom := math.Cos(altRad) * math.Cos(latRad)
	var azRad float64
	if denom != 0 {
		cosAz := clampUnit((math.Sin(decRad) - sinAlt*math.Sin(latRad)) / denom)
		azRad = math.Acos(cosAz)
	}
	if math.Sin(ha) > 0 {
		azRad = 2*math.Pi - azRad
	}

	return altRad * radToDeg, normalizeDegrees(azRad * radToDeg)
}

// HoursToDegrees converts a right ascension in hours to degrees.
func HoursToDegrees(hours float64) float64 {
	return hours * 15.0
}
