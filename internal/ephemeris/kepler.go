// Package ephemeris computes positions of solar system bodies and converts
// equatorial coordinates into an observer's horizon frame.
package ephemeris

import "math"

const (
	// KeplerMaxIterations caps the Newton-Raphson loop in SolveKepler.
	KeplerMaxIterations = 30

	// KeplerTolerance is the step size below which SolveKepler stops iterating.
	KeplerTolerance = 1e-8
)

// SolveKepler solves Kepler's equation M = E - e*sin(E) for the eccentric
// anomaly E (radians) using Newton-Raphson.
//
// Parameters:
//   - meanAnomaly: mean anomaly M in radians (any range)
//   - e: eccentricity in [0, 1)
//
// Returns E in radians, in the same revolution as meanAnomaly. If the
// iteration cap is reached before the step drops below KeplerTolerance, the
// last estimate is returned.
func SolveKepler(meanAnomaly, e float64) float64 {
	m := normalizeRadians(meanAnomaly)

	E := m
	if e > 0.8 {
		E = math.Pi
	}

	for i := 0; i < KeplerMaxIterations; i++ {
		dE := (E - e*math.Sin(E) - m) / (1 - e*math.Cos(E))
		E -= dE
		if math.Abs(dE) < KeplerTolerance {
			break
		}
	}
	return E + (meanAnomaly - m)
}

// trueAnomaly converts an eccentric anomaly into true anomaly (radians).
func trueAnomaly(E, e float64) float64 {
	return 2 * math.Atan2(
		math.Sqrt(1+e)*math.Sin(E/2),
		math.Sqrt(1-e)*math.Cos(E/2),
	)
}

// radiusVector returns the orbital radius for eccentric anomaly E.
func radiusVector(a, e, E float64) float64 {
	return a * (1 - e*math.Cos(E))
}
