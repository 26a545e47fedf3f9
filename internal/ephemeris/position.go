// Package ephemeris computes positions of solar system bodies and converts
// equatorial coordinates into an observer's horizon frame.
package ephemeris

import (
	"math"
	"time"
)

// Obliquity is the mean obliquity of the ecliptic at J2000.0 in degrees.
const Obliquity = 23.43928

// Vector is a rectangular ecliptic position in AU.
type Vector struct {
	X, Y, Z float64
}

// Add returns v + o.
func (v Vector) Add(o Vector) Vector {
	return Vector{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

// Sub returns v - o.
func (v Vector) Sub(o Vector) Vector {
	return Vector{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

// Norm returns the Euclidean length of v.
func (v Vector) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Heliocentric returns the ecliptic position of a named body at t.
// Returns ErrUnknownBody (wrapped) for names outside the element table.
func Heliocentric(name string, t time.Time) (Vector, error) {
	base, err := Lookup(name)
	if err != nil {
		return Vector{}, err
	}
	return heliocentricAt(base, CenturiesSinceJ2000(JulianDate(t))), nil
}

func heliocentricAt(base Elements, T float64) Vector {
	el := base.At(T)

	argPeri := el.Perihelion - el.AscendingNode
	meanAnomaly := normalizeDegrees(el.L - el.Perihelion)

	E := SolveKepler(meanAnomaly*degToRad, el.E)
	nu := trueAnomaly(E, el.E)
	r := radiusVector(el.A, el.E, E)

	return orbitToEcliptic(r, nu, el.I*degToRad, argPeri*degToRad, el.AscendingNode*degToRad)
}

// Geocentric returns the position of a named body relative to Earth at t.
func Geocentric(name string, t time.Time) (Vector, error) {
	base, err := Lookup(name)
	if err != nil {
		return Vector{}, err
	}
	earth, _ := Lookup("earth")

	T := CenturiesSinceJ2000(JulianDate(t))
	return heliocentricAt(base, T).Sub(heliocentricAt(earth, T)), nil
}

// orbitToEcliptic rotates an in-plane position (r, nu) by the argument of
// periapsis, inclination and ascending node into ecliptic coordinates.
func orbitToEcliptic(r, nu, incl, argPeri, node float64) Vector {
	xOrb := r * math.Cos(nu)
	yOrb := r * math.Sin(nu)

	cosW, sinW := math.Cos(argPeri), math.Sin(argPeri)
	cosI, sinI := math.Cos(incl), math.Sin(incl)
	cosN, sinN := math.Cos(node), math.Sin(node)

	return Vector{
		X: (cosN*cosW-sinN*sinW*cosI)*xOrb + (-cosN*sinW-sinN*cosW*cosI)*yOrb,
		Y: (sinN*cosW+cosN*sinW*cosI)*xOrb + (-sinN*sinW+cosN*cosW*cosI)*yOrb,
		Z: (sinW*sinI)*xOrb + (cosW*sinI)*yOrb,
	}
}

// ToEquatorial rotates a geocentric ecliptic vector by the obliquity and
// returns right ascension in [0, 360) and declination, both in degrees.
func ToEquatorial(v Vector) (ra, dec float64) {
	eps := Obliquity * degToRad

	x := v.X
	y := v.Y*math.Cos(eps) - v.Z*math.Sin(eps)
	z := v.Y*math.Sin(eps) + v.Z*math.Cos(eps)

	ra = normalizeDegrees(math.Atan2(y, x) * radToDeg)

	dist := math.Sqrt(x*x + y*y + z*z)
	if dist == 0 {
		return ra, 0
	}
	dec = math.Asin(clampUnit(z/dist)) * radToDeg
	return ra, dec
}
