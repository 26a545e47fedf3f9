// Package ephemeris computes positions of solar system bodies and converts
// equatorial coordinates into an observer's horizon frame.
//
// Planet and dwarf planet positions come from linearly propagated J2000
// Keplerian elements. Moon positions are solved in their parent's frame and
// shifted by the parent's geocentric vector. All angles crossing the package
// boundary are in degrees; distances are in astronomical units.
//
// Usage:
//
//	earth, err := ephemeris.Heliocentric("earth", t)
//	geo, err := ephemeris.Geocentric("mars", t)
//	ra, dec := ephemeris.ToEquatorial(geo)
//	alt, az := ephemeris.Horizontal(ra, dec, lat, lon, t)
package ephemeris
