// Package ephemeris computes positions of solar system bodies and converts
// equatorial coordinates into an observer's horizon frame.
package ephemeris

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownBody is returned when no orbital elements exist for a body name.
var ErrUnknownBody = errors.New("unknown body")

// Elements holds J2000 Keplerian elements and their rates per Julian century.
// Angles are in degrees, the semi-major axis in AU.
type Elements struct {
	A, ARate          float64 // semi-major axis
	E, ERate          float64 // eccentricity
	I, IRate          float64 // inclination
	L, LRate          float64 // mean longitude
	Perihelion        float64 // longitude of perihelion (w-bar)
	PerihelionRate    float64
	AscendingNode     float64 // longitude of ascending node (Omega)
	AscendingNodeRate float64
}

// At propagates the elements linearly to T Julian centuries since J2000.
func (el Elements) At(T float64) Elements {
	return Elements{
		A:             el.A + el.ARate*T,
		E:             el.E + el.ERate*T,
		I:             el.I + el.IRate*T,
		L:             el.L + el.LRate*T,
		Perihelion:    el.Perihelion + el.PerihelionRate*T,
		AscendingNode: el.AscendingNode + el.AscendingNodeRate*T,
	}
}

// elementTable holds the supported bodies keyed by lower-case name.
// Major planets carry the JPL approximate rates; dwarf planets only drift in
// mean longitude.
var elementTable = map[string]Elements{
	"mercury": {
		A: 0.38709927, ARate: 0.00000037,
		E: 0.20563593, ERate: 0.00001906,
		I: 7.00497902, IRate: -0.00594749,
		L: 252.25032350, LRate: 149472.67411175,
		Perihelion: 77.45779628, PerihelionRate: 0.16047689,
		AscendingNode: 48.33076593, AscendingNodeRate: -0.12534081,
	},
	"venus": {
		A: 0.72333566, ARate: 0.00000390,
		E: 0.00677672, ERate: -0.00004107,
		I: 3.39467605, IRate: -0.00078890,
		L: 181.97909950, LRate: 58517.81538729,
		Perihelion: 131.60246718, PerihelionRate: 0.00268329,
		AscendingNode: 76.67984255, AscendingNodeRate: -0.27769418,
	},
	"earth": {
		A: 1.00000261, ARate: 0.00000562,
		E: 0.01671123, ERate: -0.00004392,
		I: -0.00001531, IRate: -0.01294668,
		L: 100.46457166, LRate: 35999.37244981,
		Perihelion: 102.93768193, PerihelionRate: 0.32327364,
	},
	"mars": {
		A: 1.52371034, ARate: 0.00001847,
		E: 0.09339410, ERate: 0.00007882,
		I: 1.84969142, IRate: -0.00813131,
		L: -4.55343205, LRate: 19140.30268499,
		Perihelion: -23.94362959, PerihelionRate: 0.44441088,
		AscendingNode: 49.55953891, AscendingNodeRate: -0.29257343,
	},
	"jupiter": {
		A: 5.20288700, ARate: -0.00011607,
		E: 0.04838624, ERate: -0.00013253,
		I: 1.30439695, IRate: -0.00183714,
		L: 34.39644051, LRate: 3034.74612775,
		Perihelion: 14.72847983, PerihelionRate: 0.21252668,
		AscendingNode: 100.47390909, AscendingNodeRate: 0.20469106,
	},
	"saturn": {
		A: 9.53667594, ARate: -0.00125060,
		E: 0.05386179, ERate: -0.00050991,
		I: 2.48599187, IRate: 0.00193609,
		L: 49.95424423, LRate: 1222.49362201,
		Perihelion: 92.59887831, PerihelionRate: -0.41897216,
		AscendingNode: 113.66242448, AscendingNodeRate: -0.28867794,
	},
	"uranus": {
		A: 19.18916464, ARate: -0.00196176,
		E: 0.04725744, ERate: -0.00004397,
		I: 0.77263783, IRate: -0.00242939,
		L: 313.23810451, LRate: 428.48202785,
		Perihelion: 170.95427630, PerihelionRate: 0.40805281,
		AscendingNode: 74.01692503, AscendingNodeRate: 0.04240589,
	},
	"neptune": {
		A: 30.06992276, ARate: 0.00026291,
		E: 0.00859048, ERate: 0.00005105,
		I: 1.77004347, IRate: 0.00035372,
		L: -55.12002969, LRate: 218.45945325,
		Perihelion: 44.96476227, PerihelionRate: -0.32241464,
		AscendingNode: 131.78422574, AscendingNodeRate: -0.00508664,
	},
	"ceres": {
		A: 2.766, E: 0.078, I: 10.59,
		L: 92.5, LRate: 43258.9,
		Perihelion: 73.6, AscendingNode: 80.5,
	},
	"pluto": {
		A: 39.482, E: 0.2488, I: 17.14,
		L: 238.9, LRate: 1.45,
		Perihelion: 224.1, AscendingNode: 110.3,
	},
	"eris": {
		A: 67.8, E: 0.437, I: 44.0,
		L: 197.8, LRate: 0.39,
		Perihelion: 320.1, AscendingNode: 35.8,
	},
	"haumea": {
		A: 43.1, E: 0.188, I: 28.2,
		L: 216.9, LRate: 0.54,
		Perihelion: 240.5, AscendingNode: 121.2,
	},
	"makemake": {
		A: 45.8, E: 0.160, I: 28.9,
		L: 351.4, LRate: 0.49,
		Perihelion: 295.1, AscendingNode: 79.5,
	},
}

// Lookup returns the orbital elements for a body, matching the name
// case-insensitively.
func Lookup(name string) (Elements, error) {
	el, ok := elementTable[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Elements{}, fmt.Errorf("%w: %q", ErrUnknownBody, name)
	}
	return el, nil
}

// Bodies returns the supported body names in sorted order.
func Bodies() []string {
	names := make([]string, 0, len(elementTable))
	for name := range elementTable {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
