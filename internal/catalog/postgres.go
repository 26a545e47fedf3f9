// Package catalog defines the celestial object catalog, the observer profile,
// and the sources a catalog can be loaded from.
package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/onnwee/skyrank/internal/tracing"
)

// PostgresSource loads the catalog from the stars, planets and moons tables.
type PostgresSource struct {
	db *sql.DB
}

// NewPostgresSource creates a catalog source over an open database handle.
func NewPostgresSource(db *sql.DB) *PostgresSource {
	return &PostgresSource{db: db}
}

// Name identifies the source in logs and metrics.
func (s *PostgresSource) Name() string { return "postgres" }

// Load reads all three tables. An entirely empty catalog is an error.
func (s *PostgresSource) Load(ctx context.Context) (*Catalog, error) {
	stars, err := s.loadStars(ctx)
	if err != nil {
		return nil, err
	}
	planets, err := s.loadPlanets(ctx)
	if err != nil {
		return nil, err
	}
	moons, err := s.loadMoons(ctx)
	if err != nil {
		return nil, err
	}

	c := &Catalog{Stars: stars, Planets: planets, Moons: moons}
	if c.Empty() {
		return nil, ErrEmptyCatalog
	}
	return c, nil
}

func (s *PostgresSource) loadStars(ctx context.Context) (stars []Star, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "stars", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	query := `
		SELECT id, name, ra_hours, dec_deg, g_mag,
		       COALESCE(bp_mag, 0), COALESCE(rp_mag, 0), COALESCE(parallax_mas, 0),
		       spectral_type, COALESCE(temperature_k, 0),
		       COALESCE(luminosity, 0), COALESCE(mass, 0)
		FROM stars
		ORDER BY id
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query stars: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var st Star
		if err := rows.Scan(
			&st.ID, &st.Name, &st.RA, &st.Dec, &st.GMag,
			&st.BPMag, &st.RPMag, &st.Parallax,
			&st.SpectralType, &st.Temperature,
			&st.Luminosity, &st.Mass,
		); err != nil {
			return nil, fmt.Errorf("failed to scan star: %w", err)
		}
		stars = append(stars, st)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stars: %w", err)
	}
	return stars, nil
}

func (s *PostgresSource) loadPlanets(ctx context.Context) (planets []Planet, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "planets", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	query := `
		SELECT id, name, planet_type, COALESCE(color, ''),
		       distance_from_sun, distance_from_earth,
		       COALESCE(diameter_km, 0), COALESCE(mass, 0), mean_temperature,
		       number_of_moons, has_rings, has_magnetic_field, magnitude
		FROM planets
		ORDER BY id
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query planets: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p Planet
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Type, &p.Color,
			&p.DistanceFromSun, &p.DistanceFromEarth,
			&p.Diameter, &p.Mass, &p.MeanTemperature,
			&p.NumberOfMoons, &p.HasRings, &p.HasMagneticField, &p.Magnitude,
		); err != nil {
			return nil, fmt.Errorf("failed to scan planet: %w", err)
		}
		planets = append(planets, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating planets: %w", err)
	}
	return planets, nil
}

func (s *PostgresSource) loadMoons(ctx context.Context) (moons []Moon, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "moons", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	query := `
		SELECT id, name, parent, COALESCE(color, ''),
		       COALESCE(diameter_km, 0), COALESCE(mass, 0),
		       COALESCE(composition, ''), COALESCE(surface_features, ''),
		       COALESCE(magnitude, 0), COALESCE(distance_from_earth, 0),
		       semi_major_axis_km, eccentricity, inclination,
		       longitude_of_ascending_node, argument_of_periapsis, mean_anomaly_at_epoch,
		       COALESCE(mean_motion, 0), COALESCE(orbital_period, 0)
		FROM moons
		ORDER BY id
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query moons: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m Moon
		if err := rows.Scan(
			&m.ID, &m.Name, &m.Parent, &m.Color,
			&m.Diameter, &m.Mass,
			&m.Composition, &m.SurfaceFeatures,
			&m.Magnitude, &m.DistanceFromEarth,
			&m.SemiMajorAxisKm, &m.Eccentricity, &m.Inclination,
			&m.LongitudeOfAscendingNode, &m.ArgumentOfPeriapsis, &m.MeanAnomalyAtEpoch,
			&m.MeanMotion, &m.OrbitalPeriod,
		); err != nil {
			return nil, fmt.Errorf("failed to scan moon: %w", err)
		}
		moons = append(moons, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating moons: %w", err)
	}
	return moons, nil
}
