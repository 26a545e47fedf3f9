// Package health provides readiness checks for the server's dependencies.
package health

import (
	"context"
)

// ContextPinger is satisfied by *sql.DB.
type ContextPinger interface {
	PingContext(ctx context.Context) error
}

// DBChecker checks the Postgres catalog and interaction store.
type DBChecker struct {
	db ContextPinger
}

// NewDBChecker creates a new database health checker.
func NewDBChecker(db ContextPinger) *DBChecker {
	return &DBChecker{db: db}
}

// HealthCheck pings the database.
func (d *DBChecker) HealthCheck(ctx context.Context) error {
	return d.db.PingContext(ctx)
}
