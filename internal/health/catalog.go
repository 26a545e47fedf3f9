// Package health provides readiness checks for the server's dependencies.
package health

import (
	"context"

	"github.com/onnwee/skyrank/internal/catalog"
)

// CatalogChecker reports unready until a non-empty catalog is published.
type CatalogChecker struct {
	holder *catalog.Holder
}

// NewCatalogChecker creates a checker over the server's catalog holder.
func NewCatalogChecker(holder *catalog.Holder) *CatalogChecker {
	return &CatalogChecker{holder: holder}
}

// HealthCheck returns catalog.ErrEmptyCatalog while nothing is loaded.
func (c *CatalogChecker) HealthCheck(context.Context) error {
	if c.holder.Get().Empty() {
		return catalog.ErrEmptyCatalog
	}
	return nil
}
