// Package catalog defines the celestial object catalog, the observer profile,
// and the sources a catalog can be loaded from.
package catalog

import (
	"sync/atomic"
	"time"
)

type snapshot struct {
	catalog  *Catalog
	source   string
	loadedAt time.Time
}

// Holder publishes the current catalog to concurrent readers. Readers always
// see a complete snapshot; Set swaps it atomically.
type Holder struct {
	current atomic.Pointer[snapshot]
}

// NewHolder creates a holder with an initial catalog.
func NewHolder(c *Catalog, source string) *Holder {
	h := &Holder{}
	h.Set(c, source)
	return h
}

// Get returns the current catalog. Callers must not modify it.
func (h *Holder) Get() *Catalog {
	s := h.current.Load()
	if s == nil {
		return nil
	}
	return s.catalog
}

// Set replaces the current catalog.
func (h *Holder) Set(c *Catalog, source string) {
	h.current.Store(&snapshot{catalog: c, source: source, loadedAt: time.Now()})
}

// Info reports where the current catalog came from and when it was loaded.
func (h *Holder) Info() (source string, loadedAt time.Time) {
	s := h.current.Load()
	if s == nil {
		return "", time.Time{}
	}
	return s.source, s.loadedAt
}
