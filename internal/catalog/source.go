// Package catalog defines the celestial object catalog, the observer profile,
// and the sources a catalog can be loaded from.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// ErrEmptyCatalog is returned when a source yields no objects at all.
var ErrEmptyCatalog = errors.New("catalog contains no objects")

// Source loads a catalog snapshot.
type Source interface {
	Load(ctx context.Context) (*Catalog, error)
	Name() string
}

// FileSource reads a catalog from a YAML or JSON document on disk.
type FileSource struct {
	Path string
}

// Name identifies the source in logs and metrics.
func (s FileSource) Name() string { return "file" }

// Load parses the catalog file.
func (s FileSource) Load(ctx context.Context) (*Catalog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	k := koanf.New(".")
	if err := k.Load(file.Provider(s.Path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load catalog file %s: %w", s.Path, err)
	}
	return unmarshal(k)
}

// Decode parses a YAML or JSON catalog document. JSON is accepted because it
// is a subset of YAML.
func Decode(data []byte) (*Catalog, error) {
	k := koanf.New(".")
	if err := k.Load(bytesProvider(data), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	return unmarshal(k)
}

func unmarshal(k *koanf.Koanf) (*Catalog, error) {
	var c Catalog
	if err := k.Unmarshal("", &c); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}
	if c.Empty() {
		return nil, ErrEmptyCatalog
	}
	return &c, nil
}

// bytesProvider is a koanf.Provider over an in-memory document.
type bytesProvider []byte

func (b bytesProvider) ReadBytes() ([]byte, error) {
	return b, nil
}

func (b bytesProvider) Read() (map[string]interface{}, error) {
	return nil, errors.New("bytes provider does not support Read")
}
