// Package storage archives scraped product records outside the catalog:
// a JSON file for export/import round-trips and an optional MongoDB sink.
package storage

import (
	"github.com/webshelf/webshelf/internal/types"
)

// Archive is the interface for record archive backends.
type Archive interface {
	// Store persists a batch of scraped records.
	Store(records []*types.ParsedProduct) error

	// Close flushes pending writes and releases resources.
	Close() error

	// Name returns the backend identifier.
	Name() string
}
