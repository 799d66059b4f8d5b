package fetcher

import (
	"context"

	"github.com/webshelf/webshelf/internal/types"
)

// Fetcher retrieves a document for the pipeline. Implementations must be
// safe for sequential reuse; the pipeline never fetches concurrently.
type Fetcher interface {
	// Fetch retrieves the given URL and returns the response.
	Fetch(ctx context.Context, rawURL string) (*types.Response, error)

	// Close releases resources.
	Close() error

	// Type returns the fetcher type identifier.
	Type() string
}
