package blocklist

import (
	"context"

	"ConsentCrawl/internal/models"
)

// Service defines the interface for the blocklist store
// External packages should use this interface, not the concrete implementations
type Service interface {
	// Load returns the active index, rebuilding it from sources when the
	// persisted copy is missing, stale or force is set.
	Load(ctx context.Context, sources []models.BlocklistSource, force bool) (*Index, error)
	Lookup(domain string) bool
	SourcesFor(domain string) []string
}
