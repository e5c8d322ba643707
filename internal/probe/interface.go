package probe

import (
	"context"

	"ConsentCrawl/internal/models"
)

// Service defines the interface for single-site visits
// External packages should use this interface, not the concrete implementations
type Service interface {
	// Probe visits url and always returns a record; failures are reported in its status
	Probe(ctx context.Context, url string) *models.SiteRecord
}
