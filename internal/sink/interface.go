package sink

import (
	"context"

	"ConsentCrawl/internal/models"
)

// Service receives the records of each completed batch window.
// Sinks are append-only.
type Service interface {
	Write(ctx context.Context, records []*models.SiteRecord) error
	Close() error
}
