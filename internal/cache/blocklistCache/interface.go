package blocklistCache

import (
	"context"

	"ConsentCrawl/internal/models"
)

// Service defines the interface for blocklist snapshot persistence
type Service interface {
	Get(ctx context.Context) (*models.BlocklistSnapshot, error)
	Set(ctx context.Context, snapshot *models.BlocklistSnapshot) error
	Delete(ctx context.Context) error
}
