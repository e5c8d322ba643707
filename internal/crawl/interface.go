package crawl

import (
	"context"

	"ConsentCrawl/internal/models"
	"ConsentCrawl/internal/sink"
)

// Service defines the interface for batch runs
// External packages should use this interface, not the concrete implementations
type Service interface {
	// Run probes urls window by window, handing every drained window to out
	Run(ctx context.Context, urls []string, out sink.Service) (models.RunSummary, error)
}
