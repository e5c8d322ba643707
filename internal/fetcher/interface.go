package fetcher

import "context"

// Service defines the interface for fetching remote text resources
// External packages should use this interface, not the concrete implementations
type Service interface {
	FetchText(ctx context.Context, url string) (string, error)
}
