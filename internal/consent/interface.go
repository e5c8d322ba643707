package consent

import (
	"context"

	"ConsentCrawl/internal/models"
)

// Service defines the interface for consent resolution
// External packages should use this interface, not the concrete implementations
type Service interface {
	Resolve(ctx context.Context, page Page, rules []models.ConsentRule) models.ConsentResult
}

// Element is a located DOM element that may become the consent control
type Element interface {
	Visible(ctx context.Context) (bool, error)
	Click(ctx context.Context) error
}

// Scope is a document that elements are searched in: the page itself or a frame
type Scope interface {
	Elements(ctx context.Context, selector string) ([]Element, error)
	// Frame returns the document of the first frame element matching selector,
	// or nil when there is none.
	Frame(ctx context.Context, selector string) (Scope, error)
}

// Page is the top-level scope of a browsing context
type Page interface {
	Scope
	// ExpectNavigation starts listening for a navigation of the page. The returned
	// function blocks until one is observed or ctx is done.
	ExpectNavigation(ctx context.Context) func() error
}
