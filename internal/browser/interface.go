package browser

import (
	"context"

	"ConsentCrawl/internal/consent"
)

// Service is a running browser shared by every probe of a run
// External packages should use this interface, not the concrete implementations
type Service interface {
	// NewContext opens an isolated browsing context with its own cookie jar
	NewContext(ctx context.Context, opts ContextOptions) (Context, error)
	Close() error
}

// ContextOptions configures the emulated device of a browsing context
type ContextOptions struct {
	UserAgent string
	Width     int
	Height    int
}

// Context is an isolated browsing context
type Context interface {
	NewPage(ctx context.Context) (Page, error)
	Cookies(ctx context.Context) ([]Cookie, error)
	Close() error
}

// Cookie is a cookie as reported by the browser.
// Expires is Unix seconds; zero or negative marks a session cookie.
type Cookie struct {
	Name    string
	Domain  string
	Expires float64
}

// Page is a tab of a browsing context
type Page interface {
	consent.Page

	// OnRequest registers cb for the URL of every request the page issues
	OnRequest(cb func(url string))
	// Navigate loads url and waits for the load event
	Navigate(ctx context.Context, url string) error
	MoveMouse(ctx context.Context, x, y float64) error
	Scroll(ctx context.Context, dx, dy float64) error
	// Screenshot writes a PNG of the viewport to path
	Screenshot(ctx context.Context, path string) error
	HTML(ctx context.Context) (string, error)
}

const (
	defaultWidth  = 1366
	defaultHeight = 768
)

// withDefaults fills the viewport when unset
func (o ContextOptions) withDefaults() ContextOptions {
	if o.Width <= 0 {
		o.Width = defaultWidth
	}
	if o.Height <= 0 {
		o.Height = defaultHeight
	}
	return o
}
