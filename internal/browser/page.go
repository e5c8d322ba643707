package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"ConsentCrawl/internal/consent"
	"ConsentCrawl/internal/models"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// rodScope implements consent.Scope on a page or frame document
type rodScope struct {
	page *rod.Page
}

// Elements returns the elements currently matching selector without waiting
func (s *rodScope) Elements(ctx context.Context, selector string) ([]consent.Element, error) {
	elements, err := s.page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, err
	}

	result := make([]consent.Element, 0, len(elements))
	for _, element := range elements {
		result = append(result, &rodElement{element: element})
	}
	return result, nil
}

// Frame returns the document of the first frame element matching selector
func (s *rodScope) Frame(ctx context.Context, selector string) (consent.Scope, error) {
	elements, err := s.page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, err
	}
	if elements.Empty() {
		return nil, nil
	}

	frame, err := elements.First().Frame()
	if err != nil {
		return nil, fmt.Errorf("failed to enter frame %s: %w", selector, err)
	}
	return &rodScope{page: frame}, nil
}

// rodElement implements consent.Element
type rodElement struct {
	element *rod.Element
}

func (e *rodElement) Visible(ctx context.Context) (bool, error) {
	return e.element.Context(ctx).Visible()
}

func (e *rodElement) Click(ctx context.Context) error {
	return e.element.Context(ctx).Click(proto.InputMouseButtonLeft, 1)
}

// rodPage implements Page
type rodPage struct {
	rodScope
	lifetime context.Context
}

// OnRequest subscribes to request events until the owning context closes
func (p *rodPage) OnRequest(cb func(url string)) {
	wait := p.page.Context(p.lifetime).EachEvent(func(e *proto.NetworkRequestWillBeSent) {
		if e.Request != nil {
			cb(e.Request.URL)
		}
	})
	go wait()
}

// Navigate loads url and waits for the load event
func (p *rodPage) Navigate(ctx context.Context, url string) error {
	page := p.page.Context(ctx)
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("%w: %v", models.ErrNavigation, err)
	}
	if err := page.WaitLoad(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: waiting for load of %s: %v", models.ErrTimeout, url, err)
		}
		return fmt.Errorf("%w: waiting for load of %s: %v", models.ErrNavigation, url, err)
	}
	return nil
}

// ExpectNavigation listens for the next navigation of the main frame
func (p *rodPage) ExpectNavigation(ctx context.Context) func() error {
	wait := p.page.Context(ctx).EachEvent(func(e *proto.PageFrameNavigated) bool {
		return e.Frame != nil && e.Frame.ParentID == ""
	})

	return func() error {
		wait()
		return ctx.Err()
	}
}

func (p *rodPage) MoveMouse(ctx context.Context, x, y float64) error {
	return p.page.Context(ctx).Mouse.MoveTo(proto.Point{X: x, Y: y})
}

func (p *rodPage) Scroll(ctx context.Context, dx, dy float64) error {
	return p.page.Context(ctx).Mouse.Scroll(dx, dy, 1)
}

// Screenshot captures the viewport and writes it to path, creating its directory
func (p *rodPage) Screenshot(ctx context.Context, path string) error {
	data, err := p.page.Context(ctx).Screenshot(false, nil)
	if err != nil {
		return fmt.Errorf("failed to capture screenshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create screenshot directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func (p *rodPage) HTML(ctx context.Context) (string, error) {
	return p.page.Context(ctx).HTML()
}
