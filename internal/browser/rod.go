package browser

import (
	"context"
	"fmt"

	"ConsentCrawl/internal/models"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// RodBrowser implements Service on a Chromium process driven through go-rod
type RodBrowser struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
}

// Options configures the browser process
type Options struct {
	Headless bool
	// Bin is the browser executable; empty lets the launcher find or download one
	Bin string
}

// Launch starts a browser process and connects to it
func Launch(ctx context.Context, opts Options) (Service, error) {
	return launch(ctx, opts)
}

// launch creates the concrete implementation
func launch(ctx context.Context, opts Options) (*RodBrowser, error) {
	l := launcher.New().Context(ctx).Headless(opts.Headless)
	if opts.Bin != "" {
		l = l.Bin(opts.Bin)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to launch browser: %v", models.ErrConfig, err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	return &RodBrowser{
		launcher: l,
		browser:  b,
	}, nil
}

// NewContext opens an incognito browser context
func (r *RodBrowser) NewContext(ctx context.Context, opts ContextOptions) (Context, error) {
	incognito, err := r.browser.Incognito()
	if err != nil {
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	lifetime, cancel := context.WithCancel(context.Background())

	return &rodContext{
		browser:  incognito,
		opts:     opts.withDefaults(),
		lifetime: lifetime,
		cancel:   cancel,
	}, nil
}

// Close shuts down the browser process
func (r *RodBrowser) Close() error {
	err := r.browser.Close()
	r.launcher.Kill()
	r.launcher.Cleanup()
	return err
}

// rodContext implements Context on an incognito browser
type rodContext struct {
	browser  *rod.Browser
	opts     ContextOptions
	lifetime context.Context
	cancel   context.CancelFunc
}

// NewPage opens a tab with the context's device settings and the stealth script installed
func (c *rodContext) NewPage(ctx context.Context) (Page, error) {
	page, err := c.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	if c.opts.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: c.opts.UserAgent}); err != nil {
			return nil, fmt.Errorf("failed to set user agent: %w", err)
		}
	}

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:  c.opts.Width,
		Height: c.opts.Height,
	}); err != nil {
		return nil, fmt.Errorf("failed to set viewport: %w", err)
	}

	if _, err := page.EvalOnNewDocument(stealthScript); err != nil {
		return nil, fmt.Errorf("failed to install stealth script: %w", err)
	}

	if err := (proto.NetworkEnable{}).Call(page); err != nil {
		return nil, fmt.Errorf("failed to enable network events: %w", err)
	}

	return &rodPage{rodScope: rodScope{page: page}, lifetime: c.lifetime}, nil
}

// Cookies returns every cookie of the context
func (c *rodContext) Cookies(ctx context.Context) ([]Cookie, error) {
	cookies, err := c.browser.Context(ctx).GetCookies()
	if err != nil {
		return nil, fmt.Errorf("failed to read cookies: %w", err)
	}

	result := make([]Cookie, 0, len(cookies))
	for _, cookie := range cookies {
		result = append(result, Cookie{
			Name:    cookie.Name,
			Domain:  cookie.Domain,
			Expires: float64(cookie.Expires),
		})
	}
	return result, nil
}

// Close disposes the context and stops its event listeners
func (c *rodContext) Close() error {
	c.cancel()
	return c.browser.Close()
}
