package probe

import (
	"context"
	"encoding/base64"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"time"

	"ConsentCrawl/internal/browser"
	"ConsentCrawl/internal/classifier"
	"ConsentCrawl/internal/consent"
	"ConsentCrawl/internal/logger"
	"ConsentCrawl/internal/metrics"
	"ConsentCrawl/internal/models"
)

// DefaultUserAgents is the user-agent pool rotated across browsing contexts
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 13_5_2) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36 Edg/116.0.1938.81",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
}

// Options tunes a site visit
type Options struct {
	Screenshot        bool
	ScreenshotDir     string
	NavigationTimeout time.Duration
	// SettleDelay is waited after load, before the synthetic mouse input
	SettleDelay time.Duration
	// ConsentWait is waited after the mouse input so late consent managers can render
	ConsentWait time.Duration
	UserAgents  []string
}

func (o Options) withDefaults() Options {
	if o.ScreenshotDir == "" {
		o.ScreenshotDir = "screenshots"
	}
	if o.NavigationTimeout <= 0 {
		o.NavigationTimeout = 90 * time.Second
	}
	if len(o.UserAgents) == 0 {
		o.UserAgents = DefaultUserAgents
	}
	return o
}

// Prober implements the Service interface
type Prober struct {
	browser   browser.Service
	resolver  consent.Service
	blocklist classifier.Blocklist
	rules     []models.ConsentRule
	opts      Options
	logger    logger.Service
	metrics   *metrics.Metrics
	now       func() time.Time
	pickUA    func([]string) string
}

// NewProber creates a new site prober. The browser is shared; every visit opens its own context.
func NewProber(
	browser browser.Service,
	resolver consent.Service,
	blocklist classifier.Blocklist,
	rules []models.ConsentRule,
	opts Options,
	logger logger.Service,
	metrics *metrics.Metrics,
) Service {
	return newProber(browser, resolver, blocklist, rules, opts, logger, metrics)
}

// newProber creates the concrete implementation
func newProber(
	browser browser.Service,
	resolver consent.Service,
	blocklist classifier.Blocklist,
	rules []models.ConsentRule,
	opts Options,
	logger logger.Service,
	metrics *metrics.Metrics,
) *Prober {
	return &Prober{
		browser:   browser,
		resolver:  resolver,
		blocklist: blocklist,
		rules:     rules,
		opts:      opts.withDefaults(),
		logger:    logger,
		metrics:   metrics,
		now:       time.Now,
		pickUA: func(pool []string) string {
			return pool[rand.IntN(len(pool))]
		},
	}
}

// SiteID returns the stable record id of a domain
func SiteID(domain string) string {
	return base64.URLEncoding.EncodeToString([]byte(domain))
}

// Probe visits url, capturing requests and cookies before and after consent
func (p *Prober) Probe(ctx context.Context, url string) *models.SiteRecord {
	ctx = logger.WithLogEvent(ctx, logger.NewProbeLogEvent(url))
	start := p.now()

	record := &models.SiteRecord{
		URL:            classifier.NormalizeURL(url),
		ExtractionTime: start.UTC(),
	}

	p.logger.LogInfo(ctx, logger.OpProbe, fmt.Sprintf("Start extracting data from %s", record.URL), nil)

	if err := p.visit(ctx, record); err != nil {
		record.Status = models.SiteStatusError
		record.StatusMessage = fmt.Sprintf("Error extracting data from %s: %v", record.URL, err)
		p.logger.LogError(ctx, logger.OpProbe, record.DomainName, "Site visit failed", err, models.LogSeverityMedium, map[string]interface{}{
			"url":         record.URL,
			"duration_ms": p.now().Sub(start).Milliseconds(),
		})
	} else {
		record.Status = models.SiteStatusSuccess
		record.StatusMessage = fmt.Sprintf("Successfully extracted data from %s", record.URL)
		p.logger.LogSuccess(ctx, logger.OpProbe, record.DomainName, "Site visit completed", map[string]interface{}{
			"consent_outcome":     string(record.ConsentManager.Outcome),
			"tracking_no_consent": len(record.TrackingDomainsNoConsent),
			"tracking_all":        len(record.TrackingDomainsAll),
			"duration_ms":         p.now().Sub(start).Milliseconds(),
		})
	}

	p.metrics.ObserveProbe(string(record.Status), p.now().Sub(start))
	return record
}

// visit fills record in place; fields set before a failure are kept
func (p *Prober) visit(ctx context.Context, record *models.SiteRecord) error {
	domain, err := classifier.RegistrableDomain(record.URL)
	if err != nil {
		return models.NewSiteError(record.URL, "parse url", err)
	}
	record.DomainName = domain
	record.ID = SiteID(domain)

	bctx, err := p.browser.NewContext(ctx, browser.ContextOptions{UserAgent: p.pickUA(p.opts.UserAgents)})
	if err != nil {
		return models.NewSiteError(record.URL, "open context", err)
	}
	defer func() {
		if err := bctx.Close(); err != nil {
			p.logger.LogError(ctx, logger.OpProbe, domain, "Failed to close browsing context", err, models.LogSeverityLow, nil)
		}
	}()

	page, err := bctx.NewPage(ctx)
	if err != nil {
		return models.NewSiteError(record.URL, "open page", err)
	}

	requests := &requestLog{}
	page.OnRequest(requests.add)

	navCtx, cancel := context.WithTimeout(ctx, p.opts.NavigationTimeout)
	err = page.Navigate(navCtx, record.URL)
	cancel()
	if err != nil {
		return models.NewSiteError(record.URL, "navigate", err)
	}

	if err := p.settle(ctx, page); err != nil {
		return models.NewSiteError(record.URL, "settle", err)
	}

	if p.opts.Screenshot {
		p.screenshot(ctx, page, record, filepath.Join(p.opts.ScreenshotDir, "screenshot_"+record.ID+".png"))
	}

	html, err := page.HTML(ctx)
	if err != nil {
		return models.NewSiteError(record.URL, "read html", err)
	}
	meta, err := extractMetadata(html)
	if err != nil {
		return models.NewSiteError(record.URL, "extract metadata", err)
	}
	record.MetaTags = meta.metaTags
	record.StructuredData = meta.structuredData

	// Pre-consent snapshot
	before := p.classify(ctx, requests.snapshot(), domain)
	cookies, err := p.cookies(ctx, bctx)
	if err != nil {
		return models.NewSiteError(record.URL, "read cookies", err)
	}
	record.ThirdPartyDomainsNoConsent = before.ThirdPartyDomains
	record.TrackingDomainsNoConsent = before.TrackingDomains
	record.CookiesNoConsent = cookies

	result := p.resolver.Resolve(ctx, page, p.rules)
	record.ConsentManager = &result

	if p.opts.Screenshot && (result.Outcome == models.ConsentClicked || result.Outcome == models.ConsentTimeout) {
		p.screenshot(ctx, page, record, filepath.Join(p.opts.ScreenshotDir, "screenshot_"+record.ID+"_afterconsent.png"))
	}

	// Post-consent snapshot; it includes everything captured before consent
	after := p.classify(ctx, requests.snapshot(), domain)
	cookies, err = p.cookies(ctx, bctx)
	if err != nil {
		return models.NewSiteError(record.URL, "read cookies", err)
	}
	record.ThirdPartyDomainsAll = after.ThirdPartyDomains
	record.TrackingDomainsAll = after.TrackingDomains
	record.CookiesAll = cookies

	return nil
}

// settle waits for late scripts and sends a little mouse input before measuring
func (p *Prober) settle(ctx context.Context, page browser.Page) error {
	if err := sleep(ctx, p.opts.SettleDelay); err != nil {
		return err
	}
	if err := page.MoveMouse(ctx, 543, 123); err != nil {
		p.logger.LogInfo(ctx, logger.OpProbe, fmt.Sprintf("Mouse move failed: %v", err), nil)
	}
	if err := page.Scroll(ctx, 0, -123); err != nil {
		p.logger.LogInfo(ctx, logger.OpProbe, fmt.Sprintf("Scroll failed: %v", err), nil)
	}
	return sleep(ctx, p.opts.ConsentWait)
}

// screenshot captures the page; a failed capture does not fail the visit
func (p *Prober) screenshot(ctx context.Context, page browser.Page, record *models.SiteRecord, path string) {
	ref := filepath.ToSlash(path)
	if !filepath.IsAbs(path) {
		ref = "./" + ref
	}
	if err := page.Screenshot(ctx, path); err != nil {
		p.logger.LogError(ctx, logger.OpScreenshot, record.DomainName, "Failed to capture screenshot", err, models.LogSeverityLow, map[string]interface{}{
			"path": ref,
		})
		return
	}
	record.ScreenshotRefs = append(record.ScreenshotRefs, ref)
}

func (p *Prober) classify(ctx context.Context, requests []string, domain string) classifier.Classification {
	result := classifier.Classify(requests, domain, p.blocklist)
	if len(result.Dropped) > 0 {
		p.logger.LogInfo(ctx, logger.OpClassify, fmt.Sprintf("Dropped %d request URLs without a usable host", len(result.Dropped)), map[string]interface{}{
			"domain":  domain,
			"dropped": result.Dropped,
		})
	}
	return result
}

func (p *Prober) cookies(ctx context.Context, bctx browser.Context) ([]models.CapturedCookie, error) {
	raw, err := bctx.Cookies(ctx)
	if err != nil {
		return nil, err
	}

	now := p.now()
	cookies := make([]models.CapturedCookie, 0, len(raw))
	for _, c := range raw {
		cookies = append(cookies, classifier.NewCapturedCookie(c.Name, c.Domain, c.Expires, now))
	}
	return cookies, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
