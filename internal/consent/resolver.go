package consent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ConsentCrawl/internal/logger"
	"ConsentCrawl/internal/metrics"
	"ConsentCrawl/internal/models"
)

const (
	defaultNavigationTimeout = 15 * time.Second
	defaultPreClickDelay     = 10 * time.Millisecond
)

// Resolver implements the Service interface
type Resolver struct {
	logger            logger.Service
	metrics           *metrics.Metrics
	navigationTimeout time.Duration
	preClickDelay     time.Duration
}

// NewResolver creates a new consent resolver.
// navigationTimeout bounds the wait for a navigation after the click.
func NewResolver(logger logger.Service, metrics *metrics.Metrics, navigationTimeout time.Duration) Service {
	return newResolver(logger, metrics, navigationTimeout)
}

// newResolver creates the concrete implementation
func newResolver(logger logger.Service, metrics *metrics.Metrics, navigationTimeout time.Duration) *Resolver {
	if navigationTimeout <= 0 {
		navigationTimeout = defaultNavigationTimeout
	}
	return &Resolver{
		logger:            logger,
		metrics:           metrics,
		navigationTimeout: navigationTimeout,
		preClickDelay:     defaultPreClickDelay,
	}
}

// Resolve walks rules in order and activates the control of the first rule that locates one.
// A rule that locates nothing is not an error; when no rule does, the outcome is not_found.
func (r *Resolver) Resolve(ctx context.Context, page Page, rules []models.ConsentRule) models.ConsentResult {
	for _, rule := range rules {
		element, selector, ok := r.locate(ctx, page, rule)
		if !ok {
			continue
		}

		result := r.activate(ctx, page, rule, element)
		result.Selector = selector

		r.metrics.ObserveConsent(string(result.Outcome))
		r.logger.LogSuccess(ctx, logger.OpConsentResolve, rule.ID, "Consent manager resolved", map[string]interface{}{
			"outcome":  string(result.Outcome),
			"selector": selector,
		})
		return result
	}

	r.metrics.ObserveConsent(string(models.ConsentNotFound))
	r.logger.LogInfo(ctx, logger.OpConsentResolve, "No consent manager found", map[string]interface{}{
		"rules": len(rules),
	})
	return models.ConsentResult{Outcome: models.ConsentNotFound}
}

// locate runs the actions of rule and returns the control it points at.
// Iframe actions narrow the scope; the first selector action with a visible match ends the rule.
func (r *Resolver) locate(ctx context.Context, page Page, rule models.ConsentRule) (Element, string, bool) {
	var scope Scope = page

	for _, action := range rule.Actions {
		switch a := action.(type) {
		case models.IframeAction:
			frame, err := scope.Frame(ctx, a.Selector)
			if err != nil {
				r.logger.LogInfo(ctx, logger.OpConsentResolve, fmt.Sprintf("Frame lookup failed for rule %s: %v", rule.ID, err), nil)
				return nil, "", false
			}
			if frame == nil {
				return nil, "", false
			}
			scope = frame

		case models.CSSSelectorAction:
			if element := r.firstVisible(ctx, scope, rule.ID, a.Selector); element != nil {
				return element, a.Selector, true
			}

		case models.CSSSelectorListAction:
			for _, selector := range a.Selectors {
				if element := r.firstVisible(ctx, scope, rule.ID, selector); element != nil {
					return element, selector, true
				}
			}

		case models.XPathAction:
			r.logger.LogInfo(ctx, logger.OpConsentResolve, fmt.Sprintf("XPath actions are not implemented, skipping rule %s", rule.ID), nil)
			return nil, "", false
		}
	}

	return nil, "", false
}

// firstVisible returns the first visible element matching selector in scope, or nil
func (r *Resolver) firstVisible(ctx context.Context, scope Scope, ruleID, selector string) Element {
	elements, err := scope.Elements(ctx, selector)
	if err != nil {
		r.logger.LogInfo(ctx, logger.OpConsentResolve, fmt.Sprintf("Selector lookup failed for rule %s: %v", ruleID, err), map[string]interface{}{
			"selector": selector,
		})
		return nil
	}

	for _, element := range elements {
		visible, err := element.Visible(ctx)
		if err != nil {
			continue
		}
		if visible {
			return element
		}
	}
	return nil
}

// activate clicks element and waits for the page to navigate
func (r *Resolver) activate(ctx context.Context, page Page, rule models.ConsentRule, element Element) models.ConsentResult {
	navCtx, cancel := context.WithTimeout(ctx, r.navigationTimeout)
	defer cancel()

	// Listen before clicking so an immediate reload is not missed
	wait := page.ExpectNavigation(navCtx)

	select {
	case <-navCtx.Done():
	case <-time.After(r.preClickDelay):
	}

	if err := element.Click(navCtx); err != nil {
		if timedOut(navCtx, err) {
			return models.ConsentResult{RuleID: rule.ID, Outcome: models.ConsentTimeout}
		}
		return r.failed(ctx, rule, err)
	}

	if err := wait(); err != nil {
		if timedOut(navCtx, err) {
			return models.ConsentResult{RuleID: rule.ID, Outcome: models.ConsentTimeout}
		}
		return r.failed(ctx, rule, err)
	}

	return models.ConsentResult{RuleID: rule.ID, Outcome: models.ConsentClicked}
}

func (r *Resolver) failed(ctx context.Context, rule models.ConsentRule, err error) models.ConsentResult {
	wrapped := fmt.Errorf("%w: error clicking consent manager '%s': %v", models.ErrResolution, rule.ID, err)
	r.logger.LogError(ctx, logger.OpConsentResolve, rule.ID, "Consent click failed", wrapped, models.LogSeverityLow, nil)
	return models.ConsentResult{
		RuleID:  rule.ID,
		Outcome: models.ConsentError,
		Error:   wrapped.Error(),
	}
}

// timedOut reports whether err is the navigation window elapsing
func timedOut(navCtx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, models.ErrTimeout) {
		return true
	}
	return errors.Is(navCtx.Err(), context.DeadlineExceeded)
}
