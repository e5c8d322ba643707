package models

import (
	"time"
)

// ConsentRule is one entry of the ordered consent-manager catalog
type ConsentRule struct {
	ID      string   `json:"id" yaml:"id"`
	Actions []Action `json:"-" yaml:"-"`
}

// Action is a single step of a consent rule.
// The set of implementations is closed: IframeAction, CSSSelectorAction,
// CSSSelectorListAction and XPathAction.
type Action interface {
	actionType() string
}

// IframeAction narrows the resolution scope into the frame matched by Selector
type IframeAction struct {
	Selector string
}

// CSSSelectorAction picks the first visible element matching Selector
type CSSSelectorAction struct {
	Selector string
}

// CSSSelectorListAction tries Selectors in order, first visible match wins
type CSSSelectorListAction struct {
	Selectors []string
}

// XPathAction is reserved and not resolved
type XPathAction struct {
	Expr string
}

func (IframeAction) actionType() string          { return ActionTypeIframe }
func (CSSSelectorAction) actionType() string     { return ActionTypeCSSSelector }
func (CSSSelectorListAction) actionType() string { return ActionTypeCSSSelectorList }
func (XPathAction) actionType() string           { return ActionTypeXPath }

// ActionType returns the catalog name of an action
func ActionType(a Action) string {
	if a == nil {
		return ""
	}
	return a.actionType()
}

// Catalog action type names
const (
	ActionTypeIframe          = "iframe"
	ActionTypeCSSSelector     = "css-selector"
	ActionTypeCSSSelectorList = "css-selector-list"
	ActionTypeXPath           = "xpath"
)

// ConsentOutcome is the terminal state of a consent resolution
type ConsentOutcome string

const (
	ConsentClicked  ConsentOutcome = "clicked"
	ConsentTimeout  ConsentOutcome = "timeout"
	ConsentError    ConsentOutcome = "error"
	ConsentNotFound ConsentOutcome = "not_found"
)

// ConsentResult is the outcome of resolving the consent catalog against one page
type ConsentResult struct {
	RuleID   string         `json:"rule_id,omitempty"`
	Outcome  ConsentOutcome `json:"outcome"`
	Selector string         `json:"selector,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// Found reports whether a consent control was located at all
func (r ConsentResult) Found() bool {
	return r.Outcome != "" && r.Outcome != ConsentNotFound
}

// BlocklistFormat names the text format of a blocklist source
type BlocklistFormat string

const (
	FormatHostfile  BlocklistFormat = "hostfile"
	FormatBlocklist BlocklistFormat = "blocklist"
	FormatDomains   BlocklistFormat = "domains"
)

// BlocklistSource is a declarative blocklist catalog entry
type BlocklistSource struct {
	ID     string          `json:"id" yaml:"id"`
	Name   string          `json:"name" yaml:"name"`
	URL    string          `json:"url" yaml:"url"`
	Format BlocklistFormat `json:"format" yaml:"type"`
}

// SourceID returns the id used in the merged index, falling back to the name
func (s BlocklistSource) SourceID() string {
	if s.ID != "" {
		return s.ID
	}
	return s.Name
}

// BlocklistSnapshot is the persisted form of the merged blocklist index
type BlocklistSnapshot struct {
	Entries       map[string][]string `json:"entries"`
	LastFetchTime int64               `json:"last_fetch_time"`
}

// CapturedCookie is a cookie observed in a browsing context.
// ExpiresInDays is -1 for session or out-of-range cookies.
type CapturedCookie struct {
	Name          string `json:"name"`
	Domain        string `json:"domain"`
	ExpiresInDays int    `json:"expires_days"`
}

// SiteStatus is the probe status of a site record
type SiteStatus string

const (
	SiteStatusSuccess SiteStatus = "success"
	SiteStatusError   SiteStatus = "error"
)

// SiteRecord is the result of a single site visit
type SiteRecord struct {
	ID                         string            `json:"id"`
	URL                        string            `json:"url"`
	DomainName                 string            `json:"domain_name"`
	ExtractionTime             time.Time         `json:"extraction_datetime"`
	CookiesAll                 []CapturedCookie  `json:"cookies_all"`
	CookiesNoConsent           []CapturedCookie  `json:"cookies_no_consent"`
	ThirdPartyDomainsAll       []string          `json:"third_party_domains_all"`
	ThirdPartyDomainsNoConsent []string          `json:"third_party_domains_no_consent"`
	TrackingDomainsAll         []string          `json:"tracking_domains_all"`
	TrackingDomainsNoConsent   []string          `json:"tracking_domains_no_consent"`
	ConsentManager             *ConsentResult    `json:"consent_manager"`
	ScreenshotRefs             []string          `json:"screenshot_files"`
	MetaTags                   map[string]string `json:"meta_tags"`
	StructuredData             []interface{}     `json:"json_ld"`
	Status                     SiteStatus        `json:"status"`
	StatusMessage              string            `json:"status_msg"`
}

// RunSummary aggregates a batch run
type RunSummary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Windows   int `json:"windows"`
}

// LogSeverity represents the severity level of a log entry
type LogSeverity string

const (
	LogSeverityLow    LogSeverity = "low"
	LogSeverityMedium LogSeverity = "medium"
	LogSeverityHigh   LogSeverity = "high"
)

// ProcessType represents the type of process that created the log
type ProcessType string

const (
	ProcessTypeRequest  ProcessType = "request"
	ProcessTypeInternal ProcessType = "internal"
	ProcessTypeProbe    ProcessType = "probe"
)

// LogEvent represents a process-specific logging context
type LogEvent struct {
	ProcessID   string      `json:"process_id"`
	ProcessType ProcessType `json:"process_type"`
	StartTime   time.Time   `json:"start_time"`
	Target      string      `json:"target,omitempty"`
}

// LogEntry represents a structured log entry for database storage
type LogEntry struct {
	ID            string                 `json:"id"`
	Timestamp     time.Time              `json:"timestamp"`
	Severity      LogSeverity            `json:"severity,omitempty"`
	Message       string                 `json:"message"`
	Operation     string                 `json:"operation"`
	TargetName    string                 `json:"target_name,omitempty"`
	ProcessID     string                 `json:"process_id"`
	ProcessType   ProcessType            `json:"process_type"`
	ProcessTarget string                 `json:"process_target,omitempty"`
	Error         string                 `json:"error,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
}
