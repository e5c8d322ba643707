package models

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig indicates a malformed catalog, unknown blocklist format or invalid option
	ErrConfig = errors.New("configuration error")

	// ErrNetwork indicates a transport failure while fetching remote data
	ErrNetwork = errors.New("network error")

	// ErrNoBlocklistData indicates that neither a cache nor a fresh fetch produced an index
	ErrNoBlocklistData = errors.New("no blocklist data available")

	// ErrNavigation indicates that the page could not be loaded
	ErrNavigation = errors.New("navigation failed")

	// ErrTimeout indicates that a bounded wait elapsed
	ErrTimeout = errors.New("timeout")

	// ErrResolution indicates a failure while activating a consent control
	ErrResolution = errors.New("consent resolution failed")

	// ErrCacheMiss indicates that the requested key is not cached
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidURL indicates that a URL has no usable host
	ErrInvalidURL = errors.New("invalid url")

	// ErrRateLimitExceeded indicates that an API client exceeded its request budget
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
)

// SiteError represents a failure at one stage of a site visit
type SiteError struct {
	URL   string
	Stage string
	Err   error
}

func (e *SiteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.URL, e.Stage, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.URL, e.Stage)
}

func (e *SiteError) Unwrap() error {
	return e.Err
}

// NewSiteError creates a new stage-specific site error
func NewSiteError(url, stage string, err error) *SiteError {
	return &SiteError{
		URL:   url,
		Stage: stage,
		Err:   err,
	}
}
