package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"ConsentCrawl/internal/models"
)

// maxBodySize caps a single blocklist download
const maxBodySize = 64 * 1024 * 1024

// HTTPFetcher implements Service using HTTP requests
type HTTPFetcher struct {
	client  *http.Client
	timeout time.Duration
	retries int
	backoff time.Duration
}

// NewHTTPFetcher creates a new HTTP-based text fetcher
func NewHTTPFetcher(timeout time.Duration, retries int) Service {
	return newHTTPFetcher(timeout, retries)
}

// newHTTPFetcher creates the concrete implementation
func newHTTPFetcher(timeout time.Duration, retries int) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if retries <= 0 {
		retries = 1
	}

	return &HTTPFetcher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// Allow up to 5 redirects
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		timeout: timeout,
		retries: retries,
		backoff: time.Second,
	}
}

// FetchText downloads url and returns its body, retrying transport failures.
// Every failure wraps models.ErrNetwork.
func (f *HTTPFetcher) FetchText(ctx context.Context, url string) (string, error) {
	if url == "" {
		return "", fmt.Errorf("%w: empty url", models.ErrNetwork)
	}

	var lastErr error
	for attempt := 0; attempt < f.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %v", models.ErrNetwork, ctx.Err())
			case <-time.After(time.Duration(attempt) * f.backoff):
			}
		}

		body, err := f.doFetch(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err

		// Client errors will not improve on retry
		var statusErr *statusError
		if errors.As(err, &statusErr) && statusErr.code >= 400 && statusErr.code < 500 {
			break
		}
		if ctx.Err() != nil {
			break
		}
	}

	return "", fmt.Errorf("%w: fetching %s: %v", models.ErrNetwork, url, lastErr)
}

func (f *HTTPFetcher) doFetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", "ConsentCrawl/1.0")
	req.Header.Set("Accept", "text/plain")

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("%w: %v", models.ErrTimeout, err)
		}
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &statusError{code: resp.StatusCode, status: resp.Status}
	}

	body, err := f.readBodyWithLimit(resp.Body, maxBodySize)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	return string(body), nil
}

// readBodyWithLimit reads the response body with a size limit
func (f *HTTPFetcher) readBodyWithLimit(body io.Reader, maxSize int64) ([]byte, error) {
	limitedReader := io.LimitReader(body, maxSize)
	data, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, err
	}

	// Check if we hit the limit
	if int64(len(data)) >= maxSize {
		return nil, fmt.Errorf("response too large (exceeds %d bytes)", maxSize)
	}

	return data, nil
}

// statusError carries a non-200 HTTP status
type statusError struct {
	code   int
	status string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected HTTP status: %s", e.status)
}
