package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"ConsentCrawl/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestFetcher creates a fetcher without retry backoff delays
func newTestFetcher(timeout time.Duration, retries int) *HTTPFetcher {
	f := newHTTPFetcher(timeout, retries)
	f.backoff = time.Millisecond
	return f
}

func TestHTTPFetcher_FetchText_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/hosts.txt", r.URL.Path)
		assert.Equal(t, "ConsentCrawl/1.0", r.Header.Get("User-Agent"))

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("# hosts\n127.0.0.1 tracker.io\n"))
	}))
	defer server.Close()

	f := newTestFetcher(5*time.Second, 3)

	content, err := f.FetchText(context.Background(), server.URL+"/hosts.txt")

	require.NoError(t, err)
	assert.Contains(t, content, "127.0.0.1 tracker.io")
}

func TestHTTPFetcher_FetchText_EmptyURL(t *testing.T) {
	f := newTestFetcher(5*time.Second, 1)

	content, err := f.FetchText(context.Background(), "")

	assert.Empty(t, content)
	assert.ErrorIs(t, err, models.ErrNetwork)
}

func TestHTTPFetcher_FetchText_RetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("||ads.example.com^"))
	}))
	defer server.Close()

	f := newTestFetcher(5*time.Second, 3)

	content, err := f.FetchText(context.Background(), server.URL)

	require.NoError(t, err)
	assert.Equal(t, "||ads.example.com^", content)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestHTTPFetcher_FetchText_NoRetryOnClientError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	f := newTestFetcher(5*time.Second, 3)

	content, err := f.FetchText(context.Background(), server.URL)

	assert.Empty(t, content)
	assert.ErrorIs(t, err, models.ErrNetwork)
	assert.Contains(t, err.Error(), "404")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestHTTPFetcher_FetchText_UnexpectedStatusCode(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
	}{
		{"Internal Server Error", http.StatusInternalServerError},
		{"Service Unavailable", http.StatusServiceUnavailable},
		{"Forbidden", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
			}))
			defer server.Close()

			f := newTestFetcher(5*time.Second, 2)

			content, err := f.FetchText(context.Background(), server.URL)

			assert.Empty(t, content)
			assert.ErrorIs(t, err, models.ErrNetwork)
			assert.Contains(t, err.Error(), "unexpected HTTP status")
			assert.Contains(t, err.Error(), fmt.Sprintf("%d", tt.statusCode))
		})
	}
}

func TestHTTPFetcher_FetchText_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	f := newTestFetcher(50*time.Millisecond, 1)

	content, err := f.FetchText(context.Background(), server.URL)

	assert.Empty(t, content)
	assert.ErrorIs(t, err, models.ErrNetwork)
}

func TestHTTPFetcher_FetchText_CancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("content"))
	}))
	defer server.Close()

	f := newTestFetcher(5*time.Second, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	content, err := f.FetchText(ctx, server.URL)

	assert.Empty(t, content)
	assert.ErrorIs(t, err, models.ErrNetwork)
}

func TestHTTPFetcher_FetchText_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	f := newTestFetcher(time.Second, 2)

	_, err := f.FetchText(context.Background(), url)

	assert.ErrorIs(t, err, models.ErrNetwork)
}

func TestHTTPFetcher_ReadBodyWithLimit(t *testing.T) {
	f := newTestFetcher(5*time.Second, 1)

	tests := []struct {
		name      string
		content   string
		maxSize   int64
		expectErr bool
	}{
		{"within limit", "small content", 1000, false},
		{"at limit minus 1", strings.Repeat("a", 999), 1000, false},
		{"exceeds limit", strings.Repeat("a", 1001), 1000, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := f.readBodyWithLimit(strings.NewReader(tt.content), tt.maxSize)

			if tt.expectErr {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), "too large")
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.content, string(data))
			}
		})
	}
}

func TestHTTPFetcher_CheckRedirect(t *testing.T) {
	f := newTestFetcher(5*time.Second, 1)

	assert.NoError(t, f.client.CheckRedirect(&http.Request{}, make([]*http.Request, 4)))

	err := f.client.CheckRedirect(&http.Request{}, make([]*http.Request, 5))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "too many redirects")
}

func TestNewHTTPFetcher_Defaults(t *testing.T) {
	f, ok := NewHTTPFetcher(0, 0).(*HTTPFetcher)

	require.True(t, ok)
	assert.Equal(t, 30*time.Second, f.timeout)
	assert.Equal(t, 1, f.retries)
}
