package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	httpMocks "ConsentCrawl/internal/http/mocks"
	"ConsentCrawl/internal/mocks"
	"ConsentCrawl/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func successRecord(url string) *models.SiteRecord {
	return &models.SiteRecord{
		ID:                       "ZXhhbXBsZS5jb20=",
		URL:                      url,
		DomainName:               "example.com",
		TrackingDomainsNoConsent: []string{"tracker.io"},
		ConsentManager:           &models.ConsentResult{RuleID: "generic", Outcome: models.ConsentClicked},
		Status:                   models.SiteStatusSuccess,
		StatusMessage:            "Successfully extracted data from " + url,
	}
}

func errorRecord(url, msg string) *models.SiteRecord {
	return &models.SiteRecord{
		URL:           url,
		Status:        models.SiteStatusError,
		StatusMessage: "Error extracting data from " + url + ": " + msg,
	}
}

func newCrawlRequest(t *testing.T, path string, body interface{}) *http.Request {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	return httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
}

func TestHandler_CrawlSite_Success(t *testing.T) {
	// Arrange
	mockProber := &mocks.MockProber{}
	mockRunner := &httpMocks.MockCrawlService{}
	mockLogger := &mocks.MockLogger{}

	handler := NewHandler(mockProber, mockRunner, mockLogger)

	url := "http://example.com"
	mockLogger.On("LogInfo", mock.Anything, "crawl_request", mock.AnythingOfType("string"), mock.Anything).Return()
	mockProber.On("Probe", mock.Anything, url).Return(successRecord(url))
	mockLogger.On("LogSuccess", mock.Anything, "crawl_request", url, "Completed crawl request", mock.Anything).Return()

	req := newCrawlRequest(t, "/api/crawl", CrawlRequest{URL: url})
	w := httptest.NewRecorder()

	// Act
	handler.CrawlSite(w, req)

	// Assert
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))

	results := response["results"].([]interface{})
	require.Len(t, results, 1)
	result := results[0].(map[string]interface{})
	assert.Equal(t, url, result["url"])
	assert.Equal(t, "success", result["status"])
	assert.NotContains(t, result, "error")
	assert.Equal(t, []interface{}{"tracker.io"}, result["tracking_domains_no_consent"])

	mockProber.AssertExpectations(t)
	mockLogger.AssertExpectations(t)
}

func TestHandler_CrawlSite_FailedProbe(t *testing.T) {
	tests := []struct {
		name     string
		message  string
		expected string
	}{
		{"dns failure surfaced verbatim", "page.goto: net::ERR_NAME_NOT_RESOLVED at http://nx.example", "net::ERR_NAME_NOT_RESOLVED"},
		{"other failure keeps message", "navigation failed: timeout", "Error extracting data from http://nx.example: navigation failed: timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockProber := &mocks.MockProber{}
			handler := NewHandler(mockProber, &httpMocks.MockCrawlService{}, mocks.NewPermissiveLogger())

			url := "http://nx.example"
			mockProber.On("Probe", mock.Anything, url).Return(errorRecord(url, tt.message))

			w := httptest.NewRecorder()
			handler.CrawlSite(w, newCrawlRequest(t, "/api/crawl", CrawlRequest{URL: url}))

			assert.Equal(t, http.StatusBadGateway, w.Code)

			var response CrawlResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			require.Len(t, response.Results, 1)
			assert.Equal(t, tt.expected, response.Results[0].Error)
			assert.Equal(t, models.SiteStatusError, response.Results[0].Status)
			assert.Equal(t, 1, response.Summary.Failed)
		})
	}
}

func TestHandler_CrawlSite_BadRequests(t *testing.T) {
	tests := []struct {
		name          string
		body          string
		expectedError string
	}{
		{"invalid json", "{not json", "invalid request body"},
		{"missing url", `{}`, "url is required"},
		{"blank url", `{"url":"   "}`, "url is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockProber := &mocks.MockProber{}
			handler := NewHandler(mockProber, &httpMocks.MockCrawlService{}, mocks.NewPermissiveLogger())

			req := httptest.NewRequest(http.MethodPost, "/api/crawl", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			handler.CrawlSite(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)

			var response ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.Equal(t, tt.expectedError, response.Error)

			mockProber.AssertNotCalled(t, "Probe", mock.Anything, mock.Anything)
		})
	}
}

func TestHandler_CrawlBatch_Success(t *testing.T) {
	// Arrange
	mockRunner := &httpMocks.MockCrawlService{}
	handler := NewHandler(&mocks.MockProber{}, mockRunner, mocks.NewPermissiveLogger())

	urls := []string{"http://a.example", "http://b.example"}
	records := []*models.SiteRecord{successRecord(urls[0]), successRecord(urls[1])}
	mockRunner.On("Run", mock.Anything, urls, mock.Anything).
		Return(records, models.RunSummary{Total: 2, Succeeded: 2, Windows: 1}, nil)

	w := httptest.NewRecorder()

	// Act
	handler.CrawlBatch(w, newCrawlRequest(t, "/api/batch-crawl", BatchCrawlRequest{URLs: urls}))

	// Assert
	assert.Equal(t, http.StatusOK, w.Code)

	var response CrawlResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Len(t, response.Results, 2)
	assert.Equal(t, urls[0], response.Results[0].URL)
	assert.Equal(t, urls[1], response.Results[1].URL)
	assert.Equal(t, 2, response.Summary.Succeeded)

	mockRunner.AssertExpectations(t)
}

func TestHandler_CrawlBatch_PartialSuccess(t *testing.T) {
	mockRunner := &httpMocks.MockCrawlService{}
	handler := NewHandler(&mocks.MockProber{}, mockRunner, mocks.NewPermissiveLogger())

	urls := []string{"http://a.example", "http://nx.example"}
	records := []*models.SiteRecord{successRecord(urls[0]), errorRecord(urls[1], "net::ERR_NAME_NOT_RESOLVED")}
	mockRunner.On("Run", mock.Anything, urls, mock.Anything).
		Return(records, models.RunSummary{Total: 2, Succeeded: 1, Failed: 1, Windows: 1}, nil)

	w := httptest.NewRecorder()
	handler.CrawlBatch(w, newCrawlRequest(t, "/api/batch-crawl", BatchCrawlRequest{URLs: urls}))

	assert.Equal(t, http.StatusMultiStatus, w.Code)

	var response CrawlResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Empty(t, response.Results[0].Error)
	assert.Equal(t, "net::ERR_NAME_NOT_RESOLVED", response.Results[1].Error)
}

func TestHandler_CrawlBatch_Validation(t *testing.T) {
	tooMany := make([]string, MaxBatchURLs+1)
	for i := range tooMany {
		tooMany[i] = "http://site.example"
	}

	tests := []struct {
		name          string
		body          interface{}
		expectedError string
	}{
		{"empty list", BatchCrawlRequest{}, "urls array cannot be empty"},
		{"blank entries only", BatchCrawlRequest{URLs: []string{" ", ""}}, "urls array cannot be empty"},
		{"too many urls", BatchCrawlRequest{URLs: tooMany}, "too many urls"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRunner := &httpMocks.MockCrawlService{}
			handler := NewHandler(&mocks.MockProber{}, mockRunner, mocks.NewPermissiveLogger())

			w := httptest.NewRecorder()
			handler.CrawlBatch(w, newCrawlRequest(t, "/api/batch-crawl", tt.body))

			assert.Equal(t, http.StatusBadRequest, w.Code)

			var response ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.Equal(t, tt.expectedError, response.Error)

			mockRunner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestHandler_CrawlBatch_RunError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"cancelled", context.Canceled, statusClientClosedRequest},
		{"config", models.ErrConfig, http.StatusBadRequest},
		{"other", errors.New("sink failed"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRunner := &httpMocks.MockCrawlService{}
			handler := NewHandler(&mocks.MockProber{}, mockRunner, mocks.NewPermissiveLogger())

			mockRunner.On("Run", mock.Anything, []string{"http://a.example"}, mock.Anything).
				Return(nil, models.RunSummary{}, tt.err)

			w := httptest.NewRecorder()
			handler.CrawlBatch(w, newCrawlRequest(t, "/api/batch-crawl", BatchCrawlRequest{URLs: []string{"http://a.example"}}))

			assert.Equal(t, tt.expected, w.Code)

			var response ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.Equal(t, "batch crawl failed", response.Error)
		})
	}
}

func TestHandler_HealthCheck(t *testing.T) {
	mockLogger := &mocks.MockLogger{}
	handler := NewHandler(&mocks.MockProber{}, &httpMocks.MockCrawlService{}, mockLogger)

	mockLogger.On("LogInfo", mock.Anything, "health_check", "Health check performed successfully", mock.Anything).Return()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	handler.HealthCheck(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	var response HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "healthy", response.Status)
	assert.Equal(t, "1.0.0", response.Version)

	mockLogger.AssertExpectations(t)
}

func TestHandler_GetBatchStatusCode(t *testing.T) {
	handler := &Handler{}

	assert.Equal(t, http.StatusOK, handler.getBatchStatusCode(models.RunSummary{Total: 2, Succeeded: 2}))
	assert.Equal(t, http.StatusMultiStatus, handler.getBatchStatusCode(models.RunSummary{Total: 2, Succeeded: 1, Failed: 1}))
	assert.Equal(t, http.StatusBadGateway, handler.getBatchStatusCode(models.RunSummary{Total: 1, Failed: 1}))
}

func TestFailureReason(t *testing.T) {
	assert.Equal(t, "net::ERR_NAME_NOT_RESOLVED", failureReason("Error extracting data from x: net::ERR_NAME_NOT_RESOLVED"))
	assert.Equal(t, "boom", failureReason("boom"))
	assert.Equal(t, "Unknown error", failureReason(""))
}
