package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ConsentCrawl/internal/crawl"
	"ConsentCrawl/internal/logger"
	"ConsentCrawl/internal/models"
	"ConsentCrawl/internal/probe"
	"ConsentCrawl/internal/sink"
)

// MaxBatchURLs caps the number of URLs accepted by the batch endpoint
const MaxBatchURLs = 50

// errNameNotResolved is reported verbatim so clients can tell dead domains apart
const errNameNotResolved = "net::ERR_NAME_NOT_RESOLVED"

// statusClientClosedRequest is reported when the client goes away mid-crawl
const statusClientClosedRequest = 499

// Handler contains the HTTP handlers for the API
type Handler struct {
	prober probe.Service
	runner crawl.Service
	logger logger.Service
}

// NewHandler creates a new HTTP handler
func NewHandler(
	prober probe.Service,
	runner crawl.Service,
	logger logger.Service,
) *Handler {
	return &Handler{
		prober: prober,
		runner: runner,
		logger: logger,
	}
}

// CrawlRequest is the body of POST /api/crawl
type CrawlRequest struct {
	URL string `json:"url"`
}

// BatchCrawlRequest is the body of POST /api/batch-crawl
type BatchCrawlRequest struct {
	URLs []string `json:"urls"`
}

// CrawlResult is a site record with the failure reason lifted to the top level
type CrawlResult struct {
	Error string `json:"error,omitempty"`
	*models.SiteRecord
}

// CrawlResponse carries the records of a crawl request
type CrawlResponse struct {
	Results []CrawlResult     `json:"results"`
	Summary models.RunSummary `json:"summary"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// writeJSONResponse writes a JSON response with standard headers including X-Request-ID
func (h *Handler) writeJSONResponse(w http.ResponseWriter, r *http.Request, statusCode int, data interface{}) error {
	logEvent := logger.GetLogEvent(r.Context())

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-ID", logEvent.ProcessID)
	w.WriteHeader(statusCode)

	return json.NewEncoder(w).Encode(data)
}

// CrawlSite handles POST /api/crawl
func (h *Handler) CrawlSite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var request CrawlRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.logger.LogError(ctx, logger.OpCrawlRequest, "", "Invalid request body", err, models.LogSeverityLow, nil)
		h.writeErrorResponse(w, r, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	url := strings.TrimSpace(request.URL)
	if url == "" {
		h.writeErrorResponse(w, r, http.StatusBadRequest, "url is required", "")
		return
	}

	h.logger.LogInfo(ctx, logger.OpCrawlRequest, fmt.Sprintf("Starting crawl for url: %s", url), map[string]interface{}{
		"url": url,
	})

	record := h.prober.Probe(ctx, url)
	response := newCrawlResponse([]*models.SiteRecord{record})

	if err := h.writeJSONResponse(w, r, h.getBatchStatusCode(response.Summary), response); err != nil {
		h.logger.LogError(ctx, logger.OpCrawlRequest, url, "Failed to encode response", err, models.LogSeverityLow, nil)
		return
	}

	h.logger.LogSuccess(ctx, logger.OpCrawlRequest, url, "Completed crawl request", map[string]interface{}{
		"status": record.Status,
	})
}

// CrawlBatch handles POST /api/batch-crawl
func (h *Handler) CrawlBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var request BatchCrawlRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.logger.LogError(ctx, logger.OpBatchRequest, "", "Invalid request body", err, models.LogSeverityLow, nil)
		h.writeErrorResponse(w, r, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	urls := make([]string, 0, len(request.URLs))
	for _, url := range request.URLs {
		if url = strings.TrimSpace(url); url != "" {
			urls = append(urls, url)
		}
	}

	if len(urls) == 0 {
		h.writeErrorResponse(w, r, http.StatusBadRequest, "urls array cannot be empty", "")
		return
	}

	if len(urls) > MaxBatchURLs {
		h.writeErrorResponse(w, r, http.StatusBadRequest, "too many urls", fmt.Sprintf("Maximum %d urls per batch", MaxBatchURLs))
		return
	}

	h.logger.LogInfo(ctx, logger.OpBatchRequest, fmt.Sprintf("Starting batch crawl for %d urls", len(urls)), map[string]interface{}{
		"urls_count": len(urls),
	})

	collector := sink.NewCollector()
	if _, err := h.runner.Run(ctx, urls, collector); err != nil {
		h.logger.LogError(ctx, logger.OpBatchRequest, "", "Batch crawl failed", err, models.LogSeverityMedium, nil)
		h.writeErrorResponse(w, r, h.getStatusCodeForError(err), "batch crawl failed", err.Error())
		return
	}

	response := newCrawlResponse(collector.Records())

	if err := h.writeJSONResponse(w, r, h.getBatchStatusCode(response.Summary), response); err != nil {
		h.logger.LogError(ctx, logger.OpBatchRequest, "", "Failed to encode batch response", err, models.LogSeverityLow, nil)
		return
	}

	h.logger.LogSuccess(ctx, logger.OpBatchRequest, "", fmt.Sprintf("Completed batch crawl: %d succeeded, %d failed", response.Summary.Succeeded, response.Summary.Failed), map[string]interface{}{
		"total":     response.Summary.Total,
		"succeeded": response.Summary.Succeeded,
		"failed":    response.Summary.Failed,
	})
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   "1.0.0",
	}

	if err := h.writeJSONResponse(w, r, http.StatusOK, response); err != nil {
		h.logger.LogError(ctx, logger.OpHealthCheck, "", "Failed to encode health response", err, models.LogSeverityLow, nil)
		return
	}

	h.logger.LogInfo(ctx, logger.OpHealthCheck, "Health check performed successfully", nil)
}

// writeErrorResponse writes a standardized error response
func (h *Handler) writeErrorResponse(w http.ResponseWriter, r *http.Request, statusCode int, error, message string) {
	response := ErrorResponse{
		Error:     error,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}

	if err := h.writeJSONResponse(w, r, statusCode, response); err != nil {
		h.logger.LogError(r.Context(), "response_encoding", "", "Failed to encode error response", err, models.LogSeverityLow, nil)
	}
}

// newCrawlResponse wraps records and summarizes them
func newCrawlResponse(records []*models.SiteRecord) CrawlResponse {
	response := CrawlResponse{Results: make([]CrawlResult, 0, len(records))}

	for _, record := range records {
		result := CrawlResult{SiteRecord: record}
		response.Summary.Total++
		if record.Status == models.SiteStatusSuccess {
			response.Summary.Succeeded++
		} else {
			response.Summary.Failed++
			result.Error = failureReason(record.StatusMessage)
		}
		response.Results = append(response.Results, result)
	}
	if len(records) > 0 {
		response.Summary.Windows = 1
	}

	return response
}

// failureReason returns the DNS failure marker when present, the full status message otherwise
func failureReason(statusMessage string) string {
	if strings.Contains(statusMessage, errNameNotResolved) {
		return errNameNotResolved
	}
	if statusMessage == "" {
		return "Unknown error"
	}
	return statusMessage
}

// getStatusCodeForError determines the appropriate HTTP status code for a run error
func (h *Handler) getStatusCodeForError(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, models.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest
	case errors.Is(err, models.ErrConfig), errors.Is(err, models.ErrInvalidURL):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// getBatchStatusCode determines the status code for crawl responses
func (h *Handler) getBatchStatusCode(summary models.RunSummary) int {
	if summary.Failed == 0 {
		return http.StatusOK
	} else if summary.Succeeded == 0 {
		return http.StatusBadGateway
	} else {
		// Partial success - use 207 Multi-Status
		return http.StatusMultiStatus
	}
}
