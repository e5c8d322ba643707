package http

import (
	"context"
	"net/http"
	"time"

	"ConsentCrawl/internal/logger"
	"ConsentCrawl/internal/metrics"
	"ConsentCrawl/internal/ratelimit"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server represents the HTTP server with all dependencies
type Server struct {
	handler *Handler
	logger  logger.Service
	server  *http.Server
}

// NewServer creates a new HTTP server; gatherer backs GET /metrics
func NewServer(
	addr string,
	handler *Handler,
	logger logger.Service,
	rateLimiter ratelimit.Service,
	m *metrics.Metrics,
	gatherer prometheus.Gatherer,
	readTimeout, writeTimeout time.Duration,
) *Server {
	router := mux.NewRouter()

	srv := &Server{
		handler: handler,
		logger:  logger,
		server: &http.Server{
			Addr:         addr,
			Handler:      router,
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
		},
	}

	// Operational endpoints are not rate limited
	router.HandleFunc("/health", handler.HealthCheck).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	// Order matters: logging -> metrics -> rate limiting -> cors -> recovery
	api := router.PathPrefix("/api").Subrouter()
	api.Use(loggingMiddleware(logger))
	api.Use(metricsMiddleware(m))
	api.Use(rateLimitingMiddleware(rateLimiter, logger, m))
	api.Use(corsMiddleware())
	api.Use(recoveryMiddleware(logger))
	srv.registerRoutes(api)

	router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"message":"ConsentCrawl API","version":"1.0.0","endpoints":["/health","/metrics","/api/crawl","/api/batch-crawl"]}`))
	}).Methods(http.MethodGet)

	return srv
}

// registerRoutes sets up the crawl API routes
func (s *Server) registerRoutes(api *mux.Router) {
	api.HandleFunc("/crawl", s.handler.CrawlSite).Methods(http.MethodPost)
	api.HandleFunc("/batch-crawl", s.handler.CrawlBatch).Methods(http.MethodPost)
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.LogInfo(context.Background(), logger.OpServerStart, "Starting HTTP server", map[string]interface{}{
		"addr": s.server.Addr,
	})

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.LogInfo(ctx, logger.OpServerShutdown, "Shutting down HTTP server", nil)
	return s.server.Shutdown(ctx)
}
