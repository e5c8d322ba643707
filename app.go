package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"ConsentCrawl/internal/blocklist"
	"ConsentCrawl/internal/browser"
	"ConsentCrawl/internal/cache"
	"ConsentCrawl/internal/cache/blocklistCache"
	"ConsentCrawl/internal/catalog"
	"ConsentCrawl/internal/config"
	"ConsentCrawl/internal/consent"
	"ConsentCrawl/internal/crawl"
	"ConsentCrawl/internal/fetcher"
	"ConsentCrawl/internal/logger"
	"ConsentCrawl/internal/metrics"
	"ConsentCrawl/internal/models"
	"ConsentCrawl/internal/parser"
	"ConsentCrawl/internal/probe"
	"ConsentCrawl/internal/sink"

	"github.com/prometheus/client_golang/prometheus"
)

// app holds the long-lived collaborators shared by the commands
type app struct {
	cfg      *config.Config
	logger   logger.Service
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	cache    cache.Service
	store    blocklist.Service

	closers []func()
}

// newApp builds the logging, metrics and blocklist layers
func newApp(cfg *config.Config) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, registry: prometheus.NewRegistry()}
	a.metrics = metrics.NewMetrics(a.registry)

	appLogger, err := initializeLogger(cfg, a)
	if err != nil {
		return nil, err
	}
	a.logger = appLogger
	a.closers = append(a.closers, func() { _ = appLogger.Close() })

	cacheService, err := initializeCache(cfg)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}
	a.cache = cacheService
	a.closers = append(a.closers, func() { _ = cacheService.Close() })

	a.store = blocklist.NewStore(
		fetcher.NewHTTPFetcher(time.Duration(cfg.FetchTimeoutSeconds)*time.Second, cfg.FetchRetries),
		parser.NewParser(),
		blocklistCache.New(cacheService, cfg.BlocklistRetention()),
		a.logger,
		a.metrics,
		cfg.MaxBlocklistAgeDays,
	)

	return a, nil
}

// initializeLogger logs to Postgres when LOG_DATABASE_URL is set, to the console otherwise
func initializeLogger(cfg *config.Config, a *app) (logger.Service, error) {
	if cfg.LogDatabaseURL == "" {
		return logger.NewConsoleLogger(cfg.LogLevel, cfg.LogEncoding)
	}

	db, err := logger.NewPostgresConnection(cfg.LogDatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to log database: %w", err)
	}
	// The logger drains its pending inserts before the pool goes away
	a.closers = append(a.closers, func() { _ = db.Close() })

	return logger.NewDatabaseLogger(db), nil
}

// initializeCache creates the blocklist persistence backend selected by CACHE_TYPE
func initializeCache(cfg *config.Config) (cache.Service, error) {
	switch cfg.CacheType {
	case config.CacheTypeRedis:
		return cache.NewRedisCache(cfg.RedisURL, "consentcrawl")
	case config.CacheTypeMemory:
		return cache.NewMemoryCache(), nil
	default:
		return cache.NewFileCache(cfg.CacheDir)
	}
}

// loadBlocklists loads the source catalog and the merged index
func (a *app) loadBlocklists(ctx context.Context, force bool) (*blocklist.Index, error) {
	sources, err := catalog.LoadBlocklistSources(a.cfg.BlocklistsFile)
	if err != nil {
		a.logger.LogError(ctx, logger.OpCatalogLoad, a.cfg.BlocklistsFile, "Failed to load blocklist catalog", err, models.LogSeverityHigh, nil)
		return nil, err
	}

	return a.store.Load(ctx, sources, force || a.cfg.ForceBlocklistRefresh)
}

// newProber launches the browser and assembles the site prober
func (a *app) newProber(ctx context.Context) (probe.Service, error) {
	rules, err := catalog.LoadConsentRules(a.cfg.ConsentRulesFile)
	if err != nil {
		a.logger.LogError(ctx, logger.OpCatalogLoad, a.cfg.ConsentRulesFile, "Failed to load consent catalog", err, models.LogSeverityHigh, nil)
		return nil, err
	}
	a.logger.LogInfo(ctx, logger.OpCatalogLoad, fmt.Sprintf("Loaded %d consent managers", len(rules)), nil)

	b, err := browser.Launch(ctx, browser.Options{
		Headless: a.cfg.Headless,
		Bin:      a.cfg.BrowserBin,
	})
	if err != nil {
		a.logger.LogError(ctx, logger.OpBrowserLaunch, "", "Failed to launch browser", err, models.LogSeverityHigh, nil)
		return nil, err
	}
	a.closers = append(a.closers, func() { _ = b.Close() })

	resolver := consent.NewResolver(a.logger, a.metrics, a.cfg.ConsentTimeout)

	return probe.NewProber(b, resolver, a.store, rules, probe.Options{
		Screenshot:        a.cfg.Screenshot,
		ScreenshotDir:     a.cfg.ScreenshotDir,
		NavigationTimeout: a.cfg.NavigationTimeout,
		SettleDelay:       a.cfg.SettleDelay,
		ConsentWait:       a.cfg.ConsentWait,
	}, a.logger, a.metrics), nil
}

// newRunner assembles the batch runner over prober
func (a *app) newRunner(prober probe.Service) crawl.Service {
	return crawl.NewRunner(prober, a.cfg.BatchSize, a.logger, a.metrics)
}

// newSink opens the results file, the optional Postgres table and, when
// showOutput is set, stdout
func (a *app) newSink(ctx context.Context, showOutput bool) (sink.Service, error) {
	var sinks []sink.Service

	fileSink, err := sink.NewJSONLFileSink(a.cfg.ResultsFile)
	if err != nil {
		return nil, err
	}
	sinks = append(sinks, fileSink)

	if a.cfg.DatabaseURL != "" {
		pgSink, err := sink.NewPostgresSink(ctx, a.cfg.DatabaseURL)
		if err != nil {
			_ = fileSink.Close()
			return nil, err
		}
		sinks = append(sinks, pgSink)
	}

	if showOutput {
		sinks = append(sinks, sink.NewJSONLSink(os.Stdout))
	}

	return sink.NewMulti(sinks...), nil
}

// close releases collaborators in reverse creation order
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
