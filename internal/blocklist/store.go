package blocklist

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ConsentCrawl/internal/cache/blocklistCache"
	"ConsentCrawl/internal/fetcher"
	"ConsentCrawl/internal/logger"
	"ConsentCrawl/internal/metrics"
	"ConsentCrawl/internal/models"
	"ConsentCrawl/internal/parser"

	"golang.org/x/sync/errgroup"
)

const secondsPerDay = 86400

// Store implements the Service interface.
// The active index is swapped as a whole; lookups never see a partial rebuild.
type Store struct {
	fetcher    fetcher.Service
	parser     parser.Service
	cache      blocklistCache.Service
	logger     logger.Service
	metrics    *metrics.Metrics
	maxAgeDays int
	now        func() time.Time

	mu     sync.RWMutex
	active *Index
}

// NewStore creates a new blocklist store
func NewStore(
	fetcher fetcher.Service,
	parser parser.Service,
	cache blocklistCache.Service,
	logger logger.Service,
	metrics *metrics.Metrics,
	maxAgeDays int,
) Service {
	return newStore(fetcher, parser, cache, logger, metrics, maxAgeDays)
}

// newStore creates the concrete implementation
func newStore(
	fetcher fetcher.Service,
	parser parser.Service,
	cache blocklistCache.Service,
	logger logger.Service,
	metrics *metrics.Metrics,
	maxAgeDays int,
) *Store {
	return &Store{
		fetcher:    fetcher,
		parser:     parser,
		cache:      cache,
		logger:     logger,
		metrics:    metrics,
		maxAgeDays: maxAgeDays,
		now:        time.Now,
	}
}

// Load returns the active blocklist index.
// A fresh persisted index is served unchanged unless force is set. Otherwise every
// source is fetched and parsed, the results are merged and persisted. A failed
// rebuild falls back to the persisted index, or fails with models.ErrNoBlocklistData.
func (s *Store) Load(ctx context.Context, sources []models.BlocklistSource, force bool) (*Index, error) {
	start := s.now()

	if err := validateSources(sources); err != nil {
		s.logger.LogError(ctx, logger.OpBlocklistLoad, "", "Invalid blocklist catalog", err, models.LogSeverityHigh, nil)
		return nil, err
	}

	cached := s.readCache(ctx)
	if cached != nil && !force && s.isFresh(cached.LastFetchTime) {
		index := indexFromSnapshot(cached)
		s.activate(index)
		s.metrics.ObserveBlocklistLoad("cache", index.Len(), index.LastFetchTime())
		s.logger.LogSuccess(ctx, logger.OpBlocklistLoad, "", "Using cached blocklist index", map[string]interface{}{
			"domains":         index.Len(),
			"last_fetch_time": index.LastFetchTime(),
		})
		return index, nil
	}

	index, err := s.rebuild(ctx, sources)
	if err != nil {
		if cached == nil {
			s.metrics.ObserveBlocklistLoad("failed", 0, 0)
			s.logger.LogError(ctx, logger.OpBlocklistLoad, "", "Blocklist rebuild failed and no cached index exists", err, models.LogSeverityHigh, nil)
			return nil, fmt.Errorf("%w: %v", models.ErrNoBlocklistData, err)
		}

		index = indexFromSnapshot(cached)
		s.activate(index)
		s.metrics.ObserveBlocklistLoad("fallback", index.Len(), index.LastFetchTime())
		s.logger.LogError(ctx, logger.OpBlocklistLoad, "", "Blocklist rebuild failed, using cached index", err, models.LogSeverityMedium, map[string]interface{}{
			"domains":         index.Len(),
			"last_fetch_time": index.LastFetchTime(),
		})
		return index, nil
	}

	if err := s.cache.Set(ctx, index.Snapshot()); err != nil {
		// The rebuilt index is still served for this run
		s.logger.LogError(ctx, logger.OpBlocklistPersist, "", "Failed to persist blocklist index", err, models.LogSeverityMedium, nil)
	}

	s.activate(index)
	s.metrics.ObserveBlocklistLoad("fetched", index.Len(), index.LastFetchTime())
	s.logger.LogSuccess(ctx, logger.OpBlocklistLoad, "", "Rebuilt blocklist index", map[string]interface{}{
		"sources":     len(sources),
		"domains":     index.Len(),
		"forced":      force,
		"duration_ms": s.now().Sub(start).Milliseconds(),
	})

	return index, nil
}

// Lookup reports whether domain is flagged in the active index
func (s *Store) Lookup(domain string) bool {
	return s.current().Lookup(domain)
}

// SourcesFor returns the source ids that flagged domain in the active index
func (s *Store) SourcesFor(domain string) []string {
	return s.current().SourcesFor(domain)
}

// rebuild fetches every source concurrently; the first failure cancels the rest
func (s *Store) rebuild(ctx context.Context, sources []models.BlocklistSource) (*Index, error) {
	lists := make([][]string, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	for n, source := range sources {
		g.Go(func() error {
			domains, err := s.fetchSource(gctx, source)
			if err != nil {
				return err
			}
			lists[n] = domains
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return merge(sources, lists, s.now().Unix()), nil
}

func (s *Store) fetchSource(ctx context.Context, source models.BlocklistSource) ([]string, error) {
	id := source.SourceID()

	content, err := s.fetcher.FetchText(ctx, source.URL)
	if err != nil {
		s.metrics.ObserveSourceFetch(id, "error")
		// Cancellation caused by a sibling failure is not worth its own entry
		if ctx.Err() == nil {
			s.logger.LogError(ctx, logger.OpBlocklistFetch, id, "Failed to fetch blocklist source", err, models.LogSeverityMedium, map[string]interface{}{
				"url": source.URL,
			})
		}
		return nil, fmt.Errorf("source %s: %w", id, err)
	}

	domains, err := s.parser.Parse(source.Format, content)
	if err != nil {
		s.metrics.ObserveSourceFetch(id, "error")
		return nil, fmt.Errorf("source %s: %w", id, err)
	}

	s.metrics.ObserveSourceFetch(id, "ok")
	s.logger.LogSuccess(ctx, logger.OpBlocklistFetch, id, "Fetched blocklist source", map[string]interface{}{
		"format":  string(source.Format),
		"domains": len(domains),
	})

	return domains, nil
}

// readCache returns the persisted snapshot, or nil when none is usable
func (s *Store) readCache(ctx context.Context) *models.BlocklistSnapshot {
	snapshot, err := s.cache.Get(ctx)
	if err != nil {
		if !errors.Is(err, models.ErrCacheMiss) {
			s.logger.LogError(ctx, logger.OpBlocklistLoad, "", "Failed to read cached blocklist index", err, models.LogSeverityLow, nil)
		}
		return nil
	}
	return snapshot
}

func (s *Store) isFresh(lastFetchTime int64) bool {
	return s.now().Unix()-lastFetchTime <= int64(s.maxAgeDays)*secondsPerDay
}

func (s *Store) activate(index *Index) {
	s.mu.Lock()
	s.active = index
	s.mu.Unlock()
}

func (s *Store) current() *Index {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// validateSources rejects catalogs the store cannot rebuild from
func validateSources(sources []models.BlocklistSource) error {
	if len(sources) == 0 {
		return fmt.Errorf("%w: no blocklist sources configured", models.ErrConfig)
	}

	for n, source := range sources {
		switch source.Format {
		case models.FormatHostfile, models.FormatBlocklist, models.FormatDomains:
		default:
			return fmt.Errorf("%w: blocklist source %d (%s) has unknown format %q", models.ErrConfig, n, source.SourceID(), source.Format)
		}
		if source.SourceID() == "" {
			return fmt.Errorf("%w: blocklist source %d has no id or name", models.ErrConfig, n)
		}
		if source.URL == "" {
			return fmt.Errorf("%w: blocklist source %s has no url", models.ErrConfig, source.SourceID())
		}
	}

	return nil
}
