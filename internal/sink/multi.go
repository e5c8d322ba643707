package sink

import (
	"context"
	"errors"
	"sync"

	"ConsentCrawl/internal/models"
)

// Multi fans every window out to each sink in order; the first failure stops the fan-out
type Multi struct {
	sinks []Service
}

// NewMulti combines sinks
func NewMulti(sinks ...Service) Service {
	return &Multi{sinks: sinks}
}

func (m *Multi) Write(ctx context.Context, records []*models.SiteRecord) error {
	for _, s := range m.sinks {
		if err := s.Write(ctx, records); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every sink and joins their errors
func (m *Multi) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Collector keeps every written record in memory
type Collector struct {
	mu      sync.Mutex
	records []*models.SiteRecord
}

// NewCollector creates an empty collector
func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) Write(ctx context.Context, records []*models.SiteRecord) error {
	c.mu.Lock()
	c.records = append(c.records, records...)
	c.mu.Unlock()
	return nil
}

// Records returns the records written so far, in write order
func (c *Collector) Records() []*models.SiteRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*models.SiteRecord(nil), c.records...)
}

func (c *Collector) Close() error {
	return nil
}
