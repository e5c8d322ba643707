package crawl

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ConsentCrawl/internal/logger"
	"ConsentCrawl/internal/metrics"
	"ConsentCrawl/internal/models"
	"ConsentCrawl/internal/probe"
	"ConsentCrawl/internal/sink"
)

// DefaultBatchSize is the number of concurrent probes per window
const DefaultBatchSize = 15

// Runner implements the Service interface.
// All probes of a window run concurrently; the next window starts only after
// the previous one has been written to the sink.
type Runner struct {
	prober    probe.Service
	batchSize int
	logger    logger.Service
	metrics   *metrics.Metrics
}

// NewRunner creates a new batch runner
func NewRunner(prober probe.Service, batchSize int, logger logger.Service, metrics *metrics.Metrics) Service {
	return newRunner(prober, batchSize, logger, metrics)
}

// newRunner creates the concrete implementation
func newRunner(prober probe.Service, batchSize int, logger logger.Service, metrics *metrics.Metrics) *Runner {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Runner{
		prober:    prober,
		batchSize: batchSize,
		logger:    logger,
		metrics:   metrics,
	}
}

// Run probes urls in fixed windows. A sink failure aborts the run; the summary
// covers the windows written before it.
func (r *Runner) Run(ctx context.Context, urls []string, out sink.Service) (models.RunSummary, error) {
	start := time.Now()
	var summary models.RunSummary

	r.logger.LogInfo(ctx, logger.OpBatchRun, fmt.Sprintf("Starting crawl of %d URLs", len(urls)), map[string]interface{}{
		"urls_count": len(urls),
		"batch_size": r.batchSize,
	})

	for n, window := range Windows(urls, r.batchSize) {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		windowStart := time.Now()
		records := r.runWindow(ctx, window)

		if err := out.Write(ctx, records); err != nil {
			r.logger.LogError(ctx, logger.OpSinkWrite, "", "Failed to store batch window", err, models.LogSeverityHigh, map[string]interface{}{
				"window": n,
				"size":   len(records),
			})
			return summary, fmt.Errorf("storing window %d: %w", n, err)
		}

		summary.Windows++
		for _, record := range records {
			summary.Total++
			if record.Status == models.SiteStatusSuccess {
				summary.Succeeded++
			} else {
				summary.Failed++
			}
		}
		r.metrics.ObserveWindow()

		r.logger.LogSuccess(ctx, logger.OpBatchWindow, "", fmt.Sprintf("Retrieved batch of %d URLs", len(records)), map[string]interface{}{
			"window":      n,
			"duration_ms": time.Since(windowStart).Milliseconds(),
		})
	}

	r.logger.LogSuccess(ctx, logger.OpBatchRun, "", "Completed crawl", map[string]interface{}{
		"total":       summary.Total,
		"succeeded":   summary.Succeeded,
		"failed":      summary.Failed,
		"windows":     summary.Windows,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	return summary, nil
}

// runWindow probes every URL of window concurrently; records keep the input order
func (r *Runner) runWindow(ctx context.Context, window []string) []*models.SiteRecord {
	records := make([]*models.SiteRecord, len(window))

	var wg sync.WaitGroup
	for n, url := range window {
		wg.Add(1)
		go func() {
			defer wg.Done()
			records[n] = r.prober.Probe(ctx, url)
		}()
	}
	wg.Wait()

	return records
}

// Windows splits urls into consecutive slices of at most size elements
func Windows(urls []string, size int) [][]string {
	if size <= 0 {
		size = DefaultBatchSize
	}

	windows := make([][]string, 0, (len(urls)+size-1)/size)
	for start := 0; start < len(urls); start += size {
		end := min(start+size, len(urls))
		windows = append(windows, urls[start:end])
	}
	return windows
}
