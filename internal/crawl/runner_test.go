package crawl

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ConsentCrawl/internal/mocks"
	"ConsentCrawl/internal/models"
	"ConsentCrawl/internal/sink"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func record(url string, status models.SiteStatus) *models.SiteRecord {
	return &models.SiteRecord{URL: url, Status: status}
}

func urlList(n int) []string {
	urls := make([]string, n)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://site%d.example", i)
	}
	return urls
}

// windowSink records the size of every window it receives
type windowSink struct {
	sizes []int
	urls  []string
	err   error
}

func (w *windowSink) Write(ctx context.Context, records []*models.SiteRecord) error {
	if w.err != nil {
		return w.err
	}
	w.sizes = append(w.sizes, len(records))
	for _, r := range records {
		w.urls = append(w.urls, r.URL)
	}
	return nil
}

func (w *windowSink) Close() error { return nil }

// blockingProber counts concurrent probes and holds each one until released
type blockingProber struct {
	active  int32
	peak    int32
	release chan struct{}
}

func (b *blockingProber) Probe(ctx context.Context, url string) *models.SiteRecord {
	n := atomic.AddInt32(&b.active, 1)
	for {
		peak := atomic.LoadInt32(&b.peak)
		if n <= peak || atomic.CompareAndSwapInt32(&b.peak, peak, n) {
			break
		}
	}
	<-b.release
	atomic.AddInt32(&b.active, -1)
	return record(url, models.SiteStatusSuccess)
}

func TestWindows(t *testing.T) {
	tests := []struct {
		name     string
		count    int
		size     int
		expected []int
	}{
		{"empty", 0, 15, []int{}},
		{"single partial", 3, 15, []int{3}},
		{"exact", 30, 15, []int{15, 15}},
		{"remainder", 31, 15, []int{15, 15, 1}},
		{"zero size uses default", 16, 0, []int{15, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			windows := Windows(urlList(tt.count), tt.size)

			sizes := make([]int, 0, len(windows))
			for _, w := range windows {
				sizes = append(sizes, len(w))
			}
			assert.Equal(t, tt.expected, sizes)
		})
	}
}

func TestRunner_Run_WindowsAndSummary(t *testing.T) {
	urls := urlList(31)
	prober := &mocks.MockProber{}
	for i, url := range urls {
		status := models.SiteStatusSuccess
		if i%10 == 0 {
			status = models.SiteStatusError
		}
		prober.On("Probe", mock.Anything, url).Return(record(url, status)).Once()
	}

	out := &windowSink{}
	runner := NewRunner(prober, 15, mocks.NewPermissiveLogger(), nil)

	summary, err := runner.Run(context.Background(), urls, out)

	require.NoError(t, err)
	assert.Equal(t, []int{15, 15, 1}, out.sizes)
	assert.Equal(t, urls, out.urls)
	assert.Equal(t, models.RunSummary{Total: 31, Succeeded: 27, Failed: 4, Windows: 3}, summary)
	prober.AssertExpectations(t)
}

func TestRunner_Run_EmptyInput(t *testing.T) {
	prober := &mocks.MockProber{}
	out := &windowSink{}
	runner := NewRunner(prober, 15, mocks.NewPermissiveLogger(), nil)

	summary, err := runner.Run(context.Background(), nil, out)

	require.NoError(t, err)
	assert.Empty(t, out.sizes)
	assert.Equal(t, models.RunSummary{}, summary)
	prober.AssertNotCalled(t, "Probe", mock.Anything, mock.Anything)
}

func TestRunner_Run_WindowProbesRunConcurrently(t *testing.T) {
	prober := &blockingProber{release: make(chan struct{})}
	runner := newRunner(prober, 4, mocks.NewPermissiveLogger(), nil)
	collector := sink.NewCollector()

	done := make(chan error, 1)
	go func() {
		_, err := runner.Run(context.Background(), urlList(6), collector)
		done <- err
	}()

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&prober.active) == 4
	}, 2*time.Second, 5*time.Millisecond)

	// The second window must not start while the first is still running
	assert.Empty(t, collector.Records())
	close(prober.release)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("run did not finish")
	}

	assert.Equal(t, int32(4), atomic.LoadInt32(&prober.peak))
	assert.Len(t, collector.Records(), 6)
}

func TestRunner_Run_SinkFailureAborts(t *testing.T) {
	prober := &mocks.MockProber{}
	prober.On("Probe", mock.Anything, mock.Anything).Return(record("https://a.example", models.SiteStatusSuccess))

	out := &windowSink{err: errors.New("disk full")}
	runner := NewRunner(prober, 2, mocks.NewPermissiveLogger(), nil)

	summary, err := runner.Run(context.Background(), urlList(5), out)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, 0, summary.Windows)
	// Only the first window was probed
	prober.AssertNumberOfCalls(t, "Probe", 2)
}

func TestRunner_Run_CancelledBeforeStart(t *testing.T) {
	prober := &mocks.MockProber{}
	runner := NewRunner(prober, 2, mocks.NewPermissiveLogger(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runner.Run(ctx, urlList(3), &windowSink{})

	assert.ErrorIs(t, err, context.Canceled)
	prober.AssertNotCalled(t, "Probe", mock.Anything, mock.Anything)
}

func TestRunner_RunWindow_KeepsInputOrder(t *testing.T) {
	var mu sync.Mutex
	var order []string
	prober := &mocks.MockProber{}
	urls := urlList(5)
	for i, url := range urls {
		delay := time.Duration(len(urls)-i) * 5 * time.Millisecond
		prober.On("Probe", mock.Anything, url).
			Run(func(args mock.Arguments) {
				time.Sleep(delay)
				mu.Lock()
				order = append(order, args.String(1))
				mu.Unlock()
			}).
			Return(record(url, models.SiteStatusSuccess))
	}

	runner := newRunner(prober, 5, mocks.NewPermissiveLogger(), nil)

	records := runner.runWindow(context.Background(), urls)

	require.Len(t, records, 5)
	for i, r := range records {
		assert.Equal(t, urls[i], r.URL)
	}
	assert.Len(t, order, 5)
}

func TestNewRunner_DefaultBatchSize(t *testing.T) {
	runner := newRunner(&mocks.MockProber{}, 0, mocks.NewPermissiveLogger(), nil)
	assert.Equal(t, DefaultBatchSize, runner.batchSize)
}
