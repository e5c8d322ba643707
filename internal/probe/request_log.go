package probe

import "sync"

// requestLog collects the URLs a page requests. Callbacks arrive from the
// browser's event goroutine while the probe reads snapshots.
type requestLog struct {
	mu   sync.Mutex
	urls []string
}

func (l *requestLog) add(url string) {
	l.mu.Lock()
	l.urls = append(l.urls, url)
	l.mu.Unlock()
}

// snapshot returns every URL recorded so far
func (l *requestLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.urls...)
}
