package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// clientIdleTimeout is how long an idle client limiter is kept
const clientIdleTimeout = 30 * time.Minute

// clientLimiter tracks a single client's limiter and its last activity
type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// TwoTierRateLimiter enforces a global limit and a per-client limit.
// Crawl requests each hold a browser context, so both tiers are small.
type TwoTierRateLimiter struct {
	global      *rate.Limiter
	clients     map[string]*clientLimiter
	mutex       sync.Mutex
	clientRate  rate.Limit
	clientBurst int
	now         func() time.Time
	stop        chan struct{}
	once        sync.Once
}

// NewTwoTierRateLimiter creates a new two-tier rate limiter
func NewTwoTierRateLimiter(globalRate float64, globalBurst int, clientRate float64, clientBurst int) *TwoTierRateLimiter {
	limiter := &TwoTierRateLimiter{
		global:      rate.NewLimiter(rate.Limit(globalRate), globalBurst),
		clients:     make(map[string]*clientLimiter),
		clientRate:  rate.Limit(clientRate),
		clientBurst: clientBurst,
		now:         time.Now,
		stop:        make(chan struct{}),
	}

	go limiter.cleanupClients(10 * time.Minute)

	return limiter
}

// Allow checks the per-client limit first so a throttled client does not drain the global budget
func (trl *TwoTierRateLimiter) Allow(clientIP string) bool {
	now := trl.now()

	client := trl.client(clientIP, now)
	if !client.AllowN(now, 1) {
		return false
	}

	if !trl.global.AllowN(now, 1) {
		return false
	}

	return true
}

// Wait blocks until both tiers admit a request for the given client
func (trl *TwoTierRateLimiter) Wait(ctx context.Context, clientIP string) error {
	if err := trl.client(clientIP, trl.now()).Wait(ctx); err != nil {
		return err
	}
	return trl.global.Wait(ctx)
}

// Close stops the cleanup routine
func (trl *TwoTierRateLimiter) Close() {
	trl.once.Do(func() { close(trl.stop) })
}

// client gets or creates the limiter for the given client
func (trl *TwoTierRateLimiter) client(clientIP string, now time.Time) *rate.Limiter {
	trl.mutex.Lock()
	defer trl.mutex.Unlock()

	entry, ok := trl.clients[clientIP]
	if !ok {
		entry = &clientLimiter{limiter: rate.NewLimiter(trl.clientRate, trl.clientBurst)}
		trl.clients[clientIP] = entry
	}
	entry.lastSeen = now

	return entry.limiter
}

// cleanupClients removes idle client limiters until Close is called
func (trl *TwoTierRateLimiter) cleanupClients(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-trl.stop:
			return
		case <-ticker.C:
			trl.evictIdle()
		}
	}
}

func (trl *TwoTierRateLimiter) evictIdle() {
	cutoff := trl.now().Add(-clientIdleTimeout)

	trl.mutex.Lock()
	defer trl.mutex.Unlock()

	for key, entry := range trl.clients {
		if entry.lastSeen.Before(cutoff) {
			delete(trl.clients, key)
		}
	}
}
