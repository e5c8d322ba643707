package blocklistCache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ConsentCrawl/internal/cache"
	"ConsentCrawl/internal/models"
)

const snapshotKey = "blocklist:snapshot"

// blocklistCache implements Service on top of a generic byte cache.
// The snapshot lives under a single key so a Set replaces it as a whole.
type blocklistCache struct {
	cache     cache.Service
	retention time.Duration
}

// New creates a new blocklist snapshot cache
func New(cache cache.Service, retention time.Duration) Service {
	if retention <= 0 {
		retention = 90 * 24 * time.Hour
	}
	return &blocklistCache{
		cache:     cache,
		retention: retention,
	}
}

// Get retrieves the persisted snapshot; a missing snapshot returns models.ErrCacheMiss
func (b *blocklistCache) Get(ctx context.Context) (*models.BlocklistSnapshot, error) {
	data, err := b.cache.Get(ctx, snapshotKey)
	if err != nil {
		return nil, err
	}

	var snapshot models.BlocklistSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached blocklist snapshot: %w", err)
	}
	if snapshot.Entries == nil {
		snapshot.Entries = make(map[string][]string)
	}

	return &snapshot, nil
}

// Set persists the snapshot, replacing whatever was stored before
func (b *blocklistCache) Set(ctx context.Context, snapshot *models.BlocklistSnapshot) error {
	if snapshot == nil {
		return fmt.Errorf("snapshot is required")
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal blocklist snapshot: %w", err)
	}

	return b.cache.Set(ctx, snapshotKey, data, b.retention)
}

// Delete removes the persisted snapshot
func (b *blocklistCache) Delete(ctx context.Context) error {
	return b.cache.Delete(ctx, snapshotKey)
}
