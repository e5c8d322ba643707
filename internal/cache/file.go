package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"ConsentCrawl/internal/models"
)

// FileCache implements Service on a local directory, one file per key.
// Writes go to a temporary file that is renamed over the previous value.
type FileCache struct {
	dir string
	now func() time.Time
}

var keyReplacer = strings.NewReplacer("/", "_", "\\", "_", ":", "_", "..", "_")

// NewFileCache creates a file-backed cache rooted at dir
func NewFileCache(dir string) (Service, error) {
	return newFileCache(dir)
}

// newFileCache creates the concrete implementation
func newFileCache(dir string) (*FileCache, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: cache directory is required", models.ErrConfig)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	return &FileCache{
		dir: dir,
		now: time.Now,
	}, nil
}

// Get reads the value stored under key.
// Entries are stored as "<expiry unix nanos>\n<value>".
func (f *FileCache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, models.ErrCacheMiss
		}
		return nil, fmt.Errorf("file cache read failed: %w", err)
	}

	header, value, found := bytes.Cut(data, []byte("\n"))
	if !found {
		return nil, fmt.Errorf("file cache entry %q is corrupt", key)
	}

	expiresAt, err := strconv.ParseInt(string(header), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("file cache entry %q has invalid expiry: %w", key, err)
	}
	if f.now().UnixNano() > expiresAt {
		return nil, models.ErrCacheMiss
	}

	return value, nil
}

// Set writes value under key with the specified TTL
func (f *FileCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("TTL must be positive, got: %v", ttl)
	}

	tmp, err := os.CreateTemp(f.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("file cache temp create failed: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	header := strconv.FormatInt(f.now().Add(ttl).UnixNano(), 10) + "\n"
	if _, err := tmp.WriteString(header); err != nil {
		tmp.Close()
		return fmt.Errorf("file cache write failed: %w", err)
	}
	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return fmt.Errorf("file cache write failed: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("file cache sync failed: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("file cache close failed: %w", err)
	}

	if err := os.Rename(tmpName, f.path(key)); err != nil {
		return fmt.Errorf("file cache commit failed: %w", err)
	}
	return nil
}

// Delete removes the entry stored under key
func (f *FileCache) Delete(ctx context.Context, key string) error {
	if err := os.Remove(f.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("file cache delete failed: %w", err)
	}
	return nil
}

// Close is a no-op for the file cache
func (f *FileCache) Close() error {
	return nil
}

func (f *FileCache) path(key string) string {
	return filepath.Join(f.dir, keyReplacer.Replace(key)+".cache")
}
