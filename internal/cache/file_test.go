package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ConsentCrawl/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileCache_SetAndGet(t *testing.T) {
	cache, err := newFileCache(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "blocklist:index", []byte("line1\nline2"), time.Hour))

	value, err := cache.Get(ctx, "blocklist:index")
	require.NoError(t, err)
	assert.Equal(t, []byte("line1\nline2"), value)
}

func TestFileCache_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	cache, err := newFileCache(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "key", []byte("v1"), time.Hour))
	require.NoError(t, cache.Set(ctx, "key", []byte("v2"), time.Hour))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "key.cache", entries[0].Name())
}

func TestFileCache_Get_Miss(t *testing.T) {
	cache, err := newFileCache(t.TempDir())
	require.NoError(t, err)

	_, err = cache.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, models.ErrCacheMiss)
}

func TestFileCache_Get_Expired(t *testing.T) {
	cache, err := newFileCache(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	now := time.Now()
	cache.now = func() time.Time { return now }
	require.NoError(t, cache.Set(ctx, "key", []byte("v"), time.Minute))

	cache.now = func() time.Time { return now.Add(time.Hour) }
	_, err = cache.Get(ctx, "key")
	assert.ErrorIs(t, err, models.ErrCacheMiss)
}

func TestFileCache_Get_Corrupt(t *testing.T) {
	dir := t.TempDir()
	cache, err := newFileCache(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "key.cache"), []byte("garbage"), 0o644))

	_, err = cache.Get(context.Background(), "key")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, models.ErrCacheMiss)
}

func TestFileCache_KeyIsSanitized(t *testing.T) {
	dir := t.TempDir()
	cache, err := newFileCache(dir)
	require.NoError(t, err)

	require.NoError(t, cache.Set(context.Background(), "../escape/key", []byte("v"), time.Hour))

	_, err = os.Stat(filepath.Join(dir, "__escape_key.cache"))
	assert.NoError(t, err)
}

func TestFileCache_Delete(t *testing.T) {
	cache, err := newFileCache(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "key", []byte("v"), time.Hour))
	require.NoError(t, cache.Delete(ctx, "key"))
	require.NoError(t, cache.Delete(ctx, "key"))

	_, err = cache.Get(ctx, "key")
	assert.ErrorIs(t, err, models.ErrCacheMiss)
}

func TestNewFileCache_EmptyDir(t *testing.T) {
	cache, err := NewFileCache("")

	assert.Nil(t, cache)
	assert.ErrorIs(t, err, models.ErrConfig)
}
