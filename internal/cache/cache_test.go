package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/background"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/config"
	"github.com/therealutkarshpriyadarshi/shortforge/pkg/models"
)

func setupTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	cache, err := NewCache(config.RedisConfig{Host: mr.Host(), Port: mr.Server().Addr().Port, Prefix: "test"})
	if err != nil {
		mr.Close()
		t.Fatalf("Failed to create cache: %v", err)
	}

	t.Cleanup(func() {
		cache.Close()
		mr.Close()
	})
	return cache, mr
}

func TestNewCache(t *testing.T) {
	cache, _ := setupTestCache(t)
	assert.NoError(t, cache.Ping(context.Background()))
}

func TestNewCache_Unreachable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	port := mr.Server().Addr().Port
	mr.Close()

	_, err = NewCache(config.RedisConfig{Host: "127.0.0.1", Port: port})
	assert.Error(t, err)
}

func TestBackgroundIndex(t *testing.T) {
	cache, mr := setupTestCache(t)
	idx := cache.BackgroundIndex()
	ctx := context.Background()

	miss, err := idx.Get(ctx, "nature/15s")
	require.NoError(t, err)
	assert.Nil(t, miss)

	stored := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for _, key := range []string{"ocean/30s", "nature/15s"} {
		require.NoError(t, idx.Put(ctx, background.Entry{
			Key:      key,
			Asset:    models.BackgroundAsset{Path: "/cache/" + key + ".mp4", Duration: 14, Category: "nature"},
			StoredAt: stored,
		}))
	}
	assert.True(t, mr.Exists("test:bg:entry:nature/15s"))

	got, err := idx.Get(ctx, "nature/15s")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "/cache/nature/15s.mp4", got.Asset.Path)
	assert.True(t, stored.Equal(got.StoredAt))

	entries, err := idx.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "nature/15s", entries[0].Key)
	assert.Equal(t, "ocean/30s", entries[1].Key)

	require.NoError(t, idx.Delete(ctx, "nature/15s"))
	entries, err = idx.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "ocean/30s", entries[0].Key)
}

func TestBackgroundIndex_ListDropsVanishedKeys(t *testing.T) {
	cache, mr := setupTestCache(t)
	idx := cache.BackgroundIndex()
	ctx := context.Background()

	require.NoError(t, idx.Put(ctx, background.Entry{Key: "fire/15s"}))
	mr.Del("test:bg:entry:fire/15s")

	entries, err := idx.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	// the members set empties and redis drops it
	assert.False(t, mr.Exists("test:bg:keys"))
}

func TestBackgroundIndex_WithCache(t *testing.T) {
	// the Redis index drives the same eviction logic as the file index
	cache, _ := setupTestCache(t)
	c := background.NewCache(nil, cache.BackgroundIndex(), nil, background.Options{Dir: t.TempDir()}, nil)

	assert.Nil(t, c.Resolve(context.Background(), "nature", 10))
	entries, err := c.Entries(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRunStatus(t *testing.T) {
	cache, mr := setupTestCache(t)
	ctx := context.Background()

	missing, err := cache.GetRunStatus(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, cache.SetRunStatus(ctx, RunStatus{RunID: "run-1", State: RunQueued}, time.Hour))
	require.NoError(t, cache.SetRunStatus(ctx, RunStatus{RunID: "run-1", State: RunCompleted, VideoPath: "out.mp4"}, time.Hour))

	status, err := cache.GetRunStatus(ctx, "run-1")
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.Equal(t, RunCompleted, status.State)
	assert.Equal(t, "out.mp4", status.VideoPath)
	assert.False(t, status.UpdatedAt.IsZero())

	mr.FastForward(2 * time.Hour)
	expired, err := cache.GetRunStatus(ctx, "run-1")
	require.NoError(t, err)
	assert.Nil(t, expired)
}
