// Package cache keeps shared state in Redis: the background clip index and
// the status of queued runs.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/background"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/config"
)

// Cache provides shared state using Redis
type Cache struct {
	client *redis.Client
	prefix string
}

// NewCache creates a new cache instance
func NewCache(cfg config.RedisConfig) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "shortforge"
	}
	return &Cache{client: client, prefix: prefix}, nil
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}

// Ping checks the connection
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Cache) key(parts ...string) string {
	k := c.prefix
	for _, p := range parts {
		k += ":" + p
	}
	return k
}

// Background index operations

// BackgroundIndex returns a background.Index stored in this Redis instance,
// shared by every process pointing at it
func (c *Cache) BackgroundIndex() *BackgroundIndex {
	return &BackgroundIndex{cache: c}
}

// BackgroundIndex implements background.Index with one JSON value per key
// plus a set of known keys for listing
type BackgroundIndex struct {
	cache *Cache
}

var _ background.Index = (*BackgroundIndex)(nil)

func (b *BackgroundIndex) entryKey(key string) string {
	return b.cache.key("bg", "entry", key)
}

func (b *BackgroundIndex) membersKey() string {
	return b.cache.key("bg", "keys")
}

// Get returns the entry for key, or nil on a miss
func (b *BackgroundIndex) Get(ctx context.Context, key string) (*background.Entry, error) {
	data, err := b.cache.client.Get(ctx, b.entryKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get background entry: %w", err)
	}

	var entry background.Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal background entry: %w", err)
	}
	return &entry, nil
}

// Put stores entry and records its key
func (b *BackgroundIndex) Put(ctx context.Context, entry background.Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal background entry: %w", err)
	}

	pipe := b.cache.client.TxPipeline()
	pipe.Set(ctx, b.entryKey(entry.Key), data, 0)
	pipe.SAdd(ctx, b.membersKey(), entry.Key)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store background entry: %w", err)
	}
	return nil
}

// Delete removes key
func (b *BackgroundIndex) Delete(ctx context.Context, key string) error {
	pipe := b.cache.client.TxPipeline()
	pipe.Del(ctx, b.entryKey(key))
	pipe.SRem(ctx, b.membersKey(), key)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete background entry: %w", err)
	}
	return nil
}

// List returns every entry sorted by key. Keys whose value vanished are dropped.
func (b *BackgroundIndex) List(ctx context.Context) ([]background.Entry, error) {
	keys, err := b.cache.client.SMembers(ctx, b.membersKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list background keys: %w", err)
	}
	sort.Strings(keys)

	entries := make([]background.Entry, 0, len(keys))
	for _, key := range keys {
		entry, err := b.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if entry == nil {
			b.cache.client.SRem(ctx, b.membersKey(), key)
			continue
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}

// Run status operations

// RunStatus is the last known state of a queued run
type RunStatus struct {
	RunID     string    `json:"run_id"`
	State     string    `json:"state"`
	RecordID  string    `json:"record_id,omitempty"`
	VideoPath string    `json:"video_path,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Run states
const (
	RunQueued    = "queued"
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// SetRunStatus caches the state of a run
func (c *Cache) SetRunStatus(ctx context.Context, status RunStatus, ttl time.Duration) error {
	if status.UpdatedAt.IsZero() {
		status.UpdatedAt = time.Now()
	}
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to marshal run status: %w", err)
	}
	return c.client.Set(ctx, c.key("run", status.RunID), data, ttl).Err()
}

// GetRunStatus retrieves the state of a run, nil when unknown
func (c *Cache) GetRunStatus(ctx context.Context, runID string) (*RunStatus, error) {
	data, err := c.client.Get(ctx, c.key("run", runID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run status: %w", err)
	}

	var status RunStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run status: %w", err)
	}
	return &status, nil
}
