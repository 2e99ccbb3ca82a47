// Package background resolves background clips by category and minimum
// duration through a content-addressed local cache.
package background

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/therealutkarshpriyadarshi/shortforge/internal/logging"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/metrics"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/provider"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/transcoder"
	"github.com/therealutkarshpriyadarshi/shortforge/pkg/models"
)

// ErrClipTooShort is returned when a fetched clip is under the absolute minimum
var ErrClipTooShort = errors.New("clip shorter than minimum")

// Prober measures fetched clips
type Prober interface {
	Inspect(ctx context.Context, path string) (*transcoder.MediaInfo, error)
}

// Mirror is a remote copy of the cache shared between processes
type Mirror interface {
	Upload(ctx context.Context, key, path string) error
	// Download fetches key into path and reports whether it existed
	Download(ctx context.Context, key, path string) (bool, error)
	Delete(ctx context.Context, key string) error
}

// Options tunes the cache
type Options struct {
	Dir             string
	Granularity     int           // bucket width in seconds
	MinClipDuration float64       // clips shorter than this are discarded
	TTL             time.Duration // zero disables expiry
	MaxEntries      int           // zero disables the cap
	FetchTimeout    time.Duration
}

// Cache resolves background assets. Safe for concurrent use.
type Cache struct {
	source provider.BackgroundSource
	index  Index
	prober Prober
	mirror Mirror
	opts   Options
	logger *logging.Logger
	now    func() time.Time
	group  singleflight.Group
}

// NewCache creates a cache. A nil source means every miss resolves to nil.
func NewCache(source provider.BackgroundSource, index Index, prober Prober, opts Options, logger *logging.Logger) *Cache {
	if opts.Granularity <= 0 {
		opts.Granularity = 15
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 90 * time.Second
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Cache{
		source: source,
		index:  index,
		prober: prober,
		opts:   opts,
		logger: logger,
		now:    time.Now,
	}
}

// WithMirror attaches a remote mirror consulted before the source
func (c *Cache) WithMirror(m Mirror) *Cache {
	c.mirror = m
	return c
}

// Bucket rounds minDuration up to the next multiple of granularity
func Bucket(minDuration float64, granularity int) int {
	if granularity <= 0 {
		granularity = 1
	}
	if minDuration <= 0 {
		return granularity
	}
	n := int(math.Ceil(minDuration / float64(granularity)))
	if n < 1 {
		n = 1
	}
	return n * granularity
}

// NormalizeCategory lowercases a category and replaces anything outside [a-z0-9-_]
func NormalizeCategory(category string) string {
	category = strings.ToLower(strings.TrimSpace(category))
	var b strings.Builder
	for _, r := range category {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('-')
		}
	}
	if b.Len() == 0 {
		return "default"
	}
	return b.String()
}

// Key is the content address of a (category, bucket) pair
func Key(category string, bucket int) string {
	return fmt.Sprintf("%s/%ds", NormalizeCategory(category), bucket)
}

// Path returns where the clip for key lives on disk
func (c *Cache) Path(key string) string {
	return filepath.Join(c.opts.Dir, filepath.FromSlash(key)+".mp4")
}

// Resolve returns a cached or freshly fetched asset at least minDuration long
// where possible. It never fails: any fetch problem yields nil and is logged.
func (c *Cache) Resolve(ctx context.Context, category string, minDuration float64) *models.BackgroundAsset {
	category = NormalizeCategory(category)
	bucket := Bucket(minDuration, c.opts.Granularity)
	key := Key(category, bucket)

	if asset := c.lookup(ctx, key); asset != nil {
		metrics.RecordBackgroundLookup("hit")
		c.logger.LogCacheEvent("hit", category, bucket, map[string]interface{}{"path": asset.Path})
		return asset
	}

	ch := c.group.DoChan(key, func() (interface{}, error) {
		// the shared fetch is detached from the first caller's cancellation
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.FetchTimeout)
		defer cancel()

		// another caller may have populated the key while we queued
		if asset := c.lookup(fetchCtx, key); asset != nil {
			return asset, nil
		}
		return c.fill(fetchCtx, key, category, bucket)
	})

	select {
	case <-ctx.Done():
		return nil
	case res := <-ch:
		if res.Err != nil {
			metrics.RecordBackgroundLookup("fetch_failed")
			c.logger.WithError(res.Err).Warnf("background fetch for %s failed, using synthetic background", key)
			return nil
		}
		asset := *res.Val.(*models.BackgroundAsset)
		return &asset
	}
}

// lookup returns the live entry for key, evicting it if expired or missing on disk
func (c *Cache) lookup(ctx context.Context, key string) *models.BackgroundAsset {
	entry, err := c.index.Get(ctx, key)
	if err != nil {
		c.logger.WithError(err).Warnf("background index lookup for %s failed", key)
		return nil
	}
	if entry == nil {
		return nil
	}

	if c.expired(*entry) {
		c.evict(ctx, *entry, "ttl")
		return nil
	}
	if _, err := os.Stat(entry.Asset.Path); err != nil {
		c.evict(ctx, *entry, "missing")
		return nil
	}

	asset := entry.Asset
	return &asset
}

func (c *Cache) expired(e Entry) bool {
	return c.opts.TTL > 0 && c.now().Sub(e.StoredAt) > c.opts.TTL
}

// fill populates key from the mirror or the source
func (c *Cache) fill(ctx context.Context, key, category string, bucket int) (*models.BackgroundAsset, error) {
	path := c.Path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}

	tmp := path + ".download"
	defer os.Remove(tmp)

	var asset *models.BackgroundAsset
	fromMirror := false

	if c.mirror != nil {
		found, err := c.mirror.Download(ctx, key, tmp)
		if err != nil {
			c.logger.WithError(err).Warnf("background mirror download for %s failed", key)
		}
		if found && err == nil {
			fromMirror = true
			asset = &models.BackgroundAsset{Category: category, SourceID: "mirror:" + key}
		}
	}

	if asset == nil {
		metrics.RecordBackgroundLookup("miss")
		c.logger.LogCacheEvent("miss", category, bucket, nil)

		if c.source == nil {
			return nil, fmt.Errorf("%w: no background source configured", provider.ErrProviderUnavailable)
		}

		fetched, err := c.source.Fetch(ctx, category, float64(bucket), tmp)
		if err != nil {
			return nil, provider.Classify(err)
		}
		if fetched == nil {
			return nil, fmt.Errorf("no %s clips available", category)
		}
		asset = fetched
	}

	info, err := c.prober.Inspect(ctx, tmp)
	if err != nil {
		return nil, fmt.Errorf("failed to probe fetched clip: %w", err)
	}
	if !info.HasVideo || info.Width <= 0 || info.Height <= 0 {
		return nil, transcoder.ErrNoVideoStream
	}
	if info.Duration < c.opts.MinClipDuration {
		return nil, fmt.Errorf("%w: %.2fs < %.2fs", ErrClipTooShort, info.Duration, c.opts.MinClipDuration)
	}

	if err := os.Rename(tmp, path); err != nil {
		return nil, fmt.Errorf("failed to store clip: %w", err)
	}

	now := c.now()
	asset.Path = path
	asset.Duration = info.Duration
	asset.Width = info.Width
	asset.Height = info.Height
	asset.Category = category
	if asset.FetchedAt.IsZero() {
		asset.FetchedAt = now
	}

	if err := c.index.Put(ctx, Entry{Key: key, Asset: *asset, StoredAt: now}); err != nil {
		c.logger.WithError(err).Warnf("failed to index background %s", key)
	}

	if c.mirror != nil && !fromMirror {
		if err := c.mirror.Upload(ctx, key, path); err != nil {
			c.logger.WithError(err).Warnf("background mirror upload for %s failed", key)
		}
	}

	if _, err := c.Prune(ctx); err != nil {
		c.logger.WithError(err).Warn("background cache prune failed")
	}

	c.logger.LogCacheEvent("stored", category, bucket, map[string]interface{}{
		"path":     path,
		"duration": asset.Duration,
		"mirror":   fromMirror,
	})
	return asset, nil
}

func (c *Cache) evict(ctx context.Context, e Entry, reason string) {
	if err := c.index.Delete(ctx, e.Key); err != nil {
		c.logger.WithError(err).Warnf("failed to drop background %s from index", e.Key)
		return
	}
	if err := os.Remove(e.Asset.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		c.logger.WithError(err).Warnf("failed to remove background file %s", e.Asset.Path)
	}
	// an expired clip must not come back from the mirror
	if reason == "ttl" && c.mirror != nil {
		if err := c.mirror.Delete(ctx, e.Key); err != nil {
			c.logger.WithError(err).Warnf("failed to drop background %s from mirror", e.Key)
		}
	}
	metrics.RecordBackgroundEviction(reason)
	c.logger.LogCacheEvent("evicted", e.Asset.Category, 0, map[string]interface{}{"key": e.Key, "reason": reason})
}

// Prune removes expired entries, then the oldest entries beyond MaxEntries
func (c *Cache) Prune(ctx context.Context) (int, error) {
	entries, err := c.index.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list background index: %w", err)
	}

	removed := 0
	live := entries[:0]
	for _, e := range entries {
		if c.expired(e) {
			c.evict(ctx, e, "ttl")
			removed++
			continue
		}
		live = append(live, e)
	}

	if c.opts.MaxEntries > 0 && len(live) > c.opts.MaxEntries {
		sort.Slice(live, func(i, j int) bool { return live[i].StoredAt.Before(live[j].StoredAt) })
		excess := len(live) - c.opts.MaxEntries
		for _, e := range live[:excess] {
			c.evict(ctx, e, "capacity")
			removed++
		}
		live = live[excess:]
	}

	metrics.SetBackgroundCacheEntries(len(live))
	return removed, nil
}

// Entries lists the cache index
func (c *Cache) Entries(ctx context.Context) ([]Entry, error) {
	return c.index.List(ctx)
}
