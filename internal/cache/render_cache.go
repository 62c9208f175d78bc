// Package cache keeps recently encoded chart frames in memory.
//
// PNG encoding dominates the cost of an overlay image, and clients tend to
// re-request the same inputs, so frames are cached by their normalized query
// for a short TTL. Entries are keyed by dataset version as well, so a dataset
// reload never serves a frame drawn from the old curves.
package cache

import (
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/Paulumo/System-Remaster-sub001/internal/chart"
	"github.com/Paulumo/System-Remaster-sub001/internal/metrics"
)

// Config holds cache configuration loaded from environment variables.
type Config struct {
	TTL        time.Duration // Entry lifetime (default: 300s)
	MaxEntries int           // Frames kept at most; 0 means unbounded
}

// RenderCache is a TTL cache of encoded frames.
// Safe for concurrent use by multiple goroutines.
type RenderCache struct {
	frames *gocache.Cache
	config Config
	logger *slog.Logger

	// Counters (lock-free).
	hits   atomic.Int64
	misses atomic.Int64
	skips  atomic.Int64
}

// NewRenderCache creates a render cache. Expired entries are swept every TTL.
func NewRenderCache(config Config, logger *slog.Logger) *RenderCache {
	logger.Info("render cache initialized",
		"ttl_seconds", config.TTL.Seconds(),
		"max_entries", config.MaxEntries,
	)
	c := &RenderCache{
		frames: gocache.New(config.TTL, config.TTL),
		config: config,
		logger: logger,
	}
	c.frames.OnEvicted(func(string, interface{}) {
		metrics.SetRenderCacheEntries(c.frames.ItemCount())
	})
	return c
}

// Key builds the cache key for q rendered from the dataset identified by
// version. Every field that changes the image takes part in the key.
func Key(version string, q chart.OverlayQuery) string {
	var b strings.Builder
	b.WriteString(version)
	b.WriteByte('|')
	b.WriteString(strconv.FormatFloat(q.OAT, 'g', -1, 64))
	b.WriteByte('|')
	b.WriteString(strconv.FormatFloat(q.AltitudeFt, 'g', -1, 64))
	b.WriteByte('|')
	writeOptional(&b, q.WindSpeed)
	b.WriteByte('|')
	writeOptional(&b, q.BenefitPercent)
	b.WriteByte('|')
	b.WriteString(string(q.Unit))
	return b.String()
}

func writeOptional(b *strings.Builder, v *float64) {
	if v == nil {
		b.WriteByte('-')
		return
	}
	b.WriteString(strconv.FormatFloat(*v, 'g', -1, 64))
}

// Get returns the frame stored under key.
func (c *RenderCache) Get(key string) ([]byte, bool) {
	v, ok := c.frames.Get(key)
	if ok {
		c.hits.Add(1)
		metrics.IncRenderCacheHits()
		return v.([]byte), true
	}
	c.misses.Add(1)
	metrics.IncRenderCacheMisses()
	return nil, false
}

// Set stores a frame under key. When the cache is full the frame is dropped.
func (c *RenderCache) Set(key string, frame []byte) {
	if c.config.MaxEntries > 0 && c.frames.ItemCount() >= c.config.MaxEntries {
		c.skips.Add(1)
		c.logger.Debug("render cache full, frame not stored", "entries", c.frames.ItemCount())
		return
	}
	c.frames.SetDefault(key, frame)
	metrics.SetRenderCacheEntries(c.frames.ItemCount())
}

// GetOrRender returns the cached frame for key or calls render and caches
// its result. hit reports whether the cache answered.
func (c *RenderCache) GetOrRender(key string, render func() ([]byte, error)) (frame []byte, hit bool, err error) {
	if frame, ok := c.Get(key); ok {
		return frame, true, nil
	}
	frame, err = render()
	if err != nil {
		return nil, false, err
	}
	c.Set(key, frame)
	return frame, false, nil
}

// Flush drops every entry.
func (c *RenderCache) Flush() {
	c.frames.Flush()
	metrics.SetRenderCacheEntries(0)
	c.logger.Info("render cache flushed")
}

// Stats returns current cache statistics.
func (c *RenderCache) Stats() Stats {
	return Stats{
		Entries: c.frames.ItemCount(),
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Skipped: c.skips.Load(),
	}
}

// Stats holds cache statistics for the stats endpoint.
type Stats struct {
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Skipped int64 `json:"skipped"`
}
