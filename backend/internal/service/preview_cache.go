package service

import (
	"context"
	"sync"
	"time"

	"github.com/itchan-dev/caster/shared/domain"
	"github.com/itchan-dev/caster/shared/logger"
)

type cacheEntry struct {
	preview   *domain.EmbedPreview
	fetchedAt time.Time
}

// MemoryCache keeps scraped previews in process for ttl.
// A nil preview is stored as a hit so dead links are not re-scraped on every request.
type MemoryCache struct {
	entries map[string]cacheEntry
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, url string) (*domain.EmbedPreview, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[url]
	if !ok || c.expired(entry) {
		return nil, false, nil
	}
	return entry.preview, true, nil
}

func (c *MemoryCache) Put(_ context.Context, url string, preview *domain.EmbedPreview) error {
	c.mu.Lock()
	c.entries[url] = cacheEntry{preview: preview, fetchedAt: c.now()}
	c.mu.Unlock()
	return nil
}

// Sweep drops expired entries and returns how many were removed.
func (c *MemoryCache) Sweep(_ context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for url, entry := range c.entries {
		if c.expired(entry) {
			delete(c.entries, url)
			removed++
		}
	}
	return removed, nil
}

func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Ping lets the memory cache stand in for the database in readiness checks.
func (c *MemoryCache) Ping(context.Context) error {
	return nil
}

func (c *MemoryCache) expired(entry cacheEntry) bool {
	return c.now().Sub(entry.fetchedAt) > c.ttl
}

// Sweeper is the part of a cache that can evict expired entries.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// StartSweeper periodically evicts expired previews until ctx is done.
func StartSweeper(ctx context.Context, cache Sweeper, interval time.Duration) {
	log := logger.Component("preview_cache")
	ticker := time.NewTicker(interval)
	log.Info("started preview cache sweeper", "interval", interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				removed, err := cache.Sweep(ctx)
				if err != nil {
					log.Error("sweep failed", "error", err)
					continue
				}
				if removed > 0 {
					cacheEvictions.Add(float64(removed))
					log.Debug("swept expired previews", "removed", removed)
				}
			case <-ctx.Done():
				log.Info("preview cache sweeper shutting down")
				return
			}
		}
	}()
}
