package cache

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mtsk-dev/snapframe/internal/domain/model"
	"github.com/mtsk-dev/snapframe/internal/domain/repository"
	"github.com/mtsk-dev/snapframe/internal/infrastructure/metrics"
	"github.com/mtsk-dev/snapframe/internal/worker"
)

const (
	// DefaultScreenshotCapacity bounds the in-memory blob tier.
	DefaultScreenshotCapacity = 100
	// DefaultMetadataCapacity bounds the in-memory metadata tier.
	DefaultMetadataCapacity = 50
)

// submitter schedules background durable writes. Satisfied by *worker.Pool.
type submitter interface {
	Submit(task worker.Task) bool
}

// Stats is a point-in-time snapshot of cache effectiveness counters.
// Hits counts both memory and durable hits; MemoryHits + DurableHits == Hits.
type Stats struct {
	Hits        int64 `json:"hits"`
	Misses      int64 `json:"misses"`
	MemoryHits  int64 `json:"memory_hits"`
	DurableHits int64 `json:"durable_hits"`

	MemoryScreenshots int `json:"memory_screenshots"`
	MemoryMetadata    int `json:"memory_metadata"`
}

// MultiLevelCache layers a bounded in-memory tier over a durable store.
// Reads check memory first and fall back to the store, re-populating
// memory on a durable hit. Writes land in memory synchronously and are
// flushed to the store by a background worker pool.
//
// The cache owns its entries: data is copied on insert and on return,
// so callers may reuse or mutate their slices without corrupting cached
// or durably written bytes.
type MultiLevelCache struct {
	screenshots *lru.Cache[string, []byte]
	metadata    *metadataTier
	store       repository.ScreenshotStore
	pool        submitter

	hits        atomic.Int64
	misses      atomic.Int64
	memoryHits  atomic.Int64
	durableHits atomic.Int64
}

// Config holds capacities for the in-memory tiers.
type Config struct {
	ScreenshotCapacity int
	MetadataCapacity   int
}

// NewMultiLevelCache creates the cache over the given durable store.
// pool may be a *worker.Pool; durable write-backs are fire-and-forget.
func NewMultiLevelCache(store repository.ScreenshotStore, pool submitter, cfg Config) (*MultiLevelCache, error) {
	if cfg.ScreenshotCapacity <= 0 {
		cfg.ScreenshotCapacity = DefaultScreenshotCapacity
	}
	if cfg.MetadataCapacity <= 0 {
		cfg.MetadataCapacity = DefaultMetadataCapacity
	}

	screenshots, err := lru.New[string, []byte](cfg.ScreenshotCapacity)
	if err != nil {
		return nil, err
	}

	return &MultiLevelCache{
		screenshots: screenshots,
		metadata:    newMetadataTier(cfg.MetadataCapacity),
		store:       store,
		pool:        pool,
	}, nil
}

// GetScreenshot returns the PNG for the key, or nil, nil on a total miss.
// A durable hit re-populates the memory tier before returning.
func (c *MultiLevelCache) GetScreenshot(ctx context.Context, key model.CacheKey) ([]byte, error) {
	if data, ok := c.screenshots.Get(key.String()); ok {
		c.hits.Add(1)
		c.memoryHits.Add(1)
		metrics.CacheLookupsTotal.WithLabelValues(metrics.TierMemory, metrics.KindScreenshot).Inc()
		return cloneBytes(data), nil
	}

	data, err := c.store.GetScreenshot(ctx, key)
	if err != nil {
		return nil, err
	}
	if data != nil {
		c.screenshots.Add(key.String(), cloneBytes(data))
		c.hits.Add(1)
		c.durableHits.Add(1)
		metrics.CacheLookupsTotal.WithLabelValues(metrics.TierDurable, metrics.KindScreenshot).Inc()
		return data, nil
	}

	c.misses.Add(1)
	metrics.CacheLookupsTotal.WithLabelValues(metrics.TierNone, metrics.KindScreenshot).Inc()
	return nil, nil
}

// StoreScreenshot inserts into memory synchronously and schedules the
// durable write in the background. Durable failures are logged only.
func (c *MultiLevelCache) StoreScreenshot(key model.CacheKey, data []byte) {
	owned := cloneBytes(data)
	c.screenshots.Add(key.String(), owned)

	c.pool.Submit(func(ctx context.Context) {
		if err := c.store.PutScreenshot(ctx, key, owned); err != nil {
			slog.Warn("durable screenshot write failed",
				"key", key.String(),
				"error", err,
			)
		}
	})
}

// GetCachedMetadata returns the descriptor list for the key, with the
// same tiering and counter semantics as GetScreenshot.
func (c *MultiLevelCache) GetCachedMetadata(ctx context.Context, key model.MetadataKey) ([]model.Screenshot, error) {
	if records, ok := c.metadata.get(key.String()); ok {
		c.hits.Add(1)
		c.memoryHits.Add(1)
		metrics.CacheLookupsTotal.WithLabelValues(metrics.TierMemory, metrics.KindMetadata).Inc()
		return cloneRecords(records), nil
	}

	records, err := c.store.GetMetadata(ctx, key)
	if err != nil {
		return nil, err
	}
	if records != nil {
		c.metadata.set(key.String(), cloneRecords(records))
		c.hits.Add(1)
		c.durableHits.Add(1)
		metrics.CacheLookupsTotal.WithLabelValues(metrics.TierDurable, metrics.KindMetadata).Inc()
		return records, nil
	}

	c.misses.Add(1)
	metrics.CacheLookupsTotal.WithLabelValues(metrics.TierNone, metrics.KindMetadata).Inc()
	return nil, nil
}

// StoreMetadata inserts into memory synchronously and schedules the
// durable write in the background.
func (c *MultiLevelCache) StoreMetadata(key model.MetadataKey, records []model.Screenshot) {
	owned := cloneRecords(records)
	c.metadata.set(key.String(), owned)

	c.pool.Submit(func(ctx context.Context) {
		if err := c.store.PutMetadata(ctx, key, owned); err != nil {
			slog.Warn("durable metadata write failed",
				"key", key.String(),
				"error", err,
			)
		}
	})
}

// Stats returns a snapshot of the counters and memory-tier occupancy.
func (c *MultiLevelCache) Stats() Stats {
	return Stats{
		Hits:              c.hits.Load(),
		Misses:            c.misses.Load(),
		MemoryHits:        c.memoryHits.Load(),
		DurableHits:       c.durableHits.Load(),
		MemoryScreenshots: c.screenshots.Len(),
		MemoryMetadata:    c.metadata.len(),
	}
}

// cloneBytes copies a blob so the cache and its callers never share a
// backing array.
func cloneBytes(data []byte) []byte {
	return append([]byte(nil), data...)
}

func cloneRecords(records []model.Screenshot) []model.Screenshot {
	return append([]model.Screenshot(nil), records...)
}

// metadataTier is a bounded map with insertion-order eviction. Unlike the
// blob tier this is deliberately not LRU: reads and updates do not refresh
// an entry's position, so the oldest insertion is always evicted first.
type metadataTier struct {
	mu       sync.Mutex
	capacity int
	entries  map[string][]model.Screenshot
	order    []string
}

func newMetadataTier(capacity int) *metadataTier {
	return &metadataTier{
		capacity: capacity,
		entries:  make(map[string][]model.Screenshot, capacity),
	}
}

func (t *metadataTier) get(key string) ([]model.Screenshot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	records, ok := t.entries[key]
	return records, ok
}

func (t *metadataTier) set(key string, records []model.Screenshot) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.entries[key]; exists {
		// Update in place, keeping the original queue position.
		t.entries[key] = records
		return
	}

	if len(t.order) >= t.capacity {
		oldest := t.order[0]
		t.order = t.order[1:]
		delete(t.entries, oldest)
	}

	t.entries[key] = records
	t.order = append(t.order, key)
}

func (t *metadataTier) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
