package cache

import (
	"sync"
	"time"

	"github.com/mtsk-dev/snapframe/internal/domain/model"
)

const (
	// DefaultStreamTTL is how long a resolved stream set stays usable.
	// Stream URLs carry upstream expiry tokens, so this is deliberately
	// much shorter than the screenshot TTL.
	DefaultStreamTTL = 30 * time.Minute
	// DefaultStreamCapacity bounds the number of cached videos.
	DefaultStreamCapacity = 50
)

type streamEntry struct {
	streams model.StreamMap
	created time.Time
}

// StreamCache holds resolved stream URLs per video for a short TTL.
// At capacity it evicts the entry with the oldest creation time.
type StreamCache struct {
	mu       sync.Mutex
	entries  map[string]streamEntry
	capacity int
	ttl      time.Duration

	now func() time.Time
}

// NewStreamCache creates a stream cache. Zero values select the defaults.
func NewStreamCache(capacity int, ttl time.Duration) *StreamCache {
	if capacity <= 0 {
		capacity = DefaultStreamCapacity
	}
	if ttl <= 0 {
		ttl = DefaultStreamTTL
	}
	return &StreamCache{
		entries:  make(map[string]streamEntry, capacity),
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Get returns the cached streams for a video, or nil, false when absent
// or expired. Expired entries are removed on read. The returned map is a
// copy; mutating it does not affect the cached entry.
func (c *StreamCache) Get(videoID string) (model.StreamMap, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[videoID]
	if !ok {
		return nil, false
	}
	if c.now().Sub(entry.created) >= c.ttl {
		delete(c.entries, videoID)
		return nil, false
	}
	return cloneStreams(entry.streams), true
}

// Put stores resolved streams for a video. At capacity the entry with the
// globally oldest creation time is evicted first.
func (c *StreamCache) Put(videoID string, streams model.StreamMap) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[videoID]; !exists && len(c.entries) >= c.capacity {
		c.evictOldestLocked()
	}

	c.entries[videoID] = streamEntry{
		streams: cloneStreams(streams),
		created: c.now(),
	}
}

// Len returns the number of cached videos, expired entries included.
func (c *StreamCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func cloneStreams(streams model.StreamMap) model.StreamMap {
	cloned := make(model.StreamMap, len(streams))
	for quality, stream := range streams {
		cloned[quality] = stream
	}
	return cloned
}

func (c *StreamCache) evictOldestLocked() {
	var oldestID string
	var oldestAt time.Time
	first := true
	for id, entry := range c.entries {
		if first || entry.created.Before(oldestAt) {
			oldestID = id
			oldestAt = entry.created
			first = false
		}
	}
	if oldestID != "" {
		delete(c.entries, oldestID)
	}
}
