package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mtsk-dev/snapframe/internal/domain/model"
	"github.com/mtsk-dev/snapframe/internal/domain/repository"
)

// RedisStore implements repository.ScreenshotStore on a Redis server.
// Expiry is delegated to Redis key TTLs, so reads never observe a stale
// entry and PurgeExpired has nothing to do.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

var _ repository.ScreenshotStore = (*RedisStore)(nil)

// NewRedisStore creates a new Redis-backed store.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{
		client: client,
		ttl:    ttl,
	}
}

func (s *RedisStore) screenshotKey(key model.CacheKey) string {
	return screenshotPrefix + ":" + screenshotObjectName(key)
}

func (s *RedisStore) metadataKey(key model.MetadataKey) string {
	return metadataPrefix + ":" + metadataObjectName(key)
}

// PutScreenshot stores the blob with the configured TTL.
func (s *RedisStore) PutScreenshot(ctx context.Context, key model.CacheKey, data []byte) error {
	if err := s.client.Set(ctx, s.screenshotKey(key), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set screenshot: %w", err)
	}
	return nil
}

// GetScreenshot returns the blob or nil, nil when absent. Redis expires keys
// server-side, so an absent key covers the expired case too.
func (s *RedisStore) GetScreenshot(ctx context.Context, key model.CacheKey) ([]byte, error) {
	data, err := s.client.Get(ctx, s.screenshotKey(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("redis get failed, treating as cache miss",
				"key", key.String(),
				"error", err,
			)
		}
		return nil, nil
	}
	return data, nil
}

// PutMetadata stores the descriptor list as JSON with the configured TTL.
func (s *RedisStore) PutMetadata(ctx context.Context, key model.MetadataKey, records []model.Screenshot) error {
	data, err := encodeMetadata(records)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.metadataKey(key), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set metadata: %w", err)
	}
	return nil
}

// GetMetadata returns the descriptor list or nil, nil when absent.
func (s *RedisStore) GetMetadata(ctx context.Context, key model.MetadataKey) ([]model.Screenshot, error) {
	data, err := s.client.Get(ctx, s.metadataKey(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("redis get failed, treating as cache miss",
				"key", key.String(),
				"error", err,
			)
		}
		return nil, nil
	}

	records, err := decodeMetadata(data)
	if err != nil {
		slog.Warn("discarding unreadable metadata entry",
			"key", key.String(),
			"error", err,
		)
		return nil, nil
	}
	return records, nil
}

// Stats scans both key prefixes and aggregates counts and value sizes.
func (s *RedisStore) Stats(ctx context.Context) (*repository.StoreStats, error) {
	stats := &repository.StoreStats{
		PerQuality: make(map[model.Quality]int),
	}

	if err := s.scan(ctx, screenshotPrefix+":*", func(key string) error {
		size, err := s.client.StrLen(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("strlen %s: %w", key, err)
		}
		stats.ScreenshotCount++
		stats.TotalBytes += size
		if quality, ok := qualityFromObjectName(key[len(screenshotPrefix)+1:]); ok {
			stats.PerQuality[quality]++
		}
		return nil
	}); err != nil {
		return nil, err
	}

	if err := s.scan(ctx, metadataPrefix+":*", func(key string) error {
		size, err := s.client.StrLen(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("strlen %s: %w", key, err)
		}
		stats.MetadataCount++
		stats.TotalBytes += size
		return nil
	}); err != nil {
		return nil, err
	}

	return stats, nil
}

// PurgeExpired is a no-op: the server already evicts entries at their TTL.
func (s *RedisStore) PurgeExpired(_ context.Context) (int, error) {
	return 0, nil
}

func (s *RedisStore) scan(ctx context.Context, match string, fn func(key string) error) error {
	iter := s.client.Scan(ctx, 0, match, 0).Iterator()
	for iter.Next(ctx) {
		if err := fn(iter.Val()); err != nil {
			return err
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan %s: %w", match, err)
	}
	return nil
}
