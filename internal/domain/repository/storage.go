package repository

import (
	"context"

	"github.com/mtsk-dev/snapframe/internal/domain/model"
)

// ScreenshotStore defines the durable-tier contract for screenshot blobs and
// their metadata. Implementations are provided by the infrastructure layer
// (filesystem, MinIO, Redis) and must derive byte-identical object names and
// stored content for identical inputs so backends remain substitutable.
//
// Absence and expiry are never errors: Get methods return nil, nil for a
// missing or expired entry. Transient backend failures on the read path are
// logged by the implementation and degraded to nil, nil as well, so a broken
// durable tier behaves as a cache miss rather than a request failure.
type ScreenshotStore interface {
	// PutScreenshot writes a screenshot blob, overwriting silently if present.
	// The backend records the write time as the entry's creation time.
	PutScreenshot(ctx context.Context, key model.CacheKey, data []byte) error

	// GetScreenshot returns the blob, or nil, nil if absent or older than the
	// configured TTL. Expired entries should be deleted on read (best effort).
	GetScreenshot(ctx context.Context, key model.CacheKey) ([]byte, error)

	// PutMetadata writes the descriptor list as JSON under the metadata key.
	PutMetadata(ctx context.Context, key model.MetadataKey, records []model.Screenshot) error

	// GetMetadata returns the descriptor list, with the same absence/expiry
	// semantics as GetScreenshot.
	GetMetadata(ctx context.Context, key model.MetadataKey) ([]model.Screenshot, error)

	// Stats scans the store and returns aggregate statistics. Unlike the read
	// path, a backend failure here is reported as an explicit error.
	Stats(ctx context.Context) (*StoreStats, error)

	// PurgeExpired removes every entry whose age meets or exceeds the TTL and
	// returns the number removed. Safe to run concurrently with reads and
	// writes; a racing get may observe either outcome.
	PurgeExpired(ctx context.Context) (int, error)
}

// StoreStats holds the result of a best-effort durable store scan.
type StoreStats struct {
	ScreenshotCount int
	MetadataCount   int
	TotalBytes      int64
	PerQuality      map[model.Quality]int
}
