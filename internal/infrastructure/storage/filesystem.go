package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/mtsk-dev/snapframe/internal/domain/model"
	"github.com/mtsk-dev/snapframe/internal/domain/repository"
)

// DefaultTTL is the durable-tier time-to-live shared by all backends.
const DefaultTTL = 24 * time.Hour

// FSConfig holds configuration for the filesystem-backed store.
type FSConfig struct {
	// Dir is the cache root. Screenshots and metadata live in subdirectories.
	Dir string
	// TTL is the maximum entry age before it is treated as absent.
	// Default: DefaultTTL.
	TTL time.Duration
}

// FSStore implements repository.ScreenshotStore on a local directory tree.
// A file's modification time is its creation time for TTL purposes.
type FSStore struct {
	screenshotsDir string
	metadataDir    string
	ttl            time.Duration

	// now is replaceable in tests.
	now func() time.Time
}

var _ repository.ScreenshotStore = (*FSStore)(nil)

// NewFSStore creates the cache directories and returns a filesystem store.
func NewFSStore(cfg FSConfig) (*FSStore, error) {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}

	s := &FSStore{
		screenshotsDir: filepath.Join(cfg.Dir, screenshotPrefix),
		metadataDir:    filepath.Join(cfg.Dir, metadataPrefix),
		ttl:            cfg.TTL,
		now:            time.Now,
	}

	for _, dir := range []string{s.screenshotsDir, s.metadataDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create cache directory %s: %w", dir, err)
		}
	}

	return s, nil
}

// PutScreenshot writes the blob, silently overwriting an existing file.
func (s *FSStore) PutScreenshot(_ context.Context, key model.CacheKey, data []byte) error {
	path := filepath.Join(s.screenshotsDir, screenshotObjectName(key))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write screenshot %s: %w", path, err)
	}
	return nil
}

// GetScreenshot returns the blob or nil, nil when absent or expired.
// Read errors degrade to a miss.
func (s *FSStore) GetScreenshot(_ context.Context, key model.CacheKey) ([]byte, error) {
	return s.readFresh(filepath.Join(s.screenshotsDir, screenshotObjectName(key)))
}

// PutMetadata writes the descriptor list as JSON.
func (s *FSStore) PutMetadata(_ context.Context, key model.MetadataKey, records []model.Screenshot) error {
	data, err := encodeMetadata(records)
	if err != nil {
		return err
	}

	path := filepath.Join(s.metadataDir, metadataObjectName(key))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write metadata %s: %w", path, err)
	}
	return nil
}

// GetMetadata returns the descriptor list or nil, nil when absent or expired.
func (s *FSStore) GetMetadata(_ context.Context, key model.MetadataKey) ([]model.Screenshot, error) {
	data, err := s.readFresh(filepath.Join(s.metadataDir, metadataObjectName(key)))
	if err != nil || data == nil {
		return nil, err
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

// readFresh reads a file if it exists and is younger than the TTL.
// Expired files are removed on read (best effort).
func (s *FSStore) readFresh(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("stat failed, treating as cache miss", "path", path, "error", err)
		}
		return nil, nil
	}

	if s.expired(info.ModTime()) {
		if err := os.Remove(path); err != nil {
			slog.Warn("failed to remove expired cache file", "path", path, "error", err)
		}
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("read failed, treating as cache miss", "path", path, "error", err)
		return nil, nil
	}
	return data, nil
}

func (s *FSStore) expired(created time.Time) bool {
	return s.now().Sub(created) >= s.ttl
}

// Stats scans both directories and aggregates counts and sizes.
func (s *FSStore) Stats(_ context.Context) (*repository.StoreStats, error) {
	stats := &repository.StoreStats{
		PerQuality: make(map[model.Quality]int),
	}

	screenshots, err := os.ReadDir(s.screenshotsDir)
	if err != nil {
		return nil, fmt.Errorf("scan screenshots directory: %w", err)
	}
	for _, entry := range screenshots {
		info, err := entry.Info()
		if err != nil || entry.IsDir() {
			continue
		}
		stats.ScreenshotCount++
		stats.TotalBytes += info.Size()
		if quality, ok := qualityFromObjectName(entry.Name()); ok {
			stats.PerQuality[quality]++
		}
	}

	metadata, err := os.ReadDir(s.metadataDir)
	if err != nil {
		return nil, fmt.Errorf("scan metadata directory: %w", err)
	}
	for _, entry := range metadata {
		info, err := entry.Info()
		if err != nil || entry.IsDir() {
			continue
		}
		stats.MetadataCount++
		stats.TotalBytes += info.Size()
	}

	return stats, nil
}

// PurgeExpired removes every file older than the TTL from both directories.
func (s *FSStore) PurgeExpired(_ context.Context) (int, error) {
	removed := 0
	for _, dir := range []string{s.screenshotsDir, s.metadataDir} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return removed, fmt.Errorf("scan directory %s: %w", dir, err)
		}

		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue
			}
			if !s.expired(info.ModTime()) {
				continue
			}

			path := filepath.Join(dir, entry.Name())
			if err := os.Remove(path); err != nil {
				slog.Warn("failed to remove expired cache file", "path", path, "error", err)
				continue
			}
			removed++
		}
	}
	return removed, nil
}
