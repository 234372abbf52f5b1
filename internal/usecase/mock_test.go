package usecase

import (
	"context"

	"github.com/mtsk-dev/snapframe/internal/domain/model"
	"github.com/mtsk-dev/snapframe/internal/infrastructure/cache"
)

// mockScreenshotCache provides a configurable mock for ScreenshotCache.
type mockScreenshotCache struct {
	getScreenshotFn     func(ctx context.Context, key model.CacheKey) ([]byte, error)
	storeScreenshotFn   func(key model.CacheKey, data []byte)
	getCachedMetadataFn func(ctx context.Context, key model.MetadataKey) ([]model.Screenshot, error)
	storeMetadataFn     func(key model.MetadataKey, records []model.Screenshot)
	statsFn             func() cache.Stats
}

func (m *mockScreenshotCache) GetScreenshot(ctx context.Context, key model.CacheKey) ([]byte, error) {
	if m.getScreenshotFn != nil {
		return m.getScreenshotFn(ctx, key)
	}
	return nil, nil
}

func (m *mockScreenshotCache) StoreScreenshot(key model.CacheKey, data []byte) {
	if m.storeScreenshotFn != nil {
		m.storeScreenshotFn(key, data)
	}
}

func (m *mockScreenshotCache) GetCachedMetadata(ctx context.Context, key model.MetadataKey) ([]model.Screenshot, error) {
	if m.getCachedMetadataFn != nil {
		return m.getCachedMetadataFn(ctx, key)
	}
	return nil, nil
}

func (m *mockScreenshotCache) StoreMetadata(key model.MetadataKey, records []model.Screenshot) {
	if m.storeMetadataFn != nil {
		m.storeMetadataFn(key, records)
	}
}

func (m *mockScreenshotCache) Stats() cache.Stats {
	if m.statsFn != nil {
		return m.statsFn()
	}
	return cache.Stats{}
}

// mockResolver provides a configurable mock for resolver.StreamResolver.
type mockResolver struct {
	resolveStreamsFn func(ctx context.Context, videoURL string) (model.StreamMap, error)
	videoDurationFn  func(ctx context.Context, videoURL string) (int, error)
}

func (m *mockResolver) ResolveStreams(ctx context.Context, videoURL string) (model.StreamMap, error) {
	if m.resolveStreamsFn != nil {
		return m.resolveStreamsFn(ctx, videoURL)
	}
	return nil, nil
}

func (m *mockResolver) VideoDuration(ctx context.Context, videoURL string) (int, error) {
	if m.videoDurationFn != nil {
		return m.videoDurationFn(ctx, videoURL)
	}
	return 3600, nil
}

// mockExtractor provides a configurable mock for extractor.FrameExtractor.
type mockExtractor struct {
	extractFrameFn func(ctx context.Context, streamURL string, offsetSeconds int) ([]byte, error)
}

func (m *mockExtractor) ExtractFrame(ctx context.Context, streamURL string, offsetSeconds int) ([]byte, error) {
	if m.extractFrameFn != nil {
		return m.extractFrameFn(ctx, streamURL, offsetSeconds)
	}
	return []byte("png-bytes"), nil
}
