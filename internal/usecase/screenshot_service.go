package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/mtsk-dev/snapframe/internal/domain/model"
	"github.com/mtsk-dev/snapframe/internal/extractor"
	"github.com/mtsk-dev/snapframe/internal/infrastructure/cache"
	"github.com/mtsk-dev/snapframe/internal/infrastructure/metrics"
	"github.com/mtsk-dev/snapframe/internal/resolver"
	"github.com/mtsk-dev/snapframe/internal/youtube"
)

// ScreenshotCache is the multi-level cache surface the service depends on.
// Implemented by cache.MultiLevelCache.
type ScreenshotCache interface {
	GetScreenshot(ctx context.Context, key model.CacheKey) ([]byte, error)
	StoreScreenshot(key model.CacheKey, data []byte)
	GetCachedMetadata(ctx context.Context, key model.MetadataKey) ([]model.Screenshot, error)
	StoreMetadata(key model.MetadataKey, records []model.Screenshot)
	Stats() cache.Stats
}

// GenerateInput identifies the frame set to produce.
type GenerateInput struct {
	URL     string
	Hours   int
	Minutes int
	Seconds int
}

// GenerateOutput is the result of a screenshot generation request.
type GenerateOutput struct {
	VideoID     string             `json:"video_id"`
	Timestamp   int                `json:"timestamp"`
	Screenshots []model.Screenshot `json:"screenshots"`
	Cached      bool               `json:"cached"`
}

// SingleInput identifies one frame at one quality, for the CLI path.
type SingleInput struct {
	URL       string
	Timestamp int
	Quality   model.Quality
}

// ScreenshotService orchestrates cache lookups, stream resolution and
// frame extraction.
type ScreenshotService interface {
	// GenerateScreenshots returns every available quality for the frame,
	// from cache when the cached set is complete.
	GenerateScreenshots(ctx context.Context, input GenerateInput) (*GenerateOutput, error)

	// SingleScreenshot returns the PNG for one quality, generating and
	// caching it on a miss.
	SingleScreenshot(ctx context.Context, input SingleInput) ([]byte, error)

	// ScreenshotByFileName serves a previously generated PNG by its
	// canonical file name.
	ScreenshotByFileName(ctx context.Context, filename string) ([]byte, error)

	// CacheStats exposes cache effectiveness counters.
	CacheStats() cache.Stats

	// StreamCacheLen reports how many videos have cached stream URLs.
	StreamCacheLen() int
}

// ServiceConfig holds configuration for the screenshot service.
type ServiceConfig struct {
	// MaxParallelExtractions bounds concurrent ffmpeg processes per request.
	// Default: 4
	MaxParallelExtractions int
}

// DefaultServiceConfig returns the default configuration.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		MaxParallelExtractions: 4,
	}
}

type screenshotService struct {
	cache     ScreenshotCache
	streams   *cache.StreamCache
	resolver  resolver.StreamResolver
	extractor extractor.FrameExtractor
	sfGroup   singleflight.Group

	maxParallel int
}

// NewScreenshotService creates the service.
func NewScreenshotService(
	screenshotCache ScreenshotCache,
	streamCache *cache.StreamCache,
	streamResolver resolver.StreamResolver,
	frameExtractor extractor.FrameExtractor,
	cfg ServiceConfig,
) ScreenshotService {
	if cfg.MaxParallelExtractions <= 0 {
		cfg.MaxParallelExtractions = DefaultServiceConfig().MaxParallelExtractions
	}
	return &screenshotService{
		cache:       screenshotCache,
		streams:     streamCache,
		resolver:    streamResolver,
		extractor:   frameExtractor,
		maxParallel: cfg.MaxParallelExtractions,
	}
}

func (s *screenshotService) GenerateScreenshots(ctx context.Context, input GenerateInput) (*GenerateOutput, error) {
	videoID, err := youtube.ExtractVideoID(input.URL)
	if err != nil {
		return nil, err
	}
	timestamp := input.Hours*3600 + input.Minutes*60 + input.Seconds
	if timestamp < 0 {
		return nil, model.ErrNegativeTimestamp
	}

	if cached, err := s.checkCacheComplete(ctx, videoID, timestamp); err != nil {
		return nil, err
	} else if cached != nil {
		slog.Info("complete cache hit", "video_id", videoID, "timestamp", timestamp)
		return &GenerateOutput{
			VideoID:     videoID,
			Timestamp:   timestamp,
			Screenshots: cached,
			Cached:      true,
		}, nil
	}
	slog.Info("cache miss, generating screenshots", "video_id", videoID, "timestamp", timestamp)

	if err := s.validateTimestamp(ctx, input.URL, input.Hours, input.Minutes, input.Seconds); err != nil {
		return nil, err
	}

	streams, err := s.resolveStreams(ctx, videoID, input.URL)
	if err != nil {
		return nil, err
	}

	screenshots, err := s.extractAll(ctx, videoID, timestamp, streams)
	if err != nil {
		return nil, err
	}

	metaKey, err := model.NewMetadataKey(videoID, timestamp)
	if err != nil {
		return nil, err
	}
	s.cache.StoreMetadata(metaKey, screenshots)

	return &GenerateOutput{
		VideoID:     videoID,
		Timestamp:   timestamp,
		Screenshots: screenshots,
		Cached:      false,
	}, nil
}

// checkCacheComplete returns the cached descriptor set only when every
// blob it references is still retrievable. A partial hit counts as a full
// miss: serving a subset would look like the video lost qualities, so the
// whole set is regenerated instead.
func (s *screenshotService) checkCacheComplete(ctx context.Context, videoID string, timestamp int) ([]model.Screenshot, error) {
	metaKey, err := model.NewMetadataKey(videoID, timestamp)
	if err != nil {
		return nil, err
	}

	records, err := s.cache.GetCachedMetadata(ctx, metaKey)
	if err != nil {
		return nil, err
	}
	if records == nil {
		return nil, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	present := make([]bool, len(records))
	for i, record := range records {
		i, record := i, record
		g.Go(func() error {
			key, err := model.NewCacheKey(videoID, timestamp, record.Quality)
			if err != nil {
				return err
			}
			data, err := s.cache.GetScreenshot(gctx, key)
			if err != nil {
				return err
			}
			present[i] = data != nil
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, ok := range present {
		if !ok {
			slog.Info("partial cache hit, regenerating full set",
				"video_id", videoID,
				"timestamp", timestamp,
			)
			return nil, nil
		}
	}
	return records, nil
}

// resolveStreams consults the stream cache and collapses concurrent
// resolutions of the same video into one yt-dlp invocation.
func (s *screenshotService) resolveStreams(ctx context.Context, videoID, videoURL string) (model.StreamMap, error) {
	result, err, shared := s.sfGroup.Do(videoID, func() (any, error) {
		if streams, ok := s.streams.Get(videoID); ok {
			return streams, nil
		}
		streams, err := s.resolver.ResolveStreams(ctx, videoURL)
		if err != nil {
			metrics.UpstreamFailuresTotal.WithLabelValues(metrics.ToolYTDLP).Inc()
			return nil, fmt.Errorf("resolve streams for %s: %w", videoID, err)
		}
		s.streams.Put(videoID, streams)
		return streams, nil
	})

	if shared {
		metrics.SingleflightRequestsTotal.WithLabelValues(metrics.SingleflightShared).Inc()
	} else {
		metrics.SingleflightRequestsTotal.WithLabelValues(metrics.SingleflightInitiated).Inc()
	}

	if err != nil {
		return nil, err
	}
	return result.(model.StreamMap), nil
}

// extractAll captures every available quality in parallel. A failed
// quality is logged and skipped; only a fully failed set is an error.
func (s *screenshotService) extractAll(ctx context.Context, videoID string, timestamp int, streams model.StreamMap) ([]model.Screenshot, error) {
	var mu sync.Mutex
	var screenshots []model.Screenshot

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxParallel)

	for quality, stream := range streams {
		quality, stream := quality, stream
		g.Go(func() error {
			data, err := s.extractor.ExtractFrame(gctx, stream.URL, timestamp)
			if err != nil {
				metrics.UpstreamFailuresTotal.WithLabelValues(metrics.ToolFFmpeg).Inc()
				slog.Warn("frame extraction failed",
					"video_id", videoID,
					"quality", quality.String(),
					"error", err,
				)
				return nil
			}

			key, err := model.NewCacheKey(videoID, timestamp, quality)
			if err != nil {
				return err
			}
			s.cache.StoreScreenshot(key, data)
			metrics.ScreenshotsGeneratedTotal.WithLabelValues(quality.String()).Inc()

			record := model.Screenshot{
				Quality:      quality,
				Name:         quality.DisplayName(),
				SourceHeight: stream.Height,
				SizeBytes:    int64(len(data)),
				FileName:     key.String() + ".png",
				DownloadURL:  "/download/" + key.String() + ".png",
			}

			mu.Lock()
			screenshots = append(screenshots, record)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(screenshots) == 0 {
		return nil, ErrExtractionFailed
	}

	// Highest quality first, for a stable response order.
	sort.Slice(screenshots, func(i, j int) bool {
		return screenshots[i].SourceHeight > screenshots[j].SourceHeight
	})
	return screenshots, nil
}

func (s *screenshotService) validateTimestamp(ctx context.Context, videoURL string, hours, minutes, seconds int) error {
	duration, err := s.resolver.VideoDuration(ctx, videoURL)
	if err != nil {
		metrics.UpstreamFailuresTotal.WithLabelValues(metrics.ToolYTDLP).Inc()
		return fmt.Errorf("validate timestamp: %w", err)
	}
	if duration == 0 {
		return ErrUnknownDuration
	}

	requested := hours*3600 + minutes*60 + seconds
	if requested >= duration {
		return &TimestampOutOfRangeError{
			Requested: youtube.Timestamp{Hours: hours, Minutes: minutes, Seconds: seconds},
			Duration:  duration,
		}
	}
	return nil
}

func (s *screenshotService) SingleScreenshot(ctx context.Context, input SingleInput) ([]byte, error) {
	videoID, err := youtube.ExtractVideoID(input.URL)
	if err != nil {
		return nil, err
	}

	key, err := model.NewCacheKey(videoID, input.Timestamp, input.Quality)
	if err != nil {
		return nil, err
	}

	if data, err := s.cache.GetScreenshot(ctx, key); err != nil {
		return nil, err
	} else if data != nil {
		return data, nil
	}

	streams, err := s.resolveStreams(ctx, videoID, input.URL)
	if err != nil {
		return nil, err
	}

	stream, ok := streams[input.Quality]
	if !ok {
		return nil, &QualityUnavailableError{
			Quality:   input.Quality,
			Available: availableQualities(streams),
		}
	}

	data, err := s.extractor.ExtractFrame(ctx, stream.URL, input.Timestamp)
	if err != nil {
		metrics.UpstreamFailuresTotal.WithLabelValues(metrics.ToolFFmpeg).Inc()
		return nil, fmt.Errorf("extract %s frame: %w", input.Quality, err)
	}

	s.cache.StoreScreenshot(key, data)
	metrics.ScreenshotsGeneratedTotal.WithLabelValues(input.Quality.String()).Inc()
	return data, nil
}

func (s *screenshotService) ScreenshotByFileName(ctx context.Context, filename string) ([]byte, error) {
	key, err := model.ParseScreenshotFileName(filename)
	if err != nil {
		return nil, err
	}
	return s.cache.GetScreenshot(ctx, key)
}

func (s *screenshotService) CacheStats() cache.Stats {
	return s.cache.Stats()
}

func (s *screenshotService) StreamCacheLen() int {
	return s.streams.Len()
}

// availableQualities lists the tiers present in a stream map, best first.
func availableQualities(streams model.StreamMap) []model.Quality {
	var qualities []model.Quality
	for _, quality := range model.AllQualities() {
		if _, ok := streams[quality]; ok {
			qualities = append(qualities, quality)
		}
	}
	return qualities
}
