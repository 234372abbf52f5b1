package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Quality represents one of the fixed output resolution tiers.
type Quality string

const (
	QualityUltra  Quality = "ultra"
	QualityHigh   Quality = "high"
	QualityMedium Quality = "medium"
	QualityLow    Quality = "low"
)

// Height bands used to map available source stream heights onto tiers.
// A stream qualifies for a tier when minHeight <= height <= maxHeight.
var qualityBands = map[Quality]struct{ MinHeight, MaxHeight int }{
	QualityUltra:  {1080, 9999},
	QualityHigh:   {720, 1079},
	QualityMedium: {480, 719},
	QualityLow:    {200, 479},
}

var qualityNames = map[Quality]string{
	QualityUltra:  "Ultra (1080p)",
	QualityHigh:   "High (720p)",
	QualityMedium: "Medium (480p)",
	QualityLow:    "Low (360p)",
}

// AllQualities returns every quality tier in descending resolution order.
func AllQualities() []Quality {
	return []Quality{QualityUltra, QualityHigh, QualityMedium, QualityLow}
}

func (q Quality) IsValid() bool {
	switch q {
	case QualityUltra, QualityHigh, QualityMedium, QualityLow:
		return true
	default:
		return false
	}
}

func (q Quality) String() string {
	return string(q)
}

// DisplayName returns the human-readable tier name (e.g. "High (720p)").
func (q Quality) DisplayName() string {
	return qualityNames[q]
}

// Matches reports whether a source stream height falls into this tier's band.
func (q Quality) Matches(height int) bool {
	band, ok := qualityBands[q]
	if !ok {
		return false
	}
	return height >= band.MinHeight && height <= band.MaxHeight
}

// StreamInfo describes one resolved media stream for a quality tier.
type StreamInfo struct {
	URL      string
	Height   int
	FormatID string
	FileSize int64
}

// StreamMap maps quality tiers to their resolved streams for one video.
type StreamMap map[Quality]StreamInfo

// Screenshot describes one generated screenshot variant. A list of these is
// what the metadata cache stores for a (video, timestamp) pair.
type Screenshot struct {
	Quality      Quality `json:"quality"`
	Name         string  `json:"name"`
	SourceHeight int     `json:"source_height"`
	SizeBytes    int64   `json:"size_bytes"`
	FileName     string  `json:"filename"`
	DownloadURL  string  `json:"download_url"`
}

var (
	ErrEmptyVideoID      = errors.New("video ID cannot be empty")
	ErrNegativeTimestamp = errors.New("timestamp cannot be negative")
	ErrInvalidQuality    = errors.New("invalid quality tier")
)

// CacheKey uniquely identifies one cached screenshot blob.
type CacheKey struct {
	VideoID   string
	Timestamp int
	Quality   Quality
}

// NewCacheKey validates and constructs a CacheKey.
func NewCacheKey(videoID string, timestamp int, quality Quality) (CacheKey, error) {
	if videoID == "" {
		return CacheKey{}, ErrEmptyVideoID
	}
	if timestamp < 0 {
		return CacheKey{}, ErrNegativeTimestamp
	}
	if !quality.IsValid() {
		return CacheKey{}, ErrInvalidQuality
	}
	return CacheKey{VideoID: videoID, Timestamp: timestamp, Quality: quality}, nil
}

// String returns the canonical lookup key: {videoId}_{timestamp}_{quality}.
// Both durable backends derive object names from this form, so it must stay
// stable across releases.
func (k CacheKey) String() string {
	return fmt.Sprintf("%s_%d_%s", k.VideoID, k.Timestamp, k.Quality)
}

// MetadataKey returns the metadata key for this blob's (video, timestamp).
func (k CacheKey) MetadataKey() MetadataKey {
	return MetadataKey{VideoID: k.VideoID, Timestamp: k.Timestamp}
}

// MetadataKey identifies the cached descriptor list for a video+timestamp.
type MetadataKey struct {
	VideoID   string
	Timestamp int
}

// NewMetadataKey validates and constructs a MetadataKey.
func NewMetadataKey(videoID string, timestamp int) (MetadataKey, error) {
	if videoID == "" {
		return MetadataKey{}, ErrEmptyVideoID
	}
	if timestamp < 0 {
		return MetadataKey{}, ErrNegativeTimestamp
	}
	return MetadataKey{VideoID: videoID, Timestamp: timestamp}, nil
}

// String returns the canonical form: {videoId}_{timestamp}.
func (k MetadataKey) String() string {
	return fmt.Sprintf("%s_%d", k.VideoID, k.Timestamp)
}

// ParseScreenshotFileName parses a canonical screenshot file name
// ({videoId}_{timestamp}_{quality}.png) back into a CacheKey.
// Video IDs may contain underscores, so the name is split from the right.
func ParseScreenshotFileName(name string) (CacheKey, error) {
	base := strings.TrimSuffix(name, ".png")
	parts := strings.Split(base, "_")
	if len(parts) < 3 {
		return CacheKey{}, fmt.Errorf("malformed screenshot file name: %s", name)
	}

	quality := Quality(parts[len(parts)-1])
	timestamp, err := strconv.Atoi(parts[len(parts)-2])
	if err != nil {
		return CacheKey{}, fmt.Errorf("malformed timestamp in file name %s: %w", name, err)
	}
	videoID := strings.Join(parts[:len(parts)-2], "_")

	return NewCacheKey(videoID, timestamp, quality)
}
