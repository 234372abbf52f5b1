package storage

import (
	"encoding/json"
	"fmt"

	"github.com/mtsk-dev/snapframe/internal/domain/model"
)

// Object naming is shared by every backend so that a blob written by one is
// byte-for-byte what another would write under the same name. The filesystem
// backend uses the prefixes as subdirectories, MinIO as object-name prefixes,
// Redis as key prefixes.
const (
	screenshotPrefix = "screenshots"
	metadataPrefix   = "metadata"

	screenshotExt = ".png"
	metadataExt   = ".json"
)

// screenshotObjectName returns the canonical file/object name for a blob:
// {videoId}_{timestamp}_{quality}.png
func screenshotObjectName(key model.CacheKey) string {
	return key.String() + screenshotExt
}

// metadataObjectName returns the canonical file/object name for a descriptor
// list: {videoId}_{timestamp}.json
func metadataObjectName(key model.MetadataKey) string {
	return key.String() + metadataExt
}

// encodeMetadata serializes a descriptor list. All backends store exactly
// these bytes, which keeps them substitutable without re-encoding.
func encodeMetadata(records []model.Screenshot) ([]byte, error) {
	data, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	return data, nil
}

func decodeMetadata(data []byte) ([]model.Screenshot, error) {
	var records []model.Screenshot
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return records, nil
}

// qualityFromObjectName extracts the quality tier from a screenshot object
// name for per-quality statistics. Returns false for malformed names.
func qualityFromObjectName(name string) (model.Quality, bool) {
	key, err := model.ParseScreenshotFileName(name)
	if err != nil {
		return "", false
	}
	return key.Quality, true
}
