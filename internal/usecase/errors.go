package usecase

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mtsk-dev/snapframe/internal/domain/model"
	"github.com/mtsk-dev/snapframe/internal/youtube"
)

var (
	// ErrExtractionFailed means no quality could be captured at all.
	ErrExtractionFailed = errors.New("failed to generate any screenshot")

	// ErrUnknownDuration means the upstream reported no video duration,
	// so the requested timestamp cannot be validated.
	ErrUnknownDuration = errors.New("could not retrieve video duration")
)

// QualityUnavailableError is returned when the requested quality has no
// stream for this video.
type QualityUnavailableError struct {
	Quality   model.Quality
	Available []model.Quality
}

func (e *QualityUnavailableError) Error() string {
	options := make([]string, len(e.Available))
	for i, q := range e.Available {
		options[i] = q.String()
	}
	return fmt.Sprintf("quality %q not available, options: %s", e.Quality, strings.Join(options, ", "))
}

// TimestampOutOfRangeError is returned when the requested timestamp is
// at or past the end of the video.
type TimestampOutOfRangeError struct {
	Requested youtube.Timestamp
	Duration  int
}

func (e *TimestampOutOfRangeError) Error() string {
	limit := youtube.Timestamp{
		Hours:   e.Duration / 3600,
		Minutes: (e.Duration % 3600) / 60,
		Seconds: e.Duration % 60,
	}
	return fmt.Sprintf("timestamp %s exceeds video duration of %s", e.Requested, limit)
}
