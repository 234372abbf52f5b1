// Package youtube parses video IDs and timestamps out of YouTube URLs.
package youtube

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// ErrInvalidURL is returned when no video ID can be extracted.
var ErrInvalidURL = errors.New("invalid YouTube URL: cannot extract video ID")

var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/|youtube\.com/embed/)([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`youtube\.com/watch\?.*v=([a-zA-Z0-9_-]{11})`),
}

var (
	// Plain seconds form, anchored to the end of the URL: ?t=125 / &t=125.
	timestampSeconds = regexp.MustCompile(`[?&]t=(\d+)$`)
	// Unit form: ?t=1h2m5s, with each unit optional except seconds.
	timestampUnits = regexp.MustCompile(`[?&]t=(?:(\d+)h)?(?:(\d+)m)?(\d+)s?`)
)

// ExtractVideoID pulls the 11-character video ID out of watch, share and
// embed URL forms.
func ExtractVideoID(url string) (string, error) {
	for _, pattern := range videoIDPatterns {
		if m := pattern.FindStringSubmatch(url); m != nil {
			return m[1], nil
		}
	}
	return "", ErrInvalidURL
}

// Timestamp is a URL timestamp broken into clock components.
type Timestamp struct {
	Hours   int
	Minutes int
	Seconds int
}

// TotalSeconds flattens the timestamp to a second offset.
func (t Timestamp) TotalSeconds() int {
	return t.Hours*3600 + t.Minutes*60 + t.Seconds
}

// String formats the timestamp as HH:MM:SS.
func (t Timestamp) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hours, t.Minutes, t.Seconds)
}

// ExtractTimestamp reads the t= parameter in either plain-second or
// h/m/s unit form. URLs with no timestamp yield the zero Timestamp.
func ExtractTimestamp(url string) Timestamp {
	if m := timestampSeconds.FindStringSubmatch(url); m != nil {
		total, _ := strconv.Atoi(m[1])
		return Timestamp{
			Hours:   total / 3600,
			Minutes: (total % 3600) / 60,
			Seconds: total % 60,
		}
	}

	if m := timestampUnits.FindStringSubmatch(url); m != nil {
		return Timestamp{
			Hours:   atoiOrZero(m[1]),
			Minutes: atoiOrZero(m[2]),
			Seconds: atoiOrZero(m[3]),
		}
	}

	return Timestamp{}
}

func atoiOrZero(s string) int {
	if s == "" {
		return 0
	}
	n, _ := strconv.Atoi(s)
	return n
}
