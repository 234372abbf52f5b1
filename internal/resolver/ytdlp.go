// Package resolver obtains direct stream URLs for a video via yt-dlp.
package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/mtsk-dev/snapframe/internal/domain/model"
)

// ErrNoStreams is returned when no format maps to any quality tier.
var ErrNoStreams = errors.New("no usable mp4 streams found")

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Config holds configuration for the yt-dlp resolver.
type Config struct {
	// YTDLPPath is the path to the yt-dlp binary.
	// If empty, "yt-dlp" will be used (assumes it's in PATH).
	YTDLPPath string

	// SocketTimeout is passed to yt-dlp's --socket-timeout in seconds.
	// Default: 30
	SocketTimeout int

	// Retries is passed to --retries and --fragment-retries.
	// Default: 3
	Retries int

	// Timeout bounds the whole yt-dlp invocation.
	// Default: 60s
	Timeout time.Duration
}

// DefaultConfig returns a Config with production-ready defaults.
func DefaultConfig() Config {
	return Config{
		YTDLPPath:     "yt-dlp",
		SocketTimeout: 30,
		Retries:       3,
		Timeout:       60 * time.Second,
	}
}

// StreamResolver resolves a video URL into per-quality stream URLs.
type StreamResolver interface {
	// ResolveStreams returns the best stream per quality tier.
	ResolveStreams(ctx context.Context, videoURL string) (model.StreamMap, error)

	// VideoDuration returns the video length in seconds.
	VideoDuration(ctx context.Context, videoURL string) (int, error)
}

// YTDLPResolver implements StreamResolver using the yt-dlp CLI.
type YTDLPResolver struct {
	config Config
}

// Compile-time verification that YTDLPResolver implements StreamResolver.
var _ StreamResolver = (*YTDLPResolver)(nil)

// NewYTDLPResolver creates a new yt-dlp based resolver.
func NewYTDLPResolver(cfg Config) *YTDLPResolver {
	def := DefaultConfig()
	if cfg.YTDLPPath == "" {
		cfg.YTDLPPath = def.YTDLPPath
	}
	if cfg.SocketTimeout <= 0 {
		cfg.SocketTimeout = def.SocketTimeout
	}
	if cfg.Retries <= 0 {
		cfg.Retries = def.Retries
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return &YTDLPResolver{config: cfg}
}

// videoInfo mirrors the subset of yt-dlp --dump-json output we read.
type videoInfo struct {
	Duration float64      `json:"duration"`
	Formats  []formatInfo `json:"formats"`
}

type formatInfo struct {
	URL      string  `json:"url"`
	Height   int     `json:"height"`
	Ext      string  `json:"ext"`
	FormatID string  `json:"format_id"`
	FileSize int64   `json:"filesize"`
	TBR      float64 `json:"tbr"`
}

// ResolveStreams runs yt-dlp and maps the reported formats onto the
// quality tiers.
func (r *YTDLPResolver) ResolveStreams(ctx context.Context, videoURL string) (model.StreamMap, error) {
	info, err := r.dumpJSON(ctx, videoURL)
	if err != nil {
		return nil, err
	}

	streams := mapFormats(info.Formats)
	if len(streams) == 0 {
		return nil, ErrNoStreams
	}
	return streams, nil
}

// VideoDuration returns the video length in seconds, used to validate
// requested timestamps before any extraction work starts.
func (r *YTDLPResolver) VideoDuration(ctx context.Context, videoURL string) (int, error) {
	info, err := r.dumpJSON(ctx, videoURL)
	if err != nil {
		return 0, err
	}
	return int(info.Duration), nil
}

func (r *YTDLPResolver) dumpJSON(ctx context.Context, videoURL string) (*videoInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	args := r.buildArgs(videoURL)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.config.YTDLPPath, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("stream resolution cancelled: %w", ctx.Err())
		}
		return nil, fmt.Errorf("yt-dlp execution failed: %w: %s", err, firstLine(stderr.Bytes()))
	}

	var info videoInfo
	if err := json.Unmarshal(stdout.Bytes(), &info); err != nil {
		return nil, fmt.Errorf("failed to parse yt-dlp output: %w", err)
	}
	return &info, nil
}

// buildArgs constructs the yt-dlp command arguments. The header and
// network flags harden against throttling of anonymous clients.
func (r *YTDLPResolver) buildArgs(videoURL string) []string {
	return []string{
		"--no-download",
		"--dump-json",
		"--user-agent", browserUserAgent,
		"--add-header", "Accept-Language:en-US,en;q=0.5",
		"--referer", "https://www.youtube.com/",
		"--socket-timeout", fmt.Sprintf("%d", r.config.SocketTimeout),
		"--retries", fmt.Sprintf("%d", r.config.Retries),
		"--fragment-retries", fmt.Sprintf("%d", r.config.Retries),
		"--force-ipv4",
		"--no-cache-dir",
		videoURL,
	}
}

// mapFormats selects, per quality tier, the mp4 format with the greatest
// height, breaking ties by bitrate. Formats without a direct URL or a
// known height are skipped.
func mapFormats(formats []formatInfo) model.StreamMap {
	streams := make(model.StreamMap)

	for _, quality := range model.AllQualities() {
		var best *formatInfo
		for i := range formats {
			f := &formats[i]
			if f.URL == "" || f.Height == 0 || f.Ext != "mp4" {
				continue
			}
			if !quality.Matches(f.Height) {
				continue
			}
			if best == nil || f.Height > best.Height || (f.Height == best.Height && f.TBR > best.TBR) {
				best = f
			}
		}
		if best != nil {
			streams[quality] = model.StreamInfo{
				URL:      best.URL,
				Height:   best.Height,
				FormatID: best.FormatID,
				FileSize: best.FileSize,
			}
		}
	}

	return streams
}

func firstLine(out []byte) []byte {
	if i := bytes.IndexByte(out, '\n'); i >= 0 {
		return out[:i]
	}
	return out
}
