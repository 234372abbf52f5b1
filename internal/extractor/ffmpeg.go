// Package extractor captures single video frames via ffmpeg.
package extractor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Config holds configuration for the ffmpeg frame extractor.
type Config struct {
	// FFmpegPath is the path to the ffmpeg binary.
	// If empty, "ffmpeg" will be used (assumes it's in PATH).
	FFmpegPath string

	// WorkDir is where per-call output directories are created.
	// If empty, the OS temp directory is used.
	WorkDir string

	// Timeout bounds a single extraction.
	// Default: 45s
	Timeout time.Duration
}

// DefaultConfig returns a Config with production-ready defaults.
func DefaultConfig() Config {
	return Config{
		FFmpegPath: "ffmpeg",
		Timeout:    45 * time.Second,
	}
}

// FrameExtractor captures one frame of a stream at a given offset.
type FrameExtractor interface {
	ExtractFrame(ctx context.Context, streamURL string, offsetSeconds int) ([]byte, error)
}

// FFmpegExtractor implements FrameExtractor using the ffmpeg CLI.
type FFmpegExtractor struct {
	config Config
}

// Compile-time verification that FFmpegExtractor implements FrameExtractor.
var _ FrameExtractor = (*FFmpegExtractor)(nil)

// NewFFmpegExtractor creates a new ffmpeg-based extractor.
func NewFFmpegExtractor(cfg Config) *FFmpegExtractor {
	def := DefaultConfig()
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = def.FFmpegPath
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = os.TempDir()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return &FFmpegExtractor{config: cfg}
}

// ExtractFrame seeks to the offset and captures exactly one frame as PNG.
// Each call writes into its own uuid-named directory, removed on return,
// so concurrent extractions never collide.
func (e *FFmpegExtractor) ExtractFrame(ctx context.Context, streamURL string, offsetSeconds int) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	workDir := filepath.Join(e.config.WorkDir, "frame-"+uuid.NewString())
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return nil, fmt.Errorf("create work directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(workDir) }()

	outputPath := filepath.Join(workDir, "frame.png")
	args := buildFrameArgs(streamURL, offsetSeconds, outputPath)

	cmd := exec.CommandContext(ctx, e.config.FFmpegPath, args...)
	cmd.Stdout = nil
	cmd.Stderr = nil // ffmpeg writes progress to stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("frame extraction cancelled: %w", ctx.Err())
		}
		return nil, fmt.Errorf("ffmpeg execution failed: %w", err)
	}

	data, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, fmt.Errorf("read extracted frame: %w", err)
	}
	return data, nil
}

// buildFrameArgs constructs the ffmpeg command arguments. Placing -ss
// before -i makes ffmpeg seek on the input demuxer, which avoids decoding
// everything up to the offset.
func buildFrameArgs(streamURL string, offsetSeconds int, outputPath string) []string {
	return []string{
		"-ss", fmt.Sprintf("%d", offsetSeconds),
		"-i", streamURL,
		"-frames:v", "1",
		"-q:v", "2",
		"-an",
		"-y",
		outputPath,
	}
}
