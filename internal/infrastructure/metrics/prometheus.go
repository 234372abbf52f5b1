// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "snapframe"

var (
	// CacheLookupsTotal tracks multi-level cache lookups.
	// Labels:
	//   - tier: memory, durable, none (total miss)
	//   - kind: screenshot, metadata
	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Total number of cache lookups by serving tier",
		},
		[]string{"tier", "kind"},
	)

	// ScreenshotsGeneratedTotal tracks frame extractions that reached the cache.
	// Labels:
	//   - quality: ultra, high, medium, low
	ScreenshotsGeneratedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "screenshots_generated_total",
			Help:      "Total number of screenshots generated",
		},
		[]string{"quality"},
	)

	// UpstreamFailuresTotal tracks collaborator process failures.
	// Labels:
	//   - tool: yt-dlp, ffmpeg
	UpstreamFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_failures_total",
			Help:      "Total number of upstream tool failures",
		},
		[]string{"tool"},
	)

	// SingleflightRequestsTotal tracks stream resolution singleflight behavior.
	// Labels:
	//   - result: initiated (new execution), shared (reused result)
	SingleflightRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "singleflight_requests_total",
			Help:      "Total number of singleflight requests",
		},
		[]string{"result"},
	)

	// RequestDurationSeconds tracks screenshot request latency end to end.
	// Labels:
	//   - outcome: cached, generated, error
	RequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Screenshot request duration",
			Buckets:   []float64{0.005, 0.025, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"outcome"},
	)
)

// Cache tier constants.
const (
	TierMemory  = "memory"
	TierDurable = "durable"
	TierNone    = "none"
)

// Cache entry kind constants.
const (
	KindScreenshot = "screenshot"
	KindMetadata   = "metadata"
)

// Upstream tool constants.
const (
	ToolYTDLP  = "yt-dlp"
	ToolFFmpeg = "ffmpeg"
)

// Singleflight result constants.
const (
	SingleflightInitiated = "initiated"
	SingleflightShared    = "shared"
)

// Request outcome constants.
const (
	OutcomeCached    = "cached"
	OutcomeGenerated = "generated"
	OutcomeError     = "error"
)
