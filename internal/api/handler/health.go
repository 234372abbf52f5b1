package handler

import (
	"fmt"
	"math"
	"net/http"

	"github.com/mtsk-dev/snapframe/internal/infrastructure/cache"
	"github.com/mtsk-dev/snapframe/internal/usecase"
)

type HealthResponse struct {
	Status     string      `json:"status"`
	RateLimit  string      `json:"rate_limit"`
	CacheStats cache.Stats `json:"cache_stats"`
}

type CacheStatsResponse struct {
	CacheStats        cache.Stats `json:"cache_stats"`
	HitRatePercentage float64     `json:"hit_rate_percentage"`
	StreamCacheSize   int         `json:"stream_cache_size"`
}

// StatusHandler serves health and cache statistics endpoints.
type StatusHandler struct {
	svc       usecase.ScreenshotService
	rateLimit int
}

// NewStatusHandler creates a new StatusHandler. rateLimit is the per-minute
// request budget reported to clients.
func NewStatusHandler(svc usecase.ScreenshotService, rateLimit int) *StatusHandler {
	return &StatusHandler{svc: svc, rateLimit: rateLimit}
}

// Health handles GET /health
func (h *StatusHandler) Health(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, HealthResponse{
		Status:     "healthy",
		RateLimit:  fmt.Sprintf("Max %d requests per minute", h.rateLimit),
		CacheStats: h.svc.CacheStats(),
	})
}

// CacheStats handles GET /api/cache-stats
func (h *StatusHandler) CacheStats(w http.ResponseWriter, r *http.Request) {
	stats := h.svc.CacheStats()

	hitRate := 0.0
	if total := stats.Hits + stats.Misses; total > 0 {
		hitRate = math.Round(float64(stats.Hits)/float64(total)*100*100) / 100
	}

	JSON(w, http.StatusOK, CacheStatsResponse{
		CacheStats:        stats,
		HitRatePercentage: hitRate,
		StreamCacheSize:   h.svc.StreamCacheLen(),
	})
}
