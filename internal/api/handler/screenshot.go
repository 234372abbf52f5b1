package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mtsk-dev/snapframe/internal/domain/model"
	"github.com/mtsk-dev/snapframe/internal/infrastructure/metrics"
	"github.com/mtsk-dev/snapframe/internal/resolver"
	"github.com/mtsk-dev/snapframe/internal/usecase"
	"github.com/mtsk-dev/snapframe/internal/youtube"
)

// Request/Response types

type GenerateRequest struct {
	URL     string `json:"url"`
	Hours   int    `json:"hours"`
	Minutes int    `json:"minutes"`
	Seconds int    `json:"seconds"`
}

type GenerateResponse struct {
	Success        bool               `json:"success"`
	VideoID        string             `json:"video_id"`
	Timestamp      int                `json:"timestamp"`
	Screenshots    []model.Screenshot `json:"screenshots"`
	Cached         bool               `json:"cached"`
	ProcessingTime float64            `json:"processing_time"`
}

// ScreenshotHandler handles screenshot-related HTTP requests.
type ScreenshotHandler struct {
	svc usecase.ScreenshotService
}

// NewScreenshotHandler creates a new ScreenshotHandler.
func NewScreenshotHandler(svc usecase.ScreenshotService) *ScreenshotHandler {
	return &ScreenshotHandler{svc: svc}
}

// Generate handles POST /api/screenshots
func (h *ScreenshotHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if req.URL == "" {
		Error(w, http.StatusBadRequest, "invalid_url", "URL is required")
		return
	}

	// A share link's t= parameter fills in for an absent timestamp.
	if req.Hours == 0 && req.Minutes == 0 && req.Seconds == 0 {
		ts := youtube.ExtractTimestamp(req.URL)
		req.Hours, req.Minutes, req.Seconds = ts.Hours, ts.Minutes, ts.Seconds
	}

	start := time.Now()
	outcome := metrics.OutcomeError
	defer func() {
		metrics.RequestDurationSeconds.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	}()

	output, err := h.svc.GenerateScreenshots(r.Context(), usecase.GenerateInput{
		URL:     req.URL,
		Hours:   req.Hours,
		Minutes: req.Minutes,
		Seconds: req.Seconds,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	if output.Cached {
		outcome = metrics.OutcomeCached
	} else {
		outcome = metrics.OutcomeGenerated
	}

	JSON(w, http.StatusOK, GenerateResponse{
		Success:        true,
		VideoID:        output.VideoID,
		Timestamp:      output.Timestamp,
		Screenshots:    output.Screenshots,
		Cached:         output.Cached,
		ProcessingTime: math.Round(time.Since(start).Seconds()*1000) / 1000,
	})
}

// Single handles GET /api/cli/screenshot
// It returns the PNG directly, for curl-style consumption.
func (h *ScreenshotHandler) Single(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		Error(w, http.StatusBadRequest, "invalid_url", "URL query parameter is required")
		return
	}

	timestamp := 0
	if raw := r.URL.Query().Get("timestamp"); raw != "" {
		var err error
		if timestamp, err = strconv.Atoi(raw); err != nil {
			Error(w, http.StatusBadRequest, "invalid_timestamp", "Timestamp must be an integer")
			return
		}
	} else {
		timestamp = youtube.ExtractTimestamp(url).TotalSeconds()
	}

	quality := model.QualityHigh
	if raw := r.URL.Query().Get("quality"); raw != "" {
		quality = model.Quality(raw)
		if !quality.IsValid() {
			Error(w, http.StatusBadRequest, "invalid_quality", "Quality must be one of: ultra, high, medium, low")
			return
		}
	}

	data, err := h.svc.SingleScreenshot(r.Context(), usecase.SingleInput{
		URL:       url,
		Timestamp: timestamp,
		Quality:   quality,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(data)
}

// Preview handles GET /preview/{filename}
func (h *ScreenshotHandler) Preview(w http.ResponseWriter, r *http.Request) {
	h.serveByFileName(w, r, false)
}

// Download handles GET /download/{filename}
func (h *ScreenshotHandler) Download(w http.ResponseWriter, r *http.Request) {
	h.serveByFileName(w, r, true)
}

func (h *ScreenshotHandler) serveByFileName(w http.ResponseWriter, r *http.Request, attachment bool) {
	filename := chi.URLParam(r, "filename")
	// Legacy clients prepend "screenshot_" to the canonical name.
	filename = strings.TrimPrefix(filename, "screenshot_")

	data, err := h.svc.ScreenshotByFileName(r.Context(), filename)
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid_filename", "Malformed screenshot file name")
		return
	}
	if data == nil {
		Error(w, http.StatusNotFound, "not_found", "Screenshot not found")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	if attachment {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	}
	_, _ = w.Write(data)
}

// thumbnailVariants maps variant names to the YouTube image host's file names.
var thumbnailVariants = map[string]string{
	"maxres":   "maxresdefault.jpg",
	"standard": "sddefault.jpg",
	"high":     "hqdefault.jpg",
	"medium":   "mqdefault.jpg",
	"default":  "default.jpg",
}

type ThumbnailsResponse struct {
	Thumbnails map[string]string `json:"thumbnails"`
}

// Thumbnails handles GET /api/thumbnails/{videoID}
func (h *ScreenshotHandler) Thumbnails(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoID")
	if videoID == "" {
		Error(w, http.StatusBadRequest, "invalid_video_id", "Video ID is required")
		return
	}

	thumbnails := make(map[string]string, len(thumbnailVariants))
	for name, file := range thumbnailVariants {
		thumbnails[name] = fmt.Sprintf("https://img.youtube.com/vi/%s/%s", videoID, file)
	}

	JSON(w, http.StatusOK, ThumbnailsResponse{Thumbnails: thumbnails})
}

func (h *ScreenshotHandler) handleServiceError(w http.ResponseWriter, err error) {
	var qualityErr *usecase.QualityUnavailableError
	var rangeErr *usecase.TimestampOutOfRangeError

	switch {
	case errors.Is(err, youtube.ErrInvalidURL):
		Error(w, http.StatusBadRequest, "invalid_url", "Invalid YouTube URL - cannot extract video ID")
	case errors.Is(err, model.ErrNegativeTimestamp):
		Error(w, http.StatusBadRequest, "invalid_timestamp", "Timestamp cannot be negative")
	case errors.As(err, &rangeErr):
		Error(w, http.StatusBadRequest, "timestamp_out_of_range", rangeErr.Error())
	case errors.Is(err, usecase.ErrUnknownDuration):
		Error(w, http.StatusBadRequest, "unknown_duration", "Could not retrieve video duration")
	case errors.As(err, &qualityErr):
		Error(w, http.StatusBadRequest, "quality_unavailable", qualityErr.Error())
	case errors.Is(err, resolver.ErrNoStreams):
		Error(w, http.StatusNotFound, "no_streams", "No usable streams found for this video")
	case errors.Is(err, usecase.ErrExtractionFailed):
		Error(w, http.StatusInternalServerError, "extraction_failed", "Failed to generate screenshots")
	default:
		Error(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}
