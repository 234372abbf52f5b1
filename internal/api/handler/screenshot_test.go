package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/mtsk-dev/snapframe/internal/domain/model"
	"github.com/mtsk-dev/snapframe/internal/infrastructure/cache"
	"github.com/mtsk-dev/snapframe/internal/usecase"
	"github.com/mtsk-dev/snapframe/internal/youtube"
)

// mockScreenshotService provides a configurable mock for ScreenshotService.
type mockScreenshotService struct {
	generateFn   func(ctx context.Context, input usecase.GenerateInput) (*usecase.GenerateOutput, error)
	singleFn     func(ctx context.Context, input usecase.SingleInput) ([]byte, error)
	byFileNameFn func(ctx context.Context, filename string) ([]byte, error)
	statsFn      func() cache.Stats
	streamLenFn  func() int
}

func (m *mockScreenshotService) GenerateScreenshots(ctx context.Context, input usecase.GenerateInput) (*usecase.GenerateOutput, error) {
	if m.generateFn != nil {
		return m.generateFn(ctx, input)
	}
	return &usecase.GenerateOutput{}, nil
}

func (m *mockScreenshotService) SingleScreenshot(ctx context.Context, input usecase.SingleInput) ([]byte, error) {
	if m.singleFn != nil {
		return m.singleFn(ctx, input)
	}
	return nil, nil
}

func (m *mockScreenshotService) ScreenshotByFileName(ctx context.Context, filename string) ([]byte, error) {
	if m.byFileNameFn != nil {
		return m.byFileNameFn(ctx, filename)
	}
	return nil, nil
}

func (m *mockScreenshotService) CacheStats() cache.Stats {
	if m.statsFn != nil {
		return m.statsFn()
	}
	return cache.Stats{}
}

func (m *mockScreenshotService) StreamCacheLen() int {
	if m.streamLenFn != nil {
		return m.streamLenFn()
	}
	return 0
}

func newTestRouter(svc usecase.ScreenshotService) http.Handler {
	h := NewScreenshotHandler(svc)
	status := NewStatusHandler(svc, 10)

	r := chi.NewRouter()
	r.Post("/api/screenshots", h.Generate)
	r.Get("/api/cli/screenshot", h.Single)
	r.Get("/api/thumbnails/{videoID}", h.Thumbnails)
	r.Get("/preview/{filename}", h.Preview)
	r.Get("/download/{filename}", h.Download)
	r.Get("/health", status.Health)
	r.Get("/api/cache-stats", status.CacheStats)
	return r
}

func TestGenerate_Success(t *testing.T) {
	svc := &mockScreenshotService{
		generateFn: func(ctx context.Context, input usecase.GenerateInput) (*usecase.GenerateOutput, error) {
			if input.URL != "https://youtu.be/dQw4w9WgXcQ" || input.Minutes != 1 || input.Seconds != 30 {
				t.Errorf("unexpected input: %+v", input)
			}
			return &usecase.GenerateOutput{
				VideoID:   "dQw4w9WgXcQ",
				Timestamp: 90,
				Screenshots: []model.Screenshot{
					{Quality: model.QualityHigh, Name: "High (720p)", FileName: "dQw4w9WgXcQ_90_high.png"},
				},
				Cached: true,
			}, nil
		},
	}
	router := newTestRouter(svc)

	body := bytes.NewBufferString(`{"url":"https://youtu.be/dQw4w9WgXcQ","minutes":1,"seconds":30}`)
	req := httptest.NewRequest(http.MethodPost, "/api/screenshots", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body = %s", rec.Code, rec.Body.String())
	}

	var resp GenerateResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success || !resp.Cached {
		t.Errorf("response = %+v, want success and cached", resp)
	}
	if resp.VideoID != "dQw4w9WgXcQ" || resp.Timestamp != 90 {
		t.Errorf("response = %s @ %d, want dQw4w9WgXcQ @ 90", resp.VideoID, resp.Timestamp)
	}
	if len(resp.Screenshots) != 1 {
		t.Errorf("got %d screenshots, want 1", len(resp.Screenshots))
	}
}

func TestGenerate_TimestampFromShareLink(t *testing.T) {
	svc := &mockScreenshotService{
		generateFn: func(ctx context.Context, input usecase.GenerateInput) (*usecase.GenerateOutput, error) {
			if input.Hours != 0 || input.Minutes != 1 || input.Seconds != 30 {
				t.Errorf("timestamp = %d:%d:%d, want 0:1:30 from the URL's t= parameter",
					input.Hours, input.Minutes, input.Seconds)
			}
			return &usecase.GenerateOutput{}, nil
		},
	}
	router := newTestRouter(svc)

	body := bytes.NewBufferString(`{"url":"https://youtu.be/dQw4w9WgXcQ?t=90"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/screenshots", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body = %s", rec.Code, rec.Body.String())
	}
}

func TestGenerate_ExplicitTimestampBeatsShareLink(t *testing.T) {
	svc := &mockScreenshotService{
		generateFn: func(ctx context.Context, input usecase.GenerateInput) (*usecase.GenerateOutput, error) {
			if input.Minutes != 5 || input.Seconds != 0 {
				t.Errorf("timestamp = %d:%d:%d, want the body's 0:5:0",
					input.Hours, input.Minutes, input.Seconds)
			}
			return &usecase.GenerateOutput{}, nil
		},
	}
	router := newTestRouter(svc)

	body := bytes.NewBufferString(`{"url":"https://youtu.be/dQw4w9WgXcQ?t=90","minutes":5}`)
	req := httptest.NewRequest(http.MethodPost, "/api/screenshots", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body = %s", rec.Code, rec.Body.String())
	}
}

func TestGenerate_InvalidBody(t *testing.T) {
	router := newTestRouter(&mockScreenshotService{})

	req := httptest.NewRequest(http.MethodPost, "/api/screenshots", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestGenerate_InvalidURLMapsTo400(t *testing.T) {
	svc := &mockScreenshotService{
		generateFn: func(ctx context.Context, input usecase.GenerateInput) (*usecase.GenerateOutput, error) {
			return nil, youtube.ErrInvalidURL
		},
	}
	router := newTestRouter(svc)

	body := bytes.NewBufferString(`{"url":"https://vimeo.com/12345"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/screenshots", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestGenerate_TimestampOutOfRangeMapsTo400(t *testing.T) {
	svc := &mockScreenshotService{
		generateFn: func(ctx context.Context, input usecase.GenerateInput) (*usecase.GenerateOutput, error) {
			return nil, &usecase.TimestampOutOfRangeError{
				Requested: youtube.Timestamp{Minutes: 10},
				Duration:  300,
			}
		},
	}
	router := newTestRouter(svc)

	body := bytes.NewBufferString(`{"url":"https://youtu.be/dQw4w9WgXcQ","minutes":10}`)
	req := httptest.NewRequest(http.MethodPost, "/api/screenshots", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "exceeds video duration") {
		t.Errorf("body %q should explain the duration bound", rec.Body.String())
	}
}

func TestSingle_ReturnsPNG(t *testing.T) {
	svc := &mockScreenshotService{
		singleFn: func(ctx context.Context, input usecase.SingleInput) ([]byte, error) {
			if input.Quality != model.QualityMedium || input.Timestamp != 42 {
				t.Errorf("unexpected input: %+v", input)
			}
			return []byte("png-bytes"), nil
		},
	}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/cli/screenshot?url=https://youtu.be/dQw4w9WgXcQ&timestamp=42&quality=medium", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body = %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q, want image/png", ct)
	}
	if rec.Body.String() != "png-bytes" {
		t.Errorf("body = %q, want the PNG bytes", rec.Body.String())
	}
}

func TestSingle_DefaultsToHighQuality(t *testing.T) {
	var got model.Quality
	svc := &mockScreenshotService{
		singleFn: func(ctx context.Context, input usecase.SingleInput) ([]byte, error) {
			got = input.Quality
			return []byte("png-bytes"), nil
		},
	}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/cli/screenshot?url=https://youtu.be/dQw4w9WgXcQ", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if got != model.QualityHigh {
		t.Errorf("quality = %s, want high by default", got)
	}
}

func TestSingle_TimestampFromShareLink(t *testing.T) {
	var got int
	svc := &mockScreenshotService{
		singleFn: func(ctx context.Context, input usecase.SingleInput) ([]byte, error) {
			got = input.Timestamp
			return []byte("png-bytes"), nil
		},
	}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/cli/screenshot?url=https://youtu.be/dQw4w9WgXcQ?t=1m30s", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body = %s", rec.Code, rec.Body.String())
	}
	if got != 90 {
		t.Errorf("timestamp = %d, want 90 from the URL's t= parameter", got)
	}
}

func TestSingle_InvalidQuality(t *testing.T) {
	router := newTestRouter(&mockScreenshotService{})

	req := httptest.NewRequest(http.MethodGet, "/api/cli/screenshot?url=https://youtu.be/dQw4w9WgXcQ&quality=4k", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestSingle_QualityUnavailableMapsTo400(t *testing.T) {
	svc := &mockScreenshotService{
		singleFn: func(ctx context.Context, input usecase.SingleInput) ([]byte, error) {
			return nil, &usecase.QualityUnavailableError{
				Quality:   model.QualityUltra,
				Available: []model.Quality{model.QualityMedium, model.QualityLow},
			}
		},
	}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/cli/screenshot?url=https://youtu.be/dQw4w9WgXcQ&quality=ultra", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "options") {
		t.Errorf("body %q should list available qualities", rec.Body.String())
	}
}

func TestPreview_ServesFromCache(t *testing.T) {
	svc := &mockScreenshotService{
		byFileNameFn: func(ctx context.Context, filename string) ([]byte, error) {
			if filename != "dQw4w9WgXcQ_90_high.png" {
				t.Errorf("filename = %q, want canonical name with prefix stripped", filename)
			}
			return []byte("png-bytes"), nil
		},
	}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/preview/screenshot_dQw4w9WgXcQ_90_high.png", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Header().Get("Content-Disposition") != "" {
		t.Error("preview must not force a download")
	}
}

func TestDownload_SetsContentDisposition(t *testing.T) {
	svc := &mockScreenshotService{
		byFileNameFn: func(ctx context.Context, filename string) ([]byte, error) {
			return []byte("png-bytes"), nil
		},
	}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/download/dQw4w9WgXcQ_90_high.png", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	want := "attachment; filename=dQw4w9WgXcQ_90_high.png"
	if got := rec.Header().Get("Content-Disposition"); got != want {
		t.Errorf("Content-Disposition = %q, want %q", got, want)
	}
}

func TestPreview_NotFound(t *testing.T) {
	router := newTestRouter(&mockScreenshotService{})

	req := httptest.NewRequest(http.MethodGet, "/preview/dQw4w9WgXcQ_90_high.png", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestThumbnails(t *testing.T) {
	router := newTestRouter(&mockScreenshotService{})

	req := httptest.NewRequest(http.MethodGet, "/api/thumbnails/dQw4w9WgXcQ", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp ThumbnailsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Thumbnails) != 5 {
		t.Errorf("got %d variants, want 5", len(resp.Thumbnails))
	}
	want := "https://img.youtube.com/vi/dQw4w9WgXcQ/maxresdefault.jpg"
	if resp.Thumbnails["maxres"] != want {
		t.Errorf("maxres = %q, want %q", resp.Thumbnails["maxres"], want)
	}
}

func TestHealth_ReportsCacheStats(t *testing.T) {
	svc := &mockScreenshotService{
		statsFn: func() cache.Stats {
			return cache.Stats{Hits: 7, Misses: 3, MemoryHits: 5, DurableHits: 2}
		},
	}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "healthy" {
		t.Errorf("status = %q, want healthy", resp.Status)
	}
	if resp.CacheStats.Hits != 7 {
		t.Errorf("cache hits = %d, want 7", resp.CacheStats.Hits)
	}
	if !strings.Contains(resp.RateLimit, "10") {
		t.Errorf("rate limit %q should name the per-minute budget", resp.RateLimit)
	}
}

func TestCacheStats_HitRate(t *testing.T) {
	svc := &mockScreenshotService{
		statsFn: func() cache.Stats {
			return cache.Stats{Hits: 3, Misses: 1}
		},
		streamLenFn: func() int { return 2 },
	}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/cache-stats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var resp CacheStatsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.HitRatePercentage != 75 {
		t.Errorf("hit rate = %v, want 75", resp.HitRatePercentage)
	}
	if resp.StreamCacheSize != 2 {
		t.Errorf("stream cache size = %d, want 2", resp.StreamCacheSize)
	}
}

func TestCacheStats_NoTraffic(t *testing.T) {
	router := newTestRouter(&mockScreenshotService{})

	req := httptest.NewRequest(http.MethodGet, "/api/cache-stats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var resp CacheStatsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.HitRatePercentage != 0 {
		t.Errorf("hit rate = %v, want 0 with no traffic", resp.HitRatePercentage)
	}
}
