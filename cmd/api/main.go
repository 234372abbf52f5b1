package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/mtsk-dev/snapframe/internal/api/handler"
	"github.com/mtsk-dev/snapframe/internal/api/middleware"
	"github.com/mtsk-dev/snapframe/internal/config"
	"github.com/mtsk-dev/snapframe/internal/domain/repository"
	"github.com/mtsk-dev/snapframe/internal/extractor"
	"github.com/mtsk-dev/snapframe/internal/infrastructure/cache"
	"github.com/mtsk-dev/snapframe/internal/infrastructure/storage"
	"github.com/mtsk-dev/snapframe/internal/resolver"
	"github.com/mtsk-dev/snapframe/internal/usecase"
	"github.com/mtsk-dev/snapframe/internal/worker"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	store, cleanup, err := buildStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()
	logger.Info("durable store ready", slog.String("backend", cfg.Storage.Backend))

	pool := worker.NewPool(worker.PoolConfig{Workers: cfg.Cache.WriteWorkers})
	defer pool.Stop()

	mlCache, err := cache.NewMultiLevelCache(store, pool, cache.Config{
		ScreenshotCapacity: cfg.Cache.ScreenshotCapacity,
		MetadataCapacity:   cfg.Cache.MetadataCapacity,
	})
	if err != nil {
		return fmt.Errorf("failed to create cache: %w", err)
	}

	svc := usecase.NewScreenshotService(
		mlCache,
		cache.NewStreamCache(cfg.Cache.StreamCapacity, cfg.Cache.StreamTTL),
		resolver.NewYTDLPResolver(resolver.Config{
			YTDLPPath: cfg.Tools.YTDLPPath,
			Timeout:   cfg.Tools.YTDLPTimeout,
		}),
		extractor.NewFFmpegExtractor(extractor.Config{
			FFmpegPath: cfg.Tools.FFmpegPath,
			WorkDir:    cfg.Tools.FFmpegWorkDir,
			Timeout:    cfg.Tools.FFmpegTimeout,
		}),
		usecase.ServiceConfig{MaxParallelExtractions: cfg.Tools.MaxExtractions},
	)

	limiter := middleware.NewRateLimiter(cfg.Server.RateLimit, time.Minute)
	defer limiter.Stop()

	r := setupRouter(logger, svc, limiter, cfg.Server.RateLimit)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down server", slog.String("signal", sig.String()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

func setupRouter(logger *slog.Logger, svc usecase.ScreenshotService, limiter *middleware.RateLimiter, rateLimit int) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))

	screenshots := handler.NewScreenshotHandler(svc)
	status := handler.NewStatusHandler(svc, rateLimit)

	r.Get("/health", status.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/preview/{filename}", screenshots.Preview)
	r.Get("/download/{filename}", screenshots.Download)

	r.Route("/api", func(r chi.Router) {
		r.Use(limiter.Limit)
		r.Post("/screenshots", screenshots.Generate)
		r.Get("/cli/screenshot", screenshots.Single)
		r.Get("/thumbnails/{videoID}", screenshots.Thumbnails)
		r.Get("/cache-stats", status.CacheStats)
	})

	return r
}

// buildStore constructs the durable backend selected by configuration.
func buildStore(ctx context.Context, cfg *config.Config) (repository.ScreenshotStore, func(), error) {
	noop := func() {}

	switch cfg.Storage.Backend {
	case "fs":
		store, err := storage.NewFSStore(storage.FSConfig{
			Dir: cfg.Storage.Dir,
			TTL: cfg.Cache.DurableTTL,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open filesystem store: %w", err)
		}
		return store, noop, nil

	case "minio":
		store, err := storage.NewMinioStore(ctx, storage.MinioConfig{
			Endpoint:  cfg.MinIO.Endpoint,
			AccessKey: cfg.MinIO.AccessKey,
			SecretKey: cfg.MinIO.SecretKey,
			Bucket:    cfg.MinIO.Bucket,
			UseSSL:    cfg.MinIO.UseSSL,
			TTL:       cfg.Cache.DurableTTL,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to MinIO: %w", err)
		}
		return store, noop, nil

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		return storage.NewRedisStore(client, cfg.Cache.DurableTTL), func() { _ = client.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend: %q", cfg.Storage.Backend)
	}
}
