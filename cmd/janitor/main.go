// The janitor removes expired entries from the durable store. It is a
// one-shot process meant to run on a schedule (cron, systemd timer).
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mtsk-dev/snapframe/internal/config"
	"github.com/mtsk-dev/snapframe/internal/domain/repository"
	"github.com/mtsk-dev/snapframe/internal/infrastructure/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
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

	start := time.Now()
	removed, err := store.PurgeExpired(ctx)
	if err != nil {
		return fmt.Errorf("purge failed: %w", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		return fmt.Errorf("stats failed: %w", err)
	}

	logger.Info("purge completed",
		slog.String("backend", cfg.Storage.Backend),
		slog.Int("removed", removed),
		slog.Int("screenshots_remaining", stats.ScreenshotCount),
		slog.Int("metadata_remaining", stats.MetadataCount),
		slog.Int64("total_bytes", stats.TotalBytes),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

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
