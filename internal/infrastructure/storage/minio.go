package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/mtsk-dev/snapframe/internal/domain/model"
	"github.com/mtsk-dev/snapframe/internal/domain/repository"
)

const (
	contentTypePNG  = "image/png"
	contentTypeJSON = "application/json"
)

// minioClient defines the interface for MinIO operations.
// This abstraction allows for easier unit testing with mocks.
type minioClient interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
}

// minioClientAdapter wraps *minio.Client to implement the minioClient
// interface. GetObject is narrowed to io.ReadCloser for testability.
type minioClientAdapter struct {
	client *minio.Client
}

func (a *minioClientAdapter) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	return a.client.BucketExists(ctx, bucketName)
}

func (a *minioClientAdapter) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	return a.client.PutObject(ctx, bucketName, objectName, reader, objectSize, opts)
}

func (a *minioClientAdapter) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	return a.client.GetObject(ctx, bucketName, objectName, opts)
}

func (a *minioClientAdapter) StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	return a.client.StatObject(ctx, bucketName, objectName, opts)
}

func (a *minioClientAdapter) RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error {
	return a.client.RemoveObject(ctx, bucketName, objectName, opts)
}

func (a *minioClientAdapter) ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	return a.client.ListObjects(ctx, bucketName, opts)
}

// MinioConfig holds configuration for the MinIO-backed store.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// TTL is the maximum object age before it is treated as absent.
	// Default: DefaultTTL.
	TTL time.Duration
}

// MinioStore implements repository.ScreenshotStore on a MinIO/S3 bucket.
// An object's LastModified time is its creation time for TTL purposes.
type MinioStore struct {
	client minioClient
	bucket string
	ttl    time.Duration

	now func() time.Time
}

var _ repository.ScreenshotStore = (*MinioStore)(nil)

// NewMinioStore creates a new MinIO-backed store.
// It verifies the bucket exists during initialization to fail fast on
// misconfiguration.
func NewMinioStore(ctx context.Context, cfg MinioConfig) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return newMinioStoreWithClient(ctx, &minioClientAdapter{client: client}, cfg.Bucket, cfg.TTL)
}

// newMinioStoreWithClient creates a MinioStore with a given minioClient
// implementation. This is used for dependency injection in tests.
func newMinioStoreWithClient(ctx context.Context, client minioClient, bucket string, ttl time.Duration) (*MinioStore, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", repository.ErrBucketNotFound, bucket)
	}

	return &MinioStore{
		client: client,
		bucket: bucket,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// PutScreenshot uploads the blob, overwriting silently if present.
func (s *MinioStore) PutScreenshot(ctx context.Context, key model.CacheKey, data []byte) error {
	objectName := path.Join(screenshotPrefix, screenshotObjectName(key))
	return s.put(ctx, objectName, data, contentTypePNG)
}

// GetScreenshot downloads the blob or returns nil, nil when it is absent,
// expired, or the backend fails transiently.
func (s *MinioStore) GetScreenshot(ctx context.Context, key model.CacheKey) ([]byte, error) {
	return s.getFresh(ctx, path.Join(screenshotPrefix, screenshotObjectName(key)))
}

// PutMetadata uploads the descriptor list as JSON.
func (s *MinioStore) PutMetadata(ctx context.Context, key model.MetadataKey, records []model.Screenshot) error {
	data, err := encodeMetadata(records)
	if err != nil {
		return err
	}
	objectName := path.Join(metadataPrefix, metadataObjectName(key))
	return s.put(ctx, objectName, data, contentTypeJSON)
}

// GetMetadata downloads and decodes the descriptor list, with the same
// absence/expiry semantics as GetScreenshot.
func (s *MinioStore) GetMetadata(ctx context.Context, key model.MetadataKey) ([]model.Screenshot, error) {
	data, err := s.getFresh(ctx, path.Join(metadataPrefix, metadataObjectName(key)))
	if err != nil || data == nil {
		return nil, err
	}

	records, err := decodeMetadata(data)
	if err != nil {
		slog.Warn("discarding unreadable metadata object",
			"key", key.String(),
			"error", err,
		)
		return nil, nil
	}
	return records, nil
}

func (s *MinioStore) put(ctx context.Context, objectName string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload object %s: %w", objectName, err)
	}
	return nil
}

// getFresh fetches an object if it exists and is younger than the TTL.
// Every failure mode on this path degrades to a cache miss.
func (s *MinioStore) getFresh(ctx context.Context, objectName string) ([]byte, error) {
	info, err := s.client.StatObject(ctx, s.bucket, objectName, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code != "NoSuchKey" {
			slog.Warn("stat object failed, treating as cache miss",
				"object", objectName,
				"error", err,
			)
		}
		return nil, nil
	}

	if s.expired(info.LastModified) {
		if err := s.client.RemoveObject(ctx, s.bucket, objectName, minio.RemoveObjectOptions{}); err != nil {
			slog.Warn("failed to remove expired object", "object", objectName, "error", err)
		}
		return nil, nil
	}

	obj, err := s.client.GetObject(ctx, s.bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		slog.Warn("get object failed, treating as cache miss",
			"object", objectName,
			"error", err,
		)
		return nil, nil
	}
	defer func() { _ = obj.Close() }()

	data, err := io.ReadAll(obj)
	if err != nil {
		slog.Warn("read object failed, treating as cache miss",
			"object", objectName,
			"error", err,
		)
		return nil, nil
	}
	return data, nil
}

func (s *MinioStore) expired(created time.Time) bool {
	return s.now().Sub(created) >= s.ttl
}

// Stats lists both prefixes and aggregates counts and sizes.
func (s *MinioStore) Stats(ctx context.Context) (*repository.StoreStats, error) {
	stats := &repository.StoreStats{
		PerQuality: make(map[model.Quality]int),
	}

	for info := range s.list(ctx, screenshotPrefix) {
		if info.Err != nil {
			return nil, fmt.Errorf("list screenshots: %w", info.Err)
		}
		stats.ScreenshotCount++
		stats.TotalBytes += info.Size
		if quality, ok := qualityFromObjectName(path.Base(info.Key)); ok {
			stats.PerQuality[quality]++
		}
	}

	for info := range s.list(ctx, metadataPrefix) {
		if info.Err != nil {
			return nil, fmt.Errorf("list metadata: %w", info.Err)
		}
		stats.MetadataCount++
		stats.TotalBytes += info.Size
	}

	return stats, nil
}

// PurgeExpired lists both prefixes and deletes every object older than the TTL.
func (s *MinioStore) PurgeExpired(ctx context.Context) (int, error) {
	removed := 0
	for _, prefix := range []string{screenshotPrefix, metadataPrefix} {
		for info := range s.list(ctx, prefix) {
			if info.Err != nil {
				return removed, fmt.Errorf("list %s: %w", prefix, info.Err)
			}
			if !s.expired(info.LastModified) {
				continue
			}
			if err := s.client.RemoveObject(ctx, s.bucket, info.Key, minio.RemoveObjectOptions{}); err != nil {
				slog.Warn("failed to remove expired object", "object", info.Key, "error", err)
				continue
			}
			removed++
		}
	}
	return removed, nil
}

func (s *MinioStore) list(ctx context.Context, prefix string) <-chan minio.ObjectInfo {
	return s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix + "/",
		Recursive: true,
	})
}
