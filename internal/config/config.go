package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server  ServerConfig
	Cache   CacheConfig
	Storage StorageConfig
	MinIO   MinIOConfig
	Redis   RedisConfig
	Tools   ToolsConfig
}

type ServerConfig struct {
	Port            int           `envconfig:"API_PORT" default:"8000"`
	ReadTimeout     time.Duration `envconfig:"API_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"API_WRITE_TIMEOUT" default:"120s"`
	ShutdownTimeout time.Duration `envconfig:"API_SHUTDOWN_TIMEOUT" default:"10s"`
	RateLimit       int           `envconfig:"API_RATE_LIMIT" default:"10"`
}

type CacheConfig struct {
	ScreenshotCapacity int           `envconfig:"CACHE_SCREENSHOT_CAPACITY" default:"100"`
	MetadataCapacity   int           `envconfig:"CACHE_METADATA_CAPACITY" default:"50"`
	StreamCapacity     int           `envconfig:"CACHE_STREAM_CAPACITY" default:"50"`
	StreamTTL          time.Duration `envconfig:"CACHE_STREAM_TTL" default:"30m"`
	DurableTTL         time.Duration `envconfig:"CACHE_DURABLE_TTL" default:"24h"`
	WriteWorkers       int           `envconfig:"CACHE_WRITE_WORKERS" default:"4"`
}

// StorageConfig selects the durable backend.
// Backend is one of: fs, minio, redis.
type StorageConfig struct {
	Backend string `envconfig:"STORAGE_BACKEND" default:"fs"`
	Dir     string `envconfig:"STORAGE_DIR" default:"/var/lib/snapframe"`
}

type MinIOConfig struct {
	Endpoint  string `envconfig:"MINIO_ENDPOINT" default:"localhost:9000"`
	AccessKey string `envconfig:"MINIO_ACCESS_KEY" default:"minioadmin"`
	SecretKey string `envconfig:"MINIO_SECRET_KEY" default:"minioadmin"`
	Bucket    string `envconfig:"MINIO_BUCKET" default:"screenshots"`
	UseSSL    bool   `envconfig:"MINIO_USE_SSL" default:"false"`
}

type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD" default:""`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type ToolsConfig struct {
	YTDLPPath      string        `envconfig:"YTDLP_PATH" default:"yt-dlp"`
	YTDLPTimeout   time.Duration `envconfig:"YTDLP_TIMEOUT" default:"60s"`
	FFmpegPath     string        `envconfig:"FFMPEG_PATH" default:"ffmpeg"`
	FFmpegTimeout  time.Duration `envconfig:"FFMPEG_TIMEOUT" default:"45s"`
	FFmpegWorkDir  string        `envconfig:"FFMPEG_WORK_DIR" default:""`
	MaxExtractions int           `envconfig:"MAX_PARALLEL_EXTRACTIONS" default:"4"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
