package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server settings
	ServerPort   string        `json:"server_port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
	Debug        bool          `json:"debug"`

	// Application paths
	LogDir    string `json:"log_dir"`
	UploadDir string `json:"upload_dir"`
	CacheDir  string `json:"cache_dir"`

	// Middleware settings
	Middleware MiddlewareConfig `json:"middleware"`

	// CORS Configuration
	CORS CORSConfig `json:"cors"`

	// Rate Limiting
	RateLimit RateLimitConfig `json:"rate_limit"`

	// Database settings
	Database DatabaseConfig `json:"database"`

	// Transcoder settings
	Transcode TranscodeConfig `json:"transcode"`

	// Artifact cache settings
	Cache CacheConfig `json:"cache"`

	// Streaming settings
	Stream StreamConfig `json:"stream"`

	// Upload limits
	MaxUploadSize int64 `json:"max_upload_size"`

	// Application version
	Version string `json:"version"`

	// Request and shutdown timeouts
	RequestTimeout  time.Duration `json:"request_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
}

type MiddlewareConfig struct {
	EnableRecover   bool `json:"enable_recover"`
	EnableRequestID bool `json:"enable_request_id"`
	EnableLogger    bool `json:"enable_logger"`
	EnableCORS      bool `json:"enable_cors"`
	EnableRateLimit bool `json:"enable_rate_limit"`
	EnableCompress  bool `json:"enable_compress"`
	EnableETag      bool `json:"enable_etag"`
}

type DatabaseConfig struct {
	Path               string        `json:"path"`
	MaxConnections     int           `json:"max_connections"`
	MaxIdleConnections int           `json:"max_idle_connections"`
	ConnMaxLifetime    time.Duration `json:"conn_max_lifetime"`
}

type TranscodeConfig struct {
	FFmpegPath     string        `json:"ffmpeg_path"`
	FFprobePath    string        `json:"ffprobe_path"`
	SegmentSeconds float64       `json:"segment_seconds"`
	Workers        int           `json:"workers"`
	Timeout        time.Duration `json:"timeout"`

	// Thumbnail generation is an on-demand ffmpeg invocation, paced
	// separately from the HTTP rate limiter.
	ThumbnailsPerSecond float64 `json:"thumbnails_per_second"`
	ThumbnailBurst      int     `json:"thumbnail_burst"`
}

type CacheConfig struct {
	TTL           time.Duration `json:"ttl"`
	SweepInterval time.Duration `json:"sweep_interval"`
}

type StreamConfig struct {
	ChunkSize int64 `json:"chunk_size"`
}

type CORSConfig struct {
	AllowedOrigins []string `json:"allowed_origins"`
	AllowedMethods []string `json:"allowed_methods"`
	AllowedHeaders []string `json:"allowed_headers"`
	MaxAge         int      `json:"max_age"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `json:"requests_per_minute"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		// Server settings
		ServerPort:   getEnv("SERVER_PORT", "4000"),
		ReadTimeout:  getEnvAsDuration("READ_TIMEOUT", 15*time.Second),
		WriteTimeout: getEnvAsDuration("WRITE_TIMEOUT", 60*time.Second),
		IdleTimeout:  getEnvAsDuration("IDLE_TIMEOUT", 60*time.Second),
		Debug:        getEnvAsBool("DEBUG", false),

		// Application paths
		LogDir:    getEnv("LOG_DIR", "/var/log/phrasevid"),
		UploadDir: getEnv("UPLOAD_DIR", "./uploads"),
		CacheDir:  getEnv("CACHE_DIR", "./cache"),

		// Application version
		Version: getEnv("VERSION", "1.0.0"),

		// Request and shutdown timeouts
		RequestTimeout:  getEnvAsDuration("REQUEST_TIMEOUT", 10*time.Minute),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		// Upload limits
		MaxUploadSize: getEnvAsInt64("MAX_UPLOAD_SIZE", 2*1024*1024*1024),

		// CORS Configuration
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsStringSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsStringSlice(
				"CORS_ALLOWED_METHODS",
				[]string{"GET", "POST", "OPTIONS"},
			),
			AllowedHeaders: getEnvAsStringSlice(
				"CORS_ALLOWED_HEADERS",
				[]string{"Content-Type", "Range"},
			),
			MaxAge: getEnvAsInt("CORS_MAX_AGE", 86400),
		},

		// Rate Limiting
		RateLimit: RateLimitConfig{
			RequestsPerMinute: getEnvAsInt("RATE_LIMIT_RPM", 120),
		},

		// Database
		Database: DatabaseConfig{
			Path:               getEnv("DB_PATH", "/var/lib/phrasevid/data.db"),
			MaxConnections:     getEnvAsInt("DB_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DB_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    getEnvAsDuration("DB_CONN_MAX_LIFETIME", time.Hour),
		},

		// Transcoder
		Transcode: TranscodeConfig{
			FFmpegPath:          getEnv("FFMPEG_PATH", "ffmpeg"),
			FFprobePath:         getEnv("FFPROBE_PATH", "ffprobe"),
			SegmentSeconds:      getEnvAsFloat("SEGMENT_SECONDS", 10),
			Workers:             getEnvAsInt("TRANSCODE_WORKERS", 4),
			Timeout:             getEnvAsDuration("TRANSCODE_TIMEOUT", 5*time.Minute),
			ThumbnailsPerSecond: getEnvAsFloat("THUMBNAILS_PER_SECOND", 2),
			ThumbnailBurst:      getEnvAsInt("THUMBNAIL_BURST", 4),
		},

		// Artifact cache
		Cache: CacheConfig{
			TTL:           getEnvAsDuration("CACHE_TTL", 24*time.Hour),
			SweepInterval: getEnvAsDuration("CACHE_SWEEP_INTERVAL", time.Hour),
		},

		// Streaming
		Stream: StreamConfig{
			ChunkSize: getEnvAsInt64("STREAM_CHUNK_SIZE", 1_000_000),
		},

		// Middleware
		Middleware: MiddlewareConfig{
			EnableRecover:   true,
			EnableRequestID: true,
			EnableLogger:    true,
			EnableCORS:      true,
			EnableRateLimit: getEnvAsBool("RATE_LIMIT_ENABLED", true),
			EnableCompress:  getEnvAsBool("COMPRESS_ENABLED", false),
			EnableETag:      getEnvAsBool("ETAG_ENABLED", false),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("read timeout must be positive")
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("write timeout must be positive")
	}
	if c.Transcode.SegmentSeconds <= 0 {
		return fmt.Errorf("segment length must be positive")
	}
	if c.Transcode.Workers <= 0 {
		return fmt.Errorf("transcode worker count must be positive")
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache TTL must be positive")
	}
	if c.Stream.ChunkSize <= 0 {
		return fmt.Errorf("stream chunk size must be positive")
	}
	if c.MaxUploadSize <= 0 {
		return fmt.Errorf("max upload size must be positive")
	}
	return nil
}

// EnsureDirs provisions every directory the service writes to. Called once
// from main; nothing else creates directories.
func (c *Config) EnsureDirs() error {
	dirs := []struct {
		path string
		name string
	}{
		{c.LogDir, "log directory"},
		{c.UploadDir, "upload directory"},
		{c.CacheDir, "cache directory"},
		{filepath.Dir(c.Database.Path), "database directory"},
	}

	for _, d := range dirs {
		if err := os.MkdirAll(d.path, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", d.name, err)
		}
	}

	return nil
}

// Helper functions for reading environment variables
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsStringSlice(key string, defaultValue []string) []string {
	if value, exists := os.LookupEnv(key); exists {
		if value = strings.TrimSpace(value); value != "" {
			return strings.Split(value, ",")
		}
	}
	return defaultValue
}
