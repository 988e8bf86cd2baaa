package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string
	JWTSecret   string
	CORSOrigins []string

	PublicBaseURL         string
	StoragePath           string
	ThumbnailPublicPrefix string
	ThumbnailMaxSize      int
	LargeMaxSize          int
	JPEGQuality           int
	WebPQuality           int
	FetchTimeout          time.Duration

	GitHubToken         string
	GitHubRepoOwner     string
	GitHubRepoName      string
	GitHubAPIBaseURL    string
	GitHubDispatchEvent string
	SyncInterval        time.Duration

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
// Dispatch credentials are optional here; the dispatcher reports them when a sync is attempted.
func LoadConfig() (*Config, error) {
	port := getEnv("PORT", "8080")
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        port,
		DatabaseURL: os.Getenv("DATABASE_URL"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		CORSOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),

		PublicBaseURL:         strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:"+port), "/"),
		StoragePath:           getEnv("STAGING_PATH", "./staging"),
		ThumbnailPublicPrefix: getEnv("THUMBNAIL_PUBLIC_PREFIX", "/images"),
		ThumbnailMaxSize:      getEnvInt("THUMBNAIL_MAX_SIZE", 400),
		LargeMaxSize:          getEnvInt("LARGE_MAX_SIZE", 1600),
		JPEGQuality:           getEnvInt("JPEG_QUALITY", 82),
		WebPQuality:           getEnvInt("WEBP_QUALITY", 80),
		FetchTimeout:          time.Second * time.Duration(getEnvInt("FETCH_TIMEOUT_SECONDS", 30)),

		GitHubToken:         strings.TrimSpace(os.Getenv("GITHUB_TOKEN")),
		GitHubRepoOwner:     strings.TrimSpace(os.Getenv("GITHUB_REPO_OWNER")),
		GitHubRepoName:      strings.TrimSpace(os.Getenv("GITHUB_REPO_NAME")),
		GitHubAPIBaseURL:    getEnv("GITHUB_API_BASE_URL", "https://api.github.com"),
		GitHubDispatchEvent: getEnv("GITHUB_DISPATCH_EVENT", "sync-thumbnails"),
		SyncInterval:        time.Minute * time.Duration(getEnvInt("SYNC_INTERVAL_MINUTES", 60)),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 900)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.SyncInterval <= 0 {
		return nil, fmt.Errorf("SYNC_INTERVAL_MINUTES must be positive")
	}
	if cfg.ThumbnailMaxSize <= 0 || cfg.LargeMaxSize <= 0 {
		return nil, fmt.Errorf("THUMBNAIL_MAX_SIZE and LARGE_MAX_SIZE must be positive")
	}

	return cfg, nil
}

// RequireJWTSecret reports an error when the HTTP surface cannot authenticate callers.
func (c *Config) RequireJWTSecret() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}
