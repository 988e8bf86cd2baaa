package infra

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("PORT", "")
	t.Setenv("PUBLIC_BASE_URL", "")
	t.Setenv("SYNC_INTERVAL_MINUTES", "")
	t.Setenv("GITHUB_TOKEN", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.PublicBaseURL != "http://localhost:8080" {
		t.Fatalf("PublicBaseURL mismatch: got %q", cfg.PublicBaseURL)
	}
	if cfg.SyncInterval != time.Hour {
		t.Fatalf("SyncInterval mismatch: got %s want 1h", cfg.SyncInterval)
	}
	if cfg.ThumbnailPublicPrefix != "/images" {
		t.Fatalf("ThumbnailPublicPrefix mismatch: got %q", cfg.ThumbnailPublicPrefix)
	}
	if cfg.GitHubToken != "" {
		t.Fatalf("expected empty dispatch token, got %q", cfg.GitHubToken)
	}
}

func TestLoadConfigTrimsPublicBaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("PUBLIC_BASE_URL", "https://fans.example.com/")
	t.Setenv("SYNC_INTERVAL_MINUTES", "15")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.PublicBaseURL != "https://fans.example.com" {
		t.Fatalf("PublicBaseURL mismatch: got %q", cfg.PublicBaseURL)
	}
	if cfg.SyncInterval != 15*time.Minute {
		t.Fatalf("SyncInterval mismatch: got %s", cfg.SyncInterval)
	}
}

func TestLoadConfigRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error when DATABASE_URL is missing")
	}
}

func TestLoadConfigRejectsNonPositiveInterval(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("SYNC_INTERVAL_MINUTES", "0")

	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error for zero sync interval")
	}
}

func TestRequireJWTSecret(t *testing.T) {
	cfg := &Config{}
	if err := cfg.RequireJWTSecret(); err == nil {
		t.Fatalf("expected error for empty secret")
	}
	cfg.JWTSecret = "secret"
	if err := cfg.RequireJWTSecret(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadConfigParsesCORSOrigins(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://admin.example.com, ,http://localhost:5173 ")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	expected := []string{"https://admin.example.com", "http://localhost:5173"}
	if len(cfg.CORSOrigins) != len(expected) {
		t.Fatalf("CORSOrigins mismatch: got %#v want %#v", cfg.CORSOrigins, expected)
	}
	for i, origin := range expected {
		if cfg.CORSOrigins[i] != origin {
			t.Fatalf("CORSOrigins[%d] = %q, want %q", i, cfg.CORSOrigins[i], origin)
		}
	}
}
