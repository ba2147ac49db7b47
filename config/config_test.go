package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("ENV", "test")
	for _, key := range []string{"SERVER_PORT", "DB_QUERY_TIMEOUT", "STORAGE_BACKEND", "MQ_BACKEND", "VISION_BACKEND", "CORS_ALLOWED_ORIGINS", "PUBLIC_BASE_URL"} {
		t.Setenv(key, "")
	}

	cfg := LoadConfig()

	// Empty values fall back to defaults only for typed helpers.
	if cfg.ServerPort != 8000 {
		t.Fatalf("expected default port 8000, got %d", cfg.ServerPort)
	}
	if cfg.Database.QueryTimeout != 5*time.Second {
		t.Fatalf("expected default query timeout, got %s", cfg.Database.QueryTimeout)
	}
	if cfg.Storage.Backend != "" || cfg.MQ.Backend != "" || cfg.Vision.Backend != "" {
		t.Fatalf("expected optional backends to be disabled, got %+v %+v %+v", cfg.Storage.Backend, cfg.MQ.Backend, cfg.Vision.Backend)
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "*" {
		t.Fatalf("unexpected cors origins: %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("PUBLIC_BASE_URL", "https://api.example.com/")
	t.Setenv("DB_QUERY_TIMEOUT", "250ms")
	t.Setenv("DB_USE_SSL", "true")
	t.Setenv("VISION_BACKEND", "Gemini")
	t.Setenv("VISION_RATE_WINDOW", "90")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:5173, https://edita.app ,")

	cfg := LoadConfig()

	if cfg.ServerPort != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.ServerPort)
	}
	if cfg.PublicBaseURL != "https://api.example.com" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.PublicBaseURL)
	}
	if cfg.Database.QueryTimeout != 250*time.Millisecond {
		t.Fatalf("unexpected query timeout: %s", cfg.Database.QueryTimeout)
	}
	if !cfg.Database.UseSSL {
		t.Fatalf("expected ssl enabled")
	}
	if cfg.Vision.Backend != "gemini" {
		t.Fatalf("expected lower-cased backend, got %q", cfg.Vision.Backend)
	}
	if cfg.Redis.RateWindow != 90*time.Second {
		t.Fatalf("expected bare seconds to parse, got %s", cfg.Redis.RateWindow)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://edita.app" {
		t.Fatalf("unexpected cors origins: %v", cfg.CORSAllowedOrigins)
	}
}

func TestDatabaseURL(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5433, User: "edita", Password: "p@ss", DBName: "edita_db", UseSSL: true}

	got := d.URL()

	if !strings.HasPrefix(got, "postgres://edita:p%40ss@db:5433/edita_db") {
		t.Fatalf("unexpected url: %s", got)
	}
	if !strings.Contains(got, "sslmode=require") {
		t.Fatalf("expected sslmode=require in %s", got)
	}
}

func TestGetEnvIntInvalidFallsBack(t *testing.T) {
	t.Setenv("EDITA_TEST_INT", "abc")
	if got := getEnvInt("EDITA_TEST_INT", 7); got != 7 {
		t.Fatalf("expected fallback 7, got %d", got)
	}
}
