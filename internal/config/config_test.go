package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_PORT", "")
	t.Setenv("APP_TIMEZONE", "")
	t.Setenv("REDIS_DB", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.Port != "5000" {
		t.Fatalf("App.Port = %q, want 5000", cfg.App.Port)
	}
	if cfg.App.Timezone != "America/Santiago" {
		t.Fatalf("App.Timezone = %q", cfg.App.Timezone)
	}
	if cfg.Redis.DB != 0 {
		t.Fatalf("Redis.DB = %d", cfg.Redis.DB)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_HOST", "127.0.0.1")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("HTTP_REQUEST_TIMEOUT_SECONDS", "5")
	t.Setenv("REDIS_RESOLUTION_CACHE_SECONDS", "not-a-number")
	t.Setenv("POSTGRES_RUN_MIGRATIONS", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.App.Addr(); got != "127.0.0.1:9090" {
		t.Fatalf("Addr = %q", got)
	}
	if got := cfg.App.RequestTimeout(); got != 5*time.Second {
		t.Fatalf("RequestTimeout = %s", got)
	}
	if got := cfg.Redis.ResolutionCacheTTL(); got != 300*time.Second {
		t.Fatalf("ResolutionCacheTTL = %s, want fallback 5m", got)
	}
	if cfg.Postgres.RunMigrations {
		t.Fatalf("RunMigrations should be false")
	}
}

func TestLoadRejectsInvalidRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "two")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for invalid REDIS_DB")
	}
}

func TestLocationFallsBackToUTC(t *testing.T) {
	if loc := (AppConfig{Timezone: "Not/AZone"}).Location(); loc != time.UTC {
		t.Fatalf("Location = %v, want UTC", loc)
	}
	if loc := (AppConfig{}).Location(); loc != time.UTC {
		t.Fatalf("Location = %v, want UTC", loc)
	}
}

func TestLoadRejectsUnknownTimezone(t *testing.T) {
	t.Setenv("APP_TIMEZONE", "America/Atlantis")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for unknown APP_TIMEZONE")
	}

	t.Setenv("APP_TIMEZONE", "Europe/Madrid")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.App.Location().String(); got != "Europe/Madrid" {
		t.Fatalf("Location = %s", got)
	}
}

func TestRedisAddr(t *testing.T) {
	t.Setenv("REDIS_ADDR", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Redis.Addr != "" || cfg.Redis.Enabled() {
		t.Fatalf("empty REDIS_ADDR should disable redis, got %q", cfg.Redis.Addr)
	}

	os.Unsetenv("REDIS_ADDR")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Redis.Addr != "127.0.0.1:6379" || !cfg.Redis.Enabled() {
		t.Fatalf("unset REDIS_ADDR should use the default, got %q", cfg.Redis.Addr)
	}
}
