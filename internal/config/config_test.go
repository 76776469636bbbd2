package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" || cfg.CSVFile != "select.csv" || cfg.RedisURL != "" {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.LogLevel != slog.LevelInfo || cfg.ArchiveTTL != 720*time.Hour || cfg.GeocodeCacheSize != 4096 {
		t.Errorf("defaults = %+v", cfg)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("ARCHIVE_TTL", "90m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9999" || cfg.LogLevel != slog.LevelDebug {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.RedisURL != "redis://localhost:6379/0" || cfg.ArchiveTTL != 90*time.Minute {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadRejectsBadCacheSize(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("GEOCODE_CACHE_SIZE", "0")
	if _, err := Load(); err == nil {
		t.Error("zero cache size accepted")
	}
}
