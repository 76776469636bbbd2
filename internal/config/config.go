package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr   string     `env:"HTTP_ADDR" envDefault:":8080"`
	DBPath     string     `env:"DB_PATH" envDefault:"data/plonk.db"`
	LogLevel   slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	CSVFile    string     `env:"CSV_FILE" envDefault:"select.csv"`
	ImageDir   string     `env:"IMAGE_DIR" envDefault:"images"`
	ResultsDir string     `env:"RESULTS_DIR" envDefault:"results"`
	CitiesFile string     `env:"CITIES_FILE" envDefault:"data/cities.csv"`
	SPADir     string     `env:"SPA_DIR"`

	// An empty RedisURL disables result uploads.
	RedisURL   string        `env:"REDIS_URL"`
	ArchiveTTL time.Duration `env:"ARCHIVE_TTL" envDefault:"720h"`

	GeocodeCacheSize int `env:"GEOCODE_CACHE_SIZE" envDefault:"4096"`
	MaxSessions      int `env:"MAX_SESSIONS" envDefault:"10000"`
}

// Load reads the environment, after loading .env from the working
// directory if one exists. Variables already set take precedence over .env.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if cfg.GeocodeCacheSize <= 0 {
		return nil, fmt.Errorf("GEOCODE_CACHE_SIZE must be positive, got %d", cfg.GeocodeCacheSize)
	}
	return &cfg, nil
}
