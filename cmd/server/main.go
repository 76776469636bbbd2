package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/plonkgame/plonk/internal/config"
	"github.com/plonkgame/plonk/internal/database"
	"github.com/plonkgame/plonk/internal/dataset"
	"github.com/plonkgame/plonk/internal/handler/health"
	"github.com/plonkgame/plonk/internal/migrations"
	"github.com/plonkgame/plonk/internal/reference"
	"github.com/plonkgame/plonk/internal/results"
	"github.com/plonkgame/plonk/internal/revgeo"
	"github.com/plonkgame/plonk/internal/server"
	"github.com/plonkgame/plonk/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	// --- SQLite ---
	db, err := database.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("connecting to sqlite: %w", err)
	}
	defer db.Close()

	if err := migrations.RunContext(ctx, db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("connected to sqlite", "path", cfg.DBPath)
	st := store.NewSQLiteStore(db)

	// --- Dataset and reference table ---
	ds, err := dataset.Load(cfg.CSVFile)
	if err != nil {
		return fmt.Errorf("loading dataset: %w", err)
	}
	logger.Info("dataset loaded", "path", cfg.CSVFile, "items", len(ds.Items), "fingerprint", ds.Fingerprint)

	cities, err := revgeo.LoadCities(cfg.CitiesFile)
	if err != nil {
		return fmt.Errorf("loading cities: %w", err)
	}
	geo, err := revgeo.NewGeocoder(cities, cfg.GeocodeCacheSize)
	if err != nil {
		return fmt.Errorf("building geocoder: %w", err)
	}
	logger.Info("geocoder ready", "cities", len(cities))

	table, err := reference.LoadOrBuild(ctx, logger, st, ds.Fingerprint, ds.Items, geo)
	if err != nil {
		return fmt.Errorf("preparing reference table: %w", err)
	}

	// --- Redis (optional) ---
	checks := map[string]health.Checker{"sqlite": dbChecker{db}}
	var uploader results.Uploader
	if cfg.RedisURL != "" {
		rdb, err := openRedis(ctx, logger, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer rdb.Close()
		uploader = results.NewRedisUploader(rdb, cfg.ArchiveTTL)
		checks["redis"] = redisChecker{rdb}
	} else {
		logger.Info("REDIS_URL not set, result uploads disabled")
	}

	files := results.NewFileRecorder(cfg.ResultsDir)

	// --- HTTP Server ---
	srv, err := server.New(cfg.HTTPAddr, logger, server.Deps{
		Items:       ds.Items,
		Table:       table,
		Fingerprint: ds.Fingerprint,
		Geocoder:    geo,
		Store:       st,
		Recorder:    files,
		Archiver:    results.NewArchiver(files, uploader, logger),
		ImageDir:    cfg.ImageDir,
		SPADir:      cfg.SPADir,
		MaxSessions: cfg.MaxSessions,
	}, func(r chi.Router) {
		r.Mount("/healthz", health.NewHandler(logger, checks).Routes())
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	return g.Wait()
}

// openRedis fails only on a malformed URL. An unreachable server is logged
// and the client kept: uploads are best-effort and redis may come up later.
func openRedis(ctx context.Context, logger *slog.Logger, rawURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable, uploads will fail until it is up", "addr", opt.Addr, "error", err)
		return rdb, nil
	}
	logger.Info("connected to redis", "addr", opt.Addr)
	return rdb, nil
}

// dbChecker adapts *sql.DB to health.Checker.
type dbChecker struct{ db *sql.DB }

func (d dbChecker) Check(ctx context.Context) error { return d.db.PingContext(ctx) }

// redisChecker adapts *redis.Client to health.Checker.
type redisChecker struct{ client *redis.Client }

func (r redisChecker) Check(ctx context.Context) error { return r.client.Ping(ctx).Err() }
