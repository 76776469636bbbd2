package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"

	"github.com/plonkgame/plonk/internal/metrics"
)

func addRoutes(r chi.Router, logger *slog.Logger, deps Deps) error {
	sessions, err := NewRegistry(deps.MaxSessions)
	if err != nil {
		return fmt.Errorf("creating session registry: %w", err)
	}
	broker := NewBroker()
	rec := &recorder{
		logger:   logger,
		store:    deps.Store,
		files:    deps.Recorder,
		archiver: deps.Archiver,
	}
	geo := timedSearcher{deps.Geocoder}
	data := gameData{items: deps.Items, table: deps.Table, fingerprint: deps.Fingerprint}

	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("Plonk API", "/openapi.json", "/docs"))
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", handleStartSession(logger, sessions, data, rec))
		r.Route("/{id}", func(r chi.Router) {
			r.Use(sessionMiddleware(sessions))
			r.Get("/", handleGetSession())
			r.Post("/guess", handleGuess(broker, rec))
			r.Post("/next", handleNext(broker))
			r.Post("/finish", handleFinish(logger, broker, geo, rec))
			r.Get("/events", handleEvents(broker))
		})
	})

	r.Get("/api/results", handleListResults(deps.Store))
	r.Get("/api/results/{id}", handleGetResult(deps.Store))

	if deps.ImageDir != "" {
		r.Handle("/images/*", http.StripPrefix("/images/", handleImages(deps.ImageDir)))
	}

	if deps.SPADir != "" {
		if info, err := os.Stat(deps.SPADir); err == nil && info.IsDir() {
			logger.Info("serving SPA", "dir", deps.SPADir)
			r.NotFound(handleSPA(deps.SPADir))
		}
	}
	return nil
}
