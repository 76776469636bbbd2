package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/plonkgame/plonk/internal/game"
	"github.com/plonkgame/plonk/internal/plonk"
	"github.com/plonkgame/plonk/internal/reference"
	"github.com/plonkgame/plonk/internal/results"
	"github.com/plonkgame/plonk/internal/store"
)

// SessionStore is the durable side of a session. *store.SQLiteStore
// implements it.
type SessionStore interface {
	CreateSession(ctx context.Context, id, fingerprint string) error
	RecordRound(ctx context.Context, sessionID, itemID string, r game.Round) error
	RecordSummary(ctx context.Context, sessionID string, sum game.Summary) error
	ListSessions(ctx context.Context, limit int) ([]store.SessionInfo, error)
	Session(ctx context.Context, id string) (store.SessionRecord, error)
}

// Deps is everything the HTTP layer needs from the rest of the program.
type Deps struct {
	Items       []plonk.Item
	Table       *reference.Table
	Fingerprint string
	Geocoder    reference.Searcher

	Store    SessionStore
	Recorder *results.FileRecorder
	Archiver *results.Archiver

	ImageDir    string
	SPADir      string
	MaxSessions int
}

type Server struct {
	srv    *http.Server
	logger *slog.Logger
}

// New builds the router. mount is called before the API routes are added so
// main can attach infrastructure endpoints such as /healthz.
func New(addr string, logger *slog.Logger, deps Deps, mount func(chi.Router)) (*Server, error) {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(newStructuredLogger(logger))
	r.Use(middleware.Recoverer)

	if mount != nil {
		mount(r)
	}
	if err := addRoutes(r, logger, deps); err != nil {
		return nil, err
	}

	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		logger: logger,
	}, nil
}

// Handler exposes the router, for tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

func (s *Server) Run(_ context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.srv.Addr, err)
	}

	err = s.srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

func newStructuredLogger(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				level := slog.LevelInfo
				if ww.Status() >= http.StatusInternalServerError {
					level = slog.LevelError
				}
				logger.Log(r.Context(), level, "http request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration_ms", time.Since(start).Milliseconds(),
					"request_id", middleware.GetReqID(r.Context()),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
