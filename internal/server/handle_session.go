package server

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/plonkgame/plonk/internal/game"
	"github.com/plonkgame/plonk/internal/metrics"
	"github.com/plonkgame/plonk/internal/plonk"
	"github.com/plonkgame/plonk/internal/reference"
)

// gameData is the dataset every session plays through.
type gameData struct {
	items       []plonk.Item
	table       *reference.Table
	fingerprint string
}

// ItemView is what the client needs to show the current photograph.
type ItemView struct {
	Index int    `json:"index"`
	ID    string `json:"id"`
	Image string `json:"image"`
}

// SessionResponse is a session snapshot plus the item on screen. Item is
// omitted once the session is finished.
type SessionResponse struct {
	game.Snapshot
	Item *ItemView `json:"item,omitempty"`
}

func imageURL(id string) string {
	return "/images/" + url.PathEscape(id) + ".jpg"
}

// sessionResponse must be called with s.mu held.
func sessionResponse(s *session) SessionResponse {
	resp := SessionResponse{Snapshot: s.engine.Snapshot()}
	if s.engine.Status() != game.StatusFinished {
		it := s.engine.Current()
		resp.Item = &ItemView{Index: s.engine.Index(), ID: it.ID, Image: imageURL(it.ID)}
	}
	return resp
}

func handleStartSession(logger *slog.Logger, sessions *Registry, data gameData, rec *recorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		engine, err := game.NewEngine(newSessionID(), data.items, data.table)
		if err != nil {
			logger.Error("starting session", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		s := sessions.Add(engine)
		metrics.SessionsStarted.Inc()
		rec.started(r.Context(), engine.ID(), data.fingerprint)
		logger.Info("session started", "session", engine.ID(), "items", engine.Total())

		s.mu.Lock()
		resp := sessionResponse(s)
		s.mu.Unlock()
		writeJSON(w, http.StatusCreated, resp)
	}
}

func handleGetSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := sessionFrom(r)
		s.mu.Lock()
		resp := sessionResponse(s)
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, resp)
	}
}
