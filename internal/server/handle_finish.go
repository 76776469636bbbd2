package server

import (
	"log/slog"
	"net/http"

	"github.com/plonkgame/plonk/internal/game"
	"github.com/plonkgame/plonk/internal/metrics"
	"github.com/plonkgame/plonk/internal/reference"
)

// FinishResponse is the end-of-session table. Warnings lists anything that
// went wrong after the session was scored; the summary is valid regardless.
type FinishResponse struct {
	SessionID string       `json:"sessionId"`
	Summary   game.Summary `json:"summary"`
	Times     []float64    `json:"times"`
	Warnings  []string     `json:"warnings,omitempty"`
}

func handleFinish(logger *slog.Logger, broker *Broker, geo reference.Searcher, rec *recorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := sessionFrom(r)

		// Persistence runs after the unlock so a slow upload does not stall
		// readers of this session. Only the first caller sees first == true.
		s.mu.Lock()
		first := s.engine.Status() != game.StatusFinished
		sum, err := s.engine.Finish(r.Context(), geo)
		snap := s.engine.Snapshot()
		s.mu.Unlock()

		resp := FinishResponse{
			SessionID: snap.SessionID,
			Summary:   sum,
			Times:     snap.Times,
		}
		if err != nil {
			logger.Warn("finishing without admin-level accuracy", "session", snap.SessionID, "error", err)
			resp.Warnings = append(resp.Warnings, "city, area and region accuracy unavailable")
		}

		if first {
			metrics.SessionsFinished.Inc()
			resp.Warnings = append(resp.Warnings, rec.summary(r.Context(), snap.SessionID, sum, snap.Times)...)
			broker.Publish(snap.SessionID, SSEEvent{Type: EventFinished, Index: snap.Index})
			logger.Info("session finished",
				"session", snap.SessionID,
				"rounds", sum.Rounds,
				"avg_score", snap.AverageScore,
			)
		}

		writeJSON(w, http.StatusOK, resp)
	}
}
