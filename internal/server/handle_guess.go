package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/plonkgame/plonk/internal/game"
	"github.com/plonkgame/plonk/internal/metrics"
)

// GuessRequest is a map click. Country is the ISO 3166-1 alpha-2 code of the
// clicked point as resolved by the client, empty when it is at sea.
type GuessRequest struct {
	Lat     *float64 `json:"lat"`
	Lon     *float64 `json:"lon"`
	Country string   `json:"country"`
}

func (g GuessRequest) validate() string {
	switch {
	case g.Lat == nil || g.Lon == nil:
		return "lat and lon are required"
	case *g.Lat < -90 || *g.Lat > 90:
		return "lat must be within [-90, 90]"
	case *g.Lon < -180 || *g.Lon > 180:
		return "lon must be within [-180, 180]"
	}
	return ""
}

func handleGuess(broker *Broker, rec *recorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req GuessRequest
		if err := readJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if msg := req.validate(); msg != "" {
			metrics.GuessesTotal.WithLabelValues(metrics.OutcomeInvalid).Inc()
			writeError(w, http.StatusBadRequest, msg)
			return
		}

		s := sessionFrom(r)
		s.mu.Lock()
		out, err := s.engine.Submit(*req.Lat, *req.Lon, strings.TrimSpace(req.Country))
		itemID := s.engine.Current().ID
		id := s.engine.ID()
		s.mu.Unlock()

		if err != nil {
			if errors.Is(err, game.ErrDuplicateSubmission) {
				metrics.GuessesTotal.WithLabelValues(metrics.OutcomeDuplicate).Inc()
			}
			writeEngineError(w, err)
			return
		}

		metrics.ObserveGuess(out.Round.Score, out.Round.Distance)
		rec.round(r.Context(), id, itemID, out.Round)
		broker.Publish(id, SSEEvent{
			Type:     EventGuess,
			Index:    out.Round.Index,
			Score:    out.Round.Score,
			Distance: out.Round.Distance,
			Last:     out.Last,
		})

		writeJSON(w, http.StatusOK, out)
	}
}

// writeEngineError maps session state errors onto HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrDuplicateSubmission),
		errors.Is(err, game.ErrOutOfRange),
		errors.Is(err, game.ErrNotAnswered),
		errors.Is(err, game.ErrFinished):
		writeError(w, http.StatusConflict, rootMessage(err))
	case errors.Is(err, game.ErrInvalidCoordinate):
		writeError(w, http.StatusBadRequest, game.ErrInvalidCoordinate.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// rootMessage returns the message of the sentinel at the bottom of err.
func rootMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}
