package server

import (
	"net/http"
)

func handleNext(broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := sessionFrom(r)
		s.mu.Lock()
		err := s.engine.Advance()
		resp := sessionResponse(s)
		s.mu.Unlock()

		if err != nil {
			writeEngineError(w, err)
			return
		}

		broker.Publish(resp.SessionID, SSEEvent{Type: EventAdvance, Index: resp.Index})
		writeJSON(w, http.StatusOK, resp)
	}
}
