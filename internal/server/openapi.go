package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/plonkgame/plonk/internal/game"
	"github.com/plonkgame/plonk/internal/store"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse documents the /healthz body: one entry per dependency.
type HealthResponse map[string]struct {
	Status string `json:"status"`
}

type sessionPath struct {
	ID string `path:"id"`
}

type guessInput struct {
	sessionPath
	GuessRequest
}

type resultsQuery struct {
	Limit int `query:"limit" minimum:"1" maximum:"100" default:"20"`
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "Plonk API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Backend API for the Plonk geolocation guessing game.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the health status of backend dependencies.")
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// POST /api/sessions
	postSession, _ := r.NewOperationContext(http.MethodPost, "/api/sessions")
	postSession.SetSummary("Start session")
	postSession.SetDescription("Starts a new playthrough and returns the first item.")
	postSession.AddRespStructure(SessionResponse{}, openapi.WithHTTPStatus(http.StatusCreated))
	_ = r.AddOperation(postSession)

	// GET /api/sessions/{id}
	getSession, _ := r.NewOperationContext(http.MethodGet, "/api/sessions/{id}")
	getSession.SetSummary("Get session")
	getSession.SetDescription("Returns the session snapshot and the item currently on screen.")
	getSession.AddReqStructure(sessionPath{})
	getSession.AddRespStructure(SessionResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getSession.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getSession)

	// POST /api/sessions/{id}/guess
	postGuess, _ := r.NewOperationContext(http.MethodPost, "/api/sessions/{id}/guess")
	postGuess.SetSummary("Submit guess")
	postGuess.SetDescription("Scores a map click for the current item and compares it with the reference models. A second guess for the same item is rejected with 409.")
	postGuess.AddReqStructure(guessInput{})
	postGuess.AddRespStructure(game.Outcome{}, openapi.WithHTTPStatus(http.StatusOK))
	postGuess.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postGuess.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	postGuess.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postGuess)

	// POST /api/sessions/{id}/next
	postNext, _ := r.NewOperationContext(http.MethodPost, "/api/sessions/{id}/next")
	postNext.SetSummary("Next item")
	postNext.SetDescription("Moves to the next item. Returns 409 before a guess or after the last item.")
	postNext.AddReqStructure(sessionPath{})
	postNext.AddRespStructure(SessionResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postNext.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	postNext.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postNext)

	// POST /api/sessions/{id}/finish
	postFinish, _ := r.NewOperationContext(http.MethodPost, "/api/sessions/{id}/finish")
	postFinish.SetSummary("Finish session")
	postFinish.SetDescription("Ends the session and returns the final comparison at every granularity. Repeated calls return the same summary.")
	postFinish.AddReqStructure(sessionPath{})
	postFinish.AddRespStructure(FinishResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postFinish.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(postFinish)

	// GET /api/sessions/{id}/events
	getEvents, _ := r.NewOperationContext(http.MethodGet, "/api/sessions/{id}/events")
	getEvents.SetSummary("SSE event stream")
	getEvents.SetDescription("Server-Sent Events stream of guess, advance and finished events for one session.")
	getEvents.AddReqStructure(sessionPath{})
	getEvents.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	_ = r.AddOperation(getEvents)

	// GET /api/results
	listResults, _ := r.NewOperationContext(http.MethodGet, "/api/results")
	listResults.SetSummary("List results")
	listResults.SetDescription("Returns the most recent stored sessions.")
	listResults.AddReqStructure(resultsQuery{})
	listResults.AddRespStructure([]store.SessionInfo{}, openapi.WithHTTPStatus(http.StatusOK))
	listResults.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(listResults)

	// GET /api/results/{id}
	getResult, _ := r.NewOperationContext(http.MethodGet, "/api/results/{id}")
	getResult.SetSummary("Get result")
	getResult.SetDescription("Returns a stored session with its rounds and summary.")
	getResult.AddReqStructure(sessionPath{})
	getResult.AddRespStructure(store.SessionRecord{}, openapi.WithHTTPStatus(http.StatusOK))
	getResult.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getResult)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
