package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/plonkgame/plonk/internal/game"
	"github.com/plonkgame/plonk/internal/metrics"
)

var ErrNotFound = errors.New("not found")

// DefaultMaxSessions bounds the number of sessions kept in memory.
const DefaultMaxSessions = 10000

// session serializes access to an engine; two rapid requests on the same
// session run one after the other.
type session struct {
	mu     sync.Mutex
	engine *game.Engine
}

// Registry holds live sessions. When full, the least recently used session
// is dropped; its rounds and summary stay in the store.
type Registry struct {
	sessions *lru.Cache[string, *session]
}

func NewRegistry(size int) (*Registry, error) {
	if size <= 0 {
		size = DefaultMaxSessions
	}
	c, err := lru.NewWithEvict(size, func(string, *session) {
		metrics.SessionsActive.Dec()
	})
	if err != nil {
		return nil, err
	}
	return &Registry{sessions: c}, nil
}

// newSessionID returns a random 32-character hex id.
func newSessionID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Add registers engine under its id.
func (r *Registry) Add(e *game.Engine) *session {
	s := &session{engine: e}
	r.sessions.Add(e.ID(), s)
	metrics.SessionsActive.Inc()
	return s
}

func (r *Registry) Get(id string) (*session, error) {
	s, ok := r.sessions.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Len is the number of live sessions.
func (r *Registry) Len() int { return r.sessions.Len() }

type ctxKey int

const ctxKeySession ctxKey = iota

func sessionMiddleware(sessions *Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, err := sessions.Get(chi.URLParam(r, "id"))
			if err != nil {
				writeError(w, http.StatusNotFound, "session not found")
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeySession, s)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func sessionFrom(r *http.Request) *session {
	return r.Context().Value(ctxKeySession).(*session)
}
