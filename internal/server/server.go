package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"

	"go.uber.org/zap"

	"libraryclient/internal/client"
	"libraryclient/internal/comments"
	"libraryclient/internal/favorites"
	"libraryclient/internal/metrics"
	"libraryclient/internal/remote"
)

// DefaultMaxSessions is how many sessions are cached before the least
// recently used one is dropped
const DefaultMaxSessions = 256

// SessionFactory creates the Session of a new assertion ("" for anonymous)
type SessionFactory func(token string) *client.Session

// HTTPServer exposes the client core as a local JSON API. The
// Authorization: Bearer header selects a Session; each distinct assertion
// gets its own cached catalog and favorites.
type HTTPServer struct {
	newSession SessionFactory
	logger     *zap.Logger
	metrics    *metrics.Metrics

	mu          sync.Mutex
	sessions    map[string]*sessionEntry
	maxSessions int
	tick        uint64
}

type sessionEntry struct {
	session  *client.Session
	lastUsed uint64
}

// NewHTTPServer creates a new HTTP server. metrics may be nil.
func NewHTTPServer(newSession SessionFactory, logger *zap.Logger, m *metrics.Metrics) *HTTPServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPServer{
		newSession:  newSession,
		logger:      logger,
		metrics:     m,
		sessions:    make(map[string]*sessionEntry),
		maxSessions: DefaultMaxSessions,
	}
}

// Handler returns the routed handler with request accounting
func (hs *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()
	hs.RegisterRoutes(mux)
	return hs.observe(mux)
}

// RegisterRoutes registers all routes on the provided mux
func (hs *HTTPServer) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", hs.handleHealth)
	mux.Handle("GET /metrics", hs.metrics.Handler())

	mux.HandleFunc("GET /api/me", hs.handleMe)
	mux.HandleFunc("GET /api/books", hs.handleBooks)
	mux.HandleFunc("GET /api/facets", hs.handleFacets)
	mux.HandleFunc("POST /api/favorites/{bookId}/toggle", hs.handleToggleFavorite)
	mux.HandleFunc("GET /api/books/{bookId}/comments", hs.handleListComments)
	mux.HandleFunc("POST /api/books/{bookId}/comments", hs.handleAddComment)
	mux.HandleFunc("DELETE /api/comments/{id}", hs.handleDeleteComment)
	mux.HandleFunc("GET /api/borrows", hs.handleBorrows)
	mux.HandleFunc("POST /api/borrows/{id}/return", hs.handleReturn)
	mux.HandleFunc("GET /api/statistics/monthly", hs.handleMonthly)
	mux.HandleFunc("GET /api/statistics/dashboard", hs.handleDashboard)
	mux.HandleFunc("GET /api/statistics/history", hs.handleHistory)
}

// session returns the Session of the request's assertion, creating it on
// first use. A full cache drops its least recently used session.
func (hs *HTTPServer) session(r *http.Request) *client.Session {
	token := bearerToken(r)

	hs.mu.Lock()
	defer hs.mu.Unlock()
	hs.tick++
	if e, ok := hs.sessions[token]; ok {
		e.lastUsed = hs.tick
		return e.session
	}

	if len(hs.sessions) >= hs.maxSessions {
		hs.evictOldest()
	}
	s := hs.newSession(token)
	hs.sessions[token] = &sessionEntry{session: s, lastUsed: hs.tick}
	hs.logger.Debug("Created session",
		zap.Bool("authenticated", token != ""),
		zap.Int("cached", len(hs.sessions)),
	)
	return s
}

// evictOldest must be called with hs.mu held
func (hs *HTTPServer) evictOldest() {
	var (
		oldest   string
		lastUsed uint64
		seen     bool
	)
	for token, e := range hs.sessions {
		if !seen || e.lastUsed < lastUsed {
			oldest, lastUsed, seen = token, e.lastUsed, true
		}
	}
	if seen {
		delete(hs.sessions, oldest)
		hs.logger.Debug("Evicted idle session", zap.Bool("authenticated", oldest != ""))
	}
}

func bearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) > len("Bearer ") && strings.EqualFold(h[:len("Bearer ")], "Bearer ") {
		return strings.TrimSpace(h[len("Bearer "):])
	}
	return ""
}

// statusRecorder remembers the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// observe counts every request by matched route and status
func (hs *HTTPServer) observe(next *http.ServeMux) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		_, pattern := next.Handler(r)
		if pattern == "" {
			pattern = "unmatched"
		}
		hs.metrics.ObserveHTTP(pattern, rec.status)
	})
}

func (hs *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON encodes v as the response body
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error         string `json:"error"`
	BackendStatus int    `json:"backendStatus,omitempty"`
}

// writeError maps an error onto a status code. Backend errors keep the
// server's own message.
func (hs *HTTPServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	body := errorBody{Error: err.Error()}

	var rerr *remote.Error
	switch {
	case errors.Is(err, client.ErrAuthRequired):
		status = http.StatusUnauthorized
	case errors.Is(err, comments.ErrNotPermitted):
		status = http.StatusForbidden
	case errors.Is(err, favorites.ErrFavoriteEntryMissing):
		status = http.StatusConflict
	case errors.Is(err, client.ErrUnknownBook), errors.Is(err, client.ErrCommentNotFound):
		status = http.StatusNotFound
	case errors.Is(err, comments.ErrInvalidRating), errors.Is(err, client.ErrEmptyComment),
		errors.Is(err, client.ErrInvalidMonth):
		status = http.StatusBadRequest
	case errors.Is(err, client.ErrArchiveDisabled):
		status = http.StatusNotImplemented
	case errors.As(err, &rerr):
		status = http.StatusBadGateway
		body.BackendStatus = rerr.StatusCode
		if rerr.Message != "" {
			body.Error = rerr.Message
		}
	}

	if status >= http.StatusInternalServerError {
		hs.logger.Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	writeJSON(w, status, body)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: msg})
}
