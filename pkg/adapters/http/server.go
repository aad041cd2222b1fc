// Package http exposes the quiz over JSON HTTP: a per-device quiz API driven by the
// session manager, and the session-store API the remote client speaks.
package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/funnel"
	"github.com/aretw0/funnel/internal/logging"
	"github.com/aretw0/funnel/pkg/adapters/remote"
	"github.com/aretw0/funnel/pkg/domain"
	"github.com/aretw0/funnel/pkg/ports"
	"github.com/aretw0/funnel/pkg/session"
	"github.com/go-chi/chi/v5"
)

// MaxBodySize bounds request bodies.
const MaxBodySize = 64 << 10

// Server holds the handler dependencies.
type Server struct {
	Manager  *session.Manager
	Sessions ports.SessionStore
	Streams  *StreamManager

	metrics http.Handler
	logger  *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithSessionStore serves the session-store API backed by store.
func WithSessionStore(store ports.SessionStore) Option {
	return func(s *Server) {
		s.Sessions = store
	}
}

// WithMetricsHandler mounts h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithLogger configures a logger for the Server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewHandler creates the HTTP handler for the quiz.
func NewHandler(mgr *session.Manager, opts ...Option) http.Handler {
	s := &Server{
		Manager: mgr,
		Streams: NewStreamManager(),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(limitBody)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/catalog", s.GetCatalog)
	r.Get("/plans", s.GetPlans)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/quiz/{device}", func(r chi.Router) {
		r.Get("/", s.GetView)
		r.Delete("/", s.Purge)
		r.Post("/init", s.Init)
		r.Post("/answer", s.Answer)
		r.Post("/select", s.Select)
		r.Post("/email", s.Email)
		r.Post("/continue", s.Continue)
		r.Post("/back", s.Back)
		r.Post("/navigate", s.Navigate)
		r.Put("/unit", s.SetUnit)
		r.Post("/checkout", s.Checkout)
		r.Post("/convert", s.Convert)
		r.Post("/seed", s.Seed)
		r.Get("/events", s.SubscribeEvents)
	})

	if s.Sessions != nil {
		r.Route(remote.SessionPath, func(r chi.Router) {
			r.Post("/", s.CreateSession)
			r.Patch("/", s.UpdateSession)
			r.Get("/{id}", s.GetSession)
		})
	}

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, MaxBodySize)
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"app":     "funnel-http",
		"version": strings.TrimSpace(funnel.Version),
		"steps":   s.Manager.Funnel().Catalog().Len(),
	})
}

// GetCatalog handles the GET /catalog request.
func (s *Server) GetCatalog(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Manager.Funnel().Catalog().Steps())
}

// GetPlans handles the GET /plans request.
func (s *Server) GetPlans(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, domain.Plans())
}

// errorResponse is the body of every non-2xx reply.
type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// writeError maps err to a status: validation errors are 422, unknown sessions 404,
// malformed bodies 400, everything else 500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	resp := errorResponse{Error: err.Error()}

	var verr *domain.ValidationError
	var maxErr *http.MaxBytesError
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &verr):
		status = http.StatusUnprocessableEntity
		resp.Field = verr.Field
	case errors.Is(err, domain.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.As(err, &maxErr):
		status = http.StatusRequestEntityTooLarge
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr), errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, funnel.ErrCheckoutUnavailable):
		status = http.StatusServiceUnavailable
	}

	if status >= 500 {
		s.logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	} else {
		s.logger.Debug("Request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "err", err)
	}
	s.writeJSON(w, status, resp)
}

var errBadRequest = errors.New("bad request")

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Response encode failed", "err", err)
	}
}

func decode(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return nil
}
