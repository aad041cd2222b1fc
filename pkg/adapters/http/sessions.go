package http

import (
	"net/http"
	"strings"

	"github.com/aretw0/funnel/pkg/domain"
	"github.com/aretw0/funnel/pkg/ports"
	"github.com/go-chi/chi/v5"
)

// UpdateSessionRequest is the body of PATCH /api/quiz-session.
type UpdateSessionRequest struct {
	ID string `json:"id"`
	domain.SessionUpdate
}

// CreateSession handles POST /api/quiz-session.
func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	var utm domain.UTM
	if err := decode(r, &utm); err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := s.Sessions.Create(r.Context(), utm)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// UpdateSession handles PATCH /api/quiz-session.
func (s *Server) UpdateSession(w http.ResponseWriter, r *http.Request) {
	var body UpdateSessionRequest
	if err := decode(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(body.ID) == "" {
		s.writeError(w, r, domain.Invalid("id", domain.ErrMissingField))
		return
	}
	if err := s.Sessions.Update(r.Context(), body.ID, body.SessionUpdate); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// GetSession handles GET /api/quiz-session/{id}. It is only available when the store
// can read records back.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	reader, ok := s.Sessions.(ports.SessionReader)
	if !ok {
		s.writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "session store is write-only"})
		return
	}
	rec, err := reader.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}
