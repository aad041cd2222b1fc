package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aretw0/funnel"
	"github.com/aretw0/funnel/pkg/domain"
	"github.com/aretw0/funnel/pkg/runner"
	"github.com/go-chi/chi/v5"
)

// InitRequest is the body of POST /quiz/{device}/init.
type InitRequest struct {
	Locator     string `json:"locator,omitempty"`
	UTMSource   string `json:"utm_source,omitempty"`
	UTMMedium   string `json:"utm_medium,omitempty"`
	UTMCampaign string `json:"utm_campaign,omitempty"`
}

// AnswerRequest is the body of POST /quiz/{device}/answer. Value is a string, a list
// of strings or an object of strings depending on the step kind.
type AnswerRequest struct {
	StepID string `json:"step_id"`
	Value  any    `json:"value"`
}

// SelectRequest is the body of POST /quiz/{device}/select.
type SelectRequest struct {
	StepID string   `json:"step_id"`
	Values []string `json:"values"`
}

// EmailRequest is the body of POST /quiz/{device}/email.
type EmailRequest struct {
	Email string `json:"email"`
}

// NavigateRequest is the body of POST /quiz/{device}/navigate. StepID wins over Position.
type NavigateRequest struct {
	Position *int   `json:"position,omitempty"`
	StepID   string `json:"step_id,omitempty"`
}

// UnitRequest is the body of PUT /quiz/{device}/unit.
type UnitRequest struct {
	Unit string `json:"unit"`
}

// CheckoutRequest is the body of POST /quiz/{device}/checkout.
type CheckoutRequest struct {
	Plan string `json:"plan"`
}

// CheckoutResponse carries the redirect URL.
type CheckoutResponse struct {
	URL string `json:"url"`
}

// SeedRequest is the body of POST /quiz/{device}/seed.
type SeedRequest struct {
	Answer string `json:"answer"`
}

type sessionFunc func(ctx context.Context, sess *funnel.Session) error

// mutate runs fn on the device's session and replies with the resulting view, which is
// also broadcast to the device's event subscribers.
func (s *Server) mutate(w http.ResponseWriter, r *http.Request, fn sessionFunc) {
	device := chi.URLParam(r, "device")
	var view View
	err := s.Manager.WithSession(r.Context(), device, func(ctx context.Context, sess *funnel.Session) error {
		if err := fn(ctx, sess); err != nil {
			return err
		}
		view = NewView(device, sess)
		return nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.broadcast(device, view)
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) broadcast(device string, view View) {
	data, err := json.Marshal(view)
	if err != nil {
		s.logger.Error("View encode failed", "device_id", device, "err", err)
		return
	}
	s.Streams.Broadcast(device, string(data))
}

// GetView handles GET /quiz/{device}.
func (s *Server) GetView(w http.ResponseWriter, r *http.Request) {
	device := chi.URLParam(r, "device")
	var view View
	err := s.Manager.WithSession(r.Context(), device, func(ctx context.Context, sess *funnel.Session) error {
		view = NewView(device, sess)
		return nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

// Init handles POST /quiz/{device}/init.
func (s *Server) Init(w http.ResponseWriter, r *http.Request) {
	var body InitRequest
	if err := decode(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	opts := funnel.InitOptions{
		Locator: body.Locator,
		UTM: domain.UTM{
			Source:   body.UTMSource,
			Medium:   body.UTMMedium,
			Campaign: body.UTMCampaign,
		},
	}

	device := chi.URLParam(r, "device")
	var view View
	err := s.Manager.Init(r.Context(), device, opts, func(ctx context.Context, sess *funnel.Session) error {
		view = NewView(device, sess)
		return nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.broadcast(device, view)
	s.writeJSON(w, http.StatusOK, view)
}

// Answer handles POST /quiz/{device}/answer.
func (s *Server) Answer(w http.ResponseWriter, r *http.Request) {
	var body AnswerRequest
	if err := decode(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.mutate(w, r, func(ctx context.Context, sess *funnel.Session) error {
		step, _, ok := sess.Catalog().Lookup(body.StepID)
		if !ok {
			return domain.Invalid("step_id", domain.ErrUnknownStep)
		}
		answer, err := domain.DecodeAnswer(step.Kind.AnswerKind(), body.Value)
		if err != nil {
			return domain.Invalid(step.ID, fmt.Errorf("%w: %v", domain.ErrAnswerKind, err))
		}
		answer, err = runner.SanitizeAnswer(answer)
		if err != nil {
			return err
		}
		return sess.RecordSingleAnswer(ctx, step.ID, answer)
	})
}

// Select handles POST /quiz/{device}/select.
func (s *Server) Select(w http.ResponseWriter, r *http.Request) {
	var body SelectRequest
	if err := decode(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.mutate(w, r, func(ctx context.Context, sess *funnel.Session) error {
		answer, err := runner.SanitizeAnswer(domain.List(body.Values...))
		if err != nil {
			return err
		}
		return sess.RecordMultiAnswer(ctx, body.StepID, answer.List)
	})
}

// Email handles POST /quiz/{device}/email.
func (s *Server) Email(w http.ResponseWriter, r *http.Request) {
	var body EmailRequest
	if err := decode(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.mutate(w, r, func(ctx context.Context, sess *funnel.Session) error {
		email, err := runner.SanitizeInput(body.Email)
		if err != nil {
			return err
		}
		return sess.RecordEmail(ctx, email)
	})
}

// Continue handles POST /quiz/{device}/continue.
func (s *Server) Continue(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(ctx context.Context, sess *funnel.Session) error {
		return sess.Continue(ctx)
	})
}

// Back handles POST /quiz/{device}/back.
func (s *Server) Back(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(ctx context.Context, sess *funnel.Session) error {
		return sess.GoBack(ctx)
	})
}

// Navigate handles POST /quiz/{device}/navigate, the host's history events.
func (s *Server) Navigate(w http.ResponseWriter, r *http.Request) {
	var body NavigateRequest
	if err := decode(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.mutate(w, r, func(ctx context.Context, sess *funnel.Session) error {
		switch {
		case body.StepID != "":
			return sess.NavigateTo(ctx, body.StepID)
		case body.Position != nil:
			return sess.Navigate(ctx, *body.Position)
		default:
			return domain.Invalid("position", domain.ErrMissingField)
		}
	})
}

// SetUnit handles PUT /quiz/{device}/unit.
func (s *Server) SetUnit(w http.ResponseWriter, r *http.Request) {
	var body UnitRequest
	if err := decode(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.mutate(w, r, func(ctx context.Context, sess *funnel.Session) error {
		return sess.SetUnitSystem(ctx, domain.UnitSystem(body.Unit))
	})
}

// Checkout handles POST /quiz/{device}/checkout.
func (s *Server) Checkout(w http.ResponseWriter, r *http.Request) {
	var body CheckoutRequest
	if err := decode(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	var url string
	err := s.Manager.WithSession(r.Context(), chi.URLParam(r, "device"), func(ctx context.Context, sess *funnel.Session) error {
		var err error
		url, err = sess.Checkout(ctx, body.Plan)
		return err
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, CheckoutResponse{URL: url})
}

// Convert handles POST /quiz/{device}/convert, called once the visitor registered.
func (s *Server) Convert(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(ctx context.Context, sess *funnel.Session) error {
		return sess.Convert(ctx)
	})
}

// Seed handles POST /quiz/{device}/seed.
func (s *Server) Seed(w http.ResponseWriter, r *http.Request) {
	var body SeedRequest
	if err := decode(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	answer, err := runner.SanitizeInput(body.Answer)
	if err == nil {
		err = s.Manager.Seed(r.Context(), chi.URLParam(r, "device"), answer)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Purge handles DELETE /quiz/{device}.
func (s *Server) Purge(w http.ResponseWriter, r *http.Request) {
	if err := s.Manager.Purge(r.Context(), chi.URLParam(r, "device")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
