package funnel

import (
	"context"

	"github.com/aretw0/funnel/internal/runtime"
	"github.com/aretw0/funnel/pkg/domain"
	"github.com/aretw0/funnel/pkg/ports"
	"github.com/aretw0/funnel/pkg/projection"
)

// Session is one visitor's quiz. It is not safe for concurrent use; servers serialize
// access per device (see pkg/session).
type Session struct {
	*runtime.Sequencer
	checkout ports.Checkout
}

// Summary computes the personalized projection from the current answers.
func (s *Session) Summary() projection.Summary {
	return projection.Compute(s.State().Answers)
}

// Checkout resolves planKey and asks the checkout collaborator for a redirect URL,
// prefilled with the saved email and correlated with the remote session.
func (s *Session) Checkout(ctx context.Context, planKey string) (string, error) {
	plan, ok := domain.PlanByKey(planKey)
	if !ok {
		return "", domain.Invalid("plan", domain.ErrUnknownPlan)
	}
	if s.checkout == nil {
		return "", ErrCheckoutUnavailable
	}

	req := domain.CheckoutRequest{
		Plan:      plan,
		SessionID: s.RemoteSessionID(ctx),
	}
	if email, ok := s.SavedEmail(ctx); ok {
		req.Email = email
	}
	return s.checkout.CheckoutURL(ctx, req)
}
