// Package checkout builds hosted-checkout redirect URLs.
package checkout

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aretw0/funnel/pkg/domain"
)

// Template implements ports.Checkout by expanding a hosted-checkout link.
// The base URL may contain a {plan} placeholder; the email and session ID are added as
// prefilled_email and client_reference_id query parameters.
type Template struct {
	BaseURL string
}

// NewTemplate validates base and returns a Template.
func NewTemplate(base string) (*Template, error) {
	if base == "" {
		return nil, fmt.Errorf("checkout url is empty")
	}
	if _, err := url.Parse(strings.ReplaceAll(base, "{plan}", "x")); err != nil {
		return nil, fmt.Errorf("invalid checkout url: %w", err)
	}
	return &Template{BaseURL: base}, nil
}

// CheckoutURL returns the redirect URL for req.
func (t *Template) CheckoutURL(ctx context.Context, req domain.CheckoutRequest) (string, error) {
	if req.Plan.Key == "" {
		return "", domain.Invalid("plan", domain.ErrUnknownPlan)
	}

	raw := strings.ReplaceAll(t.BaseURL, "{plan}", url.PathEscape(req.Plan.Key))
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid checkout url: %w", err)
	}

	q := u.Query()
	if !strings.Contains(t.BaseURL, "{plan}") {
		q.Set("plan", req.Plan.Key)
	}
	if req.Email != "" {
		q.Set("prefilled_email", req.Email)
	}
	if req.SessionID != "" {
		q.Set("client_reference_id", req.SessionID)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
