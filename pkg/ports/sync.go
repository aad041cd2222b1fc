package ports

import (
	"context"

	"github.com/aretw0/funnel/pkg/domain"
)

// CreateResult is delivered once on the channel returned by SyncPort.CreateSession.
type CreateResult struct {
	ID  string
	Err error
}

// SyncPort mirrors session progress to a SessionStore without ever blocking the caller.
// Failures are reported out of band and never returned.
type SyncPort interface {
	// CreateSession starts a remote create. The returned channel receives exactly one
	// result and is then closed. A non-nil onCreated is called with the new ID from the
	// create's goroutine before the result is delivered, so the ID can be saved even when
	// nobody reads the channel.
	CreateSession(ctx context.Context, utm domain.UTM, onCreated func(ctx context.Context, id string)) <-chan CreateResult

	// UpdateSession sends a partial update. Updates are unordered relative to each other.
	UpdateSession(ctx context.Context, id string, update domain.SessionUpdate)
}

// Checkout asks the payment collaborator for a redirect URL.
type Checkout interface {
	CheckoutURL(ctx context.Context, req domain.CheckoutRequest) (string, error)
}
