package funnel

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/aretw0/funnel/internal/logging"
	"github.com/aretw0/funnel/internal/runtime"
	"github.com/aretw0/funnel/pkg/catalog"
	"github.com/aretw0/funnel/pkg/domain"
	"github.com/aretw0/funnel/pkg/ports"
)

// InitOptions are the host inputs available when a session is opened.
type InitOptions = runtime.InitOptions

// ErrNotInitialized is returned by session operations before initialization.
var ErrNotInitialized = runtime.ErrNotInitialized

// ErrCheckoutUnavailable is returned by Checkout when no checkout collaborator is configured.
var ErrCheckoutUnavailable = errors.New("checkout not configured")

// Funnel is the entry point of the library. It holds what every visitor shares: the
// catalog, the remote mirror and the checkout collaborator.
type Funnel struct {
	catalog  *domain.Catalog
	sync     ports.SyncPort
	checkout ports.Checkout
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
}

// Option defines a functional option for configuring the Funnel.
type Option func(*Funnel)

// WithCatalog replaces the embedded default catalog.
func WithCatalog(c *domain.Catalog) Option {
	return func(f *Funnel) {
		f.catalog = c
	}
}

// WithSync enables mirroring to a remote session store.
func WithSync(port ports.SyncPort) Option {
	return func(f *Funnel) {
		f.sync = port
	}
}

// WithCheckout sets the payment collaborator used by Session.Checkout.
func WithCheckout(c ports.Checkout) Option {
	return func(f *Funnel) {
		f.checkout = c
	}
}

// WithLifecycleHooks registers observability hooks for every session.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(f *Funnel) {
		f.hooks = hooks
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Funnel) {
		f.logger = logger
	}
}

// New creates a Funnel. Without WithCatalog the embedded default catalog is used.
func New(opts ...Option) *Funnel {
	f := &Funnel{}
	for _, opt := range opts {
		opt(f)
	}
	if f.catalog == nil {
		f.catalog = catalog.Default()
	}
	if f.logger == nil {
		f.logger = logging.NewNop()
	}
	return f
}

// Catalog returns the shared step catalog.
func (f *Funnel) Catalog() *domain.Catalog {
	return f.catalog
}

// Open restores the visitor whose keys live in store and initializes their session.
func (f *Funnel) Open(ctx context.Context, store ports.LocalStore, opts InitOptions) (*Session, error) {
	seqOpts := []runtime.SequencerOption{
		runtime.WithLogger(f.logger),
		runtime.WithLifecycleHooks(f.hooks),
	}
	if f.sync != nil {
		seqOpts = append(seqOpts, runtime.WithSync(f.sync))
	}

	seq := runtime.NewSequencer(f.catalog, store, seqOpts...)
	if err := seq.Initialize(ctx, opts); err != nil {
		return nil, err
	}
	return &Session{Sequencer: seq, checkout: f.checkout}, nil
}

// Seed writes the one-shot pre-answer for the first step, as an entry point outside the
// quiz does. It is consumed by the next session opened on store without a saved position.
func (f *Funnel) Seed(ctx context.Context, store ports.LocalStore, answer string) error {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return domain.Invalid("answer", domain.ErrEmptySelection)
	}
	return store.Store(ctx, domain.KeyInitialAnswer, answer)
}
