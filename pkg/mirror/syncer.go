// Package mirror implements the best-effort sync port that mirrors quiz progress to a
// remote session store.
//
// Every call runs on its own goroutine, detached from the caller's cancellation, and
// never reports failure back to the caller. Failures are logged and surfaced through
// the OnSyncError lifecycle hook.
package mirror

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/funnel/internal/logging"
	"github.com/aretw0/funnel/pkg/domain"
	"github.com/aretw0/funnel/pkg/ports"
	"golang.org/x/sync/semaphore"
)

// ErrSaturated is reported when too many calls are already in flight.
var ErrSaturated = errors.New("too many remote calls in flight")

// DefaultMaxInFlight bounds concurrent remote calls per Syncer.
const DefaultMaxInFlight = 64

// Syncer implements ports.SyncPort over a ports.SessionStore.
type Syncer struct {
	store   ports.SessionStore
	sem     *semaphore.Weighted
	wg      sync.WaitGroup
	timeout time.Duration
	logger  *slog.Logger
	hooks   domain.LifecycleHooks
}

// Option configures the Syncer.
type Option func(*Syncer)

// WithLogger configures a logger for the Syncer.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Syncer) {
		s.logger = logger
	}
}

// WithLifecycleHooks registers hooks; only OnSyncError is used.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *Syncer) {
		s.hooks = hooks
	}
}

// WithTimeout bounds each remote call. Zero leaves it to the transport.
func WithTimeout(d time.Duration) Option {
	return func(s *Syncer) {
		s.timeout = d
	}
}

// WithMaxInFlight bounds concurrent remote calls. Calls beyond the bound are dropped.
func WithMaxInFlight(n int64) Option {
	return func(s *Syncer) {
		s.sem = semaphore.NewWeighted(n)
	}
}

// New creates a Syncer for store.
func New(store ports.SessionStore, opts ...Option) *Syncer {
	s := &Syncer{
		store:  store,
		sem:    semaphore.NewWeighted(DefaultMaxInFlight),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSession starts a remote create. The channel receives one result and is closed.
// onCreated runs first when the create succeeds.
func (s *Syncer) CreateSession(ctx context.Context, utm domain.UTM, onCreated func(context.Context, string)) <-chan ports.CreateResult {
	ch := make(chan ports.CreateResult, 1)

	ok := s.spawn(ctx, "create", "", func(ctx context.Context) error {
		id, err := s.store.Create(ctx, utm)
		if err == nil && id != "" && onCreated != nil {
			onCreated(ctx, id)
		}
		ch <- ports.CreateResult{ID: id, Err: err}
		close(ch)
		return err
	})
	if !ok {
		ch <- ports.CreateResult{Err: ErrSaturated}
		close(ch)
	}
	return ch
}

// UpdateSession sends a partial update. An empty id or update is ignored.
func (s *Syncer) UpdateSession(ctx context.Context, id string, update domain.SessionUpdate) {
	if id == "" || update.IsZero() {
		return
	}
	s.spawn(ctx, "update", id, func(ctx context.Context) error {
		return s.store.Update(ctx, id, update)
	})
}

// Wait blocks until every in-flight call has finished.
func (s *Syncer) Wait() {
	s.wg.Wait()
}

func (s *Syncer) spawn(ctx context.Context, op, id string, call func(context.Context) error) bool {
	if !s.sem.TryAcquire(1) {
		s.report(ctx, op, id, ErrSaturated)
		return false
	}

	s.wg.Add(1)
	detached := context.WithoutCancel(ctx)
	go func() {
		defer s.wg.Done()
		defer s.sem.Release(1)

		callCtx := detached
		if s.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(detached, s.timeout)
			defer cancel()
		}

		start := time.Now()
		if err := call(callCtx); err != nil {
			s.report(detached, op, id, err)
			return
		}
		s.logger.Debug("Remote session synced", "op", op, "session_id", id, "took", time.Since(start))
	}()
	return true
}

func (s *Syncer) report(ctx context.Context, op, id string, err error) {
	s.logger.Warn("Remote session sync failed", "op", op, "session_id", id, "err", err)
	if s.hooks.OnSyncError != nil {
		s.hooks.OnSyncError(ctx, &domain.FailureEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventSyncError},
			Op:        op,
			Key:       id,
			Err:       err,
		})
	}
}
