package runtime

import (
	"context"
	"sync/atomic"

	"github.com/aretw0/funnel/pkg/domain"
)

// pollRemote settles the remote session ID without blocking. It collects a finished
// create, retries a failed one, and starts one if none is known or in flight.
func (s *Sequencer) pollRemote(ctx context.Context) {
	if s.sync == nil || s.state.RemoteSessionID != "" {
		return
	}
	if s.collectRemote(ctx) || s.state.RemoteSessionID != "" {
		return
	}
	s.startCreate(ctx)
}

// collectRemote adopts the result of a finished create and reports whether one is
// still in flight.
func (s *Sequencer) collectRemote(ctx context.Context) bool {
	if s.pending == nil {
		return false
	}
	select {
	case res, ok := <-s.pending:
		s.pending = nil
		s.abandon = nil
		if ok && res.Err == nil && res.ID != "" {
			s.adoptRemote(ctx, res.ID)
		}
		return false
	default:
		return true
	}
}

// startCreate asks the sync port for a remote session. The new ID is written to the
// LocalStore as soon as it exists, so a sequencer opened later on the same device
// restores it instead of creating another record.
func (s *Sequencer) startCreate(ctx context.Context) {
	store := s.store
	logger := s.logger
	var dropped atomic.Bool

	s.abandon = func() { dropped.Store(true) }
	s.pending = s.sync.CreateSession(ctx, s.utm, func(ctx context.Context, id string) {
		if dropped.Load() {
			return
		}
		if err := store.Store(ctx, domain.KeySessionID, id); err != nil {
			logger.Warn("Failed to persist remote session ID", "remote_session_id", id, "err", err)
		}
	})
}

// dropRemote forgets an in-flight create. Its ID, if any, is not persisted.
func (s *Sequencer) dropRemote() {
	if s.abandon != nil {
		s.abandon()
	}
	s.pending = nil
	s.abandon = nil
}

// WaitRemote blocks until an in-flight remote create finishes or ctx is done, and
// returns the remote session ID known afterwards.
func (s *Sequencer) WaitRemote(ctx context.Context) string {
	if s.pending != nil && s.state.RemoteSessionID == "" {
		select {
		case res, ok := <-s.pending:
			s.pending = nil
			s.abandon = nil
			if ok && res.Err == nil && res.ID != "" {
				s.adoptRemote(ctx, res.ID)
			}
		case <-ctx.Done():
		}
	}
	return s.state.RemoteSessionID
}

// RemoteSessionID returns the remote session ID if one is known, collecting a finished
// create first.
func (s *Sequencer) RemoteSessionID(ctx context.Context) string {
	s.pollRemote(ctx)
	return s.state.RemoteSessionID
}

func (s *Sequencer) adoptRemote(ctx context.Context, id string) {
	s.state.RemoteSessionID = id
	s.write(ctx, domain.KeySessionID, id)
	s.logger.Debug("Remote session established", "remote_session_id", id)
}

// pushProgress mirrors answers and step number, plus the email when known.
// Nothing is sent until a remote session ID exists.
func (s *Sequencer) pushProgress(ctx context.Context, email *string) {
	s.pollRemote(ctx)
	if s.sync == nil || s.state.RemoteSessionID == "" {
		return
	}
	step := s.state.StepNumber()
	s.sync.UpdateSession(ctx, s.state.RemoteSessionID, domain.SessionUpdate{
		Answers:     s.state.Answers.Plain(),
		CurrentStep: &step,
		Email:       email,
	})
}
