package runtime

import (
	"context"

	"github.com/aretw0/funnel/pkg/domain"
)

// GoBack moves to the previous step. At the first step it does nothing.
// Going back never touches answers and never reaches the remote mirror.
func (s *Sequencer) GoBack(ctx context.Context) error {
	if !s.ready {
		return ErrNotInitialized
	}
	if s.state.Position == 0 {
		return nil
	}
	s.state.Position--
	s.writePosition(ctx)
	s.emitStepEnter(ctx, CauseBack)
	return nil
}

// Navigate jumps to the step at index target. Moving exactly one step back behaves
// as GoBack.
func (s *Sequencer) Navigate(ctx context.Context, target int) error {
	if !s.ready {
		return ErrNotInitialized
	}
	if target == s.state.Position-1 {
		return s.GoBack(ctx)
	}
	if target < 0 || target >= s.catalog.Len() {
		return domain.Invalid("position", domain.ErrInvalidPosition)
	}
	if target == s.state.Position {
		return nil
	}
	s.state.Position = target
	s.writePosition(ctx)
	s.emitStepEnter(ctx, CauseNavigate)
	return nil
}

// NavigateTo jumps to the step with the given ID.
func (s *Sequencer) NavigateTo(ctx context.Context, stepID string) error {
	idx := s.catalog.IndexOf(stepID)
	if idx < 0 {
		return domain.Invalid("step_id", domain.ErrUnknownStep)
	}
	return s.Navigate(ctx, idx)
}

// SetUnitSystem changes the unit system. Answers already recorded keep the unit they
// were stamped with.
func (s *Sequencer) SetUnitSystem(ctx context.Context, unit domain.UnitSystem) error {
	if !s.ready {
		return ErrNotInitialized
	}
	if !unit.Valid() {
		return domain.Invalid("unit_system", domain.ErrInvalidUnit)
	}
	s.state.UnitSystem = unit
	s.write(ctx, domain.KeyUnitSystem, string(unit))
	return nil
}

// Convert closes the session after the visitor registered: the remote record is
// marked completed, the quiz keys are cleared from the device and the in-memory
// state restarts at the first step. The unit system survives.
func (s *Sequencer) Convert(ctx context.Context) error {
	if !s.ready {
		return ErrNotInitialized
	}
	if s.sync != nil && s.state.RemoteSessionID == "" {
		s.collectRemote(ctx)
	}
	if id := s.state.RemoteSessionID; id != "" && s.sync != nil {
		now := s.now().UTC()
		s.sync.UpdateSession(ctx, id, domain.SessionUpdate{CompletedAt: &now})
	}

	for _, key := range domain.ConversionKeys {
		s.clear(ctx, key)
	}

	unit := s.state.UnitSystem
	s.state = domain.NewSessionState()
	s.state.UnitSystem = unit
	s.dropRemote()
	s.logger.Info("Session converted")
	return nil
}
