package runtime

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/aretw0/funnel/pkg/domain"
)

func (s *Sequencer) load(ctx context.Context, key string) (string, bool, error) {
	return s.store.Load(ctx, key)
}

// write stores a value. A failing store is logged and reported; the in-memory
// transition stands.
func (s *Sequencer) write(ctx context.Context, key, value string) {
	if err := s.store.Store(ctx, key, value); err != nil {
		s.persistFailed(ctx, "store", key, err)
	}
}

func (s *Sequencer) clear(ctx context.Context, key string) {
	if err := s.store.Clear(ctx, key); err != nil {
		s.persistFailed(ctx, "clear", key, err)
	}
}

func (s *Sequencer) writePosition(ctx context.Context) {
	s.write(ctx, domain.KeyCurrentStep, strconv.Itoa(s.state.Position))
}

func (s *Sequencer) writeProgress(ctx context.Context) {
	data, err := json.Marshal(s.state.Answers)
	if err != nil {
		s.persistFailed(ctx, "encode", domain.KeyAnswers, err)
	} else {
		s.write(ctx, domain.KeyAnswers, string(data))
	}
	s.writePosition(ctx)
}

func (s *Sequencer) persistFailed(ctx context.Context, op, key string, err error) {
	s.logger.Warn("Local persistence failed", "op", op, "key", key, "err", err)
	if s.hooks.OnPersistError != nil {
		s.hooks.OnPersistError(ctx, &domain.FailureEvent{
			EventBase: domain.EventBase{Timestamp: s.now(), Type: domain.EventPersistError},
			Op:        op,
			Key:       key,
			Err:       err,
		})
	}
}

func (s *Sequencer) emitStepEnter(ctx context.Context, cause string) {
	if s.hooks.OnStepEnter == nil {
		return
	}
	step := s.Current()
	s.hooks.OnStepEnter(ctx, &domain.StepEvent{
		EventBase: domain.EventBase{Timestamp: s.now(), Type: domain.EventStepEnter},
		StepID:    step.ID,
		Kind:      step.Kind,
		Position:  s.state.Position,
		Cause:     cause,
	})
}

func (s *Sequencer) emitAnswer(ctx context.Context, stepID string, kind domain.AnswerKind) {
	if s.hooks.OnAnswer == nil {
		return
	}
	s.hooks.OnAnswer(ctx, &domain.AnswerEvent{
		EventBase: domain.EventBase{Timestamp: s.now(), Type: domain.EventAnswer},
		StepID:    stepID,
		Kind:      kind,
	})
}
