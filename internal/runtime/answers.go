package runtime

import (
	"context"
	"regexp"
	"strings"

	"github.com/aretw0/funnel/pkg/domain"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether s looks like an email address.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(strings.TrimSpace(s))
}

// RecordSingleAnswer records the answer for stepID and advances, unless the current
// step is the last one. The step does not have to be the current one; the answer is
// stored under stepID while advancing moves from the current position.
func (s *Sequencer) RecordSingleAnswer(ctx context.Context, stepID string, answer domain.Answer) error {
	if !s.ready {
		return ErrNotInitialized
	}
	step, _, ok := s.catalog.Lookup(stepID)
	if !ok {
		return domain.Invalid("step_id", domain.ErrUnknownStep)
	}
	normalized, err := normalize(step, answer, s.state.UnitSystem)
	if err != nil {
		return err
	}
	s.commit(ctx, step, normalized)
	return nil
}

// RecordMultiAnswer records a multi-select answer. An empty selection is rejected
// without touching the state.
func (s *Sequencer) RecordMultiAnswer(ctx context.Context, stepID string, values []string) error {
	if !s.ready {
		return ErrNotInitialized
	}
	if len(values) == 0 {
		return domain.Invalid(stepID, domain.ErrEmptySelection)
	}
	return s.RecordSingleAnswer(ctx, stepID, domain.List(values...))
}

// RecordEmail stores a validated email under the reserved "email" answer key and advances.
func (s *Sequencer) RecordEmail(ctx context.Context, email string) error {
	if !s.ready {
		return ErrNotInitialized
	}
	email = strings.TrimSpace(email)
	if !emailPattern.MatchString(email) {
		return domain.Invalid("email", domain.ErrInvalidEmail)
	}

	s.state.Answers[domain.KeyEmail] = domain.Text(email)
	s.write(ctx, domain.KeyEmailLocal, email)
	s.emitAnswer(ctx, domain.KeyEmail, domain.AnswerText)

	advanced := s.advance()
	s.writeProgress(ctx)
	if advanced {
		s.emitStepEnter(ctx, CauseAdvance)
	}
	s.pushProgress(ctx, &email)
	return nil
}

// Continue acknowledges the current step when it asks for no input, recording
// domain.Viewed and advancing.
func (s *Sequencer) Continue(ctx context.Context) error {
	if !s.ready {
		return ErrNotInitialized
	}
	step := s.Current()
	if step.Kind.AnswerKind() != domain.AnswerText || step.Kind.NeedsChoices() || step.Kind == domain.KindEmailCapture {
		return domain.Invalid(step.ID, domain.ErrAnswerKind)
	}
	s.commit(ctx, step, domain.Text(domain.Viewed))
	return nil
}

// SavedEmail returns the email remembered on this device, if any.
func (s *Sequencer) SavedEmail(ctx context.Context) (string, bool) {
	if a, ok := s.state.Answers.Text(domain.KeyEmail); ok && a != "" {
		return a, true
	}
	v, ok, err := s.load(ctx, domain.KeyEmailLocal)
	if err != nil || !ok || v == "" {
		return "", false
	}
	return v, true
}

func (s *Sequencer) commit(ctx context.Context, step domain.Step, answer domain.Answer) {
	s.state.Answers[step.ID] = answer
	s.emitAnswer(ctx, step.ID, answer.Kind)

	advanced := s.advance()
	s.writeProgress(ctx)
	if advanced {
		s.emitStepEnter(ctx, CauseAdvance)
	}

	var email *string
	if e, ok := s.state.Answers.Text(domain.KeyEmail); ok && e != "" {
		email = &e
	}
	s.pushProgress(ctx, email)
}

func (s *Sequencer) advance() bool {
	if s.state.Position >= s.catalog.Last() {
		return false
	}
	s.state.Position++
	return true
}

// normalize checks an answer against its step and returns the value to store.
func normalize(step domain.Step, a domain.Answer, unit domain.UnitSystem) (domain.Answer, error) {
	want := step.Kind.AnswerKind()
	if a.Kind != want {
		return domain.Answer{}, domain.Invalid(step.ID, domain.ErrAnswerKind)
	}

	switch want {
	case domain.AnswerText:
		v := strings.TrimSpace(a.Text)
		if v == "" {
			return domain.Answer{}, domain.Invalid(step.ID, domain.ErrEmptySelection)
		}
		if step.Kind.NeedsChoices() && !step.HasChoice(v) {
			return domain.Answer{}, domain.Invalid(step.ID, domain.ErrUnknownChoice)
		}
		return domain.Text(v), nil

	case domain.AnswerList:
		list := domain.List(a.List...)
		if len(list.List) == 0 {
			return domain.Answer{}, domain.Invalid(step.ID, domain.ErrEmptySelection)
		}
		for _, v := range list.List {
			if !step.HasChoice(v) {
				return domain.Answer{}, domain.Invalid(step.ID, domain.ErrUnknownChoice)
			}
		}
		return list, nil

	default:
		if len(a.Fields) == 0 {
			return domain.Answer{}, domain.Invalid(step.ID, domain.ErrMissingField)
		}
		fields := make(map[string]string, len(a.Fields)+1)
		for k, v := range a.Fields {
			v = strings.TrimSpace(v)
			if v == "" {
				return domain.Answer{}, domain.Invalid(k, domain.ErrMissingField)
			}
			fields[k] = v
		}
		if step.UnitToggle {
			if _, ok := fields[domain.KeyUnit]; !ok {
				fields[domain.KeyUnit] = string(unit)
			}
		}
		return domain.Fields(fields), nil
	}
}
