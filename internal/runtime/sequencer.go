package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/funnel/internal/logging"
	"github.com/aretw0/funnel/pkg/domain"
	"github.com/aretw0/funnel/pkg/ports"
)

// ErrNotInitialized is returned by operations called before Initialize.
var ErrNotInitialized = errors.New("sequencer not initialized")

// Step entry causes reported through OnStepEnter.
const (
	CauseInit     = "init"
	CauseAdvance  = "advance"
	CauseBack     = "back"
	CauseNavigate = "navigate"
)

// Sequencer is the quiz state machine of one device.
//
// It owns the position, the answer map and the unit system. Every transition is
// written to the LocalStore before the call returns, and mirrored to the remote
// session store through the SyncPort without waiting for it.
//
// A Sequencer is not safe for concurrent use.
type Sequencer struct {
	catalog *domain.Catalog
	store   ports.LocalStore
	sync    ports.SyncPort
	logger  *slog.Logger
	hooks   domain.LifecycleHooks
	now     func() time.Time

	state   domain.SessionState
	utm     domain.UTM
	pending <-chan ports.CreateResult
	abandon func()
	ready   bool
}

// SequencerOption configures a Sequencer.
type SequencerOption func(*Sequencer)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) SequencerOption {
	return func(s *Sequencer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) SequencerOption {
	return func(s *Sequencer) {
		s.hooks = hooks
	}
}

// WithSync enables the remote mirror. Without it no remote call is ever made.
func WithSync(port ports.SyncPort) SequencerOption {
	return func(s *Sequencer) {
		s.sync = port
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) SequencerOption {
	return func(s *Sequencer) {
		s.now = now
	}
}

// NewSequencer creates a sequencer over catalog, persisting to store.
func NewSequencer(catalog *domain.Catalog, store ports.LocalStore, opts ...SequencerOption) *Sequencer {
	s := &Sequencer{
		catalog: catalog,
		store:   store,
		logger:  logging.NewNop(),
		now:     time.Now,
		state:   domain.NewSessionState(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// InitOptions are the host inputs available at startup.
type InitOptions struct {
	// Locator is a step ID addressed by the host (e.g. a URL slug). Unknown IDs are ignored.
	Locator string
	// UTM tags the remote session if one has to be created.
	UTM domain.UTM
}

// Initialize restores the session from the LocalStore and settles the starting position.
//
// Precedence: a valid locator wins and is persisted; otherwise a persisted position
// above zero is resumed; otherwise a pending seed answer is consumed as the first
// step's answer and the quiz starts at the second step; otherwise the quiz starts at
// the first step. Answers, unit system and remote session ID are restored on every
// path. Unreadable or out-of-range values count as absent.
//
// Finally, a remote session create is started unless one is known or already in flight.
func (s *Sequencer) Initialize(ctx context.Context, opts InitOptions) error {
	st := domain.NewSessionState()
	persisted, err := s.restore(ctx, &st)
	if err != nil {
		return err
	}

	s.state = st
	s.utm = opts.UTM

	locator := s.catalog.IndexOf(strings.TrimSpace(opts.Locator))
	switch {
	case locator >= 0:
		s.state.Position = locator
		s.writePosition(ctx)
	case persisted > 0:
		s.state.Position = persisted
	default:
		if err := s.consumeSeed(ctx); err != nil {
			return err
		}
	}

	s.ready = true
	s.logger.Debug("Sequencer initialized",
		"position", s.state.Position,
		"step_id", s.Current().ID,
		"answers", len(s.state.Answers),
		"remote_session_id", s.state.RemoteSessionID,
	)
	s.emitStepEnter(ctx, CauseInit)
	s.pollRemote(ctx)
	return nil
}

// Reload re-reads the persisted state without re-running the start-up precedence. Hosts
// that share one store between processes call it before operating on a cached sequencer.
// An in-flight remote create is kept.
func (s *Sequencer) Reload(ctx context.Context) error {
	if !s.ready {
		return ErrNotInitialized
	}
	st := domain.NewSessionState()
	pos, err := s.restore(ctx, &st)
	if err != nil {
		return err
	}
	if pos > 0 {
		st.Position = pos
	}
	if st.RemoteSessionID == "" {
		st.RemoteSessionID = s.state.RemoteSessionID
	}
	s.state = st
	return nil
}

// restore loads every persisted key into st and returns the persisted position, or -1.
func (s *Sequencer) restore(ctx context.Context, st *domain.SessionState) (int, error) {
	if raw, ok, err := s.load(ctx, domain.KeyAnswers); err != nil {
		return -1, err
	} else if ok {
		answers, err := domain.DecodeAnswers(s.catalog, []byte(raw))
		if err != nil {
			s.logger.Warn("Ignoring unreadable answers", "err", err)
		} else {
			st.Answers = answers
		}
	}

	if raw, ok, err := s.load(ctx, domain.KeyUnitSystem); err != nil {
		return -1, err
	} else if ok {
		if u, err := domain.ParseUnitSystem(raw); err == nil {
			st.UnitSystem = u
		}
	}

	if raw, ok, err := s.load(ctx, domain.KeySessionID); err != nil {
		return -1, err
	} else if ok {
		st.RemoteSessionID = strings.TrimSpace(raw)
	}

	raw, ok, err := s.load(ctx, domain.KeyCurrentStep)
	if err != nil || !ok {
		return -1, err
	}
	pos, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || pos < 0 || pos >= s.catalog.Len() {
		s.logger.Warn("Ignoring unreadable position", "value", raw)
		return -1, nil
	}
	return pos, nil
}

// consumeSeed applies the one-shot seed answer if present. The seed key is cleared
// whether or not the value could be used.
func (s *Sequencer) consumeSeed(ctx context.Context) error {
	raw, ok, err := s.load(ctx, domain.KeyInitialAnswer)
	if err != nil {
		return err
	}
	s.state.Position = 0
	if !ok {
		return nil
	}
	s.clear(ctx, domain.KeyInitialAnswer)

	first, _ := s.catalog.At(0)
	answer, err := decodeSeed(first, raw)
	if err == nil {
		answer, err = normalize(first, answer, s.state.UnitSystem)
	}
	if err != nil {
		s.logger.Warn("Ignoring unusable seed answer", "step_id", first.ID, "err", err)
		return nil
	}

	s.state.Answers[first.ID] = answer
	if s.catalog.Len() > 1 {
		s.state.Position = 1
	}
	s.writeProgress(ctx)
	return nil
}

func decodeSeed(step domain.Step, raw string) (domain.Answer, error) {
	raw = strings.TrimSpace(raw)
	kind := step.Kind.AnswerKind()
	if kind == domain.AnswerText {
		return domain.Text(raw), nil
	}

	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		v = raw
	}
	a, err := domain.DecodeAnswer(kind, v)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("seed for %q: %w", step.ID, err)
	}
	return a, nil
}

// State returns a snapshot of the session state.
func (s *Sequencer) State() domain.SessionState {
	return s.state.Snapshot()
}

// Catalog returns the catalog the sequencer walks.
func (s *Sequencer) Catalog() *domain.Catalog {
	return s.catalog
}

// Position returns the index of the current step.
func (s *Sequencer) Position() int {
	return s.state.Position
}

// Current returns the current step.
func (s *Sequencer) Current() domain.Step {
	step, _ := s.catalog.At(s.state.Position)
	return step
}

// IsTerminal reports whether the current step is the last one.
func (s *Sequencer) IsTerminal() bool {
	return s.state.Position == s.catalog.Last()
}

// Progress returns the 1-based progress number of the current step, the progress
// total, and whether the current step shows the indicator at all.
func (s *Sequencer) Progress() (int, int, bool) {
	return s.catalog.ProgressNumber(s.state.Position), s.catalog.ProgressTotal(), s.Current().CountsTowardProgress()
}
