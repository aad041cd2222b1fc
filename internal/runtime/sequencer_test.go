package runtime_test

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/funnel/internal/runtime"
	"github.com/aretw0/funnel/pkg/adapters/memory"
	"github.com/aretw0/funnel/pkg/domain"
	"github.com/aretw0/funnel/pkg/mirror"
	"github.com/aretw0/funnel/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func testCatalog(t *testing.T) *domain.Catalog {
	t.Helper()
	c, err := domain.NewCatalog([]domain.Step{
		{ID: "goal", Kind: domain.KindLanding, SkipProgress: true, Choices: []domain.Choice{{ID: "lose"}, {ID: "tone"}}},
		{ID: "knowledge", Kind: domain.KindSingleSelect, Choices: []domain.Choice{{ID: "beginner"}, {ID: "expert"}}},
		{ID: "zones", Kind: domain.KindMultiSelect, Choices: []domain.Choice{{ID: "belly"}, {ID: "arms"}, {ID: "legs"}}},
		{ID: "weight", Kind: domain.KindInput, UnitToggle: true, Fields: []domain.InputField{
			{Name: "weight", Unit: domain.Metric},
			{Name: "weight", Unit: domain.Imperial},
		}},
		{ID: "tips", Kind: domain.KindInfo},
		{ID: "email-capture", Kind: domain.KindEmailCapture},
		{ID: "pricing", Kind: domain.KindPricing, SkipProgress: true},
	})
	require.NoError(t, err)
	return c
}

// fakeSync completes creates immediately and records updates synchronously.
type fakeSync struct {
	mu        sync.Mutex
	id        string
	createErr error
	creates   int
	updates   []domain.SessionUpdate
	ids       []string
}

func (f *fakeSync) CreateSession(ctx context.Context, utm domain.UTM, onCreated func(context.Context, string)) <-chan ports.CreateResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if f.createErr == nil && f.id != "" && onCreated != nil {
		onCreated(ctx, f.id)
	}
	ch := make(chan ports.CreateResult, 1)
	ch <- ports.CreateResult{ID: f.id, Err: f.createErr}
	close(ch)
	return ch
}

func (f *fakeSync) UpdateSession(ctx context.Context, id string, update domain.SessionUpdate) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids = append(f.ids, id)
	f.updates = append(f.updates, update)
}

func (f *fakeSync) last() domain.SessionUpdate {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.updates[len(f.updates)-1]
}

// failingStore fails every write but still serves reads from the wrapped store.
type failingStore struct {
	ports.LocalStore
	err error
}

func (f failingStore) Store(ctx context.Context, key, value string) error { return f.err }
func (f failingStore) Clear(ctx context.Context, key string) error        { return f.err }

func newSequencer(t *testing.T, store ports.LocalStore, opts ...runtime.SequencerOption) *runtime.Sequencer {
	t.Helper()
	seq := runtime.NewSequencer(testCatalog(t), store, opts...)
	require.NoError(t, seq.Initialize(context.Background(), runtime.InitOptions{}))
	return seq
}

func TestSequencer_RecordSingleAnswerAdvances(t *testing.T) {
	ctx := context.Background()
	store := memory.NewLocal()
	seq := newSequencer(t, store)

	require.NoError(t, seq.RecordSingleAnswer(ctx, "goal", domain.Text("lose")))
	require.NoError(t, seq.RecordSingleAnswer(ctx, "knowledge", domain.Text("expert")))

	st := seq.State()
	assert.Equal(t, 2, st.Position)
	assert.Equal(t, domain.Text("lose"), st.Answers["goal"])
	assert.Equal(t, domain.Text("expert"), st.Answers["knowledge"])

	pos, ok, err := store.Load(ctx, domain.KeyCurrentStep)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2", pos)

	raw, ok, err := store.Load(ctx, domain.KeyAnswers)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"goal":"lose","knowledge":"expert"}`, raw)
}

func TestSequencer_AdvanceFromEveryPosition(t *testing.T) {
	ctx := context.Background()
	c := testCatalog(t)

	for p := 0; p < c.Last(); p++ {
		t.Run(strconv.Itoa(p), func(t *testing.T) {
			seq := newSequencer(t, memory.NewLocal())
			require.NoError(t, seq.Navigate(ctx, p))

			step := seq.Current()
			answer := answerFor(step)
			if step.Kind == domain.KindEmailCapture {
				require.NoError(t, seq.RecordEmail(ctx, "a@b.co"))
			} else {
				require.NoError(t, seq.RecordSingleAnswer(ctx, step.ID, answer))
				assert.Contains(t, seq.State().Answers, step.ID)
			}
			assert.Equal(t, p+1, seq.Position())
		})
	}
}

func answerFor(step domain.Step) domain.Answer {
	switch step.Kind.AnswerKind() {
	case domain.AnswerList:
		return domain.List(step.Choices[0].ID)
	case domain.AnswerFields:
		return domain.Fields(map[string]string{"weight": "80"})
	}
	if len(step.Choices) > 0 {
		return domain.Text(step.Choices[0].ID)
	}
	return domain.Text(domain.Viewed)
}

func TestSequencer_AnswerAtLastStepStays(t *testing.T) {
	ctx := context.Background()
	seq := newSequencer(t, memory.NewLocal())
	require.NoError(t, seq.NavigateTo(ctx, "pricing"))
	require.True(t, seq.IsTerminal())

	require.NoError(t, seq.RecordSingleAnswer(ctx, "pricing", domain.Text("3-month")))
	assert.Equal(t, 6, seq.Position())
	assert.Equal(t, domain.Text("3-month"), seq.State().Answers["pricing"])
}

func TestSequencer_EmptyMultiSelectRejected(t *testing.T) {
	ctx := context.Background()
	seq := newSequencer(t, memory.NewLocal())
	require.NoError(t, seq.NavigateTo(ctx, "zones"))
	before := seq.State()

	err := seq.RecordMultiAnswer(ctx, "zones", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmptySelection)
	assert.True(t, domain.IsValidation(err))

	err = seq.RecordSingleAnswer(ctx, "zones", domain.List())
	assert.ErrorIs(t, err, domain.ErrEmptySelection)

	assert.Equal(t, before, seq.State())
}

func TestSequencer_MultiAnswerDeduplicates(t *testing.T) {
	ctx := context.Background()
	seq := newSequencer(t, memory.NewLocal())
	require.NoError(t, seq.NavigateTo(ctx, "zones"))

	require.NoError(t, seq.RecordMultiAnswer(ctx, "zones", []string{"arms", "belly", "arms"}))
	assert.Equal(t, []string{"arms", "belly"}, seq.State().Answers["zones"].List)
	assert.Equal(t, 3, seq.Position())
}

func TestSequencer_RejectsBadAnswers(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		stepID string
		answer domain.Answer
		want   error
	}{
		{"unknown step", "nope", domain.Text("x"), domain.ErrUnknownStep},
		{"unknown choice", "knowledge", domain.Text("wizard"), domain.ErrUnknownChoice},
		{"unknown list item", "zones", domain.List("belly", "tail"), domain.ErrUnknownChoice},
		{"wrong kind", "zones", domain.Text("belly"), domain.ErrAnswerKind},
		{"blank text", "knowledge", domain.Text("  "), domain.ErrEmptySelection},
		{"no fields", "weight", domain.Fields(nil), domain.ErrMissingField},
		{"blank field", "weight", domain.Fields(map[string]string{"weight": " "}), domain.ErrMissingField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq := newSequencer(t, memory.NewLocal())
			err := seq.RecordSingleAnswer(ctx, tt.stepID, tt.answer)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, domain.IsValidation(err))
			assert.Equal(t, 0, seq.Position())
			assert.Empty(t, seq.State().Answers)
		})
	}
}

func TestSequencer_StampsUnitOnInput(t *testing.T) {
	ctx := context.Background()
	seq := newSequencer(t, memory.NewLocal())
	require.NoError(t, seq.SetUnitSystem(ctx, domain.Imperial))
	require.NoError(t, seq.NavigateTo(ctx, "weight"))

	require.NoError(t, seq.RecordSingleAnswer(ctx, "weight", domain.Fields(map[string]string{"weight": " 180 "})))
	assert.Equal(t, map[string]string{"weight": "180", "unit": "imperial"}, seq.State().Answers["weight"].Fields)

	require.NoError(t, seq.GoBack(ctx))
	require.NoError(t, seq.RecordSingleAnswer(ctx, "weight", domain.Fields(map[string]string{"weight": "80", "unit": "metric"})))
	assert.Equal(t, "metric", seq.State().Answers["weight"].Fields["unit"])
}

func TestSequencer_RecordEmail(t *testing.T) {
	ctx := context.Background()
	store := memory.NewLocal()
	seq := newSequencer(t, store)
	require.NoError(t, seq.NavigateTo(ctx, "email-capture"))
	before := seq.State()

	err := seq.RecordEmail(ctx, "not-an-email")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidEmail)
	assert.Equal(t, before, seq.State())
	_, ok, _ := store.Load(ctx, domain.KeyEmailLocal)
	assert.False(t, ok)

	require.NoError(t, seq.RecordEmail(ctx, " a@b.co "))
	assert.Equal(t, before.Position+1, seq.Position())
	assert.Equal(t, domain.Text("a@b.co"), seq.State().Answers[domain.KeyEmail])

	saved, ok, err := store.Load(ctx, domain.KeyEmailLocal)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a@b.co", saved)

	email, ok := seq.SavedEmail(ctx)
	assert.True(t, ok)
	assert.Equal(t, "a@b.co", email)
}

func TestValidEmail(t *testing.T) {
	assert.True(t, runtime.ValidEmail("a@b.co"))
	assert.True(t, runtime.ValidEmail("first.last+tag@mail.example.com"))
	assert.False(t, runtime.ValidEmail("a@b"))
	assert.False(t, runtime.ValidEmail("a b@c.de"))
	assert.False(t, runtime.ValidEmail("@b.co"))
	assert.False(t, runtime.ValidEmail(""))
}

func TestSequencer_Continue(t *testing.T) {
	ctx := context.Background()
	seq := newSequencer(t, memory.NewLocal())

	err := seq.Continue(ctx)
	assert.ErrorIs(t, err, domain.ErrAnswerKind, "landing needs a choice")

	require.NoError(t, seq.NavigateTo(ctx, "tips"))
	require.NoError(t, seq.Continue(ctx))
	assert.Equal(t, "email-capture", seq.Current().ID)
	assert.Equal(t, domain.Text(domain.Viewed), seq.State().Answers["tips"])

	assert.ErrorIs(t, seq.Continue(ctx), domain.ErrAnswerKind)
}

func TestSequencer_ResumeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.NewLocal()
	require.NoError(t, store.Store(ctx, domain.KeyCurrentStep, "5"))
	require.NoError(t, store.Store(ctx, domain.KeyAnswers, `{"goal":"lose","zones":["arms","legs"],"weight":{"weight":"170","unit":"imperial"}}`))
	require.NoError(t, store.Store(ctx, domain.KeyUnitSystem, "imperial"))

	first := newSequencer(t, store).State()
	second := newSequencer(t, store).State()

	assert.Equal(t, 5, first.Position)
	assert.Equal(t, domain.Imperial, first.UnitSystem)
	assert.Equal(t, domain.Text("lose"), first.Answers["goal"])
	assert.Equal(t, []string{"arms", "legs"}, first.Answers["zones"].List)
	assert.Equal(t, "170", first.Answers["weight"].Fields["weight"])
	assert.Equal(t, first, second)
}

func TestSequencer_SeedConsumedOnce(t *testing.T) {
	ctx := context.Background()
	store := memory.NewLocal()
	require.NoError(t, store.Store(ctx, domain.KeyInitialAnswer, "tone"))

	seq := newSequencer(t, store)
	assert.Equal(t, 1, seq.Position())
	assert.Equal(t, domain.Text("tone"), seq.State().Answers["goal"])
	_, ok, _ := store.Load(ctx, domain.KeyInitialAnswer)
	assert.False(t, ok)

	require.NoError(t, seq.GoBack(ctx))
	require.NoError(t, seq.RecordSingleAnswer(ctx, "goal", domain.Text("lose")))
	require.NoError(t, seq.GoBack(ctx))

	again := newSequencer(t, store)
	assert.Equal(t, 0, again.Position())
	assert.Equal(t, domain.Text("lose"), again.State().Answers["goal"])
}

func TestSequencer_UnusableSeedIsDropped(t *testing.T) {
	ctx := context.Background()
	store := memory.NewLocal()
	require.NoError(t, store.Store(ctx, domain.KeyInitialAnswer, "unicorn"))

	seq := newSequencer(t, store)
	assert.Equal(t, 0, seq.Position())
	assert.Empty(t, seq.State().Answers)
	_, ok, _ := store.Load(ctx, domain.KeyInitialAnswer)
	assert.False(t, ok)
}

func TestSequencer_SeedIgnoredWhenResuming(t *testing.T) {
	ctx := context.Background()
	store := memory.NewLocal()
	require.NoError(t, store.Store(ctx, domain.KeyCurrentStep, "3"))
	require.NoError(t, store.Store(ctx, domain.KeyInitialAnswer, "tone"))

	seq := newSequencer(t, store)
	assert.Equal(t, 3, seq.Position())
	assert.NotContains(t, seq.State().Answers, "goal")
}

func TestSequencer_LocatorWins(t *testing.T) {
	ctx := context.Background()
	store := memory.NewLocal()
	require.NoError(t, store.Store(ctx, domain.KeyCurrentStep, "3"))
	require.NoError(t, store.Store(ctx, domain.KeyAnswers, `{"goal":"lose"}`))

	seq := runtime.NewSequencer(testCatalog(t), store)
	require.NoError(t, seq.Initialize(ctx, runtime.InitOptions{Locator: "email-capture"}))
	assert.Equal(t, 5, seq.Position())
	assert.Equal(t, domain.Text("lose"), seq.State().Answers["goal"])

	pos, _, _ := store.Load(ctx, domain.KeyCurrentStep)
	assert.Equal(t, "5", pos)

	seq = runtime.NewSequencer(testCatalog(t), store)
	require.NoError(t, seq.Initialize(ctx, runtime.InitOptions{Locator: "does-not-exist"}))
	assert.Equal(t, 5, seq.Position(), "unknown locator falls back to the persisted position")
}

func TestSequencer_CorruptStateIsAbsent(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		values map[string]string
	}{
		{"garbage answers", map[string]string{domain.KeyAnswers: "{not json"}},
		{"garbage position", map[string]string{domain.KeyCurrentStep: "five"}},
		{"position out of range", map[string]string{domain.KeyCurrentStep: "99"}},
		{"negative position", map[string]string{domain.KeyCurrentStep: "-1"}},
		{"bad unit", map[string]string{domain.KeyUnitSystem: "stones"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewLocal()
			for k, v := range tt.values {
				require.NoError(t, store.Store(ctx, k, v))
			}
			seq := newSequencer(t, store)
			st := seq.State()
			assert.Equal(t, 0, st.Position)
			assert.Empty(t, st.Answers)
			assert.Equal(t, domain.Metric, st.UnitSystem)
		})
	}
}

func TestSequencer_GoBack(t *testing.T) {
	ctx := context.Background()
	store := memory.NewLocal()
	seq := newSequencer(t, store)

	require.NoError(t, seq.GoBack(ctx))
	assert.Equal(t, 0, seq.Position())

	require.NoError(t, seq.Navigate(ctx, 4))
	require.NoError(t, seq.GoBack(ctx))
	assert.Equal(t, 3, seq.Position())

	// An external back event is the same transition.
	require.NoError(t, seq.Navigate(ctx, 2))
	assert.Equal(t, 2, seq.Position())
	pos, _, _ := store.Load(ctx, domain.KeyCurrentStep)
	assert.Equal(t, "2", pos)
}

func TestSequencer_GoBackEquivalentToExternalBack(t *testing.T) {
	ctx := context.Background()
	var causes []string
	hooks := domain.LifecycleHooks{
		OnStepEnter: func(ctx context.Context, e *domain.StepEvent) { causes = append(causes, e.Cause) },
	}

	direct := newSequencer(t, memory.NewLocal(), runtime.WithLifecycleHooks(hooks))
	external := newSequencer(t, memory.NewLocal(), runtime.WithLifecycleHooks(hooks))
	for _, seq := range []*runtime.Sequencer{direct, external} {
		require.NoError(t, seq.Navigate(ctx, 3))
	}
	causes = nil

	require.NoError(t, direct.GoBack(ctx))
	require.NoError(t, external.Navigate(ctx, 2))

	assert.Equal(t, direct.State(), external.State())
	assert.Equal(t, []string{runtime.CauseBack, runtime.CauseBack}, causes)
}

func TestSequencer_NavigateBounds(t *testing.T) {
	ctx := context.Background()
	seq := newSequencer(t, memory.NewLocal())

	assert.ErrorIs(t, seq.Navigate(ctx, 7), domain.ErrInvalidPosition)
	assert.ErrorIs(t, seq.Navigate(ctx, -2), domain.ErrInvalidPosition)
	assert.ErrorIs(t, seq.NavigateTo(ctx, "nope"), domain.ErrUnknownStep)
	assert.NoError(t, seq.Navigate(ctx, 0))
	assert.Equal(t, 0, seq.Position())
}

func TestSequencer_SetUnitSystemPersistsAlone(t *testing.T) {
	ctx := context.Background()
	store := memory.NewLocal()
	seq := newSequencer(t, store)

	assert.ErrorIs(t, seq.SetUnitSystem(ctx, "stones"), domain.ErrInvalidUnit)
	require.NoError(t, seq.SetUnitSystem(ctx, domain.Imperial))

	v, ok, _ := store.Load(ctx, domain.KeyUnitSystem)
	assert.True(t, ok)
	assert.Equal(t, "imperial", v)
	_, ok, _ = store.Load(ctx, domain.KeyCurrentStep)
	assert.False(t, ok)
	_, ok, _ = store.Load(ctx, domain.KeyAnswers)
	assert.False(t, ok)
}

func TestSequencer_NotInitialized(t *testing.T) {
	ctx := context.Background()
	seq := runtime.NewSequencer(testCatalog(t), memory.NewLocal())

	assert.ErrorIs(t, seq.RecordSingleAnswer(ctx, "goal", domain.Text("lose")), runtime.ErrNotInitialized)
	assert.ErrorIs(t, seq.RecordEmail(ctx, "a@b.co"), runtime.ErrNotInitialized)
	assert.ErrorIs(t, seq.GoBack(ctx), runtime.ErrNotInitialized)
	assert.ErrorIs(t, seq.Convert(ctx), runtime.ErrNotInitialized)
}

func TestSequencer_RemoteMirror(t *testing.T) {
	ctx := context.Background()
	store := memory.NewLocal()
	remote := &fakeSync{id: "remote-1"}
	seq := runtime.NewSequencer(testCatalog(t), store, runtime.WithSync(remote))
	require.NoError(t, seq.Initialize(ctx, runtime.InitOptions{UTM: domain.UTM{Source: "ads"}}))

	require.NoError(t, seq.RecordSingleAnswer(ctx, "goal", domain.Text("lose")))
	assert.Equal(t, "remote-1", seq.State().RemoteSessionID)
	id, _, _ := store.Load(ctx, domain.KeySessionID)
	assert.Equal(t, "remote-1", id)

	update := remote.last()
	require.NotNil(t, update.CurrentStep)
	assert.Equal(t, 2, *update.CurrentStep)
	assert.Equal(t, map[string]any{"goal": "lose"}, update.Answers)
	assert.Nil(t, update.Email)

	require.NoError(t, seq.NavigateTo(ctx, "email-capture"))
	require.NoError(t, seq.RecordEmail(ctx, "a@b.co"))
	update = remote.last()
	require.NotNil(t, update.Email)
	assert.Equal(t, "a@b.co", *update.Email)

	// A cached id suppresses a second create.
	again := runtime.NewSequencer(testCatalog(t), store, runtime.WithSync(remote))
	require.NoError(t, again.Initialize(ctx, runtime.InitOptions{}))
	assert.Equal(t, 1, remote.creates)
}

func TestSequencer_GoBackDoesNotSync(t *testing.T) {
	ctx := context.Background()
	remote := &fakeSync{id: "remote-1"}
	seq := newSequencer(t, memory.NewLocal(), runtime.WithSync(remote))
	require.NoError(t, seq.RecordSingleAnswer(ctx, "goal", domain.Text("lose")))
	n := len(remote.updates)

	require.NoError(t, seq.GoBack(ctx))
	assert.Len(t, remote.updates, n)
}

func TestSequencer_CreateFailureRetriesLazily(t *testing.T) {
	ctx := context.Background()
	remote := &fakeSync{createErr: errors.New("offline")}
	seq := newSequencer(t, memory.NewLocal(), runtime.WithSync(remote))

	require.NoError(t, seq.RecordSingleAnswer(ctx, "goal", domain.Text("lose")))
	assert.Empty(t, seq.State().RemoteSessionID)
	assert.Empty(t, remote.updates)

	remote.mu.Lock()
	remote.createErr = nil
	remote.id = "late"
	remote.mu.Unlock()

	require.NoError(t, seq.RecordSingleAnswer(ctx, "knowledge", domain.Text("expert")))
	require.NoError(t, seq.RecordMultiAnswer(ctx, "zones", []string{"arms"}))
	assert.Equal(t, "late", seq.State().RemoteSessionID)
	assert.Equal(t, []string{"late"}, remote.ids)
	assert.Equal(t, 3, seq.Position())
}

func TestSequencer_LocalStoreFailureKeepsTransition(t *testing.T) {
	ctx := context.Background()
	var failures []string
	hooks := domain.LifecycleHooks{
		OnPersistError: func(ctx context.Context, e *domain.FailureEvent) { failures = append(failures, e.Key) },
	}
	store := failingStore{LocalStore: memory.NewLocal(), err: errors.New("quota exceeded")}
	seq := newSequencer(t, store, runtime.WithLifecycleHooks(hooks))

	require.NoError(t, seq.RecordSingleAnswer(ctx, "goal", domain.Text("lose")))
	assert.Equal(t, 1, seq.Position())
	assert.Equal(t, []string{domain.KeyAnswers, domain.KeyCurrentStep}, failures)
}

func TestSequencer_Convert(t *testing.T) {
	ctx := context.Background()
	store := memory.NewLocal()
	remote := &fakeSync{id: "remote-1"}
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	seq := newSequencer(t, store, runtime.WithSync(remote), runtime.WithClock(func() time.Time { return now }))

	require.NoError(t, seq.SetUnitSystem(ctx, domain.Imperial))
	require.NoError(t, seq.RecordSingleAnswer(ctx, "goal", domain.Text("lose")))
	require.NoError(t, seq.NavigateTo(ctx, "email-capture"))
	require.NoError(t, seq.RecordEmail(ctx, "a@b.co"))

	require.NoError(t, seq.Convert(ctx))

	update := remote.last()
	require.NotNil(t, update.CompletedAt)
	assert.Equal(t, now, *update.CompletedAt)

	for _, key := range domain.ConversionKeys {
		_, ok, err := store.Load(ctx, key)
		require.NoError(t, err)
		assert.False(t, ok, key)
	}
	unit, ok, _ := store.Load(ctx, domain.KeyUnitSystem)
	assert.True(t, ok)
	assert.Equal(t, "imperial", unit)

	st := seq.State()
	assert.Equal(t, 0, st.Position)
	assert.Empty(t, st.Answers)
	assert.Empty(t, st.RemoteSessionID)
	assert.Equal(t, domain.Imperial, st.UnitSystem)
}

func TestSequencer_CreatedIDIsPersistedForNextOpen(t *testing.T) {
	ctx := context.Background()
	store := memory.NewLocal()
	remote := &fakeSync{id: "remote-1"}
	newSequencer(t, store, runtime.WithSync(remote))

	id, ok, err := store.Load(ctx, domain.KeySessionID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "remote-1", id)

	// A second sequencer on the same device reuses the record.
	seq := newSequencer(t, store, runtime.WithSync(remote))
	assert.Equal(t, "remote-1", seq.State().RemoteSessionID)
	require.NoError(t, seq.RecordSingleAnswer(ctx, "goal", domain.Text("lose")))
	assert.Equal(t, 1, remote.creates)
	assert.Equal(t, []string{"remote-1"}, remote.ids)
}

func TestSequencer_ConvertStartsNoCreate(t *testing.T) {
	ctx := context.Background()
	remote := &fakeSync{createErr: errors.New("offline")}
	seq := newSequencer(t, memory.NewLocal(), runtime.WithSync(remote))
	require.NoError(t, seq.RecordSingleAnswer(ctx, "goal", domain.Text("lose")))
	before := remote.creates

	require.NoError(t, seq.Convert(ctx))
	assert.Equal(t, before, remote.creates)
	assert.Empty(t, remote.updates)
}

func TestSequencer_ConvertDropsPendingCreate(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := context.Background()
	store := memory.NewLocal()
	gate := make(chan struct{})
	syncer := mirror.New(gatedSessions{SessionStore: memory.NewSessionStore(), gate: gate})
	seq := newSequencer(t, store, runtime.WithSync(syncer))

	require.NoError(t, seq.Convert(ctx))
	close(gate)
	syncer.Wait()

	_, ok, err := store.Load(ctx, domain.KeySessionID)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, seq.State().RemoteSessionID)
}

// gatedSessions holds every create until gate is closed.
type gatedSessions struct {
	*memory.SessionStore
	gate chan struct{}
}

func (g gatedSessions) Create(ctx context.Context, utm domain.UTM) (string, error) {
	<-g.gate
	return g.SessionStore.Create(ctx, utm)
}

func TestSequencer_Hooks(t *testing.T) {
	ctx := context.Background()
	var entered, answered []string
	hooks := domain.LifecycleHooks{
		OnStepEnter: func(ctx context.Context, e *domain.StepEvent) { entered = append(entered, e.Cause+":"+e.StepID) },
		OnAnswer:    func(ctx context.Context, e *domain.AnswerEvent) { answered = append(answered, e.StepID) },
	}
	seq := newSequencer(t, memory.NewLocal(), runtime.WithLifecycleHooks(hooks))

	require.NoError(t, seq.RecordSingleAnswer(ctx, "goal", domain.Text("lose")))
	require.NoError(t, seq.NavigateTo(ctx, "tips"))
	require.NoError(t, seq.GoBack(ctx))

	assert.Equal(t, []string{"init:goal", "advance:knowledge", "navigate:tips", "back:weight"}, entered)
	assert.Equal(t, []string{"goal"}, answered)
}

func TestSequencer_Progress(t *testing.T) {
	ctx := context.Background()
	seq := newSequencer(t, memory.NewLocal())

	_, total, visible := seq.Progress()
	assert.Equal(t, 5, total)
	assert.False(t, visible)

	require.NoError(t, seq.NavigateTo(ctx, "zones"))
	n, _, visible := seq.Progress()
	assert.Equal(t, 2, n)
	assert.True(t, visible)
}

// brokenRemote accepts creates but fails every update, as a dropped connection would.
type brokenRemote struct {
	*memory.SessionStore
}

func (brokenRemote) Update(ctx context.Context, id string, update domain.SessionUpdate) error {
	return errors.New("connection reset by peer")
}

func TestSequencer_RemoteUpdateFailureIsSwallowed(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := context.Background()
	var syncErrors []string
	hooks := domain.LifecycleHooks{
		OnSyncError: func(ctx context.Context, e *domain.FailureEvent) { syncErrors = append(syncErrors, e.Op) },
	}
	syncer := mirror.New(brokenRemote{memory.NewSessionStore()}, mirror.WithLifecycleHooks(hooks))
	seq := runtime.NewSequencer(testCatalog(t), memory.NewLocal(), runtime.WithSync(syncer))
	require.NoError(t, seq.Initialize(ctx, runtime.InitOptions{}))
	require.NotEmpty(t, seq.WaitRemote(ctx))

	err := seq.RecordSingleAnswer(ctx, "goal", domain.Text("lose"))
	require.NoError(t, err)
	syncer.Wait()

	assert.Equal(t, 1, seq.Position())
	assert.Equal(t, domain.Answers{"goal": domain.Text("lose")}, seq.State().Answers)
	assert.Equal(t, []string{"update"}, syncErrors)
}
