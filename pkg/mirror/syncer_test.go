package mirror_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/funnel/pkg/domain"
	"github.com/aretw0/funnel/pkg/mirror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// fakeStore records calls and can fail or block on demand.
type fakeStore struct {
	mu      sync.Mutex
	err     error
	block   chan struct{}
	updates []string
}

func (f *fakeStore) Create(ctx context.Context, utm domain.UTM) (string, error) {
	if err := f.wait(ctx); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return "remote-" + utm.Source, nil
}

func (f *fakeStore) Update(ctx context.Context, id string, update domain.SessionUpdate) error {
	if err := f.wait(ctx); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.updates = append(f.updates, id)
	return nil
}

func (f *fakeStore) wait(ctx context.Context) error {
	if f.block == nil {
		return nil
	}
	select {
	case <-f.block:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeStore) Updates() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.updates...)
}

type failures struct {
	mu     sync.Mutex
	events []domain.FailureEvent
}

func (f *failures) hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnSyncError: func(_ context.Context, e *domain.FailureEvent) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.events = append(f.events, *e)
		},
	}
}

func (f *failures) All() []domain.FailureEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.FailureEvent(nil), f.events...)
}

func TestSyncer_CreateDeliversID(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := mirror.New(&fakeStore{})
	res := <-s.CreateSession(context.Background(), domain.UTM{Source: "ads"}, nil)
	require.NoError(t, res.Err)
	assert.Equal(t, "remote-ads", res.ID)

	_, open := <-s.CreateSession(context.Background(), domain.UTM{}, nil)
	assert.True(t, open)
	s.Wait()
}

func TestSyncer_CreateCallsOnCreatedFirst(t *testing.T) {
	defer goleak.VerifyNone(t)

	var got string
	s := mirror.New(&fakeStore{})
	res := <-s.CreateSession(context.Background(), domain.UTM{Source: "ads"}, func(ctx context.Context, id string) {
		got = id
	})
	require.NoError(t, res.Err)
	assert.Equal(t, res.ID, got)
	s.Wait()
}

func TestSyncer_FailedCreateSkipsOnCreated(t *testing.T) {
	defer goleak.VerifyNone(t)

	called := false
	s := mirror.New(&fakeStore{err: errors.New("offline")})
	res := <-s.CreateSession(context.Background(), domain.UTM{}, func(ctx context.Context, id string) {
		called = true
	})
	assert.Error(t, res.Err)
	assert.False(t, called)
	s.Wait()
}

func TestSyncer_CreateFailureIsReported(t *testing.T) {
	defer goleak.VerifyNone(t)

	boom := errors.New("connection refused")
	var got failures
	s := mirror.New(&fakeStore{err: boom}, mirror.WithLifecycleHooks(got.hooks()))

	res := <-s.CreateSession(context.Background(), domain.UTM{}, nil)
	assert.ErrorIs(t, res.Err, boom)
	s.Wait()

	events := got.All()
	require.Len(t, events, 1)
	assert.Equal(t, "create", events[0].Op)
	assert.Equal(t, domain.EventSyncError, events[0].Type)
}

func TestSyncer_UpdateOutlivesCallerContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := &fakeStore{block: make(chan struct{})}
	s := mirror.New(store)

	ctx, cancel := context.WithCancel(context.Background())
	step := 2
	s.UpdateSession(ctx, "id-1", domain.SessionUpdate{CurrentStep: &step})
	cancel()
	close(store.block)
	s.Wait()

	assert.Equal(t, []string{"id-1"}, store.Updates())
}

func TestSyncer_IgnoresEmptyCalls(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := &fakeStore{}
	s := mirror.New(store)
	step := 1
	s.UpdateSession(context.Background(), "", domain.SessionUpdate{CurrentStep: &step})
	s.UpdateSession(context.Background(), "id", domain.SessionUpdate{})
	s.Wait()

	assert.Empty(t, store.Updates())
}

func TestSyncer_DropsWhenSaturated(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := &fakeStore{block: make(chan struct{})}
	var got failures
	s := mirror.New(store, mirror.WithMaxInFlight(1), mirror.WithLifecycleHooks(got.hooks()))

	step := 1
	s.UpdateSession(context.Background(), "first", domain.SessionUpdate{CurrentStep: &step})
	res := <-s.CreateSession(context.Background(), domain.UTM{}, nil)
	assert.ErrorIs(t, res.Err, mirror.ErrSaturated)

	close(store.block)
	s.Wait()

	assert.Equal(t, []string{"first"}, store.Updates())
	events := got.All()
	require.Len(t, events, 1)
	assert.ErrorIs(t, events[0].Err, mirror.ErrSaturated)
}

func TestSyncer_Timeout(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := &fakeStore{block: make(chan struct{})}
	defer close(store.block)
	var got failures
	s := mirror.New(store, mirror.WithTimeout(20*time.Millisecond), mirror.WithLifecycleHooks(got.hooks()))

	step := 1
	s.UpdateSession(context.Background(), "slow", domain.SessionUpdate{CurrentStep: &step})
	s.Wait()

	events := got.All()
	require.Len(t, events, 1)
	assert.ErrorIs(t, events[0].Err, context.DeadlineExceeded)
	assert.Equal(t, "slow", events[0].Key)
}
