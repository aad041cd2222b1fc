package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/funnel/pkg/domain"
	"github.com/google/uuid"
)

// SessionStore implements ports.SessionStore in memory.
// Safe for concurrent use.
type SessionStore struct {
	data map[string]*domain.RemoteSession
	mu   sync.RWMutex
	now  func() time.Time
}

// NewSessionStore creates an empty session mirror.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		data: make(map[string]*domain.RemoteSession),
		now:  time.Now,
	}
}

// Create starts a new session record.
func (s *SessionStore) Create(ctx context.Context, utm domain.UTM) (string, error) {
	id := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[id] = &domain.RemoteSession{
		ID:        id,
		UTM:       utm,
		Answers:   map[string]any{},
		StartedAt: s.now().UTC(),
	}
	return id, nil
}

// Update merges a partial update into the record.
func (s *SessionStore) Update(ctx context.Context, id string, update domain.SessionUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.data[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	rec.Apply(update)
	return nil
}

// Get returns a copy of the record.
func (s *SessionStore) Get(ctx context.Context, id string) (*domain.RemoteSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.data[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	cp := *rec
	cp.Answers = make(map[string]any, len(rec.Answers))
	for k, v := range rec.Answers {
		cp.Answers[k] = v
	}
	return &cp, nil
}

// List returns all session IDs, sorted.
func (s *SessionStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
