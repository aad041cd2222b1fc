package middleware_test

import (
	"context"

	"github.com/aretw0/funnel/pkg/domain"
	"github.com/aretw0/funnel/pkg/ports"
)

// MockSessionStore records every update it receives.
type MockSessionStore struct {
	updates []domain.SessionUpdate
}

func NewMockSessionStore() *MockSessionStore {
	return &MockSessionStore{}
}

func (s *MockSessionStore) Create(ctx context.Context, utm domain.UTM) (string, error) {
	return "mock-session", nil
}

func (s *MockSessionStore) Update(ctx context.Context, id string, update domain.SessionUpdate) error {
	s.updates = append(s.updates, update)
	return nil
}

var _ ports.SessionStore = (*MockSessionStore)(nil)
