package memory

import (
	"context"
	"sync"

	"github.com/jeweledassist/backend/internal/domain"
)

type SessionStore struct {
	mu       sync.RWMutex
	sessions map[domain.CustomerID]domain.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[domain.CustomerID]domain.Session),
	}
}

func (s *SessionStore) GetSession(ctx context.Context, id domain.CustomerID) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, nil
	}
	cp := sess
	return &cp, nil
}

func (s *SessionStore) SaveSession(ctx context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.Customer] = *session
	return nil
}
