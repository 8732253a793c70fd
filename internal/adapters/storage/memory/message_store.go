package memory

import (
	"context"
	"sync"

	"github.com/jeweledassist/backend/internal/domain"
)

type MessageStore struct {
	mu       sync.RWMutex
	messages []domain.Message
}

func NewMessageStore() *MessageStore {
	return &MessageStore{}
}

func (s *MessageStore) AppendMessage(ctx context.Context, msg *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = append(s.messages, *msg)
	return nil
}

// HistoryFor returns messages where the customer appears on either side,
// oldest first.
func (s *MessageStore) HistoryFor(ctx context.Context, id domain.CustomerID, limit int) ([]*domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Message
	for i := range s.messages {
		m := s.messages[i]
		if m.From == string(id) || m.To == string(id) {
			cp := m
			out = append(out, &cp)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}
