package memory

import (
	"context"
	"sync"

	"github.com/jeweledassist/backend/internal/domain"
)

type SettingsStore struct {
	mu       sync.RWMutex
	settings domain.StoreSettings
}

// NewSettingsStore seeds the store; a nil seed gives a zero-value record.
func NewSettingsStore(seed *domain.StoreSettings) *SettingsStore {
	s := &SettingsStore{}
	if seed != nil {
		s.settings = *seed
	}
	return s
}

func (s *SettingsStore) GetSettings(ctx context.Context) (*domain.StoreSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cp := s.settings
	return &cp, nil
}

func (s *SettingsStore) UpdateSettings(ctx context.Context, settings *domain.StoreSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.settings = *settings
	return nil
}
