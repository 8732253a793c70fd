package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/jeweledassist/backend/internal/domain"
)

type CustomerStore struct {
	mu        sync.RWMutex
	customers map[domain.CustomerID]domain.CustomerRecord
}

func NewCustomerStore() *CustomerStore {
	return &CustomerStore{
		customers: make(map[domain.CustomerID]domain.CustomerRecord),
	}
}

func (s *CustomerStore) GetCustomer(ctx context.Context, id domain.CustomerID) (*domain.CustomerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.customers[id]
	if !ok {
		return nil, nil
	}
	cp := rec
	return &cp, nil
}

func (s *CustomerStore) UpsertCustomer(ctx context.Context, rec *domain.CustomerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.customers[rec.Customer] = *rec
	return nil
}

func (s *CustomerStore) ListRecentCustomers(ctx context.Context, limit int) ([]*domain.CustomerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.CustomerRecord, 0, len(s.customers))
	for _, rec := range s.customers {
		cp := rec
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastContact.After(out[j].LastContact)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
