package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/jeweledassist/backend/internal/domain"
)

type ApprovalStore struct {
	mu       sync.RWMutex
	requests map[domain.RequestID]domain.ApprovalRequest
}

func NewApprovalStore() *ApprovalStore {
	return &ApprovalStore{
		requests: make(map[domain.RequestID]domain.ApprovalRequest),
	}
}

func (s *ApprovalStore) CreateApproval(ctx context.Context, req *domain.ApprovalRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.requests[req.ID]; exists {
		return errors.New("approval request already exists")
	}
	s.requests[req.ID] = *req
	return nil
}

func (s *ApprovalStore) GetApproval(ctx context.Context, id domain.RequestID) (*domain.ApprovalRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req, ok := s.requests[id]
	if !ok {
		return nil, nil
	}
	cp := req
	return &cp, nil
}

func (s *ApprovalStore) SetApproved(ctx context.Context, id domain.RequestID, finalPrice int64, at domain.Timestamp) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[id]
	if !ok {
		return errors.New("approval request not found")
	}
	req.Status = domain.StatusApproved
	req.FinalPrice = finalPrice
	req.UpdatedAt = at
	s.requests[id] = req
	return nil
}

func (s *ApprovalStore) ListByStatus(ctx context.Context, status domain.ApprovalStatus, limit int) ([]*domain.ApprovalRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.ApprovalRequest
	for _, req := range s.requests {
		if req.Status == status {
			cp := req
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
