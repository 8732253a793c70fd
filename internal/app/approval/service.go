// Package approval gates high-value quotes behind an explicit operator
// sign-off step.
package approval

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jeweledassist/backend/internal/domain"
	"github.com/jeweledassist/backend/internal/metrics"
	"github.com/jeweledassist/backend/internal/observability"
)

type Service struct {
	store    domain.ApprovalStore
	recorder *metrics.Recorder
	now      func() time.Time
}

func NewService(store domain.ApprovalStore, recorder *metrics.Recorder) *Service {
	return &Service{
		store:    store,
		recorder: recorder,
		now:      time.Now,
	}
}

// WithClock replaces the clock, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Create stores a new request. A failure here is fatal to the caller: a
// silently lost quote awaiting approval is a business-critical loss.
func (s *Service) Create(ctx context.Context, req *domain.ApprovalRequest) (*domain.ApprovalRequest, error) {
	now := s.now()
	if req.ID == "" {
		req.ID = domain.RequestID(uuid.NewString())
	}
	if req.Status == "" {
		req.Status = domain.StatusPendingApproval
	}
	req.CreatedAt = now
	req.UpdatedAt = now

	if err := s.store.CreateApproval(ctx, req); err != nil {
		return nil, fmt.Errorf("create approval request: %w", err)
	}
	s.recorder.Approval(string(req.Status))
	return req, nil
}

// Approve transitions a request to approved with the operator-supplied
// final price. It reports success rather than returning an error: approval
// is operator-retriable. Approving an already-approved request succeeds and
// overwrites the recorded final price.
func (s *Service) Approve(ctx context.Context, id domain.RequestID, finalPrice int64) bool {
	if err := s.store.SetApproved(ctx, id, finalPrice, s.now()); err != nil {
		observability.LoggerFromContext(ctx).Error("approve failed", "request", id, "error", err)
		return false
	}
	s.recorder.Approval(string(domain.StatusApproved))
	return true
}

// Get returns a request by id, nil when absent or unreadable.
func (s *Service) Get(ctx context.Context, id domain.RequestID) *domain.ApprovalRequest {
	req, err := s.store.GetApproval(ctx, id)
	if err != nil {
		observability.LoggerFromContext(ctx).Warn("approval read failed", "request", id, "error", err)
		return nil
	}
	return req
}

// ListPending returns pending requests newest-first. On a read failure the
// dashboard degrades to "no pending items" instead of crashing.
func (s *Service) ListPending(ctx context.Context) []*domain.ApprovalRequest {
	out, err := s.store.ListByStatus(ctx, domain.StatusPendingApproval, 0)
	if err != nil {
		observability.LoggerFromContext(ctx).Warn("pending list read failed", "error", err)
		return []*domain.ApprovalRequest{}
	}
	return out
}

// CountPending is ListPending for the stats endpoint.
func (s *Service) CountPending(ctx context.Context) int {
	return len(s.ListPending(ctx))
}
