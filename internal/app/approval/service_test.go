package approval

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeweledassist/backend/internal/adapters/storage/memory"
	"github.com/jeweledassist/backend/internal/domain"
)

func newTestService() *Service {
	return NewService(memory.NewApprovalStore(), nil).
		WithClock(func() time.Time { return time.Unix(7000, 0) })
}

func TestCreateAssignsIDAndStatus(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	req, err := svc.Create(ctx, &domain.ApprovalRequest{
		Customer:      "cust-1",
		Type:          domain.TypeEstimate,
		Metal:         domain.MetalGold,
		Grams:         10,
		EstimatedCost: 69000,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, req.ID)
	assert.Equal(t, domain.StatusPendingApproval, req.Status)
	assert.Equal(t, time.Unix(7000, 0), req.CreatedAt)

	stored := svc.Get(ctx, req.ID)
	require.NotNil(t, stored)
	assert.Equal(t, int64(69000), stored.EstimatedCost)
}

func TestCreatePreApproved(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	req, err := svc.Create(ctx, &domain.ApprovalRequest{
		Customer:      "cust-1",
		Type:          domain.TypeEstimate,
		EstimatedCost: 5000,
		Status:        domain.StatusApproved,
		FinalPrice:    5000,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, req.Status)
	assert.Empty(t, svc.ListPending(ctx))
}

func TestApprove(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	req, err := svc.Create(ctx, &domain.ApprovalRequest{
		Customer: "cust-1", Type: domain.TypeEstimate, EstimatedCost: 69000,
	})
	require.NoError(t, err)
	require.Equal(t, 1, svc.CountPending(ctx))

	assert.True(t, svc.Approve(ctx, req.ID, 65000))
	assert.Equal(t, 0, svc.CountPending(ctx))

	stored := svc.Get(ctx, req.ID)
	require.NotNil(t, stored)
	assert.Equal(t, domain.StatusApproved, stored.Status)
	assert.Equal(t, int64(65000), stored.FinalPrice)

	// Re-approval overwrites the price rather than failing.
	assert.True(t, svc.Approve(ctx, req.ID, 64000))
	assert.Equal(t, int64(64000), svc.Get(ctx, req.ID).FinalPrice)
}

func TestApproveUnknownID(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()
	assert.False(t, svc.Approve(ctx, "missing", 1000))
}

func TestGetAbsentReturnsNil(t *testing.T) {
	assert.Nil(t, newTestService().Get(context.Background(), "missing"))
}
