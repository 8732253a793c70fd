package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeweledassist/backend/internal/domain"
)

func TestSessionStoreReturnsNilForUnseenCustomer(t *testing.T) {
	ctx := context.Background()
	s := NewSessionStore()

	sess, err := s.GetSession(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestSessionStoreCopiesOnReadAndWrite(t *testing.T) {
	ctx := context.Background()
	s := NewSessionStore()

	orig := domain.NewSession("cust-1", time.Unix(100, 0))
	orig.Step = domain.StepBuyGrams
	orig.BuyFlow = domain.BuyFlow{Metal: domain.MetalGold, Grams: 10}
	require.NoError(t, s.SaveSession(ctx, orig))

	// Mutating the saved pointer must not leak into the store.
	orig.Step = domain.StepMenu

	got, err := s.GetSession(ctx, "cust-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StepBuyGrams, got.Step)
	assert.Equal(t, domain.BuyFlow{Metal: domain.MetalGold, Grams: 10}, got.BuyFlow)

	// Nor must mutating a read copy.
	got.BuyFlow.Metal = domain.MetalSilver
	again, err := s.GetSession(ctx, "cust-1")
	require.NoError(t, err)
	assert.Equal(t, domain.MetalGold, again.BuyFlow.Metal)
}

func TestCustomerStoreListsByRecency(t *testing.T) {
	ctx := context.Background()
	s := NewCustomerStore()

	for i, id := range []domain.CustomerID{"old", "mid", "new"} {
		rec := domain.NewCustomerRecord(id, time.Unix(int64(i), 0))
		rec.LastContact = time.Unix(int64(i*100), 0)
		require.NoError(t, s.UpsertCustomer(ctx, rec))
	}

	out, err := s.ListRecentCustomers(ctx, 2)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, domain.CustomerID("new"), out[0].Customer)
	assert.Equal(t, domain.CustomerID("mid"), out[1].Customer)
}

func TestMessageStoreHistoryMatchesEitherSide(t *testing.T) {
	ctx := context.Background()
	s := NewMessageStore()

	msgs := []domain.Message{
		{From: "cust-1", To: domain.PeerAdmin, Text: "hi", Timestamp: time.Unix(1, 0)},
		{From: domain.PeerBot, To: "cust-1", Text: "menu", Timestamp: time.Unix(2, 0)},
		{From: "cust-2", To: domain.PeerAdmin, Text: "other", Timestamp: time.Unix(3, 0)},
		{From: domain.PeerOwner, To: "cust-1", Text: "deal", Timestamp: time.Unix(4, 0)},
	}
	for i := range msgs {
		require.NoError(t, s.AppendMessage(ctx, &msgs[i]))
	}

	out, err := s.HistoryFor(ctx, "cust-1", 0)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, "hi", out[0].Text)
	assert.Equal(t, "deal", out[2].Text)

	// Limit keeps the most recent tail.
	tail, err := s.HistoryFor(ctx, "cust-1", 2)
	require.NoError(t, err)
	require.Len(t, tail, 2)
	assert.Equal(t, "menu", tail[0].Text)
}

func TestApprovalStoreRejectsDuplicateIDs(t *testing.T) {
	ctx := context.Background()
	s := NewApprovalStore()

	req := &domain.ApprovalRequest{ID: "r1", Customer: "cust-1", Status: domain.StatusPendingApproval}
	require.NoError(t, s.CreateApproval(ctx, req))
	assert.Error(t, s.CreateApproval(ctx, req))
}

func TestApprovalStoreListByStatusNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewApprovalStore()

	for i, id := range []domain.RequestID{"r1", "r2", "r3"} {
		require.NoError(t, s.CreateApproval(ctx, &domain.ApprovalRequest{
			ID:        id,
			Customer:  "cust-1",
			Status:    domain.StatusPendingApproval,
			CreatedAt: time.Unix(int64(i), 0),
		}))
	}
	require.NoError(t, s.SetApproved(ctx, "r2", 5000, time.Unix(10, 0)))

	pending, err := s.ListByStatus(ctx, domain.StatusPendingApproval, 0)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, domain.RequestID("r3"), pending[0].ID)
	assert.Equal(t, domain.RequestID("r1"), pending[1].ID)
}

func TestSettingsStoreSeed(t *testing.T) {
	ctx := context.Background()

	empty := NewSettingsStore(nil)
	cfg, err := empty.GetSettings(ctx)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Zero(t, cfg.ApprovalThreshold)

	seeded := NewSettingsStore(&domain.StoreSettings{ApprovalThreshold: 20000})
	cfg, err = seeded.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(20000), cfg.ApprovalThreshold)

	cfg.ApprovalThreshold = 5000
	require.NoError(t, seeded.UpdateSettings(ctx, cfg))
	cfg, err = seeded.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), cfg.ApprovalThreshold)
}
