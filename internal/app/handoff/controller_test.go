package handoff

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeweledassist/backend/internal/adapters/storage/memory"
	"github.com/jeweledassist/backend/internal/domain"
)

type recordingNotifier struct {
	alerts []string
}

func (n *recordingNotifier) NotifyOwner(ctx context.Context, text string) {
	n.alerts = append(n.alerts, text)
}

func newTestController() (*Controller, *memory.SessionStore, *memory.CustomerStore, *recordingNotifier) {
	sessions := memory.NewSessionStore()
	customers := memory.NewCustomerStore()
	notifier := &recordingNotifier{}
	c := NewController(sessions, customers, notifier, nil).
		WithClock(func() time.Time { return time.Unix(5000, 0) })
	return c, sessions, customers, notifier
}

func TestSetModeAgent(t *testing.T) {
	ctx := context.Background()
	c, sessions, customers, notifier := newTestController()

	require.NoError(t, c.SetMode(ctx, "cust-1", domain.ModeAgent, "asked for help"))

	sess, err := sessions.GetSession(ctx, "cust-1")
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, domain.ModeAgent, sess.Mode)

	rec, err := customers.GetCustomer(ctx, "cust-1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.False(t, rec.BotEnabled)
	assert.True(t, rec.RequiresOwnerAction)
	require.NotNil(t, rec.HandoffAt)
	assert.Equal(t, time.Unix(5000, 0), *rec.HandoffAt)
	assert.Equal(t, "asked for help", rec.HandoffReason)

	require.Len(t, notifier.alerts, 1)
	assert.Contains(t, notifier.alerts[0], "cust-1")
}

func TestSetModeAgentIsIdempotentForAlerts(t *testing.T) {
	ctx := context.Background()
	c, _, _, notifier := newTestController()

	require.NoError(t, c.SetMode(ctx, "cust-1", domain.ModeAgent, "first"))
	require.NoError(t, c.SetMode(ctx, "cust-1", domain.ModeAgent, "second"))

	// Only the actual flip alerts the owner.
	assert.Len(t, notifier.alerts, 1)
}

func TestSetModeBackToBot(t *testing.T) {
	ctx := context.Background()
	c, sessions, customers, notifier := newTestController()

	require.NoError(t, c.SetMode(ctx, "cust-1", domain.ModeAgent, "handoff"))
	require.NoError(t, c.SetMode(ctx, "cust-1", domain.ModeBot, ""))

	sess, err := sessions.GetSession(ctx, "cust-1")
	require.NoError(t, err)
	assert.Equal(t, domain.ModeBot, sess.Mode)

	rec, err := customers.GetCustomer(ctx, "cust-1")
	require.NoError(t, err)
	assert.True(t, rec.BotEnabled)
	// The handoff history stays on the record.
	assert.NotNil(t, rec.HandoffAt)

	assert.Len(t, notifier.alerts, 1)
}
